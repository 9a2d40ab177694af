// ABOUTME: Minimal fake command and CRM backend for local runs and E2E testing
// ABOUTME: Usage: fake-backend [-addr localhost:8000] [-delay 300ms]

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"
)

func main() {
	addr := flag.String("addr", "localhost:8000", "HTTP listen address")
	delay := flag.Duration("delay", 300*time.Millisecond, "Simulated processing time per command")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, *addr, *delay); err != nil {
		slog.Error("fake-backend failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, addr string, delay time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           newHandler(delay),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("fake backend listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("HTTP server: %w", err)
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	return srv.Shutdown(shutdownCtx)
}

type chatRequest struct {
	Message string `json:"message"`
}

func newHandler(delay time.Duration) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "fake backend running"})
	})
	mux.HandleFunc("GET /crm-dashboard", func(w http.ResponseWriter, r *http.Request) {
		rows := sampleCustomers()
		writeJSON(w, http.StatusOK, map[string]any{
			"data":    rows,
			"total":   len(rows),
			"updated": time.Now().Format(time.DateOnly),
		})
	})
	mux.HandleFunc("POST /chat", func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}

		slog.Info("received command", "message", req.Message)
		status, body := route(req.Message)
		writeJSON(w, status, body)
	})
	return mux
}

// route picks an agent by keyword and builds its reply.
func route(message string) (int, map[string]any) {
	text := strings.ToLower(message)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(text, w) {
				return true
			}
		}
		return false
	}

	switch {
	case has("fail", "crash"):
		return http.StatusInternalServerError, map[string]any{"error": "Agent crashed while handling the request"}
	case has("quote", "price", "premium", "cost"):
		return http.StatusOK, map[string]any{
			"taskType": "QUOTE",
			"response": "Generated quotes:\n\n| Plan | Premium |\n|---|---|\n| Basic | $420 |\n| Plus | $610 |",
		}
	case has("policy", "coverage", "claim", "benefit"):
		return http.StatusOK, map[string]any{
			"taskType": "Policy Agent",
			"response": "Policy **P-1001** covers collision and theft. Deductible: $500.",
		}
	case has("remind", "renewal", "expir"):
		return http.StatusOK, map[string]any{
			"taskType": "REMINDER",
			"response": map[string]any{"sent": 3, "channel": "whatsapp"},
		}
	case has("crm", "lead", "customer"):
		return http.StatusOK, map[string]any{
			"task":     "CRM",
			"response": "Updated 1 customer record.",
		}
	default:
		return http.StatusOK, map[string]any{
			"task":     "SUPERVISOR",
			"response": "I can help with policy details or insurance quotes.",
		}
	}
}

// sampleCustomers mixes the split and combined policy row shapes.
func sampleCustomers() []map[string]any {
	return []map[string]any{
		{"name": "Asha Rao", "phone": "9876543210", "policy_type": "Health", "policy_id": "POL1001", "expiry": "2099-12-31", "premium": 12000},
		{"name": "Vikram Shah", "phone": "9123456780", "policy_type": "Motor", "policy_id": "POL1002", "expiry": "2024-03-31", "premium": 8450},
		{"name": "Meera Iyer", "phone": "9000000000", "policy": "Term Life (POL1003)", "expiry": "2099-06-30", "premium": "₹15,500", "status": "Expiring"},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
