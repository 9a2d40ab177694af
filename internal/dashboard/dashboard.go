// ABOUTME: Operator dashboard HTTP handlers: page, htmx-style partials, JSON API and health
// ABOUTME: Reads coordinator snapshots and forwards operator commands to the copilot service

package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/2389/copilot-console/internal/auth"
	"github.com/2389/copilot-console/internal/backend"
	"github.com/2389/copilot-console/internal/coordinator"
	"github.com/2389/copilot-console/internal/copilot"
)

const (
	defaultHeartbeat = 30 * time.Second
	maxCommandBytes  = 64 << 10
)

// StateSource provides activity and agent status. *coordinator.Coordinator satisfies it.
type StateSource interface {
	Snapshot() coordinator.Update
	Watch(ctx context.Context) <-chan coordinator.Update
}

// CommandService runs operator commands. *copilot.Service satisfies it.
type CommandService interface {
	Submit(ctx context.Context, cmd copilot.Command) (*copilot.Reply, error)
	Transcript() []copilot.Message
}

// CustomerSource lists CRM customers. *backend.Client satisfies it.
type CustomerSource interface {
	Customers(ctx context.Context) (*backend.CustomerList, error)
}

// ReadinessChecker reports whether the backend is accepting commands.
type ReadinessChecker interface {
	Ready() bool
}

// Config holds the dashboard dependencies.
type Config struct {
	State    StateSource
	Commands CommandService
	Backend  ReadinessChecker
	// Customers backs the CRM panel. Nil disables it.
	Customers CustomerSource
	// Verifier enables bearer auth on /api and /partials routes when non-nil.
	// The page itself is then served as an empty shell.
	Verifier  auth.TokenVerifier
	Heartbeat time.Duration
	Logger    *slog.Logger
}

// Dashboard serves the operator UI and API.
type Dashboard struct {
	state     StateSource
	commands  CommandService
	backend   ReadinessChecker
	customers CustomerSource
	verifier  auth.TokenVerifier
	heartbeat time.Duration
	templates *template.Template
	logger    *slog.Logger
}

// New creates a Dashboard. It panics if the embedded templates fail to parse.
func New(cfg Config) *Dashboard {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	heartbeat := cfg.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &Dashboard{
		state:     cfg.State,
		commands:  cfg.Commands,
		backend:   cfg.Backend,
		customers: cfg.Customers,
		verifier:  cfg.Verifier,
		heartbeat: heartbeat,
		templates: template.Must(template.ParseFS(templateFS, "templates/*.html", "templates/partials/*.html")),
		logger:    logger.With("component", "dashboard"),
	}
}

// RegisterRoutes registers all dashboard routes on mux.
func (d *Dashboard) RegisterRoutes(mux *http.ServeMux) {
	// Public routes
	mux.HandleFunc("GET /{$}", d.handlePage)
	mux.Handle("GET /static/", http.StripPrefix("/static/", staticHandler()))
	mux.HandleFunc("GET /health", d.handleHealth)
	mux.HandleFunc("GET /health/ready", d.handleReady)

	// Protected when a verifier is configured
	protect := auth.HTTPAuthMiddleware(d.verifier, d.logger)

	mux.Handle("GET /partials/activity", protect(http.HandlerFunc(d.handleActivityPartial)))
	mux.Handle("GET /partials/agents", protect(http.HandlerFunc(d.handleAgentsPartial)))
	mux.Handle("GET /partials/chat", protect(http.HandlerFunc(d.handleChatPartial)))
	mux.Handle("GET /partials/customers", protect(http.HandlerFunc(d.handleCustomersPartial)))

	mux.Handle("POST /api/command", protect(http.HandlerFunc(d.handleCommand)))
	mux.Handle("GET /api/activity", protect(http.HandlerFunc(d.handleActivity)))
	mux.Handle("GET /api/agents", protect(http.HandlerFunc(d.handleAgents)))
	mux.Handle("GET /api/chat", protect(http.HandlerFunc(d.handleChat)))
	mux.Handle("GET /api/customers", protect(http.HandlerFunc(d.handleCustomers)))
	mux.Handle("GET /api/events", protect(http.HandlerFunc(d.handleEvents)))
}

// handlePage renders the full dashboard. With auth enabled the page is
// public, so it carries no state; the script fills the panels from the
// protected partials.
func (d *Dashboard) handlePage(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Title:         "Insurance Copilot",
		AuthEnabled:   d.verifier != nil,
		Locked:        d.verifier != nil,
		RefreshMillis: backend.CustomersRefreshInterval.Milliseconds(),
	}
	if !data.Locked {
		snap := d.state.Snapshot()
		data.Activity = activityRows(snap.Activity)
		data.Agents = agentsViewFrom(snap)
		data.Chat = chatRows(d.commands.Transcript())
	}
	d.render(w, "dashboard.html", data)
}

func (d *Dashboard) handleActivityPartial(w http.ResponseWriter, r *http.Request) {
	d.render(w, "activity", activityRows(d.state.Snapshot().Activity))
}

func (d *Dashboard) handleAgentsPartial(w http.ResponseWriter, r *http.Request) {
	d.render(w, "agents", agentsViewFrom(d.state.Snapshot()))
}

func (d *Dashboard) handleChatPartial(w http.ResponseWriter, r *http.Request) {
	d.render(w, "chat", chatRows(d.commands.Transcript()))
}

// handleCustomersPartial always answers 200 so the panel shows the failure text.
func (d *Dashboard) handleCustomersPartial(w http.ResponseWriter, r *http.Request) {
	view := customersView{}
	if d.customers == nil {
		view.Error = "CRM view not configured"
	} else if list, err := d.customers.Customers(r.Context()); err != nil {
		d.logger.Warn("crm fetch failed", "error", err)
		view.Error = "Failed to fetch CRM data"
	} else {
		view = customersViewFrom(list)
	}
	d.render(w, "customers", view)
}

func (d *Dashboard) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := d.templates.ExecuteTemplate(w, name, data); err != nil {
		d.logger.Error("failed to render template", "template", name, "error", err)
	}
}

// handleCommand accepts {"message": "...", "request_id": "..."} as JSON or a
// form field named message.
func (d *Dashboard) handleCommand(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCommandBytes)

	cmd, err := parseCommand(r)
	if err != nil {
		d.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	cmd.Operator = auth.OperatorFromContext(r.Context())

	reply, err := d.commands.Submit(r.Context(), cmd)
	if err != nil {
		status := commandErrorStatus(err)
		if reply == nil {
			d.sendJSONError(w, status, errorText(err))
			return
		}
		d.writeJSON(w, status, reply)
		return
	}

	d.writeJSON(w, http.StatusOK, reply)
}

func parseCommand(r *http.Request) (copilot.Command, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var cmd copilot.Command
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			return copilot.Command{}, errors.New("invalid JSON body")
		}
		return cmd, nil
	}

	if err := r.ParseForm(); err != nil {
		return copilot.Command{}, errors.New("invalid form body")
	}
	return copilot.Command{
		Text:      r.PostFormValue("message"),
		RequestID: r.PostFormValue("request_id"),
	}, nil
}

// commandErrorStatus maps Submit errors onto HTTP statuses.
func commandErrorStatus(err error) int {
	var cmdErr *backend.CommandError
	switch {
	case errors.Is(err, copilot.ErrEmptyCommand):
		return http.StatusBadRequest
	case errors.Is(err, copilot.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, copilot.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.As(err, &cmdErr):
		return http.StatusBadGateway
	case errors.Is(err, backend.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorText(err error) string {
	switch {
	case errors.Is(err, copilot.ErrEmptyCommand),
		errors.Is(err, copilot.ErrDuplicate),
		errors.Is(err, copilot.ErrRateLimited):
		return err.Error()
	default:
		return copilot.FailureMessage(err)
	}
}

func (d *Dashboard) handleActivity(w http.ResponseWriter, r *http.Request) {
	d.writeJSON(w, http.StatusOK, map[string]any{
		"activity": d.state.Snapshot().Activity,
	})
}

func (d *Dashboard) handleAgents(w http.ResponseWriter, r *http.Request) {
	snap := d.state.Snapshot()
	d.writeJSON(w, http.StatusOK, map[string]any{
		"active_agent": snap.ActiveAgent,
		"agents":       snap.Agents,
	})
}

func (d *Dashboard) handleChat(w http.ResponseWriter, r *http.Request) {
	d.writeJSON(w, http.StatusOK, map[string]any{
		"messages": d.commands.Transcript(),
	})
}

func (d *Dashboard) handleCustomers(w http.ResponseWriter, r *http.Request) {
	if d.customers == nil {
		d.sendJSONError(w, http.StatusNotFound, "CRM view not configured")
		return
	}
	list, err := d.customers.Customers(r.Context())
	if err != nil {
		d.logger.Warn("crm fetch failed", "error", err)
		d.sendJSONError(w, commandErrorStatus(err), "Failed to fetch CRM data")
		return
	}
	d.writeJSON(w, http.StatusOK, list)
}

// handleHealth returns 200 OK if the server is alive.
func (d *Dashboard) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK unless the backend circuit breaker is open.
func (d *Dashboard) handleReady(w http.ResponseWriter, r *http.Request) {
	if d.backend != nil && !d.backend.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("backend circuit open"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (d *Dashboard) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		d.logger.Error("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (d *Dashboard) sendJSONError(w http.ResponseWriter, status int, message string) {
	d.writeJSON(w, status, map[string]string{"error": strings.TrimSpace(message)})
}
