// ABOUTME: Terminal client for the copilot console
// ABOUTME: Streams live activity over SSE and submits commands from an input line

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389/copilot-console/internal/config"
)

// getToken returns the API token from COPILOT_TOKEN or the token file next
// to the console config.
func getToken() string {
	if token := os.Getenv("COPILOT_TOKEN"); token != "" {
		return token
	}
	data, err := os.ReadFile(filepath.Join(filepath.Dir(config.DefaultPath()), "token"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// defaultServer reads the listen address from the console config, falling
// back to the default address.
func defaultServer() string {
	addr := config.DefaultHTTPAddr
	if cfg, err := config.Load(config.DefaultPath()); err == nil {
		addr = cfg.Server.HTTPAddr
	}
	return "http://" + addr
}

func main() {
	server := flag.String("server", defaultServer(), "Console server URL")
	altScreen := flag.Bool("alt-screen", true, "Use the terminal alternate screen")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	api := newAPIClient(strings.TrimRight(*server, "/"), getToken())
	updates := make(chan tea.Msg, 64)
	go runStream(ctx, api, updates)

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if *altScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	p := tea.NewProgram(newModel(api, updates), opts...)
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
