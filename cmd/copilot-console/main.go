// ABOUTME: Entry point for the copilot-console operator server and CLI
// ABOUTME: Serves the dashboard and offers health, activity, customers, send and token commands

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/copilot-console/internal/config"
	"github.com/2389/copilot-console/internal/server"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                   _ _       _
  ___ ___  _ __ (_) | ___ | |_       ___ ___  _ __  ___  ___ | | ___
 / __/ _ \| '_ \| | |/ _ \| __|____ / __/ _ \| '_ \/ __|/ _ \| |/ _ \
| (_| (_) | |_) | | | (_) | ||_____| (_| (_) | | | \__ \ (_) | |  __/
 \___\___/| .__/|_|_|\___/ \__|     \___\___/|_| |_|___/\___/|_|\___|
          |_|
`

func usage() {
	fmt.Println("Usage: copilot-console <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                  Start the dashboard server")
	fmt.Println("  init                   Create a new config file interactively")
	fmt.Println("  health                 Check server health and backend readiness")
	fmt.Println("  activity [--json]      Show the activity feed and agent roster")
	fmt.Println("  customers [--json]     Show the CRM customer table")
	fmt.Println("  send <command>         Submit a command to the copilot")
	fmt.Println("  token --name NAME      Mint an API token for an operator")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	case "activity":
		err = runActivity(ctx, args)
	case "customers":
		err = runCustomers(ctx, args)
	case "send":
		err = runSend(ctx, args)
	case "token":
		err = runToken(args)
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := config.DefaultPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Dashboard: http://%s/\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Backend:   %s\n", cfg.Backend.URL)
	green.Print("    ▶ ")
	fmt.Printf("Roster:    %v ", cfg.Status.Roster)
	gray.Printf("(dwell %s, activate on %s)\n", cfg.Status.Dwell, cfg.Status.ActivateOn)
	if cfg.Auth.JWTSecret == "" {
		yellow.Print("    ! ")
		fmt.Println("API auth disabled (no auth.jwt_secret)")
	}
	fmt.Println()

	logger.Info("starting copilot-console",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"backend", cfg.Backend.URL,
	)

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return srv.Run(ctx)
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	c := newConsoleClient(cfg, "")
	if err := c.health(ctx, "/health"); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	color.Green("healthy")

	if err := c.health(ctx, "/health/ready"); err != nil {
		color.Yellow("not ready: %v", err)
		return nil
	}
	color.Green("ready")
	return nil
}
