// ABOUTME: Interactive config generator for the init subcommand
// ABOUTME: Prompts for each section and writes a commented YAML file

package main

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/2389/copilot-console/internal/config"
)

type initAnswers struct {
	HTTPAddr   string
	BackendURL string
	Dwell      string
	ActivateOn string
	Roster     []string
	RatePerMin string
	JWTSecret  string
	LogLevel   string
	LogFormat  string
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("copilot-console configuration setup")
	fmt.Println("===================================")
	fmt.Println()

	outputFile := prompt(reader, "Config file path", config.DefaultPath())

	if _, err := os.Stat(outputFile); err == nil {
		if !isYes(prompt(reader, "File exists. Overwrite?", "no")) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	var a initAnswers

	fmt.Println("\n--- Server Configuration ---")
	a.HTTPAddr = prompt(reader, "HTTP address", config.DefaultHTTPAddr)

	fmt.Println("\n--- Backend Configuration ---")
	a.BackendURL = prompt(reader, "Backend URL", "http://localhost:8000")

	fmt.Println("\n--- Agent Status ---")
	a.Dwell = prompt(reader, "Status dwell time", config.DefaultDwell.String())
	a.ActivateOn = prompt(reader, "Activate on (all/results)", config.DefaultActivateOn)
	roster := prompt(reader, "Agent roster (comma separated)", strings.Join(config.DefaultRoster, ","))
	a.Roster = splitList(roster)

	fmt.Println("\n--- Commands ---")
	a.RatePerMin = prompt(reader, "Commands per minute", fmt.Sprint(config.DefaultRatePerMinute))

	fmt.Println("\n--- Authentication ---")
	if isYes(prompt(reader, "Require API tokens?", "yes")) {
		secret, err := generateSecret()
		if err != nil {
			return err
		}
		a.JWTSecret = secret
	}

	fmt.Println("\n--- Logging Configuration ---")
	a.LogLevel = prompt(reader, "Log level (debug/info/warn/error)", "info")
	a.LogFormat = prompt(reader, "Log format (text/json)", "text")

	if dir := filepath.Dir(outputFile); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	// The file may carry the signing secret.
	if err := os.WriteFile(outputFile, []byte(renderConfig(a)), 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Printf("\nConfiguration written to %s\n", outputFile)
	if a.JWTSecret != "" {
		fmt.Println("Mint an operator token with: copilot-console token --name <operator>")
	}
	fmt.Println("Start the server with: copilot-console serve")
	return nil
}

func renderConfig(a initAnswers) string {
	var cfg strings.Builder
	cfg.WriteString("# copilot-console configuration\n")
	cfg.WriteString("# Generated by copilot-console init\n\n")

	cfg.WriteString("server:\n")
	fmt.Fprintf(&cfg, "  http_addr: %q\n\n", a.HTTPAddr)

	cfg.WriteString("backend:\n")
	fmt.Fprintf(&cfg, "  url: %q\n", a.BackendURL)
	fmt.Fprintf(&cfg, "  timeout: %q\n", config.DefaultBackendTimeout.String())
	fmt.Fprintf(&cfg, "  max_failures: %d\n", config.DefaultMaxFailures)
	fmt.Fprintf(&cfg, "  open_timeout: %q\n\n", config.DefaultOpenTimeout.String())

	cfg.WriteString("activity:\n")
	fmt.Fprintf(&cfg, "  capacity: %d\n\n", config.DefaultCapacity)

	cfg.WriteString("status:\n")
	fmt.Fprintf(&cfg, "  dwell: %q\n", a.Dwell)
	fmt.Fprintf(&cfg, "  activate_on: %q\n", a.ActivateOn)
	cfg.WriteString("  roster:\n")
	for _, agent := range a.Roster {
		fmt.Fprintf(&cfg, "    - %q\n", agent)
	}
	cfg.WriteString("\n")

	cfg.WriteString("commands:\n")
	fmt.Fprintf(&cfg, "  rate_per_minute: %s\n", a.RatePerMin)
	fmt.Fprintf(&cfg, "  burst: %d\n", config.DefaultBurst)
	fmt.Fprintf(&cfg, "  dedupe_window: %q\n\n", config.DefaultDedupeWindow.String())

	if a.JWTSecret != "" {
		cfg.WriteString("auth:\n")
		fmt.Fprintf(&cfg, "  jwt_secret: %q\n\n", a.JWTSecret)
	} else {
		cfg.WriteString("# auth:\n")
		cfg.WriteString("#   jwt_secret: \"${COPILOT_JWT_SECRET}\"\n\n")
	}

	cfg.WriteString("logging:\n")
	fmt.Fprintf(&cfg, "  level: %q\n", a.LogLevel)
	fmt.Fprintf(&cfg, "  format: %q\n", a.LogFormat)

	return cfg.String()
}

func generateSecret() (string, error) {
	buf := make([]byte, config.MinJWTSecretLength)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("generating secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isYes(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "yes" || s == "y"
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
