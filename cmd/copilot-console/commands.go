// ABOUTME: activity, customers, send and token subcommands
// ABOUTME: Prints the feed as an aligned table or JSON and mints operator tokens

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/2389/copilot-console/internal/activity"
	"github.com/2389/copilot-console/internal/auth"
	"github.com/2389/copilot-console/internal/backend"
	"github.com/2389/copilot-console/internal/config"
	"github.com/2389/copilot-console/internal/copilot"
)

const (
	actionWidth     = 60
	defaultTokenTTL = 30 * 24 * time.Hour
)

func runActivity(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("activity", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output as JSON")
	limit := fs.Int("limit", 0, "Show at most this many events (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	c := newConsoleClient(cfg, "")

	events, err := c.activity(ctx)
	if err != nil {
		return fmt.Errorf("fetching activity: %w", err)
	}
	agents, err := c.agents(ctx)
	if err != nil {
		return fmt.Errorf("fetching agents: %w", err)
	}

	if *limit > 0 && len(events) > *limit {
		events = events[:*limit]
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"activity":     events,
			"active_agent": agents.ActiveAgent,
			"agents":       agents.Agents,
		})
	}

	printRoster(os.Stdout, agents)
	fmt.Println()
	printActivity(os.Stdout, events)
	return nil
}

func printRoster(w io.Writer, agents agentsResponse) {
	parts := make([]string, 0, len(agents.Agents))
	for _, b := range agents.Agents {
		switch {
		case b.Active:
			parts = append(parts, color.New(color.FgGreen, color.Bold).Sprint("● "+b.Agent))
		case !b.Known:
			parts = append(parts, color.YellowString("? "+b.Agent))
		default:
			parts = append(parts, color.HiBlackString("○ "+b.Agent))
		}
	}
	fmt.Fprintf(w, "Active: %s\n", agents.ActiveAgent)
	if len(parts) > 0 {
		fmt.Fprintln(w, strings.Join(parts, "  "))
	}
}

func printActivity(w io.Writer, events []activity.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No activity yet.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tAGENT\tSTATUS\tACTION")
	for _, ev := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\n",
			ev.Clock(),
			ev.Agent,
			ev.Status.Icon(),
			ev.Status,
			truncate(ev.Action, actionWidth),
		)
	}
	tw.Flush()
}

func runCustomers(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("customers", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	list, err := newConsoleClient(cfg, "").customers(ctx)
	if err != nil {
		return fmt.Errorf("fetching customers: %w", err)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}
	printCustomers(os.Stdout, list)
	return nil
}

func printCustomers(w io.Writer, list *backend.CustomerList) {
	if len(list.Customers) == 0 {
		fmt.Fprintln(w, "No customer data available.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CUSTOMER\tPHONE\tPOLICY TYPE\tPOLICY ID\tSTATUS")
	for _, c := range list.Customers {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.Name, c.Phone, c.PolicyType, c.PolicyID, statusText(c.Status))
	}
	tw.Flush()
	fmt.Fprintf(w, "%d customers, updated %s\n", list.Total, list.Updated)
}

func statusText(status string) string {
	switch status {
	case backend.StatusActive:
		return color.GreenString(status)
	case backend.StatusExpired:
		return color.RedString(status)
	default:
		return color.YellowString(status)
	}
}

func runSend(ctx context.Context, args []string) error {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return fmt.Errorf("usage: copilot-console send <command>")
	}

	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	c := newConsoleClient(cfg, "")

	reply, err := c.send(ctx, copilot.Command{Text: text, RequestID: uuid.NewString()})
	if reply != nil {
		printReply(os.Stdout, reply)
	}
	return err
}

func printReply(w io.Writer, reply *copilot.Reply) {
	agent := reply.Agent
	if agent == "" {
		agent = reply.Message.Agent
	}
	if reply.Message.Role == copilot.RoleError {
		fmt.Fprintln(w, color.RedString(reply.Message.Content))
		return
	}
	fmt.Fprintf(w, "%s %s\n", color.CyanString("[%s]", agent), reply.Message.Content)
}

func runToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	name := fs.String("name", "", "Operator name to embed in the token")
	ttl := fs.Duration("ttl", defaultTokenTTL, "Token lifetime (0 = never expires)")
	printOnly := fs.Bool("print", false, "Print the token instead of writing the token file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	configPath := config.DefaultPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is not set in %s", configPath)
	}

	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return fmt.Errorf("creating token signer: %w", err)
	}
	token, err := verifier.Generate(*name, *ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	if *printOnly {
		fmt.Println(token)
		return nil
	}

	path := tokenPath(configPath)
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	color.Green("Token for %s written to %s", *name, path)
	return nil
}

// truncate shortens s to max runes, marking the cut with an ellipsis.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}
