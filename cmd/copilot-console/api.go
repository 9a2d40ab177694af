// ABOUTME: HTTP client for the console's JSON API used by the CLI subcommands
// ABOUTME: Resolves the bearer token from the environment or the token file beside the config

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/2389/copilot-console/internal/activity"
	"github.com/2389/copilot-console/internal/agentstatus"
	"github.com/2389/copilot-console/internal/backend"
	"github.com/2389/copilot-console/internal/config"
	"github.com/2389/copilot-console/internal/copilot"
)

const (
	tokenEnvVar   = "COPILOT_TOKEN"
	tokenFileName = "token"
)

type consoleClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// newConsoleClient targets the server configured in cfg. An empty token
// falls back to resolveToken.
func newConsoleClient(cfg *config.Config, token string) *consoleClient {
	if token == "" {
		token = resolveToken(config.DefaultPath())
	}
	return &consoleClient{
		baseURL: "http://" + cfg.Server.HTTPAddr,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// tokenPath returns the token file that lives next to the config file.
func tokenPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), tokenFileName)
}

func resolveToken(configPath string) string {
	if t := os.Getenv(tokenEnvVar); t != "" {
		return t
	}
	data, err := os.ReadFile(tokenPath(configPath))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (c *consoleClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		return &apiError{StatusCode: resp.StatusCode, Body: data}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// apiError is a non-2xx reply. Body keeps the raw payload so callers can
// still decode a command reply sent alongside an error status.
type apiError struct {
	StatusCode int
	Body       []byte
}

func (e *apiError) Error() string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(e.Body, &payload) == nil && payload.Error != "" {
		return fmt.Sprintf("%s (%d)", payload.Error, e.StatusCode)
	}
	if msg := strings.TrimSpace(string(e.Body)); msg != "" {
		return fmt.Sprintf("%s (%d)", msg, e.StatusCode)
	}
	return fmt.Sprintf("%s (%d)", http.StatusText(e.StatusCode), e.StatusCode)
}

func (c *consoleClient) health(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}

type activityResponse struct {
	Activity []activity.Event `json:"activity"`
}

type agentsResponse struct {
	ActiveAgent string              `json:"active_agent"`
	Agents      []agentstatus.Badge `json:"agents"`
}

func (c *consoleClient) activity(ctx context.Context) ([]activity.Event, error) {
	var out activityResponse
	if err := c.do(ctx, http.MethodGet, "/api/activity", nil, &out); err != nil {
		return nil, err
	}
	return out.Activity, nil
}

func (c *consoleClient) agents(ctx context.Context) (agentsResponse, error) {
	var out agentsResponse
	err := c.do(ctx, http.MethodGet, "/api/agents", nil, &out)
	return out, err
}

func (c *consoleClient) customers(ctx context.Context) (*backend.CustomerList, error) {
	var out backend.CustomerList
	if err := c.do(ctx, http.MethodGet, "/api/customers", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// send submits a command. A reply that arrives with an error status is
// returned together with the error.
func (c *consoleClient) send(ctx context.Context, cmd copilot.Command) (*copilot.Reply, error) {
	var reply copilot.Reply
	err := c.do(ctx, http.MethodPost, "/api/command", cmd, &reply)
	if err == nil {
		return &reply, nil
	}
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		if json.Unmarshal(apiErr.Body, &reply) == nil && reply.Message.ID != "" {
			return &reply, err
		}
	}
	return nil, err
}
