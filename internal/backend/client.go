// ABOUTME: HTTP client for the command-execution backend behind the copilot chat
// ABOUTME: Posts commands to /chat, normalizes reply shapes and guards calls with a circuit breaker

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Default client settings.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxFailures = uint32(5)
	DefaultOpenTimeout = 30 * time.Second
	defaultInterval    = 60 * time.Second

	// maxReplyBytes bounds how much of a reply body is read.
	maxReplyBytes = 1 << 20
)

// UnavailableMessage is shown to the operator when the backend cannot be reached.
const UnavailableMessage = "Backend unavailable"

// DefaultAcknowledgement is the reply text used when the backend answers
// without a response body.
const DefaultAcknowledgement = "✅ Command executed! Check dashboard."

// ErrUnavailable means the backend could not be reached or the breaker is open.
var ErrUnavailable = errors.New("backend unavailable")

// CommandError is a reply in which the backend reported a failure.
type CommandError struct {
	StatusCode int
	Message    string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("backend rejected command (status %d): %s", e.StatusCode, e.Message)
}

// Result is a normalized backend reply.
type Result struct {
	// Agent is the canonical roster name of the agent that handled the
	// command, or empty when the backend did not say.
	Agent    string `json:"agent"`
	Response string `json:"response"`
}

// Config configures a Client.
type Config struct {
	URL         string
	Timeout     time.Duration
	MaxFailures uint32
	OpenTimeout time.Duration
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// Client sends operator commands to the backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[any]
	now        func() time.Time
	logger     *slog.Logger
}

// NewClient creates a Client. Zero-valued settings get defaults.
func NewClient(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "backend")

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = DefaultMaxFailures
	}
	openTimeout := cfg.OpenTimeout
	if openTimeout == 0 {
		openTimeout = DefaultOpenTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "backend",
		MaxRequests: 1,
		Interval:    defaultInterval,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: isHealthy,
	})

	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		httpClient: httpClient,
		breaker:    cb,
		now:        time.Now,
		logger:     logger,
	}
}

// isHealthy decides which errors count against the breaker. Rejections the
// backend answered deliberately and caller cancellations do not.
func isHealthy(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.StatusCode < http.StatusInternalServerError
	}
	return false
}

// Execute sends command to the backend and returns its normalized reply.
// Transport failures and an open breaker wrap ErrUnavailable; backend-reported
// failures are returned as *CommandError.
func (c *Client) Execute(ctx context.Context, command string) (*Result, error) {
	start := time.Now()
	out, err := c.breaker.Execute(func() (any, error) {
		return c.post(ctx, command)
	})
	if err != nil {
		if breakerRefused(err) {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		c.logger.Debug("command failed", "error", err, "duration", time.Since(start))
		return nil, err
	}
	res := out.(*Result)

	c.logger.Debug("command executed", "agent", res.Agent, "duration", time.Since(start))
	return res, nil
}

func breakerRefused(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatReply struct {
	TaskType string          `json:"taskType"`
	Task     string          `json:"task"`
	Agent    string          `json:"agent"`
	Response json.RawMessage `json:"response"`
	Error    string          `json:"error"`
}

func (c *Client) post(ctx context.Context, command string) (*Result, error) {
	body, err := json.Marshal(chatRequest{Message: command})
	if err != nil {
		return nil, fmt.Errorf("encoding command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading reply: %w", ErrUnavailable, err)
	}

	var reply chatReply
	decodeErr := json.Unmarshal(data, &reply)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := reply.Error
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &CommandError{StatusCode: resp.StatusCode, Message: msg}
	}

	if decodeErr != nil {
		c.logger.Debug("reply was not JSON, using acknowledgement", "error", decodeErr)
		return &Result{Response: DefaultAcknowledgement}, nil
	}
	if reply.Error != "" {
		return nil, &CommandError{StatusCode: resp.StatusCode, Message: reply.Error}
	}

	return &Result{
		Agent:    CanonicalAgent(firstNonEmpty(reply.TaskType, reply.Task, reply.Agent)),
		Response: responseText(reply.Response),
	}, nil
}

// responseText accepts a string or any JSON value. Structured replies are
// compacted; missing or empty replies become the default acknowledgement.
func responseText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return DefaultAcknowledgement
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			return DefaultAcknowledgement
		}
		return s
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return string(trimmed)
	}
	return buf.String()
}

// CanonicalAgent maps backend agent labels onto roster names:
// "Quote Agent" and "quote" both become "QUOTE".
func CanonicalAgent(label string) string {
	name := strings.ToUpper(strings.TrimSpace(label))
	name = strings.TrimSuffix(name, " AGENT")
	name = strings.TrimSuffix(name, "_AGENT")
	name = strings.TrimSpace(name)
	return strings.Join(strings.Fields(name), "_")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// State returns the current circuit breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// Ready reports whether commands will be attempted, i.e. the breaker is not open.
func (c *Client) Ready() bool {
	return c.breaker.State() != gobreaker.StateOpen
}

// URL returns the backend base URL.
func (c *Client) URL() string {
	return c.baseURL
}
