// ABOUTME: Command flow from operator submission through the backend to the activity log
// ABOUTME: Applies dedupe and rate limits, records lifecycle events and keeps the chat transcript

package copilot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/2389/copilot-console/internal/activity"
	"github.com/2389/copilot-console/internal/backend"
	"github.com/2389/copilot-console/internal/dedupe"
)

// Sentinel errors returned by Submit before the backend is contacted.
var (
	ErrEmptyCommand = errors.New("command is empty")
	ErrDuplicate    = errors.New("duplicate command")
	ErrRateLimited  = errors.New("too many commands, slow down")
)

// ProcessingAction is the activity text recorded when a command is handed to the backend.
const ProcessingAction = "Dispatching to agents"

const (
	defaultRatePerMinute   = 30
	defaultBurst           = 5
	defaultDedupeWindow    = 10 * time.Second
	defaultTranscriptLimit = 200
	dedupeMaxKeys          = 1024
)

// Executor runs a command against the backend.
type Executor interface {
	Execute(ctx context.Context, command string) (*backend.Result, error)
}

// Recorder receives lifecycle events. *coordinator.Coordinator satisfies it.
type Recorder interface {
	Record(agent, status, action string) activity.Event
}

// Command is one operator submission.
type Command struct {
	Text string `json:"message"`
	// RequestID, when set, is the dedupe key instead of the text.
	RequestID string `json:"request_id,omitempty"`
	Operator  string `json:"-"`
}

// Reply is the outcome of a submitted command.
type Reply struct {
	Agent    string  `json:"agent,omitempty"`
	Response string  `json:"response,omitempty"`
	Error    string  `json:"error,omitempty"`
	Message  Message `json:"message"`
}

// Config configures a Service.
type Config struct {
	Executor        Executor
	Recorder        Recorder
	RatePerMinute   int
	Burst           int
	DedupeWindow    time.Duration
	TranscriptLimit int
	Logger          *slog.Logger
}

// Service accepts operator commands.
type Service struct {
	executor Executor
	recorder Recorder
	limiter  *rate.Limiter
	seen     *dedupe.Window
	logger   *slog.Logger

	mu         sync.RWMutex
	transcript []Message
	limit      int
	now        func() time.Time
}

// NewService creates a Service with the welcome message already in the
// transcript. Call Close to release the dedupe sweeper.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	perMinute := cfg.RatePerMinute
	if perMinute <= 0 {
		perMinute = defaultRatePerMinute
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	window := cfg.DedupeWindow
	if window <= 0 {
		window = defaultDedupeWindow
	}
	limit := cfg.TranscriptLimit
	if limit <= 0 {
		limit = defaultTranscriptLimit
	}

	s := &Service{
		executor: cfg.Executor,
		recorder: cfg.Recorder,
		limiter:  rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst),
		seen:     dedupe.NewWindow(window, dedupeMaxKeys),
		logger:   logger.With("component", "copilot"),
		limit:    limit,
		now:      time.Now,
	}
	s.append(RoleAgent, "", WelcomeMessage)
	return s
}

// Submit runs one command. Empty, duplicate and rate-limited commands are
// rejected without touching the activity log. Otherwise the command is
// recorded as received and processing, sent to the backend, and the outcome
// is recorded as a success for the resolving agent or a SYSTEM failure.
// Backend failures return the Reply alongside a non-nil error.
func (s *Service) Submit(ctx context.Context, cmd Command) (*Reply, error) {
	text := strings.TrimSpace(cmd.Text)
	if text == "" {
		return nil, ErrEmptyCommand
	}

	key := strings.TrimSpace(cmd.RequestID)
	if key == "" {
		key = text
	}
	if s.seen.Seen(key) {
		s.logger.Debug("duplicate command dropped", "operator", cmd.Operator)
		return nil, ErrDuplicate
	}
	if !s.limiter.Allow() {
		s.seen.Forget(key)
		s.logger.Warn("command rate limited", "operator", cmd.Operator)
		return nil, ErrRateLimited
	}

	s.append(RoleUser, "", text)
	s.recorder.Record(activity.AgentCopilot, string(activity.StatusRunning), text)
	s.recorder.Record(activity.AgentCopilot, string(activity.StatusRunning), ProcessingAction)

	start := time.Now()
	res, err := s.executor.Execute(ctx, text)
	if err != nil {
		// Let the operator retry a failed command right away.
		s.seen.Forget(key)

		msg := FailureMessage(err)
		s.recorder.Record(activity.AgentSystem, string(activity.StatusFailed), msg)
		reply := &Reply{
			Error:   msg,
			Message: s.append(RoleError, activity.AgentSystem, "❌ "+msg),
		}
		s.logger.Warn("command failed",
			"operator", cmd.Operator,
			"error", err,
			"duration", time.Since(start),
		)
		return reply, fmt.Errorf("executing command: %w", err)
	}

	agent := res.Agent
	if agent == "" {
		agent = activity.AgentSystem
	}
	s.recorder.Record(agent, string(activity.StatusSuccess), res.Response)

	s.logger.Info("command executed",
		"operator", cmd.Operator,
		"agent", agent,
		"duration", time.Since(start),
	)

	return &Reply{
		Agent:    agent,
		Response: res.Response,
		Message:  s.append(RoleAgent, agent, res.Response),
	}, nil
}

// FailureMessage is the operator-facing text for a failed submission.
func FailureMessage(err error) string {
	var cmdErr *backend.CommandError
	switch {
	case errors.As(err, &cmdErr):
		return cmdErr.Message
	case errors.Is(err, context.Canceled):
		return "Command cancelled"
	default:
		return backend.UnavailableMessage
	}
}

// Transcript returns the chat history oldest-first.
func (s *Service) Transcript() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

func (s *Service) append(role Role, agent, content string) Message {
	msg := Message{
		ID:      uuid.New().String(),
		Role:    role,
		Agent:   agent,
		Content: content,
		Time:    s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, msg)
	if over := len(s.transcript) - s.limit; over > 0 {
		s.transcript = append(s.transcript[:0:0], s.transcript[over:]...)
	}
	return msg
}

// Close stops the dedupe sweeper.
func (s *Service) Close() {
	s.seen.Close()
}
