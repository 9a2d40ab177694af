// ABOUTME: Activity event model recorded for each step of a command's lifecycle
// ABOUTME: Defaults missing agent/status/action so stored events are always well formed

package activity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state carried by an activity event.
type Status string

const (
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Sentinel agent identities for events not produced by a worker agent.
const (
	// AgentSystem is used when the caller does not name an agent.
	AgentSystem = "SYSTEM"
	// AgentCopilot is the orchestrating meta-agent that receives commands.
	AgentCopilot = "COPILOT"
)

// clockLayout is the display format used by the feed views.
const clockLayout = "3:04:05 PM"

// ParseStatus maps a raw status onto the fixed set. Anything unrecognised,
// including the empty string, becomes StatusSuccess.
func ParseStatus(raw string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusRunning:
		return StatusRunning
	case StatusFailed:
		return StatusFailed
	default:
		return StatusSuccess
	}
}

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	return s == StatusRunning || s == StatusSuccess || s == StatusFailed
}

// Icon returns the glyph the feed shows next to an event.
func (s Status) Icon() string {
	switch s {
	case StatusSuccess:
		return "🟢"
	case StatusRunning:
		return "🔵"
	case StatusFailed:
		return "🔴"
	default:
		return "⚡"
	}
}

// Event is one recorded lifecycle step. Events are values and are never
// modified once stored.
type Event struct {
	ID     string    `json:"id"`
	Agent  string    `json:"agent"`
	Status Status    `json:"status"`
	Action string    `json:"action"`
	Time   time.Time `json:"timestamp"`
}

// NewEvent builds an event from raw caller input, defaulting the agent to
// AgentSystem and the status to StatusSuccess. A zero at leaves Time unset so
// the store stamps it on push.
func NewEvent(agent, status, action string, at time.Time) Event {
	ev := Event{
		Agent:  agent,
		Status: Status(status),
		Action: action,
		Time:   at,
	}
	return normalize(ev)
}

// Clock formats the event time for display.
func (e Event) Clock() string {
	if e.Time.IsZero() {
		return ""
	}
	return e.Time.Format(clockLayout)
}

// normalize fills every defaulted field.
func normalize(ev Event) Event {
	ev.Agent = strings.TrimSpace(ev.Agent)
	if ev.Agent == "" {
		ev.Agent = AgentSystem
	}
	if !ev.Status.Valid() {
		ev.Status = ParseStatus(string(ev.Status))
	}
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	return ev
}
