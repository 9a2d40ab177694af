// ABOUTME: Single entry point that keeps the activity log and agent status consistent
// ABOUTME: Records lifecycle events and notifies subscribed views with fresh snapshots

package coordinator

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/2389/copilot-console/internal/activity"
	"github.com/2389/copilot-console/internal/agentstatus"
)

// ActivationPolicy decides which recorded events mark their agent active.
type ActivationPolicy string

const (
	// ActivateAll marks the agent active for every event not attributed to a
	// meta-agent.
	ActivateAll ActivationPolicy = "all"
	// ActivateResults only marks the agent active for success/failed events.
	ActivateResults ActivationPolicy = "results"
)

// ParseActivationPolicy validates a configured policy. Empty selects ActivateAll.
func ParseActivationPolicy(raw string) (ActivationPolicy, error) {
	switch ActivationPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ActivateAll:
		return ActivateAll, nil
	case ActivateResults:
		return ActivateResults, nil
	default:
		return "", fmt.Errorf("unknown activation policy %q (want %q or %q)", raw, ActivateAll, ActivateResults)
	}
}

// DefaultMetaAgents are orchestration identities that never become active.
var DefaultMetaAgents = []string{activity.AgentCopilot, activity.AgentSystem}

// Config holds the injected settings for a Coordinator.
type Config struct {
	Capacity   int
	Dwell      time.Duration
	Roster     agentstatus.Roster
	MetaAgents []string
	Activation ActivationPolicy
	Clock      agentstatus.Clock
	Logger     *slog.Logger
}

// Update is what subscribers receive: the activity log newest-first plus the
// agent status as the agents view renders it.
type Update struct {
	Activity    []activity.Event    `json:"activity"`
	ActiveAgent string              `json:"active_agent"`
	Agents      []agentstatus.Badge `json:"agents"`
}

// Listener is called synchronously after each state change. Listeners must
// not call Record.
type Listener func(Update)

type subscription struct {
	id uint64
	fn Listener
}

// Coordinator exclusively owns the activity store and the status tracker.
type Coordinator struct {
	store      *activity.Store
	tracker    *agentstatus.Tracker
	roster     agentstatus.Roster
	meta       map[string]struct{}
	activation ActivationPolicy
	logger     *slog.Logger

	// dispatchMu serializes record+notify so listeners observe updates in
	// the order they were recorded.
	dispatchMu sync.Mutex

	subsMu sync.RWMutex
	subs   []subscription
	nextID atomic.Uint64

	closed    atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Coordinator with an empty log and an idle tracker.
func New(cfg Config) *Coordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	roster := cfg.Roster
	if roster == nil {
		roster = agentstatus.DefaultRoster
	}
	metaAgents := cfg.MetaAgents
	if metaAgents == nil {
		metaAgents = DefaultMetaAgents
	}
	activation := cfg.Activation
	if activation == "" {
		activation = ActivateAll
	}

	c := &Coordinator{
		store:      activity.NewStore(cfg.Capacity),
		roster:     roster,
		meta:       make(map[string]struct{}, len(metaAgents)),
		activation: activation,
		logger:     logger.With("component", "coordinator"),
		done:       make(chan struct{}),
	}
	for _, name := range metaAgents {
		c.meta[strings.ToUpper(strings.TrimSpace(name))] = struct{}{}
	}

	opts := []agentstatus.Option{agentstatus.WithOnChange(c.onStatusChange)}
	if cfg.Clock != nil {
		opts = append(opts, agentstatus.WithClock(cfg.Clock))
	}
	c.tracker = agentstatus.NewTracker(cfg.Dwell, opts...)

	return c
}

// Record stores one activity event and, when the event is attributed to a
// worker agent, marks that agent active. Empty agent and status are
// defaulted. Subscribers are notified before Record returns.
func (c *Coordinator) Record(agent, status, action string) activity.Event {
	ev := activity.NewEvent(agent, status, action, time.Time{})

	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	if c.closed.Load() {
		c.logger.Debug("record after close ignored", "agent", ev.Agent, "status", ev.Status)
		return ev
	}

	stored := c.store.Push(ev)
	if c.activates(stored) {
		c.tracker.MarkActive(stored.Agent)
	}

	c.logger.Debug("activity recorded",
		"event_id", stored.ID,
		"agent", stored.Agent,
		"status", stored.Status,
	)

	c.notify(c.Snapshot())
	return stored
}

// activates applies the meta-agent exclusion and the activation policy.
func (c *Coordinator) activates(ev activity.Event) bool {
	if c.IsMetaAgent(ev.Agent) {
		return false
	}
	if c.activation == ActivateResults {
		return ev.Status == activity.StatusSuccess || ev.Status == activity.StatusFailed
	}
	return true
}

// IsMetaAgent reports whether agent is an orchestration identity.
func (c *Coordinator) IsMetaAgent(agent string) bool {
	_, ok := c.meta[strings.ToUpper(strings.TrimSpace(agent))]
	return ok
}

// onStatusChange forwards automatic expiry to subscribers. Transitions to an
// agent happen inside Record, which notifies on its own.
func (c *Coordinator) onStatusChange(current string) {
	if current != agentstatus.None {
		return
	}

	c.dispatchMu.Lock()
	defer c.dispatchMu.Unlock()

	if c.closed.Load() {
		return
	}
	c.logger.Debug("agent status expired")
	c.notify(c.Snapshot())
}

// Snapshot returns the current state without side effects.
func (c *Coordinator) Snapshot() Update {
	current := c.tracker.Current()
	return Update{
		Activity:    c.store.Snapshot(),
		ActiveAgent: current,
		Agents:      c.roster.Badges(current),
	}
}

// Subscribe registers a listener and returns a function that removes it.
// Listeners run in registration order. The returned function is idempotent.
func (c *Coordinator) Subscribe(fn Listener) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	id := c.nextID.Add(1)

	c.subsMu.Lock()
	c.subs = append(c.subs, subscription{id: id, fn: fn})
	c.subsMu.Unlock()

	c.logger.Debug("listener added", "listener_id", id)

	return func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
				c.logger.Debug("listener removed", "listener_id", id)
				return
			}
		}
	}
}

// notify delivers u to every listener. Must be called with dispatchMu held.
func (c *Coordinator) notify(u Update) {
	c.subsMu.RLock()
	targets := make([]subscription, len(c.subs))
	copy(targets, c.subs)
	c.subsMu.RUnlock()

	for _, sub := range targets {
		c.deliver(sub, u.clone())
	}
}

// deliver runs one listener, recovering a panic so the rest still run.
func (c *Coordinator) deliver(sub subscription, u Update) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("listener panicked",
				"listener_id", sub.id,
				"panic", r,
			)
		}
	}()
	sub.fn(u)
}

// Roster returns the configured roster.
func (c *Coordinator) Roster() agentstatus.Roster {
	return c.roster
}

// Capacity returns the activity log bound.
func (c *Coordinator) Capacity() int {
	return c.store.Capacity()
}

// Dwell returns the agent status expiry window.
func (c *Coordinator) Dwell() time.Duration {
	return c.tracker.Dwell()
}

// Close cancels the pending expiry timer, closes watchers and drops all
// listeners. Later Record calls are ignored. Safe to call multiple times.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		c.dispatchMu.Lock()
		c.closed.Store(true)
		c.dispatchMu.Unlock()

		c.tracker.Close()
		close(c.done)

		c.subsMu.Lock()
		c.subs = nil
		c.subsMu.Unlock()

		c.logger.Debug("coordinator closed")
	})
}

// clone gives each listener its own copy of the slices.
func (u Update) clone() Update {
	out := Update{
		Activity:    make([]activity.Event, len(u.Activity)),
		ActiveAgent: u.ActiveAgent,
		Agents:      make([]agentstatus.Badge, len(u.Agents)),
	}
	copy(out.Activity, u.Activity)
	copy(out.Agents, u.Agents)
	return out
}
