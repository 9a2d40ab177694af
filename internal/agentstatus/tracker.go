// ABOUTME: Tracks the single currently active agent with automatic expiry
// ABOUTME: Marking a new agent supersedes the previous one and restarts the dwell timer

package agentstatus

import (
	"strings"
	"sync"
	"time"
)

// None is reported by Current when no agent is active.
const None = "none"

// DefaultDwell is how long an agent stays active after its last mark.
const DefaultDwell = 4 * time.Second

// Timer is a scheduled callback that can be cancelled before it fires.
type Timer interface {
	Stop() bool
}

// Clock schedules deferred callbacks. The default uses time.AfterFunc.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces the clock used for expiry timers.
func WithClock(c Clock) Option {
	return func(t *Tracker) {
		if c != nil {
			t.clock = c
		}
	}
}

// WithOnChange registers a callback invoked after every transition between
// agents, including the automatic transition to None. The callback runs
// without the tracker lock held and receives the new current value.
func WithOnChange(fn func(current string)) Option {
	return func(t *Tracker) {
		t.onChange = fn
	}
}

// Tracker holds at most one active agent. The state machine is
// Idle -> Active(a) -> Active(b) ... -> Idle, with Idle reached only by expiry.
type Tracker struct {
	mu       sync.Mutex
	active   string
	timer    Timer
	gen      uint64 // bumped on every mark; stale timers compare against it
	dwell    time.Duration
	clock    Clock
	onChange func(current string)
	closed   bool
}

// NewTracker creates an idle tracker. A dwell <= 0 selects DefaultDwell.
func NewTracker(dwell time.Duration, opts ...Option) *Tracker {
	if dwell <= 0 {
		dwell = DefaultDwell
	}
	t := &Tracker{
		dwell: dwell,
		clock: realClock{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// MarkActive makes agent the current agent and (re)starts its expiry window.
// Any pending expiry for the previous mark is cancelled. Blank agents and
// calls after Close are ignored.
func (t *Tracker) MarkActive(agent string) {
	agent = strings.TrimSpace(agent)
	if agent == "" {
		return
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}

	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	changed := t.active != agent
	t.active = agent
	t.timer = t.clock.AfterFunc(t.dwell, func() { t.expire(gen) })
	notify := t.onChange
	t.mu.Unlock()

	if changed && notify != nil {
		notify(agent)
	}
}

// expire clears the active agent if no mark has happened since gen.
// Stop may lose the race against a timer that already fired, so the
// generation check is what guarantees a superseded timer is a no-op.
func (t *Tracker) expire(gen uint64) {
	t.mu.Lock()
	if t.closed || gen != t.gen || t.active == "" {
		t.mu.Unlock()
		return
	}
	t.active = ""
	t.timer = nil
	notify := t.onChange
	t.mu.Unlock()

	if notify != nil {
		notify(None)
	}
}

// Current returns the active agent, or None.
func (t *Tracker) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == "" {
		return None
	}
	return t.active
}

// Dwell returns the configured expiry window.
func (t *Tracker) Dwell() time.Duration {
	return t.dwell
}

// Close cancels any pending expiry. The tracker keeps reporting its last
// state but ignores further marks. It is safe to call multiple times.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.closed = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
