// ABOUTME: Tests for the bounded activity store and event defaulting
// ABOUTME: Covers capacity eviction, ordering, status coercion and read idempotence

package activity

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
	}{
		{"running", StatusRunning},
		{"success", StatusSuccess},
		{"failed", StatusFailed},
		{" FAILED ", StatusFailed},
		{"Running", StatusRunning},
		{"", StatusSuccess},
		{"error", StatusSuccess},
		{"pending", StatusSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseStatus(tt.raw))
		})
	}
}

func TestNewEvent_DefaultsEmptyFields(t *testing.T) {
	ev := NewEvent("", "", "", time.Time{})

	assert.Equal(t, AgentSystem, ev.Agent)
	assert.Equal(t, StatusSuccess, ev.Status)
	assert.Equal(t, "", ev.Action)
	assert.NotEmpty(t, ev.ID)
	assert.True(t, ev.Time.IsZero(), "time is stamped by the store, not the constructor")
}

func TestNewEvent_TrimsAgent(t *testing.T) {
	ev := NewEvent("  QUOTE ", "running", "cmd received", time.Time{})
	assert.Equal(t, "QUOTE", ev.Agent)
	assert.Equal(t, StatusRunning, ev.Status)

	blank := NewEvent("   ", "running", "", time.Time{})
	assert.Equal(t, AgentSystem, blank.Agent)
}

func TestStore_PushStampsTime(t *testing.T) {
	s := NewStore(10)
	fixed := time.Date(2026, 3, 1, 14, 5, 9, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	stored := s.Push(NewEvent("CRM", "success", "updated", time.Time{}))
	assert.Equal(t, fixed, stored.Time)
	assert.Equal(t, "2:05:09 PM", stored.Clock())

	supplied := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	kept := s.Push(NewEvent("CRM", "success", "again", supplied))
	assert.Equal(t, supplied, kept.Time)
}

func TestStore_PushCoercesInvalidStatus(t *testing.T) {
	s := NewStore(10)

	stored := s.Push(Event{Agent: "POLICY", Status: Status("exploded"), Action: "x"})
	assert.Equal(t, StatusSuccess, stored.Status)

	for _, ev := range s.Snapshot() {
		assert.True(t, ev.Status.Valid())
	}
}

func TestStore_NewestFirst(t *testing.T) {
	s := NewStore(10)
	s.Push(NewEvent("A", "running", "first", time.Time{}))
	s.Push(NewEvent("B", "running", "second", time.Time{}))
	s.Push(NewEvent("C", "running", "third", time.Time{}))

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "third", snap[0].Action)
	assert.Equal(t, "second", snap[1].Action)
	assert.Equal(t, "first", snap[2].Action)
}

func TestStore_EvictsOldestBeyondCapacity(t *testing.T) {
	s := NewStore(10)
	agents := []string{"A", "B", "A", "C", "B", "A", "C", "C", "B", "A", "B", "C"}

	for i, agent := range agents {
		s.Push(NewEvent(agent, "success", fmt.Sprintf("event-%d", i), time.Time{}))
		assert.LessOrEqual(t, s.Len(), 10)
	}

	snap := s.Snapshot()
	require.Len(t, snap, 10)

	// Last ten in reverse submission order; event-0 and event-1 evicted.
	for i, ev := range snap {
		idx := len(agents) - 1 - i
		assert.Equal(t, fmt.Sprintf("event-%d", idx), ev.Action)
		assert.Equal(t, agents[idx], ev.Agent)
	}
}

func TestStore_NoDeduplication(t *testing.T) {
	s := NewStore(10)
	s.Push(NewEvent("QUOTE", "success", "same", time.Time{}))
	s.Push(NewEvent("QUOTE", "success", "same", time.Time{}))

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.NotEqual(t, snap[0].ID, snap[1].ID)
}

func TestStore_SnapshotIsIdempotentAndDetached(t *testing.T) {
	s := NewStore(3)
	s.Push(NewEvent("A", "running", "one", time.Time{}))
	s.Push(NewEvent("B", "failed", "two", time.Time{}))

	first := s.Snapshot()
	second := s.Snapshot()
	assert.Equal(t, first, second)

	first[0].Action = "mutated"
	assert.Equal(t, "two", s.Snapshot()[0].Action)
}

func TestNewStore_DefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, NewStore(0).Capacity())
	assert.Equal(t, DefaultCapacity, NewStore(-3).Capacity())
	assert.Equal(t, 25, NewStore(25).Capacity())
}

func TestStatus_Icon(t *testing.T) {
	assert.Equal(t, "🟢", StatusSuccess.Icon())
	assert.Equal(t, "🔵", StatusRunning.Icon())
	assert.Equal(t, "🔴", StatusFailed.Icon())
	assert.Equal(t, "⚡", Status("other").Icon())
}
