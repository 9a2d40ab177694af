// ABOUTME: Bounded, newest-first activity log shared by the feed views
// ABOUTME: Evicts the oldest entry once capacity is exceeded, never reorders

package activity

import (
	"container/list"
	"sync"
	"time"
)

// DefaultCapacity is the number of events retained when no capacity is given.
const DefaultCapacity = 10

// Store holds the most recent events in insertion order.
// Uses a doubly-linked list so prepend and eviction are O(1).
type Store struct {
	mu       sync.RWMutex
	events   *list.List // newest at front
	capacity int
	now      func() time.Time
}

// NewStore creates an empty store. A capacity <= 0 selects DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		events:   list.New(),
		capacity: capacity,
		now:      time.Now,
	}
}

// Push records ev as the newest entry and returns the stored copy.
// Missing fields are defaulted; the operation never fails.
func (s *Store) Push(ev Event) Event {
	ev = normalize(ev)

	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.Time.IsZero() {
		ev.Time = s.now()
	}
	s.events.PushFront(ev)
	for s.events.Len() > s.capacity {
		s.events.Remove(s.events.Back())
	}
	return ev
}

// Snapshot returns the retained events, newest first. The returned slice is
// owned by the caller.
func (s *Store) Snapshot() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Event, 0, s.events.Len())
	for e := s.events.Front(); e != nil; e = e.Next() {
		ev, _ := e.Value.(Event)
		out = append(out, ev)
	}
	return out
}

// Len returns the number of retained events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events.Len()
}

// Capacity returns the retention bound.
func (s *Store) Capacity() int {
	return s.capacity
}
