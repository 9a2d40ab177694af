// ABOUTME: Time window that remembers recently submitted command keys
// ABOUTME: Bounded by size and TTL, with a background sweeper for expired keys

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

const (
	// minSweepInterval keeps very short windows from spinning the sweeper.
	minSweepInterval = time.Second
	// maxSweepInterval bounds how long expired keys linger in memory.
	maxSweepInterval = time.Minute
)

type entry struct {
	key    string
	seenAt time.Time
}

// Window remembers keys for ttl. Keys are kept in the order they were last
// seen, so the oldest key is always at the front.
type Window struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List
	ttl     time.Duration
	maxKeys int
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewWindow creates a window and starts its sweeper. Call Close to stop it.
// A maxKeys <= 0 means unbounded.
func NewWindow(ttl time.Duration, maxKeys int) *Window {
	return newWindow(ttl, maxKeys, time.Now)
}

func newWindow(ttl time.Duration, maxKeys int, now func() time.Time) *Window {
	w := &Window{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		ttl:     ttl,
		maxKeys: maxKeys,
		now:     now,
		stop:    make(chan struct{}),
	}
	go w.sweepLoop(sweepInterval(ttl))
	return w
}

func sweepInterval(ttl time.Duration) time.Duration {
	switch {
	case ttl < minSweepInterval:
		return minSweepInterval
	case ttl > maxSweepInterval:
		return maxSweepInterval
	default:
		return ttl
	}
}

// Seen reports whether key was already seen inside the window, remembering it
// if not. Check and remember happen under one lock so two concurrent
// submissions of the same key cannot both pass.
func (w *Window) Seen(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	if el, ok := w.entries[key]; ok {
		e, _ := el.Value.(*entry)
		if now.Sub(e.seenAt) < w.ttl {
			return true
		}
		e.seenAt = now
		w.order.MoveToBack(el)
		return false
	}

	if w.maxKeys > 0 && w.order.Len() >= w.maxKeys {
		w.removeLocked(w.order.Front())
	}
	w.entries[key] = w.order.PushBack(&entry{key: key, seenAt: now})
	return false
}

// Forget drops key so the next submission with it is accepted.
func (w *Window) Forget(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if el, ok := w.entries[key]; ok {
		w.removeLocked(el)
	}
}

// Len returns the number of remembered keys, expired or not.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.order.Len()
}

// removeLocked must be called with mu held.
func (w *Window) removeLocked(el *list.Element) {
	if el == nil {
		return
	}
	e, _ := w.order.Remove(el).(*entry)
	if e != nil {
		delete(w.entries, e.key)
	}
}

func (w *Window) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep()
		case <-w.stop:
			return
		}
	}
}

// sweep drops expired keys from the front until it reaches a live one.
func (w *Window) sweep() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	for el := w.order.Front(); el != nil; el = w.order.Front() {
		e, _ := el.Value.(*entry)
		if now.Sub(e.seenAt) < w.ttl {
			return
		}
		w.removeLocked(el)
	}
}

// Close stops the sweeper. It is safe to call multiple times.
func (w *Window) Close() {
	w.stopOnce.Do(func() { close(w.stop) })
}
