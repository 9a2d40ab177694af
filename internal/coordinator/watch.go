// ABOUTME: Channel-based subscription for streaming consumers such as SSE and the TUI
// ABOUTME: Non-blocking delivery drops updates for slow watchers instead of stalling Record

package coordinator

import (
	"context"
	"sync"
)

// watchBufferSize is the channel buffer for each watcher.
const watchBufferSize = 64

// watcher guards its channel so a send never races with close.
type watcher struct {
	mu     sync.RWMutex
	ch     chan Update
	closed bool
}

// send delivers u unless the watcher is closed or its buffer is full.
func (w *watcher) send(u Update) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return false
	}
	select {
	case w.ch <- u:
		return true
	default:
		return false
	}
}

func (w *watcher) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.ch)
}

// Watch returns a channel that first receives the current snapshot and then
// every subsequent update. The channel is closed when ctx is cancelled or the
// coordinator is closed.
func (c *Coordinator) Watch(ctx context.Context) <-chan Update {
	w := &watcher{ch: make(chan Update, watchBufferSize)}

	if c.closed.Load() {
		w.close()
		return w.ch
	}

	// Hold dispatchMu so no update can slip in between the initial snapshot
	// and the subscription.
	c.dispatchMu.Lock()
	w.send(c.Snapshot())
	unsubscribe := c.Subscribe(func(u Update) {
		if !w.send(u) {
			c.logger.Debug("dropped update for slow watcher")
		}
	})
	c.dispatchMu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-c.done:
		}
		unsubscribe()
		w.close()
	}()

	return w.ch
}
