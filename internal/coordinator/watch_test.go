// ABOUTME: Tests for channel-based coordinator watchers
// ABOUTME: Covers initial snapshot, streaming updates, context cancel and close

package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Update) Update {
	t.Helper()
	select {
	case u, ok := <-ch:
		require.True(t, ok, "channel closed unexpectedly")
		return u
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for update")
		return Update{}
	}
}

func TestWatch_StartsWithSnapshot(t *testing.T) {
	c, _ := newTestCoordinator(t)
	c.Record("QUOTE", "success", "before watch")

	ch := c.Watch(t.Context())

	first := receive(t, ch)
	require.Len(t, first.Activity, 1)
	assert.Equal(t, "before watch", first.Activity[0].Action)
}

func TestWatch_StreamsUpdates(t *testing.T) {
	c, clock := newTestCoordinator(t)
	ch := c.Watch(t.Context())
	receive(t, ch) // initial

	c.Record("CRM", "success", "phone updated")
	u := receive(t, ch)
	assert.Equal(t, "CRM", u.ActiveAgent)

	clock.Advance(4 * time.Second)
	u = receive(t, ch)
	assert.Equal(t, "none", u.ActiveAgent)
}

func TestWatch_ClosedOnContextCancel(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx, cancel := context.WithCancel(t.Context())

	ch := c.Watch(ctx)
	receive(t, ch)
	cancel()

	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	// Recording after the watcher is gone must not panic.
	assert.NotPanics(t, func() { c.Record("QUOTE", "success", "") })
}

func TestWatch_ClosedOnCoordinatorClose(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ch := c.Watch(t.Context())
	receive(t, ch)

	c.Close()

	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestWatch_AfterCloseReturnsClosedChannel(t *testing.T) {
	c, _ := newTestCoordinator(t)
	c.Close()

	_, ok := <-c.Watch(t.Context())
	assert.False(t, ok)
}

func TestWatch_SlowWatcherDoesNotBlockRecord(t *testing.T) {
	c, _ := newTestCoordinator(t)
	_ = c.Watch(t.Context()) // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < watchBufferSize*2; i++ {
			c.Record("QUOTE", "success", "")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a slow watcher")
	}
}
