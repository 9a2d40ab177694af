// ABOUTME: Tests for the command dedupe window
// ABOUTME: Validates TTL expiry, size bound, forget, sweeping and concurrent submissions

package dedupe

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeNow struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeNow) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeNow) Add(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func newTestWindow(t *testing.T, ttl time.Duration, maxKeys int) (*Window, *fakeNow) {
	t.Helper()
	clock := &fakeNow{t: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)}
	w := newWindow(ttl, maxKeys, clock.Now)
	t.Cleanup(w.Close)
	return w, clock
}

func TestWindow_FirstSubmissionIsNew(t *testing.T) {
	w, _ := newTestWindow(t, 10*time.Second, 100)
	assert.False(t, w.Seen("health quote CUST0001"))
}

func TestWindow_RepeatInsideWindowIsDuplicate(t *testing.T) {
	w, clock := newTestWindow(t, 10*time.Second, 100)

	assert.False(t, w.Seen("send reminders"))
	clock.Add(9 * time.Second)
	assert.True(t, w.Seen("send reminders"))
}

func TestWindow_RepeatAfterWindowIsNew(t *testing.T) {
	w, clock := newTestWindow(t, 10*time.Second, 100)

	assert.False(t, w.Seen("policy POL1001"))
	clock.Add(10 * time.Second)
	assert.False(t, w.Seen("policy POL1001"))
	assert.True(t, w.Seen("policy POL1001"), "re-remembered after expiry")
}

func TestWindow_EvictsOldestAtCapacity(t *testing.T) {
	w, clock := newTestWindow(t, time.Minute, 3)

	for i := 0; i < 3; i++ {
		w.Seen(fmt.Sprintf("k%d", i))
		clock.Add(time.Second)
	}
	w.Seen("k3")

	assert.Equal(t, 3, w.Len())
	assert.False(t, w.Seen("k0"), "k0 was evicted")
	assert.True(t, w.Seen("k3"))
}

func TestWindow_Forget(t *testing.T) {
	w, _ := newTestWindow(t, time.Minute, 100)

	w.Seen("update CUST0001 phone 9876543210")
	w.Forget("update CUST0001 phone 9876543210")
	w.Forget("never-seen")

	assert.False(t, w.Seen("update CUST0001 phone 9876543210"))
}

func TestWindow_SweepDropsExpired(t *testing.T) {
	w, clock := newTestWindow(t, 5*time.Second, 100)

	w.Seen("old-1")
	w.Seen("old-2")
	clock.Add(6 * time.Second)
	w.Seen("fresh")

	w.sweep()
	assert.Equal(t, 1, w.Len())
	assert.True(t, w.Seen("fresh"))
}

func TestWindow_ConcurrentSameKeyAcceptsOnce(t *testing.T) {
	w, _ := newTestWindow(t, time.Minute, 100)

	var accepted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !w.Seen("same-key") {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), accepted.Load())
}

func TestWindow_CloseIsIdempotent(t *testing.T) {
	w := NewWindow(time.Second, 10)
	w.Close()
	w.Close()
}

func TestSweepInterval(t *testing.T) {
	assert.Equal(t, minSweepInterval, sweepInterval(10*time.Millisecond))
	assert.Equal(t, 10*time.Second, sweepInterval(10*time.Second))
	assert.Equal(t, maxSweepInterval, sweepInterval(time.Hour))
}
