// ABOUTME: Tests for the SSE update stream
// ABOUTME: Reads events from a live httptest server and checks snapshot, updates and heartbeats

package dashboard

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/copilot-console/internal/coordinator"
)

type sseReader struct {
	t       *testing.T
	scanner *bufio.Scanner
}

// next returns the event name and data of the next event, skipping comments.
func (r *sseReader) next() (string, string) {
	r.t.Helper()
	var event, data string
	for r.scanner.Scan() {
		line := r.scanner.Text()
		switch {
		case line == "":
			if event != "" {
				return event, data
			}
		case strings.HasPrefix(line, ":"):
			if event == "" {
				return "comment", strings.TrimSpace(line[1:])
			}
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
	r.t.Fatalf("stream ended: %v", r.scanner.Err())
	return "", ""
}

func openStream(t *testing.T, env *testEnv) (*sseReader, *http.Response) {
	t.Helper()
	srv := httptest.NewServer(env.mux)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	return &sseReader{t: t, scanner: bufio.NewScanner(resp.Body)}, resp
}

func decodeUpdate(t *testing.T, data string) coordinator.Update {
	t.Helper()
	var u coordinator.Update
	require.NoError(t, json.Unmarshal([]byte(data), &u))
	return u
}

func TestEvents_SnapshotThenUpdates(t *testing.T) {
	env := newTestEnv(t)
	env.coord.Record("COPILOT", "running", "send reminders")

	stream, resp := openStream(t, env)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	event, data := stream.next()
	require.Equal(t, "update", event)
	first := decodeUpdate(t, data)
	require.Len(t, first.Activity, 1)
	assert.Equal(t, "none", first.ActiveAgent)

	env.coord.Record("REMINDER", "success", "3 reminders sent")
	event, data = stream.next()
	require.Equal(t, "update", event)
	second := decodeUpdate(t, data)
	assert.Equal(t, "REMINDER", second.ActiveAgent)
	assert.Equal(t, "3 reminders sent", second.Activity[0].Action)

	env.clock.Advance(4 * time.Second)
	_, data = stream.next()
	assert.Equal(t, "none", decodeUpdate(t, data).ActiveAgent)
}

func TestEvents_Heartbeat(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) { cfg.Heartbeat = 20 * time.Millisecond })

	stream, _ := openStream(t, env)
	event, _ := stream.next() // initial snapshot
	require.Equal(t, "update", event)

	event, data := stream.next()
	assert.Equal(t, "comment", event)
	assert.Equal(t, "heartbeat", data)
}

func TestEvents_EndsWhenCoordinatorCloses(t *testing.T) {
	env := newTestEnv(t)
	stream, _ := openStream(t, env)
	stream.next()

	env.coord.Close()

	done := make(chan struct{})
	go func() {
		for stream.scanner.Scan() {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after coordinator close")
	}
}
