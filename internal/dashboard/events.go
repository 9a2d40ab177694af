// ABOUTME: Server-sent event stream of coordinator updates
// ABOUTME: Sends the current snapshot, then every change, with periodic heartbeats

package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// handleEvents streams coordinator updates as "update" events until the
// client disconnects or the coordinator closes.
func (d *Dashboard) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		d.logger.Error("streaming not supported")
		d.sendJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	updates := d.state.Watch(ctx)

	heartbeat := time.NewTicker(d.heartbeat)
	defer heartbeat.Stop()

	d.logger.Debug("event stream opened", "remote_addr", r.RemoteAddr)
	defer d.logger.Debug("event stream closed", "remote_addr", r.RemoteAddr)

	for {
		select {
		case <-ctx.Done():
			return

		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()

		case u, ok := <-updates:
			if !ok {
				return
			}
			d.writeSSEEvent(w, "update", u)
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes a single SSE event to the response writer.
func (d *Dashboard) writeSSEEvent(w http.ResponseWriter, event string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		d.logger.Error("failed to marshal SSE data", "error", err)
		return
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", dataJSON)
}
