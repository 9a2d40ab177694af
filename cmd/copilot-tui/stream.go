// ABOUTME: SSE subscription and command submission against the console API
// ABOUTME: Reconnects with backoff and forwards each state update as a tea message

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/2389/copilot-console/internal/coordinator"
	"github.com/2389/copilot-console/internal/copilot"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

type (
	updateMsg coordinator.Update

	streamStatusMsg struct {
		connected bool
		err       error
	}

	replyMsg struct {
		reply *copilot.Reply
		err   error
	}
)

type apiClient struct {
	server string
	token  string
	http   *http.Client
}

func newAPIClient(server, token string) *apiClient {
	return &apiClient{server: server, token: token, http: &http.Client{}}
}

// send posts a command. Replies sent with an error status still decode.
func (c *apiClient) send(ctx context.Context, text string) (*copilot.Reply, error) {
	body, err := json.Marshal(copilot.Command{Text: text, RequestID: uuid.NewString()})
	if err != nil {
		return nil, fmt.Errorf("encoding command: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.server+"/api/command", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending command: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading reply: %w", err)
	}

	var reply copilot.Reply
	decodeErr := json.Unmarshal(data, &reply)
	if resp.StatusCode/100 == 2 {
		if decodeErr != nil {
			return nil, fmt.Errorf("decoding reply: %w", decodeErr)
		}
		return &reply, nil
	}

	if decodeErr == nil && reply.Message.ID != "" {
		return &reply, nil
	}
	msg := reply.Error
	if msg == "" {
		msg = strings.TrimSpace(string(data))
	}
	return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, msg)
}

func (c *apiClient) eventsURL() string {
	u := c.server + "/api/events"
	if c.token != "" {
		u += "?access_token=" + url.QueryEscape(c.token)
	}
	return u
}

// runStream keeps an SSE subscription open until ctx ends.
func runStream(ctx context.Context, c *apiClient, out chan<- tea.Msg) {
	backoff := initialBackoff
	for {
		err := c.subscribe(ctx, func() {
			backoff = initialBackoff
			emit(ctx, out, streamStatusMsg{connected: true})
		}, func(u coordinator.Update) {
			emit(ctx, out, updateMsg(u))
		})
		if ctx.Err() != nil {
			return
		}
		emit(ctx, out, streamStatusMsg{err: err})

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func emit(ctx context.Context, out chan<- tea.Msg, msg tea.Msg) {
	select {
	case out <- msg:
	case <-ctx.Done():
	}
}

func (c *apiClient) subscribe(ctx context.Context, onConnect func(), onUpdate func(coordinator.Update)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.eventsURL(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	onConnect()

	err = readSSE(resp.Body, func(event, data string) error {
		if event != "update" {
			return nil
		}
		var u coordinator.Update
		if err := json.Unmarshal([]byte(data), &u); err != nil {
			return fmt.Errorf("parsing update: %w", err)
		}
		onUpdate(u)
		return nil
	})
	if err != nil {
		return err
	}
	return fmt.Errorf("stream closed")
}

// readSSE calls fn for each complete event in r. Comment lines are skipped.
func readSSE(r io.Reader, fn func(event, data string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var eventType string
	var dataLines []string

	for scanner.Scan() {
		line := scanner.Text()

		// Empty line signals end of event
		if line == "" {
			if eventType != "" && len(dataLines) > 0 {
				if err := fn(eventType, strings.Join(dataLines, "\n")); err != nil {
					return err
				}
			}
			eventType = ""
			dataLines = nil
			continue
		}

		switch {
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}

	return scanner.Err()
}
