// ABOUTME: View models for dashboard templates and markdown rendering of agent replies
// ABOUTME: Converts coordinator snapshots and chat transcripts into template-ready rows

package dashboard

import (
	"bytes"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/2389/copilot-console/internal/activity"
	"github.com/2389/copilot-console/internal/agentstatus"
	"github.com/2389/copilot-console/internal/backend"
	"github.com/2389/copilot-console/internal/coordinator"
	"github.com/2389/copilot-console/internal/copilot"
)

// Raw HTML in replies is dropped; only markdown is rendered.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Linkify, extension.Table),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

type pageData struct {
	Title       string
	Activity    []activityRow
	Agents      agentsView
	Chat        []chatRow
	AuthEnabled bool
	// Locked pages render without state.
	Locked        bool
	RefreshMillis int64
}

type activityRow struct {
	Icon   string
	Agent  string
	Status string
	Action string
	Clock  string
}

type agentsView struct {
	ActiveAgent string
	Idle        bool
	Badges      []agentstatus.Badge
}

type chatRow struct {
	Role  string
	Agent string
	Body  template.HTML
	Clock string
}

type customersView struct {
	Rows    []customerRow
	Total   int
	Updated string
	Error   string
}

type customerRow struct {
	backend.Customer
	Badge string
}

func customersViewFrom(list *backend.CustomerList) customersView {
	rows := make([]customerRow, 0, len(list.Customers))
	for _, c := range list.Customers {
		rows = append(rows, customerRow{Customer: c, Badge: statusBadge(c.Status)})
	}
	return customersView{Rows: rows, Total: list.Total, Updated: list.Updated}
}

// statusBadge picks the badge colour class for a policy status.
func statusBadge(status string) string {
	switch status {
	case backend.StatusActive:
		return "ok"
	case backend.StatusExpired:
		return "bad"
	default:
		return "warn"
	}
}

func activityRows(events []activity.Event) []activityRow {
	rows := make([]activityRow, 0, len(events))
	for _, ev := range events {
		rows = append(rows, activityRow{
			Icon:   ev.Status.Icon(),
			Agent:  ev.Agent,
			Status: string(ev.Status),
			Action: ev.Action,
			Clock:  ev.Clock(),
		})
	}
	return rows
}

func agentsViewFrom(u coordinator.Update) agentsView {
	return agentsView{
		ActiveAgent: u.ActiveAgent,
		Idle:        u.ActiveAgent == agentstatus.None,
		Badges:      u.Agents,
	}
}

func chatRows(msgs []copilot.Message) []chatRow {
	rows := make([]chatRow, 0, len(msgs))
	for _, m := range msgs {
		body := template.HTML(template.HTMLEscapeString(m.Content))
		if m.Role != copilot.RoleUser {
			body = renderMarkdown(m.Content)
		}
		rows = append(rows, chatRow{
			Role:  string(m.Role),
			Agent: m.Agent,
			Body:  body,
			Clock: m.Clock(),
		})
	}
	return rows
}

// renderMarkdown converts an agent reply to HTML, falling back to escaped text.
func renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}
