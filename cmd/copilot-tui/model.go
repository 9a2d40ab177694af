// ABOUTME: bubbletea model for the console TUI
// ABOUTME: Renders the agent roster strip, the activity feed and the latest reply

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389/copilot-console/internal/activity"
	"github.com/2389/copilot-console/internal/agentstatus"
	"github.com/2389/copilot-console/internal/coordinator"
	"github.com/2389/copilot-console/internal/copilot"
)

type theme struct {
	header   lipgloss.Style
	panel    lipgloss.Style
	active   lipgloss.Style
	idle     lipgloss.Style
	unknown  lipgloss.Style
	muted    lipgloss.Style
	running  lipgloss.Style
	success  lipgloss.Style
	failed   lipgloss.Style
	errorMsg lipgloss.Style
	agent    lipgloss.Style
}

func newTheme() theme {
	green := lipgloss.Color("#05ffa1")
	blue := lipgloss.Color("#01cdfe")
	red := lipgloss.Color("#ff5f87")
	yellow := lipgloss.Color("#ffd166")
	muted := lipgloss.Color("#9ca3d8")

	return theme{
		header: lipgloss.NewStyle().Bold(true).Foreground(blue),
		panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1),
		active:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#120924")).Background(green).Padding(0, 1),
		idle:     lipgloss.NewStyle().Foreground(muted).Padding(0, 1),
		unknown:  lipgloss.NewStyle().Foreground(yellow).Padding(0, 1),
		muted:    lipgloss.NewStyle().Foreground(muted),
		running:  lipgloss.NewStyle().Foreground(yellow),
		success:  lipgloss.NewStyle().Foreground(green),
		failed:   lipgloss.NewStyle().Foreground(red),
		errorMsg: lipgloss.NewStyle().Foreground(red).Bold(true),
		agent:    lipgloss.NewStyle().Foreground(blue).Bold(true),
	}
}

type model struct {
	api     *apiClient
	updates <-chan tea.Msg

	input   textinput.Model
	feed    viewport.Model
	spinner spinner.Model
	theme   theme

	state     coordinator.Update
	connected bool
	streamErr error
	inflight  bool
	lastReply *copilot.Reply
	sendErr   error

	width  int
	height int

	md *glamour.TermRenderer
}

func newModel(api *apiClient, updates <-chan tea.Msg) model {
	input := textinput.New()
	input.Prompt = "❯ "
	input.CharLimit = 2000
	input.Placeholder = "Generate quotes for 5 customers"
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#05ffa1"))

	return model{
		api:     api,
		updates: updates,
		input:   input,
		feed:    viewport.New(0, 0),
		spinner: sp,
		theme:   newTheme(),
		state:   coordinator.Update{ActiveAgent: agentstatus.None},
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitMsg(m.updates))
}

// waitMsg delivers the next message from ch.
func waitMsg(ch <-chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (m model) sendCmd(text string) tea.Cmd {
	return func() tea.Msg {
		reply, err := m.api.send(context.Background(), text)
		return replyMsg{reply: reply, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
	case updateMsg:
		m.state = coordinator.Update(msg)
		m.feed.SetContent(m.renderFeed())
		cmds = append(cmds, waitMsg(m.updates))
	case streamStatusMsg:
		m.connected = msg.connected
		m.streamErr = msg.err
		cmds = append(cmds, waitMsg(m.updates))
	case replyMsg:
		m.inflight = false
		m.lastReply = msg.reply
		m.sendErr = msg.err
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.inflight {
				return m, nil
			}
			m.input.Reset()
			m.inflight = true
			m.sendErr = nil
			return m, m.sendCmd(text)
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.feed, cmd = m.feed.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

const (
	maxReplyLines = 5
	// header, roster panel, feed border, reply agent line and body, input
	chromeHeight = 1 + 3 + 2 + 1 + maxReplyLines + 1
	defaultWrap  = 80
)

func (m *model) resize() {
	m.feed.Width = max(m.width-4, 10)
	m.feed.Height = max(m.height-chromeHeight, 3)
	m.input.Width = max(m.width-4, 10)
	m.feed.SetContent(m.renderFeed())
	m.md = newMarkdownRenderer(max(m.width-2, 20))
}

func newMarkdownRenderer(width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}

// renderMarkdown renders an agent reply, capped at maxReplyLines.
func (m model) renderMarkdown(content string) string {
	md := m.md
	if md == nil {
		md = newMarkdownRenderer(defaultWrap)
	}
	out := content
	if md != nil {
		if rendered, err := md.Render(content); err == nil {
			out = strings.Trim(rendered, "\n")
		}
	}
	lines := strings.Split(out, "\n")
	if len(lines) > maxReplyLines {
		lines = append(lines[:maxReplyLines-1], m.theme.muted.Render("…"))
	}
	return strings.Join(lines, "\n")
}

func (m model) View() string {
	var b strings.Builder

	status := m.theme.success.Render("● live")
	if !m.connected {
		status = m.theme.failed.Render("○ disconnected")
		if m.streamErr != nil {
			status += m.theme.muted.Render(" " + m.streamErr.Error())
		}
	}
	b.WriteString(m.theme.header.Render("Insurance Copilot") + "  " + status + "\n")
	b.WriteString(m.theme.panel.Render(m.renderRoster()) + "\n")
	b.WriteString(m.theme.panel.Render(m.feed.View()) + "\n")
	b.WriteString(m.renderReply() + "\n")
	b.WriteString(m.input.View())

	return b.String()
}

func (m model) renderRoster() string {
	label := "All agents idle"
	if m.state.ActiveAgent != agentstatus.None {
		label = "Active: " + m.theme.agent.Render(m.state.ActiveAgent)
	}

	badges := make([]string, 0, len(m.state.Agents))
	for _, b := range m.state.Agents {
		switch {
		case b.Active && !b.Known:
			badges = append(badges, m.theme.unknown.Render("● "+b.Agent))
		case b.Active:
			badges = append(badges, m.theme.active.Render(b.Agent))
		default:
			badges = append(badges, m.theme.idle.Render(b.Agent))
		}
	}
	return label + "  " + lipgloss.JoinHorizontal(lipgloss.Top, badges...)
}

func (m model) renderFeed() string {
	if len(m.state.Activity) == 0 {
		return m.theme.muted.Render("No activity yet")
	}

	lines := make([]string, 0, len(m.state.Activity))
	for _, ev := range m.state.Activity {
		lines = append(lines, fmt.Sprintf("%s %s %s %s",
			m.theme.muted.Render(fmt.Sprintf("%8s", ev.Clock())),
			m.statusStyle(ev.Status).Render(ev.Status.Icon()),
			m.theme.agent.Render(ev.Agent),
			ev.Action,
		))
	}
	return strings.Join(lines, "\n")
}

func (m model) statusStyle(s activity.Status) lipgloss.Style {
	switch s {
	case activity.StatusRunning:
		return m.theme.running
	case activity.StatusFailed:
		return m.theme.failed
	default:
		return m.theme.success
	}
}

func (m model) renderReply() string {
	switch {
	case m.inflight:
		return m.spinner.View() + " " + copilot.ProcessingAction + "..."
	case m.sendErr != nil:
		return m.theme.errorMsg.Render("❌ " + m.sendErr.Error())
	case m.lastReply != nil:
		msg := m.lastReply.Message
		if msg.Role == copilot.RoleError {
			return m.theme.errorMsg.Render(msg.Content)
		}
		return m.theme.agent.Render("["+msg.Agent+"]") + "\n" + m.renderMarkdown(msg.Content)
	default:
		return m.theme.muted.Render("Enter a command, esc to quit")
	}
}
