// Package tui provides the Bubble Tea study timer interface.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/model"
	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/timer"
)

const pulseInterval = 500 * time.Millisecond

// Timers is the registry surface the screen drives.
type Timers interface {
	Toggle(sessionID string)
	Clear(sessionID string)
	Get(sessionID string) (timer.Timer, bool)
}

// Completer runs the session completion workflow.
type Completer interface {
	Complete(ctx context.Context, sessionID string) (model.CompletedSession, error)
}

type updateMsg timer.Update

type eventMsg timer.Event

type pulseMsg struct{}

type completedMsg struct {
	sessionID string
	session   model.CompletedSession
	err       error
}

// Model implements the Bubble Tea timer UI.
type Model struct {
	timers    Timers
	completer Completer
	sessions  []model.PlanSession
	updates   <-chan timer.Update
	events    <-chan timer.Event
	logger    *slog.Logger

	keys KeyMap
	help help.Model
	bar  progress.Model

	width  int
	height int

	selected int
	pulse    bool
	notice   string
	pending  map[string]bool
}

// NewModel constructs the timer screen. completer, updates and events may be
// nil.
func NewModel(timers Timers, sessions []model.PlanSession, completer Completer, updates <-chan timer.Update, events <-chan timer.Event, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	return &Model{
		timers:    timers,
		completer: completer,
		sessions:  sessions,
		updates:   updates,
		events:    events,
		logger:    logger,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage(), progress.WithWidth(16)),
		pending:   map[string]bool{},
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), waitForEvent(m.events), pulseCmd())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case updateMsg:
		return m, waitForUpdate(m.updates)
	case eventMsg:
		m.handleEvent(timer.Event(msg))
		return m, waitForEvent(m.events)
	case pulseMsg:
		m.pulse = !m.pulse
		return m, pulseCmd()
	case completedMsg:
		delete(m.pending, msg.sessionID)
		if msg.err != nil {
			m.logger.Warn("session completion failed", "session_id", msg.sessionID, "error", msg.err)
			m.notice = fmt.Sprintf("Could not complete %s: %v", m.label(msg.sessionID), msg.err)
			return m, nil
		}
		m.notice = fmt.Sprintf("Completed %s with %s studied", m.label(msg.sessionID), formatSeconds(msg.session.StudiedSeconds))
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.sessions)-1 {
			m.selected++
		}
	case key.Matches(msg, m.keys.Toggle):
		if id, ok := m.current(); ok && !m.pending[id] {
			m.notice = ""
			m.timers.Toggle(id)
		}
	case key.Matches(msg, m.keys.Reset):
		id, ok := m.current()
		if !ok {
			return nil
		}
		t, exists := m.timers.Get(id)
		switch {
		case !exists || t.Blank():
			m.notice = "Nothing to reset."
		case t.Running:
			m.notice = "Pause the timer before resetting it."
		default:
			m.timers.Clear(id)
			m.notice = fmt.Sprintf("Reset %s.", m.label(id))
		}
	case key.Matches(msg, m.keys.Complete):
		return m.complete()
	}
	return nil
}

func (m *Model) complete() tea.Cmd {
	id, ok := m.current()
	if !ok || m.pending[id] {
		return nil
	}
	if m.completer == nil {
		m.notice = "Session completion is not configured."
		return nil
	}
	if _, exists := m.timers.Get(id); !exists {
		m.notice = "Start the timer before completing the session."
		return nil
	}
	m.pending[id] = true
	m.notice = fmt.Sprintf("Completing %s…", m.label(id))
	completer := m.completer
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		cs, err := completer.Complete(ctx, id)
		return completedMsg{sessionID: id, session: cs, err: err}
	}
}

func (m *Model) handleEvent(ev timer.Event) {
	if ev.Type != timer.EventPomodoro {
		return
	}
	if ev.Crossed > 1 {
		m.notice = fmt.Sprintf("%d pomodoros completed for %s (total %d). Take a break!", ev.Crossed, m.label(ev.SessionID), ev.Pomodoros)
		return
	}
	m.notice = fmt.Sprintf("Pomodoro %d completed for %s. Take a break!", ev.Pomodoros, m.label(ev.SessionID))
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Study timers"))
	b.WriteString("\n\n")
	if len(m.sessions) == 0 {
		b.WriteString(mutedStyle.Render("No sessions. Pass session ids or set plan.path in the config."))
		b.WriteString("\n")
	}
	labelWidth := m.labelWidth()
	for i, s := range m.sessions {
		t, ok := m.timers.Get(s.ID)
		if !ok {
			t = timer.Timer{SessionID: s.ID}
		}
		b.WriteString(renderRow(rowData{
			session:  s,
			timer:    t,
			selected: i == m.selected,
			pulse:    m.pulse,
			pending:  m.pending[s.ID],
		}, labelWidth, m.bar))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if footer := m.renderFooter(); footer != "" {
		b.WriteString(footer)
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderFooter() string {
	if m.notice == "" {
		return ""
	}
	return noticeStyle.Render(m.notice)
}

func (m *Model) labelWidth() int {
	width := 12
	for _, s := range m.sessions {
		if w := lipgloss.Width(s.Label()); w > width {
			width = w
		}
	}
	if m.width > 0 {
		if limit := m.width - fixedColumnsWidth; width > limit {
			width = limit
		}
	}
	if width < 8 {
		width = 8
	}
	return width
}

func (m *Model) current() (string, bool) {
	if m.selected < 0 || m.selected >= len(m.sessions) {
		return "", false
	}
	return m.sessions[m.selected].ID, true
}

func (m *Model) label(sessionID string) string {
	for _, s := range m.sessions {
		if s.ID == sessionID {
			return s.Label()
		}
	}
	return sessionID
}

func waitForUpdate(ch <-chan timer.Update) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return nil
		}
		return updateMsg(u)
	}
}

func waitForEvent(ch <-chan timer.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

func pulseCmd() tea.Cmd {
	return tea.Tick(pulseInterval, func(time.Time) tea.Msg {
		return pulseMsg{}
	})
}

func formatSeconds(seconds int64) string {
	return (time.Duration(seconds) * time.Second).String()
}
