// Package ui is the terminal notification inbox. It is the hosting screen
// for unread polling: focus and blur events start and stop the poller.
package ui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"smartboard-client/internal/model"
	"smartboard-client/internal/nav"
	"smartboard-client/internal/notify"
)

type Engine interface {
	Refresh(ctx context.Context) error
	MarkRead(ctx context.Context, id model.ID) error
	MarkAllRead(ctx context.Context) error
	State() notify.State
}

type Focuser interface {
	SetFocused(bool)
}

// StateMsg delivers a new engine state; forward engine.Subscribe into the
// program with it.
type StateMsg notify.State

// OpenMsg reports the screen a selected notification deep-links to. Err is
// a failed read mark; it does not block the navigation.
type OpenMsg struct {
	Location nav.Location
	Err      error
}

type errMsg struct{ err error }

type Inbox struct {
	ctx    context.Context
	engine Engine
	poller Focuser
	role   model.Role
	styles Styles

	state  notify.State
	cursor int
	status string
	err    error
	opened *nav.Location
}

func NewInbox(ctx context.Context, engine Engine, poller Focuser, role model.Role) Inbox {
	return Inbox{ctx: ctx, engine: engine, poller: poller, role: role, styles: DefaultStyles()}
}

// Init assumes the terminal starts focused; FocusMsg/BlurMsg take over
// from there when focus reporting is on.
func (m Inbox) Init() tea.Cmd {
	m.poller.SetFocused(true)
	return m.refresh()
}

func (m Inbox) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.FocusMsg:
		return m, m.focus(true)
	case tea.BlurMsg:
		return m, m.focus(false)

	case StateMsg:
		m.state = notify.State(msg)
		if m.cursor >= len(m.state.Items) {
			m.cursor = max(0, len(m.state.Items)-1)
		}
		return m, nil

	case OpenMsg:
		loc := msg.Location
		m.opened = &loc
		m.err = msg.Err
		m.status = "opens " + loc.Path
		m.state = m.engine.State()
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		return m.key(msg)
	}
	return m, nil
}

func (m Inbox) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.state.Items)-1 {
			m.cursor++
		}
	case "r":
		m.status = "refreshing"
		return m, m.refresh()
	case "a":
		m.status = "marked all read"
		return m, m.markAll()
	case "enter":
		if len(m.state.Items) == 0 {
			return m, nil
		}
		return m, m.open(m.state.Items[m.cursor])
	}
	return m, nil
}

// focus runs off the event loop: stopping the poller waits for an
// in-flight tick, and that tick may be sending a StateMsg to this program.
func (m Inbox) focus(v bool) tea.Cmd {
	poller := m.poller
	return func() tea.Msg {
		poller.SetFocused(v)
		return nil
	}
}

func (m Inbox) refresh() tea.Cmd {
	ctx, engine := m.ctx, m.engine
	return func() tea.Msg {
		if err := engine.Refresh(ctx); err != nil {
			return errMsg{err}
		}
		return StateMsg(engine.State())
	}
}

func (m Inbox) markAll() tea.Cmd {
	ctx, engine := m.ctx, m.engine
	return func() tea.Msg {
		if err := engine.MarkAllRead(ctx); err != nil {
			return errMsg{err}
		}
		return StateMsg(engine.State())
	}
}

// open marks the item read and reports where it leads.
func (m Inbox) open(item model.NotificationItem) tea.Cmd {
	ctx, engine, role := m.ctx, m.engine, m.role
	return func() tea.Msg {
		err := engine.MarkRead(ctx, item.ID)
		return OpenMsg{Location: nav.DeepLink(item, role), Err: err}
	}
}

// Opened is the last deep-link target, if any.
func (m Inbox) Opened() (nav.Location, bool) {
	if m.opened == nil {
		return nav.Location{}, false
	}
	return *m.opened, true
}

func (m Inbox) View() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Header.Render("Notifications"))
	sb.WriteString(" ")
	sb.WriteString(m.styles.Badge.Render(fmt.Sprintf("%d unread", m.state.Unread)))
	sb.WriteString("\n\n")

	if len(m.state.Items) == 0 {
		sb.WriteString(m.styles.Status.Render("No notifications yet."))
		sb.WriteString("\n")
	}
	for i, it := range m.state.Items {
		cursor := "  "
		if i == m.cursor {
			cursor = m.styles.Selected.Render("> ")
		}
		mark, style := "  ", m.styles.Read
		if !it.Read {
			mark, style = "• ", m.styles.Unread
		}
		line := fmt.Sprintf("%s%s  %s", mark, it.Title, it.Message)
		if !it.CreatedAt.IsZero() {
			line += "  " + it.CreatedAt.Format("Jan 2 15:04")
		}
		sb.WriteString(cursor + style.Render(line) + "\n")
	}

	sb.WriteString("\n")
	if m.err != nil {
		sb.WriteString(m.styles.Error.Render(m.err.Error()) + "\n")
	} else if m.status != "" {
		sb.WriteString(m.styles.Status.Render(m.status) + "\n")
	}
	sb.WriteString(m.styles.Help.Render("j/k move • enter open • a mark all read • r refresh • q quit"))
	return sb.String()
}
