package ui_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartboard-client/internal/model"
	"smartboard-client/internal/notify"
	"smartboard-client/internal/ui"
)

type fakeEngine struct {
	state      notify.State
	refreshErr error
	markErr    error
	marked     []model.ID
	markAll    int
}

func (f *fakeEngine) Refresh(context.Context) error { return f.refreshErr }

func (f *fakeEngine) MarkRead(_ context.Context, id model.ID) error {
	f.marked = append(f.marked, id)
	for i := range f.state.Items {
		if f.state.Items[i].ID == id && !f.state.Items[i].Read {
			f.state.Items[i].Read = true
			f.state.Unread--
		}
	}
	return f.markErr
}

func (f *fakeEngine) MarkAllRead(context.Context) error {
	f.markAll++
	for i := range f.state.Items {
		f.state.Items[i].Read = true
	}
	f.state.Unread = 0
	return nil
}

func (f *fakeEngine) State() notify.State { return f.state }

type focus struct{ calls []bool }

func (f *focus) SetFocused(v bool) { f.calls = append(f.calls, v) }

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newInbox(t *testing.T) (ui.Inbox, *fakeEngine, *focus) {
	t.Helper()
	meta, err := model.NewMeta(map[string]any{"bookingId": 9})
	require.NoError(t, err)
	eng := &fakeEngine{state: notify.State{
		Items: []model.NotificationItem{
			{ID: "1", Title: "Welcome", Message: "hello"},
			{ID: "2", Title: "Booking approved", Message: "see details", Meta: meta},
		},
		Unread: 2,
	}}
	f := &focus{}
	return ui.NewInbox(context.Background(), eng, f, model.RoleStudent), eng, f
}

func update(t *testing.T, m tea.Model, msg tea.Msg) (ui.Inbox, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	inbox, ok := next.(ui.Inbox)
	require.True(t, ok)
	return inbox, cmd
}

func TestInitFocusesAndLoads(t *testing.T) {
	m, eng, f := newInbox(t)
	cmd := m.Init()
	assert.Equal(t, []bool{true}, f.calls)

	m, _ = update(t, m, cmd())
	view := m.View()
	assert.Contains(t, view, "Welcome")
	assert.Contains(t, view, "2 unread")

	eng.refreshErr = errors.New("offline")
	m, _ = update(t, m, m.Init()())
	assert.Contains(t, m.View(), "offline")
}

func TestFocusAndBlurDrivePoller(t *testing.T) {
	m, _, f := newInbox(t)
	m, cmd := update(t, m, tea.BlurMsg{})
	require.NotNil(t, cmd)
	assert.Empty(t, f.calls, "focus changes run as commands")
	assert.Nil(t, cmd())

	m, cmd = update(t, m, tea.FocusMsg{})
	cmd()
	assert.Equal(t, []bool{false, true}, f.calls)

	_, cmd = update(t, m, key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestOpenMarksReadAndDeepLinks(t *testing.T) {
	m, eng, _ := newInbox(t)
	m, _ = update(t, m, ui.StateMsg(eng.State()))

	m, _ = update(t, m, key("j"))
	m, cmd := update(t, m, key("enter"))
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())

	assert.Equal(t, []model.ID{"2"}, eng.marked)
	loc, ok := m.Opened()
	require.True(t, ok)
	assert.Equal(t, "/student/boardings/9", loc.Path)
	assert.Contains(t, m.View(), "1 unread")
}

func TestOpenNavigatesEvenWhenMarkFails(t *testing.T) {
	m, eng, _ := newInbox(t)
	m, _ = update(t, m, ui.StateMsg(eng.State()))
	eng.markErr = errors.New("500")

	m, cmd := update(t, m, key("enter"))
	m, _ = update(t, m, cmd())

	loc, ok := m.Opened()
	require.True(t, ok)
	assert.Equal(t, "/notifications/details", loc.Path)
	assert.Equal(t, "1", loc.Param("notificationId"))
	assert.Contains(t, m.View(), "500")
}

func TestMarkAll(t *testing.T) {
	m, eng, _ := newInbox(t)
	m, _ = update(t, m, ui.StateMsg(eng.State()))

	m, cmd := update(t, m, key("a"))
	m, _ = update(t, m, cmd())
	assert.Equal(t, 1, eng.markAll)
	assert.Contains(t, m.View(), "0 unread")
	assert.False(t, strings.Contains(m.View(), "• Welcome"))
}

func TestEmptyInbox(t *testing.T) {
	m := ui.NewInbox(context.Background(), &fakeEngine{}, &focus{}, model.RoleOwner)
	m, cmd := update(t, m, key("enter"))
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "No notifications yet.")
}
