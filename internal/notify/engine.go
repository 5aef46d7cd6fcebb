// Package notify keeps the client's notification list and unread badge in
// step with the server by polling, with optimistic read marks.
package notify

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"smartboard-client/internal/model"
	"smartboard-client/internal/session"
)

var (
	// ErrStale is returned when the session changed while a fetch was in
	// flight. The result was dropped.
	ErrStale     = errors.New("notify: session changed, result discarded")
	ErrNoSession = errors.New("notify: no session")
)

type Fetcher interface {
	ListNotifications(ctx context.Context) ([]model.NotificationItem, error)
	UnreadCount(ctx context.Context) (int, error)
}

type Mutator interface {
	MarkRead(ctx context.Context, id model.ID) error
	MarkAllRead(ctx context.Context) error
}

// Sessions gives the identity a fetch runs under.
type Sessions interface {
	Tag() string
	Subscribe(session.Listener) func()
}

type State struct {
	Items  []model.NotificationItem
	Unread int
}

type Engine struct {
	fetch    Fetcher
	mutate   Mutator
	sessions Sessions
	log      *zap.Logger

	mu      sync.Mutex
	tag     string
	items   []model.NotificationItem
	unread  int
	subs    []subscription
	nextSub int

	unsub func()
}

type subscription struct {
	id int
	fn func(State)
}

// NewEngine wires the engine to the session store. Local state is dropped
// whenever the session changes.
func NewEngine(fetch Fetcher, mutate Mutator, sessions Sessions, log *zap.Logger) *Engine {
	e := &Engine{fetch: fetch, mutate: mutate, sessions: sessions, log: log, tag: sessions.Tag()}
	e.unsub = sessions.Subscribe(func(session.Snapshot) { e.sync() })
	return e
}

func (e *Engine) Close() { e.unsub() }

func (e *Engine) sync() {
	tag := e.sessions.Tag()
	e.mu.Lock()
	if tag == e.tag {
		e.mu.Unlock()
		return
	}
	e.resetLocked(tag)
	st := e.stateLocked()
	e.mu.Unlock()
	e.notify(st)
}

func (e *Engine) resetLocked(tag string) {
	e.tag = tag
	e.items = nil
	e.unread = 0
}

// LoadAll replaces the local list with the server's.
func (e *Engine) LoadAll(ctx context.Context) ([]model.NotificationItem, error) {
	tag := e.sessions.Tag()
	if tag == "" {
		return nil, ErrNoSession
	}
	items, err := e.fetch.ListNotifications(ctx)
	if err != nil {
		e.log.Warn("load notifications", zap.Error(err))
		return nil, err
	}

	st, err := e.apply(tag, func() {
		e.items = items
	})
	if err != nil {
		return nil, err
	}
	return st.Items, nil
}

// LoadUnreadCount replaces the badge count with the server's.
func (e *Engine) LoadUnreadCount(ctx context.Context) (int, error) {
	tag := e.sessions.Tag()
	if tag == "" {
		return 0, ErrNoSession
	}
	n, err := e.fetch.UnreadCount(ctx)
	if err != nil {
		e.log.Warn("load unread count", zap.Error(err))
		return 0, err
	}
	if n < 0 {
		n = 0
	}

	st, err := e.apply(tag, func() {
		e.unread = n
	})
	if err != nil {
		return 0, err
	}
	return st.Unread, nil
}

// apply runs fn under the lock only if the session that dispatched the
// fetch is still the current one.
func (e *Engine) apply(tag string, fn func()) (State, error) {
	e.mu.Lock()
	if e.sessions.Tag() != tag {
		e.mu.Unlock()
		e.log.Debug("discarding stale notification result")
		return State{}, ErrStale
	}
	if e.tag != tag {
		e.resetLocked(tag)
	}
	fn()
	st := e.stateLocked()
	e.mu.Unlock()

	e.notify(st)
	return st, nil
}

// Refresh loads the list and the count concurrently.
func (e *Engine) Refresh(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := e.LoadAll(ctx)
		return err
	})
	g.Go(func() error {
		_, err := e.LoadUnreadCount(ctx)
		return err
	})
	return g.Wait()
}

// MarkRead flips the item and lowers the badge before the server hears
// about it. A server failure is logged and returned; the local flip stays
// until the next poll says otherwise.
func (e *Engine) MarkRead(ctx context.Context, id model.ID) error {
	if e.sessions.Tag() == "" {
		return ErrNoSession
	}

	e.mu.Lock()
	for i := range e.items {
		if e.items[i].ID == id && !e.items[i].Read {
			e.items[i].Read = true
			if e.unread > 0 {
				e.unread--
			}
			break
		}
	}
	st := e.stateLocked()
	e.mu.Unlock()
	e.notify(st)

	if err := e.mutate.MarkRead(ctx, id); err != nil {
		e.log.Warn("mark read", zap.String("notification_id", string(id)), zap.Error(err))
		return err
	}
	return nil
}

// MarkAllRead marks every item read and zeroes the badge, then tells the
// server.
func (e *Engine) MarkAllRead(ctx context.Context) error {
	if e.sessions.Tag() == "" {
		return ErrNoSession
	}

	e.mu.Lock()
	for i := range e.items {
		e.items[i].Read = true
	}
	e.unread = 0
	st := e.stateLocked()
	e.mu.Unlock()
	e.notify(st)

	if err := e.mutate.MarkAllRead(ctx); err != nil {
		e.log.Warn("mark all read", zap.Error(err))
		return err
	}
	return nil
}

func (e *Engine) Items() []model.NotificationItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked().Items
}

func (e *Engine) Unread() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unread
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

// Subscribe registers fn for every local state change. fn runs on the
// goroutine that made the change, with no lock held.
func (e *Engine) Subscribe(fn func(State)) (unsubscribe func()) {
	e.mu.Lock()
	e.nextSub++
	id := e.nextSub
	e.subs = append(e.subs, subscription{id: id, fn: fn})
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, s := range e.subs {
			if s.id == id {
				e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
				return
			}
		}
	}
}

func (e *Engine) stateLocked() State {
	items := make([]model.NotificationItem, len(e.items))
	copy(items, e.items)
	return State{Items: items, Unread: e.unread}
}

func (e *Engine) notify(st State) {
	e.mu.Lock()
	subs := make([]subscription, len(e.subs))
	copy(subs, e.subs)
	e.mu.Unlock()

	for _, s := range subs {
		s.fn(st)
	}
}
