package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"smartboard-client/internal/session"
)

const (
	DefaultPollInterval = 10 * time.Second
	defaultPollTimeout  = 8 * time.Second
)

type CountLoader interface {
	LoadUnreadCount(ctx context.Context) (int, error)
}

type PollSessions interface {
	Snapshot() session.Snapshot
	Subscribe(session.Listener) func()
}

// Poller refreshes the unread count on an interval while a restored
// session exists and the hosting screen has focus. Losing either tears
// the loop down; regaining both starts a new one with an immediate load.
type Poller struct {
	loader   CountLoader
	sessions PollSessions
	interval time.Duration
	timeout  time.Duration
	log      *zap.Logger

	// run serialises start/stop so a teardown can wait for the loop
	run sync.Mutex

	mu      sync.Mutex
	focused bool
	stopped bool
	tag     string
	cancel  context.CancelFunc
	done    chan struct{}

	unsub func()
}

func NewPoller(loader CountLoader, sessions PollSessions, interval time.Duration, log *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	timeout := defaultPollTimeout
	if timeout > interval {
		timeout = interval
	}
	p := &Poller{loader: loader, sessions: sessions, interval: interval, timeout: timeout, log: log}
	p.unsub = sessions.Subscribe(func(session.Snapshot) { p.reconcile() })
	return p
}

// SetFocused reports whether the hosting screen is the focused one.
func (p *Poller) SetFocused(focused bool) {
	p.mu.Lock()
	p.focused = focused
	p.mu.Unlock()
	p.reconcile()
}

// Running reports whether the polling loop is live.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Stop detaches from the session store and waits for the loop to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	p.unsub()
	p.reconcile()
}

func (p *Poller) reconcile() {
	p.run.Lock()
	defer p.run.Unlock()

	snap := p.sessions.Snapshot()

	p.mu.Lock()
	want := p.focused && !p.stopped && snap.Session != nil && !snap.Loading
	running := p.cancel != nil
	sameUser := p.tag == snap.Tag
	p.mu.Unlock()

	if running && (!want || !sameUser) {
		p.teardown()
		running = false
	}
	if want && !running {
		p.start(snap.Tag)
	}
}

func (p *Poller) start(tag string) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.mu.Lock()
	p.tag = tag
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	p.log.Debug("unread poll started", zap.Duration("interval", p.interval))
	go p.loop(ctx, done)
}

func (p *Poller) teardown() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done, p.tag = nil, nil, ""
	p.mu.Unlock()

	cancel()
	<-done
	p.log.Debug("unread poll stopped")
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	p.tick(ctx)
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err := p.loader.LoadUnreadCount(ctx)
	if err == nil || errors.Is(err, ErrStale) || errors.Is(err, ErrNoSession) || errors.Is(err, context.Canceled) {
		return
	}
	// the engine logged the cause; keep polling
	p.log.Debug("unread poll tick failed", zap.Error(err))
}
