package nav

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"smartboard-client/internal/session"
)

// Sessions is the part of the session store the gate reads and acts on.
type Sessions interface {
	Snapshot() session.Snapshot
	Subscribe(session.Listener) func()
	Logout(ctx context.Context) error
}

// Gate re-evaluates Decide on every session or route change and applies the
// result to the router.
type Gate struct {
	sessions Sessions
	router   *Router
	log      *zap.Logger

	mu     sync.Mutex
	ctx    context.Context
	unsubs []func()
}

func NewGate(sessions Sessions, router *Router, log *zap.Logger) *Gate {
	return &Gate{sessions: sessions, router: router, log: log}
}

// Start subscribes to both sources and evaluates once. ctx bounds the
// storage work of a forced logout.
func (g *Gate) Start(ctx context.Context) {
	g.mu.Lock()
	if g.unsubs != nil {
		g.mu.Unlock()
		return
	}
	g.ctx = ctx
	g.unsubs = []func(){
		g.sessions.Subscribe(func(session.Snapshot) { g.evaluate() }),
		g.router.Subscribe(func(Location) { g.evaluate() }),
	}
	g.mu.Unlock()

	g.evaluate()
}

func (g *Gate) Stop() {
	g.mu.Lock()
	unsubs := g.unsubs
	g.unsubs = nil
	g.mu.Unlock()

	for _, fn := range unsubs {
		fn()
	}
}

// evaluate reads live state; a snapshot handed to a listener may already be
// superseded by a nested publish.
func (g *Gate) evaluate() {
	g.mu.Lock()
	ctx := g.ctx
	running := g.unsubs != nil
	g.mu.Unlock()
	if !running {
		return
	}

	snap := g.sessions.Snapshot()
	loc := g.router.Current()
	d := Decide(snap.Session, snap.Loading, loc.Path)

	if d.ForceLogout {
		g.log.Warn("unknown role, logging out",
			zap.String("role", string(snap.Session.User.Role)),
			zap.String("route", loc.Path),
		)
		if err := g.sessions.Logout(ctx); err != nil {
			g.log.Warn("forced logout", zap.Error(err))
		}
		// the logout publish re-entered evaluate and routed already
		return
	}
	if d.Redirect != "" && d.Redirect != loc.Path {
		g.log.Debug("redirect", zap.String("from", loc.Path), zap.String("to", d.Redirect))
		g.router.Replace(Location{Path: d.Redirect})
	}
}
