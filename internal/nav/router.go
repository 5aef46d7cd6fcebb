package nav

import (
	"maps"
	"sync"
)

type Location struct {
	Path   string
	Params map[string]string
}

func (l Location) Param(key string) string { return l.Params[key] }

func (l Location) equal(o Location) bool {
	return l.Path == o.Path && maps.Equal(l.Params, o.Params)
}

// Router is a history stack of locations. Listeners run synchronously after
// every change, with no lock held.
type Router struct {
	mu      sync.Mutex
	stack   []Location
	subs    map[int]func(Location)
	order   []int
	nextSub int
}

func NewRouter(start Location) *Router {
	if start.Path == "" {
		start.Path = RouteEntry
	}
	return &Router{stack: []Location{start}, subs: make(map[int]func(Location))}
}

func (r *Router) Current() Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stack[len(r.stack)-1]
}

func (r *Router) Push(loc Location) {
	r.mu.Lock()
	r.stack = append(r.stack, loc)
	r.mu.Unlock()
	r.publish(loc)
}

// Replace swaps the top of the stack. Replacing with an identical location
// is a no-op.
func (r *Router) Replace(loc Location) {
	r.mu.Lock()
	if r.stack[len(r.stack)-1].equal(loc) {
		r.mu.Unlock()
		return
	}
	r.stack[len(r.stack)-1] = loc
	r.mu.Unlock()
	r.publish(loc)
}

// Back pops one location. It reports false at the root.
func (r *Router) Back() bool {
	r.mu.Lock()
	if len(r.stack) == 1 {
		r.mu.Unlock()
		return false
	}
	r.stack = r.stack[:len(r.stack)-1]
	loc := r.stack[len(r.stack)-1]
	r.mu.Unlock()
	r.publish(loc)
	return true
}

func (r *Router) Subscribe(fn func(Location)) (unsubscribe func()) {
	r.mu.Lock()
	r.nextSub++
	id := r.nextSub
	r.subs[id] = fn
	r.order = append(r.order, id)
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
}

func (r *Router) publish(loc Location) {
	r.mu.Lock()
	fns := make([]func(Location), 0, len(r.subs))
	live := r.order[:0]
	for _, id := range r.order {
		if fn, ok := r.subs[id]; ok {
			fns = append(fns, fn)
			live = append(live, id)
		}
	}
	r.order = live
	r.mu.Unlock()

	for _, fn := range fns {
		fn(loc)
	}
}
