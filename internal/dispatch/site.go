package dispatch

import (
	"fmt"
	"sync/atomic"
)

type binding struct {
	handler *Handler
	version uint64
}

// Site is the linked call site of one trampoline. It caches the handler
// it resolved and resolves again only after the id's version moved.
type Site struct {
	reg      *Registry
	id       int
	name     string
	bound    atomic.Pointer[binding]
	resolves atomic.Uint64
}

// Link creates the call site for id. name is the call site name and only
// shows up in errors.
func (r *Registry) Link(id int, name string) (*Site, error) {
	if _, err := r.lookup(id); err != nil {
		return nil, fmt.Errorf("link %s: %w", name, err)
	}
	return &Site{reg: r, id: id, name: name}, nil
}

// ID returns the trampoline id the site dispatches for.
func (s *Site) ID() int { return s.id }

// Name returns the call site name.
func (s *Site) Name() string { return s.name }

// Resolves counts how often the site looked its handler up.
func (s *Site) Resolves() uint64 { return s.resolves.Load() }

// Invoke calls the handler bound to the site's id.
func (s *Site) Invoke(args []any) (any, error) {
	return s.invoke(args, false)
}

// InvokeAttached is Invoke for callers that already saw the id attached.
// A detach racing the call does not fail it: the call completes with the
// handler that was attached last.
func (s *Site) InvokeAttached(args []any) (any, error) {
	return s.invoke(args, true)
}

func (s *Site) invoke(args []any, attached bool) (any, error) {
	e, err := s.reg.lookup(s.id)
	if err != nil {
		return nil, err
	}
	b := s.bound.Load()
	if b == nil || b.version != e.version.Load() {
		b = s.resolve(e)
	}
	h := b.handler
	if h == nil && attached {
		h = e.last.Load()
	}
	if h == nil {
		return nil, fmt.Errorf("%s: trampoline %d: %w", s.name, s.id, ErrNotAttached)
	}
	return (*h)(args)
}

// resolve reads the version before the handler. A concurrent Attach stores
// the handler before bumping the version, so a binding is never newer than
// its recorded version and a stale one is replaced on the next call.
func (s *Site) resolve(e *entry) *binding {
	s.resolves.Add(1)
	b := &binding{version: e.version.Load()}
	b.handler = e.handler.Load()
	s.bound.Store(b)
	return b
}
