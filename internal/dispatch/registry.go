// Package dispatch binds trampoline ids to host handlers. Handlers can be
// attached, replaced and detached while call sites keep running; every
// change bumps a per-id version that invalidates cached bindings.
package dispatch

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// Handler receives the marshalled argument vector of one trampoline call.
// For instance trampolines args[0] is the receiver.
type Handler func(args []any) (any, error)

var (
	// ErrUnknownID reports an id that was never registered.
	ErrUnknownID = errors.New("unknown trampoline id")
	// ErrNotAttached reports a call through a site whose id has no handler.
	ErrNotAttached = errors.New("no handler attached")
)

type entry struct {
	handler atomic.Pointer[Handler]
	// last is the most recently attached handler. Detach leaves it set so
	// calls already past their attached check can finish.
	last    atomic.Pointer[Handler]
	version atomic.Uint64
}

// Registry holds the binding of every registered id. Lookups never take a
// lock; registration copies the entry table.
type Registry struct {
	mu      sync.Mutex
	entries atomic.Pointer[[]*entry]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	empty := []*entry{}
	r.entries.Store(&empty)
	return r
}

// Register makes ids 0..id valid. Registering an id twice is a no-op.
func (r *Registry) Register(id int) error {
	if id < 0 {
		return fmt.Errorf("%w: %d", ErrUnknownID, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := *r.entries.Load()
	if id < len(cur) {
		return nil
	}
	next := make([]*entry, id+1)
	copy(next, cur)
	for i := len(cur); i < len(next); i++ {
		next[i] = &entry{}
	}
	r.entries.Store(&next)
	return nil
}

// Len returns the number of registered ids.
func (r *Registry) Len() int {
	return len(*r.entries.Load())
}

func (r *Registry) lookup(id int) (*entry, error) {
	entries := *r.entries.Load()
	if id < 0 || id >= len(entries) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownID, id)
	}
	return entries[id], nil
}

// Attach binds h to id, replacing any previous handler. Sites pick up the
// new handler on their next call.
func (r *Registry) Attach(id int, h Handler) error {
	if h == nil {
		return r.Detach(id)
	}
	e, err := r.lookup(id)
	if err != nil {
		return err
	}
	e.last.Store(&h)
	e.handler.Store(&h)
	e.version.Add(1)
	return nil
}

// Detach removes the handler of id. Trampolines fall back to their
// not-attached behavior.
func (r *Registry) Detach(id int) error {
	e, err := r.lookup(id)
	if err != nil {
		return err
	}
	e.handler.Store(nil)
	e.version.Add(1)
	return nil
}

// DetachAll removes every handler.
func (r *Registry) DetachAll() {
	for _, e := range *r.entries.Load() {
		if e.handler.Load() != nil {
			e.handler.Store(nil)
			e.version.Add(1)
		}
	}
}

// IsAttached reports whether id currently has a handler. Unknown ids are
// never attached.
func (r *Registry) IsAttached(id int) bool {
	e, err := r.lookup(id)
	if err != nil {
		return false
	}
	return e.handler.Load() != nil
}

// Version returns the binding version of id.
func (r *Registry) Version(id int) uint64 {
	e, err := r.lookup(id)
	if err != nil {
		return 0
	}
	return e.version.Load()
}

// Call invokes the current handler of id without caching.
func (r *Registry) Call(id int, args []any) (any, error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	h := e.handler.Load()
	if h == nil {
		return nil, fmt.Errorf("trampoline %d: %w", id, ErrNotAttached)
	}
	return (*h)(args)
}
