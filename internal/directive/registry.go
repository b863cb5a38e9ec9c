package directive

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// ErrRestartRequired is returned when a new directive is registered after
// the generated classes were produced.
var ErrRestartRequired = errors.New("new directives require a restart to take effect")

// Entry is a registered directive with its stable id.
type Entry struct {
	ID        int
	Mixin     Mixin
	Directive *Directive
	// Source names the authoring file the directive came from.
	Source string
	// Index is the position of the directive inside its group.
	Index int
}

type mixinSlot struct {
	mixin    Mixin
	entries  []int // indices into Registry.entries
	wideners []Widener
}

// Registry collects directives and access wideners before generation and
// hands out ids. Ids are assigned sequentially from zero; after Finalize
// only directives identical to an already registered one are accepted, so
// that a script reload can rebind its handlers without regenerating code.
type Registry struct {
	mu        sync.Mutex
	entries   []Entry
	mixins    []*mixinSlot
	byMixin   map[string]*mixinSlot
	finalized bool
}

// NewRegistry creates an empty directive registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make([]Entry, 0),
		byMixin: make(map[string]*mixinSlot),
	}
}

func mixinKey(m Mixin) string {
	key := m.Target
	if m.Priority != nil {
		key += fmt.Sprintf("|p=%d", *m.Priority)
	}
	if m.Remap != nil {
		key += fmt.Sprintf("|r=%t", *m.Remap)
	}
	return key
}

func (r *Registry) slot(m Mixin) *mixinSlot {
	key := mixinKey(m)
	s, ok := r.byMixin[key]
	if !ok {
		s = &mixinSlot{mixin: m}
		r.byMixin[key] = s
		r.mixins = append(r.mixins, s)
	}
	return s
}

// Register records d under mixin m and returns its id.
func (r *Registry) Register(m Mixin, d *Directive) (int, error) {
	return r.register(m, d, "", 0)
}

func (r *Registry) register(m Mixin, d *Directive, source string, index int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		if s, ok := r.byMixin[mixinKey(m)]; ok {
			for _, idx := range s.entries {
				if reflect.DeepEqual(r.entries[idx].Directive, d) {
					return r.entries[idx].ID, nil
				}
			}
		}
		return -1, fmt.Errorf("%s on %s: %w", d.Describe(), m.Target, ErrRestartRequired)
	}

	id := len(r.entries)
	r.entries = append(r.entries, Entry{ID: id, Mixin: m, Directive: d, Source: source, Index: index})
	s := r.slot(m)
	s.entries = append(s.entries, id)
	return id, nil
}

// RegisterGroup registers every directive and widener of g in order.
// An empty group still records its mixin so callers can report it.
func (r *Registry) RegisterGroup(g *Group) ([]int, error) {
	if len(g.Directives) == 0 && len(g.Wideners) == 0 {
		r.mu.Lock()
		if !r.finalized {
			r.slot(g.Mixin)
		}
		r.mu.Unlock()
		return nil, nil
	}
	ids := make([]int, 0, len(g.Directives))
	for i, d := range g.Directives {
		id, err := r.register(g.Mixin, d, g.Source, i)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	for _, w := range g.Wideners {
		r.Widen(g.Mixin, w)
	}
	return ids, nil
}

// Widen records an access widener for the mixin target. It reports false
// when the registry is already finalized; wideners only apply at startup.
func (r *Registry) Widen(m Mixin, w Widener) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return false
	}
	s := r.slot(m)
	s.wideners = append(s.wideners, w)
	return true
}

// Finalize freezes the set of directives.
func (r *Registry) Finalize() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finalized = true
}

// Finalized reports whether Finalize was called.
func (r *Registry) Finalized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finalized
}

// Reset discards everything, as a full reload does.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = r.entries[:0]
	r.mixins = nil
	r.byMixin = make(map[string]*mixinSlot)
	r.finalized = false
}

// All returns all entries ordered by id.
func (r *Registry) All() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Get returns the entry with the given id.
func (r *Registry) Get(id int) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id < 0 || id >= len(r.entries) {
		return Entry{}, false
	}
	return r.entries[id], true
}

// MixinDetails is the per-mixin view of the registry.
type MixinDetails struct {
	Mixin    Mixin
	Entries  []Entry
	Wideners []Widener
}

// Mixins returns every mixin in first-registration order.
func (r *Registry) Mixins() []MixinDetails {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]MixinDetails, 0, len(r.mixins))
	for _, s := range r.mixins {
		details := MixinDetails{
			Mixin:    s.mixin,
			Entries:  make([]Entry, 0, len(s.entries)),
			Wideners: append([]Widener(nil), s.wideners...),
		}
		for _, idx := range s.entries {
			details.Entries = append(details.Entries, r.entries[idx])
		}
		out = append(out, details)
	}
	return out
}

// Len returns the number of registered directives.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
