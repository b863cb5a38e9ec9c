// Package widener collects access widening requests for mixin targets and
// renders them as an access widener file for the weaving engine.
package widener

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"hookgen/internal/descriptor"
	"hookgen/internal/directive"
	"hookgen/internal/mapping"
)

// Access is the kind of relaxation requested.
type Access uint8

const (
	Accessible Access = iota
	Mutable
)

func (a Access) String() string {
	if a == Mutable {
		return "mutable"
	}
	return "accessible"
}

// Entry is one line of the manifest, in runtime names.
type Entry struct {
	Access Access
	Field  bool
	Class  string
	Name   string
	Desc   string
}

func (e Entry) String() string {
	member := "method"
	if e.Field {
		member = "field"
	}
	return fmt.Sprintf("%s\t%s\t%s\t%s\t%s", e.Access, member, e.Class, e.Name, e.Desc)
}

// Manifest accumulates entries, dropping duplicates and keeping request
// order.
type Manifest struct {
	mu        sync.Mutex
	namespace string
	entries   []Entry
	seen      map[Entry]bool
}

// New creates a manifest whose header names the runtime namespace.
func New(namespace string) *Manifest {
	if namespace == "" {
		namespace = "intermediary"
	}
	return &Manifest{namespace: namespace, seen: make(map[Entry]bool)}
}

func (m *Manifest) add(e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[e] {
		return
	}
	m.seen[e] = true
	m.entries = append(m.entries, e)
}

// record adds the accessible entry and, for mutable requests, the mutable one.
func (m *Manifest) record(e Entry, mutable bool) {
	e.Access = Accessible
	m.add(e)
	if mutable {
		e.Access = Mutable
		m.add(e)
	}
}

// WidenField requests access to the field name declared by c.
func (m *Manifest) WidenField(c *mapping.Class, name string, mutable bool) error {
	f, ok := c.Fields[name]
	if !ok {
		return &mapping.ResolveError{Kind: mapping.ErrUnknownMember, Class: c.Name.Logical, Member: name}
	}
	m.record(Entry{Field: true, Class: c.Name.Runtime, Name: f.Name.Runtime, Desc: f.Type.Runtime}, mutable)
	return nil
}

// WidenMethod requests access to the method sig ("name(params)ret" or a
// bare name when unambiguous) resolved through t.
func (m *Manifest) WidenMethod(t *mapping.Table, c *mapping.Class, sig string, mutable bool) error {
	ref, err := descriptor.ParseMethod(sig, false)
	if err != nil {
		return err
	}
	found, _, err := t.FindMethod(c, ref)
	if err != nil {
		return err
	}
	m.record(Entry{Class: c.Name.Runtime, Name: found.Name.Runtime, Desc: found.RuntimeDesc()}, mutable)
	return nil
}

// Apply resolves the mixin target and records every widener. It returns one
// error per widener that could not be resolved; a target that cannot be
// resolved yields a single error.
func (m *Manifest) Apply(t *mapping.Table, mixin directive.Mixin, wideners []directive.Widener) []error {
	if len(wideners) == 0 {
		return nil
	}
	c, err := t.ResolveTarget(mixin.Target, mixin.Remaps())
	if err != nil {
		return []error{err}
	}
	var errs []error
	for _, w := range wideners {
		var err error
		if w.Field {
			err = m.WidenField(c, w.Member, w.Mutable)
		} else {
			err = m.WidenMethod(t, c, w.Member, w.Mutable)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("widener %s: %w", w.Member, err))
		}
	}
	return errs
}

// Entries returns a copy of the entries in request order.
func (m *Manifest) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}

func (m *Manifest) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// WriteTo writes the manifest in access widener v2 format.
func (m *Manifest) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)
	fmt.Fprintf(bw, "accessWidener\tv2\t%s\n", m.namespace)
	for _, e := range m.Entries() {
		bw.WriteString(e.String())
		bw.WriteByte('\n')
	}
	err := bw.Flush()
	return cw.n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
