package classpath

import (
	"fmt"
	"sort"

	"hookgen/internal/descriptor"
)

// Access is a bit set of member and class modifiers, using the JVM flag values.
type Access uint16

const (
	AccPublic    Access = 0x0001
	AccPrivate   Access = 0x0002
	AccProtected Access = 0x0004
	AccStatic    Access = 0x0008
	AccFinal     Access = 0x0010
	AccInterface Access = 0x0200
	AccAbstract  Access = 0x0400
)

// Has reports whether all bits of flag are set.
func (a Access) Has(flag Access) bool {
	return a&flag == flag
}

// Class describes one runtime class by its runtime (internal) name.
type Class struct {
	Name       string
	Super      string
	Interfaces []string
	Access     Access
	Methods    []*Method
	Fields     []*Field
}

// Method is a runtime method. Desc is a bare method type, e.g. "(IJ)V".
type Method struct {
	Owner  string
	Name   string
	Desc   string
	Access Access
	// Locals lists body locals (beyond the parameters) in slot order.
	Locals []Local
}

// Local is a body local variable declared by a method.
type Local struct {
	Name  string
	Desc  string
	Index int
}

// Field is a runtime field.
type Field struct {
	Owner  string
	Name   string
	Desc   string
	Access Access
}

// IsStatic reports whether the method has no receiver.
func (m *Method) IsStatic() bool { return m.Access.Has(AccStatic) }

// IsStatic reports whether the field is a class field.
func (f *Field) IsStatic() bool { return f.Access.Has(AccStatic) }

// Set is an immutable-after-load collection of runtime classes.
type Set struct {
	classes map[string]*Class
}

// NewSet returns an empty class set.
func NewSet() *Set {
	return &Set{classes: make(map[string]*Class)}
}

// Add registers a class. Duplicate names are rejected.
func (s *Set) Add(c *Class) error {
	if c == nil || c.Name == "" {
		return fmt.Errorf("class without a name")
	}
	if _, ok := s.classes[c.Name]; ok {
		return fmt.Errorf("duplicate class %q", c.Name)
	}
	for _, m := range c.Methods {
		m.Owner = c.Name
	}
	for _, f := range c.Fields {
		f.Owner = c.Name
	}
	s.classes[c.Name] = c
	return nil
}

// Lookup returns the class with the given runtime name.
func (s *Set) Lookup(name string) (*Class, bool) {
	if s == nil {
		return nil, false
	}
	c, ok := s.classes[name]
	return c, ok
}

// Len returns the number of classes.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.classes)
}

// Names returns all class names sorted.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.classes))
	for name := range s.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Method returns a method declared directly on the class.
func (c *Class) Method(name, desc string) (*Method, bool) {
	for _, m := range c.Methods {
		if m.Name == name && m.Desc == desc {
			return m, true
		}
	}
	return nil, false
}

// Field returns a field declared directly on the class. An empty desc
// matches any type.
func (c *Class) Field(name, desc string) (*Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name && (desc == "" || f.Desc == desc) {
			return f, true
		}
	}
	return nil, false
}

// FindMethod searches class, then its superclasses, then every interface
// reachable from them.
func (s *Set) FindMethod(class, name, desc string) (*Method, bool) {
	var found *Method
	s.walk(class, func(c *Class) bool {
		if m, ok := c.Method(name, desc); ok {
			found = m
			return false
		}
		return true
	})
	return found, found != nil
}

// FindField searches the hierarchy like FindMethod.
func (s *Set) FindField(class, name, desc string) (*Field, bool) {
	var found *Field
	s.walk(class, func(c *Class) bool {
		if f, ok := c.Field(name, desc); ok {
			found = f
			return false
		}
		return true
	})
	return found, found != nil
}

// Superclass returns the direct superclass name.
func (s *Set) Superclass(name string) (string, bool) {
	c, ok := s.Lookup(name)
	if !ok || c.Super == "" {
		return "", false
	}
	return c.Super, true
}

// Interfaces returns the directly implemented interfaces.
func (s *Set) Interfaces(name string) []string {
	c, ok := s.Lookup(name)
	if !ok {
		return nil
	}
	return c.Interfaces
}

// walk visits the superclass chain first and the interfaces afterwards.
// Classes missing from the set end the branch.
func (s *Set) walk(start string, visit func(*Class) bool) {
	seen := make(map[string]bool)
	var pending []string
	for name := start; name != ""; {
		c, ok := s.Lookup(name)
		if !ok || seen[name] {
			break
		}
		seen[name] = true
		if !visit(c) {
			return
		}
		pending = append(pending, c.Interfaces...)
		name = c.Super
	}
	for len(pending) > 0 {
		name := pending[0]
		pending = pending[1:]
		if seen[name] {
			continue
		}
		seen[name] = true
		c, ok := s.Lookup(name)
		if !ok {
			continue
		}
		if !visit(c) {
			return
		}
		pending = append(pending, c.Interfaces...)
	}
}

// Slot is one entry of a method's local variable layout.
type Slot struct {
	Index int
	Type  descriptor.Type
	Name  string
	Param bool
}

// Layout returns the method's local variable layout: the receiver (for
// instance methods), the parameters and the declared body locals. Wide
// types occupy two slot indices.
func (m *Method) Layout() ([]Slot, error) {
	params, _, err := descriptor.ParseMethodType(m.Desc)
	if err != nil {
		return nil, fmt.Errorf("method %s.%s: %w", m.Owner, m.Name, err)
	}
	slots := make([]Slot, 0, len(params)+len(m.Locals)+1)
	next := 0
	if !m.IsStatic() {
		slots = append(slots, Slot{Index: 0, Type: descriptor.ObjectOf(m.Owner), Name: "this", Param: true})
		next = 1
	}
	for i, p := range params {
		slots = append(slots, Slot{Index: next, Type: p, Name: fmt.Sprintf("arg%d", i), Param: true})
		next += descriptor.Slots(p)
	}
	for _, l := range m.Locals {
		t, err := descriptor.ParseType(l.Desc)
		if err != nil {
			return nil, fmt.Errorf("method %s.%s local %q: %w", m.Owner, m.Name, l.Name, err)
		}
		slots = append(slots, Slot{Index: l.Index, Type: t, Name: l.Name})
	}
	return slots, nil
}

// LocalByOrdinal returns the slot of the ordinal-th local of type t,
// counting parameters and body locals (the receiver is excluded).
func (m *Method) LocalByOrdinal(t descriptor.Type, ordinal int) (Slot, bool, error) {
	slots, err := m.Layout()
	if err != nil {
		return Slot{}, false, err
	}
	if !m.IsStatic() {
		slots = slots[1:]
	}
	seen := 0
	for _, slot := range slots {
		if slot.Type != t {
			continue
		}
		if seen == ordinal {
			return slot, true, nil
		}
		seen++
	}
	return Slot{}, false, nil
}
