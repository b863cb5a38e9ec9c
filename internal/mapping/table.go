package mapping

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"hookgen/internal/classpath"
	"hookgen/internal/descriptor"
)

// DefaultMappedPackages are the descriptor prefixes whose classes must be
// present in the table.
var DefaultMappedPackages = []string{"Lnet/minecraft/", "Lcom/mojang/blaze3d/"}

// Table is the symbol mapping table. It is filled once while loading and
// only read afterwards; the lazily built unmapped classes are the one
// exception and are guarded by mu.
type Table struct {
	classes   map[string]*Class // logical internal name -> class
	runtime   map[string]string // runtime internal name -> logical name
	packages  []string
	hierarchy *classpath.Set

	mu       sync.Mutex
	unmapped map[string]*Class
}

// NewTable creates an empty table resolving existence against hierarchy.
// A nil packages slice selects DefaultMappedPackages.
func NewTable(hierarchy *classpath.Set, packages []string) *Table {
	if hierarchy == nil {
		hierarchy = classpath.NewSet()
	}
	if packages == nil {
		packages = DefaultMappedPackages
	}
	return &Table{
		classes:   make(map[string]*Class),
		runtime:   make(map[string]string),
		packages:  append([]string(nil), packages...),
		hierarchy: hierarchy,
		unmapped:  make(map[string]*Class),
	}
}

// Hierarchy returns the runtime classpath backing the table.
func (t *Table) Hierarchy() *classpath.Set { return t.hierarchy }

// AddClass registers a mapped class.
func (t *Table) AddClass(c *Class) error {
	if c == nil || c.Name.Logical == "" {
		return fmt.Errorf("mapped class without a name")
	}
	if _, dup := t.classes[c.Name.Logical]; dup {
		return fmt.Errorf("duplicate mapped class %q", c.Name.Logical)
	}
	if c.Name.Runtime == "" {
		c.Name.Runtime = c.Name.Logical
	}
	for _, f := range c.Fields {
		f.Owner = c
	}
	for _, overloads := range c.Methods {
		for _, m := range overloads {
			m.Owner = c
		}
	}
	t.classes[c.Name.Logical] = c
	t.runtime[c.Name.Runtime] = c.Name.Logical
	return nil
}

// AddClasses registers every class, stopping at the first error.
func (t *Table) AddClasses(classes []*Class) error {
	for _, c := range classes {
		if err := t.AddClass(c); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of mapped classes.
func (t *Table) Len() int { return len(t.classes) }

// Names returns the logical names of all mapped classes, sorted.
func (t *Table) Names() []string {
	out := make([]string, 0, len(t.classes))
	for name := range t.classes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// InMappedPackage reports whether internalName belongs to a mapped package.
func (t *Table) InMappedPackage(internalName string) bool {
	desc := "L" + internalName
	for _, pkg := range t.packages {
		if strings.HasPrefix(desc, pkg) {
			return true
		}
	}
	return false
}

// Lookup finds a class by logical or runtime name, in any of the accepted
// spellings ("Lpkg/Name;", "pkg/Name", "pkg.Name").
func (t *Table) Lookup(name string) (*Class, bool) {
	name = normalizeClassName(name)
	if c, ok := t.classes[name]; ok {
		return c, true
	}
	if logical, ok := t.runtime[name]; ok {
		return t.classes[logical], true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.unmapped[name]
	return c, ok
}

// ResolveClass is Lookup with an ErrUnknownClass error.
func (t *Table) ResolveClass(name string) (*Class, error) {
	if c, ok := t.Lookup(name); ok {
		return c, nil
	}
	return nil, unknownClass(normalizeClassName(name))
}

// ResolveTarget resolves an instrumentation target class. With remap off,
// a class missing from the table is synthesized from the runtime classpath.
func (t *Table) ResolveTarget(name string, remap bool) (*Class, error) {
	if c, ok := t.Lookup(name); ok {
		return c, nil
	}
	if !remap {
		return t.UnmappedClass(name)
	}
	return nil, unknownClass(normalizeClassName(name))
}

// UnmappedClass builds a class from the runtime classpath whose logical and
// runtime names are identical. Results are memoized.
func (t *Table) UnmappedClass(name string) (*Class, error) {
	name = normalizeClassName(name)
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.unmapped[name]; ok {
		return c, nil
	}
	info, ok := t.hierarchy.Lookup(name)
	if !ok {
		return nil, unknownClass(name)
	}
	c := newClass(Identity(name))
	c.Unmapped = true
	for _, f := range info.Fields {
		c.Fields[f.Name] = &Field{Owner: c, Name: Identity(f.Name), Type: Identity(f.Desc)}
	}
	for _, cm := range info.Methods {
		params, ret, err := descriptor.ParseMethodType(cm.Desc)
		if err != nil {
			return nil, fmt.Errorf("class %s method %s: %w", name, cm.Name, err)
		}
		m := &Method{Owner: c, Name: Identity(cm.Name), Return: Identity(ret.String())}
		lvt := 1
		if cm.IsStatic() {
			lvt = 0
		}
		for i, p := range params {
			m.Params = append(m.Params, Parameter{
				Name:     Identity(fmt.Sprintf("arg%d", i)),
				Type:     Identity(p.String()),
				LVTIndex: lvt,
			})
			lvt += descriptor.Slots(p)
		}
		c.Methods[cm.Name] = append(c.Methods[cm.Name], m)
	}
	t.unmapped[name] = c
	return c, nil
}

// lookupRuntime finds a class by its runtime name only.
func (t *Table) lookupRuntime(runtimeName string) (*Class, bool) {
	if logical, ok := t.runtime[runtimeName]; ok {
		return t.classes[logical], true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.unmapped[runtimeName]
	return c, ok
}

// FindMethods returns the overloads named name. The class's own methods win;
// otherwise the nearest mapped superclass that declares the name; otherwise
// every directly implemented mapped interface is searched.
func (t *Table) FindMethods(c *Class, name string) []*Method {
	if ms := c.Methods[name]; len(ms) > 0 {
		return ms
	}
	seen := map[string]bool{c.Name.Runtime: true}
	current := c.Name.Runtime
	for {
		super, ok := t.hierarchy.Superclass(current)
		if !ok || seen[super] {
			break
		}
		seen[super] = true
		if sc, ok := t.lookupRuntime(super); ok {
			if ms := sc.Methods[name]; len(ms) > 0 {
				return ms
			}
		}
		current = super
	}
	var out []*Method
	for _, itf := range t.hierarchy.Interfaces(c.Name.Runtime) {
		ic, ok := t.lookupRuntime(itf)
		if !ok {
			continue
		}
		out = append(out, ic.Methods[name]...)
	}
	return out
}

// FindMethod resolves ref (a method descriptor, owner ignored) in c. With a
// parameter list the overloads are matched by parameter types; without one
// only the name is used. Every candidate must exist in the runtime class
// hierarchy. More than one surviving candidate is an ErrAmbiguousMember.
func (t *Table) FindMethod(c *Class, ref *descriptor.Method) (*Method, *classpath.Method, error) {
	candidates := t.FindMethods(c, ref.Name)
	if len(candidates) == 0 {
		return nil, nil, &ResolveError{Kind: ErrUnknownMember, Class: c.Name.Logical, Member: ref.Name}
	}
	var (
		found   *Method
		runtime *classpath.Method
		matches []string
	)
	for _, cand := range candidates {
		if ref.HasSignature() && !cand.matchesParams(ref.Params) {
			continue
		}
		rm, ok := t.hierarchy.FindMethod(c.Name.Runtime, cand.Name.Runtime, cand.RuntimeDesc())
		if !ok {
			continue
		}
		matches = append(matches, cand.FullDescriptor())
		found, runtime = cand, rm
	}
	switch len(matches) {
	case 0:
		return nil, nil, &ResolveError{Kind: ErrUnknownMember, Class: c.Name.Logical, Member: ref.Name + ref.Signature()}
	case 1:
		return found, runtime, nil
	default:
		return nil, nil, &ResolveError{Kind: ErrAmbiguousMember, Class: c.Name.Logical, Member: ref.Name, Candidates: matches}
	}
}

// FindField returns the mapped field named name in c or its mapped
// superclasses.
func (t *Table) FindField(c *Class, name string) (*Field, error) {
	if f, ok := c.Fields[name]; ok {
		return f, nil
	}
	seen := map[string]bool{c.Name.Runtime: true}
	for current := c.Name.Runtime; ; {
		super, ok := t.hierarchy.Superclass(current)
		if !ok || seen[super] {
			break
		}
		seen[super] = true
		if sc, ok := t.lookupRuntime(super); ok {
			if f, ok := sc.Fields[name]; ok {
				return f, nil
			}
		}
		current = super
	}
	return nil, &ResolveError{Kind: ErrUnknownMember, Class: c.Name.Logical, Member: name}
}

// ClassName implements descriptor.Remapper. Classes outside the mapped
// packages pass through unchanged; inside them an unknown class is an error.
func (t *Table) ClassName(internalName string) (string, error) {
	if !t.InMappedPackage(internalName) {
		return internalName, nil
	}
	if c, ok := t.Lookup(internalName); ok {
		return c.Name.Runtime, nil
	}
	return "", unknownClass(internalName)
}

// FieldName implements descriptor.Remapper.
func (t *Table) FieldName(owner, name string) string {
	c, ok := t.Lookup(owner)
	if !ok {
		return name
	}
	if f, err := t.FindField(c, name); err == nil {
		return f.Name.Runtime
	}
	return name
}

// MethodName implements descriptor.Remapper. Unresolvable methods keep
// their logical name so the weaving engine reports them instead.
func (t *Table) MethodName(owner string, m *descriptor.Method) string {
	c, ok := t.Lookup(owner)
	if !ok {
		return m.Name
	}
	found, _, err := t.FindMethod(c, m)
	if err != nil {
		return m.Name
	}
	return found.Name.Runtime
}

var _ descriptor.Remapper = (*Table)(nil)
