package descriptor

import (
	"fmt"
	"strings"
)

// Descriptor is any node produced by the parser.
type Descriptor interface {
	// IsType reports whether the descriptor can occupy a value slot
	// (parameter, return, field or local type).
	IsType() bool
	// String renders the descriptor in the logical naming scheme.
	String() string
	// Mapped renders the descriptor in the runtime naming scheme.
	Mapped(r Remapper) (string, error)
}

// Type is a value type: Primitive, Object or Array.
type Type interface {
	Descriptor
	valueType()
}

// Primitive is one of the nine primitive descriptor letters.
type Primitive byte

const (
	Void    Primitive = 'V'
	Boolean Primitive = 'Z'
	Char    Primitive = 'C'
	Byte    Primitive = 'B'
	Short   Primitive = 'S'
	Int     Primitive = 'I'
	Float   Primitive = 'F'
	Long    Primitive = 'J'
	Double  Primitive = 'D'
)

const primitiveLetters = "VZCBSIFJD"

// PrimitiveFor returns the primitive denoted by letter.
func PrimitiveFor(letter byte) (Primitive, bool) {
	if strings.IndexByte(primitiveLetters, letter) < 0 {
		return 0, false
	}
	return Primitive(letter), true
}

func (p Primitive) IsType() bool { return true }
func (p Primitive) String() string {
	return string(rune(p))
}
func (p Primitive) Mapped(Remapper) (string, error) { return p.String(), nil }
func (p Primitive) valueType()                     {}

// Wide reports whether the primitive occupies two local slots.
func (p Primitive) Wide() bool {
	return p == Long || p == Double
}

// Name returns the source-level keyword of the primitive.
func (p Primitive) Name() string {
	switch p {
	case Void:
		return "void"
	case Boolean:
		return "boolean"
	case Char:
		return "char"
	case Byte:
		return "byte"
	case Short:
		return "short"
	case Int:
		return "int"
	case Float:
		return "float"
	case Long:
		return "long"
	case Double:
		return "double"
	default:
		return "unknown"
	}
}

// Object is a class type. It stores the internal name ("java/lang/String").
type Object struct {
	name string
}

// NewObject builds an Object from its descriptor form ("Ljava/lang/String;").
// Primitive, array, method-shaped and field-shaped strings are rejected.
func NewObject(desc string) (Object, error) {
	if len(desc) == 1 {
		if _, ok := PrimitiveFor(desc[0]); ok {
			return Object{}, fmt.Errorf("cannot build an object type from primitive %q", desc)
		}
	}
	if strings.HasPrefix(desc, "[") {
		return Object{}, fmt.Errorf("cannot build an object type from array %q", desc)
	}
	if strings.ContainsAny(desc, "()") {
		return Object{}, fmt.Errorf("cannot build an object type from method descriptor %q", desc)
	}
	if strings.Contains(desc, ":") {
		return Object{}, fmt.Errorf("cannot build an object type from field descriptor %q", desc)
	}
	if len(desc) < 3 || desc[0] != 'L' || desc[len(desc)-1] != ';' {
		return Object{}, fmt.Errorf("malformed object descriptor %q", desc)
	}
	return Object{name: desc[1 : len(desc)-1]}, nil
}

// ObjectOf builds an Object from an internal or dotted class name.
func ObjectOf(name string) Object {
	return Object{name: strings.ReplaceAll(name, ".", "/")}
}

// InternalName returns the slash-separated class name.
func (o Object) InternalName() string { return o.name }

func (o Object) IsType() bool   { return true }
func (o Object) String() string { return "L" + o.name + ";" }
func (o Object) valueType()     {}

func (o Object) Mapped(r Remapper) (string, error) {
	name, err := remapper(r).ClassName(o.name)
	if err != nil {
		return "", err
	}
	return "L" + name + ";", nil
}

// Array is an array type with a non-array base.
type Array struct {
	Base Type
	Dims int
}

// ArrayOf wraps base into dims more dimensions, flattening nested arrays.
func ArrayOf(base Type, dims int) Array {
	if inner, ok := base.(Array); ok {
		return Array{Base: inner.Base, Dims: inner.Dims + dims}
	}
	return Array{Base: base, Dims: dims}
}

func (a Array) IsType() bool { return true }
func (a Array) String() string {
	return strings.Repeat("[", a.Dims) + a.Base.String()
}
func (a Array) valueType() {}

func (a Array) Mapped(r Remapper) (string, error) {
	base, err := a.Base.Mapped(r)
	if err != nil {
		return "", err
	}
	return strings.Repeat("[", a.Dims) + base, nil
}

// Field references a field, optionally qualified by owner and type.
type Field struct {
	Owner *Object
	Name  string
	Type  Type
}

func (f *Field) IsType() bool { return false }

func (f *Field) String() string {
	var sb strings.Builder
	if f.Owner != nil {
		sb.WriteString(f.Owner.String())
	}
	sb.WriteString(f.Name)
	if f.Type != nil {
		sb.WriteByte(':')
		sb.WriteString(f.Type.String())
	}
	return sb.String()
}

func (f *Field) Mapped(r Remapper) (string, error) {
	if f.Owner == nil {
		return "", fmt.Errorf("cannot build runtime descriptor from incomplete field descriptor %q", f.String())
	}
	r = remapper(r)
	owner, err := f.Owner.Mapped(r)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString(owner)
	sb.WriteString(r.FieldName(f.Owner.InternalName(), f.Name))
	if f.Type != nil {
		typ, err := f.Type.Mapped(r)
		if err != nil {
			return "", err
		}
		sb.WriteByte(':')
		sb.WriteString(typ)
	}
	return sb.String(), nil
}

// Method references a method. Params and Return are either both set or both nil.
type Method struct {
	Owner  *Object
	Name   string
	Params []Type
	Return Type
}

// HasSignature reports whether the parameter list and return type were given.
func (m *Method) HasSignature() bool {
	return m.Return != nil
}

// Signature renders "(params)ret" or "" when the signature is omitted.
func (m *Method) Signature() string {
	if !m.HasSignature() {
		return ""
	}
	return renderParams(m.Params) + m.Return.String()
}

func (m *Method) IsType() bool { return false }

func (m *Method) String() string {
	var sb strings.Builder
	if m.Owner != nil {
		sb.WriteString(m.Owner.String())
	}
	sb.WriteString(m.Name)
	sb.WriteString(m.Signature())
	return sb.String()
}

func (m *Method) Mapped(r Remapper) (string, error) {
	if m.Owner == nil {
		return "", fmt.Errorf("cannot build runtime descriptor from incomplete method descriptor %q", m.String())
	}
	r = remapper(r)
	owner, err := m.Owner.Mapped(r)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString(owner)
	sb.WriteString(r.MethodName(m.Owner.InternalName(), m))
	if m.HasSignature() {
		sig, err := mappedSignature(r, m.Params, m.Return)
		if err != nil {
			return "", err
		}
		sb.WriteString(sig)
	}
	return sb.String(), nil
}

// Constructor references an object construction ("NEW" target).
type Constructor struct {
	Params []Type
	Type   Object
	// HasParams distinguishes "()Lx;" from a bare "Lx;".
	HasParams bool
}

func (c *Constructor) IsType() bool { return false }

func (c *Constructor) String() string {
	if !c.HasParams {
		return c.Type.String()
	}
	return renderParams(c.Params) + c.Type.String()
}

func (c *Constructor) Mapped(r Remapper) (string, error) {
	r = remapper(r)
	typ, err := c.Type.Mapped(r)
	if err != nil {
		return "", err
	}
	if !c.HasParams {
		return typ, nil
	}
	var sb strings.Builder
	sb.WriteByte('(')
	for _, p := range c.Params {
		s, err := p.Mapped(r)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	sb.WriteByte(')')
	sb.WriteString(typ)
	return sb.String(), nil
}

// MethodType renders a bare method type "(params)ret".
func MethodType(params []Type, ret Type) string {
	return renderParams(params) + ret.String()
}

// MappedMethodType renders a bare method type in the runtime scheme.
func MappedMethodType(r Remapper, params []Type, ret Type) (string, error) {
	return mappedSignature(remapper(r), params, ret)
}

// Slots returns the number of local slots occupied by t.
func Slots(t Type) int {
	if p, ok := t.(Primitive); ok && p.Wide() {
		return 2
	}
	return 1
}

func renderParams(params []Type) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, p := range params {
		sb.WriteString(p.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

func mappedSignature(r Remapper, params []Type, ret Type) (string, error) {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, p := range params {
		s, err := p.Mapped(r)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	sb.WriteByte(')')
	s, err := ret.Mapped(r)
	if err != nil {
		return "", err
	}
	sb.WriteString(s)
	return sb.String(), nil
}
