package bytecode

import (
	"fmt"
	"strconv"
	"strings"

	"hookgen/internal/classpath"
)

// ValueKind tags an annotation element value.
type ValueKind uint8

const (
	ValBool ValueKind = iota
	ValInt
	ValLong
	ValFloat
	ValDouble
	ValString
	ValType
	ValEnum
	ValAnnotation
	ValArray
)

// Value is an annotation element value.
type Value struct {
	Kind ValueKind `msgpack:"k"`
	Bool bool      `msgpack:"b,omitempty"`
	Int  int64     `msgpack:"i,omitempty"`
	// Float holds float and double values.
	Float float64 `msgpack:"f,omitempty"`
	// Str holds strings, type descriptors and enum constant names.
	Str        string      `msgpack:"s,omitempty"`
	EnumType   string      `msgpack:"e,omitempty"`
	Annotation *Annotation `msgpack:"a,omitempty"`
	Array      []Value     `msgpack:"arr,omitempty"`
}

func Bool(v bool) Value          { return Value{Kind: ValBool, Bool: v} }
func Int(v int64) Value          { return Value{Kind: ValInt, Int: v} }
func Long(v int64) Value         { return Value{Kind: ValLong, Int: v} }
func Float(v float32) Value      { return Value{Kind: ValFloat, Float: float64(v)} }
func Double(v float64) Value     { return Value{Kind: ValDouble, Float: v} }
func String(v string) Value      { return Value{Kind: ValString, Str: v} }
func Type(desc string) Value     { return Value{Kind: ValType, Str: desc} }
func Nested(a *Annotation) Value { return Value{Kind: ValAnnotation, Annotation: a} }

// Enum builds an enum constant value; typ is the enum's type descriptor.
func Enum(typ, name string) Value { return Value{Kind: ValEnum, EnumType: typ, Str: name} }

// Array builds an array value.
func Array(vs ...Value) Value { return Value{Kind: ValArray, Array: vs} }

// Strings builds an array of strings.
func Strings(ss ...string) Value {
	vs := make([]Value, len(ss))
	for i, s := range ss {
		vs[i] = String(s)
	}
	return Array(vs...)
}

func (v Value) String() string {
	switch v.Kind {
	case ValBool:
		return strconv.FormatBool(v.Bool)
	case ValInt:
		return strconv.FormatInt(v.Int, 10)
	case ValLong:
		return strconv.FormatInt(v.Int, 10) + "L"
	case ValFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 32) + "f"
	case ValDouble:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case ValString:
		return strconv.Quote(v.Str)
	case ValType:
		return v.Str + ".class"
	case ValEnum:
		return v.EnumType + "." + v.Str
	case ValAnnotation:
		return v.Annotation.String()
	case ValArray:
		parts := make([]string, len(v.Array))
		for i, e := range v.Array {
			parts[i] = e.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("value(%d)", v.Kind)
	}
}

// Element is a named annotation value.
type Element struct {
	Name  string `msgpack:"n"`
	Value Value  `msgpack:"v"`
}

// Annotation is a runtime-visible annotation. Elements keep insertion order.
type Annotation struct {
	Desc     string    `msgpack:"desc"`
	Elements []Element `msgpack:"el,omitempty"`
}

// NewAnnotation creates an annotation of the given type descriptor.
func NewAnnotation(desc string) *Annotation {
	return &Annotation{Desc: desc}
}

// Set appends or replaces the element name.
func (a *Annotation) Set(name string, v Value) *Annotation {
	for i := range a.Elements {
		if a.Elements[i].Name == name {
			a.Elements[i].Value = v
			return a
		}
	}
	a.Elements = append(a.Elements, Element{Name: name, Value: v})
	return a
}

// Get returns the element name.
func (a *Annotation) Get(name string) (Value, bool) {
	for _, e := range a.Elements {
		if e.Name == name {
			return e.Value, true
		}
	}
	return Value{}, false
}

func (a *Annotation) String() string {
	if a == nil {
		return "<nil>"
	}
	var sb strings.Builder
	sb.WriteByte('@')
	sb.WriteString(a.Desc)
	if len(a.Elements) > 0 {
		sb.WriteByte('(')
		for i, e := range a.Elements {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(e.Name)
			sb.WriteByte('=')
			sb.WriteString(e.Value.String())
		}
		sb.WriteByte(')')
	}
	return sb.String()
}

// Method is an assembled method.
type Method struct {
	Access      classpath.Access `msgpack:"access"`
	Name        string           `msgpack:"name"`
	Desc        string           `msgpack:"desc"`
	Annotations []*Annotation    `msgpack:"ann,omitempty"`
	// ParamAnnotations is indexed by parameter; entries may be empty.
	ParamAnnotations [][]*Annotation `msgpack:"pann,omitempty"`
	Code             []Insn          `msgpack:"code"`
	MaxStack         int             `msgpack:"max_stack"`
	MaxLocals        int             `msgpack:"max_locals"`
}

// IsStatic reports whether the method has no receiver.
func (m *Method) IsStatic() bool { return m.Access.Has(classpath.AccStatic) }

// Annotation returns the first method annotation of type desc.
func (m *Method) Annotation(desc string) *Annotation {
	for _, a := range m.Annotations {
		if a.Desc == desc {
			return a
		}
	}
	return nil
}

// Class is an assembled class.
type Class struct {
	Name        string           `msgpack:"name"`
	Super       string           `msgpack:"super"`
	Access      classpath.Access `msgpack:"access"`
	Annotations []*Annotation    `msgpack:"ann,omitempty"`
	Methods     []*Method        `msgpack:"methods"`
}

// Method finds a method by name and descriptor.
func (c *Class) Method(name, desc string) *Method {
	for _, m := range c.Methods {
		if m.Name == name && (desc == "" || m.Desc == desc) {
			return m
		}
	}
	return nil
}
