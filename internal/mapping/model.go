package mapping

import (
	"strings"

	"hookgen/internal/descriptor"
)

// Name pairs the logical (author-facing) name with the runtime name.
type Name struct {
	Logical string
	Runtime string
}

// Identity returns a Name whose runtime form equals the logical form.
func Identity(name string) Name { return Name{Logical: name, Runtime: name} }

// Class is one entry of the mapping table, keyed by its logical internal name.
type Class struct {
	Name    Name
	Fields  map[string]*Field
	Methods map[string][]*Method
	// Unmapped marks classes synthesized from the runtime classpath.
	Unmapped bool
}

func newClass(name Name) *Class {
	return &Class{
		Name:    name,
		Fields:  make(map[string]*Field),
		Methods: make(map[string][]*Method),
	}
}

// Field is a mapped field. Type holds descriptor text in both schemes.
type Field struct {
	Owner *Class
	Name  Name
	Type  Name
}

// Parameter is a mapped method parameter.
type Parameter struct {
	Name     Name
	Type     Name
	LVTIndex int
}

// Method is a mapped method overload.
type Method struct {
	Owner  *Class
	Name   Name
	Params []Parameter
	Return Name
}

// RuntimeDesc renders the method type in the runtime scheme.
func (m *Method) RuntimeDesc() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, p := range m.Params {
		sb.WriteString(p.Type.Runtime)
	}
	sb.WriteByte(')')
	sb.WriteString(m.Return.Runtime)
	return sb.String()
}

// LogicalDesc renders the method type in the logical scheme.
func (m *Method) LogicalDesc() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, p := range m.Params {
		sb.WriteString(p.Type.Logical)
	}
	sb.WriteByte(')')
	sb.WriteString(m.Return.Logical)
	return sb.String()
}

// FullDescriptor is the runtime name followed by the runtime method type,
// the form the weaving engine expects in a method selector.
func (m *Method) FullDescriptor() string {
	return m.Name.Runtime + m.RuntimeDesc()
}

// ParamTypes parses the logical parameter types.
func (m *Method) ParamTypes() ([]descriptor.Type, error) {
	out := make([]descriptor.Type, 0, len(m.Params))
	for _, p := range m.Params {
		t, err := descriptor.ParseType(p.Type.Logical)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// ReturnType parses the logical return type.
func (m *Method) ReturnType() (descriptor.Type, error) {
	return descriptor.ParseType(m.Return.Logical)
}

// matchesParams reports whether the logical parameter types equal params.
func (m *Method) matchesParams(params []descriptor.Type) bool {
	if len(m.Params) != len(params) {
		return false
	}
	for i, p := range m.Params {
		if p.Type.Logical != params[i].String() {
			return false
		}
	}
	return true
}

// normalizeClassName accepts "Lpkg/Name;", "pkg/Name" and "pkg.Name".
func normalizeClassName(name string) string {
	if strings.HasPrefix(name, "L") && strings.HasSuffix(name, ";") {
		name = name[1 : len(name)-1]
	}
	return strings.ReplaceAll(name, ".", "/")
}
