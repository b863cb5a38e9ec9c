package descriptor

// Remapper translates logical names into runtime names.
type Remapper interface {
	// ClassName maps an internal class name. Classes outside the mapped
	// packages come back unchanged.
	ClassName(internalName string) (string, error)
	// FieldName maps a field of owner, falling back to name when unmapped.
	FieldName(owner, name string) string
	// MethodName maps a method of owner, falling back to m.Name when unmapped.
	MethodName(owner string, m *Method) string
}

// Identity leaves every name untouched.
var Identity Remapper = identity{}

type identity struct{}

func (identity) ClassName(name string) (string, error) { return name, nil }
func (identity) FieldName(_, name string) string       { return name }
func (identity) MethodName(_ string, m *Method) string { return m.Name }

func remapper(r Remapper) Remapper {
	if r == nil {
		return Identity
	}
	return r
}
