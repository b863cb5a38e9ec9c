package mapping

import "fmt"

// ResolveErrorKind enumerates symbol resolution failures.
type ResolveErrorKind uint8

const (
	// ErrUnknownClass indicates a class missing from the table (or, for an
	// unmapped class, missing from the runtime classpath).
	ErrUnknownClass ResolveErrorKind = iota + 1
	// ErrUnknownMember indicates no method or field matched.
	ErrUnknownMember
	// ErrAmbiguousMember indicates more than one overload matched.
	ErrAmbiguousMember
)

// ResolveError reports a failed lookup in the symbol mapping table.
type ResolveError struct {
	Kind   ResolveErrorKind
	Class  string // logical class name
	Member string // member reference as written, empty for class errors
	// Candidates holds the runtime descriptors of every match for
	// ErrAmbiguousMember.
	Candidates []string
}

func (e *ResolveError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case ErrUnknownClass:
		return fmt.Sprintf("unknown class %q", e.Class)
	case ErrUnknownMember:
		return fmt.Sprintf("unable to match %s in class %s", e.Member, e.Class)
	case ErrAmbiguousMember:
		return fmt.Sprintf("multiple methods match name %s in class %s, please provide a method descriptor", e.Member, e.Class)
	default:
		return fmt.Sprintf("resolve error kind=%d class=%s member=%s", e.Kind, e.Class, e.Member)
	}
}

func unknownClass(name string) error {
	return &ResolveError{Kind: ErrUnknownClass, Class: name}
}
