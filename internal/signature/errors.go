package signature

import "fmt"

// ErrorKind classifies signature computation failures.
type ErrorKind uint8

const (
	// ErrInvalidLocationForKind: the injection point cannot be used with the
	// directive kind (e.g. wrapWithCondition on a field read).
	ErrInvalidLocationForKind ErrorKind = iota + 1
	// ErrOutOfBoundsIndex: modifyArg index beyond the call's arity.
	ErrOutOfBoundsIndex
	// ErrVoidReturnIncompatible: a value capture of something void.
	ErrVoidReturnIncompatible
	// ErrInvalidLocal: a captured local could not be typed or located.
	ErrInvalidLocal
	// ErrMissingOpcode: a FIELD injection point needs an opcode for this kind.
	ErrMissingOpcode
)

func (k ErrorKind) String() string {
	switch k {
	case ErrInvalidLocationForKind:
		return "invalid location"
	case ErrOutOfBoundsIndex:
		return "index out of bounds"
	case ErrVoidReturnIncompatible:
		return "void incompatible"
	case ErrInvalidLocal:
		return "invalid local"
	case ErrMissingOpcode:
		return "missing opcode"
	default:
		return fmt.Sprintf("ErrorKind(%d)", uint8(k))
	}
}

// Error reports a directive whose signature cannot be computed.
type Error struct {
	Kind      ErrorKind
	Directive string // "redirect tick()V"
	Msg       string
	Err       error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Msg
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Directive == "" {
		return msg
	}
	return e.Directive + ": " + msg
}

func (e *Error) Unwrap() error { return e.Err }
