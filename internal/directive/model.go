package directive

import (
	"fmt"
	"strings"
)

// Kind enumerates the instrumentation directive kinds.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInject
	KindRedirect
	KindModifyArg
	KindModifyArgs
	KindModifyConstant
	KindModifyExpressionValue
	KindModifyReceiver
	KindModifyReturnValue
	KindModifyVariable
	KindWrapOperation
	KindWrapWithCondition
)

var kindNames = [...]string{
	KindInvalid:               "invalid",
	KindInject:                "inject",
	KindRedirect:              "redirect",
	KindModifyArg:             "modifyArg",
	KindModifyArgs:            "modifyArgs",
	KindModifyConstant:        "modifyConstant",
	KindModifyExpressionValue: "modifyExpressionValue",
	KindModifyReceiver:        "modifyReceiver",
	KindModifyReturnValue:     "modifyReturnValue",
	KindModifyVariable:        "modifyVariable",
	KindWrapOperation:         "wrapOperation",
	KindWrapWithCondition:     "wrapWithCondition",
}

// String returns the lower camel case name used in authoring files and in
// generated method names.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Annotation returns the simple name of the weaving engine annotation.
func (k Kind) Annotation() string {
	s := k.String()
	return strings.ToUpper(s[:1]) + s[1:]
}

// ParseKind accepts the authoring name case-insensitively.
func ParseKind(s string) (Kind, bool) {
	for k := KindInject; k <= KindWrapWithCondition; k++ {
		if strings.EqualFold(kindNames[k], s) {
			return k, true
		}
	}
	return KindInvalid, false
}

// Shift moves the injection point relative to the matched instruction.
type Shift uint8

const (
	ShiftNone Shift = iota
	ShiftBefore
	ShiftAfter
	ShiftBy
)

var shiftNames = [...]string{"NONE", "BEFORE", "AFTER", "BY"}

func (s Shift) String() string {
	if int(s) < len(shiftNames) {
		return shiftNames[s]
	}
	return fmt.Sprintf("Shift(%d)", uint8(s))
}

// ParseShift parses one of NONE, BEFORE, AFTER or BY.
func ParseShift(s string) (Shift, bool) {
	for i, name := range shiftNames {
		if strings.EqualFold(name, s) {
			return Shift(i), true
		}
	}
	return ShiftNone, false
}

// At selects an injection point inside the target method. Optional fields
// are pointers so that absent values are not emitted.
type At struct {
	Value   string
	ID      *string
	Slice   *string
	Shift   *Shift
	By      *int
	Args    []string
	Target  *string
	Ordinal *int
	Opcode  *int
	Remap   *bool
}

// Slice narrows the search range of an injector.
type Slice struct {
	ID   *string
	From *At
	To   *At
}

// Local requests a local variable of the target method. Print only dumps
// the local table; otherwise Type plus one of Index or Ordinal selects it.
type Local struct {
	Print   *bool
	Index   *int
	Ordinal *int
	Type    *string
	Mutable *bool
}

// IsMutable reports whether the local is captured by reference.
func (l Local) IsMutable() bool { return l.Mutable != nil && *l.Mutable }

// IsPrint reports whether the local is a print-only request.
func (l Local) IsPrint() bool { return l.Print != nil && *l.Print }

// Constant selects a constant load. Exactly one value field is set.
type Constant struct {
	NullValue            *bool
	IntValue             *int32
	FloatValue           *float32
	LongValue            *int64
	DoubleValue          *float64
	StringValue          *string
	ClassValue           *string
	Ordinal              *int
	Slice                *string
	ExpandZeroConditions []string
	Log                  *bool
}

// ZeroConditions accepted by Constant.ExpandZeroConditions.
var ZeroConditions = []string{
	"LESS_THAN_ZERO",
	"LESS_THAN_OR_EQUAL_TO_ZERO",
	"GREATER_THAN_OR_EQUAL_TO_ZERO",
	"GREATER_THAN_ZERO",
}

// Mixin describes one generated class and the class it is applied to.
type Mixin struct {
	Target   string
	Priority *int
	Remap    *bool
}

// Remaps reports whether names of the target must be mapped. Absent means
// true.
func (m Mixin) Remaps() bool { return m.Remap == nil || *m.Remap }

// Common holds fields shared by every directive kind.
type Common struct {
	ID          *string
	Remap       *bool
	Require     *int
	Expect      *int
	Allow       *int
	Constraints *string
}

// Directive is one instrumentation request. Kind selects which of the
// kind-specific fields are meaningful; Build enforces that.
type Directive struct {
	Kind   Kind
	Method string
	At     []At
	Slice  []Slice
	Locals []Local
	Common

	// Inject
	Cancellable *bool
	// ModifyArg
	Index            *int
	CaptureAllParams *bool
	// ModifyConstant, WrapOperation
	Constant *Constant
	// ModifyVariable
	Variable *Local
}

// SingleAt returns the only injection point of kinds that take exactly one.
func (d *Directive) SingleAt() *At {
	if len(d.At) == 0 {
		return nil
	}
	return &d.At[0]
}

// Describe renders a short human readable label such as "redirect tick()V".
func (d *Directive) Describe() string {
	return d.Kind.String() + " " + d.Method
}

// Widener requests access widening of one member of the mixin target.
type Widener struct {
	Member  string // field name, or method descriptor (full=false)
	Field   bool
	Mutable bool
}

// Group is a mixin together with the directives and wideners it owns.
type Group struct {
	Mixin      Mixin
	Directives []*Directive
	Wideners   []Widener
	// Source names the authoring file, used for diagnostics.
	Source string
}
