package directive

import (
	"fmt"
	"slices"
	"strings"

	"hookgen/internal/descriptor"
)

// ValidationError reports a malformed directive at construction time.
type ValidationError struct {
	Kind  Kind
	Field string
	Msg   string
	Err   error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var sb strings.Builder
	if e.Kind != KindInvalid {
		sb.WriteString(e.Kind.String())
		if e.Field != "" {
			sb.WriteByte('.')
		}
	}
	sb.WriteString(e.Field)
	if sb.Len() > 0 {
		sb.WriteString(": ")
	}
	sb.WriteString(e.Msg)
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *ValidationError) Unwrap() error { return e.Err }

type validator struct {
	kind Kind
	errs []error
}

func (v *validator) failf(field, format string, args ...any) {
	v.errs = append(v.errs, &ValidationError{Kind: v.kind, Field: field, Msg: fmt.Sprintf(format, args...)})
}

func (v *validator) wrap(field, msg string, err error) {
	v.errs = append(v.errs, &ValidationError{Kind: v.kind, Field: field, Msg: msg, Err: err})
}

// Validate checks d against the rules of its kind. It returns the first
// problem found; every problem is available through ValidateAll.
func Validate(d *Directive) error {
	if errs := ValidateAll(d); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// ValidateAll checks d and returns every problem found.
func ValidateAll(d *Directive) []error {
	v := &validator{kind: d.Kind}
	if d.Kind == KindInvalid || d.Kind > KindWrapWithCondition {
		v.failf("kind", "unknown directive kind")
		return v.errs
	}
	if strings.TrimSpace(d.Method) == "" {
		v.failf("method", "target method is required")
	} else if _, err := descriptor.ParseMethod(d.Method, false); err != nil {
		v.wrap("method", "malformed target method", err)
	}

	v.checkAts(d)
	v.checkSlices(d)
	v.checkKindFields(d)
	for i, l := range d.Locals {
		v.checkLocal(fmt.Sprintf("locals[%d]", i), l, "Local")
	}
	counts := []struct {
		name string
		n    *int
	}{{"require", d.Require}, {"expect", d.Expect}, {"allow", d.Allow}}
	for _, c := range counts {
		if c.n != nil && *c.n < 0 {
			v.failf(c.name, "must not be negative")
		}
	}
	return v.errs
}

func (v *validator) checkAts(d *Directive) {
	switch d.Kind {
	case KindInject:
		if len(d.At) == 0 {
			v.failf("at", "at least one injection point is required")
		}
	case KindModifyConstant:
		if len(d.At) != 0 {
			v.failf("at", "modifyConstant selects its point with constant, not at")
		}
	case KindWrapOperation:
		if len(d.At) > 1 {
			v.failf("at", "expects at most one injection point")
		}
		if len(d.At) == 0 {
			if d.Constant == nil {
				v.failf("at", "wrapOperation must specify either at or constant")
			} else if d.Constant.ClassValue == nil {
				v.failf("constant", "wrapOperation targeting INSTANCEOF must specify constant.classValue")
			}
		}
	default:
		if len(d.At) != 1 {
			v.failf("at", "expects exactly one injection point, got %d", len(d.At))
		}
	}
	for i := range d.At {
		v.checkAt(fmt.Sprintf("at[%d]", i), &d.At[i])
	}
}

func (v *validator) checkAt(field string, at *At) {
	if strings.TrimSpace(at.Value) == "" {
		v.failf(field+".value", "is required")
		return
	}
	if at.By != nil && (at.Shift == nil || *at.Shift != ShiftBy) {
		v.failf(field+".by", "requires shift = BY")
	}
	if _, err := at.ParseTarget(); err != nil {
		v.wrap(field+".target", "invalid target", err)
	}
	if at.Opcode != nil && !strings.EqualFold(at.Value, "FIELD") {
		v.failf(field+".opcode", "is only meaningful for FIELD")
	}
}

func (v *validator) checkSlices(d *Directive) {
	switch d.Kind {
	case KindRedirect, KindModifyArg, KindModifyArgs, KindModifyVariable:
		if len(d.Slice) > 1 {
			v.failf("slice", "expects at most one slice")
		}
	}
	for i, s := range d.Slice {
		if s.From != nil {
			v.checkAt(fmt.Sprintf("slice[%d].from", i), s.From)
		}
		if s.To != nil {
			v.checkAt(fmt.Sprintf("slice[%d].to", i), s.To)
		}
	}
}

func (v *validator) checkKindFields(d *Directive) {
	if d.Cancellable != nil && d.Kind != KindInject {
		v.failf("cancellable", "only valid for inject")
	}
	if d.Kind == KindModifyArg {
		if d.Index == nil {
			v.failf("index", "modifyArg requires an argument index")
		} else if *d.Index < 0 {
			v.failf("index", "must not be negative")
		}
	} else {
		if d.Index != nil {
			v.failf("index", "only valid for modifyArg")
		}
		if d.CaptureAllParams != nil {
			v.failf("captureAllParams", "only valid for modifyArg")
		}
	}
	switch d.Kind {
	case KindModifyConstant:
		if d.Constant == nil {
			v.failf("constant", "modifyConstant requires a constant")
		}
	case KindWrapOperation:
	default:
		if d.Constant != nil {
			v.failf("constant", "only valid for modifyConstant and wrapOperation")
		}
	}
	if d.Constant != nil {
		v.checkConstant(d.Constant)
	}
	if d.Kind == KindModifyVariable {
		if d.Variable == nil {
			v.failf("type", "modifyVariable must specify print, or type and either ordinal or index")
		} else {
			if d.Variable.Mutable != nil {
				v.failf("mutable", "modifyVariable cannot capture by reference")
			}
			v.checkLocal("variable", *d.Variable, "ModifyVariable")
		}
	} else if d.Variable != nil {
		v.failf("type", "print/index/ordinal/type are only valid for modifyVariable")
	}
}

func (v *validator) checkConstant(c *Constant) {
	switch c.valueCount() {
	case 1:
	case 0:
		v.failf("constant", "expects one value field")
	default:
		v.failf("constant", "expects exactly one value field, got %d", c.valueCount())
	}
	if c.NullValue != nil && !*c.NullValue {
		v.failf("constant.nullValue", "must be true when present")
	}
	if c.ClassValue != nil {
		if _, err := descriptor.NewObject("L" + strings.ReplaceAll(*c.ClassValue, ".", "/") + ";"); err != nil {
			v.wrap("constant.classValue", "invalid class name", err)
		}
	}
	for _, cond := range c.ExpandZeroConditions {
		if !slices.Contains(ZeroConditions, cond) {
			v.failf("constant.expandZeroConditions", "unknown condition %q", cond)
		}
	}
}

// checkLocal mirrors LocalType: print needs nothing else; a type needs
// exactly one of index or ordinal.
func (v *validator) checkLocal(field string, l Local, name string) {
	if _, err := LocalType(l, name); err != nil {
		v.wrap(field, "invalid local", err)
	}
}

// printType is the placeholder type of print-only locals; it is never applied.
var printType descriptor.Type = descriptor.Int

// LocalType returns the declared type of a captured local. name prefixes
// the error messages ("Local", "ModifyVariable").
func LocalType(l Local, name string) (descriptor.Type, error) {
	switch {
	case l.IsPrint():
		return printType, nil
	case l.Type != nil:
		if l.Index != nil {
			if l.Ordinal != nil {
				return nil, fmt.Errorf("%s that specifies a type and index cannot specify an ordinal", name)
			}
			if *l.Index < 0 {
				return nil, fmt.Errorf("%s index must not be negative", name)
			}
		} else if l.Ordinal == nil {
			return nil, fmt.Errorf("%s that specifies a type must also specify an index or ordinal", name)
		} else if *l.Ordinal < 0 {
			return nil, fmt.Errorf("%s ordinal must not be negative", name)
		}
		t, err := descriptor.ParseType(*l.Type)
		if err != nil {
			return nil, err
		}
		if t == descriptor.Void {
			return nil, fmt.Errorf("%s type cannot be void", name)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("%s must specify \"print\", or \"type\" and either \"ordinal\" or \"index\"", name)
	}
}

// ValidateMixin checks the mixin header.
func ValidateMixin(m Mixin) error {
	if strings.TrimSpace(m.Target) == "" {
		return &ValidationError{Field: "target", Msg: "mixin target is required"}
	}
	if _, err := descriptor.NewObject("L" + strings.ReplaceAll(m.Target, ".", "/") + ";"); err != nil {
		return &ValidationError{Field: "target", Msg: "invalid mixin target", Err: err}
	}
	return nil
}
