package trampoline

import (
	"fmt"
	"strings"

	"hookgen/internal/bytecode"
	"hookgen/internal/descriptor"
	"hookgen/internal/directive"
	"hookgen/internal/mapping"
	"hookgen/internal/signature"
)

// Annotator renders directive metadata in the weaving engine's annotation
// form. Member references are written in the runtime scheme.
type Annotator struct {
	table *mapping.Table
}

// NewAnnotator creates an annotator that remaps through table.
func NewAnnotator(table *mapping.Table) *Annotator {
	return &Annotator{table: table}
}

// Mixin builds the class annotation binding a generated class to target.
func (a *Annotator) Mixin(target *mapping.Class, m directive.Mixin) *bytecode.Annotation {
	ann := bytecode.NewAnnotation(MixinDesc).
		Set("targets", bytecode.Strings(target.Name.Runtime))
	if m.Priority != nil {
		ann.Set("priority", bytecode.Int(int64(*m.Priority)))
	}
	if m.Remap != nil {
		ann.Set("remap", bytecode.Bool(*m.Remap))
	}
	return ann
}

// Directive builds the kind annotation of one trampoline.
func (a *Annotator) Directive(sig *signature.Signature) (*bytecode.Annotation, error) {
	d := sig.Directive
	info, ok := kinds[d.Kind]
	if !ok {
		return nil, fmt.Errorf("no annotation for directive kind %s", d.Kind)
	}
	ann := bytecode.NewAnnotation(info.desc)
	if d.ID != nil {
		ann.Set("id", bytecode.String(*d.ID))
	}
	ann.Set("method", bytecode.Strings(sig.Target.FullDescriptor()))

	if len(d.Slice) > 0 {
		slices := make([]bytecode.Value, 0, len(d.Slice))
		for _, s := range d.Slice {
			sa, err := a.Slice(s)
			if err != nil {
				return nil, err
			}
			slices = append(slices, bytecode.Nested(sa))
		}
		if info.sliceArray {
			ann.Set("slice", bytecode.Array(slices...))
		} else {
			ann.Set("slice", slices[0])
		}
	}
	if len(d.At) > 0 {
		ats := make([]bytecode.Value, 0, len(d.At))
		for i := range d.At {
			aa, err := a.At(&d.At[i])
			if err != nil {
				return nil, err
			}
			ats = append(ats, bytecode.Nested(aa))
		}
		if info.atArray {
			ann.Set("at", bytecode.Array(ats...))
		} else {
			ann.Set("at", ats[0])
		}
	}

	switch d.Kind {
	case directive.KindInject:
		if d.Cancellable != nil {
			ann.Set("cancellable", bytecode.Bool(*d.Cancellable))
		}
	case directive.KindModifyArg:
		if d.Index != nil {
			ann.Set("index", bytecode.Int(int64(*d.Index)))
		}
	case directive.KindModifyVariable:
		if v := sig.Variable; v != nil {
			if v.Print != nil {
				ann.Set("print", bytecode.Bool(*v.Print))
			}
			if v.Ordinal != nil {
				ann.Set("ordinal", bytecode.Int(int64(*v.Ordinal)))
			}
			if v.Index != nil {
				ann.Set("index", bytecode.Int(int64(*v.Index)))
			}
		}
	case directive.KindModifyConstant, directive.KindWrapOperation:
		if d.Constant != nil {
			ca, err := a.Constant(d.Constant)
			if err != nil {
				return nil, err
			}
			ann.Set("constant", bytecode.Array(bytecode.Nested(ca)))
		}
	}

	if d.Remap != nil {
		ann.Set("remap", bytecode.Bool(*d.Remap))
	}
	if d.Require != nil {
		ann.Set("require", bytecode.Int(int64(*d.Require)))
	}
	if d.Expect != nil {
		ann.Set("expect", bytecode.Int(int64(*d.Expect)))
	}
	if d.Allow != nil {
		ann.Set("allow", bytecode.Int(int64(*d.Allow)))
	}
	if d.Constraints != nil {
		ann.Set("constraints", bytecode.String(*d.Constraints))
	}
	return ann, nil
}

// At renders an injection point. The target is rewritten to the runtime
// scheme when its kind carries a member reference.
func (a *Annotator) At(at *directive.At) (*bytecode.Annotation, error) {
	ann := bytecode.NewAnnotation(AtDesc)
	if at.ID != nil {
		ann.Set("id", bytecode.String(*at.ID))
	}
	ann.Set("value", bytecode.String(at.Value))
	if at.Slice != nil {
		ann.Set("slice", bytecode.String(*at.Slice))
	}
	if at.Shift != nil {
		ann.Set("shift", bytecode.Enum(ShiftDesc, at.Shift.String()))
	}
	if at.By != nil {
		ann.Set("by", bytecode.Int(int64(*at.By)))
	}
	if len(at.Args) > 0 {
		ann.Set("args", bytecode.Strings(at.Args...))
	}
	if at.Target != nil {
		target, err := a.atTarget(at)
		if err != nil {
			return nil, err
		}
		ann.Set("target", bytecode.String(target))
	}
	if at.Ordinal != nil {
		ann.Set("ordinal", bytecode.Int(int64(*at.Ordinal)))
	}
	if at.Opcode != nil {
		ann.Set("opcode", bytecode.Int(int64(*at.Opcode)))
	}
	if at.Remap != nil {
		ann.Set("remap", bytecode.Bool(*at.Remap))
	}
	return ann, nil
}

func (a *Annotator) atTarget(at *directive.At) (string, error) {
	t, err := at.ParseTarget()
	if err != nil {
		return "", err
	}
	var ref descriptor.Descriptor
	switch t.Kind {
	case directive.TargetInvoke:
		ref = t.Method
	case directive.TargetNew:
		ref = t.New
	case directive.TargetField:
		ref = t.Field
	default:
		return *at.Target, nil
	}
	mapped, err := ref.Mapped(a.table)
	if err != nil {
		return "", fmt.Errorf("at target %q: %w", *at.Target, err)
	}
	return mapped, nil
}

// Slice renders a slice with its nested boundaries.
func (a *Annotator) Slice(s directive.Slice) (*bytecode.Annotation, error) {
	ann := bytecode.NewAnnotation(SliceDesc)
	if s.ID != nil {
		ann.Set("id", bytecode.String(*s.ID))
	}
	for _, bound := range []struct {
		name string
		at   *directive.At
	}{{"from", s.From}, {"to", s.To}} {
		if bound.at == nil {
			continue
		}
		aa, err := a.At(bound.at)
		if err != nil {
			return nil, err
		}
		ann.Set(bound.name, bytecode.Nested(aa))
	}
	return ann, nil
}

// Constant renders a constant selector. A class value is written as the
// runtime class.
func (a *Annotator) Constant(c *directive.Constant) (*bytecode.Annotation, error) {
	ann := bytecode.NewAnnotation(ConstantDesc)
	if c.NullValue != nil {
		ann.Set("nullValue", bytecode.Bool(*c.NullValue))
	}
	if c.IntValue != nil {
		ann.Set("intValue", bytecode.Int(int64(*c.IntValue)))
	}
	if c.FloatValue != nil {
		ann.Set("floatValue", bytecode.Float(*c.FloatValue))
	}
	if c.LongValue != nil {
		ann.Set("longValue", bytecode.Long(*c.LongValue))
	}
	if c.DoubleValue != nil {
		ann.Set("doubleValue", bytecode.Double(*c.DoubleValue))
	}
	if c.StringValue != nil {
		ann.Set("stringValue", bytecode.String(*c.StringValue))
	}
	if c.ClassValue != nil {
		name, err := a.table.ClassName(strings.ReplaceAll(*c.ClassValue, ".", "/"))
		if err != nil {
			return nil, fmt.Errorf("constant classValue: %w", err)
		}
		ann.Set("classValue", bytecode.Type("L"+name+";"))
	}
	if c.Ordinal != nil {
		ann.Set("ordinal", bytecode.Int(int64(*c.Ordinal)))
	}
	if c.Slice != nil {
		ann.Set("slice", bytecode.String(*c.Slice))
	}
	if len(c.ExpandZeroConditions) > 0 {
		conds := make([]bytecode.Value, len(c.ExpandZeroConditions))
		for i, cond := range c.ExpandZeroConditions {
			conds[i] = bytecode.Enum(ConditionDesc, cond)
		}
		ann.Set("expandZeroConditions", bytecode.Array(conds...))
	}
	if c.Log != nil {
		ann.Set("log", bytecode.Bool(*c.Log))
	}
	return ann, nil
}

// Locals builds the per-parameter annotations of captured locals. It
// returns nil when the signature captures nothing.
func (a *Annotator) Locals(sig *signature.Signature) [][]*bytecode.Annotation {
	var out [][]*bytecode.Annotation
	for i, p := range sig.Params {
		if p.Local == nil {
			continue
		}
		if out == nil {
			out = make([][]*bytecode.Annotation, len(sig.Params))
		}
		ann := bytecode.NewAnnotation(LocalDesc)
		if p.Local.Print != nil {
			ann.Set("print", bytecode.Bool(*p.Local.Print))
		}
		if p.Local.Index != nil {
			ann.Set("index", bytecode.Int(int64(*p.Local.Index)))
		}
		if p.Local.Ordinal != nil {
			ann.Set("ordinal", bytecode.Int(int64(*p.Local.Ordinal)))
		}
		out[i] = []*bytecode.Annotation{ann}
	}
	return out
}
