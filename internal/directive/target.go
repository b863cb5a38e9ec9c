package directive

import (
	"fmt"
	"strings"

	"hookgen/internal/descriptor"
)

// Field access opcodes accepted by At.Opcode.
const (
	OpGetStatic = 178
	OpPutStatic = 179
	OpGetField  = 180
	OpPutField  = 181
)

// TargetKind classifies what an At points to.
type TargetKind uint8

const (
	// TargetNone covers HEAD, RETURN, TAIL and every other value whose
	// target is not a member reference.
	TargetNone TargetKind = iota
	TargetInvoke
	TargetNew
	TargetField
	TargetConstant
)

func (k TargetKind) String() string {
	switch k {
	case TargetInvoke:
		return "INVOKE"
	case TargetNew:
		return "NEW"
	case TargetField:
		return "FIELD"
	case TargetConstant:
		return "CONSTANT"
	default:
		return "NONE"
	}
}

// AtTarget is the parsed form of At.Target / At.Args.
type AtTarget struct {
	Kind   TargetKind
	Method *descriptor.Method      // TargetInvoke
	New    *descriptor.Constructor // TargetNew
	Field  *descriptor.Field       // TargetField
	// HasOpcode reports whether IsGet and IsStatic are known (FIELD only).
	HasOpcode bool
	IsGet     bool
	IsStatic  bool
	// ConstKey and ConstType describe a CONSTANT target, e.g. intValue / I.
	ConstKey  string
	ConstType descriptor.Type
}

// ParseTarget parses the member reference of the injection point.
func (a *At) ParseTarget() (*AtTarget, error) {
	switch strings.ToUpper(a.Value) {
	case "INVOKE", "INVOKE_ASSIGN":
		if a.Target == nil {
			return nil, fmt.Errorf("At targeting INVOKE expects its target to be a method descriptor")
		}
		m, err := descriptor.ParseMethod(*a.Target, true)
		if err != nil {
			return nil, err
		}
		return &AtTarget{Kind: TargetInvoke, Method: m}, nil
	case "NEW":
		if a.Target == nil {
			return nil, fmt.Errorf("At targeting NEW expects its target to be a constructor descriptor")
		}
		c, err := descriptor.ParseConstructor(*a.Target, true)
		if err != nil {
			return nil, err
		}
		return &AtTarget{Kind: TargetNew, New: c}, nil
	case "FIELD":
		if a.Target == nil {
			return nil, fmt.Errorf("At targeting FIELD expects its target to be a field descriptor")
		}
		f, err := descriptor.ParseField(*a.Target, true)
		if err != nil {
			return nil, err
		}
		t := &AtTarget{Kind: TargetField, Field: f}
		if a.Opcode != nil {
			switch *a.Opcode {
			case OpGetField, OpGetStatic, OpPutField, OpPutStatic:
			default:
				return nil, fmt.Errorf("At targeting FIELD expects its opcode to be one of: GETFIELD, GETSTATIC, PUTFIELD, PUTSTATIC (got %d)", *a.Opcode)
			}
			t.HasOpcode = true
			t.IsGet = *a.Opcode == OpGetField || *a.Opcode == OpGetStatic
			t.IsStatic = *a.Opcode == OpGetStatic || *a.Opcode == OpPutStatic
		}
		return t, nil
	case "CONSTANT":
		if len(a.Args) == 0 {
			return nil, fmt.Errorf("At targeting CONSTANT requires args")
		}
		for _, arg := range a.Args {
			key, value, _ := strings.Cut(arg, "=")
			typ, ok, err := constantArgType(key, value)
			if err != nil {
				return nil, err
			}
			if ok {
				return &AtTarget{Kind: TargetConstant, ConstKey: key, ConstType: typ}, nil
			}
		}
		return nil, fmt.Errorf("At targeting CONSTANT expects a typeValue arg")
	default:
		return &AtTarget{Kind: TargetNone}, nil
	}
}

var (
	objectType = descriptor.ObjectOf("java/lang/Object")
	stringType = descriptor.ObjectOf("java/lang/String")
	classType  = descriptor.ObjectOf("java/lang/Class")
)

func constantArgType(key, value string) (descriptor.Type, bool, error) {
	switch key {
	case "null", "nullValue":
		return objectType, true, nil
	case "intValue":
		return descriptor.Int, true, nil
	case "floatValue":
		return descriptor.Float, true, nil
	case "longValue":
		return descriptor.Long, true, nil
	case "doubleValue":
		return descriptor.Double, true, nil
	case "stringValue":
		return stringType, true, nil
	case "classValue":
		obj, err := descriptor.NewObject("L" + strings.ReplaceAll(value, ".", "/") + ";")
		if err != nil {
			return nil, false, fmt.Errorf("CONSTANT classValue: %w", err)
		}
		return obj, true, nil
	default:
		return nil, false, nil
	}
}

// Type returns the type of the selected constant.
func (c *Constant) Type() (descriptor.Type, error) {
	switch {
	case c.NullValue != nil:
		return objectType, nil
	case c.IntValue != nil:
		return descriptor.Int, nil
	case c.FloatValue != nil:
		return descriptor.Float, nil
	case c.LongValue != nil:
		return descriptor.Long, nil
	case c.DoubleValue != nil:
		return descriptor.Double, nil
	case c.StringValue != nil:
		return stringType, nil
	case c.ClassValue != nil:
		return classType, nil
	default:
		return nil, fmt.Errorf("constant expects one value field")
	}
}

func (c *Constant) valueCount() int {
	n := 0
	for _, set := range []bool{
		c.NullValue != nil, c.IntValue != nil, c.FloatValue != nil, c.LongValue != nil,
		c.DoubleValue != nil, c.StringValue != nil, c.ClassValue != nil,
	} {
		if set {
			n++
		}
	}
	return n
}
