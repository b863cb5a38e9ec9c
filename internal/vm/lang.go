package vm

import "fmt"

var langSupers = map[string]string{
	"java/lang/Number":    "java/lang/Object",
	"java/lang/Integer":   "java/lang/Number",
	"java/lang/Long":      "java/lang/Number",
	"java/lang/Float":     "java/lang/Number",
	"java/lang/Double":    "java/lang/Number",
	"java/lang/Byte":      "java/lang/Number",
	"java/lang/Short":     "java/lang/Number",
	"java/lang/Boolean":   "java/lang/Object",
	"java/lang/Character": "java/lang/Object",
	"java/lang/String":    "java/lang/Object",
	"java/lang/Class":     "java/lang/Object",
}

// registerLang installs the wrapper conversions used by trampolines.
func registerLang(m *Machine) {
	for desc, class := range boxClasses {
		m.RegisterNative(class, "valueOf", "("+desc+")L"+class+";", func(_ *Machine, args []Value) (Value, error) {
			return BoxValue(desc, args[0]), nil
		})
	}
	for _, desc := range []string{"I", "J", "F", "D", "B", "S"} {
		name := map[string]string{
			"I": "intValue", "J": "longValue", "F": "floatValue",
			"D": "doubleValue", "B": "byteValue", "S": "shortValue",
		}[desc]
		m.RegisterNative("java/lang/Number", name, "()"+desc, func(_ *Machine, args []Value) (Value, error) {
			b, ok := args[0].Ref.(*Box)
			if !ok {
				return Value{}, fmt.Errorf("Number.%s: receiver is %s", name, runtimeClass(args[0]))
			}
			return convert(b.Value, desc), nil
		})
	}
	m.RegisterNative("java/lang/Boolean", "booleanValue", "()Z", unwrap)
	m.RegisterNative("java/lang/Character", "charValue", "()C", unwrap)
	m.RegisterNative("java/lang/Object", "<init>", "()V", func(*Machine, []Value) (Value, error) {
		return Value{}, nil
	})
	m.RegisterNative("java/lang/String", "length", "()I", func(_ *Machine, args []Value) (Value, error) {
		return Int(int32(len([]rune(args[0].Ref.(string))))), nil
	})
}

func unwrap(_ *Machine, args []Value) (Value, error) {
	b, ok := args[0].Ref.(*Box)
	if !ok {
		return Value{}, fmt.Errorf("unbox: receiver is %s", runtimeClass(args[0]))
	}
	return b.Value, nil
}

// convert applies a primitive widening or narrowing conversion.
func convert(v Value, desc string) Value {
	var i int64
	var fl float64
	if v.Kind == KindFloat || v.Kind == KindDouble {
		fl, i = v.Float, int64(v.Float)
	} else {
		i, fl = v.Int, float64(v.Int)
	}
	switch desc {
	case "J":
		return Long(i)
	case "F":
		return Float(float32(fl))
	case "D":
		return Double(fl)
	case "B":
		return Int(int32(int8(i)))
	case "S":
		return Int(int32(int16(i)))
	case "C":
		return Int(int32(uint16(i)))
	default:
		return Int(int32(i))
	}
}
