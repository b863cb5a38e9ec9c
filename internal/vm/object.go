package vm

import (
	"fmt"
	"sync"

	"fortio.org/safecast"
)

// Object is an instance of a host or generated class.
type Object struct {
	Class string

	mu     sync.Mutex
	fields map[string]Value
}

// NewObject allocates an instance of class with no fields set.
func NewObject(class string) *Object {
	return &Object{Class: class, fields: make(map[string]Value)}
}

// Field returns the named field; unset fields read as their zero value.
func (o *Object) Field(name, desc string) Value {
	o.mu.Lock()
	defer o.mu.Unlock()
	if v, ok := o.fields[name]; ok {
		return v
	}
	return Zero(desc)
}

// SetField stores the named field.
func (o *Object) SetField(name string, v Value) {
	o.mu.Lock()
	o.fields[name] = v
	o.mu.Unlock()
}

func (o *Object) String() string { return o.Class + "@" + fmt.Sprintf("%p", o) }

// Array is a reference array.
type Array struct {
	Elem     string
	Elements []Value
}

func (a *Array) String() string { return fmt.Sprintf("%s[%d]", a.Elem, len(a.Elements)) }

// Box is an instance of a primitive wrapper class.
type Box struct {
	Class string
	Value Value
}

func (b *Box) String() string { return b.Value.String() }

// ClassRef is the value of a class literal.
type ClassRef struct {
	Name string
}

// Lambda is a host-implemented object. Any interface or virtual call on it
// runs the function with the call's arguments, receiver excluded.
type Lambda func(args []Value) (Value, error)

// Char is a Java char as handed to dispatch handlers.
type Char uint16

// Zero returns the default value of a field of type desc.
func Zero(desc string) Value {
	switch desc {
	case "Z", "B", "C", "S", "I":
		return Int(0)
	case "J":
		return Long(0)
	case "F":
		return Float(0)
	case "D":
		return Double(0)
	default:
		return Null()
	}
}

var boxClasses = map[string]string{
	"Z": "java/lang/Boolean",
	"C": "java/lang/Character",
	"B": "java/lang/Byte",
	"S": "java/lang/Short",
	"I": "java/lang/Integer",
	"J": "java/lang/Long",
	"F": "java/lang/Float",
	"D": "java/lang/Double",
}

// BoxValue wraps a primitive of type desc. References come back unchanged.
func BoxValue(desc string, v Value) Value {
	class, ok := boxClasses[desc]
	if !ok {
		return v
	}
	return Ref(&Box{Class: class, Value: v})
}

// UnboxValue returns the primitive held by a wrapper, or v itself.
func UnboxValue(v Value) Value {
	if b, ok := v.Ref.(*Box); ok {
		return b.Value
	}
	return v
}

// ToGo converts a value into the form handed to dispatch handlers:
// wrappers become Go numbers, bools and Chars; other references pass
// through.
func ToGo(v Value) any {
	switch v.Kind {
	case KindInt:
		return int32(v.Int)
	case KindLong:
		return v.Int
	case KindFloat:
		return float32(v.Float)
	case KindDouble:
		return v.Float
	}
	b, ok := v.Ref.(*Box)
	if !ok {
		return v.Ref
	}
	switch b.Class {
	case "java/lang/Boolean":
		return b.Value.Int != 0
	case "java/lang/Character":
		return Char(b.Value.Int)
	case "java/lang/Byte":
		return int8(b.Value.Int)
	case "java/lang/Short":
		return int16(b.Value.Int)
	default:
		return ToGo(b.Value)
	}
}

// FromGo converts a handler result back into a reference value. Go
// numbers, bools and Chars become wrappers; a plain int becomes an Integer.
func FromGo(x any) (Value, error) {
	switch x := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case bool:
		return BoxValue("Z", Bool(x)), nil
	case Char:
		return BoxValue("C", Int(int32(x))), nil
	case int32:
		return BoxValue("I", Int(x)), nil
	case int:
		i, err := safecast.Conv[int32](x)
		if err != nil {
			return Value{}, err
		}
		return BoxValue("I", Int(i)), nil
	case int8:
		return BoxValue("B", Int(int32(x))), nil
	case int16:
		return BoxValue("S", Int(int32(x))), nil
	case int64:
		return BoxValue("J", Long(x)), nil
	case float32:
		return BoxValue("F", Float(x)), nil
	case float64:
		return BoxValue("D", Double(x)), nil
	case string, *Object, *Array, *Box, *ClassRef, Lambda:
		return Ref(x), nil
	default:
		return Value{}, fmt.Errorf("cannot convert %T to a reference", x)
	}
}
