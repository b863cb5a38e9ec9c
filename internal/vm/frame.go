// Package vm executes assembled methods. It runs generated trampolines
// against small host classes so their behavior can be checked without a
// real weaving engine.
package vm

import (
	"fmt"

	"hookgen/internal/bytecode"
)

// Kind tags a Value.
type Kind uint8

const (
	KindInt Kind = iota
	KindLong
	KindFloat
	KindDouble
	KindRef
)

// Value is one operand stack entry or local variable. Booleans, chars,
// bytes and shorts are ints, as in class files.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Ref   any
}

func Int(v int32) Value      { return Value{Kind: KindInt, Int: int64(v)} }
func Long(v int64) Value     { return Value{Kind: KindLong, Int: v} }
func Float(v float32) Value  { return Value{Kind: KindFloat, Float: float64(v)} }
func Double(v float64) Value { return Value{Kind: KindDouble, Float: v} }
func Ref(r any) Value        { return Value{Kind: KindRef, Ref: r} }
func Null() Value            { return Value{Kind: KindRef} }

// Bool encodes a boolean as an int.
func Bool(b bool) Value {
	if b {
		return Int(1)
	}
	return Int(0)
}

// IsNull reports whether v is the null reference.
func (v Value) IsNull() bool { return v.Kind == KindRef && v.Ref == nil }

// I32 returns the int payload truncated to 32 bits.
func (v Value) I32() int32 { return int32(v.Int) }

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindLong:
		return fmt.Sprintf("%dL", v.Int)
	case KindFloat:
		return fmt.Sprintf("%gf", v.Float)
	case KindDouble:
		return fmt.Sprintf("%gd", v.Float)
	default:
		if v.Ref == nil {
			return "null"
		}
		return fmt.Sprintf("%v", v.Ref)
	}
}

// Frame is the activation of one method.
type Frame struct {
	Method *bytecode.Method
	Locals []Value
	Stack  []Value
	SP     int
	PC     int
}

// NewFrame sizes a frame from the method's computed limits.
func NewFrame(m *bytecode.Method) *Frame {
	return &Frame{
		Method: m,
		Locals: make([]Value, m.MaxLocals),
		Stack:  make([]Value, m.MaxStack),
	}
}

// Push pushes a value onto the operand stack.
func (f *Frame) Push(v Value) {
	if f.SP >= len(f.Stack) {
		panic(fmt.Sprintf("operand stack overflow: SP=%d, max=%d", f.SP, len(f.Stack)))
	}
	f.Stack[f.SP] = v
	f.SP++
}

// Pop pops a value from the operand stack.
func (f *Frame) Pop() Value {
	if f.SP <= 0 {
		panic("operand stack underflow: SP=0")
	}
	f.SP--
	return f.Stack[f.SP]
}

// Peek returns the top of the operand stack.
func (f *Frame) Peek() Value {
	if f.SP <= 0 {
		panic("operand stack underflow: SP=0")
	}
	return f.Stack[f.SP-1]
}

// GetLocal returns the local at index.
func (f *Frame) GetLocal(index int) Value {
	if index < 0 || index >= len(f.Locals) {
		panic(fmt.Sprintf("local variable index out of range: index=%d, max=%d", index, len(f.Locals)))
	}
	return f.Locals[index]
}

// SetLocal stores v at index.
func (f *Frame) SetLocal(index int, v Value) {
	if index < 0 || index >= len(f.Locals) {
		panic(fmt.Sprintf("local variable index out of range: index=%d, max=%d", index, len(f.Locals)))
	}
	f.Locals[index] = v
}
