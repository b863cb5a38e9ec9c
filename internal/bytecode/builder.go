package bytecode

import (
	"fmt"

	"hookgen/internal/classpath"
	"hookgen/internal/descriptor"
)

// Label marks a jump target inside one method.
type Label int

// Builder assembles one method. All type operands are runtime descriptors;
// callers translate logical names before emitting.
type Builder struct {
	m      *Method
	labels int
	marked map[Label]bool
	err    error
}

// NewMethod starts a method with the given access, name and runtime
// descriptor.
func NewMethod(access classpath.Access, name, desc string) *Builder {
	return &Builder{
		m:      &Method{Access: access, Name: name, Desc: desc},
		marked: make(map[Label]bool),
	}
}

func (b *Builder) emit(insn Insn) *Builder {
	b.m.Code = append(b.m.Code, insn)
	return b
}

func (b *Builder) fail(format string, args ...any) *Builder {
	if b.err == nil {
		b.err = fmt.Errorf("%s%s: %s", b.m.Name, b.m.Desc, fmt.Sprintf(format, args...))
	}
	return b
}

// Op emits an instruction without operands.
func (b *Builder) Op(op Op) *Builder { return b.emit(Insn{Op: op}) }

// Ldc emits a constant load.
func (b *Builder) Ldc(c Const) *Builder { return b.emit(Insn{Op: OpLdc, Const: &c}) }

// LdcInt emits an int constant load.
func (b *Builder) LdcInt(v int) *Builder { return b.Ldc(Const{Kind: ConstInt, Int: int64(v)}) }

// Load emits the load of local slot for a value of runtime type desc.
func (b *Builder) Load(desc string, slot int) *Builder {
	return b.emit(Insn{Op: loadOp(desc), Var: slot})
}

// TypeInsn emits new, anewarray, checkcast or instanceof.
func (b *Builder) TypeInsn(op Op, internalName string) *Builder {
	switch op {
	case OpNew, OpAnewarray, OpCheckcast, OpInstanceof:
	default:
		return b.fail("%s is not a type instruction", op)
	}
	return b.emit(Insn{Op: op, Owner: internalName})
}

// Field emits a field access.
func (b *Builder) Field(op Op, owner, name, desc string) *Builder {
	if !op.IsField() {
		return b.fail("%s is not a field instruction", op)
	}
	return b.emit(Insn{Op: op, Owner: owner, Name: name, Desc: desc})
}

// Invoke emits a method invocation.
func (b *Builder) Invoke(op Op, owner, name, desc string, itf bool) *Builder {
	if !op.IsInvoke() {
		return b.fail("%s is not an invoke instruction", op)
	}
	return b.emit(Insn{Op: op, Owner: owner, Name: name, Desc: desc, Itf: itf || op == OpInvokeinterface})
}

// InvokeDynamic emits a late-bound call through bsm.
func (b *Builder) InvokeDynamic(name, desc string, bsm Handle, args ...Const) *Builder {
	return b.emit(Insn{Op: OpInvokedynamic, Name: name, Desc: desc, Bootstrap: &bsm, BootstrapArgs: args})
}

// NewLabel allocates a label.
func (b *Builder) NewLabel() Label {
	b.labels++
	return Label(b.labels)
}

// Jump emits a branch to l.
func (b *Builder) Jump(op Op, l Label) *Builder {
	if !op.IsJump() {
		return b.fail("%s is not a jump", op)
	}
	return b.emit(Insn{Op: op, Var: int(l)})
}

// Mark places l at the current position.
func (b *Builder) Mark(l Label) *Builder {
	if b.marked[l] {
		return b.fail("label %d placed twice", l)
	}
	b.marked[l] = true
	return b.emit(Insn{Op: OpLabel, Var: int(l)})
}

// Box converts the primitive on top of the stack to its wrapper object.
// References are left untouched.
func (b *Builder) Box(desc string) *Builder {
	w, ok := wrappers[desc]
	if !ok {
		if desc == "V" {
			return b.fail("cannot box void")
		}
		return b
	}
	return b.Invoke(OpInvokestatic, w.owner, "valueOf", "("+desc+")L"+w.owner+";", false)
}

// Unbox converts the object on top of the stack to runtime type desc:
// booleans and chars through their own wrapper, other primitives through
// Number, references by a checkcast. Void leaves the stack alone.
func (b *Builder) Unbox(desc string) *Builder {
	switch {
	case desc == "V":
		return b
	case desc == "Z" || desc == "C":
		w := wrappers[desc]
		b.TypeInsn(OpCheckcast, w.owner)
		return b.Invoke(OpInvokevirtual, w.owner, w.unbox, "()"+desc, false)
	case len(desc) == 1:
		w, ok := wrappers[desc]
		if !ok {
			return b.fail("cannot unbox %s", desc)
		}
		b.TypeInsn(OpCheckcast, "java/lang/Number")
		return b.Invoke(OpInvokevirtual, "java/lang/Number", w.unbox, "()"+desc, false)
	default:
		return b.TypeInsn(OpCheckcast, castName(desc))
	}
}

// Return emits the return instruction for runtime type desc.
func (b *Builder) Return(desc string) *Builder {
	return b.Op(returnOp(desc))
}

// Finish validates the code and computes the frame sizes.
func (b *Builder) Finish() (*Method, error) {
	if b.err != nil {
		return nil, b.err
	}
	for _, insn := range b.m.Code {
		if insn.Op.IsJump() && !b.marked[Label(insn.Var)] {
			return nil, fmt.Errorf("%s%s: jump to unplaced label %d", b.m.Name, b.m.Desc, insn.Var)
		}
	}
	maxStack, maxLocals, err := Frame(b.m)
	if err != nil {
		return nil, err
	}
	b.m.MaxStack, b.m.MaxLocals = maxStack, maxLocals
	return b.m, nil
}

type wrapper struct {
	owner string
	unbox string
}

var wrappers = map[string]wrapper{
	"Z": {"java/lang/Boolean", "booleanValue"},
	"C": {"java/lang/Character", "charValue"},
	"B": {"java/lang/Byte", "byteValue"},
	"S": {"java/lang/Short", "shortValue"},
	"I": {"java/lang/Integer", "intValue"},
	"F": {"java/lang/Float", "floatValue"},
	"J": {"java/lang/Long", "longValue"},
	"D": {"java/lang/Double", "doubleValue"},
}

// castName turns a type descriptor into a checkcast operand: the internal
// name for classes, the descriptor itself for arrays.
func castName(desc string) string {
	if len(desc) > 2 && desc[0] == 'L' && desc[len(desc)-1] == ';' {
		return desc[1 : len(desc)-1]
	}
	return desc
}

func loadOp(desc string) Op {
	switch desc {
	case "Z", "B", "C", "S", "I":
		return OpIload
	case "J":
		return OpLload
	case "F":
		return OpFload
	case "D":
		return OpDload
	default:
		return OpAload
	}
}

func returnOp(desc string) Op {
	switch desc {
	case "V":
		return OpReturn
	case "Z", "B", "C", "S", "I":
		return OpIreturn
	case "J":
		return OpLreturn
	case "F":
		return OpFreturn
	case "D":
		return OpDreturn
	default:
		return OpAreturn
	}
}

func width(desc string) int {
	if desc == "J" || desc == "D" {
		return 2
	}
	if desc == "V" {
		return 0
	}
	return 1
}

func methodWidths(desc string) (args int, ret int, err error) {
	params, r, err := descriptor.ParseMethodType(desc)
	if err != nil {
		return 0, 0, err
	}
	for _, p := range params {
		args += descriptor.Slots(p)
	}
	return args, width(r.String()), nil
}

// Frame computes the operand stack depth and local slot count of m by a
// linear walk. Code after an unconditional transfer resumes at the depth
// recorded by the jumps targeting the next label.
func Frame(m *Method) (maxStack, maxLocals int, err error) {
	argSlots, _, err := methodWidths(m.Desc)
	if err != nil {
		return 0, 0, fmt.Errorf("%s%s: %w", m.Name, m.Desc, err)
	}
	maxLocals = argSlots
	if !m.IsStatic() {
		maxLocals++
	}

	depth := 0
	reachable := true
	at := make(map[int]int)
	push := func(n int) {
		depth += n
		if depth > maxStack {
			maxStack = depth
		}
	}
	for i, insn := range m.Code {
		if insn.Op == OpLabel {
			if d, ok := at[insn.Var]; ok {
				depth, reachable = d, true
			}
			at[insn.Var] = depth
			continue
		}
		if !reachable {
			return 0, 0, fmt.Errorf("%s%s: unreachable instruction %d (%s)", m.Name, m.Desc, i, insn.Op)
		}
		var pop, add int
		switch insn.Op {
		case OpNop:
		case OpAconstNull, OpNew:
			add = 1
		case OpLdc:
			add = 1
			if insn.Const != nil && insn.Const.Wide() {
				add = 2
			}
		case OpIload, OpFload, OpAload, OpLload, OpDload:
			add = 1
			slots := 1
			if insn.Op == OpLload || insn.Op == OpDload {
				add, slots = 2, 2
			}
			if insn.Var+slots > maxLocals {
				maxLocals = insn.Var + slots
			}
		case OpAastore:
			pop = 3
		case OpPop:
			pop = 1
		case OpDup:
			add = 1
		case OpIfeq, OpIfne:
			pop = 1
		case OpGoto:
		case OpIreturn, OpFreturn, OpAreturn:
			pop = 1
		case OpLreturn, OpDreturn:
			pop = 2
		case OpReturn:
		case OpGetstatic:
			add = width(insn.Desc)
		case OpPutstatic:
			pop = width(insn.Desc)
		case OpGetfield:
			pop, add = 1, width(insn.Desc)
		case OpPutfield:
			pop = 1 + width(insn.Desc)
		case OpInvokevirtual, OpInvokespecial, OpInvokestatic, OpInvokeinterface, OpInvokedynamic:
			args, ret, err := methodWidths(insn.Desc)
			if err != nil {
				return 0, 0, fmt.Errorf("%s%s: instruction %d: %w", m.Name, m.Desc, i, err)
			}
			pop, add = args, ret
			if insn.Op != OpInvokestatic && insn.Op != OpInvokedynamic {
				pop++
			}
		case OpAnewarray, OpCheckcast, OpInstanceof:
			pop, add = 1, 1
		default:
			return 0, 0, fmt.Errorf("%s%s: unsupported opcode %s", m.Name, m.Desc, insn.Op)
		}
		if depth < pop {
			return 0, 0, fmt.Errorf("%s%s: stack underflow at instruction %d (%s)", m.Name, m.Desc, i, insn.Op)
		}
		depth -= pop
		push(add)
		if insn.Op.IsJump() {
			if d, ok := at[insn.Var]; ok && d != depth {
				return 0, 0, fmt.Errorf("%s%s: inconsistent stack depth at label %d", m.Name, m.Desc, insn.Var)
			}
			at[insn.Var] = depth
		}
		if insn.Op.IsReturn() {
			if depth != 0 {
				return 0, 0, fmt.Errorf("%s%s: %d values left on the stack at %s", m.Name, m.Desc, depth, insn.Op)
			}
			reachable = false
		}
		if insn.Op == OpGoto {
			reachable = false
		}
	}
	if reachable && len(m.Code) > 0 {
		return 0, 0, fmt.Errorf("%s%s: control falls off the end of the method", m.Name, m.Desc)
	}
	return maxStack, maxLocals, nil
}
