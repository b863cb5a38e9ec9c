package bytecode

import "fmt"

// Op is an instruction opcode. Values follow the class-file encoding so that
// disassembly reads like javap output; OpLabel is a pseudo instruction.
type Op uint8

const (
	OpNop             Op = 0x00
	OpAconstNull      Op = 0x01
	OpLdc             Op = 0x12
	OpIload           Op = 0x15
	OpLload           Op = 0x16
	OpFload           Op = 0x17
	OpDload           Op = 0x18
	OpAload           Op = 0x19
	OpAastore         Op = 0x53
	OpPop             Op = 0x57
	OpDup             Op = 0x59
	OpIfeq            Op = 0x99
	OpIfne            Op = 0x9A
	OpGoto            Op = 0xA7
	OpIreturn         Op = 0xAC
	OpLreturn         Op = 0xAD
	OpFreturn         Op = 0xAE
	OpDreturn         Op = 0xAF
	OpAreturn         Op = 0xB0
	OpReturn          Op = 0xB1
	OpGetstatic       Op = 0xB2
	OpPutstatic       Op = 0xB3
	OpGetfield        Op = 0xB4
	OpPutfield        Op = 0xB5
	OpInvokevirtual   Op = 0xB6
	OpInvokespecial   Op = 0xB7
	OpInvokestatic    Op = 0xB8
	OpInvokeinterface Op = 0xB9
	OpInvokedynamic   Op = 0xBA
	OpNew             Op = 0xBB
	OpAnewarray       Op = 0xBD
	OpCheckcast       Op = 0xC0
	OpInstanceof      Op = 0xC1
	OpLabel           Op = 0xFF
)

var opNames = map[Op]string{
	OpNop:             "nop",
	OpAconstNull:      "aconst_null",
	OpLdc:             "ldc",
	OpIload:           "iload",
	OpLload:           "lload",
	OpFload:           "fload",
	OpDload:           "dload",
	OpAload:           "aload",
	OpAastore:         "aastore",
	OpPop:             "pop",
	OpDup:             "dup",
	OpIfeq:            "ifeq",
	OpIfne:            "ifne",
	OpGoto:            "goto",
	OpIreturn:         "ireturn",
	OpLreturn:         "lreturn",
	OpFreturn:         "freturn",
	OpDreturn:         "dreturn",
	OpAreturn:         "areturn",
	OpReturn:          "return",
	OpGetstatic:       "getstatic",
	OpPutstatic:       "putstatic",
	OpGetfield:        "getfield",
	OpPutfield:        "putfield",
	OpInvokevirtual:   "invokevirtual",
	OpInvokespecial:   "invokespecial",
	OpInvokestatic:    "invokestatic",
	OpInvokeinterface: "invokeinterface",
	OpInvokedynamic:   "invokedynamic",
	OpNew:             "new",
	OpAnewarray:       "anewarray",
	OpCheckcast:       "checkcast",
	OpInstanceof:      "instanceof",
	OpLabel:           "label",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("op(0x%02x)", uint8(o))
}

// IsInvoke reports whether o is one of the member invocation opcodes.
func (o Op) IsInvoke() bool {
	return o >= OpInvokevirtual && o <= OpInvokeinterface
}

// IsField reports whether o accesses a field.
func (o Op) IsField() bool {
	return o >= OpGetstatic && o <= OpPutfield
}

// IsReturn reports whether o leaves the method.
func (o Op) IsReturn() bool {
	return o >= OpIreturn && o <= OpReturn
}

// IsJump reports whether o transfers control to a label.
func (o Op) IsJump() bool {
	return o == OpIfeq || o == OpIfne || o == OpGoto
}

// ConstKind tags a loadable constant.
type ConstKind uint8

const (
	ConstInt ConstKind = iota
	ConstLong
	ConstFloat
	ConstDouble
	ConstString
	ConstClass
)

// Const is an ldc operand or a bootstrap argument.
type Const struct {
	Kind  ConstKind `msgpack:"k"`
	Int   int64     `msgpack:"i,omitempty"`
	Float float64   `msgpack:"f,omitempty"`
	Str   string    `msgpack:"s,omitempty"`
}

// Wide reports whether the constant takes two stack slots.
func (c Const) Wide() bool {
	return c.Kind == ConstLong || c.Kind == ConstDouble
}

func (c Const) String() string {
	switch c.Kind {
	case ConstInt:
		return fmt.Sprintf("%d", c.Int)
	case ConstLong:
		return fmt.Sprintf("%dL", c.Int)
	case ConstFloat:
		return fmt.Sprintf("%gf", c.Float)
	case ConstDouble:
		return fmt.Sprintf("%gd", c.Float)
	case ConstString:
		return fmt.Sprintf("%q", c.Str)
	case ConstClass:
		return c.Str + ".class"
	default:
		return "?"
	}
}

// Handle is a method handle, used as an invokedynamic bootstrap.
type Handle struct {
	Owner string `msgpack:"owner"`
	Name  string `msgpack:"name"`
	Desc  string `msgpack:"desc"`
}

// Insn is one symbolic instruction. Member operands are stored resolved, so
// there is no constant pool.
type Insn struct {
	Op Op `msgpack:"op"`
	// Var is the local slot of loads and the label id of jumps and labels.
	Var   int    `msgpack:"var,omitempty"`
	Const *Const `msgpack:"const,omitempty"`
	// Owner is the member owner, or the type operand of new, anewarray,
	// checkcast and instanceof.
	Owner string `msgpack:"owner,omitempty"`
	Name  string `msgpack:"name,omitempty"`
	Desc  string `msgpack:"desc,omitempty"`
	Itf   bool   `msgpack:"itf,omitempty"`

	Bootstrap     *Handle `msgpack:"bsm,omitempty"`
	BootstrapArgs []Const `msgpack:"bsm_args,omitempty"`
}
