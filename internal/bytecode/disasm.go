package bytecode

import (
	"fmt"
	"io"
	"strings"

	"hookgen/internal/classpath"
)

var accessWords = []struct {
	flag classpath.Access
	word string
}{
	{classpath.AccPublic, "public"},
	{classpath.AccPrivate, "private"},
	{classpath.AccProtected, "protected"},
	{classpath.AccStatic, "static"},
	{classpath.AccFinal, "final"},
	{classpath.AccAbstract, "abstract"},
}

func accessString(a classpath.Access) string {
	var words []string
	for _, w := range accessWords {
		if a.Has(w.flag) {
			words = append(words, w.word)
		}
	}
	return strings.Join(words, " ")
}

// Disassemble writes a javap-like listing of c.
func Disassemble(w io.Writer, c *Class) error {
	var sb strings.Builder
	for _, a := range c.Annotations {
		sb.WriteString(a.String())
		sb.WriteByte('\n')
	}
	if acc := accessString(c.Access); acc != "" {
		sb.WriteString(acc)
		sb.WriteByte(' ')
	}
	fmt.Fprintf(&sb, "class %s extends %s {\n", c.Name, c.Super)
	for i, m := range c.Methods {
		if i > 0 {
			sb.WriteByte('\n')
		}
		writeMethod(&sb, m)
	}
	sb.WriteString("}\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

// DisassembleString is Disassemble into a string.
func DisassembleString(c *Class) string {
	var sb strings.Builder
	_ = Disassemble(&sb, c)
	return sb.String()
}

func writeMethod(sb *strings.Builder, m *Method) {
	for _, a := range m.Annotations {
		fmt.Fprintf(sb, "  %s\n", a)
	}
	for i, anns := range m.ParamAnnotations {
		for _, a := range anns {
			fmt.Fprintf(sb, "  param %d: %s\n", i, a)
		}
	}
	sb.WriteString("  ")
	if acc := accessString(m.Access); acc != "" {
		sb.WriteString(acc)
		sb.WriteByte(' ')
	}
	fmt.Fprintf(sb, "%s%s\n", m.Name, m.Desc)
	fmt.Fprintf(sb, "    stack=%d, locals=%d\n", m.MaxStack, m.MaxLocals)
	pc := 0
	for _, insn := range m.Code {
		if insn.Op == OpLabel {
			fmt.Fprintf(sb, "   L%d:\n", insn.Var)
			continue
		}
		fmt.Fprintf(sb, "    %3d: %s\n", pc, FormatInsn(insn))
		pc++
	}
}

// FormatInsn renders one instruction with its operands.
func FormatInsn(insn Insn) string {
	op := insn.Op.String()
	switch {
	case insn.Op == OpLdc && insn.Const != nil:
		return op + " " + insn.Const.String()
	case insn.Op >= OpIload && insn.Op <= OpAload:
		return fmt.Sprintf("%s %d", op, insn.Var)
	case insn.Op.IsJump():
		return fmt.Sprintf("%s L%d", op, insn.Var)
	case insn.Op.IsField():
		return fmt.Sprintf("%s %s.%s:%s", op, insn.Owner, insn.Name, insn.Desc)
	case insn.Op.IsInvoke():
		s := fmt.Sprintf("%s %s.%s%s", op, insn.Owner, insn.Name, insn.Desc)
		if insn.Itf && insn.Op != OpInvokeinterface {
			s += " (itf)"
		}
		return s
	case insn.Op == OpInvokedynamic:
		s := fmt.Sprintf("%s %s%s", op, insn.Name, insn.Desc)
		if insn.Bootstrap != nil {
			s += fmt.Sprintf(" bsm=%s.%s", insn.Bootstrap.Owner, insn.Bootstrap.Name)
		}
		if len(insn.BootstrapArgs) > 0 {
			args := make([]string, len(insn.BootstrapArgs))
			for i, a := range insn.BootstrapArgs {
				args[i] = a.String()
			}
			s += " [" + strings.Join(args, ", ") + "]"
		}
		return s
	case insn.Owner != "":
		return op + " " + insn.Owner
	default:
		return op
	}
}
