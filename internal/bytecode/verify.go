package bytecode

import (
	"fmt"

	"fortio.org/safecast"
)

// Verify checks the structure of an assembled class: it is named and has a
// super class, method keys are unique and every method passes VerifyMethod.
func Verify(c *Class) error {
	if c == nil {
		return fmt.Errorf("nil class")
	}
	if c.Name == "" || c.Super == "" {
		return fmt.Errorf("class %q has no name or super class", c.Name)
	}
	seen := make(map[string]bool, len(c.Methods))
	for _, m := range c.Methods {
		key := m.Name + m.Desc
		if seen[key] {
			return fmt.Errorf("%s: duplicate method %s", c.Name, key)
		}
		seen[key] = true
		if err := VerifyMethod(m); err != nil {
			return fmt.Errorf("%s: %w", c.Name, err)
		}
	}
	return nil
}

// VerifyMethod checks that the body is non-empty and ends in a return,
// that jumps target placed labels, and that the recorded frame sizes match
// a fresh computation.
func VerifyMethod(m *Method) error {
	if m == nil {
		return fmt.Errorf("nil method")
	}
	labels := make(map[int]bool)
	last := -1
	for i, insn := range m.Code {
		if insn.Op == OpLabel {
			labels[insn.Var] = true
			continue
		}
		last = i
	}
	if last < 0 {
		return fmt.Errorf("%s%s: empty body", m.Name, m.Desc)
	}
	if !m.Code[last].Op.IsReturn() {
		return fmt.Errorf("%s%s: falls off the end after %s", m.Name, m.Desc, m.Code[last].Op)
	}
	for _, insn := range m.Code {
		if insn.Op.IsJump() && !labels[insn.Var] {
			return fmt.Errorf("%s%s: jump to missing label %d", m.Name, m.Desc, insn.Var)
		}
	}

	maxStack, maxLocals, err := Frame(m)
	if err != nil {
		return err
	}
	if maxStack != m.MaxStack || maxLocals != m.MaxLocals {
		return fmt.Errorf("%s%s: frame %d/%d, recorded %d/%d", m.Name, m.Desc, maxStack, maxLocals, m.MaxStack, m.MaxLocals)
	}
	// Slot indices are u16 in the class-file format.
	if _, err := safecast.Conv[uint16](maxLocals); err != nil {
		return fmt.Errorf("%s%s: %d locals: %w", m.Name, m.Desc, maxLocals, err)
	}
	return nil
}
