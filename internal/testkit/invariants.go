package testkit

import (
	"fmt"
	"strings"

	"hookgen/internal/bytecode"
)

// CheckClass runs the invariants every generated mixin class must satisfy:
// 1) the class passes bytecode.Verify
// 2) the class carries exactly one annotation naming its target
// 3) every method carries a weaving annotation
// 4) parameter annotations never outnumber the parameters
func CheckClass(c *bytecode.Class) error {
	if err := bytecode.Verify(c); err != nil {
		return err
	}
	if len(c.Annotations) != 1 {
		return fmt.Errorf("%s: %d class annotations, want 1", c.Name, len(c.Annotations))
	}
	if _, ok := c.Annotations[0].Get("targets"); !ok {
		return fmt.Errorf("%s: class annotation has no targets", c.Name)
	}
	for _, m := range c.Methods {
		if len(m.Annotations) == 0 {
			return fmt.Errorf("%s.%s: no weaving annotation", c.Name, m.Name)
		}
		if n := paramCount(m.Desc); len(m.ParamAnnotations) > n {
			return fmt.Errorf("%s.%s: %d parameter annotations for %d parameters", c.Name, m.Name, len(m.ParamAnnotations), n)
		}
	}
	return nil
}

// paramCount counts the parameters of a well-formed method descriptor.
func paramCount(desc string) int {
	end := strings.IndexByte(desc, ')')
	if !strings.HasPrefix(desc, "(") || end < 0 {
		return 0
	}
	n := 0
	for i := 1; i < end; i++ {
		for desc[i] == '[' {
			i++
		}
		if desc[i] == 'L' {
			i += strings.IndexByte(desc[i:], ';')
		}
		n++
	}
	return n
}
