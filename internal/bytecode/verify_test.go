package bytecode

import (
	"strings"
	"testing"
)

func TestVerify(t *testing.T) {
	good := func(t *testing.T) *Class {
		return &Class{Name: "a/B", Super: "java/lang/Object", Methods: []*Method{boxArray(t)}}
	}
	tests := []struct {
		name   string
		mutate func(c *Class)
		want   string
	}{
		{"valid", func(*Class) {}, ""},
		{"no super", func(c *Class) { c.Super = "" }, "no name or super"},
		{"duplicate", func(c *Class) { c.Methods = append(c.Methods, c.Methods[0]) }, "duplicate method pack"},
		{"stale frame", func(c *Class) { c.Methods[0].MaxStack = 1 }, "recorded 1/"},
		{"no return", func(c *Class) {
			m := c.Methods[0]
			m.Code = m.Code[:len(m.Code)-1]
		}, "falls off the end"},
		{"missing label", func(c *Class) {
			m := c.Methods[0]
			m.Code = append([]Insn{{Op: OpGoto, Var: 9}}, m.Code...)
		}, "missing label 9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := good(t)
			tt.mutate(c)
			err := Verify(c)
			if tt.want == "" {
				if err != nil {
					t.Fatalf("Verify: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Verify = %v, want %q", err, tt.want)
			}
		})
	}
}
