package bytecode

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hookgen/internal/classpath"
)

func boxArray(t *testing.T) *Method {
	t.Helper()
	b := NewMethod(classpath.AccPublic|classpath.AccStatic, "pack", "(IJ)Ljava/lang/Object;")
	b.LdcInt(2).TypeInsn(OpAnewarray, "java/lang/Object")
	b.Op(OpDup).LdcInt(0).Load("I", 0).Box("I").Op(OpAastore)
	b.Op(OpDup).LdcInt(1).Load("J", 1).Box("J").Op(OpAastore)
	b.Return("Ljava/lang/Object;")
	m, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return m
}

func TestBuilderFrameSizes(t *testing.T) {
	m := boxArray(t)
	if m.MaxStack != 5 {
		t.Errorf("MaxStack = %d, want 5", m.MaxStack)
	}
	if m.MaxLocals != 3 {
		t.Errorf("MaxLocals = %d, want 3", m.MaxLocals)
	}
	if got := m.Code[len(m.Code)-1].Op; got != OpAreturn {
		t.Errorf("last op = %s, want areturn", got)
	}
}

func TestBuilderBranches(t *testing.T) {
	b := NewMethod(classpath.AccPublic, "pick", "(Z)I")
	orElse := b.NewLabel()
	b.Load("Z", 1).Jump(OpIfeq, orElse)
	b.LdcInt(1).Return("I")
	b.Mark(orElse)
	b.LdcInt(0).Return("I")
	m, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if m.MaxStack != 1 || m.MaxLocals != 2 {
		t.Fatalf("frame = stack %d locals %d, want 1/2", m.MaxStack, m.MaxLocals)
	}
}

func TestLoadOpcodes(t *testing.T) {
	tests := []struct {
		desc string
		want Op
	}{
		{"Z", OpIload},
		{"C", OpIload},
		{"B", OpIload},
		{"S", OpIload},
		{"I", OpIload},
		{"J", OpLload},
		{"F", OpFload},
		{"D", OpDload},
		{"Ljava/lang/String;", OpAload},
		{"[I", OpAload},
	}
	for _, tt := range tests {
		if got := loadOp(tt.desc); got != tt.want {
			t.Errorf("loadOp(%q) = %s, want %s", tt.desc, got, tt.want)
		}
	}
}

func TestUnboxSequences(t *testing.T) {
	tests := []struct {
		desc string
		want []string
	}{
		{"V", nil},
		{"Z", []string{"checkcast java/lang/Boolean", "invokevirtual java/lang/Boolean.booleanValue()Z"}},
		{"I", []string{"checkcast java/lang/Number", "invokevirtual java/lang/Number.intValue()I"}},
		{"D", []string{"checkcast java/lang/Number", "invokevirtual java/lang/Number.doubleValue()D"}},
		{"C", []string{"checkcast java/lang/Character", "invokevirtual java/lang/Character.charValue()C"}},
		{"Lnet/minecraft/class_1;", []string{"checkcast net/minecraft/class_1"}},
		{"[J", []string{"checkcast [J"}},
	}
	for _, tt := range tests {
		b := NewMethod(classpath.AccStatic, "u", "()V")
		b.Unbox(tt.desc)
		var got []string
		for _, insn := range b.m.Code {
			got = append(got, FormatInsn(insn))
		}
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("Unbox(%q) = %q, want %q", tt.desc, got, tt.want)
		}
	}
}

func TestBuilderErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *Builder)
		want  string
	}{
		{"underflow", func(b *Builder) { b.Op(OpPop).Return("V") }, "stack underflow"},
		{"falls off", func(b *Builder) { b.LdcInt(1).Op(OpPop) }, "falls off"},
		{"leftover", func(b *Builder) { b.LdcInt(1).Return("V") }, "left on the stack"},
		{"unplaced label", func(b *Builder) { b.Jump(OpGoto, b.NewLabel()) }, "unplaced label"},
		{"label twice", func(b *Builder) {
			l := b.NewLabel()
			b.Mark(l).Mark(l).Return("V")
		}, "placed twice"},
		{"not a field op", func(b *Builder) { b.Field(OpPop, "a", "b", "I").Return("V") }, "not a field"},
		{"not an invoke", func(b *Builder) { b.Invoke(OpGetfield, "a", "b", "()V", false).Return("V") }, "not an invoke"},
		{"box void", func(b *Builder) { b.Box("V").Return("V") }, "cannot box void"},
		{"unreachable", func(b *Builder) { b.Return("V").Return("V") }, "unreachable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewMethod(classpath.AccStatic, "broken", "()V")
			tt.build(b)
			_, err := b.Finish()
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func sampleClass(t *testing.T) *Class {
	t.Helper()
	m := boxArray(t)
	m.Annotations = append(m.Annotations, NewAnnotation("Lorg/example/Hook;").
		Set("method", Strings("tick()V")).
		Set("at", Nested(NewAnnotation("Lorg/example/At;").Set("value", String("HEAD")))).
		Set("require", Int(1)))
	m.ParamAnnotations = [][]*Annotation{{NewAnnotation("Lorg/example/Local;").Set("index", Int(3))}, nil}

	ind := NewMethod(classpath.AccPrivate, "indy", "()V")
	ind.LdcInt(7).InvokeDynamic("call_7", "(I)Ljava/lang/Object;",
		Handle{Owner: "org/example/Boot", Name: "bootstrap", Desc: "()V"},
		Const{Kind: ConstInt, Int: 7}).Op(OpPop).Return("V")
	im, err := ind.Finish()
	if err != nil {
		t.Fatalf("Finish indy: %v", err)
	}

	return &Class{
		Name:   "org/example/generated/Sample",
		Super:  "java/lang/Object",
		Access: classpath.AccPublic,
		Annotations: []*Annotation{NewAnnotation("Lorg/example/Mixin;").
			Set("value", Array(Type("Lnet/minecraft/class_1;"))).
			Set("priority", Int(1000)).
			Set("remap", Bool(false))},
		Methods: []*Method{m, im},
	}
}

func TestCodecRoundTrip(t *testing.T) {
	c := sampleClass(t)
	data, err := Marshal(c)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.HasPrefix(string(data), Magic) {
		t.Fatalf("missing magic prefix")
	}
	back, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got, want := DisassembleString(back), DisassembleString(c); got != want {
		t.Fatalf("round trip mismatch:\n--- got\n%s\n--- want\n%s", got, want)
	}
	if back.Method("pack", "").MaxStack != 5 {
		t.Errorf("frame sizes not preserved")
	}
}

func TestCodecRejectsForeignData(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("HK"), []byte("CAFEBABE")} {
		if _, err := Unmarshal(data); !errors.Is(err, ErrBadMagic) {
			t.Errorf("Unmarshal(%q) error = %v, want ErrBadMagic", data, err)
		}
	}
	if _, err := Unmarshal([]byte(Magic + "\xc1")); err == nil {
		t.Errorf("expected decode error for corrupt payload")
	}
}

func TestReadFile(t *testing.T) {
	c := sampleClass(t)
	data, err := Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "Sample"+FileExt)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	back, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if back.Name != c.Name || len(back.Methods) != 2 {
		t.Fatalf("ReadFile = %s with %d methods", back.Name, len(back.Methods))
	}
}

func TestDisassemble(t *testing.T) {
	out := DisassembleString(sampleClass(t))
	for _, want := range []string{
		"@Lorg/example/Mixin;(value={Lnet/minecraft/class_1;.class}, priority=1000, remap=false)",
		"public class org/example/generated/Sample extends java/lang/Object {",
		`@Lorg/example/Hook;(method={"tick()V"}, at=@Lorg/example/At;(value="HEAD"), require=1)`,
		"param 0: @Lorg/example/Local;(index=3)",
		"public static pack(IJ)Ljava/lang/Object;",
		"stack=5, locals=3",
		"lload 1",
		"invokestatic java/lang/Long.valueOf(J)Ljava/lang/Long;",
		"anewarray java/lang/Object",
		"invokedynamic call_7(I)Ljava/lang/Object; bsm=org/example/Boot.bootstrap [7]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q\n%s", want, out)
		}
	}
}
