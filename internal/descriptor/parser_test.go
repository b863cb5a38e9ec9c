package descriptor

import (
	"errors"
	"strings"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	types := []string{
		"V", "Z", "C", "B", "S", "I", "F", "J", "D",
		"Ljava/lang/String;",
		"[I",
		"[[Ljava/lang/Object;",
		"Lnet/minecraft/client/MinecraftClient$Inner;",
	}
	for _, s := range types {
		got, err := ParseType(s)
		if err != nil {
			t.Fatalf("ParseType(%q): %v", s, err)
		}
		if got.String() != s {
			t.Errorf("type round trip: %q -> %q", s, got.String())
		}
	}

	fields := []struct {
		text string
		full bool
	}{
		{"Lnet/minecraft/Foo;bar:I", true},
		{"Lnet/minecraft/Foo;bar:[Ljava/lang/String;", true},
		{"bar:J", false},
		{"bar", false},
		{"Lnet/minecraft/Foo;bar", false},
		{"DEBUG", false},
	}
	for _, tc := range fields {
		f, err := ParseField(tc.text, tc.full)
		if err != nil {
			t.Fatalf("ParseField(%q, %v): %v", tc.text, tc.full, err)
		}
		if f.String() != tc.text {
			t.Errorf("field round trip: %q -> %q", tc.text, f.String())
		}
	}

	methods := []struct {
		text string
		full bool
	}{
		{"Lnet/minecraft/Foo;tick()V", true},
		{"Lnet/minecraft/Foo;<init>(IJLjava/lang/String;)V", true},
		{"Lnet/minecraft/Foo;<clinit>()V", true},
		{"tick()V", false},
		{"tick", false},
		{"render(Lnet/minecraft/Foo;FD[[I)Z", false},
		{"Lnet/minecraft/Foo;tick", false},
	}
	for _, tc := range methods {
		m, err := ParseMethod(tc.text, tc.full)
		if err != nil {
			t.Fatalf("ParseMethod(%q, %v): %v", tc.text, tc.full, err)
		}
		if m.String() != tc.text {
			t.Errorf("method round trip: %q -> %q", tc.text, m.String())
		}
	}

	ctors := []struct {
		text string
		full bool
	}{
		{"(ILjava/lang/String;)Lnet/minecraft/Foo;", true},
		{"()Lnet/minecraft/Foo;", true},
		{"Lnet/minecraft/Foo;", false},
	}
	for _, tc := range ctors {
		c, err := ParseConstructor(tc.text, tc.full)
		if err != nil {
			t.Fatalf("ParseConstructor(%q, %v): %v", tc.text, tc.full, err)
		}
		if c.String() != tc.text {
			t.Errorf("constructor round trip: %q -> %q", tc.text, c.String())
		}
	}
}

func TestParseMethodParts(t *testing.T) {
	m, err := ParseMethod("Lnet/minecraft/Foo;f(IJ)Ljava/lang/String;", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Owner == nil || m.Owner.InternalName() != "net/minecraft/Foo" {
		t.Fatalf("unexpected owner: %v", m.Owner)
	}
	if m.Name != "f" {
		t.Errorf("expected name f, got %q", m.Name)
	}
	if len(m.Params) != 2 || m.Params[0] != Int || m.Params[1] != Long {
		t.Errorf("unexpected params: %v", m.Params)
	}
	if m.Return != ObjectOf("java/lang/String") {
		t.Errorf("unexpected return: %v", m.Return)
	}

	bare, err := ParseMethod("f", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bare.HasSignature() || bare.Params != nil || bare.Owner != nil {
		t.Errorf("bare method should have no owner or signature: %+v", bare)
	}

	empty, err := ParseMethod("f()V", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if empty.Params == nil || len(empty.Params) != 0 {
		t.Errorf("explicit empty parameter list must be non-nil and empty")
	}
}

func TestArrayFlattening(t *testing.T) {
	typ, err := ParseType("[[[D")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	arr, ok := typ.(Array)
	if !ok {
		t.Fatalf("expected Array, got %T", typ)
	}
	if arr.Dims != 3 || arr.Base != Double {
		t.Errorf("expected 3-dim double array, got %+v", arr)
	}
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		name  string
		parse func() error
		pos   int
	}{
		{"empty", func() error { _, err := ParseType(""); return err }, 0},
		{"bad char", func() error { _, err := ParseType("Q"); return err }, 0},
		{"unterminated object", func() error { _, err := ParseType("Ljava/lang/String"); return err }, 17},
		{"trailing", func() error { _, err := ParseType("II"); return err }, 1},
		{"void array", func() error { _, err := ParseType("[V"); return err }, 2},
		{"field full without type", func() error { _, err := ParseField("Lnet/Foo;bar", true); return err }, 12},
		{"field full without owner", func() error { _, err := ParseField("bar:I", true); return err }, 0},
		{"method full without params", func() error { _, err := ParseMethod("Lnet/Foo;tick", true); return err }, 13},
		{"method unclosed params", func() error { _, err := ParseMethod("tick(I", false); return err }, 6},
		{"method void param", func() error { _, err := ParseMethod("tick(V)V", false); return err }, 6},
		{"method missing return", func() error { _, err := ParseMethod("tick()", false); return err }, 6},
		{"constructor primitive", func() error { _, err := ParseConstructor("()I", true); return err }, 2},
		{"constructor full without params", func() error { _, err := ParseConstructor("Lnet/Foo;", true); return err }, 0},
		{"method name missing", func() error { _, err := ParseMethod("()V", false); return err }, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.parse()
			if err == nil {
				t.Fatalf("expected syntax error")
			}
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("expected *SyntaxError, got %T: %v", err, err)
			}
			if se.Pos != tt.pos {
				t.Errorf("expected position %d, got %d (%v)", tt.pos, se.Pos, se)
			}
		})
	}
}

func TestOwnerRewind(t *testing.T) {
	// "Lambda" looks like an owner but has no ';', so it is a bare name.
	m, err := ParseMethod("Lambda(I)V", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Owner != nil || m.Name != "Lambda" {
		t.Errorf("expected bare method Lambda, got owner=%v name=%q", m.Owner, m.Name)
	}
	if _, err := ParseMethod("Lambda(I)V", true); err == nil {
		t.Errorf("full parse must require an owner")
	}
}

func TestUnicodeIdentifiers(t *testing.T) {
	m, err := ParseMethod("cafe\u0301()V", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Name != "cafe\u0301" {
		t.Errorf("name = %q, want the decomposed spelling kept", m.Name)
	}

	// composed and decomposed spellings render back byte for byte
	for _, s := range []string{"Lpkg/Cafe\u0301;", "Lpkg/Caf\u00e9;"} {
		ty, err := ParseType(s)
		if err != nil {
			t.Fatalf("ParseType(%q): %v", s, err)
		}
		if ty.String() != s {
			t.Errorf("type round trip: %q -> %q", s, ty.String())
		}
	}
	f, err := ParseField("Lpkg/A;cafe\u0301:I", true)
	if err != nil || f.String() != "Lpkg/A;cafe\u0301:I" {
		t.Errorf("field round trip = %v, %v", f, err)
	}
	mm, err := ParseMethod("Lpkg/A;fe\u0301te()V", true)
	if err != nil || mm.String() != "Lpkg/A;fe\u0301te()V" {
		t.Errorf("method round trip = %v, %v", mm, err)
	}
}

func TestComposed(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"tick()V", true},
		{"caf\u00e9()V", true},
		{"cafe\u0301()V", false},
	}
	for _, tt := range tests {
		if got := Composed(tt.text); got != tt.want {
			t.Errorf("Composed(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestNewObjectRejects(t *testing.T) {
	bad := []string{"I", "[I", "(I)V", "Lfoo;bar:I", "foo", "L;"}
	for _, s := range bad {
		if _, err := NewObject(s); err == nil {
			t.Errorf("NewObject(%q) should fail", s)
		}
	}
	obj, err := NewObject("Ljava/lang/Object;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obj.InternalName() != "java/lang/Object" {
		t.Errorf("unexpected internal name %q", obj.InternalName())
	}
}

type prefixRemapper struct{}

func (prefixRemapper) ClassName(name string) (string, error) {
	if strings.HasPrefix(name, "java/") {
		return name, nil
	}
	if name == "net/minecraft/Missing" {
		return "", errors.New("unknown class")
	}
	return "rt/" + name, nil
}

func (prefixRemapper) FieldName(_, name string) string { return "field_" + name }

func (prefixRemapper) MethodName(_ string, m *Method) string { return "method_" + m.Name }

func TestMapped(t *testing.T) {
	m, err := ParseMethod("Lnet/minecraft/Foo;f(Lnet/minecraft/Bar;[Ljava/lang/String;)V", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := m.Mapped(prefixRemapper{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Lrt/net/minecraft/Foo;method_f(Lrt/net/minecraft/Bar;[Ljava/lang/String;)V"
	if got != want {
		t.Errorf("Mapped() = %q, want %q", got, want)
	}

	f, err := ParseField("Lnet/minecraft/Foo;x:I", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := f.Mapped(prefixRemapper{}); got != "Lrt/net/minecraft/Foo;field_x:I" {
		t.Errorf("unexpected mapped field %q", got)
	}

	bare, _ := ParseField("x", false)
	if _, err := bare.Mapped(prefixRemapper{}); err == nil {
		t.Errorf("mapping a field without owner must fail")
	}

	missing, _ := ParseType("Lnet/minecraft/Missing;")
	if _, err := missing.Mapped(prefixRemapper{}); err == nil {
		t.Errorf("mapping an unknown class must fail")
	}

	if got, _ := m.Mapped(nil); got != m.String() {
		t.Errorf("nil remapper should be identity, got %q", got)
	}
}

func TestSlots(t *testing.T) {
	cases := map[string]int{"J": 2, "D": 2, "I": 1, "Ljava/lang/Object;": 1, "[J": 1}
	for text, want := range cases {
		typ, err := ParseType(text)
		if err != nil {
			t.Fatalf("ParseType(%q): %v", text, err)
		}
		if got := Slots(typ); got != want {
			t.Errorf("Slots(%s) = %d, want %d", text, got, want)
		}
	}
}
