package mapping

import (
	"errors"
	"strings"
	"testing"

	"hookgen/internal/classpath"
	"hookgen/internal/descriptor"
)

var tinyFixture = strings.Join([]string{
	"tiny\t2\t0\tintermediary\tnamed",
	"\tsorted",
	"c\tnet/minecraft/class_1\tnet/minecraft/client/Client",
	"\tc\ta comment",
	"\tf\tI\tfield_1\tticks",
	"\tm\t(I)V\tmethod_1\tf",
	"\t\tp\t1\t\tamount",
	"\tm\t(Lnet/minecraft/class_2;)V\tmethod_2\tf",
	"\tm\t()V\tmethod_3\ttick",
	"\tm\t(J)V\tmethod_4\twide",
	"c\tnet/minecraft/class_2\tnet/minecraft/world/World",
	"\tm\t()Z\tmethod_9\tisClient",
	"c\tnet/minecraft/class_3\tnet/minecraft/client/Sub",
	"",
}, "\n")

const classpathFixture = `
[[class]]
name = "net/minecraft/class_1"
super = "java/lang/Object"
[[class.method]]
name = "method_1"
desc = "(I)V"
[[class.method]]
name = "method_2"
desc = "(Lnet/minecraft/class_2;)V"
[[class.method]]
name = "method_3"
desc = "()V"
[[class.field]]
name = "field_1"
desc = "I"

[[class]]
name = "net/minecraft/class_2"
access = ["interface", "abstract"]
[[class.method]]
name = "method_9"
desc = "()Z"

[[class]]
name = "net/minecraft/class_3"
super = "net/minecraft/class_1"
interfaces = ["net/minecraft/class_2"]

[[class]]
name = "com/example/Thing"
super = "java/lang/Object"
[[class.method]]
name = "run"
desc = "(JLnet/minecraft/class_1;)V"
static = true
`

func newFixtureTable(t *testing.T) *Table {
	t.Helper()
	set, err := classpath.Parse(classpathFixture)
	if err != nil {
		t.Fatalf("classpath.Parse: %v", err)
	}
	classes, err := ReadTiny(strings.NewReader(tinyFixture), "named", "intermediary")
	if err != nil {
		t.Fatalf("ReadTiny: %v", err)
	}
	table := NewTable(set, nil)
	if err := table.AddClasses(classes); err != nil {
		t.Fatalf("AddClasses: %v", err)
	}
	return table
}

func mustMethod(t *testing.T, text string) *descriptor.Method {
	t.Helper()
	m, err := descriptor.ParseMethod(text, false)
	if err != nil {
		t.Fatalf("ParseMethod(%q): %v", text, err)
	}
	return m
}

func TestFindMethodOverloads(t *testing.T) {
	table := newFixtureTable(t)
	client, err := table.ResolveClass("net/minecraft/client/Client")
	if err != nil {
		t.Fatalf("ResolveClass: %v", err)
	}

	tests := []struct {
		ref     string
		runtime string
		kind    ResolveErrorKind
	}{
		{"f(I)V", "method_1", 0},
		{"f(Lnet/minecraft/world/World;)V", "method_2", 0},
		{"tick", "method_3", 0},
		{"tick()V", "method_3", 0},
		{"f", "", ErrAmbiguousMember},
		{"f(J)V", "", ErrUnknownMember},
		{"wide", "", ErrUnknownMember},
		{"missing", "", ErrUnknownMember},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			m, rm, err := table.FindMethod(client, mustMethod(t, tt.ref))
			if tt.kind != 0 {
				var re *ResolveError
				if !errors.As(err, &re) || re.Kind != tt.kind {
					t.Fatalf("expected resolve error kind %d, got %v", tt.kind, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.Name.Runtime != tt.runtime || rm.Name != tt.runtime {
				t.Errorf("resolved %s / %s, want %s", m.Name.Runtime, rm.Name, tt.runtime)
			}
		})
	}

	_, _, err = table.FindMethod(client, mustMethod(t, "f"))
	var re *ResolveError
	if errors.As(err, &re) && len(re.Candidates) != 2 {
		t.Errorf("expected both overloads as candidates, got %v", re.Candidates)
	}
}

func TestFindMethodInherited(t *testing.T) {
	table := newFixtureTable(t)
	sub, err := table.ResolveClass("Lnet/minecraft/client/Sub;")
	if err != nil {
		t.Fatalf("ResolveClass: %v", err)
	}
	m, rm, err := table.FindMethod(sub, mustMethod(t, "tick"))
	if err != nil {
		t.Fatalf("tick via superclass: %v", err)
	}
	if m.Owner.Name.Logical != "net/minecraft/client/Client" || rm.Owner != "net/minecraft/class_1" {
		t.Errorf("unexpected owners %s / %s", m.Owner.Name.Logical, rm.Owner)
	}
	m, _, err = table.FindMethod(sub, mustMethod(t, "isClient"))
	if err != nil {
		t.Fatalf("isClient via interface: %v", err)
	}
	if m.FullDescriptor() != "method_9()Z" {
		t.Errorf("unexpected descriptor %s", m.FullDescriptor())
	}
	f, err := table.FindField(sub, "ticks")
	if err != nil || f.Name.Runtime != "field_1" {
		t.Errorf("inherited field: %v %v", f, err)
	}
}

func TestTinyParameters(t *testing.T) {
	table := newFixtureTable(t)
	client, _ := table.Lookup("net.minecraft.class_1")
	if client == nil || client.Name.Logical != "net/minecraft/client/Client" {
		t.Fatalf("lookup by runtime name failed: %+v", client)
	}
	var f1 *Method
	for _, m := range client.Methods["f"] {
		if m.Name.Runtime == "method_1" {
			f1 = m
		}
	}
	if f1 == nil {
		t.Fatalf("method_1 missing")
	}
	if f1.Params[0].Name.Logical != "amount" || f1.Params[0].LVTIndex != 1 {
		t.Errorf("unexpected parameter %+v", f1.Params[0])
	}
	for _, m := range client.Methods["f"] {
		if m.Name.Runtime == "method_2" {
			if m.LogicalDesc() != "(Lnet/minecraft/world/World;)V" || m.RuntimeDesc() != "(Lnet/minecraft/class_2;)V" {
				t.Errorf("unexpected descriptors %s / %s", m.LogicalDesc(), m.RuntimeDesc())
			}
		}
	}
}

func TestRemapper(t *testing.T) {
	table := newFixtureTable(t)
	tests := []struct {
		text string
		want string
	}{
		{"Lnet/minecraft/client/Client;f(I)V", "Lnet/minecraft/class_1;method_1(I)V"},
		{"Lnet/minecraft/client/Client;f(Lnet/minecraft/world/World;)V", "Lnet/minecraft/class_1;method_2(Lnet/minecraft/class_2;)V"},
		{"Ljava/lang/String;length()I", "Ljava/lang/String;length()I"},
		{"Lnet/minecraft/client/Client;unknown()V", "Lnet/minecraft/class_1;unknown()V"},
	}
	for _, tt := range tests {
		m, err := descriptor.ParseMethod(tt.text, true)
		if err != nil {
			t.Fatalf("ParseMethod(%q): %v", tt.text, err)
		}
		got, err := m.Mapped(table)
		if err != nil {
			t.Fatalf("Mapped(%q): %v", tt.text, err)
		}
		if got != tt.want {
			t.Errorf("Mapped(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}

	f, _ := descriptor.ParseField("Lnet/minecraft/client/Client;ticks:I", true)
	if got, _ := f.Mapped(table); got != "Lnet/minecraft/class_1;field_1:I" {
		t.Errorf("unexpected mapped field %q", got)
	}

	missing, _ := descriptor.ParseType("Lnet/minecraft/Nope;")
	_, err := missing.Mapped(table)
	var re *ResolveError
	if !errors.As(err, &re) || re.Kind != ErrUnknownClass {
		t.Errorf("expected unknown class in mapped package, got %v", err)
	}
}

func TestResolveTargetUnmapped(t *testing.T) {
	table := newFixtureTable(t)
	if _, err := table.ResolveTarget("com.example.Thing", true); err == nil {
		t.Fatalf("remapped target outside the table must fail")
	}
	c, err := table.ResolveTarget("com.example.Thing", false)
	if err != nil {
		t.Fatalf("ResolveTarget: %v", err)
	}
	if !c.Unmapped || c.Name.Runtime != "com/example/Thing" {
		t.Errorf("unexpected class %+v", c.Name)
	}
	run := c.Methods["run"]
	if len(run) != 1 {
		t.Fatalf("expected one run overload, got %d", len(run))
	}
	if run[0].Params[0].LVTIndex != 0 || run[0].Params[1].LVTIndex != 2 {
		t.Errorf("static method indices wrong: %+v", run[0].Params)
	}
	m, _, err := table.FindMethod(c, mustMethod(t, "run"))
	if err != nil || m != run[0] {
		t.Errorf("FindMethod on unmapped class: %v", err)
	}
	again, _ := table.ResolveTarget("Lcom/example/Thing;", false)
	if again != c {
		t.Errorf("unmapped classes must be memoized")
	}
	if _, err := table.ResolveTarget("com/example/Ghost", false); err == nil {
		t.Errorf("class absent from classpath must fail")
	}
}

func TestReadTinyDevMode(t *testing.T) {
	classes, err := ReadTiny(strings.NewReader(tinyFixture), "named", "named")
	if err != nil {
		t.Fatalf("ReadTiny: %v", err)
	}
	for _, c := range classes {
		if c.Name.Logical != c.Name.Runtime {
			t.Errorf("dev mode must yield identity names, got %+v", c.Name)
		}
	}
}

func TestReadTinyErrors(t *testing.T) {
	tests := map[string]string{
		"header":    "tiny\t1\t0\ta\tb\n",
		"namespace": "tiny\t2\t0\tofficial\tintermediary\n",
		"record":    "tiny\t2\t0\tintermediary\tnamed\nx\ty\n",
		"param":     "tiny\t2\t0\tintermediary\tnamed\nc\ta\tb\n\tf\tI\tx\ty\n\t\tp\t1\t\tz\n",
		"empty":     "",
	}
	for name, text := range tests {
		if _, err := ReadTiny(strings.NewReader(text), "named", "intermediary"); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestRemapDesc(t *testing.T) {
	names := map[string]string{"a/B": "x/Y"}
	got := remapDesc("(La/B;[La/B;ILc/D;)La/B;", names)
	if got != "(Lx/Y;[Lx/Y;ILc/D;)Lx/Y;" {
		t.Errorf("remapDesc = %q", got)
	}
}
