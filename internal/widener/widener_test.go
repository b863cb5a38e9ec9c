package widener

import (
	"errors"
	"strings"
	"testing"

	"hookgen/internal/directive"
	"hookgen/internal/mapping"
	"hookgen/internal/testkit"
)

func newTable(t *testing.T) *mapping.Table {
	t.Helper()
	table, err := testkit.NewTable()
	if err != nil {
		t.Fatal(err)
	}
	return table
}

func TestApplyWritesRuntimeNames(t *testing.T) {
	table := newTable(t)
	m := New("intermediary")
	errs := m.Apply(table, directive.Mixin{Target: "net/minecraft/client/Client"}, []directive.Widener{
		{Member: "ticks", Field: true, Mutable: true},
		{Member: "score(F)I"},
		{Member: "ticks", Field: true},
	})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	var sb strings.Builder
	if _, err := m.WriteTo(&sb); err != nil {
		t.Fatal(err)
	}
	want := "accessWidener\tv2\tintermediary\n" +
		"accessible\tfield\tnet/minecraft/class_1\tfield_1\tI\n" +
		"mutable\tfield\tnet/minecraft/class_1\tfield_1\tI\n" +
		"accessible\tmethod\tnet/minecraft/class_1\tmethod_2\t(F)I\n"
	if sb.String() != want {
		t.Fatalf("manifest mismatch:\n%q\nwant:\n%q", sb.String(), want)
	}
}

func TestApplyReportsEachFailure(t *testing.T) {
	table := newTable(t)
	m := New("")
	errs := m.Apply(table, directive.Mixin{Target: "net.minecraft.world.World"}, []directive.Widener{
		{Member: "missing", Field: true},
		{Member: "describe"},
		{Member: "nothere()V"},
	})
	if len(errs) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(errs), errs)
	}
	var re *mapping.ResolveError
	if !errors.As(errs[0], &re) || re.Kind != mapping.ErrUnknownMember {
		t.Fatalf("first error = %v, want unknown member", errs[0])
	}
	if m.Len() != 1 {
		t.Fatalf("entries = %v", m.Entries())
	}
	if e := m.Entries()[0]; e.Name != "method_5" || e.Desc != "(IJ)Ljava/lang/String;" {
		t.Fatalf("entry = %+v", e)
	}
}

func TestApplyUnknownTarget(t *testing.T) {
	table := newTable(t)
	m := New("intermediary")
	errs := m.Apply(table, directive.Mixin{Target: "net/minecraft/Nope"}, []directive.Widener{{Member: "x", Field: true}})
	if len(errs) != 1 {
		t.Fatalf("got %v", errs)
	}
	var re *mapping.ResolveError
	if !errors.As(errs[0], &re) || re.Kind != mapping.ErrUnknownClass {
		t.Fatalf("error = %v, want unknown class", errs[0])
	}
	if errs := m.Apply(table, directive.Mixin{Target: "net/minecraft/Nope"}, nil); errs != nil {
		t.Fatalf("no wideners should not resolve the target, got %v", errs)
	}
}

func TestUnmappedTarget(t *testing.T) {
	table := newTable(t)
	remap := false
	m := New("intermediary")
	errs := m.Apply(table, directive.Mixin{Target: "com/example/Helper", Remap: &remap}, []directive.Widener{
		{Member: "calls", Field: true},
		{Member: "greet"},
	})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	entries := m.Entries()
	if len(entries) != 2 || entries[1].Desc != "(Lnet/minecraft/class_1;C)V" {
		t.Fatalf("entries = %+v", entries)
	}
}
