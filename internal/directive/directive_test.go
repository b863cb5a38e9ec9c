package directive

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hookgen/internal/descriptor"
)

const authoringFixture = `
[[mixin]]
target = "net/minecraft/client/Client"
priority = 900

[[mixin.widen]]
field = "ticks"
mutable = true

[[mixin.widen]]
method = "render(F)V"

[[mixin.injector]]
kind = "inject"
method = "tick()V"
at = [{ value = "HEAD" }]
cancellable = true
locals = [{ type = "I", ordinal = 0, mutable = true }, { print = true }]

[[mixin.injector]]
kind = "redirect"
method = "tick"
at = [{ value = "FIELD", target = "Lnet/minecraft/client/Client;ticks:I", opcode = "PUTFIELD" }]

[[mixin.injector]]
kind = "modifyVariable"
method = "tick"
at = [{ value = "STORE" }]
type = "D"
index = 4

[[mixin.injector]]
kind = "modifyConstant"
method = "tick"
constant = { intValue = 20, expandZeroConditions = ["GREATER_THAN_ZERO"] }

[[mixin.injector]]
kind = "wrapOperation"
method = "tick"
constant = { classValue = "net/minecraft/world/World" }
`

func TestParseAuthoring(t *testing.T) {
	groups, err := Parse("client.toml", authoringFixture)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	g := groups[0]
	if g.Mixin.Target != "net/minecraft/client/Client" || g.Mixin.Priority == nil || *g.Mixin.Priority != 900 {
		t.Errorf("unexpected mixin %+v", g.Mixin)
	}
	if !g.Mixin.Remaps() {
		t.Errorf("absent remap must mean true")
	}
	if len(g.Wideners) != 2 || !g.Wideners[0].Field || !g.Wideners[0].Mutable || g.Wideners[1].Field {
		t.Errorf("unexpected wideners %+v", g.Wideners)
	}
	if len(g.Directives) != 5 {
		t.Fatalf("expected 5 directives, got %d", len(g.Directives))
	}

	inject := g.Directives[0]
	if inject.Kind != KindInject || len(inject.Locals) != 2 || !inject.Locals[0].IsMutable() || !inject.Locals[1].IsPrint() {
		t.Errorf("unexpected inject %+v", inject)
	}

	redirect := g.Directives[1]
	target, err := redirect.SingleAt().ParseTarget()
	if err != nil {
		t.Fatalf("ParseTarget: %v", err)
	}
	if target.Kind != TargetField || !target.HasOpcode || target.IsGet || target.IsStatic {
		t.Errorf("unexpected field target %+v", target)
	}

	mv := g.Directives[2]
	if mv.Variable == nil || mv.Variable.Index == nil || *mv.Variable.Index != 4 || mv.Index != nil {
		t.Errorf("modifyVariable must own index: %+v", mv)
	}

	mc := g.Directives[3]
	if typ, err := mc.Constant.Type(); err != nil || typ != descriptor.Int {
		t.Errorf("constant type = %v, %v", typ, err)
	}
}

func TestValidation(t *testing.T) {
	ptr := func(s string) *string { return &s }
	idx := func(n int) *int { return &n }
	tru := true
	tests := []struct {
		name  string
		d     Directive
		field string
	}{
		{"no method", Directive{Kind: KindInject, At: []At{{Value: "HEAD"}}}, "method"},
		{"inject without at", Directive{Kind: KindInject, Method: "tick"}, "at"},
		{"redirect two ats", Directive{Kind: KindRedirect, Method: "tick", At: []At{{Value: "HEAD"}, {Value: "TAIL"}}}, "at"},
		{"invoke without target", Directive{Kind: KindRedirect, Method: "tick", At: []At{{Value: "INVOKE"}}}, "at[0].target"},
		{"bad opcode", Directive{Kind: KindRedirect, Method: "tick", At: []At{{Value: "FIELD", Target: ptr("La;b:I"), Opcode: idx(182)}}}, "at[0].target"},
		{"constant without args", Directive{Kind: KindModifyExpressionValue, Method: "tick", At: []At{{Value: "CONSTANT"}}}, "at[0].target"},
		{"modifyArg without index", Directive{Kind: KindModifyArg, Method: "tick", At: []At{{Value: "INVOKE", Target: ptr("La;b(I)V")}}}, "index"},
		{"index on inject", Directive{Kind: KindInject, Method: "tick", At: []At{{Value: "HEAD"}}, Index: idx(0)}, "index"},
		{"cancellable on redirect", Directive{Kind: KindRedirect, Method: "tick", At: []At{{Value: "HEAD"}}, Cancellable: &tru}, "cancellable"},
		{"modifyConstant without constant", Directive{Kind: KindModifyConstant, Method: "tick"}, "constant"},
		{"two constant values", Directive{Kind: KindModifyConstant, Method: "tick", Constant: &Constant{IntValue: new(int32), LongValue: new(int64)}}, "constant"},
		{"wrapOperation without class", Directive{Kind: KindWrapOperation, Method: "tick", Constant: &Constant{IntValue: new(int32)}}, "constant"},
		{"local index and ordinal", Directive{Kind: KindInject, Method: "tick", At: []At{{Value: "HEAD"}}, Locals: []Local{{Type: ptr("I"), Index: idx(1), Ordinal: idx(0)}}}, "locals[0]"},
		{"local type only", Directive{Kind: KindInject, Method: "tick", At: []At{{Value: "HEAD"}}, Locals: []Local{{Type: ptr("I")}}}, "locals[0]"},
		{"local nothing", Directive{Kind: KindInject, Method: "tick", At: []At{{Value: "HEAD"}}, Locals: []Local{{}}}, "locals[0]"},
		{"modifyVariable without variable", Directive{Kind: KindModifyVariable, Method: "tick", At: []At{{Value: "STORE"}}}, "type"},
		{"negative require", Directive{Kind: KindInject, Method: "tick", At: []At{{Value: "HEAD"}}, Common: Common{Require: idx(-1)}}, "require"},
		{"by without shift", Directive{Kind: KindInject, Method: "tick", At: []At{{Value: "HEAD", By: idx(2)}}}, "at[0].by"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.d)
			if err == nil {
				t.Fatalf("expected validation error")
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if ve.Field != tt.field {
				t.Errorf("field = %q, want %q (%v)", ve.Field, tt.field, err)
			}
		})
	}
}

func TestParseTargetKinds(t *testing.T) {
	ptr := func(s string) *string { return &s }
	tests := []struct {
		at   At
		kind TargetKind
		typ  string
	}{
		{At{Value: "HEAD"}, TargetNone, ""},
		{At{Value: "INVOKE_ASSIGN", Target: ptr("La/B;c()I")}, TargetInvoke, ""},
		{At{Value: "NEW", Target: ptr("(I)La/B;")}, TargetNew, ""},
		{At{Value: "CONSTANT", Args: []string{"log=true", "doubleValue=1.5"}}, TargetConstant, "D"},
		{At{Value: "CONSTANT", Args: []string{"classValue=a.b.C"}}, TargetConstant, "La/b/C;"},
		{At{Value: "CONSTANT", Args: []string{"null"}}, TargetConstant, "Ljava/lang/Object;"},
	}
	for _, tt := range tests {
		got, err := tt.at.ParseTarget()
		if err != nil {
			t.Fatalf("ParseTarget(%+v): %v", tt.at, err)
		}
		if got.Kind != tt.kind {
			t.Errorf("%s: kind %s, want %s", tt.at.Value, got.Kind, tt.kind)
		}
		if tt.typ != "" && got.ConstType.String() != tt.typ {
			t.Errorf("%s: constant type %s, want %s", tt.at.Value, got.ConstType, tt.typ)
		}
	}
}

func TestParseCollectsErrors(t *testing.T) {
	text := `
[[mixin]]
target = "a/B"
[[mixin.injector]]
kind = "inject"
method = "ok"
at = [{ value = "HEAD" }]
[[mixin.injector]]
kind = "teleport"
method = "x"
[[mixin.injector]]
kind = "redirect"
method = "x"

[[mixin]]
target = ""
`
	groups, err := Parse("bad.toml", text)
	var le LoadErrors
	if !errors.As(err, &le) {
		t.Fatalf("expected LoadErrors, got %v", err)
	}
	if len(le) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(le), err)
	}
	if le[0].Index != 1 || le[1].Index != 2 || le[2].Index != -1 {
		t.Errorf("unexpected error locations: %v", err)
	}
	if len(groups) != 1 || len(groups[0].Directives) != 1 {
		t.Errorf("valid directives must survive: %+v", groups)
	}
	if !strings.Contains(le[0].Error(), "bad.toml: mixin #1 injector #2") {
		t.Errorf("unexpected message %q", le[0].Error())
	}

	if _, err := Parse("x.toml", "[[mixin]]\ntarget = \"a/B\"\nbogus = 1\n"); err == nil {
		t.Errorf("unknown keys must be rejected")
	}
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "directives")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for name, text := range map[string]string{
		"b.toml": "[[mixin]]\ntarget = \"b/B\"\n",
		"a.toml": "[[mixin]]\ntarget = \"a/A\"\n",
	} {
		if err := os.WriteFile(filepath.Join(sub, name), []byte(text), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	groups, err := LoadFiles(dir, []string{"directives/*.toml", "directives/a.toml"})
	if err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}
	if len(groups) != 2 || groups[0].Mixin.Target != "a/A" || groups[1].Mixin.Target != "b/B" {
		t.Errorf("files must load once each in sorted order: %+v", groups)
	}
}

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()
	m := Mixin{Target: "a/B"}
	d1 := &Directive{Kind: KindInject, Method: "tick", At: []At{{Value: "HEAD"}}}
	d2 := &Directive{Kind: KindInject, Method: "tick", At: []At{{Value: "TAIL"}}}

	id1, err := r.Register(m, d1)
	if err != nil || id1 != 0 {
		t.Fatalf("first id = %d, %v", id1, err)
	}
	id2, err := r.Register(m, d2)
	if err != nil || id2 != 1 {
		t.Fatalf("second id = %d, %v", id2, err)
	}
	if !r.Widen(m, Widener{Member: "ticks", Field: true}) {
		t.Fatalf("widener before finalize must be accepted")
	}
	r.Finalize()

	again := &Directive{Kind: KindInject, Method: "tick", At: []At{{Value: "TAIL"}}}
	id, err := r.Register(m, again)
	if err != nil || id != id2 {
		t.Errorf("reload of an identical directive must reuse id %d, got %d, %v", id2, id, err)
	}
	fresh := &Directive{Kind: KindInject, Method: "render", At: []At{{Value: "HEAD"}}}
	if _, err := r.Register(m, fresh); !errors.Is(err, ErrRestartRequired) {
		t.Errorf("expected ErrRestartRequired, got %v", err)
	}
	if _, err := r.Register(Mixin{Target: "other/C"}, again); !errors.Is(err, ErrRestartRequired) {
		t.Errorf("a directive under another mixin is new: %v", err)
	}
	if r.Widen(m, Widener{Member: "other", Field: true}) {
		t.Errorf("wideners after finalize must be ignored")
	}

	mixins := r.Mixins()
	if len(mixins) != 1 || len(mixins[0].Entries) != 2 || len(mixins[0].Wideners) != 1 {
		t.Errorf("unexpected mixin details %+v", mixins)
	}
	if r.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", r.Len())
	}

	r.Reset()
	if r.Finalized() || r.Len() != 0 {
		t.Errorf("reset must clear the registry")
	}
}

func TestKindNames(t *testing.T) {
	for k := KindInject; k <= KindWrapWithCondition; k++ {
		parsed, ok := ParseKind(k.String())
		if !ok || parsed != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), parsed, ok)
		}
	}
	if KindModifyExpressionValue.Annotation() != "ModifyExpressionValue" {
		t.Errorf("unexpected annotation name %q", KindModifyExpressionValue.Annotation())
	}
}
