package generator

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"hookgen/internal/bytecode"
	"hookgen/internal/config"
	"hookgen/internal/diag"
	"hookgen/internal/directive"
	"hookgen/internal/dispatch"
	"hookgen/internal/testkit"
)

const mixins = `
[[mixin]]
target = "net/minecraft/client/Client"

[[mixin.widen]]
field = "ticks"
mutable = true

[[mixin.injector]]
kind = "inject"
method = "tick()V"
at = [{ value = "HEAD" }]
cancellable = true

[[mixin.injector]]
kind = "modifyReturnValue"
method = "score"
at = [{ value = "RETURN" }]

[[mixin]]
target = "net/minecraft/world/World"

[[mixin.injector]]
kind = "inject"
method = "describe"
at = [{ value = "TAIL" }]
`

const broken = `
[[mixin]]
target = "net/minecraft/client/Client"

[[mixin.injector]]
kind = "inject"
method = "fly"
at = [{ value = "HEAD" }]

[[mixin]]
target = "net/minecraft/client/Missing"

[[mixin.injector]]
kind = "inject"
method = "tick"
at = [{ value = "HEAD" }]

[[mixin]]
target = "net/minecraft/world/World"
`

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func registryFor(t *testing.T, text string) *directive.Registry {
	t.Helper()
	groups, err := directive.Parse("mixins.toml", text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	reg := directive.NewRegistry()
	for _, g := range groups {
		if _, err := reg.RegisterGroup(g); err != nil {
			t.Fatalf("RegisterGroup: %v", err)
		}
	}
	return reg
}

func generate(t *testing.T, text string, opts Options) *Result {
	t.Helper()
	table, err := testkit.NewTable()
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	if opts.ModID == "" {
		opts.ModID = "mod"
	}
	if opts.Package == "" {
		opts.Package = "com.example.mixins"
	}
	res, err := New(table, opts).Generate(context.Background(), registryFor(t, text))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return res
}

func TestClassName(t *testing.T) {
	if got := ClassName("CTMixin", "net/minecraft/client/Client", 0); got != "CTMixin_$net_minecraft_client_Client$_0" {
		t.Errorf("ClassName = %q", got)
	}
	if got := ClassName("P", "a.b.C", 7); got != "P_$a_b_C$_7" {
		t.Errorf("ClassName = %q", got)
	}
}

func TestGenerate(t *testing.T) {
	rec := &recorder{}
	res := generate(t, mixins, Options{Progress: rec})
	if !res.OK() {
		var sb strings.Builder
		_ = diag.Pretty(&sb, res.Bag, diag.PrettyOpts{})
		t.Fatalf("unexpected diagnostics:\n%s", sb.String())
	}
	if len(res.Classes) != 2 || res.Trampolines() != 3 {
		t.Fatalf("classes=%d trampolines=%d", len(res.Classes), res.Trampolines())
	}

	client := res.Classes[0]
	if client.Name != "CTMixin_$net_minecraft_client_Client$_0" {
		t.Errorf("client class = %q", client.Name)
	}
	if client.Class.Name != "com/example/mixins/"+client.Name {
		t.Errorf("internal name = %q", client.Class.Name)
	}
	wantMethods := []string{"mod_inject_tick_0", "mod_modifyReturnValue_score_1"}
	for i, m := range client.Class.Methods {
		if m.Name != wantMethods[i] {
			t.Errorf("method[%d] = %q, want %q", i, m.Name, wantMethods[i])
		}
	}
	if len(client.Class.Annotations) != 1 {
		t.Fatalf("annotations = %d", len(client.Class.Annotations))
	}
	if v, ok := client.Class.Annotations[0].Get("targets"); !ok || !strings.Contains(v.String(), "net/minecraft/class_1") {
		t.Errorf("targets = %v", v)
	}

	world := res.Classes[1]
	if world.Name != "CTMixin_$net_minecraft_world_World$_1" || world.Class.Methods[0].Name != "mod_inject_describe_2" {
		t.Errorf("world = %s %s", world.Name, world.Class.Methods[0].Name)
	}

	if res.Manifest.Package != "com.example.mixins" || len(res.Manifest.Client) != 2 {
		t.Errorf("manifest = %+v", res.Manifest)
	}
	if res.Wideners.Len() != 2 {
		t.Errorf("wideners = %d", res.Wideners.Len())
	}

	done := 0
	for _, ev := range rec.events {
		if ev.Status == StatusDone {
			done++
		}
	}
	if done != 2 {
		t.Errorf("done events = %d of %d", done, len(rec.events))
	}
}

func TestGenerateDiagnostics(t *testing.T) {
	res := generate(t, broken, Options{})
	if res.OK() {
		t.Fatalf("expected errors")
	}
	codes := make(map[diag.Code]int)
	for _, d := range res.Bag.Items() {
		codes[d.Code]++
	}
	if codes[diag.ResUnknownMember] != 1 {
		t.Errorf("unknown member = %d", codes[diag.ResUnknownMember])
	}
	if codes[diag.ResUnknownClass] != 1 {
		t.Errorf("unknown class = %d", codes[diag.ResUnknownClass])
	}
	if codes[diag.DirEmptyMixin] != 1 {
		t.Errorf("empty mixin = %d", codes[diag.DirEmptyMixin])
	}
	if _, err := res.Artifacts(); err == nil {
		t.Errorf("Artifacts must refuse a failed run")
	}
	// The failed directive still produces its (empty) class.
	if len(res.Classes) != 1 || len(res.Classes[0].Trampolines) != 0 {
		t.Errorf("classes = %+v", res.Classes)
	}
}

func TestGenerateWarnsDecomposedNames(t *testing.T) {
	text := `
[[mixin]]
target = "net/minecraft/client/Client"

[[mixin.injector]]
kind = "inject"
method = "tick()V"
at = [{ value = "HEAD" }]

[[mixin.injector]]
kind = "inject"
method = "tic\u0306k()V"
at = [{ value = "HEAD" }]
`
	res := generate(t, text, Options{})
	codes := make(map[diag.Code]int)
	for _, d := range res.Bag.Items() {
		codes[d.Code]++
	}
	if codes[diag.DescNotComposed] != 1 {
		t.Errorf("not composed = %d, want 1", codes[diag.DescNotComposed])
	}
	if codes[diag.ResUnknownMember] != 1 {
		t.Errorf("unknown member = %d, want 1", codes[diag.ResUnknownMember])
	}
}

func TestGenerateCancelled(t *testing.T) {
	table, err := testkit.NewTable()
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(table, Options{ModID: "mod"}).Generate(ctx, registryFor(t, mixins)); err == nil {
		t.Fatalf("expected cancellation")
	}
}

func TestGenerateRegistersDispatch(t *testing.T) {
	reg := dispatch.NewRegistry()
	res := generate(t, mixins, Options{Dispatch: reg})
	if !res.OK() {
		t.Fatalf("diagnostics: %s", diag.Summary(res.Bag))
	}
	if reg.Len() != 3 {
		t.Errorf("dispatch entries = %d", reg.Len())
	}
	for _, c := range res.Classes {
		for _, tr := range c.Trampolines {
			if reg.IsAttached(tr.ID) {
				t.Errorf("id %d attached before any handler", tr.ID)
			}
		}
	}
}

func TestArtifactsAndWrite(t *testing.T) {
	res := generate(t, mixins, Options{Dev: true, Namespace: "named"})
	files, err := res.Artifacts()
	if err != nil {
		t.Fatalf("Artifacts: %v", err)
	}
	// 2 classes, 2 listings, manifest, widener
	if len(files) != 6 {
		t.Fatalf("files = %d", len(files))
	}

	dir := t.TempDir()
	stale := filepath.Join(dir, "com", "example", "mixins", "Old.hkc")
	if err := os.MkdirAll(filepath.Dir(stale), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(stale, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := Write(context.Background(), dir, files, WriteOptions{Prune: true, Jobs: 2}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale class survived: %v", err)
	}

	c := res.Classes[0]
	back, err := bytecode.ReadFile(filepath.Join(dir, filepath.FromSlash(c.Class.Name)+bytecode.FileExt))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if back.Name != c.Class.Name || len(back.Methods) != len(c.Class.Methods) {
		t.Errorf("round trip: %s with %d methods", back.Name, len(back.Methods))
	}
	if err := testkit.CheckClass(back); err != nil {
		t.Errorf("CheckClass: %v", err)
	}

	listing, err := os.ReadFile(filepath.Join(dir, "disasm", c.Name+".disasm"))
	if err != nil || !strings.Contains(string(listing), "mod_inject_tick_0") {
		t.Errorf("listing: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, ManifestName("mod")))
	if err != nil {
		t.Fatal(err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("manifest json: %v", err)
	}
	if !m.Required || m.Injectors.DefaultRequire != 1 || m.Client[0] != c.Name {
		t.Errorf("manifest = %+v", m)
	}

	aw, err := os.ReadFile(filepath.Join(dir, WidenerName("mod")))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(aw), "accessWidener\tv2\tnamed\n") {
		t.Errorf("widener header: %q", aw)
	}
}

func TestCache(t *testing.T) {
	cache, err := OpenCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	h := NewHasher()
	h.String("a", "b")
	key := h.Sum()

	var out Payload
	if hit, err := cache.Get(key, &out); err != nil || hit {
		t.Fatalf("empty cache: hit=%v err=%v", hit, err)
	}
	in := &Payload{Classes: []string{"A"}, Files: []File{{Path: "x/A.hkc", Data: []byte{1, 2}}}}
	if err := cache.Put(key, in); err != nil {
		t.Fatalf("Put: %v", err)
	}
	hit, err := cache.Get(key, &out)
	if err != nil || !hit {
		t.Fatalf("Get: hit=%v err=%v", hit, err)
	}
	if len(out.Files) != 1 || out.Files[0].Path != "x/A.hkc" || len(out.Files[0].Data) != 2 {
		t.Errorf("payload = %+v", out)
	}

	other := NewHasher()
	other.String("ab", "")
	if other.Sum() == key {
		t.Errorf("length prefixing failed")
	}
	if err := cache.DropAll(); err != nil {
		t.Fatal(err)
	}
	if hit, _ := cache.Get(key, &out); hit {
		t.Errorf("entry survived DropAll")
	}
}

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		config.FileName: `
[project]
modid = "mod"
package = "com.example.mixins"

[mappings]
path = "mappings.tiny"

[classpath]
path = "classpath.toml"

[directives]
paths = ["mixins/*.toml"]
`,
		"mappings.tiny":      testkit.Tiny,
		"classpath.toml":     testkit.Classpath,
		"mixins/client.toml": mixins,
		"mixins/bad.toml": `
[[mixin]]
target = "net/minecraft/client/Client"

[[mixin.injector]]
kind = "teleport"
method = "tick"
`,
	}
	for name, text := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(text), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLoadProject(t *testing.T) {
	dir := writeProject(t)
	cfg, err := config.LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	bag := diag.NewBag(50)
	p, err := LoadProject(cfg, bag)
	if err != nil {
		t.Fatalf("LoadProject: %v", err)
	}
	if bag.Count(diag.SevError) != 1 {
		t.Errorf("authoring errors = %d", bag.Count(diag.SevError))
	}
	if item := bag.Items()[0]; !strings.HasSuffix(item.Location.File, "bad.toml") {
		t.Errorf("error location = %+v", item.Location)
	}
	if p.Registry.Len() != 3 {
		t.Errorf("registered = %d", p.Registry.Len())
	}
	// manifest, classpath, mappings, two directive files
	if len(p.Inputs) != 5 {
		t.Errorf("inputs = %v", p.Inputs)
	}

	opts := p.Options()
	if opts.ModID != "mod" || opts.Namespace != "intermediary" {
		t.Errorf("options = %+v", opts)
	}
	first, err := p.Digest(opts)
	if err != nil {
		t.Fatal(err)
	}
	again, err := p.Digest(opts)
	if err != nil || again != first {
		t.Errorf("digest not stable")
	}
	opts.Dev = true
	if dev, _ := p.Digest(opts); dev == first {
		t.Errorf("dev flag must change the digest")
	}
	if err := os.WriteFile(filepath.Join(dir, "mixins", "client.toml"), []byte(mixins+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if changed, _ := p.Digest(p.Options()); changed == first {
		t.Errorf("edited input must change the digest")
	}

	res, err := New(p.Table, p.Options()).Generate(context.Background(), p.Registry)
	if err != nil {
		t.Fatal(err)
	}
	if !res.OK() || len(res.Classes) != 2 {
		t.Errorf("generate: %s, %d classes", diag.Summary(res.Bag), len(res.Classes))
	}
}

func TestLoadProjectMissingClasspath(t *testing.T) {
	dir := writeProject(t)
	if err := os.Remove(filepath.Join(dir, "classpath.toml")); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.LoadFrom(dir)
	if err != nil {
		t.Fatal(err)
	}
	bag := diag.NewBag(10)
	if _, err := LoadProject(cfg, bag); err == nil {
		t.Fatalf("expected error")
	}
	if items := bag.Items(); len(items) != 1 || items[0].Code != diag.IOClasspath {
		t.Errorf("diagnostics = %+v", items)
	}
}
