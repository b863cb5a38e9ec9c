package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const full = `
[project]
modid = "ctjs"
package = "com.chattriggers.ctjs.generated_mixins"

[mappings]
path = "mappings.tiny"
mapped_packages = ["net.minecraft", "Lcom/mojang/blaze3d/"]

[classpath]
path = "classpath.toml"

[directives]
paths = ["directives/*.toml"]

[output]
dev = true
colour = "red"
`

func TestParseFull(t *testing.T) {
	cfg, err := Parse("/p/hookgen.toml", full)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Project.Package != "com/chattriggers/ctjs/generated_mixins" {
		t.Errorf("package = %q", cfg.Project.Package)
	}
	if cfg.Mappings == nil || cfg.Mappings.Logical != "named" || cfg.Mappings.Runtime != "intermediary" {
		t.Fatalf("mappings = %+v", cfg.Mappings)
	}
	want := []string{"Lnet/minecraft/", "Lcom/mojang/blaze3d/"}
	for i, p := range cfg.Mappings.MappedPackages {
		if p != want[i] {
			t.Errorf("mapped_packages[%d] = %q, want %q", i, p, want[i])
		}
	}
	if !cfg.Output.Dev || !cfg.Output.Cache || cfg.Output.Dir != "build/hookgen" {
		t.Errorf("output = %+v", cfg.Output)
	}
	if cfg.OutputDir() != filepath.Join("/p", "build", "hookgen") {
		t.Errorf("OutputDir = %q", cfg.OutputDir())
	}
	if cfg.RuntimeNamespace() != "named" {
		t.Errorf("dev namespace = %q", cfg.RuntimeNamespace())
	}
	if len(cfg.Unknown) != 1 || cfg.Unknown[0] != "output.colour" {
		t.Errorf("unknown = %v", cfg.Unknown)
	}
}

func TestParseMissingKeys(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"no project", `[classpath]
path = "c"
[directives]
paths = ["d"]`, "missing [project]"},
		{"no modid", `[project]
package = "p"
[classpath]
path = "c"
[directives]
paths = ["d"]`, "missing [project].modid"},
		{"no directives", `[project]
modid = "ab"
package = "p"
[classpath]
path = "c"`, "missing [directives].paths"},
		{"empty classpath", `[project]
modid = "ab"
package = "p"
[classpath]
path = " "
[directives]
paths = ["d"]`, "missing [classpath].path"},
		{"bad modid", `[project]
modid = "Bad Mod"
package = "p"
[classpath]
path = "c"
[directives]
paths = ["d"]`, "invalid [project].modid"},
		{"mappings without path", `[project]
modid = "ab"
package = "p"
[mappings]
logical = "named"
[classpath]
path = "c"
[directives]
paths = ["d"]`, "missing [mappings].path"},
		{"syntax", `[project`, "failed to parse TOML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("hookgen.toml", tt.text)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestLoadFromWalksUp(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, FileName), []byte(Template("demo")), 0o600); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "directives", "render")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(nested)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Root != root {
		t.Errorf("root = %q, want %q", cfg.Root, root)
	}
	if cfg.Mappings != nil {
		t.Error("template has no [mappings]")
	}
	if cfg.RuntimeNamespace() != "intermediary" {
		t.Errorf("namespace = %q", cfg.RuntimeNamespace())
	}
	if got := cfg.Resolve("classpath.toml"); got != filepath.Join(root, "classpath.toml") {
		t.Errorf("Resolve = %q", got)
	}
}

func TestLoadFromMissing(t *testing.T) {
	_, err := LoadFrom(t.TempDir())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
