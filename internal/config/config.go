// Package config loads hookgen.toml, the project manifest of a generation
// run.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest file searched for by Find.
const FileName = "hookgen.toml"

const (
	defaultOutputDir = "build/hookgen"
	defaultLogical   = "named"
	defaultRuntime   = "intermediary"
)

var (
	// ErrNotFound is returned by LoadFrom when no manifest exists above the
	// start directory.
	ErrNotFound = errors.New("no " + FileName + " found")

	modIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{1,63}$`)
)

// Config is a loaded, validated manifest. Paths are kept as written;
// Resolve makes them absolute against Root.
type Config struct {
	Path string
	Root string

	Project    ProjectConfig
	Mappings   *MappingsConfig
	Classpath  ClasspathConfig
	Directives DirectivesConfig
	Output     OutputConfig

	// Unknown lists keys present in the file that hookgen does not read.
	Unknown []string
}

type ProjectConfig struct {
	ModID   string `toml:"modid"`
	Package string `toml:"package"`
}

type MappingsConfig struct {
	Path           string   `toml:"path"`
	Logical        string   `toml:"logical"`
	Runtime        string   `toml:"runtime"`
	MappedPackages []string `toml:"mapped_packages"`
}

type ClasspathConfig struct {
	Path string `toml:"path"`
}

type DirectivesConfig struct {
	Paths []string `toml:"paths"`
}

type OutputConfig struct {
	Dir   string `toml:"dir"`
	Dev   bool   `toml:"dev"`
	Cache bool   `toml:"cache"`
}

type file struct {
	Project    ProjectConfig    `toml:"project"`
	Mappings   MappingsConfig   `toml:"mappings"`
	Classpath  ClasspathConfig  `toml:"classpath"`
	Directives DirectivesConfig `toml:"directives"`
	Output     OutputConfig     `toml:"output"`
}

// Find walks up from startDir to locate hookgen.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// LoadFrom finds and loads the manifest governing startDir.
func LoadFrom(startDir string) (*Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w in %s or any parent directory", ErrNotFound, startDir)
	}
	return Load(path)
}

// Load parses and validates the manifest at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return Parse(abs, string(data))
}

// Parse validates manifest text as if read from path.
func Parse(path, text string) (*Config, error) {
	f := file{Output: OutputConfig{Cache: true}}
	meta, err := toml.Decode(text, &f)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}

	required := []struct {
		keys  []string
		value string
	}{
		{[]string{"project", "modid"}, f.Project.ModID},
		{[]string{"project", "package"}, f.Project.Package},
		{[]string{"classpath", "path"}, f.Classpath.Path},
	}
	for _, r := range required {
		if !meta.IsDefined(r.keys[0]) {
			return nil, fmt.Errorf("%s: missing [%s]", path, r.keys[0])
		}
		if !meta.IsDefined(r.keys...) || strings.TrimSpace(r.value) == "" {
			return nil, fmt.Errorf("%s: missing [%s].%s", path, r.keys[0], r.keys[1])
		}
	}
	if !meta.IsDefined("directives", "paths") || len(f.Directives.Paths) == 0 {
		return nil, fmt.Errorf("%s: missing [directives].paths", path)
	}

	cfg := &Config{
		Path:       path,
		Root:       filepath.Dir(path),
		Project:    f.Project,
		Classpath:  f.Classpath,
		Directives: f.Directives,
		Output:     f.Output,
	}
	cfg.Project.ModID = strings.TrimSpace(cfg.Project.ModID)
	if !modIDPattern.MatchString(cfg.Project.ModID) {
		return nil, fmt.Errorf("%s: invalid [project].modid %q: use 2-64 lowercase letters, digits, '-' or '_', starting with a letter", path, cfg.Project.ModID)
	}
	cfg.Project.Package = strings.Trim(strings.ReplaceAll(strings.TrimSpace(cfg.Project.Package), ".", "/"), "/")

	if meta.IsDefined("mappings") {
		m := f.Mappings
		if strings.TrimSpace(m.Path) == "" {
			return nil, fmt.Errorf("%s: missing [mappings].path", path)
		}
		if m.Logical == "" {
			m.Logical = defaultLogical
		}
		if m.Runtime == "" {
			m.Runtime = defaultRuntime
		}
		for i, pkg := range m.MappedPackages {
			m.MappedPackages[i] = normalizePackage(pkg)
		}
		cfg.Mappings = &m
	}
	if strings.TrimSpace(cfg.Output.Dir) == "" {
		cfg.Output.Dir = defaultOutputDir
	}
	for _, key := range meta.Undecoded() {
		cfg.Unknown = append(cfg.Unknown, key.String())
	}
	return cfg, nil
}

// normalizePackage turns "net.minecraft" or "net/minecraft/" into the
// descriptor prefix "Lnet/minecraft/".
func normalizePackage(pkg string) string {
	pkg = strings.ReplaceAll(strings.TrimSpace(pkg), ".", "/")
	pkg = strings.TrimPrefix(pkg, "L")
	if !strings.HasSuffix(pkg, "/") {
		pkg += "/"
	}
	return "L" + pkg
}

// Resolve makes p absolute against the manifest directory.
func (c *Config) Resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, filepath.FromSlash(p))
}

// OutputDir returns the absolute output directory.
func (c *Config) OutputDir() string { return c.Resolve(c.Output.Dir) }

// RuntimeNamespace is the namespace written into the access widener header.
func (c *Config) RuntimeNamespace() string {
	if c.Output.Dev {
		if c.Mappings != nil {
			return c.Mappings.Logical
		}
		return defaultLogical
	}
	if c.Mappings != nil {
		return c.Mappings.Runtime
	}
	return defaultRuntime
}

// Template returns the manifest written by "hookgen init".
func Template(modid string) string {
	return fmt.Sprintf(`# hookgen project manifest
[project]
modid = %q
package = "com/example/%s/generated_mixins"

[classpath]
path = "classpath.toml"

[directives]
paths = ["directives/*.toml"]

[output]
dir = %q
dev = false
cache = true
`, modid, strings.ReplaceAll(modid, "-", "_"), defaultOutputDir)
}

// ValidModID reports whether s can serve as [project].modid.
func ValidModID(s string) bool { return modIDPattern.MatchString(s) }
