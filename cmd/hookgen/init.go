package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"hookgen/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a hookgen project",
	Long: `Create hookgen.toml, an empty classpath model and a directives directory.
The mod id is derived from the directory name unless --modid is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().String("modid", "", "mod id used as the trampoline name prefix")
}

const classpathTemplate = `# Runtime class hierarchy: one [[class]] per class the directives target.
#
# [[class]]
# name = "net/minecraft/class_1"
# super = "java/lang/Object"
# [[class.method]]
# name = "method_1"
# desc = "()V"
`

const directivesTemplate = `# [[mixin]]
# target = "net/minecraft/client/Client"
#
# [[mixin.injector]]
# kind = "inject"
# method = "tick()V"
# at = [{ value = "HEAD" }]
`

func runInit(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) > 0 && args[0] != "" {
		target = args[0]
	}
	target, err := filepath.Abs(target)
	if err != nil {
		return err
	}
	if st, err := os.Stat(target); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", target, err)
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	modid, err := cmd.Flags().GetString("modid")
	if err != nil {
		return err
	}
	if modid == "" {
		modid = deriveModID(filepath.Base(target))
	}
	if !config.ValidModID(modid) {
		return fmt.Errorf("invalid mod id %q (lowercase letters, digits, _ and -)", modid)
	}

	manifest := filepath.Join(target, config.FileName)
	if _, err := os.Stat(manifest); err == nil {
		return fmt.Errorf("project already initialized: %s exists", manifest)
	}
	files := []struct {
		path string
		text string
	}{
		{manifest, config.Template(modid)},
		{filepath.Join(target, "classpath.toml"), classpathTemplate},
		{filepath.Join(target, "directives", modid+".toml"), directivesTemplate},
	}
	for _, f := range files {
		if _, err := os.Stat(f.path); err == nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(f.path, []byte(f.text), 0o600); err != nil {
			return fmt.Errorf("failed to write %q: %w", f.path, err)
		}
		if !quiet(cmd) {
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", f.path)
		}
	}
	return nil
}

// deriveModID lowercases name and replaces anything outside [a-z0-9_-].
func deriveModID(name string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			sb.WriteRune(r)
		case r == ' ' || r == '.':
			sb.WriteByte('_')
		}
	}
	id := strings.TrimLeft(sb.String(), "0123456789_-")
	if len(id) < 2 {
		return "hookgen-project"
	}
	return id
}
