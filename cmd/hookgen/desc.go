package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"hookgen/internal/descriptor"
	"hookgen/internal/diag"
	"hookgen/internal/generator"
)

var descCmd = &cobra.Command{
	Use:   "desc <text>",
	Short: "Parse a descriptor and print it back",
	Long: `Parse text as a type, field, method or constructor descriptor and print its
canonical form. With --mapped the descriptor is also rendered in the runtime
naming scheme of the project found in the current directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runDesc,
}

func init() {
	descCmd.Flags().String("as", "method", "descriptor kind (type|field|method|constructor)")
	descCmd.Flags().Bool("full", false, "require the owner and every part of the descriptor")
	descCmd.Flags().Bool("mapped", false, "also print the runtime form using the project mappings")
}

// parseDescriptor parses text as kind.
func parseDescriptor(kind, text string, full bool) (descriptor.Descriptor, error) {
	switch strings.ToLower(kind) {
	case "type":
		return descriptor.ParseType(text)
	case "field":
		return descriptor.ParseField(text, full)
	case "method":
		return descriptor.ParseMethod(text, full)
	case "constructor", "ctor":
		return descriptor.ParseConstructor(text, full)
	default:
		return nil, fmt.Errorf("unknown descriptor kind %q (expected type|field|method|constructor)", kind)
	}
}

func runDesc(cmd *cobra.Command, args []string) error {
	kind, err := cmd.Flags().GetString("as")
	if err != nil {
		return err
	}
	full, err := cmd.Flags().GetBool("full")
	if err != nil {
		return err
	}
	mapped, err := cmd.Flags().GetBool("mapped")
	if err != nil {
		return err
	}

	d, err := parseDescriptor(kind, args[0], full)
	if err != nil {
		return err
	}
	if !descriptor.Composed(args[0]) {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: descriptor is not in composed form; it only matches names spelled the same way")
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, d.String())
	if !mapped {
		return nil
	}

	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	bag := diag.NewBag(maxDiagnostics(cmd))
	project, err := generator.LoadProject(cfg, bag)
	if err != nil {
		_ = printDiagnostics(cmd, bag)
		return err
	}
	runtime, err := d.Mapped(project.Table)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, runtime)
	return nil
}
