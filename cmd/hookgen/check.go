package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"hookgen/internal/diag"
	"hookgen/internal/generator"
)

var checkCmd = &cobra.Command{
	Use:   "check [dir]",
	Short: "Resolve every directive and print the trampoline signatures",
	Long: `Run generation without writing anything. Each resolved directive is listed
with its trampoline name and descriptor; failures are reported as diagnostics.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()

	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format = strings.ToLower(format)
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	bag := diag.NewBag(maxDiagnostics(cmd))
	reportUnknownKeys(cfg, bag)
	project, err := generator.LoadProject(cfg, bag)
	if err != nil {
		_ = printDiagnostics(cmd, bag)
		return err
	}
	opts := project.Options()
	opts.MaxDiagnostics = maxDiagnostics(cmd)
	res, err := generator.New(project.Table, opts).Generate(cmd.Context(), project.Registry)
	if err != nil {
		return err
	}
	bag.Merge(res.Bag)
	bag.Sort()

	if format == "json" {
		if err := diag.JSON(cmd.OutOrStdout(), bag); err != nil {
			return err
		}
	} else {
		if !quiet(cmd) {
			printSignatures(cmd.OutOrStdout(), res)
		}
		if err := printDiagnostics(cmd, bag); err != nil {
			return err
		}
	}
	if bag.HasErrors() {
		return errFailed
	}
	return nil
}

func printSignatures(w io.Writer, res *generator.Result) {
	for _, c := range res.Classes {
		fmt.Fprintf(w, "%s -> %s\n", c.Name, c.Target.Name.Runtime)
		for _, t := range c.Trampolines {
			fmt.Fprintf(w, "  #%-3d %-40s %s%s\n", t.ID, t.Signature.Directive.Describe(), t.Method.Name, t.Method.Desc)
		}
	}
}
