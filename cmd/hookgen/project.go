package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hookgen/internal/config"
	"hookgen/internal/diag"
)

// errFailed marks a run whose diagnostics were already printed.
var errFailed = errors.New("generation failed")

// loadConfig finds hookgen.toml at or above the directory given in args.
func loadConfig(args []string) (*config.Config, error) {
	dir := "."
	if len(args) > 0 && args[0] != "" {
		dir = args[0]
	}
	cfg, err := config.LoadFrom(dir)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, fmt.Errorf("%w (run \"hookgen init\" to create one)", err)
		}
		return nil, err
	}
	return cfg, nil
}

func maxDiagnostics(cmd *cobra.Command) int {
	n, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil || n <= 0 {
		return 100
	}
	return n
}

// reportUnknownKeys warns about manifest keys hookgen ignores.
func reportUnknownKeys(cfg *config.Config, bag *diag.Bag) {
	for _, key := range cfg.Unknown {
		bag.Add(diag.New(diag.SevWarning, diag.IOConfig,
			diag.Location{File: cfg.Path, Mixin: -1, Index: -1},
			fmt.Sprintf("unknown key %q is ignored", key)))
	}
}

// printDiagnostics writes bag to stderr. Warnings are dropped in quiet mode.
func printDiagnostics(cmd *cobra.Command, bag *diag.Bag) error {
	if bag.Len() == 0 || (quiet(cmd) && !bag.HasErrors()) {
		return nil
	}
	bag.Sort()
	wd, err := os.Getwd()
	if err != nil {
		wd = ""
	}
	mode := diag.PathModeRelative
	if wd == "" {
		mode = diag.PathModeAsIs
	}
	return diag.Pretty(cmd.ErrOrStderr(), bag, diag.PrettyOpts{
		Color:     true,
		PathMode:  mode,
		BaseDir:   wd,
		ShowNotes: true,
		Max:       maxDiagnostics(cmd),
	})
}
