package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hookgen/internal/generator"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [dir]",
	Short: "Remove generated output",
	Long:  "Remove the output directory of the project and, with --cache, the generation cache.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runClean,
}

func init() {
	cleanCmd.Flags().Bool("cache", false, "also drop the generation cache")
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	dir := cfg.OutputDir()
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		fmt.Fprintln(out, "output directory not found")
	case err != nil:
		return fmt.Errorf("failed to stat %q: %w", dir, err)
	case !info.IsDir():
		return fmt.Errorf("%q is not a directory", dir)
	default:
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove %q: %w", dir, err)
		}
		fmt.Fprintf(out, "removed %s\n", dir)
	}

	dropCache, err := cmd.Flags().GetBool("cache")
	if err != nil || !dropCache {
		return err
	}
	cache, err := generator.OpenCache("")
	if err != nil {
		return err
	}
	if err := cache.DropAll(); err != nil {
		return fmt.Errorf("failed to drop cache: %w", err)
	}
	fmt.Fprintf(out, "dropped cache %s\n", cache.Dir())
	return nil
}
