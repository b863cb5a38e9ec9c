package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"hookgen/internal/config"
	"hookgen/internal/diag"
	"hookgen/internal/generator"
	"hookgen/internal/trace"
)

var generateCmd = &cobra.Command{
	Use:   "generate [dir]",
	Short: "Generate trampoline classes for a project",
	Long: `Load hookgen.toml, resolve every directive and write the generated classes,
the engine manifest and the access widener into the output directory. Nothing
is written when any directive fails.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().String("out", "", "output directory (overrides [output].dir)")
	generateCmd.Flags().Bool("dev", false, "dev mode: logical names at runtime, disassembly listings")
	generateCmd.Flags().Int("jobs", 0, "max parallel file writers (0=auto)")
	generateCmd.Flags().String("ui", "auto", "progress UI mode (auto|on|off)")
	generateCmd.Flags().Bool("no-cache", false, "ignore and do not update the generation cache")
}

type generateFlags struct {
	out     string
	dev     bool
	jobs    int
	ui      uiMode
	noCache bool
}

func readGenerateFlags(cmd *cobra.Command) (generateFlags, error) {
	var f generateFlags
	var err error
	if f.out, err = cmd.Flags().GetString("out"); err != nil {
		return f, err
	}
	if f.dev, err = cmd.Flags().GetBool("dev"); err != nil {
		return f, err
	}
	if f.jobs, err = cmd.Flags().GetInt("jobs"); err != nil {
		return f, err
	}
	if f.noCache, err = cmd.Flags().GetBool("no-cache"); err != nil {
		return f, err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return f, err
	}
	f.ui, err = readUIMode(uiValue)
	return f, err
}

func runGenerate(cmd *cobra.Command, args []string) error {
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
	ctx := cmd.Context()
	tracer := trace.FromContext(ctx)
	start := time.Now()

	flags, err := readGenerateFlags(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if flags.dev {
		cfg.Output.Dev = true
	}
	if flags.out != "" {
		cfg.Output.Dir = flags.out
	}

	bag := diag.NewBag(maxDiagnostics(cmd))
	reportUnknownKeys(cfg, bag)
	project, err := generator.LoadProject(cfg, bag)
	if err != nil || bag.HasErrors() {
		if perr := printDiagnostics(cmd, bag); perr != nil {
			return perr
		}
		if err != nil {
			return err
		}
		return errFailed
	}
	opts := project.Options()
	opts.MaxDiagnostics = maxDiagnostics(cmd)
	wopts := generator.WriteOptions{Clear: cfg.Output.Dev, Prune: true, Jobs: flags.jobs}

	cache, key := openCache(cmd, cfg, project, opts, flags.noCache)
	var cached generator.Payload
	if hit, err := cache.Get(key, &cached); err != nil {
		bag.Add(diag.New(diag.SevWarning, diag.IOCacheCorrupt, diag.NoLocation, err.Error()))
	} else if hit {
		trace.Point(tracer, trace.ScopeDriver, "cache", "hit "+key.String()[:12], 0)
		if err := generator.Write(ctx, cfg.OutputDir(), cached.Files, wopts); err != nil {
			return fmt.Errorf("write %s: %w", cfg.OutputDir(), err)
		}
		if err := printDiagnostics(cmd, bag); err != nil {
			return err
		}
		if !quiet(cmd) {
			fmt.Fprintf(cmd.OutOrStdout(), "%d classes up to date in %s (cached)\n", len(cached.Classes), cfg.OutputDir())
		}
		return nil
	}

	var res *generator.Result
	if useProgressUI(flags.ui, isTerminal(os.Stdout), quiet(cmd), os.Getenv("TERM")) {
		res, err = runGenerateWithUI(ctx, "generating "+cfg.Project.ModID, project.Table, opts, project.Registry)
	} else {
		res, err = generator.New(project.Table, opts).Generate(ctx, project.Registry)
	}
	if err != nil {
		return err
	}
	bag.Merge(res.Bag)
	if err := printDiagnostics(cmd, bag); err != nil {
		return err
	}
	if !res.OK() {
		return errFailed
	}

	files, err := res.Artifacts()
	if err != nil {
		return err
	}
	writeStart := time.Now()
	if err := generator.Write(ctx, cfg.OutputDir(), files, wopts); err != nil {
		return fmt.Errorf("write %s: %w", cfg.OutputDir(), err)
	}
	res.Timings.Add(generator.StageWrite, time.Since(writeStart))

	names := make([]string, 0, len(res.Classes))
	for _, c := range res.Classes {
		names = append(names, c.Name)
	}
	if err := cache.Put(key, &generator.Payload{Classes: names, Files: files}); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: cache not updated: %v\n", err)
	}

	if !quiet(cmd) {
		fmt.Fprintf(cmd.OutOrStdout(), "generated %d classes (%d trampolines) into %s in %s\n",
			len(res.Classes), res.Trampolines(), cfg.OutputDir(), time.Since(start).Round(time.Millisecond))
	}
	return nil
}

// openCache returns a nil cache, on which every operation is a no-op,
// when caching is off or unavailable.
func openCache(cmd *cobra.Command, cfg *config.Config, p *generator.Project, opts generator.Options, disabled bool) (*generator.Cache, generator.Digest) {
	if disabled || !cfg.Output.Cache {
		return nil, generator.Digest{}
	}
	key, err := p.Digest(opts)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: cache disabled: %v\n", err)
		return nil, generator.Digest{}
	}
	cache, err := generator.OpenCache("")
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: cache disabled: %v\n", err)
		return nil, generator.Digest{}
	}
	return cache, key
}
