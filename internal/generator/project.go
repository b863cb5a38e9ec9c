package generator

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"hookgen/internal/classpath"
	"hookgen/internal/config"
	"hookgen/internal/diag"
	"hookgen/internal/directive"
	"hookgen/internal/mapping"
)

// Project is everything a run reads from disk.
type Project struct {
	Config   *config.Config
	Table    *mapping.Table
	Registry *directive.Registry
	// Inputs lists the files whose contents determine the output.
	Inputs  []string
	Timings Timings
}

// LoadProject reads the classpath model, the mappings and every directive
// file named by cfg. Malformed directives are reported to bag and left out
// of the registry; unreadable inputs are returned as an error.
func LoadProject(cfg *config.Config, bag *diag.Bag) (*Project, error) {
	start := time.Now()
	rep := diag.NewBagReporter(bag)
	p := &Project{Config: cfg, Registry: directive.NewRegistry()}
	p.Inputs = append(p.Inputs, cfg.Path)

	cpPath := cfg.Resolve(cfg.Classpath.Path)
	set, err := classpath.LoadFile(cpPath)
	if err != nil {
		diag.ReportError(rep, diag.IOClasspath, diag.Location{File: cpPath, Mixin: -1, Index: -1}, err.Error()).Emit()
		return nil, err
	}
	p.Inputs = append(p.Inputs, cpPath)

	var packages []string
	if cfg.Mappings != nil {
		packages = cfg.Mappings.MappedPackages
	}
	p.Table = mapping.NewTable(set, packages)
	if m := cfg.Mappings; m != nil {
		mPath := cfg.Resolve(m.Path)
		runtimeNS := m.Runtime
		if cfg.Output.Dev {
			runtimeNS = m.Logical
		}
		classes, err := mapping.LoadTiny(mPath, m.Logical, runtimeNS)
		if err == nil {
			err = p.Table.AddClasses(classes)
		}
		if err != nil {
			diag.ReportError(rep, diag.IOMappings, diag.Location{File: mPath, Mixin: -1, Index: -1}, err.Error()).Emit()
			return nil, err
		}
		p.Inputs = append(p.Inputs, mPath)
	}

	groups, err := directive.LoadFiles(cfg.Root, cfg.Directives.Paths)
	if err != nil {
		var le directive.LoadErrors
		if !errors.As(err, &le) {
			diag.ReportError(rep, diag.IOLoadFailed, diag.NoLocation, err.Error()).Emit()
			return nil, err
		}
		for _, se := range le {
			code, notes := classify(se.Err, diag.DirBadAuthoring)
			rep.Report(code, diag.SevError, diag.Location{File: se.Source, Mixin: se.Mixin, Index: se.Index}, se.Err.Error(), notes)
		}
	}
	if len(groups) == 0 && bag.Len() == 0 {
		diag.ReportWarning(rep, diag.DirEmptyMixin, diag.NoLocation,
			fmt.Sprintf("no mixins found in %v", cfg.Directives.Paths)).Emit()
	}

	sources := make(map[string]bool)
	for _, g := range groups {
		if _, err := p.Registry.RegisterGroup(g); err != nil {
			diag.ReportError(rep, diag.DirRestartRequired, diag.Location{File: g.Source, Mixin: -1, Index: -1}, err.Error()).Emit()
		}
		sources[g.Source] = true
	}
	var files []string
	for s := range sources {
		files = append(files, s)
	}
	sort.Strings(files)
	p.Inputs = append(p.Inputs, files...)
	p.Timings.Add(StageLoad, time.Since(start))
	return p, nil
}

// Digest hashes the inputs together with the options that shape the output.
func (p *Project) Digest(opts Options) (Digest, error) {
	h := NewHasher()
	h.String("modid", opts.ModID)
	h.String("package", opts.Package)
	h.String("prefix", opts.ClassPrefix)
	h.String("namespace", opts.Namespace)
	h.String("dev", fmt.Sprint(opts.Dev))
	h.String("runtime", fmt.Sprintf("%+v", opts.Runtime))
	for _, path := range p.Inputs {
		if err := h.File(path); err != nil {
			return Digest{}, err
		}
	}
	return h.Sum(), nil
}

// Options derives generator options from the project configuration.
func (p *Project) Options() Options {
	cfg := p.Config
	return Options{
		ModID:       cfg.Project.ModID,
		Package:     cfg.Project.Package,
		ClassPrefix: DefaultClassPrefix,
		Namespace:   cfg.RuntimeNamespace(),
		Dev:         cfg.Output.Dev,
	}
}
