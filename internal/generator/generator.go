// Package generator drives a generation run: it resolves every registered
// directive, synthesizes one class of trampolines per mixin, and renders the
// artifacts the weaving engine consumes.
package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hookgen/internal/bytecode"
	"hookgen/internal/classpath"
	"hookgen/internal/descriptor"
	"hookgen/internal/diag"
	"hookgen/internal/directive"
	"hookgen/internal/dispatch"
	"hookgen/internal/mapping"
	"hookgen/internal/signature"
	"hookgen/internal/trace"
	"hookgen/internal/trampoline"
	"hookgen/internal/widener"
)

// DefaultClassPrefix starts every generated class name.
const DefaultClassPrefix = "CTMixin"

// Options configures a Generator.
type Options struct {
	ModID string
	// Package is the internal name of the package generated classes live in.
	Package     string
	ClassPrefix string
	Runtime     trampoline.Runtime
	// Namespace heads the access widener file.
	Namespace string
	// Dev also renders disassembly listings.
	Dev            bool
	MaxDiagnostics int
	Progress       ProgressSink
	// Dispatch, when set, receives a Register call for every synthesized id.
	Dispatch *dispatch.Registry
}

// Class is one generated mixin class.
type Class struct {
	// Name is the simple class name listed in the manifest.
	Name        string
	Mixin       directive.Mixin
	Target      *mapping.Class
	Class       *bytecode.Class
	Trampolines []*trampoline.Trampoline
}

// Result is the outcome of Generate. Artifacts may only be rendered when
// Bag holds no errors.
type Result struct {
	Classes  []*Class
	Manifest Manifest
	Wideners *widener.Manifest
	Bag      *diag.Bag
	Timings  Timings

	opts Options
}

// OK reports whether the run produced no errors.
func (r *Result) OK() bool { return !r.Bag.HasErrors() }

// Trampolines counts the synthesized methods.
func (r *Result) Trampolines() int {
	n := 0
	for _, c := range r.Classes {
		n += len(c.Trampolines)
	}
	return n
}

func diagSummary(r *Result) string { return diag.Summary(r.Bag) }

// Generator holds the per-run naming counters. Use one Generator per run.
type Generator struct {
	opts     Options
	table    *mapping.Table
	resolver *signature.Resolver
	synth    *trampoline.Synthesizer
	classes  int
}

// New creates a generator resolving through table.
func New(table *mapping.Table, opts Options) *Generator {
	if opts.ClassPrefix == "" {
		opts.ClassPrefix = DefaultClassPrefix
	}
	if opts.Runtime == (trampoline.Runtime{}) {
		opts.Runtime = trampoline.DefaultRuntime
	}
	if opts.MaxDiagnostics <= 0 {
		opts.MaxDiagnostics = 200
	}
	opts.Package = strings.Trim(strings.ReplaceAll(opts.Package, ".", "/"), "/")
	return &Generator{
		opts:     opts,
		table:    table,
		resolver: signature.NewResolver(table),
		synth:    trampoline.NewSynthesizer(table, opts.ModID, opts.Runtime),
	}
}

// ClassName builds the simple name of the n-th generated class for target.
func ClassName(prefix, target string, n int) string {
	flat := strings.NewReplacer(".", "_", "/", "_").Replace(target)
	return fmt.Sprintf("%s_$%s$_%d", prefix, flat, n)
}

// Generate finalizes reg and processes its mixins in registration order.
// Per-directive failures are collected in the result's Bag; the returned
// error is reserved for cancellation.
func (g *Generator) Generate(ctx context.Context, reg *directive.Registry) (*Result, error) {
	tracer := trace.FromContext(ctx)
	run := trace.Begin(tracer, trace.ScopeDriver, "generate", 0)

	reg.Finalize()
	res := &Result{
		Wideners: widener.New(g.opts.Namespace),
		Bag:      diag.NewBag(g.opts.MaxDiagnostics),
		opts:     g.opts,
	}
	rep := diag.NewDedupReporter(diag.NewBagReporter(res.Bag))

	mixins := reg.Mixins()
	for _, m := range mixins {
		emit(g.opts.Progress, Event{Item: m.Mixin.Target, Stage: StageResolve, Status: StatusQueued})
	}
	var names []string
	for i, m := range mixins {
		if err := ctx.Err(); err != nil {
			run.End("cancelled")
			return nil, err
		}
		start := time.Now()
		emit(g.opts.Progress, Event{Item: m.Mixin.Target, Stage: StageSynthesize, Status: StatusWorking})
		before := res.Bag.Count(diag.SevError)
		c := g.mixin(ctx, run.ID(), i, m, rep)
		g.widen(i, m, res.Wideners, rep)

		elapsed := time.Since(start)
		res.Timings.Add(StageSynthesize, elapsed)
		status := StatusDone
		if res.Bag.Count(diag.SevError) > before {
			status = StatusError
		}
		emit(g.opts.Progress, Event{Item: m.Mixin.Target, Stage: StageSynthesize, Status: status, Elapsed: elapsed})
		if c == nil {
			continue
		}
		res.Classes = append(res.Classes, c)
		names = append(names, c.Name)
	}
	res.Manifest = NewManifest(g.opts.Package, names)
	res.Bag.Sort()
	run.WithExtra("classes", fmt.Sprint(len(res.Classes))).
		WithExtra("trampolines", fmt.Sprint(res.Trampolines())).
		End(diag.Summary(res.Bag))
	return res, nil
}

func mixinLocation(index int, m directive.MixinDetails) diag.Location {
	loc := diag.Location{Mixin: index, Index: -1, Target: m.Mixin.Target}
	if len(m.Entries) > 0 {
		loc.File = m.Entries[0].Source
	}
	return loc
}

func entryLocation(index int, e directive.Entry) diag.Location {
	return diag.Location{
		File:      e.Source,
		Mixin:     index,
		Index:     e.Index,
		Target:    e.Mixin.Target,
		Directive: e.Directive.Describe(),
	}
}

// mixin builds the class of one mixin. It returns nil when the target does
// not resolve or the mixin has no directives.
func (g *Generator) mixin(ctx context.Context, parent uint64, index int, m directive.MixinDetails, rep diag.Reporter) *Class {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeMixin, m.Mixin.Target, parent)
	loc := mixinLocation(index, m)

	if len(m.Entries) == 0 {
		if len(m.Wideners) == 0 {
			diag.ReportWarning(rep, diag.DirEmptyMixin, loc, "mixin declares no directives or wideners").Emit()
		}
		span.End("empty")
		return nil
	}
	target, err := g.table.ResolveTarget(m.Mixin.Target, m.Mixin.Remaps())
	if err != nil {
		report(rep, loc, err, diag.ResUnknownClass)
		span.End("unresolved")
		return nil
	}

	name := ClassName(g.opts.ClassPrefix, m.Mixin.Target, g.classes)
	g.classes++
	out := &Class{
		Name:   name,
		Mixin:  m.Mixin,
		Target: target,
		Class: &bytecode.Class{
			Name:        g.opts.Package + "/" + name,
			Super:       "java/lang/Object",
			Access:      classpath.AccPublic,
			Annotations: []*bytecode.Annotation{g.synth.Annotator().Mixin(target, m.Mixin)},
		},
	}
	for _, e := range m.Entries {
		if t := g.directive(tracer, span.ID(), index, target, e, rep); t != nil {
			out.Class.Methods = append(out.Class.Methods, t.Method)
			out.Trampolines = append(out.Trampolines, t)
		}
	}
	span.WithExtra("methods", fmt.Sprint(len(out.Trampolines))).End(name)
	return out
}

func (g *Generator) directive(tracer trace.Tracer, parent uint64, index int, target *mapping.Class, e directive.Entry, rep diag.Reporter) *trampoline.Trampoline {
	loc := entryLocation(index, e)
	span := trace.Begin(tracer, trace.ScopeDirective, e.Directive.Describe(), parent)

	if errs := directive.ValidateAll(e.Directive); len(errs) > 0 {
		for _, err := range errs {
			report(rep, loc, err, diag.DirInvalid)
		}
		span.End("invalid")
		return nil
	}
	for _, text := range descriptorTexts(e.Directive) {
		if !descriptor.Composed(text) {
			diag.ReportWarning(rep, diag.DescNotComposed, loc,
				fmt.Sprintf("%q is not in composed form and only matches names spelled the same way", text)).Emit()
		}
	}
	sig, err := g.resolver.Resolve(target, e.Directive)
	if err != nil {
		report(rep, loc, err, diag.ResUnknownMember)
		span.End("unresolved")
		return nil
	}
	t, err := g.synth.Synthesize(e.ID, sig)
	if err != nil {
		report(rep, loc, err, diag.SigSynthesisFailed)
		span.End("failed")
		return nil
	}
	if g.opts.Dispatch != nil {
		if err := g.opts.Dispatch.Register(e.ID); err != nil {
			report(rep, loc, err, diag.SigSynthesisFailed)
		}
	}
	span.WithExtra("method", t.Method.Name).End(sig.String())
	return t
}

func (g *Generator) widen(index int, m directive.MixinDetails, aw *widener.Manifest, rep diag.Reporter) {
	loc := mixinLocation(index, m)
	for _, err := range aw.Apply(g.table, m.Mixin, m.Wideners) {
		report(rep, loc, err, diag.ResUnknownWidener)
	}
}

// descriptorTexts lists the member descriptors d names.
func descriptorTexts(d *directive.Directive) []string {
	out := []string{d.Method}
	for _, a := range d.At {
		if a.Target != nil {
			out = append(out, *a.Target)
		}
	}
	return out
}
