package diag

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
)

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	PathModeAsIs PathMode = iota
	PathModeRelative
	PathModeBasename
)

// PrettyOpts configures Pretty.
type PrettyOpts struct {
	Color     bool
	PathMode  PathMode
	BaseDir   string // for PathModeRelative
	ShowNotes bool
	// Max limits the printed diagnostics; 0 prints all.
	Max int
}

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan, color.Bold)
	locColor     = color.New(color.Bold)
	noteColor    = color.New(color.FgHiBlack)
)

func severityColor(s Severity) *color.Color {
	switch s {
	case SevError:
		return errorColor
	case SevWarning:
		return warningColor
	default:
		return infoColor
	}
}

// Pretty writes one block per diagnostic:
//
//	directives/render.toml: mixin #1: injector #2
//	  ERROR[RES2003] Ambiguous member: multiple methods match name tick ...
//	    note: candidate tick()V
//
// followed by a summary line.
func Pretty(w io.Writer, bag *Bag, opts PrettyOpts) error {
	paint := func(c *color.Color, s string) string {
		if !opts.Color {
			return s
		}
		c.EnableColor()
		return c.Sprint(s)
	}

	items := bag.Items()
	shown := len(items)
	if opts.Max > 0 && shown > opts.Max {
		shown = opts.Max
	}
	for _, d := range items[:shown] {
		loc := d.Location
		loc.File = formatPath(loc.File, opts)
		if header := loc.String(); header != "" {
			if loc.Directive != "" {
				header += " (" + loc.Directive + ")"
			}
			if _, err := fmt.Fprintln(w, paint(locColor, header)); err != nil {
				return err
			}
		}
		sev := paint(severityColor(d.Severity), fmt.Sprintf("%s[%s]", d.Severity, d.Code.ID()))
		if _, err := fmt.Fprintf(w, "  %s %s: %s\n", sev, d.Code.Title(), d.Message); err != nil {
			return err
		}
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			if _, err := fmt.Fprintln(w, paint(noteColor, "    note: "+n.Msg)); err != nil {
				return err
			}
		}
	}
	if hidden := len(items) - shown + bag.Dropped(); hidden > 0 {
		if _, err := fmt.Fprintf(w, "... %d more diagnostics not shown\n", hidden); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, Summary(bag))
	return err
}

// Summary returns "N errors, M warnings".
func Summary(bag *Bag) string {
	return fmt.Sprintf("%s, %s", plural(bag.Count(SevError), "error"), plural(bag.Count(SevWarning), "warning"))
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func formatPath(path string, opts PrettyOpts) string {
	if path == "" {
		return ""
	}
	switch opts.PathMode {
	case PathModeBasename:
		return filepath.Base(path)
	case PathModeRelative:
		if opts.BaseDir == "" {
			return path
		}
		if rel, err := filepath.Rel(opts.BaseDir, path); err == nil {
			return rel
		}
	}
	return path
}
