package diag

import (
	"fmt"
	"strings"
)

// Location points at the directive a diagnostic is about. Mixin and Index
// are zero-based; -1 means the diagnostic is not tied to one.
type Location struct {
	File      string
	Mixin     int
	Index     int
	Target    string // mixin target class, logical name
	Directive string // "redirect tick()V"
}

// NoLocation is used for run-level findings.
var NoLocation = Location{Mixin: -1, Index: -1}

func (l Location) String() string {
	var parts []string
	if l.File != "" {
		parts = append(parts, l.File)
	}
	if l.Mixin >= 0 {
		parts = append(parts, fmt.Sprintf("mixin #%d", l.Mixin+1))
	}
	if l.Index >= 0 {
		parts = append(parts, fmt.Sprintf("injector #%d", l.Index+1))
	}
	return strings.Join(parts, ": ")
}

type Note struct {
	Msg string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Location Location
	Notes    []Note
}

func New(sev Severity, code Code, loc Location, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Location: loc,
		Message:  msg,
	}
}

func NewError(code Code, loc Location, msg string) Diagnostic {
	return New(SevError, code, loc, msg)
}

func (d Diagnostic) WithNote(msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Msg: msg})
	return d
}

// String renders d on one line: "file: mixin #1: injector #2: ERROR HKG2002: message".
func (d Diagnostic) String() string {
	var sb strings.Builder
	if loc := d.Location.String(); loc != "" {
		sb.WriteString(loc)
		sb.WriteString(": ")
	}
	fmt.Fprintf(&sb, "%s %s: %s", d.Severity, d.Code.ID(), d.Message)
	return sb.String()
}
