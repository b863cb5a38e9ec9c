package diag

import (
	"encoding/json"
	"io"
)

// LocationJSON is the JSON shape of a Location.
type LocationJSON struct {
	File      string `json:"file,omitempty"`
	Mixin     *int   `json:"mixin,omitempty"`
	Index     *int   `json:"index,omitempty"`
	Target    string `json:"target,omitempty"`
	Directive string `json:"directive,omitempty"`
}

// DiagnosticJSON is the JSON shape of a Diagnostic.
type DiagnosticJSON struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Title    string       `json:"title"`
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
	Notes    []string     `json:"notes,omitempty"`
}

// Output is the root of the JSON report.
type Output struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
	Errors      int              `json:"errors"`
	Warnings    int              `json:"warnings"`
}

func optionalIndex(i int) *int {
	if i < 0 {
		return nil
	}
	return &i
}

// ToJSON converts the bag contents, in their current order.
func ToJSON(bag *Bag) Output {
	out := Output{
		Diagnostics: make([]DiagnosticJSON, 0, bag.Len()),
		Count:       bag.Len(),
		Errors:      bag.Count(SevError),
		Warnings:    bag.Count(SevWarning),
	}
	for _, d := range bag.Items() {
		dj := DiagnosticJSON{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Title:    d.Code.Title(),
			Message:  d.Message,
			Location: LocationJSON{
				File:      d.Location.File,
				Mixin:     optionalIndex(d.Location.Mixin),
				Index:     optionalIndex(d.Location.Index),
				Target:    d.Location.Target,
				Directive: d.Location.Directive,
			},
		}
		for _, n := range d.Notes {
			dj.Notes = append(dj.Notes, n.Msg)
		}
		out.Diagnostics = append(out.Diagnostics, dj)
	}
	return out
}

// JSON writes the bag as an indented JSON document.
func JSON(w io.Writer, bag *Bag) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ToJSON(bag))
}
