// Package diag defines the diagnostic model of a generation run.
//
// # Data model
//
// Diagnostic is the central record. It contains:
//
//   - Severity: tri-level enum (Info, Warning, Error) defined in severity.go.
//   - Code: compact numeric identifier (see codes.go) with a stable string form.
//   - Message: human oriented text; keep it short and actionable.
//   - Location: the authoring file, mixin and directive the finding is about.
//   - Notes: optional secondary messages, for example the candidate overloads
//     of an ambiguous method reference.
//
// # Producers and consumers
//
// Phases emit through the Reporter interface rather than appending to a Bag
// directly. BagReporter aggregates into a Bag, which supports sorting and
// deduplication. The generator fills a Bag per run and refuses to write any
// artifact when it holds an error. Rendering lives in pretty.go (terminal)
// and json.go (machine readable).
//
// Keep the data model deterministic: output order is fixed by Bag.Sort so
// repeated runs over the same directives print the same report.
package diag
