package descriptor

import "fmt"

// SyntaxError reports malformed descriptor text.
type SyntaxError struct {
	Text string // offending input
	Pos  int    // byte offset of the cursor when parsing failed
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("invalid descriptor %q at position %d: %s", e.Text, e.Pos, e.Msg)
}
