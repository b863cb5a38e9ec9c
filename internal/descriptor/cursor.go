package descriptor

import (
	"fmt"
	"unicode/utf8"

	"fortio.org/safecast"
)

// cursor walks descriptor text byte by byte.
type cursor struct {
	text  string
	off   uint32
	limit uint32
}

func newCursor(text string) cursor {
	limit, err := safecast.Conv[uint32](len(text))
	if err != nil {
		panic(fmt.Errorf("descriptor length overflow: %w", err))
	}
	return cursor{text: text, limit: limit}
}

func (c *cursor) eof() bool {
	return c.off >= c.limit
}

func (c *cursor) peek() byte {
	if c.eof() {
		return 0
	}
	return c.text[c.off]
}

// peekRune decodes the rune at the cursor without consuming it.
func (c *cursor) peekRune() (rune, int) {
	if c.eof() {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(c.text[c.off:])
}

func (c *cursor) bump() byte {
	if c.eof() {
		return 0
	}
	b := c.text[c.off]
	c.off++
	return b
}

func (c *cursor) advance(n int) {
	step, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("cursor step overflow: %w", err))
	}
	c.off += step
	if c.off > c.limit {
		c.off = c.limit
	}
}

func (c *cursor) eat(b byte) bool {
	if !c.eof() && c.text[c.off] == b {
		c.off++
		return true
	}
	return false
}

type mark uint32

func (c *cursor) mark() mark {
	return mark(c.off)
}

func (c *cursor) reset(m mark) {
	c.off = uint32(m)
}

func (c *cursor) from(m mark) string {
	return c.text[m:c.off]
}

func (c *cursor) pos() int {
	return int(c.off)
}
