package descriptor

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Composed reports whether text is in Unicode normalization form C. Names
// compare by code unit, so a decomposed spelling never matches the composed
// name a class file carries.
func Composed(text string) bool {
	return norm.NFC.IsNormalString(text)
}

// Parser is a recursive-descent parser over one descriptor string.
//
// Every entry point takes a full flag. With full=true the whole input must be
// consumed and every optional part must be present; with full=false a bare
// member name is accepted (the owner and signature are supplied elsewhere).
type Parser struct {
	text string
	cur  cursor
}

// NewParser prepares text for parsing. The text is taken as is.
func NewParser(text string) *Parser {
	return &Parser{text: text, cur: newCursor(text)}
}

// ParseType parses a complete value type.
func ParseType(text string) (Type, error) {
	return NewParser(text).ParseType(true)
}

// ParseField parses a field reference.
func ParseField(text string, full bool) (*Field, error) {
	return NewParser(text).ParseField(full)
}

// ParseMethod parses a method reference.
func ParseMethod(text string, full bool) (*Method, error) {
	return NewParser(text).ParseMethod(full)
}

// ParseConstructor parses a constructor reference.
func ParseConstructor(text string, full bool) (*Constructor, error) {
	return NewParser(text).ParseConstructor(full)
}

func (p *Parser) fail(format string, args ...any) error {
	return &SyntaxError{Text: p.text, Pos: p.cur.pos(), Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) start() error {
	if p.text == "" {
		return p.fail("empty descriptor")
	}
	if p.cur.pos() != 0 {
		return p.fail("parser already used")
	}
	return nil
}

func (p *Parser) finish(what string) error {
	if !p.cur.eof() {
		return p.fail("unexpected trailing input after %s", what)
	}
	return nil
}

// ParseType parses a value type. With full=false the cursor may stop before
// the end of input, which lets callers parse a type prefix.
func (p *Parser) ParseType(full bool) (Type, error) {
	if full {
		if err := p.start(); err != nil {
			return nil, err
		}
	}
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if full {
		if err := p.finish("type"); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// ParseField parses `object? ident (":" type)?`.
func (p *Parser) ParseField(full bool) (*Field, error) {
	if err := p.start(); err != nil {
		return nil, err
	}
	owner, err := p.parseOwner(full)
	if err != nil {
		return nil, err
	}
	name, ok := p.memberName()
	if !ok {
		return nil, p.fail("expected field name")
	}
	var typ Type
	if p.cur.eat(':') {
		if typ, err = p.parseType(); err != nil {
			return nil, err
		}
		if typ == Void {
			return nil, p.fail("field type cannot be void")
		}
	} else if full {
		return nil, p.fail("expected ':' followed by the field type")
	}
	if err := p.finish("field"); err != nil {
		return nil, err
	}
	return &Field{Owner: owner, Name: name, Type: typ}, nil
}

// ParseMethod parses `object? name ( "(" type* ")" type )?`.
func (p *Parser) ParseMethod(full bool) (*Method, error) {
	if err := p.start(); err != nil {
		return nil, err
	}
	owner, err := p.parseOwner(full)
	if err != nil {
		return nil, err
	}
	name, ok := p.memberName()
	if !ok {
		return nil, p.fail("expected method name")
	}
	m := &Method{Owner: owner, Name: name}
	if p.cur.peek() == '(' {
		if m.Params, err = p.parseParams(); err != nil {
			return nil, err
		}
		if m.Return, err = p.parseType(); err != nil {
			return nil, err
		}
	} else if full {
		return nil, p.fail("expected a full method descriptor")
	}
	if err := p.finish("method"); err != nil {
		return nil, err
	}
	return m, nil
}

// ParseConstructor parses `( "(" type* ")" )? type` where type is an object.
func (p *Parser) ParseConstructor(full bool) (*Constructor, error) {
	if err := p.start(); err != nil {
		return nil, err
	}
	c := &Constructor{}
	if p.cur.peek() == '(' {
		params, err := p.parseParams()
		if err != nil {
			return nil, err
		}
		c.Params = params
		c.HasParams = true
	} else if full {
		return nil, p.fail("expected a full constructor descriptor")
	}
	at := p.cur.pos()
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	obj, ok := t.(Object)
	if !ok {
		return nil, &SyntaxError{Text: p.text, Pos: at, Msg: "constructed type must be an object type"}
	}
	c.Type = obj
	if err := p.finish("constructor"); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *Parser) parseType() (Type, error) {
	if p.cur.eof() {
		return nil, p.fail("expected a type")
	}
	c := p.cur.peek()
	switch {
	case c == 'L':
		return p.parseObject()
	case c == '[':
		p.cur.bump()
		base, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if base == Void {
			return nil, p.fail("array element type cannot be void")
		}
		return ArrayOf(base, 1), nil
	default:
		if prim, ok := PrimitiveFor(c); ok {
			p.cur.bump()
			return prim, nil
		}
		return nil, p.fail("unexpected character %q", c)
	}
}

// parseObject parses `"L" ident ("/" ident)* ";"`.
func (p *Parser) parseObject() (Object, error) {
	m := p.cur.mark()
	if !p.cur.eat('L') {
		return Object{}, p.fail("expected 'L'")
	}
	for {
		if _, ok := p.ident(); !ok {
			return Object{}, p.fail("expected class name segment")
		}
		if p.cur.eat('/') {
			continue
		}
		if p.cur.eat(';') {
			break
		}
		return Object{}, p.fail("expected '/' or ';' in class name")
	}
	text := p.cur.from(m)
	return Object{name: text[1 : len(text)-1]}, nil
}

// parseOwner parses an optional owner class. Without full, a failed owner
// parse rewinds so the text can be read as a bare member name.
func (p *Parser) parseOwner(full bool) (*Object, error) {
	if p.cur.peek() != 'L' {
		if full {
			return nil, p.fail("expected owner class descriptor")
		}
		return nil, nil
	}
	m := p.cur.mark()
	obj, err := p.parseObject()
	if err != nil {
		if full {
			return nil, err
		}
		p.cur.reset(m)
		return nil, nil
	}
	return &obj, nil
}

func (p *Parser) parseParams() ([]Type, error) {
	if !p.cur.eat('(') {
		return nil, p.fail("expected '('")
	}
	params := make([]Type, 0, 4)
	for !p.cur.eof() && p.cur.peek() != ')' {
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if t == Void {
			return nil, p.fail("parameter type cannot be void")
		}
		params = append(params, t)
	}
	if !p.cur.eat(')') {
		return nil, p.fail("expected ')'")
	}
	return params, nil
}

var specialNames = []string{"<init>", "<clinit>"}

func (p *Parser) memberName() (string, bool) {
	rest := p.text[p.cur.pos():]
	for _, special := range specialNames {
		if strings.HasPrefix(rest, special) {
			p.cur.advance(len(special))
			return special, true
		}
	}
	return p.ident()
}

func (p *Parser) ident() (string, bool) {
	r, size := p.cur.peekRune()
	if size == 0 || !isIdentStart(r) {
		return "", false
	}
	m := p.cur.mark()
	p.cur.advance(size)
	for {
		r, size = p.cur.peekRune()
		if size == 0 || !isIdentPart(r) {
			break
		}
		p.cur.advance(size)
	}
	return p.cur.from(m), true
}

func isIdentStart(r rune) bool {
	return r == '$' || r == '_' ||
		unicode.IsLetter(r) ||
		unicode.In(r, unicode.Nl, unicode.Sc, unicode.Pc)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) ||
		unicode.In(r, unicode.Nd, unicode.Mn, unicode.Mc, unicode.Cf)
}

// ParseMethodType parses a bare method type such as "(IJ)V".
func ParseMethodType(text string) ([]Type, Type, error) {
	return NewParser(text).ParseMethodType()
}

// ParseMethodType parses `"(" type* ")" type` covering the whole input.
func (p *Parser) ParseMethodType() ([]Type, Type, error) {
	if err := p.start(); err != nil {
		return nil, nil, err
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, nil, err
	}
	ret, err := p.parseType()
	if err != nil {
		return nil, nil, err
	}
	if err := p.finish("method type"); err != nil {
		return nil, nil, err
	}
	return params, ret, nil
}
