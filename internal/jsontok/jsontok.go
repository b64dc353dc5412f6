// Package jsontok scans a JSON buffer into a flat array of typed tokens.
//
// No tree is built and no string contents are copied: each token records the
// byte range it covers in the source buffer. Tokens form an implicit tree
// through document order and each container's Size. Parent indexes are only
// recorded when the parser is created with WithParentLinks.
//
// The scanner is permissive in the same places a streaming tokenizer needs to
// be: primitives are any run of plain bytes, and key/value separators are not
// validated. A Parser can be fed a growing buffer; an ErrIncomplete result
// leaves the cursor at a point from which a longer buffer parses correctly.
package jsontok

import (
	"errors"
	"fmt"
)

// Kind is the type of a token.
type Kind int

const (
	Undefined Kind = iota
	Object
	Array
	String
	Primitive
)

func (k Kind) String() string {
	switch k {
	case Object:
		return "object"
	case Array:
		return "array"
	case String:
		return "string"
	case Primitive:
		return "primitive"
	default:
		return "undefined"
	}
}

var (
	// ErrNoMemory means the token slice is too small. Retry with a larger one.
	ErrNoMemory = errors.New("jsontok: not enough tokens")
	// ErrInvalid means the input contains a malformed value or structure.
	ErrInvalid = errors.New("jsontok: invalid input")
	// ErrIncomplete means the input ended in the middle of a value.
	ErrIncomplete = errors.New("jsontok: incomplete input")
)

// Token describes one JSON value. Start and End are byte offsets into the
// source; for strings they exclude the quotes. Size is the number of direct
// children, counting object keys and values separately.
type Token struct {
	Kind   Kind
	Start  int
	End    int
	Size   int
	Parent int
}

// Text returns the bytes of js covered by the token.
func (t Token) Text(js []byte) []byte {
	if t.Start < 0 || t.End < t.Start || t.End > len(js) {
		return nil
	}
	return js[t.Start:t.End]
}

// Option configures a Parser.
type Option func(*Parser)

// WithParentLinks makes the parser record each token's parent index.
func WithParentLinks() Option {
	return func(p *Parser) {
		p.parentLinks = true
	}
}

// Parser is the scanning cursor. It is reused across calls to Parse on the
// same token slice; Reset starts over.
type Parser struct {
	pos   int
	next  int
	super int
	open  []int

	parentLinks bool
}

// NewParser returns a parser positioned at the start of input.
func NewParser(opts ...Option) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	p.Reset()
	return p
}

// Reset rewinds the parser to the start of input and forgets all tokens.
func (p *Parser) Reset() {
	p.pos = 0
	p.next = 0
	p.super = -1
	p.open = p.open[:0]
}

// Pos returns the current byte offset of the cursor.
func (p *Parser) Pos() int { return p.pos }

// Count returns the number of tokens allocated so far.
func (p *Parser) Count() int { return p.next }

// Parse scans js into tokens and returns the cumulative token count.
//
// On failure the returned count is the number of tokens allocated before the
// error and the error wraps ErrNoMemory, ErrInvalid or ErrIncomplete. Failed
// strings and primitives roll the cursor back to their first byte.
func (p *Parser) Parse(js []byte, tokens []Token) (int, error) {
	for ; p.pos < len(js); p.pos++ {
		c := js[p.pos]
		switch c {
		case '{', '[':
			tok := p.alloc(tokens)
			if tok == nil {
				return p.next, p.fail(ErrNoMemory)
			}
			tok.Kind = Object
			if c == '[' {
				tok.Kind = Array
			}
			tok.Start = p.pos
			if p.parentLinks {
				tok.Parent = p.super
			}
			if p.super != -1 {
				tokens[p.super].Size++
			}
			p.super = p.next - 1
			p.open = append(p.open, p.super)

		case '}', ']':
			kind := Object
			if c == ']' {
				kind = Array
			}
			if err := p.close(tokens, kind); err != nil {
				return p.next, err
			}

		case '"':
			if err := p.parseString(js, tokens); err != nil {
				return p.next, err
			}
			if p.super != -1 {
				tokens[p.super].Size++
			}

		case '\t', '\r', '\n', ' ', ':', ',':

		default:
			if err := p.parsePrimitive(js, tokens); err != nil {
				return p.next, err
			}
			if p.super != -1 {
				tokens[p.super].Size++
			}
		}
	}

	if len(p.open) > 0 {
		return p.next, p.fail(ErrIncomplete)
	}
	return p.next, nil
}

func (p *Parser) fail(err error) error {
	return fmt.Errorf("%w at offset %d", err, p.pos)
}

func (p *Parser) alloc(tokens []Token) *Token {
	if p.next >= len(tokens) {
		return nil
	}
	tok := &tokens[p.next]
	p.next++
	*tok = Token{Kind: Undefined, Start: -1, End: -1, Parent: -1}
	return tok
}

// close ends the innermost open container. The cursor is not rolled back on
// a mismatch: the closing byte itself is the problem.
func (p *Parser) close(tokens []Token, kind Kind) error {
	if len(p.open) == 0 {
		return p.fail(ErrInvalid)
	}
	top := p.open[len(p.open)-1]
	if tokens[top].Kind != kind {
		return p.fail(ErrInvalid)
	}
	tokens[top].End = p.pos + 1
	p.open = p.open[:len(p.open)-1]
	if len(p.open) > 0 {
		p.super = p.open[len(p.open)-1]
	} else {
		p.super = -1
	}
	return nil
}

func (p *Parser) parsePrimitive(js []byte, tokens []Token) error {
	start := p.pos

scan:
	for ; p.pos < len(js); p.pos++ {
		c := js[p.pos]
		switch c {
		case '\t', '\r', '\n', ' ', ',', ']', '}':
			break scan
		}
		if c < 32 || c == '"' || c == '\\' {
			p.pos = start
			return p.fail(ErrInvalid)
		}
	}

	tok := p.alloc(tokens)
	if tok == nil {
		p.pos = start
		return p.fail(ErrNoMemory)
	}
	tok.Kind = Primitive
	tok.Start = start
	tok.End = p.pos
	if p.parentLinks {
		tok.Parent = p.super
	}
	// The terminator is handled by the main loop.
	p.pos--
	return nil
}

func (p *Parser) parseString(js []byte, tokens []Token) error {
	start := p.pos
	p.pos++

	for ; p.pos < len(js); p.pos++ {
		c := js[p.pos]

		if c == '"' {
			tok := p.alloc(tokens)
			if tok == nil {
				p.pos = start
				return p.fail(ErrNoMemory)
			}
			tok.Kind = String
			tok.Start = start + 1
			tok.End = p.pos
			if p.parentLinks {
				tok.Parent = p.super
			}
			return nil
		}

		if c != '\\' {
			continue
		}

		p.pos++
		if p.pos >= len(js) {
			p.pos = start
			return p.fail(ErrIncomplete)
		}
		switch js[p.pos] {
		case '"', '/', '\\', 'b', 'f', 'r', 'n', 't':
		case 'u':
			for i := 0; i < 4; i++ {
				p.pos++
				if p.pos >= len(js) {
					p.pos = start
					return p.fail(ErrIncomplete)
				}
				if !isHex(js[p.pos]) {
					p.pos = start
					return p.fail(ErrInvalid)
				}
			}
		default:
			p.pos = start
			return p.fail(ErrInvalid)
		}
	}

	p.pos = start
	return p.fail(ErrIncomplete)
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// Parse is a convenience wrapper that scans js with a fresh parser into a
// token slice of the given capacity.
func Parse(js []byte, capacity int, opts ...Option) ([]Token, error) {
	tokens := make([]Token, capacity)
	n, err := NewParser(opts...).Parse(js, tokens)
	return tokens[:n], err
}
