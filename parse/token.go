package parse

import (
	"fmt"

	"github.com/edwingeng/deque"
	"github.com/robfig/vento/ast"
)

// TokenType identifies the kind of a template token.
type TokenType int

const (
	TokenText   TokenType = iota // literal text between tags
	TokenTag                     // the code inside {{ }}
	TokenFilter                  // a |> filter segment trailing a tag
)

func (t TokenType) String() string {
	switch t {
	case TokenText:
		return "string"
	case TokenTag:
		return "tag"
	case TokenFilter:
		return "filter"
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Token is one element of the token stream.  For tags and filters, Value is
// the trimmed code and Pos the byte offset of that code in the source.
type Token struct {
	Type  TokenType
	Value string
	Pos   ast.Pos
}

func (t Token) String() string {
	if len(t.Value) > 20 {
		return fmt.Sprintf("%v(%.20q...)", t.Type, t.Value)
	}
	return fmt.Sprintf("%v(%q)", t.Type, t.Value)
}

// Stream is a front-consumable cursor over a sequence of tokens.  It is
// owned by one compilation and not safe for concurrent use.
type Stream struct {
	name   string
	source string
	tokens deque.Deque
}

// NewStream returns a stream over the given tokens.  The source text is kept
// for computing line and column numbers.
func NewStream(name, source string, tokens []Token) *Stream {
	var s = &Stream{
		name:   name,
		source: source,
		tokens: deque.NewDeque(),
	}
	for _, tok := range tokens {
		s.tokens.PushBack(tok)
	}
	return s
}

// Name returns the name of the template the tokens were read from.
func (s *Stream) Name() string {
	return s.name
}

// Source returns the full template text.
func (s *Stream) Source() string {
	return s.source
}

// Len returns the number of unconsumed tokens.
func (s *Stream) Len() int {
	return s.tokens.Len()
}

// Peek returns the next token without consuming it.
func (s *Stream) Peek() (Token, bool) {
	if s.tokens.Empty() {
		return Token{}, false
	}
	return s.tokens.Front().(Token), true
}

// Next consumes and returns the next token.
func (s *Stream) Next() (Token, bool) {
	if s.tokens.Empty() {
		return Token{}, false
	}
	return s.tokens.PopFront().(Token), true
}

// PeekType reports whether the next token exists and has the given type.
func (s *Stream) PeekType(typ TokenType) (Token, bool) {
	var tok, ok = s.Peek()
	if !ok || tok.Type != typ {
		return Token{}, false
	}
	return tok, true
}

// Unread pushes tok back onto the front of the stream.
func (s *Stream) Unread(tok Token) {
	s.tokens.PushFront(tok)
}

// LineCol converts a byte offset into 1-based line and column numbers.
func (s *Stream) LineCol(pos ast.Pos) (line, col int) {
	return LineCol(s.source, pos)
}

// LineCol converts a byte offset in text into 1-based line and column
// numbers.
func LineCol(text string, pos ast.Pos) (line, col int) {
	if int(pos) > len(text) {
		pos = ast.Pos(len(text))
	}
	line, col = 1, 1
	for _, ch := range text[:pos] {
		if ch == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
