package parse

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/robfig/vento/ast"
	"github.com/robfig/vento/errortypes"
)

// Lexer design from text/template.

// item is a token or the text of an error returned from the scanner.
type item struct {
	tok Token
	err string
}

const (
	eof          = -1
	leftDelim    = "{{"
	rightDelim   = "}}"
	commentStart = "{{#"
	commentEnd   = "#}}"
	trimMarker   = '-'
	filterPipe   = "|>"
)

// stateFn represents the state of the lexer as a function that returns the
// next state.
type stateFn func(*lexer) stateFn

// lexer holds the state of the lexical scanning.
type lexer struct {
	name      string    // the name of the input; used only during errors.
	input     string    // the string being scanned.
	state     stateFn   // the next lexing function to enter.
	pos       ast.Pos   // current position in the input.
	start     ast.Pos   // start position of this item.
	width     int       // width of last rune read from input.
	items     chan item // channel of scanned items.
	tagStart  ast.Pos   // position of the {{ of the current tag.
	trimStart bool      // the previous tag ended with -}}
}

// nextItem returns the next item from the input.  The channel is closed
// after the last token.
func (l *lexer) nextItem() (item, bool) {
	var it, ok = <-l.items
	return it, ok
}

// lex creates a new scanner for the input string.
func lex(name, input string) *lexer {
	l := &lexer{
		name:  name,
		input: input,
		items: make(chan item),
		state: lexText,
	}
	go l.run()
	return l
}

// run runs the state machine for the lexer.
func (l *lexer) run() {
	for l.state != nil {
		l.state = l.state(l)
	}
	close(l.items)
}

// drain consumes the remaining items so the lexing goroutine can exit.
func (l *lexer) drain() {
	for range l.items {
	}
}

// Lex splits a template source into text, tag and filter tokens.
func Lex(name, input string) ([]Token, error) {
	var l = lex(name, input)
	var tokens []Token
	for {
		var it, ok = l.nextItem()
		if !ok {
			return tokens, nil
		}
		if it.err != "" {
			l.drain()
			var line, col = LineCol(input, it.tok.Pos)
			return nil, errortypes.NewErrFilePosf(name, line, col, "%s", it.err)
		}
		tokens = append(tokens, it.tok)
	}
}

// Tokenize lexes the input into a Stream.
func Tokenize(name, input string) (*Stream, error) {
	var tokens, err = Lex(name, input)
	if err != nil {
		return nil, err
	}
	return NewStream(name, input, tokens), nil
}

// next returns the next rune in the input.
func (l *lexer) next() (r rune) {
	if l.pos >= ast.Pos(len(l.input)) {
		l.width = 0
		return eof
	}
	r, l.width = utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += ast.Pos(l.width)
	return r
}

// emitTrimmed emits the code in input[start:end] with surrounding space
// removed, positioned at its first non-space character.
func (l *lexer) emitTrimmed(typ TokenType, start, end ast.Pos) {
	var code = l.input[start:end]
	var trimmed = strings.TrimLeftFunc(code, unicode.IsSpace)
	start += ast.Pos(len(code) - len(trimmed))
	l.items <- item{tok: Token{typ, strings.TrimRightFunc(trimmed, unicode.IsSpace), start}}
}

func (l *lexer) hasPrefix(prefix string) bool {
	return strings.HasPrefix(l.input[l.pos:], prefix)
}

// errorf returns an error item and terminates the scan by passing
// back a nil pointer that will be the next state.
func (l *lexer) errorf(pos ast.Pos, msg string) stateFn {
	l.items <- item{tok: Token{Pos: pos}, err: msg}
	return nil
}

// State functions ------------------------------------------------------------

// emitText emits the text scanned since l.start, applying whitespace
// trimming requested by the surrounding tags.
func (l *lexer) emitText(end ast.Pos, trimEnd bool) {
	var text = l.input[l.start:end]
	var start = l.start
	if l.trimStart {
		var trimmed = strings.TrimLeftFunc(text, unicode.IsSpace)
		start += ast.Pos(len(text) - len(trimmed))
		text = trimmed
		l.trimStart = false
	}
	if trimEnd {
		text = strings.TrimRightFunc(text, unicode.IsSpace)
	}
	if text != "" {
		l.items <- item{tok: Token{TokenText, text, start}}
	}
}

// lexText scans until an opening tag delimiter, "{{".
func lexText(l *lexer) stateFn {
	var i = strings.Index(l.input[l.pos:], leftDelim)
	if i == -1 {
		l.emitText(ast.Pos(len(l.input)), false)
		return nil
	}
	var tagStart = l.pos + ast.Pos(i)
	l.pos = tagStart
	l.tagStart = tagStart
	switch {
	case l.hasPrefix(commentStart):
		l.emitText(tagStart, false)
		return lexComment
	case l.hasPrefix(leftDelim + string(trimMarker)):
		l.emitText(tagStart, true)
		l.pos += ast.Pos(len(leftDelim) + 1)
	default:
		l.emitText(tagStart, false)
		l.pos += ast.Pos(len(leftDelim))
	}
	l.start = l.pos
	return lexInsideTag
}

// lexComment skips a {{# ... #}} comment.
func lexComment(l *lexer) stateFn {
	var open = l.pos
	var i = strings.Index(l.input[l.pos+ast.Pos(len(commentStart)):], commentEnd)
	if i == -1 {
		return l.errorf(open, "unclosed comment")
	}
	l.pos += ast.Pos(len(commentStart) + i + len(commentEnd))
	l.start = l.pos
	return lexText
}

// lexInsideTag scans the code of a tag up to its closing "}}", splitting it
// at top-level filter pipes.  Quotes and nested brackets are skipped, so the
// closing delimiter and pipes only count outside of them.
func lexInsideTag(l *lexer) stateFn {
	var depth = 0
	var segment = l.start
	var typ = TokenTag
	for {
		if depth == 0 && l.hasPrefix(rightDelim) {
			var end = l.pos
			if end > segment && l.input[end-1] == trimMarker {
				end--
				l.trimStart = true
			}
			l.emitTrimmed(typ, segment, end)
			l.pos += ast.Pos(len(rightDelim))
			l.start = l.pos
			return lexText
		}
		if depth == 0 && l.hasPrefix(filterPipe) {
			l.emitTrimmed(typ, segment, l.pos)
			l.pos += ast.Pos(len(filterPipe))
			segment = l.pos
			typ = TokenFilter
			continue
		}

		switch r := l.next(); r {
		case eof:
			return l.errorf(l.tagStart, "unclosed tag")
		case '"', '\'', '`':
			var quote = l.pos - 1
			if !l.skipString(r) {
				return l.errorf(quote, "unterminated string")
			}
		case '{', '(', '[':
			depth++
		case '}', ')', ']':
			if depth > 0 {
				depth--
			}
		}
	}
}

// skipString advances past the closing quote.  The opening quote has
// already been read.
func (l *lexer) skipString(quote rune) bool {
	for {
		switch l.next() {
		case eof:
			return false
		case '\\':
			l.next()
		case quote:
			return true
		}
	}
}
