package parse

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/robfig/vento/ast"
)

// exprItem is a token of the expression language.
type exprItem struct {
	typ itemType // The type of this item.
	pos ast.Pos  // The starting position, in bytes, of this item in the template.
	val string   // The value of this item.
}

func (i exprItem) String() string {
	switch {
	case i.typ == itemEOF:
		return "EOF"
	case i.typ == itemError:
		return i.val
	case len(i.val) > 10:
		return fmt.Sprintf("%.10q...", i.val)
	}
	return fmt.Sprintf("%q", i.val)
}

// itemType identifies the type of lexical items.
type itemType int

const (
	itemInvalid itemType = iota // not used
	itemEOF                     // EOF
	itemError                   // error occurred; value is text of error

	// Values
	itemNull      // null
	itemUndefined // undefined
	itemBool      // true, false
	itemInteger   // e.g. 42
	itemFloat     // e.g. 1.5
	itemString    // e.g. 'hello world'
	itemIdent     // identifier

	// Punctuation
	itemComma        // ,
	itemColon        // :
	itemDot          // .
	itemQuestionDot  // ?.
	itemLeftParen    // (
	itemRightParen   // )
	itemLeftBracket  // [
	itemRightBracket // ]
	itemLeftBrace    // {
	itemRightBrace   // }
	itemAssign       // =
	itemSpread       // ...

	// Operators
	itemNot         // !
	itemNegate      // - (unary)
	itemMul         // *
	itemDiv         // /
	itemMod         // %
	itemAdd         // +
	itemSub         // - (binary)
	itemEq          // ==
	itemNotEq       // !=
	itemStrictEq    // ===
	itemStrictNotEq // !==
	itemGt          // >
	itemGte         // >=
	itemLt          // <
	itemLte         // <=
	itemAnd         // &&
	itemOr          // ||
	itemNullish     // ??
	itemTernIf      // ?
)

// isOp returns true if the item is an expression operator.
func (t itemType) isOp() bool {
	return itemNot <= t && t <= itemTernIf
}

var keywords = map[string]itemType{
	"null":      itemNull,
	"undefined": itemUndefined,
	"true":      itemBool,
	"false":     itemBool,
}

// symbols lists the operators and punctuation, longest first.
var symbols = []struct {
	sym string
	typ itemType
}{
	{"===", itemStrictEq},
	{"!==", itemStrictNotEq},
	{"...", itemSpread},
	{"==", itemEq},
	{"!=", itemNotEq},
	{">=", itemGte},
	{"<=", itemLte},
	{"&&", itemAnd},
	{"||", itemOr},
	{"??", itemNullish},
	{"?.", itemQuestionDot},
	{"!", itemNot},
	{"*", itemMul},
	{"/", itemDiv},
	{"%", itemMod},
	{"+", itemAdd},
	{">", itemGt},
	{"<", itemLt},
	{"?", itemTernIf},
	{",", itemComma},
	{":", itemColon},
	{".", itemDot},
	{"(", itemLeftParen},
	{")", itemRightParen},
	{"[", itemLeftBracket},
	{"]", itemRightBracket},
	{"{", itemLeftBrace},
	{"}", itemRightBrace},
	{"=", itemAssign},
}

// String converts the itemType into its source string, for error messages.
func (t itemType) String() string {
	for _, s := range symbols {
		if s.typ == t {
			return s.sym
		}
	}
	var r, ok = map[itemType]string{
		itemEOF:       "<eof>",
		itemError:     "<error>",
		itemNull:      "null",
		itemUndefined: "undefined",
		itemBool:      "<bool>",
		itemInteger:   "<int>",
		itemFloat:     "<float>",
		itemString:    "<string>",
		itemIdent:     "<ident>",
		itemNegate:    "-",
		itemSub:       "-",
	}[t]
	if ok {
		return r
	}
	return fmt.Sprintf("item(%d)", t)
}

const (
	decDigits = "0123456789"
	hexDigits = "0123456789abcdefABCDEF"
)

type exprStateFn func(*exprLexer) exprStateFn

// exprLexer scans a single expression.  Positions are offsets in the
// template, starting from base.
type exprLexer struct {
	input    string
	base     ast.Pos
	state    exprStateFn
	pos      int
	start    int
	width    int
	items    chan exprItem
	lastEmit itemType
}

func lexExpr(input string, base ast.Pos) *exprLexer {
	l := &exprLexer{
		input: input,
		base:  base,
		items: make(chan exprItem),
		state: lexInsideExpr,
	}
	go l.run()
	return l
}

func (l *exprLexer) run() {
	for l.state != nil {
		l.state = l.state(l)
	}
	close(l.items)
}

// nextItem returns the next item from the input.  After the end of input it
// keeps returning EOF.
func (l *exprLexer) nextItem() exprItem {
	if it, ok := <-l.items; ok {
		return it
	}
	return exprItem{itemEOF, l.base + ast.Pos(len(l.input)), ""}
}

// drain consumes the remaining items so the lexing goroutine can exit.
func (l *exprLexer) drain() {
	for range l.items {
	}
}

func (l *exprLexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return eof
	}
	var r rune
	r, l.width = utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += l.width
	return r
}

func (l *exprLexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

func (l *exprLexer) backup() {
	l.pos -= l.width
}

func (l *exprLexer) emit(t itemType) {
	l.items <- exprItem{t, l.base + ast.Pos(l.start), l.input[l.start:l.pos]}
	l.lastEmit = t
	l.start = l.pos
}

func (l *exprLexer) ignore() {
	l.start = l.pos
}

func (l *exprLexer) accept(valid string) bool {
	if strings.ContainsRune(valid, l.next()) {
		return true
	}
	l.backup()
	return false
}

func (l *exprLexer) acceptRun(valid string) bool {
	pos := l.pos
	for strings.ContainsRune(valid, l.next()) {
	}
	l.backup()
	return l.pos > pos
}

func (l *exprLexer) errorf(format string, args ...any) exprStateFn {
	l.items <- exprItem{itemError, l.base + ast.Pos(l.start), fmt.Sprintf(format, args...)}
	return nil
}

// lexInsideExpr is called repeatedly to scan the elements of an expression.
func lexInsideExpr(l *exprLexer) exprStateFn {
	switch r := l.next(); {
	case r == eof:
		l.emit(itemEOF)
		return nil
	case unicode.IsSpace(r):
		l.ignore()
	case r == '"', r == '\'', r == '`':
		return exprStringLexer(r)
	case r >= '0' && r <= '9':
		l.backup()
		return lexExprNumber
	case r == '.' && isDigit(l.peek()):
		l.backup()
		return lexExprNumber
	case r == '-':
		return lexMinus
	case isIdentStart(r):
		return lexExprIdent
	default:
		l.backup()
		for _, s := range symbols {
			if strings.HasPrefix(l.input[l.pos:], s.sym) {
				// a?.5 is a ternary, not optional chaining
				if s.typ == itemQuestionDot && l.pos+2 < len(l.input) && isDigit(rune(l.input[l.pos+2])) {
					continue
				}
				l.pos += len(s.sym)
				l.emit(s.typ)
				return lexInsideExpr
			}
		}
		l.next()
		return l.errorf("unrecognized character in expression: %#U", r)
	}
	return lexInsideExpr
}

// lexMinus decides whether "-" is unary or binary: it is unary at the start
// of the expression, after an operator and after an opening bracket or comma.
func lexMinus(l *exprLexer) exprStateFn {
	switch last := l.lastEmit; {
	case last == itemInvalid, last.isOp(),
		last == itemLeftParen, last == itemLeftBracket, last == itemLeftBrace,
		last == itemComma, last == itemColon, last == itemAssign:
		l.emit(itemNegate)
	default:
		l.emit(itemSub)
	}
	return lexInsideExpr
}

// exprStringLexer returns a stateFn that lexes strings surrounded by the
// given quote character.  The quote char has already been read.
func exprStringLexer(quote rune) exprStateFn {
	return func(l *exprLexer) exprStateFn {
		for {
			switch l.next() {
			case eof:
				return l.errorf("unexpected eof while scanning string")
			case '\\':
				l.next()
			case quote:
				l.emit(itemString)
				return lexInsideExpr
			}
		}
	}
}

func lexExprIdent(l *exprLexer) exprStateFn {
	for isIdentPart(l.next()) {
	}
	l.backup()
	if typ, ok := keywords[l.input[l.start:l.pos]]; ok {
		l.emit(typ)
	} else {
		l.emit(itemIdent)
	}
	return lexInsideExpr
}

// lexExprNumber scans a number: a float or integer (which can be decimal or
// hex).
func lexExprNumber(l *exprLexer) exprStateFn {
	var typ = itemInteger
	if l.accept("0") && l.accept("xX") {
		if !l.acceptRun(hexDigits) {
			return l.errorf("bad number syntax: %q", l.input[l.start:l.pos])
		}
	} else {
		l.acceptRun(decDigits + "_")
		if l.peek() == '.' && l.pos+1 < len(l.input) && isDigit(rune(l.input[l.pos+1])) {
			l.next()
			l.acceptRun(decDigits + "_")
			typ = itemFloat
		}
		if l.accept("eE") {
			l.accept("+-")
			if !l.acceptRun(decDigits) {
				return l.errorf("bad number syntax: %q", l.input[l.start:l.pos])
			}
			typ = itemFloat
		}
	}
	if isIdentPart(l.peek()) {
		l.next()
		return l.errorf("bad number syntax: %q", l.input[l.start:l.pos])
	}
	l.emit(typ)
	return lexInsideExpr
}

// Helpers --------------------------------------------------------------------

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

func isDigit(r rune) bool {
	return '0' <= r && r <= '9'
}

// IsIdentifier reports whether s is a valid identifier.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && !isIdentStart(r) || !isIdentPart(r) {
			return false
		}
	}
	return true
}
