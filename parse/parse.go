// Package parse tokenizes templates and parses the expressions found inside
// their tags.
package parse

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/robfig/vento/ast"
)

// SyntaxError reports a malformed expression.  Pos is the byte offset in the
// template source.
type SyntaxError struct {
	Pos ast.Pos
	Msg string
}

func (e *SyntaxError) Error() string {
	return e.Msg
}

// exprTree is the parser state for one expression.
type exprTree struct {
	code      string
	lex       *exprLexer
	token     [2]exprItem // two-token lookahead
	peekCount int         // how many tokens have we backed up?
}

// Expr parses a single expression.  base is the offset of code within the
// template, used for node positions and errors.
func Expr(code string, base ast.Pos) (node ast.Node, err error) {
	var t = newExprTree(code, base)
	defer t.recover(&err)
	node = t.parseExpr(0)
	t.expect(itemEOF, "expression")
	return node, nil
}

// Exprs parses a sequence of adjacent expressions, such as the template and
// the data of a layout tag.
func Exprs(code string, base ast.Pos) (nodes []ast.Node, err error) {
	var t = newExprTree(code, base)
	defer t.recover(&err)
	for t.peek().typ != itemEOF {
		nodes = append(nodes, t.parseExpr(0))
	}
	return nodes, nil
}

// Filter parses the code of a filter token: [await] name[(args...)].  The
// returned node has no argument yet.
func Filter(code string, base ast.Pos) (node *ast.FilterNode, err error) {
	var t = newExprTree(code, base)
	defer t.recover(&err)
	var name = t.expect(itemIdent, "filter")
	node = &ast.FilterNode{Pos: name.pos}
	if name.val == "await" && t.peek().typ == itemIdent {
		node.Await = true
		name = t.next()
	}
	node.Name = name.val
	if t.peek().typ == itemLeftParen {
		t.next()
		node.Args = t.parseArgs(itemRightParen, "filter arguments")
	}
	t.expect(itemEOF, "filter")
	return node, nil
}

func newExprTree(code string, base ast.Pos) *exprTree {
	return &exprTree{code: code, lex: lexExpr(code, base)}
}

// precedence of the binary and unary operators.  Higher binds tighter.
var precedence = map[itemType]int{
	itemNot:         8,
	itemNegate:      8,
	itemMul:         7,
	itemDiv:         7,
	itemMod:         7,
	itemAdd:         6,
	itemSub:         6,
	itemGt:          5,
	itemGte:         5,
	itemLt:          5,
	itemLte:         5,
	itemEq:          4,
	itemNotEq:       4,
	itemStrictEq:    4,
	itemStrictNotEq: 4,
	itemAnd:         3,
	itemOr:          2,
	itemNullish:     1,
}

// parseExpr parses an arbitrary expression involving member access, calls
// and operators.
//
// For handling binary operators, we use the Precedence Climbing algorithm described in:
//
//	http://www.engr.mun.ca/~theo/Misc/exp_parsing.htm
func (t *exprTree) parseExpr(prec int) ast.Node {
	n := t.parseExprFirstTerm()
	var tok exprItem
	for {
		tok = t.next()
		q := precedence[tok.typ]
		if !isBinaryOp(tok.typ) || q < prec {
			break
		}
		q++
		n = newBinaryOpNode(tok, n, t.parseExpr(q))
	}
	if prec == 0 && tok.typ == itemTernIf {
		return t.parseTernary(n)
	}
	t.backup()
	return n
}

// Primary ->   "(" Expr ")"
//
//	| u=UnaryOp PrecExpr(prec(u))
//	| ( Ident | ListLiteral | MapLiteral | Primitive ) Accessor*
func (t *exprTree) parseExprFirstTerm() ast.Node {
	switch tok := t.next(); {
	case tok.typ == itemNot:
		return &ast.NotNode{Pos: tok.pos, Arg: t.parseExpr(precedence[tok.typ])}
	case tok.typ == itemNegate:
		return &ast.NegateNode{Pos: tok.pos, Arg: t.parseExpr(precedence[tok.typ])}
	case tok.typ == itemLeftParen:
		n := t.parseExpr(0)
		t.expect(itemRightParen, "expression")
		return t.parseAccessors(n)
	case isValue(tok):
		return t.parseAccessors(t.newValueNode(tok))
	default:
		t.unexpected(tok, "expression")
	}
	return nil
}

// parseAccessors consumes any trailing member accesses, indexes and calls.
//
//	Accessor -> "." Ident | "?." Ident | "[" Expr "]" | "?.[" Expr "]"
//	          | "(" Args ")" | "?.(" Args ")"
func (t *exprTree) parseAccessors(n ast.Node) ast.Node {
	for {
		switch tok := t.next(); tok.typ {
		case itemDot:
			var key = t.expectName("member access")
			n = &ast.MemberNode{Pos: n.Position(), Obj: n, Key: key.val}
		case itemQuestionDot:
			switch next := t.next(); next.typ {
			case itemLeftBracket:
				n = &ast.IndexNode{Pos: n.Position(), Obj: n, Index: t.parseExpr(0), Optional: true}
				t.expect(itemRightBracket, "index")
			case itemLeftParen:
				n = &ast.CallNode{Pos: n.Position(), Fn: n, Args: t.parseArgs(itemRightParen, "call")}
			default:
				t.backup()
				var key = t.expectName("optional member access")
				n = &ast.MemberNode{Pos: n.Position(), Obj: n, Key: key.val, Optional: true}
			}
		case itemLeftBracket:
			n = &ast.IndexNode{Pos: n.Position(), Obj: n, Index: t.parseExpr(0)}
			t.expect(itemRightBracket, "index")
		case itemLeftParen:
			n = &ast.CallNode{Pos: n.Position(), Fn: n, Args: t.parseArgs(itemRightParen, "call")}
		default:
			t.backup()
			return n
		}
	}
}

// parseArgs parses a comma separated list of expressions up to the given
// closing token, which has not been read yet.  A trailing comma is allowed.
func (t *exprTree) parseArgs(end itemType, context string) []ast.Node {
	var args []ast.Node
	for {
		if t.peek().typ == end {
			t.next()
			return args
		}
		args = append(args, t.parseExpr(0))
		switch tok := t.next(); tok.typ {
		case itemComma:
			// continue to get the next arg
		case end:
			return args
		default:
			t.unexpected(tok, context)
		}
	}
}

// "{" has just been read.
//
//	MapLiteral -> "{" [ Key ( ":" Expr )? ( "," Key ( ":" Expr )? )* [ "," ] ] "}"
//	Key -> Ident | String | Keyword
func (t *exprTree) parseMapLiteral(first exprItem) ast.Node {
	var node = &ast.MapLiteralNode{Pos: first.pos}
	for {
		var tok = t.next()
		var key string
		switch tok.typ {
		case itemRightBrace:
			return node
		case itemString:
			key = t.unquote(tok)
		case itemIdent, itemNull, itemUndefined, itemBool:
			key = tok.val
		case itemInteger:
			key = tok.val
		default:
			t.unexpected(tok, "object literal")
		}

		var value ast.Node
		switch next := t.next(); {
		case next.typ == itemColon:
			value = t.parseExpr(0)
		case tok.typ == itemIdent:
			// shorthand {name}
			t.backup()
			value = &ast.IdentNode{Pos: tok.pos, Name: tok.val}
		default:
			t.unexpected(next, "object literal (expected :)")
		}
		node.Keys = append(node.Keys, key)
		node.Values = append(node.Values, value)

		switch next := t.next(); next.typ {
		case itemComma:
		case itemRightBrace:
			return node
		default:
			t.unexpected(next, "object literal")
		}
	}
}

// parseTernary parses the ternary operator within an expression.
// itemTernIf has already been read, and the condition is provided.
func (t *exprTree) parseTernary(cond ast.Node) ast.Node {
	n1 := t.parseExpr(0)
	t.expect(itemColon, "ternary")
	n2 := t.parseExpr(0)
	return &ast.TernNode{Pos: cond.Position(), Arg1: cond, Arg2: n1, Arg3: n2}
}

func isBinaryOp(typ itemType) bool {
	switch typ {
	case itemMul, itemDiv, itemMod,
		itemAdd, itemSub,
		itemEq, itemNotEq, itemStrictEq, itemStrictNotEq,
		itemGt, itemGte, itemLt, itemLte,
		itemOr, itemAnd, itemNullish:
		return true
	}
	return false
}

func isValue(t exprItem) bool {
	switch t.typ {
	case itemNull, itemUndefined, itemBool, itemInteger, itemFloat, itemString,
		itemIdent, itemLeftBracket, itemLeftBrace:
		return true
	}
	return false
}

func op(n ast.BinaryOpNode, name string) ast.BinaryOpNode {
	n.Name = name
	return n
}

func newBinaryOpNode(t exprItem, n1, n2 ast.Node) ast.Node {
	var bin = ast.BinaryOpNode{Name: "", Pos: n1.Position(), Arg1: n1, Arg2: n2}
	switch t.typ {
	case itemMul:
		return &ast.MulNode{BinaryOpNode: op(bin, "*")}
	case itemDiv:
		return &ast.DivNode{BinaryOpNode: op(bin, "/")}
	case itemMod:
		return &ast.ModNode{BinaryOpNode: op(bin, "%")}
	case itemAdd:
		return &ast.AddNode{BinaryOpNode: op(bin, "+")}
	case itemSub:
		return &ast.SubNode{BinaryOpNode: op(bin, "-")}
	case itemEq:
		return &ast.EqNode{BinaryOpNode: op(bin, "==")}
	case itemNotEq:
		return &ast.NotEqNode{BinaryOpNode: op(bin, "!=")}
	case itemStrictEq:
		return &ast.StrictEqNode{BinaryOpNode: op(bin, "===")}
	case itemStrictNotEq:
		return &ast.StrictNotEqNode{BinaryOpNode: op(bin, "!==")}
	case itemGt:
		return &ast.GtNode{BinaryOpNode: op(bin, ">")}
	case itemGte:
		return &ast.GteNode{BinaryOpNode: op(bin, ">=")}
	case itemLt:
		return &ast.LtNode{BinaryOpNode: op(bin, "<")}
	case itemLte:
		return &ast.LteNode{BinaryOpNode: op(bin, "<=")}
	case itemOr:
		return &ast.OrNode{BinaryOpNode: op(bin, "||")}
	case itemAnd:
		return &ast.AndNode{BinaryOpNode: op(bin, "&&")}
	case itemNullish:
		return &ast.NullishNode{BinaryOpNode: op(bin, "??")}
	}
	panic("unimplemented")
}

func (t *exprTree) newValueNode(tok exprItem) ast.Node {
	switch tok.typ {
	case itemNull:
		return &ast.NullNode{Pos: tok.pos}
	case itemUndefined:
		return &ast.UndefinedNode{Pos: tok.pos}
	case itemBool:
		return &ast.BoolNode{Pos: tok.pos, True: tok.val == "true"}
	case itemInteger:
		var digits = strings.ReplaceAll(tok.val, "_", "")
		var base = 10
		if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
			base, digits = 16, digits[2:]
		}
		value, err := strconv.ParseInt(digits, base, 64)
		if err != nil {
			// too large for an int64
			f, ferr := strconv.ParseFloat(digits, 64)
			if ferr != nil || base != 10 {
				t.error(err)
			}
			return &ast.FloatNode{Pos: tok.pos, Value: f}
		}
		return &ast.IntNode{Pos: tok.pos, Value: value}
	case itemFloat:
		value, err := strconv.ParseFloat(strings.ReplaceAll(tok.val, "_", ""), 64)
		if err != nil {
			t.error(err)
		}
		return &ast.FloatNode{Pos: tok.pos, Value: value}
	case itemString:
		return &ast.StringNode{Pos: tok.pos, Quoted: tok.val, Value: t.unquote(tok)}
	case itemLeftBracket:
		return &ast.ListLiteralNode{Pos: tok.pos, Items: t.parseArgs(itemRightBracket, "array literal")}
	case itemLeftBrace:
		return t.parseMapLiteral(tok)
	case itemIdent:
		return &ast.IdentNode{Pos: tok.pos, Name: tok.val}
	}
	panic("unreachable")
}

func (t *exprTree) unquote(tok exprItem) string {
	s, err := unquoteString(tok.val)
	if err != nil {
		t.errorf("error unquoting %s: %s", tok.val, err)
	}
	return s
}

// expectName reads a property name, which may be any identifier or keyword.
func (t *exprTree) expectName(context string) exprItem {
	var tok = t.next()
	switch tok.typ {
	case itemIdent, itemNull, itemUndefined, itemBool:
		return tok
	}
	t.unexpected(tok, context)
	return tok
}

// Helpers ----------

// next returns the next token.
func (t *exprTree) next() exprItem {
	if t.peekCount > 0 {
		t.peekCount--
	} else {
		t.token[0] = t.lex.nextItem()
	}
	return t.token[t.peekCount]
}

// backup backs the input stream up one token.
func (t *exprTree) backup() {
	t.peekCount++
}

// peek returns but does not consume the next token.
func (t *exprTree) peek() exprItem {
	if t.peekCount > 0 {
		return t.token[t.peekCount-1]
	}
	t.peekCount = 1
	t.token[0] = t.lex.nextItem()
	return t.token[0]
}

// recover is the handler that turns panics into returns from the top level
// of the parse functions.
func (t *exprTree) recover(errp *error) {
	e := recover()
	t.lex.drain()
	if e == nil {
		return
	}
	if _, ok := e.(runtime.Error); ok {
		panic(e)
	}
	if str, ok := e.(string); ok {
		*errp = errors.New(str)
	} else {
		*errp = e.(error)
	}
}

// expect consumes the next token and guarantees it has the required type.
func (t *exprTree) expect(expected itemType, context string) exprItem {
	token := t.next()
	if token.typ != expected {
		t.unexpected(token, fmt.Sprintf("%v (expected %v)", context, expected.String()))
	}
	return token
}

// unexpected complains about the token and terminates processing.
func (t *exprTree) unexpected(token exprItem, context string) {
	if token.typ == itemError {
		t.errorf("lexical error: %v", token)
	}
	t.errorf("unexpected %v in %s", token, context)
}

// errorf formats the error and terminates processing.
func (t *exprTree) errorf(format string, args ...any) {
	// get current token (taking account of backups)
	var tok = t.token[0]
	if t.peekCount > 0 {
		tok = t.token[t.peekCount-1]
	}
	panic(&SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf(format, args...)})
}

// error terminates processing.
func (t *exprTree) error(err error) {
	t.errorf("%s", err)
}
