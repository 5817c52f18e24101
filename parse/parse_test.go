package parse

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/robfig/vento/ast"
)

// sexpr prints the structure of an expression with explicit grouping.
func sexpr(n ast.Node) string {
	switch n := n.(type) {
	case *ast.MulNode, *ast.DivNode, *ast.ModNode, *ast.AddNode, *ast.SubNode,
		*ast.EqNode, *ast.NotEqNode, *ast.StrictEqNode, *ast.StrictNotEqNode,
		*ast.GtNode, *ast.GteNode, *ast.LtNode, *ast.LteNode,
		*ast.OrNode, *ast.AndNode, *ast.NullishNode:
		var bin = binaryOf(n)
		return "(" + sexpr(bin.Arg1) + " " + bin.Name + " " + sexpr(bin.Arg2) + ")"
	case *ast.NotNode:
		return "(!" + sexpr(n.Arg) + ")"
	case *ast.NegateNode:
		return "(-" + sexpr(n.Arg) + ")"
	case *ast.TernNode:
		return "(" + sexpr(n.Arg1) + " ? " + sexpr(n.Arg2) + " : " + sexpr(n.Arg3) + ")"
	case *ast.MemberNode:
		if n.Optional {
			return sexpr(n.Obj) + "?." + n.Key
		}
		return sexpr(n.Obj) + "." + n.Key
	case *ast.IndexNode:
		return sexpr(n.Obj) + "[" + sexpr(n.Index) + "]"
	case *ast.CallNode:
		var args []string
		for _, arg := range n.Args {
			args = append(args, sexpr(arg))
		}
		return sexpr(n.Fn) + "(" + strings.Join(args, ", ") + ")"
	case *ast.ListLiteralNode:
		var items []string
		for _, item := range n.Items {
			items = append(items, sexpr(item))
		}
		return "[" + strings.Join(items, ", ") + "]"
	case *ast.MapLiteralNode:
		var items []string
		for i, k := range n.Keys {
			items = append(items, k+": "+sexpr(n.Values[i]))
		}
		return "{" + strings.Join(items, ", ") + "}"
	case *ast.StringNode:
		return fmt.Sprintf("%q", n.Value)
	}
	return n.String()
}

func binaryOf(n ast.Node) ast.BinaryOpNode {
	switch n := n.(type) {
	case *ast.MulNode:
		return n.BinaryOpNode
	case *ast.DivNode:
		return n.BinaryOpNode
	case *ast.ModNode:
		return n.BinaryOpNode
	case *ast.AddNode:
		return n.BinaryOpNode
	case *ast.SubNode:
		return n.BinaryOpNode
	case *ast.EqNode:
		return n.BinaryOpNode
	case *ast.NotEqNode:
		return n.BinaryOpNode
	case *ast.StrictEqNode:
		return n.BinaryOpNode
	case *ast.StrictNotEqNode:
		return n.BinaryOpNode
	case *ast.GtNode:
		return n.BinaryOpNode
	case *ast.GteNode:
		return n.BinaryOpNode
	case *ast.LtNode:
		return n.BinaryOpNode
	case *ast.LteNode:
		return n.BinaryOpNode
	case *ast.OrNode:
		return n.BinaryOpNode
	case *ast.AndNode:
		return n.BinaryOpNode
	case *ast.NullishNode:
		return n.BinaryOpNode
	}
	panic(fmt.Sprintf("not a binary op: %T", n))
}

func TestExpr(t *testing.T) {
	var tests = []struct{ input, output string }{
		{"1", "1"},
		{"0x1F", "31"},
		{"1_000", "1000"},
		{"1.5e3", "1500"},
		{".5", "0.5"},
		{"'a'", `"a"`},
		{`"it's"`, `"it's"`},
		{"`tpl`", `"tpl"`},
		{"null", "null"},
		{"undefined", "undefined"},
		{"true", "true"},
		{"name", "name"},
		{"$x", "$x"},
		{"a.b.c", "a.b.c"},
		{"a?.b", "a?.b"},
		{"a.null", "a.null"},
		{"a[0]", "a[0]"},
		{"a?.[k]", "a[k]"},
		{"f()", "f()"},
		{"f(1, 'x',)", `f(1, "x")`},
		{"a.b(c).d", "a.b(c).d"},
		{"[]", "[]"},
		{"[1, [2, 3]]", "[1, [2, 3]]"},
		{"{}", "{}"},
		{"{ a: 1, 'b c': 2, name }", `{a: 1, b c: 2, name: name}`},
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"1 - 2 - 3", "((1 - 2) - 3)"},
		{"a - -1", "(a - (-1))"},
		{"-a.b", "(-a.b)"},
		{"!a && b", "((!a) && b)"},
		{"a || b && c", "(a || (b && c))"},
		{"a ?? b || c", "(a ?? (b || c))"},
		{"a == 1 && b !== 'x'", `((a == 1) && (b !== "x"))`},
		{"a < b === c >= d", "((a < b) === (c >= d))"},
		{"a % 2 === 0", "((a % 2) === 0)"},
		{"a ? b : c", "(a ? b : c)"},
		{"a ? b : c ? d : e", "(a ? b : (c ? d : e))"},
		{"a > 1 ? 'big' : 'small'", `((a > 1) ? "big" : "small")`},
		{"x ?.5 : 1", "(x ? 0.5 : 1)"},
	}
	for _, test := range tests {
		var node, err = Expr(test.input, 0)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", test.input, err)
			continue
		}
		if got := sexpr(node); got != test.output {
			t.Errorf("%s: got %s, expected %s", test.input, got, test.output)
		}
	}
}

func TestExprErrors(t *testing.T) {
	var tests = []struct {
		input string
		pos   ast.Pos
	}{
		{"", 0},
		{"1 +", 3},
		{"a b", 2},
		{"(a", 2},
		{"{a: }", 4},
		{"'open", 0},
		{"a.", 2},
		{"#", 0},
		{"12abc", 0},
	}
	for _, test := range tests {
		var _, err = Expr(test.input, 100)
		var serr *SyntaxError
		if !errors.As(err, &serr) {
			t.Errorf("%q: expected syntax error, got %v", test.input, err)
			continue
		}
		if serr.Pos != 100+test.pos {
			t.Errorf("%q: expected error at %d, got %d (%v)", test.input, 100+test.pos, serr.Pos, serr)
		}
	}
}

func TestExprs(t *testing.T) {
	var nodes, err = Exprs(`"layout.vto" { title: "Hi" }`, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 expressions, got %d", len(nodes))
	}
	if _, ok := nodes[1].(*ast.MapLiteralNode); !ok {
		t.Errorf("expected an object literal, got %T", nodes[1])
	}
}

func TestFilter(t *testing.T) {
	var tests = []struct {
		input string
		name  string
		args  string
		await bool
	}{
		{"upper", "upper", "", false},
		{"join(', ')", "join", `", "`, false},
		{"t(lang, 2)", "t", "lang 2", false},
		{"await fetch", "fetch", "", true},
		{"await", "await", "", false},
	}
	for _, test := range tests {
		var node, err = Filter(test.input, 0)
		if err != nil {
			t.Errorf("%s: %v", test.input, err)
			continue
		}
		var args []string
		for _, arg := range node.Args {
			args = append(args, sexpr(arg))
		}
		if node.Name != test.name || strings.Join(args, " ") != test.args || node.Await != test.await {
			t.Errorf("%s: got %s(%v) await=%v", test.input, node.Name, args, node.Await)
		}
	}

	for _, bad := range []string{"", "1", "upper extra", "join(,"} {
		if _, err := Filter(bad, 0); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestIsIdentifier(t *testing.T) {
	for _, ok := range []string{"a", "_x", "$y", "camelCase2", "naïve"} {
		if !IsIdentifier(ok) {
			t.Errorf("%q should be an identifier", ok)
		}
	}
	for _, bad := range []string{"", "1a", "a-b", "a.b", "a b"} {
		if IsIdentifier(bad) {
			t.Errorf("%q should not be an identifier", bad)
		}
	}
}

func TestIsReserved(t *testing.T) {
	for _, word := range []string{"for", "let", "await", "null", "__output", "__layout"} {
		if !IsReserved(word) {
			t.Errorf("%q should be reserved", word)
		}
	}
	for _, word := range []string{"item", "_x", "layout", "content", "of"} {
		if IsReserved(word) {
			t.Errorf("%q should not be reserved", word)
		}
	}
}
