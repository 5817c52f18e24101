package jsgen

import (
	"fmt"
	"io"
	"strings"

	"github.com/robfig/vento/ast"
	"github.com/robfig/vento/errortypes"
	"github.com/robfig/vento/parse"
)

type state struct {
	wr           io.Writer
	tmpl         *ast.TemplateNode
	node         ast.Node // current node, for errors
	dialect      Dialect
	indentLevels int
	scope        scope
}

// at marks the state to be on node n, for error reporting.
func (s *state) at(node ast.Node) {
	s.node = node
}

// errorf formats the error and terminates processing.
func (s *state) errorf(format string, args ...any) {
	var line, col = 1, 1
	if s.node != nil {
		line, col = parse.LineCol(s.tmpl.Text, s.node.Position())
	}
	panic(errortypes.NewErrFilePosf(s.tmpl.Name, line, col, format, args...))
}

// errRecover is the handler that turns panics into returns from the top
// level of Write.
func (s *state) errRecover(errp *error) {
	e := recover()
	switch e := e.(type) {
	case nil:
	case error:
		*errp = e
	default:
		*errp = fmt.Errorf("%v", e)
	}
}

func (s *state) modern() bool {
	return s.dialect == Modern
}

// walk recursively goes through each node and writes the JavaScript
// implementing it.
func (s *state) walk(node ast.Node) {
	s.at(node)
	switch node := node.(type) {
	case *ast.ListNode:
		for _, child := range node.Nodes {
			s.walk(child)
		}

		// Output nodes ----------
	case *ast.RawTextNode:
		s.jsln(s.output(node.Out), " += ", parse.QuoteString(node.Text), ";")
	case *ast.PrintNode:
		s.indent()
		s.js(s.output(node.Out), " += ")
		if s.modern() {
			s.js("(")
			s.walk(node.Arg)
			s.js(") ?? \"\"")
		} else {
			s.js("__env.utils.str(")
			s.walk(node.Arg)
			s.js(")")
		}
		s.js(";\n")

		// Control flow ----------
	case *ast.IfNode:
		s.visitIf(node)
	case *ast.ForNode:
		s.visitFor(node)
	case *ast.SetNode:
		s.visitSet(node)
	case *ast.LayoutNode:
		s.visitLayout(node)
	case *ast.ElseNode:
		s.errorf("else outside of an if")

		// Values ----------
	case *ast.NullNode:
		s.js("null")
	case *ast.UndefinedNode:
		s.js("undefined")
	case *ast.BoolNode:
		s.js(node.String())
	case *ast.IntNode:
		s.js(node.String())
	case *ast.FloatNode:
		s.js(node.String())
	case *ast.StringNode:
		s.js(parse.QuoteString(node.Value))
	case *ast.IdentNode:
		s.visitIdent(node)
	case *ast.ListLiteralNode:
		s.js("[")
		for i, item := range node.Items {
			if i != 0 {
				s.js(", ")
			}
			s.walk(item)
		}
		s.js("]")
	case *ast.MapLiteralNode:
		s.js("{")
		s.mapItems(node)
		s.js("}")
	case *ast.MemberNode:
		s.visitAccess(node.Obj, node.Optional, func() {
			s.js(parse.QuoteString(node.Key))
		}, func() {
			var prop = property(node.Key)
			if node.Optional {
				prop = strings.TrimPrefix(prop, ".")
			}
			s.js(prop)
		})
	case *ast.IndexNode:
		s.visitAccess(node.Obj, node.Optional, func() {
			s.walk(node.Index)
		}, func() {
			s.js("[")
			s.walk(node.Index)
			s.js("]")
		})
	case *ast.CallNode:
		s.walk(node.Fn)
		s.js("(")
		s.args(node.Args)
		s.js(")")
	case *ast.FilterNode:
		s.visitFilter(node)

		// Arithmetic operators ----------
	case *ast.NegateNode:
		s.js("(-")
		s.walk(node.Arg)
		s.js(")")
	case *ast.AddNode:
		s.op("+", node)
	case *ast.SubNode:
		s.op("-", node)
	case *ast.DivNode:
		s.op("/", node)
	case *ast.MulNode:
		s.op("*", node)
	case *ast.ModNode:
		s.op("%", node)

		// Comparisons ----------
	case *ast.EqNode:
		s.op("==", node)
	case *ast.NotEqNode:
		s.op("!=", node)
	case *ast.StrictEqNode:
		s.op("===", node)
	case *ast.StrictNotEqNode:
		s.op("!==", node)
	case *ast.LtNode:
		s.op("<", node)
	case *ast.LteNode:
		s.op("<=", node)
	case *ast.GtNode:
		s.op(">", node)
	case *ast.GteNode:
		s.op(">=", node)

		// Logical operators ----------
	case *ast.NotNode:
		s.js("!(")
		s.walk(node.Arg)
		s.js(")")
	case *ast.AndNode:
		s.op("&&", node)
	case *ast.OrNode:
		s.op("||", node)
	case *ast.NullishNode:
		if s.modern() {
			s.op("??", node)
			break
		}
		s.js("(function (__v) { return __v == null ? ")
		s.walk(node.Arg2)
		s.js(" : __v; })(")
		s.walk(node.Arg1)
		s.js(")")
	case *ast.TernNode:
		s.js("(")
		s.walk(node.Arg1)
		s.js(" ? ")
		s.walk(node.Arg2)
		s.js(" : ")
		s.walk(node.Arg3)
		s.js(")")

	default:
		s.errorf("unknown node (%T): %v", node, node)
	}
}

func (s *state) visitTemplate(node *ast.TemplateNode, funcName string) {
	s.scope.suffix = !s.modern()
	s.scope.push()
	s.jsln("// This file was automatically generated from ", node.Name, ".")
	s.jsln("// Please don't edit this file by hand.")
	s.jsln("")
	if s.modern() {
		s.jsln("async function ", funcName, "(", node.DataVar, ", __env) {")
		s.indentLevels++
		s.jsln("let ", ast.OutputVar, " = \"\";")
		s.jsln("const ", ast.ExportsVar, " = {};")
	} else {
		s.jsln("function ", funcName, "(", node.DataVar, ", __env) {")
		s.indentLevels++
		s.jsln("var ", ast.OutputVar, " = \"\";")
		s.jsln("var ", ast.ExportsVar, " = {};")
	}
	s.walk(node.Body)
	s.jsln(ast.ExportsVar, ".content = ", ast.OutputVar, ";")
	s.jsln("return ", ast.ExportsVar, ";")
	s.indentLevels--
	s.jsln("}")
	s.scope.pop()
}

// output returns the JS name of the named accumulator.
func (s *state) output(name string) string {
	if name == ast.OutputVar {
		return name
	}
	var genName = s.scope.lookup(name)
	if genName == "" {
		s.errorf("unknown output %q", name)
	}
	return genName
}

func (s *state) visitIdent(node *ast.IdentNode) {
	switch {
	case node.Local:
		var genName = s.scope.lookup(node.Name)
		if genName == "" {
			s.errorf("%s is not in scope", node.Name)
		}
		s.js(genName)
	case node.Name == s.tmpl.DataVar:
		s.js(s.tmpl.DataVar)
	default:
		s.js(s.tmpl.DataVar, property(node.Name))
	}
}

// visitAccess writes a property access.  An optional access uses ?. in the
// modern dialect and the member helper in ES5.
func (s *state) visitAccess(obj ast.Node, optional bool, key, access func()) {
	if optional && !s.modern() {
		s.js("__env.utils.member(")
		s.walk(obj)
		s.js(", ")
		key()
		s.js(")")
		return
	}
	switch obj.(type) {
	case *ast.IntNode, *ast.FloatNode:
		s.js("(")
		s.walk(obj)
		s.js(")")
	default:
		s.walk(obj)
	}
	if optional {
		s.js("?.")
	}
	access()
}

func (s *state) visitFilter(node *ast.FilterNode) {
	if node.Await {
		if !s.modern() {
			s.errorf("await %s: asynchronous filters need the modern dialect", node.Name)
		}
		s.js("(await ")
	}
	s.js("__env.filters", property(node.Name), "(")
	s.walk(node.Arg)
	for _, arg := range node.Args {
		s.js(", ")
		s.walk(arg)
	}
	s.js(")")
	if node.Await {
		s.js(")")
	}
}

func (s *state) visitIf(node *ast.IfNode) {
	s.indent()
	for i, branch := range node.Conds {
		if i > 0 {
			s.js(" else ")
		}
		if branch.Cond != nil {
			s.js("if (")
			s.walk(branch.Cond)
			s.js(") ")
		}
		s.js("{\n")
		s.indentLevels++
		s.scope.push()
		s.walk(branch.Body)
		s.scope.pop()
		s.indentLevels--
		s.indent()
		s.js("}")
	}
	s.js("\n")
}

func (s *state) visitFor(node *ast.ForNode) {
	if !s.modern() {
		s.visitForES5(node)
		return
	}
	s.scope.push()
	defer s.scope.pop()
	s.indent()
	s.js("for ")
	if node.Await {
		s.js("await ")
	}
	if node.WithKeys() {
		s.js("(let [", s.scope.makevar(node.Key), ", ", s.scope.makevar(node.Value), "] of __env.utils.toIterator(")
		s.walk(node.List)
		s.js(", true)) {\n")
	} else {
		s.js("(let ", s.scope.makevar(node.Value), " of __env.utils.toIterator(")
		s.walk(node.List)
		s.js(")) {\n")
	}
	s.indentLevels++
	s.walk(node.Body)
	s.indentLevels--
	s.jsln("}")
}

func (s *state) visitForES5(node *ast.ForNode) {
	if node.Await {
		s.errorf("for await needs the modern dialect")
	}
	var iterVar = s.scope.tempvar("__iter")
	var stepVar = s.scope.tempvar("__step")
	s.indent()
	s.js("var ", iterVar, " = __env.utils.toIterator(")
	s.walk(node.List)
	if node.WithKeys() {
		s.js(", true);\n")
	} else {
		s.js(", false);\n")
	}
	s.jsln("for (var ", stepVar, " = ", iterVar, ".next(); !", stepVar, ".done; ", stepVar, " = ", iterVar, ".next()) {")
	s.indentLevels++
	s.scope.push()
	if node.WithKeys() {
		s.jsln("var ", s.scope.makevar(node.Key), " = ", stepVar, ".value[0];")
		s.jsln("var ", s.scope.makevar(node.Value), " = ", stepVar, ".value[1];")
	} else {
		s.jsln("var ", s.scope.makevar(node.Value), " = ", stepVar, ".value;")
	}
	s.walk(node.Body)
	s.scope.pop()
	s.indentLevels--
	s.jsln("}")
}

// visitSet assigns the local binding, then mirrors it into the data record
// and the exports.
func (s *state) visitSet(node *ast.SetNode) {
	var name string
	var declare = ""
	if node.Declare {
		name = s.scope.makevar(node.Name)
		declare = "let "
		if !s.modern() {
			declare = "var "
		}
	} else if name = s.scope.lookup(node.Name); name == "" {
		s.errorf("%s is not in scope", node.Name)
	}

	if node.Body != nil {
		s.jsln(declare, name, " = \"\";")
		s.block(node.Body)
		if ident, ok := node.Value.(*ast.IdentNode); !ok || ident.Name != node.Name {
			s.assign(name, "", node.Value)
		}
	} else {
		s.assign(name, declare, node.Value)
	}
	s.jsln(s.tmpl.DataVar, "[", parse.QuoteString(node.Name), "] = ", name, ";")
	if node.Export {
		s.jsln(ast.ExportsVar, "[", parse.QuoteString(node.Name), "] = ", name, ";")
	}
}

func (s *state) visitLayout(node *ast.LayoutNode) {
	if s.modern() {
		s.jsln("{")
		s.indentLevels++
	}
	s.scope.push()
	var name = s.scope.makevar(node.Var)
	if s.modern() {
		s.jsln("let ", name, " = \"\";")
	} else {
		s.jsln("var ", name, " = \"\";")
	}
	s.walk(node.Body)
	if ident, ok := node.Content.(*ast.IdentNode); !ok || ident.Name != node.Var {
		s.assign(name, "", node.Content)
	}
	s.at(node)

	s.indent()
	if s.modern() {
		s.js("const __tmp = await __env.run(")
		s.walk(node.Template)
		s.js(", { ...", s.tmpl.DataVar, ", ")
		if node.Data != nil {
			s.mapItems(node.Data)
			s.js(", ")
		}
		s.js("content: ", name, " }, ", parse.QuoteString(s.tmpl.Name), ");\n")
		s.jsln(s.output(node.Out), " += __tmp.content;")
	} else {
		s.js(s.output(node.Out), " += __env.run(")
		s.walk(node.Template)
		s.js(", __env.utils.merge(", s.tmpl.DataVar, ", ")
		if node.Data != nil {
			s.walk(node.Data)
			s.js(", ")
		}
		s.js("{ content: ", name, " }), ", parse.QuoteString(s.tmpl.Name), ").content;\n")
	}
	s.scope.pop()

	if s.modern() {
		s.indentLevels--
		s.jsln("}")
	}
}

// block writes a capture body as a block of its own, so that its
// declarations stay local.
func (s *state) block(body *ast.ListNode) {
	s.jsln("{")
	s.indentLevels++
	s.scope.push()
	s.walk(body)
	s.scope.pop()
	s.indentLevels--
	s.jsln("}")
}

func (s *state) assign(name, declare string, value ast.Node) {
	s.indent()
	s.js(declare, name, " = ")
	s.walk(value)
	s.js(";\n")
}

func (s *state) mapItems(node *ast.MapLiteralNode) {
	for i, k := range node.Keys {
		if i != 0 {
			s.js(", ")
		}
		s.js(parse.QuoteString(k), ": ")
		s.walk(node.Values[i])
	}
}

func (s *state) args(args []ast.Node) {
	for i, arg := range args {
		if i != 0 {
			s.js(", ")
		}
		s.walk(arg)
	}
}

// property returns the JS accessor for the property key.
func property(key string) string {
	if parse.IsIdentifier(key) && !parse.IsReserved(key) {
		return "." + key
	}
	return "[" + parse.QuoteString(key) + "]"
}

func (s *state) op(symbol string, node ast.ParentNode) {
	var children = node.Children()
	s.js("(")
	s.walk(children[0])
	s.js(" ", symbol, " ")
	s.walk(children[1])
	s.js(")")
}

func (s *state) js(args ...string) {
	for _, arg := range args {
		io.WriteString(s.wr, arg)
	}
}

func (s *state) indent() {
	for i := 0; i < s.indentLevels; i++ {
		io.WriteString(s.wr, "  ")
	}
}

func (s *state) jsln(args ...string) {
	s.indent()
	s.js(args...)
	io.WriteString(s.wr, "\n")
}
