package compiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/robfig/vento/ast"
	"github.com/robfig/vento/errortypes"
	"github.com/robfig/vento/parse"
	"github.com/robfig/vento/tags"
)

func mustCompile(t *testing.T, opts Options, source string) *ast.TemplateNode {
	t.Helper()
	var tmpl, err = New(opts).Compile("test.vto", source)
	if err != nil {
		t.Fatalf("%q: %v", source, err)
	}
	return tmpl
}

func TestCompile(t *testing.T) {
	var tests = []struct{ input, output string }{
		{"Hello {{ name }}!", "Hello {{ name }}!"},
		{"{{# comment #}}a {{- b -}} c", "a{{ b }}c"},
		{"{{ for x of list }}[{{ x }}]{{ /for }}", "{{ for x of list }}[{{ x }}]{{ /for }}"},
		{"{{ for k, v of obj }}{{ k }}={{ v }}{{ /for }}", "{{ for k, v of obj }}{{ k }}={{ v }}{{ /for }}"},
		{"{{ for await x of feed() }}{{ x }}{{ /for }}", "{{ for await x of feed() }}{{ x }}{{ /for }}"},
		{"{{ for x of 3 |> range }}{{ /for }}", "{{ for x of 3 |> range }}{{ /for }}"},
		{"{{ if a }}A{{ /if }}", "{{ if a }}A{{ /if }}"},
		{"{{ if a }}A{{ else if b }}B{{ else }}C{{ /if }}", "{{ if a }}A{{ else if b }}B{{ else }}C{{ /if }}"},
		{"{{ if a }}{{ if b }}1{{ else }}2{{ /if }}{{ else }}3{{ /if }}", "{{ if a }}{{ if b }}1{{ else }}2{{ /if }}{{ else }}3{{ /if }}"},
		{"{{ set x = 1 + 2 }}", "{{ set x = 1 + 2 }}"},
		{"{{ set x=a == b }}", "{{ set x = a == b }}"},
		{"{{ set x |> trim }} y {{ /set }}", "{{ set x }} y {{ /set }}"},
		{"{{ export total = 5 }}", "{{ export total = 5 }}"},
		{"{{ export body }}b{{ /export }}", "{{ export body }}b{{ /export }}"},
		{`{{ layout "base.vto" }}body{{ /layout }}`, `{{ layout "base.vto" }}body{{ /layout }}`},
		{`{{ layout "base.vto" { title: "T", n: { a: 1 } } }}x{{ /layout }}`, `{{ layout "base.vto" { title: "T", n: { a: 1 } } }}x{{ /layout }}`},
		{"{{ name |> upper |> join(', ') }}", "{{ name |> upper |> join(', ') }}"},
	}
	for _, test := range tests {
		var tmpl = mustCompile(t, Options{}, test.input)
		if got := tmpl.String(); got != test.output {
			t.Errorf("%s:\ngot      %s\nexpected %s", test.input, got, test.output)
		}
	}
}

func TestTemplateNode(t *testing.T) {
	var tmpl = mustCompile(t, Options{DataVarName: "data"}, "x")
	if tmpl.Name != "test.vto" || tmpl.Text != "x" || tmpl.DataVar != "data" {
		t.Errorf("unexpected template %+v", tmpl)
	}
	if tmpl = mustCompile(t, Options{}, ""); tmpl.DataVar != DefaultDataVarName || len(tmpl.Body.Nodes) != 0 {
		t.Errorf("unexpected template %+v", tmpl)
	}
}

// idents lists the identifiers of a template, marking the local ones.
func idents(node ast.Node) []string {
	var names []string
	ast.Inspect(node, func(n ast.Node) bool {
		if ident, ok := n.(*ast.IdentNode); ok {
			if ident.Local {
				names = append(names, "local "+ident.Name)
			} else {
				names = append(names, ident.Name)
			}
		}
		return true
	})
	return names
}

func TestResolve(t *testing.T) {
	var tests = []struct {
		input string
		names []string
	}{
		{"{{ x }}", []string{"x"}},
		{"{{ for x of xs }}{{ x }}{{ y }}{{ /for }}{{ x }}", []string{"xs", "local x", "y", "x"}},
		{"{{ for k, v of m }}{{ k + v }}{{ /for }}", []string{"m", "local k", "local v"}},
		{"{{ set x = x + 1 }}{{ x }}", []string{"x", "local x"}},
		{"{{ if a }}{{ set t = 1 }}{{ t }}{{ else }}{{ t }}{{ /if }}", []string{"a", "local t", "t"}},
		{"{{ set s |> upper }}{{ s }}{{ /set }}", []string{"local s", "local s"}},
		{"{{ x |> join(sep) }}", []string{"x", "sep"}},
		{"{{ layout 'a' { n } }}{{ /layout }}", []string{"n", "local __layout"}},
	}
	for _, test := range tests {
		var tmpl = mustCompile(t, Options{}, test.input)
		if diff := cmp.Diff(test.names, idents(tmpl)); diff != "" {
			t.Errorf("%s (-want +got):\n%s", test.input, diff)
		}
	}
}

func TestDeclare(t *testing.T) {
	var tmpl = mustCompile(t, Options{},
		"{{ set x = 1 }}{{ set x = 2 }}{{ for i of l }}{{ set x = 3 }}{{ set y = 1 }}{{ /for }}{{ set y = 2 }}{{ export x = 4 }}")
	var declared []bool
	ast.Inspect(tmpl, func(n ast.Node) bool {
		if set, ok := n.(*ast.SetNode); ok {
			declared = append(declared, set.Declare)
		}
		return true
	})
	var expected = []bool{true, false, false, true, true, false}
	if diff := cmp.Diff(expected, declared); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestOutputs(t *testing.T) {
	var tmpl = mustCompile(t, Options{},
		"a{{ layout 'outer' }}b{{ layout 'inner' }}c{{ set s }}d{{ /set }}{{ /layout }}{{ /layout }}")
	var outs []string
	ast.Inspect(tmpl, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.RawTextNode:
			outs = append(outs, n.Text+":"+n.Out)
		case *ast.LayoutNode:
			outs = append(outs, "layout "+n.Var+":"+n.Out)
		}
		return true
	})
	var expected = []string{
		"a:__output",
		"layout __layout:__output",
		"b:__layout",
		"layout __layout_layout:__layout",
		"c:__layout_layout",
		"d:s",
	}
	if diff := cmp.Diff(expected, outs); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestAutoEscape(t *testing.T) {
	var tmpl = mustCompile(t, Options{AutoEscape: true}, "{{ a }}{{ b |> safe }}{{ c |> upper }}")
	var printed []string
	for _, n := range tmpl.Body.Nodes {
		printed = append(printed, n.(*ast.PrintNode).Arg.String())
	}
	var expected = []string{"a |> escape", "b", "c |> upper |> escape"}
	if diff := cmp.Diff(expected, printed); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestErrors(t *testing.T) {
	var tests = []struct {
		input string
		msg   string
		tag   string // expected tags.Error tag, if any
	}{
		{"{{ for x of list }}body", "template test.vto:1:4: missing closing tag for for", "for"},
		{"{{ for x in list }}{{ /for }}", "template test.vto:1:4: invalid for loop", "for"},
		{"{{ for }}", "template test.vto:1:4: invalid for loop", "for"},
		{"{{ for let of list }}{{ /for }}", "template test.vto:1:4: invalid for loop", "for"},
		{"{{ for x, x of list }}{{ /for }}", "template test.vto:1:4: invalid for loop", "for"},
		{"{{ if a }}", "template test.vto:1:4: missing closing tag for if", "if"},
		{"{{ if }}{{ /if }}", "template test.vto:1:4: invalid if", "if"},
		{"{{ if a }}{{ else foo }}{{ /if }}", "template test.vto:1:14: invalid else", "else"},
		{"{{ if a }}{{ else }}{{ else }}{{ /if }}", "template test.vto:1:4: invalid else", "else"},
		{"x\n{{ else }}", "template test.vto:2:4: invalid else: no matching if", "else"},
		{"{{ for x of l }}{{ else }}{{ /for }}", "template test.vto:1:20: invalid else: no matching if", "else"},
		{"{{ set x }}abc", "template test.vto:1:4: missing closing tag for set", "set"},
		{"{{ set 1x = 2 }}", "template test.vto:1:4: invalid set", "set"},
		{"{{ set for = 2 }}", "template test.vto:1:4: invalid set", "set"},
		{"{{ set a.b }}{{ /set }}", "template test.vto:1:4: invalid set", "set"},
		{"{{ export x }}abc", "template test.vto:1:4: missing closing tag for export", "export"},
		{"{{ export = 2 }}", "template test.vto:1:4: invalid export", "export"},
		{"{{ for it of list }}{{ /for }}", "template test.vto:1:4: invalid for loop", "for"},
		{"{{ for i, it of list }}{{ /for }}", "template test.vto:1:4: invalid for loop", "for"},
		{"{{ set it = 1 }}", "template test.vto:1:4: invalid set", "set"},
		{"{{ export it }}x{{ /export }}", "template test.vto:1:4: invalid export", "export"},
		{"{{ layout 'a' }}", "template test.vto:1:4: missing closing tag for layout", "layout"},
		{"{{ layout }}{{ /layout }}", "template test.vto:1:4: invalid wrap", "layout"},
		{"{{ layout 'a' 'b' }}{{ /layout }}", "template test.vto:1:4: invalid wrap", "layout"},
		{"{{ layout 'a' { } { } }}{{ /layout }}", "template test.vto:1:4: invalid wrap", "layout"},
		{"a {{ /if }}", "template test.vto:1:6: unexpected closing tag", "if"},
		{"{{ for x of l }}{{ /if }}{{ /for }}", "template test.vto:1:20: unexpected closing tag", "if"},
		{"{{ set x = 1 }}{{ /set }}", "template test.vto:1:19: unexpected closing tag", "set"},
	}
	for _, test := range tests {
		var _, err = New(Options{}).Compile("test.vto", test.input)
		if err == nil {
			t.Errorf("%q: expected error %q", test.input, test.msg)
			continue
		}
		if err.Error() != test.msg {
			t.Errorf("%q:\ngot      %q\nexpected %q", test.input, err.Error(), test.msg)
		}
		if !errortypes.IsErrFilePos(err) {
			t.Errorf("%q: expected a positioned error", test.input)
		}
		var tagErr *tags.Error
		if !errors.As(err, &tagErr) || tagErr.Tag != test.tag {
			t.Errorf("%q: expected a %s tag error, got %#v", test.input, test.tag, tagErr)
		}
	}
}

func TestDataVarBinding(t *testing.T) {
	var c = New(Options{DataVarName: "data"})
	var _, err = c.Compile("test.vto", "{{ for data of list }}{{ /for }}")
	if err == nil || err.Error() != "template test.vto:1:4: invalid for loop" {
		t.Errorf("expected invalid for loop, got %v", err)
	}
	if _, err = c.Compile("test.vto", "{{ set data = 1 }}"); err == nil {
		t.Errorf("expected an error binding data")
	}
	if _, err = c.Compile("test.vto", "{{ for it of list }}{{ set it = 1 }}{{ /for }}"); err != nil {
		t.Errorf("it is an ordinary name when the data variable is data: %v", err)
	}
}

func TestSyntaxErrors(t *testing.T) {
	var tests = []struct{ input, prefix string }{
		{"{{ x + }}", "template test.vto:1:7:"},
		{"ab\n{{ for x of (y }}{{ /for }}", "template test.vto:2:15:"},
		{"{{ x |> 1 }}", "template test.vto:1:9:"},
		{"{{ set x = }}", "template test.vto:1:4:"},
		{"{{ x", "template test.vto:1:1: unclosed tag"},
	}
	for _, test := range tests {
		var _, err = New(Options{}).Compile("test.vto", test.input)
		if err == nil || !strings.HasPrefix(err.Error(), test.prefix) {
			t.Errorf("%q: got %v, expected prefix %q", test.input, err, test.prefix)
		}
	}
}

func TestCustomTags(t *testing.T) {
	var hello tags.Tag = func(env tags.Environment, code, output string, tokens *parse.Stream) ([]ast.Node, bool, error) {
		if code != "hello" {
			return nil, false, nil
		}
		return []ast.Node{&ast.RawTextNode{Pos: env.Pos(), Out: output, Text: "hi"}}, true, nil
	}
	var opts = Options{Tags: append([]tags.Tag{hello}, tags.Builtin()...)}
	var tmpl = mustCompile(t, opts, "{{ hello }} {{ name }}")
	if got := tmpl.String(); got != "hi {{ name }}" {
		t.Errorf("got %q", got)
	}

	var _, err = New(Options{Tags: []tags.Tag{tags.For, tags.If}}).Compile("test.vto", "{{ name }}")
	if err == nil || err.Error() != "template test.vto:1:4: unknown tag" {
		t.Errorf("expected unknown tag, got %v", err)
	}
}

func TestScope(t *testing.T) {
	var s = newScope()
	if s.declare("a") {
		t.Errorf("a should be new")
	}
	s.push()
	if !s.declare("a") || s.declare("b") || !s.lookup("b") {
		t.Errorf("unexpected inner scope")
	}
	s.pop()
	if s.lookup("b") || !s.lookup("a") {
		t.Errorf("b should be out of scope")
	}
	s.pop()
	if !s.lookup("a") || len(s) != 1 {
		t.Errorf("the outermost frame must survive")
	}
}
