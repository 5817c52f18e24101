package tags

import (
	"strings"

	"github.com/robfig/vento/ast"
	"github.com/robfig/vento/parse"
)

// Echo prints the value of any other tag's code: {{ expr [|> filter]* }}.
func Echo(env Environment, code, output string, tokens *parse.Stream) ([]ast.Node, bool, error) {
	if code == "" || strings.HasPrefix(code, "/") {
		return nil, false, nil
	}
	var pos = env.Pos()
	var arg, err = env.CompileFilters(tokens, code)
	if err != nil {
		return nil, true, err
	}
	if env.AutoEscape() {
		arg = escape(arg)
	}
	return []ast.Node{&ast.PrintNode{Pos: pos, Out: output, Arg: arg}}, true, nil
}

// escape passes the value through the escape filter, unless the last filter
// marks it safe.
func escape(arg ast.Node) ast.Node {
	if filter, ok := arg.(*ast.FilterNode); ok && filter.Name == "safe" && !filter.Await {
		return filter.Arg
	}
	return &ast.FilterNode{Pos: arg.Position(), Name: "escape", Arg: arg}
}
