package tags

import (
	"strings"

	"github.com/robfig/vento/ast"
	"github.com/robfig/vento/parse"
)

// layoutVar is the accumulator for the body of a top-level layout.
const layoutVar = "__layout"

// Layout compiles {{ layout template [{ extra }] }} ... {{ /layout }}.  The
// body is captured and passed to template as its content, along with the
// current data and the extra values.
func Layout(env Environment, code, output string, tokens *parse.Stream) ([]ast.Node, bool, error) {
	var word, rest = keyword(code)
	if word != "layout" {
		return nil, false, nil
	}
	var node = &ast.LayoutNode{Pos: env.Pos(), Out: output, Var: layoutVar}
	if strings.HasPrefix(output, layoutVar) {
		node.Var = output + "_layout"
	}

	var args, err = parse.Exprs(rest, 0)
	if err != nil || len(args) == 0 || len(args) > 2 {
		return nil, true, newError("layout", code, "invalid wrap")
	}
	if len(args) == 2 {
		var ok bool
		if node.Data, ok = args[1].(*ast.MapLiteralNode); !ok {
			return nil, true, newError("layout", code, "invalid wrap")
		}
	}

	// Reparse through the environment so identifiers resolve like any other
	// expression.
	var template = rest
	if node.Data != nil {
		template = rest[:node.Data.Position()]
	}
	if node.Template, err = env.CompileFilters(nil, template); err != nil {
		return nil, true, err
	}
	if node.Data != nil {
		var data ast.Node
		if data, err = env.CompileFilters(nil, rest[node.Data.Position():]); err != nil {
			return nil, true, err
		}
		var ok bool
		if node.Data, ok = data.(*ast.MapLiteralNode); !ok {
			return nil, true, newError("layout", code, "invalid wrap")
		}
	}

	env.PushScope()
	env.Declare(node.Var)
	node.Content, err = env.CompileFilters(tokens, node.Var)
	if err == nil {
		node.Body, err = block(env, tokens, "layout", code, node.Var)
	}
	env.PopScope()
	if err != nil {
		return nil, true, err
	}
	return []ast.Node{node}, true, nil
}
