package tags

import (
	"regexp"
	"strings"

	"github.com/robfig/vento/ast"
	"github.com/robfig/vento/parse"
)

var assignment = regexp.MustCompile(`^(\S+?)\s*=\s*(\S[\s\S]*)$`)

// Set compiles {{ set name = value }} and the capture form
// {{ set name [|> filters] }} ... {{ /set }}.
func Set(env Environment, code, output string, tokens *parse.Stream) ([]ast.Node, bool, error) {
	return assign(env, "set", code, tokens)
}

// Export is Set, with the value also written to the exports of the render.
func Export(env Environment, code, output string, tokens *parse.Stream) ([]ast.Node, bool, error) {
	return assign(env, "export", code, tokens)
}

func assign(env Environment, tag, code string, tokens *parse.Stream) ([]ast.Node, bool, error) {
	var word, expr = keyword(code)
	if word != tag {
		return nil, false, nil
	}
	var node = &ast.SetNode{Pos: env.Pos(), Export: tag == "export"}

	if strings.Contains(expr, "=") {
		var match = assignment.FindStringSubmatch(expr)
		if match == nil || !bindable(env, match[1]) || strings.HasPrefix(match[2], "=") {
			return nil, true, newError(tag, code, "invalid "+tag)
		}
		var err error
		node.Name = match[1]
		if node.Value, err = env.CompileFilters(tokens, match[2]); err != nil {
			return nil, true, err
		}
		node.Declare = !env.Declare(node.Name)
		return []ast.Node{node}, true, nil
	}

	if !bindable(env, expr) {
		return nil, true, newError(tag, code, "invalid "+tag)
	}
	node.Name = expr
	node.Declare = !env.Declare(node.Name)

	// The filters follow the opening tag and apply to the captured text.
	var err error
	if node.Value, err = env.CompileFilters(tokens, node.Name); err != nil {
		return nil, true, err
	}
	if node.Body, err = block(env, tokens, tag, code, node.Name); err != nil {
		return nil, true, err
	}
	return []ast.Node{node}, true, nil
}
