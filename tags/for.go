package tags

import (
	"regexp"

	"github.com/robfig/vento/ast"
	"github.com/robfig/vento/parse"
)

var forLoop = regexp.MustCompile(`^for\s+(await\s+)?([^\s,]+)(?:\s*,\s*([^\s,]+))?\s+of\s+(\S[\s\S]*)$`)

// For compiles {{ for [await] [key,] value of list }} ... {{ /for }}.
func For(env Environment, code, output string, tokens *parse.Stream) ([]ast.Node, bool, error) {
	if word, _ := keyword(code); word != "for" {
		return nil, false, nil
	}
	var match = forLoop.FindStringSubmatch(code)
	if match == nil {
		return nil, true, newError("for", code, "invalid for loop")
	}
	var node = &ast.ForNode{
		Pos:   env.Pos(),
		Await: match[1] != "",
		Value: match[2],
	}
	if match[3] != "" {
		node.Key, node.Value = match[2], match[3]
	}
	for _, name := range []string{node.Key, node.Value} {
		if name != "" && !bindable(env, name) {
			return nil, true, newError("for", code, "invalid for loop")
		}
	}
	if node.Key == node.Value {
		return nil, true, newError("for", code, "invalid for loop")
	}

	var err error
	if node.List, err = env.CompileFilters(tokens, match[4]); err != nil {
		return nil, true, err
	}
	var bindings = []string{node.Value}
	if node.Key != "" {
		bindings = append(bindings, node.Key)
	}
	if node.Body, err = block(env, tokens, "for", code, output, bindings...); err != nil {
		return nil, true, err
	}
	return []ast.Node{node}, true, nil
}
