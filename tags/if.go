package tags

import (
	"github.com/robfig/vento/ast"
	"github.com/robfig/vento/parse"
)

// If compiles {{ if cond }} ... [{{ else [if cond] }} ...] {{ /if }}.  The
// else markers at the top level of the body split it into branches.
func If(env Environment, code, output string, tokens *parse.Stream) ([]ast.Node, bool, error) {
	var word, cond = keyword(code)
	if word != "if" {
		return nil, false, nil
	}
	if cond == "" {
		return nil, true, newError("if", code, "invalid if")
	}
	var pos = env.Pos()
	var condNode, err = env.CompileFilters(tokens, cond)
	if err != nil {
		return nil, true, err
	}
	body, err := block(env, tokens, "if", code, output)
	if err != nil {
		return nil, true, err
	}

	var node = &ast.IfNode{Pos: pos}
	var branch = &ast.IfCondNode{Pos: pos, Cond: condNode, Body: &ast.ListNode{Pos: body.Pos}}
	for _, n := range body.Nodes {
		var marker, ok = n.(*ast.ElseNode)
		if !ok {
			branch.Body.Nodes = append(branch.Body.Nodes, n)
			continue
		}
		if branch.Cond == nil {
			return nil, true, newError("else", code, "invalid else")
		}
		node.Conds = append(node.Conds, branch)
		branch = &ast.IfCondNode{Pos: marker.Pos, Cond: marker.Cond, Body: &ast.ListNode{Pos: marker.Pos}}
	}
	node.Conds = append(node.Conds, branch)
	return []ast.Node{node}, true, nil
}

// Else compiles {{ else }} and {{ else if cond }} into a branch marker for
// the enclosing if.  The next branch is a new block, so the scope is reset.
func Else(env Environment, code, output string, tokens *parse.Stream) ([]ast.Node, bool, error) {
	var word, rest = keyword(code)
	if word != "else" {
		return nil, false, nil
	}
	var node = &ast.ElseNode{Pos: env.Pos()}
	if rest != "" {
		var next, cond = keyword(rest)
		if next != "if" || cond == "" {
			return nil, true, newError("else", code, "invalid else")
		}
		var err error
		if node.Cond, err = env.CompileFilters(tokens, cond); err != nil {
			return nil, true, err
		}
	}
	env.PopScope()
	env.PushScope()
	return []ast.Node{node}, true, nil
}
