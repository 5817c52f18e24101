// Package compiler turns template source into the statement tree executed by
// package render and lowered by package jsgen.  It hosts the tag compilers:
// each tag token is offered to the configured tags in order, and the first
// one that recognises it produces the statements.
package compiler

import (
	"errors"
	"slices"
	"strings"

	"github.com/robfig/vento/ast"
	"github.com/robfig/vento/errortypes"
	"github.com/robfig/vento/parse"
	"github.com/robfig/vento/tags"
)

// DefaultDataVarName is the name templates use for their data record.
const DefaultDataVarName = "it"

// Options configures a Compiler.  The zero value compiles with the built-in
// tags.
type Options struct {
	Tags        []tags.Tag // tried in order; defaults to tags.Builtin()
	DataVarName string     // defaults to DefaultDataVarName
	AutoEscape  bool       // pass printed values through the escape filter
}

// Compiler compiles templates.  It is safe for concurrent use.
type Compiler struct {
	opts Options
}

// New returns a compiler configured by opts.
func New(opts Options) *Compiler {
	if opts.Tags == nil {
		opts.Tags = tags.Builtin()
	}
	if opts.DataVarName == "" {
		opts.DataVarName = DefaultDataVarName
	}
	return &Compiler{opts}
}

// Compile parses and compiles the named template.  Errors carry the position
// of the offending tag.
func (c *Compiler) Compile(name, source string) (*ast.TemplateNode, error) {
	var tokens, err = parse.Tokenize(name, source)
	if err != nil {
		return nil, err
	}
	var e = &env{
		opts:   &c.opts,
		name:   name,
		source: source,
		scope:  newScope(),
	}
	nodes, err := e.CompileTokens(tokens, ast.OutputVar)
	if err != nil {
		return nil, err
	}
	var body = &ast.ListNode{Nodes: nodes}
	if err := e.checkElse(body); err != nil {
		return nil, err
	}
	return &ast.TemplateNode{
		Name:    name,
		Text:    source,
		DataVar: c.opts.DataVarName,
		Body:    body,
	}, nil
}

// env is the per-compilation state handed to the tags.
type env struct {
	opts   *Options
	name   string
	source string
	scope  scope
	tag    parse.Token // the tag being dispatched
}

func (e *env) DataVarName() string { return e.opts.DataVarName }
func (e *env) AutoEscape() bool    { return e.opts.AutoEscape }
func (e *env) Pos() ast.Pos        { return e.tag.Pos }

func (e *env) PushScope()                { e.scope.push() }
func (e *env) PopScope()                 { e.scope.pop() }
func (e *env) Declare(name string) bool  { return e.scope.declare(name) }
func (e *env) Declared(name string) bool { return e.scope.lookup(name) }

// CompileTokens compiles statements until a tag in stop or the end of the
// stream.
func (e *env) CompileTokens(tokens *parse.Stream, output string, stop ...string) ([]ast.Node, error) {
	var nodes []ast.Node
	for {
		var tok, ok = tokens.Peek()
		if !ok {
			return nodes, nil
		}
		switch tok.Type {
		case parse.TokenText:
			tokens.Next()
			nodes = append(nodes, &ast.RawTextNode{Pos: tok.Pos, Out: output, Text: tok.Value})
		case parse.TokenFilter:
			return nil, e.errorAt(tok.Pos, errors.New("unexpected filter"))
		case parse.TokenTag:
			if slices.Contains(stop, tok.Value) {
				return nodes, nil
			}
			tokens.Next()
			var compiled, err = e.dispatch(tok, output, tokens)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, compiled...)
		}
	}
}

// dispatch offers the tag to each tag compiler in turn.
func (e *env) dispatch(tok parse.Token, output string, tokens *parse.Stream) ([]ast.Node, error) {
	if strings.HasPrefix(tok.Value, "/") {
		return nil, e.errorAt(tok.Pos, &tags.Error{Tag: tok.Value[1:], Code: tok.Value, Msg: "unexpected closing tag"})
	}
	var outer = e.tag
	e.tag = tok
	defer func() { e.tag = outer }()

	for _, tag := range e.opts.Tags {
		var nodes, ok, err = tag(e, tok.Value, output, tokens)
		if err != nil {
			return nil, e.wrap(err)
		}
		if ok {
			return nodes, nil
		}
	}
	return nil, e.errorAt(tok.Pos, &tags.Error{Code: tok.Value, Msg: "unknown tag"})
}

// CompileFilters parses code and applies the filter tokens that follow.
func (e *env) CompileFilters(tokens *parse.Stream, code string) (ast.Node, error) {
	var node, err = parse.Expr(code, e.offset(code))
	if err != nil {
		return nil, err
	}
	for tokens != nil {
		var tok, ok = tokens.PeekType(parse.TokenFilter)
		if !ok {
			break
		}
		tokens.Next()
		filter, err := parse.Filter(tok.Value, tok.Pos)
		if err != nil {
			return nil, err
		}
		filter.Arg = node
		node = filter
	}
	e.resolve(node)
	return node, nil
}

// offset locates code within the current tag, for positions.  Code that is
// not part of the tag, such as a generated name, takes the tag's position.
func (e *env) offset(code string) ast.Pos {
	if i := strings.LastIndex(e.tag.Value, code); i >= 0 && code != "" {
		return e.tag.Pos + ast.Pos(i)
	}
	return e.tag.Pos
}

// resolve marks the identifiers that refer to bindings in scope.  The rest
// are looked up in the data record.
func (e *env) resolve(node ast.Node) {
	ast.Inspect(node, func(n ast.Node) bool {
		if ident, ok := n.(*ast.IdentNode); ok {
			ident.Local = e.scope.lookup(ident.Name)
		}
		return true
	})
}

// checkElse reports an else marker that no if consumed.
func (e *env) checkElse(body *ast.ListNode) error {
	var stray *ast.ElseNode
	ast.Inspect(body, func(n ast.Node) bool {
		if marker, ok := n.(*ast.ElseNode); ok && stray == nil {
			stray = marker
		}
		return stray == nil
	})
	if stray != nil {
		return e.errorAt(stray.Pos, &tags.Error{Tag: "else", Msg: "invalid else: no matching if"})
	}
	return nil
}

// wrap attaches the template position to err, unless an inner tag already
// did.  Syntax errors carry their own offset.
func (e *env) wrap(err error) error {
	if errortypes.IsErrFilePos(err) {
		return err
	}
	var pos = e.tag.Pos
	var syntax *parse.SyntaxError
	if errors.As(err, &syntax) {
		pos = syntax.Pos
	}
	return e.errorAt(pos, err)
}

func (e *env) errorAt(pos ast.Pos, err error) error {
	var line, col = parse.LineCol(e.source, pos)
	return errortypes.NewErrFilePosf(e.name, line, col, "%w", err)
}

var _ tags.Environment = (*env)(nil)

