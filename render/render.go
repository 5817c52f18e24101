// Package render executes compiled templates against a data record.
//
// Statements append to named output accumulators.  The root accumulator
// becomes the content of the result; set and layout bodies render into
// accumulators of their own.  Identifiers the compiler marked local are read
// from the block scopes, the rest from the data record.
package render

import (
	"context"
	"io"
	"strings"

	"github.com/robfig/vento/ast"
	"github.com/robfig/vento/data"
	"github.com/robfig/vento/filters"
	"github.com/robfig/vento/parse"
)

// Result is the outcome of rendering a template.
type Result struct {
	Content string       // the rendered text
	Exports *data.Record // values set with export tags
}

// Runner renders another template on behalf of a layout tag.  ref is the
// reference written in the tag and from the name of the calling template,
// against which relative references resolve.
type Runner interface {
	Run(ctx context.Context, ref, from string, it *data.Record) (*Result, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, ref, from string, it *data.Record) (*Result, error)

func (f RunnerFunc) Run(ctx context.Context, ref, from string, it *data.Record) (*Result, error) {
	return f(ctx, ref, from, it)
}

// Promise is a value that an awaited filter resolves, as in
// {{ url |> await fetch }}.
type Promise func(ctx context.Context) (any, error)

// Options configures an execution.
type Options struct {
	Filters map[string]filters.Filter // defaults to filters.Default()
	Runner  Runner                    // required by layout tags
}

// Execute renders tmpl with the data record it, writing the content to w if
// it is not nil.  Set and export tags write into it, so callers that reuse a
// record across renders should pass a clone.
func Execute(ctx context.Context, w io.Writer, tmpl *ast.TemplateNode, it *data.Record, opts Options) (result *Result, err error) {
	if it == nil {
		it = data.NewRecord()
	}
	if opts.Filters == nil {
		opts.Filters = filters.Default()
	}
	var s = &state{
		ctx:     ctx,
		tmpl:    tmpl,
		it:      it,
		exports: data.NewRecord(),
		outputs: map[string]*strings.Builder{ast.OutputVar: {}},
		filters: opts.Filters,
		runner:  opts.Runner,
	}
	defer s.errRecover(&err)
	s.vars.push()
	s.walk(tmpl.Body)

	result = &Result{
		Content: s.outputs[ast.OutputVar].String(),
		Exports: s.exports,
	}
	if w != nil {
		if _, err := io.WriteString(w, result.Content); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// EvalExpr evaluates a single expression, such as "user.name + '!'".  Names
// in expr are looked up in it.
func EvalExpr(ctx context.Context, expr string, it *data.Record, opts Options) (val any, err error) {
	node, err := parse.Expr(expr, 0)
	if err != nil {
		return nil, err
	}
	if it == nil {
		it = data.NewRecord()
	}
	if opts.Filters == nil {
		opts.Filters = filters.Default()
	}
	var s = &state{
		ctx:     ctx,
		tmpl:    &ast.TemplateNode{Name: "expression", Text: expr, DataVar: "it"},
		it:      it,
		exports: data.NewRecord(),
		outputs: map[string]*strings.Builder{ast.OutputVar: {}},
		filters: opts.Filters,
		runner:  opts.Runner,
	}
	defer s.errRecover(&err)
	s.vars.push()
	return s.eval(node), nil
}
