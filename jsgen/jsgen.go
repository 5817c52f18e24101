// Package jsgen lowers compiled templates to JavaScript.
//
// Each template becomes one function taking the data record and an
// environment object:
//
//	async function NAME(it, __env) { ... return __exports; }
//
// The function returns the exports of the render, with the rendered text as
// their content property.  The environment provides:
//
//	__env.utils     the helpers in Runtime
//	__env.filters   the filters, called as __env.filters.NAME(value, ...args)
//	__env.run       run(ref, data, from) renders a layout
//
// The ES5 dialect emits a synchronous function for hosts without generators
// or promises.  It has no equivalent for for await and awaited filters.
package jsgen

import (
	_ "embed"
	"io"

	"github.com/robfig/vento/ast"
	"github.com/robfig/vento/parse"
)

// Runtime is the JavaScript source of the helpers generated code expects in
// __env.utils.  It defines a global vento object; pass vento.utils.  It is
// written in ES5 syntax, so it runs in either dialect's host.
//
//go:embed runtime.js
var Runtime string

// Dialect selects the JavaScript flavour to emit.
type Dialect int

const (
	Modern Dialect = iota // async functions, let/const, for-of, ?. and ??
	ES5                   // var declarations and explicit iterator stepping
)

func (d Dialect) String() string {
	if d == ES5 {
		return "es5"
	}
	return "modern"
}

// DefaultFuncName is the name of the generated function unless overridden.
const DefaultFuncName = "template"

// Options for js source generation.
type Options struct {
	Dialect  Dialect
	FuncName string // defaults to DefaultFuncName
}

// Write generates the JavaScript function for tmpl.
func Write(out io.Writer, tmpl *ast.TemplateNode, opts Options) (err error) {
	if opts.FuncName == "" {
		opts.FuncName = DefaultFuncName
	}
	var s = &state{
		wr:      out,
		tmpl:    tmpl,
		dialect: opts.Dialect,
	}
	defer s.errRecover(&err)
	if !parse.IsIdentifier(opts.FuncName) || parse.IsReserved(opts.FuncName) {
		s.errorf("invalid function name %q", opts.FuncName)
	}
	s.visitTemplate(tmpl, opts.FuncName)
	return nil
}
