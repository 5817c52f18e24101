// Package tags defines the contract between the template compiler and the
// tag compilers that translate block syntax into statements, and provides the
// built-in tags.
//
// A tag compiler is offered the code of every tag token in turn.  It returns
// ok == false, leaving the token stream untouched, for code it does not
// recognise.  Once it recognises its keyword it commits: any later problem is
// reported as an error rather than passed to the next compiler.
package tags

import (
	"strings"
	"unicode"

	"github.com/robfig/vento/ast"
	"github.com/robfig/vento/parse"
)

// Environment is the part of the compiler that tag compilers call back into.
type Environment interface {
	// DataVarName is the name of the per-render data record, "it" by default.
	DataVarName() string

	// AutoEscape reports whether printed values are escaped by default.
	AutoEscape() bool

	// Pos is the source offset of the tag being compiled.
	Pos() ast.Pos

	// CompileFilters parses code as an expression and applies the filter
	// tokens that immediately follow in tokens, consuming them.  tokens may
	// be nil when code takes no filters.
	CompileFilters(tokens *parse.Stream, code string) (ast.Node, error)

	// CompileTokens compiles statements appending to output until the next
	// tag token equals one of stop, or the stream ends.  The stop token is
	// left in the stream.
	CompileTokens(tokens *parse.Stream, output string, stop ...string) ([]ast.Node, error)

	// PushScope and PopScope bracket a block's compile-time scope.
	PushScope()
	PopScope()

	// Declare binds name in the current scope.  It returns true if the name
	// was already visible, in which case the binding is reused.
	Declare(name string) (existed bool)

	// Declared reports whether name is bound in any enclosing scope.
	Declared(name string) bool
}

// Tag compiles one tag.  code is the trimmed tag text and output the name of
// the accumulator the surrounding block appends to.
type Tag func(env Environment, code, output string, tokens *parse.Stream) (nodes []ast.Node, ok bool, err error)

// Builtin returns the built-in tags in dispatch order.  Echo accepts any code,
// so it comes last.
func Builtin() []Tag {
	return []Tag{For, If, Else, Set, Export, Layout, Echo}
}

// Error is a tag grammar error.
type Error struct {
	Tag  string // keyword of the failing tag
	Code string // full code of the tag
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func newError(tag, code, msg string) *Error {
	return &Error{Tag: tag, Code: code, Msg: msg}
}

// keyword splits code into its first word and the remainder.
func keyword(code string) (word, rest string) {
	var i = strings.IndexFunc(code, unicode.IsSpace)
	if i == -1 {
		return code, ""
	}
	return code[:i], strings.TrimSpace(code[i:])
}

// closeBlock consumes the closing tag of a block tag.  CompileTokens stops
// at the closer or at the end of the stream, so anything else means the
// closer is missing.
func closeBlock(tokens *parse.Stream, tag, code string) error {
	var tok, ok = tokens.PeekType(parse.TokenTag)
	if !ok || tok.Value != "/"+tag {
		return newError(tag, code, "missing closing tag for "+tag)
	}
	tokens.Next()
	return nil
}

// bindable reports whether a template may bind name.  The data record
// variable is taken by the generated function's parameter.
func bindable(env Environment, name string) bool {
	return parse.IsIdentifier(name) && !parse.IsReserved(name) && name != env.DataVarName()
}

// block compiles the body of tag in a fresh scope, after the bindings have
// been declared, and consumes its closer.
func block(env Environment, tokens *parse.Stream, tag, code, output string, bindings ...string) (*ast.ListNode, error) {
	env.PushScope()
	for _, name := range bindings {
		env.Declare(name)
	}
	var pos = env.Pos()
	var nodes, err = env.CompileTokens(tokens, output, "/"+tag)
	env.PopScope()
	if err != nil {
		return nil, err
	}
	if err := closeBlock(tokens, tag, code); err != nil {
		return nil, err
	}
	return &ast.ListNode{Pos: pos, Nodes: nodes}, nil
}
