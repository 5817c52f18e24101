package render

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/robfig/vento/ast"
	"github.com/robfig/vento/data"
	"github.com/robfig/vento/errortypes"
	"github.com/robfig/vento/filters"
	"github.com/robfig/vento/iterate"
	"github.com/robfig/vento/parse"
)

// state represents the state of an execution.
type state struct {
	ctx     context.Context
	tmpl    *ast.TemplateNode
	node    ast.Node                    // current node, for errors
	val     any                         // temp value for expression being computed
	vars    scope                       // block scoped bindings
	it      *data.Record                // the data record
	exports *data.Record                // values set by export tags
	outputs map[string]*strings.Builder // output accumulators by name
	filters map[string]filters.Filter
	runner  Runner
}

// at marks the state to be on node n, for error reporting.
func (s *state) at(node ast.Node) {
	s.node = node
}

// errorf formats the error and terminates processing.
func (s *state) errorf(format string, args ...any) {
	var line, col = s.position()
	panic(errortypes.NewErrFilePosf(s.tmpl.Name, line, col, format, args...))
}

func (s *state) position() (line, col int) {
	if s.node == nil {
		return 1, 1
	}
	return parse.LineCol(s.tmpl.Text, s.node.Position())
}

// errRecover is the handler that turns panics into returns from the top
// level of Execute.
func (s *state) errRecover(errp *error) {
	if e := recover(); e != nil {
		var line, col = s.position()
		switch e := e.(type) {
		case runtime.Error:
			*errp = fmt.Errorf("template %s:%d:%d: %v\n%v", s.tmpl.Name, line, col, e, string(debug.Stack()))
		case error:
			*errp = e
		default:
			*errp = fmt.Errorf("template %s:%d:%d: %v", s.tmpl.Name, line, col, e)
		}
	}
}

// out returns the accumulator named name.
func (s *state) out(name string) *strings.Builder {
	var b, ok = s.outputs[name]
	if !ok {
		s.errorf("unknown output %q", name)
	}
	return b
}

// capture renders body into a fresh accumulator named name and returns the
// text.  An accumulator of the same name in an enclosing block is restored.
func (s *state) capture(name string, body ast.Node) string {
	var outer, hadOuter = s.outputs[name]
	var b = new(strings.Builder)
	s.outputs[name] = b
	s.vars.push()
	s.walk(body)
	s.vars.pop()
	if hadOuter {
		s.outputs[name] = outer
	} else {
		delete(s.outputs, name)
	}
	return b.String()
}

// walk recursively goes through each node and executes the indicated logic,
// appending output to the accumulators.
func (s *state) walk(node ast.Node) {
	s.val = nil
	s.at(node)
	switch node := node.(type) {
	case *ast.TemplateNode:
		s.walk(node.Body)
	case *ast.ListNode:
		for _, node := range node.Nodes {
			s.walk(node)
		}

		// Output nodes ----------
	case *ast.RawTextNode:
		s.out(node.Out).WriteString(node.Text)
	case *ast.PrintNode:
		var val = s.eval(node.Arg)
		s.at(node)
		s.out(node.Out).WriteString(data.ToString(val))

		// Control flow ----------
	case *ast.IfNode:
		for _, cond := range node.Conds {
			if cond.Cond == nil || data.Truthy(s.eval(cond.Cond)) {
				s.vars.push()
				s.walk(cond.Body)
				s.vars.pop()
				break
			}
		}
	case *ast.ForNode:
		s.walkFor(node)
	case *ast.SetNode:
		s.walkSet(node)
	case *ast.LayoutNode:
		s.walkLayout(node)
	case *ast.ElseNode:
		s.errorf("else outside of an if")

		// Values ----------
	case *ast.NullNode, *ast.UndefinedNode:
		s.val = nil
	case *ast.BoolNode:
		s.val = node.True
	case *ast.IntNode:
		s.val = node.Value
	case *ast.FloatNode:
		s.val = node.Value
	case *ast.StringNode:
		s.val = node.Value
	case *ast.IdentNode:
		switch {
		case node.Local:
			s.val = s.vars.lookup(node.Name)
		case node.Name == s.tmpl.DataVar:
			s.val = s.it
		default:
			s.val = s.it.Get(node.Name)
		}
	case *ast.ListLiteralNode:
		var items = make([]any, len(node.Items))
		for i, item := range node.Items {
			items[i] = s.eval(item)
		}
		s.val = items
	case *ast.MapLiteralNode:
		var record = data.NewRecord()
		for i, k := range node.Keys {
			record.Set(k, s.eval(node.Values[i]))
		}
		s.val = record
	case *ast.MemberNode:
		var obj = s.eval(node.Obj)
		s.at(node)
		if data.IsNil(obj) {
			if !node.Optional {
				s.errorf("cannot read property %q of %s", node.Key, data.Inspect(obj))
			}
			s.val = nil
			return
		}
		s.val = data.Property(obj, node.Key)
	case *ast.IndexNode:
		var obj = s.eval(node.Obj)
		var index = s.eval(node.Index)
		s.at(node)
		if data.IsNil(obj) {
			if !node.Optional {
				s.errorf("cannot read property %s of %s", data.Inspect(index), data.Inspect(obj))
			}
			s.val = nil
			return
		}
		s.val = data.Index(obj, index)
	case *ast.CallNode:
		s.val = s.evalCall(node)
	case *ast.FilterNode:
		s.val = s.evalFilter(node)

		// Arithmetic operators ----------
	case *ast.NegateNode:
		s.val = data.Negate(s.eval(node.Arg))
	case *ast.AddNode:
		var arg1, arg2 = s.eval2(node.Arg1, node.Arg2)
		s.val = data.Add(arg1, arg2)
	case *ast.SubNode:
		var arg1, arg2 = s.eval2(node.Arg1, node.Arg2)
		s.val = data.Arith("-", arg1, arg2)
	case *ast.MulNode:
		var arg1, arg2 = s.eval2(node.Arg1, node.Arg2)
		s.val = data.Arith("*", arg1, arg2)
	case *ast.DivNode:
		var arg1, arg2 = s.eval2(node.Arg1, node.Arg2)
		s.val = data.Arith("/", arg1, arg2)
	case *ast.ModNode:
		var arg1, arg2 = s.eval2(node.Arg1, node.Arg2)
		s.val = data.Arith("%", arg1, arg2)

		// Comparisons ----------
	case *ast.EqNode:
		s.val = data.Equal(s.eval2(node.Arg1, node.Arg2))
	case *ast.NotEqNode:
		s.val = !data.Equal(s.eval2(node.Arg1, node.Arg2))
	case *ast.StrictEqNode:
		s.val = data.StrictEqual(s.eval2(node.Arg1, node.Arg2))
	case *ast.StrictNotEqNode:
		s.val = !data.StrictEqual(s.eval2(node.Arg1, node.Arg2))
	case *ast.LtNode:
		var cmp, ok = data.Compare(s.eval2(node.Arg1, node.Arg2))
		s.val = ok && cmp < 0
	case *ast.LteNode:
		var cmp, ok = data.Compare(s.eval2(node.Arg1, node.Arg2))
		s.val = ok && cmp <= 0
	case *ast.GtNode:
		var cmp, ok = data.Compare(s.eval2(node.Arg1, node.Arg2))
		s.val = ok && cmp > 0
	case *ast.GteNode:
		var cmp, ok = data.Compare(s.eval2(node.Arg1, node.Arg2))
		s.val = ok && cmp >= 0

		// Logical operators ----------
	case *ast.NotNode:
		s.val = !data.Truthy(s.eval(node.Arg))
	case *ast.AndNode:
		if s.val = s.eval(node.Arg1); data.Truthy(s.val) {
			s.val = s.eval(node.Arg2)
		}
	case *ast.OrNode:
		if s.val = s.eval(node.Arg1); !data.Truthy(s.val) {
			s.val = s.eval(node.Arg2)
		}
	case *ast.NullishNode:
		if s.val = s.eval(node.Arg1); data.IsNil(s.val) {
			s.val = s.eval(node.Arg2)
		}
	case *ast.TernNode:
		if data.Truthy(s.eval(node.Arg1)) {
			s.val = s.eval(node.Arg2)
		} else {
			s.val = s.eval(node.Arg3)
		}

	default:
		s.errorf("unknown node: %T", node)
	}
}

// eval evaluates an expression and returns its value.
func (s *state) eval(node ast.Node) any {
	s.walk(node)
	return s.val
}

func (s *state) eval2(n1, n2 ast.Node) (any, any) {
	return s.eval(n1), s.eval(n2)
}

func (s *state) walkFor(node *ast.ForNode) {
	var list = s.eval(node.List)
	s.at(node)
	var seq = iterate.ToIterator(list, node.WithKeys())
	if seq.Async() && !node.Await {
		s.errorf("%s is asynchronous, iterate it with for await", node.List)
	}
	var err = seq.Each(s.ctx, func(item iterate.Item) bool {
		if err := s.ctx.Err(); err != nil {
			s.errorf("%w", err)
		}
		s.vars.push()
		s.vars.set(node.Value, item.Value)
		if node.Key != "" {
			s.vars.set(node.Key, item.Key)
		}
		s.walk(node.Body)
		s.vars.pop()
		return true
	})
	if err != nil {
		s.at(node)
		s.errorf("in for loop over %s: %w", node.List, err)
	}
}

// walkSet binds the value locally and mirrors it into the data record, so
// that later reads through the record see it too.
func (s *state) walkSet(node *ast.SetNode) {
	var bind = s.vars.assign
	if node.Declare {
		bind = s.vars.set
	}
	if node.Body != nil {
		bind(node.Name, "")
		bind(node.Name, s.capture(node.Name, node.Body))
	}
	var val = s.eval(node.Value)
	bind(node.Name, val)
	s.it.Set(node.Name, val)
	if node.Export {
		s.exports.Set(node.Name, val)
	}
}

func (s *state) walkLayout(node *ast.LayoutNode) {
	var ref = data.ToString(s.eval(node.Template))
	var body = s.capture(node.Var, node.Body)
	s.vars.push()
	s.vars.set(node.Var, body)
	var content = s.eval(node.Content)
	s.vars.pop()

	var layoutData = s.it.Clone()
	if node.Data != nil {
		layoutData.Merge(s.eval(node.Data).(*data.Record))
	}
	layoutData.Set("content", content)

	s.at(node)
	if s.runner == nil {
		s.errorf("layout %q: no runner to render it", ref)
	}
	var result, err = s.runner.Run(s.ctx, ref, s.tmpl.Name, layoutData)
	if err != nil {
		s.errorf("layout %q: %w", ref, err)
	}
	s.out(node.Out).WriteString(result.Content)
}

func (s *state) evalFilter(node *ast.FilterNode) any {
	var val = s.eval(node.Arg)
	var args = make([]any, len(node.Args))
	for i, arg := range node.Args {
		args[i] = s.eval(arg)
	}
	s.at(node)
	var filter, ok = s.filters[node.Name]
	if !ok {
		s.errorf("unknown filter %q", node.Name)
	}
	var result, err = filter(val, args...)
	if err != nil {
		s.errorf("filter %s: %w", node.Name, err)
	}
	if node.Await {
		result = s.await(result)
	}
	return result
}

// await resolves promises and single-value channels.  Other values are
// already resolved.
func (s *state) await(val any) any {
	switch v := val.(type) {
	case Promise:
		var result, err = v(s.ctx)
		if err != nil {
			s.errorf("%w", err)
		}
		return result
	case func(context.Context) (any, error):
		return s.await(Promise(v))
	case <-chan any:
		select {
		case result := <-v:
			return result
		case <-s.ctx.Done():
			s.errorf("%w", s.ctx.Err())
		}
	}
	return val
}
