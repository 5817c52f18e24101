package render

import (
	"reflect"
	"unicode"
	"unicode/utf8"

	"github.com/robfig/vento/ast"
	"github.com/robfig/vento/data"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// evalCall calls a function from the data, or a method of a value:
// {{ fn(a, b) }}, {{ user.name() }}.  Properties take precedence over
// methods.
func (s *state) evalCall(node *ast.CallNode) any {
	var fn any
	if member, ok := node.Fn.(*ast.MemberNode); ok {
		var obj = s.eval(member.Obj)
		if data.IsNil(obj) && member.Optional {
			return nil
		}
		fn = data.Property(obj, member.Key)
		if data.IsNil(fn) {
			if method, ok := methodByName(obj, member.Key); ok {
				fn = method.Interface()
			}
		}
	} else {
		fn = s.eval(node.Fn)
	}

	var args = make([]any, len(node.Args))
	for i, arg := range node.Args {
		args[i] = s.eval(arg)
	}
	s.at(node)
	return s.call(node.Fn, fn, args)
}

// methodByName finds the method key, or key with the first letter
// upper-cased, on obj.
func methodByName(obj any, key string) (reflect.Value, bool) {
	if obj == nil {
		return reflect.Value{}, false
	}
	var rv = reflect.ValueOf(obj)
	if m := rv.MethodByName(key); m.IsValid() {
		return m, true
	}
	var first, size = utf8.DecodeRuneInString(key)
	if first == utf8.RuneError {
		return reflect.Value{}, false
	}
	var m = rv.MethodByName(string(unicode.ToUpper(first)) + key[size:])
	return m, m.IsValid()
}

// call invokes fn with args converted to its parameter types.  Missing
// arguments are zero values.  A trailing error result is raised.
func (s *state) call(callee ast.Node, fn any, args []any) any {
	var rv = reflect.ValueOf(fn)
	if fn == nil || rv.Kind() != reflect.Func {
		s.errorf("%s is not a function", callee)
	}
	var t = rv.Type()
	var fixed = t.NumIn()
	if t.IsVariadic() {
		fixed--
	}
	if len(args) > fixed && !t.IsVariadic() {
		s.errorf("%s takes %d arguments, called with %d", callee, fixed, len(args))
	}

	var in []reflect.Value
	for i := 0; i < fixed; i++ {
		var arg any
		if i < len(args) {
			arg = args[i]
		}
		in = append(in, s.convert(callee, arg, t.In(i)))
	}
	for i := fixed; i < len(args); i++ {
		in = append(in, s.convert(callee, args[i], t.In(fixed).Elem()))
	}

	var out = rv.Call(in)
	if n := len(out); n > 0 && t.Out(n-1) == errorType {
		if err, _ := out[n-1].Interface().(error); err != nil {
			s.errorf("%s: %w", callee, err)
		}
		out = out[:n-1]
	}
	if len(out) == 0 {
		return nil
	}
	return out[0].Interface()
}

// convert prepares a template value for a parameter of type t.
func (s *state) convert(callee ast.Node, v any, t reflect.Type) reflect.Value {
	if data.IsNil(v) {
		return reflect.Zero(t)
	}
	var rv = reflect.ValueOf(v)
	switch {
	case rv.Type().AssignableTo(t):
		return rv
	case isNumberKind(rv.Kind()) && isNumberKind(t.Kind()),
		rv.Kind() == reflect.String && t.Kind() == reflect.String:
		return rv.Convert(t)
	}
	s.errorf("%s: cannot use %s as %v", callee, data.Inspect(v), t)
	return reflect.Value{}
}

func isNumberKind(k reflect.Kind) bool {
	return reflect.Int <= k && k <= reflect.Float64
}
