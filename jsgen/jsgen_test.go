package jsgen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/andreyvit/diff"
	"github.com/robertkrimen/otto"
	"github.com/robfig/vento/ast"
	"github.com/robfig/vento/compiler"
)

type d map[string]any

func compile(t *testing.T, source string) *ast.TemplateNode {
	t.Helper()
	var tmpl, err = compiler.New(compiler.Options{}).Compile("test.vto", source)
	if err != nil {
		t.Fatal(err)
	}
	return tmpl
}

func TestWriteModern(t *testing.T) {
	var tests = []struct {
		name   string
		input  string
		output string
	}{
		{"print and for", "Hi {{ name }}{{ for x of list }}[{{ x |> upper }}]{{ /for }}", `
  __output += "Hi ";
  __output += (it.name) ?? "";
  for (let x of __env.utils.toIterator(it.list)) {
    __output += "[";
    __output += (__env.filters.upper(x)) ?? "";
    __output += "]";
  }`},
		{"for await with keys", "{{ for await k, v of items }}{{ k }}{{ /for }}", `
  for await (let [k, v] of __env.utils.toIterator(it.items, true)) {
    __output += (k) ?? "";
  }`},
		{"if else", "{{ if a }}x{{ else if b?.c }}y{{ else }}z{{ /if }}", `
  if (it.a) {
    __output += "x";
  } else if (it.b?.c) {
    __output += "y";
  } else {
    __output += "z";
  }`},
		{"set", "{{ set n = 1 }}{{ set n = n + 1 }}{{ export title = 'T' }}", `
  let n = 1;
  it["n"] = n;
  n = (n + 1);
  it["n"] = n;
  let title = "T";
  it["title"] = title;
  __exports["title"] = title;`},
		{"capture", "{{ set msg |> trim }} hi {{ /set }}", `
  let msg = "";
  {
    msg += " hi ";
  }
  msg = __env.filters.trim(msg);
  it["msg"] = msg;`},
		{"layout", "{{ layout 'base.vto' { t: n ?? 1 } }}b{{ /layout }}", `
  {
    let __layout = "";
    __layout += "b";
    const __tmp = await __env.run("base.vto", { ...it, "t": (it.n ?? 1), content: __layout }, "test.vto");
    __output += __tmp.content;
  }`},
		{"await filter", "{{ url |> await fetch }}", `
  __output += ((await __env.filters.fetch(it.url))) ?? "";`},
	}

	for _, test := range tests {
		var buf bytes.Buffer
		if err := Write(&buf, compile(t, test.input), Options{}); err != nil {
			t.Errorf("%s: %v", test.name, err)
			continue
		}
		var expected = `// This file was automatically generated from test.vto.
// Please don't edit this file by hand.

async function template(it, __env) {
  let __output = "";
  const __exports = {};` + test.output + `
  __exports.content = __output;
  return __exports;
}
`
		if a, e := buf.String(), expected; a != e {
			t.Errorf("%s: did not get expected results:\n%v", test.name, diff.LineDiff(e, a))
		}
	}
}

func TestWriteES5Names(t *testing.T) {
	var buf bytes.Buffer
	var tmpl = compile(t, "{{ for x of a }}{{ for x of b }}{{ x }}{{ /for }}{{ x }}{{ /for }}")
	if err := Write(&buf, tmpl, Options{Dialect: ES5, FuncName: "page"}); err != nil {
		t.Fatal(err)
	}
	var expected = `// This file was automatically generated from test.vto.
// Please don't edit this file by hand.

function page(it, __env) {
  var __output = "";
  var __exports = {};
  var __iter1 = __env.utils.toIterator(it.a, false);
  for (var __step2 = __iter1.next(); !__step2.done; __step2 = __iter1.next()) {
    var x3 = __step2.value;
    var __iter4 = __env.utils.toIterator(it.b, false);
    for (var __step5 = __iter4.next(); !__step5.done; __step5 = __iter4.next()) {
      var x6 = __step5.value;
      __output += __env.utils.str(x6);
    }
    __output += __env.utils.str(x3);
  }
  __exports.content = __output;
  return __exports;
}
`
	if a, e := buf.String(), expected; a != e {
		t.Errorf("did not get expected results:\n%v", diff.LineDiff(e, a))
	}
}

// initJs returns an interpreter with the runtime loaded and an environment
// in the global env.
func initJs(t *testing.T) *otto.Otto {
	t.Helper()
	var js = otto.New()
	if _, err := js.Run(Runtime); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	var _, err = js.Run(`var env = {
  utils: vento.utils,
  filters: {
    upper: function (s) { return String(s).toUpperCase(); },
    join: function (list, sep) { return list.join(sep); },
    trim: function (s) { return String(s).replace(/^\s+|\s+$/g, ""); }
  },
  run: function (ref, data, from) {
    return { content: "[" + ref + ":" + data.title + ":" + data.content + "]" };
  }
};`)
	if err != nil {
		t.Fatal(err)
	}
	return js
}

func TestExecES5(t *testing.T) {
	var tests = []struct {
		name   string
		input  string
		data   d
		output string
	}{
		{"text", "Hello world", nil, "Hello world"},
		{"print", "Hello {{ name }}!", d{"name": "Rob"}, "Hello Rob!"},
		{"print missing", "[{{ missing }}][{{ null }}]", nil, "[][]"},
		{"arithmetic", "{{ 1 + 2 * 3 }} {{ 7 % 3 }} {{ -x }}", d{"x": 2}, "7 1 -2"},
		{"logic", "{{ 0 || 'x' }} {{ missing ?? 'd' }} {{ false ?? 'd' }} {{ !x }}", d{"x": 1}, "x d false false"},
		{"ternary", "{{ n > 1 ? 'many' : 'one' }}", d{"n": 3}, "many"},
		{"optional", "[{{ a?.b }}][{{ a?.[0] }}][{{ u?.name }}]", d{"u": d{"name": "Rob"}}, "[][][Rob]"},
		{"for list", "{{ for x of [1, 2, 3] }}{{ x }},{{ /for }}", nil, "1,2,3,"},
		{"for index", "{{ for i, x of [10, 20] }}{{ i }}:{{ x }} {{ /for }}", nil, "0:10 1:20 "},
		{"for object", "{{ for k, v of obj }}{{ k }}={{ v }};{{ /for }}", d{"obj": d{"a": 1, "b": 2}}, "a=1;b=2;"},
		{"for number", "{{ for n of 3 }}{{ n }}{{ /for }}", nil, "123"},
		{"for string", "{{ for c of 'ab' }}{{ c }}|{{ /for }}", nil, "a|b|"},
		{"for null", "{{ for x of missing }}{{ x }}{{ /for }}", nil, ""},
		{"for shadow", "{{ for x of [1, 2] }}{{ for x of ['a'] }}{{ x }}{{ /for }}{{ x }}{{ /for }}", nil, "a1a2"},
		{"if", "{{ if n > 1 }}many{{ else if n == 1 }}one{{ else }}none{{ /if }}", d{"n": 1}, "one"},
		{"if false", "{{ if false }}a{{ /if }}b", nil, "b"},
		{"set", "{{ set x = 2 }}{{ x * 3 }}", nil, "6"},
		{"set mirrors", "{{ set x = 'a' }}{{ it.x }}", nil, "a"},
		{"set reads data", "{{ set n = n + 1 }}{{ n }}", d{"n": 1}, "2"},
		{"set in loop", "{{ set x = 1 }}{{ for i of [1, 2] }}{{ set x = x + i }}{{ /for }}{{ x }}", nil, "4"},
		{"set missing in loop", "{{ for i of [1, 2] }}{{ set x = x + 1 }}{{ /for }}{{ x }}", nil, "NaN"},
		{"capture", "{{ set msg |> upper }}hi {{ name }}{{ /set }}[{{ msg }}]", d{"name": "Rob"}, "[HI ROB]"},
		{"filters", "{{ list |> join('-') }}", d{"list": []any{1, 2}}, "1-2"},
		{"layout", "a{{ layout 'base.vto' { title: 'T' } }}body{{ /layout }}c", nil, "a[base.vto:T:body]c"},
		{"layout filters", "{{ layout 'base.vto' |> upper }}b{{ /layout }}", d{"title": "x"}, "[base.vto:x:B]"},
	}

	for _, test := range tests {
		var js = initJs(t)
		var buf bytes.Buffer
		if err := Write(&buf, compile(t, test.input), Options{Dialect: ES5}); err != nil {
			t.Errorf("%s: %v", test.name, err)
			continue
		}
		if _, err := js.Run(buf.String()); err != nil {
			t.Errorf("%s: compile error: %v\n%v", test.name, err, buf.String())
			continue
		}
		var jsonData, _ = json.Marshal(test.data)
		if test.data == nil {
			jsonData = []byte("{}")
		}
		var actual, err = js.Run(fmt.Sprintf("template(JSON.parse(%q), env).content;", jsonData))
		if err != nil {
			t.Errorf("%s: render error: %v\n%v", test.name, err, buf.String())
			continue
		}
		if actual.String() != test.output {
			t.Errorf("%s: expected %q, got %q\n%v", test.name, test.output, actual.String(), buf.String())
		}
	}
}

func TestExportsES5(t *testing.T) {
	var js = initJs(t)
	var buf bytes.Buffer
	if err := Write(&buf, compile(t, "{{ export title = 'T' }}{{ set x = 1 }}body"), Options{Dialect: ES5}); err != nil {
		t.Fatal(err)
	}
	if _, err := js.Run(buf.String()); err != nil {
		t.Fatal(err)
	}
	var actual, err = js.Run(`var r = template({}, env); [r.title, r.x, r.content].join(",");`)
	if err != nil {
		t.Fatal(err)
	}
	if actual.String() != "T,,body" {
		t.Errorf("unexpected exports %q", actual.String())
	}
}

func TestWriteErrors(t *testing.T) {
	var tests = []struct {
		input   string
		dialect Dialect
		errmsg  string
	}{
		{"{{ for await x of list }}{{ /for }}", ES5, "template test.vto:1:4: for await needs the modern dialect"},
		{"a\n{{ x |> await fetch }}", ES5, "template test.vto:2:9: await fetch: asynchronous filters need the modern dialect"},
	}
	for _, test := range tests {
		var err = Write(new(bytes.Buffer), compile(t, test.input), Options{Dialect: test.dialect})
		if err == nil {
			t.Errorf("%q: expected an error", test.input)
			continue
		}
		if err.Error() != test.errmsg {
			t.Errorf("%q: got %q, expected %q", test.input, err.Error(), test.errmsg)
		}
	}

	var err = Write(new(bytes.Buffer), compile(t, ""), Options{FuncName: "for"})
	if err == nil || !strings.Contains(err.Error(), `invalid function name "for"`) {
		t.Errorf("expected an invalid function name, got %v", err)
	}
}

func TestRuntime(t *testing.T) {
	var js = initJs(t)
	var tests = []struct{ expr, output string }{
		{`collect(null, false)`, ""},
		{`collect([1, 2], false)`, "1|2"},
		{`collect([1, 2], true)`, "0,1|1,2"},
		{`collect({a: 1, b: 2}, true)`, "a,1|b,2"},
		{`collect(2, true)`, "0,1|1,2"},
		{`collect(2.5, false)`, "1|2"},
		{`collect(-1, false)`, ""},
		{`collect("ab", false)`, "a|b"},
		{`collect(function () { return [3]; }, false)`, "3"},
		{`collect({next: (function () { var i = 0; return function () { i++; return {done: i > 2, value: i}; }; })()}, false)`, "1|2"},
		{`collect({next: (function () { var i = 0; return function () { i++; return {done: i > 2, value: i}; }; })()}, true)`, "0,1|1,2"},
		{`collect(true, false)`, "true"},
		{`interleave(false)`, "n1,b1,n2,b2,n3"},
		{`interleave(true)`, "n1,b0,1,n2,b1,2,n3"},
		{`JSON.stringify(vento.utils.merge({a: 1, b: 1}, {b: 2}, {c: 3}))`, `{"a":1,"b":2,"c":3}`},
		{`vento.utils.str(null) + vento.utils.str(0)`, "0"},
		{`String(vento.utils.member(null, "x"))`, "undefined"},
	}
	var _, err = js.Run(`function collect(v, withKeys) {
  var it = vento.utils.toIterator(v, withKeys), items = [];
  for (var step = it.next(); !step.done; step = it.next()) {
    items.push(String(step.value));
  }
  return items.join("|");
}

function interleave(withKeys) {
  var log = [], i = 0;
  var source = {next: function () { i++; log.push("n" + i); return {done: i > 2, value: i}; }};
  var it = vento.utils.toIterator(source, withKeys);
  for (var step = it.next(); !step.done; step = it.next()) {
    log.push("b" + String(step.value));
  }
  return log.join(",");
}`)
	if err != nil {
		t.Fatal(err)
	}
	for _, test := range tests {
		var actual, err = js.Run(test.expr)
		if err != nil {
			t.Errorf("%s: %v", test.expr, err)
			continue
		}
		if actual.String() != test.output {
			t.Errorf("%s: expected %q, got %q", test.expr, test.output, actual.String())
		}
	}
}
