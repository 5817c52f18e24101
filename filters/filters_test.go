package filters

import (
	"testing"

	"github.com/robfig/vento/data"
)

func TestFilters(t *testing.T) {
	var tests = []struct {
		name   string
		value  any
		args   []any
		output any
	}{
		{"escape", `<a href="x">'&'</a>`, nil, "&lt;a href=&#34;x&#34;&gt;&#39;&amp;&#39;&lt;/a&gt;"},
		{"escape", "plain", nil, "plain"},
		{"escape", nil, nil, ""},
		{"escape", int64(3), nil, "3"},
		{"safe", "<b>", nil, "<b>"},
		{"upper", "hello", nil, "HELLO"},
		{"lower", "HeLLo", nil, "hello"},
		{"title", "hello world", nil, "Hello World"},
		{"trim", "  x \n", nil, "x"},
		{"json", data.RecordOf("b", int64(1), "a", []any{"x", nil}), nil, `{"b":1,"a":["x",null]}`},
		{"json", "<", nil, `"<"`},
		{"json", []any{int64(1)}, []any{int64(2)}, "[\n  1\n]"},
		{"join", []any{"a", int64(1), true}, nil, "a,1,true"},
		{"join", []any{"a", "b"}, []any{", "}, "a, b"},
		{"join", "abc", []any{"-"}, "a-b-c"},
		{"join", data.RecordOf("a", int64(1), "b", int64(2)), []any{" "}, "1 2"},
		{"length", "héllo", nil, int64(5)},
		{"length", []any{1, 2}, nil, int64(2)},
		{"length", data.RecordOf("a", 1), nil, int64(1)},
		{"length", int64(3), nil, int64(0)},
		{"truncate", "abcdef", []any{int64(4)}, "a..."},
		{"truncate", "abcdef", []any{int64(4), false}, "abcd"},
		{"truncate", "abc", []any{int64(4)}, "abc"},
		{"nl2br", "a\r\nb<\n", nil, "a<br>b&lt;<br>"},
		{"url", "a b&c", nil, "a+b%26c"},
	}
	var filters = Default()
	for _, test := range tests {
		var filter, ok = filters[test.name]
		if !ok {
			t.Errorf("missing filter %s", test.name)
			continue
		}
		var output, err = filter(test.value, test.args...)
		if err != nil {
			t.Errorf("%s(%v): %v", test.name, test.value, err)
			continue
		}
		if !data.StrictEqual(output, test.output) {
			t.Errorf("%s(%v, %v): got %v, expected %v", test.name, test.value, test.args, data.Inspect(output), data.Inspect(test.output))
		}
	}
}

func TestFilterErrors(t *testing.T) {
	var filters = Default()
	if _, err := filters["truncate"]("abc", "x"); err == nil {
		t.Errorf("expected an error for a non-integer length")
	}
	if _, err := filters["truncate"]("abcdef", int64(3), "x"); err == nil {
		t.Errorf("expected an error for a non-bool ellipsis")
	}
	if _, err := filters["json"](func() {}); err == nil {
		t.Errorf("expected an error for an unencodable value")
	}
}

func TestDefaultIsFresh(t *testing.T) {
	var a = Default()
	a["custom"] = filterSafe
	if _, ok := Default()["custom"]; ok {
		t.Errorf("Default should return a new map")
	}
}
