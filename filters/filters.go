// Package filters provides the filters applied with |> in templates.
package filters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/robfig/vento/data"
	"github.com/robfig/vento/iterate"
)

// Filter transforms a value.  args are the evaluated arguments of the filter
// call, {{ value |> name(args...) }}.
type Filter func(value any, args ...any) (any, error)

// Default returns a new map holding the built-in filters.  Callers may add
// their own filters to it.
func Default() map[string]Filter {
	return map[string]Filter{
		"escape":   filterEscape,
		"safe":     filterSafe,
		"upper":    caseFilter(func() cases.Caser { return cases.Upper(language.Und) }),
		"lower":    caseFilter(func() cases.Caser { return cases.Lower(language.Und) }),
		"title":    caseFilter(func() cases.Caser { return cases.Title(language.Und) }),
		"trim":     filterTrim,
		"json":     filterJSON,
		"join":     filterJoin,
		"length":   filterLength,
		"truncate": filterTruncate,
		"nl2br":    filterNewlineToBr,
		"url":      filterURL,
	}
}

var (
	htmlQuot = "&#34;" // shorter than "&quot;"
	htmlApos = "&#39;" // shorter than "&apos;" and apos was not in HTML until HTML5
	htmlAmp  = "&amp;"
	htmlLt   = "&lt;"
	htmlGt   = "&gt;"
)

// EscapeHTML replaces the characters with a meaning in HTML by entities.
func EscapeHTML(str string) string {
	var b strings.Builder
	last := 0
	for i := 0; i < len(str); i++ {
		var html string
		switch str[i] {
		case '"':
			html = htmlQuot
		case '\'':
			html = htmlApos
		case '&':
			html = htmlAmp
		case '<':
			html = htmlLt
		case '>':
			html = htmlGt
		default:
			continue
		}
		if last == 0 {
			b.Grow(len(str) + 16)
		}
		b.WriteString(str[last:i])
		b.WriteString(html)
		last = i + 1
	}
	if last == 0 {
		return str
	}
	b.WriteString(str[last:])
	return b.String()
}

func filterEscape(value any, _ ...any) (any, error) {
	return EscapeHTML(data.ToString(value)), nil
}

// filterSafe marks a value as not needing escaping.  The compiler removes a
// trailing safe when escaping automatically, so here it does nothing.
func filterSafe(value any, _ ...any) (any, error) {
	return value, nil
}

// caseFilter builds a caser per call.  A Caser keeps state between calls and
// the filter map is shared by concurrent renders.
func caseFilter(newCaser func() cases.Caser) Filter {
	return func(value any, _ ...any) (any, error) {
		return newCaser().String(data.ToString(value)), nil
	}
}

func filterTrim(value any, _ ...any) (any, error) {
	return strings.TrimSpace(data.ToString(value)), nil
}

func filterJSON(value any, args ...any) (any, error) {
	var j []byte
	var err error
	if indent, ok := intArg(args, 0); ok {
		j, err = json.MarshalIndent(value, "", strings.Repeat(" ", int(indent)))
	} else {
		j, err = json.Marshal(value)
	}
	if err != nil {
		return nil, fmt.Errorf("error JSON encoding value: %v", err)
	}
	return string(j), nil
}

// filterJoin joins the elements of any iterable value with a separator,
// "," by default.
func filterJoin(value any, args ...any) (any, error) {
	var sep = ","
	if len(args) > 0 {
		sep = data.ToString(args[0])
	}
	var values, err = iterate.Values(context.Background(), iterate.ToIterator(value, false))
	if err != nil {
		return nil, err
	}
	var parts = make([]string, len(values))
	for i, v := range values {
		parts[i] = data.ToString(v)
	}
	return strings.Join(parts, sep), nil
}

func filterLength(value any, _ ...any) (any, error) {
	if r, ok := value.(*data.Record); ok {
		return int64(r.Len()), nil
	}
	if n := data.Property(value, "length"); n != nil {
		return n, nil
	}
	return int64(0), nil
}

func filterTruncate(value any, args ...any) (any, error) {
	var maxLen, ok = intArg(args, 0)
	if !ok {
		return nil, fmt.Errorf("first parameter of truncate is not an integer: %v", data.Inspect(arg(args, 0)))
	}
	var str = data.ToString(value)
	if int64(len(str)) <= maxLen {
		return str, nil
	}

	var ellipsis = true
	if len(args) == 2 {
		if ellipsis, ok = args[1].(bool); !ok {
			return nil, fmt.Errorf("second parameter of truncate is not a bool: %v", data.Inspect(args[1]))
		}
	}
	if ellipsis {
		if maxLen > 3 {
			maxLen -= 3
		} else {
			ellipsis = false
		}
	}
	for maxLen > 0 && !utf8.RuneStart(str[maxLen]) {
		maxLen--
	}

	str = str[:maxLen]
	if ellipsis {
		str += "..."
	}
	return str, nil
}

var newlinePattern = regexp.MustCompile(`\r\n|\r|\n`)

func filterNewlineToBr(value any, _ ...any) (any, error) {
	return newlinePattern.ReplaceAllString(EscapeHTML(data.ToString(value)), "<br>"), nil
}

func filterURL(value any, _ ...any) (any, error) {
	return url.QueryEscape(data.ToString(value)), nil
}

func arg(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func intArg(args []any, i int) (int64, bool) {
	var v = arg(args, i)
	if v == nil {
		return 0, false
	}
	return data.AsInt(v)
}
