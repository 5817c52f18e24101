package parse

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"
)

var unescapes = map[rune]rune{
	'\\': '\\',
	'\'': '\'',
	'"':  '"',
	'`':  '`',
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'b':  '\b',
	'f':  '\f',
	'v':  '\v',
	'0':  0,
}

var escapes = map[rune]rune{
	'\\': '\\',
	'"':  '"',
	'\n': 'n',
	'\r': 'r',
	'\t': 't',
	'\b': 'b',
	'\f': 'f',
	'\v': 'v',
}

// QuoteString quotes s as a double-quoted string literal that is valid in
// both template expressions and JavaScript.
func QuoteString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, ch := range s {
		if seq, ok := escapes[ch]; ok {
			b.WriteByte('\\')
			b.WriteRune(seq)
			continue
		}
		switch {
		case ch < 0x20, ch == 0x2028, ch == 0x2029:
			b.WriteString(`\u`)
			var hex = strconv.FormatInt(int64(ch), 16)
			b.WriteString(strings.Repeat("0", 4-len(hex)) + hex)
		case ch == '<':
			// keeps "</script>" from ending an inline script
			b.WriteString(`\u003c`)
		default:
			b.WriteRune(ch)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// unquoteString takes a quoted string (including the surrounding quotes,
// which may be ', " or `) and returns the unquoted string, along with any
// error encountered.
func unquoteString(s string) (string, error) {
	n := len(s)
	if n < 2 {
		return "", errors.New("too short a string")
	}

	var quote = s[0]
	if (quote != '\'' && quote != '"' && quote != '`') || s[n-1] != quote {
		return "", errors.New("string not surrounded by quotes")
	}

	s = s[1 : n-1]
	if !strings.ContainsRune(s, '\\') {
		return s, nil
	}

	var result = make([]rune, 0, len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		if r != '\\' {
			result = append(result, r)
			continue
		}
		if i >= len(s) {
			return "", errors.New("unterminated escape sequence")
		}

		r, size = utf8.DecodeRuneInString(s[i:])
		i += size
		switch r {
		case 'u':
			var digits string
			switch {
			case strings.HasPrefix(s[i:], "{"):
				var end = strings.IndexByte(s[i:], '}')
				if end == -1 {
					return "", errors.New("error scanning unicode escape, expect \\u{N...}")
				}
				digits, i = s[i+1:i+end], i+end+1
			case i+4 <= len(s):
				digits, i = s[i:i+4], i+4
			default:
				return "", errors.New("error scanning unicode escape, expect \\uNNNN")
			}
			num, err := strconv.ParseInt(digits, 16, 32)
			if err != nil {
				return "", err
			}
			result = append(result, rune(num))
		case 'x':
			if i+2 > len(s) {
				return "", errors.New("error scanning hex escape, expect \\xNN")
			}
			num, err := strconv.ParseInt(s[i:i+2], 16, 32)
			if err != nil {
				return "", err
			}
			result = append(result, rune(num))
			i += 2
		case '\n':
			// line continuation
		default:
			if replacement, ok := unescapes[r]; ok {
				r = replacement
			}
			result = append(result, r)
		}
	}
	return string(result), nil
}
