package vento

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/robfig/vento/data"
	"github.com/robfig/vento/parse"
	"github.com/robfig/vento/render"
)

// ParseGlobals parses the given input, expecting the form:
//
//	<global_name> = <expression>
//
// Furthermore:
//   - Empty lines and lines beginning with '//' are ignored.
//   - <expression> may refer to the globals defined above it.
func ParseGlobals(input io.Reader) (*data.Record, error) {
	var globals = data.NewRecord()
	var scanner = bufio.NewScanner(input)
	for lineno := 1; scanner.Scan(); lineno++ {
		var line = scanner.Text()
		if len(strings.TrimSpace(line)) == 0 || strings.HasPrefix(line, "//") {
			continue
		}
		var eq = strings.Index(line, "=")
		if eq == -1 {
			return nil, fmt.Errorf("no equals on line %d: %q", lineno, line)
		}
		var (
			name = strings.TrimSpace(line[:eq])
			expr = strings.TrimSpace(line[eq+1:])
		)
		if !parse.IsIdentifier(name) {
			return nil, fmt.Errorf("line %d: invalid global name %q", lineno, name)
		}
		if globals.Has(name) {
			return nil, fmt.Errorf("global %s is already defined", name)
		}
		var value, err = render.EvalExpr(context.Background(), expr, globals, render.Options{})
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineno, err)
		}
		globals.Set(name, value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return globals, nil
}
