/*
Command vento renders templates, or prints them as JavaScript.

Invoke it like so:

	vento [-j] [-5] [-e] [-d data.json] [-g globals.txt] [-l msgs] [-r root] template...

Options:

	-j  print the JavaScript function for each template instead of rendering it
	-5  with -j, emit ES5 instead of modern JavaScript
	-e  escape printed values as HTML
	-d  read the data record from a JSON file
	-g  read globals from a file of name = expression lines
	-l  load translations for the t filter from a directory of PO files
	-r  resolve template paths against root (default: the working directory)
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sircmpwn/getopt"
	"github.com/fatih/color"

	"github.com/robfig/vento"
	"github.com/robfig/vento/data"
	"github.com/robfig/vento/i18n"
	"github.com/robfig/vento/jsgen"
	"github.com/robfig/vento/loader"
)

const usage = "usage: vento [-j] [-5] [-e] [-d data.json] [-g globals.txt] [-l msgs] [-r root] template..."

func main() {
	if err := run(os.Args, os.Stdout); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "vento: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	js, es5, escape bool
	dataFile        string
	globalsFile     string
	msgsDir         string
	root            string
}

func parseArgs(args []string) (*options, []string, error) {
	opts, optind, err := getopt.Getopts(args, "j5ed:g:l:r:")
	if err != nil {
		return nil, nil, err
	}
	var o = &options{root: "."}
	for _, opt := range opts {
		switch opt.Option {
		case 'j':
			o.js = true
		case '5':
			o.es5 = true
		case 'e':
			o.escape = true
		case 'd':
			o.dataFile = opt.Value
		case 'g':
			o.globalsFile = opt.Value
		case 'l':
			o.msgsDir = opt.Value
		case 'r':
			o.root = opt.Value
		}
	}
	var templates = args[optind:]
	if len(templates) == 0 {
		return nil, nil, errors.New(usage)
	}
	return o, templates, nil
}

func run(args []string, out io.Writer) error {
	o, templates, err := parseArgs(args)
	if err != nil {
		return err
	}

	var vopts = vento.Options{}
	vopts.Compiler.AutoEscape = o.escape
	if o.globalsFile != "" {
		if vopts.Globals, err = readGlobals(o.globalsFile); err != nil {
			return err
		}
	}
	if o.msgsDir != "" {
		if vopts.Catalog, err = i18n.Dir(o.msgsDir); err != nil {
			return err
		}
	}
	var it *data.Record
	if o.dataFile != "" {
		if it, err = readData(o.dataFile); err != nil {
			return err
		}
	}

	var engine = vento.New(loader.NewDir(o.root), vopts)
	var ctx = context.Background()
	for _, name := range templates {
		var path = filepath.ToSlash(name)
		if o.js {
			var jsopts = jsgen.Options{FuncName: funcName(path)}
			if o.es5 {
				jsopts.Dialect = jsgen.ES5
			}
			if err := engine.WriteJS(ctx, out, path, jsopts); err != nil {
				return err
			}
			continue
		}
		if _, err := engine.Render(ctx, out, path, it); err != nil {
			return err
		}
	}
	return nil
}

func readData(filename string) (*data.Record, error) {
	var f, err = os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	value, err := data.ParseJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return data.RecordFrom(value)
}

func readGlobals(filename string) (*data.Record, error) {
	var f, err = os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	globals, err := vento.ParseGlobals(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return globals, nil
}

// funcName derives a JavaScript function name from a template path, such as
// layouts_base for layouts/base.vto.
func funcName(path string) string {
	var name = strings.TrimSuffix(path, filepath.Ext(path))
	var b strings.Builder
	for i, r := range name {
		switch {
		case r == '_' || r == '$' || 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z':
			b.WriteRune(r)
		case '0' <= r && r <= '9':
			if i == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return jsgen.DefaultFuncName
	}
	return b.String()
}
