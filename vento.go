package vento

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/robfig/vento/ast"
	"github.com/robfig/vento/compiler"
	"github.com/robfig/vento/data"
	"github.com/robfig/vento/filters"
	"github.com/robfig/vento/i18n"
	"github.com/robfig/vento/jsgen"
	"github.com/robfig/vento/loader"
	"github.com/robfig/vento/render"
)

// Logger is used to print notifications and compile errors when using the
// Watch feature.
var Logger = log.New(os.Stderr, "[vento] ", 0)

// MaxLayoutDepth bounds the nesting of layouts, so that a layout that
// includes itself fails instead of recursing forever.
const MaxLayoutDepth = 64

// Options configures an Engine.  The zero value is usable.
type Options struct {
	Compiler compiler.Options
	Filters  map[string]filters.Filter // added to the default filters
	Catalog  *i18n.Catalog             // if set, provides the t filter
	Globals  *data.Record              // data available to every render
}

// Template is a compiled template.
type Template struct {
	Path string
	Tree *ast.TemplateNode
	hash [32]byte
}

// Engine loads, compiles and renders templates.  Compiled templates are
// cached by path and digest of their source, so a template is compiled
// again only when its source changes.  It is safe for concurrent use.
type Engine struct {
	loader   loader.Loader
	compiler *compiler.Compiler
	filters  map[string]filters.Filter
	globals  *data.Record

	mu    sync.RWMutex
	cache map[string]*Template
}

// New returns an engine for the templates of l.
func New(l loader.Loader, opts Options) *Engine {
	var f = filters.Default()
	for name, filter := range opts.Filters {
		f[name] = filter
	}
	if opts.Catalog != nil {
		f["t"] = opts.Catalog.Filter()
	}
	return &Engine{
		loader:   l,
		compiler: compiler.New(opts.Compiler),
		filters:  f,
		globals:  opts.Globals,
		cache:    make(map[string]*Template),
	}
}

// Template returns the compiled template at path.
func (e *Engine) Template(ctx context.Context, path string) (*Template, error) {
	var src, err = e.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return e.compile(src.Path, src.Content)
}

// compile returns the cached template for name if its source is unchanged,
// compiling it otherwise.
func (e *Engine) compile(name, source string) (*Template, error) {
	var hash = blake3.Sum256([]byte(source))
	e.mu.RLock()
	var tmpl, ok = e.cache[name]
	e.mu.RUnlock()
	if ok && tmpl.hash == hash {
		return tmpl, nil
	}

	tree, err := e.compiler.Compile(name, source)
	if err != nil {
		return nil, err
	}
	tmpl = &Template{name, tree, hash}
	e.mu.Lock()
	e.cache[name] = tmpl
	e.mu.Unlock()
	return tmpl, nil
}

// Render renders the template at path with the data it, writing the content
// to w if it is not nil.  it is not modified.
func (e *Engine) Render(ctx context.Context, w io.Writer, path string, it *data.Record) (*render.Result, error) {
	var tmpl, err = e.Template(ctx, path)
	if err != nil {
		return nil, err
	}
	return e.execute(ctx, w, tmpl, e.data(it))
}

// RenderString compiles and renders source as the template name.  Layouts it
// references are loaded as usual.
func (e *Engine) RenderString(ctx context.Context, name, source string, it *data.Record) (*render.Result, error) {
	var tmpl, err = e.compile(loader.Clean(name), source)
	if err != nil {
		return nil, err
	}
	return e.execute(ctx, nil, tmpl, e.data(it))
}

// data returns the record for a render: the globals overridden by a copy of
// it.
func (e *Engine) data(it *data.Record) *data.Record {
	if e.globals == nil {
		return it.Clone()
	}
	return e.globals.Clone().Merge(it)
}

func (e *Engine) execute(ctx context.Context, w io.Writer, tmpl *Template, it *data.Record) (*render.Result, error) {
	return render.Execute(ctx, w, tmpl.Tree, it, render.Options{
		Filters: e.filters,
		Runner:  e,
	})
}

type depthKey struct{}

// Run renders the template ref on behalf of a layout in the template from.
// It implements render.Runner.
func (e *Engine) Run(ctx context.Context, ref, from string, it *data.Record) (*render.Result, error) {
	var depth, _ = ctx.Value(depthKey{}).(int)
	if depth >= MaxLayoutDepth {
		return nil, fmt.Errorf("%s: layouts nested more than %d deep", from, MaxLayoutDepth)
	}
	var tmpl, err = e.Template(ctx, Resolve(ref, from))
	if err != nil {
		return nil, err
	}
	return e.execute(context.WithValue(ctx, depthKey{}, depth+1), nil, tmpl, it)
}

// Resolve returns the path of the template ref, referenced from the template
// at from.  References starting with ./ or ../ are relative to from.
func Resolve(ref, from string) string {
	if strings.HasPrefix(ref, "./") || strings.HasPrefix(ref, "../") {
		return loader.Clean(path.Join(path.Dir(from), ref))
	}
	return loader.Clean(ref)
}

// WriteJS writes the JavaScript function for the template at path.
func (e *Engine) WriteJS(ctx context.Context, w io.Writer, path string, opts jsgen.Options) error {
	var tmpl, err = e.Template(ctx, path)
	if err != nil {
		return err
	}
	return jsgen.Write(w, tmpl.Tree, opts)
}

// Invalidate drops the named templates from the cache, or every template if
// none are named.
func (e *Engine) Invalidate(paths ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(paths) == 0 {
		e.cache = make(map[string]*Template)
		return
	}
	for _, p := range paths {
		delete(e.cache, loader.Clean(p))
	}
}

// Cached reports whether a compiled template for path is in the cache.
func (e *Engine) Cached(path string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var _, ok = e.cache[loader.Clean(path)]
	return ok
}

// ErrNotWatchable is returned by Watch if the loader can not report changes.
var ErrNotWatchable = errors.New("loader does not support watching")

// Watch drops templates from the cache as the loader reports them changed,
// recompiling them to report errors early.  It is a development aid.
func (e *Engine) Watch() (stop func() error, err error) {
	var watcher, ok = e.loader.(loader.Watcher)
	if !ok {
		return nil, ErrNotWatchable
	}
	// templates that failed to recompile, so that a fix is reported too
	var broken = make(map[string]bool)
	return watcher.Watch(func(path string, err error) {
		if err != nil {
			Logger.Println(err)
			return
		}
		if !e.Cached(path) && !broken[path] {
			return
		}
		e.Invalidate(path)
		if _, err := e.Template(context.Background(), path); err != nil {
			broken[path] = true
			Logger.Println(err)
			return
		}
		delete(broken, path)
		Logger.Printf("update successful (%s)", path)
	})
}
