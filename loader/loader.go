// Package loader provides the template sources used by the engine: an
// in-memory map, a directory and a SQL table.
package loader

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrNotFound is returned, wrapped, by loaders for a missing template.
var ErrNotFound = errors.New("template not found")

// Source is the text of a template.
type Source struct {
	Path    string
	Content string
}

// Loader loads template sources by path.  Paths are slash separated and
// relative to the loader's root.
type Loader interface {
	Load(ctx context.Context, path string) (Source, error)
}

// Watcher is implemented by loaders that can report changed templates.
// onChange is called with the path of each changed template, or with a
// non-nil error when watching failed.  stop ends the watch.
type Watcher interface {
	Watch(onChange func(path string, err error)) (stop func() error, err error)
}

// Clean returns the canonical form of a template path.  It never escapes the
// root: "../a" and "/a" are both "a".
func Clean(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

func notFound(p string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, p)
}

// Memory is a Loader serving templates from a map of path to source.
type Memory map[string]string

func (m Memory) Load(ctx context.Context, p string) (Source, error) {
	if err := ctx.Err(); err != nil {
		return Source{}, err
	}
	var name = Clean(p)
	var content, ok = m[name]
	if !ok {
		return Source{}, notFound(name)
	}
	return Source{name, content}, nil
}
