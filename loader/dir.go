package loader

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tevino/abool/v2"
)

// Dir is a Loader reading templates from the files under Root.
type Dir struct {
	Root     string
	watching abool.AtomicBool
}

// NewDir returns a loader for the templates under root.
func NewDir(root string) *Dir {
	return &Dir{Root: root}
}

func (d *Dir) Load(ctx context.Context, p string) (Source, error) {
	if err := ctx.Err(); err != nil {
		return Source{}, err
	}
	var name = Clean(p)
	content, err := os.ReadFile(filepath.Join(d.Root, filepath.FromSlash(name)))
	switch {
	case os.IsNotExist(err):
		return Source{}, notFound(name)
	case err != nil:
		return Source{}, err
	}
	return Source{name, string(content)}, nil
}

// Watch reports changes to the files under Root.  Only one watch may be
// active at a time.
func (d *Dir) Watch(onChange func(path string, err error)) (stop func() error, err error) {
	if !d.watching.SetToIf(false, true) {
		return nil, fmt.Errorf("%s: already watching", d.Root)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		d.watching.UnSet()
		return nil, err
	}
	err = filepath.WalkDir(d.Root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		d.watching.UnSet()
		return nil, err
	}

	var done = make(chan struct{})
	go d.watch(watcher, done, onChange)
	return func() error {
		var err = watcher.Close()
		<-done
		d.watching.UnSet()
		return err
	}, nil
}

func (d *Dir) watch(watcher *fsnotify.Watcher, done chan<- struct{}, onChange func(string, error)) {
	defer close(done)
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Chmod == ev.Op {
				continue
			}
			// If it's a rename, then fsnotify has removed the watch.
			// Add it back, after a delay.
			if ev.Op&(fsnotify.Rename|fsnotify.Remove) != 0 {
				time.Sleep(10 * time.Millisecond)
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := watcher.Add(ev.Name); err != nil {
						onChange("", err)
					}
				}
			}
			if ev.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := watcher.Add(ev.Name); err != nil {
						onChange("", err)
					}
					continue
				}
			}
			rel, err := filepath.Rel(d.Root, ev.Name)
			if err != nil {
				onChange("", err)
				continue
			}
			onChange(filepath.ToSlash(rel), nil)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			onChange("", err)
		}
	}
}

var (
	_ Loader  = (*Dir)(nil)
	_ Watcher = (*Dir)(nil)
)
