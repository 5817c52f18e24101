/*
Command ventoweb is a simple development server that serves the templates
under a directory.

Invoke it like so:

	ventoweb [-p port] [-r root] [-w]

A request for /path renders the template root/path, and / renders
index.vto.  Parameters may be provided to the template in the URL query
string.  With -w, templates are recompiled as their files change.
*/
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"git.sr.ht/~sircmpwn/getopt"
	"github.com/fatih/color"
	"github.com/segmentio/fasthash/fnv1a"
	"github.com/valyala/fasthttp"

	"github.com/robfig/vento"
	"github.com/robfig/vento/data"
	"github.com/robfig/vento/loader"
)

const defaultPort = 9812

func main() {
	opts, optind, err := getopt.Getopts(os.Args, "p:r:w")
	if err != nil || optind != len(os.Args) {
		fatal(errors.New("usage: ventoweb [-p port] [-r root] [-w]"))
	}
	var (
		port  = defaultPort
		root  = "."
		watch bool
	)
	for _, opt := range opts {
		switch opt.Option {
		case 'p':
			if port, err = strconv.Atoi(opt.Value); err != nil {
				fatal(fmt.Errorf("invalid port %q", opt.Value))
			}
		case 'r':
			root = opt.Value
		case 'w':
			watch = true
		}
	}

	var engine = vento.New(loader.NewDir(root), vento.Options{})
	if watch {
		stop, err := engine.Watch()
		if err != nil {
			fatal(err)
		}
		defer stop()
	}

	fmt.Print("Listening on :", port, "...")
	log.Fatal(fasthttp.ListenAndServe(fmt.Sprintf(":%d", port), handler(engine)))
}

func fatal(err error) {
	color.New(color.FgRed).Fprintln(os.Stderr, err)
	os.Exit(1)
}

// handler renders the template named by the request path, with the query
// parameters as data.
func handler(engine *vento.Engine) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var path = strings.TrimPrefix(string(ctx.Path()), "/")
		if path == "" || strings.HasSuffix(path, "/") {
			path += "index.vto"
		}

		var it = data.NewRecord()
		ctx.QueryArgs().VisitAll(func(key, value []byte) {
			it.Set(string(key), string(value))
		})

		var result, err = engine.Render(ctx, nil, path, it)
		switch {
		case errors.Is(err, loader.ErrNotFound):
			ctx.Error(err.Error(), fasthttp.StatusNotFound)
			return
		case err != nil:
			ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
			return
		}

		var etag = fmt.Sprintf(`"%x"`, fnv1a.HashString64(result.Content))
		ctx.Response.Header.Set("ETag", etag)
		if string(ctx.Request.Header.Peek("If-None-Match")) == etag {
			ctx.SetStatusCode(fasthttp.StatusNotModified)
			return
		}
		ctx.SetContentType("text/html; charset=utf-8")
		ctx.SetBodyString(result.Content)
	}
}
