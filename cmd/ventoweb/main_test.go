package main

import (
	"fmt"
	"testing"

	"github.com/segmentio/fasthash/fnv1a"
	"github.com/valyala/fasthttp"

	"github.com/robfig/vento"
	"github.com/robfig/vento/loader"
)

func serve(engine *vento.Engine, uri, etag string) *fasthttp.RequestCtx {
	var req fasthttp.Request
	req.SetRequestURI(uri)
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	var ctx fasthttp.RequestCtx
	ctx.Init(&req, nil, nil)
	handler(engine)(&ctx)
	return &ctx
}

func TestHandler(t *testing.T) {
	var engine = vento.New(loader.Memory{
		"index.vto":      "home",
		"hello.vto":      "Hello {{ name ?? 'world' }}!",
		"docs/index.vto": "docs",
		"bad.vto":        "{{ x() }}",
	}, vento.Options{})

	var tests = []struct {
		uri    string
		status int
		body   string
	}{
		{"/", 200, "home"},
		{"/hello.vto", 200, "Hello world!"},
		{"/hello.vto?name=Rob", 200, "Hello Rob!"},
		{"/docs/", 200, "docs"},
		{"/missing.vto", 404, ""},
		{"/bad.vto", 500, ""},
	}
	for _, test := range tests {
		var ctx = serve(engine, test.uri, "")
		if ctx.Response.StatusCode() != test.status {
			t.Errorf("%s: expected status %d, got %d", test.uri, test.status, ctx.Response.StatusCode())
			continue
		}
		if test.status == 200 && string(ctx.Response.Body()) != test.body {
			t.Errorf("%s: expected %q, got %q", test.uri, test.body, ctx.Response.Body())
		}
	}
}

func TestETag(t *testing.T) {
	var engine = vento.New(loader.Memory{"index.vto": "home"}, vento.Options{})
	var etag = fmt.Sprintf(`"%x"`, fnv1a.HashString64("home"))

	var ctx = serve(engine, "/", "")
	if actual := string(ctx.Response.Header.Peek("ETag")); actual != etag {
		t.Errorf("expected ETag %s, got %s", etag, actual)
	}
	ctx = serve(engine, "/", etag)
	if ctx.Response.StatusCode() != fasthttp.StatusNotModified {
		t.Errorf("expected 304, got %d", ctx.Response.StatusCode())
	}
}
