/*
Package vento compiles and renders Vento templates.

Templates are text with tags between {{ and }}:

	{{ set title = "Archive" }}
	{{ layout "base.vto" { title } }}
	  {{ for post of posts }}
	    <h2>{{ post.title |> upper }}</h2>
	  {{ /for }}
	{{ /layout }}

The built-in tags are for, if/else, set, export, layout and echo.  Each tag
is compiled by a tag compiler in package tags; custom tags can be added
through compiler.Options.

Usage example

Typically in a web application you have a directory containing views for all
of your pages.  For example:

	app/views/
	app/views/layouts/
	app/views/account/
	...

On startup:

	var engine = vento.New(loader.NewDir("app/views"), vento.Options{})
	if mode == "dev" {
		engine.Watch() // drop cached templates when their files change
	}

To render a page:

	var it = data.RecordOf(
		"user", data.New(user),
		"account", data.New(account),
	)
	engine.Render(ctx, resp, "account/overview.vto", it)

Layout references are resolved against the referring template when they
start with ./ or ../, and against the loader root otherwise.

JavaScript

Any template can be lowered to a JavaScript function with Engine.WriteJS, or
jsgen.Write directly.  The generated code calls the helpers in jsgen.Runtime.

Advanced Usage

The vento package provides a friendly interface to its sub-packages.  Tools
that need the compiled tree should use package compiler directly, and
package render to execute it.
*/
package vento
