package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	var root = t.TempDir()
	for name, content := range files {
		var path = filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestRun(t *testing.T) {
	var root = writeFiles(t, map[string]string{
		"base.vto":    "<main>{{ content }}</main>",
		"page.vto":    `{{ layout "base.vto" }}{{ site }}: {{ for x of items }}{{ x }}{{ /for }}{{ /layout }}`,
		"escape.vto":  "{{ html }}",
		"data.json":   `{"items": [1, 2], "html": "<b>"}`,
		"globals.txt": "site = \"S\"\n",
	})
	var tests = []struct {
		args   []string
		output string
	}{
		{[]string{"-r", root, "-d", filepath.Join(root, "data.json"), "-g", filepath.Join(root, "globals.txt"), "page.vto"}, "<main>S: 12</main>"},
		{[]string{"-r", root, "-d", filepath.Join(root, "data.json"), "escape.vto"}, "<b>"},
		{[]string{"-e", "-r", root, "-d", filepath.Join(root, "data.json"), "escape.vto"}, "&lt;b&gt;"},
		{[]string{"-r", root, "base.vto", "base.vto"}, "<main></main><main></main>"},
	}
	for _, test := range tests {
		var buf bytes.Buffer
		if err := run(append([]string{"vento"}, test.args...), &buf); err != nil {
			t.Errorf("%v: %v", test.args, err)
			continue
		}
		if buf.String() != test.output {
			t.Errorf("%v: expected %q, got %q", test.args, test.output, buf.String())
		}
	}
}

func TestRunJS(t *testing.T) {
	var root = writeFiles(t, map[string]string{"layouts/base.vto": "{{ content }}"})
	var buf bytes.Buffer
	if err := run([]string{"vento", "-j", "-5", "-r", root, "layouts/base.vto"}, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "function layouts_base(it, __env) {") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestRunErrors(t *testing.T) {
	var root = writeFiles(t, map[string]string{"bad.vto": "{{ if x }}"})
	for _, args := range [][]string{
		{"vento"},
		{"vento", "-x", "a.vto"},
		{"vento", "-r", root, "missing.vto"},
		{"vento", "-r", root, "bad.vto"},
		{"vento", "-d", filepath.Join(root, "missing.json"), "bad.vto"},
	} {
		if err := run(args, new(bytes.Buffer)); err == nil {
			t.Errorf("%v: expected an error", args)
		}
	}
}

func TestFuncName(t *testing.T) {
	var tests = []struct{ path, name string }{
		{"index.vto", "index"},
		{"layouts/base.vto", "layouts_base"},
		{"404.vto", "_404"},
		{"my-page.html.vto", "my_page_html"},
		{".vto", "template"},
	}
	for _, test := range tests {
		if actual := funcName(test.path); actual != test.name {
			t.Errorf("%s: expected %s, got %s", test.path, test.name, actual)
		}
	}
}
