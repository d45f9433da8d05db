package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/vango-dev/interactivity/pkg/directive"
)

const galleryPage = `<!doctype html><html><body>
<figure data-wp-interactive data-wp-context='{"core":{"lightboxEnabled":true}}'>
	<div id="overlay" data-wp-class-active="core::lightboxEnabled"></div>
	<div id="broken" data-wp-context='not json'><p>skipped</p></div>
</figure>
</body></html>`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// run executes the CLI with a quiet config file.
func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	dir := t.TempDir()
	cfg := writeFile(t, dir, "interactivity.json", `{"log":{"level":"error"}}`)

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", cfg}, args...))
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestHydrate(t *testing.T) {
	page := writeFile(t, t.TempDir(), "gallery.html", galleryPage)

	stdout, stderr, err := run(t, "hydrate", page)
	if err != nil {
		t.Fatalf("hydrate error = %v", err)
	}
	if !strings.Contains(stdout, `class="active"`) {
		t.Errorf("output missing bound class:\n%s", stdout)
	}
	if !strings.Contains(stdout, `data-hid=`) {
		t.Error("output missing hydration IDs")
	}
	if !strings.Contains(stderr, "E002") {
		t.Errorf("stderr missing E002 report:\n%s", stderr)
	}
}

func TestHydrateLocatesInvalidContext(t *testing.T) {
	page := writeFile(t, t.TempDir(), "gallery.html", galleryPage)

	_, stderr, err := run(t, "hydrate", "--no-color", page)
	if err != nil {
		t.Fatalf("hydrate error = %v", err)
	}
	if !strings.Contains(stderr, page+":4:37") {
		t.Errorf("stderr missing page location:\n%s", stderr)
	}
	if !strings.Contains(stderr, "→    4 │ \t<div id=\"broken\" data-wp-context='not json'>") {
		t.Errorf("stderr missing highlighted source line:\n%s", stderr)
	}
	if strings.Contains(stderr, "\033[") {
		t.Errorf("--no-color output has ANSI codes:\n%q", stderr)
	}
}

func TestAttrValueOffset(t *testing.T) {
	markup := []byte(`<a data-wp-context="{&quot;x&quot;:1}"></a><b data-wp-context='{bad'></b>`)
	tests := []struct {
		value string
		want  int64
		ok    bool
	}{
		{`{"x":1}`, 20, true},
		{`{bad`, 63, true},
		{`missing`, 0, false},
	}
	for _, tt := range tests {
		got, ok := attrValueOffset(markup, &directive.ValueError{Attr: "data-wp-context", Value: tt.value})
		if got != tt.want || ok != tt.ok {
			t.Errorf("attrValueOffset(%q) = %d, %v; want %d, %v", tt.value, got, ok, tt.want, tt.ok)
		}
	}
}

func TestHydrateStrictAndWithoutHIDs(t *testing.T) {
	page := writeFile(t, t.TempDir(), "gallery.html", galleryPage)

	stdout, _, err := run(t, "hydrate", "--strict", "--hids=false", page)
	if err == nil || !strings.Contains(err.Error(), "1 errors") {
		t.Errorf("hydrate --strict error = %v, want 1 error", err)
	}
	if strings.Contains(stdout, "data-hid") {
		t.Error("--hids=false still wrote hydration IDs")
	}
}

func TestHydrateOutputFile(t *testing.T) {
	dir := t.TempDir()
	page := writeFile(t, dir, "gallery.html", galleryPage)
	dest := filepath.Join(dir, "out.html")

	stdout, _, err := run(t, "hydrate", "-o", dest, page)
	if err != nil {
		t.Fatal(err)
	}
	if stdout != "" {
		t.Errorf("stdout = %q, want empty", stdout)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `class="active"`) {
		t.Errorf("file missing bound class:\n%s", data)
	}
}

func TestHydrateMissingPage(t *testing.T) {
	_, _, err := run(t, "hydrate", filepath.Join(t.TempDir(), "nope.html"))
	if err == nil || !strings.Contains(err.Error(), "E150") {
		t.Errorf("error = %v, want E150", err)
	}
}

func TestInspectJSON(t *testing.T) {
	page := writeFile(t, t.TempDir(), "p.html", `<html><body>
<div id="a" class="x y" data-wp-interactive data-wp-on-click="demo::go" data-wp-context='{"demo":{}}' data-wp-bogus="1"><p>plain</p></div>
</body></html>`)

	stdout, _, err := run(t, "inspect", "--json", page)
	if err != nil {
		t.Fatal(err)
	}
	var got []nodeReport
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}

	want := []nodeReport{{
		Element: "div#a.x.y",
		Directives: []directiveReport{
			{Kind: "context", Value: `{"demo":{}}`},
			{Kind: "on", Sub: "click", Value: "demo::go"},
		},
	}}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(nodeReport{}, "HID", "Skipped")); diff != "" {
		t.Errorf("inspect mismatch (-want +got):\n%s", diff)
	}
	if len(got) == 1 && (got[0].HID == "" || len(got[0].Skipped) != 1) {
		t.Errorf("report = %+v, want a HID and one skipped attribute", got[0])
	}
}

func TestInspectCustomPrefix(t *testing.T) {
	page := writeFile(t, t.TempDir(), "p.html", `<div data-my-on-click="a::b" data-wp-on-click="a::c"></div>`)

	stdout, _, err := run(t, "--prefix", "my", "inspect", page)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, `on.click="a::b"`) || strings.Contains(stdout, "a::c") {
		t.Errorf("inspect --prefix=my output:\n%s", stdout)
	}
}

func TestInvalidPrefix(t *testing.T) {
	_, _, err := run(t, "--prefix", "a-b", "inspect", "x.html")
	if err == nil || !strings.Contains(err.Error(), "E142") {
		t.Errorf("error = %v, want E142", err)
	}
}

func TestVersionShort(t *testing.T) {
	stdout, _, err := run(t, "version", "--short")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(stdout) != version {
		t.Errorf("version --short = %q, want %q", stdout, version)
	}
}

func TestInitThenHydrate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "site")

	stdout, _, err := run(t, "init", dir, "--prefix", "my")
	if err != nil {
		t.Fatalf("init error = %v", err)
	}
	if !strings.Contains(stdout, "gallery.html") {
		t.Errorf("init output:\n%s", stdout)
	}

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{
		"--config", filepath.Join(dir, "interactivity.json"),
		"hydrate", "--strict", filepath.Join(dir, "pages", "gallery.html"),
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("hydrate scaffolded page error = %v\n%s", err, errOut.String())
	}
	if !strings.Contains(out.String(), "data-my-on-click") {
		t.Errorf("hydrated page lost its directives:\n%s", out.String())
	}

	if _, _, err := run(t, "init", dir); err == nil || !strings.Contains(err.Error(), "E140") {
		t.Errorf("second init error = %v, want E140", err)
	}
	if _, _, err := run(t, "init", dir, "--force", "--template", "nope"); err == nil || !strings.Contains(err.Error(), "E145") {
		t.Errorf("unknown template error = %v, want E145", err)
	}
}
