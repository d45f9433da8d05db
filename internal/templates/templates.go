package templates

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"text/template"

	"github.com/vango-dev/interactivity/internal/errors"
)

// Config contains template configuration.
type Config struct {
	// ProjectName is shown in page titles.
	ProjectName string

	// Prefix is the directive attribute prefix written into pages and
	// interactivity.json.
	Prefix string

	// Port is the dev server port.
	Port int
}

// Template represents a project template.
type Template struct {
	// Name is the template name.
	Name string

	// Description describes the template.
	Description string

	// Files is a map of slash-separated relative paths to file contents.
	Files map[string]string
}

// Available templates.
var templates = map[string]*Template{
	"minimal":  minimalTemplate(),
	"lightbox": lightboxTemplate(),
}

// Get returns a template by name.
func Get(name string) (*Template, error) {
	tmpl, ok := templates[name]
	if !ok {
		return nil, errors.New(errors.CodeTemplateNotFound).
			WithDetail("Template '" + name + "' not found").
			WithSuggestion("Available templates: lightbox, minimal")
	}
	return tmpl, nil
}

// List returns all available template names in lexical order.
func List() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Paths returns the template's file paths in lexical order.
func (t *Template) Paths() []string {
	paths := make([]string, 0, len(t.Files))
	for p := range t.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Create writes the template's files under dir.
func (t *Template) Create(dir string, cfg Config) error {
	for _, relPath := range t.Paths() {
		tmpl, err := template.New(relPath).Parse(t.Files[relPath])
		if err != nil {
			return errors.Newf(errors.CategoryCLI, "invalid template %s: %v", relPath, err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, cfg); err != nil {
			return errors.Newf(errors.CategoryCLI, "template execute error %s: %v", relPath, err)
		}

		fullPath := filepath.Join(dir, filepath.FromSlash(relPath))
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(fullPath, buf.Bytes(), 0644); err != nil {
			return err
		}
	}
	return nil
}

const configFile = `{
  "prefix": "{{.Prefix}}",
  "log": {
    "level": "info",
    "format": "text"
  },
  "dev": {
    "port": {{.Port}},
    "pages": "pages"
  },
  "metrics": {
    "enabled": true
  }
}
`

func minimalTemplate() *Template {
	return &Template{
		Name:        "minimal",
		Description: "Configuration and one empty interactive region",
		Files: map[string]string{
			"interactivity.json": configFile,
			"pages/index.html": `<!doctype html>
<html>
<head><title>{{.ProjectName}}</title></head>
<body>
<main data-{{.Prefix}}-interactive data-{{.Prefix}}-context='{"app":{}}'>
  <h1>{{.ProjectName}}</h1>
</main>
</body>
</html>
`,
		},
	}
}

func lightboxTemplate() *Template {
	return &Template{
		Name:        "lightbox",
		Description: "An image gallery using the bundled lightbox namespace",
		Files: map[string]string{
			"interactivity.json": configFile,
			"pages/gallery.html": `<!doctype html>
<html>
<head>
<title>{{.ProjectName}}</title>
<style>
  .lightbox { display: none; }
  .lightbox.active { display: flex; position: fixed; inset: 0; background: rgba(0,0,0,.85); }
</style>
</head>
<body>
<figure data-{{.Prefix}}-interactive
        data-{{.Prefix}}-context='{"core":{"initialized":false,"lightboxEnabled":false,"lastFocusedElement":null}}'>
  <img src="photo.jpg" alt="A photo">
  <button data-{{.Prefix}}-on-click="core::showLightbox">Enlarge</button>
  <div class="lightbox"
       data-{{.Prefix}}-class-initialized="core::initialized"
       data-{{.Prefix}}-class-active="core::lightboxEnabled"
       data-{{.Prefix}}-on-keydown="core::handleKeydown"
       data-{{.Prefix}}-effect="core::initLightbox">
    <button class="close-button" data-{{.Prefix}}-on-click="core::hideLightbox">Close</button>
    <img src="photo.jpg" alt="A photo, enlarged">
  </div>
</figure>
</body>
</html>
`,
		},
	}
}
