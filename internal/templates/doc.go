// Package templates provides project scaffolding for the init command.
//
// # Available Templates
//
//   - lightbox: an image gallery driven by the bundled lightbox namespace
//   - minimal: configuration and one empty interactive region
//
// # Usage
//
//	tmpl, err := templates.Get("lightbox")
//	if err != nil {
//	    return err
//	}
//	return tmpl.Create(dir, templates.Config{ProjectName: "site", Prefix: "wp", Port: 3000})
//
// # Template Variables
//
// Files are text/template sources executed with Config: {{.ProjectName}},
// {{.Prefix}} and {{.Port}}.
package templates
