package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"github.com/vango-dev/interactivity/internal/source"
	"github.com/vango-dev/interactivity/pkg/directive"
	"github.com/vango-dev/interactivity/pkg/dom"
)

// nodeReport describes the directives found on one element.
type nodeReport struct {
	HID        string            `json:"hid"`
	Element    string            `json:"element"`
	Directives []directiveReport `json:"directives"`
	Skipped    []string          `json:"skipped,omitempty"`
}

type directiveReport struct {
	Kind  string `json:"kind"`
	Sub   string `json:"sub,omitempty"`
	Value string `json:"value"`
}

func inspectCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect <page>",
		Short: "List the directives on each element of a page",
		Long: `List every element carrying directives, in document order, with
the hydration ID it would get. Attributes that use the prefix but
name no known directive are listed as skipped.

Examples:
  interactivity inspect pages/gallery.html
  interactivity inspect --json --prefix=my pages/gallery.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			markup, err := source.ReadPage(cmd.Context(), args[0], source.WithRegion(cfg.Source.Region))
			if err != nil {
				return err
			}
			reports, err := inspect(markup, cfg.Prefix)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(reports)
			}
			for _, r := range reports {
				fmt.Fprintf(out, "%-5s %s\n", r.HID, r.Element)
				for _, d := range r.Directives {
					name := d.Kind
					if d.Sub != "" {
						name += "." + d.Sub
					}
					fmt.Fprintf(out, "      %s=%q\n", name, d.Value)
				}
				for _, s := range r.Skipped {
					fmt.Fprintf(out, "      skipped: %s\n", s)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

// inspect numbers the elements of markup and reports those with directives.
func inspect(markup []byte, prefix string) ([]nodeReport, error) {
	doc, err := dom.Parse(bytes.NewReader(markup))
	if err != nil {
		return nil, err
	}
	doc.AssignHIDs()

	reports := []nodeReport{}
	dom.Walk(doc.Root(), func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		set, skipped := directive.Parse(prefix, n)
		if set.Len() == 0 && len(skipped) == 0 {
			return true
		}
		r := nodeReport{HID: doc.HID(n), Element: describe(n), Directives: []directiveReport{}}
		for _, k := range directive.Kinds() {
			for _, b := range set.Of(k) {
				r.Directives = append(r.Directives, directiveReport{Kind: k.String(), Sub: b.Sub, Value: b.Value})
			}
		}
		for _, err := range skipped {
			r.Skipped = append(r.Skipped, err.Error())
		}
		reports = append(reports, r)
		return true
	})
	return reports, nil
}

// describe renders an element as tag#id.class.
func describe(n *html.Node) string {
	var b strings.Builder
	b.WriteString(n.Data)
	if id, ok := dom.Attr(n, "id"); ok && id != "" {
		b.WriteString("#" + id)
	}
	for _, c := range dom.Classes(n) {
		b.WriteString("." + c)
	}
	return b.String()
}
