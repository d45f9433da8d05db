package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"os"

	"github.com/spf13/cobra"

	ierrors "github.com/vango-dev/interactivity/internal/errors"
	"github.com/vango-dev/interactivity/internal/source"
	"github.com/vango-dev/interactivity/pkg/directive"
	"github.com/vango-dev/interactivity/pkg/dom"
	"github.com/vango-dev/interactivity/pkg/interactivity"
)

type hydrateOptions struct {
	hids   bool
	frames int
	output string
	strict bool
}

func hydrateCmd(flags *globalFlags) *cobra.Command {
	opts := hydrateOptions{}

	cmd := &cobra.Command{
		Use:   "hydrate <page>",
		Short: "Hydrate a page and print the resulting HTML",
		Long: `Hydrate a page against the bundled store namespaces, settle
pending effects and animation frames, and print the document.

The page is a local file or an s3://bucket/key location. Directive
failures are reported on stderr; they do not stop hydration.

Examples:
  interactivity hydrate pages/gallery.html
  interactivity hydrate --hids=false --frames=0 pages/gallery.html
  interactivity hydrate s3://my-site/pages/index.html -o out.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHydrate(cmd, flags, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.hids, "hids", true, "Write data-hid attributes")
	cmd.Flags().IntVar(&opts.frames, "frames", 8, "Animation frames to run after hydration")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write HTML to a file instead of stdout")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Exit non-zero when any directive fails")

	return cmd
}

func runHydrate(cmd *cobra.Command, flags *globalFlags, location string, opts hydrateOptions) error {
	cfg, err := flags.loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	stderr := cmd.ErrOrStderr()

	markup, err := source.ReadPage(ctx, location, source.WithRegion(cfg.Source.Region))
	if err != nil {
		return err
	}
	doc, err := dom.Parse(bytes.NewReader(markup))
	if err != nil {
		return err
	}
	if opts.hids {
		doc.AssignHIDs()
	}

	rt := interactivity.New(
		interactivity.WithConfig(cfg.Runtime()),
		interactivity.WithLogger(cfg.Logger(stderr)),
	)
	if err := registerFeatures(rt.Store()); err != nil {
		return err
	}
	hydrateErr := rt.Hydrate(ctx, doc)
	if opts.frames > 0 {
		rt.Settle(opts.frames)
	}

	var out io.Writer = cmd.OutOrStdout()
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if err := doc.Render(out, dom.RenderOptions{HIDs: opts.hids}); err != nil {
		return err
	}
	if opts.output != "" {
		success(stderr, "Wrote %s", opts.output)
	}

	if !source.IsS3(location) {
		locateErrors(hydrateErr, location, markup)
	}
	if n := reportErrors(stderr, hydrateErr); n > 0 && opts.strict {
		return fmt.Errorf("hydration reported %d errors", n)
	}
	return nil
}

// locateErrors points directive value errors at their position in the page
// source.
func locateErrors(err error, file string, markup []byte) {
	if err == nil {
		return
	}
	for _, e := range flatten(err, nil) {
		var (
			ve       *ierrors.VangoError
			valueErr *directive.ValueError
		)
		if !errors.As(e, &ve) || !errors.As(e, &valueErr) || ve.Location != nil {
			continue
		}
		start, ok := attrValueOffset(markup, valueErr)
		if !ok {
			continue
		}
		var syntaxErr *json.SyntaxError
		if errors.As(valueErr, &syntaxErr) && syntaxErr.Offset > 0 {
			start += syntaxErr.Offset - 1
		}
		ve.WithOffset(file, markup, start)
	}
}

// attrValueOffset finds the attribute in markup and returns the offset of
// the first byte of its value.
func attrValueOffset(markup []byte, valueErr *directive.ValueError) (int64, bool) {
	needle := []byte(valueErr.Attr + "=")
	from := 0
	for {
		i := bytes.Index(markup[from:], needle)
		if i < 0 {
			return 0, false
		}
		pos := from + i + len(needle)
		from = pos
		if pos >= len(markup) {
			return 0, false
		}
		quote := markup[pos]
		if quote != '"' && quote != '\'' {
			continue
		}
		end := bytes.IndexByte(markup[pos+1:], quote)
		if end < 0 {
			return 0, false
		}
		if html.UnescapeString(string(markup[pos+1:pos+1+end])) == valueErr.Value {
			return int64(pos + 1), true
		}
	}
}
