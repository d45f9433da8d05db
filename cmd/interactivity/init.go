package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/interactivity/internal/config"
	ierrors "github.com/vango-dev/interactivity/internal/errors"
	"github.com/vango-dev/interactivity/internal/templates"
	"github.com/vango-dev/interactivity/pkg/directive"
)

func initCmd(flags *globalFlags) *cobra.Command {
	var (
		templateName string
		port         int
		force        bool
	)

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Scaffold interactivity.json and example pages",
		Long: `Write an interactivity.json and example pages into dir (default: the
current directory).

Templates:
  lightbox  An image gallery using the bundled lightbox namespace (default)
  minimal   Configuration and one empty interactive region

Examples:
  interactivity init
  interactivity init site --template=minimal --prefix=my`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			abs, err := filepath.Abs(dir)
			if err != nil {
				return err
			}
			if config.Exists(abs) && !force {
				return ierrors.New(ierrors.CodeProjectExists).
					WithDetailf("%s already exists in %s", config.ConfigFileName, abs)
			}

			tmpl, err := templates.Get(templateName)
			if err != nil {
				return err
			}
			prefix := flags.prefix
			if prefix == "" {
				prefix = directive.DefaultPrefix
			}
			if err := os.MkdirAll(abs, 0755); err != nil {
				return err
			}
			if err := tmpl.Create(abs, templates.Config{
				ProjectName: filepath.Base(abs),
				Prefix:      prefix,
				Port:        port,
			}); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, p := range tmpl.Paths() {
				success(out, "Created %s", filepath.Join(dir, filepath.FromSlash(p)))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&templateName, "template", "t", "lightbox", "Project template (lightbox, minimal)")
	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultPort, "Dev server port")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing files")

	return cmd
}
