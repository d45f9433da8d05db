package main

import (
	"context"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/interactivity/internal/dev"
)

func devCmd(flags *globalFlags) *cobra.Command {
	var (
		port        int
		host        string
		pages       string
		watch       bool
		openBrowser bool
	)

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Start the development server",
		Long: `Start the development server.

Every page is hydrated on the server and previewed with hydration
IDs. The browser opens a live session that forwards its events to a
runtime on the server and applies the patches that come back.

Examples:
  interactivity dev
  interactivity dev --port=8080 --pages=site/pages
  interactivity dev --pages=s3://my-site/pages`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Dev.Port = port
			}
			if host != "" {
				cfg.Dev.Host = host
			}
			if pages != "" {
				cfg.Dev.Pages = pages
			}

			server, err := dev.NewServer(dev.Options{
				Config: cfg,
				Logger: cfg.Logger(cmd.ErrOrStderr()),
				Setup:  registerFeatures,
				Watch:  watch,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			success(out, "Serving %s", cfg.PagesPath())
			info(out, "%s", cfg.DevURL())
			if openBrowser {
				go openURL(cfg.DevURL())
			}
			return server.Start(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (default from config)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from config)")
	cmd.Flags().StringVar(&pages, "pages", "", "Pages directory or s3:// location (default from config)")
	cmd.Flags().BoolVar(&watch, "watch", true, "Reload live sessions when a page file changes")
	cmd.Flags().BoolVarP(&openBrowser, "open", "o", false, "Open browser on start")

	return cmd
}

// openURL opens a URL in the default browser.
func openURL(url string) {
	var cmd *exec.Cmd

	switch {
	case commandExists("xdg-open"):
		cmd = exec.Command("xdg-open", url)
	case commandExists("open"):
		cmd = exec.Command("open", url)
	case commandExists("start"):
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}

	cmd.Start()
}

// commandExists checks if a command exists in PATH.
func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
