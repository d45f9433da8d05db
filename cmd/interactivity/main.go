package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/interactivity/internal/config"
	ierrors "github.com/vango-dev/interactivity/internal/errors"
	"github.com/vango-dev/interactivity/pkg/features/lightbox"
	"github.com/vango-dev/interactivity/pkg/store"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	prefix     string
	debug      bool
	noColor    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		ierrors.PrintError(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "interactivity",
		Short: "Hydrate and inspect pages that use data-wp-* directives",
		Long: `interactivity runs the directive engine outside a browser.

It hydrates server-rendered pages against the registered store
namespaces, reports directive failures, and serves pages in a
development server that drives a live runtime per browser tab.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.noColor || !isTerminal(cmd.ErrOrStderr()) {
				ierrors.DisableColors()
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Path to "+config.ConfigFileName+" (default: nearest in the working tree)")
	pf.StringVar(&flags.prefix, "prefix", "", "Directive attribute prefix (default from config, then \"wp\")")
	pf.BoolVar(&flags.debug, "debug", false, "Log at debug level")
	pf.BoolVar(&flags.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		initCmd(flags),
		hydrateCmd(flags),
		inspectCmd(flags),
		devCmd(flags),
		versionCmd(),
	)
	return rootCmd
}

// loadConfig reads the configuration named by the flags. Without --config a
// missing file falls back to defaults.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.configPath != "" {
		cfg, err = config.LoadFile(f.configPath)
	} else {
		cfg, err = config.LoadFromWorkingDir()
		if errors.Is(err, ierrors.New(ierrors.CodeConfigNotFound)) {
			cfg, err = config.New(), nil
		}
	}
	if err != nil {
		return nil, err
	}

	if f.prefix != "" {
		cfg.Prefix = f.prefix
	}
	if f.debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// registerFeatures installs the bundled store namespaces.
func registerFeatures(st *store.Store) error {
	return lightbox.Register(st)
}

// reportErrors prints each error joined into err and returns how many there
// were.
func reportErrors(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	errs := flatten(err, nil)
	for _, e := range errs {
		var ve *ierrors.VangoError
		if errors.As(e, &ve) && ve.Location != nil {
			fmt.Fprint(w, ve.Format())
			continue
		}
		if ve != nil {
			fmt.Fprintln(w, ve.FormatCompact())
			if ve.Detail != "" {
				info(w, "%s", ve.Detail)
			}
			if ve.Wrapped != nil {
				info(w, "cause: %v", ve.Wrapped)
			}
			continue
		}
		fmt.Fprintf(w, "error: %v\n", e)
	}
	return len(errs)
}

// flatten expands errors.Join trees into their leaves.
func flatten(err error, into []error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			into = flatten(e, into)
		}
		return into
	}
	return append(into, err)
}

// isTerminal reports whether w is a character device.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice != 0
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	mark := "✓"
	if ierrors.ColorsEnabled() {
		mark = "\033[32m✓\033[0m"
	}
	fmt.Fprintf(w, "%s %s\n", mark, fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}
