package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	catalogerrors "github.com/vango-dev/catalog/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		catalogerrors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts globalOptions

	rootCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Server-rendered product catalog",
		Long: `catalog serves a product catalog backed by a FakeStore-compatible API.

The list page is served from a cached snapshot when no search or filter is
active and computed fresh otherwise. Detail pages are cached per product.
With live sessions enabled, search and filter controls update the results
over a WebSocket without full page loads.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configDir, "config", "c", ".", "Directory containing catalog.json or catalog.yaml")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(
		serveCmd(&opts),
		warmCmd(&opts),
		publishCmd(&opts),
		versionCmd(),
	)
	return rootCmd
}

type globalOptions struct {
	configDir string
	logLevel  string
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}
