// Command fervo-demo serves the example gallery live or exports it to
// static HTML.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fervo-demo",
		Short: "Demo server for the fervo render runtime",
		Long: `fervo-demo serves the example component gallery.

Components run on the server: each browser connection gets its own
render loop, receives the mounted tree once, and then a stream of
patches as state changes. Events flow back over the same socket.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		exportCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("fervo-demo %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
