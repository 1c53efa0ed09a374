package main

import (
	"ctxslice/internal/version"

	"github.com/spf13/cobra"
)

var (
	// logLevelFlag is the CLI --log-level flag value
	logLevelFlag string
	// logFormatFlag is the CLI --log-format flag value
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "ctxslice",
	Short: "ctxslice - bounded dependency slices for code edits",
	Long: `ctxslice extracts a bounded, token-budgeted dependency slice around a
target symbol. It builds a dependency graph from a SCIP index (or, for code
that does not compile, from syntactic and inferred evidence), prunes branches
proven unreachable, and compresses the closure to fit a token budget.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("ctxslice version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, error (default: from config)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "",
		"Log format: human or json (default: from config)")
}
