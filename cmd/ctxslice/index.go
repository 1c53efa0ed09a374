package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ctxslice/internal/parse"
	"ctxslice/internal/storage"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the symbol cache for the workspace",
	Long: `Walk the workspace, parse every supported source file and store its
declarations in the symbol cache. The inferred engine resolves symbol names
against this cache when the SCIP index cannot be trusted.`,
	Run: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) {
	start := time.Now()
	ws := mustGetWorkspace()
	cfg := mustLoadConfig(ws)
	logger := newLogger(cfg)

	if !parse.IsAvailable() {
		fmt.Fprintln(os.Stderr, "Error: this build has no syntactic parser, cannot index")
		os.Exit(1)
	}

	store, err := storage.Open(symbolCacheDir(ws, cfg), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening symbol cache: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	indexer := storage.NewIndexer(store, parse.NewParser(), logger)
	stats, err := indexer.IndexWorkspace(context.Background(), ws.Root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error indexing workspace: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Indexed %d symbols from %d files in %dms",
		stats.Symbols, stats.Files, time.Since(start).Milliseconds())
	if stats.Skipped > 0 {
		fmt.Printf(" (%d files skipped)", stats.Skipped)
	}
	fmt.Println()
}
