package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ctxslice/internal/config"
	"ctxslice/internal/parse"
	"ctxslice/internal/project"
	"ctxslice/internal/providers/scip"
	"ctxslice/internal/storage"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose workspace and index issues",
	Long: `Check that the workspace is set up for slicing: configuration is
valid, the SCIP index exists and loads, the symbol cache is populated and the
syntactic parser is built in.`,
	Run: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type check struct {
	name string
	ok   bool
	note string
}

func runDoctor(cmd *cobra.Command, args []string) {
	ws := mustGetWorkspace()

	var checks []check
	checks = append(checks, check{
		name: "workspace",
		ok:   true,
		note: fmt.Sprintf("%s (%s) at %s", ws.Name, ws.Language, ws.Root),
	})

	cfg, err := config.LoadConfig(ws.Root)
	if err != nil {
		checks = append(checks, check{name: "config", note: err.Error()})
		cfg = config.DefaultConfig()
	} else if err := cfg.Validate(); err != nil {
		checks = append(checks, check{name: "config", note: err.Error()})
	} else {
		checks = append(checks, check{name: "config", ok: true, note: "valid"})
	}

	checks = append(checks, checkScipIndex(ws, cfg))
	checks = append(checks, checkParser())
	checks = append(checks, checkSymbolCache(ws, cfg))

	healthy := true
	for _, c := range checks {
		mark := "ok"
		if !c.ok {
			mark = "FAIL"
			healthy = false
		}
		fmt.Printf("%-14s %-5s %s\n", c.name, mark, c.note)
	}

	if !healthy {
		os.Exit(1)
	}
}

func checkScipIndex(ws *project.Workspace, cfg *config.Config) check {
	path := scipIndexPath(ws, cfg)
	index, err := scip.Load(path, ws.Root)
	if err != nil {
		return check{name: "scip index", note: fmt.Sprintf("%v (run your language's scip indexer)", err)}
	}
	return check{
		name: "scip index",
		ok:   true,
		note: fmt.Sprintf("%d documents in %s", index.DocumentCount(), path),
	}
}

func checkParser() check {
	if !parse.IsAvailable() {
		return check{
			name: "parser",
			note: "not built in, the inferred engine and guard extraction are disabled",
		}
	}
	return check{name: "parser", ok: true, note: "tree-sitter (go, rust)"}
}

func checkSymbolCache(ws *project.Workspace, cfg *config.Config) check {
	logger := newLogger(cfg)
	store, err := storage.Open(symbolCacheDir(ws, cfg), logger)
	if err != nil {
		return check{name: "symbol cache", note: err.Error()}
	}
	defer store.Close()

	count, err := store.CountSymbols(context.Background())
	if err != nil {
		return check{name: "symbol cache", note: err.Error()}
	}
	if count == 0 {
		return check{name: "symbol cache", ok: true, note: "empty (run 'ctxslice index' to populate)"}
	}
	return check{name: "symbol cache", ok: true, note: fmt.Sprintf("%d symbols", count)}
}
