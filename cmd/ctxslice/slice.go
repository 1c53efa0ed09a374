package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ctxslice/internal/output"
	"ctxslice/internal/providers"
	"ctxslice/internal/slicer"
)

var (
	sliceBudget       int
	sliceIncludeTests bool
	sliceIntent       string
	sliceFormat       string
	sliceOutput       string
)

var sliceCmd = &cobra.Command{
	Use:   "slice <file:line[:col]>",
	Short: "Extract a dependency slice around a target",
	Long: `Extract a bounded dependency slice around the symbol at the given
position. Line and column are 1-based, as editors display them.

Examples:
  ctxslice slice src/auth/login.go:42
  ctxslice slice src/auth/login.go:42:17 --budget 8000
  ctxslice slice src/handler.go:10 --intent "add retry logic" --output slice.json.zst`,
	Args: cobra.ExactArgs(1),
	Run:  runSlice,
}

func init() {
	sliceCmd.Flags().IntVar(&sliceBudget, "budget", 0, "Token budget (default: from config)")
	sliceCmd.Flags().BoolVar(&sliceIncludeTests, "include-tests", false, "Include test dependencies in the slice")
	sliceCmd.Flags().StringVar(&sliceIntent, "intent", "", "Stated edit intent, guides inference for non-compiling code")
	sliceCmd.Flags().StringVar(&sliceFormat, "format", "human", "Output format (json, human)")
	sliceCmd.Flags().StringVar(&sliceOutput, "output", "", "Write the full result to a file (.zst compresses)")
	rootCmd.AddCommand(sliceCmd)
}

func runSlice(cmd *cobra.Command, args []string) {
	start := time.Now()
	ws := mustGetWorkspace()
	cfg := mustLoadConfig(ws)
	logger := newLogger(cfg)

	target, err := parseTarget(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	budget := sliceBudget
	if budget == 0 {
		budget = cfg.Budget.Tokens
	}
	includeTests := sliceIncludeTests || cfg.Budget.IncludeTests

	s, err := buildSlicer(ws, cfg, logger, sliceIntent)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	result, err := s.Slice(context.Background(), slicer.Request{
		Target:       target,
		Intent:       sliceIntent,
		BudgetTokens: budget,
		IncludeTests: includeTests,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error extracting slice: %v\n", err)
		os.Exit(1)
	}

	if sliceOutput != "" {
		if err := output.ExportJSON(sliceOutput, result); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
			os.Exit(1)
		}
	}

	switch sliceFormat {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
	default:
		fmt.Println(result.Rendered)
		printSliceSummary(result, time.Since(start))
	}
}

func printSliceSummary(result *slicer.Result, elapsed time.Duration) {
	fmt.Printf("\n// %d nodes, %d/%d tokens", len(result.Slice.Entries), result.Slice.Consumed, result.Slice.Capacity)
	if result.Slice.Demoted > 0 || result.Slice.Dropped > 0 {
		fmt.Printf(", %d demoted, %d dropped", result.Slice.Demoted, result.Slice.Dropped)
	}
	if result.PrunedEdges > 0 {
		fmt.Printf(", %d edges pruned", result.PrunedEdges)
	}
	fmt.Printf(" (%s engine, %dms)\n", result.Engine, elapsed.Milliseconds())
}

// parseTarget parses file:line[:col] with 1-based line and column into the
// 0-based location the pipeline uses.
func parseTarget(arg string) (providers.Location, error) {
	parts := strings.Split(arg, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return providers.Location{}, fmt.Errorf("target must be file:line or file:line:col, got %q", arg)
	}

	line, err := strconv.Atoi(parts[1])
	if err != nil || line < 1 {
		return providers.Location{}, fmt.Errorf("invalid line in target %q", arg)
	}

	col := 1
	if len(parts) == 3 {
		col, err = strconv.Atoi(parts[2])
		if err != nil || col < 1 {
			return providers.Location{}, fmt.Errorf("invalid column in target %q", arg)
		}
	}

	return providers.Location{File: parts[0], Line: line - 1, Column: col - 1}, nil
}
