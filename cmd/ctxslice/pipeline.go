package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ctxslice/internal/compress"
	"ctxslice/internal/config"
	"ctxslice/internal/engine"
	"ctxslice/internal/inference"
	"ctxslice/internal/logging"
	"ctxslice/internal/parse"
	"ctxslice/internal/project"
	"ctxslice/internal/providers/scip"
	"ctxslice/internal/slicer"
	"ctxslice/internal/storage"
	"ctxslice/internal/verify"
)

// mustGetWorkspace locates the workspace root from the current directory or
// exits on error.
func mustGetWorkspace() *project.Workspace {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	ws, err := project.FindWorkspaceRoot(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return ws
}

// mustLoadConfig loads the workspace config or exits on error.
func mustLoadConfig(ws *project.Workspace) *config.Config {
	cfg, err := config.LoadConfig(ws.Root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// newLogger builds a logger from config, with CLI flags taking precedence.
func newLogger(cfg *config.Config) *logging.Logger {
	format := cfg.Logging.Format
	if logFormatFlag != "" {
		format = logFormatFlag
	}
	level := cfg.Logging.Level
	if logLevelFlag != "" {
		level = logLevelFlag
	}

	logFormat := logging.HumanFormat
	if format == "json" {
		logFormat = logging.JSONFormat
	}
	logLevel := logging.InfoLevel
	switch level {
	case "debug":
		logLevel = logging.DebugLevel
	case "warn":
		logLevel = logging.WarnLevel
	case "error":
		logLevel = logging.ErrorLevel
	}
	return logging.NewLogger(logging.Config{Format: logFormat, Level: logLevel})
}

// scipIndexPath resolves the configured index path against the workspace root.
func scipIndexPath(ws *project.Workspace, cfg *config.Config) string {
	path := cfg.Index.ScipPath
	if path == "" {
		path = scip.DefaultIndexPath
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(ws.Root, path)
	}
	return path
}

// buildSlicer assembles the full pipeline for one command invocation. The
// intent is fixed per invocation, so it is bound to the inferred builder here.
func buildSlicer(ws *project.Workspace, cfg *config.Config, logger *logging.Logger, intent string) (*slicer.Slicer, error) {
	index, err := scip.Load(scipIndexPath(ws, cfg), ws.Root)
	if err != nil {
		return nil, err
	}
	provider := scip.NewProvider(index, logger)

	exact := engine.NewExactBuilder(provider, logger)
	if guards := slicer.NewParserGuards(ws.Root); guards != nil {
		exact.Guards = guards
	}

	inferred := buildInferredBuilder(ws, cfg, logger, intent)

	verifier := verify.NewVerifier(nil, time.Duration(cfg.Solver.TimeoutMs)*time.Millisecond, logger)
	compressor := compress.NewCompressor(logger)

	return slicer.New(provider, exact, inferred, verifier, compressor, logger), nil
}

// buildInferredBuilder wires the inference engine when it is configured and
// usable. A nil return leaves red targets unservable, which the slicer
// reports as INFERENCE_UNAVAILABLE.
func buildInferredBuilder(ws *project.Workspace, cfg *config.Config, logger *logging.Logger, intent string) engine.Builder {
	if !cfg.Inference.Enabled {
		return nil
	}
	if !parse.IsAvailable() {
		logger.Warn("Inference enabled but no syntactic parser is built in", nil)
		return nil
	}
	apiKey := os.Getenv("CTXSLICE_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		logger.Warn("Inference enabled but no API key in environment", nil)
		return nil
	}

	store, err := storage.Open(symbolCacheDir(ws, cfg), logger)
	if err != nil {
		logger.Warn("Symbol cache unavailable, inference disabled", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	client := inference.NewClient(inference.Config{
		APIKey:  apiKey,
		BaseURL: cfg.Inference.BaseURL,
		Model:   cfg.Inference.Model,
		Timeout: time.Duration(cfg.Inference.TimeoutMs) * time.Millisecond,
	}, logger)

	builder := engine.NewInferredBuilder(parse.NewParser(), client, store, logger)
	builder.Intent = intent
	builder.MaxIterations = cfg.Engines.MaxRefineIterations
	return builder
}

// symbolCacheDir resolves the symbol cache directory.
func symbolCacheDir(ws *project.Workspace, cfg *config.Config) string {
	dir := cfg.Index.CacheDir
	if dir == "" {
		return ws.DotDir()
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(ws.Root, dir)
	}
	return dir
}
