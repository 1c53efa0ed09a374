// Package slicer wires the pipeline: compilation-state check, engine
// selection, graph construction, reachability pruning, closure compression
// and rendering. One request produces one graph and one slice; requests are
// independent and share no mutable state.
package slicer

import (
	"context"
	"time"

	"ctxslice/internal/compress"
	"ctxslice/internal/engine"
	"ctxslice/internal/errors"
	"ctxslice/internal/graph"
	"ctxslice/internal/logging"
	"ctxslice/internal/output"
	"ctxslice/internal/providers"
	"ctxslice/internal/verify"

	"github.com/google/uuid"
)

// Request describes one slice extraction.
type Request struct {
	Target providers.Location

	// Intent is the stated edit intent, used by the inferred engine's
	// completeness check.
	Intent string

	BudgetTokens int
	IncludeTests bool
	Overrides    map[graph.EdgeKind]compress.Level
}

// Result is the slice plus everything observed while producing it.
type Result struct {
	RequestID string                 `json:"requestId"`
	Engine    engine.Engine          `json:"engine"`
	State     providers.CompileState `json:"state"`

	Slice    *compress.Slice `json:"slice"`
	Rendered string          `json:"rendered"`

	Graph graph.Stats `json:"graph"`

	// Pruning and refinement observability, per the graceful-degradation
	// policy: these are reported, never raised as failures.
	PrunedEdges     int `json:"prunedEdges"`
	RemovedNodes    int `json:"removedNodes"`
	UnknownGuards   int `json:"unknownGuards"`
	Iterations      int `json:"iterations"`
	UnresolvedHints int `json:"unresolvedHints"`

	Converged bool `json:"converged"`

	// Equivalence is advisory metadata from a refactoring certification,
	// set only when one was requested.
	Equivalence *verify.EquivalenceResult `json:"equivalence,omitempty"`

	DurationMs int64 `json:"durationMs"`
}

// Slicer owns the pipeline collaborators.
type Slicer struct {
	checker    providers.CompilationChecker
	exact      engine.Builder
	inferred   engine.Builder
	verifier   *verify.Verifier
	compressor *compress.Compressor
	logger     *logging.Logger
}

// New assembles a slicer. The inferred builder may be nil when no inference
// service is configured; red targets then fail with InferenceUnavailable.
func New(checker providers.CompilationChecker, exact, inferred engine.Builder, verifier *verify.Verifier, compressor *compress.Compressor, logger *logging.Logger) *Slicer {
	if logger == nil {
		logger = logging.NewNop()
	}
	if verifier == nil {
		verifier = verify.NewVerifier(nil, 0, logger)
	}
	if compressor == nil {
		compressor = compress.NewCompressor(logger)
	}
	return &Slicer{
		checker:    checker,
		exact:      exact,
		inferred:   inferred,
		verifier:   verifier,
		compressor: compressor,
		logger:     logger,
	}
}

// Slice runs the full pipeline for one target.
func (s *Slicer) Slice(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	if err := validateTarget(req.Target); err != nil {
		return nil, err
	}

	state := s.compileState(ctx, req.Target.File)
	eng := engine.Select(state)

	builder := s.exact
	if eng == engine.Inferred {
		builder = s.inferred
	}
	if builder == nil {
		return nil, errors.Newf(errors.InferenceUnavailable,
			"target %s needs the %s engine but none is configured", req.Target, eng)
	}

	built, err := builder.Build(ctx, req.Target)
	if err != nil {
		return nil, err
	}

	pruned, report := s.verifier.PruneUnreachable(ctx, built.Graph)

	slice, err := s.compressor.Compress(pruned, compress.Options{
		BudgetTokens: req.BudgetTokens,
		IncludeTests: req.IncludeTests,
		Overrides:    req.Overrides,
	})
	if err != nil {
		return nil, err
	}

	result := &Result{
		RequestID:       uuid.NewString(),
		Engine:          built.Engine,
		State:           state,
		Slice:           slice,
		Rendered:        output.Render(slice),
		Graph:           pruned.Stats(),
		PrunedEdges:     report.PrunedEdges,
		RemovedNodes:    report.RemovedNodes,
		UnknownGuards:   report.UnknownGuards,
		Iterations:      built.Iterations,
		UnresolvedHints: built.UnresolvedHints,
		Converged:       built.Converged,
		DurationMs:      time.Since(start).Milliseconds(),
	}

	s.logger.Info("Slice produced", map[string]interface{}{
		"requestId": result.RequestID,
		"engine":    result.Engine,
		"nodes":     len(slice.Entries),
		"consumed":  slice.Consumed,
		"dropped":   slice.Dropped,
		"pruned":    report.PrunedEdges,
	})
	return result, nil
}

// Certify runs an equivalence certification for a refactoring request and
// attaches the outcome to the result. The outcome never blocks the slice.
func (s *Slicer) Certify(ctx context.Context, result *Result, original, modified []verify.Predicate) {
	eq := s.verifier.CertifyEquivalence(ctx, original, modified)
	result.Equivalence = &eq
}

// compileState consults the checker; an unreachable checker degrades to red
// so the pipeline can still try the inferred path.
func (s *Slicer) compileState(ctx context.Context, file string) providers.CompileState {
	if s.checker == nil {
		return providers.StateGreen
	}
	state, err := s.checker.State(ctx, file)
	if err != nil {
		s.logger.Warn("Compilation-state check failed, assuming red", map[string]interface{}{
			"file":  file,
			"error": err.Error(),
		})
		return providers.StateRed
	}
	return state
}

func validateTarget(loc providers.Location) error {
	if loc.File == "" {
		return errors.Newf(errors.TargetInvalid, "target file is empty")
	}
	if loc.Line < 0 || loc.Column < 0 {
		return errors.Newf(errors.TargetInvalid, "target position %d:%d is negative", loc.Line, loc.Column)
	}
	return nil
}
