// Package engine holds the two graph-construction disciplines and the
// selector that picks between them. Both builders produce a dependency graph
// rooted at a target location; only the trust model differs. The exact
// builder leans on compiler-grade symbol resolution, the inferred builder on
// resilient parsing plus an inference service.
package engine

import (
	"context"

	"ctxslice/internal/graph"
	"ctxslice/internal/providers"
)

// Engine identifies a graph-construction discipline.
type Engine string

const (
	// Exact uses the symbol resolution provider; edges carry confidence 1.0
	Exact Engine = "exact"
	// Inferred uses the resilient parser and the inference service
	Inferred Engine = "inferred"
)

// Select maps a compilation state to an engine. Green and yellow builds still
// resolve exactly; only a red build needs inference. Pure decision, no I/O.
func Select(state providers.CompileState) Engine {
	if state == providers.StateRed {
		return Inferred
	}
	return Exact
}

// Result is a built graph plus build metadata for the slice envelope.
type Result struct {
	Graph *graph.Graph

	// Engine records which discipline produced the graph.
	Engine Engine

	// Iterations is the refinement round count; always 0 for the exact path.
	Iterations int

	// Converged reports whether the inference service declared the edge set
	// complete before the iteration cap. Always true for the exact path.
	Converged bool

	// UnresolvedHints counts missing-dependency hints that never resolved to
	// a known symbol.
	UnresolvedHints int
}

// Builder produces a dependency graph rooted at a target location.
type Builder interface {
	Build(ctx context.Context, target providers.Location) (*Result, error)
}
