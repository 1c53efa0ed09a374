// Package providers defines the contracts for the external collaborators the
// core depends on: symbol resolution, compilation-state checks, the inference
// service and the constraint solver. Implementations live in subpackages or
// sibling packages; the core only sees these interfaces.
package providers

import (
	"context"
	"fmt"

	"ctxslice/internal/graph"
)

// Location is a position in source, 0-indexed like the underlying indexes.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// TypeInfo describes the type of a symbol at a location. When the location is
// a definition site, SignatureTypes lists the types named in its signature,
// each with its own definition location when known.
type TypeInfo struct {
	Name           string     `json:"name"`
	Definition     *Location  `json:"definition,omitempty"`
	Documentation  string     `json:"documentation,omitempty"`
	SignatureTypes []TypeInfo `json:"signatureTypes,omitempty"`
}

// SymbolProvider resolves symbols with compiler-grade precision. It assumes
// the involved files compile; it does not attempt partial recovery.
type SymbolProvider interface {
	// Define resolves the defining node at a location.
	// Fails with SymbolNotFound when nothing definable is there.
	Define(ctx context.Context, loc Location) (*graph.Node, error)

	// References returns the locations referencing the node, with the access
	// kind (calls, reads, writes) observed at each site.
	References(ctx context.Context, node *graph.Node) ([]ReferenceSite, error)

	// OutgoingCalls returns the definitions the node's body calls into.
	OutgoingCalls(ctx context.Context, node *graph.Node) ([]*graph.Node, error)

	// Hover returns type information for the symbol at a location.
	Hover(ctx context.Context, loc Location) (*TypeInfo, error)
}

// ReferenceSite is one referencing occurrence of a symbol.
type ReferenceSite struct {
	Location Location       `json:"location"`
	Kind     graph.EdgeKind `json:"kind"` // calls, reads or writes
}

// CompileState reports whether a file's enclosing build is healthy.
type CompileState string

const (
	// StateGreen means the file compiles cleanly
	StateGreen CompileState = "green"
	// StateYellow means warnings only; exact resolution still works
	StateYellow CompileState = "yellow"
	// StateRed means errors; only the inferred path can proceed
	StateRed CompileState = "red"
)

// CompilationChecker reports the compilation state of a file.
type CompilationChecker interface {
	State(ctx context.Context, file string) (CompileState, error)
}

// ProposedEdge is a dependency suggested by the inference service. The target
// is named, not located; the builder resolves names against the symbol cache.
type ProposedEdge struct {
	Name       string         `json:"name"`
	Kind       graph.EdgeKind `json:"kind"`
	Confidence float64        `json:"confidence"`
}

// ProposeRequest carries the context the inference service reasons over.
type ProposeRequest struct {
	// Source is the target declaration's text, possibly from a non-compiling file.
	Source string
	// Language is a lowercase language name ("go", "rust").
	Language string
	// Hints restricts a refinement round to specific missing dependencies.
	Hints []MissingHint
}

// MissingHint names a dependency the service considers missing from a graph.
type MissingHint struct {
	Name   string `json:"name"`
	Reason string `json:"reason,omitempty"`
}

// InferenceService proposes dependency edges and judges candidate completeness.
type InferenceService interface {
	Propose(ctx context.Context, req ProposeRequest) ([]ProposedEdge, error)

	// CheckComplete returns missing-dependency hints for the current edge set,
	// or an empty set when the set is complete for the stated intent.
	CheckComplete(ctx context.Context, g *graph.Graph, intent string) ([]MissingHint, error)
}
