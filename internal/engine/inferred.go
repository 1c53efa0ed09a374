package engine

import (
	"context"
	"os"

	"ctxslice/internal/errors"
	"ctxslice/internal/graph"
	"ctxslice/internal/logging"
	"ctxslice/internal/parse"
	"ctxslice/internal/providers"
)

// DefaultMaxIterations caps the refinement loop of the inferred builder.
const DefaultMaxIterations = 5

// SymbolIndex resolves a bare symbol name to a known definition. The inferred
// builder uses it to anchor proposed edges; a name the index does not know
// stays an unresolved hint.
type SymbolIndex interface {
	// LookupSymbol returns the definition for a name, or nil when unknown.
	LookupSymbol(ctx context.Context, name string) (*graph.Node, error)
}

// DeclarationLocator finds the smallest declaration enclosing a position in
// possibly-broken source. *parse.Parser satisfies it.
type DeclarationLocator interface {
	EnclosingDeclaration(ctx context.Context, source []byte, lang parse.Language, line, col int) (*parse.Declaration, bool)
}

// InferredBuilder constructs a graph for a target whose file does not
// compile. It parses an error-tolerant tree to locate the root declaration,
// then runs a bounded propose/check/refine loop against the inference
// service. Edges carry the service-reported confidence and inferred
// provenance, never promoted to 1.0.
type InferredBuilder struct {
	parser    DeclarationLocator
	inference providers.InferenceService
	index     SymbolIndex
	logger    *logging.Logger

	// Intent is the stated edit intent the completeness check judges against.
	Intent string

	// MaxIterations bounds refinement; zero means DefaultMaxIterations.
	MaxIterations int

	readFile func(string) ([]byte, error)
}

// NewInferredBuilder creates an inferred builder. The index may be nil, in
// which case every proposal stays unresolved.
func NewInferredBuilder(parser DeclarationLocator, inference providers.InferenceService, index SymbolIndex, logger *logging.Logger) *InferredBuilder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &InferredBuilder{
		parser:    parser,
		inference: inference,
		index:     index,
		logger:    logger,
		readFile:  os.ReadFile,
	}
}

// Build runs the refinement loop. The loop always terminates at the
// iteration cap; cap-reached is a terminal non-error state, not a failure.
// Inference call errors and timeouts stop the loop as non-converged.
func (b *InferredBuilder) Build(ctx context.Context, target providers.Location) (*Result, error) {
	if b.inference == nil {
		return nil, errors.Newf(errors.InferenceUnavailable, "no inference service configured")
	}
	if b.parser == nil {
		return nil, errors.Newf(errors.InferenceUnavailable, "no resilient parser available")
	}

	source, err := b.readFile(target.File)
	if err != nil {
		return nil, errors.New(errors.TargetInvalid, "cannot read target file", err)
	}
	lang, ok := parse.LanguageForPath(target.File)
	if !ok {
		return nil, errors.Newf(errors.TargetInvalid, "unsupported language for %s", target.File)
	}

	decl, ok := b.parser.EnclosingDeclaration(ctx, source, lang, target.Line, target.Column)
	if !ok {
		return nil, errors.Newf(errors.SymbolNotFound, "no declaration encloses %s", target)
	}

	root := graph.Node{
		ID:         decl.NodeID(target.File),
		Kind:       decl.Kind,
		Name:       decl.Name,
		Span:       decl.Span(target.File),
		Source:     decl.Source,
		Signature:  decl.Signature,
		Doc:        decl.Doc,
		Confidence: 1.0,
	}

	g := graph.New()
	g.AddNode(root)
	if err := g.SetRoot(root.ID); err != nil {
		return nil, err
	}

	result := &Result{Graph: g, Engine: Inferred}
	maxIter := b.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	req := providers.ProposeRequest{Source: decl.Source, Language: string(lang)}
	proposals, err := b.inference.Propose(ctx, req)
	if err != nil {
		b.logger.Warn("Initial proposal failed, returning root-only graph", map[string]interface{}{
			"error": err.Error(),
		})
		return result, nil
	}
	result.Iterations = 1
	b.merge(ctx, g, root.ID, proposals, result)

	for result.Iterations < maxIter {
		hints, err := b.inference.CheckComplete(ctx, g, b.Intent)
		if err != nil {
			b.logger.Warn("Completeness check failed, stopping refinement", map[string]interface{}{
				"iteration": result.Iterations,
				"error":     err.Error(),
			})
			return result, nil
		}
		if len(hints) == 0 {
			result.Converged = true
			break
		}

		req.Hints = hints
		more, err := b.inference.Propose(ctx, req)
		if err != nil {
			b.logger.Warn("Refinement proposal failed, stopping", map[string]interface{}{
				"iteration": result.Iterations,
				"error":     err.Error(),
			})
			return result, nil
		}
		result.Iterations++
		b.merge(ctx, g, root.ID, more, result)
	}

	stats := g.Stats()
	b.logger.Debug("Inferred graph built", map[string]interface{}{
		"root":       root.ID,
		"nodes":      stats.Nodes,
		"edges":      stats.Edges,
		"iterations": result.Iterations,
		"converged":  result.Converged,
	})
	return result, nil
}

// merge resolves proposal names against the symbol index and adds edges,
// keeping the max confidence per duplicate. Unresolvable names count as
// unresolved hints.
func (b *InferredBuilder) merge(ctx context.Context, g *graph.Graph, root graph.NodeID, proposals []providers.ProposedEdge, result *Result) {
	for _, p := range proposals {
		node := b.resolve(ctx, p.Name)
		if node == nil {
			result.UnresolvedHints++
			continue
		}
		if node.ID == root {
			continue
		}

		resolved := *node
		if resolved.Confidence > p.Confidence {
			resolved.Confidence = p.Confidence
		}
		g.AddNode(resolved)
		edge := graph.Edge{
			From:       root,
			To:         resolved.ID,
			Kind:       p.Kind,
			Confidence: p.Confidence,
			Provenance: graph.ProvenanceInferred,
		}
		if err := g.AddEdge(edge); err != nil {
			// Both endpoints were just ensured; a failure here is a defect.
			b.logger.Error("Edge merge failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (b *InferredBuilder) resolve(ctx context.Context, name string) *graph.Node {
	if b.index == nil || name == "" {
		return nil
	}
	node, err := b.index.LookupSymbol(ctx, name)
	if err != nil {
		b.logger.Warn("Symbol lookup failed", map[string]interface{}{
			"name":  name,
			"error": err.Error(),
		})
		return nil
	}
	return node
}
