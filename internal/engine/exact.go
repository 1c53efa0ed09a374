package engine

import (
	"context"

	"ctxslice/internal/graph"
	"ctxslice/internal/logging"
	"ctxslice/internal/providers"
)

// ExactBuilder resolves the dependency graph through a symbol resolution
// provider. It assumes the involved files compile; resolution failures at the
// target are surfaced, resolution failures on secondary lookups degrade to a
// smaller graph.
type ExactBuilder struct {
	provider providers.SymbolProvider
	logger   *logging.Logger

	// Guards, when set, recovers the conditional guard active at each
	// reference site so the verifier can prune provably-dead callers.
	Guards GuardExtractor
}

// GuardExtractor recovers the guard constraints active at a source location.
// An empty result means the location is unconditional.
type GuardExtractor interface {
	GuardAt(ctx context.Context, loc providers.Location) []graph.Constraint
}

// NewExactBuilder creates an exact builder over a symbol provider.
func NewExactBuilder(provider providers.SymbolProvider, logger *logging.Logger) *ExactBuilder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ExactBuilder{provider: provider, logger: logger}
}

// Build resolves the defining node at the target, then expands callers,
// callees and signature types one hop out. All edges carry confidence 1.0
// and exact provenance.
func (b *ExactBuilder) Build(ctx context.Context, target providers.Location) (*Result, error) {
	root, err := b.provider.Define(ctx, target)
	if err != nil {
		return nil, err
	}

	g := graph.New()
	g.AddNode(*root)
	if err := g.SetRoot(root.ID); err != nil {
		return nil, err
	}

	if err := b.addCallers(ctx, g, root); err != nil {
		return nil, err
	}
	if err := b.addCallees(ctx, g, root); err != nil {
		return nil, err
	}
	if err := b.addSignatureTypes(ctx, g, root, target); err != nil {
		return nil, err
	}

	stats := g.Stats()
	b.logger.Debug("Exact graph built", map[string]interface{}{
		"root":  root.ID,
		"nodes": stats.Nodes,
		"edges": stats.Edges,
	})
	return &Result{Graph: g, Engine: Exact, Converged: true}, nil
}

// addCallers resolves every referencing site to its enclosing definition and
// emits an edge into the root with the access kind observed at the site.
func (b *ExactBuilder) addCallers(ctx context.Context, g *graph.Graph, root *graph.Node) error {
	sites, err := b.provider.References(ctx, root)
	if err != nil {
		b.logger.Warn("Reference lookup failed, continuing without callers", map[string]interface{}{
			"root":  root.ID,
			"error": err.Error(),
		})
		return nil
	}

	for _, site := range sites {
		caller, err := b.provider.Define(ctx, site.Location)
		if err != nil {
			// A reference site inside an unresolvable region shrinks the
			// graph, it does not fail the build.
			continue
		}
		if caller.ID == root.ID {
			continue
		}
		g.AddNode(*caller)
		edge := graph.Edge{
			From:       caller.ID,
			To:         root.ID,
			Kind:       site.Kind,
			Confidence: 1.0,
			Provenance: graph.ProvenanceExact,
		}
		if b.Guards != nil {
			edge.Guard = b.Guards.GuardAt(ctx, site.Location)
		}
		if err := g.AddEdge(edge); err != nil {
			return err
		}
	}
	return nil
}

func (b *ExactBuilder) addCallees(ctx context.Context, g *graph.Graph, root *graph.Node) error {
	callees, err := b.provider.OutgoingCalls(ctx, root)
	if err != nil {
		b.logger.Warn("Outgoing-call lookup failed, continuing without callees", map[string]interface{}{
			"root":  root.ID,
			"error": err.Error(),
		})
		return nil
	}

	for _, callee := range callees {
		if callee.ID == root.ID {
			continue
		}
		g.AddNode(*callee)
		edge := graph.Edge{
			From:       root.ID,
			To:         callee.ID,
			Kind:       graph.EdgeCalls,
			Confidence: 1.0,
			Provenance: graph.ProvenanceExact,
		}
		if err := g.AddEdge(edge); err != nil {
			return err
		}
	}
	return nil
}

// addSignatureTypes emits a defines edge for every type named in the root's
// signature that hover can resolve to a definition site.
func (b *ExactBuilder) addSignatureTypes(ctx context.Context, g *graph.Graph, root *graph.Node, target providers.Location) error {
	info, err := b.provider.Hover(ctx, target)
	if err != nil || info == nil {
		return nil
	}

	types := info.SignatureTypes
	if len(types) == 0 && info.Definition != nil {
		types = []providers.TypeInfo{*info}
	}

	for _, ti := range types {
		if ti.Definition == nil {
			continue
		}
		typeNode, err := b.provider.Define(ctx, *ti.Definition)
		if err != nil {
			continue
		}
		if typeNode.ID == root.ID {
			continue
		}
		g.AddNode(*typeNode)
		edge := graph.Edge{
			From:       root.ID,
			To:         typeNode.ID,
			Kind:       graph.EdgeDefines,
			Confidence: 1.0,
			Provenance: graph.ProvenanceExact,
		}
		if err := g.AddEdge(edge); err != nil {
			return err
		}
	}
	return nil
}
