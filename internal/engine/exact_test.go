package engine

import (
	"context"
	"testing"

	"ctxslice/internal/errors"
	"ctxslice/internal/graph"
	"ctxslice/internal/logging"
	"ctxslice/internal/providers"
)

type fakeProvider struct {
	defs  map[string]*graph.Node
	refs  map[graph.NodeID][]providers.ReferenceSite
	calls map[graph.NodeID][]*graph.Node
	hover map[string]*providers.TypeInfo
}

func (f *fakeProvider) Define(ctx context.Context, loc providers.Location) (*graph.Node, error) {
	if n, ok := f.defs[loc.String()]; ok {
		copied := *n
		return &copied, nil
	}
	return nil, errors.Newf(errors.SymbolNotFound, "nothing definable at %s", loc)
}

func (f *fakeProvider) References(ctx context.Context, node *graph.Node) ([]providers.ReferenceSite, error) {
	return f.refs[node.ID], nil
}

func (f *fakeProvider) OutgoingCalls(ctx context.Context, node *graph.Node) ([]*graph.Node, error) {
	return f.calls[node.ID], nil
}

func (f *fakeProvider) Hover(ctx context.Context, loc providers.Location) (*providers.TypeInfo, error) {
	if ti, ok := f.hover[loc.String()]; ok {
		return ti, nil
	}
	return nil, nil
}

func defNode(id, name string) *graph.Node {
	return &graph.Node{
		ID:         graph.NodeID(id),
		Kind:       graph.NodeFunction,
		Name:       name,
		Confidence: 1.0,
	}
}

func loc(file string, line, col int) providers.Location {
	return providers.Location{File: file, Line: line, Column: col}
}

// fixtureProvider resolves target R with caller C, reader D, callee E and
// signature type T.
func fixtureProvider() *fakeProvider {
	target := loc("r.go", 10, 0)
	callerSite := loc("c.go", 3, 8)
	readerSite := loc("d.go", 7, 2)
	typeDef := loc("t.go", 1, 0)

	return &fakeProvider{
		defs: map[string]*graph.Node{
			target.String():     defNode("R", "R"),
			callerSite.String(): defNode("C", "C"),
			readerSite.String(): defNode("D", "D"),
			typeDef.String():    {ID: "T", Kind: graph.NodeType, Name: "T", Confidence: 1.0},
		},
		refs: map[graph.NodeID][]providers.ReferenceSite{
			"R": {
				{Location: callerSite, Kind: graph.EdgeCalls},
				{Location: readerSite, Kind: graph.EdgeReads},
			},
		},
		calls: map[graph.NodeID][]*graph.Node{
			"R": {defNode("E", "E")},
		},
		hover: map[string]*providers.TypeInfo{
			target.String(): {
				Name:           "R",
				SignatureTypes: []providers.TypeInfo{{Name: "T", Definition: &typeDef}},
			},
		},
	}
}

func findEdge(g *graph.Graph, from, to string, kind graph.EdgeKind) (graph.Edge, bool) {
	for _, e := range g.Edges() {
		if e.From == graph.NodeID(from) && e.To == graph.NodeID(to) && e.Kind == kind {
			return e, true
		}
	}
	return graph.Edge{}, false
}

func TestExactBuilder_Build(t *testing.T) {
	b := NewExactBuilder(fixtureProvider(), logging.NewNop())
	result, err := b.Build(context.Background(), loc("r.go", 10, 0))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	g := result.Graph
	if g.RootID() != "R" {
		t.Errorf("root = %s, want R", g.RootID())
	}
	if result.Engine != Exact || !result.Converged {
		t.Errorf("result metadata = %+v", result)
	}

	wantEdges := []struct {
		from, to string
		kind     graph.EdgeKind
	}{
		{"C", "R", graph.EdgeCalls},
		{"D", "R", graph.EdgeReads},
		{"R", "E", graph.EdgeCalls},
		{"R", "T", graph.EdgeDefines},
	}
	for _, w := range wantEdges {
		e, ok := findEdge(g, w.from, w.to, w.kind)
		if !ok {
			t.Errorf("missing edge %s -%s-> %s", w.from, w.kind, w.to)
			continue
		}
		if e.Confidence != 1.0 {
			t.Errorf("edge %s -> %s confidence = %f, want 1.0", w.from, w.to, e.Confidence)
		}
		if e.Provenance != graph.ProvenanceExact {
			t.Errorf("edge %s -> %s provenance = %s, want exact", w.from, w.to, e.Provenance)
		}
	}
	if g.NumEdges() != len(wantEdges) {
		t.Errorf("edges = %d, want %d", g.NumEdges(), len(wantEdges))
	}
}

func TestExactBuilder_SymbolNotFoundSurfaced(t *testing.T) {
	b := NewExactBuilder(fixtureProvider(), logging.NewNop())
	_, err := b.Build(context.Background(), loc("nowhere.go", 1, 1))
	if !errors.IsCode(err, errors.SymbolNotFound) {
		t.Fatalf("err = %v, want SYMBOL_NOT_FOUND", err)
	}
}

func TestExactBuilder_Idempotent(t *testing.T) {
	b := NewExactBuilder(fixtureProvider(), logging.NewNop())
	target := loc("r.go", 10, 0)

	first, err := b.Build(context.Background(), target)
	if err != nil {
		t.Fatalf("first Build: %v", err)
	}
	second, err := b.Build(context.Background(), target)
	if err != nil {
		t.Fatalf("second Build: %v", err)
	}

	if first.Graph.Stats() != second.Graph.Stats() {
		t.Errorf("stats differ: %+v vs %+v", first.Graph.Stats(), second.Graph.Stats())
	}
	a := first.Graph.BFSFrom(first.Graph.RootID())
	z := second.Graph.BFSFrom(second.Graph.RootID())
	if len(a) != len(z) {
		t.Fatalf("traversal lengths differ: %d vs %d", len(a), len(z))
	}
	for i := range a {
		if a[i].Node.ID != z[i].Node.ID || a[i].Distance != z[i].Distance {
			t.Errorf("traversal diverges at %d: %s vs %s", i, a[i].Node.ID, z[i].Node.ID)
		}
	}
}

func TestExactBuilder_UnresolvableReferenceSkipped(t *testing.T) {
	p := fixtureProvider()
	p.refs["R"] = append(p.refs["R"], providers.ReferenceSite{
		Location: loc("ghost.go", 99, 0),
		Kind:     graph.EdgeCalls,
	})

	b := NewExactBuilder(p, logging.NewNop())
	result, err := b.Build(context.Background(), loc("r.go", 10, 0))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// The unresolvable site shrinks the graph instead of failing the build.
	if result.Graph.NumEdges() != 4 {
		t.Errorf("edges = %d, want 4", result.Graph.NumEdges())
	}
}

type fixedGuards struct {
	guard []graph.Constraint
}

func (f fixedGuards) GuardAt(ctx context.Context, loc providers.Location) []graph.Constraint {
	return f.guard
}

func TestExactBuilder_GuardsAttachedToCallerEdges(t *testing.T) {
	b := NewExactBuilder(fixtureProvider(), logging.NewNop())
	b.Guards = fixedGuards{guard: []graph.Constraint{
		{Left: graph.Var("x"), Op: ">", Right: graph.Lit(5)},
	}}

	result, err := b.Build(context.Background(), loc("r.go", 10, 0))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	e, ok := findEdge(result.Graph, "C", "R", graph.EdgeCalls)
	if !ok {
		t.Fatalf("caller edge missing")
	}
	if len(e.Guard) != 1 || e.Guard[0].Left.Var != "x" {
		t.Errorf("guard not attached: %+v", e.Guard)
	}
}
