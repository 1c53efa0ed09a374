package verify

import (
	"context"
	"testing"
	"time"

	"ctxslice/internal/graph"
	"ctxslice/internal/logging"
)

func node(id string) graph.Node {
	return graph.Node{ID: graph.NodeID(id), Kind: graph.NodeFunction, Name: id, Confidence: 1.0}
}

func addEdge(t *testing.T, g *graph.Graph, from, to string, guard ...graph.Constraint) {
	t.Helper()
	err := g.AddEdge(graph.Edge{
		From:       graph.NodeID(from),
		To:         graph.NodeID(to),
		Kind:       graph.EdgeCalls,
		Confidence: 1.0,
		Provenance: graph.ProvenanceExact,
		Guard:      guard,
	})
	if err != nil {
		t.Fatalf("AddEdge(%s -> %s): %v", from, to, err)
	}
}

// guardedGraph builds:
//
//	r -> live
//	r -> dead   (guard 1 > 5, provably false)
//	dead -> deadChild (reachable only through the pruned edge)
//	live -> shared, dead -> shared (shared survives via live)
func guardedGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	for _, id := range []string{"r", "live", "dead", "deadChild", "shared"} {
		g.AddNode(node(id))
	}
	addEdge(t, g, "r", "live")
	addEdge(t, g, "r", "dead", c(graph.Lit(1), ">", graph.Lit(5)))
	addEdge(t, g, "dead", "deadChild")
	addEdge(t, g, "live", "shared")
	addEdge(t, g, "dead", "shared")
	if err := g.SetRoot("r"); err != nil {
		t.Fatalf("SetRoot: %v", err)
	}
	return g
}

func TestPruneUnreachable_RemovesDeadSubgraph(t *testing.T) {
	v := NewVerifier(nil, time.Second, logging.NewNop())
	g := guardedGraph(t)

	pruned, report := v.PruneUnreachable(context.Background(), g)

	if report.PrunedEdges != 1 {
		t.Errorf("PrunedEdges = %d, want 1", report.PrunedEdges)
	}
	// dead and deadChild are reachable only through the pruned edge.
	if report.RemovedNodes != 2 {
		t.Errorf("RemovedNodes = %d, want 2", report.RemovedNodes)
	}

	for _, id := range []string{"dead", "deadChild"} {
		if _, ok := pruned.Node(graph.NodeID(id)); ok {
			t.Errorf("node %s should be pruned", id)
		}
	}
	// Sibling code at the same scope remains.
	for _, id := range []string{"r", "live", "shared"} {
		if _, ok := pruned.Node(graph.NodeID(id)); !ok {
			t.Errorf("node %s should survive", id)
		}
	}
	if pruned.RootID() != "r" {
		t.Errorf("root lost during pruning")
	}
}

func TestPruneUnreachable_NoGuardsIsIdentity(t *testing.T) {
	v := NewVerifier(nil, time.Second, logging.NewNop())

	g := graph.New()
	g.AddNode(node("r"))
	g.AddNode(node("a"))
	addEdge(t, g, "r", "a")
	if err := g.SetRoot("r"); err != nil {
		t.Fatalf("SetRoot: %v", err)
	}

	pruned, report := v.PruneUnreachable(context.Background(), g)
	if pruned != g {
		t.Errorf("graph without guards should be returned unchanged")
	}
	if report.PrunedEdges != 0 || report.RemovedNodes != 0 {
		t.Errorf("report = %+v, want zeroes", report)
	}
}

func TestPruneUnreachable_SatisfiableGuardKept(t *testing.T) {
	v := NewVerifier(nil, time.Second, logging.NewNop())

	g := graph.New()
	g.AddNode(node("r"))
	g.AddNode(node("a"))
	addEdge(t, g, "r", "a",
		c(graph.Var("x"), "==", graph.Lit(10)),
		c(graph.Var("x"), ">", graph.Lit(5)))
	if err := g.SetRoot("r"); err != nil {
		t.Fatalf("SetRoot: %v", err)
	}

	pruned, report := v.PruneUnreachable(context.Background(), g)
	if report.PrunedEdges != 0 {
		t.Errorf("satisfiable guard must not be pruned, report = %+v", report)
	}
	if _, ok := pruned.Node("a"); !ok {
		t.Errorf("guarded-but-reachable node should survive")
	}
}

func TestPruneUnreachable_UnknownGuardKeptConservatively(t *testing.T) {
	v := NewVerifier(nil, time.Second, logging.NewNop())

	g := graph.New()
	g.AddNode(node("r"))
	g.AddNode(node("a"))
	// x < y relates two variables: outside the fragment, so Unknown.
	addEdge(t, g, "r", "a", c(graph.Var("x"), "<", graph.Var("y")))
	if err := g.SetRoot("r"); err != nil {
		t.Fatalf("SetRoot: %v", err)
	}

	pruned, report := v.PruneUnreachable(context.Background(), g)
	if report.UnknownGuards != 1 {
		t.Errorf("UnknownGuards = %d, want 1", report.UnknownGuards)
	}
	if _, ok := pruned.Node("a"); !ok {
		t.Errorf("undecidable guard must keep its edge")
	}
}

type timeoutSolver struct{}

func (timeoutSolver) Check(ctx context.Context, pred Predicate) (SatResult, error) {
	<-ctx.Done()
	return Unknown, ctx.Err()
}

func TestPruneUnreachable_SolverTimeoutKeepsEdge(t *testing.T) {
	v := NewVerifier(timeoutSolver{}, 10*time.Millisecond, logging.NewNop())
	g := guardedGraph(t)

	pruned, report := v.PruneUnreachable(context.Background(), g)
	if report.PrunedEdges != 0 {
		t.Errorf("timeouts must never prune, report = %+v", report)
	}
	if pruned.NumNodes() != g.NumNodes() {
		t.Errorf("timeouts must not remove nodes")
	}
}

func TestCertifyEquivalence(t *testing.T) {
	v := NewVerifier(nil, time.Second, logging.NewNop())
	ctx := context.Background()

	xGT5 := Predicate{Constraints: []graph.Constraint{c(graph.Var("x"), ">", graph.Lit(5))}}
	xGE6 := Predicate{Constraints: []graph.Constraint{c(graph.Var("x"), ">=", graph.Lit(6))}}
	xGT7 := Predicate{Constraints: []graph.Constraint{c(graph.Var("x"), ">", graph.Lit(7))}}
	varPair := Predicate{Constraints: []graph.Constraint{c(graph.Var("x"), "<", graph.Var("y"))}}

	tests := []struct {
		name     string
		original []Predicate
		modified []Predicate
		want     EquivalenceStatus
	}{
		{
			name:     "identical predicates proven",
			original: []Predicate{xGT5},
			modified: []Predicate{xGT5},
			want:     Proven,
		},
		{
			name:     "semantically equal forms proven",
			original: []Predicate{xGT5},
			modified: []Predicate{xGE6},
			want:     Proven,
		},
		{
			name:     "different predicates not proven",
			original: []Predicate{xGT5},
			modified: []Predicate{xGT7},
			want:     UnknownEquivalence,
		},
		{
			name:     "out-of-fragment predicates undecided",
			original: []Predicate{varPair},
			modified: []Predicate{varPair},
			want:     UnknownEquivalence,
		},
		{
			name:     "nothing extracted fails",
			original: nil,
			modified: nil,
			want:     Failed,
		},
		{
			name:     "misaligned counts fail",
			original: []Predicate{xGT5},
			modified: []Predicate{xGT5, xGT7},
			want:     Failed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.CertifyEquivalence(ctx, tt.original, tt.modified)
			if got.Status != tt.want {
				t.Errorf("Status = %v, want %v", got.Status, tt.want)
			}
			if got.Status == Proven && got.Confidence != 1.0 {
				t.Errorf("proven result should carry confidence 1.0, got %f", got.Confidence)
			}
		})
	}
}

func TestCertifyEquivalence_HeuristicConfidence(t *testing.T) {
	v := NewVerifier(nil, time.Second, logging.NewNop())

	shared := c(graph.Var("x"), ">", graph.Lit(5))
	onlyA := c(graph.Var("y"), "<", graph.Var("z"))
	onlyB := c(graph.Var("w"), "<", graph.Var("q"))

	a := []Predicate{{Constraints: []graph.Constraint{shared, onlyA}}}
	b := []Predicate{{Constraints: []graph.Constraint{shared, onlyB}}}

	got := v.CertifyEquivalence(context.Background(), a, b)
	if got.Status != UnknownEquivalence {
		t.Fatalf("Status = %v, want unknown", got.Status)
	}
	// One shared constraint out of three distinct: Jaccard 1/3.
	if got.Confidence < 0.32 || got.Confidence > 0.34 {
		t.Errorf("Confidence = %f, want ~0.333", got.Confidence)
	}
}
