package compress

import (
	"strings"
	"testing"

	"ctxslice/internal/graph"
	"ctxslice/internal/logging"
)

// fixtureNode builds a node whose full-source render is exactly size bytes.
func fixtureNode(id string, size int) graph.Node {
	return graph.Node{
		ID:         graph.NodeID(id),
		Kind:       graph.NodeFunction,
		Name:       id,
		Span:       graph.Span{File: "f.go", StartLine: 1, StartCol: 0},
		Source:     strings.Repeat("x", size),
		Signature:  "func " + id + "()",
		Confidence: 1.0,
	}
}

func mustEdge(t *testing.T, g *graph.Graph, from, to string, kind graph.EdgeKind) {
	t.Helper()
	err := g.AddEdge(graph.Edge{
		From:       graph.NodeID(from),
		To:         graph.NodeID(to),
		Kind:       kind,
		Confidence: 1.0,
		Provenance: graph.ProvenanceExact,
	})
	if err != nil {
		t.Fatalf("AddEdge(%s -> %s): %v", from, to, err)
	}
}

// chainGraph builds R -> A -> B with calls edges: A at distance 1, B at 2.
func chainGraph(t *testing.T, rootSize, aSize, bSize int) *graph.Graph {
	t.Helper()
	g := graph.New()
	g.AddNode(fixtureNode("R", rootSize))
	g.AddNode(fixtureNode("A", aSize))
	g.AddNode(fixtureNode("B", bSize))
	mustEdge(t, g, "R", "A", graph.EdgeCalls)
	mustEdge(t, g, "A", "B", graph.EdgeCalls)
	if err := g.SetRoot("R"); err != nil {
		t.Fatalf("SetRoot: %v", err)
	}
	return g
}

func levelOf(t *testing.T, s *Slice, id string) Level {
	t.Helper()
	l, ok := s.Contains(graph.NodeID(id))
	if !ok {
		t.Fatalf("node %s missing from slice", id)
	}
	return l
}

func TestCompress_RootAlwaysFullEvenAtZeroBudget(t *testing.T) {
	c := NewCompressor(logging.NewNop())
	g := chainGraph(t, 40, 40, 40)

	slice, err := c.Compress(g, Options{BudgetTokens: 0})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	if len(slice.Entries) != 1 {
		t.Fatalf("entries = %d, want only the root", len(slice.Entries))
	}
	root := slice.Root()
	if root.Node.ID != "R" || root.Level != LevelFull {
		t.Errorf("root = %s at %v, want R at full-source", root.Node.ID, root.Level)
	}
	// The root charge stands even though it exceeds capacity.
	if slice.Consumed != 10 {
		t.Errorf("Consumed = %d, want 10", slice.Consumed)
	}
	if slice.Dropped != 2 {
		t.Errorf("Dropped = %d, want 2", slice.Dropped)
	}
}

func TestCompress_DirectDepsFullTransitiveInterface(t *testing.T) {
	c := NewCompressor(logging.NewNop())
	g := chainGraph(t, 40, 40, 40)

	// Room for everything: R full (10) + A full (10) + B interface.
	slice, err := c.Compress(g, Options{BudgetTokens: 100})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	if got := levelOf(t, slice, "A"); got != LevelFull {
		t.Errorf("A at %v, want full-source", got)
	}
	if got := levelOf(t, slice, "B"); got != LevelInterface {
		t.Errorf("B at %v, want interface-summary", got)
	}
	if slice.Demoted != 0 || slice.Dropped != 0 {
		t.Errorf("Demoted = %d, Dropped = %d, want zeroes", slice.Demoted, slice.Dropped)
	}
}

func TestCompress_DistanceThreeIsReferenceOnly(t *testing.T) {
	c := NewCompressor(logging.NewNop())
	g := chainGraph(t, 40, 40, 40)
	g.AddNode(fixtureNode("C", 40))
	mustEdge(t, g, "B", "C", graph.EdgeCalls)

	slice, err := c.Compress(g, Options{BudgetTokens: 1000})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if got := levelOf(t, slice, "C"); got != LevelReference {
		t.Errorf("C at %v, want reference-only", got)
	}
}

func TestCompress_SingleDemotionThenInclude(t *testing.T) {
	c := NewCompressor(logging.NewNop())
	// A's full source is 400 bytes (100 tokens); its interface is tiny.
	g := chainGraph(t, 40, 400, 40)

	slice, err := c.Compress(g, Options{BudgetTokens: 30})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	if got := levelOf(t, slice, "A"); got != LevelInterface {
		t.Errorf("A at %v, want interface-summary after demotion", got)
	}
	if slice.Demoted != 1 {
		t.Errorf("Demoted = %d, want 1", slice.Demoted)
	}
}

func TestCompress_DropScenario(t *testing.T) {
	c := NewCompressor(logging.NewNop())
	// R (10 tokens) and A (10 tokens) fit in 21; B does not fit even as a
	// bare reference (3 tokens, 20+3 > 21).
	g := chainGraph(t, 40, 40, 40)

	slice, err := c.Compress(g, Options{BudgetTokens: 21})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	if got := levelOf(t, slice, "R"); got != LevelFull {
		t.Errorf("R at %v, want full-source", got)
	}
	if got := levelOf(t, slice, "A"); got != LevelFull {
		t.Errorf("A at %v, want full-source", got)
	}
	if _, ok := slice.Contains("B"); ok {
		t.Errorf("B should be omitted entirely")
	}
	if slice.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", slice.Dropped)
	}
}

func TestCompress_FirstSkipEndsTraversal(t *testing.T) {
	c := NewCompressor(logging.NewNop())
	g := graph.New()
	g.AddNode(fixtureNode("R", 40))
	// A is huge at every level: a long name makes even its reference render
	// exceed the remaining budget. Z after it is tiny but must not be taken.
	huge := fixtureNode(strings.Repeat("A", 200), 4000)
	g.AddNode(huge)
	g.AddNode(fixtureNode("Z", 4))
	mustEdge(t, g, "R", string(huge.ID), graph.EdgeCalls)
	mustEdge(t, g, "R", "Z", graph.EdgeCalls)
	if err := g.SetRoot("R"); err != nil {
		t.Fatalf("SetRoot: %v", err)
	}

	slice, err := c.Compress(g, Options{BudgetTokens: 20})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	if _, ok := slice.Contains("Z"); ok {
		t.Errorf("Z ranks after the skipped node and must not be considered")
	}
	if slice.Dropped != 2 {
		t.Errorf("Dropped = %d, want 2", slice.Dropped)
	}
	if len(slice.Entries) != 1 {
		t.Errorf("entries = %d, want only the root", len(slice.Entries))
	}
}

func TestCompress_BudgetMonotonicity(t *testing.T) {
	c := NewCompressor(logging.NewNop())
	g := chainGraph(t, 40, 40, 40)
	g.AddNode(fixtureNode("C", 40))
	mustEdge(t, g, "B", "C", graph.EdgeCalls)

	budgets := []int{0, 15, 25, 60, 1000}
	var prev *Slice
	for _, b := range budgets {
		slice, err := c.Compress(g, Options{BudgetTokens: b})
		if err != nil {
			t.Fatalf("Compress(budget=%d): %v", b, err)
		}
		if prev != nil {
			for _, e := range prev.Entries {
				l, ok := slice.Contains(e.Node.ID)
				if !ok {
					t.Errorf("budget %d lost node %s present at a smaller budget", b, e.Node.ID)
					continue
				}
				if l < e.Level {
					t.Errorf("budget %d renders %s at %v, below %v from a smaller budget", b, e.Node.ID, l, e.Level)
				}
			}
		}
		prev = slice
	}
}

func TestCompress_InterfaceRenderingKeepsSignatureAndDoc(t *testing.T) {
	c := NewCompressor(logging.NewNop())
	g := graph.New()
	g.AddNode(fixtureNode("R", 40))
	a := fixtureNode("A", 400)
	a.Doc = "// A does the thing."
	a.Signature = "func A(n int) (string, error)"
	g.AddNode(a)
	mustEdge(t, g, "R", "A", graph.EdgeCalls)
	if err := g.SetRoot("R"); err != nil {
		t.Fatalf("SetRoot: %v", err)
	}

	slice, err := c.Compress(g, Options{BudgetTokens: 30})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	var entry *Entry
	for i := range slice.Entries {
		if slice.Entries[i].Node.ID == "A" {
			entry = &slice.Entries[i]
		}
	}
	if entry == nil {
		t.Fatalf("A missing from slice")
	}
	if entry.Level != LevelInterface {
		t.Fatalf("A at %v, want interface-summary", entry.Level)
	}
	if !strings.Contains(entry.Content, "func A(n int) (string, error)") {
		t.Errorf("interface render lost the signature: %q", entry.Content)
	}
	if !strings.Contains(entry.Content, "A does the thing") {
		t.Errorf("interface render lost the doc: %q", entry.Content)
	}
	if strings.Contains(entry.Content, "xxxx") {
		t.Errorf("interface render leaked the body: %q", entry.Content)
	}
}

func TestCompress_TestEdgesExcludedByDefault(t *testing.T) {
	c := NewCompressor(logging.NewNop())
	g := graph.New()
	g.AddNode(fixtureNode("R", 40))
	g.AddNode(fixtureNode("TestR", 40))
	mustEdge(t, g, "R", "TestR", graph.EdgeTests)
	if err := g.SetRoot("R"); err != nil {
		t.Fatalf("SetRoot: %v", err)
	}

	slice, err := c.Compress(g, Options{BudgetTokens: 1000})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if _, ok := slice.Contains("TestR"); ok {
		t.Errorf("test-tier nodes must be excluded by default")
	}

	slice, err = c.Compress(g, Options{BudgetTokens: 1000, IncludeTests: true})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if _, ok := slice.Contains("TestR"); !ok {
		t.Errorf("IncludeTests should admit test-tier nodes")
	}
}

func TestCompress_PerKindOverride(t *testing.T) {
	c := NewCompressor(logging.NewNop())
	g := chainGraph(t, 40, 40, 40)

	slice, err := c.Compress(g, Options{
		BudgetTokens: 1000,
		Overrides:    map[graph.EdgeKind]Level{graph.EdgeCalls: LevelReference},
	})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if got := levelOf(t, slice, "A"); got != LevelReference {
		t.Errorf("override should force A to reference-only, got %v", got)
	}
}

func TestCompress_TransitiveTierCappedAtInterface(t *testing.T) {
	c := NewCompressor(logging.NewNop())
	g := graph.New()
	g.AddNode(fixtureNode("R", 40))
	g.AddNode(fixtureNode("Iface", 40))
	mustEdge(t, g, "R", "Iface", graph.EdgeImplements)
	if err := g.SetRoot("R"); err != nil {
		t.Fatalf("SetRoot: %v", err)
	}

	slice, err := c.Compress(g, Options{BudgetTokens: 1000})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if got := levelOf(t, slice, "Iface"); got != LevelInterface {
		t.Errorf("implements-discovered node at %v, want interface-summary", got)
	}
}

func TestCompress_ManifestCoversIncludedNodesOnly(t *testing.T) {
	c := NewCompressor(logging.NewNop())
	g := chainGraph(t, 40, 40, 40)

	slice, err := c.Compress(g, Options{BudgetTokens: 21})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	if len(slice.Manifest) != 1 {
		t.Fatalf("manifest has %d edges, want 1", len(slice.Manifest))
	}
	e := slice.Manifest[0]
	if e.From != "R" || e.To != "A" {
		t.Errorf("manifest edge %s -> %s, want R -> A", e.From, e.To)
	}
}

func TestCompress_NoRootIsError(t *testing.T) {
	c := NewCompressor(logging.NewNop())
	if _, err := c.Compress(graph.New(), Options{BudgetTokens: 10}); err == nil {
		t.Fatalf("expected error for rootless graph")
	}
}
