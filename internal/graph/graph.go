// Package graph provides the dependency graph model shared by both
// graph-construction engines. The graph has no knowledge of how its
// edges were discovered; provenance and confidence are carried on the
// edges themselves.
package graph

import (
	"fmt"

	"ctxslice/internal/errors"
)

// NodeID is a stable, fully qualified node identifier, unique within a build.
// The canonical form is "file:line:col#name".
type NodeID string

// MakeNodeID builds the canonical identifier for a definition site.
func MakeNodeID(file string, line, col int, name string) NodeID {
	return NodeID(fmt.Sprintf("%s:%d:%d#%s", file, line, col, name))
}

// NodeKind classifies the code entity a node represents.
type NodeKind string

const (
	// NodeFunction is a function or method
	NodeFunction NodeKind = "function"
	// NodeType is a struct, interface, enum or type alias
	NodeType NodeKind = "type"
	// NodeConstant is a constant or static value
	NodeConstant NodeKind = "constant"
	// NodeModule is a module or package
	NodeModule NodeKind = "module"
	// NodeTest is a test entity
	NodeTest NodeKind = "test"
)

// Span locates a node in source.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

// Node is a code entity. Nodes are immutable once created; AddNode re-uses
// an existing node when the same identifier is observed again.
type Node struct {
	ID   NodeID   `json:"id"`
	Kind NodeKind `json:"kind"`
	Name string   `json:"name"`
	Span Span     `json:"span"`

	// Source is the full rendered body, Signature the declaration line(s)
	// with parameter and return types, Doc the attached documentation.
	Source    string `json:"source,omitempty"`
	Signature string `json:"signature,omitempty"`
	Doc       string `json:"doc,omitempty"`

	// Confidence is 1.0 for exactly resolved nodes, provider-reported otherwise.
	Confidence float64 `json:"confidence"`
}

// EdgeKind is the typed relation between two nodes.
type EdgeKind string

const (
	// EdgeDefines relates a symbol to a type it defines or depends on structurally
	EdgeDefines EdgeKind = "defines"
	// EdgeCalls relates a caller to a callee
	EdgeCalls EdgeKind = "calls"
	// EdgeReads relates a reader to the symbol it reads
	EdgeReads EdgeKind = "reads"
	// EdgeWrites relates a writer to the symbol it writes
	EdgeWrites EdgeKind = "writes"
	// EdgeImplements relates a type to an interface it implements
	EdgeImplements EdgeKind = "implements"
	// EdgeImports relates a module to a module it imports
	EdgeImports EdgeKind = "imports"
	// EdgeTests relates a test to the entity it exercises
	EdgeTests EdgeKind = "tests"
)

// Tier drives compression policy per edge kind.
type Tier int

const (
	// TierDirect targets should be rendered in full, budget permitting
	TierDirect Tier = iota
	// TierTransitive targets default to interface-only rendering
	TierTransitive
	// TierContextual targets are excluded unless explicitly requested
	TierContextual
)

// Tier returns the compression tier for the edge kind.
func (k EdgeKind) Tier() Tier {
	switch k {
	case EdgeDefines, EdgeCalls, EdgeReads, EdgeWrites:
		return TierDirect
	case EdgeImplements, EdgeImports:
		return TierTransitive
	default:
		return TierContextual
	}
}

// edgeKindPriority orders edge kinds for deterministic traversal.
// Lower value wins: defines > calls > reads/writes > implements > imports > tests.
var edgeKindPriority = map[EdgeKind]int{
	EdgeDefines:    0,
	EdgeCalls:      1,
	EdgeReads:      2,
	EdgeWrites:     2,
	EdgeImplements: 3,
	EdgeImports:    4,
	EdgeTests:      5,
}

// Priority returns the traversal priority of the edge kind (lower wins).
func (k EdgeKind) Priority() int {
	if p, ok := edgeKindPriority[k]; ok {
		return p
	}
	return len(edgeKindPriority)
}

// Provenance records how an edge was discovered.
type Provenance string

const (
	// ProvenanceExact marks compiler-grade edges from the symbol resolution provider
	ProvenanceExact Provenance = "exact"
	// ProvenanceInferred marks confidence-weighted edges from the inference service
	ProvenanceInferred Provenance = "inferred"
)

// Term is one side of a guard constraint: a named integer variable, or a
// literal when Var is empty.
type Term struct {
	Var   string `json:"var,omitempty"`
	Value int64  `json:"value"`
}

// Lit builds a literal term.
func Lit(v int64) Term { return Term{Value: v} }

// Var builds a variable term.
func Var(name string) Term { return Term{Var: name} }

// IsLit reports whether the term is a literal.
func (t Term) IsLit() bool { return t.Var == "" }

// Constraint is a single comparison in the linear-integer fragment the
// solver adapter supports. A guard is a conjunction of constraints.
type Constraint struct {
	Left  Term   `json:"left"`
	Op    string `json:"op"` // one of < <= > >= == !=
	Right Term   `json:"right"`
}

// Edge is a directed, typed relation between two node identifiers.
type Edge struct {
	From       NodeID     `json:"from"`
	To         NodeID     `json:"to"`
	Kind       EdgeKind   `json:"kind"`
	Confidence float64    `json:"confidence"`
	Provenance Provenance `json:"provenance"`

	// Guard holds the conjunction of constraints gating this edge, when the
	// edge is conditional control flow. Empty for unconditional edges.
	Guard []Constraint `json:"guard,omitempty"`
}

type edgeKey struct {
	from NodeID
	to   NodeID
	kind EdgeKind
}

// Direction selects incoming or outgoing edges in Neighbors.
type Direction int

const (
	// Outgoing selects edges leaving a node
	Outgoing Direction = iota
	// Incoming selects edges arriving at a node
	Incoming
)

// Graph is a dependency graph: a flat arena of nodes indexed by identifier
// plus an ordered edge list. Cycles are representable; exactly one node is
// the designated root. A single Graph is owned by one request and is not
// safe for concurrent mutation.
type Graph struct {
	nodes     map[NodeID]*Node
	nodeOrder []NodeID
	edges     []Edge
	out       map[NodeID][]int
	in        map[NodeID][]int
	edgeIdx   map[edgeKey]int
	root      NodeID
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:   make(map[NodeID]*Node),
		out:     make(map[NodeID][]int),
		in:      make(map[NodeID][]int),
		edgeIdx: make(map[edgeKey]int),
	}
}

// SetRoot designates the target node. The node must already exist.
func (g *Graph) SetRoot(id NodeID) error {
	if _, ok := g.nodes[id]; !ok {
		return errors.Newf(errors.DanglingEdge, "root %s is not a node in the graph", id)
	}
	g.root = id
	return nil
}

// Root returns the designated root node, or nil if none is set.
func (g *Graph) Root() *Node {
	if g.root == "" {
		return nil
	}
	return g.nodes[g.root]
}

// RootID returns the designated root identifier.
func (g *Graph) RootID() NodeID { return g.root }

// AddNode upserts a node keyed by identifier. When a duplicate identifier is
// observed the highest-confidence version wins; the node is never duplicated.
func (g *Graph) AddNode(n Node) {
	if existing, ok := g.nodes[n.ID]; ok {
		if n.Confidence > existing.Confidence {
			*existing = n
		}
		return
	}
	stored := n
	g.nodes[n.ID] = &stored
	g.nodeOrder = append(g.nodeOrder, n.ID)
}

// Node returns the node with the given identifier.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	result := make([]*Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		result = append(result, g.nodes[id])
	}
	return result
}

// NumNodes returns the node count.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumEdges returns the edge count.
func (g *Graph) NumEdges() int { return len(g.edges) }

// AddEdge appends an edge. Both endpoints must exist; otherwise the edge is
// rejected with DanglingEdge. Duplicate edges of the same (from, to, kind)
// are deduplicated keeping the max confidence.
func (g *Graph) AddEdge(e Edge) error {
	if _, ok := g.nodes[e.From]; !ok {
		return errors.Newf(errors.DanglingEdge, "edge %s -> %s (%s): source node absent", e.From, e.To, e.Kind)
	}
	if _, ok := g.nodes[e.To]; !ok {
		return errors.Newf(errors.DanglingEdge, "edge %s -> %s (%s): target node absent", e.From, e.To, e.Kind)
	}

	key := edgeKey{from: e.From, to: e.To, kind: e.Kind}
	if idx, ok := g.edgeIdx[key]; ok {
		if e.Confidence > g.edges[idx].Confidence {
			// Keep the higher-confidence instance; never sum or average.
			g.edges[idx].Confidence = e.Confidence
			g.edges[idx].Provenance = e.Provenance
			if len(e.Guard) > 0 {
				g.edges[idx].Guard = e.Guard
			}
		}
		return nil
	}

	idx := len(g.edges)
	g.edges = append(g.edges, e)
	g.edgeIdx[key] = idx
	g.out[e.From] = append(g.out[e.From], idx)
	g.in[e.To] = append(g.in[e.To], idx)
	return nil
}

// Edges returns all edges in insertion order. The returned slice is shared;
// callers must not mutate it.
func (g *Graph) Edges() []Edge { return g.edges }

// Neighbors returns the outgoing or incoming edges of a node, in insertion order.
func (g *Graph) Neighbors(id NodeID, dir Direction) []Edge {
	var idxs []int
	if dir == Outgoing {
		idxs = g.out[id]
	} else {
		idxs = g.in[id]
	}

	result := make([]Edge, 0, len(idxs))
	for _, i := range idxs {
		result = append(result, g.edges[i])
	}
	return result
}

// Stats summarizes a graph for observability.
type Stats struct {
	Nodes         int `json:"nodes"`
	Edges         int `json:"edges"`
	ExactEdges    int `json:"exactEdges"`
	InferredEdges int `json:"inferredEdges"`
	GuardedEdges  int `json:"guardedEdges"`
}

// Stats returns summary statistics.
func (g *Graph) Stats() Stats {
	s := Stats{Nodes: len(g.nodes), Edges: len(g.edges)}
	for _, e := range g.edges {
		switch e.Provenance {
		case ProvenanceExact:
			s.ExactEdges++
		case ProvenanceInferred:
			s.InferredEdges++
		}
		if len(e.Guard) > 0 {
			s.GuardedEdges++
		}
	}
	return s
}
