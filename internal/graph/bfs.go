package graph

import "sort"

// Visit is one step of a breadth-first traversal. Via is the kind of the
// edge that first discovered the node; empty for the root.
type Visit struct {
	Node     *Node
	Distance int
	Via      EdgeKind
}

// BFSFrom produces (node, distance) pairs in breadth-first order starting at
// root, following outgoing edges. Each node is visited exactly once; the
// first-discovered distance wins. Sibling edges are expanded in edge-kind
// priority order, tie-broken by insertion order, so traversal order is
// deterministic for a fixed graph.
func (g *Graph) BFSFrom(root NodeID) []Visit {
	return g.BFSFromWhere(root, nil)
}

// BFSFromWhere is BFSFrom restricted to edges accepted by keep. A nil keep
// accepts every edge.
func (g *Graph) BFSFromWhere(root NodeID, keep func(Edge) bool) []Visit {
	start, ok := g.nodes[root]
	if !ok {
		return nil
	}

	visited := map[NodeID]bool{root: true}
	queue := []Visit{{Node: start, Distance: 0}}
	var result []Visit

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		result = append(result, current)

		for _, idx := range g.sortedOut(current.Node.ID) {
			e := g.edges[idx]
			if keep != nil && !keep(e) {
				continue
			}
			if visited[e.To] {
				continue
			}
			visited[e.To] = true
			queue = append(queue, Visit{Node: g.nodes[e.To], Distance: current.Distance + 1, Via: e.Kind})
		}
	}

	return result
}

// sortedOut returns the outgoing edge indices of a node ordered by edge-kind
// priority, then by insertion order.
func (g *Graph) sortedOut(id NodeID) []int {
	idxs := g.out[id]
	if len(idxs) < 2 {
		return idxs
	}

	sorted := make([]int, len(idxs))
	copy(sorted, idxs)
	sort.SliceStable(sorted, func(a, b int) bool {
		pa := g.edges[sorted[a]].Kind.Priority()
		pb := g.edges[sorted[b]].Kind.Priority()
		if pa != pb {
			return pa < pb
		}
		return sorted[a] < sorted[b]
	})
	return sorted
}
