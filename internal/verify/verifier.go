package verify

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ctxslice/internal/graph"
	"ctxslice/internal/logging"
)

// DefaultSolverTimeout bounds each solver call.
const DefaultSolverTimeout = 2 * time.Second

// Verifier runs the optional post-build checks over a dependency graph.
type Verifier struct {
	solver  Solver
	timeout time.Duration
	logger  *logging.Logger
}

// NewVerifier creates a verifier around a solver adapter.
func NewVerifier(solver Solver, timeout time.Duration, logger *logging.Logger) *Verifier {
	if solver == nil {
		solver = NewIntervalSolver()
	}
	if timeout <= 0 {
		timeout = DefaultSolverTimeout
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Verifier{solver: solver, timeout: timeout, logger: logger}
}

// PruneReport summarizes a reachability-pruning pass.
type PruneReport struct {
	PrunedEdges   int `json:"prunedEdges"`
	RemovedNodes  int `json:"removedNodes"`
	UnknownGuards int `json:"unknownGuards"`
}

// PruneUnreachable removes every edge whose guard is provably unsatisfiable,
// together with the subgraph reachable only through it, so pruned code never
// consumes budget. Guards the solver cannot decide (unknown, unsupported,
// timeout) keep their edges conservatively.
func (v *Verifier) PruneUnreachable(ctx context.Context, g *graph.Graph) (*graph.Graph, PruneReport) {
	report := PruneReport{}
	if g.Root() == nil {
		return g, report
	}

	pruned := make(map[int]bool)
	for i, e := range g.Edges() {
		if len(e.Guard) == 0 {
			continue
		}

		result := v.checkGuard(ctx, e.Guard)
		switch result {
		case Unsat:
			pruned[i] = true
			report.PrunedEdges++
			v.logger.Debug("Pruned unreachable edge", map[string]interface{}{
				"from": e.From,
				"to":   e.To,
				"kind": e.Kind,
			})
		case Unknown:
			report.UnknownGuards++
		}
	}

	if report.PrunedEdges == 0 {
		return g, report
	}

	rebuilt := rebuildWithout(g, pruned)
	report.RemovedNodes = g.NumNodes() - rebuilt.NumNodes()
	return rebuilt, report
}

// checkGuard runs one bounded solver call. Errors and timeouts degrade to
// Unknown, never to a hard failure.
func (v *Verifier) checkGuard(ctx context.Context, guard []graph.Constraint) SatResult {
	callCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	result, err := v.solver.Check(callCtx, Predicate{Constraints: guard})
	if err != nil {
		v.logger.Warn("Solver call failed, keeping edge", map[string]interface{}{
			"error": err.Error(),
		})
		return Unknown
	}
	return result
}

// rebuildWithout reconstructs the graph keeping only nodes reachable from the
// root over non-pruned edges, preserving insertion order. The root survives
// unconditionally.
func rebuildWithout(g *graph.Graph, pruned map[int]bool) *graph.Graph {
	reachable := map[graph.NodeID]bool{g.RootID(): true}
	queue := []graph.NodeID{g.RootID()}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for i, e := range g.Edges() {
			if pruned[i] || e.From != id || reachable[e.To] {
				continue
			}
			reachable[e.To] = true
			queue = append(queue, e.To)
		}
	}

	out := graph.New()
	for _, n := range g.Nodes() {
		if reachable[n.ID] {
			out.AddNode(*n)
		}
	}
	for i, e := range g.Edges() {
		if pruned[i] || !reachable[e.From] || !reachable[e.To] {
			continue
		}
		// Endpoints are present by construction; an error here is a defect.
		if err := out.AddEdge(e); err != nil {
			panic(fmt.Sprintf("rebuild produced dangling edge: %v", err))
		}
	}
	if err := out.SetRoot(g.RootID()); err != nil {
		panic(fmt.Sprintf("rebuild lost the root: %v", err))
	}
	return out
}

// EquivalenceStatus classifies an equivalence certification outcome.
type EquivalenceStatus string

const (
	// Proven means the solver certified the predicate pairs equivalent
	Proven EquivalenceStatus = "proven"
	// UnknownEquivalence means the solver could not decide; a heuristic
	// confidence estimate accompanies the result
	UnknownEquivalence EquivalenceStatus = "unknown"
	// Failed means predicates could not be extracted or aligned at all
	Failed EquivalenceStatus = "failed"
)

// EquivalenceResult is advisory metadata attached to a slice; it never blocks
// slice production.
type EquivalenceResult struct {
	Status     EquivalenceStatus `json:"status"`
	Confidence float64           `json:"confidence"`
}

// CertifyEquivalence compares predicates extracted from corresponding control
// points of an original and a modified slice. Pairs align by position.
func (v *Verifier) CertifyEquivalence(ctx context.Context, original, modified []Predicate) EquivalenceResult {
	if len(original) == 0 && len(modified) == 0 {
		return EquivalenceResult{Status: Failed}
	}
	if len(original) != len(modified) {
		return EquivalenceResult{Status: Failed}
	}

	proven := true
	for i := range original {
		switch v.checkPairEquivalent(ctx, original[i], modified[i]) {
		case Sat:
			// A counterexample exists; fall back to the heuristic estimate.
			proven = false
		case Unknown:
			proven = false
		}
		if !proven {
			break
		}
	}

	if proven {
		return EquivalenceResult{Status: Proven, Confidence: 1.0}
	}
	return EquivalenceResult{
		Status:     UnknownEquivalence,
		Confidence: predicateSimilarity(original, modified),
	}
}

// checkPairEquivalent decides A == B for two conjunctions. A and B are
// equivalent iff A AND (NOT b) is unsat for every b in B, and symmetrically.
// Negating a single comparison stays inside the solver fragment.
func (v *Verifier) checkPairEquivalent(ctx context.Context, a, b Predicate) SatResult {
	directions := []struct {
		base  Predicate
		other Predicate
	}{
		{a, b},
		{b, a},
	}

	for _, d := range directions {
		for _, c := range d.other.Constraints {
			combined := Predicate{Constraints: append(append([]graph.Constraint{}, d.base.Constraints...), negate(c))}
			result := v.checkGuard(ctx, combined.Constraints)
			if result != Unsat {
				return result
			}
		}
	}
	return Unsat // no counterexample in either direction
}

// predicateSimilarity is the fallback confidence estimate: Jaccard similarity
// of the normalized constraint sets.
func predicateSimilarity(a, b []Predicate) float64 {
	setA := constraintSet(a)
	setB := constraintSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	union := make(map[string]bool, len(setA)+len(setB))
	intersection := 0
	for s := range setA {
		union[s] = true
	}
	for s := range setB {
		if setA[s] {
			intersection++
		}
		union[s] = true
	}
	return float64(intersection) / float64(len(union))
}

func constraintSet(preds []Predicate) map[string]bool {
	set := make(map[string]bool)
	for _, p := range preds {
		keys := make([]string, 0, len(p.Constraints))
		for _, c := range p.Constraints {
			keys = append(keys, fmt.Sprintf("%s|%d|%s|%s|%d", c.Left.Var, c.Left.Value, c.Op, c.Right.Var, c.Right.Value))
		}
		sort.Strings(keys)
		for _, k := range keys {
			set[k] = true
		}
	}
	return set
}
