// Package verify post-processes dependency graphs: it prunes edges whose
// guarding condition is provably unreachable, and certifies behavioral
// equivalence of slice variants. Both checks are best-effort; anything the
// solver cannot decide is kept conservatively.
package verify

import (
	"context"
	"math"

	"ctxslice/internal/graph"
)

// SatResult is the answer of a constraint solver adapter.
type SatResult int

const (
	// Unknown means the solver could not decide within its limits
	Unknown SatResult = iota
	// Sat means the predicate is satisfiable
	Sat
	// Unsat means the predicate is provably unsatisfiable
	Unsat
)

func (r SatResult) String() string {
	switch r {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		return "unknown"
	}
}

// Predicate is a conjunction of constraints in the supported fragment:
// linear integer arithmetic over literals and named variables.
type Predicate struct {
	Constraints []graph.Constraint
}

// Solver decides satisfiability of a predicate. Implementations outside the
// supported fragment must answer Unknown, never guess.
type Solver interface {
	Check(ctx context.Context, pred Predicate) (SatResult, error)
}

// IntervalSolver is the built-in solver adapter. It decides conjunctions of
// single-variable comparisons against integer literals by interval narrowing,
// folds literal-only comparisons, and answers Unknown for anything relating
// two distinct variables.
type IntervalSolver struct{}

// NewIntervalSolver creates the built-in solver.
func NewIntervalSolver() *IntervalSolver { return &IntervalSolver{} }

type interval struct {
	lo, hi int64
	neq    map[int64]bool
}

func newInterval() *interval {
	return &interval{lo: math.MinInt64, hi: math.MaxInt64, neq: make(map[int64]bool)}
}

// Check decides the predicate. A nil or empty predicate is trivially Sat.
func (s *IntervalSolver) Check(ctx context.Context, pred Predicate) (SatResult, error) {
	if err := ctx.Err(); err != nil {
		return Unknown, err
	}

	intervals := make(map[string]*interval)
	unknown := false

	for _, c := range pred.Constraints {
		switch {
		case c.Left.IsLit() && c.Right.IsLit():
			if !evalLiteral(c.Left.Value, c.Op, c.Right.Value) {
				return Unsat, nil
			}

		case !c.Left.IsLit() && c.Right.IsLit():
			iv := getInterval(intervals, c.Left.Var)
			if !narrow(iv, c.Op, c.Right.Value) {
				return Unsat, nil
			}

		case c.Left.IsLit() && !c.Right.IsLit():
			// Flip literal-first comparisons: 5 < x becomes x > 5.
			iv := getInterval(intervals, c.Right.Var)
			if !narrow(iv, flipOp(c.Op), c.Left.Value) {
				return Unsat, nil
			}

		default:
			if c.Left.Var == c.Right.Var {
				// x op x folds like a literal comparison with equal operands.
				if !evalLiteral(0, c.Op, 0) {
					return Unsat, nil
				}
				continue
			}
			// Two distinct variables are outside the supported fragment.
			unknown = true
		}
	}

	for _, iv := range intervals {
		if iv.lo > iv.hi {
			return Unsat, nil
		}
		if !hasWitness(iv) {
			return Unsat, nil
		}
	}

	if unknown {
		return Unknown, nil
	}
	return Sat, nil
}

func getInterval(m map[string]*interval, name string) *interval {
	iv, ok := m[name]
	if !ok {
		iv = newInterval()
		m[name] = iv
	}
	return iv
}

// narrow applies one comparison to an interval. Returns false when the
// interval becomes empty on the spot.
func narrow(iv *interval, op string, v int64) bool {
	switch op {
	case "<":
		if v == math.MinInt64 {
			return false
		}
		iv.hi = min64(iv.hi, v-1)
	case "<=":
		iv.hi = min64(iv.hi, v)
	case ">":
		if v == math.MaxInt64 {
			return false
		}
		iv.lo = max64(iv.lo, v+1)
	case ">=":
		iv.lo = max64(iv.lo, v)
	case "==":
		iv.lo = max64(iv.lo, v)
		iv.hi = min64(iv.hi, v)
	case "!=":
		iv.neq[v] = true
	}
	return iv.lo <= iv.hi
}

// hasWitness reports whether the interval still contains a value not excluded
// by disequalities. The exhaustive scan is bounded; wider intervals always
// have a witness because neq is finite.
func hasWitness(iv *interval) bool {
	if len(iv.neq) == 0 {
		return true
	}
	width := uint64(iv.hi - iv.lo)
	if width >= uint64(len(iv.neq)) {
		return true
	}
	for v := iv.lo; ; v++ {
		if !iv.neq[v] {
			return true
		}
		if v == iv.hi {
			break
		}
	}
	return false
}

func evalLiteral(a int64, op string, b int64) bool {
	switch op {
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	case "==":
		return a == b
	case "!=":
		return a != b
	default:
		return true
	}
}

func flipOp(op string) string {
	switch op {
	case "<":
		return ">"
	case "<=":
		return ">="
	case ">":
		return "<"
	case ">=":
		return "<="
	default:
		return op
	}
}

// negate returns the complement of a constraint, staying in the fragment.
func negate(c graph.Constraint) graph.Constraint {
	neg := c
	switch c.Op {
	case "<":
		neg.Op = ">="
	case "<=":
		neg.Op = ">"
	case ">":
		neg.Op = "<="
	case ">=":
		neg.Op = "<"
	case "==":
		neg.Op = "!="
	case "!=":
		neg.Op = "=="
	}
	return neg
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
