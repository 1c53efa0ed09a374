// Package compress computes bounded closures: given a dependency graph and a
// token budget, it decides which nodes make it into the slice and at what
// level of detail. Closeness to the root wins; budget pressure demotes and
// then drops, never truncates a node partially.
package compress

import (
	"fmt"
	"strings"

	"ctxslice/internal/graph"
	"ctxslice/internal/logging"
)

// DefaultBudgetTokens is used when a request does not specify a budget.
const DefaultBudgetTokens = 4000

// Options tune one closure pass.
type Options struct {
	// BudgetTokens is the context budget. Zero is a legal budget: only the
	// root survives it. Callers wanting a default apply DefaultBudgetTokens.
	BudgetTokens int

	// IncludeTests admits test-tier edges into the traversal.
	IncludeTests bool

	// Overrides force an inclusion level for nodes discovered via the given
	// edge kind, replacing the distance-based default.
	Overrides map[graph.EdgeKind]Level
}

// Compressor assembles slices from pruned graphs.
type Compressor struct {
	logger *logging.Logger
}

// NewCompressor creates a compressor.
func NewCompressor(logger *logging.Logger) *Compressor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Compressor{logger: logger}
}

// Compress runs the closure algorithm. The root is always included at
// full-source and charged against the budget unconditionally, even when it
// alone exceeds capacity. Every other node is included wholly at one level or
// not at all; the first budget-forced skip ends the traversal so that nothing
// farther from the root displaces anything closer.
func (c *Compressor) Compress(g *graph.Graph, opts Options) (*Slice, error) {
	root := g.Root()
	if root == nil {
		return nil, fmt.Errorf("compress: graph has no root")
	}

	budget := NewBudget(opts.BudgetTokens)

	visits := g.BFSFromWhere(g.RootID(), func(e graph.Edge) bool {
		if e.Kind.Tier() == graph.TierContextual {
			return opts.IncludeTests
		}
		return true
	})

	slice := &Slice{Capacity: budget.Capacity()}
	included := make(map[graph.NodeID]bool, len(visits))

	rootContent := renderAt(root, LevelFull)
	budget.Charge(EstimateTokens(rootContent))
	slice.Entries = append(slice.Entries, Entry{
		Node:     root,
		Level:    LevelFull,
		LevelStr: LevelFull.String(),
		Distance: 0,
		Content:  rootContent,
	})
	included[root.ID] = true

	for i, v := range visits {
		if v.Distance == 0 {
			continue
		}

		level := c.defaultLevel(v, opts.Overrides)
		content := renderAt(v.Node, level)
		demoted := false

		if !budget.Fits(EstimateTokens(content)) {
			lower, ok := level.demote()
			if ok {
				level = lower
				content = renderAt(v.Node, level)
				demoted = true
			}
			if !ok || !budget.Fits(EstimateTokens(content)) {
				// First skip ends the pass; everything ranked later is
				// farther from the root and must not jump the queue.
				slice.Dropped = len(visits) - i
				break
			}
		}

		budget.Charge(EstimateTokens(content))
		slice.Entries = append(slice.Entries, Entry{
			Node:     v.Node,
			Level:    level,
			LevelStr: level.String(),
			Distance: v.Distance,
			Content:  content,
		})
		included[v.Node.ID] = true
		if demoted {
			slice.Demoted++
		}
	}

	for _, e := range g.Edges() {
		if included[e.From] && included[e.To] {
			slice.Manifest = append(slice.Manifest, e)
		}
	}

	slice.Consumed = budget.Consumed()
	c.logger.Debug("Closure computed", map[string]interface{}{
		"nodes":    len(slice.Entries),
		"consumed": slice.Consumed,
		"capacity": slice.Capacity,
		"demoted":  slice.Demoted,
		"dropped":  slice.Dropped,
	})
	return slice, nil
}

// defaultLevel picks the inclusion level before budget pressure: distance one
// renders fully, distance two as an interface, anything farther as a bare
// reference. Transitive-tier discovery caps the level at interface-summary.
// An explicit per-kind override replaces all of that.
func (c *Compressor) defaultLevel(v graph.Visit, overrides map[graph.EdgeKind]Level) Level {
	if l, ok := overrides[v.Via]; ok {
		return l
	}

	var level Level
	switch {
	case v.Distance <= 1:
		level = LevelFull
	case v.Distance == 2:
		level = LevelInterface
	default:
		level = LevelReference
	}

	if v.Via.Tier() == graph.TierTransitive && level > LevelInterface {
		level = LevelInterface
	}
	return level
}

// renderAt produces the node content at an inclusion level. Interface
// rendering keeps the declared name, the full signature and any attached
// documentation, and omits the body.
func renderAt(n *graph.Node, level Level) string {
	switch level {
	case LevelFull:
		if n.Source != "" {
			return n.Source
		}
		return renderAt(n, LevelInterface)

	case LevelInterface:
		var b strings.Builder
		if n.Doc != "" {
			b.WriteString(n.Doc)
			if !strings.HasSuffix(n.Doc, "\n") {
				b.WriteByte('\n')
			}
		}
		if n.Signature != "" {
			b.WriteString(n.Signature)
		} else {
			b.WriteString(n.Name)
		}
		return b.String()

	default:
		return fmt.Sprintf("%s (%s:%d:%d)", n.Name, n.Span.File, n.Span.StartLine, n.Span.StartCol)
	}
}
