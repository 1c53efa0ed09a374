package compress

import "ctxslice/internal/graph"

// Level is the rendering fidelity assigned to a node in a slice. Levels are
// totally ordered by size and informativeness.
type Level int

const (
	// LevelReference preserves only the qualified name and location
	LevelReference Level = iota
	// LevelInterface preserves name, signature and attached documentation
	LevelInterface
	// LevelFull preserves the complete rendered body
	LevelFull
)

func (l Level) String() string {
	switch l {
	case LevelFull:
		return "full-source"
	case LevelInterface:
		return "interface-summary"
	default:
		return "reference-only"
	}
}

// demote returns the next level down. LevelReference has nowhere to go.
func (l Level) demote() (Level, bool) {
	if l == LevelReference {
		return l, false
	}
	return l - 1, true
}

// Entry is one node of a slice: the node, its assigned level, its BFS
// distance from the root, and the content rendered at that level.
type Entry struct {
	Node     *graph.Node `json:"node"`
	Level    Level       `json:"-"`
	LevelStr string      `json:"level"`
	Distance int         `json:"distance"`
	Content  string      `json:"content"`
}

// Slice is the bounded, budget-fitted subset of a dependency graph. It is
// immutable once the compressor returns it.
type Slice struct {
	// Entries are ordered by BFS discovery; the root is always first at
	// full-source.
	Entries []Entry `json:"entries"`

	// Manifest holds the edges connecting included nodes, retained for
	// explanation.
	Manifest []graph.Edge `json:"manifest"`

	Consumed int `json:"consumed"`
	Capacity int `json:"capacity"`

	// Demoted counts nodes included below their default level; Dropped
	// counts nodes excluded for budget reasons.
	Demoted int `json:"demoted"`
	Dropped int `json:"dropped"`
}

// Root returns the root entry. A slice always has at least one entry.
func (s *Slice) Root() *Entry {
	if len(s.Entries) == 0 {
		return nil
	}
	return &s.Entries[0]
}

// Contains reports whether the slice includes the node, and at which level.
func (s *Slice) Contains(id graph.NodeID) (Level, bool) {
	for i := range s.Entries {
		if s.Entries[i].Node.ID == id {
			return s.Entries[i].Level, true
		}
	}
	return LevelReference, false
}
