package slicer

import (
	"context"
	"os"
	"path/filepath"

	"ctxslice/internal/graph"
	"ctxslice/internal/parse"
	"ctxslice/internal/providers"
)

// ParserGuards extracts guard constraints at caller sites by parsing the
// surrounding source. Assignments and branch conditions both become part of
// the guard conjunction.
type ParserGuards struct {
	root   string
	parser *parse.Parser
}

// NewParserGuards returns a guard extractor rooted at the workspace root, or
// nil when no syntactic parser is built in.
func NewParserGuards(root string) *ParserGuards {
	if !parse.IsAvailable() {
		return nil
	}
	return &ParserGuards{root: root, parser: parse.NewParser()}
}

// GuardAt returns the constraints governing the given location. Unreadable or
// unparseable sources yield no constraints, which downstream treats as an
// unconditional edge.
func (g *ParserGuards) GuardAt(ctx context.Context, loc providers.Location) []graph.Constraint {
	lang, ok := parse.LanguageForPath(loc.File)
	if !ok {
		return nil
	}

	path := loc.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(g.root, path)
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	assignments, conditions := g.parser.Constraints(ctx, source, lang, loc.Line, loc.Column)
	return append(assignments, conditions...)
}
