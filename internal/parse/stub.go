//go:build !cgo

// Package parse provides resilient tree-sitter parsing for the inferred path.
// This stub is used when CGO is not available; the inferred engine degrades
// to reporting InferenceUnavailable.
package parse

import (
	"context"

	"ctxslice/internal/graph"
)

// Parser is a stub when CGO is not available.
type Parser struct{}

// NewParser creates a stub parser.
func NewParser() *Parser { return &Parser{} }

// IsAvailable returns whether tree-sitter parsing is available.
func IsAvailable() bool { return false }

// EnclosingDeclaration always reports no declaration without CGO.
func (p *Parser) EnclosingDeclaration(ctx context.Context, source []byte, lang Language, line, col int) (*Declaration, bool) {
	return nil, false
}

// FileDeclarations always returns nothing without CGO.
func (p *Parser) FileDeclarations(ctx context.Context, source []byte, lang Language) []Declaration {
	return nil
}

// Constraints always returns nothing without CGO.
func (p *Parser) Constraints(ctx context.Context, source []byte, lang Language, line, col int) (assignments, conditions []graph.Constraint) {
	return nil, nil
}
