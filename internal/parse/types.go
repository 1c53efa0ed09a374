package parse

import (
	"path/filepath"
	"strings"

	"ctxslice/internal/graph"
)

// Language identifies a supported source language.
type Language string

const (
	// LangGo is Go source
	LangGo Language = "go"
	// LangRust is Rust source
	LangRust Language = "rust"
)

// LanguageForPath maps a file path to a supported language.
func LanguageForPath(path string) (Language, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return LangGo, true
	case ".rs":
		return LangRust, true
	default:
		return "", false
	}
}

// Declaration is a declaration extracted from a syntax tree.
type Declaration struct {
	Name      string
	Kind      graph.NodeKind
	StartLine int // 0-indexed
	StartCol  int
	EndLine   int
	EndCol    int
	Signature string
	Doc       string
	Source    string
}

// NodeID returns the canonical graph identifier for the declaration.
func (d Declaration) NodeID(file string) graph.NodeID {
	return graph.MakeNodeID(file, d.StartLine, d.StartCol, d.Name)
}

// Span returns the declaration's source span.
func (d Declaration) Span(file string) graph.Span {
	return graph.Span{
		File:      file,
		StartLine: d.StartLine,
		StartCol:  d.StartCol,
		EndLine:   d.EndLine,
		EndCol:    d.EndCol,
	}
}
