// Package scip adapts a SCIP index into the symbol resolution provider and
// the compilation-state check. The index gives compiler-grade occurrences;
// everything here is lookup, no inference.
package scip

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ctxslice/internal/errors"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"
)

// DefaultIndexPath is where indexers conventionally drop their output.
const DefaultIndexPath = "index.scip"

// Index is a loaded SCIP index with lookup structures for position and
// symbol queries.
type Index struct {
	root string

	docs    map[string]*scippb.Document
	defs    map[string]occRef
	symbols map[string]*scippb.SymbolInformation

	readFile func(string) ([]byte, error)
}

type occRef struct {
	doc *scippb.Document
	occ *scippb.Occurrence
}

// Load reads and parses a SCIP index file. root is the workspace directory
// the index's relative paths resolve against.
func Load(path, root string) (*Index, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.New(errors.IndexMissing,
			fmt.Sprintf("SCIP index not found at %s", path), err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.InternalError,
			fmt.Sprintf("failed to read SCIP index from %s", path), err)
	}

	var raw scippb.Index
	if err := proto.Unmarshal(data, &raw); err != nil {
		return nil, errors.New(errors.InternalError,
			fmt.Sprintf("failed to parse SCIP index from %s", path), err)
	}

	return FromProto(&raw, root), nil
}

// FromProto builds the lookup structures from an in-memory index.
func FromProto(raw *scippb.Index, root string) *Index {
	idx := &Index{
		root:     root,
		docs:     make(map[string]*scippb.Document),
		defs:     make(map[string]occRef),
		symbols:  make(map[string]*scippb.SymbolInformation),
		readFile: os.ReadFile,
	}

	for _, doc := range raw.Documents {
		idx.docs[doc.RelativePath] = doc
		for _, sym := range doc.Symbols {
			idx.symbols[sym.Symbol] = sym
		}
		for _, occ := range doc.Occurrences {
			if occ.SymbolRoles&int32(scippb.SymbolRole_Definition) != 0 {
				if _, seen := idx.defs[occ.Symbol]; !seen {
					idx.defs[occ.Symbol] = occRef{doc: doc, occ: occ}
				}
			}
		}
	}
	for _, sym := range raw.ExternalSymbols {
		if _, seen := idx.symbols[sym.Symbol]; !seen {
			idx.symbols[sym.Symbol] = sym
		}
	}
	return idx
}

// DocumentCount reports how many documents the index covers.
func (i *Index) DocumentCount() int { return len(i.docs) }

// document returns the indexed document for a path, accepting both relative
// and root-prefixed forms.
func (idx *Index) document(file string) *scippb.Document {
	if doc, ok := idx.docs[file]; ok {
		return doc
	}
	if idx.root != "" {
		if rel, err := filepath.Rel(idx.root, file); err == nil {
			if doc, ok := idx.docs[rel]; ok {
				return doc
			}
		}
	}
	return nil
}

// occurrenceAt finds the occurrence covering a 0-indexed position.
func (idx *Index) occurrenceAt(doc *scippb.Document, line, col int) *scippb.Occurrence {
	for _, occ := range doc.Occurrences {
		startLine, startCol, endLine, endCol := decodeRange(occ.Range)
		if line < startLine || line > endLine {
			continue
		}
		if line == startLine && col < startCol {
			continue
		}
		if line == endLine && col >= endCol {
			continue
		}
		return occ
	}
	return nil
}

// decodeRange unpacks a SCIP range. Three elements mean a single-line range.
func decodeRange(r []int32) (startLine, startCol, endLine, endCol int) {
	switch len(r) {
	case 3:
		return int(r[0]), int(r[1]), int(r[0]), int(r[2])
	case 4:
		return int(r[0]), int(r[1]), int(r[2]), int(r[3])
	default:
		return 0, 0, 0, 0
	}
}

// symbolKindSuffix classifies a symbol by its descriptor suffix per the SCIP
// grammar: "()." is a function or method, "#" a type, "." a term.
func isFunctionSymbol(symbol string) bool {
	return strings.HasSuffix(symbol, ").")
}

func isTypeSymbol(symbol string) bool {
	return strings.HasSuffix(symbol, "#")
}

// displayName returns the human name of a symbol, preferring the index's
// display name over the trailing descriptor.
func (idx *Index) displayName(symbol string) string {
	if info, ok := idx.symbols[symbol]; ok && info.DisplayName != "" {
		return info.DisplayName
	}
	return lastDescriptor(symbol)
}

func lastDescriptor(symbol string) string {
	trimmed := strings.TrimRight(symbol, "().#.")
	if i := strings.LastIndexAny(trimmed, "/.# `"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	return trimmed
}

func (idx *Index) documentation(symbol string) string {
	if info, ok := idx.symbols[symbol]; ok {
		return strings.Join(info.Documentation, "\n")
	}
	return ""
}

// sourceSlice reads the lines [startLine, endLine] of a workspace file.
func (idx *Index) sourceSlice(relPath string, startLine, endLine int) string {
	data, err := idx.readFile(filepath.Join(idx.root, relPath))
	if err != nil {
		return ""
	}
	lines := strings.Split(string(data), "\n")
	if startLine < 0 || startLine >= len(lines) {
		return ""
	}
	if endLine >= len(lines) {
		endLine = len(lines) - 1
	}
	return strings.Join(lines[startLine:endLine+1], "\n")
}
