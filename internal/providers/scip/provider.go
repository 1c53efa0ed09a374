package scip

import (
	"context"
	"strings"
	"sync"

	"ctxslice/internal/errors"
	"ctxslice/internal/graph"
	"ctxslice/internal/logging"
	"ctxslice/internal/providers"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
)

// Provider answers symbol queries and compilation-state checks from a loaded
// SCIP index. It is safe for concurrent use; the index itself is read-only.
type Provider struct {
	index  *Index
	logger *logging.Logger

	mu         sync.Mutex
	nodeSymbol map[graph.NodeID]string
}

// NewProvider wraps an index.
func NewProvider(index *Index, logger *logging.Logger) *Provider {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Provider{
		index:      index,
		logger:     logger,
		nodeSymbol: make(map[graph.NodeID]string),
	}
}

// Define resolves the defining node for the symbol at a location.
func (p *Provider) Define(ctx context.Context, loc providers.Location) (*graph.Node, error) {
	doc := p.index.document(loc.File)
	if doc == nil {
		return nil, errors.Newf(errors.SymbolNotFound, "file %s is not in the index", loc.File)
	}

	occ := p.index.occurrenceAt(doc, loc.Line, loc.Column)
	if occ == nil {
		return nil, errors.Newf(errors.SymbolNotFound, "no symbol at %s", loc)
	}

	def, ok := p.index.defs[occ.Symbol]
	if !ok {
		return nil, errors.Newf(errors.SymbolNotFound, "no local definition for %s", occ.Symbol)
	}
	return p.nodeFor(def), nil
}

// nodeFor materializes a graph node from a defining occurrence, remembering
// the node-to-symbol mapping for later queries against the same node.
func (p *Provider) nodeFor(def occRef) *graph.Node {
	startLine, startCol, endLine, endCol := decodeRange(def.occ.Range)
	if len(def.occ.EnclosingRange) > 0 {
		startLine, startCol, endLine, endCol = decodeRange(def.occ.EnclosingRange)
	}

	name := p.index.displayName(def.occ.Symbol)
	source := p.index.sourceSlice(def.doc.RelativePath, startLine, endLine)

	node := &graph.Node{
		ID:   graph.MakeNodeID(def.doc.RelativePath, startLine, startCol, name),
		Kind: nodeKind(def.occ.Symbol),
		Name: name,
		Span: graph.Span{
			File:      def.doc.RelativePath,
			StartLine: startLine,
			StartCol:  startCol,
			EndLine:   endLine,
			EndCol:    endCol,
		},
		Source:     source,
		Signature:  signatureOf(source),
		Doc:        p.index.documentation(def.occ.Symbol),
		Confidence: 1.0,
	}

	p.mu.Lock()
	p.nodeSymbol[node.ID] = def.occ.Symbol
	p.mu.Unlock()
	return node
}

func nodeKind(symbol string) graph.NodeKind {
	switch {
	case isFunctionSymbol(symbol):
		return graph.NodeFunction
	case isTypeSymbol(symbol):
		return graph.NodeType
	default:
		return graph.NodeConstant
	}
}

// signatureOf keeps the declaration head of a source body.
func signatureOf(source string) string {
	if source == "" {
		return ""
	}
	line := source
	if i := strings.IndexByte(source, '\n'); i >= 0 {
		line = source[:i]
	}
	if i := strings.Index(line, " {"); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

// References returns every non-definition occurrence of the node's symbol,
// classified by the access role recorded at the site.
func (p *Provider) References(ctx context.Context, node *graph.Node) ([]providers.ReferenceSite, error) {
	symbol, err := p.symbolFor(node)
	if err != nil {
		return nil, err
	}

	var sites []providers.ReferenceSite
	for _, doc := range p.index.docs {
		for _, occ := range doc.Occurrences {
			if occ.Symbol != symbol {
				continue
			}
			if occ.SymbolRoles&int32(scippb.SymbolRole_Definition) != 0 {
				continue
			}
			line, col, _, _ := decodeRange(occ.Range)
			sites = append(sites, providers.ReferenceSite{
				Location: providers.Location{File: doc.RelativePath, Line: line, Column: col},
				Kind:     accessKind(occ.SymbolRoles, symbol),
			})
		}
	}
	return sites, nil
}

// accessKind maps SCIP symbol roles onto edge kinds. Plain occurrences of a
// function symbol are call sites.
func accessKind(roles int32, symbol string) graph.EdgeKind {
	switch {
	case roles&int32(scippb.SymbolRole_WriteAccess) != 0:
		return graph.EdgeWrites
	case roles&int32(scippb.SymbolRole_ReadAccess) != 0:
		return graph.EdgeReads
	case isFunctionSymbol(symbol):
		return graph.EdgeCalls
	default:
		return graph.EdgeReads
	}
}

// OutgoingCalls returns the locally defined functions referenced inside the
// node's span.
func (p *Provider) OutgoingCalls(ctx context.Context, node *graph.Node) ([]*graph.Node, error) {
	symbol, err := p.symbolFor(node)
	if err != nil {
		return nil, err
	}

	doc := p.index.document(node.Span.File)
	if doc == nil {
		return nil, nil
	}

	var callees []*graph.Node
	seen := make(map[string]bool)
	for _, occ := range doc.Occurrences {
		line, _, _, _ := decodeRange(occ.Range)
		if line < node.Span.StartLine || line > node.Span.EndLine {
			continue
		}
		if occ.Symbol == symbol || seen[occ.Symbol] {
			continue
		}
		if occ.SymbolRoles&int32(scippb.SymbolRole_Definition) != 0 {
			continue
		}
		if !isFunctionSymbol(occ.Symbol) {
			continue
		}
		def, ok := p.index.defs[occ.Symbol]
		if !ok {
			continue
		}
		seen[occ.Symbol] = true
		callees = append(callees, p.nodeFor(def))
	}
	return callees, nil
}

// Hover returns type information for the symbol at a location. For a
// definition site it also reports the types occurring on the signature line,
// which the exact builder turns into defines edges.
func (p *Provider) Hover(ctx context.Context, loc providers.Location) (*providers.TypeInfo, error) {
	doc := p.index.document(loc.File)
	if doc == nil {
		return nil, errors.Newf(errors.SymbolNotFound, "file %s is not in the index", loc.File)
	}
	occ := p.index.occurrenceAt(doc, loc.Line, loc.Column)
	if occ == nil {
		return nil, errors.Newf(errors.SymbolNotFound, "no symbol at %s", loc)
	}

	info := &providers.TypeInfo{
		Name:          p.index.displayName(occ.Symbol),
		Documentation: p.index.documentation(occ.Symbol),
	}
	if def, ok := p.index.defs[occ.Symbol]; ok {
		line, col, _, _ := decodeRange(def.occ.Range)
		info.Definition = &providers.Location{File: def.doc.RelativePath, Line: line, Column: col}
	}

	if occ.SymbolRoles&int32(scippb.SymbolRole_Definition) != 0 {
		info.SignatureTypes = p.signatureTypes(doc, occ)
	}
	return info, nil
}

// signatureTypes collects the locally defined type symbols occurring on the
// definition's first line.
func (p *Provider) signatureTypes(doc *scippb.Document, def *scippb.Occurrence) []providers.TypeInfo {
	defLine, _, _, _ := decodeRange(def.Range)

	var types []providers.TypeInfo
	seen := make(map[string]bool)
	for _, occ := range doc.Occurrences {
		line, _, _, _ := decodeRange(occ.Range)
		if line != defLine || occ.Symbol == def.Symbol || seen[occ.Symbol] {
			continue
		}
		if !isTypeSymbol(occ.Symbol) {
			continue
		}
		typeDef, ok := p.index.defs[occ.Symbol]
		if !ok {
			continue
		}
		seen[occ.Symbol] = true
		tLine, tCol, _, _ := decodeRange(typeDef.occ.Range)
		types = append(types, providers.TypeInfo{
			Name:       p.index.displayName(occ.Symbol),
			Definition: &providers.Location{File: typeDef.doc.RelativePath, Line: tLine, Column: tCol},
		})
	}
	return types
}

// symbolFor recovers the SCIP symbol behind a node, re-resolving from the
// node's span when the node was not built by this provider.
func (p *Provider) symbolFor(node *graph.Node) (string, error) {
	p.mu.Lock()
	symbol, ok := p.nodeSymbol[node.ID]
	p.mu.Unlock()
	if ok {
		return symbol, nil
	}

	doc := p.index.document(node.Span.File)
	if doc == nil {
		return "", errors.Newf(errors.SymbolNotFound, "file %s is not in the index", node.Span.File)
	}
	for _, occ := range doc.Occurrences {
		if occ.SymbolRoles&int32(scippb.SymbolRole_Definition) == 0 {
			continue
		}
		line, col, _, _ := decodeRange(occ.Range)
		if len(occ.EnclosingRange) > 0 {
			line, col, _, _ = decodeRange(occ.EnclosingRange)
		}
		if line == node.Span.StartLine && col == node.Span.StartCol {
			return occ.Symbol, nil
		}
	}
	return "", errors.Newf(errors.SymbolNotFound, "no symbol for node %s", node.ID)
}

// State reports the compilation state of a file from the diagnostics the
// indexer recorded: any error makes it red, any warning yellow, otherwise
// green. A file missing from the index is red; exact resolution cannot help
// there.
func (p *Provider) State(ctx context.Context, file string) (providers.CompileState, error) {
	doc := p.index.document(file)
	if doc == nil {
		return providers.StateRed, nil
	}

	state := providers.StateGreen
	for _, occ := range doc.Occurrences {
		for _, diag := range occ.Diagnostics {
			switch diag.Severity {
			case scippb.Severity_Error:
				return providers.StateRed, nil
			case scippb.Severity_Warning:
				state = providers.StateYellow
			}
		}
	}
	return state, nil
}
