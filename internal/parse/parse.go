//go:build cgo

// Package parse provides resilient tree-sitter parsing for the inferred path:
// enclosing-declaration extraction from possibly non-compiling source,
// interface summaries, workspace symbol scans and guard-constraint extraction.
package parse

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/rust"

	"ctxslice/internal/graph"
)

// Parser wraps per-language tree-sitter parsers. Parsing never fails: broken
// regions become ERROR nodes and the surrounding tree stays usable.
type Parser struct {
	parsers map[Language]*sitter.Parser
}

// NewParser creates a parser for all supported languages.
func NewParser() *Parser {
	goParser := sitter.NewParser()
	goParser.SetLanguage(golang.GetLanguage())

	rustParser := sitter.NewParser()
	rustParser.SetLanguage(rust.GetLanguage())

	return &Parser{
		parsers: map[Language]*sitter.Parser{
			LangGo:   goParser,
			LangRust: rustParser,
		},
	}
}

// IsAvailable returns whether tree-sitter parsing is available.
func IsAvailable() bool { return true }

func (p *Parser) parse(ctx context.Context, source []byte, lang Language) (*sitter.Tree, error) {
	parser, ok := p.parsers[lang]
	if !ok {
		return nil, nil
	}
	return parser.ParseCtx(ctx, nil, source)
}

// declarationKinds maps tree-sitter node types to node kinds, per language.
func declarationKinds(lang Language) map[string]graph.NodeKind {
	switch lang {
	case LangGo:
		return map[string]graph.NodeKind{
			"function_declaration": graph.NodeFunction,
			"method_declaration":   graph.NodeFunction,
			"type_declaration":     graph.NodeType,
			"const_declaration":    graph.NodeConstant,
		}
	case LangRust:
		return map[string]graph.NodeKind{
			"function_item":    graph.NodeFunction,
			"struct_item":      graph.NodeType,
			"enum_item":        graph.NodeType,
			"trait_item":       graph.NodeType,
			"impl_item":        graph.NodeType,
			"const_item":       graph.NodeConstant,
			"mod_item":         graph.NodeModule,
			"macro_definition": graph.NodeFunction,
		}
	default:
		return nil
	}
}

// EnclosingDeclaration locates the smallest declaration enclosing the given
// 0-indexed position. Works on partial trees from non-compiling source.
func (p *Parser) EnclosingDeclaration(ctx context.Context, source []byte, lang Language, line, col int) (*Declaration, bool) {
	tree, err := p.parse(ctx, source, lang)
	if err != nil || tree == nil {
		return nil, false
	}
	defer tree.Close()

	point := sitter.Point{Row: uint32(line), Column: uint32(col)}
	node := tree.RootNode().NamedDescendantForPointRange(point, point)
	if node == nil {
		return nil, false
	}

	kinds := declarationKinds(lang)
	for n := node; n != nil; n = n.Parent() {
		if kind, ok := kinds[n.Type()]; ok {
			decl := p.declarationFrom(n, source, lang, kind)
			return &decl, true
		}
	}
	return nil, false
}

// FileDeclarations scans a file's top-level declarations. Used by the
// workspace symbol scan that backs the inferred path.
func (p *Parser) FileDeclarations(ctx context.Context, source []byte, lang Language) []Declaration {
	tree, err := p.parse(ctx, source, lang)
	if err != nil || tree == nil {
		return nil
	}
	defer tree.Close()

	kinds := declarationKinds(lang)
	root := tree.RootNode()

	var decls []Declaration
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child == nil {
			continue
		}
		kind, ok := kinds[child.Type()]
		if !ok {
			continue
		}
		decls = append(decls, p.declarationFrom(child, source, lang, kind))
	}
	return decls
}

func (p *Parser) declarationFrom(node *sitter.Node, source []byte, lang Language, kind graph.NodeKind) Declaration {
	return Declaration{
		Name:      declarationName(node, source, lang),
		Kind:      kind,
		StartLine: int(node.StartPoint().Row),
		StartCol:  int(node.StartPoint().Column),
		EndLine:   int(node.EndPoint().Row),
		EndCol:    int(node.EndPoint().Column),
		Signature: signatureOf(node, source),
		Doc:       docOf(node, source),
		Source:    node.Content(source),
	}
}

// declarationName extracts the declared name from a declaration node.
func declarationName(node *sitter.Node, source []byte, lang Language) string {
	if name := node.ChildByFieldName("name"); name != nil {
		return name.Content(source)
	}

	switch node.Type() {
	case "type_declaration":
		// Go: type_declaration wraps type_spec which carries the name
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child != nil && child.Type() == "type_spec" {
				if name := child.ChildByFieldName("name"); name != nil {
					return name.Content(source)
				}
			}
		}
	case "const_declaration":
		// Go: first const_spec name
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child != nil && child.Type() == "const_spec" {
				if name := child.ChildByFieldName("name"); name != nil {
					return name.Content(source)
				}
			}
		}
	case "impl_item":
		// Rust: name the implemented type
		if typ := node.ChildByFieldName("type"); typ != nil {
			return typ.Content(source)
		}
	}
	return "<unknown>"
}

// signatureOf returns the declaration's first line up to the opening brace,
// preserving parameter and return types.
func signatureOf(node *sitter.Node, source []byte) string {
	text := node.Content(source)
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' || text[i] == '{' {
			return strings.TrimSpace(text[:i])
		}
	}
	if len(text) < 200 {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[:200]) + "..."
}

// docOf collects the contiguous comment block immediately above a declaration.
func docOf(node *sitter.Node, source []byte) string {
	var lines []string
	expected := int(node.StartPoint().Row)

	for prev := node.PrevNamedSibling(); prev != nil; prev = prev.PrevNamedSibling() {
		t := prev.Type()
		if t != "comment" && t != "line_comment" && t != "block_comment" {
			break
		}
		if int(prev.EndPoint().Row) < expected-1 {
			break
		}
		expected = int(prev.StartPoint().Row)
		lines = append([]string{prev.Content(source)}, lines...)
	}
	return strings.Join(lines, "\n")
}
