//go:build cgo

package parse

import (
	"context"
	"strings"
	"testing"

	"ctxslice/internal/graph"
)

const goFixture = `package demo

// Add sums two ints.
// It never overflows in tests.
func Add(a, b int) int {
	return a + b
}

type Pair struct {
	X int
	Y int
}

const Limit = 42

func caller() int {
	return Add(1, 2)
}
`

func TestLanguageForPath(t *testing.T) {
	tests := []struct {
		path   string
		want   Language
		wantOk bool
	}{
		{"src/main.go", LangGo, true},
		{"src/lib.rs", LangRust, true},
		{"README.md", "", false},
		{"Makefile", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := LanguageForPath(tt.path)
			if got != tt.want || ok != tt.wantOk {
				t.Errorf("LanguageForPath(%q) = (%v, %v), want (%v, %v)", tt.path, got, ok, tt.want, tt.wantOk)
			}
		})
	}
}

func TestEnclosingDeclaration(t *testing.T) {
	p := NewParser()
	ctx := context.Background()

	// Line 5 (0-indexed) is "return a + b" inside Add.
	decl, ok := p.EnclosingDeclaration(ctx, []byte(goFixture), LangGo, 5, 4)
	if !ok {
		t.Fatalf("expected to find enclosing declaration")
	}
	if decl.Name != "Add" {
		t.Errorf("Name = %q, want Add", decl.Name)
	}
	if decl.Kind != graph.NodeFunction {
		t.Errorf("Kind = %v, want function", decl.Kind)
	}
	if !strings.Contains(decl.Signature, "func Add(a, b int) int") {
		t.Errorf("Signature = %q, want the full signature", decl.Signature)
	}
	if !strings.Contains(decl.Doc, "Add sums two ints") {
		t.Errorf("Doc = %q, want the attached comment", decl.Doc)
	}
	if !strings.Contains(decl.Source, "return a + b") {
		t.Errorf("Source should include the body, got %q", decl.Source)
	}
}

func TestEnclosingDeclaration_OutsideAnyDeclaration(t *testing.T) {
	p := NewParser()

	// Line 0 is the package clause.
	if _, ok := p.EnclosingDeclaration(context.Background(), []byte(goFixture), LangGo, 0, 0); ok {
		t.Errorf("package clause should not resolve to a declaration")
	}
}

func TestFileDeclarations(t *testing.T) {
	p := NewParser()

	decls := p.FileDeclarations(context.Background(), []byte(goFixture), LangGo)

	byName := map[string]Declaration{}
	for _, d := range decls {
		byName[d.Name] = d
	}

	tests := []struct {
		name string
		kind graph.NodeKind
	}{
		{"Add", graph.NodeFunction},
		{"Pair", graph.NodeType},
		{"Limit", graph.NodeConstant},
		{"caller", graph.NodeFunction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := byName[tt.name]
			if !ok {
				t.Fatalf("declaration %q not found, got %v", tt.name, decls)
			}
			if d.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", d.Kind, tt.kind)
			}
		})
	}
}

func TestFileDeclarations_ResilientToBrokenSource(t *testing.T) {
	broken := `package demo

func ok() int { return 1 }

func broken( {{{ garbage here

func alsoOK() int { return 2 }
`
	p := NewParser()
	decls := p.FileDeclarations(context.Background(), []byte(broken), LangGo)

	found := map[string]bool{}
	for _, d := range decls {
		found[d.Name] = true
	}
	if !found["ok"] {
		t.Errorf("healthy declaration before the error should survive, got %v", decls)
	}
}

func TestEnclosingDeclaration_Rust(t *testing.T) {
	rustSrc := `/// Doubles a value.
fn double(x: i32) -> i32 {
    x * 2
}
`
	p := NewParser()
	decl, ok := p.EnclosingDeclaration(context.Background(), []byte(rustSrc), LangRust, 2, 4)
	if !ok {
		t.Fatalf("expected to find enclosing declaration")
	}
	if decl.Name != "double" {
		t.Errorf("Name = %q, want double", decl.Name)
	}
	if decl.Kind != graph.NodeFunction {
		t.Errorf("Kind = %v, want function", decl.Kind)
	}
}
