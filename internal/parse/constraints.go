//go:build cgo

package parse

import (
	"context"
	"strconv"

	sitter "github.com/smacker/go-tree-sitter"

	"ctxslice/internal/graph"
)

// Constraints extracts the integer constraints that hold at a position:
// assignments of integer literals in enclosing blocks before the point, and
// the conditions of if-statements guarding the point. Both are returned as
// constraints in the solver's linear-integer fragment; anything else is
// silently skipped (the verifier keeps unguarded edges conservatively).
func (p *Parser) Constraints(ctx context.Context, source []byte, lang Language, line, col int) (assignments, conditions []graph.Constraint) {
	tree, err := p.parse(ctx, source, lang)
	if err != nil || tree == nil {
		return nil, nil
	}
	defer tree.Close()

	point := sitter.Point{Row: uint32(line), Column: uint32(col)}
	target := tree.RootNode().NamedDescendantForPointRange(point, point)
	if target == nil {
		return nil, nil
	}

	for curr := target; curr.Parent() != nil; curr = curr.Parent() {
		parent := curr.Parent()

		if parent.Type() == "block" {
			// Earlier siblings in the same block may pin variables to literals.
			for i := 0; i < int(parent.NamedChildCount()); i++ {
				child := parent.NamedChild(i)
				if child == nil || child.EndByte() > curr.StartByte() {
					continue
				}
				if c, ok := parseAssignment(child, source, lang); ok {
					assignments = append(assignments, c)
				}
			}
		}

		if isIfNode(parent.Type(), lang) {
			// Only conditions guarding the then-branch constrain the point.
			consequence := parent.ChildByFieldName("consequence")
			if consequence != nil &&
				consequence.StartByte() <= curr.StartByte() && curr.EndByte() <= consequence.EndByte() {
				if cond := parent.ChildByFieldName("condition"); cond != nil {
					if c, ok := parseCondition(cond, source, lang); ok {
						conditions = append(conditions, c)
					}
				}
			}
		}
	}

	return assignments, conditions
}

func isIfNode(nodeType string, lang Language) bool {
	switch lang {
	case LangGo:
		return nodeType == "if_statement"
	case LangRust:
		return nodeType == "if_expression"
	}
	return false
}

// parseAssignment recognizes `x := 10` (Go) and `let x = 10;` (Rust) and
// returns the binding as an equality constraint.
func parseAssignment(node *sitter.Node, source []byte, lang Language) (graph.Constraint, bool) {
	switch lang {
	case LangGo:
		if node.Type() != "short_var_declaration" {
			return graph.Constraint{}, false
		}
		left := node.ChildByFieldName("left")
		right := node.ChildByFieldName("right")
		if left == nil || right == nil ||
			left.NamedChildCount() != 1 || right.NamedChildCount() != 1 {
			return graph.Constraint{}, false
		}
		return bindingConstraint(left.NamedChild(0), right.NamedChild(0), source, lang)

	case LangRust:
		if node.Type() != "let_declaration" {
			return graph.Constraint{}, false
		}
		pattern := node.ChildByFieldName("pattern")
		value := node.ChildByFieldName("value")
		if pattern == nil || value == nil {
			return graph.Constraint{}, false
		}
		return bindingConstraint(pattern, value, source, lang)
	}
	return graph.Constraint{}, false
}

func bindingConstraint(name, value *sitter.Node, source []byte, lang Language) (graph.Constraint, bool) {
	if name.Type() != "identifier" || !isIntLiteral(value.Type(), lang) {
		return graph.Constraint{}, false
	}
	v, err := strconv.ParseInt(value.Content(source), 10, 64)
	if err != nil {
		return graph.Constraint{}, false
	}
	return graph.Constraint{
		Left:  graph.Var(name.Content(source)),
		Op:    "==",
		Right: graph.Lit(v),
	}, true
}

func isIntLiteral(nodeType string, lang Language) bool {
	switch lang {
	case LangGo:
		return nodeType == "int_literal"
	case LangRust:
		return nodeType == "integer_literal"
	}
	return false
}

// parseCondition recognizes a binary comparison over identifiers and integer
// literals. Literal-only comparisons like `1 > 5` are kept as-is; the solver
// folds them.
func parseCondition(node *sitter.Node, source []byte, lang Language) (graph.Constraint, bool) {
	// Unwrap parenthesized conditions.
	for node != nil && node.Type() == "parenthesized_expression" {
		node = node.NamedChild(0)
	}
	if node == nil || node.Type() != "binary_expression" {
		return graph.Constraint{}, false
	}

	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")
	opNode := node.ChildByFieldName("operator")
	if left == nil || right == nil || opNode == nil {
		return graph.Constraint{}, false
	}

	op := opNode.Content(source)
	switch op {
	case "<", "<=", ">", ">=", "==", "!=":
	default:
		return graph.Constraint{}, false
	}

	lt, ok := termOf(left, source, lang)
	if !ok {
		return graph.Constraint{}, false
	}
	rt, ok := termOf(right, source, lang)
	if !ok {
		return graph.Constraint{}, false
	}

	return graph.Constraint{Left: lt, Op: op, Right: rt}, true
}

func termOf(node *sitter.Node, source []byte, lang Language) (graph.Term, bool) {
	if node.Type() == "identifier" {
		return graph.Var(node.Content(source)), true
	}
	if isIntLiteral(node.Type(), lang) {
		v, err := strconv.ParseInt(node.Content(source), 10, 64)
		if err != nil {
			return graph.Term{}, false
		}
		return graph.Lit(v), true
	}
	return graph.Term{}, false
}
