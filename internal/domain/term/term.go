// Package term defines the boolean AST over free-text search terms.
package term

import "strings"

// Expr is one node of the parsed free-text expression. The variant set is
// closed: Term, Phrase, And, Or.
type Expr interface {
	isExpr()
	String() string
}

// Term is a single bare word.
type Term struct {
	Text string
}

func (Term) isExpr() {}

func (t Term) String() string { return t.Text }

// Phrase is a quoted phrase matched as one unit.
type Phrase struct {
	Text string
}

func (Phrase) isExpr() {}

func (p Phrase) String() string { return `"` + p.Text + `"` }

// And requires every operand to match.
type And struct {
	Operands []Expr
}

func (And) isExpr() {}

func (a And) String() string { return group(a.Operands, " AND ") }

// Or requires at least one operand to match.
type Or struct {
	Operands []Expr
}

func (Or) isExpr() {}

func (o Or) String() string { return group(o.Operands, " OR ") }

func group(operands []Expr, sep string) string {
	parts := make([]string, len(operands))
	for i, op := range operands {
		parts[i] = op.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}
