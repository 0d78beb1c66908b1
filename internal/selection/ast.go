// Package selection compiles and evaluates selection strings such as
//
//	((atom_type == 'S.3') | (atom_type == 'S.2')) --> (atom_type == 'O.2')
//
// over any row-oriented table (atom blocks, property tables, score reports).
// A Selection is compiled once per run and is safe for concurrent use.
package selection

import (
	"fmt"
	"strconv"
	"strings"
)

// NodeKind tags an Expr.
type NodeKind int

const (
	NodeCompare NodeKind = iota
	NodeAnd
	NodeOr
)

// CmpOp is a relational operator.
type CmpOp int

const (
	CmpEq CmpOp = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
)

var opText = [...]string{"==", "!=", "<", "<=", ">", ">="}

func (op CmpOp) String() string { return opText[op] }

// Literal is a numeric or quoted string constant.
type Literal struct {
	IsString bool
	Num      float64
	Str      string
}

func (l Literal) String() string {
	if l.IsString {
		return "'" + l.Str + "'"
	}
	return strconv.FormatFloat(l.Num, 'g', -1, 64)
}

// Expr is one node of the tree. Compare nodes use Column/Op/Lit; And/Or
// nodes use Left/Right.
type Expr struct {
	Kind  NodeKind
	Left  *Expr
	Right *Expr

	Column string
	Op     CmpOp
	Lit    Literal

	col int
}

func (e *Expr) String() string {
	switch e.Kind {
	case NodeAnd:
		return "(" + e.Left.String() + " & " + e.Right.String() + ")"
	case NodeOr:
		return "(" + e.Left.String() + " | " + e.Right.String() + ")"
	default:
		return fmt.Sprintf("(%s %s %s)", e.Column, e.Op, e.Lit)
	}
}

func (e *Expr) walk(fn func(*Expr)) {
	if e == nil {
		return
	}
	fn(e)
	e.Left.walk(fn)
	e.Right.walk(fn)
}

// Selection is a compiled selection: one group, or two groups joined by
// "-->".
type Selection struct {
	Source string
	Groups []*Expr
}

// Arrow reports whether the selection names a two-sided group pair.
func (s *Selection) Arrow() bool { return len(s.Groups) == 2 }

// Columns lists referenced columns in first-use order.
func (s *Selection) Columns() []string {
	seen := map[string]bool{}
	var out []string
	for _, g := range s.Groups {
		g.walk(func(e *Expr) {
			if e.Kind == NodeCompare && !seen[e.Column] {
				seen[e.Column] = true
				out = append(out, e.Column)
			}
		})
	}
	return out
}

func (s *Selection) String() string {
	parts := make([]string, len(s.Groups))
	for i, g := range s.Groups {
		parts[i] = g.String()
	}
	return strings.Join(parts, " --> ")
}
