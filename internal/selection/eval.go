package selection

import "math"

// Kind is the value kind of a column.
type Kind int

const (
	KindNumber Kind = iota
	KindString
	// KindAuto columns accept either literal; the literal decides whether
	// the comparison is numeric or textual.
	KindAuto
)

// Column describes one column of a Schema.
type Column struct {
	Name string
	Kind Kind
}

// Schema is the ordered column list of a table; a column's position is the
// index passed to Rows.
type Schema []Column

// Index returns the position of name.
func (s Schema) Index(name string) (int, bool) {
	for i, c := range s {
		if c.Name == name {
			return i, true
		}
	}
	return -1, false
}

func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Name
	}
	return out
}

// Rows is a table read by position. Float returns NaN for values that are
// not numbers.
type Rows interface {
	Len() int
	Float(col, row int) float64
	Text(col, row int) string
}

func cmpFloat(op CmpOp, a, b float64) bool {
	switch op {
	case CmpEq:
		return a == b
	case CmpNe:
		return a != b
	case CmpLt:
		return a < b
	case CmpLe:
		return a <= b
	case CmpGt:
		return a > b
	default:
		return a >= b
	}
}

func cmpString(op CmpOp, a, b string) bool {
	switch op {
	case CmpEq:
		return a == b
	case CmpNe:
		return a != b
	case CmpLt:
		return a < b
	case CmpLe:
		return a <= b
	case CmpGt:
		return a > b
	default:
		return a >= b
	}
}

func (e *Expr) eval(rows Rows, i int) bool {
	switch e.Kind {
	case NodeAnd:
		return e.Left.eval(rows, i) && e.Right.eval(rows, i)
	case NodeOr:
		return e.Left.eval(rows, i) || e.Right.eval(rows, i)
	}
	if e.Lit.IsString {
		return cmpString(e.Op, rows.Text(e.col, i), e.Lit.Str)
	}
	v := rows.Float(e.col, i)
	if math.IsNaN(v) {
		return e.Op == CmpNe
	}
	return cmpFloat(e.Op, v, e.Lit.Num)
}

// GroupMask evaluates group g row by row.
func (s *Selection) GroupMask(g int, rows Rows) []bool {
	n := rows.Len()
	mask := make([]bool, n)
	for i := 0; i < n; i++ {
		mask[i] = s.Groups[g].eval(rows, i)
	}
	return mask
}

// Mask is the row-level filter: the positional AND of all group masks.
func (s *Selection) Mask(rows Rows) []bool {
	mask := s.GroupMask(0, rows)
	for g := 1; g < len(s.Groups); g++ {
		mask = And(mask, s.GroupMask(g, rows))
	}
	return mask
}

// Match is the whole-record predicate: every group selects at least one row.
// An empty table never matches.
func (s *Selection) Match(rows Rows) bool {
	n := rows.Len()
	if n == 0 {
		return false
	}
	for _, g := range s.Groups {
		found := false
		for i := 0; i < n && !found; i++ {
			found = g.eval(rows, i)
		}
		if !found {
			return false
		}
	}
	return true
}

// And is the positional AND of equal-length masks.
func And(a, b []bool) []bool {
	mustSameLen(a, b)
	out := make([]bool, len(a))
	for i := range a {
		out[i] = a[i] && b[i]
	}
	return out
}

// Or is the positional OR of equal-length masks.
func Or(a, b []bool) []bool {
	mustSameLen(a, b)
	out := make([]bool, len(a))
	for i := range a {
		out[i] = a[i] || b[i]
	}
	return out
}

// Indices returns the positions set in mask.
func Indices(mask []bool) []int {
	var out []int
	for i, ok := range mask {
		if ok {
			out = append(out, i)
		}
	}
	return out
}

func mustSameLen(a, b []bool) {
	if len(a) != len(b) {
		panic("selection: mask length mismatch")
	}
}
