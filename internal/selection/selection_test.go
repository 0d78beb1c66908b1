package selection

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

// table is a column-major test table.
type table struct {
	schema Schema
	cols   [][]string
}

func (t table) Len() int {
	if len(t.cols) == 0 {
		return 0
	}
	return len(t.cols[0])
}

func (t table) Float(col, row int) float64 {
	v, err := strconv.ParseFloat(t.cols[col][row], 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func (t table) Text(col, row int) string { return t.cols[col][row] }

var atomSchema = Schema{{Name: "atom_type", Kind: KindString}, {Name: "x", Kind: KindNumber}, {Name: "charge", Kind: KindNumber}}

func atoms() table {
	return table{schema: atomSchema, cols: [][]string{
		{"S.3", "O.2", "C.3", "C.ar"},
		{"1", "6", "7", "-2"},
		{"-0.3", "-0.5", "0.1", "0.0"},
	}}
}

func TestCompile_ArrowGroups(t *testing.T) {
	sel, err := Compile("(atom_type == 'S.3') --> (atom_type == 'O.2')", atomSchema)
	require.NoError(t, err)
	require.True(t, sel.Arrow())
	rows := atoms()
	assert.Equal(t, []bool{true, false, false, false}, sel.GroupMask(0, rows))
	assert.Equal(t, []bool{false, true, false, false}, sel.GroupMask(1, rows))
	assert.True(t, sel.Match(rows))
	assert.Equal(t, []bool{false, false, false, false}, sel.Mask(rows))
}

func TestCompile_NestedAndOr(t *testing.T) {
	sel, err := Compile("((atom_type == 'S.3') | (atom_type == 'C.3')) & (x > 5)", atomSchema)
	require.NoError(t, err)
	assert.False(t, sel.Arrow())
	assert.Equal(t, []bool{false, false, true, false}, sel.Mask(atoms()))
	assert.Equal(t, []string{"atom_type", "x"}, sel.Columns())
}

func TestCompile_NumericLiterals(t *testing.T) {
	sel, err := Compile("(charge <= -0.3) & (x != 6)", atomSchema)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, false, false}, sel.Mask(atoms()))

	sel, err = Compile("(x >= 1e0) & (x < 7)", atomSchema)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, false, false}, sel.Mask(atoms()))
}

func TestMaskAlgebra(t *testing.T) {
	rows := atoms()
	one, err := Compile("(x > 5)", atomSchema)
	require.NoError(t, err)
	twice, err := Compile("(x > 5) & (x > 5)", atomSchema)
	require.NoError(t, err)
	assert.Equal(t, one.Mask(rows), twice.Mask(rows))

	a, _ := Compile("(atom_type == 'S.3')", atomSchema)
	b, _ := Compile("(x > 6)", atomSchema)
	union, err := Compile("(atom_type == 'S.3') | (x > 6)", atomSchema)
	require.NoError(t, err)
	assert.Equal(t, Or(a.Mask(rows), b.Mask(rows)), union.Mask(rows))

	ab, _ := Compile("(x > 6) & (atom_type == 'S.3')", atomSchema)
	ba, _ := Compile("(atom_type == 'S.3') & (x > 6)", atomSchema)
	assert.Equal(t, ab.Mask(rows), ba.Mask(rows))
	assert.Equal(t, And(a.Mask(rows), b.Mask(rows)), ab.Mask(rows))
}

func TestEmptyTableNeverMatches(t *testing.T) {
	sel, err := Compile("(atom_type == 'S.3') --> (atom_type == 'O.2')", atomSchema)
	require.NoError(t, err)
	empty := table{schema: atomSchema, cols: [][]string{{}, {}, {}}}
	assert.False(t, sel.Match(empty))
	assert.Empty(t, sel.Mask(empty))
}

func TestCompile_ConfigErrors(t *testing.T) {
	cases := []string{
		"",
		"(atom_type == 'S.3'",
		"(atom_type = 'S.3')",
		"(unknown == 1)",
		"(x == 'S.3')",
		"(atom_type == 3)",
		"(x > 1) --> (x > 2) --> (x > 3)",
		"(x > 1) (x > 2)",
		"(atom_type == 'S.3)",
		"(x > 1) # (x > 2)",
	}
	for _, src := range cases {
		_, err := Compile(src, atomSchema)
		require.Error(t, err, "src=%q", src)
		assert.True(t, apperr.IsCode(err, apperr.CodeConfig), "src=%q err=%v", src, err)
	}
}

func TestAutoColumns(t *testing.T) {
	schema := Schema{{Name: "ID", Kind: KindAuto}, {Name: "NumRotors", Kind: KindAuto}}
	rows := table{schema: schema, cols: [][]string{{"a", "b", "c"}, {"3", "9", "n/a"}}}
	sel, err := Compile("(NumRotors <= 7)", schema)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, false}, sel.Mask(rows))

	sel, err = Compile("(ID != 'b')", schema)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true}, sel.Mask(rows))
}

func TestSelectionString(t *testing.T) {
	sel, err := Parse("(a == 'x') --> ((b > 1) & (c < 2))")
	require.NoError(t, err)
	assert.Equal(t, "(a == 'x') --> ((b > 1) & (c < 2))", sel.String())
}
