package funcgroup

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rasbt/screenlamp/internal/idset"
	"github.com/rasbt/screenlamp/internal/mol2"
	"github.com/rasbt/screenlamp/internal/overlay"
	"github.com/rasbt/screenlamp/internal/pipeline"
	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

type atom struct {
	name    string
	x, y, z float64
	typ     string
	charge  float64
}

func molecule(id string, atoms ...atom) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "@<TRIPOS>MOLECULE\n%s\n %d 0 0 0 0\nSMALL\nUSER_CHARGES\n\n@<TRIPOS>ATOM\n", id, len(atoms))
	for i, a := range atoms {
		fmt.Fprintf(&sb, "%7d %-4s %9.4f %9.4f %9.4f %-5s 1 LIG1 %8.4f\n", i+1, a.name, a.x, a.y, a.z, a.typ, a.charge)
	}
	return sb.String()
}

// sulfonyl has S.3 and O.2 five angstrom apart.
func sulfonyl(id string) string {
	return molecule(id,
		atom{"S1", 0, 0, 0, "S.3", 1.2},
		atom{"O2", 3, 4, 0, "O.2", -0.6},
		atom{"C3", 0, 0, 1.5, "C.3", 0},
	)
}

func carbons(id string) string {
	return molecule(id, atom{"C1", 0, 0, 0, "C.3", 0}, atom{"C2", 1.5, 0, 0, "C.3", 0})
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func readIDs(t *testing.T, path string) []string {
	t.Helper()
	s, err := idset.Load(path)
	require.NoError(t, err)
	return s.IDs()
}

const sulfonylSelection = "(atom_type == 'S.3') --> (atom_type == 'O.2')"

func TestDistance_RangeDecidesMatch(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "db.mol2")
	writeFile(t, in, sulfonyl("hit")+carbons("miss"))

	out := filepath.Join(dir, "ids.txt")
	res, err := Distance(context.Background(), ScanOptions{Input: in, Output: out, Pipeline: pipeline.Config{Workers: 2}}, sulfonylSelection, "0-100")
	require.NoError(t, err)
	assert.Equal(t, []string{"hit"}, readIDs(t, out))
	assert.EqualValues(t, 2, res.Scanned)

	res, err = Distance(context.Background(), ScanOptions{Input: in, Output: out, Pipeline: pipeline.Config{Workers: 2}}, sulfonylSelection, "10-20")
	require.NoError(t, err)
	assert.Empty(t, res.IDs)
	assert.Empty(t, readIDs(t, out))
}

func TestDistance_RejectsSingleGroup(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "db.mol2")
	writeFile(t, in, sulfonyl("a"))
	_, err := Distance(context.Background(), ScanOptions{Input: in, Output: filepath.Join(dir, "o")}, "(atom_type == 'S.3')", "0-5")
	assert.True(t, apperr.IsCode(err, apperr.CodeConfig))
	_, err = Distance(context.Background(), ScanOptions{Input: in, Output: filepath.Join(dir, "o")}, sulfonylSelection, "5-1")
	assert.True(t, apperr.IsCode(err, apperr.CodeConfig))
}

func TestPresence_KeepsInputOrderAcrossBatches(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	require.NoError(t, os.Mkdir(in, 0o755))
	var a, b strings.Builder
	var want []string
	for i := 0; i < 40; i++ {
		id := fmt.Sprintf("m%02d", i)
		target := &a
		if i >= 20 {
			target = &b
		}
		if i%3 == 0 {
			target.WriteString(sulfonyl(id))
			want = append(want, id)
		} else {
			target.WriteString(carbons(id))
		}
	}
	writeFile(t, filepath.Join(in, "a.mol2"), a.String())
	writeFile(t, filepath.Join(in, "b.mol2"), b.String())

	out := filepath.Join(dir, "ids.txt")
	res, err := Presence(context.Background(), ScanOptions{Input: in, Output: out, Pipeline: pipeline.Config{Workers: 3, BatchSize: 4}},
		"((atom_type == 'S.3') | (atom_type == 'S.o2')) --> (atom_type == 'O.2')")
	require.NoError(t, err)
	assert.Equal(t, want, readIDs(t, out))
	assert.Equal(t, 2, res.Files)
	assert.EqualValues(t, 40, res.Scanned)
}

func TestPresence_ParseErrorCarriesRecord(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "bad.mol2")
	writeFile(t, in, "@<TRIPOS>MOLECULE\nbroken\n1 0 0\n\n@<TRIPOS>ATOM\n 1 C1 zero 0 0 C.3\n")
	_, err := Presence(context.Background(), ScanOptions{Input: in, Output: filepath.Join(dir, "o")}, "(atom_type == 'C.3')")
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeParse))
	assert.Contains(t, err.Error(), "broken")
}

func TestPairOverlayFiles(t *testing.T) {
	pairs, err := PairOverlayFiles([]string{"d/x_dbase.mol2", "d/x_query.mol2.gz", "d/other.mol2"})
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, FilePair{Base: "x", Query: "d/x_query.mol2.gz", Dbase: "d/x_dbase.mol2"}, pairs[0])

	_, err = PairOverlayFiles([]string{"d/y_dbase.mol2"})
	assert.True(t, apperr.IsCode(err, apperr.CodeConsistency))
}

func TestFormatCharge(t *testing.T) {
	assert.Equal(t, "1.20", FormatCharge(1.2))
	assert.Equal(t, "-0.50", FormatCharge(-0.5))
	assert.Equal(t, "nan", FormatCharge(math.NaN()))
}

// matchFixture writes one overlay pair: two database hits aligned on the
// sulfonyl query, the second too far off for its oxygen to match.
func matchFixture(t *testing.T) (dir string) {
	t.Helper()
	dir = t.TempDir()
	in := filepath.Join(dir, "overlays")
	require.NoError(t, os.Mkdir(in, 0o755))
	q := sulfonyl("Q_0")
	writeFile(t, filepath.Join(in, "run_1_query.mol2"), q+q)
	writeFile(t, filepath.Join(in, "run_1_dbase.mol2"),
		molecule("D1", atom{"S", 0.1, 0, 0, "S.o2", 1.5}, atom{"O", 3, 4.2, 0, "O.2", -0.7}, atom{"C", 0, 0, 1.4, "C.ar", 0.05})+
			molecule("D2", atom{"S", 0, 0.2, 0, "S.3", 0.3}, atom{"C", 9, 9, 9, "C.3", 0}))
	return dir
}

func TestMatch_WritesTables(t *testing.T) {
	dir := matchFixture(t)
	out := filepath.Join(dir, "tables")
	res, err := Match(context.Background(), MatchOptions{Input: filepath.Join(dir, "overlays"), Output: out, Pipeline: pipeline.Config{Workers: 2}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Scanned)
	assert.Equal(t, 1, res.CacheMisses)

	types, err := os.ReadFile(AtomTypeTablePath(out, "run_1"))
	require.NoError(t, err)
	assert.Equal(t,
		"dbase\tquery\tS1\tO2\tC3\n"+
			"D1\tQ_0\tS.o2\tO.2\tC.ar\n"+
			"D2\tQ_0\tS.3\t\t\n",
		string(types))

	charges, err := os.ReadFile(ChargeTablePath(out, "run_1"))
	require.NoError(t, err)
	assert.Equal(t,
		"dbase\tquery\tS1\tO2\tC3\n"+
			"D1\tQ_0\t1.50\t-0.70\t0.05\n"+
			"D2\tQ_0\t0.30\tnan\tnan\n",
		string(charges))
}

func TestSelect_FiltersTablesAndStructures(t *testing.T) {
	dir := matchFixture(t)
	tables := filepath.Join(dir, "tables")
	_, err := Match(context.Background(), MatchOptions{Input: filepath.Join(dir, "overlays"), Output: tables})
	require.NoError(t, err)

	out := filepath.Join(dir, "selected")
	results, err := Select(context.Background(), SelectOptions{
		Input:             tables,
		Output:            out,
		AtomTypeSelection: "((S1 == 'S.3') | (S1 == 'S.o2')) --> (O2 == 'O.2')",
		ChargeSelection:   "(S1 >= 1.0) --> (O2 <= -0.5)",
		Structures:        filepath.Join(dir, "overlays"),
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].Rows)
	assert.Equal(t, 1, results[0].Selected)
	assert.Equal(t, 1, results[0].Written)

	types, err := os.ReadFile(AtomTypeTablePath(out, "run_1"))
	require.NoError(t, err)
	assert.Equal(t, "dbase\tquery\tS1\tO2\tC3\nD1\tQ_0\tS.o2\tO.2\tC.ar\n", string(types))

	dbase, err := os.ReadFile(filepath.Join(out, "run_1_dbase.mol2"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(dbase), "@<TRIPOS>MOLECULE\nD1\n"))
	assert.NotContains(t, string(dbase), "D2")
}

func TestSelect_MissingStructureRecords(t *testing.T) {
	dir := matchFixture(t)
	tables := filepath.Join(dir, "tables")
	_, err := Match(context.Background(), MatchOptions{Input: filepath.Join(dir, "overlays"), Output: tables})
	require.NoError(t, err)
	// Truncate the database file so the second row has no record.
	writeFile(t, filepath.Join(dir, "overlays", "run_1_dbase.mol2"), sulfonyl("D1"))

	opts := SelectOptions{Input: tables, Output: filepath.Join(dir, "s1"), Structures: filepath.Join(dir, "overlays")}
	results, err := Select(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, results[0].Missing)

	opts.Output = filepath.Join(dir, "s2")
	opts.Missing = overlay.MissingStrict
	_, err = Select(context.Background(), opts)
	assert.True(t, apperr.IsCode(err, apperr.CodeConsistency))
}

func TestReadTable_RejectsBadCharge(t *testing.T) {
	_, err := readTable(strings.NewReader("dbase\tquery\tS1\nD\tQ\tabc\n"), true)
	assert.True(t, apperr.IsCode(err, apperr.CodeParse))
	tb, err := readTable(strings.NewReader("dbase\tquery\tS1\nD\tQ\tnan\n"), true)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(tb.Float(2, 0)))
}

func TestMatch_StructuresStayReadable(t *testing.T) {
	dir := matchFixture(t)
	n := 0
	require.NoError(t, mol2.Stream(context.Background(), nil, filepath.Join(dir, "overlays", "run_1_dbase.mol2"), func(mol2.RawRecord) error {
		n++
		return nil
	}))
	assert.Equal(t, 2, n)
}

func TestMatch_RowsFollowFileOrderUnderUnevenLoad(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "overlays")
	require.NoError(t, os.Mkdir(in, 0o755))

	const n = 64
	var queries, dbase strings.Builder
	var heavy []string
	for i := 0; i < n; i++ {
		queries.WriteString(sulfonyl(fmt.Sprintf("Q_%d", i)))
		id := fmt.Sprintf("D%02d", i)
		if i%8 == 0 {
			// Slow to parse and match; only these carry S.o2.
			atoms := []atom{{"S", 0, 0, 0, "S.o2", 1.5}}
			for k := 0; k < 4000; k++ {
				atoms = append(atoms, atom{"C", 50 + float64(k), 0, 0, "C.3", 0})
			}
			dbase.WriteString(molecule(id, atoms...))
			heavy = append(heavy, id)
			continue
		}
		dbase.WriteString(molecule(id, atom{"S", 0, 0, 0, "S.3", 0.3}))
	}
	writeFile(t, filepath.Join(in, "run_1_query.mol2"), queries.String())
	writeFile(t, filepath.Join(in, "run_1_dbase.mol2"), dbase.String())

	tables := filepath.Join(dir, "tables")
	_, err := Match(context.Background(), MatchOptions{Input: in, Output: tables, Pipeline: pipeline.Config{Workers: 4, BatchSize: 8}})
	require.NoError(t, err)

	types, err := os.ReadFile(AtomTypeTablePath(tables, "run_1"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(types)), "\n")[1:]
	require.Len(t, lines, n)
	for i, line := range lines {
		cols := strings.Split(line, "\t")
		assert.Equal(t, fmt.Sprintf("D%02d", i), cols[0])
		assert.Equal(t, fmt.Sprintf("Q_%d", i), cols[1])
	}

	out := filepath.Join(dir, "selected")
	results, err := Select(context.Background(), SelectOptions{
		Input:             tables,
		Output:            out,
		AtomTypeSelection: "(S1 == 'S.o2')",
		Structures:        in,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, len(heavy), results[0].Written)

	var copied []string
	require.NoError(t, mol2.Stream(context.Background(), nil, filepath.Join(out, "run_1_dbase.mol2"), func(r mol2.RawRecord) error {
		rec, err := mol2.Parse(r)
		if err != nil {
			return err
		}
		copied = append(copied, rec.ID)
		return nil
	}))
	assert.Equal(t, heavy, copied)
}
