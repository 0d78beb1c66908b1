package funcgroup

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rasbt/screenlamp/internal/logging"
	"github.com/rasbt/screenlamp/internal/mol2"
	"github.com/rasbt/screenlamp/internal/overlay"
	"github.com/rasbt/screenlamp/internal/selection"
	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

const SelectionStage = "funcgroup-matching-selection"

// Table is a matching table: dbase and query id columns followed by one
// column per query atom. Numeric tables hold charges.
type Table struct {
	Header  []string
	Rows    [][]string
	Numeric bool
	nums    [][]float64
}

// Schema types the id columns as text and the atom columns by table kind.
func (t *Table) Schema() selection.Schema {
	s := make(selection.Schema, len(t.Header))
	for i, h := range t.Header {
		k := selection.KindString
		if i >= 2 && t.Numeric {
			k = selection.KindNumber
		}
		s[i] = selection.Column{Name: h, Kind: k}
	}
	return s
}

func (t *Table) Len() int { return len(t.Rows) }

func (t *Table) Float(col, i int) float64 {
	if !t.Numeric || col < 2 || col-2 >= len(t.nums[i]) {
		return math.NaN()
	}
	return t.nums[i][col-2]
}

func (t *Table) Text(col, i int) string {
	if col >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][col]
}

// ReadTable reads a tab-separated matching table. In a numeric table every
// atom cell must parse as a float ("nan" included).
func ReadTable(path string, numeric bool) (*Table, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, apperr.IO(err, "open table %s", path)
	}
	defer fh.Close()
	t, err := readTable(fh, numeric)
	if err != nil {
		return nil, apperr.Wrap(err, "", "table %s", path)
	}
	return t, nil
}

func readTable(r io.Reader, numeric bool) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperr.Config("table is empty, no header row")
	}
	if err != nil {
		return nil, apperr.IO(err, "read table header")
	}
	if len(header) < 2 {
		return nil, apperr.Config("table header has %d columns, want dbase and query first", len(header))
	}
	t := &Table{Header: header, Numeric: numeric}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.IO(err, "read table")
		}
		if numeric {
			line, _ := cr.FieldPos(0)
			vals := make([]float64, 0, len(rec))
			for j := 2; j < len(rec); j++ {
				v, perr := strconv.ParseFloat(strings.TrimSpace(rec[j]), 64)
				if perr != nil {
					return nil, apperr.Parse(rec[0], strings.Join(rec, "\t"), "line %d: %s is not a charge", line, header[min(j, len(header)-1)])
				}
				vals = append(vals, v)
			}
			t.nums = append(t.nums, vals)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// WriteRows writes the header and the rows at idx.
func (t *Table) WriteRows(path string, idx []int) error {
	fh, err := os.Create(path)
	if err != nil {
		return apperr.IO(err, "create %s", path)
	}
	cw := newTSVWriter(fh)
	_ = cw.Write(t.Header)
	for _, i := range idx {
		_ = cw.Write(t.Rows[i])
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		_ = fh.Close()
		return apperr.IO(err, "write %s", path)
	}
	if err := fh.Close(); err != nil {
		return apperr.IO(err, "close %s", path)
	}
	return nil
}

// rowMask evaluates sel over t in row mode: a row passes when it satisfies
// every group. An empty selection passes every row.
func rowMask(sel string, t *Table) ([]bool, error) {
	if strings.TrimSpace(sel) == "" {
		m := make([]bool, t.Len())
		for i := range m {
			m[i] = true
		}
		return m, nil
	}
	s, err := selection.Compile(sel, t.Schema())
	if err != nil {
		return nil, err
	}
	return s.Mask(t), nil
}

// SelectOptions configures Select.
type SelectOptions struct {
	Input             string // directory of matching tables
	Output            string // directory for filtered tables and structures
	AtomTypeSelection string
	ChargeSelection   string
	// Structures, when set, is the directory of overlay pairs the tables were
	// built from; the records of selected rows are copied next to the tables.
	Structures string
	Missing    overlay.MissingPolicy
	Source     mol2.Source
	Logger     logging.Logger
}

// SelectResult tallies one table pair.
type SelectResult struct {
	Base     string
	Rows     int
	Selected int
	Written  int
	Missing  int
}

// tablePairs finds "<base>_atomtype.tsv" / "<base>_charge.tsv" pairs.
func tablePairs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperr.IO(err, "list %s", dir)
	}
	atom, charge := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		switch n := e.Name(); {
		case strings.HasSuffix(n, atomtypeSuffix):
			atom[strings.TrimSuffix(n, atomtypeSuffix)] = true
		case strings.HasSuffix(n, chargeSuffix):
			charge[strings.TrimSuffix(n, chargeSuffix)] = true
		}
	}
	var bases []string
	for b := range atom {
		if !charge[b] {
			return nil, apperr.Consistency(b, "atom-type table has no charge table")
		}
		bases = append(bases, b)
	}
	for b := range charge {
		if !atom[b] {
			return nil, apperr.Consistency(b, "charge table has no atom-type table")
		}
	}
	sort.Strings(bases)
	return bases, nil
}

// Select filters every table pair in opts.Input. A row is kept when it
// passes both the atom-type and the charge selection.
func Select(ctx context.Context, opts SelectOptions) ([]SelectResult, error) {
	log := opts.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	log = log.Named(SelectionStage)
	bases, err := tablePairs(opts.Input)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.Output, 0o755); err != nil {
		return nil, apperr.IO(err, "create output directory %s", opts.Output)
	}
	var out []SelectResult
	for _, base := range bases {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res, err := selectPair(ctx, opts, base, log)
		out = append(out, res)
		if err != nil {
			return out, apperr.Wrap(err, "", "select %s", base).WithStage(SelectionStage)
		}
		log.Info("processed file",
			logging.String("base", base),
			logging.Int("rows", res.Rows),
			logging.Int("selected", res.Selected),
			logging.Int("missing", res.Missing))
	}
	return out, nil
}

func selectPair(ctx context.Context, opts SelectOptions, base string, log logging.Logger) (SelectResult, error) {
	res := SelectResult{Base: base}
	atoms, err := ReadTable(AtomTypeTablePath(opts.Input, base), false)
	if err != nil {
		return res, err
	}
	charges, err := ReadTable(ChargeTablePath(opts.Input, base), true)
	if err != nil {
		return res, err
	}
	if atoms.Len() != charges.Len() {
		return res, apperr.Consistency(base, "atom-type table has %d rows, charge table %d", atoms.Len(), charges.Len())
	}
	res.Rows = atoms.Len()
	am, err := rowMask(opts.AtomTypeSelection, atoms)
	if err != nil {
		return res, err
	}
	cm, err := rowMask(opts.ChargeSelection, charges)
	if err != nil {
		return res, err
	}
	idx := selection.Indices(selection.And(am, cm))
	res.Selected = len(idx)
	if err := atoms.WriteRows(AtomTypeTablePath(opts.Output, base), idx); err != nil {
		return res, err
	}
	if err := charges.WriteRows(ChargeTablePath(opts.Output, base), idx); err != nil {
		return res, err
	}
	if opts.Structures == "" {
		return res, nil
	}

	for _, kind := range []string{querySuffix, dbaseSuffix} {
		in, err := findStructure(opts.Structures, base+kind)
		if err != nil {
			return res, err
		}
		out := filepath.Join(opts.Output, base+kind+strings.TrimPrefix(filepath.Base(in), base+kind))
		written, missing, err := copyByIndex(ctx, opts.Source, in, out, idx)
		if err != nil {
			return res, err
		}
		if missing > 0 {
			if opts.Missing == overlay.MissingStrict {
				return res, apperr.Consistency(base+kind, "%d selected rows have no record in %s", missing, in)
			}
			log.Warn("selected rows without a record",
				logging.String("file", in),
				logging.Int("missing", missing))
		}
		if kind == dbaseSuffix {
			res.Written, res.Missing = written, missing
		}
	}
	return res, nil
}

// findStructure locates dir/stem with any structure suffix.
func findStructure(dir, stem string) (string, error) {
	for _, s := range mol2.Suffixes {
		p := filepath.Join(dir, stem+s)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, nil
		}
	}
	return "", apperr.IO(os.ErrNotExist, "no structure file %s in %s", stem, dir)
}

// copyByIndex writes the records of in at the 0-based positions idx, in idx
// order, to out. It returns how many positions lay past the end of in.
func copyByIndex(ctx context.Context, src mol2.Source, in, out string, idx []int) (written, missing int, err error) {
	want := make(map[int]bool, len(idx))
	for _, i := range idx {
		want[i] = true
	}
	texts := make(map[int][]byte, len(idx))
	pos := 0
	if err := mol2.Stream(ctx, src, in, func(r mol2.RawRecord) error {
		if want[pos] {
			texts[pos] = r.Text
		}
		pos++
		return nil
	}); err != nil {
		return 0, 0, err
	}
	w, err := mol2.Create(out)
	if err != nil {
		return 0, 0, err
	}
	defer w.Close()
	for _, i := range idx {
		text, ok := texts[i]
		if !ok {
			missing++
			continue
		}
		if _, err := w.Write(text); err != nil {
			return written, missing, apperr.IO(err, "write %s", out)
		}
		written++
	}
	if err := w.Close(); err != nil {
		return written, missing, apperr.IO(err, "close %s", out)
	}
	return written, missing, nil
}
