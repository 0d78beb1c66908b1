// Package overlay links score reports from external overlay tools back to
// the structure records they describe, ranked by score.
package overlay

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rasbt/screenlamp/internal/common"
	"github.com/rasbt/screenlamp/internal/selection"
	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

// Report column defaults, as written by ROCS.
const (
	DefaultNameColumn  = "Name"
	DefaultQueryColumn = "ShapeQuery"
)

// ReportOptions selects the columns read from a report.
type ReportOptions struct {
	Separator    rune // defaults to tab
	NameColumn   string
	QueryColumn  string
	ScoreColumns []string
}

func (o *ReportOptions) defaults() {
	if o.Separator == 0 {
		o.Separator = '\t'
	}
	if o.NameColumn == "" {
		o.NameColumn = DefaultNameColumn
	}
	if o.QueryColumn == "" {
		o.QueryColumn = DefaultQueryColumn
	}
}

// ReportRow is one scored database/query pair.
type ReportRow struct {
	Name   string
	Query  string
	Scores []float64
	Line   int
}

// Report is a table of rows with named score columns. It implements
// selection.Rows over Schema().
type Report struct {
	ScoreColumns []string
	Rows         []ReportRow
}

// Schema lists Name and Query as text columns followed by the score columns.
func (r *Report) Schema(nameCol, queryCol string) selection.Schema {
	s := selection.Schema{{Name: nameCol, Kind: selection.KindString}, {Name: queryCol, Kind: selection.KindString}}
	for _, c := range r.ScoreColumns {
		s = append(s, selection.Column{Name: c, Kind: selection.KindNumber})
	}
	return s
}

func (r *Report) Len() int { return len(r.Rows) }

func (r *Report) Float(col, i int) float64 {
	if col < 2 {
		return math.NaN()
	}
	return r.Rows[i].Scores[col-2]
}

func (r *Report) Text(col, i int) string {
	switch col {
	case 0:
		return r.Rows[i].Name
	case 1:
		return r.Rows[i].Query
	}
	return strconv.FormatFloat(r.Float(col, i), 'g', -1, 64)
}

// SortDesc stable-sorts rows descending by the given score columns.
func (r *Report) SortDesc(cols []string) error {
	idx := make([]int, len(cols))
	for i, c := range cols {
		j := indexOf(r.ScoreColumns, c)
		if j < 0 {
			return apperr.Config("sort column %q is not a score column", c)
		}
		idx[i] = j
	}
	keys := make(map[int][]float64, len(r.Rows))
	for i := range r.Rows {
		k := make([]float64, len(idx))
		for n, j := range idx {
			k[n] = r.Rows[i].Scores[j]
		}
		keys[r.Rows[i].Line] = k
	}
	common.StableSortByScores(r.Rows, func(row ReportRow) []float64 { return keys[row.Line] })
	return nil
}

// Keep drops rows whose mask entry is false.
func (r *Report) Keep(mask []bool) {
	out := r.Rows[:0]
	for i, row := range r.Rows {
		if mask[i] {
			out = append(out, row)
		}
	}
	r.Rows = out
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

// ReadReport reads a delimited report with a header row.
func ReadReport(path string, opts ReportOptions) (*Report, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, apperr.IO(err, "open report %s", path)
	}
	defer fh.Close()
	rep, err := parseReport(fh, opts)
	if err != nil {
		return nil, apperr.Wrap(err, "", "report %s", path)
	}
	return rep, nil
}

func parseReport(r io.Reader, opts ReportOptions) (*Report, error) {
	opts.defaults()
	cr := csv.NewReader(r)
	cr.Comma = opts.Separator
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperr.Config("report is empty, no header row")
	}
	if err != nil {
		return nil, apperr.IO(err, "read report header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	col := func(name string) (int, error) {
		j := indexOf(header, name)
		if j < 0 {
			return -1, apperr.Config("report has no column %q (columns: %s)", name, strings.Join(header, ", "))
		}
		return j, nil
	}
	nameIdx, err := col(opts.NameColumn)
	if err != nil {
		return nil, err
	}
	queryIdx, err := col(opts.QueryColumn)
	if err != nil {
		return nil, err
	}
	scoreCols := common.SplitList(strings.Join(opts.ScoreColumns, ","))
	scoreIdx := make([]int, len(scoreCols))
	for i, c := range scoreCols {
		if scoreIdx[i], err = col(c); err != nil {
			return nil, err
		}
	}

	rep := &Report{ScoreColumns: scoreCols}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.IO(err, "read report")
		}
		line, _ := cr.FieldPos(0)
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		field := func(j int) string {
			if j < len(rec) {
				return strings.TrimSpace(rec[j])
			}
			return ""
		}
		row := ReportRow{Name: field(nameIdx), Query: field(queryIdx), Scores: make([]float64, len(scoreIdx)), Line: line}
		for n, j := range scoreIdx {
			v, perr := strconv.ParseFloat(field(j), 64)
			if perr != nil {
				return nil, apperr.Parse(row.Name, strings.Join(rec, string(opts.Separator)), "line %d: column %s is not a number", line, scoreCols[n])
			}
			row.Scores[n] = v
		}
		rep.Rows = append(rep.Rows, row)
	}
	return rep, nil
}
