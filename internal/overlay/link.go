package overlay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rasbt/screenlamp/internal/common"
	"github.com/rasbt/screenlamp/internal/logging"
	"github.com/rasbt/screenlamp/internal/mol2"
	"github.com/rasbt/screenlamp/internal/selection"
	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

// Stage is the name used in logs, metrics and errors.
const Stage = "sort-overlay"

// MissingPolicy decides what an unresolvable report row does.
type MissingPolicy string

const (
	// MissingSkip logs and counts the row and carries on.
	MissingSkip MissingPolicy = "skip"
	// MissingStrict fails the stage with a consistency error.
	MissingStrict MissingPolicy = "strict"
)

// ParseMissingPolicy accepts "skip" (or "") and "strict".
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch MissingPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", MissingSkip:
		return MissingSkip, nil
	case MissingStrict:
		return MissingStrict, nil
	}
	return "", apperr.Config("missing policy %q: want skip or strict", s)
}

// LinkOptions configures one report/structure pairing.
type LinkOptions struct {
	Report    string // score report
	Database  string // aligned database hits
	Query     string // query conformers
	OutBase   string // writes <OutBase>_query.mol2 and <OutBase>_dbase.mol2
	SortBy    []string
	Selection string
	// IDSuffix rewrites each written query record's id line to its conformer key.
	IDSuffix bool
	Missing  MissingPolicy
	Columns  ReportOptions
	Source   mol2.Source
	Logger   logging.Logger
}

// LinkResult tallies one Link call.
type LinkResult struct {
	Input    string // database hits
	Rows     int    // rows read from the report
	Selected int    // rows left after the selection
	Written  int    // pairs written
	Missing  int    // rows skipped as unresolvable
	QueryOut string
	DbaseOut string
}

// QueryOutPath and DbaseOutPath name the two parallel outputs.
func QueryOutPath(base string) string { return base + "_query.mol2" }
func DbaseOutPath(base string) string { return base + "_dbase.mol2" }

// ReportPathFor finds the report that belongs to an overlay hit file:
// "run_hits_1.mol2" pairs with "run_1.rpt" in the same directory.
func ReportPathFor(hitsPath string) string {
	base := mol2.TrimSuffix(filepath.Base(hitsPath)) + ".rpt"
	base = strings.Replace(base, "_hits_", "_", 1)
	return filepath.Join(filepath.Dir(hitsPath), base)
}

// QueryKeys assigns the key each query record is referenced by in reports:
// "<id>_<n>" with n the 0-based position of the record in the file when the
// file has more than one record, the plain id otherwise.
func QueryKeys(ids []string) []string {
	keys := make([]string, len(ids))
	if len(ids) == 1 {
		keys[0] = ids[0]
		return keys
	}
	for i, id := range ids {
		keys[i] = common.ConformerKey(id, i)
	}
	return keys
}

// RenameRecord replaces the id line (the line after the marker) of text,
// keeping its line ending.
func RenameRecord(text []byte, id string) []byte {
	first := bytes.IndexByte(text, '\n')
	if first < 0 {
		return text
	}
	rest := text[first+1:]
	end := bytes.IndexByte(rest, '\n')
	eol := []byte{}
	if end < 0 {
		end = len(rest)
	} else {
		eol = []byte{'\n'}
		if end > 0 && rest[end-1] == '\r' {
			end--
			eol = []byte("\r\n")
		}
	}
	tail := rest[end+len(eol):]
	out := make([]byte, 0, len(text)+len(id))
	out = append(out, text[:first+1]...)
	out = append(out, id...)
	out = append(out, eol...)
	return append(out, tail...)
}

// loadQueries reads the query file and keeps the records referenced by
// wanted keys.
func loadQueries(ctx context.Context, src mol2.Source, path string, wanted map[string]bool, rename bool) (map[string][]byte, error) {
	var recs []mol2.RawRecord
	if err := mol2.Stream(ctx, src, path, func(r mol2.RawRecord) error {
		recs = append(recs, r)
		return nil
	}); err != nil {
		return nil, err
	}
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	out := make(map[string][]byte)
	for i, key := range QueryKeys(ids) {
		if !wanted[key] {
			continue
		}
		if _, dup := out[key]; dup {
			continue
		}
		text := recs[i].Text
		if rename {
			text = RenameRecord(text, key)
		}
		out[key] = text
	}
	return out, nil
}

// Link sorts and filters a report, then writes the database and query
// record of every surviving row, in row order, to two parallel files.
func Link(ctx context.Context, opts LinkOptions) (LinkResult, error) {
	log := opts.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	res := LinkResult{Input: opts.Database, QueryOut: QueryOutPath(opts.OutBase), DbaseOut: DbaseOutPath(opts.OutBase)}
	policy := opts.Missing
	if policy == "" {
		policy = MissingSkip
	}

	ropts := opts.Columns
	ropts.defaults()
	scoreCols := append([]string(nil), opts.SortBy...)
	var sel *selection.Selection
	if strings.TrimSpace(opts.Selection) != "" {
		parsed, err := selection.Parse(opts.Selection)
		if err != nil {
			return res, err
		}
		for _, c := range parsed.Columns() {
			if c != ropts.NameColumn && c != ropts.QueryColumn {
				scoreCols = append(scoreCols, c)
			}
		}
	}
	ropts.ScoreColumns = scoreCols
	rep, err := ReadReport(opts.Report, ropts)
	if err != nil {
		return res, err
	}
	res.Rows = len(rep.Rows)
	if len(opts.SortBy) > 0 {
		if err := rep.SortDesc(opts.SortBy); err != nil {
			return res, err
		}
	}
	if strings.TrimSpace(opts.Selection) != "" {
		sel, err = selection.Compile(opts.Selection, rep.Schema(ropts.NameColumn, ropts.QueryColumn))
		if err != nil {
			return res, err
		}
		rep.Keep(sel.Mask(rep))
	}
	res.Selected = len(rep.Rows)

	wantDB := make(map[string]bool, len(rep.Rows))
	wantQ := make(map[string]bool)
	for _, r := range rep.Rows {
		wantDB[r.Name] = true
		wantQ[r.Query] = true
	}
	queries, err := loadQueries(ctx, opts.Source, opts.Query, wantQ, opts.IDSuffix)
	if err != nil {
		return res, err
	}

	idx, err := OpenIndex(ctx, opts.Source, opts.Database, func(id string) bool { return wantDB[id] })
	if err != nil {
		return res, err
	}
	defer idx.Close()

	qw, err := mol2.Create(res.QueryOut)
	if err != nil {
		return res, err
	}
	defer qw.Close()
	dw, err := mol2.Create(res.DbaseOut)
	if err != nil {
		return res, err
	}
	defer dw.Close()

	for _, r := range rep.Rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		dtext, okD := idx.Get(r.Name)
		qtext, okQ := queries[r.Query]
		if !okD || !okQ {
			what := r.Name
			if !okQ {
				what = r.Query
			}
			if policy == MissingStrict {
				return res, apperr.Consistency(what, "report line %d references a record absent from the structure files", r.Line).WithStage(Stage)
			}
			res.Missing++
			log.Warn("unresolved report row",
				logging.String("name", r.Name),
				logging.String("query", r.Query),
				logging.Int("line", r.Line),
				logging.Bool("dbase_found", okD),
				logging.Bool("query_found", okQ))
			continue
		}
		if err := writeBoth(qw, qtext, dw, dtext); err != nil {
			return res, apperr.IO(err, "write overlay pair for %s", r.Name)
		}
		res.Written++
	}
	if err := qw.Close(); err != nil {
		return res, apperr.IO(err, "close %s", res.QueryOut)
	}
	if err := dw.Close(); err != nil {
		return res, apperr.IO(err, "close %s", res.DbaseOut)
	}
	if err := idx.Close(); err != nil {
		return res, apperr.IO(err, "release index for %s", opts.Database)
	}
	return res, nil
}

func writeBoth(qw io.Writer, q []byte, dw io.Writer, d []byte) error {
	if _, err := qw.Write(q); err != nil {
		return err
	}
	_, err := dw.Write(d)
	return err
}

// DirOptions configures Run over a directory of overlay hit files.
type DirOptions struct {
	Input  string // directory (or single file) of overlay hits with sibling .rpt reports
	Output string // output directory
	Link   LinkOptions
}

// Run links every hit file under opts.Input with its report.
func Run(ctx context.Context, opts DirOptions) ([]LinkResult, error) {
	log := opts.Link.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	log = log.Named(Stage)
	files, err := mol2.ListFiles(ctx, opts.Link.Source, opts.Input)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.Output, 0o755); err != nil {
		return nil, apperr.IO(err, "create output directory %s", opts.Output)
	}
	var out []LinkResult
	for _, hits := range files {
		lo := opts.Link
		lo.Logger = log.With(logging.String("file", hits))
		lo.Database = hits
		lo.Report = ReportPathFor(hits)
		lo.OutBase = filepath.Join(opts.Output, mol2.TrimSuffix(filepath.Base(hits)))
		res, err := Link(ctx, lo)
		out = append(out, res)
		if err != nil {
			return out, apperr.Wrap(err, "", "link %s", hits).WithStage(Stage)
		}
		log.Info("processed file",
			logging.String("file", hits),
			logging.Int("rows", res.Rows),
			logging.Int("selected", res.Selected),
			logging.Int("written", res.Written),
			logging.Int("missing", res.Missing))
	}
	return out, nil
}

func (r LinkResult) String() string {
	return fmt.Sprintf("rows=%d selected=%d written=%d missing=%d", r.Rows, r.Selected, r.Written, r.Missing)
}
