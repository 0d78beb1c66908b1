package funcgroup

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rasbt/screenlamp/internal/geometry"
	"github.com/rasbt/screenlamp/internal/logging"
	"github.com/rasbt/screenlamp/internal/mol2"
	"github.com/rasbt/screenlamp/internal/pipeline"
	"github.com/rasbt/screenlamp/internal/runutil"
	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

const MatchingStage = "funcgroup-matching"

// DefaultMaxDistance is the nearest-atom cutoff in angstrom.
const DefaultMaxDistance = 1.3

const (
	querySuffix    = "_query"
	dbaseSuffix    = "_dbase"
	chargeSuffix   = "_charge.tsv"
	atomtypeSuffix = "_atomtype.tsv"
)

// FilePair is one query/database overlay pair sharing Base.
type FilePair struct {
	Base  string
	Query string
	Dbase string
}

// PairOverlayFiles matches "<base>_query.mol2*" with "<base>_dbase.mol2*".
// Files of neither kind are ignored; a lone half is a consistency error.
func PairOverlayFiles(files []string) ([]FilePair, error) {
	byBase := map[string]*FilePair{}
	var order []string
	for _, f := range files {
		stem := mol2.TrimSuffix(filepath.Base(f))
		var base string
		var isQuery bool
		switch {
		case strings.HasSuffix(stem, querySuffix):
			base, isQuery = strings.TrimSuffix(stem, querySuffix), true
		case strings.HasSuffix(stem, dbaseSuffix):
			base = strings.TrimSuffix(stem, dbaseSuffix)
		default:
			continue
		}
		p, ok := byBase[base]
		if !ok {
			p = &FilePair{Base: base}
			byBase[base] = p
			order = append(order, base)
		}
		if isQuery {
			p.Query = f
		} else {
			p.Dbase = f
		}
	}
	out := make([]FilePair, 0, len(order))
	for _, b := range order {
		p := byBase[b]
		if p.Query == "" || p.Dbase == "" {
			return nil, apperr.Consistency(b, "overlay pair is incomplete (query %q, dbase %q)", p.Query, p.Dbase)
		}
		out = append(out, *p)
	}
	return out, nil
}

// MatchOptions configures Match.
type MatchOptions struct {
	Input       string // directory of overlay pairs
	Output      string // directory for the tables
	MaxDistance float64
	Pipeline    pipeline.Config
	CacheSize   int
	Source      mol2.Source
	Logger      logging.Logger
}

// MatchRow holds the nearest database atom of every query atom.
type MatchRow struct {
	Dbase   string
	Query   string
	Types   []string
	Charges []float64
}

// MatchResult tallies a Match run.
type MatchResult struct {
	Pairs []FilePair
	runutil.Counts
	CacheHits   int
	CacheMisses int
}

// ChargeTablePath and AtomTypeTablePath name the tables written for base.
func ChargeTablePath(dir, base string) string   { return filepath.Join(dir, base+chargeSuffix) }
func AtomTypeTablePath(dir, base string) string { return filepath.Join(dir, base+atomtypeSuffix) }

type matchTask struct {
	query *mol2.Record
	dbase mol2.RawRecord
}

var errStopZip = errors.New("zip exhausted")

// Match writes atom-type and charge tables for every overlay pair in
// opts.Input. Records are zipped in order; the shorter file ends the pair.
func Match(ctx context.Context, opts MatchOptions) (MatchResult, error) {
	log := opts.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	log = log.Named(MatchingStage)
	if opts.MaxDistance <= 0 || math.IsNaN(opts.MaxDistance) {
		opts.MaxDistance = DefaultMaxDistance
	}
	var res MatchResult
	files, err := mol2.ListFiles(ctx, opts.Source, opts.Input)
	if err != nil {
		return res, err
	}
	pairs, err := PairOverlayFiles(files)
	if err != nil {
		return res, apperr.Wrap(err, "", "pair overlay files in %s", opts.Input).WithStage(MatchingStage)
	}
	res.Pairs = pairs
	if err := os.MkdirAll(opts.Output, 0o755); err != nil {
		return res, apperr.IO(err, "create output directory %s", opts.Output)
	}
	cache, err := geometry.NewRecordCache(opts.CacheSize)
	if err != nil {
		return res, apperr.Wrap(err, apperr.CodeConfig, "record cache")
	}
	for _, p := range pairs {
		counts, err := matchPair(ctx, opts, p, cache, log)
		res.Counts.Add(counts)
		if err != nil {
			return res, apperr.Wrap(err, "", "match %s", p.Base).WithStage(MatchingStage)
		}
	}
	res.CacheHits, res.CacheMisses = cache.Stats()
	log.Info("done",
		logging.Int("pairs", len(pairs)),
		logging.Int64("scanned", res.Scanned),
		logging.Int("cache_hits", res.CacheHits),
		logging.Int("cache_misses", res.CacheMisses))
	return res, nil
}

func matchPair(ctx context.Context, opts MatchOptions, p FilePair, cache *geometry.RecordCache, log logging.Logger) (runutil.Counts, error) {
	var queries []mol2.RawRecord
	if err := mol2.Stream(ctx, opts.Source, p.Query, func(r mol2.RawRecord) error {
		queries = append(queries, r)
		return nil
	}); err != nil {
		return runutil.Counts{}, err
	}
	var header []string
	if len(queries) > 0 {
		first, err := cache.Get(queries[0])
		if err != nil {
			return runutil.Counts{}, err
		}
		for _, a := range first.Atoms {
			header = append(header, a.Name)
		}
	}

	tw, err := newTableWriter(opts.Output, p.Base, header)
	if err != nil {
		return runutil.Counts{}, err
	}
	defer tw.Close()

	prog := runutil.NewProgress(log, p.Dbase)
	err = pipeline.Map(ctx, opts.Pipeline,
		func(emit func(matchTask) error) error {
			i := 0
			err := mol2.Stream(ctx, opts.Source, p.Dbase, func(d mol2.RawRecord) error {
				if i >= len(queries) {
					return errStopZip
				}
				q, err := cache.Get(queries[i])
				if err != nil {
					return err
				}
				i++
				return emit(matchTask{query: q, dbase: d})
			})
			if errors.Is(err, errStopZip) {
				return nil
			}
			return err
		},
		func(t matchTask) (MatchRow, error) {
			d, err := mol2.Parse(t.dbase)
			if err != nil {
				return MatchRow{}, err
			}
			corr := geometry.Nearest(t.query, d, opts.MaxDistance)
			row := MatchRow{Dbase: d.ID, Query: t.query.ID, Types: make([]string, len(corr)), Charges: make([]float64, len(corr))}
			for i, c := range corr {
				row.Types[i], row.Charges[i] = c.Type, c.Charge
			}
			return row, nil
		},
		func(row MatchRow) error {
			prog.Add(1, 1)
			return tw.Write(row)
		})
	counts := prog.Done()
	if err != nil {
		return counts, err
	}
	return counts, tw.Close()
}

// FormatCharge renders a matched charge with two decimals, "nan" for null.
func FormatCharge(c float64) string {
	if math.IsNaN(c) {
		return "nan"
	}
	return strconv.FormatFloat(c, 'f', 2, 64)
}

type tableWriter struct {
	files   []*os.File
	charge  *csv.Writer
	atom    *csv.Writer
	paths   [2]string
	closed  bool
	scratch []string
}

func newTableWriter(dir, base string, header []string) (*tableWriter, error) {
	tw := &tableWriter{paths: [2]string{ChargeTablePath(dir, base), AtomTypeTablePath(dir, base)}}
	for _, p := range tw.paths {
		fh, err := os.Create(p)
		if err != nil {
			tw.Close()
			return nil, apperr.IO(err, "create %s", p)
		}
		tw.files = append(tw.files, fh)
	}
	tw.charge = newTSVWriter(tw.files[0])
	tw.atom = newTSVWriter(tw.files[1])
	head := append([]string{"dbase", "query"}, header...)
	if err := tw.charge.Write(head); err != nil {
		tw.Close()
		return nil, apperr.IO(err, "write %s", tw.paths[0])
	}
	if err := tw.atom.Write(head); err != nil {
		tw.Close()
		return nil, apperr.IO(err, "write %s", tw.paths[1])
	}
	return tw, nil
}

func newTSVWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	return cw
}

func (tw *tableWriter) Write(row MatchRow) error {
	rec := append(tw.scratch[:0], row.Dbase, row.Query)
	for _, c := range row.Charges {
		rec = append(rec, FormatCharge(c))
	}
	if err := tw.charge.Write(rec); err != nil {
		return apperr.IO(err, "write %s", tw.paths[0])
	}
	rec = append(rec[:2], row.Types...)
	if err := tw.atom.Write(rec); err != nil {
		return apperr.IO(err, "write %s", tw.paths[1])
	}
	tw.scratch = rec
	return nil
}

// Close flushes and closes both tables. It is idempotent.
func (tw *tableWriter) Close() error {
	if tw.closed {
		return nil
	}
	tw.closed = true
	var err error
	for i, w := range []*csv.Writer{tw.charge, tw.atom} {
		if w == nil {
			continue
		}
		w.Flush()
		if ferr := w.Error(); ferr != nil && err == nil {
			err = apperr.IO(ferr, "flush %s", tw.paths[i])
		}
	}
	for i, fh := range tw.files {
		if cerr := fh.Close(); cerr != nil && err == nil {
			err = apperr.IO(cerr, "close %s", tw.paths[i])
		}
	}
	return err
}
