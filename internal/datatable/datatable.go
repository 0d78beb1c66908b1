// Package datatable selects molecule ids from a delimited property table
// (one row per molecule) with a row-level selection.
package datatable

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rasbt/screenlamp/internal/idset"
	"github.com/rasbt/screenlamp/internal/logging"
	"github.com/rasbt/screenlamp/internal/mol2"
	"github.com/rasbt/screenlamp/internal/pipeline"
	"github.com/rasbt/screenlamp/internal/runutil"
	"github.com/rasbt/screenlamp/internal/selection"
	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

const Stage = "datatable-to-id"

// DefaultChunkRows is how many rows are evaluated per work item.
const DefaultChunkRows = 100000

// Options configures Run.
type Options struct {
	Input     string // table path; compressed tables are read like structure files
	Output    string // id file, "-" for stdout
	IDColumn  string
	Selection string
	Separator rune // defaults to tab
	ChunkRows int
	Workers   int
	Source    mol2.Source
	Logger    logging.Logger
}

// Result tallies a Run: Scanned counts rows, Emitted selected ids.
type Result struct {
	runutil.Counts
}

// chunk is a block of rows; it implements selection.Rows with every column
// typed by the literal it is compared against.
type chunk struct {
	rows [][]string
}

type selected struct {
	rows int
	ids  []string
}

func (c *chunk) Len() int { return len(c.rows) }

func (c *chunk) Text(col, i int) string {
	if col >= len(c.rows[i]) {
		return ""
	}
	return c.rows[i][col]
}

func (c *chunk) Float(col, i int) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(c.Text(col, i)), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Schema types every header column as KindAuto.
func Schema(header []string) selection.Schema {
	s := make(selection.Schema, len(header))
	for i, h := range header {
		s[i] = selection.Column{Name: strings.TrimSpace(h), Kind: selection.KindAuto}
	}
	return s
}

// Run streams the table in chunks through the worker pool and writes the id
// column of every selected row, in table order.
func Run(ctx context.Context, opts Options) (Result, error) {
	log := opts.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	log = log.Named(Stage)
	var res Result
	if opts.Separator == 0 {
		opts.Separator = '\t'
	}
	if opts.ChunkRows <= 0 {
		opts.ChunkRows = DefaultChunkRows
	}

	rc, err := mol2.Open(ctx, opts.Source, opts.Input)
	if err != nil {
		return res, err
	}
	defer rc.Close()
	cr := csv.NewReader(rc)
	cr.Comma = opts.Separator
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return res, apperr.Config("table %s is empty, no header row", opts.Input).WithStage(Stage)
	}
	if err != nil {
		return res, apperr.IO(err, "read header of %s", opts.Input).WithStage(Stage)
	}
	schema := Schema(header)
	idCol, ok := schema.Index(opts.IDColumn)
	if !ok {
		return res, apperr.Config("table %s has no id column %q", opts.Input, opts.IDColumn).WithStage(Stage)
	}
	sel, err := selection.Compile(opts.Selection, schema)
	if err != nil {
		return res, apperr.Wrap(err, "", "datatable selection").WithStage(Stage)
	}
	log.Info("using selection", logging.String("selection", sel.String()), logging.Any("columns", sel.Columns()))

	out, err := idset.Create(opts.Output)
	if err != nil {
		return res, err
	}
	defer out.Close()

	prog := runutil.NewProgress(log, opts.Input)
	err = pipeline.Map(ctx, pipeline.Config{Workers: pipeline.ResolveWorkers(opts.Workers), BatchSize: 1},
		func(emit func(*chunk) error) error {
			c := &chunk{}
			for {
				rec, err := cr.Read()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return apperr.IO(err, "read %s", opts.Input)
				}
				c.rows = append(c.rows, rec)
				if len(c.rows) == opts.ChunkRows {
					if err := emit(c); err != nil {
						return err
					}
					c = &chunk{}
				}
			}
			if len(c.rows) > 0 {
				return emit(c)
			}
			return nil
		},
		func(c *chunk) (selected, error) {
			idx := selection.Indices(sel.Mask(c))
			out := selected{rows: len(c.rows), ids: make([]string, len(idx))}
			for n, i := range idx {
				out.ids[n] = strings.TrimSpace(c.Text(idCol, i))
			}
			return out, nil
		},
		func(s selected) error {
			for _, id := range s.ids {
				if err := out.Add(id); err != nil {
					return err
				}
			}
			prog.Add(s.rows, len(s.ids))
			return nil
		})
	res.Counts = prog.Done()
	if err != nil {
		return res, apperr.Wrap(err, "", "select rows of %s", opts.Input).WithStage(Stage)
	}
	if err := out.Commit(); err != nil {
		return res, err
	}
	return res, nil
}
