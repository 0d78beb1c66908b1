// Package idfilter keeps or drops structure records by id-set membership,
// copying kept records byte for byte.
package idfilter

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rasbt/screenlamp/internal/idset"
	"github.com/rasbt/screenlamp/internal/logging"
	"github.com/rasbt/screenlamp/internal/mol2"
	"github.com/rasbt/screenlamp/internal/runutil"
	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

// Stage is the name used in logs, metrics and errors.
const Stage = "id-to-mol2"

// Filter writes a record when its membership equals Include.
type Filter struct {
	IDs     *idset.Set
	Include bool
}

// Keep reports whether a record with id passes.
func (f Filter) Keep(id string) bool { return f.IDs.Has(id) == f.Include }

// FileResult is the tally for one input file.
type FileResult struct {
	Input  string
	Output string
	runutil.Counts
}

// FilterFile streams in and writes passing records to out. The output is
// compressed according to its own suffix.
func (f Filter) FilterFile(ctx context.Context, src mol2.Source, in, out string, log logging.Logger) (FileResult, error) {
	res := FileResult{Input: in, Output: out}
	w, err := mol2.Create(out)
	if err != nil {
		return res, err
	}
	prog := runutil.NewProgress(log, in)
	err = mol2.Stream(ctx, src, in, func(r mol2.RawRecord) error {
		if !f.Keep(r.ID) {
			prog.Add(1, 0)
			return nil
		}
		if _, werr := w.Write(r.Text); werr != nil {
			return apperr.IO(werr, "write %s", out)
		}
		prog.Add(1, 1)
		return nil
	})
	cerr := w.Close()
	res.Counts = prog.Done()
	if err != nil {
		return res, err
	}
	if cerr != nil {
		return res, apperr.IO(cerr, "close %s", out)
	}
	return res, nil
}

// Options configures Run.
type Options struct {
	Input  string // structure file or directory
	Output string // directory, or a structure file when Input is one file
	Filter Filter
	Source mol2.Source
	Logger logging.Logger
}

// Result is the tally for a whole Run.
type Result struct {
	Files []FileResult
	Total runutil.Counts
}

// OutputPath maps one input file to its output path under outDir, keeping
// the input's file name and therefore its compression suffix.
func OutputPath(outDir, in string) string {
	return filepath.Join(outDir, filepath.Base(in))
}

// Run filters every structure file under opts.Input.
func Run(ctx context.Context, opts Options) (Result, error) {
	log := opts.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	log = log.Named(Stage)
	var res Result
	files, err := mol2.ListFiles(ctx, opts.Source, opts.Input)
	if err != nil {
		return res, err
	}
	singleFileOut := len(files) == 1 && files[0] == opts.Input && mol2.HasSuffix(opts.Output)
	if !singleFileOut {
		if err := os.MkdirAll(opts.Output, 0o755); err != nil {
			return res, apperr.IO(err, "create output directory %s", opts.Output)
		}
	}
	for _, in := range files {
		out := opts.Output
		if !singleFileOut {
			out = OutputPath(opts.Output, in)
		}
		fr, err := opts.Filter.FilterFile(ctx, opts.Source, in, out, log)
		res.Files = append(res.Files, fr)
		res.Total.Add(fr.Counts)
		if err != nil {
			return res, apperr.Wrap(err, "", "filter %s", in).WithStage(Stage)
		}
	}
	log.Info("done",
		logging.Int("files", len(files)),
		logging.Int64("scanned", res.Total.Scanned),
		logging.Int64("emitted", res.Total.Emitted))
	return res, nil
}
