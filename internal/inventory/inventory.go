// Package inventory counts structure records, lists their ids and merges
// id files.
package inventory

import (
	"context"

	"github.com/rasbt/screenlamp/internal/idset"
	"github.com/rasbt/screenlamp/internal/logging"
	"github.com/rasbt/screenlamp/internal/mol2"
	"github.com/rasbt/screenlamp/internal/runutil"
	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

const (
	CountStage = "count"
	IDStage    = "mol2-to-id"
	MergeStage = "merge-ids"
)

// FileCount is the record count of one structure file.
type FileCount struct {
	File    string `json:"file"`
	Records int64  `json:"records"`
}

// Count streams every structure file under input and counts its records.
func Count(ctx context.Context, src mol2.Source, input string, log logging.Logger) ([]FileCount, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	log = log.Named(CountStage)
	files, err := mol2.ListFiles(ctx, src, input)
	if err != nil {
		return nil, err
	}
	out := make([]FileCount, 0, len(files))
	var total int64
	for _, f := range files {
		prog := runutil.NewProgress(log, f)
		err := mol2.Stream(ctx, src, f, func(mol2.RawRecord) error {
			prog.Add(1, 1)
			return nil
		})
		c := prog.Done()
		out = append(out, FileCount{File: f, Records: c.Scanned})
		total += c.Scanned
		if err != nil {
			return out, apperr.Wrap(err, "", "count %s", f).WithStage(CountStage)
		}
	}
	log.Info("done", logging.Int("files", len(files)), logging.Int64("records", total))
	return out, nil
}

// Total sums counts.
func Total(counts []FileCount) int64 {
	var n int64
	for _, c := range counts {
		n += c.Records
	}
	return n
}

// WriteIDs writes the id of every record under input to output, in file and
// record order. Repeated ids (conformers) are written each time they occur.
func WriteIDs(ctx context.Context, src mol2.Source, input, output string, log logging.Logger) (runutil.Counts, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	log = log.Named(IDStage)
	var total runutil.Counts
	files, err := mol2.ListFiles(ctx, src, input)
	if err != nil {
		return total, err
	}
	w, err := idset.Create(output)
	if err != nil {
		return total, err
	}
	defer w.Close()
	for _, f := range files {
		prog := runutil.NewProgress(log, f)
		err := mol2.Stream(ctx, src, f, func(r mol2.RawRecord) error {
			prog.Add(1, 1)
			return w.Add(r.ID)
		})
		total.Add(prog.Done())
		if err != nil {
			return total, apperr.Wrap(err, "", "list ids of %s", f).WithStage(IDStage)
		}
	}
	if err := w.Commit(); err != nil {
		return total, err
	}
	return total, nil
}

// MergeFiles writes the union of the id files at paths to output, first-seen
// order, comments and duplicates dropped.
func MergeFiles(paths []string, output string, log logging.Logger) (runutil.Counts, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	log = log.Named(MergeStage)
	var c runutil.Counts
	if len(paths) < 2 {
		return c, apperr.Config("merge needs at least two id files, got %d", len(paths))
	}
	sets := make([]*idset.Set, 0, len(paths))
	for _, p := range paths {
		s, err := idset.Load(p)
		if err != nil {
			return c, apperr.Wrap(err, "", "merge").WithStage(MergeStage)
		}
		log.Debug("loaded id file", logging.String("file", p), logging.Int("ids", s.Len()))
		c.Scanned += int64(s.Len())
		sets = append(sets, s)
	}
	merged := idset.Merge(sets...)
	if err := idset.WriteFile(output, merged.IDs()); err != nil {
		return c, err
	}
	c.Emitted = int64(merged.Len())
	log.Info("done", logging.Int64("read", c.Scanned), logging.Int64("written", c.Emitted))
	return c, nil
}
