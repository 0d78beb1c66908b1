// Package funcgroup selects structure records by functional-group content:
// presence of atom patterns, distances between atom subsets, and nearest-atom
// matching of query overlays against database hits.
package funcgroup

import (
	"context"

	"github.com/rasbt/screenlamp/internal/idset"
	"github.com/rasbt/screenlamp/internal/logging"
	"github.com/rasbt/screenlamp/internal/mol2"
	"github.com/rasbt/screenlamp/internal/pipeline"
	"github.com/rasbt/screenlamp/internal/runutil"
	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

// ScanOptions configures a whole-record scan that writes the ids of matching
// records to an id file.
type ScanOptions struct {
	Input    string // structure file or directory
	Output   string // id file, "-" for stdout
	Pipeline pipeline.Config
	Source   mol2.Source
	Logger   logging.Logger
}

// ScanResult tallies a scan. IDs holds each matching id once, in input order.
type ScanResult struct {
	IDs   []string
	Files int
	runutil.Counts
}

type verdict struct {
	id   string
	keep bool
}

// scan parses every record on the worker pool and keeps those for which keep
// returns true. Output order follows input order.
func scan(ctx context.Context, stage string, opts ScanOptions, keep func(*mol2.Record) bool) (ScanResult, error) {
	log := opts.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	log = log.Named(stage)
	var res ScanResult
	files, err := mol2.ListFiles(ctx, opts.Source, opts.Input)
	if err != nil {
		return res, err
	}
	res.Files = len(files)
	ids := idset.New()
	for _, file := range files {
		prog := runutil.NewProgress(log, file)
		err := pipeline.Map(ctx, opts.Pipeline,
			func(emit func(mol2.RawRecord) error) error {
				return mol2.Stream(ctx, opts.Source, file, emit)
			},
			func(raw mol2.RawRecord) (verdict, error) {
				rec, err := mol2.Parse(raw)
				if err != nil {
					return verdict{}, err
				}
				return verdict{id: rec.ID, keep: keep(rec)}, nil
			},
			func(v verdict) error {
				if v.keep {
					ids.Add(v.id)
					prog.Add(1, 1)
				} else {
					prog.Add(1, 0)
				}
				return nil
			})
		res.Counts.Add(prog.Done())
		if err != nil {
			return res, apperr.Wrap(err, "", "scan %s", file).WithStage(stage)
		}
	}
	res.IDs = ids.IDs()
	if err := idset.WriteFile(opts.Output, res.IDs); err != nil {
		return res, apperr.Wrap(err, "", "write ids").WithStage(stage)
	}
	log.Info("done",
		logging.Int("files", res.Files),
		logging.Int64("scanned", res.Scanned),
		logging.Int("ids", len(res.IDs)))
	return res, nil
}
