package cmdutil

import (
	"context"
	"time"

	"github.com/rasbt/screenlamp/internal/runutil"
	"github.com/rasbt/screenlamp/pkg/api"
)

// Report is what a stage hands back for its summary.
type Report struct {
	Inputs  []string
	Output  string
	Files   []api.FileV1
	Total   runutil.Counts
	Missing int64
}

// AddFile appends a per-file tally and folds it into the total.
func (r *Report) AddFile(file, output string, c runutil.Counts, missing int64) {
	r.Files = append(r.Files, api.FileV1{File: file, Output: output, Scanned: c.Scanned, Emitted: c.Emitted, Missing: missing})
	r.Total.Add(c)
	r.Missing += missing
}

// RunStage runs fn and turns its report into a summary stamped with the run
// id, stage name and wall time. The summary is returned even when fn fails,
// carrying whatever was counted before the error.
func RunStage(ctx context.Context, runID, stage string, fn func(context.Context) (Report, error)) (api.StageSummaryV1, error) {
	start := time.Now()
	rep, err := fn(ctx)
	return api.StageSummaryV1{
		RunID:      runID,
		Stage:      stage,
		Inputs:     rep.Inputs,
		Output:     rep.Output,
		Scanned:    rep.Total.Scanned,
		Emitted:    rep.Total.Emitted,
		Missing:    rep.Missing,
		DurationMS: time.Since(start).Milliseconds(),
		Files:      rep.Files,
	}, err
}
