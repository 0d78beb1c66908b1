// internal/appcore/core.go
package appcore

import (
	"context"
	"io"
	"time"

	"github.com/rasbt/screenlamp/internal/cmdutil"
	"github.com/rasbt/screenlamp/internal/logging"
	"github.com/rasbt/screenlamp/internal/metrics"
	"github.com/rasbt/screenlamp/internal/mol2"
	"github.com/rasbt/screenlamp/internal/pipeline"
	"github.com/rasbt/screenlamp/pkg/api"
)

// Env carries what every stage needs: logging, metrics, the structure
// source, worker settings and the summary writer.
type Env struct {
	Log         logging.Logger
	Metrics     *metrics.Recorder
	RunID       string
	Source      mol2.Source
	Workers     int
	BatchSize   int
	Stdout      io.Writer
	Summary     SummaryWriterFactory
	MetricsFile string
}

// Pipeline returns the dispatcher settings for this run.
func (e *Env) Pipeline() pipeline.Config {
	return pipeline.Config{Workers: pipeline.ResolveWorkers(e.Workers), BatchSize: e.BatchSize}
}

// Logger never returns nil.
func (e *Env) Logger() logging.Logger {
	if e.Log == nil {
		return logging.NewNopLogger()
	}
	return e.Log
}

// RunStage runs one stage, records its metrics, logs the outcome and, on
// success, writes the summary to stdout. The metrics textfile is written on
// every exit path.
func (e *Env) RunStage(ctx context.Context, stage string, fn func(context.Context) (cmdutil.Report, error)) (api.StageSummaryV1, error) {
	log := e.Logger()
	s, err := cmdutil.RunStage(ctx, e.RunID, stage, fn)

	e.Metrics.Scanned(stage, s.Scanned)
	e.Metrics.Emitted(stage, s.Emitted)
	e.Metrics.Missing(stage, s.Missing)
	e.Metrics.Duration(stage, time.Duration(s.DurationMS)*time.Millisecond)
	merr := e.Metrics.WriteTextfile(e.MetricsFile)

	fields := []logging.Field{
		logging.String("stage", stage),
		logging.Int64("scanned", s.Scanned),
		logging.Int64("emitted", s.Emitted),
		logging.Int64("missing", s.Missing),
		logging.Int64("duration_ms", s.DurationMS),
	}
	if err != nil {
		log.Error("stage failed", append(fields, logging.Err(err))...)
		return s, err
	}
	log.Info("stage finished", fields...)
	if merr != nil {
		return s, merr
	}
	if e.Stdout != nil {
		if werr := e.Summary.Write(e.Stdout, s); werr != nil {
			return s, werr
		}
	}
	return s, nil
}
