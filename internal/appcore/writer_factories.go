package appcore

import (
	"bufio"
	"io"

	"github.com/rasbt/screenlamp/internal/writers"
	"github.com/rasbt/screenlamp/pkg/api"
	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

// SummaryWriterFactory renders stage summaries in one registered format.
// Quiet suppresses the summary entirely.
type SummaryWriterFactory struct {
	Format string
	Header bool
	Quiet  bool
}

func NewSummaryWriterFactory(format string, header, quiet bool) SummaryWriterFactory {
	return SummaryWriterFactory{Format: format, Header: header, Quiet: quiet}
}

// Validate rejects unknown formats before any stage runs.
func (w SummaryWriterFactory) Validate() error {
	if _, ok := writers.SummaryWriters[w.Format]; !ok {
		return apperr.Config("unknown --format %q (want one of %v)", w.Format, writers.Formats())
	}
	return nil
}

// Write renders s to out. A consumer that closed the pipe early is not an
// error.
func (w SummaryWriterFactory) Write(out io.Writer, s api.StageSummaryV1) error {
	if w.Quiet {
		return nil
	}
	bw := bufio.NewWriter(out)
	if err := writers.WriteSummary(w.Format, bw, s, w.Header); err != nil {
		if writers.IsBrokenPipe(err) {
			return nil
		}
		return apperr.Wrap(err, apperr.CodeIO, "write summary")
	}
	if err := bw.Flush(); err != nil && !writers.IsBrokenPipe(err) {
		return apperr.IO(err, "write summary")
	}
	return nil
}
