// internal/runutil/runutil.go
package runutil

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/rasbt/screenlamp/internal/logging"
)

// ProgressInterval spaces debug progress lines while one file streams.
const ProgressInterval = 5 * time.Second

// NewRunID tags every log line and summary of one invocation.
func NewRunID() string { return uuid.NewString() }

// Counts is the scanned/emitted tally of one file or a whole stage.
type Counts struct {
	Scanned int64 `json:"scanned"`
	Emitted int64 `json:"emitted"`
}

func (c *Counts) Add(o Counts) {
	c.Scanned += o.Scanned
	c.Emitted += o.Emitted
}

// Progress tracks one input file. It is used by the coordinating goroutine
// only.
type Progress struct {
	log    logging.Logger
	file   string
	start  time.Time
	counts Counts
	every  rate.Sometimes
}

func NewProgress(log logging.Logger, file string) *Progress {
	return NewProgressEvery(log, file, ProgressInterval)
}

func NewProgressEvery(log logging.Logger, file string, interval time.Duration) *Progress {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Progress{log: log, file: file, start: time.Now(), every: rate.Sometimes{Interval: interval}}
}

// Add records scanned and emitted records and may log a throttled debug line.
func (p *Progress) Add(scanned, emitted int) {
	p.counts.Scanned += int64(scanned)
	p.counts.Emitted += int64(emitted)
	p.every.Do(func() {
		p.log.Debug("progress",
			logging.String("file", p.file),
			logging.Int64("scanned", p.counts.Scanned),
			logging.Float64("mol_per_sec", p.rate()))
	})
}

func (p *Progress) rate() float64 {
	secs := time.Since(p.start).Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(p.counts.Scanned) / secs
}

// Done logs the per-file line and returns the file's counts.
func (p *Progress) Done() Counts {
	p.log.Info("processed file",
		logging.String("file", p.file),
		logging.Int64("scanned", p.counts.Scanned),
		logging.Int64("emitted", p.counts.Emitted),
		logging.Float64("mol_per_sec", p.rate()))
	return p.counts
}
