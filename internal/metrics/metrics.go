// Package metrics records per-stage counters in a private Prometheus
// registry and writes them in the node-exporter textfile format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

const namespace = "screenlamp"

// Recorder is nil-safe: a nil *Recorder discards everything, so stages can
// call it unconditionally.
type Recorder struct {
	registry *prometheus.Registry
	scanned  *prometheus.CounterVec
	emitted  *prometheus.CounterVec
	missing  *prometheus.CounterVec
	duration *prometheus.GaugeVec
	runInfo  *prometheus.GaugeVec
}

// New builds a recorder labelled with runID.
func New(runID string) *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		scanned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "records_scanned_total",
			Help: "Structure records or table rows read by a stage.",
		}, []string{"stage"}),
		emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "records_emitted_total",
			Help: "Records or ids written by a stage.",
		}, []string{"stage"}),
		missing: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "records_missing_total",
			Help: "Report rows whose ids could not be resolved.",
		}, []string{"stage"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "stage_duration_seconds",
			Help: "Wall time of the last run of a stage.",
		}, []string{"stage"}),
		runInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "run_info",
			Help: "Constant 1, labelled with the run id.",
		}, []string{"run_id"}),
	}
	reg.MustRegister(r.scanned, r.emitted, r.missing, r.duration, r.runInfo)
	r.runInfo.WithLabelValues(runID).Set(1)
	return r
}

func (r *Recorder) Scanned(stage string, n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.scanned.WithLabelValues(stage).Add(float64(n))
}

func (r *Recorder) Emitted(stage string, n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.emitted.WithLabelValues(stage).Add(float64(n))
}

func (r *Recorder) Missing(stage string, n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.missing.WithLabelValues(stage).Add(float64(n))
}

func (r *Recorder) Duration(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.duration.WithLabelValues(stage).Set(d.Seconds())
}

// Gatherer exposes the registry for tests and custom exporters.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// WriteTextfile writes the registry to path atomically. An empty path or a
// nil recorder is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return apperr.IO(err, "write metrics %s", path)
	}
	return nil
}
