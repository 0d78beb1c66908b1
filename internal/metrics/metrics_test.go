package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_CountsAndTextfile(t *testing.T) {
	r := New("run-1")
	r.Scanned("id-to-mol2", 10)
	r.Scanned("id-to-mol2", 5)
	r.Emitted("id-to-mol2", 3)
	r.Missing("sort-overlay", 2)
	r.Duration("id-to-mol2", 1500*time.Millisecond)

	mfs, err := r.Gatherer().Gather()
	require.NoError(t, err)
	assert.Len(t, mfs, 5)

	path := filepath.Join(t.TempDir(), "screenlamp.prom")
	require.NoError(t, r.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `screenlamp_records_scanned_total{stage="id-to-mol2"} 15`)
	assert.Contains(t, text, `screenlamp_stage_duration_seconds{stage="id-to-mol2"} 1.5`)
	assert.Contains(t, text, `screenlamp_run_info{run_id="run-1"} 1`)
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	r.Scanned("x", 1)
	r.Emitted("x", 1)
	r.Missing("x", 1)
	r.Duration("x", time.Second)
	assert.NoError(t, r.WriteTextfile(filepath.Join(t.TempDir(), "m.prom")))
	mfs, err := r.Gatherer().Gather()
	require.NoError(t, err)
	assert.Empty(t, mfs)
}
