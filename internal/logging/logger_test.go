package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerFromCore_RecordsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewLoggerFromCore(core).Named("idfilter").With(String("stage", "id-to-mol2"))

	l.Info("processed file", String("file", "a.mol2"), Int("records", 3), Float64("mol_per_sec", 12.5))
	l.Warn("skipped", Err(errors.New("boom")))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "processed file", entries[0].Message)
	assert.Equal(t, "idfilter", entries[0].LoggerName)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "id-to-mol2", ctx["stage"])
	assert.Equal(t, "a.mol2", ctx["file"])
	assert.EqualValues(t, 3, ctx["records"])
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("bogus"))
}

func TestWriterLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(zapcore.AddSync(&buf), LogConfig{Level: "warn"})
	l.Info("hidden")
	l.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Info("x")
	assert.NotNil(t, l.With(String("a", "b")).Named("n"))
}
