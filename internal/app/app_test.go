package app

import (
	"bytes"
	"context"
	"os"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgs_EmptyShowsHelp(t *testing.T) {
	assert.Equal(t, []string{"--help"}, Args(nil))
	assert.Equal(t, []string{"count", "-i", "db"}, Args([]string{"count", "-i", "db"}))
}

func TestWatchSignals_FirstCancelsSecondForces(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigs := make(chan os.Signal, 2)
	var stderr bytes.Buffer
	forced := make(chan struct{})
	done := make(chan struct{})
	go func() {
		watchSignals(sigs, cancel, &stderr, func() { close(forced) })
		close(done)
	}()

	sigs <- os.Interrupt
	<-ctx.Done()
	sigs <- syscall.SIGTERM
	<-forced
	<-done
	assert.True(t, strings.Contains(stderr.String(), "repeat to exit now"))
}

func TestWatchSignals_ReturnsWhenClosed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigs := make(chan os.Signal)
	close(sigs)
	watchSignals(sigs, cancel, &bytes.Buffer{}, func() { t.Fatal("forced without a signal") })
	require.NoError(t, ctx.Err())
}

func TestRun_HelpExitsZero(t *testing.T) {
	var out, errBuf bytes.Buffer
	code := Run(Args(nil), &out, &errBuf)
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "screenlamp")
}
