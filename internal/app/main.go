package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// exitInterrupted is the shell convention for a run stopped by SIGINT.
const exitInterrupted = 130

// Main is the screenlamp entry point. The first SIGINT or SIGTERM cancels the
// running stage, which stops scheduling and drains its workers; a second one
// exits at once.
func Main() {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go watchSignals(sigs, cancel, os.Stderr, func() { os.Exit(exitInterrupted) })

	code := RunContext(ctx, Args(os.Args[1:]), os.Stdout, os.Stderr)
	signal.Stop(sigs)
	cancel()
	os.Exit(code)
}

// Args shows the help when screenlamp is started without a command.
func Args(argv []string) []string {
	if len(argv) == 0 {
		return []string{"--help"}
	}
	return argv
}

// watchSignals cancels on the first signal and calls force on the second.
// It returns when sigs is closed.
func watchSignals(sigs <-chan os.Signal, cancel context.CancelFunc, stderr io.Writer, force func()) {
	n := 0
	for sig := range sigs {
		n++
		if n == 1 {
			_, _ = fmt.Fprintf(stderr, "screenlamp: %v received, finishing running batches (repeat to exit now)\n", sig)
			cancel()
			continue
		}
		force()
		return
	}
}
