// internal/app/app.go
package app

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/rasbt/screenlamp/internal/cli"
	"github.com/rasbt/screenlamp/internal/cmdutil"
	"github.com/rasbt/screenlamp/internal/writers"
)

// RunContext executes one screenlamp invocation and returns its exit code.
func RunContext(parent context.Context, argv []string, stdout, stderr io.Writer) int {
	outw := bufio.NewWriter(stdout)

	root := cli.NewRootCommand(outw, stderr)
	root.SetArgs(argv)
	err := root.ExecuteContext(parent)

	if e := outw.Flush(); e != nil && !writers.IsBrokenPipe(e) {
		_, _ = fmt.Fprintln(stderr, e)
		if err == nil {
			return 3
		}
	}
	if err != nil && writers.IsBrokenPipe(err) {
		return 0
	}
	return cmdutil.Fail(stderr, err)
}

func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}
