// internal/cmdutil/log.go
package cmdutil

import (
	"context"
	"errors"
	"fmt"
	"io"

	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

// Fail prints err to dst and returns the process exit code for it.
// Cancellation maps to 130 and prints nothing.
func Fail(dst io.Writer, err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, context.Canceled) {
		return 130
	}
	_, _ = fmt.Fprintf(dst, "error: %v\n", err)
	return apperr.ExitCode(err)
}
