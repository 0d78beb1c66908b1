// internal/writers/registry.go
package writers

import (
	"fmt"
	"io"
	"sort"

	"github.com/rasbt/screenlamp/pkg/api"
)

// Summary writer registry (format → handler). Formats register in init()
// blocks of the writer files.
var SummaryWriters = map[string]func(w io.Writer, s api.StageSummaryV1, header bool) error{}

// RegisterSummary is idempotent, last wins.
func RegisterSummary(format string, fn func(io.Writer, api.StageSummaryV1, bool) error) {
	SummaryWriters[format] = fn
}

// Formats lists the registered format names, sorted.
func Formats() []string {
	out := make([]string, 0, len(SummaryWriters))
	for f := range SummaryWriters {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// WriteSummary dispatches to the writer registered for format.
func WriteSummary(format string, w io.Writer, s api.StageSummaryV1, header bool) error {
	fn, ok := SummaryWriters[format]
	if !ok {
		return fmt.Errorf("unknown summary format %q (no writer registered)", format)
	}
	return fn(w, s, header)
}
