package cmdutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rasbt/screenlamp/internal/runutil"
	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

func TestRunStage_SummaryEvenOnError(t *testing.T) {
	boom := apperr.Consistency("Z1", "unresolved")
	s, err := RunStage(context.Background(), "run", "sort-overlay", func(context.Context) (Report, error) {
		var r Report
		r.AddFile("a", "a_out", runutil.Counts{Scanned: 4, Emitted: 3}, 1)
		r.AddFile("b", "b_out", runutil.Counts{Scanned: 1, Emitted: 1}, 0)
		return r, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if s.Stage != "sort-overlay" || s.RunID != "run" || s.Scanned != 5 || s.Emitted != 4 || s.Missing != 1 || len(s.Files) != 2 {
		t.Fatalf("summary = %+v", s)
	}
}

func TestFail_ExitCodes(t *testing.T) {
	var b bytes.Buffer
	if got := Fail(&b, nil); got != 0 {
		t.Fatalf("nil -> %d", got)
	}
	if got := Fail(&b, apperr.Config("bad flag")); got != 2 {
		t.Fatalf("config -> %d", got)
	}
	if !strings.Contains(b.String(), "error: ") || !strings.Contains(b.String(), "bad flag") {
		t.Fatalf("stderr = %q", b.String())
	}
	b.Reset()
	if got := Fail(&b, fmt.Errorf("stage: %w", context.Canceled)); got != 130 || b.Len() != 0 {
		t.Fatalf("cancel -> %d, %q", got, b.String())
	}
}
