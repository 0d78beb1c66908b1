package writers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"syscall"
	"testing"

	"github.com/rasbt/screenlamp/pkg/api"
)

func sample() api.StageSummaryV1 {
	return api.StageSummaryV1{
		RunID: "r1", Stage: "id-to-mol2", Scanned: 5, Emitted: 3,
		Files: []api.FileV1{{File: "a.mol2", Scanned: 2, Emitted: 1}, {File: "b.mol2", Scanned: 3, Emitted: 2}},
	}
}

func TestUnknownSummaryFormatError(t *testing.T) {
	var b bytes.Buffer
	err := WriteSummary("nope-format", &b, sample(), false)
	if err == nil || !strings.Contains(err.Error(), "unknown summary format") {
		t.Fatalf("want 'unknown summary format' error, got: %v", err)
	}
}

func TestFormatsRegistered(t *testing.T) {
	got := strings.Join(Formats(), ",")
	if got != "json,jsonl,text" {
		t.Fatalf("formats = %s", got)
	}
}

func TestWriteText(t *testing.T) {
	var b bytes.Buffer
	if err := WriteSummary(FormatText, &b, sample(), true); err != nil {
		t.Fatal(err)
	}
	want := "stage\tfile\tscanned\temitted\tmissing\n" +
		"id-to-mol2\ta.mol2\t2\t1\t0\n" +
		"id-to-mol2\tb.mol2\t3\t2\t0\n" +
		"id-to-mol2\ttotal\t5\t3\t0\n"
	if b.String() != want {
		t.Fatalf("text:\n%s\nwant:\n%s", b.String(), want)
	}
}

func TestWriteJSONL_FilesThenSummary(t *testing.T) {
	var b bytes.Buffer
	if err := WriteSummary(FormatJSONL, &b, sample(), false); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("want 3 lines, got %d: %q", len(lines), b.String())
	}
	var f api.FileV1
	if err := json.Unmarshal([]byte(lines[0]), &f); err != nil || f.File != "a.mol2" || f.Stage != "id-to-mol2" {
		t.Fatalf("first line = %s (%v)", lines[0], err)
	}
	var s api.StageSummaryV1
	if err := json.Unmarshal([]byte(lines[2]), &s); err != nil || s.Emitted != 3 || len(s.Files) != 0 {
		t.Fatalf("last line = %s (%v)", lines[2], err)
	}
}

func TestWriteJSON_Pretty(t *testing.T) {
	var b bytes.Buffer
	if err := WriteSummary(FormatJSON, &b, sample(), false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), "\n  \"run_id\": \"r1\"") {
		t.Fatalf("json not indented: %s", b.String())
	}
}

func TestIsBrokenPipe(t *testing.T) {
	if !IsBrokenPipe(fmt.Errorf("write stdout: %w", syscall.EPIPE)) || !IsBrokenPipe(io.ErrClosedPipe) {
		t.Fatal("wrapped EPIPE and ErrClosedPipe are broken pipes")
	}
	if IsBrokenPipe(nil) || IsBrokenPipe(io.EOF) {
		t.Fatal("nil and EOF are not broken pipes")
	}
}
