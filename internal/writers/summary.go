package writers

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/rasbt/screenlamp/pkg/api"
)

const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
)

// TextHeader is the column header of the text format.
var TextHeader = []string{"stage", "file", "scanned", "emitted", "missing"}

func init() {
	RegisterSummary(FormatText, WriteText)
	RegisterSummary(FormatJSON, WriteJSON)
	RegisterSummary(FormatJSONL, WriteJSONL)
}

// WriteText writes one tab-separated row per file and a closing "total" row.
func WriteText(w io.Writer, s api.StageSummaryV1, header bool) error {
	bw := bufio.NewWriter(w)
	if header {
		fmt.Fprintln(bw, strings.Join(TextHeader, "\t"))
	}
	for _, f := range s.Files {
		fmt.Fprintf(bw, "%s\t%s\t%d\t%d\t%d\n", s.Stage, f.File, f.Scanned, f.Emitted, f.Missing)
	}
	fmt.Fprintf(bw, "%s\t%s\t%d\t%d\t%d\n", s.Stage, "total", s.Scanned, s.Emitted, s.Missing)
	return bw.Flush()
}

// WriteJSON writes the summary as one indented document.
func WriteJSON(w io.Writer, s api.StageSummaryV1, _ bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// IsBrokenPipe reports whether a write failed because the reader went away,
// as when stdout is piped into `head`.
func IsBrokenPipe(err error) bool {
	return err != nil && (errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe))
}
