package writers

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/rasbt/screenlamp/pkg/api"
)

// WriteJSONL writes one line per file, then the summary without its files
// as the last line.
func WriteJSONL(out io.Writer, s api.StageSummaryV1, _ bool) error {
	bw := bufio.NewWriter(out)
	enc := json.NewEncoder(bw)
	for _, f := range s.Files {
		if f.Stage == "" {
			f.Stage = s.Stage
		}
		if err := enc.Encode(f); err != nil {
			return err
		}
	}
	last := s
	last.Files = nil
	if err := enc.Encode(last); err != nil {
		return err
	}
	return bw.Flush()
}
