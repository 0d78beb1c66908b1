// pkg/api/summary_v1.go
package api

// StageSummaryV1 is the stable JSON schema of one stage invocation.
// Keep fields, names, and types stable. Add new fields only with ",omitempty".
type StageSummaryV1 struct {
	RunID      string   `json:"run_id"`
	Stage      string   `json:"stage"`
	Inputs     []string `json:"inputs,omitempty"`
	Output     string   `json:"output,omitempty"`
	Scanned    int64    `json:"scanned"`
	Emitted    int64    `json:"emitted"`
	Missing    int64    `json:"missing,omitempty"`
	DurationMS int64    `json:"duration_ms"`
	Files      []FileV1 `json:"files,omitempty"`
}

// FileV1 is the per-file tally inside a summary, and the JSONL line type.
type FileV1 struct {
	Stage   string `json:"stage,omitempty"`
	File    string `json:"file"`
	Output  string `json:"output,omitempty"`
	Scanned int64  `json:"scanned"`
	Emitted int64  `json:"emitted"`
	Missing int64  `json:"missing,omitempty"`
}
