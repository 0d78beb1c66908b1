// Package writers renders stage summaries on stdout.
//
// Design:
//   - Stages return counts; writers own all presentation (TSV text, JSON, JSONL).
//   - JSON and JSONL go through pkg/api (v1) for a stable wire format.
package writers
