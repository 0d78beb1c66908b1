package config

import "github.com/rasbt/screenlamp/internal/pipeline"

const (
	DefaultProcesses = 0
	DefaultBatchSize = pipeline.DefaultBatchSize

	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"

	DefaultIDColumn  = "ZINC_ID"
	DefaultSeparator = `\t`

	DefaultMissing = "skip"
)

// DefaultSortBy is the overlay sort order used when none is configured.
var DefaultSortBy = []string{"TanimotoCombo"}

// ApplyDefaults fills zero-value fields in cfg. Fields already set are left
// unchanged.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.General.BatchSize == 0 {
		cfg.General.BatchSize = DefaultBatchSize
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
	if cfg.Datatable.IDColumn == "" {
		cfg.Datatable.IDColumn = DefaultIDColumn
	}
	if cfg.Datatable.Separator == "" {
		cfg.Datatable.Separator = DefaultSeparator
	}
	if len(cfg.Overlay.SortBy) == 0 {
		cfg.Overlay.SortBy = append([]string(nil), DefaultSortBy...)
	}
	if cfg.Overlay.Missing == "" {
		cfg.Overlay.Missing = DefaultMissing
	}
}
