// Package config loads the YAML pipeline configuration used by
// `screenlamp pipeline`.
package config

import (
	"strings"
	"unicode/utf8"

	"github.com/rasbt/screenlamp/internal/geometry"
	"github.com/rasbt/screenlamp/internal/logging"
	"github.com/rasbt/screenlamp/internal/objstore"
	"github.com/rasbt/screenlamp/internal/overlay"
	"github.com/rasbt/screenlamp/internal/selection"
	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

// Config is the top-level pipeline configuration.
type Config struct {
	General     GeneralConfig     `mapstructure:"general"`
	Logging     logging.LogConfig `mapstructure:"logging"`
	Datatable   DatatableConfig   `mapstructure:"datatable"`
	Presence    PresenceConfig    `mapstructure:"presence"`
	Distance    DistanceConfig    `mapstructure:"distance"`
	Overlay     OverlayConfig     `mapstructure:"overlay"`
	ObjectStore objstore.Config   `mapstructure:"object_store"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// GeneralConfig names where the run reads and writes.
type GeneralConfig struct {
	ProjectDir string `mapstructure:"project_dir"`
	InputDir   string `mapstructure:"input_dir"`
	// Processes is the worker count; 0 uses every CPU, -n leaves n free.
	Processes int `mapstructure:"processes"`
	BatchSize int `mapstructure:"batch_size"`
}

// DatatableConfig drives the property-table prefilter. The stage is
// skipped when Path is empty.
type DatatableConfig struct {
	Path      string `mapstructure:"path"`
	IDColumn  string `mapstructure:"id_column"`
	Selection string `mapstructure:"selection"`
	Separator string `mapstructure:"separator"`
}

// PresenceConfig drives the functional group presence filter.
type PresenceConfig struct {
	Selection string `mapstructure:"selection"`
}

// DistanceConfig drives the functional group distance filter.
type DistanceConfig struct {
	Selection string `mapstructure:"selection"`
	Distance  string `mapstructure:"distance"`
}

// OverlayConfig drives the sort-overlay stage over externally produced
// overlay hits. The stage is skipped when Input is empty.
type OverlayConfig struct {
	Input     string   `mapstructure:"input"`
	Query     string   `mapstructure:"query"`
	SortBy    []string `mapstructure:"sort_by"`
	Selection string   `mapstructure:"selection"`
	Missing   string   `mapstructure:"missing"`
	IDSuffix  bool     `mapstructure:"id_suffix"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// SeparatorRune returns the datatable separator as a rune.
func (d DatatableConfig) SeparatorRune() rune {
	r, _ := ParseSeparator(d.Separator)
	return r
}

// ParseSeparator accepts a single character, or `\t` and "tab" for a tab.
// The empty string is a tab.
func ParseSeparator(s string) (rune, error) {
	switch s {
	case "", `\t`, "tab":
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, apperr.Config("separator %q must be a single character", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

// Validate checks the fully-populated Config and returns the first problem
// as a CodeConfig error.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.General.ProjectDir) == "" {
		return apperr.Config("general.project_dir is required")
	}
	if strings.TrimSpace(c.General.InputDir) == "" {
		return apperr.Config("general.input_dir is required")
	}
	if c.General.BatchSize < 1 {
		return apperr.Config("general.batch_size must be >= 1, got %d", c.General.BatchSize)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return apperr.Config("logging.level %q is invalid; expected debug|info|warn|error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return apperr.Config("logging.format %q is invalid; expected console|json", c.Logging.Format)
	}

	if c.Datatable.Path != "" {
		if _, err := ParseSeparator(c.Datatable.Separator); err != nil {
			return apperr.Wrap(err, "", "datatable.separator")
		}
		if c.Datatable.IDColumn == "" {
			return apperr.Config("datatable.id_column is required")
		}
		if err := checkSelection("datatable.selection", c.Datatable.Selection); err != nil {
			return err
		}
	}
	if err := checkSelection("presence.selection", c.Presence.Selection); err != nil {
		return err
	}
	if c.Distance.Selection != "" {
		if err := checkSelection("distance.selection", c.Distance.Selection); err != nil {
			return err
		}
		if _, err := geometry.ParseDistanceRange(c.Distance.Distance); err != nil {
			return apperr.Wrap(err, "", "distance.distance")
		}
	}

	if c.Overlay.Input != "" {
		if c.Overlay.Query == "" {
			return apperr.Config("overlay.query is required when overlay.input is set")
		}
		if err := checkSelection("overlay.selection", c.Overlay.Selection); err != nil {
			return err
		}
	}
	if _, err := overlay.ParseMissingPolicy(c.Overlay.Missing); err != nil {
		return apperr.Wrap(err, "", "overlay.missing")
	}
	return nil
}

// checkSelection parses a non-empty selection string without a schema;
// column names are resolved when the stage runs.
func checkSelection(key, sel string) error {
	if strings.TrimSpace(sel) == "" {
		return nil
	}
	if _, err := selection.Parse(sel); err != nil {
		return apperr.Wrap(err, "", "%s", key)
	}
	return nil
}
