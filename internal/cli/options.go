// internal/cli/options.go
package cli

import (
	"github.com/spf13/cobra"

	"github.com/rasbt/screenlamp/internal/config"
	"github.com/rasbt/screenlamp/internal/logging"
	"github.com/rasbt/screenlamp/internal/mol2"
	"github.com/rasbt/screenlamp/internal/objstore"
	"github.com/rasbt/screenlamp/internal/pipeline"
	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

// Options holds the flags every command shares.
type Options struct {
	// Performance
	Processes int
	BatchSize int

	// Output
	Format      string
	NoHeader    bool
	MetricsFile string

	// Logging
	Verbose   bool
	Quiet     bool
	LogFormat string

	// Object store; empty fields fall back to SCREENLAMP_OBJECT_STORE_*.
	ObjectStore objstore.Config
}

// register wires the shared flags onto the root command.
func (o *Options) register(cmd *cobra.Command) {
	fs := cmd.PersistentFlags()

	fs.IntVar(&o.Processes, "processes", 0, "worker goroutines (0 = all CPUs, -n = all but n)")
	fs.IntVar(&o.BatchSize, "batch-size", pipeline.DefaultBatchSize, "records handed to a worker at a time")

	fs.StringVar(&o.Format, "format", "text", "summary format: text | json | jsonl")
	fs.BoolVar(&o.NoHeader, "no-header", false, "suppress the header line of the text summary")
	fs.StringVar(&o.MetricsFile, "metrics-file", "", "write Prometheus textfile metrics to this path")

	fs.BoolVarP(&o.Verbose, "verbose", "v", false, "debug logging")
	fs.BoolVarP(&o.Quiet, "quiet", "q", false, "log warnings and errors only")
	fs.StringVar(&o.LogFormat, "log-format", "console", "log format: console | json")

	fs.StringVar(&o.ObjectStore.Endpoint, "s3-endpoint", "", "object store endpoint for s3:// paths")
	fs.StringVar(&o.ObjectStore.AccessKey, "s3-access-key", "", "object store access key")
	fs.StringVar(&o.ObjectStore.SecretKey, "s3-secret-key", "", "object store secret key")
	fs.StringVar(&o.ObjectStore.Region, "s3-region", "", "object store region")
	fs.BoolVar(&o.ObjectStore.Secure, "s3-secure", false, "use TLS for the object store")
}

// Validate checks the shared flags.
func (o *Options) Validate() error {
	if o.BatchSize < 1 {
		return apperr.Config("--batch-size must be >= 1, got %d", o.BatchSize)
	}
	if o.Verbose && o.Quiet {
		return apperr.Config("--verbose conflicts with --quiet")
	}
	if o.LogFormat != "console" && o.LogFormat != "json" {
		return apperr.Config("invalid --log-format %q", o.LogFormat)
	}
	return nil
}

// LogConfig maps --verbose and --quiet onto a level.
func (o *Options) LogConfig() logging.LogConfig {
	level := "info"
	switch {
	case o.Verbose:
		level = "debug"
	case o.Quiet:
		level = "warn"
	}
	return logging.LogConfig{Level: level, Format: o.LogFormat}
}

// objectStore merges the flags over the environment.
func (o *Options) objectStore() (objstore.Config, error) {
	env, err := config.ObjectStoreFromEnv()
	if err != nil {
		return objstore.Config{}, err
	}
	oc := o.ObjectStore
	if oc.Endpoint == "" {
		oc.Endpoint = env.Endpoint
	}
	if oc.AccessKey == "" {
		oc.AccessKey = env.AccessKey
	}
	if oc.SecretKey == "" {
		oc.SecretKey = env.SecretKey
	}
	if oc.Region == "" {
		oc.Region = env.Region
	}
	oc.Secure = oc.Secure || env.Secure
	return oc, nil
}

// Source reads local paths directly and routes s3:// paths to the object
// store when one is configured.
func Source(oc objstore.Config) (mol2.Source, error) {
	if !oc.Enabled() {
		return mol2.LocalSource{}, nil
	}
	s3, err := objstore.New(oc)
	if err != nil {
		return nil, err
	}
	return mol2.Mux{Default: mol2.LocalSource{}, Schemes: map[string]mol2.Source{objstore.Scheme: s3}}, nil
}
