// Package cli defines the screenlamp command tree. Every command shares one
// run environment, built once the flags are parsed.
package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/rasbt/screenlamp/internal/appcore"
	"github.com/rasbt/screenlamp/internal/logging"
	"github.com/rasbt/screenlamp/internal/metrics"
	"github.com/rasbt/screenlamp/internal/runutil"
	"github.com/rasbt/screenlamp/internal/version"
	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

type envKey struct{}

// NewRootCommand builds the command tree. Summaries go to stdout, logs and
// usage to stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &Options{}

	root := &cobra.Command{
		Use:   "screenlamp",
		Short: "Prefilter and rank molecule databases for ligand-based virtual screening",
		Long: "screenlamp filters large MOL2 databases by property tables, functional group\n" +
			"presence and distance, and ranks externally computed overlays by their scores.",
		Version: version.String(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			env, err := newEnv(opts, stdout, stderr)
			if err != nil {
				return err
			}
			env.Log.Debug("starting", logging.String("command", cmd.CommandPath()), logging.String("version", version.Version))
			cmd.SetContext(context.WithValue(cmd.Context(), envKey{}, env))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return apperr.Wrap(err, apperr.CodeConfig, "%s", c.CommandPath())
	})
	opts.register(root)

	root.AddCommand(
		newIDToMol2Cmd(),
		newMolToIDCmd(),
		newCountCmd(),
		newMergeIDsCmd(),
		newDatatableCmd(),
		newPresenceCmd(),
		newDistanceCmd(),
		newMatchingCmd(),
		newMatchingSelectionCmd(),
		newSortOverlayCmd(),
		newPipelineCmd(opts),
	)
	return root
}

func newEnv(opts *Options, stdout, stderr io.Writer) (*appcore.Env, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	summary := appcore.NewSummaryWriterFactory(opts.Format, !opts.NoHeader, false)
	if err := summary.Validate(); err != nil {
		return nil, err
	}
	oc, err := opts.objectStore()
	if err != nil {
		return nil, err
	}
	src, err := Source(oc)
	if err != nil {
		return nil, err
	}
	runID := runutil.NewRunID()
	log := logging.NewWriterLogger(zapcore.AddSync(stderr), opts.LogConfig()).With(logging.String("run_id", runID))
	return &appcore.Env{
		Log:         log,
		Metrics:     metrics.New(runID),
		RunID:       runID,
		Source:      src,
		Workers:     opts.Processes,
		BatchSize:   opts.BatchSize,
		Stdout:      stdout,
		Summary:     summary,
		MetricsFile: opts.MetricsFile,
	}, nil
}

// envFrom returns the environment PersistentPreRunE stored on cmd.
func envFrom(cmd *cobra.Command) *appcore.Env {
	if env, ok := cmd.Context().Value(envKey{}).(*appcore.Env); ok {
		return env
	}
	return &appcore.Env{Stdout: cmd.OutOrStdout(), BatchSize: 1}
}

// args wraps a positional-argument check so that misuse exits as a
// configuration error.
func args(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, a []string) error {
		if err := check(cmd, a); err != nil {
			return apperr.Wrap(err, apperr.CodeConfig, "%s", cmd.CommandPath())
		}
		return nil
	}
}

// required rejects string flags left empty.
func required(cmd *cobra.Command, names ...string) error {
	for _, name := range names {
		if f := cmd.Flags().Lookup(name); f != nil && f.Value.String() == "" {
			return apperr.Config("%s: --%s is required", cmd.CommandPath(), name)
		}
	}
	return nil
}
