package cli

import (
	"github.com/spf13/cobra"

	"github.com/rasbt/screenlamp/internal/appcore"
	"github.com/rasbt/screenlamp/internal/config"
	"github.com/rasbt/screenlamp/internal/logging"
	"github.com/rasbt/screenlamp/internal/runner"
)

func newPipelineCmd(opts *Options) *cobra.Command {
	var path string
	var startAt int
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Run the configured prefilters and overlay ranking in order",
		Long: "Steps: 0 count, 1 property table, 2 functional group presence,\n" +
			"3 functional group distance, 5 overlay ranking. Conformer generation and\n" +
			"overlay computation (step 4) run outside screenlamp.",
		Example: "  screenlamp pipeline --config screen.yaml\n  screenlamp pipeline --config screen.yaml --start-at 3",
		Args:    args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cfg *config.Config
			var err error
			if path != "" {
				cfg, err = config.Load(path)
			} else {
				cfg, err = config.LoadFromEnv()
			}
			if err != nil {
				return err
			}
			env, err := pipelineEnv(cmd, opts, cfg)
			if err != nil {
				return err
			}
			ran, err := (&runner.Runner{Cfg: cfg, Env: env, StartAt: startAt}).Run(cmd.Context())
			if err != nil {
				return err
			}
			env.Logger().Info("pipeline finished", logging.Int("steps", len(ran)), logging.String("project_dir", cfg.General.ProjectDir))
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "", "YAML configuration (default: SCREENLAMP_* environment only)")
	cmd.Flags().IntVar(&startAt, "start-at", 0, "first step to run; earlier steps reuse their output")
	return cmd
}

// pipelineEnv lets the configuration fill what the shared flags left at
// their defaults.
func pipelineEnv(cmd *cobra.Command, opts *Options, cfg *config.Config) (*appcore.Env, error) {
	base := envFrom(cmd)
	env := *base
	flags := cmd.Flags()
	if !flags.Changed("processes") {
		env.Workers = cfg.General.Processes
	}
	if !flags.Changed("batch-size") {
		env.BatchSize = cfg.General.BatchSize
	}
	if env.MetricsFile == "" {
		env.MetricsFile = cfg.Metrics.Textfile
	}
	if opts.ObjectStore.Endpoint == "" && cfg.ObjectStore.Enabled() {
		src, err := Source(cfg.ObjectStore)
		if err != nil {
			return nil, err
		}
		env.Source = src
	}
	return &env, nil
}
