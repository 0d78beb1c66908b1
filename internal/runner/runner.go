// Package runner executes the configured screening pipeline: count the input,
// then the property-table, presence and distance prefilters, then ranking of
// externally produced overlays. Each prefilter writes an id file and the
// matching structure subset into the project directory.
package runner

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rasbt/screenlamp/internal/appcore"
	"github.com/rasbt/screenlamp/internal/config"
	"github.com/rasbt/screenlamp/internal/datatable"
	"github.com/rasbt/screenlamp/internal/funcgroup"
	"github.com/rasbt/screenlamp/internal/inventory"
	"github.com/rasbt/screenlamp/internal/logging"
	"github.com/rasbt/screenlamp/internal/overlay"
	"github.com/rasbt/screenlamp/internal/stages"
	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

// Step numbers. Step 4 (conformer generation) and the overlay computation
// run outside screenlamp; step 5 ranks their output.
const (
	StepCount     = 0
	StepDatatable = 1
	StepPresence  = 2
	StepDistance  = 3
	StepOverlay   = 5
	LastStep      = StepOverlay
)

// Output names inside the project directory.
const (
	DatatableIDs   = "01_ids_from_database.txt"
	DatatableMol2s = "01_selected-mol2s"
	PresenceIDs    = "02_funcgroup-presence_mol2ids.txt"
	PresenceMol2s  = "02_funcgroup-presence_mol2s"
	DistanceIDs    = "03_funcgroup-distance_mol2ids.txt"
	DistanceMol2s  = "03_funcgroup-distance_mol2s"
	OverlaysSorted = "05_overlays_sorted"
)

// Stage names the pipeline run in logs.
const Stage = "pipeline"

// Runner carries one pipeline invocation.
type Runner struct {
	Cfg     *config.Config
	Env     *appcore.Env
	StartAt int
}

type step struct {
	n       int
	name    string
	enabled bool
	// out is the structure directory the step leaves behind for the next one.
	out string
	run func(ctx context.Context, in string) error
}

func (r *Runner) path(name string) string {
	return filepath.Join(r.Cfg.General.ProjectDir, name)
}

func (r *Runner) steps() []step {
	c := r.Cfg
	return []step{
		{n: StepCount, name: inventory.CountStage, enabled: true, run: func(ctx context.Context, in string) error {
			_, err := stages.Count(ctx, r.Env, in)
			return err
		}},
		{n: StepDatatable, name: datatable.Stage, enabled: c.Datatable.Path != "", out: r.path(DatatableMol2s),
			run: func(ctx context.Context, in string) error {
				if _, err := stages.Datatable(ctx, r.Env, datatable.Options{
					Input:     c.Datatable.Path,
					Output:    r.path(DatatableIDs),
					IDColumn:  c.Datatable.IDColumn,
					Selection: c.Datatable.Selection,
					Separator: c.Datatable.SeparatorRune(),
				}); err != nil {
					return err
				}
				return r.subset(ctx, in, DatatableIDs, DatatableMol2s)
			}},
		{n: StepPresence, name: funcgroup.PresenceStage, enabled: c.Presence.Selection != "", out: r.path(PresenceMol2s),
			run: func(ctx context.Context, in string) error {
				if _, err := stages.Presence(ctx, r.Env, in, r.path(PresenceIDs), c.Presence.Selection); err != nil {
					return err
				}
				return r.subset(ctx, in, PresenceIDs, PresenceMol2s)
			}},
		{n: StepDistance, name: funcgroup.DistanceStage, enabled: c.Distance.Selection != "", out: r.path(DistanceMol2s),
			run: func(ctx context.Context, in string) error {
				if _, err := stages.Distance(ctx, r.Env, in, r.path(DistanceIDs), c.Distance.Selection, c.Distance.Distance); err != nil {
					return err
				}
				return r.subset(ctx, in, DistanceIDs, DistanceMol2s)
			}},
		{n: StepOverlay, name: overlay.Stage, enabled: c.Overlay.Input != "",
			run: func(ctx context.Context, _ string) error {
				missing, err := overlay.ParseMissingPolicy(c.Overlay.Missing)
				if err != nil {
					return err
				}
				_, err = stages.SortOverlay(ctx, r.Env, overlay.DirOptions{
					Input:  c.Overlay.Input,
					Output: r.path(OverlaysSorted),
					Link: overlay.LinkOptions{
						Query:     c.Overlay.Query,
						SortBy:    c.Overlay.SortBy,
						Selection: c.Overlay.Selection,
						IDSuffix:  c.Overlay.IDSuffix,
						Missing:   missing,
					},
				})
				return err
			}},
	}
}

// subset copies the records listed in ids from in to the project directory.
func (r *Runner) subset(ctx context.Context, in, ids, out string) error {
	_, err := stages.IDToMol2(ctx, r.Env, in, r.path(out), r.path(ids), true)
	return err
}

// Run executes every enabled step numbered StartAt or later. Skipped steps
// still hand their output directory on, so a restart picks up the files an
// earlier run left behind.
func (r *Runner) Run(ctx context.Context) ([]string, error) {
	if r.StartAt < 0 || r.StartAt > LastStep {
		return nil, apperr.Config("--start-at %d out of range 0-%d", r.StartAt, LastStep)
	}
	log := r.Env.Logger().Named(Stage)
	if err := os.MkdirAll(r.Cfg.General.ProjectDir, 0o755); err != nil {
		return nil, apperr.IO(err, "create project directory %s", r.Cfg.General.ProjectDir)
	}
	current := r.Cfg.General.InputDir
	var ran []string
	for _, s := range r.steps() {
		if err := ctx.Err(); err != nil {
			return ran, err
		}
		if !s.enabled {
			log.Debug("step not configured", logging.Int("step", s.n), logging.String("name", s.name))
			continue
		}
		if s.n < r.StartAt {
			log.Info("skipping step", logging.Int("step", s.n), logging.String("name", s.name))
		} else {
			log.Info("running step", logging.Int("step", s.n), logging.String("name", s.name), logging.String("input", current))
			if err := s.run(ctx, current); err != nil {
				return ran, apperr.Wrap(err, "", "step %d (%s)", s.n, s.name)
			}
			ran = append(ran, s.name)
		}
		if s.out != "" {
			current = s.out
		}
	}
	return ran, nil
}
