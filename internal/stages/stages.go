// Package stages binds every screening stage to the shared run environment:
// each call fills in the source, logger and worker settings, runs the stage
// through appcore.Env.RunStage and returns its summary.
package stages

import (
	"context"

	"github.com/rasbt/screenlamp/internal/appcore"
	"github.com/rasbt/screenlamp/internal/cmdutil"
	"github.com/rasbt/screenlamp/internal/datatable"
	"github.com/rasbt/screenlamp/internal/funcgroup"
	"github.com/rasbt/screenlamp/internal/idfilter"
	"github.com/rasbt/screenlamp/internal/idset"
	"github.com/rasbt/screenlamp/internal/inventory"
	"github.com/rasbt/screenlamp/internal/logging"
	"github.com/rasbt/screenlamp/internal/overlay"
	"github.com/rasbt/screenlamp/internal/runutil"
	"github.com/rasbt/screenlamp/pkg/api"
)

// Count counts the records of every structure file under input.
func Count(ctx context.Context, env *appcore.Env, input string) (api.StageSummaryV1, error) {
	return env.RunStage(ctx, inventory.CountStage, func(ctx context.Context) (cmdutil.Report, error) {
		rep := cmdutil.Report{Inputs: []string{input}}
		counts, err := inventory.Count(ctx, env.Source, input, env.Logger())
		for _, c := range counts {
			rep.AddFile(c.File, "", runutil.Counts{Scanned: c.Records, Emitted: c.Records}, 0)
		}
		return rep, err
	})
}

// MolToID writes every record id under input to output.
func MolToID(ctx context.Context, env *appcore.Env, input, output string) (api.StageSummaryV1, error) {
	return env.RunStage(ctx, inventory.IDStage, func(ctx context.Context) (cmdutil.Report, error) {
		c, err := inventory.WriteIDs(ctx, env.Source, input, output, env.Logger())
		rep := cmdutil.Report{Inputs: []string{input}, Output: output}
		rep.Total = c
		return rep, err
	})
}

// MergeIDs writes the union of the id files at paths.
func MergeIDs(ctx context.Context, env *appcore.Env, paths []string, output string) (api.StageSummaryV1, error) {
	return env.RunStage(ctx, inventory.MergeStage, func(context.Context) (cmdutil.Report, error) {
		c, err := inventory.MergeFiles(paths, output, env.Logger())
		return cmdutil.Report{Inputs: paths, Output: output, Total: c}, err
	})
}

// IDToMol2 keeps (include) or drops the records whose ids are listed in
// idFile.
func IDToMol2(ctx context.Context, env *appcore.Env, input, output, idFile string, include bool) (api.StageSummaryV1, error) {
	return env.RunStage(ctx, idfilter.Stage, func(ctx context.Context) (cmdutil.Report, error) {
		rep := cmdutil.Report{Inputs: []string{input, idFile}, Output: output}
		ids, err := idset.Load(idFile)
		if err != nil {
			return rep, err
		}
		env.Logger().Info("loaded id file", logging.String("file", idFile), logging.Int("ids", ids.Len()))
		res, err := idfilter.Run(ctx, idfilter.Options{
			Input:  input,
			Output: output,
			Filter: idfilter.Filter{IDs: ids, Include: include},
			Source: env.Source,
			Logger: env.Logger(),
		})
		for _, f := range res.Files {
			rep.AddFile(f.Input, f.Output, f.Counts, 0)
		}
		return rep, err
	})
}

// Datatable selects ids from a property table.
func Datatable(ctx context.Context, env *appcore.Env, opts datatable.Options) (api.StageSummaryV1, error) {
	opts.Source, opts.Logger = env.Source, env.Logger()
	if opts.Workers == 0 {
		opts.Workers = env.Pipeline().Workers
	}
	return env.RunStage(ctx, datatable.Stage, func(ctx context.Context) (cmdutil.Report, error) {
		res, err := datatable.Run(ctx, opts)
		return cmdutil.Report{Inputs: []string{opts.Input}, Output: opts.Output, Total: res.Counts}, err
	})
}

func scanOptions(env *appcore.Env, input, output string) funcgroup.ScanOptions {
	return funcgroup.ScanOptions{
		Input:    input,
		Output:   output,
		Pipeline: env.Pipeline(),
		Source:   env.Source,
		Logger:   env.Logger(),
	}
}

// Presence writes the ids of records satisfying a whole-record selection.
func Presence(ctx context.Context, env *appcore.Env, input, output, sel string) (api.StageSummaryV1, error) {
	return env.RunStage(ctx, funcgroup.PresenceStage, func(ctx context.Context) (cmdutil.Report, error) {
		res, err := funcgroup.Presence(ctx, scanOptions(env, input, output), sel)
		return cmdutil.Report{Inputs: []string{input}, Output: output, Total: res.Counts}, err
	})
}

// Distance writes the ids of records with a selected atom pair in range.
func Distance(ctx context.Context, env *appcore.Env, input, output, sel, dist string) (api.StageSummaryV1, error) {
	return env.RunStage(ctx, funcgroup.DistanceStage, func(ctx context.Context) (cmdutil.Report, error) {
		res, err := funcgroup.Distance(ctx, scanOptions(env, input, output), sel, dist)
		return cmdutil.Report{Inputs: []string{input}, Output: output, Total: res.Counts}, err
	})
}

// Matching writes atom-type and charge tables for overlay pairs.
func Matching(ctx context.Context, env *appcore.Env, opts funcgroup.MatchOptions) (api.StageSummaryV1, error) {
	opts.Source, opts.Logger = env.Source, env.Logger()
	opts.Pipeline = env.Pipeline()
	return env.RunStage(ctx, funcgroup.MatchingStage, func(ctx context.Context) (cmdutil.Report, error) {
		res, err := funcgroup.Match(ctx, opts)
		rep := cmdutil.Report{Inputs: []string{opts.Input}, Output: opts.Output, Total: res.Counts}
		for _, p := range res.Pairs {
			rep.Files = append(rep.Files, api.FileV1{File: p.Dbase, Output: funcgroup.AtomTypeTablePath(opts.Output, p.Base)})
		}
		return rep, err
	})
}

// MatchingSelection filters matching tables and, optionally, their records.
func MatchingSelection(ctx context.Context, env *appcore.Env, opts funcgroup.SelectOptions) (api.StageSummaryV1, error) {
	opts.Source, opts.Logger = env.Source, env.Logger()
	return env.RunStage(ctx, funcgroup.SelectionStage, func(ctx context.Context) (cmdutil.Report, error) {
		results, err := funcgroup.Select(ctx, opts)
		rep := cmdutil.Report{Inputs: []string{opts.Input}, Output: opts.Output}
		for _, r := range results {
			rep.AddFile(r.Base, opts.Output, runutil.Counts{Scanned: int64(r.Rows), Emitted: int64(r.Selected)}, int64(r.Missing))
		}
		return rep, err
	})
}

// SortOverlay ranks overlay hits by their reports and writes linked pairs.
func SortOverlay(ctx context.Context, env *appcore.Env, opts overlay.DirOptions) (api.StageSummaryV1, error) {
	opts.Link.Source, opts.Link.Logger = env.Source, env.Logger()
	return env.RunStage(ctx, overlay.Stage, func(ctx context.Context) (cmdutil.Report, error) {
		results, err := overlay.Run(ctx, opts)
		rep := cmdutil.Report{Inputs: []string{opts.Input, opts.Link.Query}, Output: opts.Output}
		for _, r := range results {
			rep.AddFile(r.Input, r.DbaseOut, runutil.Counts{Scanned: int64(r.Rows), Emitted: int64(r.Written)}, int64(r.Missing))
		}
		return rep, err
	})
}
