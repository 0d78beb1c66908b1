package funcgroup

import (
	"context"

	"github.com/rasbt/screenlamp/internal/geometry"
	"github.com/rasbt/screenlamp/internal/logging"
	"github.com/rasbt/screenlamp/internal/mol2"
	"github.com/rasbt/screenlamp/internal/selection"
)

const (
	PresenceStage = "funcgroup-presence"
	DistanceStage = "funcgroup-distance"
)

// Presence writes the ids of records in which every group of sel matches at
// least one atom.
func Presence(ctx context.Context, opts ScanOptions, sel string) (ScanResult, error) {
	s, err := selection.Compile(sel, mol2.AtomSchema)
	if err != nil {
		return ScanResult{}, err
	}
	if opts.Logger != nil {
		opts.Logger.Info("using selection", logging.String("selection", s.String()))
	}
	return scan(ctx, PresenceStage, opts, func(rec *mol2.Record) bool { return s.Match(rec) })
}

// Distance writes the ids of records holding an atom of the first group and
// an atom of the second group whose distance lies within dist ("lo-hi").
func Distance(ctx context.Context, opts ScanOptions, sel, dist string) (ScanResult, error) {
	s, err := selection.Compile(sel, mol2.AtomSchema)
	if err != nil {
		return ScanResult{}, err
	}
	r, err := geometry.ParseDistanceRange(dist)
	if err != nil {
		return ScanResult{}, err
	}
	f, err := geometry.NewDistanceFilter(s, r)
	if err != nil {
		return ScanResult{}, err
	}
	return scan(ctx, DistanceStage, opts, f.Match)
}
