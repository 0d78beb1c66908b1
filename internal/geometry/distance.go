// Package geometry implements the distance filter and nearest-atom matching
// between atom subsets of structure records.
package geometry

import (
	"math"
	"strconv"
	"strings"

	"github.com/rasbt/screenlamp/internal/mol2"
	"github.com/rasbt/screenlamp/internal/selection"
	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

// DistanceRange is an inclusive [Lo, Hi] interval in coordinate units.
type DistanceRange struct {
	Lo, Hi float64
}

// NewDistanceRange enforces 0 <= lo <= hi.
func NewDistanceRange(lo, hi float64) (DistanceRange, error) {
	if math.IsNaN(lo) || math.IsNaN(hi) || lo < 0 || hi < 0 {
		return DistanceRange{}, apperr.Config("distance range %g-%g: bounds must be non-negative numbers", lo, hi)
	}
	if lo > hi {
		return DistanceRange{}, apperr.Config("distance range %g-%g: lower bound exceeds upper bound", lo, hi)
	}
	return DistanceRange{Lo: lo, Hi: hi}, nil
}

// ParseDistanceRange parses "lo-hi", e.g. "13-20" or "1.5-3.2".
func ParseDistanceRange(s string) (DistanceRange, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return DistanceRange{}, apperr.Config("distance %q: want <lower>-<upper>", s)
	}
	var bounds [2]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return DistanceRange{}, apperr.Config("distance %q: %q is not a number", s, strings.TrimSpace(p))
		}
		bounds[i] = v
	}
	return NewDistanceRange(bounds[0], bounds[1])
}

func (r DistanceRange) Contains(d float64) bool { return d >= r.Lo && d <= r.Hi }

func (r DistanceRange) String() string {
	return strconv.FormatFloat(r.Lo, 'g', -1, 64) + "-" + strconv.FormatFloat(r.Hi, 'g', -1, 64)
}

// Distance is the Euclidean distance between two atoms.
func Distance(a, b mol2.Atom) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// AnyPairWithin reports whether some pair (a in A, b in B) lies within r.
// An empty side never matches.
func AnyPairWithin(a, b []mol2.Atom, r DistanceRange) bool {
	for i := range a {
		for j := range b {
			if r.Contains(Distance(a[i], b[j])) {
				return true
			}
		}
	}
	return false
}

// DistanceFilter matches records whose two selection groups have at least
// one atom pair within Range. It is immutable once built.
type DistanceFilter struct {
	sel   *selection.Selection
	Range DistanceRange
}

// NewDistanceFilter requires a two-group ("-->") selection compiled against
// mol2.AtomSchema.
func NewDistanceFilter(sel *selection.Selection, r DistanceRange) (*DistanceFilter, error) {
	if sel == nil || !sel.Arrow() {
		src := ""
		if sel != nil {
			src = sel.Source
		}
		return nil, apperr.Config("selection %q: distance filtering needs two groups joined by '-->'", src)
	}
	return &DistanceFilter{sel: sel, Range: r}, nil
}

// Match reports whether some group 0 atom and some group 1 atom of rec lie
// within the range.
func (f *DistanceFilter) Match(rec *mol2.Record) bool {
	if rec.Len() == 0 {
		return false
	}
	left := rec.Subset(f.sel.GroupMask(0, rec))
	if len(left) == 0 {
		return false
	}
	right := rec.Subset(f.sel.GroupMask(1, rec))
	return AnyPairWithin(left, right, f.Range)
}
