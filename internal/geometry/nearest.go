package geometry

import (
	"math"

	"github.com/rasbt/screenlamp/internal/mol2"
)

// Correspondence pairs one reference atom with its nearest target atom.
// A null correspondence has TargetIndex -1, an empty Type and a NaN Charge.
type Correspondence struct {
	RefIndex    int
	TargetIndex int
	Distance    float64
	Type        string
	Charge      float64
}

// Null reports whether no target atom was within the threshold.
func (c Correspondence) Null() bool { return c.TargetIndex < 0 }

// Nearest finds, for every atom of ref in order, the closest atom of target.
// Matches farther than threshold, and every atom when target is empty, are
// null. Ties keep the first target atom.
func Nearest(ref, target *mol2.Record, threshold float64) []Correspondence {
	out := make([]Correspondence, len(ref.Atoms))
	for i, a := range ref.Atoms {
		best, bestD := -1, math.Inf(1)
		for j, b := range target.Atoms {
			if d := Distance(a, b); d < bestD {
				best, bestD = j, d
			}
		}
		c := Correspondence{RefIndex: i, TargetIndex: -1, Distance: bestD, Charge: math.NaN()}
		if best >= 0 && bestD <= threshold {
			t := target.Atoms[best]
			c.TargetIndex, c.Type, c.Charge = best, t.Type, t.Charge
		}
		out[i] = c
	}
	return out
}
