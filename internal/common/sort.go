// internal/common/sort.go
package common

import (
	"math"
	"sort"
)

// LessScoresDesc orders score vectors descending, column by column. NaN
// sorts after every number.
func LessScoresDesc(a, b []float64) bool {
	for i := range a {
		x, y := a[i], b[i]
		xn, yn := math.IsNaN(x), math.IsNaN(y)
		switch {
		case xn && yn:
			continue
		case xn:
			return false
		case yn:
			return true
		case x != y:
			return x > y
		}
	}
	return false
}

// StableSortByScores sorts items descending by key, keeping input order
// among equal keys.
func StableSortByScores[T any](items []T, key func(T) []float64) {
	sort.SliceStable(items, func(i, j int) bool {
		return LessScoresDesc(key(items[i]), key(items[j]))
	})
}
