// Package pipeline runs a pure per-item function over a lazily fed input
// sequence with a fixed worker pool.
//
// Inputs are grouped into fixed-size batches and at most MaxInFlight batches
// are outstanding at once, so memory stays bounded for inputs of any size.
// Batches reach the caller in submission order. Run hands over the items of
// a batch in completion order together with their input positions; Map
// restores input order, so its output is the same for any worker count.
// Only the calling goroutine sees results, so it is the only writer of any
// output.
package pipeline
