// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"errors"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

// Config controls the pool. It is copied at pool creation.
type Config struct {
	Workers     int // worker goroutines; see ResolveWorkers
	BatchSize   int // items per batch (>=1)
	MaxInFlight int // outstanding batches; 0 means 2*Workers
}

const DefaultBatchSize = 64

// ResolveWorkers maps a --processes value to a pool size: 0 uses every CPU,
// a negative n leaves |n| CPUs free. The result is at least 1.
func ResolveWorkers(n int) int {
	cpus := runtime.NumCPU()
	switch {
	case n == 0:
		return cpus
	case n < 0:
		if cpus+n < 1 {
			return 1
		}
		return cpus + n
	default:
		return n
	}
}

func (c Config) normalized() Config {
	if c.Workers < 1 {
		c.Workers = ResolveWorkers(c.Workers)
	}
	if c.BatchSize < 1 {
		c.BatchSize = DefaultBatchSize
	}
	if c.MaxInFlight < 1 {
		c.MaxInFlight = 2 * c.Workers
	}
	return c
}

// Batch is one completed batch. Seq counts batches from 0 in submission order.
// Items are in completion order; Pos[i] is the input position of Items[i]
// within the batch.
type Batch[Out any] struct {
	Seq   int
	Items []Out
	Pos   []int
}

// InOrder returns the items sorted back into input order.
func (b Batch[Out]) InOrder() []Out {
	if len(b.Pos) != len(b.Items) {
		return b.Items
	}
	idx := make([]int, len(b.Items))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return b.Pos[idx[i]] < b.Pos[idx[j]] })
	out := make([]Out, len(idx))
	for i, k := range idx {
		out[i] = b.Items[k]
	}
	return out
}

type batch[Out any] struct {
	seq       int
	mu        sync.Mutex
	items     []Out
	pos       []int
	dropped   bool // an item failed or was skipped
	remaining int
	done      chan struct{}
}

func (b *batch[Out]) finish(pos int, out Out, keep bool) {
	b.mu.Lock()
	if keep {
		b.items = append(b.items, out)
		b.pos = append(b.pos, pos)
	} else {
		b.dropped = true
	}
	b.remaining--
	last := b.remaining == 0
	b.mu.Unlock()
	if last {
		close(b.done)
	}
}

type job[In, Out any] struct {
	b   *batch[Out]
	pos int
	in  In
}

// errStopFeed is returned to the feeder once the run has failed.
var errStopFeed = errors.New("pipeline: stopped")

func call[In, Out any](fn func(In) (Out, error), in In) (out Out, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperr.New(apperr.CodeInternal, "worker panic: %v", r)
		}
	}()
	return fn(in)
}

// Run feeds items through fn on cfg.Workers goroutines and hands completed
// batches to yield, in submission order, on the calling goroutine.
//
// feed produces inputs by calling emit; when emit returns an error feed must
// stop and return it. After the first error (from fn, yield, feed or ctx) no
// new batch is scheduled, queued items are skipped, running calls finish and
// Run returns that error. No batch is yielded after a failure.
func Run[In, Out any](
	ctx context.Context,
	cfg Config,
	feed func(emit func(In) error) error,
	fn func(In) (Out, error),
	yield func(Batch[Out]) error,
) error {
	cfg = cfg.normalized()

	// Caller-side failures (feed, yield) cancel runCtx with their cause;
	// worker failures cancel gctx through the group.
	runCtx, stop := context.WithCancelCause(ctx)
	defer stop(nil)
	g, gctx := errgroup.WithContext(runCtx)
	failed := func() bool { return gctx.Err() != nil }

	jobs := make(chan job[In, Out], cfg.Workers*2)
	for w := 0; w < cfg.Workers; w++ {
		g.Go(func() error {
			var zero Out
			for j := range jobs {
				if failed() {
					j.b.finish(j.pos, zero, false)
					continue
				}
				out, err := call(fn, j.in)
				if err != nil {
					j.b.finish(j.pos, zero, false)
					return err
				}
				j.b.finish(j.pos, out, true)
			}
			return nil
		})
	}

	var (
		pending []*batch[Out]
		inputs  = make([]In, 0, cfg.BatchSize)
		seq     int
	)

	deliver := func(b *batch[Out]) {
		if b.dropped {
			// The failing worker cancels gctx once it returns.
			<-gctx.Done()
			return
		}
		if failed() {
			return
		}
		if err := yield(Batch[Out]{Seq: b.seq, Items: b.items, Pos: b.pos}); err != nil {
			stop(err)
		}
	}

	// yieldReady hands over finished head batches; with wait set it blocks
	// on the head instead of stopping at the first unfinished one.
	yieldReady := func(wait bool) {
		for len(pending) > 0 && !failed() {
			head := pending[0]
			if wait {
				select {
				case <-head.done:
				case <-gctx.Done():
					return
				}
			} else {
				select {
				case <-head.done:
				default:
					return
				}
			}
			pending = pending[1:]
			deliver(head)
			wait = false
		}
	}

	submit := func() {
		for len(pending) >= cfg.MaxInFlight && !failed() {
			yieldReady(true)
		}
		if failed() {
			return
		}
		n := len(inputs)
		b := &batch[Out]{seq: seq, remaining: n, done: make(chan struct{}), items: make([]Out, 0, n), pos: make([]int, 0, n)}
		seq++
		pending = append(pending, b)
		for i, in := range inputs {
			select {
			case jobs <- job[In, Out]{b: b, pos: i, in: in}:
			case <-gctx.Done():
				return
			}
		}
		inputs = inputs[:0]
		yieldReady(false)
	}

	emit := func(in In) error {
		if failed() {
			return errStopFeed
		}
		inputs = append(inputs, in)
		if len(inputs) == cfg.BatchSize {
			submit()
		}
		if failed() {
			return errStopFeed
		}
		return nil
	}

	if err := feed(emit); err != nil && !errors.Is(err, errStopFeed) {
		stop(err)
	}
	if len(inputs) > 0 && !failed() {
		submit()
	}
	for len(pending) > 0 && !failed() {
		yieldReady(true)
	}
	close(jobs)
	werr := g.Wait()
	if runCtx.Err() != nil {
		return context.Cause(runCtx)
	}
	return werr
}

// Map is Run for callers that do not care about batch boundaries: every
// result is passed to visit on the calling goroutine, in input order.
func Map[In, Out any](
	ctx context.Context,
	cfg Config,
	feed func(emit func(In) error) error,
	fn func(In) (Out, error),
	visit func(Out) error,
) error {
	return Run(ctx, cfg, feed, fn, func(b Batch[Out]) error {
		for _, it := range b.InOrder() {
			if err := visit(it); err != nil {
				return err
			}
		}
		return nil
	})
}
