// Package similarity finds every pair of corpus entries whose edit distance
// is within a threshold.
//
// Scan splits the pair space by outer index: unit i compares entry i against
// every entry after it. Units run on a fixed pool of workers, each unit
// collects its matches in a private buffer, and the buffer is merged into the
// shared result once the unit is done. The result lock is never held while
// distances are being computed.
package similarity

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"neardup/internal/corpus"
	"neardup/internal/editdistance"
	"neardup/internal/logging"
)

// ErrNegativeThreshold is returned for a threshold below zero.
var ErrNegativeThreshold = errors.New("threshold must be non-negative")

// Match is a pair of entries within the threshold. TextA/SourceA come from
// the entry with the lower index.
type Match struct {
	TextA    string
	TextB    string
	SourceA  string
	SourceB  string
	Distance int
}

// WorkerPanicError reports a panic raised while scanning one outer index.
type WorkerPanicError struct {
	Index int
	Value any
	Stack []byte
}

func (e *WorkerPanicError) Error() string {
	return fmt.Sprintf("scan worker panicked at entry %d: %v", e.Index, e.Value)
}

// ProgressFunc observes completed comparisons.
type ProgressFunc func(done, total int64)

type options struct {
	workers    int
	onProgress ProgressFunc
	logger     logging.Logger
}

// Option configures Scan.
type Option func(*options)

// WithWorkers sets the pool size; zero or less means runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithProgress registers a progress callback. It may be called concurrently.
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) {
		o.onProgress = fn
	}
}

// WithLogger sets the logger used for scan diagnostics.
func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// distanceWithin is swapped out by tests.
var distanceWithin = editdistance.DistanceWithin

// PairCount returns n(n-1)/2.
func PairCount(n int) int64 {
	if n < 2 {
		return 0
	}
	return int64(n) * int64(n-1) / 2
}

// Scan compares every unordered pair of entries and returns the pairs whose
// distance is at most threshold. The result is unordered. If any worker
// fails, or ctx is cancelled, Scan returns the error and no matches.
func Scan(ctx context.Context, entries []corpus.Entry, threshold int, opts ...Option) ([]Match, error) {
	if threshold < 0 {
		return nil, ErrNegativeThreshold
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers <= 0 {
		o.workers = runtime.NumCPU()
	}
	if o.logger == nil {
		o.logger = logging.Nop()
	}

	start := time.Now()
	n := len(entries)
	total := PairCount(n)

	var (
		mu      sync.Mutex
		results []Match
		done    atomic.Int64
	)

	g, ctx := errgroup.WithContext(ctx)

	// Dispatch outer indices. Early indices carry the longest sweeps, so
	// handing them out first keeps the tail of the run short.
	units := make(chan int, o.workers)
	g.Go(func() error {
		defer close(units)
		for i := 0; i < n-1; i++ {
			select {
			case units <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for range o.workers {
		g.Go(func() error {
			for i := range units {
				if err := ctx.Err(); err != nil {
					return err
				}
				local, err := sweep(entries, i, threshold)
				if err != nil {
					return err
				}
				if len(local) > 0 {
					mu.Lock()
					results = append(results, local...)
					mu.Unlock()
				}
				d := done.Add(int64(n - i - 1))
				if o.onProgress != nil {
					o.onProgress(d, total)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	o.logger.Debug("Pairwise scan completed",
		"entries", n,
		"pairs", total,
		"matches", len(results),
		"workers", o.workers,
		"duration", time.Since(start),
	)
	return results, nil
}

// sweep compares entry i with every later entry. A panic is returned as a
// *WorkerPanicError so it aborts the whole scan.
func sweep(entries []corpus.Entry, i, threshold int) (local []Match, err error) {
	defer func() {
		if r := recover(); r != nil {
			local = nil
			err = &WorkerPanicError{Index: i, Value: r, Stack: debug.Stack()}
		}
	}()

	a := entries[i]
	for j := i + 1; j < len(entries); j++ {
		b := entries[j]
		d, ok := distanceWithin(a.Text, b.Text, threshold)
		if !ok {
			continue
		}
		local = append(local, Match{
			TextA:    a.Text,
			TextB:    b.Text,
			SourceA:  a.Source,
			SourceB:  b.Source,
			Distance: d,
		})
	}
	return local, nil
}

// ScanSequential is the single-goroutine form of Scan using the unbounded
// metric. It returns matches in (i, j) order.
func ScanSequential(entries []corpus.Entry, threshold int) ([]Match, error) {
	if threshold < 0 {
		return nil, ErrNegativeThreshold
	}
	var results []Match
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			d := editdistance.Distance(entries[i].Text, entries[j].Text)
			if d > threshold {
				continue
			}
			results = append(results, Match{
				TextA:    entries[i].Text,
				TextB:    entries[j].Text,
				SourceA:  entries[i].Source,
				SourceB:  entries[j].Source,
				Distance: d,
			})
		}
	}
	return results, nil
}
