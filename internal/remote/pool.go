package remote

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/user/dbbuddy/internal/types"
)

// Pool runs jobs on goroutines with a global concurrency cap.
type Pool struct {
	semaphore *semaphore.Weighted
	active    atomic.Int64
	peak      atomic.Int64
}

// NewPool creates a Pool that allows up to maxConcurrent jobs at once.
func NewPool(maxConcurrent int64) *Pool {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Pool{semaphore: semaphore.NewWeighted(maxConcurrent)}
}

// Run calls fn(i) for i in [0, n), at most maxConcurrent at a time, and
// returns once every started job has finished. It stops launching jobs if
// ctx is cancelled and returns the context error.
func (p *Pool) Run(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	var wg sync.WaitGroup
	var err error
	for i := 0; i < n; i++ {
		if err = p.semaphore.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer p.semaphore.Release(1)
			cur := p.active.Add(1)
			for {
				old := p.peak.Load()
				if cur <= old || p.peak.CompareAndSwap(old, cur) {
					break
				}
			}
			fn(ctx, i)
			p.active.Add(-1)
		}(i)
	}
	wg.Wait()
	return err
}

// RunItems is Run over named items. Items never started because ctx ended
// are passed to skipped along with the context error.
func (p *Pool) RunItems(ctx context.Context, items []string, fn func(ctx context.Context, i int), skipped func(item string, err error)) {
	started := make([]bool, len(items))
	err := p.Run(ctx, len(items), func(ctx context.Context, i int) {
		started[i] = true
		fn(ctx, i)
	})
	if err == nil {
		return
	}
	for i, item := range items {
		if !started[i] {
			skipped(item, err)
		}
	}
}

// Peak is the highest number of jobs seen running at once.
func (p *Pool) Peak() int64 { return p.peak.Load() }

// Batch collects worker output. Records and failures have separate locks so
// that each buffer has a single writer at a time.
type Batch struct {
	recMu    sync.Mutex
	records  []*types.Record
	failMu   sync.Mutex
	failures []types.Failure
	renMu    sync.Mutex
	renamed  map[string]string
}

func (b *Batch) AddRecords(recs ...*types.Record) {
	b.recMu.Lock()
	defer b.recMu.Unlock()
	b.records = append(b.records, recs...)
}

func (b *Batch) AddFailure(f types.Failure) {
	b.failMu.Lock()
	defer b.failMu.Unlock()
	b.failures = append(b.failures, f)
}

func (b *Batch) Rename(from, to string) {
	b.renMu.Lock()
	defer b.renMu.Unlock()
	if b.renamed == nil {
		b.renamed = make(map[string]string)
	}
	b.renamed[from] = to
}

// Result is only safe to call once every writer has finished.
func (b *Batch) Result() types.Result {
	return types.Result{Records: b.records, Failures: b.failures, Renamed: b.renamed}
}
