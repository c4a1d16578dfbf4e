package engine

import (
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/napolitain/theory-sim/internal/models"
)

// Stats counts forks across a whole search tree
type Stats struct {
	forks    atomic.Int64
	maxDepth atomic.Int64
}

// Forks returns the number of forks created so far
func (st *Stats) Forks() int64 { return st.forks.Load() }

// MaxDepth returns the deepest fork created so far
func (st *Stats) MaxDepth() int64 { return st.maxDepth.Load() }

func (st *Stats) record(depth int) {
	st.forks.Add(1)
	d := int64(depth)
	for {
		cur := st.maxDepth.Load()
		if d <= cur || st.maxDepth.CompareAndSwap(cur, d) {
			return
		}
	}
}

// pool bounds the number of forks running on extra goroutines. It is shared by
// the whole tree. A fork that finds no free slot runs inline, so nested forks
// never wait on each other.
type pool struct {
	sem *semaphore.Weighted
}

func newPool(workers int) *pool {
	if workers <= 1 {
		return nil
	}
	return &pool{sem: semaphore.NewWeighted(int64(workers - 1))}
}

type forkResult struct {
	res    models.Result
	done   chan struct{}
	inline bool
}

func (p *pool) run(f *Sim) *forkResult {
	r := &forkResult{done: make(chan struct{})}
	if p == nil || !p.sem.TryAcquire(1) {
		r.res = f.Simulate()
		r.inline = true
		close(r.done)
		return r
	}

	go func() {
		defer p.sem.Release(1)
		r.res = f.Simulate()
		close(r.done)
	}()
	return r
}

// settle folds a finished inline fork into best right away unless forks spawned
// before it are still outstanding; those keep their place in spawn order.
func (s *Sim) settle(r *forkResult) {
	if r.inline && len(s.pending) == 0 {
		s.merge(r.res)
		return
	}
	s.pending = append(s.pending, r)
}

func (s *Sim) merge(res models.Result) {
	if res.Time < s.best.Time {
		s.best = res
	}
}

// collect waits for outstanding forks and merges them in spawn order, which keeps
// the chosen result independent of goroutine scheduling.
func (s *Sim) collect() {
	for _, r := range s.pending {
		<-r.done
		s.merge(r.res)
	}
	s.pending = nil
}
