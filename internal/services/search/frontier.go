package search

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/mcoot/credaudit/internal/model"
	"github.com/mcoot/credaudit/internal/services/enumerator"
)

// frontier is the only state shared between workers of a concurrent run.
// It keeps the lowest accepted entry and the lowest failed index.
type frontier struct {
	mu      sync.Mutex
	best    enumerator.Entry
	found   bool
	failIdx int
	failErr error

	// Verdicts arrive out of order; runs of unverifiable candidates are
	// counted over contiguous indices starting at next.
	maxStreak int
	pending   map[int]bool
	next      int
	streak    int
}

// newFrontier creates a frontier that fails the run once maxStreak
// consecutive indices were unverifiable. maxStreak <= 0 disables the limit.
func newFrontier(maxStreak int) *frontier {
	return &frontier{
		failIdx:   -1,
		maxStreak: maxStreak,
		pending:   make(map[int]bool),
	}
}

// limit returns the highest index whose result can still matter
func (f *frontier) limit() int {
	limit := math.MaxInt
	if f.found {
		limit = f.best.Index
	}
	if f.failIdx >= 0 && f.failIdx < limit {
		limit = f.failIdx
	}
	return limit
}

// beyond reports whether results for idx can no longer change the outcome
func (f *frontier) beyond(idx int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return idx > f.limit()
}

func (f *frontier) stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.found || f.failIdx >= 0
}

func (f *frontier) accept(e enumerator.Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.found || e.Index < f.best.Index {
		f.best = e
		f.found = true
	}
}

func (f *frontier) fail(idx int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failLocked(idx, err)
}

func (f *frontier) failLocked(idx int, err error) {
	if f.failIdx < 0 || idx < f.failIdx {
		f.failIdx = idx
		f.failErr = err
	}
}

// record notes the verdict for idx and advances the in-order scan as far
// as results are available. The run fails at the index where the streak
// of unverifiable candidates reaches the limit.
func (f *frontier) record(idx int, unverifiable bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pending[idx] = unverifiable
	for {
		u, ok := f.pending[f.next]
		if !ok {
			return
		}
		delete(f.pending, f.next)

		if !u {
			f.streak = 0
		} else {
			f.streak++
			if f.maxStreak > 0 && f.streak >= f.maxStreak {
				f.failLocked(f.next, fmt.Errorf("%w: %d consecutive unverifiable candidates", model.ErrOracleUnavailable, f.streak))
			}
		}
		f.next++
	}
}

// outcome resolves the run: a match only counts if nothing below it failed
func (f *frontier) outcome() (enumerator.Entry, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.found && (f.failIdx < 0 || f.best.Index < f.failIdx) {
		return f.best, true, nil
	}
	return enumerator.Entry{}, false, f.failErr
}

type runStats struct {
	attempts atomic.Int64
	skipped  atomic.Int64
}
