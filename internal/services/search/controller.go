// Package search drives the candidate enumeration against the oracle.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/credaudit/internal/dependencies/clock"
	"github.com/mcoot/credaudit/internal/dependencies/ids"
	"github.com/mcoot/credaudit/internal/model"
	"github.com/mcoot/credaudit/internal/services/enumerator"
)

const (
	// MaxWorkers bounds the concurrent oracle calls of one run
	MaxWorkers = 64
)

// Tester checks one candidate and classifies the outcome.
// *oracle.Adapter implements it.
type Tester interface {
	Test(ctx context.Context, id model.Identifier, candidate model.Candidate) (model.Verdict, error)
}

// Config holds configuration for the search controller
type Config struct {
	// Workers is the number of concurrent oracle calls; 1 searches sequentially
	Workers int
	// SuffixLength is the number of digits appended in phase two
	SuffixLength int
	// MaxConsecutiveFailures ends the run as incomplete after this many
	// unverifiable candidates in a row (0 disables the limit)
	MaxConsecutiveFailures int
}

// DefaultConfig returns default search configuration
func DefaultConfig() Config {
	return Config{
		Workers:                1,
		SuffixLength:           enumerator.DefaultSuffixLength,
		MaxConsecutiveFailures: 10,
	}
}

// Controller runs searches. It holds no per-run state and may be reused.
type Controller struct {
	tester Tester
	clock  clock.Clock
	ids    ids.Generator
	cfg    Config
	logger *slog.Logger
}

// NewController creates a new search Controller
func NewController(tester Tester, clk clock.Clock, idGen ids.Generator, cfg Config, logger *slog.Logger) *Controller {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Workers > MaxWorkers {
		cfg.Workers = MaxWorkers
	}
	if cfg.SuffixLength == 0 {
		cfg.SuffixLength = enumerator.DefaultSuffixLength
	}
	return &Controller{
		tester: tester,
		clock:  clk,
		ids:    idGen,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "search")),
	}
}

// Run searches the candidate space built from words for a password the
// oracle accepts for id.
//
// The returned error is non-nil only when the run cannot start. Oracle
// failures end the run with an incomplete result described by Report.Err.
func (c *Controller) Run(ctx context.Context, id model.Identifier, words enumerator.Words) (*Report, error) {
	if _, err := model.NewIdentifier(string(id)); err != nil {
		return nil, err
	}

	enum, err := enumerator.New(words, enumerator.WithSuffixLength(c.cfg.SuffixLength))
	if err != nil {
		return nil, err
	}

	r := &run{
		report: &Report{
			RunID:       model.RunID(c.ids.NewID()),
			Identifier:  id,
			Total:       enum.Total(),
			Transitions: []State{StateIdle},
			StartedAt:   c.clock.Now(),
		},
		state:  StateIdle,
		logger: c.logger,
	}
	r.logger = c.logger.With(slog.String("run_id", string(r.report.RunID)))

	r.logger.Info("search started",
		slog.String("identifier", string(id)),
		slog.Int("candidates", r.report.Total),
		slog.Int("workers", c.cfg.Workers),
	)

	r.transition(StateRunningPhase1)

	if c.cfg.Workers == 1 {
		c.runSequential(ctx, r, enum)
	} else {
		c.runConcurrent(ctx, r, enum)
	}

	r.report.FinishedAt = c.clock.Now()
	r.transition(StateDone)

	r.logger.Info("search finished",
		slog.String("result", string(r.report.Result.Kind)),
		slog.Int("match_index", r.report.Result.Index),
		slog.Int("attempts", r.report.Attempts),
		slog.Int("skipped", r.report.Skipped),
		slog.Duration("duration", r.report.Duration()),
	)

	return r.report, nil
}

// runSequential tests candidates strictly in order and stops at the first acceptance
func (c *Controller) runSequential(ctx context.Context, r *run, enum *enumerator.Enumerator) {
	consecutive := 0

	for {
		entry, ok := enum.Next()
		if !ok {
			break
		}
		if entry.Phase == model.PhaseDictionaryPlusSuffix {
			r.enterPhase2()
		}

		verdict, err := c.tester.Test(ctx, r.report.Identifier, entry.Candidate)
		r.report.Attempts++
		if err != nil {
			r.incomplete(err)
			return
		}

		switch verdict {
		case model.VerdictAccepted:
			r.report.Result = model.Found(entry.Candidate, entry.Index, entry.Phase)
			return
		case model.VerdictIndeterminate:
			r.report.Skipped++
			consecutive++
			if c.cfg.MaxConsecutiveFailures > 0 && consecutive >= c.cfg.MaxConsecutiveFailures {
				r.incomplete(fmt.Errorf("%w: %d consecutive unverifiable candidates", model.ErrOracleUnavailable, consecutive))
				return
			}
		default:
			consecutive = 0
		}
	}

	c.finishExhausted(r, enum)
}

// runConcurrent dispatches candidates in order to a bounded worker pool.
//
// A shared frontier tracks the lowest accepted index and the lowest failed
// index. Candidates beyond either are never dispatched, and results that
// arrive for them are discarded. Phase two is only dispatched once every
// phase one result is in.
func (c *Controller) runConcurrent(ctx context.Context, r *run, enum *enumerator.Enumerator) {
	f := newFrontier(c.cfg.MaxConsecutiveFailures)
	jobs := make(chan enumerator.Entry)
	var phase1 sync.WaitGroup
	var stats runStats

	var g errgroup.Group
	for range c.cfg.Workers {
		g.Go(func() error {
			for entry := range jobs {
				c.testEntry(ctx, r.report.Identifier, entry, f, &stats)
				if entry.Phase == model.PhaseDictionaryOnly {
					phase1.Done()
				}
			}
			return nil
		})
	}

	func() {
		defer close(jobs)
		for {
			entry, ok := enum.Next()
			if !ok {
				return
			}
			if entry.Phase == model.PhaseDictionaryPlusSuffix && r.state == StateRunningPhase1 {
				phase1.Wait()
				if f.stopped() {
					return
				}
				r.enterPhase2()
			}
			if f.beyond(entry.Index) {
				return
			}
			if entry.Phase == model.PhaseDictionaryOnly {
				phase1.Add(1)
			}
			select {
			case jobs <- entry:
			case <-ctx.Done():
				if entry.Phase == model.PhaseDictionaryOnly {
					phase1.Done()
				}
				f.fail(entry.Index, ctx.Err())
				return
			}
		}
	}()
	_ = g.Wait()

	r.report.Attempts = int(stats.attempts.Load())
	r.report.Skipped = int(stats.skipped.Load())

	best, found, failErr := f.outcome()
	switch {
	case found:
		r.report.Result = model.Found(best.Candidate, best.Index, best.Phase)
	case failErr != nil:
		r.incomplete(failErr)
	default:
		c.finishExhausted(r, enum)
	}
}

func (c *Controller) testEntry(ctx context.Context, id model.Identifier, entry enumerator.Entry, f *frontier, stats *runStats) {
	if f.beyond(entry.Index) {
		return
	}

	verdict, err := c.tester.Test(ctx, id, entry.Candidate)
	stats.attempts.Add(1)

	if f.beyond(entry.Index) {
		// superseded while in flight
		return
	}
	if err != nil {
		f.fail(entry.Index, err)
		return
	}

	switch verdict {
	case model.VerdictAccepted:
		f.accept(entry)
	case model.VerdictIndeterminate:
		stats.skipped.Add(1)
	}
	f.record(entry.Index, verdict == model.VerdictIndeterminate)
}

func (c *Controller) finishExhausted(r *run, enum *enumerator.Enumerator) {
	if err := enum.Err(); err != nil {
		r.incomplete(fmt.Errorf("reading dictionary: %w", err))
		return
	}

	// An empty dictionary still passes through phase two
	r.enterPhase2()

	if r.report.Attempts > 0 && r.report.Skipped == r.report.Attempts {
		r.incomplete(fmt.Errorf("%w: no candidate could be verified", model.ErrOracleUnavailable))
		return
	}
	r.report.Result = model.Exhausted()
}

// run holds the mutable state of one search
type run struct {
	report *Report
	state  State
	logger *slog.Logger
}

func (r *run) transition(to State) {
	if !r.state.next(to) {
		panic(fmt.Sprintf("search: illegal transition %s -> %s", r.state, to))
	}
	r.state = to
	r.report.Transitions = append(r.report.Transitions, to)

	switch to {
	case StateRunningPhase1:
		r.report.Phase = model.PhaseDictionaryOnly
	case StateRunningPhase2:
		r.report.Phase = model.PhaseDictionaryPlusSuffix
	}
	r.logger.Debug("search state changed", slog.String("state", to.String()))
}

func (r *run) enterPhase2() {
	if r.state == StateRunningPhase1 {
		r.logger.Info("dictionary phase exhausted without a match")
		r.transition(StateRunningPhase2)
	}
}

func (r *run) incomplete(cause error) {
	if !errors.Is(cause, model.ErrSearchIncomplete) {
		cause = fmt.Errorf("%w: %w", model.ErrSearchIncomplete, cause)
	}
	r.report.Result = model.Incomplete()
	r.report.Err = cause
	r.logger.Warn("search incomplete", slog.String("error", cause.Error()))
}
