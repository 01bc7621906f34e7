package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/mcoot/credaudit/internal/model"
)

// Config holds retry and pacing settings for the adapter
type Config struct {
	// MaxRetries is how many times an indeterminate check is retried
	MaxRetries int
	// RetryBackoff is the initial delay between retries (0 retries immediately)
	RetryBackoff time.Duration
	// MaxBackoff caps the delay between retries
	MaxBackoff time.Duration
	// RateLimit caps checker calls per second (0 is unlimited)
	RateLimit float64
	// Burst is the number of calls allowed above RateLimit at once
	Burst int
}

// DefaultConfig returns default adapter configuration
func DefaultConfig() Config {
	return Config{
		MaxRetries:   1,
		RetryBackoff: 100 * time.Millisecond,
		MaxBackoff:   2 * time.Second,
	}
}

// Adapter normalises a Checker into verdicts.
// It is safe for concurrent use.
type Adapter struct {
	checker Checker
	cfg     Config
	limiter *rate.Limiter
	logger  *slog.Logger

	calls    atomic.Int64
	failures atomic.Int64
}

// NewAdapter creates an Adapter around checker
func NewAdapter(checker Checker, cfg Config, logger *slog.Logger) *Adapter {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	a := &Adapter{
		checker: checker,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "oracle")),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		a.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return a
}

// Test checks one candidate.
//
// Accepted and Rejected are definitive. Indeterminate means every attempt
// failed transiently and the candidate could not be verified. A non-nil
// error is returned only for fatal checker failures or a done context;
// the run must stop in that case.
func (a *Adapter) Test(ctx context.Context, id model.Identifier, candidate model.Candidate) (model.Verdict, error) {
	var accepted bool
	var aborted error
	attempt := 0

	op := func() error {
		if a.limiter != nil {
			if err := a.limiter.Wait(ctx); err != nil {
				aborted = fmt.Errorf("rate limit wait: %w", err)
				return backoff.Permanent(aborted)
			}
		}
		if err := ctx.Err(); err != nil {
			aborted = err
			return backoff.Permanent(err)
		}

		attempt++
		a.calls.Add(1)
		ok, err := a.checker.CheckCredential(ctx, id, candidate)
		if err == nil {
			accepted = ok
			return nil
		}

		a.failures.Add(1)
		if IsFatal(err) {
			return backoff.Permanent(err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			aborted = ctxErr
			return backoff.Permanent(ctxErr)
		}

		a.logger.Debug("credential check failed",
			slog.String("identifier", string(id)),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
		return err
	}

	err := backoff.Retry(op, backoff.WithContext(a.policy(), ctx))
	if err == nil {
		if accepted {
			return model.VerdictAccepted, nil
		}
		return model.VerdictRejected, nil
	}

	if IsFatal(err) {
		return model.VerdictIndeterminate, err
	}
	if aborted != nil {
		return model.VerdictIndeterminate, aborted
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return model.VerdictIndeterminate, ctxErr
	}

	a.logger.Warn("credential check unverifiable after retries",
		slog.String("identifier", string(id)),
		slog.Int("attempts", attempt),
		slog.String("error", err.Error()),
	)
	return model.VerdictIndeterminate, nil
}

func (a *Adapter) policy() backoff.BackOff {
	var b backoff.BackOff = &backoff.ZeroBackOff{}
	if a.cfg.RetryBackoff > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = a.cfg.RetryBackoff
		if a.cfg.MaxBackoff > 0 {
			exp.MaxInterval = a.cfg.MaxBackoff
		}
		exp.MaxElapsedTime = 0
		b = exp
	}
	return backoff.WithMaxRetries(b, uint64(a.cfg.MaxRetries))
}

// Calls returns the number of checker invocations made so far, retries included
func (a *Adapter) Calls() int64 {
	return a.calls.Load()
}

// Failures returns the number of checker invocations that returned an error
func (a *Adapter) Failures() int64 {
	return a.failures.Load()
}
