package oracle

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/credaudit/internal/dependencies/mocks"
	"github.com/mcoot/credaudit/internal/model"
	"github.com/mcoot/credaudit/internal/testutil"
)

type AdapterSuite struct {
	suite.Suite
	checker *mocks.MockChecker
	adapter *Adapter
	ctx     context.Context
}

func TestAdapterSuite(t *testing.T) {
	suite.Run(t, new(AdapterSuite))
}

func (s *AdapterSuite) SetupTest() {
	s.checker = mocks.NewMockChecker("hello99")
	s.adapter = NewAdapter(s.checker, s.config(1), testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *AdapterSuite) config(retries int) Config {
	cfg := DefaultConfig()
	cfg.MaxRetries = retries
	cfg.RetryBackoff = 0
	return cfg
}

func (s *AdapterSuite) TestAccepted() {
	v, err := s.adapter.Test(s.ctx, "alice", "hello99")
	s.Require().NoError(err)
	s.Equal(model.VerdictAccepted, v)
	s.Equal(1, s.checker.CallCount())
}

func (s *AdapterSuite) TestRejected() {
	v, err := s.adapter.Test(s.ctx, "alice", "hello98")
	s.Require().NoError(err)
	s.Equal(model.VerdictRejected, v)
	s.Equal(1, s.checker.CallCount(), "rejected candidates are never retried")
}

func (s *AdapterSuite) TestPassesIdentifierAndCandidateUnchanged() {
	var gotID model.Identifier
	var gotCandidate model.Candidate
	checker := CheckerFunc(func(ctx context.Context, id model.Identifier, c model.Candidate) (bool, error) {
		gotID, gotCandidate = id, c
		return false, nil
	})
	adapter := NewAdapter(checker, s.config(0), testutil.NopLogger())

	_, err := adapter.Test(s.ctx, " Alice ", "(\\b.bb)(\\v.vv)07")
	s.Require().NoError(err)
	s.Equal(model.Identifier(" Alice "), gotID)
	s.Equal(model.Candidate("(\\b.bb)(\\v.vv)07"), gotCandidate)
}

func (s *AdapterSuite) TestTransientFailureRetriedThenAccepted() {
	s.checker.FailTimes("hello99", 1)

	v, err := s.adapter.Test(s.ctx, "alice", "hello99")
	s.Require().NoError(err)
	s.Equal(model.VerdictAccepted, v)
	s.Equal(2, s.checker.CallCount())
	s.Equal(int64(1), s.adapter.Failures())
}

func (s *AdapterSuite) TestTransientFailureExhaustsRetries() {
	s.checker.FailTimes("hello99", 5)

	v, err := s.adapter.Test(s.ctx, "alice", "hello99")
	s.Require().NoError(err)
	s.Equal(model.VerdictIndeterminate, v, "an unverifiable guess is never reported as accepted")
	s.Equal(2, s.checker.CallCount(), "one attempt plus one retry")
}

func (s *AdapterSuite) TestRetryCountIsConfigurable() {
	s.checker.FailAll = true
	adapter := NewAdapter(s.checker, s.config(3), testutil.NopLogger())

	v, err := adapter.Test(s.ctx, "alice", "pass")
	s.Require().NoError(err)
	s.Equal(model.VerdictIndeterminate, v)
	s.Equal(4, s.checker.CallCount())
	s.Equal(int64(4), adapter.Calls())
}

func (s *AdapterSuite) TestZeroRetries() {
	s.checker.FailAll = true
	adapter := NewAdapter(s.checker, s.config(0), testutil.NopLogger())

	v, err := adapter.Test(s.ctx, "alice", "pass")
	s.Require().NoError(err)
	s.Equal(model.VerdictIndeterminate, v)
	s.Equal(1, s.checker.CallCount())
}

func (s *AdapterSuite) TestFatalErrorIsNotRetried() {
	s.checker.Err = Fatal(model.ErrAccountNotFound)

	v, err := s.adapter.Test(s.ctx, "nobody", "pass")
	s.Equal(model.VerdictIndeterminate, v)
	s.True(IsFatal(err))
	s.ErrorIs(err, model.ErrAccountNotFound)
	s.Equal(1, s.checker.CallCount())
}

func (s *AdapterSuite) TestFatalViaWrappedSentinel() {
	s.checker.Err = fmt.Errorf("%w: directory offline", ErrFatal)

	_, err := s.adapter.Test(s.ctx, "alice", "pass")
	s.True(IsFatal(err))
}

func (s *AdapterSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	v, err := s.adapter.Test(ctx, "alice", "hello99")
	s.Equal(model.VerdictIndeterminate, v)
	s.ErrorIs(err, context.Canceled)
	s.Equal(0, s.checker.CallCount())
}

func (s *AdapterSuite) TestCheckerTimeoutIsTransient() {
	checker := CheckerFunc(func(ctx context.Context, id model.Identifier, c model.Candidate) (bool, error) {
		return false, fmt.Errorf("dial: %w", context.DeadlineExceeded)
	})
	adapter := NewAdapter(checker, s.config(1), testutil.NopLogger())

	v, err := adapter.Test(s.ctx, "alice", "pass")
	s.Require().NoError(err)
	s.Equal(model.VerdictIndeterminate, v)
}

func (s *AdapterSuite) TestBackoffBetweenRetries() {
	s.checker.FailTimes("hello99", 1)
	cfg := s.config(1)
	cfg.RetryBackoff = 20 * time.Millisecond
	adapter := NewAdapter(s.checker, cfg, testutil.NopLogger())

	start := time.Now()
	v, err := adapter.Test(s.ctx, "alice", "hello99")
	s.Require().NoError(err)
	s.Equal(model.VerdictAccepted, v)
	// randomisation factor 0.5 keeps the first interval at or above half
	s.GreaterOrEqual(time.Since(start), 10*time.Millisecond)
}

func (s *AdapterSuite) TestRateLimitPacesCalls() {
	cfg := s.config(0)
	cfg.RateLimit = 50
	cfg.Burst = 1
	adapter := NewAdapter(s.checker, cfg, testutil.NopLogger())

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := adapter.Test(s.ctx, "alice", "pass")
		s.Require().NoError(err)
	}
	// burst of one then two waits of 20ms
	s.GreaterOrEqual(time.Since(start), 35*time.Millisecond)
}

func (s *AdapterSuite) TestRateLimitHonoursCancellation() {
	cfg := s.config(0)
	cfg.RateLimit = 0.001
	cfg.Burst = 1
	adapter := NewAdapter(s.checker, cfg, testutil.NopLogger())

	_, err := adapter.Test(s.ctx, "alice", "pass")
	s.Require().NoError(err)

	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Millisecond)
	defer cancel()
	_, err = adapter.Test(ctx, "alice", "pass")
	s.Error(err)
	s.Equal(1, s.checker.CallCount())
}

func (s *AdapterSuite) TestFatalHelper() {
	base := errors.New("boom")
	err := Fatal(base)
	s.True(IsFatal(err))
	s.ErrorIs(err, base)
	s.Equal("boom", err.Error())
	s.False(IsFatal(base))
}
