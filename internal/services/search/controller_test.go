package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"

	"github.com/mcoot/credaudit/internal/dependencies/mocks"
	"github.com/mcoot/credaudit/internal/model"
	"github.com/mcoot/credaudit/internal/services/dictionary"
	"github.com/mcoot/credaudit/internal/services/oracle"
	"github.com/mcoot/credaudit/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type ControllerSuite struct {
	suite.Suite
	checker *mocks.MockChecker
	clock   *mocks.MockClock
	ids     *mocks.MockIDs
	words   *dictionary.Dictionary
	ctx     context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.checker = mocks.NewMockChecker()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.clock.Step = time.Second
	s.ids = mocks.NewMockIDs()
	s.words = dictionary.New([]string{"pass", "hello"})
	s.ctx = context.Background()
}

func (s *ControllerSuite) controller(cfg Config) *Controller {
	oracleCfg := oracle.DefaultConfig()
	oracleCfg.RetryBackoff = 0
	adapter := oracle.NewAdapter(s.checker, oracleCfg, testutil.NopLogger())
	return NewController(adapter, s.clock, s.ids, cfg, testutil.NopLogger())
}

func (s *ControllerSuite) sequential() *Controller {
	return s.controller(DefaultConfig())
}

func (s *ControllerSuite) concurrent(workers int) *Controller {
	cfg := DefaultConfig()
	cfg.Workers = workers
	return s.controller(cfg)
}

func (s *ControllerSuite) expectedOrder() []model.Candidate {
	want := []model.Candidate{"pass", "hello"}
	for _, w := range []string{"pass", "hello"} {
		for n := 0; n < 100; n++ {
			want = append(want, model.Candidate(fmt.Sprintf("%s%02d", w, n)))
		}
	}
	return want
}

// Sequential tests

func (s *ControllerSuite) TestFindsSuffixMatchAfterFullOrder() {
	s.checker = mocks.NewMockChecker("hello99")

	report, err := s.sequential().Run(s.ctx, "alice", s.words)
	s.Require().NoError(err)

	s.Equal(model.ResultFound, report.Result.Kind)
	s.Equal(model.Candidate("hello99"), report.Result.Candidate)
	s.Equal(201, report.Result.Index)
	s.Equal(model.PhaseDictionaryPlusSuffix, report.Result.Phase)
	s.Equal(202, s.checker.CallCount())
	s.Equal(s.expectedOrder(), s.checker.Calls())
	s.Equal(202, report.Attempts)
	s.Equal(202, report.Total)
}

func (s *ControllerSuite) TestPhaseOneMatchSkipsPhaseTwo() {
	s.checker = mocks.NewMockChecker("hello")

	report, err := s.sequential().Run(s.ctx, "alice", s.words)
	s.Require().NoError(err)

	s.Equal(model.Found("hello", 1, model.PhaseDictionaryOnly), report.Result)
	s.Equal(2, s.checker.CallCount(), "exactly the index of the match, no more")
	s.Equal([]State{StateIdle, StateRunningPhase1, StateDone}, report.Transitions)
	s.Equal(model.PhaseDictionaryOnly, report.Phase)
}

func (s *ControllerSuite) TestReportsLowestIndexMatch() {
	s.checker = mocks.NewMockChecker("hello07", "pass42", "hello")

	report, err := s.sequential().Run(s.ctx, "alice", s.words)
	s.Require().NoError(err)
	s.Equal(model.Candidate("hello"), report.Result.Candidate)

	s.SetupTest()
	s.checker = mocks.NewMockChecker("hello07", "pass42")
	report, err = s.sequential().Run(s.ctx, "alice", s.words)
	s.Require().NoError(err)
	s.Equal(model.Candidate("pass42"), report.Result.Candidate)
	s.Equal(2+42+1, s.checker.CallCount())
}

func (s *ControllerSuite) TestExhaustedWhenNothingAccepted() {
	report, err := s.sequential().Run(s.ctx, "alice", s.words)
	s.Require().NoError(err)

	s.Equal(model.ResultExhausted, report.Result.Kind)
	s.NoError(report.Err)
	s.Equal(202, s.checker.CallCount())
	s.Equal([]State{StateIdle, StateRunningPhase1, StateRunningPhase2, StateDone}, report.Transitions)
}

func (s *ControllerSuite) TestEmptyDictionaryIsExhaustedWithoutCalls() {
	report, err := s.sequential().Run(s.ctx, "alice", dictionary.New(nil))
	s.Require().NoError(err)

	s.Equal(model.ResultExhausted, report.Result.Kind)
	s.Equal(0, s.checker.CallCount())
	s.Equal(0, report.Total)
	s.Equal([]State{StateIdle, StateRunningPhase1, StateRunningPhase2, StateDone}, report.Transitions)
}

func (s *ControllerSuite) TestAlwaysIndeterminateIsIncomplete() {
	s.checker.FailAll = true

	report, err := s.sequential().Run(s.ctx, "alice", s.words)
	s.Require().NoError(err)

	s.Equal(model.ResultIncomplete, report.Result.Kind)
	s.ErrorIs(report.Err, model.ErrSearchIncomplete)
	s.ErrorIs(report.Err, model.ErrOracleUnavailable)
	s.Equal(10, report.Attempts, "stops after the consecutive failure limit")
	s.Equal(10, report.Skipped)
	s.Equal(20, s.checker.CallCount(), "each candidate is retried once")
}

func (s *ControllerSuite) TestAlwaysIndeterminateWithoutLimitIsStillIncomplete() {
	s.checker.FailAll = true
	cfg := DefaultConfig()
	cfg.MaxConsecutiveFailures = 0

	report, err := s.controller(cfg).Run(s.ctx, "alice", s.words)
	s.Require().NoError(err)

	s.Equal(model.ResultIncomplete, report.Result.Kind)
	s.ErrorIs(report.Err, model.ErrOracleUnavailable)
	s.Equal(202, report.Attempts)
}

func (s *ControllerSuite) TestSkippedCandidatesDoNotStopTheRun() {
	s.checker = mocks.NewMockChecker("hello")
	s.checker.FailTimes("pass", 5)

	report, err := s.sequential().Run(s.ctx, "alice", s.words)
	s.Require().NoError(err)

	s.Equal(model.Candidate("hello"), report.Result.Candidate)
	s.Equal(1, report.Skipped)
	s.Equal(3, s.checker.CallCount(), "pass twice, hello once")
}

func (s *ControllerSuite) TestTransientFailureRecoveredByRetry() {
	s.checker = mocks.NewMockChecker("pass")
	s.checker.FailTimes("pass", 1)

	report, err := s.sequential().Run(s.ctx, "alice", s.words)
	s.Require().NoError(err)
	s.Equal(model.Candidate("pass"), report.Result.Candidate)
	s.Equal(0, report.Skipped)
}

func (s *ControllerSuite) TestFatalOracleErrorEndsRun() {
	s.checker.Err = oracle.Fatal(model.ErrAccountNotFound)

	report, err := s.sequential().Run(s.ctx, "nobody", s.words)
	s.Require().NoError(err)

	s.Equal(model.ResultIncomplete, report.Result.Kind)
	s.ErrorIs(report.Err, model.ErrAccountNotFound)
	s.ErrorIs(report.Err, model.ErrSearchIncomplete)
	s.Equal(1, s.checker.CallCount())
}

func (s *ControllerSuite) TestCancelledContextIsIncomplete() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	report, err := s.sequential().Run(ctx, "alice", s.words)
	s.Require().NoError(err)
	s.Equal(model.ResultIncomplete, report.Result.Kind)
	s.ErrorIs(report.Err, context.Canceled)
	s.Equal(0, s.checker.CallCount())
}

func (s *ControllerSuite) TestEmptyIdentifierCannotStart() {
	_, err := s.sequential().Run(s.ctx, "", s.words)
	s.ErrorIs(err, model.ErrEmptyIdentifier)
	s.Equal(0, s.checker.CallCount())
}

func (s *ControllerSuite) TestSuffixLengthOne() {
	s.checker = mocks.NewMockChecker("hello9")
	cfg := DefaultConfig()
	cfg.SuffixLength = 1

	report, err := s.controller(cfg).Run(s.ctx, "alice", s.words)
	s.Require().NoError(err)
	s.Equal(model.Candidate("hello9"), report.Result.Candidate)
	s.Equal(2+10+10, s.checker.CallCount())
}

func (s *ControllerSuite) TestInvalidSuffixLength() {
	cfg := DefaultConfig()
	cfg.SuffixLength = -1

	_, err := s.controller(cfg).Run(s.ctx, "alice", s.words)
	s.ErrorIs(err, model.ErrInvalidSuffixLength)
}

func (s *ControllerSuite) TestReportMetadata() {
	s.checker = mocks.NewMockChecker("hello")

	report, err := s.sequential().Run(s.ctx, "alice", s.words)
	s.Require().NoError(err)

	s.Equal(model.RunID("run-1"), report.RunID)
	s.Equal(model.Identifier("alice"), report.Identifier)
	s.Equal(time.Second, report.Duration())

	record := report.Record()
	s.Equal(model.RunID("run-1"), record.ID)
	s.Equal(model.ResultFound, record.Result)
	s.Equal(1, record.MatchIndex)
	s.Equal("dictionary", record.Phase)
	s.Equal(2, record.Attempts)
}

func (s *ControllerSuite) TestControllerIsReusable() {
	s.checker = mocks.NewMockChecker("hello")
	c := s.sequential()

	first, err := c.Run(s.ctx, "alice", s.words)
	s.Require().NoError(err)
	second, err := c.Run(s.ctx, "alice", s.words)
	s.Require().NoError(err)

	s.Equal(first.Result, second.Result)
	s.NotEqual(first.RunID, second.RunID)
	s.Equal(4, s.checker.CallCount())
}

// Concurrent tests

func (s *ControllerSuite) TestConcurrentFindsSuffixMatch() {
	s.checker = mocks.NewMockChecker("hello99")

	report, err := s.concurrent(8).Run(s.ctx, "alice", s.words)
	s.Require().NoError(err)

	s.Equal(model.Found("hello99", 201, model.PhaseDictionaryPlusSuffix), report.Result)
	s.Equal(202, s.checker.CallCount())
	s.ElementsMatch(s.expectedOrder(), s.checker.Calls())
}

func (s *ControllerSuite) TestConcurrentReportsLowestIndexNotFastest() {
	s.checker = mocks.NewMockChecker("pass42", "pass43", "hello07")
	s.checker.Latency = func(c model.Candidate) time.Duration {
		if c == "pass42" {
			return 30 * time.Millisecond
		}
		return 0
	}

	report, err := s.concurrent(8).Run(s.ctx, "alice", s.words)
	s.Require().NoError(err)

	s.Equal(model.Candidate("pass42"), report.Result.Candidate)
	s.Equal(44, report.Result.Index)
	s.NotContains(s.checker.Calls(), model.Candidate("hello07"),
		"dispatch stops at the frontier long before hello07")
}

func (s *ControllerSuite) TestConcurrentPhaseOneMatchNeverStartsPhaseTwo() {
	s.checker = mocks.NewMockChecker("hello")
	s.checker.Latency = func(c model.Candidate) time.Duration {
		return 10 * time.Millisecond
	}

	report, err := s.concurrent(8).Run(s.ctx, "alice", s.words)
	s.Require().NoError(err)

	s.Equal(model.Candidate("hello"), report.Result.Candidate)
	s.Equal(2, s.checker.CallCount())
	s.Equal([]State{StateIdle, StateRunningPhase1, StateDone}, report.Transitions)
}

func (s *ControllerSuite) TestConcurrentExhausted() {
	report, err := s.concurrent(4).Run(s.ctx, "alice", s.words)
	s.Require().NoError(err)

	s.Equal(model.ResultExhausted, report.Result.Kind)
	s.Equal(202, report.Attempts)
	s.Equal(202, s.checker.CallCount())
	s.Equal([]State{StateIdle, StateRunningPhase1, StateRunningPhase2, StateDone}, report.Transitions)
}

func (s *ControllerSuite) TestConcurrentEmptyDictionary() {
	report, err := s.concurrent(4).Run(s.ctx, "alice", dictionary.New(nil))
	s.Require().NoError(err)
	s.Equal(model.ResultExhausted, report.Result.Kind)
	s.Equal(0, s.checker.CallCount())
}

func (s *ControllerSuite) TestConcurrentAlwaysIndeterminateIsIncomplete() {
	s.checker.FailAll = true

	report, err := s.concurrent(4).Run(s.ctx, "alice", s.words)
	s.Require().NoError(err)

	s.Equal(model.ResultIncomplete, report.Result.Kind)
	s.ErrorIs(report.Err, model.ErrOracleUnavailable)
	s.Less(report.Attempts, 202)
}

func (s *ControllerSuite) TestConcurrentFatalErrorEndsRun() {
	s.checker.Err = oracle.Fatal(model.ErrAccountNotFound)

	report, err := s.concurrent(4).Run(s.ctx, "nobody", s.words)
	s.Require().NoError(err)
	s.Equal(model.ResultIncomplete, report.Result.Kind)
	s.ErrorIs(report.Err, model.ErrAccountNotFound)
}

func (s *ControllerSuite) TestConcurrentCancelledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	report, err := s.concurrent(4).Run(ctx, "alice", s.words)
	s.Require().NoError(err)
	s.Equal(model.ResultIncomplete, report.Result.Kind)
	s.ErrorIs(report.Err, context.Canceled)
}

// fakeTester scripts verdicts per candidate without an oracle adapter
type fakeTester struct {
	verdicts map[model.Candidate]model.Verdict
	errs     map[model.Candidate]error
	latency  map[model.Candidate]time.Duration
}

func (f *fakeTester) Test(ctx context.Context, id model.Identifier, c model.Candidate) (model.Verdict, error) {
	if d := f.latency[c]; d > 0 {
		time.Sleep(d)
	}
	if err := f.errs[c]; err != nil {
		return model.VerdictIndeterminate, err
	}
	return f.verdicts[c], nil
}

func (s *ControllerSuite) TestConcurrentFailureAboveMatchIsIgnored() {
	tester := &fakeTester{
		verdicts: map[model.Candidate]model.Verdict{"pass05": model.VerdictAccepted},
		errs:     map[model.Candidate]error{"pass09": oracle.Fatal(errors.New("lost"))},
		latency:  map[model.Candidate]time.Duration{"pass05": 20 * time.Millisecond},
	}
	c := NewController(tester, s.clock, s.ids, Config{Workers: 8}, testutil.NopLogger())

	report, err := c.Run(s.ctx, "alice", s.words)
	s.Require().NoError(err)
	s.Equal(model.Candidate("pass05"), report.Result.Candidate)
}

func (s *ControllerSuite) TestConcurrentFailureBelowMatchIsIncomplete() {
	tester := &fakeTester{
		verdicts: map[model.Candidate]model.Verdict{"pass09": model.VerdictAccepted},
		errs:     map[model.Candidate]error{"pass05": oracle.Fatal(errors.New("lost"))},
		latency:  map[model.Candidate]time.Duration{"pass05": 20 * time.Millisecond},
	}
	c := NewController(tester, s.clock, s.ids, Config{Workers: 8}, testutil.NopLogger())

	report, err := c.Run(s.ctx, "alice", s.words)
	s.Require().NoError(err)
	s.Equal(model.ResultIncomplete, report.Result.Kind)
}

// Unverifiable streaks are counted in enumeration order, so a fast definitive
// verdict in the middle of slow failures still breaks the streak.
func (s *ControllerSuite) TestUnverifiableStreakFollowsEnumerationOrder() {
	words := make([]string, 20)
	tester := &fakeTester{
		verdicts: map[model.Candidate]model.Verdict{"w15": model.VerdictAccepted},
		latency:  map[model.Candidate]time.Duration{},
	}
	for i := range words {
		words[i] = fmt.Sprintf("w%02d", i)
		c := model.Candidate(words[i])
		if i <= 10 && i != 5 {
			tester.verdicts[c] = model.VerdictIndeterminate
			tester.latency[c] = 20 * time.Millisecond
		}
	}
	dict := dictionary.New(words)

	for _, workers := range []int{1, 8} {
		c := NewController(tester, s.clock, s.ids, Config{Workers: workers, MaxConsecutiveFailures: 10}, testutil.NopLogger())

		report, err := c.Run(s.ctx, "alice", dict)
		s.Require().NoError(err)
		s.Equal(model.Found("w15", 15, model.PhaseDictionaryOnly), report.Result, "workers=%d", workers)
		s.Equal(10, report.Skipped, "workers=%d", workers)
	}
}

func (s *ControllerSuite) TestConcurrentUnverifiableStreakFailsAtLimitIndex() {
	words := make([]string, 20)
	tester := &fakeTester{
		verdicts: map[model.Candidate]model.Verdict{"w15": model.VerdictAccepted},
		latency:  map[model.Candidate]time.Duration{"w00": 20 * time.Millisecond},
	}
	for i := range words {
		words[i] = fmt.Sprintf("w%02d", i)
		if i < 10 {
			tester.verdicts[model.Candidate(words[i])] = model.VerdictIndeterminate
		}
	}
	c := NewController(tester, s.clock, s.ids, Config{Workers: 8, MaxConsecutiveFailures: 10}, testutil.NopLogger())

	report, err := c.Run(s.ctx, "alice", dictionary.New(words))
	s.Require().NoError(err)
	s.Equal(model.ResultIncomplete, report.Result.Kind)
	s.ErrorIs(report.Err, model.ErrOracleUnavailable)
}

func (s *ControllerSuite) TestWorkersAreClamped() {
	c := NewController(&fakeTester{}, s.clock, s.ids, Config{Workers: 1000}, testutil.NopLogger())
	s.Equal(MaxWorkers, c.cfg.Workers)

	c = NewController(&fakeTester{}, s.clock, s.ids, Config{}, testutil.NopLogger())
	s.Equal(1, c.cfg.Workers)
	s.Equal(2, c.cfg.SuffixLength)
}

func (s *ControllerSuite) TestIllegalTransitionPanics() {
	r := &run{report: &Report{}, state: StateIdle, logger: testutil.NopLogger()}
	s.Panics(func() { r.transition(StateDone) })
}

func (s *ControllerSuite) TestCandidatesAreNotLoggedAtInfo() {
	s.checker = mocks.NewMockChecker("hello42")
	s.checker.FailTimes("pass", 2)
	logger, buf := testutil.BufferLogger(slog.LevelInfo)
	adapter := oracle.NewAdapter(s.checker, oracle.Config{MaxRetries: 1}, logger)
	c := NewController(adapter, s.clock, s.ids, DefaultConfig(), logger)

	report, err := c.Run(s.ctx, "alice", s.words)
	s.Require().NoError(err)
	s.True(report.Result.IsFound())

	s.Contains(buf.String(), `"msg":"search finished"`)
	s.NotContains(buf.String(), "hello42")
	s.NotContains(buf.String(), `"pass"`)
}
