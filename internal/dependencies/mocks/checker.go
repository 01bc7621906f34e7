package mocks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mcoot/credaudit/internal/model"
)

// ErrTransient is returned by MockChecker for scripted transient failures
var ErrTransient = errors.New("mock: transient failure")

// MockChecker is a scripted credential checker that records every call
type MockChecker struct {
	mu sync.Mutex

	accepted map[model.Candidate]struct{}
	failures map[model.Candidate]int
	// FailAll makes every call fail transiently
	FailAll bool
	// Err, when set, is returned from every call instead of a verdict
	Err error
	// Latency, when set, delays each call for the returned duration
	Latency func(candidate model.Candidate) time.Duration

	calls []model.Candidate
}

// NewMockChecker creates a MockChecker that accepts only the given candidates
func NewMockChecker(accepted ...string) *MockChecker {
	m := &MockChecker{
		accepted: make(map[model.Candidate]struct{}, len(accepted)),
		failures: make(map[model.Candidate]int),
	}
	for _, a := range accepted {
		m.accepted[model.Candidate(a)] = struct{}{}
	}
	return m
}

// FailTimes makes the next n calls for candidate fail transiently
func (m *MockChecker) FailTimes(candidate string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[model.Candidate(candidate)] = n
}

// CheckCredential implements the checker contract
func (m *MockChecker) CheckCredential(ctx context.Context, id model.Identifier, candidate model.Candidate) (bool, error) {
	m.mu.Lock()
	m.calls = append(m.calls, candidate)
	latency := m.Latency
	m.mu.Unlock()

	if latency != nil {
		if d := latency(candidate); d > 0 {
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return false, ctx.Err()
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return false, m.Err
	}
	if m.FailAll {
		return false, ErrTransient
	}
	if n := m.failures[candidate]; n > 0 {
		m.failures[candidate] = n - 1
		return false, ErrTransient
	}
	_, ok := m.accepted[candidate]
	return ok, nil
}

// Calls returns the candidates checked, in call order
func (m *MockChecker) Calls() []model.Candidate {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Candidate, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of calls made
func (m *MockChecker) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
