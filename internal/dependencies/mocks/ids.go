package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/credaudit/internal/dependencies/ids"
)

// MockIDs is a mock implementation of ids.Generator for testing
type MockIDs struct {
	mu sync.Mutex

	// Queue is returned in order; once empty, IDs are "<Prefix>-<n>"
	Queue  []string
	Prefix string
	n      int
}

// Ensure MockIDs implements Generator
var _ ids.Generator = (*MockIDs)(nil)

// NewMockIDs creates a MockIDs producing "run-1", "run-2", ...
func NewMockIDs() *MockIDs {
	return &MockIDs{Prefix: "run"}
}

// NewID returns the next queued ID, or a sequential one
func (m *MockIDs) NewID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Queue) > 0 {
		id := m.Queue[0]
		m.Queue = m.Queue[1:]
		return id
	}
	m.n++
	return fmt.Sprintf("%s-%d", m.Prefix, m.n)
}
