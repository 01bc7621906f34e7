package factory

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/credaudit/internal/dependencies/mocks"
	"github.com/mcoot/credaudit/internal/services/auth"
	"github.com/mcoot/credaudit/internal/services/oracle"
	"github.com/mcoot/credaudit/internal/services/search"
	"github.com/mcoot/credaudit/internal/storage/memory"
	"github.com/mcoot/credaudit/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *mocks.MockClock
	MockIDs   *mocks.MockIDs
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// Passwords are hashed at the minimum bcrypt cost and retries do not back off.
func NewTestApp() *TestApp {
	return NewTestAppWithSearch(search.DefaultConfig())
}

// NewTestAppWithSearch is NewTestApp with custom controller settings
func NewTestAppWithSearch(searchCfg search.Config) *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockIDs := mocks.NewMockIDs()

	oracleCfg := oracle.DefaultConfig()
	oracleCfg.RetryBackoff = 0

	app := newWithDependencies(
		store,
		mockClock,
		mockIDs,
		auth.Config{BcryptCost: bcrypt.MinCost},
		oracleCfg,
		searchCfg,
		testutil.NopLogger(),
	)

	return &TestApp{
		App:       app,
		MockClock: mockClock,
		MockIDs:   mockIDs,
	}
}

// LoadTestDictionary loads the two-word dictionary used throughout the tests
func (t *TestApp) LoadTestDictionary() {
	t.DictionaryService.LoadWords([]string{"pass", "hello"})
}
