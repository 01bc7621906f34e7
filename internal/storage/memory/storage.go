package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/mcoot/credaudit/internal/model"
	"github.com/mcoot/credaudit/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	accounts        map[string]*model.Account
	dictionaryWords []string
	runs            map[model.RunID]*model.RunRecord
	runOrder        []model.RunID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		accounts: make(map[string]*model.Account),
		runs:     make(map[model.RunID]*model.RunRecord),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Close is a no-op for in-memory storage
func (s *Storage) Close() error {
	return nil
}

// Account operations

func (s *Storage) SaveAccount(ctx context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *account
	s.accounts[account.Username] = &stored
	return nil
}

func (s *Storage) GetAccount(ctx context.Context, username string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[username]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	result := *account
	return &result, nil
}

func (s *Storage) DeleteAccount(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accounts, username)
	return nil
}

func (s *Storage) ListAccounts(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	usernames := make([]string, 0, len(s.accounts))
	for username := range s.accounts {
		usernames = append(usernames, username)
	}
	slices.Sort(usernames)
	return usernames, nil
}

// Dictionary operations

func (s *Storage) GetDictionaryWords(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dictionaryWords == nil {
		return nil, model.ErrDictionaryNotLoaded
	}
	result := make([]string, len(s.dictionaryWords))
	copy(result, s.dictionaryWords)
	return result, nil
}

func (s *Storage) SaveDictionaryWords(ctx context.Context, words []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dictionaryWords = make([]string, len(words))
	copy(s.dictionaryWords, words)
	return nil
}

// Run history operations

func (s *Storage) SaveRunRecord(ctx context.Context, record *model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[record.ID]; !exists {
		s.runOrder = append(s.runOrder, record.ID)
	}
	stored := *record
	s.runs[record.ID] = &stored
	return nil
}

func (s *Storage) GetRunRecord(ctx context.Context, id model.RunID) (*model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.runs[id]
	if !ok {
		return nil, model.ErrRunNotFound
	}
	result := *record
	return &result, nil
}

// ListRunRecords returns the most recent runs first.
// A limit of zero or less returns every run.
func (s *Storage) ListRunRecords(ctx context.Context, limit int) ([]*model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.runOrder)
	if limit > 0 && limit < n {
		n = limit
	}

	records := make([]*model.RunRecord, 0, n)
	for i := len(s.runOrder) - 1; i >= 0 && len(records) < n; i-- {
		record := *s.runs[s.runOrder[i]]
		records = append(records, &record)
	}
	return records, nil
}
