package dictionary

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	"github.com/mcoot/credaudit/internal/model"
	"github.com/mcoot/credaudit/internal/storage"
)

// Service owns the active dictionary and where it was loaded from
type Service struct {
	storage storage.Storage
	logger  *slog.Logger

	mu      sync.RWMutex
	current *Dictionary
}

// NewService creates a new dictionary Service
func NewService(storage storage.Storage, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger.With(slog.String("component", "dictionary")),
	}
}

// LoadFromStorage loads dictionary words from storage
func (s *Service) LoadFromStorage(ctx context.Context) error {
	words, err := s.storage.GetDictionaryWords(ctx)
	if err != nil {
		return err
	}
	s.set(New(words), "storage")
	return nil
}

// LoadFromFile loads dictionary words from a file (one word per line)
// and saves them to storage for later runs
func (s *Service) LoadFromFile(ctx context.Context, path string) error {
	words, err := readWords(path)
	if err != nil {
		return err
	}

	if err := s.storage.SaveDictionaryWords(ctx, words); err != nil {
		return err
	}

	s.set(New(words), path)
	return nil
}

// UseFile makes a file the active dictionary without touching storage
func (s *Service) UseFile(path string) error {
	words, err := readWords(path)
	if err != nil {
		return err
	}

	s.set(New(words), path)
	return nil
}

func readWords(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseWords(file)
}

// LoadWords directly loads a slice of words (useful for testing)
func (s *Service) LoadWords(words []string) {
	s.set(New(words), "words")
}

// LoadDefault loads the built-in dictionary
func (s *Service) LoadDefault() {
	s.set(Default(), "builtin")
}

// Load picks a source in priority order: an explicit file, then storage,
// then the built-in list. An explicit file only applies to this process.
func (s *Service) Load(ctx context.Context, path string) error {
	if path != "" {
		return s.UseFile(path)
	}

	err := s.LoadFromStorage(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, model.ErrDictionaryNotLoaded) {
		return err
	}

	s.LoadDefault()
	return nil
}

func (s *Service) set(d *Dictionary, source string) {
	s.mu.Lock()
	s.current = d
	s.mu.Unlock()

	s.logger.Debug("dictionary loaded",
		slog.String("source", source),
		slog.Int("words", d.Size()),
	)
}

// Dictionary returns the active dictionary snapshot
func (s *Service) Dictionary() (*Dictionary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, model.ErrDictionaryNotLoaded
	}
	return s.current, nil
}

// IsLoaded returns whether a dictionary has been loaded
func (s *Service) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

// WordCount returns the number of words in the active dictionary
func (s *Service) WordCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return 0
	}
	return s.current.Size()
}
