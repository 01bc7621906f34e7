package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/credaudit/internal/dependencies/clock"
	"github.com/mcoot/credaudit/internal/model"
	"github.com/mcoot/credaudit/internal/services/oracle"
	"github.com/mcoot/credaudit/internal/storage"
)

// Errors
var (
	ErrEmptyPassword = errors.New("password must not be empty")
	ErrInvalidHash   = errors.New("invalid bcrypt hash")
)

// Service manages accounts in the credential store under audit
// and verifies credentials against their bcrypt hashes
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	cost    int
	logger  *slog.Logger
}

// Config holds configuration for the auth service
type Config struct {
	// BcryptCost is the work factor used when hashing new passwords
	BcryptCost int
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		BcryptCost: bcrypt.DefaultCost,
	}
}

// New creates a new auth Service
func New(storage storage.Storage, clock clock.Clock, cfg Config, logger *slog.Logger) *Service {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = DefaultConfig().BcryptCost
	}
	return &Service{
		storage: storage,
		clock:   clock,
		cost:    cfg.BcryptCost,
		logger:  logger.With(slog.String("component", "auth")),
	}
}

// Ensure Service can act as the search oracle
var _ oracle.Checker = (*Service)(nil)

// RegisterAccount stores a new account with a hashed password
func (s *Service) RegisterAccount(ctx context.Context, username, password string) (*model.Account, error) {
	if _, err := model.NewIdentifier(username); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, ErrEmptyPassword
	}

	_, err := s.storage.GetAccount(ctx, username)
	if err == nil {
		return nil, model.ErrAccountExists
	}
	if !errors.Is(err, model.ErrAccountNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	account := &model.Account{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.SaveAccount(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("account registered", slog.String("username", username))
	return account, nil
}

// ImportAccount stores an account from an existing bcrypt hash,
// replacing any account with the same username
func (s *Service) ImportAccount(ctx context.Context, username, hash string) (*model.Account, error) {
	if _, err := model.NewIdentifier(username); err != nil {
		return nil, err
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidHash, username, err)
	}

	now := s.clock.Now()
	account := &model.Account{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if existing, err := s.storage.GetAccount(ctx, username); err == nil {
		account.CreatedAt = existing.CreatedAt
	}

	if err := s.storage.SaveAccount(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Debug("account imported", slog.String("username", username))
	return account, nil
}

// RemoveAccount deletes an account from the store
func (s *Service) RemoveAccount(ctx context.Context, username string) error {
	if _, err := s.storage.GetAccount(ctx, username); err != nil {
		return err
	}
	return s.storage.DeleteAccount(ctx, username)
}

// ListAccounts returns the usernames in the store
func (s *Service) ListAccounts(ctx context.Context) ([]string, error) {
	return s.storage.ListAccounts(ctx)
}

// CheckCredential reports whether candidate is the account's password.
// An unknown account is fatal for a search; storage errors are transient.
func (s *Service) CheckCredential(ctx context.Context, id model.Identifier, candidate model.Candidate) (bool, error) {
	account, err := s.storage.GetAccount(ctx, string(id))
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return false, oracle.Fatal(fmt.Errorf("%w: %s", model.ErrAccountNotFound, id))
		}
		return false, err
	}

	err = bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(candidate))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		// A corrupt hash will never verify anything
		return false, oracle.Fatal(fmt.Errorf("account %s: %w", id, err))
	}
}
