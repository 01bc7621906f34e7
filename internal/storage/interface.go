package storage

import (
	"context"

	"github.com/mcoot/credaudit/internal/model"
)

// Storage defines the interface for data persistence
type Storage interface {
	// Account operations
	SaveAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, username string) (*model.Account, error)
	DeleteAccount(ctx context.Context, username string) error
	ListAccounts(ctx context.Context) ([]string, error)

	// Dictionary operations
	// Words are returned in the order they were saved
	GetDictionaryWords(ctx context.Context) ([]string, error)
	SaveDictionaryWords(ctx context.Context, words []string) error

	// Run history operations
	SaveRunRecord(ctx context.Context, record *model.RunRecord) error
	GetRunRecord(ctx context.Context, id model.RunID) (*model.RunRecord, error)
	ListRunRecords(ctx context.Context, limit int) ([]*model.RunRecord, error)

	Close() error
}
