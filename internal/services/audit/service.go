// Package audit runs credential searches end to end and keeps their history.
package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mcoot/credaudit/internal/model"
	"github.com/mcoot/credaudit/internal/services/dictionary"
	"github.com/mcoot/credaudit/internal/services/search"
	"github.com/mcoot/credaudit/internal/storage"
)

// Options control a single audit
type Options struct {
	// DictionaryPath overrides the active dictionary with a file
	DictionaryPath string
	// NoHistory skips persisting the run record
	NoHistory bool
}

// Service ties the dictionary, the search controller and run history together
type Service struct {
	storage    storage.Storage
	dictionary *dictionary.Service
	controller *search.Controller
	logger     *slog.Logger
}

// New creates a new audit Service
func New(storage storage.Storage, dict *dictionary.Service, controller *search.Controller, logger *slog.Logger) *Service {
	return &Service{
		storage:    storage,
		dictionary: dict,
		controller: controller,
		logger:     logger.With(slog.String("component", "audit")),
	}
}

// Audit searches for a weak password for id.
//
// A failure to persist history is logged and does not change the report.
func (s *Service) Audit(ctx context.Context, id model.Identifier, opts Options) (*search.Report, error) {
	if opts.DictionaryPath != "" || !s.dictionary.IsLoaded() {
		if err := s.dictionary.Load(ctx, opts.DictionaryPath); err != nil {
			return nil, fmt.Errorf("loading dictionary: %w", err)
		}
	}

	words, err := s.dictionary.Dictionary()
	if err != nil {
		return nil, err
	}

	report, err := s.controller.Run(ctx, id, words)
	if err != nil {
		return nil, err
	}

	if opts.NoHistory {
		return report, nil
	}

	// ctx may already be cancelled for an interrupted run; still record it
	if err := s.storage.SaveRunRecord(context.WithoutCancel(ctx), report.Record()); err != nil {
		s.logger.Warn("failed to save run record",
			slog.String("run_id", string(report.RunID)),
			slog.String("error", err.Error()),
		)
	}

	return report, nil
}

// History returns up to limit run records, newest first. limit <= 0 returns all.
func (s *Service) History(ctx context.Context, limit int) ([]*model.RunRecord, error) {
	return s.storage.ListRunRecords(ctx, limit)
}

// GetRun returns a single run record
func (s *Service) GetRun(ctx context.Context, id model.RunID) (*model.RunRecord, error) {
	return s.storage.GetRunRecord(ctx, id)
}
