package search

import (
	"time"

	"github.com/mcoot/credaudit/internal/model"
)

// Report describes one finished run
type Report struct {
	RunID      model.RunID
	Identifier model.Identifier
	Result     model.RunResult

	// Phase is the furthest phase the run entered
	Phase model.SearchPhase
	// Transitions lists every state the run passed through, in order
	Transitions []State

	// Total is the size of the candidate space
	Total int
	// Attempts counts candidates handed to the oracle
	Attempts int
	// Skipped counts candidates that stayed unverifiable after retries
	Skipped int

	StartedAt  time.Time
	FinishedAt time.Time

	// Err explains an incomplete result and wraps model.ErrSearchIncomplete
	Err error
}

// Duration returns how long the run took
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Record converts the report into its persisted form.
// The matched candidate is deliberately left out.
func (r *Report) Record() *model.RunRecord {
	return &model.RunRecord{
		ID:         r.RunID,
		Identifier: r.Identifier,
		Result:     r.Result.Kind,
		MatchIndex: r.Result.Index,
		Phase:      r.Phase.String(),
		Attempts:   r.Attempts,
		Skipped:    r.Skipped,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}
