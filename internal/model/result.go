package model

import "time"

// ResultKind distinguishes the terminal outcomes of a search
type ResultKind string

const (
	ResultFound      ResultKind = "found"
	ResultExhausted  ResultKind = "exhausted"
	ResultIncomplete ResultKind = "incomplete"
)

// RunResult is the terminal value of a search run.
// Candidate and Index are only meaningful when Kind is ResultFound.
type RunResult struct {
	Kind      ResultKind
	Candidate Candidate
	Index     int
	Phase     SearchPhase
}

// Found builds a RunResult for an accepted candidate
func Found(c Candidate, index int, phase SearchPhase) RunResult {
	return RunResult{Kind: ResultFound, Candidate: c, Index: index, Phase: phase}
}

// Exhausted builds a RunResult for a fully searched space
func Exhausted() RunResult {
	return RunResult{Kind: ResultExhausted, Index: -1}
}

// Incomplete builds a RunResult for a search that could not finish
func Incomplete() RunResult {
	return RunResult{Kind: ResultIncomplete, Index: -1}
}

// IsFound reports whether the run found a match
func (r RunResult) IsFound() bool {
	return r.Kind == ResultFound
}

// RunID uniquely identifies a search run
type RunID string

// RunRecord is the persisted summary of a run.
// The matched candidate is never stored.
type RunRecord struct {
	ID         RunID      `json:"id"`
	Identifier Identifier `json:"identifier"`
	Result     ResultKind `json:"result"`
	MatchIndex int        `json:"match_index"`
	Phase      string     `json:"phase"`
	Attempts   int        `json:"attempts"`
	Skipped    int        `json:"skipped"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
}
