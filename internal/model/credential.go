package model

import "strings"

// Identifier names the account under test
type Identifier string

// NewIdentifier validates and returns an Identifier
func NewIdentifier(s string) (Identifier, error) {
	if strings.TrimSpace(s) == "" {
		return "", ErrEmptyIdentifier
	}
	return Identifier(s), nil
}

// Candidate is a single password guess
type Candidate string

// SearchPhase tags which enumeration stage produced a candidate
type SearchPhase int

const (
	// PhaseDictionaryOnly yields dictionary words verbatim
	PhaseDictionaryOnly SearchPhase = iota + 1
	// PhaseDictionaryPlusSuffix yields each word followed by a digit suffix
	PhaseDictionaryPlusSuffix
)

func (p SearchPhase) String() string {
	switch p {
	case PhaseDictionaryOnly:
		return "dictionary"
	case PhaseDictionaryPlusSuffix:
		return "dictionary+suffix"
	default:
		return "none"
	}
}

// Verdict is the outcome of one oracle attempt
type Verdict int

const (
	VerdictRejected Verdict = iota
	VerdictAccepted
	// VerdictIndeterminate means the check itself failed, not the guess
	VerdictIndeterminate
)

func (v Verdict) String() string {
	switch v {
	case VerdictAccepted:
		return "accepted"
	case VerdictRejected:
		return "rejected"
	case VerdictIndeterminate:
		return "indeterminate"
	default:
		return "unknown"
	}
}
