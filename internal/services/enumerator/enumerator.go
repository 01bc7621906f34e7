// Package enumerator produces the ordered candidate sequence for a search.
//
// Phase one yields every dictionary word verbatim. Phase two yields every
// word followed by a fixed-length suffix drawn from the alphabet, with the
// word varying slowest and the last suffix position fastest.
package enumerator

import (
	"fmt"
	"iter"
	"strings"

	"github.com/mcoot/credaudit/internal/model"
)

// DefaultSuffixLength is the number of suffix symbols appended in phase two
const DefaultSuffixLength = 2

// Words is the ordered-access contract the enumerator needs from a dictionary
type Words interface {
	WordAt(index int) (string, error)
	Size() int
}

// Entry is one produced candidate.
// Index is the 0-based position in the total enumeration order.
type Entry struct {
	Candidate model.Candidate
	Phase     model.SearchPhase
	Index     int
}

// Option configures an Enumerator
type Option func(*Enumerator)

// WithSuffixLength sets the number of suffix symbols used in phase two
func WithSuffixLength(n int) Option {
	return func(e *Enumerator) {
		e.suffixLen = n
	}
}

// WithAlphabet replaces the digit alphabet
func WithAlphabet(a *Alphabet) Option {
	return func(e *Enumerator) {
		e.alphabet = a
	}
}

// Enumerator is a lazy, single-use cursor over the candidate order.
// It is not safe for concurrent use.
type Enumerator struct {
	words     Words
	alphabet  *Alphabet
	suffixLen int

	phase   model.SearchPhase
	wordIdx int   // 0-based position in words
	suffix  []int // 0-based symbol positions, most significant first
	next    int
	done    bool
	err     error
}

// New creates an Enumerator positioned before the first candidate
func New(words Words, opts ...Option) (*Enumerator, error) {
	e := &Enumerator{
		words:     words,
		alphabet:  Digits(),
		suffixLen: DefaultSuffixLength,
		phase:     model.PhaseDictionaryOnly,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.suffixLen < 1 {
		return nil, fmt.Errorf("%w: got %d", model.ErrInvalidSuffixLength, e.suffixLen)
	}
	e.suffix = make([]int, e.suffixLen)
	return e, nil
}

// PhaseSize returns the number of candidates the given phase produces
func (e *Enumerator) PhaseSize(phase model.SearchPhase) int {
	n := e.words.Size()
	switch phase {
	case model.PhaseDictionaryOnly:
		return n
	case model.PhaseDictionaryPlusSuffix:
		for range e.suffixLen {
			n *= e.alphabet.Size()
		}
		return n
	default:
		return 0
	}
}

// Total returns the number of candidates across both phases
func (e *Enumerator) Total() int {
	return e.PhaseSize(model.PhaseDictionaryOnly) + e.PhaseSize(model.PhaseDictionaryPlusSuffix)
}

// Next advances the cursor and returns the next candidate.
// It returns false once both phases are exhausted or an error occurred.
func (e *Enumerator) Next() (Entry, bool) {
	for !e.done {
		if e.wordIdx >= e.words.Size() {
			if e.phase == model.PhaseDictionaryOnly {
				e.phase = model.PhaseDictionaryPlusSuffix
				e.wordIdx = 0
				continue
			}
			e.done = true
			break
		}

		word, err := e.words.WordAt(e.wordIdx + 1)
		if err != nil {
			e.err = err
			e.done = true
			break
		}

		var candidate string
		if e.phase == model.PhaseDictionaryOnly {
			candidate = word
			e.wordIdx++
		} else {
			candidate, err = e.withSuffix(word)
			if err != nil {
				e.err = err
				e.done = true
				break
			}
			if e.advanceSuffix() {
				e.wordIdx++
			}
		}

		entry := Entry{
			Candidate: model.Candidate(candidate),
			Phase:     e.phase,
			Index:     e.next,
		}
		e.next++
		return entry, true
	}
	return Entry{}, false
}

// Err returns the first error encountered while reading the dictionary
func (e *Enumerator) Err() error {
	return e.err
}

// All returns the remaining candidates as a sequence.
// Ranging over it consumes the enumerator.
func (e *Enumerator) All() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for {
			entry, ok := e.Next()
			if !ok || !yield(entry) {
				return
			}
		}
	}
}

func (e *Enumerator) withSuffix(word string) (string, error) {
	var b strings.Builder
	b.Grow(len(word) + e.suffixLen)
	b.WriteString(word)
	for _, pos := range e.suffix {
		sym, err := e.alphabet.SymbolAt(pos + 1)
		if err != nil {
			return "", err
		}
		b.WriteString(sym)
	}
	return b.String(), nil
}

// advanceSuffix increments the suffix odometer and reports whether it wrapped
func (e *Enumerator) advanceSuffix() bool {
	for i := len(e.suffix) - 1; i >= 0; i-- {
		if e.suffix[i] < e.alphabet.Size()-1 {
			e.suffix[i]++
			return false
		}
		e.suffix[i] = 0
	}
	return true
}
