// Package oracle adapts an external credential check into a three-valued verdict.
package oracle

import (
	"context"
	"errors"

	"github.com/mcoot/credaudit/internal/model"
)

// ErrFatal marks a checker failure that no retry can fix, such as an
// unknown account. Checkers wrap it; the adapter never retries it.
var ErrFatal = errors.New("fatal oracle failure")

// Checker is the external credential check.
// A nil error with false means the credential was definitively wrong.
type Checker interface {
	CheckCredential(ctx context.Context, id model.Identifier, candidate model.Candidate) (bool, error)
}

// CheckerFunc adapts a function to the Checker interface
type CheckerFunc func(ctx context.Context, id model.Identifier, candidate model.Candidate) (bool, error)

// CheckCredential calls f
func (f CheckerFunc) CheckCredential(ctx context.Context, id model.Identifier, candidate model.Candidate) (bool, error) {
	return f(ctx, id, candidate)
}

// Fatal wraps err so the adapter treats it as run-ending
func Fatal(err error) error {
	return &fatalError{err: err}
}

type fatalError struct {
	err error
}

func (e *fatalError) Error() string {
	return e.err.Error()
}

func (e *fatalError) Unwrap() []error {
	return []error{ErrFatal, e.err}
}

// IsFatal reports whether err should end the run
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}
