package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/mcoot/credaudit/internal/model"
)

// Recovering wraps checker so that a panic inside it becomes a fatal error
// instead of taking down the whole run
func Recovering(checker Checker, logger *slog.Logger) Checker {
	return CheckerFunc(func(ctx context.Context, id model.Identifier, candidate model.Candidate) (ok bool, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					slog.String("component", "oracle"),
					slog.Any("error", r),
					slog.String("stack", string(debug.Stack())),
					slog.String("identifier", string(id)),
				)
				ok = false
				err = Fatal(fmt.Errorf("checker panicked: %v", r))
			}
		}()

		return checker.CheckCredential(ctx, id, candidate)
	})
}
