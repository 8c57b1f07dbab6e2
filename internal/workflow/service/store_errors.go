package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/OpenNSW/flowtrack/internal/workflow/model"
)

// storeError maps a gorm error into the engine's error kinds.
// A missing record becomes NotFound; every other failure, timeouts included, is reported as Unavailable.
func storeError(op, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	if isKnownKind(err) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.NotFoundError{Resource: resource, ID: id}
	}
	return &model.UnavailableError{Op: op, Err: err}
}

func isKnownKind(err error) bool {
	return model.IsNotFound(err) || model.IsConflict(err) || model.IsValidation(err) ||
		model.IsUnavailable(err) || model.IsInvalidTransition(err) || model.IsStepOutOfRange(err)
}

// errorKind names the kind of err for metrics and logs.
func errorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case model.IsNotFound(err):
		return "not_found"
	case model.IsInvalidTransition(err):
		return "invalid_transition"
	case model.IsStepOutOfRange(err):
		return "step_out_of_range"
	case model.IsConflict(err):
		return "conflict"
	case model.IsValidation(err):
		return "validation"
	case model.IsUnavailable(err):
		return "unavailable"
	default:
		return "internal"
	}
}

// withTimeout bounds a store call when a query timeout is configured.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
