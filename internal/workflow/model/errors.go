package model

import (
	"errors"
	"fmt"
)

// Error kinds returned by the engine. Every concrete error below matches exactly one of these through errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrStepOutOfRange    = errors.New("step out of range")
	ErrConflict          = errors.New("conflict")
	ErrValidation        = errors.New("validation error")
	ErrUnavailable       = errors.New("unavailable")
)

// NotFoundError reports a missing template, status template or workflow.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InvalidTransitionError reports an action that is not legal from the workflow's current status.
type InvalidTransitionError struct {
	From   string
	Action string
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot %s workflow in status %s: %s", e.Action, e.From, e.Reason)
	}
	return fmt.Sprintf("cannot %s workflow in status %s", e.Action, e.From)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// StepOutOfRangeError reports an attempt to move past the last step.
type StepOutOfRangeError struct {
	CurrentStep int
	TotalSteps  int
}

func (e *StepOutOfRangeError) Error() string {
	return fmt.Sprintf("cannot advance past step %d of %d", e.CurrentStep, e.TotalSteps)
}

func (e *StepOutOfRangeError) Is(target error) bool { return target == ErrStepOutOfRange }

// ConflictError reports either a stale optimistic version or a delete blocked by references.
type ConflictError struct {
	Resource     string
	ID           string
	ReferencedBy int64
	Reason       string
}

func (e *ConflictError) Error() string {
	if e.ReferencedBy > 0 {
		return fmt.Sprintf("cannot delete: %d workflows use this %s", e.ReferencedBy, e.Resource)
	}
	if e.Reason != "" {
		return fmt.Sprintf("%s %s: %s", e.Resource, e.ID, e.Reason)
	}
	return fmt.Sprintf("%s %s was modified concurrently", e.Resource, e.ID)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// NewVersionConflict reports that the stored version of a record no longer matches the one read.
func NewVersionConflict(resource, id string, expected, actual int64) *ConflictError {
	return &ConflictError{
		Resource: resource,
		ID:       id,
		Reason:   fmt.Sprintf("version %d is stale, current version is %d", expected, actual),
	}
}

// ValidationError reports malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// UnavailableError reports a failing or timed out backing store. Callers may retry it.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: backing store unavailable: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

func IsNotFound(err error) bool          { return errors.Is(err, ErrNotFound) }
func IsInvalidTransition(err error) bool { return errors.Is(err, ErrInvalidTransition) }
func IsStepOutOfRange(err error) bool    { return errors.Is(err, ErrStepOutOfRange) }
func IsConflict(err error) bool          { return errors.Is(err, ErrConflict) }
func IsValidation(err error) bool        { return errors.Is(err, ErrValidation) }
func IsUnavailable(err error) bool       { return errors.Is(err, ErrUnavailable) }
