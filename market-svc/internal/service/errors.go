package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrPartialFanout     = errors.New("order saved but index fan-out incomplete")
)

// PartialFanoutError is returned when an order was persisted but its
// indices or counters could not all be written. The reconciler repairs it.
type PartialFanoutError struct {
	OrderID string
	Err     error
}

func (e *PartialFanoutError) Error() string {
	return fmt.Sprintf("%s: order %s: %v", ErrPartialFanout, e.OrderID, e.Err)
}

func (e *PartialFanoutError) Is(target error) bool {
	return target == ErrPartialFanout
}

func (e *PartialFanoutError) Unwrap() error {
	return e.Err
}

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
