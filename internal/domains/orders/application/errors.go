package application

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/domain"
	"github.com/Apurer/loyalty-checkout/internal/domains/orders/ports"
)

// ErrorKind is the stable, caller-facing classification of a failure.
type ErrorKind string

const (
	KindValidation          ErrorKind = "validation"
	KindInsufficientStock   ErrorKind = "insufficient_stock"
	KindPersistence         ErrorKind = "persistence"
	KindCompensationFailure ErrorKind = "compensation_failure"
	KindNotFound            ErrorKind = "not_found"
	KindInvalidTransition   ErrorKind = "invalid_transition"
	KindInternal            ErrorKind = "internal"
)

var (
	ErrValidation         = errors.New("invalid order submission")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrPersistence        = errors.New("order persistence failed")
	ErrCompensationFailed = errors.New("order compensation failed")
	ErrNotFound           = ports.ErrNotFound
	ErrInvalidTransition  = domain.ErrInvalidTransition
)

// ValidationError reports the first malformed field of a submission.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// InsufficientStockError names the product that could not be reserved.
type InsufficientStockError struct {
	ProductID string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %q", e.ProductID)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// PersistenceError wraps an infrastructure failure of one saga step.
type PersistenceError struct {
	Step string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist order: %s: %v", e.Step, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// StepFailure is one compensating action that did not succeed.
type StepFailure struct {
	Step string
	Err  error
}

// CompensationFailureError means storage may hold a partial order or skewed
// stock that only manual reconciliation can repair. It is never retryable.
type CompensationFailureError struct {
	OrderID  string
	Cause    error
	Failures []StepFailure
}

func (e *CompensationFailureError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Step, f.Err))
	}
	msg := fmt.Sprintf("compensation failed for order %s: %s", e.OrderID, strings.Join(parts, "; "))
	if e.Cause != nil {
		msg += fmt.Sprintf(" (after: %v)", e.Cause)
	}
	return msg
}

func (e *CompensationFailureError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures)+1)
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

func (e *CompensationFailureError) Is(target error) bool { return target == ErrCompensationFailed }

// FailedSteps lists the names of compensations that failed.
func (e *CompensationFailureError) FailedSteps() []string {
	steps := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		steps = append(steps, f.Step)
	}
	return steps
}

// NotFoundError is returned when a status transition target does not exist.
type NotFoundError struct {
	OrderID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("order %s not found", e.OrderID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// KindOf classifies any error returned by this package.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCompensationFailed):
		return KindCompensationFailure
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrInsufficientStock):
		return KindInsufficientStock
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	case errors.Is(err, ErrNotFound), errors.Is(err, ports.ErrProductNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidTransition
	default:
		return KindInternal
	}
}

// PublicMessage renders a human message that never echoes storage error text.
func PublicMessage(err error) string {
	switch KindOf(err) {
	case KindValidation:
		var ve *ValidationError
		if errors.As(err, &ve) {
			return fmt.Sprintf("invalid order: %s %s", ve.Field, ve.Reason)
		}
		return "invalid order"
	case KindInsufficientStock:
		var se *InsufficientStockError
		if errors.As(err, &se) {
			return fmt.Sprintf("product %s does not have enough stock", se.ProductID)
		}
		return "a product does not have enough stock"
	case KindPersistence:
		return "the order could not be saved, please retry"
	case KindCompensationFailure:
		return "the order could not be placed and has been flagged for manual review"
	case KindNotFound:
		if errors.Is(err, ports.ErrProductNotFound) {
			return "product not found"
		}
		return "order not found"
	case KindInvalidTransition:
		return "the order cannot move to the requested status"
	case "":
		return ""
	default:
		return "unexpected error"
	}
}

func mapStoreError(orderID string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ports.ErrNotFound) {
		return &NotFoundError{OrderID: orderID}
	}
	return err
}
