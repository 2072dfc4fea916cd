package orders

import (
	"errors"

	"go.temporal.io/sdk/temporal"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/application"
)

// Failure is the detail payload carried by a placement error across the
// workflow boundary.
type Failure struct {
	Field       string   `json:"field,omitempty"`
	Reason      string   `json:"reason,omitempty"`
	ProductID   string   `json:"productId,omitempty"`
	Step        string   `json:"step,omitempty"`
	OrderID     string   `json:"orderId,omitempty"`
	FailedSteps []string `json:"failedSteps,omitempty"`
	Cause       string   `json:"cause,omitempty"`
}

// EncodeError converts an application error into a non-retryable Temporal
// application error whose type is the error kind.
func EncodeError(err error) error {
	if err == nil {
		return nil
	}
	var failure Failure
	var (
		ve  *application.ValidationError
		se  *application.InsufficientStockError
		pe  *application.PersistenceError
		cfe *application.CompensationFailureError
		nfe *application.NotFoundError
	)
	switch {
	case errors.As(err, &cfe):
		failure.OrderID = cfe.OrderID
		failure.FailedSteps = cfe.FailedSteps()
		if cfe.Cause != nil {
			failure.Cause = cfe.Cause.Error()
		}
	case errors.As(err, &ve):
		failure.Field, failure.Reason = ve.Field, ve.Reason
	case errors.As(err, &se):
		failure.ProductID = se.ProductID
	case errors.As(err, &pe):
		failure.Step = pe.Step
		if pe.Err != nil {
			failure.Cause = pe.Err.Error()
		}
	case errors.As(err, &nfe):
		failure.OrderID = nfe.OrderID
	}
	kind := string(application.KindOf(err))
	return temporal.NewNonRetryableApplicationError(err.Error(), kind, err, failure)
}

// DecodeError rebuilds the typed application error from a workflow or
// activity failure. Errors that carry no application error are returned as is.
func DecodeError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return err
	}
	var failure Failure
	if appErr.HasDetails() {
		if derr := appErr.Details(&failure); derr != nil {
			return err
		}
	}
	switch application.ErrorKind(appErr.Type()) {
	case application.KindValidation:
		return &application.ValidationError{Field: failure.Field, Reason: failure.Reason}
	case application.KindInsufficientStock:
		return &application.InsufficientStockError{ProductID: failure.ProductID}
	case application.KindPersistence:
		return &application.PersistenceError{Step: failure.Step, Err: causeOf(failure, appErr)}
	case application.KindCompensationFailure:
		cfe := &application.CompensationFailureError{OrderID: failure.OrderID}
		if failure.Cause != "" {
			cfe.Cause = errors.New(failure.Cause)
		}
		for _, step := range failure.FailedSteps {
			cfe.Failures = append(cfe.Failures, application.StepFailure{Step: step, Err: errors.New("compensation failed")})
		}
		return cfe
	case application.KindNotFound:
		return &application.NotFoundError{OrderID: failure.OrderID}
	default:
		return err
	}
}

func causeOf(failure Failure, appErr *temporal.ApplicationError) error {
	if failure.Cause != "" {
		return errors.New(failure.Cause)
	}
	return errors.New(appErr.Message())
}
