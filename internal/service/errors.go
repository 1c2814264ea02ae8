package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/store"
)

// Service errors shared by the pool, due-set, evaluation and quiz services.
// Callers check for them with errors.Is; the API layer maps them to status codes.
var (
	// ErrDuplicateSubmission indicates the item already has an accepted
	// answer in the sitting.
	ErrDuplicateSubmission = errors.New("item already answered in this sitting")

	// ErrUnknownItem indicates the item does not exist or belongs to another owner.
	ErrUnknownItem = errors.New("unknown item")

	// ErrUnknownSitting indicates the sitting does not exist or belongs to another owner.
	ErrUnknownSitting = errors.New("unknown sitting")

	// ErrUnknownPool indicates the pool does not exist or belongs to another owner.
	ErrUnknownPool = errors.New("unknown pool")

	// ErrUnknownSubmission indicates the submission does not exist or belongs
	// to another owner.
	ErrUnknownSubmission = errors.New("unknown submission")

	// ErrJudgmentUnavailable indicates the judge could not produce a verdict
	// within the retry budget. The submission is marked failed.
	ErrJudgmentUnavailable = errors.New("judgment unavailable")

	// ErrInconsistentCommit indicates the commit found state it cannot apply a
	// transition to, such as a deleted item. Reconciliation repairs what it can.
	ErrInconsistentCommit = errors.New("inconsistent commit state")

	// ErrInvalidTransition indicates a sitting cannot move to the requested state.
	ErrInvalidTransition = domain.ErrInvalidTransition

	// ErrSittingNotFinished indicates completion was requested before the last item.
	ErrSittingNotFinished = domain.ErrSittingNotFinished

	// ErrNothingDue indicates a global sitting was requested with no item due.
	ErrNothingDue = errors.New("nothing is due for review")

	// ErrNotRetryable indicates a retry was requested for a submission that
	// has not failed or has been superseded.
	ErrNotRetryable = errors.New("submission cannot be retried")
)

// ServiceError wraps an error with the operation that produced it.
// It unwraps to the underlying error so sentinels survive.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "submit", "create_sitting")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// MapStoreError translates store not-found errors into the service sentinel
// for the entity. Other errors are returned unchanged.
func MapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrPoolNotFound):
		return ErrUnknownPool
	case errors.Is(err, store.ErrItemNotFound):
		return ErrUnknownItem
	case errors.Is(err, store.ErrSittingNotFound):
		return ErrUnknownSitting
	case errors.Is(err, store.ErrSubmissionNotFound):
		return ErrUnknownSubmission
	case errors.Is(err, store.ErrSubmissionExists):
		return ErrDuplicateSubmission
	default:
		return err
	}
}
