package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
)

// SubmissionStore defines the interface for submission data persistence.
type SubmissionStore interface {
	// Create saves a new submission.
	// Returns ErrSubmissionExists when a non-failed submission already exists
	// for the same item and sitting.
	Create(ctx context.Context, submission *domain.Submission) error

	// GetByID retrieves a submission by its ID.
	// Returns ErrSubmissionNotFound if the submission does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Submission, error)

	// GetForUpdate retrieves a submission with a row-level lock.
	// Returns ErrSubmissionNotFound if the submission does not exist.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Submission, error)

	// FindActive returns the non-failed submission for an item in a sitting.
	// Returns ErrSubmissionNotFound when there is none.
	FindActive(ctx context.Context, itemID, sittingID uuid.UUID) (*domain.Submission, error)

	// ListBySitting returns all submissions of a sitting, oldest first.
	ListBySitting(ctx context.Context, sittingID uuid.UUID) ([]*domain.Submission, error)

	// ListEvaluatedWithoutLog returns evaluated submissions that have no review
	// log, oldest first, up to limit.
	ListEvaluatedWithoutLog(ctx context.Context, limit int) ([]*domain.Submission, error)

	// Update writes the mutable fields of a submission: status, verdict,
	// explanation, feedback, attempts, last error and evaluation time.
	// Returns ErrSubmissionNotFound if the submission does not exist.
	Update(ctx context.Context, submission *domain.Submission) error

	// SetFeedback stores re-explanation text for a submission.
	SetFeedback(ctx context.Context, id uuid.UUID, feedback string) error

	// WithTx returns a SubmissionStore that uses the provided transaction.
	WithTx(tx *sql.Tx) SubmissionStore
}
