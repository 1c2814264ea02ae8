package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
)

// ReviewLogStore persists the ledger of applied scheduler transitions.
// There is at most one log per submission.
type ReviewLogStore interface {
	// Create saves a review log.
	// Returns ErrReviewLogExists if the submission already has one.
	Create(ctx context.Context, log *domain.ReviewLog) error

	// Exists reports whether a log exists for the submission.
	Exists(ctx context.Context, submissionID uuid.UUID) (bool, error)

	// GetBySubmissions returns the logs of the given submissions keyed by submission ID.
	GetBySubmissions(ctx context.Context, submissionIDs []uuid.UUID) (map[uuid.UUID]*domain.ReviewLog, error)

	// WithTx returns a ReviewLogStore that uses the provided transaction.
	WithTx(tx *sql.Tx) ReviewLogStore
}
