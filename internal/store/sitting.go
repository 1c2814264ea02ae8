package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
)

// SittingStore defines the interface for sitting data persistence.
type SittingStore interface {
	// Create saves a sitting together with its ordered item list.
	// It must run inside a transaction.
	Create(ctx context.Context, sitting *domain.Sitting) error

	// GetByID retrieves a sitting with its items ordered by position.
	// Returns ErrSittingNotFound if the sitting does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Sitting, error)

	// GetForUpdate retrieves a sitting with its items and locks the sitting row.
	// Returns ErrSittingNotFound if the sitting does not exist.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Sitting, error)

	// FindLatest returns the newest sitting of the owner for a pool, or the
	// newest global sitting when poolID is nil. With openOnly set, only
	// in_progress and awaiting_evaluation sittings are considered.
	// Returns ErrSittingNotFound when there is none.
	FindLatest(ctx context.Context, ownerID uuid.UUID, poolID *uuid.UUID, openOnly bool) (*domain.Sitting, error)

	// Update writes status, cursor and acknowledgement of a sitting.
	// Returns ErrSittingNotFound if the sitting does not exist.
	Update(ctx context.Context, sitting *domain.Sitting) error

	// WithTx returns a SittingStore that uses the provided transaction.
	WithTx(tx *sql.Tx) SittingStore
}
