package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
)

// PoolStore defines the interface for pool data persistence.
type PoolStore interface {
	// Create saves a new pool together with its concepts.
	// It must run inside a transaction for the pool and concept rows to be atomic.
	Create(ctx context.Context, pool *domain.Pool) error

	// GetByID retrieves a pool with its concepts ordered by position.
	// Returns ErrPoolNotFound if the pool does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Pool, error)

	// ListByOwner returns the owner's pools ordered by creation time, without concepts.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Pool, error)

	// ListSpacedRepetition returns the owner's pools that take part in the
	// global due set, ordered by creation time.
	ListSpacedRepetition(ctx context.Context, ownerID uuid.UUID) ([]*domain.Pool, error)

	// AddConcepts appends concepts to an existing pool.
	AddConcepts(ctx context.Context, poolID uuid.UUID, concepts []domain.Concept) error

	// UpdateStatus changes the pool status.
	// Returns ErrPoolNotFound if the pool does not exist.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PoolStatus) error

	// Delete removes a pool. Concepts, items, sittings and submissions are
	// removed by ON DELETE CASCADE.
	// Returns ErrPoolNotFound if the pool does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a PoolStore that uses the provided transaction.
	WithTx(tx *sql.Tx) PoolStore
}
