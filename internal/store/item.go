package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
)

// ItemStore defines the interface for item data persistence.
type ItemStore interface {
	// CreateMultiple saves generated items.
	// IMPORTANT: run it inside a transaction so either all items are created or none.
	CreateMultiple(ctx context.Context, items []*domain.Item) error

	// GetByID retrieves an item by its ID.
	// Returns ErrItemNotFound if the item does not exist.
	// NOTE: This method does NOT lock the row.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Item, error)

	// GetForUpdate retrieves an item with a row-level lock (SELECT ... FOR UPDATE).
	// It must be used within a transaction that later updates the row.
	// Returns ErrItemNotFound if the item does not exist.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Item, error)

	// GetByIDs retrieves the items with the given IDs in no particular order.
	// Missing IDs are skipped.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Item, error)

	// ListByPool returns all items of a pool ordered by creation time.
	ListByPool(ctx context.Context, poolID uuid.UUID) ([]*domain.Item, error)

	// ListDue returns the items of a pool with due_at <= now, ordered by
	// due_at, then box, then id. A limit <= 0 returns all of them.
	ListDue(ctx context.Context, poolID uuid.UUID, now time.Time, limit int) ([]*domain.Item, error)

	// ListConceptsWithItems returns the concept labels of the pool that already have items.
	ListConceptsWithItems(ctx context.Context, poolID uuid.UUID) ([]string, error)

	// CountByBox returns the number of items of a pool in each box.
	CountByBox(ctx context.Context, poolID uuid.UUID) (map[int]int, error)

	// CountDue returns the number of items of a pool with due_at <= now.
	CountDue(ctx context.Context, poolID uuid.UUID, now time.Time) (int, error)

	// UpdateScheduling writes all scheduling fields of an item at once.
	// Returns ErrItemNotFound if the item does not exist.
	UpdateScheduling(ctx context.Context, id uuid.UUID, state domain.SchedulingState) error

	// WithTx returns an ItemStore that uses the provided transaction.
	WithTx(tx *sql.Tx) ItemStore
}
