package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/phrazzld/recall-api/internal/store"
)

// PostgresPoolStore implements the store.PoolStore interface
// using a PostgreSQL database as the storage backend.
type PostgresPoolStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresPoolStore creates a new PostgreSQL implementation of the PoolStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresPoolStore(db store.DBTX, logger *slog.Logger) *PostgresPoolStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresPoolStore{
		db:     db,
		logger: logger.With(slog.String("component", "pool_store")),
	}
}

// Ensure PostgresPoolStore implements store.PoolStore interface
var _ store.PoolStore = (*PostgresPoolStore)(nil)

// WithTx implements store.PoolStore.WithTx
func (s *PostgresPoolStore) WithTx(tx *sql.Tx) store.PoolStore {
	return &PostgresPoolStore{db: tx, logger: s.logger}
}

// Create implements store.PoolStore.Create
func (s *PostgresPoolStore) Create(ctx context.Context, pool *domain.Pool) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := pool.Validate(); err != nil {
		log.Warn("pool validation failed during create",
			slog.String("error", err.Error()),
			slog.String("pool_id", pool.ID.String()))
		return err
	}

	query := `
		INSERT INTO pools (id, owner_id, title, status, spaced_repetition, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		pool.ID,
		pool.OwnerID,
		pool.Title,
		pool.Status,
		pool.SpacedRepetition,
		pool.CreatedAt,
		pool.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create pool",
			slog.String("error", err.Error()),
			slog.String("pool_id", pool.ID.String()))
		return MapError(err)
	}

	if err := s.insertConcepts(ctx, log, pool.Concepts); err != nil {
		return err
	}

	log.Info("pool created successfully",
		slog.String("pool_id", pool.ID.String()),
		slog.Int("concept_count", len(pool.Concepts)))
	return nil
}

func (s *PostgresPoolStore) insertConcepts(ctx context.Context, log *slog.Logger, concepts []domain.Concept) error {
	query := `
		INSERT INTO pool_concepts (id, pool_id, position, concept, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, c := range concepts {
		_, err := s.db.ExecContext(ctx, query, c.ID, c.PoolID, c.Position, c.Name, c.Content, c.CreatedAt)
		if err != nil {
			if IsForeignKeyViolation(err) {
				log.Debug("pool not found while adding concept",
					slog.String("pool_id", c.PoolID.String()))
				return store.ErrPoolNotFound
			}
			log.Error("failed to insert concept",
				slog.String("error", err.Error()),
				slog.String("pool_id", c.PoolID.String()),
				slog.Int("position", c.Position))
			return MapError(err)
		}
	}
	return nil
}

// GetByID implements store.PoolStore.GetByID
func (s *PostgresPoolStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Pool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, owner_id, title, status, spaced_repetition, created_at, updated_at
		FROM pools
		WHERE id = $1
	`
	pool, err := scanPool(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("pool not found", slog.String("pool_id", id.String()))
			return nil, store.ErrPoolNotFound
		}
		log.Error("failed to get pool by ID",
			slog.String("error", err.Error()),
			slog.String("pool_id", id.String()))
		return nil, err
	}

	concepts, err := s.listConcepts(ctx, log, id)
	if err != nil {
		return nil, err
	}
	pool.Concepts = concepts

	return pool, nil
}

func (s *PostgresPoolStore) listConcepts(ctx context.Context, log *slog.Logger, poolID uuid.UUID) ([]domain.Concept, error) {
	query := `
		SELECT id, pool_id, position, concept, content, created_at
		FROM pool_concepts
		WHERE pool_id = $1
		ORDER BY position
	`
	rows, err := s.db.QueryContext(ctx, query, poolID)
	if err != nil {
		log.Error("failed to query pool concepts",
			slog.String("error", err.Error()),
			slog.String("pool_id", poolID.String()))
		return nil, err
	}
	defer closeRows(rows, log)

	concepts := []domain.Concept{}
	for rows.Next() {
		var c domain.Concept
		if err := rows.Scan(&c.ID, &c.PoolID, &c.Position, &c.Name, &c.Content, &c.CreatedAt); err != nil {
			log.Error("failed to scan concept row", slog.String("error", err.Error()))
			return nil, err
		}
		concepts = append(concepts, c)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning concept rows", slog.String("error", err.Error()))
		return nil, err
	}
	return concepts, nil
}

// ListByOwner implements store.PoolStore.ListByOwner
func (s *PostgresPoolStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Pool, error) {
	return s.list(ctx, ownerID, false)
}

// ListSpacedRepetition implements store.PoolStore.ListSpacedRepetition
func (s *PostgresPoolStore) ListSpacedRepetition(ctx context.Context, ownerID uuid.UUID) ([]*domain.Pool, error) {
	return s.list(ctx, ownerID, true)
}

func (s *PostgresPoolStore) list(ctx context.Context, ownerID uuid.UUID, spacedOnly bool) ([]*domain.Pool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, owner_id, title, status, spaced_repetition, created_at, updated_at
		FROM pools
		WHERE owner_id = $1 AND ($2 = FALSE OR spaced_repetition)
		ORDER BY created_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, ownerID, spacedOnly)
	if err != nil {
		log.Error("failed to list pools",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()))
		return nil, err
	}
	defer closeRows(rows, log)

	pools := []*domain.Pool{}
	for rows.Next() {
		pool, err := scanPool(rows)
		if err != nil {
			log.Error("failed to scan pool row", slog.String("error", err.Error()))
			return nil, err
		}
		pools = append(pools, pool)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning pool rows", slog.String("error", err.Error()))
		return nil, err
	}

	log.Debug("listed pools",
		slog.String("owner_id", ownerID.String()),
		slog.Bool("spaced_only", spacedOnly),
		slog.Int("count", len(pools)))
	return pools, nil
}

// AddConcepts implements store.PoolStore.AddConcepts
func (s *PostgresPoolStore) AddConcepts(ctx context.Context, poolID uuid.UUID, concepts []domain.Concept) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	for _, c := range concepts {
		if c.PoolID != poolID {
			return fmt.Errorf("%w: concept %s belongs to another pool", store.ErrInvalidEntity, c.ID)
		}
	}

	if err := s.insertConcepts(ctx, log, concepts); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE pools SET updated_at = $1 WHERE id = $2`, time.Now().UTC(), poolID)
	if err != nil {
		log.Error("failed to touch pool", slog.String("error", err.Error()))
		return err
	}
	if err := CheckRowsAffected(result, "pool"); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrPoolNotFound
		}
		return err
	}

	log.Info("concepts added",
		slog.String("pool_id", poolID.String()),
		slog.Int("count", len(concepts)))
	return nil
}

// UpdateStatus implements store.PoolStore.UpdateStatus
func (s *PostgresPoolStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PoolStatus) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if status != domain.PoolStatusReady && status != domain.PoolStatusQuizzing {
		return domain.ErrInvalidStatus
	}

	query := `
		UPDATE pools
		SET status = $1, updated_at = $2
		WHERE id = $3
	`
	result, err := s.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update pool status",
			slog.String("error", err.Error()),
			slog.String("pool_id", id.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "pool"); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrPoolNotFound
		}
		return err
	}

	log.Debug("pool status updated",
		slog.String("pool_id", id.String()),
		slog.String("status", string(status)))
	return nil
}

// Delete implements store.PoolStore.Delete
func (s *PostgresPoolStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM pools WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete pool",
			slog.String("error", err.Error()),
			slog.String("pool_id", id.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "pool"); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrPoolNotFound
		}
		return err
	}

	log.Info("pool deleted", slog.String("pool_id", id.String()))
	return nil
}

func scanPool(row rowScanner) (*domain.Pool, error) {
	var pool domain.Pool
	var status string
	err := row.Scan(
		&pool.ID,
		&pool.OwnerID,
		&pool.Title,
		&status,
		&pool.SpacedRepetition,
		&pool.CreatedAt,
		&pool.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	pool.Status = domain.PoolStatus(status)
	return &pool, nil
}
