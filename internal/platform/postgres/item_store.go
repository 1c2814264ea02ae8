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

const itemColumns = `
	id, owner_id, pool_id, concept, question, reference_answer, question_type, level,
	box, stability, difficulty, due_at, last_outcome, last_reviewed_at,
	review_count, lapse_count, created_at, updated_at`

// PostgresItemStore implements the store.ItemStore interface
// using a PostgreSQL database as the storage backend.
type PostgresItemStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresItemStore creates a new PostgreSQL implementation of the ItemStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresItemStore(db store.DBTX, logger *slog.Logger) *PostgresItemStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresItemStore{
		db:     db,
		logger: logger.With(slog.String("component", "item_store")),
	}
}

// Ensure PostgresItemStore implements store.ItemStore interface
var _ store.ItemStore = (*PostgresItemStore)(nil)

// WithTx implements store.ItemStore.WithTx
func (s *PostgresItemStore) WithTx(tx *sql.Tx) store.ItemStore {
	return &PostgresItemStore{db: tx, logger: s.logger}
}

// CreateMultiple implements store.ItemStore.CreateMultiple
func (s *PostgresItemStore) CreateMultiple(ctx context.Context, items []*domain.Item) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(items) == 0 {
		return nil
	}

	for _, item := range items {
		if err := item.Validate(); err != nil {
			log.Warn("item validation failed during create",
				slog.String("error", err.Error()),
				slog.String("item_id", item.ID.String()))
			return err
		}
	}

	query := `
		INSERT INTO items (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	for _, item := range items {
		var lastReviewed sql.NullTime
		if item.LastReviewedAt != nil {
			lastReviewed = sql.NullTime{Time: *item.LastReviewedAt, Valid: true}
		}
		_, err := s.db.ExecContext(ctx, query,
			item.ID,
			item.OwnerID,
			item.PoolID,
			item.Concept,
			item.Question,
			item.ReferenceAnswer,
			item.QuestionType,
			item.Level,
			item.Box,
			item.Stability,
			item.Difficulty,
			item.DueAt,
			item.LastOutcome,
			lastReviewed,
			item.ReviewCount,
			item.LapseCount,
			item.CreatedAt,
			item.UpdatedAt,
		)
		if err != nil {
			if IsForeignKeyViolation(err) {
				log.Warn("pool not found while creating item",
					slog.String("pool_id", item.PoolID.String()))
				return fmt.Errorf("%w: %w", store.ErrInvalidEntity, store.ErrPoolNotFound)
			}
			log.Error("failed to create item",
				slog.String("error", err.Error()),
				slog.String("item_id", item.ID.String()))
			return MapError(err)
		}
	}

	log.Info("items created",
		slog.String("pool_id", items[0].PoolID.String()),
		slog.Int("count", len(items)))
	return nil
}

// GetByID implements store.ItemStore.GetByID
func (s *PostgresItemStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	return s.get(ctx, id, false)
}

// GetForUpdate implements store.ItemStore.GetForUpdate
func (s *PostgresItemStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	return s.get(ctx, id, true)
}

func (s *PostgresItemStore) get(ctx context.Context, id uuid.UUID, lock bool) (*domain.Item, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	item, err := scanItem(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("item not found", slog.String("item_id", id.String()))
			return nil, store.ErrItemNotFound
		}
		log.Error("failed to get item",
			slog.String("error", err.Error()),
			slog.String("item_id", id.String()),
			slog.Bool("for_update", lock))
		return nil, err
	}
	return item, nil
}

// GetByIDs implements store.ItemStore.GetByIDs
func (s *PostgresItemStore) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Item, error) {
	if len(ids) == 0 {
		return []*domain.Item{}, nil
	}
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = ANY($1::uuid[])`
	return s.query(ctx, "get items by IDs", query, uuidArray(ids))
}

// ListByPool implements store.ItemStore.ListByPool
func (s *PostgresItemStore) ListByPool(ctx context.Context, poolID uuid.UUID) ([]*domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE pool_id = $1 ORDER BY created_at, id`
	return s.query(ctx, "list items by pool", query, poolID)
}

// ListDue implements store.ItemStore.ListDue
func (s *PostgresItemStore) ListDue(
	ctx context.Context,
	poolID uuid.UUID,
	now time.Time,
	limit int,
) ([]*domain.Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM items
		WHERE pool_id = $1 AND due_at <= $2
		ORDER BY due_at, box, id
	`
	args := []any{poolID, now.UTC()}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}
	return s.query(ctx, "list due items", query, args...)
}

func (s *PostgresItemStore) query(ctx context.Context, op, query string, args ...any) ([]*domain.Item, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to "+op, slog.String("error", err.Error()))
		return nil, err
	}
	defer closeRows(rows, log)

	items := []*domain.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			log.Error("failed to scan item row", slog.String("error", err.Error()))
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning item rows", slog.String("error", err.Error()))
		return nil, err
	}

	log.Debug(op, slog.Int("count", len(items)))
	return items, nil
}

// ListConceptsWithItems implements store.ItemStore.ListConceptsWithItems
func (s *PostgresItemStore) ListConceptsWithItems(ctx context.Context, poolID uuid.UUID) ([]string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT concept FROM items WHERE pool_id = $1 ORDER BY concept`, poolID)
	if err != nil {
		log.Error("failed to list concepts with items",
			slog.String("error", err.Error()),
			slog.String("pool_id", poolID.String()))
		return nil, err
	}
	defer closeRows(rows, log)

	concepts := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		concepts = append(concepts, c)
	}
	return concepts, rows.Err()
}

// CountByBox implements store.ItemStore.CountByBox
// Every box from 1 to domain.MaxBox is present in the result.
func (s *PostgresItemStore) CountByBox(ctx context.Context, poolID uuid.UUID) (map[int]int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx,
		`SELECT box, COUNT(*) FROM items WHERE pool_id = $1 GROUP BY box`, poolID)
	if err != nil {
		log.Error("failed to count items by box",
			slog.String("error", err.Error()),
			slog.String("pool_id", poolID.String()))
		return nil, err
	}
	defer closeRows(rows, log)

	counts := make(map[int]int, domain.MaxBox)
	for box := 1; box <= domain.MaxBox; box++ {
		counts[box] = 0
	}
	for rows.Next() {
		var box, n int
		if err := rows.Scan(&box, &n); err != nil {
			return nil, err
		}
		counts[box] = n
	}
	return counts, rows.Err()
}

// CountDue implements store.ItemStore.CountDue
func (s *PostgresItemStore) CountDue(ctx context.Context, poolID uuid.UUID, now time.Time) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE pool_id = $1 AND due_at <= $2`, poolID, now.UTC()).Scan(&n)
	if err != nil {
		log.Error("failed to count due items",
			slog.String("error", err.Error()),
			slog.String("pool_id", poolID.String()))
		return 0, err
	}
	return n, nil
}

// UpdateScheduling implements store.ItemStore.UpdateScheduling
func (s *PostgresItemStore) UpdateScheduling(ctx context.Context, id uuid.UUID, state domain.SchedulingState) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if state.Box < 1 || state.Box > domain.MaxBox {
		return domain.ErrInvalidBox
	}

	var lastReviewed sql.NullTime
	if state.LastReviewedAt != nil {
		lastReviewed = sql.NullTime{Time: *state.LastReviewedAt, Valid: true}
	}

	query := `
		UPDATE items
		SET box = $1, stability = $2, difficulty = $3, due_at = $4, last_outcome = $5,
		    last_reviewed_at = $6, review_count = $7, lapse_count = $8, updated_at = $9
		WHERE id = $10
	`
	result, err := s.db.ExecContext(ctx, query,
		state.Box,
		state.Stability,
		state.Difficulty,
		state.DueAt.UTC(),
		state.LastOutcome,
		lastReviewed,
		state.ReviewCount,
		state.LapseCount,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		log.Error("failed to update item scheduling",
			slog.String("error", err.Error()),
			slog.String("item_id", id.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "item"); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrItemNotFound
		}
		return err
	}

	log.Debug("item scheduling updated",
		slog.String("item_id", id.String()),
		slog.Int("box", state.Box),
		slog.Time("due_at", state.DueAt))
	return nil
}

func scanItem(row rowScanner) (*domain.Item, error) {
	var item domain.Item
	var questionType, level, outcome string
	var lastReviewed sql.NullTime

	err := row.Scan(
		&item.ID,
		&item.OwnerID,
		&item.PoolID,
		&item.Concept,
		&item.Question,
		&item.ReferenceAnswer,
		&questionType,
		&level,
		&item.Box,
		&item.Stability,
		&item.Difficulty,
		&item.DueAt,
		&outcome,
		&lastReviewed,
		&item.ReviewCount,
		&item.LapseCount,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.QuestionType = domain.QuestionType(questionType)
	item.Level = domain.Level(level)
	item.LastOutcome = domain.Outcome(outcome)
	item.LastReviewedAt = timePtr(lastReviewed)
	item.DueAt = item.DueAt.UTC()
	return &item, nil
}
