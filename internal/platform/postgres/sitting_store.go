package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/phrazzld/recall-api/internal/store"
)

const sittingColumns = `id, owner_id, pool_id, status, cursor_pos, acknowledged_at, created_at, updated_at`

// PostgresSittingStore implements the store.SittingStore interface
// using a PostgreSQL database as the storage backend.
type PostgresSittingStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSittingStore creates a new PostgreSQL implementation of the SittingStore interface.
func NewPostgresSittingStore(db store.DBTX, logger *slog.Logger) *PostgresSittingStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSittingStore{
		db:     db,
		logger: logger.With(slog.String("component", "sitting_store")),
	}
}

// Ensure PostgresSittingStore implements store.SittingStore interface
var _ store.SittingStore = (*PostgresSittingStore)(nil)

// WithTx implements store.SittingStore.WithTx
func (s *PostgresSittingStore) WithTx(tx *sql.Tx) store.SittingStore {
	return &PostgresSittingStore{db: tx, logger: s.logger}
}

// Create implements store.SittingStore.Create
func (s *PostgresSittingStore) Create(ctx context.Context, sitting *domain.Sitting) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if sitting.ID == uuid.Nil {
		return domain.ErrSittingIDEmpty
	}
	if len(sitting.Items) == 0 {
		return domain.ErrSittingEmpty
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sittings (`+sittingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		sitting.ID,
		sitting.OwnerID,
		sitting.PoolID,
		sitting.Status,
		sitting.Cursor,
		nullTime(sitting.AcknowledgedAt),
		sitting.CreatedAt,
		sitting.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create sitting",
			slog.String("error", err.Error()),
			slog.String("sitting_id", sitting.ID.String()))
		return MapError(err)
	}

	stmt, err := s.db.PrepareContext(ctx, `
		INSERT INTO sitting_items (sitting_id, position, item_id, pool_id)
		VALUES ($1, $2, $3, $4)
	`)
	if err != nil {
		log.Error("failed to prepare sitting item insert", slog.String("error", err.Error()))
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			log.Error("failed to close statement", slog.String("error", cerr.Error()))
		}
	}()

	for _, it := range sitting.Items {
		if _, err := stmt.ExecContext(ctx, sitting.ID, it.Position, it.ItemID, it.PoolID); err != nil {
			log.Error("failed to insert sitting item",
				slog.String("error", err.Error()),
				slog.String("sitting_id", sitting.ID.String()),
				slog.String("item_id", it.ItemID.String()))
			return MapError(err)
		}
	}

	log.Info("sitting created",
		slog.String("sitting_id", sitting.ID.String()),
		slog.Bool("global", sitting.IsGlobal()),
		slog.Int("item_count", len(sitting.Items)))
	return nil
}

// GetByID implements store.SittingStore.GetByID
func (s *PostgresSittingStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Sitting, error) {
	return s.get(ctx, `SELECT `+sittingColumns+` FROM sittings WHERE id = $1`, id)
}

// GetForUpdate implements store.SittingStore.GetForUpdate
func (s *PostgresSittingStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Sitting, error) {
	return s.get(ctx, `SELECT `+sittingColumns+` FROM sittings WHERE id = $1 FOR UPDATE`, id)
}

// FindLatest implements store.SittingStore.FindLatest
func (s *PostgresSittingStore) FindLatest(
	ctx context.Context,
	ownerID uuid.UUID,
	poolID *uuid.UUID,
	openOnly bool,
) (*domain.Sitting, error) {
	query := `SELECT ` + sittingColumns + ` FROM sittings WHERE owner_id = $1`
	args := []any{ownerID}

	if poolID == nil {
		query += ` AND pool_id IS NULL`
	} else {
		query += ` AND pool_id = $2`
		args = append(args, *poolID)
	}
	if openOnly {
		query += ` AND status IN ('in_progress', 'awaiting_evaluation')`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT 1`

	return s.get(ctx, query, args...)
}

func (s *PostgresSittingStore) get(ctx context.Context, query string, args ...any) (*domain.Sitting, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	sitting, err := scanSitting(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSittingNotFound
		}
		log.Error("failed to get sitting", slog.String("error", err.Error()))
		return nil, err
	}

	items, err := s.items(ctx, sitting.ID)
	if err != nil {
		return nil, err
	}
	sitting.Items = items
	return sitting, nil
}

func (s *PostgresSittingStore) items(ctx context.Context, sittingID uuid.UUID) ([]domain.SittingItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT position, item_id, pool_id
		FROM sitting_items
		WHERE sitting_id = $1
		ORDER BY position
	`, sittingID)
	if err != nil {
		log.Error("failed to query sitting items",
			slog.String("error", err.Error()),
			slog.String("sitting_id", sittingID.String()))
		return nil, err
	}
	defer closeRows(rows, log)

	items := []domain.SittingItem{}
	for rows.Next() {
		var it domain.SittingItem
		if err := rows.Scan(&it.Position, &it.ItemID, &it.PoolID); err != nil {
			log.Error("failed to scan sitting item", slog.String("error", err.Error()))
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Update implements store.SittingStore.Update
func (s *PostgresSittingStore) Update(ctx context.Context, sitting *domain.Sitting) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		UPDATE sittings
		SET status = $1, cursor_pos = $2, acknowledged_at = $3, updated_at = $4
		WHERE id = $5
	`,
		sitting.Status,
		sitting.Cursor,
		nullTime(sitting.AcknowledgedAt),
		sitting.UpdatedAt,
		sitting.ID,
	)
	if err != nil {
		log.Error("failed to update sitting",
			slog.String("error", err.Error()),
			slog.String("sitting_id", sitting.ID.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "sitting"); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrSittingNotFound
		}
		return err
	}

	log.Debug("sitting updated",
		slog.String("sitting_id", sitting.ID.String()),
		slog.String("status", string(sitting.Status)),
		slog.Int("cursor", sitting.Cursor))
	return nil
}

func scanSitting(row rowScanner) (*domain.Sitting, error) {
	var sitting domain.Sitting
	var poolID uuid.NullUUID
	var status string
	var acknowledgedAt sql.NullTime

	if err := row.Scan(
		&sitting.ID,
		&sitting.OwnerID,
		&poolID,
		&status,
		&sitting.Cursor,
		&acknowledgedAt,
		&sitting.CreatedAt,
		&sitting.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if poolID.Valid {
		id := poolID.UUID
		sitting.PoolID = &id
	}
	sitting.Status = domain.SittingStatus(status)
	sitting.AcknowledgedAt = timePtr(acknowledgedAt)
	return &sitting, nil
}
