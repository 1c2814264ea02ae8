package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/phrazzld/recall-api/internal/store"
)

// PostgresReviewLogStore implements the store.ReviewLogStore interface
// using a PostgreSQL database as the storage backend.
type PostgresReviewLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReviewLogStore creates a new PostgreSQL implementation of the ReviewLogStore interface.
func NewPostgresReviewLogStore(db store.DBTX, logger *slog.Logger) *PostgresReviewLogStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresReviewLogStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_log_store")),
	}
}

// Ensure PostgresReviewLogStore implements store.ReviewLogStore interface
var _ store.ReviewLogStore = (*PostgresReviewLogStore)(nil)

// WithTx implements store.ReviewLogStore.WithTx
func (s *PostgresReviewLogStore) WithTx(tx *sql.Tx) store.ReviewLogStore {
	return &PostgresReviewLogStore{db: tx, logger: s.logger}
}

// Create implements store.ReviewLogStore.Create
func (s *PostgresReviewLogStore) Create(ctx context.Context, rl *domain.ReviewLog) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO review_logs (
			submission_id, item_id, verdict, box_before, box_after,
			stability_before, stability_after, difficulty_before, difficulty_after,
			due_at_after, committed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		rl.SubmissionID,
		rl.ItemID,
		rl.Verdict,
		rl.BoxBefore,
		rl.BoxAfter,
		rl.StabilityBefore,
		rl.StabilityAfter,
		rl.DifficultyBefore,
		rl.DifficultyAfter,
		rl.DueAtAfter,
		rl.CommittedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Info("review log already exists",
				slog.String("submission_id", rl.SubmissionID.String()))
			return MapUniqueViolation(err, reviewLogPrimaryKey, store.ErrReviewLogExists)
		}
		log.Error("failed to create review log",
			slog.String("error", err.Error()),
			slog.String("submission_id", rl.SubmissionID.String()))
		return MapError(err)
	}
	return nil
}

// Exists implements store.ReviewLogStore.Exists
func (s *PostgresReviewLogStore) Exists(ctx context.Context, submissionID uuid.UUID) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM review_logs WHERE submission_id = $1)`, submissionID).Scan(&exists)
	if err != nil {
		log.Error("failed to check review log",
			slog.String("error", err.Error()),
			slog.String("submission_id", submissionID.String()))
		return false, err
	}
	return exists, nil
}

// GetBySubmissions implements store.ReviewLogStore.GetBySubmissions
func (s *PostgresReviewLogStore) GetBySubmissions(
	ctx context.Context,
	submissionIDs []uuid.UUID,
) (map[uuid.UUID]*domain.ReviewLog, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	logs := make(map[uuid.UUID]*domain.ReviewLog, len(submissionIDs))
	if len(submissionIDs) == 0 {
		return logs, nil
	}

	query := `
		SELECT submission_id, item_id, verdict, box_before, box_after,
		       stability_before, stability_after, difficulty_before, difficulty_after,
		       due_at_after, committed_at
		FROM review_logs
		WHERE submission_id = ANY($1::uuid[])
	`
	rows, err := s.db.QueryContext(ctx, query, uuidArray(submissionIDs))
	if err != nil {
		log.Error("failed to query review logs", slog.String("error", err.Error()))
		return nil, err
	}
	defer closeRows(rows, log)

	for rows.Next() {
		var rl domain.ReviewLog
		var verdict string
		if err := rows.Scan(
			&rl.SubmissionID,
			&rl.ItemID,
			&verdict,
			&rl.BoxBefore,
			&rl.BoxAfter,
			&rl.StabilityBefore,
			&rl.StabilityAfter,
			&rl.DifficultyBefore,
			&rl.DifficultyAfter,
			&rl.DueAtAfter,
			&rl.CommittedAt,
		); err != nil {
			log.Error("failed to scan review log row", slog.String("error", err.Error()))
			return nil, err
		}
		rl.Verdict = domain.Verdict(verdict)
		logs[rl.SubmissionID] = &rl
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}
