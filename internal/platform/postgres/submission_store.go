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

const submissionColumns = `
	id, item_id, sitting_id, owner_id, raw_answer, status, verdict, explanation,
	feedback, attempts, last_error, evaluated_at, created_at, updated_at`

// PostgresSubmissionStore implements the store.SubmissionStore interface
// using a PostgreSQL database as the storage backend.
type PostgresSubmissionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSubmissionStore creates a new PostgreSQL implementation of the SubmissionStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresSubmissionStore(db store.DBTX, logger *slog.Logger) *PostgresSubmissionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSubmissionStore{
		db:     db,
		logger: logger.With(slog.String("component", "submission_store")),
	}
}

// Ensure PostgresSubmissionStore implements store.SubmissionStore interface
var _ store.SubmissionStore = (*PostgresSubmissionStore)(nil)

// WithTx implements store.SubmissionStore.WithTx
func (s *PostgresSubmissionStore) WithTx(tx *sql.Tx) store.SubmissionStore {
	return &PostgresSubmissionStore{db: tx, logger: s.logger}
}

// Create implements store.SubmissionStore.Create
// Returns store.ErrSubmissionExists when a live submission for the same item
// and sitting exists, and store.ErrInvalidEntity when the item or sitting is missing.
func (s *PostgresSubmissionStore) Create(ctx context.Context, sub *domain.Submission) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := sub.Validate(); err != nil {
		log.Warn("submission validation failed during create",
			slog.String("error", err.Error()),
			slog.String("submission_id", sub.ID.String()))
		return err
	}

	query := `
		INSERT INTO submissions (` + submissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.db.ExecContext(ctx, query, submissionArgs(sub)...)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Info("duplicate submission rejected",
				slog.String("item_id", sub.ItemID.String()),
				slog.String("sitting_id", sub.SittingID.String()))
			return MapUniqueViolation(err, activeSubmissionIndex, store.ErrSubmissionExists)
		}
		log.Error("failed to create submission",
			slog.String("error", err.Error()),
			slog.String("submission_id", sub.ID.String()))
		return MapError(err)
	}

	log.Info("submission created",
		slog.String("submission_id", sub.ID.String()),
		slog.String("item_id", sub.ItemID.String()),
		slog.String("sitting_id", sub.SittingID.String()))
	return nil
}

// GetByID implements store.SubmissionStore.GetByID
func (s *PostgresSubmissionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Submission, error) {
	return s.getOne(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id)
}

// GetForUpdate implements store.SubmissionStore.GetForUpdate
func (s *PostgresSubmissionStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Submission, error) {
	return s.getOne(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1 FOR UPDATE`, id)
}

// FindActive implements store.SubmissionStore.FindActive
func (s *PostgresSubmissionStore) FindActive(
	ctx context.Context,
	itemID, sittingID uuid.UUID,
) (*domain.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE item_id = $1 AND sitting_id = $2 AND status <> 'failed'
	`
	return s.getOne(ctx, query, itemID, sittingID)
}

func (s *PostgresSubmissionStore) getOne(ctx context.Context, query string, args ...any) (*domain.Submission, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	sub, err := scanSubmission(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSubmissionNotFound
		}
		log.Error("failed to get submission", slog.String("error", err.Error()))
		return nil, err
	}
	return sub, nil
}

// ListBySitting implements store.SubmissionStore.ListBySitting
func (s *PostgresSubmissionStore) ListBySitting(ctx context.Context, sittingID uuid.UUID) ([]*domain.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE sitting_id = $1
		ORDER BY created_at, id
	`
	return s.query(ctx, query, sittingID)
}

// ListEvaluatedWithoutLog implements store.SubmissionStore.ListEvaluatedWithoutLog
func (s *PostgresSubmissionStore) ListEvaluatedWithoutLog(ctx context.Context, limit int) ([]*domain.Submission, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT s.id, s.item_id, s.sitting_id, s.owner_id, s.raw_answer, s.status, s.verdict,
		       s.explanation, s.feedback, s.attempts, s.last_error, s.evaluated_at,
		       s.created_at, s.updated_at
		FROM submissions s
		LEFT JOIN review_logs r ON r.submission_id = s.id
		WHERE s.status = 'evaluated' AND r.submission_id IS NULL
		ORDER BY s.evaluated_at, s.created_at, s.id
		LIMIT $1
	`
	return s.query(ctx, query, limit)
}

func (s *PostgresSubmissionStore) query(ctx context.Context, query string, args ...any) ([]*domain.Submission, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query submissions", slog.String("error", err.Error()))
		return nil, err
	}
	defer closeRows(rows, log)

	subs := []*domain.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			log.Error("failed to scan submission row", slog.String("error", err.Error()))
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning submission rows", slog.String("error", err.Error()))
		return nil, err
	}
	return subs, nil
}

// Update implements store.SubmissionStore.Update
func (s *PostgresSubmissionStore) Update(ctx context.Context, sub *domain.Submission) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := sub.Validate(); err != nil {
		log.Warn("submission validation failed during update",
			slog.String("error", err.Error()),
			slog.String("submission_id", sub.ID.String()))
		return err
	}

	query := `
		UPDATE submissions
		SET status = $1, verdict = $2, explanation = $3, feedback = $4, attempts = $5,
		    last_error = $6, evaluated_at = $7, updated_at = $8
		WHERE id = $9
	`
	result, err := s.db.ExecContext(ctx, query,
		sub.Status,
		nullVerdict(sub.Verdict),
		nullString(sub.Explanation),
		nullString(sub.Feedback),
		sub.Attempts,
		nullString(sub.LastError),
		nullTime(sub.EvaluatedAt),
		sub.UpdatedAt,
		sub.ID,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return MapUniqueViolation(err, activeSubmissionIndex, store.ErrSubmissionExists)
		}
		log.Error("failed to update submission",
			slog.String("error", err.Error()),
			slog.String("submission_id", sub.ID.String()),
			slog.String("status", string(sub.Status)))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "submission"); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrSubmissionNotFound
		}
		return err
	}

	log.Debug("submission updated",
		slog.String("submission_id", sub.ID.String()),
		slog.String("status", string(sub.Status)))
	return nil
}

// SetFeedback implements store.SubmissionStore.SetFeedback
func (s *PostgresSubmissionStore) SetFeedback(ctx context.Context, id uuid.UUID, feedback string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`UPDATE submissions SET feedback = $1, updated_at = $2 WHERE id = $3`,
		feedback, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to set submission feedback",
			slog.String("error", err.Error()),
			slog.String("submission_id", id.String()))
		return err
	}
	if err := CheckRowsAffected(result, "submission"); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrSubmissionNotFound
		}
		return err
	}
	return nil
}

func submissionArgs(sub *domain.Submission) []any {
	return []any{
		sub.ID,
		sub.ItemID,
		sub.SittingID,
		sub.OwnerID,
		sub.RawAnswer,
		sub.Status,
		nullVerdict(sub.Verdict),
		nullString(sub.Explanation),
		nullString(sub.Feedback),
		sub.Attempts,
		nullString(sub.LastError),
		nullTime(sub.EvaluatedAt),
		sub.CreatedAt,
		sub.UpdatedAt,
	}
}

func nullVerdict(v *domain.Verdict) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*v), Valid: true}
}

func scanSubmission(row rowScanner) (*domain.Submission, error) {
	var sub domain.Submission
	var status string
	var verdict, explanation, feedback, lastError sql.NullString
	var evaluatedAt sql.NullTime

	err := row.Scan(
		&sub.ID,
		&sub.ItemID,
		&sub.SittingID,
		&sub.OwnerID,
		&sub.RawAnswer,
		&status,
		&verdict,
		&explanation,
		&feedback,
		&sub.Attempts,
		&lastError,
		&evaluatedAt,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sub.Status = domain.SubmissionStatus(status)
	if verdict.Valid {
		v := domain.Verdict(verdict.String)
		sub.Verdict = &v
	}
	sub.Explanation = stringPtr(explanation)
	sub.Feedback = stringPtr(feedback)
	sub.LastError = stringPtr(lastError)
	sub.EvaluatedAt = timePtr(evaluatedAt)

	// The CHECK constraint makes this unreachable unless the schema drifts.
	if sub.Status == domain.SubmissionStatusEvaluated && sub.Verdict == nil {
		return nil, fmt.Errorf("%w: submission %s", domain.ErrEvaluatedWithoutVerdict, sub.ID)
	}
	return &sub, nil
}
