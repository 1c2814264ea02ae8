package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/store"
)

// SQLSTATE codes translated by MapError.
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
	notNullViolationCode    = "23502"
)

// Constraints whose violation means more than a malformed row.
const (
	// activeSubmissionIndex allows one non-failed submission per item and sitting.
	activeSubmissionIndex = "submissions_active_item_sitting_idx"

	// reviewLogPrimaryKey makes the scheduler commit of a submission happen once.
	reviewLogPrimaryKey = "review_logs_pkey"

	// verdictStatusCheck ties the evaluated status to a non-null verdict.
	verdictStatusCheck = "submissions_verdict_status_check"
)

// MapError translates a driver error into the store sentinels. Errors with no
// mapping are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case uniqueViolationCode:
		return fmt.Errorf("%w: %s: %v", store.ErrDuplicate, pgErr.ConstraintName, err)
	case foreignKeyViolationCode:
		return fmt.Errorf("%w: foreign key violation (%s): %v", store.ErrInvalidEntity, pgErr.ConstraintName, err)
	case checkViolationCode:
		if pgErr.ConstraintName == verdictStatusCheck {
			return fmt.Errorf("%w: %w: %v", store.ErrInvalidEntity, domain.ErrEvaluatedWithoutVerdict, err)
		}
		return fmt.Errorf("%w: check constraint violation (%s): %v", store.ErrInvalidEntity, pgErr.ConstraintName, err)
	case notNullViolationCode:
		return fmt.Errorf("%w: not null violation (%s): %v", store.ErrInvalidEntity, pgErr.ColumnName, err)
	}
	return err
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode
}

// MapUniqueViolation wraps a unique violation of constraint in sentinel, which
// should itself wrap store.ErrDuplicate. Violations of any other constraint
// fall through to MapError.
func MapUniqueViolation(err error, constraint string, sentinel error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode || pgErr.ConstraintName != constraint {
		return MapError(err)
	}
	return fmt.Errorf("%w: %s: %v", sentinel, constraint, err)
}

// CheckRowsAffected returns an error wrapping store.ErrNotFound when an
// UPDATE or DELETE touched no row.
func CheckRowsAffected(result sql.Result, entityName string) error {
	if result == nil {
		return errors.New("nil result provided to CheckRowsAffected")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		if entityName == "" {
			return store.ErrNotFound
		}
		return fmt.Errorf("%w: %s not found", store.ErrNotFound, entityName)
	}
	return nil
}
