package postgres_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/platform/postgres"
	"github.com/phrazzld/recall-api/internal/store"
	"github.com/stretchr/testify/assert"
)

// newPgError builds a driver error for a constraint the store does not name.
func newPgError(code string) *pgconn.PgError {
	return pgErrorOn(code, "test_constraint")
}

// pgErrorOn builds a driver error raised by the named constraint.
func pgErrorOn(code, constraint string) *pgconn.PgError {
	return &pgconn.PgError{
		Code:           code,
		Message:        "error message",
		SchemaName:     "public",
		TableName:      "submissions",
		ColumnName:     "verdict",
		ConstraintName: constraint,
	}
}

type mockResult struct {
	rowsAffected int64
	err          error
}

func (m mockResult) LastInsertId() (int64, error) { return 0, m.err }
func (m mockResult) RowsAffected() (int64, error) { return m.rowsAffected, m.err }

func TestMapError(t *testing.T) {
	t.Parallel()

	plain := errors.New("connection reset")

	tests := []struct {
		name     string
		err      error
		wantIs   []error
		wantSame bool
	}{
		{name: "nil", err: nil, wantSame: true},
		{name: "no rows", err: sql.ErrNoRows, wantIs: []error{store.ErrNotFound}},
		{name: "wrapped no rows", err: fmt.Errorf("scan: %w", sql.ErrNoRows), wantIs: []error{store.ErrNotFound}},
		{name: "not a driver error", err: plain, wantSame: true},
		{
			name:   "active submission index",
			err:    pgErrorOn("23505", "submissions_active_item_sitting_idx"),
			wantIs: []error{store.ErrDuplicate},
		},
		{
			name:   "item references missing concept",
			err:    pgErrorOn("23503", "items_concept_id_fkey"),
			wantIs: []error{store.ErrInvalidEntity},
		},
		{
			name:   "evaluated without verdict",
			err:    pgErrorOn("23514", "submissions_verdict_status_check"),
			wantIs: []error{store.ErrInvalidEntity, domain.ErrEvaluatedWithoutVerdict},
		},
		{
			name:   "other check constraint",
			err:    pgErrorOn("23514", "items_difficulty_check"),
			wantIs: []error{store.ErrInvalidEntity},
		},
		{name: "not null", err: newPgError("23502"), wantIs: []error{store.ErrInvalidEntity}},
		{name: "unmapped code", err: newPgError("42P01"), wantSame: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := postgres.MapError(tt.err)
			if tt.wantSame {
				assert.Equal(t, tt.err, got)
				return
			}
			for _, want := range tt.wantIs {
				assert.ErrorIs(t, got, want)
			}
		})
	}

	t.Run("only the verdict check carries the domain error", func(t *testing.T) {
		t.Parallel()

		got := postgres.MapError(pgErrorOn("23514", "items_difficulty_check"))
		assert.NotErrorIs(t, got, domain.ErrEvaluatedWithoutVerdict)
	})
}

func TestViolationPredicates(t *testing.T) {
	t.Parallel()

	unique := pgErrorOn("23505", "review_logs_pkey")
	fk := pgErrorOn("23503", "submissions_item_id_fkey")
	wrapped := fmt.Errorf("insert: %w", unique)

	assert.True(t, postgres.IsUniqueViolation(unique))
	assert.True(t, postgres.IsUniqueViolation(wrapped))
	assert.False(t, postgres.IsUniqueViolation(fk))
	assert.False(t, postgres.IsUniqueViolation(errors.New("duplicate")))
	assert.False(t, postgres.IsUniqueViolation(nil))

	assert.True(t, postgres.IsForeignKeyViolation(fk))
	assert.False(t, postgres.IsForeignKeyViolation(unique))
	assert.False(t, postgres.IsForeignKeyViolation(nil))
}

func TestMapUniqueViolation(t *testing.T) {
	t.Parallel()

	const index = "submissions_active_item_sitting_idx"

	tests := []struct {
		name    string
		err     error
		want    error
		notWant error
	}{
		{
			name: "named constraint maps to the sentinel",
			err:  pgErrorOn("23505", index),
			want: store.ErrSubmissionExists,
		},
		{
			name:    "another unique constraint is only a duplicate",
			err:     pgErrorOn("23505", "submissions_pkey"),
			want:    store.ErrDuplicate,
			notWant: store.ErrSubmissionExists,
		},
		{
			name:    "other violations use the general mapping",
			err:     pgErrorOn("23503", "submissions_sitting_id_fkey"),
			want:    store.ErrInvalidEntity,
			notWant: store.ErrSubmissionExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := postgres.MapUniqueViolation(tt.err, index, store.ErrSubmissionExists)
			assert.ErrorIs(t, got, tt.want)
			if tt.notWant != nil {
				assert.NotErrorIs(t, got, tt.notWant)
			}
		})
	}

	t.Run("sentinel still reads as a duplicate", func(t *testing.T) {
		t.Parallel()

		got := postgres.MapUniqueViolation(pgErrorOn("23505", index), index, store.ErrSubmissionExists)
		assert.True(t, store.IsDuplicateError(got))
		assert.Contains(t, got.Error(), index)
	})
}

func TestCheckRowsAffected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		result  sql.Result
		entity  string
		wantErr error
		message string
	}{
		{name: "one row", result: mockResult{rowsAffected: 1}},
		{name: "no rows", result: mockResult{}, entity: "sitting", wantErr: store.ErrNotFound, message: "sitting not found"},
		{name: "no rows unnamed", result: mockResult{}, wantErr: store.ErrNotFound},
		{name: "driver failure", result: mockResult{err: errors.New("boom")}, entity: "pool", message: "rows affected"},
		{name: "nil result", result: nil, message: "nil result"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := postgres.CheckRowsAffected(tt.result, tt.entity)
			if tt.wantErr == nil && tt.message == "" {
				assert.NoError(t, err)
				return
			}
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}
		})
	}
}
