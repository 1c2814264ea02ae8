package postgres_test

import (
	"database/sql"
	"database/sql/driver"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// newMockDB returns a sqlmock-backed connection that is closed with the test.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db, mock
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	itemRowColumns = []string{
		"id", "owner_id", "pool_id", "concept", "question", "reference_answer", "question_type", "level",
		"box", "stability", "difficulty", "due_at", "last_outcome", "last_reviewed_at",
		"review_count", "lapse_count", "created_at", "updated_at",
	}

	submissionRowColumns = []string{
		"id", "item_id", "sitting_id", "owner_id", "raw_answer", "status", "verdict", "explanation",
		"feedback", "attempts", "last_error", "evaluated_at", "created_at", "updated_at",
	}

	sittingRowColumns = []string{
		"id", "owner_id", "pool_id", "status", "cursor_pos", "acknowledged_at", "created_at", "updated_at",
	}
)

func itemRow(rows *sqlmock.Rows, id, poolID uuid.UUID, box int, dueAt time.Time) *sqlmock.Rows {
	return rows.AddRow(
		id.String(), uuid.New().String(), poolID.String(), "photosynthesis", "What is produced?", "glucose",
		"recall", "medium", box, 1.5, 5.0, dueAt, "none", nil, 0, 0, dueAt, dueAt,
	)
}

// toDriverArgs converts a mixed slice of values and matchers for WithArgs.
func toDriverArgs(args []any) []driver.Value {
	out := make([]driver.Value, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}
