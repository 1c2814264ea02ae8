package evaluation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/events"
	"github.com/phrazzld/recall-api/internal/generation"
	"github.com/phrazzld/recall-api/internal/service"
	"github.com/phrazzld/recall-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateSubmissionCommitsTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		answer      string
		wantVerdict domain.Verdict
		wantBox     int
		wantEvents  int
	}{
		{name: "correct answer promotes", answer: "right", wantVerdict: domain.VerdictCorrect, wantBox: 2, wantEvents: 0},
		{name: "incorrect answer resets", answer: "wrong", wantVerdict: domain.VerdictIncorrect, wantBox: 1, wantEvents: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, 1)
			ctx := context.Background()

			id, err := f.pipeline.Submit(ctx, f.owner, f.items[0].ID, f.sitting.ID, tt.answer)
			require.NoError(t, err)
			require.NoError(t, f.pipeline.EvaluateSubmission(ctx, id))

			sub := f.db.Submission(id)
			assert.Equal(t, domain.SubmissionStatusEvaluated, sub.Status)
			require.NotNil(t, sub.Verdict)
			assert.Equal(t, tt.wantVerdict, *sub.Verdict)
			require.NotNil(t, sub.Explanation)
			assert.NotEmpty(t, *sub.Explanation)
			assert.NotNil(t, sub.EvaluatedAt)
			assert.Equal(t, 1, sub.Attempts)

			item := f.db.Item(f.items[0].ID)
			assert.Equal(t, tt.wantBox, item.Box)
			assert.Equal(t, 1, item.ReviewCount)
			assert.Equal(t, domain.OutcomeFromVerdict(tt.wantVerdict), item.LastOutcome)
			assert.True(t, item.DueAt.After(f.items[0].DueAt))

			assert.Equal(t, 1, f.db.ReviewLogCount())

			emitted := f.emitter.emitted()
			require.Len(t, emitted, tt.wantEvents)
			if tt.wantEvents > 0 {
				assert.Equal(t, events.TypeAnswerIncorrect, emitted[0].Type)
				var payload events.AnswerIncorrectPayload
				require.NoError(t, emitted[0].UnmarshalPayload(&payload))
				assert.Equal(t, id, payload.SubmissionID)
				assert.Equal(t, f.items[0].ID, payload.ItemID)
				assert.Equal(t, f.owner, payload.OwnerID)
			}
		})
	}
}

func TestEvaluateSubmissionIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	ctx := context.Background()

	id := f.answer(t, 0, "right")
	require.NoError(t, f.pipeline.EvaluateSubmission(ctx, id))

	assert.Equal(t, 1, f.judge.Calls())
	assert.Equal(t, 1, f.db.ReviewLogCount())
	assert.Equal(t, 2, f.db.Item(f.items[0].ID).Box)
}

func TestEvaluateSubmissionRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	var mu sync.Mutex
	calls := 0
	f.judge.JudgeFn = func(context.Context, generation.JudgeRequest) (*generation.Judgment, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls < 3 {
			return nil, fmt.Errorf("%w: upstream timeout", generation.ErrTransientFailure)
		}
		return &generation.Judgment{Verdict: domain.VerdictCorrect, Explanation: "ok"}, nil
	}

	id := f.answer(t, 0, "right")

	sub := f.db.Submission(id)
	assert.Equal(t, domain.SubmissionStatusEvaluated, sub.Status)
	assert.Equal(t, 3, sub.Attempts)
	assert.Equal(t, 2, f.db.Item(f.items[0].ID).Box)
}

func TestEvaluateSubmissionMarksFailed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		judgment  *generation.Judgment
		err       error
		wantCalls int
	}{
		{
			name:      "transient failures exhaust attempts",
			err:       fmt.Errorf("%w: 503", generation.ErrTransientFailure),
			wantCalls: 3,
		},
		{
			name:      "permanent failure stops immediately",
			err:       fmt.Errorf("%w: safety", generation.ErrContentBlocked),
			wantCalls: 1,
		},
		{
			name:      "unusable verdict is retried",
			judgment:  &generation.Judgment{Verdict: "maybe"},
			wantCalls: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, 1)
			f.judge.JudgeFn = nil
			f.judge.Judgment = tt.judgment
			f.judge.Err = tt.err
			ctx := context.Background()

			id, err := f.pipeline.Submit(ctx, f.owner, f.items[0].ID, f.sitting.ID, "answer")
			require.NoError(t, err)

			err = f.pipeline.EvaluateSubmission(ctx, id)
			assert.ErrorIs(t, err, service.ErrJudgmentUnavailable)
			assert.Equal(t, tt.wantCalls, f.judge.Calls())

			sub := f.db.Submission(id)
			assert.Equal(t, domain.SubmissionStatusFailed, sub.Status)
			assert.Equal(t, tt.wantCalls, sub.Attempts)
			require.NotNil(t, sub.LastError)
			assert.Nil(t, sub.Verdict)

			// The item is untouched.
			item := f.db.Item(f.items[0].ID)
			assert.Equal(t, f.items[0].SchedulingState, item.SchedulingState)
			assert.Equal(t, 0, f.db.ReviewLogCount())
			assert.Empty(t, f.emitter.emitted())
		})
	}
}

func TestEvaluateSubmissionLeavesInterruptedWorkForRecovery(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.judge.JudgeFn = func(context.Context, generation.JudgeRequest) (*generation.Judgment, error) {
		cancel()
		return nil, fmt.Errorf("%w: interrupted", generation.ErrTransientFailure)
	}

	id, err := f.pipeline.Submit(context.Background(), f.owner, f.items[0].ID, f.sitting.ID, "answer")
	require.NoError(t, err)

	err = f.pipeline.EvaluateSubmission(ctx, id)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.SubmissionStatusEvaluating, f.db.Submission(id).Status)
	assert.Equal(t, 0, f.db.ReviewLogCount())
}

func TestEvaluateSubmissionSkipsMissingRows(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	ctx := context.Background()

	assert.NoError(t, f.pipeline.EvaluateSubmission(ctx, uuid.New()))

	id, err := f.pipeline.Submit(ctx, f.owner, f.items[0].ID, f.sitting.ID, "answer")
	require.NoError(t, err)
	f.db.DeleteItem(f.items[0].ID)

	assert.NoError(t, f.pipeline.EvaluateSubmission(ctx, id))
	assert.Equal(t, 0, f.judge.Calls())
}

func TestEvaluateSubmissionCommitFailureLeavesItemUntouched(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	f.db.FailOn("items.UpdateScheduling", errors.New("connection reset"))
	ctx := context.Background()

	id, err := f.pipeline.Submit(ctx, f.owner, f.items[0].ID, f.sitting.ID, "right")
	require.NoError(t, err)

	err = f.pipeline.EvaluateSubmission(ctx, id)
	require.Error(t, err)

	assert.NotEqual(t, domain.SubmissionStatusEvaluated, f.db.Submission(id).Status)
	assert.Equal(t, 1, f.db.Item(f.items[0].ID).Box)
	assert.Equal(t, 0, f.db.ReviewLogCount())
}

func TestCommitRejectedVerdictRowIsInconsistent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	ctx := context.Background()

	id, err := f.pipeline.Submit(ctx, f.owner, f.items[0].ID, f.sitting.ID, "right")
	require.NoError(t, err)

	// The store refuses an evaluated row whose verdict did not persist.
	f.db.FailOn("submissions.Update",
		fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrEvaluatedWithoutVerdict))

	err = f.pipeline.commit(ctx, id, domain.VerdictCorrect, "matches", 1)
	assert.ErrorIs(t, err, service.ErrInconsistentCommit)
	assert.ErrorIs(t, err, domain.ErrEvaluatedWithoutVerdict)
	assert.Equal(t, 0, f.db.ReviewLogCount())
}

func TestEvaluateSubmissionEmitFailureKeepsCommit(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	f.emitter.err = errors.New("bus down")

	id := f.answer(t, 0, "wrong")

	assert.Equal(t, domain.SubmissionStatusEvaluated, f.db.Submission(id).Status)
	assert.Equal(t, 1, f.db.ReviewLogCount())
}

func TestEvaluateSubmissionSerializesSameItem(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	ctx := context.Background()

	// A second sitting over the same item lets two answers to it be in flight.
	poolID := f.pool.ID
	other, err := domain.NewSitting(f.owner, &poolID, []domain.SittingItem{{ItemID: f.items[0].ID, PoolID: poolID}})
	require.NoError(t, err)
	require.NoError(t, other.Start())
	require.NoError(t, f.db.Sittings().Create(ctx, other))

	first, err := f.pipeline.Submit(ctx, f.owner, f.items[0].ID, f.sitting.ID, "right")
	require.NoError(t, err)
	second, err := f.pipeline.Submit(ctx, f.owner, f.items[0].ID, other.ID, "right")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, id := range []uuid.UUID{first, second} {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			assert.NoError(t, f.pipeline.EvaluateSubmission(ctx, id))
		}(id)
	}
	wg.Wait()

	item := f.db.Item(f.items[0].ID)
	assert.Equal(t, 2, item.ReviewCount)
	assert.Equal(t, 3, item.Box)
	assert.Equal(t, 2, f.db.ReviewLogCount())
	assert.Equal(t, 0, f.pipeline.locks.size())
}
