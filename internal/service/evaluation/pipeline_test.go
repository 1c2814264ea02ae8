package evaluation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/domain/srs"
	"github.com/phrazzld/recall-api/internal/events"
	"github.com/phrazzld/recall-api/internal/generation"
	"github.com/phrazzld/recall-api/internal/mocks"
	"github.com/phrazzld/recall-api/internal/service"
	"github.com/phrazzld/recall-api/internal/store"
	"github.com/phrazzld/recall-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSubmitter records enqueued tasks without running them.
type recordingSubmitter struct {
	mu    sync.Mutex
	tasks []task.Task
}

func (s *recordingSubmitter) Submit(_ context.Context, t task.Task) error {
	s.Enqueue(t)
	return nil
}

func (s *recordingSubmitter) Enqueue(t task.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, t)
}

func (s *recordingSubmitter) enqueued() []task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]task.Task(nil), s.tasks...)
}

// recordingEmitter records emitted events.
type recordingEmitter struct {
	mu     sync.Mutex
	events []*events.TaskRequestEvent
	err    error
}

func (e *recordingEmitter) EmitEvent(_ context.Context, event *events.TaskRequestEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return e.err
}

func (e *recordingEmitter) emitted() []*events.TaskRequestEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*events.TaskRequestEvent(nil), e.events...)
}

type fixture struct {
	db        *mocks.MemoryDB
	tx        *mocks.MockTransactor
	judge     *mocks.MockJudge
	explainer *mocks.MockExplainer
	tasks     *task.MockTaskStore
	submitter *recordingSubmitter
	emitter   *recordingEmitter
	pipeline  *Pipeline

	owner   uuid.UUID
	pool    *domain.Pool
	items   []*domain.Item
	sitting *domain.Sitting
}

func testConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		AttemptTimeout: time.Second,
		ReconcileBatch: 10,
	}
}

// newFixture seeds one pool with itemCount items and an in-progress sitting
// over all of them. The judge answers "right" as correct and anything else
// as incorrect.
func newFixture(t *testing.T, itemCount int) *fixture {
	t.Helper()

	scheduler, err := srs.NewDefaultService()
	require.NoError(t, err)

	f := &fixture{
		db:        mocks.NewMemoryDB(),
		tx:        mocks.NewMockTransactor(),
		explainer: &mocks.MockExplainer{Text: "Think of it this way."},
		tasks:     task.NewMockTaskStore(),
		submitter: &recordingSubmitter{},
		emitter:   &recordingEmitter{},
		owner:     uuid.New(),
	}
	f.judge = &mocks.MockJudge{
		JudgeFn: func(_ context.Context, req generation.JudgeRequest) (*generation.Judgment, error) {
			if req.Answer == "right" {
				return &generation.Judgment{Verdict: domain.VerdictCorrect, Explanation: "matches"}, nil
			}
			return &generation.Judgment{Verdict: domain.VerdictIncorrect, Explanation: "misses the point"}, nil
		},
	}

	ctx := context.Background()
	names := make([]domain.Concept, itemCount)
	for i := range names {
		names[i] = domain.Concept{Name: fmt.Sprintf("concept %d", i), Content: fmt.Sprintf("content %d", i)}
	}
	f.pool, err = domain.NewPool(f.owner, "Biology", names, true)
	require.NoError(t, err)
	require.NoError(t, f.db.Pools().Create(ctx, f.pool))

	now := time.Now().UTC()
	entries := make([]domain.SittingItem, 0, itemCount)
	for i := 0; i < itemCount; i++ {
		item, err := domain.NewItem(f.owner, f.pool.ID, names[i].Name,
			"Question "+names[i].Name, "Answer "+names[i].Name,
			domain.QuestionTypeRecall, domain.LevelEasy, scheduler.InitialState(now))
		require.NoError(t, err)
		f.items = append(f.items, item)
		entries = append(entries, domain.SittingItem{ItemID: item.ID, PoolID: f.pool.ID})
	}
	require.NoError(t, f.db.Items().CreateMultiple(ctx, f.items))

	poolID := f.pool.ID
	f.sitting, err = domain.NewSitting(f.owner, &poolID, entries)
	require.NoError(t, err)
	require.NoError(t, f.sitting.Start())
	require.NoError(t, f.db.Sittings().Create(ctx, f.sitting))

	f.pipeline, err = NewPipeline(f.tx, f.stores(), f.judge, f.explainer, scheduler,
		f.submitter, f.emitter, testConfig(), nil)
	require.NoError(t, err)
	return f
}

func (f *fixture) stores() Stores {
	return Stores{
		Pools:       f.db.Pools(),
		Items:       f.db.Items(),
		Submissions: f.db.Submissions(),
		Sittings:    f.db.Sittings(),
		ReviewLogs:  f.db.ReviewLogs(),
		Tasks:       f.tasks,
	}
}

// setSittingStatus overwrites the stored status of the fixture sitting, the
// way the quiz controller does once every item is answered.
func (f *fixture) setSittingStatus(t *testing.T, status domain.SittingStatus) {
	t.Helper()
	s := f.db.Sitting(f.sitting.ID)
	s.Status = status
	s.Cursor = len(s.Items)
	require.NoError(t, f.db.Sittings().Update(context.Background(), s))
}

// answer submits and evaluates an answer for item i.
func (f *fixture) answer(t *testing.T, i int, text string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	id, err := f.pipeline.Submit(ctx, f.owner, f.items[i].ID, f.sitting.ID, text)
	require.NoError(t, err)
	_ = f.pipeline.EvaluateSubmission(ctx, id)
	return id
}

func TestNewPipelineValidatesDependencies(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	scheduler, err := srs.NewDefaultService()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Stores)
		build  func(Stores) (*Pipeline, error)
	}{
		{
			name:   "nil transactor",
			mutate: func(*Stores) {},
			build: func(s Stores) (*Pipeline, error) {
				return NewPipeline(nil, s, f.judge, f.explainer, scheduler, f.submitter, nil, Config{}, nil)
			},
		},
		{
			name:   "nil submission store",
			mutate: func(s *Stores) { s.Submissions = nil },
			build: func(s Stores) (*Pipeline, error) {
				return NewPipeline(f.tx, s, f.judge, f.explainer, scheduler, f.submitter, nil, Config{}, nil)
			},
		},
		{
			name:   "nil task store",
			mutate: func(s *Stores) { s.Tasks = nil },
			build: func(s Stores) (*Pipeline, error) {
				return NewPipeline(f.tx, s, f.judge, f.explainer, scheduler, f.submitter, nil, Config{}, nil)
			},
		},
		{
			name:   "nil judge",
			mutate: func(*Stores) {},
			build: func(s Stores) (*Pipeline, error) {
				return NewPipeline(f.tx, s, nil, f.explainer, scheduler, f.submitter, nil, Config{}, nil)
			},
		},
		{
			name:   "nil submitter",
			mutate: func(*Stores) {},
			build: func(s Stores) (*Pipeline, error) {
				return NewPipeline(f.tx, s, f.judge, f.explainer, scheduler, nil, nil, Config{}, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stores := f.stores()
			tt.mutate(&stores)
			p, err := tt.build(stores)
			assert.Nil(t, p)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestNewPipelineAppliesDefaults(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	scheduler, err := srs.NewDefaultService()
	require.NoError(t, err)

	p, err := NewPipeline(f.tx, f.stores(), f.judge, f.explainer, scheduler, f.submitter, nil, Config{}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().MaxAttempts, p.config.MaxAttempts)
	assert.Equal(t, DefaultConfig().AttemptTimeout, p.config.AttemptTimeout)
	assert.Equal(t, time.Duration(0), p.config.ReconcileInterval)
}

func TestSubmitStoresPendingAnswerAndSchedulesEvaluation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2)
	ctx := context.Background()

	id, err := f.pipeline.Submit(ctx, f.owner, f.items[0].ID, f.sitting.ID, "  right  ")
	require.NoError(t, err)

	sub := f.db.Submission(id)
	require.NotNil(t, sub)
	assert.Equal(t, domain.SubmissionStatusPending, sub.Status)
	assert.Equal(t, f.items[0].ID, sub.ItemID)
	assert.Equal(t, f.owner, sub.OwnerID)

	pending, err := f.tasks.GetPendingTasks(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, task.TaskTypeEvaluation, pending[0].Type)

	enqueued := f.submitter.enqueued()
	require.Len(t, enqueued, 1)
	assert.Equal(t, pending[0].ID, enqueued[0].ID())

	// Submission never waits for the judge.
	assert.Equal(t, 0, f.judge.Calls())
	assert.Equal(t, 1, f.tx.Transactions())
}

func TestSubmitRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(t *testing.T, f *fixture) (owner, item, sitting uuid.UUID, answer string)
		wantErr error
	}{
		{
			name: "blank answer",
			setup: func(t *testing.T, f *fixture) (uuid.UUID, uuid.UUID, uuid.UUID, string) {
				return f.owner, f.items[0].ID, f.sitting.ID, "   "
			},
			wantErr: domain.ErrSubmissionAnswerEmpty,
		},
		{
			name: "unknown sitting",
			setup: func(t *testing.T, f *fixture) (uuid.UUID, uuid.UUID, uuid.UUID, string) {
				return f.owner, f.items[0].ID, uuid.New(), "answer"
			},
			wantErr: service.ErrUnknownSitting,
		},
		{
			name: "sitting of another owner",
			setup: func(t *testing.T, f *fixture) (uuid.UUID, uuid.UUID, uuid.UUID, string) {
				return uuid.New(), f.items[0].ID, f.sitting.ID, "answer"
			},
			wantErr: service.ErrUnknownSitting,
		},
		{
			name: "item outside the sitting",
			setup: func(t *testing.T, f *fixture) (uuid.UUID, uuid.UUID, uuid.UUID, string) {
				return f.owner, uuid.New(), f.sitting.ID, "answer"
			},
			wantErr: service.ErrUnknownItem,
		},
		{
			name: "item already answered",
			setup: func(t *testing.T, f *fixture) (uuid.UUID, uuid.UUID, uuid.UUID, string) {
				_, err := f.pipeline.Submit(context.Background(), f.owner, f.items[0].ID, f.sitting.ID, "first")
				require.NoError(t, err)
				return f.owner, f.items[0].ID, f.sitting.ID, "second"
			},
			wantErr: service.ErrDuplicateSubmission,
		},
		{
			name: "abandoned sitting",
			setup: func(t *testing.T, f *fixture) (uuid.UUID, uuid.UUID, uuid.UUID, string) {
				s := f.db.Sitting(f.sitting.ID)
				require.NoError(t, s.Abandon())
				require.NoError(t, f.db.Sittings().Update(context.Background(), s))
				return f.owner, f.items[0].ID, f.sitting.ID, "answer"
			},
			wantErr: domain.ErrInvalidTransition,
		},
		{
			name: "sitting awaiting evaluation",
			setup: func(t *testing.T, f *fixture) (uuid.UUID, uuid.UUID, uuid.UUID, string) {
				s := f.db.Sitting(f.sitting.ID)
				s.Status = domain.SittingStatusAwaitingEvaluation
				require.NoError(t, f.db.Sittings().Update(context.Background(), s))
				return f.owner, f.items[0].ID, f.sitting.ID, "answer"
			},
			wantErr: domain.ErrInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, 2)
			owner, item, sitting, answer := tt.setup(t, f)

			id, err := f.pipeline.Submit(context.Background(), owner, item, sitting, answer)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, uuid.Nil, id)
		})
	}
}

func TestSubmitAllowsNewAnswerAfterFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	f.judge.JudgeFn = func(context.Context, generation.JudgeRequest) (*generation.Judgment, error) {
		return nil, generation.ErrContentBlocked
	}
	first := f.answer(t, 0, "first")
	require.Equal(t, domain.SubmissionStatusFailed, f.db.Submission(first).Status)

	second, err := f.pipeline.Submit(context.Background(), f.owner, f.items[0].ID, f.sitting.ID, "second")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestSubmitMapsStoreRace(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	f.db.FailOn("submissions.Create", store.ErrSubmissionExists)

	_, err := f.pipeline.Submit(context.Background(), f.owner, f.items[0].ID, f.sitting.ID, "answer")
	assert.ErrorIs(t, err, service.ErrDuplicateSubmission)
	assert.Empty(t, f.submitter.enqueued())
}
