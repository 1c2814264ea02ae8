package api

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/service"
	"github.com/phrazzld/recall-api/internal/service/dueset"
	"github.com/phrazzld/recall-api/internal/service/evaluation"
	"github.com/phrazzld/recall-api/internal/service/quiz"
)

// mockPoolService implements service.PoolService with function fields.
type mockPoolService struct {
	CreatePoolFn      func(ctx context.Context, ownerID uuid.UUID, title string, concepts []domain.Concept, spaced bool) (*domain.Pool, error)
	ListPoolsFn       func(ctx context.Context, ownerID uuid.UUID) ([]*domain.Pool, error)
	GetPoolFn         func(ctx context.Context, ownerID, poolID uuid.UUID) (*domain.Pool, error)
	DeletePoolFn      func(ctx context.Context, ownerID, poolID uuid.UUID) error
	AddConceptsFn     func(ctx context.Context, ownerID, poolID uuid.UUID, concepts []domain.Concept) (*domain.Pool, error)
	ListItemsFn       func(ctx context.Context, ownerID, poolID uuid.UUID) ([]*domain.Item, error)
	GenerateFn        func(ctx context.Context, ownerID, poolID uuid.UUID) ([]*domain.Item, error)
	GenerateMissingFn func(ctx context.Context, ownerID, poolID uuid.UUID) ([]*domain.Item, error)
}

var _ service.PoolService = (*mockPoolService)(nil)

func (m *mockPoolService) CreatePool(
	ctx context.Context,
	ownerID uuid.UUID,
	title string,
	concepts []domain.Concept,
	spaced bool,
) (*domain.Pool, error) {
	return m.CreatePoolFn(ctx, ownerID, title, concepts, spaced)
}

func (m *mockPoolService) ListPools(ctx context.Context, ownerID uuid.UUID) ([]*domain.Pool, error) {
	return m.ListPoolsFn(ctx, ownerID)
}

func (m *mockPoolService) GetPool(ctx context.Context, ownerID, poolID uuid.UUID) (*domain.Pool, error) {
	return m.GetPoolFn(ctx, ownerID, poolID)
}

func (m *mockPoolService) DeletePool(ctx context.Context, ownerID, poolID uuid.UUID) error {
	return m.DeletePoolFn(ctx, ownerID, poolID)
}

func (m *mockPoolService) AddConcepts(
	ctx context.Context,
	ownerID, poolID uuid.UUID,
	concepts []domain.Concept,
) (*domain.Pool, error) {
	return m.AddConceptsFn(ctx, ownerID, poolID, concepts)
}

func (m *mockPoolService) ListItems(ctx context.Context, ownerID, poolID uuid.UUID) ([]*domain.Item, error) {
	return m.ListItemsFn(ctx, ownerID, poolID)
}

func (m *mockPoolService) Generate(ctx context.Context, ownerID, poolID uuid.UUID) ([]*domain.Item, error) {
	return m.GenerateFn(ctx, ownerID, poolID)
}

func (m *mockPoolService) GenerateMissing(ctx context.Context, ownerID, poolID uuid.UUID) ([]*domain.Item, error) {
	return m.GenerateMissingFn(ctx, ownerID, poolID)
}

// mockDueService implements dueset.Service with function fields.
type mockDueService struct {
	DuePerPoolFn func(ctx context.Context, ownerID, poolID uuid.UUID) ([]*domain.Item, error)
	DueGlobalFn  func(ctx context.Context, ownerID uuid.UUID) ([]domain.ItemWithOrigin, error)
	PoolStatsFn  func(ctx context.Context, ownerID, poolID uuid.UUID) (*dueset.Stats, error)
	DashboardFn  func(ctx context.Context, ownerID uuid.UUID) (*dueset.Dashboard, error)
}

var _ dueset.Service = (*mockDueService)(nil)

func (m *mockDueService) DuePerPool(ctx context.Context, ownerID, poolID uuid.UUID) ([]*domain.Item, error) {
	return m.DuePerPoolFn(ctx, ownerID, poolID)
}

func (m *mockDueService) DueGlobal(ctx context.Context, ownerID uuid.UUID) ([]domain.ItemWithOrigin, error) {
	return m.DueGlobalFn(ctx, ownerID)
}

func (m *mockDueService) PoolStats(ctx context.Context, ownerID, poolID uuid.UUID) (*dueset.Stats, error) {
	return m.PoolStatsFn(ctx, ownerID, poolID)
}

func (m *mockDueService) Dashboard(ctx context.Context, ownerID uuid.UUID) (*dueset.Dashboard, error) {
	return m.DashboardFn(ctx, ownerID)
}

// mockQuizService implements quiz.Service with function fields.
type mockQuizService struct {
	CreateFn                func(ctx context.Context, ownerID uuid.UUID, poolID *uuid.UUID) (*quiz.View, error)
	ResumeFn                func(ctx context.Context, ownerID, sittingID uuid.UUID) (*quiz.View, error)
	ResumeOrCreateForPoolFn func(ctx context.Context, ownerID, poolID uuid.UUID) (*quiz.View, error)
	SubmitCurrentFn         func(ctx context.Context, ownerID, sittingID uuid.UUID, answer string) (uuid.UUID, *quiz.View, error)
	SubmitItemFn            func(ctx context.Context, ownerID, sittingID, itemID uuid.UUID, answer string) (uuid.UUID, *quiz.View, error)
	CompleteFn              func(ctx context.Context, ownerID, sittingID uuid.UUID) (*evaluation.Results, error)
	AbandonFn               func(ctx context.Context, ownerID, sittingID uuid.UUID) (*quiz.View, error)
	AcknowledgeFn           func(ctx context.Context, ownerID, sittingID uuid.UUID) (*quiz.View, error)
	LatestFn                func(ctx context.Context, ownerID uuid.UUID, poolID *uuid.UUID) (*domain.Sitting, error)
}

var _ quiz.Service = (*mockQuizService)(nil)

func (m *mockQuizService) Create(ctx context.Context, ownerID uuid.UUID, poolID *uuid.UUID) (*quiz.View, error) {
	return m.CreateFn(ctx, ownerID, poolID)
}

func (m *mockQuizService) Resume(ctx context.Context, ownerID, sittingID uuid.UUID) (*quiz.View, error) {
	return m.ResumeFn(ctx, ownerID, sittingID)
}

func (m *mockQuizService) ResumeOrCreateForPool(ctx context.Context, ownerID, poolID uuid.UUID) (*quiz.View, error) {
	return m.ResumeOrCreateForPoolFn(ctx, ownerID, poolID)
}

func (m *mockQuizService) SubmitCurrent(
	ctx context.Context,
	ownerID, sittingID uuid.UUID,
	answer string,
) (uuid.UUID, *quiz.View, error) {
	return m.SubmitCurrentFn(ctx, ownerID, sittingID, answer)
}

func (m *mockQuizService) SubmitItem(
	ctx context.Context,
	ownerID, sittingID, itemID uuid.UUID,
	answer string,
) (uuid.UUID, *quiz.View, error) {
	return m.SubmitItemFn(ctx, ownerID, sittingID, itemID, answer)
}

func (m *mockQuizService) Complete(ctx context.Context, ownerID, sittingID uuid.UUID) (*evaluation.Results, error) {
	return m.CompleteFn(ctx, ownerID, sittingID)
}

func (m *mockQuizService) Abandon(ctx context.Context, ownerID, sittingID uuid.UUID) (*quiz.View, error) {
	return m.AbandonFn(ctx, ownerID, sittingID)
}

func (m *mockQuizService) Acknowledge(ctx context.Context, ownerID, sittingID uuid.UUID) (*quiz.View, error) {
	return m.AcknowledgeFn(ctx, ownerID, sittingID)
}

func (m *mockQuizService) Latest(ctx context.Context, ownerID uuid.UUID, poolID *uuid.UUID) (*domain.Sitting, error) {
	return m.LatestFn(ctx, ownerID, poolID)
}

// mockEvaluationService implements evaluation.Service with function fields.
type mockEvaluationService struct {
	SubmitFn      func(ctx context.Context, ownerID, itemID, sittingID uuid.UUID, answer string) (uuid.UUID, error)
	GetResultsFn  func(ctx context.Context, ownerID, sittingID uuid.UUID) (*evaluation.Results, error)
	RetryFailedFn func(ctx context.Context, ownerID, submissionID uuid.UUID) (*domain.Submission, error)
	ReconcileFn   func(ctx context.Context) (int, error)
}

var _ evaluation.Service = (*mockEvaluationService)(nil)

func (m *mockEvaluationService) Submit(
	ctx context.Context,
	ownerID, itemID, sittingID uuid.UUID,
	answer string,
) (uuid.UUID, error) {
	return m.SubmitFn(ctx, ownerID, itemID, sittingID, answer)
}

func (m *mockEvaluationService) GetResults(ctx context.Context, ownerID, sittingID uuid.UUID) (*evaluation.Results, error) {
	return m.GetResultsFn(ctx, ownerID, sittingID)
}

func (m *mockEvaluationService) RetryFailed(
	ctx context.Context,
	ownerID, submissionID uuid.UUID,
) (*domain.Submission, error) {
	return m.RetryFailedFn(ctx, ownerID, submissionID)
}

func (m *mockEvaluationService) Reconcile(ctx context.Context) (int, error) {
	return m.ReconcileFn(ctx)
}
