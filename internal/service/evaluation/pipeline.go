package evaluation

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/domain/srs"
	"github.com/phrazzld/recall-api/internal/events"
	"github.com/phrazzld/recall-api/internal/generation"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/phrazzld/recall-api/internal/service"
	"github.com/phrazzld/recall-api/internal/store"
	"github.com/phrazzld/recall-api/internal/task"
)

// Service is the client-facing side of the pipeline.
type Service interface {
	// Submit records an answer for an item of a sitting and schedules its
	// evaluation. It never waits for the judge.
	//
	// Parameters:
	//   - ctx: Context for the operation
	//   - ownerID: owner of the sitting
	//   - itemID: item being answered; it must belong to the sitting
	//   - sittingID: open sitting the answer belongs to
	//   - answer: free-text answer
	//
	// Returns:
	//   - (id, nil): the new submission, in the pending state
	//   - ErrUnknownSitting, ErrUnknownItem: unknown or foreign sitting, or
	//     an item outside the sitting
	//   - ErrInvalidTransition: the sitting no longer accepts answers
	//   - ErrDuplicateSubmission: the item already has a non-failed answer
	//     in the sitting
	//   - a domain.ValidationError for a blank answer
	Submit(ctx context.Context, ownerID, itemID, sittingID uuid.UUID, answer string) (uuid.UUID, error)

	// GetResults reports the evaluation state of every item of a sitting.
	GetResults(ctx context.Context, ownerID, sittingID uuid.UUID) (*Results, error)

	// RetryFailed moves a failed submission back to pending and schedules a
	// new evaluation. A completed sitting waits in awaiting_evaluation again
	// until the new verdict lands.
	RetryFailed(ctx context.Context, ownerID, submissionID uuid.UUID) (*domain.Submission, error)

	// Reconcile applies the transition of every evaluated submission that has
	// no review log and returns how many were repaired.
	Reconcile(ctx context.Context) (int, error)
}

// Stores groups the persistence dependencies of the pipeline.
type Stores struct {
	Pools       store.PoolStore
	Items       store.ItemStore
	Submissions store.SubmissionStore
	Sittings    store.SittingStore
	ReviewLogs  store.ReviewLogStore
	Tasks       task.TaskStore
}

func (s Stores) validate() error {
	switch {
	case s.Pools == nil:
		return domain.NewValidationError("stores.Pools", "cannot be nil", domain.ErrValidation)
	case s.Items == nil:
		return domain.NewValidationError("stores.Items", "cannot be nil", domain.ErrValidation)
	case s.Submissions == nil:
		return domain.NewValidationError("stores.Submissions", "cannot be nil", domain.ErrValidation)
	case s.Sittings == nil:
		return domain.NewValidationError("stores.Sittings", "cannot be nil", domain.ErrValidation)
	case s.ReviewLogs == nil:
		return domain.NewValidationError("stores.ReviewLogs", "cannot be nil", domain.ErrValidation)
	case s.Tasks == nil:
		return domain.NewValidationError("stores.Tasks", "cannot be nil", domain.ErrValidation)
	}
	return nil
}

// Pipeline implements Service and the task.Evaluator and task.Reexplainer
// interfaces that background tasks call into.
type Pipeline struct {
	tx        store.Transactor
	stores    Stores
	judge     generation.Judge
	explainer generation.Explainer
	scheduler srs.Service
	submitter task.Submitter
	emitter   events.EventEmitter
	locks     *keyedMutex
	config    Config
	now       func() time.Time
	logger    *slog.Logger
}

// Verify interface compliance at compile time
var (
	_ Service          = (*Pipeline)(nil)
	_ task.Evaluator   = (*Pipeline)(nil)
	_ task.Reexplainer = (*Pipeline)(nil)
)

// NewPipeline creates the evaluation pipeline. emitter may be nil, in which
// case no events are published.
func NewPipeline(
	tx store.Transactor,
	stores Stores,
	judge generation.Judge,
	explainer generation.Explainer,
	scheduler srs.Service,
	submitter task.Submitter,
	emitter events.EventEmitter,
	cfg Config,
	logger *slog.Logger,
) (*Pipeline, error) {
	if tx == nil {
		return nil, domain.NewValidationError("tx", "cannot be nil", domain.ErrValidation)
	}
	if err := stores.validate(); err != nil {
		return nil, err
	}
	if judge == nil {
		return nil, domain.NewValidationError("judge", "cannot be nil", domain.ErrValidation)
	}
	if explainer == nil {
		return nil, domain.NewValidationError("explainer", "cannot be nil", domain.ErrValidation)
	}
	if scheduler == nil {
		return nil, domain.NewValidationError("scheduler", "cannot be nil", domain.ErrValidation)
	}
	if submitter == nil {
		return nil, domain.NewValidationError("submitter", "cannot be nil", domain.ErrValidation)
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		tx:        tx,
		stores:    stores,
		judge:     judge,
		explainer: explainer,
		scheduler: scheduler,
		submitter: submitter,
		emitter:   emitter,
		locks:     newKeyedMutex(),
		config:    cfg.withDefaults(),
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger.With(slog.String("component", "evaluation")),
	}, nil
}

// Submit implements Service.Submit
func (p *Pipeline) Submit(
	ctx context.Context,
	ownerID, itemID, sittingID uuid.UUID,
	answer string,
) (uuid.UUID, error) {
	log := logger.FromContextOrDefault(ctx, p.logger).With(
		slog.String("sitting_id", sittingID.String()),
		slog.String("item_id", itemID.String()))

	if strings.TrimSpace(answer) == "" {
		return uuid.Nil, domain.NewValidationError("answer", "cannot be empty", domain.ErrSubmissionAnswerEmpty)
	}

	sitting, err := p.loadOwnedSitting(ctx, ownerID, sittingID)
	if err != nil {
		return uuid.Nil, err
	}
	if !sitting.Status.Open() {
		return uuid.Nil, service.NewServiceError("submit",
			"sitting does not accept answers in state "+string(sitting.Status),
			domain.ErrInvalidTransition)
	}
	if !sitting.Contains(itemID) {
		return uuid.Nil, service.NewServiceError("submit", "item is not part of the sitting", service.ErrUnknownItem)
	}

	if _, err := p.stores.Submissions.FindActive(ctx, itemID, sittingID); err == nil {
		log.Debug("rejecting duplicate submission")
		return uuid.Nil, service.ErrDuplicateSubmission
	} else if !errors.Is(err, store.ErrSubmissionNotFound) {
		return uuid.Nil, service.NewServiceError("submit", "failed to check existing submission", err)
	}

	sub, err := domain.NewSubmission(ownerID, itemID, sittingID, answer)
	if err != nil {
		return uuid.Nil, err
	}
	evalTask, err := task.NewEvaluationTask(sub.ID, p, p.logger)
	if err != nil {
		return uuid.Nil, service.NewServiceError("submit", "failed to create evaluation task", err)
	}

	err = p.tx.InTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := p.stores.Submissions.WithTx(tx).Create(ctx, sub); err != nil {
			return err
		}
		return p.stores.Tasks.WithTx(tx).SaveTask(ctx, evalTask)
	})
	if err != nil {
		if errors.Is(err, store.ErrSubmissionExists) {
			log.Debug("duplicate submission lost the race")
			return uuid.Nil, service.ErrDuplicateSubmission
		}
		log.Error("failed to store submission", slog.String("error", err.Error()))
		return uuid.Nil, service.NewServiceError("submit", "failed to store submission", err)
	}

	p.submitter.Enqueue(evalTask)

	log.Info("answer accepted", slog.String("submission_id", sub.ID.String()))
	return sub.ID, nil
}

// RetryFailed implements Service.RetryFailed
func (p *Pipeline) RetryFailed(ctx context.Context, ownerID, submissionID uuid.UUID) (*domain.Submission, error) {
	log := logger.FromContextOrDefault(ctx, p.logger).With(
		slog.String("submission_id", submissionID.String()))

	sub, err := p.stores.Submissions.GetByID(ctx, submissionID)
	if err != nil {
		return nil, service.MapStoreError(err)
	}
	if sub.OwnerID != ownerID {
		return nil, service.ErrUnknownSubmission
	}

	evalTask, err := task.NewEvaluationTask(sub.ID, p, p.logger)
	if err != nil {
		return nil, service.NewServiceError("retry", "failed to create evaluation task", err)
	}

	err = p.tx.InTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		subs := p.stores.Submissions.WithTx(tx)
		locked, err := subs.GetForUpdate(ctx, submissionID)
		if err != nil {
			return err
		}
		if locked.Status != domain.SubmissionStatusFailed {
			return service.ErrNotRetryable
		}
		if _, err := subs.FindActive(ctx, locked.ItemID, locked.SittingID); err == nil {
			return service.ErrNotRetryable
		} else if !errors.Is(err, store.ErrSubmissionNotFound) {
			return err
		}

		locked.Status = domain.SubmissionStatusPending
		locked.LastError = nil
		locked.UpdatedAt = p.now()
		if err := subs.Update(ctx, locked); err != nil {
			return err
		}
		sub = locked
		if err := p.reopenSitting(ctx, tx, locked.SittingID); err != nil {
			return err
		}
		return p.stores.Tasks.WithTx(tx).SaveTask(ctx, evalTask)
	})
	if err != nil {
		if errors.Is(err, service.ErrNotRetryable) {
			return nil, service.NewServiceError("retry", "submission has not failed or was superseded", err)
		}
		return nil, service.NewServiceError("retry", "failed to reset submission", service.MapStoreError(err))
	}

	p.submitter.Enqueue(evalTask)
	log.Info("failed submission requeued")
	return sub, nil
}

func (p *Pipeline) loadOwnedSitting(ctx context.Context, ownerID, sittingID uuid.UUID) (*domain.Sitting, error) {
	sitting, err := p.stores.Sittings.GetByID(ctx, sittingID)
	if err != nil {
		if errors.Is(err, store.ErrSittingNotFound) {
			return nil, service.ErrUnknownSitting
		}
		return nil, service.NewServiceError("load_sitting", "failed to load sitting", err)
	}
	if sitting.OwnerID != ownerID {
		return nil, service.ErrUnknownSitting
	}
	return sitting, nil
}
