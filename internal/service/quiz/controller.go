package quiz

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/phrazzld/recall-api/internal/service"
	"github.com/phrazzld/recall-api/internal/service/dueset"
	"github.com/phrazzld/recall-api/internal/service/evaluation"
	"github.com/phrazzld/recall-api/internal/store"
)

// DefaultMaxItems caps the number of items in a sitting when no limit is configured.
const DefaultMaxItems = 10

// Service defines the sitting lifecycle operations.
type Service interface {
	// Create builds a sitting from the due set of one pool, or of every
	// spaced-repetition pool when poolID is nil, capped at the configured
	// number of items.
	//
	// Parameters:
	//   - ctx: Context for the operation
	//   - ownerID: owner of the sitting
	//   - poolID: pool to draw from, or nil for a global sitting
	//
	// Returns:
	//   - the view of the new sitting, in progress with the cursor on its first item
	//   - ErrUnknownPool when poolID is not one of the owner's pools
	//   - ErrNothingDue when no item is due and, for a pool, none could be generated
	Create(ctx context.Context, ownerID uuid.UUID, poolID *uuid.UUID) (*View, error)

	// Resume recomputes the cursor from the stored answers and settles the
	// sitting once every item has been answered.
	Resume(ctx context.Context, ownerID, sittingID uuid.UUID) (*View, error)

	// ResumeOrCreateForPool resumes the newest open sitting of a pool, one in
	// progress or awaiting evaluation, or creates a new one.
	ResumeOrCreateForPool(ctx context.Context, ownerID, poolID uuid.UUID) (*View, error)

	// SubmitCurrent answers the item under the cursor and advances the cursor.
	SubmitCurrent(ctx context.Context, ownerID, sittingID uuid.UUID, answer string) (uuid.UUID, *View, error)

	// SubmitItem answers a specific item of the sitting and advances the cursor.
	SubmitItem(ctx context.Context, ownerID, sittingID, itemID uuid.UUID, answer string) (uuid.UUID, *View, error)

	// Complete closes a sitting whose items have all been answered and
	// returns its results. The sitting waits in awaiting_evaluation while any
	// verdict is outstanding.
	Complete(ctx context.Context, ownerID, sittingID uuid.UUID) (*evaluation.Results, error)

	// Abandon closes a sitting early. Answers already given keep their effect.
	Abandon(ctx context.Context, ownerID, sittingID uuid.UUID) (*View, error)

	// Acknowledge records that the results of a closed sitting were seen.
	Acknowledge(ctx context.Context, ownerID, sittingID uuid.UUID) (*View, error)

	// Latest returns the newest sitting of a pool, or the newest global
	// sitting when poolID is nil.
	Latest(ctx context.Context, ownerID uuid.UUID, poolID *uuid.UUID) (*domain.Sitting, error)
}

// Stores groups the persistence dependencies of the controller.
type Stores struct {
	Pools       store.PoolStore
	Items       store.ItemStore
	Submissions store.SubmissionStore
	Sittings    store.SittingStore
}

// controller implements Service
type controller struct {
	tx         store.Transactor
	stores     Stores
	due        dueset.Service
	pools      service.PoolService
	evaluation evaluation.Service
	maxItems   int
	now        func() time.Time
	logger     *slog.Logger
}

// Verify interface compliance at compile time
var _ Service = (*controller)(nil)

// NewController creates the sitting controller. A non-positive maxItems
// falls back to DefaultMaxItems.
func NewController(
	tx store.Transactor,
	stores Stores,
	due dueset.Service,
	pools service.PoolService,
	eval evaluation.Service,
	maxItems int,
	logger *slog.Logger,
) (Service, error) {
	switch {
	case tx == nil:
		return nil, domain.NewValidationError("tx", "cannot be nil", domain.ErrValidation)
	case stores.Pools == nil || stores.Items == nil || stores.Submissions == nil || stores.Sittings == nil:
		return nil, domain.NewValidationError("stores", "cannot contain nil stores", domain.ErrValidation)
	case due == nil:
		return nil, domain.NewValidationError("due", "cannot be nil", domain.ErrValidation)
	case pools == nil:
		return nil, domain.NewValidationError("pools", "cannot be nil", domain.ErrValidation)
	case eval == nil:
		return nil, domain.NewValidationError("evaluation", "cannot be nil", domain.ErrValidation)
	}
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &controller{
		tx:         tx,
		stores:     stores,
		due:        due,
		pools:      pools,
		evaluation: eval,
		maxItems:   maxItems,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger.With(slog.String("component", "quiz")),
	}, nil
}

// Create implements Service.Create
func (c *controller) Create(ctx context.Context, ownerID uuid.UUID, poolID *uuid.UUID) (*View, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	var entries []domain.SittingItem
	if poolID != nil {
		log = log.With(slog.String("pool_id", poolID.String()))
		due, err := c.due.DuePerPool(ctx, ownerID, *poolID)
		if err != nil {
			return nil, err
		}
		if len(due) == 0 {
			log.Info("nothing due, generating items for unreviewed concepts")
			due, err = c.pools.GenerateMissing(ctx, ownerID, *poolID)
			if err != nil {
				return nil, err
			}
		}
		for _, it := range due {
			entries = append(entries, domain.SittingItem{ItemID: it.ID, PoolID: it.PoolID})
		}
	} else {
		due, err := c.due.DueGlobal(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		for _, it := range due {
			entries = append(entries, domain.SittingItem{ItemID: it.Item.ID, PoolID: it.PoolID})
		}
	}

	if len(entries) == 0 {
		return nil, service.ErrNothingDue
	}
	if len(entries) > c.maxItems {
		entries = entries[:c.maxItems]
	}

	sitting, err := domain.NewSitting(ownerID, poolID, entries)
	if err != nil {
		return nil, err
	}
	if err := sitting.Start(); err != nil {
		return nil, err
	}

	err = c.tx.InTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return c.stores.Sittings.WithTx(tx).Create(ctx, sitting)
	})
	if err != nil {
		log.Error("failed to store sitting", slog.String("error", err.Error()))
		return nil, service.NewServiceError("create_sitting", "failed to store sitting", service.MapStoreError(err))
	}

	log.Info("sitting created",
		slog.String("sitting_id", sitting.ID.String()),
		slog.Int("item_count", len(entries)))

	return c.render(ctx, sitting, map[uuid.UUID]bool{})
}

// Resume implements Service.Resume
func (c *controller) Resume(ctx context.Context, ownerID, sittingID uuid.UUID) (*View, error) {
	sitting, answered, err := c.settle(ctx, ownerID, sittingID, nil)
	if err != nil {
		return nil, err
	}
	return c.render(ctx, sitting, answered)
}

// ResumeOrCreateForPool implements Service.ResumeOrCreateForPool
func (c *controller) ResumeOrCreateForPool(ctx context.Context, ownerID, poolID uuid.UUID) (*View, error) {
	if _, err := service.LoadOwnedPool(ctx, c.stores.Pools, ownerID, poolID); err != nil {
		return nil, err
	}

	var resumed *View
	open, err := c.stores.Sittings.FindLatest(ctx, ownerID, &poolID, true)
	switch {
	case err == nil:
		resumed, err = c.Resume(ctx, ownerID, open.ID)
		if err != nil {
			return nil, err
		}
		if !resumed.Status.Closed() {
			return resumed, nil
		}
	case !errors.Is(err, store.ErrSittingNotFound):
		return nil, service.NewServiceError("resume_sitting", "failed to find open sitting", err)
	}

	created, err := c.Create(ctx, ownerID, &poolID)
	if errors.Is(err, service.ErrNothingDue) && resumed != nil {
		// Nothing new to ask; show the sitting that just completed.
		return resumed, nil
	}
	return created, err
}

// SubmitCurrent implements Service.SubmitCurrent
func (c *controller) SubmitCurrent(
	ctx context.Context,
	ownerID, sittingID uuid.UUID,
	answer string,
) (uuid.UUID, *View, error) {
	sitting, _, err := c.settle(ctx, ownerID, sittingID, nil)
	if err != nil {
		return uuid.Nil, nil, err
	}
	if !sitting.Status.Open() {
		return uuid.Nil, nil, service.NewServiceError("submit_current",
			"sitting does not accept answers in state "+string(sitting.Status), domain.ErrInvalidTransition)
	}
	current, ok := sitting.CurrentItem()
	if !ok {
		return uuid.Nil, nil, service.NewServiceError("submit_current",
			"every item has been answered", domain.ErrInvalidTransition)
	}
	return c.SubmitItem(ctx, ownerID, sittingID, current.ItemID, answer)
}

// SubmitItem implements Service.SubmitItem
func (c *controller) SubmitItem(
	ctx context.Context,
	ownerID, sittingID, itemID uuid.UUID,
	answer string,
) (uuid.UUID, *View, error) {
	id, err := c.evaluation.Submit(ctx, ownerID, itemID, sittingID, answer)
	if err != nil {
		return uuid.Nil, nil, err
	}

	view, err := c.Resume(ctx, ownerID, sittingID)
	if err != nil {
		// The answer is stored; the cursor catches up on the next read.
		logger.FromContextOrDefault(ctx, c.logger).Warn("failed to advance cursor after submit",
			slog.String("sitting_id", sittingID.String()),
			slog.String("error", err.Error()))
		return id, nil, nil
	}
	return id, view, nil
}

// Complete implements Service.Complete
func (c *controller) Complete(ctx context.Context, ownerID, sittingID uuid.UUID) (*evaluation.Results, error) {
	_, _, err := c.settle(ctx, ownerID, sittingID, func(s *domain.Sitting, allTerminal bool) error {
		return s.Complete(allTerminal)
	})
	if err != nil {
		return nil, err
	}
	return c.evaluation.GetResults(ctx, ownerID, sittingID)
}

// Abandon implements Service.Abandon
func (c *controller) Abandon(ctx context.Context, ownerID, sittingID uuid.UUID) (*View, error) {
	sitting, answered, err := c.settle(ctx, ownerID, sittingID, func(s *domain.Sitting, _ bool) error {
		return s.Abandon()
	})
	if err != nil {
		return nil, err
	}
	logger.FromContextOrDefault(ctx, c.logger).Info("sitting abandoned",
		slog.String("sitting_id", sittingID.String()))
	return c.render(ctx, sitting, answered)
}

// Acknowledge implements Service.Acknowledge
func (c *controller) Acknowledge(ctx context.Context, ownerID, sittingID uuid.UUID) (*View, error) {
	sitting, answered, err := c.settle(ctx, ownerID, sittingID, func(s *domain.Sitting, _ bool) error {
		return s.Acknowledge(c.now())
	})
	if err != nil {
		return nil, err
	}
	return c.render(ctx, sitting, answered)
}

// Latest implements Service.Latest
func (c *controller) Latest(ctx context.Context, ownerID uuid.UUID, poolID *uuid.UUID) (*domain.Sitting, error) {
	if poolID != nil {
		if _, err := service.LoadOwnedPool(ctx, c.stores.Pools, ownerID, *poolID); err != nil {
			return nil, err
		}
	}
	sitting, err := c.stores.Sittings.FindLatest(ctx, ownerID, poolID, false)
	if err != nil {
		if errors.Is(err, store.ErrSittingNotFound) {
			return nil, service.ErrUnknownSitting
		}
		return nil, service.NewServiceError("latest_sitting", "failed to find sitting", err)
	}
	return sitting, nil
}

// settle locks the sitting, recomputes its cursor and status from the stored
// submissions, applies transition (if any) and persists whatever changed.
// It returns the updated sitting and the set of answered items.
func (c *controller) settle(
	ctx context.Context,
	ownerID, sittingID uuid.UUID,
	transition func(s *domain.Sitting, allTerminal bool) error,
) (*domain.Sitting, map[uuid.UUID]bool, error) {
	var sitting *domain.Sitting
	var answered map[uuid.UUID]bool

	err := c.tx.InTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		sittings := c.stores.Sittings.WithTx(tx)

		s, err := sittings.GetForUpdate(ctx, sittingID)
		if err != nil {
			return err
		}
		if s.OwnerID != ownerID {
			return service.ErrUnknownSitting
		}

		subs, err := c.stores.Submissions.WithTx(tx).ListBySitting(ctx, sittingID)
		if err != nil {
			return err
		}
		var allTerminal bool
		answered, allTerminal = domain.AnswerProgress(subs)

		changed := s.Reposition(func(id uuid.UUID) bool { return answered[id] }, allTerminal)
		if transition != nil {
			before, beforeAck := s.Status, s.AcknowledgedAt
			if err := transition(s, allTerminal); err != nil {
				return err
			}
			changed = changed || before != s.Status || beforeAck != s.AcknowledgedAt
		}
		if changed {
			if err := sittings.Update(ctx, s); err != nil {
				return err
			}
		}
		sitting = s
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrSittingNotFound), errors.Is(err, service.ErrUnknownSitting):
			return nil, nil, service.ErrUnknownSitting
		case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrSittingNotFinished):
			return nil, nil, err
		}
		return nil, nil, service.NewServiceError("settle_sitting", "failed to update sitting", err)
	}
	return sitting, answered, nil
}

func (c *controller) render(ctx context.Context, sitting *domain.Sitting, answered map[uuid.UUID]bool) (*View, error) {
	ids := make([]uuid.UUID, 0, len(sitting.Items))
	for _, si := range sitting.Items {
		ids = append(ids, si.ItemID)
	}
	items, err := c.stores.Items.GetByIDs(ctx, ids)
	if err != nil {
		return nil, service.NewServiceError("render_sitting", "failed to load items", err)
	}
	byID := make(map[uuid.UUID]*domain.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	return buildView(sitting, byID, answered), nil
}
