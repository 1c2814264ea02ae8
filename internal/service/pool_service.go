package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/domain/srs"
	"github.com/phrazzld/recall-api/internal/generation"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/phrazzld/recall-api/internal/store"
	"golang.org/x/sync/errgroup"
)

// DefaultGenerationConcurrency bounds the number of concurrent generator calls
// when no limit is configured.
const DefaultGenerationConcurrency = 4

// PoolService manages pools and generates their items.
type PoolService interface {
	// CreatePool creates a pool in the ready state with the given concepts.
	CreatePool(
		ctx context.Context,
		ownerID uuid.UUID,
		title string,
		concepts []domain.Concept,
		spacedRepetition bool,
	) (*domain.Pool, error)

	// ListPools returns the owner's pools, oldest first, without concepts.
	ListPools(ctx context.Context, ownerID uuid.UUID) ([]*domain.Pool, error)

	// GetPool returns a pool with its concepts.
	// Returns ErrUnknownPool when the pool is missing or owned by someone else.
	GetPool(ctx context.Context, ownerID, poolID uuid.UUID) (*domain.Pool, error)

	// DeletePool removes a pool together with its items, sittings and submissions.
	DeletePool(ctx context.Context, ownerID, poolID uuid.UUID) error

	// AddConcepts appends concepts to a pool and returns the updated pool.
	AddConcepts(ctx context.Context, ownerID, poolID uuid.UUID, concepts []domain.Concept) (*domain.Pool, error)

	// ListItems returns every item of a pool in creation order.
	ListItems(ctx context.Context, ownerID, poolID uuid.UUID) ([]*domain.Item, error)

	// Generate creates items for every concept of the pool that has none yet.
	//
	// Parameters:
	//   - ctx: Context for the operation; cancelling it aborts outstanding generator calls
	//   - ownerID: owner of the pool
	//   - poolID: pool to generate for
	//
	// Returns:
	//   - the newly created items, or every existing item of the pool when no
	//     concept was left without one
	//   - ErrUnknownPool when the pool does not exist or is not owned by ownerID
	//   - an error wrapping generation.ErrGenerationFailed (or one of its
	//     siblings) when any generator call fails; no item is stored in that case
	Generate(ctx context.Context, ownerID, poolID uuid.UUID) ([]*domain.Item, error)

	// GenerateMissing is Generate without the fallback: it returns only the
	// items it created, which is empty when every concept already has one.
	GenerateMissing(ctx context.Context, ownerID, poolID uuid.UUID) ([]*domain.Item, error)
}

// poolServiceImpl implements the PoolService interface
type poolServiceImpl struct {
	tx          store.Transactor
	pools       store.PoolStore
	items       store.ItemStore
	generator   generation.QuestionGenerator
	scheduler   srs.Service
	concurrency int
	now         func() time.Time
	logger      *slog.Logger
}

// Verify interface compliance at compile time
var _ PoolService = (*poolServiceImpl)(nil)

// NewPoolService creates a new PoolService.
// It returns an error if any of the required dependencies are nil.
// concurrency bounds simultaneous generator calls; values below 1 use
// DefaultGenerationConcurrency.
func NewPoolService(
	tx store.Transactor,
	pools store.PoolStore,
	items store.ItemStore,
	generator generation.QuestionGenerator,
	scheduler srs.Service,
	concurrency int,
	logger *slog.Logger,
) (PoolService, error) {
	if tx == nil {
		return nil, domain.NewValidationError("tx", "cannot be nil", domain.ErrValidation)
	}
	if pools == nil {
		return nil, domain.NewValidationError("pools", "cannot be nil", domain.ErrValidation)
	}
	if items == nil {
		return nil, domain.NewValidationError("items", "cannot be nil", domain.ErrValidation)
	}
	if generator == nil {
		return nil, domain.NewValidationError("generator", "cannot be nil", domain.ErrValidation)
	}
	if scheduler == nil {
		return nil, domain.NewValidationError("scheduler", "cannot be nil", domain.ErrValidation)
	}
	if concurrency < 1 {
		concurrency = DefaultGenerationConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &poolServiceImpl{
		tx:          tx,
		pools:       pools,
		items:       items,
		generator:   generator,
		scheduler:   scheduler,
		concurrency: concurrency,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger.With(slog.String("component", "pool_service")),
	}, nil
}

// CreatePool implements PoolService.CreatePool
func (s *poolServiceImpl) CreatePool(
	ctx context.Context,
	ownerID uuid.UUID,
	title string,
	concepts []domain.Concept,
	spacedRepetition bool,
) (*domain.Pool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	pool, err := domain.NewPool(ownerID, title, concepts, spacedRepetition)
	if err != nil {
		return nil, err
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.pools.WithTx(tx).Create(ctx, pool)
	})
	if err != nil {
		log.Error("failed to create pool",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()))
		return nil, NewServiceError("create_pool", "failed to save pool", err)
	}

	log.Info("pool created",
		slog.String("pool_id", pool.ID.String()),
		slog.Int("concept_count", len(pool.Concepts)))
	return pool, nil
}

// ListPools implements PoolService.ListPools
func (s *poolServiceImpl) ListPools(ctx context.Context, ownerID uuid.UUID) ([]*domain.Pool, error) {
	pools, err := s.pools.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, NewServiceError("list_pools", "failed to list pools", err)
	}
	return pools, nil
}

// GetPool implements PoolService.GetPool
func (s *poolServiceImpl) GetPool(ctx context.Context, ownerID, poolID uuid.UUID) (*domain.Pool, error) {
	return LoadOwnedPool(ctx, s.pools, ownerID, poolID)
}

// DeletePool implements PoolService.DeletePool
func (s *poolServiceImpl) DeletePool(ctx context.Context, ownerID, poolID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := LoadOwnedPool(ctx, s.pools, ownerID, poolID); err != nil {
		return err
	}
	if err := s.pools.Delete(ctx, poolID); err != nil {
		if errors.Is(err, store.ErrPoolNotFound) {
			return ErrUnknownPool
		}
		return NewServiceError("delete_pool", "failed to delete pool", err)
	}

	log.Info("pool deleted", slog.String("pool_id", poolID.String()))
	return nil
}

// AddConcepts implements PoolService.AddConcepts
func (s *poolServiceImpl) AddConcepts(
	ctx context.Context,
	ownerID, poolID uuid.UUID,
	concepts []domain.Concept,
) (*domain.Pool, error) {
	if len(concepts) == 0 {
		return nil, domain.NewValidationError("concepts", "must not be empty", domain.ErrConceptEmpty)
	}

	pool, err := LoadOwnedPool(ctx, s.pools, ownerID, poolID)
	if err != nil {
		return nil, err
	}

	offset := len(pool.Concepts)
	if err := pool.AppendConcepts(concepts, offset); err != nil {
		return nil, err
	}

	if err := s.pools.AddConcepts(ctx, poolID, pool.Concepts[offset:]); err != nil {
		return nil, NewServiceError("add_concepts", "failed to save concepts", MapStoreError(err))
	}
	return pool, nil
}

// ListItems implements PoolService.ListItems
func (s *poolServiceImpl) ListItems(ctx context.Context, ownerID, poolID uuid.UUID) ([]*domain.Item, error) {
	if _, err := LoadOwnedPool(ctx, s.pools, ownerID, poolID); err != nil {
		return nil, err
	}
	items, err := s.items.ListByPool(ctx, poolID)
	if err != nil {
		return nil, NewServiceError("list_items", "failed to list items", err)
	}
	return items, nil
}

// Generate implements PoolService.Generate
func (s *poolServiceImpl) Generate(ctx context.Context, ownerID, poolID uuid.UUID) ([]*domain.Item, error) {
	created, err := s.GenerateMissing(ctx, ownerID, poolID)
	if err != nil {
		return nil, err
	}
	if len(created) > 0 {
		return created, nil
	}

	existing, err := s.items.ListByPool(ctx, poolID)
	if err != nil {
		return nil, NewServiceError("generate", "failed to list existing items", err)
	}
	return existing, nil
}

// GenerateMissing implements PoolService.GenerateMissing
func (s *poolServiceImpl) GenerateMissing(ctx context.Context, ownerID, poolID uuid.UUID) ([]*domain.Item, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("pool_id", poolID.String()))

	pool, err := LoadOwnedPool(ctx, s.pools, ownerID, poolID)
	if err != nil {
		return nil, err
	}

	covered, err := s.items.ListConceptsWithItems(ctx, poolID)
	if err != nil {
		return nil, NewServiceError("generate", "failed to list covered concepts", err)
	}
	pending := unreviewedConcepts(pool.Concepts, covered)
	if len(pending) == 0 {
		log.Debug("every concept already has an item")
		return []*domain.Item{}, nil
	}

	log.Info("generating items", slog.Int("concept_count", len(pending)))

	generated := make([]*generation.GeneratedQuestion, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, c := range pending {
		g.Go(func() error {
			q, err := s.generator.GenerateQuestion(gctx, generation.QuestionRequest{
				Concept: c.Name,
				Content: c.Content,
			})
			if err != nil {
				return fmt.Errorf("concept %q: %w", c.Name, err)
			}
			generated[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("item generation failed", slog.String("error", err.Error()))
		return nil, NewServiceError("generate", "failed to generate items", err)
	}

	now := s.now()
	items := make([]*domain.Item, 0, len(pending))
	for i, c := range pending {
		q := generated[i]
		item, err := domain.NewItem(
			ownerID, poolID,
			c.Name, q.Question, q.ReferenceAnswer,
			q.Type, q.Level,
			s.scheduler.InitialState(now),
		)
		if err != nil {
			return nil, NewServiceError("generate",
				fmt.Sprintf("generator returned an unusable question for %q", c.Name),
				fmt.Errorf("%w: %w", generation.ErrInvalidResponse, err))
		}
		items = append(items, item)
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.items.WithTx(tx).CreateMultiple(ctx, items); err != nil {
			return err
		}
		return s.pools.WithTx(tx).UpdateStatus(ctx, poolID, domain.PoolStatusQuizzing)
	})
	if err != nil {
		log.Error("failed to store generated items", slog.String("error", err.Error()))
		return nil, NewServiceError("generate", "failed to store items", MapStoreError(err))
	}

	log.Info("items generated", slog.Int("item_count", len(items)))
	return items, nil
}

// unreviewedConcepts returns the concepts whose name has no item yet, in
// position order, keeping the first of any duplicate names.
func unreviewedConcepts(concepts []domain.Concept, covered []string) []domain.Concept {
	seen := make(map[string]struct{}, len(covered)+len(concepts))
	for _, name := range covered {
		seen[name] = struct{}{}
	}
	out := make([]domain.Concept, 0, len(concepts))
	for _, c := range concepts {
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		out = append(out, c)
	}
	return out
}

// LoadOwnedPool fetches a pool and hides pools of other owners behind
// ErrUnknownPool.
func LoadOwnedPool(ctx context.Context, pools store.PoolStore, ownerID, poolID uuid.UUID) (*domain.Pool, error) {
	pool, err := pools.GetByID(ctx, poolID)
	if err != nil {
		if errors.Is(err, store.ErrPoolNotFound) {
			return nil, ErrUnknownPool
		}
		return nil, NewServiceError("get_pool", "failed to load pool", err)
	}
	if pool.OwnerID != ownerID {
		return nil, ErrUnknownPool
	}
	return pool, nil
}
