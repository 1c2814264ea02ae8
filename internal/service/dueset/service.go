package dueset

import (
	"context"
	"database/sql"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/domain/srs"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/phrazzld/recall-api/internal/service"
	"github.com/phrazzld/recall-api/internal/store"
)

// Stats summarizes the scheduling state of a set of items.
type Stats struct {
	PoolID            *uuid.UUID  `json:"pool_id,omitempty"`
	PoolTitle         string      `json:"pool_title,omitempty"`
	SpacedRepetition  bool        `json:"spaced_repetition,omitempty"`
	Total             int         `json:"total"`
	DueCount          int         `json:"due_count"`
	Mastered          int         `json:"mastered"`
	MasteryPercentage float64     `json:"mastery_percentage"`
	BoxDistribution   map[int]int `json:"box_distribution"`
}

// Dashboard holds per-pool statistics and their totals, read at one snapshot.
// The global due count covers spaced-repetition pools only, so it always
// matches the length of DueGlobal.
type Dashboard struct {
	Global Stats   `json:"global"`
	Pools  []Stats `json:"pools"`
}

// Service resolves due items and progress statistics for an owner.
type Service interface {
	// DuePerPool returns the items of one pool with due_at ≤ now, ordered by
	// due_at, then box, then id.
	DuePerPool(ctx context.Context, ownerID, poolID uuid.UUID) ([]*domain.Item, error)

	// DueGlobal returns the due items of every spaced-repetition pool of the
	// owner merged into one list with the same ordering. All pools are read
	// from a single snapshot.
	DueGlobal(ctx context.Context, ownerID uuid.UUID) ([]domain.ItemWithOrigin, error)

	// PoolStats returns the statistics of one pool.
	PoolStats(ctx context.Context, ownerID, poolID uuid.UUID) (*Stats, error)

	// Dashboard returns the statistics of every pool of the owner and their totals.
	Dashboard(ctx context.Context, ownerID uuid.UUID) (*Dashboard, error)
}

type serviceImpl struct {
	tx        store.Transactor
	pools     store.PoolStore
	items     store.ItemStore
	scheduler srs.Service
	now       func() time.Time
	logger    *slog.Logger
}

var _ Service = (*serviceImpl)(nil)

// NewService creates a due-set Service.
func NewService(
	tx store.Transactor,
	pools store.PoolStore,
	items store.ItemStore,
	scheduler srs.Service,
	logger *slog.Logger,
) (Service, error) {
	if tx == nil {
		return nil, domain.NewValidationError("tx", "cannot be nil", domain.ErrValidation)
	}
	if pools == nil {
		return nil, domain.NewValidationError("pools", "cannot be nil", domain.ErrValidation)
	}
	if items == nil {
		return nil, domain.NewValidationError("items", "cannot be nil", domain.ErrValidation)
	}
	if scheduler == nil {
		return nil, domain.NewValidationError("scheduler", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &serviceImpl{
		tx:        tx,
		pools:     pools,
		items:     items,
		scheduler: scheduler,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger.With(slog.String("component", "dueset")),
	}, nil
}

// DuePerPool implements Service.DuePerPool
func (s *serviceImpl) DuePerPool(ctx context.Context, ownerID, poolID uuid.UUID) ([]*domain.Item, error) {
	if _, err := service.LoadOwnedPool(ctx, s.pools, ownerID, poolID); err != nil {
		return nil, err
	}
	items, err := s.items.ListDue(ctx, poolID, s.now(), 0)
	if err != nil {
		return nil, service.NewServiceError("due_per_pool", "failed to list due items", err)
	}
	return items, nil
}

// DueGlobal implements Service.DueGlobal
func (s *serviceImpl) DueGlobal(ctx context.Context, ownerID uuid.UUID) ([]domain.ItemWithOrigin, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.now()

	var lists []poolDue
	err := s.tx.InSnapshot(ctx, func(ctx context.Context, tx *sql.Tx) error {
		pools, err := s.pools.WithTx(tx).ListSpacedRepetition(ctx, ownerID)
		if err != nil {
			return err
		}
		items := s.items.WithTx(tx)
		lists = make([]poolDue, 0, len(pools))
		for _, p := range pools {
			due, err := items.ListDue(ctx, p.ID, now, 0)
			if err != nil {
				return err
			}
			lists = append(lists, poolDue{pool: p, items: due})
		}
		return nil
	})
	if err != nil {
		log.Error("failed to read global due set",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()))
		return nil, service.NewServiceError("due_global", "failed to read due items", err)
	}

	merged := mergeDue(lists)
	log.Debug("resolved global due set",
		slog.Int("pool_count", len(lists)),
		slog.Int("due_count", len(merged)))
	return merged, nil
}

// PoolStats implements Service.PoolStats
func (s *serviceImpl) PoolStats(ctx context.Context, ownerID, poolID uuid.UUID) (*Stats, error) {
	pool, err := service.LoadOwnedPool(ctx, s.pools, ownerID, poolID)
	if err != nil {
		return nil, err
	}

	var stats Stats
	err = s.tx.InSnapshot(ctx, func(ctx context.Context, tx *sql.Tx) error {
		stats, err = s.poolStats(ctx, s.items.WithTx(tx), pool, s.now())
		return err
	})
	if err != nil {
		return nil, service.NewServiceError("pool_stats", "failed to compute stats", err)
	}
	return &stats, nil
}

// Dashboard implements Service.Dashboard
func (s *serviceImpl) Dashboard(ctx context.Context, ownerID uuid.UUID) (*Dashboard, error) {
	now := s.now()
	dash := &Dashboard{Pools: []Stats{}}

	err := s.tx.InSnapshot(ctx, func(ctx context.Context, tx *sql.Tx) error {
		pools, err := s.pools.WithTx(tx).ListByOwner(ctx, ownerID)
		if err != nil {
			return err
		}
		items := s.items.WithTx(tx)
		for _, p := range pools {
			st, err := s.poolStats(ctx, items, p, now)
			if err != nil {
				return err
			}
			dash.Pools = append(dash.Pools, st)
		}
		return nil
	})
	if err != nil {
		return nil, service.NewServiceError("dashboard", "failed to compute dashboard", err)
	}

	dash.Global = s.total(dash.Pools)
	return dash, nil
}

func (s *serviceImpl) poolStats(ctx context.Context, items store.ItemStore, pool *domain.Pool, now time.Time) (Stats, error) {
	boxes, err := items.CountByBox(ctx, pool.ID)
	if err != nil {
		return Stats{}, err
	}
	due, err := items.CountDue(ctx, pool.ID, now)
	if err != nil {
		return Stats{}, err
	}

	id := pool.ID
	st := Stats{
		PoolID:           &id,
		PoolTitle:        pool.Title,
		SpacedRepetition: pool.SpacedRepetition,
		DueCount:         due,
		BoxDistribution:  s.emptyDistribution(),
	}
	for box, n := range boxes {
		st.BoxDistribution[box] += n
		st.Total += n
		if box >= s.scheduler.MasteryThreshold() {
			st.Mastered += n
		}
	}
	st.MasteryPercentage = masteryPercentage(st.Mastered, st.Total)
	return st, nil
}

func (s *serviceImpl) total(pools []Stats) Stats {
	g := Stats{BoxDistribution: s.emptyDistribution()}
	for _, p := range pools {
		g.Total += p.Total
		if p.SpacedRepetition {
			g.DueCount += p.DueCount
		}
		g.Mastered += p.Mastered
		for box, n := range p.BoxDistribution {
			g.BoxDistribution[box] += n
		}
	}
	g.MasteryPercentage = masteryPercentage(g.Mastered, g.Total)
	return g
}

func (s *serviceImpl) emptyDistribution() map[int]int {
	dist := make(map[int]int, s.scheduler.MaxBox())
	for box := 1; box <= s.scheduler.MaxBox(); box++ {
		dist[box] = 0
	}
	return dist
}

// masteryPercentage returns mastered/total as a percentage rounded to one decimal.
func masteryPercentage(mastered, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(mastered)/float64(total)*1000) / 10
}
