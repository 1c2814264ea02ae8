package evaluation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/phrazzld/recall-api/internal/service"
)

// Reconcile implements Service.Reconcile. Submissions that fail to commit are
// logged and skipped so one bad row does not block the rest.
func (p *Pipeline) Reconcile(ctx context.Context) (int, error) {
	log := logger.FromContextOrDefault(ctx, p.logger)

	subs, err := p.stores.Submissions.ListEvaluatedWithoutLog(ctx, p.config.ReconcileBatch)
	if err != nil {
		return 0, service.NewServiceError("reconcile", "failed to list unreconciled submissions", err)
	}
	if len(subs) == 0 {
		return 0, nil
	}

	log.Info("reconciling evaluated submissions", slog.Int("count", len(subs)))

	repaired := 0
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return repaired, err
		}
		if sub.Verdict == nil {
			log.Error("evaluated submission has no verdict, skipping",
				slog.String("submission_id", sub.ID.String()))
			continue
		}

		explanation := ""
		if sub.Explanation != nil {
			explanation = *sub.Explanation
		}

		unlock := p.locks.Lock(sub.ItemID)
		err := p.commit(ctx, sub.ID, *sub.Verdict, explanation, 0)
		unlock()

		if err != nil {
			level := slog.LevelError
			if errors.Is(err, service.ErrInconsistentCommit) {
				level = slog.LevelWarn
			}
			log.Log(ctx, level, "failed to reconcile submission",
				slog.String("submission_id", sub.ID.String()),
				slog.String("error", err.Error()))
			continue
		}
		repaired++
	}

	log.Info("reconciliation finished", slog.Int("repaired", repaired))
	return repaired, nil
}

// RunReconciler runs Reconcile every ReconcileInterval until ctx is done.
// A non-positive interval disables the loop.
func (p *Pipeline) RunReconciler(ctx context.Context) {
	interval := p.config.ReconcileInterval
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Reconcile(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error("periodic reconciliation failed", slog.String("error", err.Error()))
			}
		}
	}
}
