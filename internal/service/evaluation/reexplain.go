package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/generation"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/phrazzld/recall-api/internal/store"
)

// Reexplain writes feedback for a submission judged incorrect. Submissions
// that are not incorrect, already carry feedback, or have disappeared are
// skipped.
func (p *Pipeline) Reexplain(ctx context.Context, submissionID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, p.logger).With(
		slog.String("submission_id", submissionID.String()))

	sub, err := p.stores.Submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, store.ErrSubmissionNotFound) {
			log.Warn("submission no longer exists, skipping re-explanation")
			return nil
		}
		return fmt.Errorf("failed to load submission: %w", err)
	}
	if sub.Status != domain.SubmissionStatusEvaluated || sub.Verdict == nil ||
		*sub.Verdict != domain.VerdictIncorrect {
		log.Debug("submission is not an incorrect answer, skipping re-explanation")
		return nil
	}
	if sub.Feedback != nil {
		log.Debug("feedback already present, skipping re-explanation")
		return nil
	}

	item, err := p.stores.Items.GetByID(ctx, sub.ItemID)
	if err != nil {
		if errors.Is(err, store.ErrItemNotFound) {
			log.Warn("item no longer exists, skipping re-explanation")
			return nil
		}
		return fmt.Errorf("failed to load item: %w", err)
	}

	content, err := p.conceptContent(ctx, item)
	if err != nil {
		return err
	}

	feedback, err := p.explainer.Explain(ctx, generation.ExplainRequest{
		Concept:         item.Concept,
		Content:         content,
		Question:        item.Question,
		ReferenceAnswer: item.ReferenceAnswer,
		Answer:          sub.RawAnswer,
	})
	if err != nil {
		return fmt.Errorf("failed to explain concept: %w", err)
	}
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return fmt.Errorf("%w: empty explanation", generation.ErrInvalidResponse)
	}

	if err := p.stores.Submissions.SetFeedback(ctx, sub.ID, feedback); err != nil {
		if errors.Is(err, store.ErrSubmissionNotFound) {
			return nil
		}
		return fmt.Errorf("failed to store feedback: %w", err)
	}

	log.Info("feedback stored")
	return nil
}

// conceptContent returns the source content of the item's concept, or an
// empty string when the pool no longer lists it.
func (p *Pipeline) conceptContent(ctx context.Context, item *domain.Item) (string, error) {
	pool, err := p.stores.Pools.GetByID(ctx, item.PoolID)
	if err != nil {
		if errors.Is(err, store.ErrPoolNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load pool: %w", err)
	}
	for _, c := range pool.Concepts {
		if strings.EqualFold(c.Name, item.Concept) {
			return c.Content, nil
		}
	}
	return "", nil
}
