package evaluation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/generation"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/phrazzld/recall-api/internal/service"
	"github.com/phrazzld/recall-api/internal/store"
)

// EvaluateSubmission judges one submission and commits the outcome. Work on
// the same item is serialized, so transitions of one item apply in order.
// A submission that is already terminal is skipped.
//
// When ctx is cancelled the submission is left in the evaluating state and
// the task is recovered on the next start. When the judge gives up the
// submission is marked failed and the item is left untouched.
func (p *Pipeline) EvaluateSubmission(ctx context.Context, submissionID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, p.logger).With(
		slog.String("submission_id", submissionID.String()))

	sub, err := p.stores.Submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, store.ErrSubmissionNotFound) {
			// The pool was deleted while the answer was queued.
			log.Warn("submission no longer exists, skipping evaluation")
			return nil
		}
		return fmt.Errorf("failed to load submission: %w", err)
	}

	unlock := p.locks.Lock(sub.ItemID)
	defer unlock()

	// Reload under the lock; another worker may have finished it.
	sub, err = p.stores.Submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, store.ErrSubmissionNotFound) {
			log.Warn("submission no longer exists, skipping evaluation")
			return nil
		}
		return fmt.Errorf("failed to reload submission: %w", err)
	}
	if sub.Status.Terminal() {
		log.Debug("submission already terminal, skipping", slog.String("status", string(sub.Status)))
		return nil
	}

	item, err := p.stores.Items.GetByID(ctx, sub.ItemID)
	if err != nil {
		if errors.Is(err, store.ErrItemNotFound) {
			log.Warn("item no longer exists, skipping evaluation")
			return nil
		}
		return fmt.Errorf("failed to load item: %w", err)
	}

	sub.Status = domain.SubmissionStatusEvaluating
	sub.UpdatedAt = p.now()
	if err := p.stores.Submissions.Update(ctx, sub); err != nil {
		return fmt.Errorf("failed to mark submission evaluating: %w", err)
	}

	judgment, attempts, err := p.judgeWithRetry(ctx, item, sub)
	sub.Attempts += attempts
	if err != nil {
		if ctx.Err() != nil {
			log.Warn("evaluation interrupted, leaving submission for recovery")
			return fmt.Errorf("evaluation interrupted: %w", ctx.Err())
		}
		return p.markFailed(ctx, sub, err)
	}

	if err := p.commit(ctx, sub.ID, judgment.Verdict, judgment.Explanation, sub.Attempts); err != nil {
		return err
	}

	log.Info("submission evaluated",
		slog.String("verdict", string(judgment.Verdict)),
		slog.Int("attempts", sub.Attempts))
	return nil
}

// judgeWithRetry asks the judge for a verdict, retrying transient failures
// with exponential backoff. It returns the number of calls made.
func (p *Pipeline) judgeWithRetry(
	ctx context.Context,
	item *domain.Item,
	sub *domain.Submission,
) (*generation.Judgment, int, error) {
	log := logger.FromContextOrDefault(ctx, p.logger).With(
		slog.String("submission_id", sub.ID.String()))

	req := generation.JudgeRequest{
		Concept:         item.Concept,
		Question:        item.Question,
		ReferenceAnswer: item.ReferenceAnswer,
		Answer:          sub.RawAnswer,
	}

	var judgment *generation.Judgment
	var lastErr error
	attempts := 0

	err := retry.Do(
		func() error {
			attempts++
			callCtx, cancel := context.WithTimeout(ctx, p.config.AttemptTimeout)
			defer cancel()

			out, err := p.judge.Judge(callCtx, req)
			if err == nil && (out == nil || !out.Verdict.Valid()) {
				err = fmt.Errorf("%w: judge returned no usable verdict", generation.ErrInvalidResponse)
			}
			if err == nil {
				judgment = out
				return nil
			}

			lastErr = err
			if ctx.Err() != nil {
				lastErr = ctx.Err()
				return retry.Unrecoverable(ctx.Err())
			}
			if generation.IsPermanent(err) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(p.config.MaxAttempts),
		retry.Delay(p.config.InitialBackoff),
		retry.MaxDelay(p.config.MaxBackoff),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("judgment failed, retrying",
				slog.Int("attempt", int(n)+1),
				slog.Uint64("max_attempts", uint64(p.config.MaxAttempts)),
				slog.String("error", err.Error()))
		}),
	)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			err = ctx.Err()
		case lastErr != nil:
			err = lastErr
		}
		return nil, attempts, err
	}
	return judgment, attempts, nil
}

// markFailed records a judgment failure. The write must survive a shutdown,
// and the returned error wraps ErrJudgmentUnavailable.
func (p *Pipeline) markFailed(ctx context.Context, sub *domain.Submission, cause error) error {
	log := logger.FromContextOrDefault(ctx, p.logger).With(
		slog.String("submission_id", sub.ID.String()))

	msg := cause.Error()
	sub.Status = domain.SubmissionStatusFailed
	sub.LastError = &msg
	sub.UpdatedAt = p.now()

	err := p.tx.InTransaction(context.WithoutCancel(ctx), func(ctx context.Context, tx *sql.Tx) error {
		if err := p.stores.Submissions.WithTx(tx).Update(ctx, sub); err != nil {
			return err
		}
		return p.settleSitting(ctx, tx, sub.SittingID)
	})
	if err != nil {
		log.Error("failed to mark submission failed", slog.String("error", err.Error()))
		return fmt.Errorf("failed to mark submission failed: %w", err)
	}

	log.Error("judgment unavailable, submission marked failed",
		slog.Int("attempts", sub.Attempts),
		slog.String("error", msg))
	return service.NewServiceError("evaluate", msg, service.ErrJudgmentUnavailable)
}
