package evaluation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/events"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/phrazzld/recall-api/internal/service"
	"github.com/phrazzld/recall-api/internal/store"
)

// errAlreadyCommitted rolls back a commit whose review log already exists.
var errAlreadyCommitted = errors.New("transition already committed")

// commit applies the scheduler transition for a judged submission. The item
// update, the submission update and the review log are written in one
// transaction, and the review log makes a second commit of the same
// submission a no-op. The caller must hold the item lock.
//
// attempts overwrites the stored attempt count when positive.
func (p *Pipeline) commit(
	ctx context.Context,
	submissionID uuid.UUID,
	verdict domain.Verdict,
	explanation string,
	attempts int,
) error {
	log := logger.FromContextOrDefault(ctx, p.logger).With(
		slog.String("submission_id", submissionID.String()))

	if !verdict.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidVerdict, verdict)
	}

	// Commits must not be torn by a shutdown once the verdict is known.
	ctx = context.WithoutCancel(ctx)

	var committed *domain.Submission
	err := p.tx.InTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		subs := p.stores.Submissions.WithTx(tx)
		items := p.stores.Items.WithTx(tx)
		logs := p.stores.ReviewLogs.WithTx(tx)

		sub, err := subs.GetForUpdate(ctx, submissionID)
		if err != nil {
			return err
		}

		exists, err := logs.Exists(ctx, submissionID)
		if err != nil {
			return err
		}
		if exists {
			return errAlreadyCommitted
		}
		if sub.Status == domain.SubmissionStatusFailed {
			return fmt.Errorf("%w: submission %s is failed", service.ErrInconsistentCommit, submissionID)
		}

		item, err := items.GetForUpdate(ctx, sub.ItemID)
		if err != nil {
			if errors.Is(err, store.ErrItemNotFound) {
				return fmt.Errorf("%w: item %s is missing", service.ErrInconsistentCommit, sub.ItemID)
			}
			return err
		}

		now := p.now()
		reviewedAt := now
		if sub.EvaluatedAt != nil {
			reviewedAt = *sub.EvaluatedAt
		}

		before := item.SchedulingState
		after, err := p.scheduler.Transition(before, verdict, reviewedAt)
		if err != nil {
			return fmt.Errorf("failed to compute transition: %w", err)
		}
		if err := items.UpdateScheduling(ctx, item.ID, after); err != nil {
			return err
		}

		v := verdict
		sub.Status = domain.SubmissionStatusEvaluated
		sub.Verdict = &v
		if explanation != "" || sub.Explanation == nil {
			e := explanation
			sub.Explanation = &e
		}
		if attempts > 0 {
			sub.Attempts = attempts
		}
		sub.LastError = nil
		sub.EvaluatedAt = &reviewedAt
		sub.UpdatedAt = now
		if err := subs.Update(ctx, sub); err != nil {
			if errors.Is(err, domain.ErrEvaluatedWithoutVerdict) {
				return fmt.Errorf("%w: %w", service.ErrInconsistentCommit, err)
			}
			return err
		}

		if err := logs.Create(ctx, domain.NewReviewLog(sub.ID, item.ID, verdict, before, after, now)); err != nil {
			if errors.Is(err, store.ErrReviewLogExists) {
				return errAlreadyCommitted
			}
			return err
		}

		if err := p.settleSitting(ctx, tx, sub.SittingID); err != nil {
			return err
		}

		committed = sub
		return nil
	})

	switch {
	case errors.Is(err, errAlreadyCommitted):
		log.Debug("transition already committed, skipping")
		return nil
	case err != nil:
		log.Error("failed to commit evaluation", slog.String("error", err.Error()))
		if errors.Is(err, service.ErrInconsistentCommit) {
			return err
		}
		return service.NewServiceError("commit", "failed to commit evaluation", err)
	}

	if verdict == domain.VerdictIncorrect {
		p.emitIncorrect(ctx, committed)
	}
	return nil
}

// settleSitting completes a sitting that was waiting for its last verdict.
// It runs in the transaction that made a submission terminal, so a poller
// never sees every answer judged while the sitting still waits.
func (p *Pipeline) settleSitting(ctx context.Context, tx *sql.Tx, sittingID uuid.UUID) error {
	sittings := p.stores.Sittings.WithTx(tx)

	sitting, err := sittings.GetForUpdate(ctx, sittingID)
	if err != nil {
		if errors.Is(err, store.ErrSittingNotFound) {
			return nil
		}
		return err
	}
	if sitting.Status != domain.SittingStatusAwaitingEvaluation {
		return nil
	}

	subs, err := p.stores.Submissions.WithTx(tx).ListBySitting(ctx, sittingID)
	if err != nil {
		return err
	}
	answered, allTerminal := domain.AnswerProgress(subs)
	if !sitting.Reposition(func(id uuid.UUID) bool { return answered[id] }, allTerminal) {
		return nil
	}
	return sittings.Update(ctx, sitting)
}

// reopenSitting puts a completed sitting back into awaiting_evaluation
// because one of its answers is being judged again.
func (p *Pipeline) reopenSitting(ctx context.Context, tx *sql.Tx, sittingID uuid.UUID) error {
	sittings := p.stores.Sittings.WithTx(tx)

	sitting, err := sittings.GetForUpdate(ctx, sittingID)
	if err != nil {
		if errors.Is(err, store.ErrSittingNotFound) {
			return nil
		}
		return err
	}
	if !sitting.AwaitReevaluation() {
		return nil
	}
	return sittings.Update(ctx, sitting)
}

// emitIncorrect publishes answer.incorrect. A publishing failure never undoes
// the commit.
func (p *Pipeline) emitIncorrect(ctx context.Context, sub *domain.Submission) {
	log := logger.FromContextOrDefault(ctx, p.logger).With(
		slog.String("submission_id", sub.ID.String()))

	event, err := events.NewTaskRequestEvent(events.TypeAnswerIncorrect, events.AnswerIncorrectPayload{
		SubmissionID: sub.ID,
		ItemID:       sub.ItemID,
		OwnerID:      sub.OwnerID,
	})
	if err != nil {
		log.Error("failed to build answer.incorrect event", slog.String("error", err.Error()))
		return
	}

	if err := p.emitter.EmitEvent(ctx, event); err != nil {
		log.Warn("failed to emit answer.incorrect event", slog.String("error", err.Error()))
	}
}
