package evaluation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/phrazzld/recall-api/internal/service"
)

// StatusUnanswered marks an item of a sitting with no submission.
const StatusUnanswered = "unanswered"

// ResultEntry is the evaluation state of one item of a sitting.
type ResultEntry struct {
	Position     int             `json:"position"`
	ItemID       uuid.UUID       `json:"item_id"`
	PoolID       uuid.UUID       `json:"pool_id"`
	Concept      string          `json:"concept"`
	Question     string          `json:"question"`
	SubmissionID *uuid.UUID      `json:"submission_id,omitempty"`
	Answer       string          `json:"answer,omitempty"`
	Status       string          `json:"status"`
	Verdict      *domain.Verdict `json:"verdict,omitempty"`
	Explanation  *string         `json:"explanation,omitempty"`
	Feedback     *string         `json:"feedback,omitempty"`
	LastError    *string         `json:"last_error,omitempty"`
	NewBox       *int            `json:"new_box,omitempty"`
}

// Results reports the evaluation progress of a sitting.
type Results struct {
	SittingID     uuid.UUID            `json:"sitting_id"`
	SittingStatus domain.SittingStatus `json:"sitting_status"`
	Entries       []ResultEntry        `json:"entries"`
	Evaluated     int                  `json:"evaluated"`
	Pending       int                  `json:"pending"`
	Failed        int                  `json:"failed"`
	Unanswered    int                  `json:"unanswered"`
	Correct       int                  `json:"correct"`
}

// Done reports whether every answered item has a verdict or a failure.
func (r *Results) Done() bool {
	return r.Pending == 0
}

// GetResults implements Service.GetResults
func (p *Pipeline) GetResults(ctx context.Context, ownerID, sittingID uuid.UUID) (*Results, error) {
	log := logger.FromContextOrDefault(ctx, p.logger).With(
		slog.String("sitting_id", sittingID.String()))

	sitting, err := p.loadOwnedSitting(ctx, ownerID, sittingID)
	if err != nil {
		return nil, err
	}

	subs, err := p.stores.Submissions.ListBySitting(ctx, sittingID)
	if err != nil {
		return nil, service.NewServiceError("get_results", "failed to list submissions", err)
	}
	latest := latestByItem(subs)

	ids := make([]uuid.UUID, 0, len(sitting.Items))
	for _, it := range sitting.Items {
		ids = append(ids, it.ItemID)
	}
	items, err := p.stores.Items.GetByIDs(ctx, ids)
	if err != nil {
		return nil, service.NewServiceError("get_results", "failed to load items", err)
	}
	byID := make(map[uuid.UUID]*domain.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	subIDs := make([]uuid.UUID, 0, len(latest))
	for _, s := range latest {
		subIDs = append(subIDs, s.ID)
	}
	logs, err := p.stores.ReviewLogs.GetBySubmissions(ctx, subIDs)
	if err != nil {
		return nil, service.NewServiceError("get_results", "failed to load review logs", err)
	}

	res := &Results{
		SittingID:     sitting.ID,
		SittingStatus: sitting.Status,
		Entries:       make([]ResultEntry, 0, len(sitting.Items)),
	}

	for _, si := range sitting.Items {
		entry := ResultEntry{
			Position: si.Position,
			ItemID:   si.ItemID,
			PoolID:   si.PoolID,
			Status:   StatusUnanswered,
		}
		if item, ok := byID[si.ItemID]; ok {
			entry.Concept = item.Concept
			entry.Question = item.Question
		}

		sub, ok := latest[si.ItemID]
		if !ok {
			res.Unanswered++
			res.Entries = append(res.Entries, entry)
			continue
		}

		id := sub.ID
		entry.SubmissionID = &id
		entry.Answer = sub.RawAnswer
		entry.Status = string(sub.Status)

		switch sub.Status {
		case domain.SubmissionStatusEvaluated:
			if sub.Verdict == nil {
				log.Error("evaluated submission without verdict",
					slog.String("submission_id", sub.ID.String()))
				return nil, fmt.Errorf("%w: submission %s has no verdict", service.ErrInconsistentCommit, sub.ID)
			}
			res.Evaluated++
			if *sub.Verdict == domain.VerdictCorrect {
				res.Correct++
			}
			entry.Verdict = sub.Verdict
			entry.Explanation = sub.Explanation
			entry.Feedback = sub.Feedback
			if rl, ok := logs[sub.ID]; ok {
				box := rl.BoxAfter
				entry.NewBox = &box
			}
		case domain.SubmissionStatusFailed:
			res.Failed++
			entry.LastError = sub.LastError
		default:
			res.Pending++
		}

		res.Entries = append(res.Entries, entry)
	}

	return res, nil
}

// latestByItem keeps the newest submission of every item.
func latestByItem(subs []*domain.Submission) map[uuid.UUID]*domain.Submission {
	out := make(map[uuid.UUID]*domain.Submission, len(subs))
	for _, s := range subs {
		cur, ok := out[s.ItemID]
		if !ok || s.CreatedAt.After(cur.CreatedAt) {
			out[s.ItemID] = s
		}
	}
	return out
}
