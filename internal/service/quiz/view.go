package quiz

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
)

// ViewItem is one question of a sitting as shown to the learner. It never
// carries the reference answer.
type ViewItem struct {
	Position     int                 `json:"position"`
	ItemID       uuid.UUID           `json:"item_id"`
	PoolID       uuid.UUID           `json:"pool_id"`
	Concept      string              `json:"concept"`
	Question     string              `json:"question"`
	QuestionType domain.QuestionType `json:"question_type"`
	Level        domain.Level        `json:"level"`
	Answered     bool                `json:"answered"`
}

// View is the state of a sitting after its cursor was recomputed.
type View struct {
	SittingID      uuid.UUID            `json:"sitting_id"`
	PoolID         *uuid.UUID           `json:"pool_id,omitempty"`
	Status         domain.SittingStatus `json:"status"`
	Cursor         int                  `json:"cursor"`
	Total          int                  `json:"total"`
	Answered       int                  `json:"answered"`
	Current        *ViewItem            `json:"current,omitempty"`
	Items          []ViewItem           `json:"items"`
	AcknowledgedAt *time.Time           `json:"acknowledged_at,omitempty"`
}

// buildView renders sitting with the question text of items. answered
// reports which items already have an accepted answer.
func buildView(sitting *domain.Sitting, items map[uuid.UUID]*domain.Item, answered map[uuid.UUID]bool) *View {
	v := &View{
		SittingID:      sitting.ID,
		PoolID:         sitting.PoolID,
		Status:         sitting.Status,
		Cursor:         sitting.Cursor,
		Total:          len(sitting.Items),
		Items:          make([]ViewItem, 0, len(sitting.Items)),
		AcknowledgedAt: sitting.AcknowledgedAt,
	}

	for _, si := range sitting.Items {
		vi := ViewItem{
			Position: si.Position,
			ItemID:   si.ItemID,
			PoolID:   si.PoolID,
			Answered: answered[si.ItemID],
		}
		if item, ok := items[si.ItemID]; ok {
			vi.Concept = item.Concept
			vi.Question = item.Question
			vi.QuestionType = item.QuestionType
			vi.Level = item.Level
		}
		if vi.Answered {
			v.Answered++
		}
		v.Items = append(v.Items, vi)
	}

	if sitting.Status.Open() && sitting.Cursor < len(v.Items) {
		current := v.Items[sitting.Cursor]
		v.Current = &current
	}
	return v
}
