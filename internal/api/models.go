package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
)

// ConceptRequest is one concept of a pool with its source text.
type ConceptRequest struct {
	Concept string `json:"concept" validate:"required,max=500"`
	Content string `json:"content" validate:"max=20000"`
}

// CreatePoolRequest defines the payload for POST /api/pools.
type CreatePoolRequest struct {
	Title    string           `json:"title"    validate:"required,max=200"`
	Concepts []ConceptRequest `json:"concepts" validate:"required,min=1,max=200,dive"`
	// SpacedRepetition defaults to true when omitted.
	SpacedRepetition *bool `json:"spaced_repetition"`
}

// AddConceptsRequest defines the payload for POST /api/pools/{id}/concepts.
type AddConceptsRequest struct {
	Concepts []ConceptRequest `json:"concepts" validate:"required,min=1,max=200,dive"`
}

// GenerateRequest defines the payload for POST /api/generate.
type GenerateRequest struct {
	PoolID string `json:"pool_id" validate:"required,uuid"`
}

// CreateSittingRequest defines the payload for POST /api/sittings. Without a
// pool the sitting draws from every spaced-repetition pool.
type CreateSittingRequest struct {
	PoolID *string `json:"pool_id" validate:"omitempty,uuid"`
}

// SubmitRequest defines the payload for POST /api/submit. Without an item
// the item under the sitting cursor is answered.
type SubmitRequest struct {
	SittingID string  `json:"sitting_id" validate:"required,uuid"`
	ItemID    *string `json:"item_id"    validate:"omitempty,uuid"`
	Answer    string  `json:"answer"     validate:"required,max=10000"`
}

// SubmitResponse acknowledges an accepted answer. Evaluation happens later.
type SubmitResponse struct {
	Status       string     `json:"status"`
	SubmissionID uuid.UUID  `json:"submission_id"`
	NextItemID   *uuid.UUID `json:"next_item_id,omitempty"`
}

// ConceptResponse is a concept as returned by the pool endpoints.
type ConceptResponse struct {
	ID       uuid.UUID `json:"id"`
	Position int       `json:"position"`
	Concept  string    `json:"concept"`
	Content  string    `json:"content,omitempty"`
}

// PoolResponse represents the response data for a pool.
type PoolResponse struct {
	ID               uuid.UUID         `json:"id"`
	Title            string            `json:"title"`
	Status           string            `json:"status"`
	SpacedRepetition bool              `json:"spaced_repetition"`
	Concepts         []ConceptResponse `json:"concepts,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// QuestionResponse is an item as shown to the learner, without its reference answer.
type QuestionResponse struct {
	ID           uuid.UUID  `json:"id"`
	PoolID       uuid.UUID  `json:"pool_id"`
	PoolTitle    string     `json:"pool_title,omitempty"`
	Concept      string     `json:"concept"`
	Question     string     `json:"question"`
	QuestionType string     `json:"question_type"`
	Level        string     `json:"level"`
	Box          int        `json:"box"`
	DueAt        time.Time  `json:"due_at"`
	ReviewCount  int        `json:"review_count"`
	LastReviewed *time.Time `json:"last_reviewed_at,omitempty"`
}

// QuestionsResponse lists questions of one pool, or of every pool when
// PoolID is absent.
type QuestionsResponse struct {
	PoolID    *uuid.UUID         `json:"pool_id,omitempty"`
	DueOnly   bool               `json:"due_only"`
	Count     int                `json:"count"`
	Questions []QuestionResponse `json:"questions"`
}

// SubmissionResponse reports the state of one submission.
type SubmissionResponse struct {
	ID        uuid.UUID `json:"id"`
	SittingID uuid.UUID `json:"sitting_id"`
	ItemID    uuid.UUID `json:"item_id"`
	Status    string    `json:"status"`
	Attempts  int       `json:"attempts"`
}

func poolToResponse(pool *domain.Pool) PoolResponse {
	resp := PoolResponse{
		ID:               pool.ID,
		Title:            pool.Title,
		Status:           string(pool.Status),
		SpacedRepetition: pool.SpacedRepetition,
		CreatedAt:        pool.CreatedAt,
		UpdatedAt:        pool.UpdatedAt,
	}
	for _, c := range pool.Concepts {
		resp.Concepts = append(resp.Concepts, ConceptResponse{
			ID:       c.ID,
			Position: c.Position,
			Concept:  c.Name,
			Content:  c.Content,
		})
	}
	return resp
}

func itemToQuestion(item *domain.Item, poolTitle string) QuestionResponse {
	return QuestionResponse{
		ID:           item.ID,
		PoolID:       item.PoolID,
		PoolTitle:    poolTitle,
		Concept:      item.Concept,
		Question:     item.Question,
		QuestionType: string(item.QuestionType),
		Level:        string(item.Level),
		Box:          item.Box,
		DueAt:        item.DueAt,
		ReviewCount:  item.ReviewCount,
		LastReviewed: item.LastReviewedAt,
	}
}

func conceptsFromRequest(reqs []ConceptRequest) []domain.Concept {
	concepts := make([]domain.Concept, 0, len(reqs))
	for _, c := range reqs {
		concepts = append(concepts, domain.Concept{Name: c.Concept, Content: c.Content})
	}
	return concepts
}
