package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Pool-specific validation errors
var (
	// ErrPoolIDEmpty is returned when a pool ID is empty or nil.
	ErrPoolIDEmpty = errors.New("pool ID cannot be empty")

	// ErrPoolOwnerIDEmpty is returned when a pool's owner ID is empty or nil.
	ErrPoolOwnerIDEmpty = errors.New("pool owner ID cannot be empty")

	// ErrPoolTitleEmpty is returned when a pool has no title.
	ErrPoolTitleEmpty = errors.New("pool title cannot be empty")

	// ErrConceptEmpty is returned when a concept label is empty.
	ErrConceptEmpty = errors.New("concept cannot be empty")
)

// PoolStatus tracks whether a pool has had questions generated yet.
type PoolStatus string

const (
	// PoolStatusReady means concepts are available but no items exist yet.
	PoolStatusReady PoolStatus = "ready"

	// PoolStatusQuizzing means items have been generated for the pool.
	PoolStatusQuizzing PoolStatus = "quizzing"
)

// Concept is one (concept, content) pair produced by the comprehension pipeline.
type Concept struct {
	ID        uuid.UUID `json:"id"`
	PoolID    uuid.UUID `json:"pool_id"`
	Position  int       `json:"position"`
	Name      string    `json:"concept"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Pool is a study collection whose items are scheduled independently of
// other pools.
type Pool struct {
	ID               uuid.UUID  `json:"id"`
	OwnerID          uuid.UUID  `json:"owner_id"`
	Title            string     `json:"title"`
	Status           PoolStatus `json:"status"`
	SpacedRepetition bool       `json:"spaced_repetition"`
	Concepts         []Concept  `json:"concepts,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// NewPool creates a new pool in the ready state.
// Concepts are positioned in the order given.
func NewPool(ownerID uuid.UUID, title string, concepts []Concept, spacedRepetition bool) (*Pool, error) {
	now := time.Now().UTC()
	pool := &Pool{
		ID:               uuid.New(),
		OwnerID:          ownerID,
		Title:            strings.TrimSpace(title),
		Status:           PoolStatusReady,
		SpacedRepetition: spacedRepetition,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := pool.Validate(); err != nil {
		return nil, err
	}

	if err := pool.AppendConcepts(concepts, 0); err != nil {
		return nil, err
	}

	return pool, nil
}

// AppendConcepts attaches concepts to the pool, numbering them from offset.
func (p *Pool) AppendConcepts(concepts []Concept, offset int) error {
	now := time.Now().UTC()
	for i, c := range concepts {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return NewValidationError("concepts", "must not contain empty concept names", ErrConceptEmpty)
		}
		p.Concepts = append(p.Concepts, Concept{
			ID:        uuid.New(),
			PoolID:    p.ID,
			Position:  offset + i,
			Name:      name,
			Content:   strings.TrimSpace(c.Content),
			CreatedAt: now,
		})
	}
	return nil
}

// Validate checks if the Pool has valid data.
func (p *Pool) Validate() error {
	if p.ID == uuid.Nil {
		return ErrPoolIDEmpty
	}
	if p.OwnerID == uuid.Nil {
		return ErrPoolOwnerIDEmpty
	}
	if p.Title == "" {
		return ErrPoolTitleEmpty
	}
	switch p.Status {
	case PoolStatusReady, PoolStatusQuizzing:
	default:
		return ErrInvalidStatus
	}
	return nil
}
