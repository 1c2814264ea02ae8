package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxBox is the highest Leitner box. Items in this box are considered mastered.
const MaxBox = 5

// Item-specific validation errors
var (
	// ErrItemIDEmpty is returned when an item ID is empty or nil.
	ErrItemIDEmpty = errors.New("item ID cannot be empty")

	// ErrItemOwnerIDEmpty is returned when an item's owner ID is empty or nil.
	ErrItemOwnerIDEmpty = errors.New("item owner ID cannot be empty")

	// ErrItemPoolIDEmpty is returned when an item's pool ID is empty or nil.
	ErrItemPoolIDEmpty = errors.New("item pool ID cannot be empty")

	// ErrItemQuestionEmpty is returned when an item has no question text.
	ErrItemQuestionEmpty = errors.New("item question cannot be empty")

	// ErrItemConceptEmpty is returned when an item has no concept label.
	ErrItemConceptEmpty = errors.New("item concept cannot be empty")

	// ErrInvalidQuestionType is returned for an unknown question type.
	ErrInvalidQuestionType = errors.New("invalid question type")
)

// QuestionType classifies the kind of thinking a question exercises.
type QuestionType string

const (
	QuestionTypeRecall        QuestionType = "recall"
	QuestionTypeUnderstanding QuestionType = "understanding"
	QuestionTypeApplication   QuestionType = "application"
	QuestionTypeAnalysis      QuestionType = "analysis"
)

// Level is the generator-assigned difficulty label of a question.
// It is descriptive only; scheduling uses Item.Difficulty.
type Level string

const (
	LevelEasy   Level = "easy"
	LevelMedium Level = "medium"
	LevelHard   Level = "hard"
)

// ParseQuestionType normalizes s into a QuestionType, defaulting to recall.
func ParseQuestionType(s string) QuestionType {
	switch QuestionType(strings.ToLower(strings.TrimSpace(s))) {
	case QuestionTypeUnderstanding:
		return QuestionTypeUnderstanding
	case QuestionTypeApplication:
		return QuestionTypeApplication
	case QuestionTypeAnalysis:
		return QuestionTypeAnalysis
	default:
		return QuestionTypeRecall
	}
}

// ParseLevel normalizes s into a Level, defaulting to medium.
func ParseLevel(s string) Level {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelEasy:
		return LevelEasy
	case LevelHard:
		return LevelHard
	default:
		return LevelMedium
	}
}

// SchedulingState is the part of an item that the scheduler reads and writes.
// All fields change together in a single transition.
type SchedulingState struct {
	Box            int        `json:"box"`
	Stability      float64    `json:"stability"`
	Difficulty     float64    `json:"difficulty"`
	DueAt          time.Time  `json:"due_at"`
	LastOutcome    Outcome    `json:"last_outcome"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
	ReviewCount    int        `json:"review_count"`
	LapseCount     int        `json:"lapse_count"`
}

// Item is a reviewable question about one concept of a pool.
type Item struct {
	ID              uuid.UUID    `json:"id"`
	OwnerID         uuid.UUID    `json:"owner_id"`
	PoolID          uuid.UUID    `json:"pool_id"`
	Concept         string       `json:"concept"`
	Question        string       `json:"question"`
	ReferenceAnswer string       `json:"reference_answer"`
	QuestionType    QuestionType `json:"question_type"`
	Level           Level        `json:"level"`
	SchedulingState
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewItem creates an item for a generated question with the given initial
// scheduling state.
func NewItem(
	ownerID, poolID uuid.UUID,
	concept, question, referenceAnswer string,
	questionType QuestionType,
	level Level,
	state SchedulingState,
) (*Item, error) {
	now := time.Now().UTC()
	item := &Item{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		PoolID:          poolID,
		Concept:         strings.TrimSpace(concept),
		Question:        strings.TrimSpace(question),
		ReferenceAnswer: strings.TrimSpace(referenceAnswer),
		QuestionType:    questionType,
		Level:           level,
		SchedulingState: state,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}

	return item, nil
}

// Validate checks if the Item has valid data.
func (i *Item) Validate() error {
	if i.ID == uuid.Nil {
		return ErrItemIDEmpty
	}
	if i.OwnerID == uuid.Nil {
		return ErrItemOwnerIDEmpty
	}
	if i.PoolID == uuid.Nil {
		return ErrItemPoolIDEmpty
	}
	if i.Concept == "" {
		return ErrItemConceptEmpty
	}
	if i.Question == "" {
		return ErrItemQuestionEmpty
	}
	switch i.QuestionType {
	case QuestionTypeRecall, QuestionTypeUnderstanding, QuestionTypeApplication, QuestionTypeAnalysis:
	default:
		return ErrInvalidQuestionType
	}
	if i.Box < 1 || i.Box > MaxBox {
		return ErrInvalidBox
	}
	return nil
}

// IsDue reports whether the item is due at now.
func (i *Item) IsDue(now time.Time) bool {
	return !i.DueAt.After(now)
}

// ItemWithOrigin is an item annotated with the pool it came from.
// It is produced when due items of several pools are merged.
type ItemWithOrigin struct {
	PoolID    uuid.UUID `json:"pool_id"`
	PoolTitle string    `json:"pool_title"`
	Item      *Item     `json:"item"`
}
