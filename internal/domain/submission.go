package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Submission-specific validation errors
var (
	// ErrSubmissionIDEmpty is returned when a submission ID is empty or nil.
	ErrSubmissionIDEmpty = errors.New("submission ID cannot be empty")

	// ErrSubmissionItemIDEmpty is returned when a submission has no item.
	ErrSubmissionItemIDEmpty = errors.New("submission item ID cannot be empty")

	// ErrSubmissionSittingIDEmpty is returned when a submission has no sitting.
	ErrSubmissionSittingIDEmpty = errors.New("submission sitting ID cannot be empty")

	// ErrSubmissionAnswerEmpty is returned when the submitted answer is blank.
	ErrSubmissionAnswerEmpty = errors.New("submission answer cannot be empty")

	// ErrEvaluatedWithoutVerdict is returned when an evaluated record lacks a verdict.
	ErrEvaluatedWithoutVerdict = errors.New("evaluated submission must have a verdict")
)

// SubmissionStatus is the evaluation state of a submission.
type SubmissionStatus string

const (
	// SubmissionStatusPending means the answer is stored and waiting for a worker.
	SubmissionStatusPending SubmissionStatus = "pending"

	// SubmissionStatusEvaluating means a worker is judging the answer.
	SubmissionStatusEvaluating SubmissionStatus = "evaluating"

	// SubmissionStatusEvaluated means a verdict was recorded and scheduling was committed.
	SubmissionStatusEvaluated SubmissionStatus = "evaluated"

	// SubmissionStatusFailed means judgment could not be obtained. The item was not touched.
	SubmissionStatusFailed SubmissionStatus = "failed"
)

// Valid reports whether s is a known submission status.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionStatusPending, SubmissionStatusEvaluating,
		SubmissionStatusEvaluated, SubmissionStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further automatic transition will happen.
func (s SubmissionStatus) Terminal() bool {
	return s == SubmissionStatusEvaluated || s == SubmissionStatusFailed
}

// AnswerProgress summarises the submissions of one sitting: the set of items
// that have been answered, and whether every submission reached a terminal
// state. A failed submission still answers its item; the judgment is retried
// with RetryFailed, never by asking the learner again.
func AnswerProgress(subs []*Submission) (map[uuid.UUID]bool, bool) {
	answered := make(map[uuid.UUID]bool, len(subs))
	allTerminal := true
	for _, s := range subs {
		answered[s.ItemID] = true
		if !s.Status.Terminal() {
			allTerminal = false
		}
	}
	return answered, allTerminal
}

// Submission is one attempt at answering an item within a sitting.
type Submission struct {
	ID          uuid.UUID        `json:"id"`
	ItemID      uuid.UUID        `json:"item_id"`
	SittingID   uuid.UUID        `json:"sitting_id"`
	OwnerID     uuid.UUID        `json:"owner_id"`
	RawAnswer   string           `json:"raw_answer"`
	Status      SubmissionStatus `json:"status"`
	Verdict     *Verdict         `json:"verdict,omitempty"`
	Explanation *string          `json:"explanation,omitempty"`
	Feedback    *string          `json:"feedback,omitempty"`
	Attempts    int              `json:"attempts"`
	LastError   *string          `json:"last_error,omitempty"`
	EvaluatedAt *time.Time       `json:"evaluated_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// NewSubmission creates a pending submission.
func NewSubmission(ownerID, itemID, sittingID uuid.UUID, answer string) (*Submission, error) {
	now := time.Now().UTC()
	s := &Submission{
		ID:        uuid.New(),
		ItemID:    itemID,
		SittingID: sittingID,
		OwnerID:   ownerID,
		RawAnswer: answer,
		Status:    SubmissionStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// Validate checks if the Submission has valid data.
func (s *Submission) Validate() error {
	if s.ID == uuid.Nil {
		return ErrSubmissionIDEmpty
	}
	if s.ItemID == uuid.Nil {
		return ErrSubmissionItemIDEmpty
	}
	if s.SittingID == uuid.Nil {
		return ErrSubmissionSittingIDEmpty
	}
	if len(s.RawAnswer) == 0 {
		return ErrSubmissionAnswerEmpty
	}
	if !s.Status.Valid() {
		return ErrInvalidStatus
	}
	if s.Status == SubmissionStatusEvaluated && (s.Verdict == nil || !s.Verdict.Valid()) {
		return ErrEvaluatedWithoutVerdict
	}
	return nil
}
