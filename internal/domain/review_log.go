package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReviewLog records one applied scheduler transition. There is exactly one
// log per evaluated submission, which makes the transition idempotent.
type ReviewLog struct {
	SubmissionID     uuid.UUID `json:"submission_id"`
	ItemID           uuid.UUID `json:"item_id"`
	Verdict          Verdict   `json:"verdict"`
	BoxBefore        int       `json:"box_before"`
	BoxAfter         int       `json:"box_after"`
	StabilityBefore  float64   `json:"stability_before"`
	StabilityAfter   float64   `json:"stability_after"`
	DifficultyBefore float64   `json:"difficulty_before"`
	DifficultyAfter  float64   `json:"difficulty_after"`
	DueAtAfter       time.Time `json:"due_at_after"`
	CommittedAt      time.Time `json:"committed_at"`
}

// NewReviewLog builds the log entry for a transition from before to after.
func NewReviewLog(
	submissionID, itemID uuid.UUID,
	verdict Verdict,
	before, after SchedulingState,
	committedAt time.Time,
) *ReviewLog {
	return &ReviewLog{
		SubmissionID:     submissionID,
		ItemID:           itemID,
		Verdict:          verdict,
		BoxBefore:        before.Box,
		BoxAfter:         after.Box,
		StabilityBefore:  before.Stability,
		StabilityAfter:   after.Stability,
		DifficultyBefore: before.Difficulty,
		DifficultyAfter:  after.Difficulty,
		DueAtAfter:       after.DueAt,
		CommittedAt:      committedAt.UTC(),
	}
}
