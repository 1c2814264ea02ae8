package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Sitting-specific errors
var (
	// ErrSittingIDEmpty is returned when a sitting ID is empty or nil.
	ErrSittingIDEmpty = errors.New("sitting ID cannot be empty")

	// ErrSittingOwnerIDEmpty is returned when a sitting's owner ID is empty or nil.
	ErrSittingOwnerIDEmpty = errors.New("sitting owner ID cannot be empty")

	// ErrSittingEmpty is returned when a sitting would contain no items.
	ErrSittingEmpty = errors.New("sitting must contain at least one item")

	// ErrInvalidTransition is returned when a sitting cannot move to the requested state.
	ErrInvalidTransition = errors.New("invalid sitting state transition")

	// ErrSittingNotFinished is returned when completing a sitting whose cursor
	// has not passed the last item.
	ErrSittingNotFinished = errors.New("sitting has unanswered items")

	// ErrItemNotInSitting is returned when an answer targets an item outside the sitting.
	ErrItemNotInSitting = errors.New("item is not part of the sitting")
)

// SittingStatus is the lifecycle state of a sitting.
type SittingStatus string

const (
	SittingStatusBuilding           SittingStatus = "building"
	SittingStatusInProgress         SittingStatus = "in_progress"
	SittingStatusAwaitingEvaluation SittingStatus = "awaiting_evaluation"
	SittingStatusCompleted          SittingStatus = "completed"
	SittingStatusAbandoned          SittingStatus = "abandoned"
)

// Open reports whether the sitting still accepts answers.
func (s SittingStatus) Open() bool {
	return s == SittingStatusInProgress
}

// Closed reports whether the sitting reached a final state.
func (s SittingStatus) Closed() bool {
	return s == SittingStatusCompleted || s == SittingStatusAbandoned
}

// SittingItem is one entry of the fixed, ordered item list of a sitting.
type SittingItem struct {
	Position int       `json:"position"`
	ItemID   uuid.UUID `json:"item_id"`
	PoolID   uuid.UUID `json:"pool_id"`
}

// Sitting is one quiz attempt over a fixed ordered list of items.
// PoolID is nil for a sitting drawn from all of the owner's pools.
type Sitting struct {
	ID             uuid.UUID     `json:"id"`
	OwnerID        uuid.UUID     `json:"owner_id"`
	PoolID         *uuid.UUID    `json:"pool_id,omitempty"`
	Status         SittingStatus `json:"status"`
	Cursor         int           `json:"cursor"`
	Items          []SittingItem `json:"items"`
	AcknowledgedAt *time.Time    `json:"acknowledged_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// NewSitting creates a sitting in the building state. Items are numbered in
// the order given.
func NewSitting(ownerID uuid.UUID, poolID *uuid.UUID, items []SittingItem) (*Sitting, error) {
	if ownerID == uuid.Nil {
		return nil, ErrSittingOwnerIDEmpty
	}
	if len(items) == 0 {
		return nil, ErrSittingEmpty
	}

	ordered := make([]SittingItem, len(items))
	for i, it := range items {
		ordered[i] = SittingItem{Position: i, ItemID: it.ItemID, PoolID: it.PoolID}
	}

	now := time.Now().UTC()
	return &Sitting{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		PoolID:    poolID,
		Status:    SittingStatusBuilding,
		Cursor:    0,
		Items:     ordered,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsGlobal reports whether the sitting spans all pools of its owner.
func (s *Sitting) IsGlobal() bool {
	return s.PoolID == nil
}

// Contains reports whether itemID is part of the sitting.
func (s *Sitting) Contains(itemID uuid.UUID) bool {
	return s.IndexOf(itemID) >= 0
}

// IndexOf returns the position of itemID, or -1.
func (s *Sitting) IndexOf(itemID uuid.UUID) int {
	for i, it := range s.Items {
		if it.ItemID == itemID {
			return i
		}
	}
	return -1
}

// CurrentItem returns the item under the cursor, or false when the cursor has
// passed the last item.
func (s *Sitting) CurrentItem() (SittingItem, bool) {
	if s.Cursor < 0 || s.Cursor >= len(s.Items) {
		return SittingItem{}, false
	}
	return s.Items[s.Cursor], true
}

// Finished reports whether the cursor has passed the last item.
func (s *Sitting) Finished() bool {
	return s.Cursor >= len(s.Items)
}

// Start moves a building sitting into progress.
func (s *Sitting) Start() error {
	if s.Status != SittingStatusBuilding {
		return fmt.Errorf("%w: cannot start sitting in %s", ErrInvalidTransition, s.Status)
	}
	s.Status = SittingStatusInProgress
	s.touch()
	return nil
}

// FirstUnanswered returns the index of the first item for which answered
// reports false, or len(items) when every item has been answered.
func (s *Sitting) FirstUnanswered(answered func(itemID uuid.UUID) bool) int {
	for i, it := range s.Items {
		if !answered(it.ItemID) {
			return i
		}
	}
	return len(s.Items)
}

// Reposition recomputes the cursor from the answered set and, when every item
// has been answered, settles the status using allTerminal. It returns true
// when the cursor or status changed.
func (s *Sitting) Reposition(answered func(itemID uuid.UUID) bool, allTerminal bool) bool {
	if s.Status.Closed() {
		return false
	}

	before, beforeStatus := s.Cursor, s.Status
	s.Cursor = s.FirstUnanswered(answered)

	if s.Finished() {
		if allTerminal {
			s.Status = SittingStatusCompleted
		} else {
			s.Status = SittingStatusAwaitingEvaluation
		}
	}

	changed := before != s.Cursor || beforeStatus != s.Status
	if changed {
		s.touch()
	}
	return changed
}

// Complete settles a sitting whose cursor passed the last item.
func (s *Sitting) Complete(allTerminal bool) error {
	switch s.Status {
	case SittingStatusInProgress, SittingStatusAwaitingEvaluation:
	case SittingStatusCompleted:
		return nil
	default:
		return fmt.Errorf("%w: cannot complete sitting in %s", ErrInvalidTransition, s.Status)
	}

	if !s.Finished() {
		return ErrSittingNotFinished
	}

	if allTerminal {
		s.Status = SittingStatusCompleted
	} else {
		s.Status = SittingStatusAwaitingEvaluation
	}
	s.touch()
	return nil
}

// AwaitReevaluation moves a completed sitting back to awaiting_evaluation
// when one of its failed judgments is retried. Other states are left alone.
// It returns true when the status changed.
func (s *Sitting) AwaitReevaluation() bool {
	if s.Status != SittingStatusCompleted {
		return false
	}
	s.Status = SittingStatusAwaitingEvaluation
	s.touch()
	return true
}

// Abandon closes a sitting without finishing it. Submitted answers keep
// their scheduling effect.
func (s *Sitting) Abandon() error {
	if s.Status.Closed() {
		return fmt.Errorf("%w: cannot abandon sitting in %s", ErrInvalidTransition, s.Status)
	}
	s.Status = SittingStatusAbandoned
	s.touch()
	return nil
}

// Acknowledge records that the results of the sitting were seen.
func (s *Sitting) Acknowledge(now time.Time) error {
	if s.Status != SittingStatusCompleted && s.Status != SittingStatusAbandoned {
		return fmt.Errorf("%w: cannot acknowledge sitting in %s", ErrInvalidTransition, s.Status)
	}
	if s.AcknowledgedAt == nil {
		at := now.UTC()
		s.AcknowledgedAt = &at
		s.touch()
	}
	return nil
}

func (s *Sitting) touch() {
	s.UpdatedAt = time.Now().UTC()
}
