package srs

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/phrazzld/recall-api/internal/domain"
)

// Common errors
var (
	ErrInvalidState   = errors.New("invalid scheduling state")
	ErrInvalidVerdict = domain.ErrInvalidVerdict
)

// Service defines the scheduler operations.
// All methods are deterministic and free of side effects.
type Service interface {
	// Transition computes the scheduling state that results from applying
	// verdict to state at now. The input is not modified.
	Transition(
		state domain.SchedulingState,
		verdict domain.Verdict,
		now time.Time,
	) (domain.SchedulingState, error)

	// InitialState returns the state of a newly generated item: box 1, due now.
	InitialState(now time.Time) domain.SchedulingState

	// Interval returns the review interval of an item in box with the given stability.
	Interval(box int, stability float64) (time.Duration, error)

	// MaxBox returns the highest box.
	MaxBox() int

	// MasteryThreshold returns the lowest box counted as mastered.
	MasteryThreshold() int
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new scheduler with default parameters
func NewDefaultService() (Service, error) {
	return NewServiceWithParams(NewDefaultParams())
}

// NewServiceWithParams creates a new scheduler with custom parameters.
func NewServiceWithParams(params *Params) (Service, error) {
	if params == nil {
		return nil, fmt.Errorf("%w: params cannot be nil", ErrInvalidParams)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &defaultService{
		params: params,
	}, nil
}

// Transition implements the Service interface
func (s *defaultService) Transition(
	state domain.SchedulingState,
	verdict domain.Verdict,
	now time.Time,
) (domain.SchedulingState, error) {
	if !verdict.Valid() {
		return domain.SchedulingState{}, fmt.Errorf("%w: %q", ErrInvalidVerdict, verdict)
	}
	if err := s.validateState(state); err != nil {
		return domain.SchedulingState{}, err
	}

	return transition(state, verdict, now, s.params), nil
}

// InitialState implements the Service interface
func (s *defaultService) InitialState(now time.Time) domain.SchedulingState {
	return domain.SchedulingState{
		Box:         1,
		Stability:   s.params.InitialStability,
		Difficulty:  s.params.InitialDifficulty,
		DueAt:       now.UTC(),
		LastOutcome: domain.OutcomeNone,
	}
}

// Interval implements the Service interface
func (s *defaultService) Interval(box int, stability float64) (time.Duration, error) {
	if box < 1 || box > s.params.MaxBox {
		return 0, fmt.Errorf("%w: box %d", ErrInvalidState, box)
	}
	if stability <= 0 || math.IsNaN(stability) {
		return 0, fmt.Errorf("%w: stability %v", ErrInvalidState, stability)
	}
	return interval(box, stability, s.params), nil
}

// MaxBox implements the Service interface
func (s *defaultService) MaxBox() int {
	return s.params.MaxBox
}

// MasteryThreshold implements the Service interface
func (s *defaultService) MasteryThreshold() int {
	return s.params.MasteryThreshold
}

func (s *defaultService) validateState(state domain.SchedulingState) error {
	if state.Box < 1 || state.Box > s.params.MaxBox {
		return fmt.Errorf("%w: box %d outside [1, %d]", ErrInvalidState, state.Box, s.params.MaxBox)
	}
	if state.Stability <= 0 || math.IsNaN(state.Stability) || math.IsInf(state.Stability, 0) {
		return fmt.Errorf("%w: stability %v", ErrInvalidState, state.Stability)
	}
	if state.Difficulty < minDifficulty || state.Difficulty > maxDifficulty || math.IsNaN(state.Difficulty) {
		return fmt.Errorf("%w: difficulty %v", ErrInvalidState, state.Difficulty)
	}
	return nil
}
