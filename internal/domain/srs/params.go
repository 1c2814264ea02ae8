package srs

import (
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/recall-api/internal/domain"
)

// ErrInvalidParams is returned when a Params value cannot produce valid schedules.
var ErrInvalidParams = errors.New("invalid scheduler parameters")

// DefaultWeights are the FSRS v4 weights used for stability and difficulty updates.
var DefaultWeights = [17]float64{
	0.4, 0.6, 2.4, 5.8, 4.93, 0.94, 0.86, 0.01, 1.49, 0.14, 0.94, 2.18,
	0.05, 0.34, 1.26, 0.29, 2.61,
}

// Params defines all configurable parameters for the scheduler.
type Params struct {
	// MaxBox is the highest Leitner box.
	MaxBox int

	// BoxIntervals holds the base interval of each box. Index 0 is box 1.
	// Intervals must be strictly increasing.
	BoxIntervals []time.Duration

	// ReexposureInterval is how soon an item answered incorrectly becomes due again.
	ReexposureInterval time.Duration

	// MasteryThreshold is the lowest box counted as mastered.
	MasteryThreshold int

	// InitialStability and InitialDifficulty seed newly generated items.
	InitialStability  float64
	InitialDifficulty float64

	// Stability bounds, in days.
	MinStability float64
	MaxStability float64

	// Stability scales the box interval by s/InitialStability clamped to these bounds.
	MinIntervalFactor float64
	MaxIntervalFactor float64

	// MinGain is the smallest relative stability gain of a correct answer at
	// difficulty 1. It shrinks linearly as difficulty rises.
	MinGain float64

	// LapseRetention caps post-lapse stability at this fraction of the previous value.
	LapseRetention float64

	// Weights are the FSRS v4 weights.
	Weights [17]float64
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance.
// Zero values keep the defaults.
type ParamsConfig struct {
	BoxIntervals       []time.Duration
	ReexposureInterval time.Duration
	MasteryThreshold   int
	InitialStability   float64
	InitialDifficulty  float64
	MinIntervalFactor  float64
	MaxIntervalFactor  float64
	MinGain            float64
	LapseRetention     float64
	Weights            []float64
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	w := DefaultWeights
	return &Params{
		MaxBox: domain.MaxBox,
		BoxIntervals: []time.Duration{
			4 * time.Hour,
			24 * time.Hour,
			72 * time.Hour,
			7 * 24 * time.Hour,
			14 * 24 * time.Hour,
		},
		ReexposureInterval: 10 * time.Minute,
		MasteryThreshold:   domain.MaxBox,
		// A first "good" rating in FSRS v4 seeds stability with w[2] and
		// difficulty with w[4].
		InitialStability:  w[2],
		InitialDifficulty: w[4],
		MinStability:      0.1,
		MaxStability:      36500,
		MinIntervalFactor: 0.5,
		MaxIntervalFactor: 4,
		MinGain:           0.1,
		LapseRetention:    0.5,
		Weights:           w,
	}
}

// NewParams creates a new Params instance with custom configuration and
// validates the result.
func NewParams(config ParamsConfig) (*Params, error) {
	params := NewDefaultParams()

	if len(config.BoxIntervals) > 0 {
		params.BoxIntervals = append([]time.Duration(nil), config.BoxIntervals...)
	}
	if config.ReexposureInterval > 0 {
		params.ReexposureInterval = config.ReexposureInterval
	}
	if config.MasteryThreshold > 0 {
		params.MasteryThreshold = config.MasteryThreshold
	}
	if config.InitialStability > 0 {
		params.InitialStability = config.InitialStability
	}
	if config.InitialDifficulty > 0 {
		params.InitialDifficulty = config.InitialDifficulty
	}
	if config.MinIntervalFactor > 0 {
		params.MinIntervalFactor = config.MinIntervalFactor
	}
	if config.MaxIntervalFactor > 0 {
		params.MaxIntervalFactor = config.MaxIntervalFactor
	}
	if config.MinGain > 0 {
		params.MinGain = config.MinGain
	}
	if config.LapseRetention > 0 {
		params.LapseRetention = config.LapseRetention
	}
	if len(config.Weights) > 0 {
		if len(config.Weights) != len(params.Weights) {
			return nil, fmt.Errorf("%w: expected %d weights, got %d",
				ErrInvalidParams, len(params.Weights), len(config.Weights))
		}
		copy(params.Weights[:], config.Weights)
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}
	return params, nil
}

// Validate checks that the parameters produce strictly positive, box-monotonic intervals.
func (p *Params) Validate() error {
	if p.MaxBox < 1 {
		return fmt.Errorf("%w: max box must be positive", ErrInvalidParams)
	}
	if len(p.BoxIntervals) != p.MaxBox {
		return fmt.Errorf("%w: expected %d box intervals, got %d",
			ErrInvalidParams, p.MaxBox, len(p.BoxIntervals))
	}
	for i, d := range p.BoxIntervals {
		if d <= 0 {
			return fmt.Errorf("%w: box %d interval must be positive", ErrInvalidParams, i+1)
		}
		if i > 0 && d <= p.BoxIntervals[i-1] {
			return fmt.Errorf("%w: box intervals must be strictly increasing", ErrInvalidParams)
		}
	}
	if p.ReexposureInterval <= 0 {
		return fmt.Errorf("%w: re-exposure interval must be positive", ErrInvalidParams)
	}
	if p.ReexposureInterval >= p.BoxIntervals[0] {
		return fmt.Errorf("%w: re-exposure interval must be shorter than the box 1 interval", ErrInvalidParams)
	}
	if p.MasteryThreshold < 1 || p.MasteryThreshold > p.MaxBox {
		return fmt.Errorf("%w: mastery threshold must be within [1, %d]", ErrInvalidParams, p.MaxBox)
	}
	if p.MinStability <= 0 || p.MaxStability < p.MinStability {
		return fmt.Errorf("%w: invalid stability bounds", ErrInvalidParams)
	}
	if p.InitialStability < p.MinStability || p.InitialStability > p.MaxStability {
		return fmt.Errorf("%w: initial stability out of bounds", ErrInvalidParams)
	}
	if p.InitialDifficulty < minDifficulty || p.InitialDifficulty > maxDifficulty {
		return fmt.Errorf("%w: initial difficulty must be within [%v, %v]",
			ErrInvalidParams, minDifficulty, maxDifficulty)
	}
	if p.MinIntervalFactor <= 0 || p.MaxIntervalFactor < p.MinIntervalFactor {
		return fmt.Errorf("%w: invalid interval factor bounds", ErrInvalidParams)
	}
	if p.MinGain <= 0 {
		return fmt.Errorf("%w: min gain must be positive", ErrInvalidParams)
	}
	if p.LapseRetention <= 0 || p.LapseRetention >= 1 {
		return fmt.Errorf("%w: lapse retention must be within (0, 1)", ErrInvalidParams)
	}
	return nil
}
