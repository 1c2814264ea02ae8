package srs

import (
	"math"
	"time"

	"github.com/phrazzld/recall-api/internal/domain"
)

const (
	minDifficulty = 1.0
	maxDifficulty = 10.0

	// FSRS ratings used for the two verdicts.
	ratingAgain = 1
	ratingGood  = 3

	// requestRetention is the retention target R decays toward after s days.
	requestRetention = 0.9
)

// retrievability estimates the probability of recall at now.
//
// Parameters:
//   - stability: current stability in days
//   - lastReviewedAt: time of the previous review, nil for a new item
//   - now: the evaluation time
//
// Returns:
//   - 0.9^(elapsed_days / stability), or 1 when the item was never reviewed
//     or now precedes the last review
func retrievability(stability float64, lastReviewedAt *time.Time, now time.Time) float64 {
	if lastReviewedAt == nil || stability <= 0 || !now.After(*lastReviewedAt) {
		return 1
	}
	elapsedDays := now.Sub(*lastReviewedAt).Hours() / 24
	return math.Pow(requestRetention, elapsedDays/stability)
}

// stabilityAfterRecall computes stability after a correct answer.
//
// Algorithm behavior:
//   - Uses the FSRS v4 recall formula
//     s * (1 + e^w8 * (11-d) * s^-w9 * (e^(w10*(1-R)) - 1))
//   - The relative gain is floored at MinGain*(11-d)/10, so a correct answer
//     always increases stability and harder items gain more slowly
//   - The result is clamped to [MinStability, MaxStability]
func stabilityAfterRecall(s, d, r float64, params *Params) float64 {
	w := params.Weights
	gain := math.Exp(w[8]) * (11 - d) * math.Pow(s, -w[9]) * (math.Exp(w[10]*(1-r)) - 1)

	floor := params.MinGain * (11 - d) / 10
	if gain < floor {
		gain = floor
	}

	return clamp(s*(1+gain), params.MinStability, params.MaxStability)
}

// stabilityAfterLapse computes stability after an incorrect answer.
//
// Algorithm behavior:
//   - Uses the FSRS v4 lapse formula
//     w11 * d^-w12 * ((s+1)^w13 - 1) * e^(w14*(1-R))
//   - Capped at LapseRetention*s so a lapse always lowers stability
//   - The result is clamped to [MinStability, MaxStability]
func stabilityAfterLapse(s, d, r float64, params *Params) float64 {
	w := params.Weights
	next := w[11] * math.Pow(d, -w[12]) * (math.Pow(s+1, w[13]) - 1) * math.Exp(w[14]*(1-r))

	if limit := s * params.LapseRetention; next > limit {
		next = limit
	}

	return clamp(next, params.MinStability, params.MaxStability)
}

// nextDifficulty applies the FSRS v4 difficulty update d - w6*(rating-3),
// clamped to [1, 10]. A correct answer leaves difficulty unchanged; a lapse
// raises it.
func nextDifficulty(d float64, rating int, params *Params) float64 {
	return clamp(d-params.Weights[6]*float64(rating-ratingGood), minDifficulty, maxDifficulty)
}

// interval returns how long an item in box waits before it is due again.
//
// Parameters:
//   - box: the Leitner box, 1-based
//   - stability: the item's stability in days
//   - params: scheduler parameters
//
// Returns:
//   - BoxIntervals[box-1] scaled by stability/InitialStability, with the scale
//     clamped to [MinIntervalFactor, MaxIntervalFactor]
//
// For a fixed stability the result is strictly increasing in box.
func interval(box int, stability float64, params *Params) time.Duration {
	base := params.BoxIntervals[box-1]
	factor := clamp(stability/params.InitialStability, params.MinIntervalFactor, params.MaxIntervalFactor)

	d := time.Duration(float64(base) * factor)
	if d <= 0 {
		return base
	}
	return d
}

// transition applies a verdict to a scheduling state.
//
// Algorithm behavior:
//   - correct: box = min(box+1, MaxBox), stability grows, difficulty is
//     unchanged, due = now + interval(box, stability)
//   - incorrect: box = 1, stability shrinks, difficulty rises,
//     due = now + ReexposureInterval
//   - box, stability, difficulty and due are always written together
//
// The input state is not modified.
func transition(
	state domain.SchedulingState,
	verdict domain.Verdict,
	now time.Time,
	params *Params,
) domain.SchedulingState {
	now = now.UTC()
	r := retrievability(state.Stability, state.LastReviewedAt, now)

	next := state
	reviewedAt := now
	next.LastReviewedAt = &reviewedAt
	next.LastOutcome = domain.OutcomeFromVerdict(verdict)
	next.ReviewCount = state.ReviewCount + 1

	switch verdict {
	case domain.VerdictCorrect:
		next.Box = state.Box + 1
		if next.Box > params.MaxBox {
			next.Box = params.MaxBox
		}
		next.Stability = stabilityAfterRecall(state.Stability, state.Difficulty, r, params)
		next.Difficulty = nextDifficulty(state.Difficulty, ratingGood, params)
		next.DueAt = now.Add(interval(next.Box, next.Stability, params))
	default:
		next.Box = 1
		next.Stability = stabilityAfterLapse(state.Stability, state.Difficulty, r, params)
		next.Difficulty = nextDifficulty(state.Difficulty, ratingAgain, params)
		next.DueAt = now.Add(params.ReexposureInterval)
		next.LapseCount = state.LapseCount + 1
	}

	return next
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
