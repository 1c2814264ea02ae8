package domain

// Verdict is the correctness judgment for a submitted answer.
type Verdict string

const (
	// VerdictCorrect indicates the answer matched the reference answer.
	VerdictCorrect Verdict = "correct"

	// VerdictIncorrect indicates the answer did not match the reference answer.
	VerdictIncorrect Verdict = "incorrect"
)

// Valid reports whether v is a known verdict.
func (v Verdict) Valid() bool {
	switch v {
	case VerdictCorrect, VerdictIncorrect:
		return true
	default:
		return false
	}
}

// Outcome is the last recorded outcome of an item.
type Outcome string

const (
	OutcomeNone      Outcome = "none"
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
)

// OutcomeFromVerdict converts a verdict into the outcome stored on an item.
func OutcomeFromVerdict(v Verdict) Outcome {
	switch v {
	case VerdictCorrect:
		return OutcomeCorrect
	case VerdictIncorrect:
		return OutcomeIncorrect
	default:
		return OutcomeNone
	}
}
