package generation

import (
	"context"

	"github.com/phrazzld/recall-api/internal/domain"
)

// QuestionRequest is the input to question generation.
type QuestionRequest struct {
	Concept string
	Content string
}

// GeneratedQuestion is a question produced for one concept.
type GeneratedQuestion struct {
	Question        string
	ReferenceAnswer string
	Type            domain.QuestionType
	Level           domain.Level
}

// QuestionGenerator creates one reviewable question per concept.
type QuestionGenerator interface {
	// GenerateQuestion returns a question testing req.Concept.
	// Errors wrap the sentinels in errors.go.
	GenerateQuestion(ctx context.Context, req QuestionRequest) (*GeneratedQuestion, error)
}

// JudgeRequest is everything the judge sees about one answer.
type JudgeRequest struct {
	Concept         string
	Question        string
	ReferenceAnswer string
	Answer          string
}

// Judgment is the judge's decision.
type Judgment struct {
	Verdict     domain.Verdict
	Explanation string
}

// Judge decides whether a free-text answer is correct.
type Judge interface {
	// Judge returns a verdict for req. A transient failure wraps
	// ErrTransientFailure and may be retried by the caller.
	Judge(ctx context.Context, req JudgeRequest) (*Judgment, error)
}

// ExplainRequest describes an incorrect answer to re-explain.
type ExplainRequest struct {
	Concept         string
	Content         string
	Question        string
	ReferenceAnswer string
	Answer          string
}

// Explainer re-explains a concept after an incorrect answer.
type Explainer interface {
	// Explain returns a short, encouraging explanation of at most
	// MaxFeedbackSentences sentences.
	Explain(ctx context.Context, req ExplainRequest) (string, error)
}

// MaxFeedbackSentences bounds the length of re-explanations.
const MaxFeedbackSentences = 3

// Collaborators bundles the three implementations wired into the services.
type Collaborators struct {
	Generator QuestionGenerator
	Judge     Judge
	Explainer Explainer
}
