package generation

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/phrazzld/recall-api/internal/domain"
)

// DefaultOverlapThreshold is the share of reference tokens an answer must
// contain to be judged correct offline.
const DefaultOverlapThreshold = 0.6

// OfflineQuestionGenerator builds questions from a fixed template. The
// reference answer is the concept's study material, or the concept itself
// when there is none.
type OfflineQuestionGenerator struct{}

// GenerateQuestion implements QuestionGenerator.
func (OfflineQuestionGenerator) GenerateQuestion(_ context.Context, req QuestionRequest) (*GeneratedQuestion, error) {
	concept := strings.TrimSpace(req.Concept)
	if concept == "" {
		return nil, ErrEmptyInput
	}

	q := &GeneratedQuestion{
		Question:        fmt.Sprintf("What is %s?", concept),
		ReferenceAnswer: concept,
		Type:            domain.QuestionTypeRecall,
		Level:           domain.LevelEasy,
	}
	if content := strings.TrimSpace(req.Content); content != "" {
		q.Question = fmt.Sprintf("Explain %s in your own words.", concept)
		q.ReferenceAnswer = content
		q.Type = domain.QuestionTypeUnderstanding
		q.Level = domain.LevelMedium
	}
	return q, nil
}

// OfflineJudge compares answers to the reference answer textually. An
// answer is correct when either normalised text contains the other, or when
// it covers at least Threshold of the reference's significant tokens.
type OfflineJudge struct {
	Threshold float64
}

// Judge implements Judge.
func (j OfflineJudge) Judge(_ context.Context, req JudgeRequest) (*Judgment, error) {
	answer := normalize(req.Answer)
	reference := normalize(req.ReferenceAnswer)

	if answer == "" {
		return &Judgment{Verdict: domain.VerdictIncorrect, Explanation: "No answer was given."}, nil
	}
	if reference == "" {
		return nil, fmt.Errorf("%w: reference answer", ErrEmptyInput)
	}

	// A fragment of the reference only counts when it is at least half of it.
	partial := strings.Contains(reference, answer) && 2*len(answer) >= len(reference)
	if strings.Contains(answer, reference) || partial {
		return &Judgment{Verdict: domain.VerdictCorrect, Explanation: "The answer matches the reference answer."}, nil
	}

	threshold := j.Threshold
	if threshold <= 0 {
		threshold = DefaultOverlapThreshold
	}
	overlap := tokenOverlap(answer, reference)
	if overlap >= threshold {
		return &Judgment{
			Verdict:     domain.VerdictCorrect,
			Explanation: fmt.Sprintf("The answer covers %.0f%% of the key terms.", overlap*100),
		}, nil
	}
	return &Judgment{
		Verdict:     domain.VerdictIncorrect,
		Explanation: fmt.Sprintf("The answer covers only %.0f%% of the key terms.", overlap*100),
	}, nil
}

// OfflineExplainer restates the reference answer.
type OfflineExplainer struct{}

// Explain implements Explainer.
func (OfflineExplainer) Explain(_ context.Context, req ExplainRequest) (string, error) {
	concept := strings.TrimSpace(req.Concept)
	if concept == "" {
		return "", ErrEmptyInput
	}
	text := fmt.Sprintf("Not quite, but you're close to getting %s. The key idea is: %s",
		concept, strings.TrimSpace(req.ReferenceAnswer))
	return LimitSentences(text, MaxFeedbackSentences), nil
}

// NewOffline returns the deterministic collaborators.
func NewOffline() Collaborators {
	return Collaborators{
		Generator: OfflineQuestionGenerator{},
		Judge:     OfflineJudge{Threshold: DefaultOverlapThreshold},
		Explainer: OfflineExplainer{},
	}
}

// stopWords are ignored when measuring token overlap.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "to": {}, "in": {}, "on": {}, "and": {},
	"or": {}, "is": {}, "are": {}, "was": {}, "be": {}, "it": {}, "its": {}, "that": {},
	"this": {}, "for": {}, "with": {}, "as": {}, "by": {}, "at": {}, "from": {},
}

// normalize lowercases s, drops punctuation and collapses whitespace.
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func significantTokens(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		if _, stop := stopWords[tok]; stop {
			continue
		}
		out[tok] = struct{}{}
	}
	return out
}

// tokenOverlap returns the share of reference tokens present in answer.
func tokenOverlap(answer, reference string) float64 {
	ref := significantTokens(reference)
	if len(ref) == 0 {
		return 0
	}
	ans := significantTokens(answer)
	hits := 0
	for tok := range ref {
		if _, ok := ans[tok]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(ref))
}

// LimitSentences trims text to at most n sentences.
func LimitSentences(text string, n int) string {
	text = strings.TrimSpace(text)
	if n <= 0 || text == "" {
		return text
	}
	count := 0
	for i, r := range text {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		next := i + 1
		if next < len(text) && !unicode.IsSpace(rune(text[next])) {
			continue
		}
		count++
		if count == n {
			return text[:next]
		}
	}
	return text
}

var (
	_ QuestionGenerator = OfflineQuestionGenerator{}
	_ Judge             = OfflineJudge{}
	_ Explainer         = OfflineExplainer{}
)
