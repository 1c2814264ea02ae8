package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/recall-api/internal/config"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/platform/llm"
	"github.com/phrazzld/recall-api/internal/platform/logger"
)

var questionSchema = &llm.Schema{
	Name:        "generated_question",
	Description: "A study question with its reference answer",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question":         map[string]any{"type": "string", "minLength": 1},
			"reference_answer": map[string]any{"type": "string", "minLength": 1},
			"type": map[string]any{
				"type": "string",
				"enum": []string{"recall", "understanding", "application", "analysis"},
			},
			"level": map[string]any{
				"type": "string",
				"enum": []string{"easy", "medium", "hard"},
			},
		},
		"required":             []string{"question", "reference_answer", "type", "level"},
		"additionalProperties": false,
	},
}

var judgmentSchema = &llm.Schema{
	Name:        "answer_judgment",
	Description: "Whether a learner's answer is correct",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"correct":     map[string]any{"type": "boolean"},
			"explanation": map[string]any{"type": "string"},
		},
		"required":             []string{"correct", "explanation"},
		"additionalProperties": false,
	},
}

var explanationSchema = &llm.Schema{
	Name:        "reexplanation",
	Description: "A short re-explanation of a concept",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"feedback": map[string]any{"type": "string", "minLength": 1},
		},
		"required":             []string{"feedback"},
		"additionalProperties": false,
	},
}

// llmClient holds what every LLM-backed collaborator needs.
type llmClient struct {
	provider    llm.Provider
	maxTokens   int
	temperature float64
	logger      *slog.Logger
}

func newLLMClient(provider llm.Provider, cfg config.LLMConfig, log *slog.Logger, component string) llmClient {
	if provider == nil {
		panic("provider cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return llmClient{
		provider:    provider,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		logger:      log.With(slog.String("component", component)),
	}
}

// call renders p with data, sends it and decodes the JSON reply into out.
func (c llmClient) call(ctx context.Context, purpose string, p *prompt, data any, schema *llm.Schema, out any) error {
	system, user, err := p.render(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	resp, err := c.provider.Generate(llm.WithPurpose(ctx, purpose), llm.Request{
		System:      system,
		Messages:    llm.UserMessage(user),
		Schema:      schema,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return mapProviderError(err)
	}

	if err := json.Unmarshal(resp.Content, out); err != nil {
		return fmt.Errorf("%w: failed to parse JSON response: %v", ErrInvalidResponse, err)
	}
	return nil
}

// mapProviderError folds provider errors into this package's sentinels.
// The original error stays in the chain.
func mapProviderError(err error) error {
	var (
		blocked  *llm.ErrContentBlocked
		invalid  *llm.ErrInvalidResponse
		maxTok   *llm.ErrMaxTokensExceeded
		rejected *llm.ErrRequestRejected
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTransientFailure, err)
	case errors.As(err, &blocked):
		return fmt.Errorf("%w: %w", ErrContentBlocked, err)
	case errors.As(err, &invalid), errors.As(err, &maxTok):
		return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	case errors.As(err, &rejected):
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	default:
		return fmt.Errorf("%w: %w", ErrTransientFailure, err)
	}
}

// LLMQuestionGenerator generates questions with a language model.
type LLMQuestionGenerator struct {
	client llmClient
}

// NewLLMQuestionGenerator creates a generator over provider.
func NewLLMQuestionGenerator(provider llm.Provider, cfg config.LLMConfig, logger *slog.Logger) *LLMQuestionGenerator {
	return &LLMQuestionGenerator{client: newLLMClient(provider, cfg, logger, "question_generator")}
}

// GenerateQuestion implements QuestionGenerator.
func (g *LLMQuestionGenerator) GenerateQuestion(ctx context.Context, req QuestionRequest) (*GeneratedQuestion, error) {
	if strings.TrimSpace(req.Concept) == "" {
		return nil, ErrEmptyInput
	}
	log := logger.FromContextOrDefault(ctx, g.client.logger)

	var out struct {
		Question        string `json:"question"`
		ReferenceAnswer string `json:"reference_answer"`
		Type            string `json:"type"`
		Level           string `json:"level"`
	}
	if err := g.client.call(ctx, "generate", questionPrompt, req, questionSchema, &out); err != nil {
		log.WarnContext(ctx, "question generation failed",
			slog.String("concept", req.Concept),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	q := &GeneratedQuestion{
		Question:        strings.TrimSpace(out.Question),
		ReferenceAnswer: strings.TrimSpace(out.ReferenceAnswer),
		Type:            domain.ParseQuestionType(out.Type),
		Level:           domain.ParseLevel(out.Level),
	}
	if q.Question == "" || q.ReferenceAnswer == "" {
		return nil, fmt.Errorf("%w: %w: empty question or answer", ErrGenerationFailed, ErrInvalidResponse)
	}

	log.DebugContext(ctx, "question generated",
		slog.String("concept", req.Concept),
		slog.String("type", string(q.Type)))
	return q, nil
}

// LLMJudge judges answers with a language model.
type LLMJudge struct {
	client llmClient
}

// NewLLMJudge creates a judge over provider.
func NewLLMJudge(provider llm.Provider, cfg config.LLMConfig, logger *slog.Logger) *LLMJudge {
	// Grading should be repeatable.
	cfg.Temperature = 0
	return &LLMJudge{client: newLLMClient(provider, cfg, logger, "judge")}
}

// Judge implements Judge. A blank answer is judged incorrect without a call.
func (j *LLMJudge) Judge(ctx context.Context, req JudgeRequest) (*Judgment, error) {
	if strings.TrimSpace(req.Answer) == "" {
		return &Judgment{Verdict: domain.VerdictIncorrect, Explanation: "No answer was given."}, nil
	}

	var out struct {
		Correct     bool   `json:"correct"`
		Explanation string `json:"explanation"`
	}
	if err := j.client.call(ctx, "judge", judgePrompt, req, judgmentSchema, &out); err != nil {
		return nil, err
	}

	verdict := domain.VerdictIncorrect
	if out.Correct {
		verdict = domain.VerdictCorrect
	}
	return &Judgment{Verdict: verdict, Explanation: strings.TrimSpace(out.Explanation)}, nil
}

// LLMExplainer writes re-explanations with a language model.
type LLMExplainer struct {
	client llmClient
}

// NewLLMExplainer creates an explainer over provider.
func NewLLMExplainer(provider llm.Provider, cfg config.LLMConfig, logger *slog.Logger) *LLMExplainer {
	return &LLMExplainer{client: newLLMClient(provider, cfg, logger, "explainer")}
}

type explainData struct {
	ExplainRequest
	MaxSentences int
}

// Explain implements Explainer.
func (e *LLMExplainer) Explain(ctx context.Context, req ExplainRequest) (string, error) {
	if strings.TrimSpace(req.Concept) == "" {
		return "", ErrEmptyInput
	}

	var out struct {
		Feedback string `json:"feedback"`
	}
	data := explainData{ExplainRequest: req, MaxSentences: MaxFeedbackSentences}
	if err := e.client.call(ctx, "explain", explainPrompt, data, explanationSchema, &out); err != nil {
		return "", err
	}
	return LimitSentences(out.Feedback, MaxFeedbackSentences), nil
}

var (
	_ QuestionGenerator = (*LLMQuestionGenerator)(nil)
	_ Judge             = (*LLMJudge)(nil)
	_ Explainer         = (*LLMExplainer)(nil)
)
