package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/generation"
)

// MockGenerator implements generation.QuestionGenerator for testing
type MockGenerator struct {
	// GenerateQuestionFn allows test cases to mock the GenerateQuestion behavior
	GenerateQuestionFn func(ctx context.Context, req generation.QuestionRequest) (*generation.GeneratedQuestion, error)

	// Err is returned when GenerateQuestionFn is nil and Err is set.
	Err error

	mu       sync.Mutex
	requests []generation.QuestionRequest
}

// GenerateQuestion implements generation.QuestionGenerator. Without a custom
// function it returns a question derived from the concept name.
func (m *MockGenerator) GenerateQuestion(
	ctx context.Context,
	req generation.QuestionRequest,
) (*generation.GeneratedQuestion, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.GenerateQuestionFn != nil {
		return m.GenerateQuestionFn(ctx, req)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &generation.GeneratedQuestion{
		Question:        "Q: " + req.Concept,
		ReferenceAnswer: "A: " + req.Concept,
		Type:            domain.QuestionTypeRecall,
		Level:           domain.LevelEasy,
	}, nil
}

// Requests returns a copy of the requests received so far.
func (m *MockGenerator) Requests() []generation.QuestionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]generation.QuestionRequest(nil), m.requests...)
}

// MockJudge implements generation.Judge for testing
type MockJudge struct {
	// JudgeFn allows test cases to mock the Judge behavior
	JudgeFn func(ctx context.Context, req generation.JudgeRequest) (*generation.Judgment, error)

	// Judgment and Err are returned when JudgeFn is nil.
	Judgment *generation.Judgment
	Err      error

	mu    sync.Mutex
	calls int
}

// Judge implements generation.Judge.
func (m *MockJudge) Judge(ctx context.Context, req generation.JudgeRequest) (*generation.Judgment, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.JudgeFn != nil {
		return m.JudgeFn(ctx, req)
	}
	return m.Judgment, m.Err
}

// Calls returns how many times Judge was called.
func (m *MockJudge) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockExplainer implements generation.Explainer for testing
type MockExplainer struct {
	ExplainFn func(ctx context.Context, req generation.ExplainRequest) (string, error)

	Text string
	Err  error
}

// Explain implements generation.Explainer.
func (m *MockExplainer) Explain(ctx context.Context, req generation.ExplainRequest) (string, error) {
	if m.ExplainFn != nil {
		return m.ExplainFn(ctx, req)
	}
	return m.Text, m.Err
}

var (
	_ generation.QuestionGenerator = (*MockGenerator)(nil)
	_ generation.Judge             = (*MockJudge)(nil)
	_ generation.Explainer         = (*MockExplainer)(nil)
)
