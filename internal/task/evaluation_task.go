package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNilEvaluator    = errors.New("evaluator cannot be nil")
	ErrNilReexplainer  = errors.New("reexplainer cannot be nil")
	ErrNilLogger       = errors.New("logger cannot be nil")
	ErrEmptySubmission = errors.New("submission ID cannot be empty")
	ErrInvalidPayload  = errors.New("invalid task payload")
)

// Evaluator judges a stored submission and commits the outcome.
type Evaluator interface {
	// EvaluateSubmission runs the judgment and commit for one submission.
	// It is idempotent: a submission that is already terminal is skipped.
	EvaluateSubmission(ctx context.Context, submissionID uuid.UUID) error
}

// submissionPayload is the serialized data of both submission task types.
type submissionPayload struct {
	SubmissionID uuid.UUID `json:"submission_id"`
}

func decodeSubmissionPayload(payload []byte) (uuid.UUID, error) {
	var p submissionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if p.SubmissionID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidPayload, ErrEmptySubmission)
	}
	return p.SubmissionID, nil
}

// EvaluationTask implements the Task interface for judging one submission.
type EvaluationTask struct {
	id           uuid.UUID
	submissionID uuid.UUID
	evaluator    Evaluator
	logger       *slog.Logger
	status       TaskStatus
}

// NewEvaluationTask creates a new evaluation task with a fresh ID.
func NewEvaluationTask(submissionID uuid.UUID, evaluator Evaluator, logger *slog.Logger) (*EvaluationTask, error) {
	return newEvaluationTask(uuid.New(), submissionID, evaluator, logger)
}

func newEvaluationTask(
	id, submissionID uuid.UUID,
	evaluator Evaluator,
	logger *slog.Logger,
) (*EvaluationTask, error) {
	if evaluator == nil {
		return nil, ErrNilEvaluator
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if submissionID == uuid.Nil {
		return nil, ErrEmptySubmission
	}

	return &EvaluationTask{
		id:           id,
		submissionID: submissionID,
		evaluator:    evaluator,
		logger:       logger.With("task_type", TaskTypeEvaluation, "submission_id", submissionID),
		status:       TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *EvaluationTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *EvaluationTask) Type() string {
	return TaskTypeEvaluation
}

// SubmissionID returns the submission this task evaluates.
func (t *EvaluationTask) SubmissionID() uuid.UUID {
	return t.submissionID
}

// Payload returns the task data as a byte slice
func (t *EvaluationTask) Payload() []byte {
	data, err := json.Marshal(submissionPayload{SubmissionID: t.submissionID})
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}
	return data
}

// Status returns the current task status
func (t *EvaluationTask) Status() TaskStatus {
	return t.status
}

// Execute judges the submission and commits the scheduling transition.
func (t *EvaluationTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.Info("starting evaluation task")

	if err := ctx.Err(); err != nil {
		t.logger.Warn("task cancelled by context", "error", err)
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	if err := t.evaluator.EvaluateSubmission(ctx, t.submissionID); err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("evaluation failed", "error", err)
		return fmt.Errorf("failed to evaluate submission: %w", err)
	}

	t.status = TaskStatusCompleted
	t.logger.Info("evaluation task completed")
	return nil
}

// EvaluationTaskFactory creates EvaluationTask instances
type EvaluationTaskFactory struct {
	evaluator Evaluator
	logger    *slog.Logger
}

// NewEvaluationTaskFactory creates a new factory for EvaluationTasks
func NewEvaluationTaskFactory(evaluator Evaluator, logger *slog.Logger) *EvaluationTaskFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &EvaluationTaskFactory{
		evaluator: evaluator,
		logger:    logger.With("component", "evaluation_task_factory"),
	}
}

// CreateTask creates a new EvaluationTask for the specified submission
func (f *EvaluationTaskFactory) CreateTask(submissionID uuid.UUID) (Task, error) {
	return NewEvaluationTask(submissionID, f.evaluator, f.logger)
}

// Rebuild implements Factory for tasks loaded from the store.
func (f *EvaluationTaskFactory) Rebuild(id uuid.UUID, payload []byte) (Task, error) {
	submissionID, err := decodeSubmissionPayload(payload)
	if err != nil {
		return nil, err
	}
	return newEvaluationTask(id, submissionID, f.evaluator, f.logger)
}
