package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Reexplainer produces and stores feedback for an incorrect answer.
type Reexplainer interface {
	Reexplain(ctx context.Context, submissionID uuid.UUID) error
}

// ReexplanationTask implements the Task interface for writing feedback on
// a submission judged incorrect.
type ReexplanationTask struct {
	id           uuid.UUID
	submissionID uuid.UUID
	reexplainer  Reexplainer
	logger       *slog.Logger
	status       TaskStatus
}

// NewReexplanationTask creates a new re-explanation task with a fresh ID.
func NewReexplanationTask(
	submissionID uuid.UUID,
	reexplainer Reexplainer,
	logger *slog.Logger,
) (*ReexplanationTask, error) {
	return newReexplanationTask(uuid.New(), submissionID, reexplainer, logger)
}

func newReexplanationTask(
	id, submissionID uuid.UUID,
	reexplainer Reexplainer,
	logger *slog.Logger,
) (*ReexplanationTask, error) {
	if reexplainer == nil {
		return nil, ErrNilReexplainer
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if submissionID == uuid.Nil {
		return nil, ErrEmptySubmission
	}

	return &ReexplanationTask{
		id:           id,
		submissionID: submissionID,
		reexplainer:  reexplainer,
		logger:       logger.With("task_type", TaskTypeReexplanation, "submission_id", submissionID),
		status:       TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *ReexplanationTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *ReexplanationTask) Type() string {
	return TaskTypeReexplanation
}

// Payload returns the task data as a byte slice
func (t *ReexplanationTask) Payload() []byte {
	data, err := json.Marshal(submissionPayload{SubmissionID: t.submissionID})
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}
	return data
}

// Status returns the current task status
func (t *ReexplanationTask) Status() TaskStatus {
	return t.status
}

// Execute generates the feedback text. Failures only lose the feedback; the
// verdict and scheduling are already committed.
func (t *ReexplanationTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing

	if err := t.reexplainer.Reexplain(ctx, t.submissionID); err != nil {
		t.status = TaskStatusFailed
		t.logger.Error("re-explanation failed", "error", err)
		return fmt.Errorf("failed to re-explain submission: %w", err)
	}

	t.status = TaskStatusCompleted
	t.logger.Debug("re-explanation stored")
	return nil
}

// ReexplanationTaskFactory creates ReexplanationTask instances
type ReexplanationTaskFactory struct {
	reexplainer Reexplainer
	logger      *slog.Logger
}

// NewReexplanationTaskFactory creates a new factory for ReexplanationTasks
func NewReexplanationTaskFactory(reexplainer Reexplainer, logger *slog.Logger) *ReexplanationTaskFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReexplanationTaskFactory{
		reexplainer: reexplainer,
		logger:      logger.With("component", "reexplanation_task_factory"),
	}
}

// Rebuild implements Factory for tasks loaded from the store and for events.
func (f *ReexplanationTaskFactory) Rebuild(id uuid.UUID, payload []byte) (Task, error) {
	submissionID, err := decodeSubmissionPayload(payload)
	if err != nil {
		return nil, err
	}
	return newReexplanationTask(id, submissionID, f.reexplainer, f.logger)
}
