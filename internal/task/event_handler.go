package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/events"
)

// TaskFactoryEventHandler implements the events.EventHandler interface. It
// turns events into tasks through the registry and submits them.
type TaskFactoryEventHandler struct {
	// routes maps an event type to the task type it starts.
	routes    map[string]string
	registry  *Registry
	submitter Submitter
	logger    *slog.Logger
}

// NewTaskFactoryEventHandler creates an event handler. routes maps event
// types to registered task types; the event payload becomes the task payload.
func NewTaskFactoryEventHandler(
	routes map[string]string,
	registry *Registry,
	submitter Submitter,
	logger *slog.Logger,
) *TaskFactoryEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	copied := make(map[string]string, len(routes))
	for k, v := range routes {
		copied[k] = v
	}
	return &TaskFactoryEventHandler{
		routes:    copied,
		registry:  registry,
		submitter: submitter,
		logger:    logger.With(slog.String("component", "task_factory_event_handler")),
	}
}

// HandleEvent creates and submits the task routed from the event type.
// Events without a route are ignored.
func (h *TaskFactoryEventHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	taskType, ok := h.routes[event.Type]
	if !ok {
		h.logger.Debug("ignoring event with unsupported type",
			slog.String("event_type", event.Type),
			slog.String("event_id", event.ID.String()))
		return nil
	}

	t, err := h.registry.Build(Record{
		ID:      uuid.New(),
		Type:    taskType,
		Payload: event.Payload,
		Status:  TaskStatusPending,
	})
	if err != nil {
		h.logger.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("event_type", event.Type),
			slog.String("event_id", event.ID.String()))
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.submitter.Submit(ctx, t); err != nil {
		h.logger.Error("failed to submit task",
			slog.String("error", err.Error()),
			slog.String("task_id", t.ID().String()),
			slog.String("event_id", event.ID.String()))
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.Info("task created and submitted successfully",
		slog.String("task_id", t.ID().String()),
		slog.String("task_type", taskType),
		slog.String("event_id", event.ID.String()))
	return nil
}

// Ensure TaskFactoryEventHandler implements events.EventHandler
var _ events.EventHandler = (*TaskFactoryEventHandler)(nil)
