package events

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIncorrectEvent(t *testing.T) *TaskRequestEvent {
	t.Helper()
	event, err := NewTaskRequestEvent(TypeAnswerIncorrect, AnswerIncorrectPayload{SubmissionID: uuid.New()})
	require.NoError(t, err)
	return event
}

func TestInMemoryEventEmitter(t *testing.T) {
	t.Parallel()

	t.Run("emit event with no handlers", func(t *testing.T) {
		t.Parallel()

		log, buf := logger.GetTestLogger(t)
		emitter := NewInMemoryEventEmitter(log)

		assert.NoError(t, emitter.EmitEvent(context.Background(), newIncorrectEvent(t)))
		logger.AssertLogContains(t, buf, `"event_type":"answer.incorrect"`)
		logger.AssertLogContains(t, buf, "no handlers registered")
	})

	t.Run("emit event with successful handlers", func(t *testing.T) {
		t.Parallel()

		emitter := NewInMemoryEventEmitter(nil)
		handler1 := &MockEventHandler{}
		handler2 := &MockEventHandler{}
		emitter.RegisterHandler(handler1)
		emitter.RegisterHandler(handler2)

		event := newIncorrectEvent(t)
		require.NoError(t, emitter.EmitEvent(context.Background(), event))

		assert.Equal(t, 1, handler1.HandledCount)
		assert.Equal(t, 1, handler2.HandledCount)
		assert.Equal(t, event, handler1.LastEvent)
		assert.Equal(t, event, handler2.LastEvent)
	})

	t.Run("emit event with failing handlers", func(t *testing.T) {
		t.Parallel()

		log, buf := logger.GetTestLogger(t)
		emitter := NewInMemoryEventEmitter(log)

		first := errors.New("queue full")
		second := errors.New("registry missing task type")
		success := &MockEventHandler{}
		emitter.RegisterHandler(&MockEventHandler{HandlerError: first})
		emitter.RegisterHandler(success)
		emitter.RegisterHandler(&MockEventHandler{HandlerError: second})

		event := newIncorrectEvent(t)
		err := emitter.EmitEvent(context.Background(), event)
		require.Error(t, err)
		assert.ErrorIs(t, err, first)
		assert.ErrorIs(t, err, second)
		assert.Equal(t, 1, success.HandledCount, "a failing handler does not stop delivery")

		entries, err := buf.GetLogEntries()
		require.NoError(t, err)
		var failures int
		for _, e := range entries {
			if e["msg"] != "event handler failed" {
				continue
			}
			failures++
			assert.Equal(t, event.ID.String(), e["event_id"])
			assert.Equal(t, TypeAnswerIncorrect, e["event_type"])
		}
		assert.Equal(t, 2, failures)
	})

	t.Run("uses the request logger from the context", func(t *testing.T) {
		t.Parallel()

		ctx, _, buf := logger.NewLogCaptureContext(t)
		emitter := NewInMemoryEventEmitter(nil)
		emitter.RegisterHandler(&MockEventHandler{})

		require.NoError(t, emitter.EmitEvent(ctx, newIncorrectEvent(t)))
		logger.AssertLogContains(t, buf, "emitting event")
	})

	t.Run("nil event", func(t *testing.T) {
		t.Parallel()

		handler := &MockEventHandler{}
		emitter := NewInMemoryEventEmitter(nil)
		emitter.RegisterHandler(handler)

		assert.Error(t, emitter.EmitEvent(context.Background(), nil))
		assert.Zero(t, handler.HandledCount)
	})
}
