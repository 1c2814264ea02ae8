package task

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrUnknownTaskType is returned when no factory is registered for a task type.
var ErrUnknownTaskType = errors.New("unknown task type")

// Factory rebuilds an executable task from its persisted ID and payload.
type Factory func(id uuid.UUID, payload []byte) (Task, error)

// Registry maps task types to factories so that tasks loaded from the store
// can be executed again after a restart.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register installs the factory for taskType, replacing any previous one.
func (r *Registry) Register(taskType string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[taskType] = factory
}

// Has reports whether a factory is registered for taskType.
func (r *Registry) Has(taskType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[taskType]
	return ok
}

// Build turns a stored record into an executable task.
func (r *Registry) Build(rec Record) (Task, error) {
	r.mu.RLock()
	factory, ok := r.factories[rec.Type]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaskType, rec.Type)
	}

	t, err := factory(rec.ID, rec.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild %s task %s: %w", rec.Type, rec.ID, err)
	}
	return t, nil
}
