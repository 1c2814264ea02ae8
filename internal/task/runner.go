package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// StuckTaskAge defines how long a task can be in processing state
	// before it's considered stuck and reset
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defines how often to check for stuck tasks
	// and for pending tasks that never made it into the queue.
	// If zero, defaults to 5 minutes
	StuckTaskCheckInterval time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            2,
		QueueSize:              100,
		StuckTaskAge:           30 * time.Minute,
		StuckTaskCheckInterval: 5 * time.Minute,
	}
}

// TaskRunner manages background task processing. It persists tasks through a
// TaskStore, feeds them to a WorkerPool through a TaskQueue and rebuilds
// unfinished tasks from the store with a Registry.
type TaskRunner struct {
	store    TaskStore
	registry *Registry
	queue    *TaskQueue
	pool     *WorkerPool
	config   TaskRunnerConfig
	logger   *slog.Logger

	errHandler func(task Task, err error)

	// queued holds the IDs of tasks sitting in the queue or being processed,
	// so sweeps never enqueue the same task twice.
	mu     sync.Mutex
	queued map[uuid.UUID]struct{}

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopOnce   sync.Once
}

// NewTaskRunner creates a new TaskRunner
func NewTaskRunner(
	store TaskStore,
	registry *Registry,
	config TaskRunnerConfig,
	logger *slog.Logger,
) *TaskRunner {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = NewRegistry()
	}
	if config.StuckTaskCheckInterval == 0 {
		config.StuckTaskCheckInterval = 5 * time.Minute
	}
	logger = logger.With("component", "task_runner")

	ctx, cancel := context.WithCancel(context.Background())

	r := &TaskRunner{
		store:      store,
		registry:   registry,
		queue:      NewTaskQueue(config.QueueSize, logger),
		config:     config,
		logger:     logger,
		queued:     make(map[uuid.UUID]struct{}),
		ctx:        ctx,
		cancelFunc: cancel,
		errHandler: func(task Task, err error) {
			logger.Error("task execution failed",
				"task_id", task.ID(),
				"task_type", task.Type(),
				"error", err)
		},
	}
	r.pool = NewWorkerPool(r.queue, WorkerPoolConfig{WorkerCount: config.WorkerCount}, logger)
	r.pool.SetProcessor(r.processTask)
	return r
}

// SetErrorHandler allows setting a custom error handler function
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.errHandler = handler
}

// Registry returns the factories used to rebuild stored tasks.
func (r *TaskRunner) Registry() *Registry {
	return r.registry
}

// Submit saves the task and offers it to the workers.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	if err := r.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	r.Enqueue(task)
	return nil
}

// Enqueue offers a persisted task to the workers. When the queue is full or
// closed the task stays pending in the store and a later sweep picks it up.
func (r *TaskRunner) Enqueue(task Task) {
	r.mu.Lock()
	if _, ok := r.queued[task.ID()]; ok {
		r.mu.Unlock()
		return
	}
	r.queued[task.ID()] = struct{}{}
	r.mu.Unlock()

	if err := r.queue.Enqueue(task); err != nil {
		r.release(task.ID())
		r.logger.Warn("task left pending in store",
			"task_id", task.ID(),
			"task_type", task.Type(),
			"reason", err.Error())
	}
}

// Start recovers unfinished tasks and begins processing.
func (r *TaskRunner) Start(ctx context.Context) error {
	if err := r.Recover(ctx); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	r.pool.Start()

	r.wg.Add(1)
	go r.stuckTaskMonitor()

	return nil
}

// Stop gracefully shuts down the task runner. Tasks interrupted by the
// shutdown stay in the processing state and are reset by the next Recover.
func (r *TaskRunner) Stop() {
	r.stopOnce.Do(func() {
		r.cancelFunc()
		r.wg.Wait()
		r.pool.Stop()
		r.queue.Close()
	})
}

// Recover loads any unfinished tasks from the database
func (r *TaskRunner) Recover(ctx context.Context) error {
	pendingTasks, err := r.store.GetPendingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	// Tasks left in processing were interrupted by a crash or shutdown.
	processingTasks, err := r.store.GetProcessingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	r.logger.Info("recovering unfinished tasks",
		"pending_count", len(pendingTasks),
		"processing_count", len(processingTasks))

	for _, rec := range pendingTasks {
		r.requeue(ctx, rec)
	}

	for _, rec := range processingTasks {
		if err := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusPending, "Reset after recovery"); err != nil {
			r.logger.Error("failed to reset processing task status",
				"task_id", rec.ID,
				"task_type", rec.Type,
				"error", err)
			continue
		}
		r.requeue(ctx, rec)
	}

	return nil
}

// requeue rebuilds a stored task and offers it to the workers. Records with
// no registered factory are marked failed so they are not retried forever.
func (r *TaskRunner) requeue(ctx context.Context, rec Record) {
	t, err := r.registry.Build(rec)
	if err != nil {
		r.logger.Error("failed to rebuild stored task",
			"task_id", rec.ID,
			"task_type", rec.Type,
			"error", err)
		if updateErr := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusFailed, err.Error()); updateErr != nil {
			r.logger.Error("failed to mark unrebuildable task as failed",
				"task_id", rec.ID,
				"error", updateErr)
		}
		return
	}
	r.Enqueue(t)
}

func (r *TaskRunner) release(id uuid.UUID) {
	r.mu.Lock()
	delete(r.queued, id)
	r.mu.Unlock()
}

// processTask handles execution of a single task
func (r *TaskRunner) processTask(ctx context.Context, task Task, workerID int) {
	defer r.release(task.ID())

	// Status writes must survive a shutdown that cancels ctx.
	storeCtx := context.WithoutCancel(ctx)
	logger := r.logger.With(
		"task_id", task.ID(),
		"task_type", task.Type(),
		"worker_id", workerID,
	)

	if err := r.store.UpdateTaskStatus(storeCtx, task.ID(), TaskStatusProcessing, ""); err != nil {
		logger.Error("failed to update task status to processing", "error", err)
		return
	}

	logger.Info("processing task")

	err := execute(ctx, task)

	switch {
	case err == nil:
		logger.Info("task completed successfully")
		if updateErr := r.store.UpdateTaskStatus(storeCtx, task.ID(), TaskStatusCompleted, ""); updateErr != nil {
			logger.Error("failed to update task status to completed", "error", updateErr)
		}

	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		logger.Warn("task interrupted by shutdown, leaving it for recovery", "error", err)

	default:
		logger.Error("task execution failed", "error", err)
		if updateErr := r.store.UpdateTaskStatus(storeCtx, task.ID(), TaskStatusFailed, err.Error()); updateErr != nil {
			logger.Error("failed to update task status to failed", "error", updateErr)
		}
		r.errHandler(task, err)
	}
}

// stuckTaskMonitor periodically resets tasks that have been processing for
// too long and requeues pending tasks that were dropped by a full queue.
func (r *TaskRunner) stuckTaskMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.sweep(r.ctx)
		}
	}
}

func (r *TaskRunner) sweep(ctx context.Context) {
	stuckTasks, err := r.store.GetProcessingTasks(ctx, r.config.StuckTaskAge)
	if err != nil {
		r.logger.Error("failed to check for stuck tasks", "error", err)
	} else if len(stuckTasks) > 0 {
		r.logger.Info("found stuck tasks", "count", len(stuckTasks))
		for _, rec := range stuckTasks {
			if r.isQueued(rec.ID) {
				continue
			}
			if err := r.store.UpdateTaskStatus(ctx, rec.ID, TaskStatusPending,
				"Reset after being stuck in processing state"); err != nil {
				r.logger.Error("failed to reset stuck task status",
					"task_id", rec.ID,
					"task_type", rec.Type,
					"error", err)
				continue
			}
			r.requeue(ctx, rec)
		}
	}

	pendingTasks, err := r.store.GetPendingTasks(ctx, r.config.StuckTaskCheckInterval)
	if err != nil {
		r.logger.Error("failed to check for orphaned pending tasks", "error", err)
		return
	}
	for _, rec := range pendingTasks {
		if r.isQueued(rec.ID) {
			continue
		}
		r.requeue(ctx, rec)
	}
}

// execute runs the task and turns a panic into an error.
func execute(ctx context.Context, task Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()
	return task.Execute(ctx)
}

func (r *TaskRunner) isQueued(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.queued[id]
	return ok
}

var _ Submitter = (*TaskRunner)(nil)
