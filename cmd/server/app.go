package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/recall-api/internal/config"
	"github.com/phrazzld/recall-api/internal/domain/srs"
	"github.com/phrazzld/recall-api/internal/events"
	"github.com/phrazzld/recall-api/internal/generation"
	"github.com/phrazzld/recall-api/internal/platform/postgres"
	"github.com/phrazzld/recall-api/internal/service"
	"github.com/phrazzld/recall-api/internal/service/auth"
	"github.com/phrazzld/recall-api/internal/service/dueset"
	"github.com/phrazzld/recall-api/internal/service/evaluation"
	"github.com/phrazzld/recall-api/internal/service/quiz"
	"github.com/phrazzld/recall-api/internal/store"
	"github.com/phrazzld/recall-api/internal/task"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	jwtService auth.JWTService
	scheduler  srs.Service

	pools      service.PoolService
	due        dueset.Service
	quiz       quiz.Service
	evaluation *evaluation.Pipeline

	emitter    *events.InMemoryEventEmitter
	taskRunner *task.TaskRunner

	// background holds goroutines started by Run that must finish before
	// the database is closed.
	background sync.WaitGroup
}

// appStores are the persistence dependencies of the application.
type appStores struct {
	tx          store.Transactor
	pools       store.PoolStore
	items       store.ItemStore
	sittings    store.SittingStore
	submissions store.SubmissionStore
	reviewLogs  store.ReviewLogStore
	tasks       task.TaskStore
}

// postgresStores returns the PostgreSQL-backed stores for db.
func postgresStores(db *sql.DB, logger *slog.Logger) appStores {
	return appStores{
		tx:          store.NewTransactor(db),
		pools:       postgres.NewPostgresPoolStore(db, logger),
		items:       postgres.NewPostgresItemStore(db, logger),
		sittings:    postgres.NewPostgresSittingStore(db, logger),
		submissions: postgres.NewPostgresSubmissionStore(db, logger),
		reviewLogs:  postgres.NewPostgresReviewLogStore(db, logger),
		tasks:       postgres.NewPostgresTaskStore(db, logger),
	}
}

// newApplication creates a new application instance with all dependencies initialized.
// It accepts core dependencies like configuration, logger, and database connection that
// must be established before application initialization. Nothing is started here.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	collaborators, err := generation.New(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize question generation: %w", err)
	}
	logger.Info("question generation initialized", "provider", cfg.LLM.Provider)

	return buildApplication(cfg, logger, db, postgresStores(db, logger), collaborators)
}

// buildApplication wires services, tasks and events over the given stores.
func buildApplication(
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
	stores appStores,
	collaborators generation.Collaborators,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	app.scheduler, err = newScheduler(cfg.Scheduler)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	registry := task.NewRegistry()
	app.taskRunner = task.NewTaskRunner(stores.tasks, registry, task.TaskRunnerConfig{
		WorkerCount:            cfg.Task.Workers,
		QueueSize:              cfg.Task.QueueSize,
		StuckTaskAge:           cfg.Task.StuckTaskAge,
		StuckTaskCheckInterval: cfg.Task.StuckTaskCheckInterval,
	}, logger)

	app.emitter = events.NewInMemoryEventEmitter(logger)

	app.evaluation, err = evaluation.NewPipeline(
		stores.tx,
		evaluation.Stores{
			Pools:       stores.pools,
			Items:       stores.items,
			Submissions: stores.submissions,
			Sittings:    stores.sittings,
			ReviewLogs:  stores.reviewLogs,
			Tasks:       stores.tasks,
		},
		collaborators.Judge,
		collaborators.Explainer,
		app.scheduler,
		app.taskRunner,
		app.emitter,
		evaluation.ConfigFrom(cfg.Evaluation),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create evaluation pipeline: %w", err)
	}

	registry.Register(task.TaskTypeEvaluation,
		task.NewEvaluationTaskFactory(app.evaluation, logger).Rebuild)
	registry.Register(task.TaskTypeReexplanation,
		task.NewReexplanationTaskFactory(app.evaluation, logger).Rebuild)

	app.emitter.RegisterHandler(task.NewTaskFactoryEventHandler(
		map[string]string{events.TypeAnswerIncorrect: task.TaskTypeReexplanation},
		registry,
		app.taskRunner,
		logger,
	))

	app.pools, err = service.NewPoolService(
		stores.tx,
		stores.pools,
		stores.items,
		collaborators.Generator,
		app.scheduler,
		cfg.LLM.GenerationConcurrency,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool service: %w", err)
	}

	app.due, err = dueset.NewService(stores.tx, stores.pools, stores.items, app.scheduler, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create due-set service: %w", err)
	}

	app.quiz, err = quiz.NewController(
		stores.tx,
		quiz.Stores{
			Pools:       stores.pools,
			Items:       stores.items,
			Submissions: stores.submissions,
			Sittings:    stores.sittings,
		},
		app.due,
		app.pools,
		app.evaluation,
		cfg.Quiz.MaxItems,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sitting controller: %w", err)
	}

	logger.Info("application initialized successfully")
	return app, nil
}

// newScheduler builds the scheduler from configured overrides.
func newScheduler(cfg config.SchedulerConfig) (srs.Service, error) {
	params, err := srs.NewParams(srs.ParamsConfig{
		BoxIntervals:       cfg.BoxIntervals,
		ReexposureInterval: cfg.ReexposureInterval,
		MasteryThreshold:   cfg.MasteryThreshold,
		MinIntervalFactor:  cfg.MinIntervalFactor,
		MaxIntervalFactor:  cfg.MaxIntervalFactor,
		Weights:            cfg.Weights,
	})
	if err != nil {
		return nil, err
	}
	return srs.NewServiceWithParams(params)
}

// Run starts background processing and serves HTTP until ctx is canceled.
func (app *application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		app.cleanup()
	}()

	if err := app.startBackground(ctx); err != nil {
		return err
	}

	router := app.setupRouter()
	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// startBackground repairs evaluations interrupted by a previous shutdown,
// starts the task runner and the periodic reconciler.
func (app *application) startBackground(ctx context.Context) error {
	if err := app.taskRunner.Start(ctx); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}

	if _, err := app.evaluation.Reconcile(ctx); err != nil {
		// Not fatal: the periodic run retries.
		app.logger.Error("startup reconciliation failed", "error", err)
	}

	app.background.Add(1)
	go func() {
		defer app.background.Done()
		app.evaluation.RunReconciler(ctx)
	}()
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}
	app.background.Wait()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
