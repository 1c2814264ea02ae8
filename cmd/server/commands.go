package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/config"
	"github.com/phrazzld/recall-api/internal/service/auth"
	"github.com/spf13/cobra"
)

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	configFile string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "recall-api",
		Short:         "Adaptive retention API server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "",
		"path to a YAML config file (default: ./config.yaml if present)")

	root.AddCommand(
		newServeCommand(opts),
		newMigrateCommand(opts),
		newReconcileCommand(opts),
		newTokenCommand(opts),
	)
	return root
}

// bootstrap loads config and sets up the logger.
func bootstrap(opts *rootOptions) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := setupAppLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"llm_provider", cfg.LLM.Provider)
	return cfg, logger, nil
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and background evaluation workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, logger, err := bootstrap(opts)
			if err != nil {
				return err
			}

			db, err := setupAppDatabase(ctx, cfg.Database, logger)
			if err != nil {
				return err
			}

			if migrate {
				if err := runMigrations(ctx, db, "up", "", nil, logger); err != nil {
					_ = db.Close()
					return err
				}
			}
			if err := verifySchemaVersion(ctx, db); err != nil {
				_ = db.Close()
				return err
			}

			app, err := newApplication(ctx, cfg, logger, db)
			if err != nil {
				_ = db.Close()
				return err
			}
			return app.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:       "migrate [up|down|status|version|create] [args...]",
		Short:     "Manage the database schema",
		Args:      cobra.MinimumNArgs(1),
		ValidArgs: []string{"up", "down", "status", "version", "create"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			command, rest := args[0], args[1:]

			if command == "create" {
				return runMigrations(ctx, nil, command, dir, rest, slog.Default())
			}

			cfg, logger, err := bootstrap(opts)
			if err != nil {
				return err
			}
			return withDatabase(ctx, cfg, logger, func(db *sql.DB) error {
				return runMigrations(ctx, db, command, dir, rest, logger)
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", defaultMigrationsDir, "directory for new migration files (create only)")
	return cmd
}

func newReconcileCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Apply scheduling transitions for evaluated answers that lack a review log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, logger, err := bootstrap(opts)
			if err != nil {
				return err
			}

			db, err := setupAppDatabase(ctx, cfg.Database, logger)
			if err != nil {
				return err
			}
			app, err := newApplication(ctx, cfg, logger, db)
			if err != nil {
				_ = db.Close()
				return err
			}
			defer app.cleanup()

			n, err := app.evaluation.Reconcile(ctx)
			if err != nil {
				return fmt.Errorf("reconciliation failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "repaired %d submission(s)\n", n)
			return nil
		},
	}
}

func newTokenCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint a development access token for a user id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid user id %q: %w", args[0], err)
			}

			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return mintToken(cmd.Context(), cmd, cfg.Auth, userID)
		},
	}
}

// mintToken writes a signed token for userID to the command output.
func mintToken(ctx context.Context, cmd *cobra.Command, cfg config.AuthConfig, userID uuid.UUID) error {
	jwtService, err := auth.NewJWTService(cfg)
	if err != nil {
		return err
	}
	token, err := jwtService.GenerateToken(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

// withDatabase opens the configured database for the duration of fn.
func withDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger, fn func(*sql.DB) error) error {
	db, err := setupAppDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("error closing database connection", "error", err)
		}
	}()
	return fn(db)
}
