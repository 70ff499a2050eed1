// Package cli holds the cobra commands of the newsroom binary.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/newsroom-cms/newsroom/internal/app"
	"github.com/newsroom-cms/newsroom/internal/platform/db"
)

// NewRootCommand assembles the command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "newsroom",
		Short:         "Newsroom CMS API server and operations tooling",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newPublishApprovedCommand(),
		newJobsCommand(),
	)
	return root
}

// env is the configuration every command starts from.
type env struct {
	cfg    *app.Config
	logger *slog.Logger
}

func loadEnv() (*env, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &env{cfg: cfg, logger: app.NewLogger(cfg)}, nil
}

func (e *env) connect(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := db.New(ctx, db.Options{
		DSN:             e.cfg.PGDSN,
		MaxConns:        e.cfg.PGMaxConns,
		ConnectAttempts: e.cfg.PGConnectAttempts,
		QueryLogLevel:   e.cfg.PGQueryLogLevel,
	}, e.logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

func (e *env) migrateUp() error {
	migrator, err := db.NewMigrator(e.cfg.PGDSN, e.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			e.logger.Warn("migrator close", slog.Any("error", err))
		}
	}()
	return migrator.Up()
}
