package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/newsroom-cms/newsroom/internal/app"
	"github.com/newsroom-cms/newsroom/internal/articles"
	audithttp "github.com/newsroom-cms/newsroom/internal/audit/http"
	"github.com/newsroom-cms/newsroom/internal/auth"
	"github.com/newsroom-cms/newsroom/internal/observability"
	"github.com/newsroom-cms/newsroom/internal/platform/cache"
	"github.com/newsroom-cms/newsroom/internal/rbac"
	"github.com/newsroom-cms/newsroom/internal/settings"
	"github.com/newsroom-cms/newsroom/internal/shared"
	"github.com/newsroom-cms/newsroom/internal/users"
	"github.com/newsroom-cms/newsroom/jobs"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the in-process auto-publish sweep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			e, err := loadEnv()
			if err != nil {
				return err
			}
			return serve(ctx, e)
		},
	}
}

func serve(ctx context.Context, e *env) error {
	cfg, logger := e.cfg, e.logger
	if cfg.MigrateOnStart {
		if err := e.migrateUp(); err != nil {
			return err
		}
	}

	pool, err := e.connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	services := app.NewServices(cfg, logger, pool, redisClient, metrics)
	sessionManager := shared.NewSessionManager(redisClient, "newsroom_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	rbacMiddleware := rbac.Middleware{Service: services.RBAC, Logger: logger}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	articlesHandler := articles.NewHandler(logger, services.Articles, services.Publisher, rbacMiddleware)
	articlesHandler.OnSweep(func(report articles.SweepReport) {
		metrics.Jobs().AddSweep(report.Published(), report.Failed())
	})

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		AuthHandler:     auth.NewHandler(logger, services.Auth, services.RBAC, sessionManager, csrfManager),
		ArticlesHandler: articlesHandler,
		SettingsHandler: settings.NewHandler(logger, services.Settings, rbacMiddleware),
		UsersHandler:    users.NewHandler(logger, services.Users, rbacMiddleware),
		RBACHandler:     rbac.NewHandler(logger, services.RBAC, rbacMiddleware),
		AuditHandler:    audithttp.NewHandler(logger, services.Audit, rbacMiddleware),
		JobHandler:      jobs.NewHandler(inspector, logger),
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sweepLoop(gctx, func(ctx context.Context, trigger string) {
			services.AutoPublish.Run(ctx, trigger)
		}, cfg.AutoPublishOnStart, cfg.AutoPublishInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// sweepLoop runs the sweep once at startup when enabled, then on every interval tick.
// A zero interval leaves periodic sweeps to the worker's cron schedule.
func sweepLoop(ctx context.Context, run func(context.Context, string), onStart bool, interval time.Duration) error {
	if onStart {
		run(ctx, jobs.TriggerStartup)
	}
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			run(ctx, jobs.TriggerTicker)
		}
	}
}
