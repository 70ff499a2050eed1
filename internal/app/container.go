package app

import (
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/newsroom-cms/newsroom/internal/articles"
	"github.com/newsroom-cms/newsroom/internal/audit"
	"github.com/newsroom-cms/newsroom/internal/auth"
	"github.com/newsroom-cms/newsroom/internal/observability"
	"github.com/newsroom-cms/newsroom/internal/platform/cache"
	"github.com/newsroom-cms/newsroom/internal/rbac"
	"github.com/newsroom-cms/newsroom/internal/settings"
	"github.com/newsroom-cms/newsroom/internal/shared"
	"github.com/newsroom-cms/newsroom/internal/users"
	"github.com/newsroom-cms/newsroom/jobs"
)

// Services holds the domain services shared by the API server, the worker and the CLI.
type Services struct {
	RBAC        *rbac.Service
	Auth        *auth.Service
	Users       *users.Service
	Articles    *articles.Service
	Publisher   *articles.AutoPublisher
	Settings    *settings.Service
	Audit       *audit.Service
	AutoPublish *jobs.AutoPublishJob
}

// NewServices wires every service against the pool. A nil redis client disables the
// settings cache.
func NewServices(cfg *Config, logger *slog.Logger, pool *pgxpool.Pool, redisClient *redis.Client, metrics *observability.Metrics) *Services {
	auditLog := shared.NewAuditLogger(pool)
	rbacService := rbac.NewService(rbac.NewRepository(pool), logger)

	articleRepo := articles.NewRepository(pool)
	publisher := articles.NewAutoPublisher(articleRepo, logger)
	publisher.Audit = auditLog

	ttl := 5 * time.Minute
	if cfg != nil && cfg.SettingsCacheTTL > 0 {
		ttl = cfg.SettingsCacheTTL
	}
	var settingsCache *cache.JSONCache
	if redisClient != nil {
		settingsCache = cache.NewJSONCache(redisClient, "newsroom:settings", ttl)
	}

	return &Services{
		RBAC:        rbacService,
		Auth:        auth.NewService(auth.NewRepository(pool)),
		Users:       users.NewService(users.NewRepository(pool), auditLog, logger),
		Articles:    articles.NewService(articleRepo, rbacService, auditLog, logger),
		Publisher:   publisher,
		Settings:    settings.NewService(settings.NewRepository(pool), settingsCache, auditLog, logger),
		Audit:       audit.NewService(audit.NewRepository(pool)),
		AutoPublish: jobs.NewAutoPublishJob(publisher, logger, metrics.Jobs()),
	}
}
