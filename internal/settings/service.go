package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/newsroom-cms/newsroom/internal/platform/cache"
	"github.com/newsroom-cms/newsroom/internal/shared"
)

// Service reads and edits settings. Public reads go through the cache.
type Service struct {
	repo   Repository
	cache  *cache.JSONCache
	audit  shared.AuditRecorder
	logger *slog.Logger
	clock  func() time.Time
}

// NewService wires a Service. A nil cache reads straight from the repository.
func NewService(repo Repository, jsonCache *cache.JSONCache, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: jsonCache, audit: audit, logger: logger, clock: time.Now}
}

// WithClock overrides the time source.
func (s *Service) WithClock(clock func() time.Time) *Service {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// Public returns the public settings keyed by name.
func (s *Service) Public(ctx context.Context) (Set, error) {
	var items []Setting
	err := s.cache.Fetch(ctx, &items, func(ctx context.Context) (any, error) {
		return s.repo.List(ctx, true)
	}, "public")
	if err != nil {
		return nil, fmt.Errorf("settings: load public: %w", err)
	}
	return NewSet(items), nil
}

// All returns every setting, bypassing the cache.
func (s *Service) All(ctx context.Context) ([]Setting, error) {
	items, err := s.repo.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("settings: list: %w", err)
	}
	if items == nil {
		items = []Setting{}
	}
	return items, nil
}

// Update validates value against the stored type and persists it.
func (s *Service) Update(ctx context.Context, actorID int64, key, value string) (Setting, error) {
	key = strings.TrimSpace(key)
	current, err := s.repo.Get(ctx, key)
	if err != nil {
		return Setting{}, err
	}
	if err := current.Type.Validate(value); err != nil {
		return Setting{}, err
	}
	if current.Type != TypeString {
		value = strings.TrimSpace(value)
	}
	updated, err := s.repo.UpdateValue(ctx, key, value, s.clock().UTC())
	if err != nil {
		return Setting{}, err
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.WarnContext(ctx, "settings cache invalidation failed", slog.String("key", key), slog.Any("error", err))
	}
	if s.audit != nil {
		entry := shared.AuditLog{
			ActorID:  actorID,
			Action:   "setting.update",
			Entity:   "setting",
			EntityID: key,
			Meta:     map[string]any{"from": current.Value, "to": value},
			At:       updated.UpdatedAt,
		}
		if err := s.audit.Record(ctx, entry); err != nil {
			s.logger.WarnContext(ctx, "audit record failed", slog.String("action", entry.Action), slog.Any("error", err))
		}
	}
	return updated, nil
}
