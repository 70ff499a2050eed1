package articles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/newsroom-cms/newsroom/internal/rbac"
	"github.com/newsroom-cms/newsroom/internal/shared"
)

const maxSlugAttempts = 20

// Authorizer resolves permissions for workflow checks.
type Authorizer interface {
	Access(ctx context.Context, userID int64) (rbac.Access, error)
	LogDenial(ctx context.Context, userID int64, reason string, scopes ...shared.Scope)
}

// Service orchestrates article editing and the publication workflow.
type Service struct {
	repo   Repository
	authz  Authorizer
	audit  shared.AuditRecorder
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, authz Authorizer, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, authz: authz, audit: audit, logger: logger, now: time.Now}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// TransitionArticle moves an article from fromExpected to to on behalf of actorID.
//
// The edge must exist in the workflow table (ErrInvalidTransition), the article must exist
// (ErrNotFound) and the actor must satisfy the edge's rule (ErrForbidden). The write is a
// single conditional update; if the stored status is no longer fromExpected the call fails
// with ErrConflict and nothing changes.
func (s *Service) TransitionArticle(ctx context.Context, articleID int64, fromExpected, to Status, actorID int64) (TransitionResult, error) {
	rule, err := LookupTransition(fromExpected, to)
	if err != nil {
		return TransitionResult{}, err
	}
	article, err := s.repo.Get(ctx, articleID)
	if err != nil {
		return TransitionResult{}, fmt.Errorf("articles: load %d: %w", articleID, err)
	}
	if err := s.authorize(ctx, actorID, rule, article.AuthorID); err != nil {
		return TransitionResult{}, err
	}
	if article.Status != fromExpected {
		return TransitionResult{}, fmt.Errorf("%w: article %d is %s, not %s", shared.ErrConflict, articleID, article.Status, fromExpected)
	}

	now := s.now().UTC()
	res, err := s.repo.UpdateStatus(ctx, articleID, fromExpected, to, now)
	if err != nil {
		return TransitionResult{}, err
	}
	s.recordTransition(ctx, Transition{ArticleID: articleID, From: fromExpected, To: to, ActorID: actorID, At: now})
	return res, nil
}

func (s *Service) authorize(ctx context.Context, actorID int64, rule Rule, authorID int64) error {
	access, err := s.authz.Access(ctx, actorID)
	if err != nil {
		return fmt.Errorf("articles: resolve access for %d: %w", actorID, err)
	}
	if reason := rule.Permits(access, authorID); reason != "" {
		s.authz.LogDenial(ctx, actorID, reason, rule.Scopes()...)
		return fmt.Errorf("%w: transition requires %s", shared.ErrForbidden, describe(rule))
	}
	return nil
}

func describe(rule Rule) string {
	var parts []string
	for _, sc := range rule.AllOf {
		parts = append(parts, sc.Name())
	}
	if len(rule.AnyOf) > 0 {
		var alts []string
		for _, sc := range rule.AnyOf {
			alts = append(alts, sc.Name())
		}
		parts = append(parts, "one of "+strings.Join(alts, "|"))
	}
	return strings.Join(parts, " and ")
}

func (s *Service) recordTransition(ctx context.Context, t Transition) {
	if err := s.repo.RecordTransition(ctx, t); err != nil {
		s.logger.WarnContext(ctx, "record article transition", slog.Int64("article_id", t.ArticleID), slog.Any("error", err))
	}
	s.record(ctx, t.ActorID, "article.transition", t.ArticleID, map[string]any{
		"from": string(t.From),
		"to":   string(t.To),
	})
}

func (s *Service) record(ctx context.Context, actorID int64, action string, articleID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "article",
		EntityID: strconv.FormatInt(articleID, 10),
		Meta:     meta,
		At:       s.now().UTC(),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "audit article change", slog.String("action", action), slog.Any("error", err))
	}
}

// Create stores a new draft authored by actorID.
func (s *Service) Create(ctx context.Context, actorID int64, in CreateInput) (Article, error) {
	if err := s.require(ctx, actorID, shared.PermArticleCreate); err != nil {
		return Article{}, err
	}
	headline := strings.TrimSpace(in.Headline)
	if headline == "" {
		return Article{}, fmt.Errorf("%w: headline is required", shared.ErrValidation)
	}
	base := Slugify(in.Slug)
	if strings.TrimSpace(in.Slug) == "" {
		base = Slugify(headline)
	}
	draft := Article{
		Headline:   headline,
		Summary:    strings.TrimSpace(in.Summary),
		Body:       in.Body,
		Status:     StatusDraft,
		AuthorID:   actorID,
		IsFeatured: in.IsFeatured,
		IsBreaking: in.IsBreaking,
	}
	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		draft.Slug = base
		if attempt > 1 {
			draft.Slug = withSuffix(base, attempt)
		}
		created, err := s.repo.Create(ctx, draft)
		if errors.Is(err, shared.ErrDuplicate) {
			continue
		}
		if err != nil {
			return Article{}, fmt.Errorf("articles: create: %w", err)
		}
		s.record(ctx, actorID, "article.create", created.ID, map[string]any{"slug": created.Slug})
		return created, nil
	}
	return Article{}, fmt.Errorf("%w: slug %q is taken", shared.ErrDuplicate, base)
}

// Update edits article content. Authors may edit while the article is a draft or was
// rejected; article.update holders may edit in any state.
func (s *Service) Update(ctx context.Context, actorID, articleID int64, in UpdateInput) (Article, error) {
	article, err := s.repo.Get(ctx, articleID)
	if err != nil {
		return Article{}, err
	}
	access, err := s.authz.Access(ctx, actorID)
	if err != nil {
		return Article{}, fmt.Errorf("articles: resolve access for %d: %w", actorID, err)
	}
	authorEditable := article.Status == StatusDraft || article.Status == StatusRejected
	isAuthor := access.Exists && access.Active && access.UserID == article.AuthorID
	if !(isAuthor && authorEditable) && !access.AllowsScope(shared.PermArticleUpdate) {
		s.authz.LogDenial(ctx, actorID, denyReason(access, shared.PermArticleUpdate), shared.PermArticleUpdate)
		return Article{}, fmt.Errorf("%w: article.update", shared.ErrForbidden)
	}
	if in.Headline != nil {
		trimmed := strings.TrimSpace(*in.Headline)
		if trimmed == "" {
			return Article{}, fmt.Errorf("%w: headline is required", shared.ErrValidation)
		}
		in.Headline = &trimmed
	}
	updated, err := s.repo.Update(ctx, articleID, in, s.now().UTC())
	if err != nil {
		return Article{}, err
	}
	s.record(ctx, actorID, "article.update", articleID, nil)
	return updated, nil
}

func denyReason(access rbac.Access, scope shared.Scope) string {
	if reason := access.DenyReason(scope); reason != "" {
		return reason
	}
	return rbac.ReasonMissingPermission
}

// Get returns an article visible to viewerID (zero for anonymous readers).
// Unpublished articles are reported as missing unless the viewer wrote them or holds
// article.update.
func (s *Service) Get(ctx context.Context, viewerID, id int64) (Article, error) {
	article, err := s.repo.Get(ctx, id)
	if err != nil {
		return Article{}, err
	}
	return s.visible(ctx, viewerID, article)
}

// GetBySlug is Get keyed by slug.
func (s *Service) GetBySlug(ctx context.Context, viewerID int64, slug string) (Article, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return Article{}, shared.ErrNotFound
	}
	article, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return Article{}, err
	}
	return s.visible(ctx, viewerID, article)
}

func (s *Service) visible(ctx context.Context, viewerID int64, article Article) (Article, error) {
	if article.Status == StatusPublished {
		return article, nil
	}
	if viewerID > 0 {
		access, err := s.authz.Access(ctx, viewerID)
		if err == nil && access.Exists && access.Active {
			if access.UserID == article.AuthorID || access.AllowsScope(shared.PermArticleUpdate) {
				return article, nil
			}
		}
	}
	return Article{}, shared.ErrNotFound
}

// List returns a page of articles. Readers without article.update only see published
// articles; asking them for another status is forbidden.
func (s *Service) List(ctx context.Context, viewerID int64, filter ListFilter) ([]Article, int, error) {
	filter.Page = shared.NewPage(filter.Page.Limit, filter.Page.Offset)
	if filter.Status == nil || *filter.Status != StatusPublished {
		if !s.canSeeUnpublished(ctx, viewerID) {
			if filter.Status != nil {
				return nil, 0, fmt.Errorf("%w: listing %s articles requires article.update", shared.ErrForbidden, *filter.Status)
			}
			published := StatusPublished
			filter.Status = &published
		}
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []Article{}
	}
	return items, total, nil
}

func (s *Service) canSeeUnpublished(ctx context.Context, viewerID int64) bool {
	if viewerID <= 0 {
		return false
	}
	access, err := s.authz.Access(ctx, viewerID)
	if err != nil {
		return false
	}
	return access.AllowsScope(shared.PermArticleUpdate)
}

func (s *Service) require(ctx context.Context, actorID int64, scope shared.Scope) error {
	access, err := s.authz.Access(ctx, actorID)
	if err != nil {
		return fmt.Errorf("articles: resolve access for %d: %w", actorID, err)
	}
	if reason := access.DenyReason(scope); reason != "" {
		s.authz.LogDenial(ctx, actorID, reason, scope)
		return fmt.Errorf("%w: %s", shared.ErrForbidden, scope.Name())
	}
	return nil
}
