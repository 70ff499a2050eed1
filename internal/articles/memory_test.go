package articles

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/newsroom-cms/newsroom/internal/rbac"
	"github.com/newsroom-cms/newsroom/internal/shared"
)

type memoryRepo struct {
	mu          sync.Mutex
	articles    map[int64]Article
	transitions []Transition
	nextID      int64
	failUpdate  map[int64]error
	failList    error
	// beforeUpdate runs inside UpdateStatus before the guarded write, outside the lock.
	beforeUpdate func(id int64)
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{articles: make(map[int64]Article), failUpdate: make(map[int64]error)}
}

func (m *memoryRepo) put(a Article) Article {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a.ID = m.nextID
	if a.Slug == "" {
		a.Slug = fmt.Sprintf("article-%d", a.ID)
	}
	m.articles[a.ID] = a
	return a
}

func (m *memoryRepo) status(id int64) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.articles[id].Status
}

func (m *memoryRepo) Create(_ context.Context, a Article) (Article, error) {
	m.mu.Lock()
	for _, existing := range m.articles {
		if existing.Slug == a.Slug {
			m.mu.Unlock()
			return Article{}, fmt.Errorf("%w: articles_slug_key", shared.ErrDuplicate)
		}
	}
	m.mu.Unlock()
	return m.put(a), nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.articles[id]
	if !ok {
		return Article{}, shared.ErrNotFound
	}
	return a, nil
}

func (m *memoryRepo) GetBySlug(_ context.Context, slug string) (Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.articles {
		if a.Slug == slug {
			return a, nil
		}
	}
	return Article{}, shared.ErrNotFound
}

func (m *memoryRepo) List(_ context.Context, f ListFilter) ([]Article, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Article
	for _, a := range m.articles {
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		if f.Featured != nil && a.IsFeatured != *f.Featured {
			continue
		}
		if f.Breaking != nil && a.IsBreaking != *f.Breaking {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(a.Headline), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := len(out)
	if f.Page.Offset >= len(out) {
		return nil, total, nil
	}
	out = out[f.Page.Offset:]
	if len(out) > f.Page.Limit {
		out = out[:f.Page.Limit]
	}
	return out, total, nil
}

func (m *memoryRepo) Update(_ context.Context, id int64, in UpdateInput, now time.Time) (Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.articles[id]
	if !ok {
		return Article{}, shared.ErrNotFound
	}
	if in.Headline != nil {
		a.Headline = *in.Headline
	}
	if in.Summary != nil {
		a.Summary = *in.Summary
	}
	if in.Body != nil {
		a.Body = *in.Body
	}
	if in.IsFeatured != nil {
		a.IsFeatured = *in.IsFeatured
	}
	if in.IsBreaking != nil {
		a.IsBreaking = *in.IsBreaking
	}
	a.UpdatedAt = now
	m.articles[id] = a
	return a, nil
}

func (m *memoryRepo) UpdateStatus(_ context.Context, id int64, from, to Status, now time.Time) (TransitionResult, error) {
	if m.beforeUpdate != nil {
		m.beforeUpdate(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failUpdate[id]; err != nil {
		return TransitionResult{}, err
	}
	a, ok := m.articles[id]
	if !ok || a.Status != from {
		return TransitionResult{}, fmt.Errorf("%w: article %d is no longer %s", shared.ErrConflict, id, from)
	}
	a.Status = to
	if to == StatusPublished && a.PublishedAt == nil {
		stamp := now
		a.PublishedAt = &stamp
	}
	a.UpdatedAt = now
	m.articles[id] = a
	return TransitionResult{ArticleID: id, Status: a.Status, PublishedAt: a.PublishedAt}, nil
}

func (m *memoryRepo) RecordTransition(_ context.Context, t Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, t)
	return nil
}

func (m *memoryRepo) ListIDsByStatus(_ context.Context, status Status) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList != nil {
		return nil, m.failList
	}
	var ids []int64
	for id, a := range m.articles {
		if a.Status == status {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

var _ Repository = (*memoryRepo)(nil)

// staticAuthz grants fixed permission sets per user, mirroring the seeded roles.
type staticAuthz struct {
	mu      sync.Mutex
	users   map[int64]rbac.Access
	denials []string
	err     error
}

var rolePerms = map[string][]shared.Scope{
	rbac.RoleAdmin:       shared.CoreScopes(),
	rbac.RoleEditor:      {shared.PermArticleCreate, shared.PermArticleRead, shared.PermArticleUpdate, shared.PermArticleSubmit, shared.PermArticleApprove, shared.PermCommentModerate},
	rbac.RoleJournalist:  {shared.PermArticleCreate, shared.PermArticleRead, shared.PermArticleUpdate, shared.PermArticleSubmit},
	rbac.RoleContributor: {shared.PermArticleCreate, shared.PermArticleRead, shared.PermArticleSubmit},
	rbac.RoleModerator:   {shared.PermArticleRead, shared.PermCommentModerate},
}

func newStaticAuthz() *staticAuthz {
	return &staticAuthz{users: make(map[int64]rbac.Access)}
}

func (a *staticAuthz) add(id int64, active bool, roles ...string) {
	var scopes []shared.Scope
	for _, r := range roles {
		scopes = append(scopes, rolePerms[r]...)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.users[id] = rbac.NewAccess(id, true, active, roles, scopes)
}

func (a *staticAuthz) Access(_ context.Context, userID int64) (rbac.Access, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return rbac.Access{}, a.err
	}
	access, ok := a.users[userID]
	if !ok {
		return rbac.NewAccess(userID, false, false, nil, nil), nil
	}
	return access, nil
}

func (a *staticAuthz) LogDenial(_ context.Context, userID int64, reason string, _ ...shared.Scope) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.denials = append(a.denials, fmt.Sprintf("%d:%s", userID, reason))
}

var errStore = errors.New("connection reset by peer")
