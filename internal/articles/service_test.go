package articles

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsroom-cms/newsroom/internal/rbac"
	"github.com/newsroom-cms/newsroom/internal/shared"
)

const (
	adminID       int64 = 1
	editorID      int64 = 2
	journalistID  int64 = 3
	contributorID int64 = 4
	moderatorID   int64 = 5
)

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

type auditSpy struct {
	mu      sync.Mutex
	entries []shared.AuditLog
}

func (a *auditSpy) Record(_ context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, log)
	return nil
}

func newTestService(t *testing.T) (*Service, *memoryRepo, *staticAuthz, *auditSpy) {
	t.Helper()
	repo := newMemoryRepo()
	authz := newStaticAuthz()
	authz.add(adminID, true, rbac.RoleAdmin)
	authz.add(editorID, true, rbac.RoleEditor)
	authz.add(journalistID, true, rbac.RoleJournalist)
	authz.add(contributorID, true, rbac.RoleContributor)
	authz.add(moderatorID, true, rbac.RoleModerator)
	audit := &auditSpy{}
	svc := NewService(repo, authz, audit, nil).WithClock(func() time.Time { return fixedNow })
	return svc, repo, authz, audit
}

func TestTransitionHappyPath(t *testing.T) {
	svc, repo, _, audit := newTestService(t)
	ctx := context.Background()
	a := repo.put(Article{Headline: "Flood warning", Status: StatusDraft, AuthorID: journalistID})

	res, err := svc.TransitionArticle(ctx, a.ID, StatusDraft, StatusSubmitted, journalistID)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, res.Status)
	assert.Nil(t, res.PublishedAt)

	res, err = svc.TransitionArticle(ctx, a.ID, StatusSubmitted, StatusApproved, editorID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, res.Status)

	res, err = svc.TransitionArticle(ctx, a.ID, StatusApproved, StatusPublished, adminID)
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, res.Status)
	require.NotNil(t, res.PublishedAt)
	assert.Equal(t, fixedNow, *res.PublishedAt)

	require.Len(t, repo.transitions, 3)
	assert.Equal(t, editorID, repo.transitions[1].ActorID)
	assert.Len(t, audit.entries, 3)
	assert.Equal(t, "article.transition", audit.entries[2].Action)
}

func TestEditorApprovesButCannotPublish(t *testing.T) {
	svc, repo, authz, _ := newTestService(t)
	ctx := context.Background()
	a := repo.put(Article{Headline: "Budget vote", Status: StatusSubmitted, AuthorID: journalistID})

	_, err := svc.TransitionArticle(ctx, a.ID, StatusSubmitted, StatusApproved, editorID)
	require.NoError(t, err)

	_, err = svc.TransitionArticle(ctx, a.ID, StatusApproved, StatusPublished, editorID)
	require.ErrorIs(t, err, shared.ErrForbidden)
	assert.Equal(t, StatusApproved, repo.status(a.ID), "state unchanged after denial")
	assert.Equal(t, []string{"2:missing_permission"}, authz.denials)
}

func TestTransitionRejectsEdgesOutsideTable(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	a := repo.put(Article{Headline: "Shortcut", Status: StatusDraft, AuthorID: journalistID})

	_, err := svc.TransitionArticle(context.Background(), a.ID, StatusDraft, StatusPublished, adminID)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
	assert.Equal(t, StatusDraft, repo.status(a.ID))
}

func TestTransitionStaleFromIsConflict(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	a := repo.put(Article{Headline: "Stale", Status: StatusApproved, AuthorID: journalistID})

	_, err := svc.TransitionArticle(context.Background(), a.ID, StatusSubmitted, StatusApproved, editorID)
	require.ErrorIs(t, err, shared.ErrConflict)
	assert.Equal(t, StatusApproved, repo.status(a.ID))
	assert.Empty(t, repo.transitions)
}

func TestTransitionMissingArticle(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.TransitionArticle(context.Background(), 404, StatusSubmitted, StatusApproved, editorID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestTransitionAccessLookupFailurePropagates(t *testing.T) {
	svc, repo, authz, _ := newTestService(t)
	a := repo.put(Article{Headline: "Outage", Status: StatusSubmitted, AuthorID: journalistID})
	authz.err = errStore

	_, err := svc.TransitionArticle(context.Background(), a.ID, StatusSubmitted, StatusApproved, editorID)
	require.ErrorIs(t, err, errStore)
	assert.NotErrorIs(t, err, shared.ErrForbidden)
	assert.Equal(t, StatusSubmitted, repo.status(a.ID))
	assert.Empty(t, repo.transitions)

	_, err = svc.Update(context.Background(), editorID, a.ID, UpdateInput{})
	assert.ErrorIs(t, err, errStore)
	assert.NotErrorIs(t, err, shared.ErrForbidden)
}

func TestConcurrentApprovalsOneWins(t *testing.T) {
	svc, repo, authz, _ := newTestService(t)
	authz.add(22, true, rbac.RoleEditor)
	a := repo.put(Article{Headline: "Race", Status: StatusSubmitted, AuthorID: journalistID})

	// Both callers load the article before either writes.
	var ready sync.WaitGroup
	ready.Add(2)
	release := make(chan struct{})
	repo.beforeUpdate = func(int64) {
		ready.Done()
		<-release
	}
	go func() {
		ready.Wait()
		close(release)
	}()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, actor := range []int64{editorID, 22} {
		wg.Add(1)
		go func(i int, actor int64) {
			defer wg.Done()
			_, errs[i] = svc.TransitionArticle(context.Background(), a.ID, StatusSubmitted, StatusApproved, actor)
		}(i, actor)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, shared.ErrConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, StatusApproved, repo.status(a.ID))
	assert.Len(t, repo.transitions, 1)
}

func TestPublishedAtSetOnce(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()
	a := repo.put(Article{Headline: "Once", Status: StatusApproved, AuthorID: journalistID})

	res, err := svc.TransitionArticle(ctx, a.ID, StatusApproved, StatusPublished, adminID)
	require.NoError(t, err)
	first := *res.PublishedAt

	later := fixedNow.Add(48 * time.Hour)
	svc.WithClock(func() time.Time { return later })
	_, err = svc.TransitionArticle(ctx, a.ID, StatusPublished, StatusDraft, journalistID)
	require.NoError(t, err)
	stored, _ := repo.Get(ctx, a.ID)
	require.NotNil(t, stored.PublishedAt, "pull back keeps published_at")

	for _, step := range [][2]Status{{StatusDraft, StatusSubmitted}, {StatusSubmitted, StatusApproved}, {StatusApproved, StatusPublished}} {
		res, err = svc.TransitionArticle(ctx, a.ID, step[0], step[1], adminID)
		require.NoError(t, err)
	}
	assert.Equal(t, first, *res.PublishedAt)
}

func TestArchiveAndPullBackRules(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()
	a := repo.put(Article{Headline: "Old news", Status: StatusPublished, AuthorID: contributorID, PublishedAt: &fixedNow})

	_, err := svc.TransitionArticle(ctx, a.ID, StatusPublished, StatusArchived, contributorID)
	require.ErrorIs(t, err, shared.ErrForbidden, "authorship alone cannot archive")

	_, err = svc.TransitionArticle(ctx, a.ID, StatusPublished, StatusArchived, editorID)
	require.NoError(t, err)

	_, err = svc.TransitionArticle(ctx, a.ID, StatusArchived, StatusDraft, moderatorID)
	require.ErrorIs(t, err, shared.ErrForbidden)
	_, err = svc.TransitionArticle(ctx, a.ID, StatusArchived, StatusDraft, contributorID)
	require.NoError(t, err)
}

func TestCreateGeneratesUniqueSlugs(t *testing.T) {
	svc, _, _, audit := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, journalistID, CreateInput{Headline: "Storm hits coast"})
	require.NoError(t, err)
	assert.Equal(t, "storm-hits-coast", first.Slug)
	assert.Equal(t, StatusDraft, first.Status)
	assert.Equal(t, journalistID, first.AuthorID)

	second, err := svc.Create(ctx, journalistID, CreateInput{Headline: "Storm hits coast!"})
	require.NoError(t, err)
	assert.Equal(t, "storm-hits-coast-2", second.Slug)

	custom, err := svc.Create(ctx, journalistID, CreateInput{Headline: "x", Slug: "My Custom Slug"})
	require.NoError(t, err)
	assert.Equal(t, "my-custom-slug", custom.Slug)
	assert.Len(t, audit.entries, 3)

	_, err = svc.Create(ctx, moderatorID, CreateInput{Headline: "No"})
	assert.ErrorIs(t, err, shared.ErrForbidden)
	_, err = svc.Create(ctx, journalistID, CreateInput{Headline: "   "})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdatePermissions(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()
	draft := repo.put(Article{Headline: "Draft", Status: StatusDraft, AuthorID: contributorID})
	submitted := repo.put(Article{Headline: "Submitted", Status: StatusSubmitted, AuthorID: contributorID})
	headline := "  New headline "

	updated, err := svc.Update(ctx, contributorID, draft.ID, UpdateInput{Headline: &headline})
	require.NoError(t, err)
	assert.Equal(t, "New headline", updated.Headline)

	_, err = svc.Update(ctx, contributorID, submitted.ID, UpdateInput{Headline: &headline})
	assert.ErrorIs(t, err, shared.ErrForbidden, "author cannot edit under review")

	_, err = svc.Update(ctx, editorID, submitted.ID, UpdateInput{Headline: &headline})
	assert.NoError(t, err)

	_, err = svc.Update(ctx, moderatorID, draft.ID, UpdateInput{Headline: &headline})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	blank := " "
	_, err = svc.Update(ctx, editorID, draft.ID, UpdateInput{Headline: &blank})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestVisibility(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()
	pub := repo.put(Article{Headline: "Public", Slug: "public", Status: StatusPublished, AuthorID: journalistID, PublishedAt: &fixedNow})
	draft := repo.put(Article{Headline: "Private", Slug: "private", Status: StatusDraft, AuthorID: journalistID})

	_, err := svc.Get(ctx, 0, pub.ID)
	assert.NoError(t, err)
	_, err = svc.GetBySlug(ctx, 0, "PUBLIC")
	assert.NoError(t, err)

	_, err = svc.Get(ctx, 0, draft.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = svc.Get(ctx, contributorID, draft.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = svc.Get(ctx, journalistID, draft.ID)
	assert.NoError(t, err)
	_, err = svc.GetBySlug(ctx, editorID, "private")
	assert.NoError(t, err)
}

func TestListScopesByPermission(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()
	repo.put(Article{Headline: "Live one", Status: StatusPublished, AuthorID: journalistID, IsFeatured: true, PublishedAt: &fixedNow})
	repo.put(Article{Headline: "Live two", Status: StatusPublished, AuthorID: journalistID, PublishedAt: &fixedNow})
	repo.put(Article{Headline: "Queued", Status: StatusApproved, AuthorID: journalistID})

	items, total, err := svc.List(ctx, 0, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 2)

	featured := true
	items, _, err = svc.List(ctx, 0, ListFilter{Featured: &featured})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Live one", items[0].Headline)

	approved := StatusApproved
	_, _, err = svc.List(ctx, contributorID, ListFilter{Status: &approved})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	items, total, err = svc.List(ctx, editorID, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	items, _, err = svc.List(ctx, editorID, ListFilter{Page: shared.Page{Limit: 500}})
	require.NoError(t, err)
	assert.Len(t, items, 3)
}
