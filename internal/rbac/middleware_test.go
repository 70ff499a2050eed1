package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsroom-cms/newsroom/internal/shared"
)

func requestAs(method, target string, userID int64) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	if userID == 0 {
		return req
	}
	sess := &shared.Session{ID: "test"}
	sess.SetUser(strconv.FormatInt(userID, 10))
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestMiddlewareRequire(t *testing.T) {
	svc, repo, roles, _ := newTestService(t)
	repo.addUser(1, true, roles[RoleEditor])
	repo.addUser(2, true, roles[RoleAdmin])
	mw := Middleware{Service: svc}

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := mw.Require(shared.PermArticlePublish)(ok)

	cases := []struct {
		name   string
		userID int64
		status int
	}{
		{"anonymous", 0, http.StatusUnauthorized},
		{"editor lacks publish", 1, http.StatusForbidden},
		{"admin", 2, http.StatusNoContent},
		{"unknown user", 77, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, requestAs(http.MethodPost, "/publish", tc.userID))
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestMiddlewareRequireAny(t *testing.T) {
	svc, repo, roles, _ := newTestService(t)
	repo.addUser(3, true, roles[RoleModerator])
	mw := Middleware{Service: svc}

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	rec := httptest.NewRecorder()
	mw.RequireAny(shared.PermArticleUpdate, shared.PermCommentModerate)(ok).ServeHTTP(rec, requestAs(http.MethodGet, "/", 3))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mw.Require(shared.PermArticleUpdate, shared.PermCommentModerate)(ok).ServeHTTP(rec, requestAs(http.MethodGet, "/", 3))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMiddlewareSharesMemoWithHandler(t *testing.T) {
	svc, repo, roles, _ := newTestService(t)
	repo.addUser(4, true, roles[RoleEditor])
	mw := Middleware{Service: svc}

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, err := svc.CheckPermission(r.Context(), 4, shared.ResourceArticle, shared.ActionApprove)
		require.NoError(t, err)
		assert.True(t, allowed)
		w.WriteHeader(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	Memo(mw.Require(shared.PermArticleRead)(inner)).ServeHTTP(rec, requestAs(http.MethodGet, "/", 4))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, repo.accessCalls)
}

func TestHandlerRoleAdministration(t *testing.T) {
	svc, repo, roles, _ := newTestService(t)
	repo.addUser(5, true, roles[RoleAdmin])
	repo.addUser(6, true, roles[RoleJournalist])
	h := NewHandler(nil, svc, Middleware{Service: svc})

	r := chi.NewRouter()
	r.Use(Memo)
	h.MountRoutes(r)
	r.Route("/users", h.MountUserRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, requestAs(http.MethodGet, "/roles", 6))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, requestAs(http.MethodGet, "/permissions", 5))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "article.publish")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, requestAs(http.MethodPost, "/users/6/roles", 5))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, requestAs(http.MethodDelete, "/users/6/roles/"+strconv.FormatInt(roles[RoleJournalist], 10), 5))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	ok, err := svc.CheckPermission(context.Background(), 6, shared.ResourceArticle, shared.ActionRead)
	require.NoError(t, err)
	assert.False(t, ok)
}
