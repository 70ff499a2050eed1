package rbac

import (
	"log/slog"
	"net/http"

	"github.com/newsroom-cms/newsroom/internal/platform/httpx"
	"github.com/newsroom-cms/newsroom/internal/shared"
)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Memo installs a per-request access cache so repeated checks hit the store once.
func Memo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithMemo(r.Context())))
	})
}

// Require ensures the current user holds every listed scope.
func (m Middleware) Require(scopes ...shared.Scope) func(http.Handler) http.Handler {
	return m.guard(scopes, Access.AllowsAll)
}

// RequireAny ensures the current user holds at least one of the listed scopes.
func (m Middleware) RequireAny(scopes ...shared.Scope) func(http.Handler) http.Handler {
	return m.guard(scopes, Access.AllowsAny)
}

func (m Middleware) guard(scopes []shared.Scope, allowed func(Access, ...shared.Scope) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(scopes) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			ctx := WithMemo(r.Context())
			userID, ok := shared.CurrentUserID(ctx)
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			access, err := m.Service.Access(ctx, userID)
			if err != nil {
				m.logger().ErrorContext(ctx, "rbac resolve access", slog.Int64("user_id", userID), slog.Any("error", err))
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			if !allowed(access, scopes...) {
				m.Service.LogDenial(ctx, userID, firstReason(access, scopes), scopes...)
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (m Middleware) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

func firstReason(access Access, scopes []shared.Scope) string {
	for _, s := range scopes {
		if reason := access.DenyReason(s); reason != "" {
			return reason
		}
	}
	return ReasonMissingPermission
}
