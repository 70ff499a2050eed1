package settings

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/newsroom-cms/newsroom/internal/platform/httpx"
	"github.com/newsroom-cms/newsroom/internal/rbac"
	"github.com/newsroom-cms/newsroom/internal/shared"
)

// Handler exposes settings over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers /settings routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/public", h.public)
	r.With(h.rbac.Require(shared.PermSettingRead)).Get("/", h.list)
	r.With(h.rbac.Require(shared.PermSettingUpdate)).Put("/{key}", h.update)
}

type updateRequest struct {
	Value *string `json:"value" validate:"required"`
}

func (h *Handler) public(w http.ResponseWriter, r *http.Request) {
	set, err := h.service.Public(r.Context())
	if err != nil {
		h.fail(w, r, "load public settings", err)
		return
	}
	httpx.JSON(w, http.StatusOK, set.Public())
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.All(r.Context())
	if err != nil {
		h.fail(w, r, "list settings", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"settings": items})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.CurrentUserID(r.Context())
	updated, err := h.service.Update(r.Context(), actor, chi.URLParam(r, "key"), *req.Value)
	if err != nil {
		h.fail(w, r, "update setting", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if !errors.Is(err, shared.ErrNotFound) && !errors.Is(err, shared.ErrValidation) {
		h.logger.ErrorContext(r.Context(), op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
