package articles

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/newsroom-cms/newsroom/internal/platform/httpx"
	"github.com/newsroom-cms/newsroom/internal/rbac"
	"github.com/newsroom-cms/newsroom/internal/shared"
)

// Handler exposes articles and their workflow over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	publisher *AutoPublisher
	rbac      rbac.Middleware
	onSweep   func(SweepReport)
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, publisher *AutoPublisher, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, publisher: publisher, rbac: rbac}
}

// OnSweep registers a callback receiving every report produced through the HTTP trigger.
func (h *Handler) OnSweep(fn func(SweepReport)) {
	h.onSweep = fn
}

// MountRoutes registers /articles routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/slug/{slug}", h.getBySlug)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Post("/{id}/transitions", h.transition)
	r.With(h.rbac.Require(shared.PermArticleCreate)).Post("/", h.create)
	r.With(h.rbac.Require(shared.PermArticlePublish)).Post("/publish-approved", h.publishApproved)
}

type transitionRequest struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

type listResponse struct {
	Articles []Article `json:"articles"`
	Total    int       `json:"total"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}

type sweepOutcomeResponse struct {
	ArticleID   int64  `json:"article_id"`
	Published   bool   `json:"published"`
	PublishedAt string `json:"published_at,omitempty"`
	Error       string `json:"error,omitempty"`
}

type sweepResponse struct {
	Published int                    `json:"published"`
	Failed    int                    `json:"failed"`
	Outcomes  []sweepOutcomeResponse `json:"outcomes"`
	// Incomplete is set when the pass stopped early; Outcomes still lists what ran.
	Incomplete bool `json:"incomplete,omitempty"`
}

func viewer(r *http.Request) int64 {
	id, _ := shared.CurrentUserID(r.Context())
	return id
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Featured: httpx.BoolQuery(r, "featured"),
		Breaking: httpx.BoolQuery(r, "breaking"),
		Search:   r.URL.Query().Get("search"),
		Page:     shared.NewPage(httpx.IntQuery(r, "limit", shared.DefaultPageLimit), httpx.IntQuery(r, "offset", 0)),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := ParseStatus(raw)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		filter.Status = &status
	}
	items, total, err := h.service.List(r.Context(), viewer(r), filter)
	if err != nil {
		h.fail(w, r, "list articles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Articles: items, Total: total, Limit: filter.Page.Limit, Offset: filter.Page.Offset})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	article, err := h.service.Get(r.Context(), viewer(r), id)
	if err != nil {
		h.fail(w, r, "get article", err)
		return
	}
	httpx.JSON(w, http.StatusOK, article)
}

func (h *Handler) getBySlug(w http.ResponseWriter, r *http.Request) {
	article, err := h.service.GetBySlug(r.Context(), viewer(r), chi.URLParam(r, "slug"))
	if err != nil {
		h.fail(w, r, "get article by slug", err)
		return
	}
	httpx.JSON(w, http.StatusOK, article)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	article, err := h.service.Create(r.Context(), viewer(r), in)
	if err != nil {
		h.fail(w, r, "create article", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, article)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.CurrentUserID(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in UpdateInput
	if err := httpx.Bind(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	article, err := h.service.Update(r.Context(), actorID, id, in)
	if err != nil {
		h.fail(w, r, "update article", err)
		return
	}
	httpx.JSON(w, http.StatusOK, article)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	actorID, ok := shared.CurrentUserID(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req transitionRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	from, err := ParseStatus(req.From)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	to, err := ParseStatus(req.To)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.TransitionArticle(r.Context(), id, from, to, actorID)
	if err != nil {
		h.fail(w, r, "transition article", err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) publishApproved(w http.ResponseWriter, r *http.Request) {
	report := h.publisher.Sweep(r.Context())
	if h.onSweep != nil {
		h.onSweep(report)
	}
	if report.Err != nil && len(report.Outcomes) == 0 {
		h.fail(w, r, "publish approved", report.Err)
		return
	}
	if report.Err != nil {
		h.logger.WarnContext(r.Context(), "publish approved interrupted", slog.Int("published", report.Published()), slog.Any("error", report.Err))
	}
	resp := sweepResponse{
		Published:  report.Published(),
		Failed:     report.Failed(),
		Outcomes:   make([]sweepOutcomeResponse, 0, len(report.Outcomes)),
		Incomplete: report.Err != nil,
	}
	for _, o := range report.Outcomes {
		item := sweepOutcomeResponse{ArticleID: o.ArticleID, Published: o.Err == nil}
		if o.PublishedAt != nil {
			item.PublishedAt = o.PublishedAt.Format(time.RFC3339)
		}
		if o.Err != nil {
			item.Error = outcomeReason(o.Err)
		}
		resp.Outcomes = append(resp.Outcomes, item)
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// outcomeReason tells a lost race from a storage failure without exposing driver text.
func outcomeReason(err error) string {
	if errors.Is(err, shared.ErrConflict) {
		return "conflict"
	}
	return "storage error"
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, shared.ErrForbidden),
		errors.Is(err, shared.ErrConflict), errors.Is(err, shared.ErrInvalidTransition),
		errors.Is(err, shared.ErrValidation), errors.Is(err, shared.ErrDuplicate):
	default:
		h.logger.ErrorContext(r.Context(), op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
