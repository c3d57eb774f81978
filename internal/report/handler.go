// AngelaMos | 2026
// handler.go

package report

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/printshop/internal/core"
	"github.com/carterperez-dev/printshop/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: core.NewValidator(),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/reports", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(middleware.RequireAdmin)

		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{reportID}", h.Get)
		r.Delete("/{reportID}", h.Delete)
		r.Get("/{reportID}/export", h.Export)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := ListParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
	}
	params.Normalize()

	snapshots, total, err := h.service.List(r.Context(), middleware.Actor(r.Context()), params)
	if err != nil {
		core.WriteError(w, err, "report")
		return
	}
	core.Paginated(w, ToSnapshotResponseList(snapshots), params.Page, params.PageSize, total)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	snap, err := h.service.Create(r.Context(), middleware.Actor(r.Context()), req)
	if err != nil {
		core.WriteError(w, err, "report")
		return
	}
	core.Created(w, ToSnapshotResponse(snap))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Get(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "reportID"))
	if err != nil {
		core.WriteError(w, err, "report")
		return
	}
	core.OK(w, ToSnapshotResponse(snap))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "reportID")); err != nil {
		core.WriteError(w, err, "report")
		return
	}
	core.NoContent(w)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	data, filename, err := h.service.Export(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "reportID"))
	if err != nil {
		core.WriteError(w, err, "report")
		return
	}

	w.Header().Set("Content-Type", XLSXContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // best-effort response write
	_, _ = w.Write(data)
}

func parseIntQuery(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
