// AngelaMos | 2026
// handler.go

package printjob

import (
	"encoding/json"
	"errors"
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
	maxUpload int64
}

func NewHandler(service *Service, maxUpload int64) *Handler {
	return &Handler{
		service:   service,
		validator: core.NewValidator(),
		maxUpload: maxUpload,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/print-job-types", func(r chi.Router) {
		r.Get("/", h.ListTypes)
		r.Get("/{typeID}", h.GetType)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Use(middleware.RequireAdmin)

			r.Post("/", h.CreateType)
			r.Patch("/{typeID}", h.UpdateType)
			r.Delete("/{typeID}", h.DeleteType)
			r.Patch("/{typeID}/activate", h.setTypeActive(true))
			r.Patch("/{typeID}/deactivate", h.setTypeActive(false))
			r.Patch("/{typeID}/price", h.SetTypePrice)
		})
	})

	r.Route("/print-jobs", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/mine", h.ListMine)
		r.Post("/", h.Create)
		r.Get("/{jobID}", h.Get)
		r.Patch("/{jobID}", h.Update)
		r.Delete("/{jobID}", h.Delete)
		r.Post("/{jobID}/touch", h.Touch)
		r.Get("/{jobID}/download", h.Download)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Get("/", h.List)
			r.Post("/purge", h.Purge)
		})
	})
}

func (h *Handler) ListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.service.ListTypes(r.Context(), r.URL.Query().Get("active") == "true")
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	out := make([]JobTypeResponse, 0, len(types))
	for i := range types {
		out = append(out, ToJobTypeResponse(&types[i]))
	}
	core.OK(w, out)
}

func (h *Handler) GetType(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.GetType(r.Context(), chi.URLParam(r, "typeID"))
	if err != nil {
		core.WriteError(w, err, "print job type")
		return
	}
	core.OK(w, ToJobTypeResponse(t))
}

func (h *Handler) CreateType(w http.ResponseWriter, r *http.Request) {
	var req CreateJobTypeRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := h.service.CreateType(r.Context(), req)
	if err != nil {
		core.WriteError(w, err, "print job type")
		return
	}
	core.Created(w, ToJobTypeResponse(t))
}

func (h *Handler) UpdateType(w http.ResponseWriter, r *http.Request) {
	var req UpdateJobTypeRequest
	if !h.decode(w, r, &req) {
		return
	}

	t, err := h.service.UpdateType(r.Context(), chi.URLParam(r, "typeID"), req)
	if err != nil {
		core.WriteError(w, err, "print job type")
		return
	}
	core.OK(w, ToJobTypeResponse(t))
}

func (h *Handler) DeleteType(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteType(r.Context(), chi.URLParam(r, "typeID")); err != nil {
		core.WriteError(w, err, "print job type")
		return
	}
	core.NoContent(w)
}

func (h *Handler) setTypeActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := h.service.SetTypeActive(r.Context(), chi.URLParam(r, "typeID"), active)
		if err != nil {
			core.WriteError(w, err, "print job type")
			return
		}
		core.OK(w, ToJobTypeResponse(t))
	}
}

func (h *Handler) SetTypePrice(w http.ResponseWriter, r *http.Request) {
	var req PriceRequest
	if !h.decode(w, r, &req) {
		return
	}

	t, err := h.service.SetTypePrice(r.Context(), chi.URLParam(r, "typeID"), req.Price)
	if err != nil {
		core.WriteError(w, err, "print job type")
		return
	}
	core.OK(w, ToJobTypeResponse(t))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := ListParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
		UserID:   r.URL.Query().Get("user_id"),
	}
	h.list(w, r, params)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	params := ListParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
		UserID:   middleware.GetUserID(r.Context()),
	}
	h.list(w, r, params)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, params ListParams) {
	params.Normalize()

	jobs, total, err := h.service.List(r.Context(), middleware.Actor(r.Context()), params)
	if err != nil {
		core.WriteError(w, err, "print job")
		return
	}
	core.Paginated(w, ToPrintJobResponseList(jobs), params.Page, params.PageSize, total)
}

// Create accepts multipart/form-data with format, color and a file part.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			core.JSONError(w, core.NewAppError(core.ErrInvalidInput, "file too large", http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"))
			return
		}
		core.BadRequest(w, "expected multipart form data")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp file cleanup

	file, header, err := r.FormFile("file")
	if err != nil {
		core.BadRequest(w, "file is required")
		return
	}
	defer file.Close() //nolint:errcheck // read-only upload

	color, _ := strconv.ParseBool(r.FormValue("color")) //nolint:errcheck // absent means black and white

	job, err := h.service.Create(
		r.Context(),
		middleware.Actor(r.Context()),
		NormalizeFormat(r.FormValue("format")),
		color,
		Upload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Body:        file,
		},
	)
	if err != nil {
		core.WriteError(w, err, "print job")
		return
	}
	core.Created(w, ToPrintJobResponse(job))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.service.Get(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "jobID"))
	if err != nil {
		core.WriteError(w, err, "print job")
		return
	}
	core.OK(w, ToPrintJobResponse(job))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdatePrintJobRequest
	if !h.decode(w, r, &req) {
		return
	}
	job, err := h.service.Update(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "jobID"), req)
	if err != nil {
		core.WriteError(w, err, "print job")
		return
	}
	core.OK(w, ToPrintJobResponse(job))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "jobID")); err != nil {
		core.WriteError(w, err, "print job")
		return
	}
	core.NoContent(w)
}

func (h *Handler) Touch(w http.ResponseWriter, r *http.Request) {
	job, err := h.service.Touch(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "jobID"))
	if err != nil {
		core.WriteError(w, err, "print job")
		return
	}
	core.OK(w, ToPrintJobResponse(job))
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	url, err := h.service.Download(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "jobID"))
	if err != nil {
		core.WriteError(w, err, "print job")
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (h *Handler) Purge(w http.ResponseWriter, r *http.Request) {
	var req PurgeRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.Purge(r.Context(), req.Days)
	if err != nil {
		core.WriteError(w, err, "print job")
		return
	}
	core.OK(w, result)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}
	return true
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}
