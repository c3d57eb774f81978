// AngelaMos | 2026
// handler.go

package order

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/printshop/internal/core"
	"github.com/carterperez-dev/printshop/internal/middleware"
	"github.com/carterperez-dev/printshop/internal/printjob"
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

// RegisterRoutes mounts /orders. nested is called inside /orders/{orderID}
// so other packages can hang sub-resources off an order.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	nested ...func(chi.Router),
) {
	r.Route("/orders", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/mine", h.ListMine)

		r.Route("/{orderID}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/", h.Update)
			r.Get("/history", h.History)

			r.With(middleware.RequireAdmin).Delete("/", h.Delete)
			r.With(middleware.RequireAdmin).Patch("/status", h.ChangeStatus)

			for _, fn := range nested {
				fn(r)
			}
		})
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeCreate(w, r)
	defer closeUploads(r, in.Files)
	if !ok {
		return
	}

	o, err := h.service.Create(r.Context(), middleware.Actor(r.Context()), in)
	if err != nil {
		core.WriteError(w, err, "order")
		return
	}
	core.Created(w, ToOrderResponse(o))
}

// decodeCreate reads either a JSON cart or a multipart form whose "payload"
// field holds the JSON cart and whose file parts are named by each print
// job's "file" field.
func (h *Handler) decodeCreate(w http.ResponseWriter, r *http.Request) (CreateInput, bool) {
	var in CreateInput

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")) //nolint:errcheck // empty falls through to JSON
	if mediaType != "multipart/form-data" {
		if err := json.NewDecoder(r.Body).Decode(&in.CreateOrderRequest); err != nil {
			core.BadRequest(w, "invalid request body")
			return in, false
		}
		return in, h.validate(w, &in.CreateOrderRequest)
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			core.JSONError(w, core.NewAppError(core.ErrInvalidInput, "upload too large", http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"))
			return in, false
		}
		core.BadRequest(w, "invalid multipart form")
		return in, false
	}

	if err := json.Unmarshal([]byte(r.FormValue("payload")), &in.CreateOrderRequest); err != nil {
		core.BadRequest(w, "payload must be a JSON order")
		return in, false
	}
	if !h.validate(w, &in.CreateOrderRequest) {
		return in, false
	}

	in.Files = make(map[int]printjob.Upload)
	for i, item := range in.PrintJobs {
		if item.File == "" {
			continue
		}
		headers := r.MultipartForm.File[item.File]
		if len(headers) == 0 {
			core.BadRequest(w, "missing file part "+item.File)
			return in, false
		}
		upload, err := openUpload(headers[0])
		if err != nil {
			core.BadRequest(w, "unreadable file part "+item.File)
			return in, false
		}
		in.Files[i] = upload
	}
	return in, true
}

func closeUploads(r *http.Request, files map[int]printjob.Upload) {
	for _, f := range files {
		if c, ok := f.Body.(io.Closer); ok {
			_ = c.Close() //nolint:errcheck // read-only upload
		}
	}
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll() //nolint:errcheck // temp file cleanup
	}
}

func openUpload(fh *multipart.FileHeader) (printjob.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return printjob.Upload{}, err
	}
	return printjob.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	}, nil
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	f, ok := parseFilter(w, r)
	if !ok {
		return
	}
	h.list(w, r, f)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	f, ok := parseFilter(w, r)
	if !ok {
		return
	}
	f.UserID = middleware.GetUserID(r.Context())
	h.list(w, r, f)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, f Filter) {
	f.Normalize()

	orders, total, err := h.service.List(r.Context(), middleware.Actor(r.Context()), f)
	if err != nil {
		core.WriteError(w, err, "order")
		return
	}
	core.Paginated(w, ToOrderResponseList(orders), f.Page, f.PageSize, total)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Get(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "orderID"))
	if err != nil {
		core.WriteError(w, err, "order")
		return
	}
	core.OK(w, ToOrderResponse(o))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if !h.validate(w, &req) {
		return
	}

	o, err := h.service.Update(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "orderID"), req)
	if err != nil {
		core.WriteError(w, err, "order")
		return
	}
	core.OK(w, ToOrderResponse(o))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "orderID")); err != nil {
		core.WriteError(w, err, "order")
		return
	}
	core.NoContent(w)
}

func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if !h.validate(w, &req) {
		return
	}

	o, err := h.service.ChangeStatus(
		r.Context(),
		middleware.Actor(r.Context()),
		chi.URLParam(r, "orderID"),
		req.Status,
		req.Reason,
	)
	if err != nil {
		core.WriteError(w, err, "order")
		return
	}
	core.OK(w, ToOrderResponse(o))
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.History(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "orderID"))
	if err != nil {
		core.WriteError(w, err, "order")
		return
	}
	core.OK(w, ToHistoryResponse(entries))
}

func (h *Handler) validate(w http.ResponseWriter, v any) bool {
	if err := h.validator.Struct(v); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}
	return true
}

// parseFilter reads user_id, status, from and to (RFC 3339 or YYYY-MM-DD)
// plus pagination. A bare "to" date includes that whole day.
func parseFilter(w http.ResponseWriter, r *http.Request) (Filter, bool) {
	q := r.URL.Query()
	f := Filter{
		UserID:   q.Get("user_id"),
		Status:   Status(q.Get("status")),
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
	}

	for key, dst := range map[string]**time.Time{"from": &f.From, "to": &f.To} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		t, dateOnly, err := parseDate(v)
		if err != nil {
			core.BadRequest(w, key+" must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
			return f, false
		}
		if dateOnly && key == "to" {
			t = t.AddDate(0, 0, 1)
		}
		*dst = &t
	}
	return f, true
}

func parseDate(v string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, false, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	return t, true, err
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
