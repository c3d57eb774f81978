// AngelaMos | 2026
// handler.go

package product

import (
	"encoding/json"
	"net/http"

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
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/active", h.ListActive)
		r.Get("/{productID}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Use(middleware.RequireAdmin)

			r.Post("/", h.Create)
			r.Patch("/{productID}", h.Update)
			r.Delete("/{productID}", h.Delete)
			r.Patch("/{productID}/activate", h.setActive(true))
			r.Patch("/{productID}/deactivate", h.setActive(false))
			r.Patch("/{productID}/price", h.SetPrice)
		})
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.List(r.Context(), r.URL.Query().Get("active") == "true")
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	core.OK(w, ToProductResponseList(products))
}

func (h *Handler) ListActive(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.List(r.Context(), true)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	core.OK(w, ToProductResponseList(products))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		core.WriteError(w, err, "product")
		return
	}
	core.OK(w, ToProductResponse(p))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.service.Create(r.Context(), req)
	if err != nil {
		core.WriteError(w, err, "product")
		return
	}
	core.Created(w, ToProductResponse(p))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateProductRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.service.Update(r.Context(), chi.URLParam(r, "productID"), req)
	if err != nil {
		core.WriteError(w, err, "product")
		return
	}
	core.OK(w, ToProductResponse(p))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "productID")); err != nil {
		core.WriteError(w, err, "product")
		return
	}
	core.NoContent(w)
}

func (h *Handler) setActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := h.service.SetActive(r.Context(), chi.URLParam(r, "productID"), active)
		if err != nil {
			core.WriteError(w, err, "product")
			return
		}
		core.OK(w, ToProductResponse(p))
	}
}

func (h *Handler) SetPrice(w http.ResponseWriter, r *http.Request) {
	var req PriceRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.service.SetPrice(r.Context(), chi.URLParam(r, "productID"), req.UnitPrice)
	if err != nil {
		core.WriteError(w, err, "product")
		return
	}
	core.OK(w, ToProductResponse(p))
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
