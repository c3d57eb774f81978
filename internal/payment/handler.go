// AngelaMos | 2026
// handler.go

package payment

import (
	"encoding/json"
	"errors"
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
	r.Route("/payments", func(r chi.Router) {
		r.Use(authenticator)

		r.Post("/create-preference", h.CreatePreference)
		r.With(middleware.RequireAdmin).Patch("/{paymentID}/status", h.UpdateStatus)
	})
}

// OrderRoutes mounts the payments sub-resource inside /orders/{orderID}.
func (h *Handler) OrderRoutes(r chi.Router) {
	r.Get("/payments", h.ListForOrder)
	r.Post("/payments", h.Create)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.service.Create(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "orderID"), req)
	if err != nil {
		core.WriteError(w, err, "order")
		return
	}
	core.Created(w, ToPaymentResponse(p))
}

func (h *Handler) ListForOrder(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.ListForOrder(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "orderID"))
	if err != nil {
		core.WriteError(w, err, "order")
		return
	}
	core.OK(w, ToPaymentResponseList(payments))
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.service.UpdateStatus(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "paymentID"), req.Status)
	if err != nil {
		core.WriteError(w, err, "payment")
		return
	}
	core.OK(w, ToPaymentResponse(p))
}

func (h *Handler) CreatePreference(w http.ResponseWriter, r *http.Request) {
	var req PreferenceRequest
	if !h.decode(w, r, &req) {
		return
	}

	pref, err := h.service.CreatePreference(r.Context(), middleware.Actor(r.Context()), req)
	if err != nil {
		var perr *ProviderError
		if errors.As(err, &perr) {
			relay(w, perr)
			return
		}
		core.WriteError(w, err, "order")
		return
	}
	core.OK(w, pref)
}

// relay writes the provider's error reply through untouched.
func relay(w http.ResponseWriter, perr *ProviderError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(perr.StatusCode)
	//nolint:errcheck // best-effort response write
	_, _ = w.Write(perr.Body)
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
