// AngelaMos | 2026
// handler.go

package user

import (
	"encoding/json"
	"errors"
	"io"
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
	r.Post("/register", h.Register)

	r.Route("/users", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/me", h.GetMe)
		r.Get("/{userID}", h.GetUser)
		r.Patch("/{userID}", h.UpdateUser)
		r.Post("/{userID}/password", h.ChangePassword)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Get("/", h.ListUsers)
			r.Delete("/{userID}", h.DeleteUser)
			r.Post("/{userID}/activate", h.setActive(true))
			r.Post("/{userID}/deactivate", h.setActive(false))
			r.Post("/{userID}/promote", h.Promote)
			r.Put("/{userID}/type", h.SetType)
		})
	})

	r.Route("/user-types", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.ListTypes)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Post("/", h.CreateType)
			r.Patch("/{typeID}", h.UpdateType)
			r.Delete("/{typeID}", h.DeleteType)
		})
	})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		core.WriteError(w, err, "user")
		return
	}

	core.Created(w, ToUserResponse(user))
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	actor := middleware.Actor(r.Context())

	user, err := h.service.Get(r.Context(), actor, actor.UserID)
	if err != nil {
		core.WriteError(w, err, "user")
		return
	}

	core.OK(w, ToUserResponse(user))
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Get(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "userID"))
	if err != nil {
		core.WriteError(w, err, "user")
		return
	}

	core.OK(w, ToUserResponse(user))
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := ListUsersParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
		Search:   q.Get("search"),
		Kind:     q.Get("kind"),
	}
	if v := q.Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			core.BadRequest(w, "active must be true or false")
			return
		}
		params.Active = &active
	}
	params.Normalize()

	users, total, err := h.service.List(r.Context(), middleware.Actor(r.Context()), params)
	if err != nil {
		core.WriteError(w, err, "user")
		return
	}

	core.Paginated(w, ToUserResponseList(users), params.Page, params.PageSize, total)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	user, err := h.service.Update(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "userID"), req)
	if err != nil {
		core.WriteError(w, err, "user")
		return
	}

	core.OK(w, ToUserResponse(user))
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "userID")); err != nil {
		core.WriteError(w, err, "user")
		return
	}

	core.NoContent(w)
}

func (h *Handler) setActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ActingUserRequest
		if !h.decode(w, r, &req, true) {
			return
		}

		user, err := h.service.SetActive(
			r.Context(),
			middleware.Actor(r.Context()),
			chi.URLParam(r, "userID"),
			active,
			req.ActingUserID,
		)
		if err != nil {
			core.WriteError(w, err, "user")
			return
		}

		core.OK(w, ToUserResponse(user))
	}
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	err := h.service.ChangePassword(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "userID"), req)
	if err != nil {
		core.WriteError(w, err, "user")
		return
	}

	core.NoContent(w)
}

func (h *Handler) Promote(w http.ResponseWriter, r *http.Request) {
	var req ActingUserRequest
	if !h.decode(w, r, &req, true) {
		return
	}

	user, err := h.service.Promote(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "userID"), req.ActingUserID)
	if err != nil {
		core.WriteError(w, err, "user")
		return
	}

	core.OK(w, ToUserResponse(user))
}

func (h *Handler) SetType(w http.ResponseWriter, r *http.Request) {
	var req SetTypeRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	user, err := h.service.SetType(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "userID"), req)
	if err != nil {
		core.WriteError(w, err, "user")
		return
	}

	core.OK(w, ToUserResponse(user))
}

func (h *Handler) ListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.service.ListTypes(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	out := make([]UserTypeResponse, 0, len(types))
	for i := range types {
		out = append(out, ToUserTypeResponse(&types[i]))
	}
	core.OK(w, out)
}

func (h *Handler) CreateType(w http.ResponseWriter, r *http.Request) {
	var req UserTypeRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	t, err := h.service.CreateType(r.Context(), middleware.Actor(r.Context()), req)
	if err != nil {
		core.WriteError(w, err, "user type")
		return
	}

	core.Created(w, ToUserTypeResponse(t))
}

func (h *Handler) UpdateType(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserTypeRequest
	if !h.decode(w, r, &req, false) {
		return
	}

	t, err := h.service.UpdateType(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "typeID"), req)
	if err != nil {
		core.WriteError(w, err, "user type")
		return
	}

	core.OK(w, ToUserTypeResponse(t))
}

func (h *Handler) DeleteType(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteType(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "typeID")); err != nil {
		core.WriteError(w, err, "user type")
		return
	}

	core.NoContent(w)
}

// decode reads and validates a JSON body. Action endpoints accept an empty
// body since acting_user_id is their only field.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			core.BadRequest(w, "invalid request body")
			return false
		}
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
