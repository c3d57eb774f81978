// AngelaMos | 2026
// service_test.go

package user

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/printshop/internal/core"
	"github.com/carterperez-dev/printshop/internal/middleware"
)

type memRepo struct {
	mu    sync.Mutex
	users map[string]*User
	types map[string]*UserType
}

func newMemRepo() *memRepo {
	r := &memRepo{users: map[string]*User{}, types: map[string]*UserType{}}
	seed := []struct {
		id       string
		kind     Kind
		label    string
		discount string
	}{
		{"type-customer", KindCustomer, "Customer", "0"},
		{"type-admin", KindAdmin, "Admin", "0"},
		{"type-frequent", KindFrequent, "Frequent", "10"},
		{"type-student", KindStudent, "Student", "15"},
	}
	for _, s := range seed {
		r.types[s.id] = &UserType{
			ID:              s.id,
			Kind:            s.kind,
			Label:           s.label,
			DiscountPercent: decimal.RequireFromString(s.discount),
		}
	}
	return r
}

func (r *memRepo) hydrate(u *User) *User {
	cp := *u
	if cp.UserTypeID != nil {
		if t, ok := r.types[*cp.UserTypeID]; ok {
			kind, label := t.Kind, t.Label
			cp.Kind, cp.TypeLabel = &kind, &label
			cp.DiscountPercent = decimal.NewNullDecimal(t.DiscountPercent)
		}
	}
	return &cp
}

func (r *memRepo) Create(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return core.ErrDuplicateKey
		}
	}
	u.Active = true
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return r.hydrate(u), nil
}

func (r *memRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return r.hydrate(u), nil
		}
	}
	return nil, core.ErrNotFound
}

func (r *memRepo) Update(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[u.ID]
	if !ok {
		return core.ErrNotFound
	}
	stored.Name, stored.Surname, stored.Phone = u.Name, u.Surname, u.Phone
	return nil
}

func (r *memRepo) mutate(id string, fn func(*User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return core.ErrNotFound
	}
	fn(u)
	return nil
}

func (r *memRepo) UpdatePassword(_ context.Context, id, hash string) error {
	return r.mutate(id, func(u *User) { u.PasswordHash = hash })
}

func (r *memRepo) SetActive(_ context.Context, id string, active bool) error {
	return r.mutate(id, func(u *User) { u.Active = active })
}

func (r *memRepo) SetUserType(_ context.Context, id, typeID string) error {
	return r.mutate(id, func(u *User) { u.UserTypeID = &typeID })
}

func (r *memRepo) IncrementTokenVersion(_ context.Context, id string) error {
	return r.mutate(id, func(u *User) { u.TokenVersion++ })
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return core.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memRepo) List(_ context.Context, p ListUsersParams) ([]User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []User
	for _, u := range r.users {
		out = append(out, *r.hydrate(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, len(out), nil
}

func (r *memRepo) ListActiveAdmins(_ context.Context) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []User
	for _, u := range r.users {
		h := r.hydrate(u)
		if h.Active && h.IsAdmin() {
			out = append(out, *h)
		}
	}
	return out, nil
}

func (r *memRepo) ListTypes(_ context.Context) ([]UserType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []UserType
	for _, t := range r.types {
		out = append(out, *t)
	}
	return out, nil
}

func (r *memRepo) GetType(_ context.Context, id string) (*UserType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.types[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *memRepo) GetTypeByKind(_ context.Context, kind Kind) (*UserType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.types {
		if t.Kind == kind {
			cp := *t
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (r *memRepo) CreateType(_ context.Context, t *UserType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.types[t.ID] = &cp
	return nil
}

func (r *memRepo) UpdateType(_ context.Context, t *UserType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[t.ID]; !ok {
		return core.ErrNotFound
	}
	cp := *t
	r.types[t.ID] = &cp
	return nil
}

func (r *memRepo) DeleteType(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.UserTypeID != nil && *u.UserTypeID == id {
			return core.ErrConflict
		}
	}
	delete(r.types, id)
	return nil
}

type recordingRevoker struct{ calls []string }

func (r *recordingRevoker) LogoutAll(_ context.Context, userID string) error {
	r.calls = append(r.calls, userID)
	return nil
}

func newTestService(t *testing.T) (*Service, *memRepo) {
	t.Helper()
	repo := newMemRepo()
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil))), repo
}

func register(t *testing.T, svc *Service, email string) *User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterRequest{
		Email:           email,
		Password:        "correct-horse-battery",
		ConfirmPassword: "correct-horse-battery",
		Name:            "Ana",
		Surname:         "Gomez",
	})
	require.NoError(t, err)
	return u
}

func admin(id string) core.Actor {
	return core.Actor{UserID: id, Kind: core.KindAdmin}
}

func customer(id string) core.Actor {
	return core.Actor{UserID: id, Kind: string(KindCustomer)}
}

func TestRegisterForcesCustomerTier(t *testing.T) {
	svc, _ := newTestService(t)

	u := register(t, svc, "  Ana@Example.com ")

	assert.Equal(t, "ana@example.com", u.Email)
	assert.Equal(t, KindCustomer, u.KindOrDefault())
	assert.True(t, u.DiscountPercent.Decimal.IsZero())
	assert.NotContains(t, u.PasswordHash, "correct-horse")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc, "ana@example.com")

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "ANA@example.com",
		Password: "another-password",
		Name:     "Ana",
		Surname:  "Gomez",
	})

	appErr, ok := core.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
	assert.Equal(t, "DUPLICATE_EMAIL", appErr.Code)
}

func TestAccessControl(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a := register(t, svc, "a@example.com")
	b := register(t, svc, "b@example.com")

	_, err := svc.Get(ctx, customer(a.ID), b.ID)
	assert.ErrorIs(t, err, core.ErrForbidden)

	got, err := svc.Get(ctx, customer(a.ID), a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = svc.Get(ctx, admin("root"), b.ID)
	assert.NoError(t, err)

	_, _, err = svc.List(ctx, customer(a.ID), ListUsersParams{})
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestActingUserMismatchRejected(t *testing.T) {
	svc, _ := newTestService(t)
	a := register(t, svc, "a@example.com")
	other := "someone-else"
	name := "Changed"

	_, err := svc.Update(context.Background(), customer(a.ID), a.ID, UpdateUserRequest{
		ActingUserID: &other,
		Name:         &name,
	})
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = svc.Promote(context.Background(), admin("root"), a.ID, &other)
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestDeleteSelfRejected(t *testing.T) {
	svc, _ := newTestService(t)
	a := register(t, svc, "a@example.com")

	err := svc.Delete(context.Background(), admin(a.ID), a.ID)
	assert.ErrorIs(t, err, core.ErrInvalidState)

	err = svc.Delete(context.Background(), customer("x"), a.ID)
	assert.ErrorIs(t, err, core.ErrForbidden)

	require.NoError(t, svc.Delete(context.Background(), admin("root"), a.ID))
	_, err = svc.Get(context.Background(), admin("root"), a.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestChangePassword(t *testing.T) {
	svc, repo := newTestService(t)
	revoker := &recordingRevoker{}
	svc.SetSessionRevoker(revoker)
	ctx := context.Background()
	a := register(t, svc, "a@example.com")

	err := svc.ChangePassword(ctx, customer(a.ID), a.ID, ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "new-password-123",
	})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	err = svc.ChangePassword(ctx, customer(a.ID), a.ID, ChangePasswordRequest{
		CurrentPassword: "correct-horse-battery",
		NewPassword:     "new-password-123",
	})
	require.NoError(t, err)

	stored, _ := repo.GetByID(ctx, a.ID)
	ok, _, err := core.VerifyPassword("new-password-123", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{a.ID}, revoker.calls)

	err = svc.ChangePassword(ctx, admin("root"), a.ID, ChangePasswordRequest{
		NewPassword: "admin-reset-456",
	})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, customer("intruder"), a.ID, ChangePasswordRequest{
		NewPassword: "whatever-789",
	})
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestPromoteAndSetType(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a := register(t, svc, "a@example.com")

	promoted, err := svc.Promote(ctx, admin("root"), a.ID, nil)
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin())

	student, err := svc.SetType(ctx, admin("root"), a.ID, SetTypeRequest{UserTypeID: "type-student"})
	require.NoError(t, err)
	assert.Equal(t, KindStudent, student.KindOrDefault())
	assert.Equal(t, "15", student.DiscountPercent.Decimal.String())

	_, err = svc.SetType(ctx, admin("root"), a.ID, SetTypeRequest{UserTypeID: "missing"})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	emails, err := svc.AdminEmails(ctx)
	require.NoError(t, err)
	assert.Empty(t, emails)
}

func TestDeactivateEndsSessions(t *testing.T) {
	svc, _ := newTestService(t)
	revoker := &recordingRevoker{}
	svc.SetSessionRevoker(revoker)
	a := register(t, svc, "a@example.com")

	u, err := svc.SetActive(context.Background(), admin("root"), a.ID, false, nil)
	require.NoError(t, err)
	assert.False(t, u.Active)
	assert.Equal(t, []string{a.ID}, revoker.calls)

	info, err := svc.GetByEmail(context.Background(), "A@EXAMPLE.COM")
	require.NoError(t, err)
	assert.False(t, info.Active)
	assert.Equal(t, string(KindCustomer), info.Kind)
}

func TestDeleteReferencedTypeConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc, "a@example.com")

	err := svc.DeleteType(context.Background(), admin("root"), "type-customer")
	assert.ErrorIs(t, err, core.ErrConflict)

	require.NoError(t, svc.DeleteType(context.Background(), admin("root"), "type-frequent"))
}

func TestUserTypeCRUD(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateType(ctx, admin("root"), UserTypeRequest{
		Kind:            KindFrequent,
		Label:           "Gold",
		DiscountPercent: decimal.RequireFromString("12.345"),
	})
	require.NoError(t, err)
	assert.Equal(t, "12.35", created.DiscountPercent.StringFixed(2))

	label := "Platinum"
	updated, err := svc.UpdateType(ctx, admin("root"), created.ID, UpdateUserTypeRequest{Label: &label})
	require.NoError(t, err)
	assert.Equal(t, "Platinum", updated.Label)

	_, err = svc.CreateType(ctx, customer("u"), UserTypeRequest{Kind: KindFrequent, Label: "x"})
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestRegisterHandlerValidation(t *testing.T) {
	svc, _ := newTestService(t)
	h := NewHandler(svc)
	r := chi.NewRouter()
	h.RegisterRoutes(r, func(next http.Handler) http.Handler { return next })

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
	}{
		{
			name: "valid",
			body: map[string]any{
				"email": "new@example.com", "password": "password123",
				"confirm_password": "password123", "name": "N", "surname": "S",
				"phone": "5491122334",
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "password mismatch",
			body: map[string]any{
				"email": "x@example.com", "password": "password123",
				"confirm_password": "password124", "name": "N", "surname": "S",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "bad phone",
			body: map[string]any{
				"email": "y@example.com", "password": "password123",
				"confirm_password": "password123", "name": "N", "surname": "S",
				"phone": "12-34",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "duplicate",
			body: map[string]any{
				"email": "NEW@example.com", "password": "password123",
				"confirm_password": "password123", "name": "N", "surname": "S",
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.body)
			req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body))
			rec := httptest.NewRecorder()

			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestUsersHandlerRequiresAdminForList(t *testing.T) {
	svc, _ := newTestService(t)
	a := register(t, svc, "a@example.com")
	h := NewHandler(svc)
	r := chi.NewRouter()

	asCustomer := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := middleware.WithClaims(req.Context(), &middleware.AccessTokenClaims{
				UserID: a.ID,
				Kind:   string(KindCustomer),
			})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
	h.RegisterRoutes(r, asCustomer)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/me", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
