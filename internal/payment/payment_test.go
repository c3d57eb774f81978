// AngelaMos | 2026
// payment_test.go

package payment

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/printshop/internal/config"
	"github.com/carterperez-dev/printshop/internal/core"
	"github.com/carterperez-dev/printshop/internal/middleware"
	"github.com/carterperez-dev/printshop/internal/order"
)

const (
	ownerID = "11111111-1111-1111-1111-111111111111"
	orderID = "44444444-4444-4444-4444-444444444444"
)

type memRepo struct {
	payments map[string]Payment
}

func (m *memRepo) Create(_ context.Context, p *Payment) error {
	p.CreatedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.payments[p.ID] = *p
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &p, nil
}

func (m *memRepo) ListByOrder(_ context.Context, id string) ([]Payment, error) {
	var out []Payment
	for _, p := range m.payments {
		if p.OrderID == id {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memRepo) UpdateStatus(_ context.Context, id string, status Status) error {
	p, ok := m.payments[id]
	if !ok {
		return core.ErrNotFound
	}
	p.Status = status
	m.payments[id] = p
	return nil
}

type ownedOrders struct{}

func (ownedOrders) Get(_ context.Context, actor core.Actor, id string) (*order.Order, error) {
	if id != orderID {
		return nil, core.ErrNotFound
	}
	owner := ownerID
	if !actor.CanAccess(&owner) {
		return nil, core.ErrForbidden
	}
	return &order.Order{ID: id, UserID: &owner}, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func owner() core.Actor    { return core.Actor{UserID: ownerID, Kind: "customer"} }
func stranger() core.Actor { return core.Actor{UserID: "someone-else", Kind: "customer"} }
func admin() core.Actor    { return core.Actor{UserID: "root", Kind: core.KindAdmin} }

func newCheckoutServer(t *testing.T, status int, reply string, seen *preferenceBody) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/checkout/preferences", r.URL.Path)
		assert.Equal(t, "Bearer TEST-TOKEN", r.Header.Get("Authorization"))
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func checkoutFor(url string) *CheckoutClient {
	return NewCheckoutClient(config.PaymentConfig{
		AccessToken: "TEST-TOKEN",
		BaseURL:     url + "/",
		Currency:    "ARS",
		SuccessURL:  "https://shop.example.com/ok",
		Timeout:     2 * time.Second,
	})
}

func TestCheckoutClientCreatesPreference(t *testing.T) {
	var seen preferenceBody
	srv := newCheckoutServer(t, http.StatusCreated, `{"id":"pref-1","init_point":"https://mp.example/init"}`, &seen)

	pref, err := checkoutFor(srv.URL).CreatePreference(context.Background(), orderID, []CartItem{
		{Title: "Spiral notebook", Quantity: 2, UnitPrice: decimal.RequireFromString("100.005")},
	})
	require.NoError(t, err)

	assert.Equal(t, "pref-1", pref.PreferenceID)
	assert.Equal(t, "https://mp.example/init", pref.InitPoint)
	require.Len(t, seen.Items, 1)
	assert.Equal(t, "ARS", seen.Items[0].CurrencyID)
	assert.InDelta(t, 100.01, seen.Items[0].UnitPrice, 0.0001)
	assert.True(t, seen.BinaryMode)
	assert.Equal(t, orderID, seen.ExternalReference)
	assert.Equal(t, "https://shop.example.com/ok", seen.BackURLs.Success)
}

func TestCheckoutClientReturnsProviderError(t *testing.T) {
	body := `{"message":"invalid unit_price","status":400}`
	srv := newCheckoutServer(t, http.StatusBadRequest, body, nil)

	_, err := checkoutFor(srv.URL).CreatePreference(context.Background(), "", []CartItem{
		{Title: "x", Quantity: 1, UnitPrice: decimal.NewFromInt(1)},
	})

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusBadRequest, perr.StatusCode)
	assert.JSONEq(t, body, string(perr.Body))
}

func TestCheckoutClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := checkoutFor(url).CreatePreference(context.Background(), "", []CartItem{
		{Title: "x", Quantity: 1, UnitPrice: decimal.NewFromInt(1)},
	})
	assert.ErrorIs(t, err, core.ErrUpstream)
}

func TestServiceRecordsPayments(t *testing.T) {
	repo := &memRepo{payments: map[string]Payment{}}
	svc := NewService(repo, ownedOrders{}, nil, discard())
	ctx := context.Background()

	p, err := svc.Create(ctx, owner(), orderID, CreatePaymentRequest{
		Method: MethodCash,
		Amount: decimal.RequireFromString("192.004"),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, p.Status)
	assert.Equal(t, "192.00", p.Amount.StringFixed(2))

	_, err = svc.Create(ctx, stranger(), orderID, CreatePaymentRequest{Method: MethodCash, Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = svc.Create(ctx, owner(), orderID, CreatePaymentRequest{Method: MethodCash, Amount: decimal.Zero})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	list, err := svc.ListForOrder(ctx, owner(), orderID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.ListForOrder(ctx, stranger(), orderID)
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = svc.UpdateStatus(ctx, owner(), p.ID, StatusCompleted)
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = svc.UpdateStatus(ctx, admin(), p.ID, "refunded")
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	updated, err := svc.UpdateStatus(ctx, admin(), p.ID, StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)
}

func newRouter(t *testing.T, svc *Service, actor core.Actor) http.Handler {
	t.Helper()
	auth := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithClaims(r.Context(), &middleware.AccessTokenClaims{UserID: actor.UserID, Kind: actor.Kind})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
	h := NewHandler(svc)
	r := chi.NewRouter()
	h.RegisterRoutes(r, auth)
	r.Route("/orders/{orderID}", func(r chi.Router) {
		r.Use(auth)
		h.OrderRoutes(r)
	})
	return r
}

func TestHandlerCreatePreference(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		reply      string
		body       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "created",
			status:     http.StatusCreated,
			reply:      `{"id":"pref-9","init_point":"https://mp.example/pay"}`,
			body:       `{"items":[{"title":"A4 copies","quantity":3,"unit_price":"20"}]}`,
			wantStatus: http.StatusOK,
			wantBody:   `"preference_id":"pref-9"`,
		},
		{
			name:       "provider rejection passes through",
			status:     http.StatusUnauthorized,
			reply:      `{"message":"invalid access token","status":401}`,
			body:       `{"items":[{"title":"A4 copies","quantity":3,"unit_price":"20"}]}`,
			wantStatus: http.StatusUnauthorized,
			wantBody:   `"invalid access token"`,
		},
		{
			name:       "empty cart",
			status:     http.StatusCreated,
			reply:      `{}`,
			body:       `{"items":[]}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.reply)
			}))
			defer srv.Close()

			svc := NewService(&memRepo{payments: map[string]Payment{}}, ownedOrders{}, checkoutFor(srv.URL), discard())
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/payments/create-preference", strings.NewReader(tt.body))
			newRouter(t, svc, owner()).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestHandlerOrderPayments(t *testing.T) {
	svc := NewService(&memRepo{payments: map[string]Payment{}}, ownedOrders{}, nil, discard())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/orders/"+orderID+"/payments",
		strings.NewReader(`{"method":"transfer","amount":"50"}`))
	newRouter(t, svc, owner()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/orders/"+orderID+"/payments",
		strings.NewReader(`{"method":"bitcoin","amount":"50"}`))
	newRouter(t, svc, owner()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/orders/"+orderID+"/payments", nil)
	newRouter(t, svc, stranger()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
