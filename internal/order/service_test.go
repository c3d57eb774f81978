// AngelaMos | 2026
// service_test.go

package order

import (
	"context"
	"errors"
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
	"github.com/carterperez-dev/printshop/internal/notify"
	"github.com/carterperez-dev/printshop/internal/printjob"
	"github.com/carterperez-dev/printshop/internal/product"
)

type memState struct {
	orders        map[string]Order
	history       []HistoryEntry
	productLines  []ProductLine
	printJobLines []PrintJobLine
	printJobs     map[string]printjob.PrintJob
}

func (s memState) clone() memState {
	c := memState{
		orders:        make(map[string]Order, len(s.orders)),
		history:       append([]HistoryEntry(nil), s.history...),
		productLines:  append([]ProductLine(nil), s.productLines...),
		printJobLines: append([]PrintJobLine(nil), s.printJobLines...),
		printJobs:     make(map[string]printjob.PrintJob, len(s.printJobs)),
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.printJobs {
		c.printJobs[k] = v
	}
	return c
}

// memStore is a Store whose InTx restores the previous state on error.
type memStore struct {
	mu        sync.Mutex
	state     memState
	products  map[string]product.Product
	prices    map[string]decimal.Decimal
	discounts map[string]decimal.Decimal
	emails    map[string]string
	clock     time.Time
}

func newMemStore() *memStore {
	return &memStore{
		state: memState{
			orders:    map[string]Order{},
			printJobs: map[string]printjob.PrintJob{},
		},
		products:  map[string]product.Product{},
		prices:    map[string]decimal.Decimal{},
		discounts: map[string]decimal.Decimal{},
		emails:    map[string]string{},
		clock:     time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
	}
}

func priceKey(format string, color bool) string {
	if color {
		return format + "/color"
	}
	return format + "/bw"
}

func (m *memStore) InTx(_ context.Context, fn func(Repository) error) error {
	snapshot := m.state.clone()
	if err := fn(m); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *memStore) Create(_ context.Context, o *Order) error {
	if o.CreatedAt.IsZero() {
		m.clock = m.clock.Add(time.Minute)
		o.OrderDate, o.CreatedAt, o.UpdatedAt = m.clock, m.clock, m.clock
	}
	m.state.orders[o.ID] = *o
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := m.state.orders[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	if o.UserID != nil {
		if email, ok := m.emails[*o.UserID]; ok {
			o.UserEmail = &email
		}
	}
	o.ProductLines, o.PrintJobLines = nil, nil
	return &o, nil
}

func (m *memStore) GetForUpdate(ctx context.Context, id string) (*Order, error) {
	return m.GetByID(ctx, id)
}

func (m *memStore) List(_ context.Context, f Filter) ([]Order, int, error) {
	var out []Order
	for _, o := range m.state.orders {
		if f.UserID != "" && (o.UserID == nil || *o.UserID != f.UserID) {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderDate.After(out[j].OrderDate) })
	return out, len(out), nil
}

func (m *memStore) SetTotal(_ context.Context, id string, total decimal.Decimal) error {
	o, ok := m.state.orders[id]
	if !ok {
		return core.ErrNotFound
	}
	o.Total = total
	m.state.orders[id] = o
	return nil
}

func (m *memStore) UpdateStatus(_ context.Context, id string, status Status, reason *string) error {
	o, ok := m.state.orders[id]
	if !ok {
		return core.ErrNotFound
	}
	o.Status = status
	if reason != nil {
		o.CorrectionReason = *reason
	}
	m.state.orders[id] = o
	return nil
}

func (m *memStore) UpdateObservation(_ context.Context, id, observation string) error {
	o, ok := m.state.orders[id]
	if !ok {
		return core.ErrNotFound
	}
	o.Observation = observation
	m.state.orders[id] = o
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	if _, ok := m.state.orders[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.state.orders, id)
	return nil
}

func (m *memStore) AddHistory(_ context.Context, orderID string, status Status, at time.Time) error {
	m.state.history = append(m.state.history, HistoryEntry{
		ID:        "h" + string(rune('a'+len(m.state.history))),
		OrderID:   orderID,
		Status:    status,
		ChangedAt: at,
	})
	return nil
}

func (m *memStore) History(_ context.Context, orderID string) ([]HistoryEntry, error) {
	var out []HistoryEntry
	for _, h := range m.state.history {
		if h.OrderID == orderID {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ChangedAt.Before(out[j].ChangedAt) })
	return out, nil
}

func (m *memStore) ActiveProduct(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.products[id]
	if !ok || !p.Active {
		return nil, core.ErrNotFound
	}
	return &p, nil
}

func (m *memStore) AddProductLine(_ context.Context, l *ProductLine) error {
	m.state.productLines = append(m.state.productLines, *l)
	return nil
}

func (m *memStore) ProductLines(_ context.Context, orderID string) ([]ProductLine, error) {
	var out []ProductLine
	for _, l := range m.state.productLines {
		if l.OrderID == orderID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memStore) ActivePrintPrice(_ context.Context, format string, color bool) (decimal.Decimal, error) {
	p, ok := m.prices[priceKey(format, color)]
	if !ok {
		return decimal.Zero, core.ErrNotFound
	}
	return p, nil
}

func (m *memStore) CreatePrintJob(_ context.Context, job *printjob.PrintJob) error {
	m.state.printJobs[job.ID] = *job
	return nil
}

func (m *memStore) AddPrintJobLine(_ context.Context, l *PrintJobLine) error {
	m.state.printJobLines = append(m.state.printJobLines, *l)
	return nil
}

func (m *memStore) PrintJobLines(_ context.Context, orderID string) ([]PrintJobLine, error) {
	var out []PrintJobLine
	for _, l := range m.state.printJobLines {
		if l.OrderID == orderID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memStore) DiscountFor(_ context.Context, userID string) (decimal.Decimal, error) {
	return m.discounts[userID], nil
}

type fakeBlobs struct {
	puts []string
	err  error
}

func (f *fakeBlobs) Put(_ context.Context, key string, _ io.Reader, _ int64, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.puts = append(f.puts, key)
	return "https://cdn.example.com/" + key, nil
}

func (f *fakeBlobs) Delete(context.Context, string) error { return nil }

type fakePublisher struct {
	events []notify.OrderEvent
	err    error
}

func (f *fakePublisher) PublishOrderEvent(_ context.Context, e notify.OrderEvent) error {
	f.events = append(f.events, e)
	return f.err
}

const (
	customerID = "11111111-1111-1111-1111-111111111111"
	otherID    = "22222222-2222-2222-2222-222222222222"
	productID  = "33333333-3333-3333-3333-333333333333"
)

type fixture struct {
	store     *memStore
	blobs     *fakeBlobs
	publisher *fakePublisher
	svc       *Service
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	store := newMemStore()
	store.products[productID] = product.Product{
		ID:        productID,
		Name:      "Spiral notebook",
		UnitPrice: dec("100.00"),
		Active:    true,
	}
	store.prices[priceKey("A4", false)] = dec("20.00")
	store.discounts[customerID] = dec("20")
	store.emails[customerID] = "ana@example.com"

	blobs := &fakeBlobs{}
	pub := &fakePublisher{}
	svc := NewService(store, blobs, pub, opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time {
		store.clock = store.clock.Add(time.Minute)
		return store.clock
	}
	return &fixture{store: store, blobs: blobs, publisher: pub, svc: svc}
}

func customerActor() core.Actor {
	return core.Actor{UserID: customerID, Kind: "customer"}
}

func adminActor() core.Actor {
	return core.Actor{UserID: "root", Kind: core.KindAdmin}
}

func sampleCart() CreateInput {
	return CreateInput{
		CreateOrderRequest: CreateOrderRequest{
			Products: []ProductItem{{ProductID: productID, Quantity: 2}},
			PrintJobs: []PrintJobItem{
				{Format: "A4", Color: false, Copies: 2, Subtotal: dec("40.00"), File: "file0"},
			},
			Observation: "bind on the left",
		},
		Files: map[int]printjob.Upload{
			0: {Filename: "thesis.pdf", ContentType: "application/pdf", Size: 3, Body: strings.NewReader("pdf")},
		},
	}
}

func TestCreateAppliesTierDiscount(t *testing.T) {
	for _, verify := range []bool{false, true} {
		f := newFixture(t, Options{VerifyPrintPrices: verify})

		o, err := f.svc.Create(context.Background(), customerActor(), sampleCart())
		require.NoError(t, err)

		assert.Equal(t, "192.00", o.Total.StringFixed(2))
		assert.Equal(t, StatusPending, o.Status)
		require.Len(t, o.ProductLines, 1)
		assert.Equal(t, "200.00", o.ProductLines[0].Subtotal.StringFixed(2))
		require.Len(t, o.PrintJobLines, 1)
		require.NotNil(t, o.PrintJobLines[0].URL)
		assert.Contains(t, *o.PrintJobLines[0].URL, "print-jobs/"+customerID+"/")

		stored := f.store.state.orders[o.ID]
		assert.Equal(t, "192.00", stored.Total.StringFixed(2))
		assert.Len(t, f.blobs.puts, 1)

		history, err := f.svc.History(context.Background(), customerActor(), o.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, StatusPending, history[0].Status)
		assert.False(t, history[0].Synthetic)
	}
}

func TestCreateMissingProductRollsBack(t *testing.T) {
	f := newFixture(t, Options{})
	cart := sampleCart()
	cart.Products = append(cart.Products, ProductItem{ProductID: otherID, Quantity: 1})

	_, err := f.svc.Create(context.Background(), customerActor(), cart)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.Empty(t, f.store.state.orders)
	assert.Empty(t, f.store.state.history)
	assert.Empty(t, f.store.state.productLines)
	assert.Empty(t, f.store.state.printJobLines)
	assert.Empty(t, f.store.state.printJobs)
}

func TestCreateInactiveProductIsNotFound(t *testing.T) {
	f := newFixture(t, Options{})
	p := f.store.products[productID]
	p.Active = false
	f.store.products[productID] = p

	_, err := f.svc.Create(context.Background(), customerActor(), sampleCart())
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Empty(t, f.store.state.orders)
}

func TestCreateStorageFailureRollsBack(t *testing.T) {
	f := newFixture(t, Options{})
	f.blobs.err = errors.New("bucket unreachable")

	_, err := f.svc.Create(context.Background(), customerActor(), sampleCart())
	require.Error(t, err)
	assert.Empty(t, f.store.state.orders)
	assert.Empty(t, f.store.state.productLines)
}

func TestCreateRejectsTamperedPrintSubtotal(t *testing.T) {
	f := newFixture(t, Options{VerifyPrintPrices: true})
	cart := sampleCart()
	cart.PrintJobs[0].Subtotal = dec("1.00")

	_, err := f.svc.Create(context.Background(), customerActor(), cart)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	assert.Empty(t, f.store.state.orders)
	assert.Empty(t, f.blobs.puts)
}

func TestCreateRejectsEmptyCart(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.svc.Create(context.Background(), customerActor(), CreateInput{})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestChangeStatusRequiresCorrection(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	o, err := f.svc.Create(ctx, customerActor(), sampleCart())
	require.NoError(t, err)
	before := len(f.store.state.history)

	reason := "file resolution too low"
	updated, err := f.svc.ChangeStatus(ctx, adminActor(), o.ID, "Requires Correction", &reason)
	require.NoError(t, err)

	assert.Equal(t, StatusRequiresCorrection, updated.Status)
	assert.Equal(t, reason, updated.CorrectionReason)
	require.Len(t, f.store.state.history, before+1)
	assert.Equal(t, StatusRequiresCorrection, f.store.state.history[before].Status)

	require.Len(t, f.publisher.events, 1)
	ev := f.publisher.events[0]
	assert.Equal(t, notify.EventCorrectionRequired, ev.Type)
	assert.Equal(t, reason, ev.Reason)
	assert.Equal(t, "ana@example.com", ev.Email)
	assert.Equal(t, string(StatusPending), ev.PreviousStatus)
}

func TestChangeStatusSurvivesPublishFailure(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	o, err := f.svc.Create(ctx, customerActor(), sampleCart())
	require.NoError(t, err)
	f.publisher.err = errors.New("broker down")

	updated, err := f.svc.ChangeStatus(ctx, adminActor(), o.ID, "In Process", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusInProcess, updated.Status)
	assert.Equal(t, StatusInProcess, f.store.state.orders[o.ID].Status)
}

func TestChangeStatusRejections(t *testing.T) {
	f := newFixture(t, Options{StrictTransitions: true})
	ctx := context.Background()
	o, err := f.svc.Create(ctx, customerActor(), sampleCart())
	require.NoError(t, err)

	_, err = f.svc.ChangeStatus(ctx, adminActor(), o.ID, "Shipped", nil)
	assert.ErrorIs(t, err, core.ErrInvalidState)

	_, err = f.svc.ChangeStatus(ctx, customerActor(), o.ID, "Cancelled", nil)
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = f.svc.ChangeStatus(ctx, adminActor(), o.ID, "Cancelled", nil)
	require.NoError(t, err)

	historyLen := len(f.store.state.history)
	_, err = f.svc.ChangeStatus(ctx, adminActor(), o.ID, "Pending", nil)
	assert.ErrorIs(t, err, core.ErrInvalidState)
	assert.Len(t, f.store.state.history, historyLen)
	assert.Equal(t, StatusCancelled, f.store.state.orders[o.ID].Status)
}

func TestHistoryTracksTransitions(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	o, err := f.svc.Create(ctx, customerActor(), sampleCart())
	require.NoError(t, err)

	for _, st := range []string{"In Process", "Requires Correction", "In Process", "Prepared", "Picked Up"} {
		_, err := f.svc.ChangeStatus(ctx, adminActor(), o.ID, st, nil)
		require.NoError(t, err)
	}

	history, err := f.svc.History(ctx, customerActor(), o.ID)
	require.NoError(t, err)
	require.Len(t, history, 6)
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].ChangedAt.Before(history[i-1].ChangedAt))
	}
	assert.Equal(t, f.store.state.orders[o.ID].Status, history[len(history)-1].Status)
}

func TestHistoryIgnoresStoreClock(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	appClock := f.store.clock.Add(-2 * time.Second)
	f.svc.now = func() time.Time {
		appClock = appClock.Add(time.Second)
		return appClock
	}

	o, err := f.svc.Create(ctx, customerActor(), sampleCart())
	require.NoError(t, err)
	_, err = f.svc.ChangeStatus(ctx, adminActor(), o.ID, "In Process", nil)
	require.NoError(t, err)

	history, err := f.svc.History(ctx, customerActor(), o.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, StatusPending, history[0].Status)
	assert.False(t, history[0].Synthetic)
	assert.Equal(t, o.CreatedAt, history[0].ChangedAt)
	assert.Equal(t, StatusInProcess, history[1].Status)
	assert.True(t, history[1].ChangedAt.After(history[0].ChangedAt))
	assert.True(t, o.CreatedAt.Before(f.store.clock))
}

func TestAccessControl(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	o, err := f.svc.Create(ctx, customerActor(), sampleCart())
	require.NoError(t, err)

	intruder := core.Actor{UserID: otherID, Kind: "customer"}
	_, err = f.svc.Get(ctx, intruder, o.ID)
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = f.svc.History(ctx, intruder, o.ID)
	assert.ErrorIs(t, err, core.ErrForbidden)

	obs := "hijack"
	_, err = f.svc.Update(ctx, intruder, o.ID, UpdateOrderRequest{Observation: &obs})
	assert.ErrorIs(t, err, core.ErrForbidden)

	own, err := f.svc.Get(ctx, customerActor(), o.ID)
	require.NoError(t, err)
	assert.Len(t, own.ProductLines, 1)

	_, err = f.svc.Get(ctx, adminActor(), o.ID)
	require.NoError(t, err)

	orders, total, err := f.svc.List(ctx, intruder, Filter{UserID: customerID})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, orders)

	_, total, err = f.svc.List(ctx, adminActor(), Filter{UserID: customerID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	assert.ErrorIs(t, f.svc.Delete(ctx, customerActor(), o.ID), core.ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, adminActor(), o.ID))
}

func TestHandlerStatusRouteIsAdminOnly(t *testing.T) {
	f := newFixture(t, Options{})
	o, err := f.svc.Create(context.Background(), customerActor(), sampleCart())
	require.NoError(t, err)

	as := func(actor core.Actor) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := middleware.WithClaims(r.Context(), &middleware.AccessTokenClaims{
					UserID: actor.UserID,
					Kind:   actor.Kind,
				})
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		}
	}

	tests := []struct {
		name       string
		actor      core.Actor
		body       string
		wantStatus int
	}{
		{"customer forbidden", customerActor(), `{"status":"Prepared"}`, http.StatusForbidden},
		{"unknown status", adminActor(), `{"status":"Lost"}`, http.StatusBadRequest},
		{"admin moves order", adminActor(), `{"status":"Prepared"}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			NewHandler(f.svc, 1<<20).RegisterRoutes(r, as(tt.actor))

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPatch, "/orders/"+o.ID+"/status", strings.NewReader(tt.body))
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestHandlerCreateJSON(t *testing.T) {
	f := newFixture(t, Options{})
	r := chi.NewRouter()
	NewHandler(f.svc, 1<<20).RegisterRoutes(r, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := middleware.WithClaims(req.Context(), &middleware.AccessTokenClaims{UserID: customerID, Kind: "customer"})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})

	body := `{"products":[{"product_id":"` + productID + `","quantity":2}],` +
		`"print_jobs":[{"format":"A4","color":false,"copies":2,"subtotal":"40.00"}]}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders/", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"total":"192`)
	assert.Empty(t, f.blobs.puts)
}
