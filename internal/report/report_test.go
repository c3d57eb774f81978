// AngelaMos | 2026
// report_test.go

package report

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/carterperez-dev/printshop/internal/core"
	"github.com/carterperez-dev/printshop/internal/middleware"
	"github.com/carterperez-dev/printshop/internal/notify"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func strp(s string) *string { return &s }

func at(day, hour int) time.Time {
	return time.Date(2026, 3, day, hour, 0, 0, 0, time.UTC)
}

func sampleRows() []Row {
	ana, ben, cy := strp("u-ana"), strp("u-ben"), strp("u-cy")
	return []Row{
		{OrderID: "o1", UserID: ana, Name: "Ana Diaz", Email: "ana@example.com", Status: "Pending", Total: dec("100.00"), OrderDate: at(2, 9)},
		{OrderID: "o2", UserID: ana, Name: "Ana Diaz", Email: "ana@example.com", Status: "Picked Up", Total: dec("50.00"), OrderDate: at(2, 11)},
		{OrderID: "o3", UserID: ben, Name: "Ben Ruiz", Email: "ben@example.com", Status: "Prepared", Total: dec("120.00"), OrderDate: at(3, 10)},
		{OrderID: "o4", UserID: cy, Name: "Cy Moreno", Email: "cy@example.com", Status: "Cancelled", Total: dec("999.00"), OrderDate: at(3, 12)},
		{OrderID: "o5", UserID: nil, Status: "Pending", Total: dec("10.00"), OrderDate: at(4, 8)},
	}
}

func TestAggregateEmptyRange(t *testing.T) {
	res := Aggregate(nil, 5)

	assert.True(t, res.NoActivity)
	assert.Equal(t, NoActivityMessage, res.Message)
	assert.Zero(t, res.Summary.OrderCount)
	assert.True(t, res.Summary.TotalAmount.IsZero())
	assert.NotNil(t, res.ByStatus)
	assert.NotNil(t, res.TopCustomers)
	assert.NotNil(t, res.TopDays)
}

func TestAggregate(t *testing.T) {
	res := Aggregate(sampleRows(), 5)

	assert.False(t, res.NoActivity)
	assert.Equal(t, 4, res.Summary.OrderCount)
	assert.Equal(t, "280.00", res.Summary.TotalAmount.StringFixed(2))
	assert.Equal(t, "70.00", res.Summary.AverageTicket.StringFixed(2))
	assert.Equal(t, 1, res.Summary.CancelledCount)
	assert.Equal(t, "999.00", res.Summary.CancelledAmount.StringFixed(2))

	require.Len(t, res.ByStatus, 4)
	assert.Equal(t, "Pending", res.ByStatus[0].Status)
	assert.Equal(t, 2, res.ByStatus[0].Count)
	assert.Equal(t, "110.00", res.ByStatus[0].Subtotal.StringFixed(2))
	assert.Equal(t, "Cancelled", res.ByStatus[3].Status)
	assert.Equal(t, "999.00", res.ByStatus[3].Subtotal.StringFixed(2))

	require.Len(t, res.TopCustomers, 2)
	assert.Equal(t, "u-ana", res.TopCustomers[0].UserID)
	assert.Equal(t, 2, res.TopCustomers[0].OrderCount)
	assert.Equal(t, "150.00", res.TopCustomers[0].TotalSpent.StringFixed(2))
	assert.Equal(t, "u-ben", res.TopCustomers[1].UserID)

	require.Len(t, res.TopDays, 3)
	assert.Equal(t, "2026-03-02", res.TopDays[0].Date)
	assert.Equal(t, "150.00", res.TopDays[0].Total.StringFixed(2))
	assert.Equal(t, "2026-03-03", res.TopDays[1].Date)
	assert.Equal(t, 1, res.TopDays[1].OrderCount)
}

func TestAggregateTopNAndTies(t *testing.T) {
	rows := []Row{
		{UserID: strp("b"), Status: "Pending", Total: dec("10"), OrderDate: at(5, 1)},
		{UserID: strp("a"), Status: "Pending", Total: dec("10"), OrderDate: at(6, 1)},
		{UserID: strp("c"), Status: "Pending", Total: dec("5"), OrderDate: at(7, 1)},
	}
	res := Aggregate(rows, 2)

	require.Len(t, res.TopCustomers, 2)
	assert.Equal(t, "a", res.TopCustomers[0].UserID)
	assert.Equal(t, "b", res.TopCustomers[1].UserID)
	require.Len(t, res.TopDays, 2)
	assert.Equal(t, "2026-03-05", res.TopDays[0].Date)
	assert.Equal(t, "2026-03-06", res.TopDays[1].Date)
	assert.Equal(t, "8.33", res.Summary.AverageTicket.StringFixed(2))
}

func TestAggregateRanksByOrderCount(t *testing.T) {
	frequent, big := strp("u-frequent"), strp("u-big")
	rows := []Row{
		{UserID: frequent, Status: "Pending", Total: dec("10.00"), OrderDate: at(5, 9)},
		{UserID: frequent, Status: "Prepared", Total: dec("10.00"), OrderDate: at(5, 11)},
		{UserID: frequent, Status: "Picked Up", Total: dec("10.00"), OrderDate: at(5, 15)},
		{UserID: big, Status: "Pending", Total: dec("100.00"), OrderDate: at(6, 10)},
	}

	res := Aggregate(rows, 1)

	require.Len(t, res.TopCustomers, 1)
	assert.Equal(t, "u-frequent", res.TopCustomers[0].UserID)
	assert.Equal(t, 3, res.TopCustomers[0].OrderCount)
	assert.Equal(t, "30.00", res.TopCustomers[0].TotalSpent.StringFixed(2))

	require.Len(t, res.TopDays, 1)
	assert.Equal(t, "2026-03-05", res.TopDays[0].Date)
	assert.Equal(t, 3, res.TopDays[0].OrderCount)

	all := Aggregate(rows, 0)
	require.Len(t, all.TopCustomers, 2)
	assert.Equal(t, "u-big", all.TopCustomers[1].UserID)
	require.Len(t, all.TopDays, 2)
	assert.Equal(t, "2026-03-06", all.TopDays[1].Date)
}

func TestAggregateCancelledOnly(t *testing.T) {
	rows := []Row{
		{UserID: strp("a"), Status: "Cancelled", Total: dec("12.50"), OrderDate: at(5, 1)},
		{UserID: strp("a"), Status: "Cancelled", Total: dec("7.50"), OrderDate: at(5, 2)},
	}
	res := Aggregate(rows, 5)

	assert.False(t, res.NoActivity)
	assert.Zero(t, res.Summary.OrderCount)
	assert.True(t, res.Summary.TotalAmount.IsZero())
	assert.True(t, res.Summary.AverageTicket.IsZero())
	assert.Equal(t, 2, res.Summary.CancelledCount)
	assert.Equal(t, "20.00", res.Summary.CancelledAmount.StringFixed(2))
	assert.Empty(t, res.TopCustomers)
	assert.Empty(t, res.TopDays)
}

func TestExportXLSX(t *testing.T) {
	snap := &Snapshot{
		ID:        "r1",
		Title:     "March",
		StartDate: at(1, 0),
		EndDate:   at(31, 0),
		Results:   Aggregate(sampleRows(), 5),
	}

	data, err := ExportXLSX(snap)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetByStatus, SheetTopCustomers, SheetTopDays}, f.GetSheetList())

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{"Report", "March"}, summary[0])
	assert.Equal(t, "Orders", summary[4][0])
	assert.Equal(t, "4", summary[4][1])
	assert.Equal(t, []string{"Cancelled orders", "1"}, summary[6])

	customers, err := f.GetRows(SheetTopCustomers)
	require.NoError(t, err)
	require.Len(t, customers, 3)
	assert.Equal(t, "ana@example.com", customers[1][2])

	assert.Equal(t, "report-2026-03-01-2026-03-31.xlsx", ExportFilename(snap))
}

type memRepo struct {
	rows      []Row
	snapshots map[string]Snapshot
	from, to  time.Time
}

func newMemRepo(rows []Row) *memRepo {
	return &memRepo{rows: rows, snapshots: map[string]Snapshot{}}
}

func (m *memRepo) OrderRows(_ context.Context, from, to time.Time) ([]Row, error) {
	m.from, m.to = from, to
	var out []Row
	for _, r := range m.rows {
		if !r.OrderDate.Before(from) && r.OrderDate.Before(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRepo) Create(_ context.Context, s *Snapshot) error {
	s.CreatedAt = time.Now()
	m.snapshots[s.ID] = *s
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*Snapshot, error) {
	s, ok := m.snapshots[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &s, nil
}

func (m *memRepo) List(_ context.Context, limit, offset int) ([]Snapshot, int, error) {
	var out []Snapshot
	for _, s := range m.snapshots {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.snapshots[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.snapshots, id)
	return nil
}

type captureSender struct {
	sent []notify.Message
	err  error
}

func (c *captureSender) Send(_ context.Context, msg notify.Message) error {
	c.sent = append(c.sent, msg)
	return c.err
}

type staticRecipients []string

func (s staticRecipients) AdminEmails(context.Context) ([]string, error) { return s, nil }

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func admin() core.Actor { return core.Actor{UserID: "root", Kind: core.KindAdmin} }

func TestCreateIncludesWholeEndDay(t *testing.T) {
	repo := newMemRepo(sampleRows())
	svc := NewService(repo, 5, time.UTC, discard())

	snap, err := svc.Create(context.Background(), admin(), CreateRequest{
		Title:     "Two days",
		StartDate: "2026-03-02",
		EndDate:   "2026-03-03",
	})
	require.NoError(t, err)

	assert.Equal(t, at(4, 0), repo.to)
	assert.Equal(t, 3, snap.Results.Summary.OrderCount)
	require.NotNil(t, snap.CreatedBy)
	assert.Equal(t, "root", *snap.CreatedBy)

	_, err = svc.Create(context.Background(), admin(), CreateRequest{Title: "bad", StartDate: "2026-03-05", EndDate: "2026-03-01"})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = svc.Create(context.Background(), admin(), CreateRequest{Title: "bad", StartDate: "yesterday", EndDate: "2026-03-01"})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = svc.Create(context.Background(), core.Actor{UserID: "u", Kind: "customer"}, CreateRequest{})
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestRunDailyEmailsAdmins(t *testing.T) {
	repo := newMemRepo(sampleRows())
	svc := NewService(repo, 5, time.UTC, discard())
	sender := &captureSender{}

	snap, err := svc.RunDaily(context.Background(), at(2, 23), sender, staticRecipients{"boss@example.com", "ops@example.com"})
	require.NoError(t, err)

	assert.Nil(t, snap.CreatedBy)
	assert.Equal(t, "Daily report 2026-03-02", snap.Title)
	assert.Equal(t, 2, snap.Results.Summary.OrderCount)
	assert.Contains(t, repo.snapshots, snap.ID)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, []string{"boss@example.com", "ops@example.com"}, msg.To)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "report-2026-03-02-2026-03-02.xlsx", msg.Attachments[0].Filename)
	assert.Equal(t, XLSXContentType, msg.Attachments[0].ContentType)
}

func TestRunDailyQuietDay(t *testing.T) {
	repo := newMemRepo(sampleRows())
	svc := NewService(repo, 5, time.UTC, discard())
	sender := &captureSender{}

	snap, err := svc.RunDaily(context.Background(), at(20, 12), sender, staticRecipients{"boss@example.com"})
	require.NoError(t, err)
	assert.True(t, snap.Results.NoActivity)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].HTML, NoActivityMessage)
}

func TestRunDailyKeepsSnapshotWhenMailFails(t *testing.T) {
	repo := newMemRepo(sampleRows())
	svc := NewService(repo, 5, time.UTC, discard())

	snap, err := svc.RunDaily(context.Background(), at(2, 12), &captureSender{err: errors.New("smtp down")}, staticRecipients{"boss@example.com"})
	require.Error(t, err)
	require.NotNil(t, snap)
	assert.Contains(t, repo.snapshots, snap.ID)
}

func TestRunDailyUsesConfiguredTimezone(t *testing.T) {
	loc := time.FixedZone("ART", -3*60*60)
	repo := newMemRepo(nil)
	svc := NewService(repo, 5, loc, discard())

	_, err := svc.RunDaily(context.Background(), time.Date(2026, 3, 3, 1, 0, 0, 0, time.UTC), &captureSender{}, staticRecipients{})
	require.NoError(t, err)
	assert.True(t, repo.from.Equal(time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)))
	assert.True(t, repo.to.Equal(time.Date(2026, 3, 3, 3, 0, 0, 0, time.UTC)))
}

func TestHandlerExport(t *testing.T) {
	repo := newMemRepo(sampleRows())
	svc := NewService(repo, 5, time.UTC, discard())
	snap, err := svc.Create(context.Background(), admin(), CreateRequest{Title: "All", StartDate: "2026-03-01", EndDate: "2026-03-31"})
	require.NoError(t, err)

	route := func(kind string) http.Handler {
		r := chi.NewRouter()
		NewHandler(svc).RegisterRoutes(r, func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				ctx := middleware.WithClaims(req.Context(), &middleware.AccessTokenClaims{UserID: "root", Kind: kind})
				next.ServeHTTP(w, req.WithContext(ctx))
			})
		})
		return r
	}

	rec := httptest.NewRecorder()
	route(core.KindAdmin).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/"+snap.ID+"/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, XLSXContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "report-2026-03-01-2026-03-31.xlsx")

	rec = httptest.NewRecorder()
	route("customer").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	route(core.KindAdmin).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
