// AngelaMos | 2026
// service.go

package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/printshop/internal/core"
	"github.com/carterperez-dev/printshop/internal/notify"
)

// Recipients lists who gets the daily report. user.Service satisfies it.
type Recipients interface {
	AdminEmails(ctx context.Context) ([]string, error)
}

type Service struct {
	repo     Repository
	topN     int
	location *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, topN int, location *time.Location, logger *slog.Logger) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		repo:     repo,
		topN:     topN,
		location: location,
		logger:   logger,
		now:      time.Now,
	}
}

// Create aggregates a range on demand and stores the snapshot. A date-only
// end is inclusive of that whole day.
func (s *Service) Create(ctx context.Context, actor core.Actor, req CreateRequest) (*Snapshot, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("create report: %w", core.ErrForbidden)
	}

	start, _, err := s.parseDate(req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("create report: start_date: %w", err)
	}
	end, dateOnly, err := s.parseDate(req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("create report: end_date: %w", err)
	}

	upper := end
	if dateOnly {
		upper = end.AddDate(0, 0, 1)
	}
	if !upper.After(start) {
		return nil, fmt.Errorf("create report: end_date is before start_date: %w", core.ErrInvalidInput)
	}

	creator := actor.UserID
	snap, err := s.generate(ctx, strings.TrimSpace(req.Title), start, end, upper, &creator)
	if err != nil {
		return nil, err
	}
	reportsGenerated.WithLabelValues("manual").Inc()
	return snap, nil
}

func (s *Service) generate(
	ctx context.Context,
	title string,
	start, end, upper time.Time,
	createdBy *string,
) (*Snapshot, error) {
	ctx, span := core.StartSpan(ctx, "report.generate")
	defer span.End()

	rows, err := s.repo.OrderRows(ctx, start, upper)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}
	for i := range rows {
		rows[i].OrderDate = rows[i].OrderDate.In(s.location)
	}

	snap := &Snapshot{
		ID:        uuid.New().String(),
		Title:     title,
		StartDate: start,
		EndDate:   end,
		CreatedBy: createdBy,
		Results:   Aggregate(rows, s.topN),
	}
	if err := s.repo.Create(ctx, snap); err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	s.logger.Info("report generated",
		"report_id", snap.ID,
		"from", start,
		"to", upper,
		"orders", len(rows),
	)
	return snap, nil
}

// RunDaily builds the snapshot for the calendar day containing day, stores it
// without a creator and mails it to every active admin as an xlsx. A mail
// failure is returned after the snapshot has been stored.
func (s *Service) RunDaily(
	ctx context.Context,
	day time.Time,
	sender notify.Sender,
	recipients Recipients,
) (*Snapshot, error) {
	local := day.In(s.location)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)
	upper := start.AddDate(0, 0, 1)
	title := "Daily report " + start.Format(time.DateOnly)

	snap, err := s.generate(ctx, title, start, start, upper, nil)
	if err != nil {
		return nil, err
	}
	reportsGenerated.WithLabelValues("scheduled").Inc()

	emails, err := recipients.AdminEmails(ctx)
	if err != nil {
		return snap, fmt.Errorf("daily report recipients: %w", err)
	}
	if len(emails) == 0 {
		s.logger.Warn("daily report has no recipients", "report_id", snap.ID)
		return snap, nil
	}

	data, err := ExportXLSX(snap)
	if err != nil {
		return snap, err
	}
	html, err := notify.RenderReport(notify.ReportView{
		Title:           snap.Title,
		NoActivity:      snap.Results.NoActivity,
		Message:         snap.Results.Message,
		OrderCount:      snap.Results.Summary.OrderCount,
		TotalAmount:     snap.Results.Summary.TotalAmount.StringFixed(2),
		AverageTicket:   snap.Results.Summary.AverageTicket.StringFixed(2),
		CancelledCount:  snap.Results.Summary.CancelledCount,
		CancelledAmount: snap.Results.Summary.CancelledAmount.StringFixed(2),
	})
	if err != nil {
		return snap, err
	}

	err = sender.Send(ctx, notify.Message{
		To:      emails,
		Subject: snap.Title,
		HTML:    html,
		Attachments: []notify.Attachment{{
			Filename:    ExportFilename(snap),
			ContentType: XLSXContentType,
			Data:        data,
		}},
	})
	if err != nil {
		return snap, fmt.Errorf("send daily report: %w", err)
	}

	s.logger.Info("daily report sent", "report_id", snap.ID, "recipients", len(emails))
	return snap, nil
}

func (s *Service) List(ctx context.Context, actor core.Actor, params ListParams) ([]Snapshot, int, error) {
	if !actor.IsAdmin() {
		return nil, 0, fmt.Errorf("list reports: %w", core.ErrForbidden)
	}
	params.Normalize()
	return s.repo.List(ctx, params.PageSize, params.Offset())
}

func (s *Service) Get(ctx context.Context, actor core.Actor, id string) (*Snapshot, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("get report: %w", core.ErrForbidden)
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, actor core.Actor, id string) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("delete report: %w", core.ErrForbidden)
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) Export(ctx context.Context, actor core.Actor, id string) ([]byte, string, error) {
	snap, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, "", err
	}
	data, err := ExportXLSX(snap)
	if err != nil {
		return nil, "", err
	}
	return data, ExportFilename(snap), nil
}

func (s *Service) parseDate(v string) (time.Time, bool, error) {
	v = strings.TrimSpace(v)
	if t, err := time.ParseInLocation(time.DateOnly, v, s.location); err == nil {
		return t, true, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, false, nil
	}
	return time.Time{}, false, fmt.Errorf("expected YYYY-MM-DD or RFC3339: %w", core.ErrInvalidInput)
}
