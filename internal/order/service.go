// AngelaMos | 2026
// service.go

package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/printshop/internal/core"
	"github.com/carterperez-dev/printshop/internal/notify"
	"github.com/carterperez-dev/printshop/internal/printjob"
)

// Publisher delivers order events after commit.
type Publisher interface {
	PublishOrderEvent(ctx context.Context, event notify.OrderEvent) error
}

type Options struct {
	StrictTransitions bool
	VerifyPrintPrices bool
}

type Service struct {
	store     Store
	blobs     printjob.BlobStore
	publisher Publisher
	opts      Options
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(
	store Store,
	blobs printjob.BlobStore,
	publisher Publisher,
	opts Options,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:     store,
		blobs:     blobs,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// Create builds the order, its lines and the initial Pending history row in
// one transaction. Blobs uploaded before a failure stay in the bucket.
func (s *Service) Create(ctx context.Context, actor core.Actor, in CreateInput) (*Order, error) {
	ctx, span := core.StartSpan(ctx, "order.create",
		attribute.Int("order.products", len(in.Products)),
		attribute.Int("order.print_jobs", len(in.PrintJobs)),
	)
	defer span.End()

	if actor.UserID == "" {
		return nil, fmt.Errorf("create order: %w", core.ErrUnauthorized)
	}
	if len(in.Products) == 0 && len(in.PrintJobs) == 0 {
		return nil, fmt.Errorf("create order: order has no items: %w", core.ErrInvalidInput)
	}

	owner := actor.UserID
	now := s.now()
	o := &Order{
		ID:          uuid.New().String(),
		Status:      StatusPending,
		Observation: in.Observation,
		Total:       decimal.Zero,
		OrderDate:   now,
		UserID:      &owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.store.InTx(ctx, func(repo Repository) error {
		if err := repo.Create(ctx, o); err != nil {
			return err
		}
		if err := repo.AddHistory(ctx, o.ID, StatusPending, o.CreatedAt); err != nil {
			return err
		}

		gross := decimal.Zero

		for _, item := range in.Products {
			if item.Quantity <= 0 {
				return fmt.Errorf("create order: quantity must be greater than 0: %w", core.ErrInvalidInput)
			}
			p, err := repo.ActiveProduct(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, core.ErrNotFound) {
					return core.NotFoundError("product " + item.ProductID)
				}
				return err
			}

			productID := p.ID
			name := p.Name
			line := ProductLine{
				ID:        uuid.New().String(),
				OrderID:   o.ID,
				ProductID: &productID,
				Name:      &name,
				Quantity:  item.Quantity,
				UnitPrice: p.UnitPrice,
				Subtotal:  LineSubtotal(p.UnitPrice, item.Quantity),
			}
			if err := repo.AddProductLine(ctx, &line); err != nil {
				return err
			}
			gross = gross.Add(line.Subtotal)
			o.ProductLines = append(o.ProductLines, line)
		}

		for i, item := range in.PrintJobs {
			line, err := s.addPrintJob(ctx, repo, o.ID, owner, item, in.Files[i])
			if err != nil {
				return err
			}
			gross = gross.Add(line.Subtotal)
			o.PrintJobLines = append(o.PrintJobLines, *line)
		}

		discount, err := repo.DiscountFor(ctx, owner)
		if err != nil {
			return err
		}
		o.Total = ComputeTotal(gross, discount)

		return repo.SetTotal(ctx, o.ID, o.Total)
	})
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	ordersCreated.Inc()
	s.logger.Info("order created",
		"order_id", o.ID,
		"user_id", owner,
		"total", o.Total.StringFixed(2),
	)
	return o, nil
}

func (s *Service) addPrintJob(
	ctx context.Context,
	repo Repository,
	orderID, owner string,
	item PrintJobItem,
	file printjob.Upload,
) (*PrintJobLine, error) {
	if !core.IsPaperFormat(item.Format) {
		return nil, fmt.Errorf("create order: format must be one of A0..A6: %w", core.ErrInvalidInput)
	}
	if item.Copies <= 0 {
		return nil, fmt.Errorf("create order: copies must be greater than 0: %w", core.ErrInvalidInput)
	}

	subtotal := item.Subtotal.Round(2)
	if subtotal.IsNegative() {
		return nil, fmt.Errorf("create order: subtotal must not be negative: %w", core.ErrInvalidInput)
	}

	if s.opts.VerifyPrintPrices {
		price, err := repo.ActivePrintPrice(ctx, item.Format, item.Color)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return nil, fmt.Errorf("create order: no active price for %s: %w", item.Format, core.ErrInvalidInput)
			}
			return nil, err
		}
		if want := LineSubtotal(price, item.Copies); !want.Equal(subtotal) {
			return nil, fmt.Errorf("create order: print job subtotal does not match price list: %w", core.ErrInvalidInput)
		}
	}

	var job *printjob.PrintJob
	if file.Body != nil {
		var err error
		if job, err = printjob.StoreUpload(ctx, s.blobs, owner, item.Format, item.Color, file); err != nil {
			return nil, err
		}
	} else {
		job = &printjob.PrintJob{
			ID:     uuid.New().String(),
			Format: item.Format,
			Color:  item.Color,
			UserID: &owner,
		}
	}
	if err := repo.CreatePrintJob(ctx, job); err != nil {
		return nil, err
	}

	jobID, format, color, url := job.ID, job.Format, job.Color, job.URL
	line := &PrintJobLine{
		ID:         uuid.New().String(),
		OrderID:    orderID,
		PrintJobID: &jobID,
		Format:     &format,
		Color:      &color,
		Copies:     item.Copies,
		Subtotal:   subtotal,
	}
	if url != "" {
		line.URL = &url
	}
	if err := repo.AddPrintJobLine(ctx, line); err != nil {
		return nil, err
	}
	return line, nil
}

// ChangeStatus moves an order to a new status and records it. The event is
// published after commit; a publish failure is logged and swallowed.
func (s *Service) ChangeStatus(
	ctx context.Context,
	actor core.Actor,
	id, status string,
	reason *string,
) (*Order, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("change status: %w", core.ErrForbidden)
	}

	next, err := ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("change status: %w", err)
	}

	var (
		o        *Order
		previous Status
	)
	err = s.store.InTx(ctx, func(repo Repository) error {
		current, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		previous = current.Status

		if !CanTransition(previous, next, s.opts.StrictTransitions) {
			return fmt.Errorf("change status: cannot move from %s to %s: %w", previous, next, core.ErrInvalidState)
		}

		var storedReason *string
		if next == StatusRequiresCorrection {
			storedReason = reason
			if storedReason == nil {
				empty := ""
				storedReason = &empty
			}
		}

		if err := repo.UpdateStatus(ctx, id, next, storedReason); err != nil {
			return err
		}
		if err := repo.AddHistory(ctx, id, next, s.now()); err != nil {
			return err
		}

		o, err = repo.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	statusTransitions.WithLabelValues(string(next)).Inc()
	s.logger.Info("order status changed",
		"order_id", id,
		"from", previous,
		"to", next,
		"by", actor.UserID,
	)

	s.notify(ctx, o, previous)
	return o, nil
}

func (s *Service) notify(ctx context.Context, o *Order, previous Status) {
	if s.publisher == nil {
		return
	}

	event := notify.OrderEvent{
		Type:           notify.EventStatusChanged,
		OrderID:        o.ID,
		Status:         string(o.Status),
		PreviousStatus: string(previous),
		Total:          o.Total.StringFixed(2),
		OccurredAt:     s.now().UTC(),
	}
	if o.Status == StatusRequiresCorrection {
		event.Type = notify.EventCorrectionRequired
		event.Reason = o.CorrectionReason
	}
	if o.UserID != nil {
		event.UserID = *o.UserID
	}
	if o.UserEmail != nil {
		event.Email = *o.UserEmail
	}
	if o.UserName != nil {
		event.Name = *o.UserName
	}

	if err := s.publisher.PublishOrderEvent(ctx, event); err != nil {
		notifyFailures.Inc()
		s.logger.Error("order notification failed",
			"order_id", o.ID,
			"status", o.Status,
			"error", err,
		)
	}
}

// Get loads an order with its lines. Non-admins only see their own.
func (s *Service) Get(ctx context.Context, actor core.Actor, id string) (*Order, error) {
	o, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(o.UserID) {
		return nil, fmt.Errorf("get order: %w", core.ErrForbidden)
	}

	if o.ProductLines, err = s.store.ProductLines(ctx, id); err != nil {
		return nil, err
	}
	if o.PrintJobLines, err = s.store.PrintJobLines(ctx, id); err != nil {
		return nil, err
	}
	return o, nil
}

// List scopes non-admins to their own orders whatever the filter says.
func (s *Service) List(ctx context.Context, actor core.Actor, f Filter) ([]Order, int, error) {
	if !actor.IsAdmin() {
		f.UserID = actor.UserID
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, fmt.Errorf("list orders: unknown status %q: %w", f.Status, core.ErrInvalidInput)
	}
	return s.store.List(ctx, f)
}

func (s *Service) History(ctx context.Context, actor core.Actor, id string) ([]HistoryEntry, error) {
	o, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(o.UserID) {
		return nil, fmt.Errorf("order history: %w", core.ErrForbidden)
	}

	entries, err := s.store.History(ctx, id)
	if err != nil {
		return nil, err
	}
	return BuildTimeline(entries, o.CreatedAt), nil
}

func (s *Service) Update(ctx context.Context, actor core.Actor, id string, req UpdateOrderRequest) (*Order, error) {
	o, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(o.UserID) {
		return nil, fmt.Errorf("update order: %w", core.ErrForbidden)
	}

	if req.Observation != nil {
		if err := s.store.UpdateObservation(ctx, id, *req.Observation); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, actor, id)
}

func (s *Service) Delete(ctx context.Context, actor core.Actor, id string) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("delete order: %w", core.ErrForbidden)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("order deleted", "order_id", id, "by", actor.UserID)
	return nil
}
