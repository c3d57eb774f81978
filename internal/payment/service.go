// AngelaMos | 2026
// service.go

package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/carterperez-dev/printshop/internal/core"
	"github.com/carterperez-dev/printshop/internal/order"
)

// OrderLookup resolves an order on behalf of an actor and enforces
// ownership. order.Service satisfies it.
type OrderLookup interface {
	Get(ctx context.Context, actor core.Actor, id string) (*order.Order, error)
}

type Checkout interface {
	CreatePreference(ctx context.Context, orderID string, items []CartItem) (*PreferenceResponse, error)
}

type Service struct {
	repo     Repository
	orders   OrderLookup
	checkout Checkout
	logger   *slog.Logger
}

func NewService(repo Repository, orders OrderLookup, checkout Checkout, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		orders:   orders,
		checkout: checkout,
		logger:   logger,
	}
}

func (s *Service) Create(
	ctx context.Context,
	actor core.Actor,
	orderID string,
	req CreatePaymentRequest,
) (*Payment, error) {
	if _, err := s.orders.Get(ctx, actor, orderID); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("create payment: amount must be greater than 0: %w", core.ErrInvalidInput)
	}

	p := &Payment{
		ID:      uuid.New().String(),
		OrderID: orderID,
		Status:  StatusPending,
		Method:  req.Method,
		Amount:  req.Amount.Round(2),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("payment recorded",
		"payment_id", p.ID,
		"order_id", orderID,
		"method", p.Method,
		"amount", p.Amount.StringFixed(2),
	)
	return p, nil
}

func (s *Service) ListForOrder(ctx context.Context, actor core.Actor, orderID string) ([]Payment, error) {
	if _, err := s.orders.Get(ctx, actor, orderID); err != nil {
		return nil, err
	}
	return s.repo.ListByOrder(ctx, orderID)
}

func (s *Service) UpdateStatus(ctx context.Context, actor core.Actor, id string, status Status) (*Payment, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("update payment: %w", core.ErrForbidden)
	}
	switch status {
	case StatusPending, StatusCompleted, StatusFailed:
	default:
		return nil, fmt.Errorf("update payment: unknown status %q: %w", status, core.ErrInvalidInput)
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// CreatePreference hands the cart to the hosted checkout. When an order is
// referenced the caller must be allowed to see it.
func (s *Service) CreatePreference(
	ctx context.Context,
	actor core.Actor,
	req PreferenceRequest,
) (*PreferenceResponse, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("create preference: cart is empty: %w", core.ErrInvalidInput)
	}

	var orderID string
	if req.OrderID != nil {
		if _, err := s.orders.Get(ctx, actor, *req.OrderID); err != nil {
			return nil, err
		}
		orderID = *req.OrderID
	}

	pref, err := s.checkout.CreatePreference(ctx, orderID, req.Items)
	if err != nil {
		var perr *ProviderError
		if errors.As(err, &perr) {
			checkoutRequests.WithLabelValues("rejected").Inc()
			s.logger.Warn("checkout provider rejected preference",
				"status", perr.StatusCode,
				"order_id", orderID,
			)
		} else {
			checkoutRequests.WithLabelValues("error").Inc()
			s.logger.Error("checkout provider unreachable", "error", err)
		}
		return nil, err
	}

	checkoutRequests.WithLabelValues("created").Inc()
	return pref, nil
}
