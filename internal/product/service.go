// AngelaMos | 2026
// service.go

package product

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/printshop/internal/core"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]Product, error) {
	return s.repo.List(ctx, activeOnly)
}

func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, req CreateProductRequest) (*Product, error) {
	price, err := checkPrice(req.UnitPrice)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	p := &Product{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		UnitPrice:   price,
		Active:      true,
	}
	if req.Active != nil {
		p.Active = *req.Active
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, id string, req UpdateProductRequest) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.UnitPrice != nil {
		if p.UnitPrice, err = checkPrice(*req.UnitPrice); err != nil {
			return nil, fmt.Errorf("update product: %w", err)
		}
	}
	if req.Active != nil {
		p.Active = *req.Active
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) SetActive(ctx context.Context, id string, active bool) (*Product, error) {
	return s.Update(ctx, id, UpdateProductRequest{Active: &active})
}

func (s *Service) SetPrice(ctx context.Context, id string, price decimal.Decimal) (*Product, error) {
	return s.Update(ctx, id, UpdateProductRequest{UnitPrice: &price})
}

// Delete keeps order history intact: product lines lose their product
// reference but retain unit price and subtotal.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("product deleted", "product_id", id)
	return nil
}

func checkPrice(price decimal.Decimal) (decimal.Decimal, error) {
	rounded := price.Round(2)
	if !rounded.IsPositive() {
		return decimal.Zero, fmt.Errorf("price must be greater than 0: %w", core.ErrInvalidInput)
	}
	return rounded, nil
}
