// AngelaMos | 2026
// repository.go

package payment

import (
	"context"
	"fmt"

	"github.com/carterperez-dev/printshop/internal/core"
)

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id string) (*Payment, error)
	ListByOrder(ctx context.Context, orderID string) ([]Payment, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const paymentColumns = `id, order_id, status, method, amount, created_at`

func (r *repository) Create(ctx context.Context, p *Payment) error {
	query := `
		INSERT INTO payments (id, order_id, status, method, amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &p.CreatedAt, query, p.ID, p.OrderID, p.Status, p.Method, p.Amount)
	if err != nil {
		if core.IsForeignKeyViolation(err) {
			return fmt.Errorf("create payment: order %s: %w", p.OrderID, core.ErrNotFound)
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Payment, error) {
	var p Payment
	err := r.db.GetContext(ctx, &p, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", core.MapNoRows(err))
	}
	return &p, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID string) ([]Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE order_id = $1
		ORDER BY created_at`

	var payments []Payment
	if err := r.db.SelectContext(ctx, &payments, query, orderID); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id string, status Status) error {
	result, err := r.db.ExecContext(ctx, `UPDATE payments SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update payment status: %w", core.ErrNotFound)
	}
	return nil
}
