// AngelaMos | 2026
// repository.go

package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/printshop/internal/core"
	"github.com/carterperez-dev/printshop/internal/printjob"
	"github.com/carterperez-dev/printshop/internal/product"
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetForUpdate(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, f Filter) ([]Order, int, error)
	SetTotal(ctx context.Context, id string, total decimal.Decimal) error
	UpdateStatus(ctx context.Context, id string, status Status, reason *string) error
	UpdateObservation(ctx context.Context, id, observation string) error
	Delete(ctx context.Context, id string) error

	AddHistory(ctx context.Context, orderID string, status Status, at time.Time) error
	History(ctx context.Context, orderID string) ([]HistoryEntry, error)

	ActiveProduct(ctx context.Context, id string) (*product.Product, error)
	AddProductLine(ctx context.Context, l *ProductLine) error
	ProductLines(ctx context.Context, orderID string) ([]ProductLine, error)

	ActivePrintPrice(ctx context.Context, format string, color bool) (decimal.Decimal, error)
	CreatePrintJob(ctx context.Context, job *printjob.PrintJob) error
	AddPrintJobLine(ctx context.Context, l *PrintJobLine) error
	PrintJobLines(ctx context.Context, orderID string) ([]PrintJobLine, error)

	DiscountFor(ctx context.Context, userID string) (decimal.Decimal, error)
}

// Store hands out a Repository bound to the pool or to a transaction.
type Store interface {
	Repository
	InTx(ctx context.Context, fn func(Repository) error) error
}

type repository struct {
	db       core.DBTX
	products product.Repository
	jobs     printjob.Repository
}

type store struct {
	*repository
	pool *sqlx.DB
}

func NewStore(db *sqlx.DB) Store {
	return &store{repository: newRepository(db), pool: db}
}

func newRepository(db core.DBTX) *repository {
	return &repository{
		db:       db,
		products: product.NewRepository(db),
		jobs:     printjob.NewRepository(db),
	}
}

func (s *store) InTx(ctx context.Context, fn func(Repository) error) error {
	return core.InTx(ctx, s.pool, func(tx *sqlx.Tx) error {
		return fn(newRepository(tx))
	})
}

const orderSelect = `
	SELECT o.id, o.status, o.observation, o.correction_reason, o.total, o.order_date,
	       o.user_id, o.created_at, o.updated_at,
	       u.email AS user_email,
	       NULLIF(TRIM(u.name || ' ' || u.surname), '') AS user_name
	FROM orders o
	LEFT JOIN users u ON u.id = o.user_id`

// Create stores the timestamps carried by o so the order row and its
// history rows share the caller's clock.
func (r *repository) Create(ctx context.Context, o *Order) error {
	query := `
		INSERT INTO orders (id, status, observation, total, user_id, order_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		o.ID, o.Status, o.Observation, o.Total, o.UserID, o.OrderDate, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Order, error) {
	var o Order
	if err := r.db.GetContext(ctx, &o, orderSelect+` WHERE o.id = $1`, id); err != nil {
		return nil, fmt.Errorf("get order: %w", core.MapNoRows(err))
	}
	return &o, nil
}

// GetForUpdate locks the order row for the rest of the transaction so two
// concurrent status changes serialize.
func (r *repository) GetForUpdate(ctx context.Context, id string) (*Order, error) {
	var o Order
	if err := r.db.GetContext(ctx, &o, orderSelect+` WHERE o.id = $1 FOR UPDATE OF o`, id); err != nil {
		return nil, fmt.Errorf("lock order: %w", core.MapNoRows(err))
	}
	return &o, nil
}

func (r *repository) List(ctx context.Context, f Filter) ([]Order, int, error) {
	f.Normalize()

	conditions := []string{"TRUE"}
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if f.UserID != "" {
		add("o.user_id = $%d", f.UserID)
	}
	if f.Status != "" {
		add("o.status = $%d", f.Status)
	}
	if f.From != nil {
		add("o.order_date >= $%d", *f.From)
	}
	if f.To != nil {
		add("o.order_date < $%d", *f.To)
	}

	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM orders o`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	query := orderSelect + where + fmt.Sprintf(
		" ORDER BY o.order_date DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, f.PageSize, f.Offset())

	var orders []Order
	if err := r.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

func (r *repository) SetTotal(ctx context.Context, id string, total decimal.Decimal) error {
	return r.execOne(ctx, "set order total",
		`UPDATE orders SET total = $2, updated_at = NOW() WHERE id = $1`, id, total)
}

// UpdateStatus overwrites correction_reason only when a reason is given.
func (r *repository) UpdateStatus(ctx context.Context, id string, status Status, reason *string) error {
	return r.execOne(ctx, "update order status", `
		UPDATE orders
		SET status = $2,
		    correction_reason = COALESCE($3, correction_reason),
		    updated_at = NOW()
		WHERE id = $1`, id, status, reason)
}

func (r *repository) UpdateObservation(ctx context.Context, id, observation string) error {
	return r.execOne(ctx, "update order observation",
		`UPDATE orders SET observation = $2, updated_at = NOW() WHERE id = $1`, id, observation)
}

func (r *repository) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, "delete order", `DELETE FROM orders WHERE id = $1`, id)
}

func (r *repository) AddHistory(ctx context.Context, orderID string, status Status, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO order_status_history (order_id, status, changed_at) VALUES ($1, $2, $3)`,
		orderID, status, at)
	if err != nil {
		return fmt.Errorf("add order history: %w", err)
	}
	return nil
}

func (r *repository) History(ctx context.Context, orderID string) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, order_id, status, changed_at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY changed_at, id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("order history: %w", err)
	}
	return entries, nil
}

func (r *repository) ActiveProduct(ctx context.Context, id string) (*product.Product, error) {
	p, err := r.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, fmt.Errorf("product %s inactive: %w", id, core.ErrNotFound)
	}
	return p, nil
}

func (r *repository) AddProductLine(ctx context.Context, l *ProductLine) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO order_product_lines (id, order_id, product_id, quantity, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		l.ID, l.OrderID, l.ProductID, l.Quantity, l.UnitPrice, l.Subtotal)
	if err != nil {
		return fmt.Errorf("add product line: %w", err)
	}
	return nil
}

func (r *repository) ProductLines(ctx context.Context, orderID string) ([]ProductLine, error) {
	var lines []ProductLine
	err := r.db.SelectContext(ctx, &lines, `
		SELECT l.id, l.order_id, l.product_id, p.name AS product_name,
		       l.quantity, l.unit_price, l.subtotal
		FROM order_product_lines l
		LEFT JOIN products p ON p.id = l.product_id
		WHERE l.order_id = $1
		ORDER BY l.id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("product lines: %w", err)
	}
	return lines, nil
}

func (r *repository) ActivePrintPrice(ctx context.Context, format string, color bool) (decimal.Decimal, error) {
	return r.jobs.ActivePrice(ctx, format, color)
}

func (r *repository) CreatePrintJob(ctx context.Context, job *printjob.PrintJob) error {
	return r.jobs.Create(ctx, job)
}

func (r *repository) AddPrintJobLine(ctx context.Context, l *PrintJobLine) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO order_print_job_lines (id, order_id, print_job_id, copies, subtotal)
		VALUES ($1, $2, $3, $4, $5)`,
		l.ID, l.OrderID, l.PrintJobID, l.Copies, l.Subtotal)
	if err != nil {
		return fmt.Errorf("add print job line: %w", err)
	}
	return nil
}

func (r *repository) PrintJobLines(ctx context.Context, orderID string) ([]PrintJobLine, error) {
	var lines []PrintJobLine
	err := r.db.SelectContext(ctx, &lines, `
		SELECT l.id, l.order_id, l.print_job_id, j.format, j.color, j.url, l.copies, l.subtotal
		FROM order_print_job_lines l
		LEFT JOIN print_jobs j ON j.id = l.print_job_id
		WHERE l.order_id = $1
		ORDER BY l.id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("print job lines: %w", err)
	}
	return lines, nil
}

// DiscountFor reads the owner's tier discount, zero when the user has none.
func (r *repository) DiscountFor(ctx context.Context, userID string) (decimal.Decimal, error) {
	var discount decimal.Decimal
	err := r.db.GetContext(ctx, &discount, `
		SELECT COALESCE(t.discount_percent, 0)
		FROM users u
		LEFT JOIN user_types t ON t.id = u.user_type_id
		WHERE u.id = $1`, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("user discount: %w", core.MapNoRows(err))
	}
	return discount, nil
}

func (r *repository) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return nil
}
