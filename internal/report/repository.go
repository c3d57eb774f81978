// AngelaMos | 2026
// repository.go

package report

import (
	"context"
	"fmt"
	"time"

	"github.com/carterperez-dev/printshop/internal/core"
)

type Repository interface {
	OrderRows(ctx context.Context, from, to time.Time) ([]Row, error)
	Create(ctx context.Context, s *Snapshot) error
	GetByID(ctx context.Context, id string) (*Snapshot, error)
	List(ctx context.Context, limit, offset int) ([]Snapshot, int, error)
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

// OrderRows reads committed orders in [from, to). No locks are taken.
func (r *repository) OrderRows(ctx context.Context, from, to time.Time) ([]Row, error) {
	query := `
		SELECT o.id, o.user_id, o.status, o.total, o.order_date,
			COALESCE(TRIM(u.name || ' ' || u.surname), '') AS user_name,
			COALESCE(u.email, '') AS user_email
		FROM orders o
		LEFT JOIN users u ON u.id = o.user_id
		WHERE o.order_date >= $1 AND o.order_date < $2
		ORDER BY o.order_date`

	var rows []Row
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("report order rows: %w", err)
	}
	return rows, nil
}

const snapshotColumns = `id, title, start_date, end_date, created_by, created_at, results`

func (r *repository) Create(ctx context.Context, s *Snapshot) error {
	query := `
		INSERT INTO report_snapshots (id, title, start_date, end_date, created_by, results)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &s.CreatedAt, query,
		s.ID, s.Title, s.StartDate, s.EndDate, s.CreatedBy, s.Results)
	if err != nil {
		return fmt.Errorf("create report snapshot: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Snapshot, error) {
	var s Snapshot
	err := r.db.GetContext(ctx, &s, `SELECT `+snapshotColumns+` FROM report_snapshots WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get report snapshot: %w", core.MapNoRows(err))
	}
	return &s, nil
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]Snapshot, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM report_snapshots`); err != nil {
		return nil, 0, fmt.Errorf("count report snapshots: %w", err)
	}

	query := `SELECT ` + snapshotColumns + `
		FROM report_snapshots
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	var snapshots []Snapshot
	if err := r.db.SelectContext(ctx, &snapshots, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list report snapshots: %w", err)
	}
	return snapshots, total, nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM report_snapshots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete report snapshot: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete report snapshot: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete report snapshot: %w", core.ErrNotFound)
	}
	return nil
}
