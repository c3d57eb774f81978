// AngelaMos | 2026
// repository.go

package printjob

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/printshop/internal/core"
)

type Repository interface {
	CreateType(ctx context.Context, t *JobType) error
	GetType(ctx context.Context, id string) (*JobType, error)
	ListTypes(ctx context.Context, activeOnly bool) ([]JobType, error)
	UpdateType(ctx context.Context, t *JobType) error
	DeleteType(ctx context.Context, id string) error
	ActivePrice(ctx context.Context, format string, color bool) (decimal.Decimal, error)

	Create(ctx context.Context, job *PrintJob) error
	GetByID(ctx context.Context, id string) (*PrintJob, error)
	List(ctx context.Context, params ListParams) ([]PrintJob, int, error)
	Update(ctx context.Context, job *PrintJob) error
	Delete(ctx context.Context, id string) error
	Touch(ctx context.Context, id string, at time.Time) error
	ListStale(ctx context.Context, cutoff time.Time) ([]PrintJob, error)
	DeleteMany(ctx context.Context, ids []string) (int, error)
}

type repository struct {
	db core.DBTX
}

// NewRepository works over a pool or a transaction; order creation inserts
// print jobs through the order's transaction.
func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const typeColumns = `id, format, color, description, price, active, created_at, updated_at`

func (r *repository) CreateType(ctx context.Context, t *JobType) error {
	query := `
		INSERT INTO print_job_types (id, format, color, description, price, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	row := r.db.QueryRowxContext(ctx, query, t.ID, t.Format, t.Color, t.Description, t.Price, t.Active)
	if err := row.Scan(&t.CreatedAt, &t.UpdatedAt); err != nil {
		return fmt.Errorf("create print job type: %w", err)
	}
	return nil
}

func (r *repository) GetType(ctx context.Context, id string) (*JobType, error) {
	var t JobType
	err := r.db.GetContext(ctx, &t, `SELECT `+typeColumns+` FROM print_job_types WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get print job type: %w", core.MapNoRows(err))
	}
	return &t, nil
}

func (r *repository) ListTypes(ctx context.Context, activeOnly bool) ([]JobType, error) {
	query := `SELECT ` + typeColumns + ` FROM print_job_types`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY format, color, updated_at DESC`

	var types []JobType
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, fmt.Errorf("list print job types: %w", err)
	}
	return types, nil
}

func (r *repository) UpdateType(ctx context.Context, t *JobType) error {
	query := `
		UPDATE print_job_types
		SET format = $2, color = $3, description = $4, price = $5, active = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &t.UpdatedAt, query, t.ID, t.Format, t.Color, t.Description, t.Price, t.Active)
	if err != nil {
		return fmt.Errorf("update print job type: %w", core.MapNoRows(err))
	}
	return nil
}

func (r *repository) DeleteType(ctx context.Context, id string) error {
	return execOne(ctx, r.db, "delete print job type", `DELETE FROM print_job_types WHERE id = $1`, id)
}

// ActivePrice resolves a (format, color) price point. Duplicates are allowed
// in the table; the most recently updated active row wins.
func (r *repository) ActivePrice(ctx context.Context, format string, color bool) (decimal.Decimal, error) {
	query := `
		SELECT price FROM print_job_types
		WHERE format = $1 AND color = $2 AND active
		ORDER BY updated_at DESC
		LIMIT 1`

	var price decimal.Decimal
	if err := r.db.GetContext(ctx, &price, query, format, color); err != nil {
		return decimal.Zero, fmt.Errorf("active price %s/%t: %w", format, color, core.MapNoRows(err))
	}
	return price, nil
}

const jobColumns = `
	id, storage_key, url, format, color, original_filename, user_id,
	created_at, updated_at, last_accessed`

func (r *repository) Create(ctx context.Context, job *PrintJob) error {
	query := `
		INSERT INTO print_jobs (id, storage_key, url, format, color, original_filename, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at, last_accessed`

	row := r.db.QueryRowxContext(ctx, query,
		job.ID,
		job.StorageKey,
		job.URL,
		job.Format,
		job.Color,
		job.OriginalFilename,
		job.UserID,
	)
	if err := row.Scan(&job.CreatedAt, &job.UpdatedAt, &job.LastAccessed); err != nil {
		return fmt.Errorf("create print job: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*PrintJob, error) {
	var job PrintJob
	if err := r.db.GetContext(ctx, &job, `SELECT `+jobColumns+` FROM print_jobs WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("get print job: %w", core.MapNoRows(err))
	}
	return &job, nil
}

func (r *repository) List(ctx context.Context, params ListParams) ([]PrintJob, int, error) {
	params.Normalize()

	where := ""
	args := []any{}
	if params.UserID != "" {
		where = ` WHERE user_id = $1`
		args = append(args, params.UserID)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM print_jobs`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count print jobs: %w", err)
	}

	query := `SELECT ` + jobColumns + ` FROM print_jobs` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, params.PageSize, params.Offset())

	var jobs []PrintJob
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list print jobs: %w", err)
	}
	return jobs, total, nil
}

func (r *repository) Update(ctx context.Context, job *PrintJob) error {
	query := `
		UPDATE print_jobs
		SET format = $2, color = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	if err := r.db.GetContext(ctx, &job.UpdatedAt, query, job.ID, job.Format, job.Color); err != nil {
		return fmt.Errorf("update print job: %w", core.MapNoRows(err))
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	return execOne(ctx, r.db, "delete print job", `DELETE FROM print_jobs WHERE id = $1`, id)
}

func (r *repository) Touch(ctx context.Context, id string, at time.Time) error {
	return execOne(ctx, r.db, "touch print job",
		`UPDATE print_jobs SET last_accessed = $2 WHERE id = $1`, id, at)
}

func (r *repository) ListStale(ctx context.Context, cutoff time.Time) ([]PrintJob, error) {
	var jobs []PrintJob
	err := r.db.SelectContext(ctx, &jobs,
		`SELECT `+jobColumns+` FROM print_jobs WHERE last_accessed < $1 ORDER BY last_accessed`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stale print jobs: %w", err)
	}
	return jobs, nil
}

func (r *repository) DeleteMany(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(`DELETE FROM print_jobs WHERE id IN (?)`, ids)
	if err != nil {
		return 0, fmt.Errorf("delete print jobs: %w", err)
	}

	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("delete print jobs: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete print jobs: %w", err)
	}
	return int(n), nil
}

func execOne(ctx context.Context, db core.DBTX, op, query string, args ...any) error {
	result, err := db.ExecContext(ctx, query, args...)
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
