// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/carterperez-dev/printshop/internal/core"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetActive(ctx context.Context, id string, active bool) error
	SetUserType(ctx context.Context, id, userTypeID string) error
	IncrementTokenVersion(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params ListUsersParams) ([]User, int, error)
	ListActiveAdmins(ctx context.Context) ([]User, error)

	ListTypes(ctx context.Context) ([]UserType, error)
	GetType(ctx context.Context, id string) (*UserType, error)
	GetTypeByKind(ctx context.Context, kind Kind) (*UserType, error)
	CreateType(ctx context.Context, t *UserType) error
	UpdateType(ctx context.Context, t *UserType) error
	DeleteType(ctx context.Context, id string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const userSelect = `
	SELECT u.id, u.email, u.password_hash, u.name, u.surname, u.phone,
	       u.user_type_id, u.active, u.token_version, u.created_at, u.updated_at,
	       t.kind, t.label AS type_label, t.discount_percent
	FROM users u
	LEFT JOIN user_types t ON t.id = u.user_type_id`

func (r *repository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, email, password_hash, name, surname, phone, user_type_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING active, token_version, created_at, updated_at`

	row := r.db.QueryRowxContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.Surname,
		user.Phone,
		user.UserTypeID,
	)
	if err := row.Scan(&user.Active, &user.TokenVersion, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	var user User
	if err := r.db.GetContext(ctx, &user, userSelect+` WHERE u.id = $1`, id); err != nil {
		return nil, fmt.Errorf("get user: %w", core.MapNoRows(err))
	}
	return &user, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := r.db.GetContext(ctx, &user, userSelect+` WHERE LOWER(u.email) = LOWER($1)`, email)
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", core.MapNoRows(err))
	}
	return &user, nil
}

func (r *repository) Update(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET name = $2, surname = $3, phone = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &user.UpdatedAt, query,
		user.ID,
		user.Name,
		user.Surname,
		user.Phone,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", core.MapNoRows(err))
	}
	return nil
}

func (r *repository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.execOne(ctx, "update password",
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`,
		id, passwordHash)
}

func (r *repository) SetActive(ctx context.Context, id string, active bool) error {
	return r.execOne(ctx, "set active",
		`UPDATE users SET active = $2, updated_at = NOW() WHERE id = $1`,
		id, active)
}

func (r *repository) SetUserType(ctx context.Context, id, userTypeID string) error {
	err := r.execOne(ctx, "set user type",
		`UPDATE users SET user_type_id = $2, updated_at = NOW() WHERE id = $1`,
		id, userTypeID)
	if core.IsForeignKeyViolation(err) {
		return fmt.Errorf("set user type: unknown user type: %w", core.ErrInvalidInput)
	}
	return err
}

func (r *repository) IncrementTokenVersion(ctx context.Context, id string) error {
	return r.execOne(ctx, "increment token version",
		`UPDATE users SET token_version = token_version + 1, updated_at = NOW() WHERE id = $1`,
		id)
}

func (r *repository) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, "delete user", `DELETE FROM users WHERE id = $1`, id)
}

func (r *repository) List(ctx context.Context, params ListUsersParams) ([]User, int, error) {
	params.Normalize()

	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(u.email ILIKE $%d OR u.name ILIKE $%d OR u.surname ILIKE $%d)",
			argIdx, argIdx, argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	if params.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("t.kind = $%d", argIdx))
		args = append(args, params.Kind)
		argIdx++
	}

	if params.Active != nil {
		conditions = append(conditions, fmt.Sprintf("u.active = $%d", argIdx))
		args = append(args, *params.Active)
		argIdx++
	}

	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM users u LEFT JOIN user_types t ON t.id = u.user_type_id` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := userSelect + where + fmt.Sprintf(
		" ORDER BY u.created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, params.PageSize, params.Offset())

	var users []User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	return users, total, nil
}

func (r *repository) ListActiveAdmins(ctx context.Context) ([]User, error) {
	var users []User
	err := r.db.SelectContext(ctx, &users,
		userSelect+` WHERE u.active AND t.kind = $1 ORDER BY u.email`, KindAdmin)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return users, nil
}

const typeColumns = `id, kind, label, discount_percent, created_at, updated_at`

func (r *repository) ListTypes(ctx context.Context) ([]UserType, error) {
	var types []UserType
	err := r.db.SelectContext(ctx, &types,
		`SELECT `+typeColumns+` FROM user_types ORDER BY discount_percent, label`)
	if err != nil {
		return nil, fmt.Errorf("list user types: %w", err)
	}
	return types, nil
}

func (r *repository) GetType(ctx context.Context, id string) (*UserType, error) {
	var t UserType
	if err := r.db.GetContext(ctx, &t, `SELECT `+typeColumns+` FROM user_types WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("get user type: %w", core.MapNoRows(err))
	}
	return &t, nil
}

// GetTypeByKind returns the oldest type of a kind; the seeded rows come first.
func (r *repository) GetTypeByKind(ctx context.Context, kind Kind) (*UserType, error) {
	var t UserType
	err := r.db.GetContext(ctx, &t,
		`SELECT `+typeColumns+` FROM user_types WHERE kind = $1 ORDER BY created_at LIMIT 1`, kind)
	if err != nil {
		return nil, fmt.Errorf("get user type by kind: %w", core.MapNoRows(err))
	}
	return &t, nil
}

func (r *repository) CreateType(ctx context.Context, t *UserType) error {
	query := `
		INSERT INTO user_types (id, kind, label, discount_percent)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	row := r.db.QueryRowxContext(ctx, query, t.ID, t.Kind, t.Label, t.DiscountPercent)
	if err := row.Scan(&t.CreatedAt, &t.UpdatedAt); err != nil {
		return fmt.Errorf("create user type: %w", err)
	}
	return nil
}

func (r *repository) UpdateType(ctx context.Context, t *UserType) error {
	query := `
		UPDATE user_types
		SET label = $2, discount_percent = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	if err := r.db.GetContext(ctx, &t.UpdatedAt, query, t.ID, t.Label, t.DiscountPercent); err != nil {
		return fmt.Errorf("update user type: %w", core.MapNoRows(err))
	}
	return nil
}

func (r *repository) DeleteType(ctx context.Context, id string) error {
	err := r.execOne(ctx, "delete user type", `DELETE FROM user_types WHERE id = $1`, id)
	if core.IsForeignKeyViolation(err) {
		return fmt.Errorf("delete user type: user type in use: %w", core.ErrConflict)
	}
	return err
}

func (r *repository) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
