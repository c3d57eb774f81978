// AngelaMos | 2026
// entity.go

package user

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/printshop/internal/core"
)

// Kind is the closed set of user-type variants. Authorization compares
// kinds; labels are display text and may be renamed freely.
type Kind string

const (
	KindCustomer Kind = "customer"
	KindAdmin    Kind = core.KindAdmin
	KindFrequent Kind = "frequent"
	KindStudent  Kind = "student"
)

func (k Kind) Valid() bool {
	switch k {
	case KindCustomer, KindAdmin, KindFrequent, KindStudent:
		return true
	}
	return false
}

type UserType struct {
	ID              string          `db:"id"`
	Kind            Kind            `db:"kind"`
	Label           string          `db:"label"`
	DiscountPercent decimal.Decimal `db:"discount_percent"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

type User struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Name         string    `db:"name"`
	Surname      string    `db:"surname"`
	Phone        *string   `db:"phone"`
	UserTypeID   *string   `db:"user_type_id"`
	Active       bool      `db:"active"`
	TokenVersion int       `db:"token_version"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`

	// joined from user_types
	Kind            *Kind               `db:"kind"`
	TypeLabel       *string             `db:"type_label"`
	DiscountPercent decimal.NullDecimal `db:"discount_percent"`
}

func (u *User) KindOrDefault() Kind {
	if u.Kind == nil {
		return KindCustomer
	}
	return *u.Kind
}

func (u *User) IsAdmin() bool {
	return u.KindOrDefault() == KindAdmin
}
