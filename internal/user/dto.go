// AngelaMos | 2026
// dto.go

package user

import (
	"time"

	"github.com/shopspring/decimal"
)

type RegisterRequest struct {
	Email           string  `json:"email"            validate:"required,email,max=255"`
	Password        string  `json:"password"         validate:"required,min=8,max=128"`
	ConfirmPassword string  `json:"confirm_password" validate:"required,eqfield=Password"`
	Name            string  `json:"name"             validate:"required,min=1,max=100"`
	Surname         string  `json:"surname"          validate:"required,min=1,max=100"`
	Phone           *string `json:"phone,omitempty"  validate:"omitempty,phone"`
}

type UpdateUserRequest struct {
	ActingUserID *string `json:"acting_user_id,omitempty"`
	Name         *string `json:"name,omitempty"    validate:"omitempty,min=1,max=100"`
	Surname      *string `json:"surname,omitempty" validate:"omitempty,min=1,max=100"`
	Phone        *string `json:"phone,omitempty"   validate:"omitempty,phone"`
}

type ChangePasswordRequest struct {
	ActingUserID    *string `json:"acting_user_id,omitempty"`
	CurrentPassword string  `json:"current_password"`
	NewPassword     string  `json:"new_password"     validate:"required,min=8,max=128"`
	ConfirmPassword string  `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

type ActingUserRequest struct {
	ActingUserID *string `json:"acting_user_id,omitempty"`
}

type SetTypeRequest struct {
	ActingUserID *string `json:"acting_user_id,omitempty"`
	UserTypeID   string  `json:"user_type_id" validate:"required,uuid"`
}

type UserTypeRequest struct {
	Kind            Kind            `json:"kind"             validate:"required,oneof=customer admin frequent student"`
	Label           string          `json:"label"            validate:"required,min=1,max=100"`
	DiscountPercent decimal.Decimal `json:"discount_percent" validate:"gte=0,lte=100"`
}

type UpdateUserTypeRequest struct {
	Label           *string          `json:"label,omitempty"            validate:"omitempty,min=1,max=100"`
	DiscountPercent *decimal.Decimal `json:"discount_percent,omitempty" validate:"omitempty,gte=0,lte=100"`
}

type UserResponse struct {
	ID              string          `json:"id"`
	Email           string          `json:"email"`
	Name            string          `json:"name"`
	Surname         string          `json:"surname"`
	Phone           *string         `json:"phone"`
	Active          bool            `json:"active"`
	UserTypeID      *string         `json:"user_type_id"`
	Kind            Kind            `json:"kind"`
	TypeLabel       string          `json:"type_label,omitempty"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type UserTypeResponse struct {
	ID              string          `json:"id"`
	Kind            Kind            `json:"kind"`
	Label           string          `json:"label"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

type ListUsersParams struct {
	Page     int
	PageSize int
	Search   string
	Kind     string
	Active   *bool
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToUserResponse(u *User) UserResponse {
	resp := UserResponse{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		Surname:         u.Surname,
		Phone:           u.Phone,
		Active:          u.Active,
		UserTypeID:      u.UserTypeID,
		Kind:            u.KindOrDefault(),
		DiscountPercent: decimal.Zero,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
	if u.TypeLabel != nil {
		resp.TypeLabel = *u.TypeLabel
	}
	if u.DiscountPercent.Valid {
		resp.DiscountPercent = u.DiscountPercent.Decimal
	}
	return resp
}

func ToUserResponseList(users []User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, ToUserResponse(&users[i]))
	}
	return out
}

func ToUserTypeResponse(t *UserType) UserTypeResponse {
	return UserTypeResponse{
		ID:              t.ID,
		Kind:            t.Kind,
		Label:           t.Label,
		DiscountPercent: t.DiscountPercent,
	}
}
