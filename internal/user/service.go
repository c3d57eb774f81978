// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/printshop/internal/auth"
	"github.com/carterperez-dev/printshop/internal/core"
)

// SessionRevoker ends every session of a user. auth.Service satisfies it.
type SessionRevoker interface {
	LogoutAll(ctx context.Context, userID string) error
}

type Service struct {
	repo     Repository
	sessions SessionRevoker
	logger   *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// SetSessionRevoker breaks the construction cycle with auth.Service, which
// needs the user service as its UserProvider.
func (s *Service) SetSessionRevoker(sessions SessionRevoker) {
	s.sessions = sessions
}

func (s *Service) GetByID(ctx context.Context, id string) (*auth.UserInfo, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toUserInfo(user), nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*auth.UserInfo, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return toUserInfo(user), nil
}

func (s *Service) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash)
}

func (s *Service) IncrementTokenVersion(ctx context.Context, userID string) error {
	return s.repo.IncrementTokenVersion(ctx, userID)
}

// Register always assigns the customer tier, whatever the request says.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	customer, err := s.repo.GetTypeByKind(ctx, KindCustomer)
	if err != nil {
		return nil, fmt.Errorf("register: customer type: %w", err)
	}

	hash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	user := &User{
		ID:           uuid.New().String(),
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
		Surname:      strings.TrimSpace(req.Surname),
		Phone:        req.Phone,
		UserTypeID:   &customer.ID,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, core.DuplicateError("email")
		}
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID)

	return s.repo.GetByID(ctx, user.ID)
}

func (s *Service) Get(ctx context.Context, actor core.Actor, id string) (*User, error) {
	if !actor.CanAccess(&id) {
		return nil, fmt.Errorf("get user: %w", core.ErrForbidden)
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, actor core.Actor, params ListUsersParams) ([]User, int, error) {
	if !actor.IsAdmin() {
		return nil, 0, fmt.Errorf("list users: %w", core.ErrForbidden)
	}
	return s.repo.List(ctx, params)
}

func (s *Service) Update(ctx context.Context, actor core.Actor, id string, req UpdateUserRequest) (*User, error) {
	if err := checkActing(actor, req.ActingUserID); err != nil {
		return nil, err
	}
	if !actor.CanAccess(&id) {
		return nil, fmt.Errorf("update user: %w", core.ErrForbidden)
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Surname != nil {
		user.Surname = strings.TrimSpace(*req.Surname)
	}
	if req.Phone != nil {
		if *req.Phone == "" {
			user.Phone = nil
		} else {
			user.Phone = req.Phone
		}
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) Delete(ctx context.Context, actor core.Actor, id string) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("delete user: %w", core.ErrForbidden)
	}
	if actor.UserID == id {
		return fmt.Errorf("delete user: cannot delete your own account: %w", core.ErrInvalidState)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("user deleted", "user_id", id, "by", actor.UserID)
	return nil
}

func (s *Service) SetActive(
	ctx context.Context,
	actor core.Actor,
	id string,
	active bool,
	acting *string,
) (*User, error) {
	if err := checkActing(actor, acting); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("set active: %w", core.ErrForbidden)
	}
	if !active && actor.UserID == id {
		return nil, fmt.Errorf("set active: cannot deactivate your own account: %w", core.ErrInvalidState)
	}

	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, err
	}

	if !active {
		s.endSessions(ctx, id)
	}

	return s.repo.GetByID(ctx, id)
}

// ChangePassword lets a user change their own password when they know the
// current one. Admins may reset anyone else's without it.
func (s *Service) ChangePassword(
	ctx context.Context,
	actor core.Actor,
	id string,
	req ChangePasswordRequest,
) error {
	if err := checkActing(actor, req.ActingUserID); err != nil {
		return err
	}
	if !actor.CanAccess(&id) {
		return fmt.Errorf("change password: %w", core.ErrForbidden)
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if actor.UserID == id {
		ok, _, err := core.VerifyPassword(req.CurrentPassword, user.PasswordHash)
		if err != nil {
			return fmt.Errorf("change password: %w", err)
		}
		if !ok {
			return fmt.Errorf("change password: current password is incorrect: %w", core.ErrInvalidInput)
		}
	}

	hash, err := core.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
		return err
	}

	s.endSessions(ctx, id)
	return nil
}

func (s *Service) Promote(ctx context.Context, actor core.Actor, id string, acting *string) (*User, error) {
	if err := checkActing(actor, acting); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("promote: %w", core.ErrForbidden)
	}

	adminType, err := s.repo.GetTypeByKind(ctx, KindAdmin)
	if err != nil {
		return nil, fmt.Errorf("promote: admin type: %w", err)
	}
	if err := s.repo.SetUserType(ctx, id, adminType.ID); err != nil {
		return nil, err
	}

	s.logger.Info("user promoted", "user_id", id, "by", actor.UserID)
	return s.repo.GetByID(ctx, id)
}

func (s *Service) SetType(ctx context.Context, actor core.Actor, id string, req SetTypeRequest) (*User, error) {
	if err := checkActing(actor, req.ActingUserID); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("set user type: %w", core.ErrForbidden)
	}

	if _, err := s.repo.GetType(ctx, req.UserTypeID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("set user type: unknown user type: %w", core.ErrInvalidInput)
		}
		return nil, err
	}
	if err := s.repo.SetUserType(ctx, id, req.UserTypeID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListTypes(ctx context.Context) ([]UserType, error) {
	return s.repo.ListTypes(ctx)
}

func (s *Service) CreateType(ctx context.Context, actor core.Actor, req UserTypeRequest) (*UserType, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("create user type: %w", core.ErrForbidden)
	}
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("create user type: unknown kind %q: %w", req.Kind, core.ErrInvalidInput)
	}

	t := &UserType{
		ID:              uuid.New().String(),
		Kind:            req.Kind,
		Label:           strings.TrimSpace(req.Label),
		DiscountPercent: req.DiscountPercent.Round(2),
	}
	if err := s.repo.CreateType(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) UpdateType(
	ctx context.Context,
	actor core.Actor,
	id string,
	req UpdateUserTypeRequest,
) (*UserType, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("update user type: %w", core.ErrForbidden)
	}

	t, err := s.repo.GetType(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Label != nil {
		t.Label = strings.TrimSpace(*req.Label)
	}
	if req.DiscountPercent != nil {
		t.DiscountPercent = req.DiscountPercent.Round(2)
	}

	if err := s.repo.UpdateType(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) DeleteType(ctx context.Context, actor core.Actor, id string) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("delete user type: %w", core.ErrForbidden)
	}
	return s.repo.DeleteType(ctx, id)
}

// AdminEmails lists the recipients of the scheduled report.
func (s *Service) AdminEmails(ctx context.Context) ([]string, error) {
	admins, err := s.repo.ListActiveAdmins(ctx)
	if err != nil {
		return nil, err
	}
	emails := make([]string, 0, len(admins))
	for _, a := range admins {
		emails = append(emails, a.Email)
	}
	return emails, nil
}

func (s *Service) endSessions(ctx context.Context, userID string) {
	var err error
	if s.sessions != nil {
		err = s.sessions.LogoutAll(ctx, userID)
	} else {
		err = s.repo.IncrementTokenVersion(ctx, userID)
	}
	if err != nil {
		s.logger.Error("failed to end sessions", "user_id", userID, "error", err)
	}
}

// checkActing rejects a body-supplied acting user that is not the bearer.
func checkActing(actor core.Actor, acting *string) error {
	if acting != nil && *acting != "" && *acting != actor.UserID {
		return fmt.Errorf("acting user does not match token: %w", core.ErrForbidden)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Surname:      u.Surname,
		PasswordHash: u.PasswordHash,
		Kind:         string(u.KindOrDefault()),
		Active:       u.Active,
		TokenVersion: u.TokenVersion,
	}
}

var _ auth.UserProvider = (*Service)(nil)
