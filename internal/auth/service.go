// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/printshop/internal/core"
	"github.com/carterperez-dev/printshop/internal/middleware"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenReuse         = errors.New("token reuse detected")
)

type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	IncrementTokenVersion(ctx context.Context, userID string) error
}

// RevocationList blacklists presented access tokens until they expire.
type RevocationList interface {
	Revoke(ctx context.Context, tokenHash string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenHash string) (bool, error)
}

type TokenIssuer interface {
	CreateAccessToken(user *UserInfo) (string, time.Time, error)
	ParseAccessToken(token string) (*AccessClaims, error)
	NewRefreshToken(familyID string) (*RefreshTokenData, error)
}

type Service struct {
	repo    Repository
	tokens  TokenIssuer
	users   UserProvider
	revoked RevocationList
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(
	repo Repository,
	tokens TokenIssuer,
	users UserProvider,
	revoked RevocationList,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:    repo,
		tokens:  tokens,
		users:   users,
		revoked: revoked,
		logger:  logger,
		now:     time.Now,
	}
}

// Login rejects unknown emails, wrong passwords and inactive accounts with
// the same error so none of them can be told apart.
func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // equalises timing with the found-user path
			_, _, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	valid, rehash, err := core.VerifyPasswordTimingSafe(req.Password, &user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("login: verify password: %w", err)
	}
	if !valid || !user.Active {
		return nil, ErrInvalidCredentials
	}

	if rehash != "" {
		if err := s.users.UpdatePassword(ctx, user.ID, rehash); err != nil {
			s.logger.Warn("password rehash failed", "user_id", user.ID, "error", err)
		}
	}

	return s.issue(ctx, user, userAgent, ipAddress, "")
}

// Refresh rotates a refresh token. Presenting an already used token means it
// leaked, so the whole family is revoked.
func (s *Service) Refresh(
	ctx context.Context,
	refreshToken, userAgent, ipAddress string,
) (*AuthResponse, error) {
	stored, err := s.repo.FindByHash(ctx, core.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("refresh: %w", err)
	}

	if stored.IsRevoked() {
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenRevoked)
	}
	if stored.IsUsed {
		s.revokeFamily(ctx, stored)
		return nil, ErrTokenReuse
	}
	if stored.IsExpired(s.now()) {
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenExpired)
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	if !user.Active {
		return nil, fmt.Errorf("refresh: %w", core.ErrAccountLocked)
	}

	nextID := uuid.NewString()
	if err := s.repo.MarkAsUsed(ctx, stored.ID, nextID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// lost a race with another refresh of the same token
			s.revokeFamily(ctx, stored)
			return nil, ErrTokenReuse
		}
		return nil, fmt.Errorf("refresh: %w", err)
	}

	return s.issueWithID(ctx, nextID, user, userAgent, ipAddress, stored.FamilyID)
}

// Logout revokes the refresh token and blacklists the access token that
// authenticated the call.
func (s *Service) Logout(
	ctx context.Context,
	userID, refreshToken, accessToken string,
) error {
	if refreshToken != "" {
		stored, err := s.repo.FindByHash(ctx, core.HashToken(refreshToken))
		switch {
		case errors.Is(err, core.ErrNotFound):
		case err != nil:
			return fmt.Errorf("logout: %w", err)
		case stored.UserID != userID:
			return fmt.Errorf("logout: %w", core.ErrForbidden)
		default:
			if err := s.repo.RevokeByID(ctx, stored.ID); err != nil && !errors.Is(err, core.ErrNotFound) {
				return fmt.Errorf("logout: %w", err)
			}
		}
	}

	if accessToken == "" {
		return nil
	}

	claims, err := s.tokens.ParseAccessToken(accessToken)
	if err != nil {
		return nil //nolint:nilerr // an unusable token needs no revocation
	}
	if err := s.revoked.Revoke(ctx, core.HashToken(accessToken), claims.ExpiresAt.Sub(s.now())); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// LogoutAll kills every refresh token and, through the token version, every
// access token already handed out.
func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	if err := s.repo.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("logout all: %w", err)
	}
	if err := s.users.IncrementTokenVersion(ctx, userID); err != nil {
		return fmt.Errorf("logout all: %w", err)
	}
	return nil
}

func (s *Service) Sessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	tokens, err := s.repo.ListActiveForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	sessions := make([]SessionInfo, 0, len(tokens))
	for _, t := range tokens {
		sessions = append(sessions, SessionInfo{
			ID:        t.ID,
			UserAgent: t.UserAgent,
			IPAddress: t.IPAddress,
			CreatedAt: t.CreatedAt,
			ExpiresAt: t.ExpiresAt,
		})
	}
	return sessions, nil
}

func (s *Service) RevokeSession(ctx context.Context, userID, sessionID string) error {
	token, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if token.UserID != userID {
		return fmt.Errorf("revoke session: %w", core.ErrForbidden)
	}
	return s.repo.RevokeByID(ctx, sessionID)
}

func (s *Service) CurrentUser(ctx context.Context, userID string) (*UserSummary, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := toUserSummary(user)
	return &summary, nil
}

// VerifyAccessToken resolves a bearer token to the claims handlers see. The
// account is re-read so deactivation, demotion and logout-all take effect on
// the next request.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	claims, err := s.tokens.ParseAccessToken(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revoked.IsRevoked(ctx, core.HashToken(token))
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("verify token: %w", err)
	}
	if !user.Active {
		return nil, fmt.Errorf("verify token: %w", core.ErrAccountLocked)
	}
	if claims.TokenVersion < user.TokenVersion {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
	}

	return &middleware.AccessTokenClaims{
		UserID:       user.ID,
		Email:        user.Email,
		Kind:         user.Kind,
		TokenVersion: claims.TokenVersion,
		JTI:          claims.JTI,
	}, nil
}

func (s *Service) revokeFamily(ctx context.Context, token *RefreshToken) {
	s.logger.Warn("refresh token reuse, revoking family",
		"user_id", token.UserID,
		"family_id", token.FamilyID,
	)
	if err := s.repo.RevokeByFamilyID(ctx, token.FamilyID); err != nil {
		s.logger.Error("revoke token family failed", "family_id", token.FamilyID, "error", err)
	}
}

func (s *Service) issue(
	ctx context.Context,
	user *UserInfo,
	userAgent, ipAddress, familyID string,
) (*AuthResponse, error) {
	return s.issueWithID(ctx, uuid.NewString(), user, userAgent, ipAddress, familyID)
}

func (s *Service) issueWithID(
	ctx context.Context,
	tokenID string,
	user *UserInfo,
	userAgent, ipAddress, familyID string,
) (*AuthResponse, error) {
	access, expiresAt, err := s.tokens.CreateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	refresh, err := s.tokens.NewRefreshToken(familyID)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	if err := s.repo.Create(ctx, &RefreshToken{
		ID:        tokenID,
		UserID:    user.ID,
		TokenHash: refresh.Hash,
		FamilyID:  refresh.FamilyID,
		ExpiresAt: refresh.ExpiresAt,
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}); err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	return &AuthResponse{
		User: toUserSummary(user),
		Tokens: TokenResponse{
			AccessToken:  access,
			RefreshToken: refresh.Token,
			TokenType:    "Bearer",
			ExpiresIn:    int(expiresAt.Sub(s.now()).Seconds()),
			ExpiresAt:    expiresAt,
		},
	}, nil
}

var _ middleware.TokenVerifier = (*Service)(nil)
