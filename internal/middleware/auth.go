// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/carterperez-dev/printshop/internal/core"
)

const (
	ClaimsKey contextKey = "jwt_claims"

	KindAdmin = core.KindAdmin
)

type TokenVerifier interface {
	VerifyAccessToken(
		ctx context.Context,
		token string,
	) (*AccessTokenClaims, error)
}

// AccessTokenClaims is what the verifier hands to downstream handlers. Kind
// is re-read from the database on every request, so a demoted admin loses
// access immediately.
type AccessTokenClaims struct {
	UserID       string
	Email        string
	Kind         string
	TokenVersion int
	JTI          string
}

func Authenticator(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				core.JSONError(w, core.UnauthorizedError("missing authorization token"))
				return
			}

			claims, err := verifier.VerifyAccessToken(r.Context(), token)
			if err != nil {
				handleAuthError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaims(r.Context())
		if claims == nil {
			core.JSONError(w, core.UnauthorizedError(""))
			return
		}
		if claims.Kind != KindAdmin {
			core.JSONError(w, core.ForbiddenError("administrator access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}

func handleAuthError(w http.ResponseWriter, err error) {
	if core.IsAppError(err) {
		core.JSONError(w, err)
		return
	}

	switch {
	case errors.Is(err, core.ErrTokenExpired):
		core.JSONError(w, core.TokenExpiredError())
	case errors.Is(err, core.ErrTokenRevoked):
		core.JSONError(w, core.TokenRevokedError())
	case errors.Is(err, core.ErrAccountLocked):
		core.JSONError(w, core.UnauthorizedError("account is inactive"))
	default:
		core.JSONError(w, core.TokenInvalidError())
	}
}

// WithClaims is exported for tests and for the worker, which acts on behalf
// of users without going through HTTP.
func WithClaims(ctx context.Context, claims *AccessTokenClaims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

func GetClaims(ctx context.Context) *AccessTokenClaims {
	if claims, ok := ctx.Value(ClaimsKey).(*AccessTokenClaims); ok {
		return claims
	}
	return nil
}

func GetUserID(ctx context.Context) string {
	if c := GetClaims(ctx); c != nil {
		return c.UserID
	}
	return ""
}

func GetUserKind(ctx context.Context) string {
	if c := GetClaims(ctx); c != nil {
		return c.Kind
	}
	return ""
}

func IsAdmin(ctx context.Context) bool {
	return GetUserKind(ctx) == KindAdmin
}

// Actor converts the request's claims into the caller identity services
// work with.
func Actor(ctx context.Context) core.Actor {
	return core.Actor{UserID: GetUserID(ctx), Kind: GetUserKind(ctx)}
}
