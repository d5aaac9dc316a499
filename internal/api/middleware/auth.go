package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/example/ec-order-payments/internal/api/response"
	"github.com/example/ec-order-payments/internal/apperr"
	"github.com/example/ec-order-payments/internal/auth"
	"github.com/example/ec-order-payments/internal/model"
)

var (
	ErrMissingToken = apperr.New(apperr.KindUnauthenticated, "unauthorized")
	ErrBadToken     = apperr.New(apperr.KindUnauthenticated, "invalid token")
	ErrTokenExpired = apperr.New(apperr.KindUnauthenticated, "token has expired")
	ErrRoleRequired = apperr.New(apperr.KindAuthorization, "forbidden")
)

// TokenValidator validates bearer tokens
type TokenValidator interface {
	ValidateAccessToken(token string) (*auth.Claims, error)
}

// ExtractToken extracts JWT token from cookie or Authorization header
func ExtractToken(r *http.Request) string {
	// Try cookie first (for browser)
	if cookie, err := r.Cookie("access_token"); err == nil {
		return cookie.Value
	}
	// Fall back to Authorization header (for API clients)
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	// EventSource cannot set headers
	if strings.HasSuffix(r.URL.Path, "/events") {
		return r.URL.Query().Get("token")
	}
	return ""
}

type contextKey string

const (
	IdentityContextKey contextKey = "identity"
)

// AuthMiddleware validates JWT tokens and adds the caller identity to context
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := ExtractToken(r)
			if tokenString == "" {
				response.Error(w, ErrMissingToken)
				return
			}

			claims, err := validator.ValidateAccessToken(tokenString)
			if errors.Is(err, auth.ErrExpiredToken) {
				response.Error(w, ErrTokenExpired)
				return
			}
			if err != nil {
				response.Error(w, ErrBadToken)
				return
			}
			identity, err := claims.Identity()
			if err != nil {
				response.Error(w, ErrBadToken)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireRole checks if the user has one of the required roles
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFrom(r.Context())
			if !ok {
				response.Error(w, ErrMissingToken)
				return
			}

			for _, role := range roles {
				if identity.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			response.Error(w, ErrRoleRequired)
		})
	}
}

func WithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, IdentityContextKey, identity)
}

// IdentityFrom retrieves the caller identity from the request context
func IdentityFrom(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(IdentityContextKey).(model.Identity)
	return identity, ok
}
