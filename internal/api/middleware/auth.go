package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/socialfeed/feed-api/internal/core/domain"
	"github.com/socialfeed/feed-api/internal/core/ports"
)

// Context keys set by Auth.
const (
	UserIDKey = "userId"
	EmailKey  = "email"
)

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying the caller's claims.
func WithIdentity(ctx context.Context, claims *ports.AuthClaims) context.Context {
	return context.WithValue(ctx, identityKey{}, claims)
}

// IdentityFromContext returns the claims stored by Auth on a request context.
func IdentityFromContext(ctx context.Context) (*ports.AuthClaims, bool) {
	claims, ok := ctx.Value(identityKey{}).(*ports.AuthClaims)
	return claims, ok && claims != nil
}

// Auth verifies the bearer token and injects the caller's identity into the
// echo context and the request context.
func Auth(verifier ports.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return domain.Unauthenticated("Not authenticated.")
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				return domain.Unauthenticated("Not authenticated.")
			}

			claims, err := verifier.Verify(parts[1])
			if err != nil {
				return err
			}

			c.Set(UserIDKey, claims.UserID)
			c.Set(EmailKey, claims.Email)
			c.SetRequest(c.Request().WithContext(WithIdentity(c.Request().Context(), claims)))

			return next(c)
		}
	}
}
