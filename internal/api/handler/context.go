package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/socialfeed/feed-api/internal/api/middleware"
	"github.com/socialfeed/feed-api/internal/core/domain"
)

// ctxUserID returns the caller id injected by the Auth middleware, from the
// echo context or else the request context. An empty value means the route
// was mounted without it.
func ctxUserID(c echo.Context) (string, error) {
	userID, _ := c.Get(middleware.UserIDKey).(string)
	if userID == "" {
		if claims, ok := middleware.IdentityFromContext(c.Request().Context()); ok {
			userID = claims.UserID
		}
	}
	if userID == "" {
		return "", domain.Unauthenticated("Not authenticated.")
	}
	return userID, nil
}
