package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/socialfeed/feed-api/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Message string              `json:"message"`
	Data    []domain.FieldError `json:"data"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain error kinds to their HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"message": "...", "data": [...]}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, resp := resolveError(err)

		evt := log.Info()
		if code >= http.StatusInternalServerError {
			evt = log.Error()
		}
		evt.Err(err).
			Int("status", code).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
			Msg("request failed")

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, resp)
	}
}

func resolveError(err error) (int, errorResponse) {
	var de *domain.Error
	if errors.As(err, &de) {
		data := de.Data
		if data == nil {
			data = []domain.FieldError{}
		}
		return domain.StatusCode(de), errorResponse{Message: de.Error(), Data: data}
	}

	// Echo's own errors (bind failures, 404 from router, body limit, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Message: fmt.Sprintf("%v", he.Message), Data: []domain.FieldError{}}
	}

	return http.StatusInternalServerError, errorResponse{Message: "internal server error", Data: []domain.FieldError{}}
}
