package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/socialfeed/feed-api/internal/core/domain"
)

func TestHTTPErrorHandler(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
		wantData int
	}{
		{
			name:     "validation with fields",
			err:      domain.Validation("Validation failed.", domain.FieldError{Field: "email", Message: "Please enter a valid email."}),
			wantCode: http.StatusUnprocessableEntity,
			wantMsg:  "Validation failed.",
			wantData: 1,
		},
		{"unauthenticated", domain.Unauthenticated("Not authenticated."), http.StatusUnauthorized, "Not authenticated.", 0},
		{"forbidden", domain.Forbidden("Not Authorized"), http.StatusForbidden, "Not Authorized", 0},
		{"not found", domain.ErrPostNotFound, http.StatusNotFound, "Post not found!", 0},
		{"conflict", domain.ErrUserExists, http.StatusConflict, "E-Mail address already exists!", 0},
		{"wrapped domain error", errors.Join(errors.New("ctx"), domain.ErrUserNotFound), http.StatusNotFound, "User not found.", 0},
		{"echo error", echo.NewHTTPError(http.StatusRequestEntityTooLarge, "Request Entity Too Large"), http.StatusRequestEntityTooLarge, "Request Entity Too Large", 0},
		{"unexpected", errors.New("mongo: connection refused"), http.StatusInternalServerError, "internal server error", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			NewHTTPErrorHandler(zerolog.Nop())(tt.err, c)

			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rec.Code)
			}

			var body struct {
				Message string              `json:"message"`
				Data    []domain.FieldError `json:"data"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if body.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", body.Message, tt.wantMsg)
			}
			if body.Data == nil || len(body.Data) != tt.wantData {
				t.Errorf("data = %v, want %d entries", body.Data, tt.wantData)
			}
		})
	}
}

func TestHTTPErrorHandler_CommittedResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	_ = c.String(http.StatusOK, "done")

	NewHTTPErrorHandler(zerolog.Nop())(errors.New("late"), c)

	if rec.Code != http.StatusOK || rec.Body.String() != "done" {
		t.Fatalf("committed response was rewritten: %d %q", rec.Code, rec.Body.String())
	}
}
