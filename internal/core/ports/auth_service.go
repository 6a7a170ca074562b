package ports

import (
	"context"

	"github.com/socialfeed/feed-api/internal/core/domain"
)

// SignupInput carries the fields of a new account.
type SignupInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name"     validate:"required"`
}

// AuthClaims is the identity carried inside a bearer token.
type AuthClaims struct {
	Email  string
	UserID string
}

type AuthService interface {
	Signup(ctx context.Context, input SignupInput) (*domain.User, error)
	// Login returns a signed bearer token and the authenticated user.
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
}

// TokenVerifier decodes and verifies a bearer token.
type TokenVerifier interface {
	Verify(token string) (*AuthClaims, error)
}
