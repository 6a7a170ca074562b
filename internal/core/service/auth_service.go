package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/socialfeed/feed-api/internal/core/domain"
	"github.com/socialfeed/feed-api/internal/core/ports"
	"github.com/socialfeed/feed-api/internal/pkg/validate"
)

// AuthService implements signup and login.
type AuthService struct {
	users     ports.UserRepository
	hasher    PasswordHasher
	tokens    *TokenIssuer
	validator *validate.Validator
	log       zerolog.Logger
}

func NewAuthService(users ports.UserRepository, hasher PasswordHasher, tokens *TokenIssuer, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		validator: validate.New(),
		log:       log,
	}
}

// Signup validates the input, rejects a taken email and stores the account
// with a hashed password. The password is hashed exactly as given.
func (s *AuthService) Signup(ctx context.Context, in ports.SignupInput) (*domain.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)

	if err := s.validator.Struct(in, "Validation failed."); err != nil {
		return nil, err
	}

	existing, err := s.users.FindByEmail(ctx, in.Email)
	switch {
	case err == nil && existing != nil:
		return nil, domain.ErrUserExists
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("signup: %w", err)
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("signup: hash password: %w", err)
	}

	now := time.Now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		Email:          in.Email,
		Name:           in.Name,
		PasswordDigest: digest,
		Status:         domain.DefaultStatus,
		Posts:          []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", created.ID).Msg("user signed up")
	return created, nil
}

// Login checks the credentials and returns a bearer token. Unknown email and
// wrong password fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, domain.Unauthenticated("User not found.")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, domain.Unauthenticated("User not found.")
		}
		return "", nil, fmt.Errorf("login: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordDigest) {
		return "", nil, domain.Unauthenticated("User not found.")
	}

	token, err := s.tokens.Sign(ports.AuthClaims{Email: user.Email, UserID: user.ID})
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}
