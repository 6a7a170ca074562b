package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/socialfeed/feed-api/internal/core/domain"
	"github.com/socialfeed/feed-api/internal/core/ports"
)

const defaultTokenTTL = time.Hour

type tokenClaims struct {
	Email  string `json:"email"`
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 bearer tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token for claims that expires after the issuer's TTL.
func (t *TokenIssuer) Sign(claims ports.AuthClaims) (string, error) {
	now := t.now()
	tc := tokenClaims{
		Email:  claims.Email,
		UserID: claims.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm and expiry and returns the claims.
func (t *TokenIssuer) Verify(token string) (*ports.AuthClaims, error) {
	var tc tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &tc,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid {
		return nil, domain.Unauthenticated("Invalid Token!")
	}
	if tc.UserID == "" {
		return nil, domain.Unauthenticated("Invalid Token!")
	}
	return &ports.AuthClaims{Email: tc.Email, UserID: tc.UserID}, nil
}
