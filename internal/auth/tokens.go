// Package auth issues and verifies the JWT pair (short-lived access token,
// long-lived refresh token, distinct secrets) and defines the typed
// Principal handlers receive instead of a raw claim bag.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role identifies which account table a principal belongs to.
type Role string

const (
	RoleCitizen   Role = "citizen"
	RoleAuthority Role = "authority"
	RoleHigher    Role = "higher"
)

// Principal is the authenticated identity attached to a request. Department
// is empty for citizens.
type Principal struct {
	ID         uuid.UUID
	Role       Role
	Email      string
	Department string
}

// Claims is the JWT payload for both token types.
type Claims struct {
	Email      string `json:"email,omitempty"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	jwt.RegisteredClaims
}

const (
	accessTTL  = 15 * time.Minute
	refreshTTL = 7 * 24 * time.Hour
)

// TokenService signs and verifies access and refresh tokens.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	now           func() time.Time
}

// NewTokenService creates a token service from the two signing secrets.
func NewTokenService(accessSecret, refreshSecret string) *TokenService {
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		now:           time.Now,
	}
}

// MintAccess signs a 15-minute access token for p.
func (s *TokenService) MintAccess(p Principal) (string, error) {
	return s.mint(p, s.accessSecret, accessTTL)
}

// MintRefresh signs a 7-day refresh token for p.
func (s *TokenService) MintRefresh(p Principal) (string, error) {
	return s.mint(p, s.refreshSecret, refreshTTL)
}

func (s *TokenService) mint(p Principal, secret []byte, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Email:      p.Email,
		Role:       string(p.Role),
		Department: p.Department,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyAccess validates an access token and returns its principal.
func (s *TokenService) VerifyAccess(token string) (Principal, error) {
	return s.verify(token, s.accessSecret)
}

// VerifyRefresh validates a refresh token and returns its principal.
func (s *TokenService) VerifyRefresh(token string) (Principal, error) {
	return s.verify(token, s.refreshSecret)
}

func (s *TokenService) verify(token string, secret []byte) (Principal, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return Principal{}, fmt.Errorf("parse token: %w", err)
	}
	if !parsed.Valid {
		return Principal{}, fmt.Errorf("invalid token")
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Principal{}, fmt.Errorf("invalid subject: %w", err)
	}

	role := Role(claims.Role)
	switch role {
	case RoleCitizen, RoleAuthority, RoleHigher:
	default:
		return Principal{}, fmt.Errorf("unknown role %q", claims.Role)
	}

	return Principal{
		ID:         id,
		Role:       role,
		Email:      claims.Email,
		Department: claims.Department,
	}, nil
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom extracts the authenticated principal, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
