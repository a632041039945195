package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/civicpulse/issue-server/internal/apperr"
	"github.com/civicpulse/issue-server/internal/auth"
	"github.com/civicpulse/issue-server/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const uniqueViolation = "23505"

// AuthService handles citizen registration, login and token refresh.
type AuthService struct {
	db     *pgxpool.Pool
	tokens *auth.TokenService
	logger *zap.SugaredLogger
}

// NewAuthService creates a new auth service
func NewAuthService(db *pgxpool.Pool, tokens *auth.TokenService, logger *zap.SugaredLogger) *AuthService {
	return &AuthService{db: db, tokens: tokens, logger: logger}
}

// Register creates a citizen account. Email uniqueness is enforced by the
// database; a duplicate surfaces as a conflict, never a second row.
func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Dependency("failed to hash password", err)
	}

	var user models.User
	err = s.db.QueryRow(ctx,
		`INSERT INTO users (name, email, phone, password_hash)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, name, email, created_at`,
		req.Name, req.Email, req.Phone, string(hash),
	).Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, apperr.Conflict("User already exists")
		}
		return nil, apperr.Dependency("failed to register user", err)
	}

	return &user, nil
}

// Login verifies citizen credentials and mints a token pair. The refresh
// token is also written to the audit ledger; ledger rows are not consulted
// during refresh validation.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	var (
		user models.User
		hash string
	)
	err := s.db.QueryRow(ctx,
		`SELECT id, name, email, password_hash FROM users WHERE email = $1`,
		email,
	).Scan(&user.ID, &user.Name, &user.Email, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Auth("Invalid credentials")
	}
	if err != nil {
		return nil, apperr.Dependency("failed to look up user", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, apperr.Auth("Invalid credentials")
	}

	principal := auth.Principal{ID: user.ID, Role: auth.RoleCitizen, Email: user.Email}
	pair, err := s.mintPair(principal)
	if err != nil {
		return nil, err
	}

	if err := s.recordRefreshToken(ctx, auth.RoleCitizen, user.ID, pair.RefreshToken); err != nil {
		return nil, err
	}

	return pair, nil
}

// Refresh exchanges a valid refresh token for a fresh access token.
// Validation is signature+expiry only; the ledger is audit-only.
func (s *AuthService) Refresh(ctx context.Context, token string) (string, error) {
	principal, err := s.tokens.VerifyRefresh(token)
	if err != nil {
		return "", apperr.Forbidden("Invalid refresh token")
	}

	access, err := s.tokens.MintAccess(principal)
	if err != nil {
		return "", apperr.Dependency("failed to mint access token", err)
	}
	return access, nil
}

func (s *AuthService) mintPair(p auth.Principal) (*models.TokenPair, error) {
	access, err := s.tokens.MintAccess(p)
	if err != nil {
		return nil, apperr.Dependency("failed to mint access token", err)
	}
	refresh, err := s.tokens.MintRefresh(p)
	if err != nil {
		return nil, apperr.Dependency("failed to mint refresh token", err)
	}
	return &models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) recordRefreshToken(ctx context.Context, kind auth.Role, accountID uuid.UUID, token string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO refresh_tokens (account_kind, account_id, token) VALUES ($1, $2, $3)`,
		string(kind), accountID, token,
	)
	if err != nil {
		return apperr.Dependency("failed to record refresh token", fmt.Errorf("insert refresh token: %w", err))
	}
	return nil
}
