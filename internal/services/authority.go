package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
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

// AuthorityService handles both authority tiers: provisioning of field
// authorities by department heads, the shared login, and profile completion.
type AuthorityService struct {
	db     *pgxpool.Pool
	tokens *auth.TokenService
	logger *zap.SugaredLogger
}

// NewAuthorityService creates a new authority service
func NewAuthorityService(db *pgxpool.Pool, tokens *auth.TokenService, logger *zap.SugaredLogger) *AuthorityService {
	return &AuthorityService{db: db, tokens: tokens, logger: logger}
}

// RegisterLower provisions a field authority in the caller's department with
// a server-generated temporary password. The plaintext is returned exactly
// once so the department head can hand it over.
func (s *AuthorityService) RegisterLower(ctx context.Context, department, email string) (*models.Authority, string, error) {
	tempPassword, err := generateTempPassword()
	if err != nil {
		return nil, "", apperr.Dependency("failed to generate password", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", apperr.Dependency("failed to hash password", err)
	}

	var authority models.Authority
	err = s.db.QueryRow(ctx,
		`INSERT INTO authorities (email, password_hash, department)
		 VALUES ($1, $2, $3)
		 RETURNING id, email, department`,
		email, string(hash), department,
	).Scan(&authority.ID, &authority.Email, &authority.Department)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, "", apperr.Conflict("Authority already exists")
		}
		return nil, "", apperr.Dependency("failed to register authority", err)
	}

	s.logger.Infow("Lower authority registered",
		"id", authority.ID,
		"department", department,
	)

	return &authority, tempPassword, nil
}

// Login authenticates either tier. The higher-authority table is checked
// first; on a miss the field-authority table decides the role.
func (s *AuthorityService) Login(ctx context.Context, email, password string) (*models.TokenPair, *models.AuthorityIdentity, error) {
	var (
		id         uuid.UUID
		hash       string
		department string
		role       auth.Role
	)

	err := s.db.QueryRow(ctx,
		`SELECT id, password_hash, department FROM higherauthorities WHERE email = $1`,
		email,
	).Scan(&id, &hash, &department)
	switch {
	case err == nil:
		role = auth.RoleHigher
	case errors.Is(err, pgx.ErrNoRows):
		err = s.db.QueryRow(ctx,
			`SELECT id, password_hash, department FROM authorities WHERE email = $1`,
			email,
		).Scan(&id, &hash, &department)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperr.Auth("Invalid email or password")
		}
		if err != nil {
			return nil, nil, apperr.Dependency("failed to look up authority", err)
		}
		role = auth.RoleAuthority
	default:
		return nil, nil, apperr.Dependency("failed to look up authority", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, nil, apperr.Auth("Invalid email or password")
	}

	principal := auth.Principal{ID: id, Role: role, Email: email, Department: department}
	access, err := s.tokens.MintAccess(principal)
	if err != nil {
		return nil, nil, apperr.Dependency("failed to mint access token", err)
	}
	refresh, err := s.tokens.MintRefresh(principal)
	if err != nil {
		return nil, nil, apperr.Dependency("failed to mint refresh token", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO refresh_tokens (account_kind, account_id, token) VALUES ($1, $2, $3)`,
		string(role), id, refresh,
	)
	if err != nil {
		return nil, nil, apperr.Dependency("failed to record refresh token", fmt.Errorf("insert refresh token: %w", err))
	}

	pair := &models.TokenPair{AccessToken: access, RefreshToken: refresh}
	identity := &models.AuthorityIdentity{ID: id, Email: email, Role: string(role), Department: department}
	return pair, identity, nil
}

// UpdateProfile completes a field authority's account. Only provided fields
// change; the geometry point is rebuilt from the effective (lon, lat) and
// is_initialized flips true.
func (s *AuthorityService) UpdateProfile(ctx context.Context, authorityID uuid.UUID, req *models.UpdateProfileRequest) (*models.Authority, error) {
	var hash *string
	if req.NewPassword != nil {
		h, err := bcrypt.GenerateFromPassword([]byte(*req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, apperr.Dependency("failed to hash password", err)
		}
		hashed := string(h)
		hash = &hashed
	}

	var authority models.Authority
	err := s.db.QueryRow(ctx,
		`UPDATE authorities
		 SET name = COALESCE($1, name),
		     phone = COALESCE($2, phone),
		     department = COALESCE($3, department),
		     latitude = COALESCE($4, latitude),
		     longitude = COALESCE($5, longitude),
		     location = ST_SetSRID(ST_MakePoint(COALESCE($5, longitude), COALESCE($4, latitude)), 4326),
		     password_hash = COALESCE($6, password_hash),
		     is_initialized = true
		 WHERE id = $7
		 RETURNING id, COALESCE(name, ''), email, department, latitude, longitude, is_initialized`,
		req.Name, req.Phone, req.Department, req.Latitude, req.Longitude, hash, authorityID,
	).Scan(&authority.ID, &authority.Name, &authority.Email, &authority.Department,
		&authority.Latitude, &authority.Longitude, &authority.IsInitialized)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Authority not found")
	}
	if err != nil {
		return nil, apperr.Dependency("failed to update profile", err)
	}

	return &authority, nil
}

// generateTempPassword returns an 11-character URL-safe random password.
func generateTempPassword() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
