// Package models defines the data structures used across the application.
// These map to the PostgreSQL schema (PostGIS geometry points, pgvector
// embeddings).
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Issue status values. Any of the four may be set at any time; the lifecycle
// is deliberately permissive beyond enum membership.
const (
	StatusSubmitted = "submitted"
	StatusOngoing   = "ongoing"
	StatusResolved  = "resolved"
	StatusRejected  = "rejected"
)

// ValidStatus reports whether s is one of the four issue statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusSubmitted, StatusOngoing, StatusResolved, StatusRejected:
		return true
	}
	return false
}

// User is a citizen account.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	Phone        string    `json:"phone,omitempty" db:"phone"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Authority is field-level department staff, scoped to one department and a
// fixed home location.
type Authority struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Name          string    `json:"name,omitempty" db:"name"`
	Email         string    `json:"email" db:"email"`
	Phone         string    `json:"phone,omitempty" db:"phone"`
	PasswordHash  string    `json:"-" db:"password_hash"`
	Latitude      float64   `json:"latitude" db:"latitude"`
	Longitude     float64   `json:"longitude" db:"longitude"`
	Department    string    `json:"department" db:"department"`
	IsInitialized bool      `json:"is_initialized" db:"is_initialized"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// HigherAuthority is a department head: department-wide scope, no home point.
type HigherAuthority struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	Phone        string    `json:"phone,omitempty" db:"phone"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Department   string    `json:"department" db:"department"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Report is a raw citizen submission. Immutable citizen input except for the
// classification linkage and updated_at.
type Report struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	UserID       uuid.UUID  `json:"user_id" db:"user_id"`
	IssueID      *uuid.UUID `json:"issue_id,omitempty" db:"issue_id"`
	Latitude     float64    `json:"latitude" db:"latitude"`
	Longitude    float64    `json:"longitude" db:"longitude"`
	Description  string     `json:"description" db:"description"`
	IsClassified bool       `json:"is_classified" db:"is_classified"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// ReportUpload is one piece of evidence. Write-once except the trust flags,
// which the external classification model sets.
type ReportUpload struct {
	ID         uuid.UUID        `json:"id" db:"id"`
	ReportID   uuid.UUID        `json:"report_id" db:"report_id"`
	URL        string           `json:"url" db:"filename"`
	Embedding  *pgvector.Vector `json:"-" db:"embedding"`
	IsFake     bool             `json:"is_fake" db:"is_fake"`
	IsSpam     bool             `json:"is_spam" db:"is_spam"`
	UploadedAt time.Time        `json:"uploaded_at" db:"uploaded_at"`
}

// Issue is the canonical, deduplicated problem record surfaced to
// authorities. Aggregates one or more reports describing the same problem.
type Issue struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Latitude   float64   `json:"latitude" db:"latitude"`
	Longitude  float64   `json:"longitude" db:"longitude"`
	Category   *string   `json:"category" db:"category"`
	Department string    `json:"department" db:"department"`
	Status     string    `json:"status" db:"status"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// NearbyIssue is an issue annotated with its distance from the querying
// authority's home point.
type NearbyIssue struct {
	Issue
	DistanceMeters float64 `json:"distance_meters"`
	DistanceKm     float64 `json:"distance_km"`
}

// NearbyIssuesPage is a paginated nearest-first slice of a department's
// issues around an authority.
type NearbyIssuesPage struct {
	Issues  []NearbyIssue `json:"issues"`
	Total   int           `json:"total"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
	HasMore bool          `json:"hasMore"`
}

// IssueSummary is the slim issue view nested under a classified report.
type IssueSummary struct {
	ID         uuid.UUID `json:"id"`
	Department string    `json:"department"`
	Category   *string   `json:"category"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ReportWithEvidence is a report with its visible (non-fake, non-spam)
// uploads and, once classified, a summary of its linked issue.
type ReportWithEvidence struct {
	Report
	Uploads []ReportUpload `json:"uploads"`
	Issue   *IssueSummary  `json:"issue,omitempty"`
}

// DepartmentReport is a classified report nested under a department issue.
type DepartmentReport struct {
	ReportID    uuid.UUID      `json:"report_id"`
	Description string         `json:"description"`
	Uploads     []ReportUpload `json:"uploads"`
}

// DepartmentIssue is an issue with the full report/upload fan-out served to
// department heads.
type DepartmentIssue struct {
	Issue
	Reports []DepartmentReport `json:"reports"`
}

// RefreshToken is one row of the refresh-token audit ledger. AccountKind
// tags which table AccountID refers to.
type RefreshToken struct {
	ID          uuid.UUID `json:"id" db:"id"`
	AccountKind string    `json:"account_kind" db:"account_kind"`
	AccountID   uuid.UUID `json:"account_id" db:"account_id"`
	Token       string    `json:"-" db:"token"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// HealthStatus represents the server health check response
type HealthStatus struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime,omitempty"`
	Database string `json:"database,omitempty"`
}

// AuthorityIdentity is the identity block returned on authority login.
type AuthorityIdentity struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Department string    `json:"department"`
}

// RegisterRequest is the citizen signup payload.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// LoginRequest is shared by citizen and authority logins.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenPair is returned on successful login.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// UpdateProfileRequest completes a field authority's account. Nil fields are
// left unchanged.
type UpdateProfileRequest struct {
	Name        *string  `json:"name"`
	Phone       *string  `json:"phone"`
	Department  *string  `json:"department"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	NewPassword *string  `json:"newPassword"`
}
