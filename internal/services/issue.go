package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/civicpulse/issue-server/internal/apperr"
	"github.com/civicpulse/issue-server/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// IssueService serves the authority-facing issue views and the status
// lifecycle. All distance predicates run on ::geography so radii are
// ellipsoidal meters, and every point is built (longitude, latitude).
type IssueService struct {
	db     *pgxpool.Pool
	logger *zap.SugaredLogger
}

// NewIssueService creates a new issue service
func NewIssueService(db *pgxpool.Pool, logger *zap.SugaredLogger) *IssueService {
	return &IssueService{db: db, logger: logger}
}

// nearbyIssuesQuery pages a department's issues nearest first. The KNN
// operator must compare geography, not bare geometry: planar degrees shrink
// east-west away from the equator and would misorder rows against the
// geography-computed distance_meters column.
const nearbyIssuesQuery = `
	SELECT id, latitude, longitude, category, COALESCE(department, ''), status, created_at, updated_at,
	       ST_Distance(location::geography, ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography) AS distance_meters
	FROM issues
	WHERE department = $1
	  AND ST_DWithin(location::geography, ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography, $4)
	ORDER BY location::geography <-> ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography
	LIMIT $5 OFFSET $6`

// Nearby returns the caller's department issues within radiusKm of the
// caller's home point, nearest first, paginated.
func (s *IssueService) Nearby(ctx context.Context, authorityID uuid.UUID, radiusKm float64, limit, offset int) (*models.NearbyIssuesPage, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, apperr.Dependency("failed to open transaction", err)
	}
	defer tx.Rollback(ctx)

	var (
		lon, lat   float64
		department string
	)
	err = tx.QueryRow(ctx,
		`SELECT longitude, latitude, department FROM authorities WHERE id = $1`,
		authorityID,
	).Scan(&lon, &lat, &department)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Authority not found")
	}
	if err != nil {
		return nil, apperr.Dependency("failed to resolve authority", err)
	}

	radiusMeters := radiusKm * 1000

	var total int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM issues
		 WHERE department = $1
		   AND ST_DWithin(location::geography, ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography, $4)`,
		department, lon, lat, radiusMeters,
	).Scan(&total)
	if err != nil {
		return nil, apperr.Dependency("failed to count issues", err)
	}

	rows, err := tx.Query(ctx, nearbyIssuesQuery,
		department, lon, lat, radiusMeters, limit, offset,
	)
	if err != nil {
		return nil, apperr.Dependency("failed to fetch nearby issues", err)
	}
	defer rows.Close()

	issues := []models.NearbyIssue{}
	for rows.Next() {
		var n models.NearbyIssue
		err := rows.Scan(&n.ID, &n.Latitude, &n.Longitude, &n.Category, &n.Department,
			&n.Status, &n.CreatedAt, &n.UpdatedAt, &n.DistanceMeters)
		if err != nil {
			return nil, apperr.Dependency("failed to scan issue", err)
		}
		n.DistanceKm = math.Round(n.DistanceMeters/10) / 100
		issues = append(issues, n)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Dependency("failed to read issues", err)
	}

	return &models.NearbyIssuesPage{
		Issues:  issues,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: hasMore(offset, len(issues), total),
	}, nil
}

// DepartmentIssues returns every issue in the caller's department, newest
// first, with nested classified reports and their visible uploads. The whole
// fan-out reads from one repeatable-read snapshot.
func (s *IssueService) DepartmentIssues(ctx context.Context, higherID uuid.UUID) ([]models.DepartmentIssue, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, apperr.Dependency("failed to open transaction", err)
	}
	defer tx.Rollback(ctx)

	var department string
	err = tx.QueryRow(ctx,
		`SELECT department FROM higherauthorities WHERE id = $1`,
		higherID,
	).Scan(&department)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Higher authority not found")
	}
	if err != nil {
		return nil, apperr.Dependency("failed to resolve higher authority", err)
	}

	rows, err := tx.Query(ctx,
		`SELECT id, latitude, longitude, category, COALESCE(department, ''), status, created_at, updated_at
		 FROM issues
		 WHERE department = $1
		 ORDER BY created_at DESC`,
		department,
	)
	if err != nil {
		return nil, apperr.Dependency("failed to fetch issues", err)
	}

	issues := []models.DepartmentIssue{}
	issueIndex := map[uuid.UUID]*models.DepartmentIssue{}
	for rows.Next() {
		var d models.DepartmentIssue
		err := rows.Scan(&d.ID, &d.Latitude, &d.Longitude, &d.Category, &d.Department,
			&d.Status, &d.CreatedAt, &d.UpdatedAt)
		if err != nil {
			rows.Close()
			return nil, apperr.Dependency("failed to scan issue", err)
		}
		d.Reports = []models.DepartmentReport{}
		issues = append(issues, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperr.Dependency("failed to read issues", err)
	}
	if len(issues) == 0 {
		return issues, nil
	}

	issueIDs := make([]uuid.UUID, len(issues))
	for i := range issues {
		issueIDs[i] = issues[i].ID
		issueIndex[issues[i].ID] = &issues[i]
	}

	reportRows, err := tx.Query(ctx,
		`SELECT id, issue_id, COALESCE(description, '')
		 FROM reports
		 WHERE issue_id = ANY($1) AND is_classified = true
		 ORDER BY created_at DESC`,
		issueIDs,
	)
	if err != nil {
		return nil, apperr.Dependency("failed to fetch reports", err)
	}

	type flatReport struct {
		issueID uuid.UUID
		report  models.DepartmentReport
	}
	var (
		flat      []flatReport
		reportIDs []uuid.UUID
	)
	for reportRows.Next() {
		var fr flatReport
		if err := reportRows.Scan(&fr.report.ReportID, &fr.issueID, &fr.report.Description); err != nil {
			reportRows.Close()
			return nil, apperr.Dependency("failed to scan report", err)
		}
		fr.report.Uploads = []models.ReportUpload{}
		flat = append(flat, fr)
		reportIDs = append(reportIDs, fr.report.ReportID)
	}
	reportRows.Close()
	if err := reportRows.Err(); err != nil {
		return nil, apperr.Dependency("failed to read reports", err)
	}
	if len(reportIDs) == 0 {
		return issues, nil
	}

	uploadRows, err := tx.Query(ctx,
		`SELECT id, report_id, filename, is_fake, is_spam, uploaded_at
		 FROM report_uploads
		 WHERE report_id = ANY($1) AND is_fake = false AND is_spam = false
		 ORDER BY uploaded_at ASC`,
		reportIDs,
	)
	if err != nil {
		return nil, apperr.Dependency("failed to fetch uploads", err)
	}
	defer uploadRows.Close()

	uploadsByReport := map[uuid.UUID][]models.ReportUpload{}
	for uploadRows.Next() {
		var u models.ReportUpload
		if err := uploadRows.Scan(&u.ID, &u.ReportID, &u.URL, &u.IsFake, &u.IsSpam, &u.UploadedAt); err != nil {
			return nil, apperr.Dependency("failed to scan upload", err)
		}
		uploadsByReport[u.ReportID] = append(uploadsByReport[u.ReportID], u)
	}
	if err := uploadRows.Err(); err != nil {
		return nil, apperr.Dependency("failed to read uploads", err)
	}

	for _, fr := range flat {
		if ups, ok := uploadsByReport[fr.report.ReportID]; ok {
			fr.report.Uploads = ups
		}
		if issue, ok := issueIndex[fr.issueID]; ok {
			issue.Reports = append(issue.Reports, fr.report)
		}
	}

	return issues, nil
}

// SetStatus overwrites an issue's status after enum validation and bumps
// updated_at. Any of the four statuses may follow any other.
func (s *IssueService) SetStatus(ctx context.Context, issueID uuid.UUID, status string) (*models.Issue, error) {
	if !models.ValidStatus(status) {
		return nil, apperr.Validation(fmt.Sprintf("Status must be one of: %s, %s, %s, %s",
			models.StatusSubmitted, models.StatusOngoing, models.StatusResolved, models.StatusRejected))
	}

	var issue models.Issue
	err := s.db.QueryRow(ctx,
		`UPDATE issues
		 SET status = $1, updated_at = now()
		 WHERE id = $2
		 RETURNING id, latitude, longitude, category, COALESCE(department, ''), status, created_at, updated_at`,
		status, issueID,
	).Scan(&issue.ID, &issue.Latitude, &issue.Longitude, &issue.Category, &issue.Department,
		&issue.Status, &issue.CreatedAt, &issue.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Issue not found")
	}
	if err != nil {
		return nil, apperr.Dependency("failed to update issue status", err)
	}

	s.logger.Infow("Issue status updated", "id", issue.ID, "status", status)

	return &issue, nil
}

// hasMore reports whether another page exists past offset+returned.
func hasMore(offset, returned, total int) bool {
	return offset+returned < total
}
