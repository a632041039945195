package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/civicpulse/issue-server/internal/apperr"
	"github.com/civicpulse/issue-server/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// MaxEvidenceFiles caps the number of files on one report submission.
const MaxEvidenceFiles = 5

// EvidenceFile is one uploaded file, decoupled from multipart plumbing.
type EvidenceFile struct {
	Name        string
	ContentType string
	Content     io.Reader
}

// ReportService handles report intake and the citizen-facing report views.
type ReportService struct {
	db     *pgxpool.Pool
	store  ObjectStore
	logger *zap.SugaredLogger
}

// NewReportService creates a new report service
func NewReportService(db *pgxpool.Pool, store ObjectStore, logger *zap.SugaredLogger) *ReportService {
	return &ReportService{db: db, store: store, logger: logger}
}

// Submit creates a report and its upload rows in one transaction. Every
// object-store write completes before the corresponding relational row is
// inserted and before the transaction commits: a failure at any step rolls
// back the report and all its uploads. Orphaned blobs are accepted; rows
// referencing missing blobs are not.
func (s *ReportService) Submit(ctx context.Context, userID uuid.UUID, lat, lon float64, description string, files []EvidenceFile) (*models.Report, []models.ReportUpload, error) {
	if len(files) > MaxEvidenceFiles {
		return nil, nil, apperr.Validation(fmt.Sprintf("At most %d files per report", MaxEvidenceFiles))
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, nil, apperr.Dependency("failed to open transaction", err)
	}
	defer tx.Rollback(ctx)

	report := models.Report{
		UserID:      userID,
		Latitude:    lat,
		Longitude:   lon,
		Description: description,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO reports (user_id, latitude, longitude, location, description)
		 VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint($3, $2), 4326), $4)
		 RETURNING id, created_at, updated_at`,
		userID, lat, lon, description,
	).Scan(&report.ID, &report.CreatedAt, &report.UpdatedAt)
	if err != nil {
		return nil, nil, apperr.Dependency("failed to create report", err)
	}

	uploads := make([]models.ReportUpload, 0, len(files))
	for _, f := range files {
		key := UploadKey(report.ID, time.Now(), f.Name)
		url, err := s.store.Put(ctx, key, f.ContentType, f.Content)
		if err != nil {
			return nil, nil, apperr.Dependency("failed to store evidence", err)
		}

		upload := models.ReportUpload{ReportID: report.ID, URL: url}
		err = tx.QueryRow(ctx,
			`INSERT INTO report_uploads (report_id, filename) VALUES ($1, $2)
			 RETURNING id, uploaded_at`,
			report.ID, url,
		).Scan(&upload.ID, &upload.UploadedAt)
		if err != nil {
			return nil, nil, apperr.Dependency("failed to record upload", err)
		}
		uploads = append(uploads, upload)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, apperr.Dependency("failed to commit report", err)
	}

	s.logger.Infow("Report submitted",
		"id", report.ID,
		"user_id", userID,
		"uploads", len(uploads),
	)

	return &report, uploads, nil
}

// MyReports returns all of the user's reports, newest first, each with its
// visible uploads and, once classified, a summary of the linked issue. Both
// reads run in one repeatable-read snapshot.
func (s *ReportService) MyReports(ctx context.Context, userID uuid.UUID) ([]models.ReportWithEvidence, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, apperr.Dependency("failed to open transaction", err)
	}
	defer tx.Rollback(ctx)

	reports, err := s.queryReports(ctx, tx,
		`WHERE r.user_id = $1`, userID)
	if err != nil {
		return nil, err
	}

	if err := s.attachUploads(ctx, tx, reports); err != nil {
		return nil, err
	}

	return reports, nil
}

// Get returns one report with the same nesting as MyReports. A report owned
// by someone else is indistinguishable from a missing one (404).
func (s *ReportService) Get(ctx context.Context, userID, reportID uuid.UUID) (*models.ReportWithEvidence, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, apperr.Dependency("failed to open transaction", err)
	}
	defer tx.Rollback(ctx)

	reports, err := s.queryReports(ctx, tx,
		`WHERE r.id = $1 AND r.user_id = $2`, reportID, userID)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, apperr.NotFound("Report not found")
	}

	if err := s.attachUploads(ctx, tx, reports); err != nil {
		return nil, err
	}

	return &reports[0], nil
}

func (s *ReportService) queryReports(ctx context.Context, tx pgx.Tx, where string, args ...interface{}) ([]models.ReportWithEvidence, error) {
	rows, err := tx.Query(ctx,
		`SELECT r.id, r.user_id, r.issue_id, r.latitude, r.longitude,
		        COALESCE(r.description, ''), r.is_classified, r.created_at, r.updated_at,
		        i.id, i.department, i.category, i.status, i.created_at, i.updated_at
		 FROM reports r
		 LEFT JOIN issues i ON r.issue_id = i.id
		 `+where+`
		 ORDER BY r.created_at DESC`,
		args...)
	if err != nil {
		return nil, apperr.Dependency("failed to fetch reports", err)
	}
	defer rows.Close()

	return scanReportRows(rows)
}

// scanReportRows builds the nested report rows. The slice starts non-nil so
// an empty result serializes as [] rather than null.
func scanReportRows(rows pgx.Rows) ([]models.ReportWithEvidence, error) {
	reports := []models.ReportWithEvidence{}
	for rows.Next() {
		var (
			r         models.ReportWithEvidence
			issueID   *uuid.UUID
			issueDept *string
			issueCat  *string
			issueStat *string
			issueAt   *time.Time
			issueUpd  *time.Time
		)
		err := rows.Scan(&r.ID, &r.UserID, &r.IssueID, &r.Latitude, &r.Longitude,
			&r.Description, &r.IsClassified, &r.CreatedAt, &r.UpdatedAt,
			&issueID, &issueDept, &issueCat, &issueStat, &issueAt, &issueUpd)
		if err != nil {
			return nil, apperr.Dependency("failed to scan report", err)
		}

		r.Uploads = []models.ReportUpload{}
		if r.IsClassified && issueID != nil {
			r.Issue = &models.IssueSummary{
				ID:         *issueID,
				Department: deref(issueDept),
				Category:   issueCat,
				Status:     deref(issueStat),
				CreatedAt:  *issueAt,
				UpdatedAt:  *issueUpd,
			}
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Dependency("failed to read reports", err)
	}

	return reports, nil
}

// attachUploads fills in each report's visible uploads. Uploads flagged fake
// or spam stay in the table for audit but never reach a response.
func (s *ReportService) attachUploads(ctx context.Context, tx pgx.Tx, reports []models.ReportWithEvidence) error {
	if len(reports) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(reports))
	index := make(map[uuid.UUID]*models.ReportWithEvidence, len(reports))
	for i := range reports {
		ids[i] = reports[i].ID
		index[reports[i].ID] = &reports[i]
	}

	rows, err := tx.Query(ctx,
		`SELECT id, report_id, filename, is_fake, is_spam, uploaded_at
		 FROM report_uploads
		 WHERE report_id = ANY($1) AND is_fake = false AND is_spam = false
		 ORDER BY uploaded_at ASC`,
		ids)
	if err != nil {
		return apperr.Dependency("failed to fetch uploads", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u models.ReportUpload
		if err := rows.Scan(&u.ID, &u.ReportID, &u.URL, &u.IsFake, &u.IsSpam, &u.UploadedAt); err != nil {
			return apperr.Dependency("failed to scan upload", err)
		}
		if r, ok := index[u.ReportID]; ok {
			r.Uploads = append(r.Uploads, u)
		}
	}
	if err := rows.Err(); err != nil {
		return apperr.Dependency("failed to read uploads", err)
	}

	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
