package services

import (
	"context"
	"errors"
	"strings"

	"github.com/civicpulse/issue-server/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Issue categories. The classifier copies one of these onto every issue it
// mints.
const (
	CategoryRoad        = "Road"
	CategoryWater       = "Water"
	CategorySanitation  = "Sanitation"
	CategoryElectricity = "Electricity"
	CategoryOther       = "Other"
)

// categoryDepartments infers the owning department from a category.
var categoryDepartments = map[string]string{
	CategoryRoad:        "Public Works",
	CategoryWater:       "Water Supply",
	CategorySanitation:  "Sanitation",
	CategoryElectricity: "Electricity",
	CategoryOther:       "General Administration",
}

// DepartmentFor returns the department responsible for a category.
func DepartmentFor(category string) string {
	if d, ok := categoryDepartments[category]; ok {
		return d
	}
	return categoryDepartments[CategoryOther]
}

// Labeler assigns a category to a report. The production model runs outside
// this process; any implementation of this interface can stand in for it.
type Labeler interface {
	Label(description string, uploads []models.ReportUpload) string
}

// KeywordLabeler is the default Labeler: a keyword heuristic over the
// report description.
type KeywordLabeler struct{}

var categoryKeywords = []struct {
	category string
	words    []string
}{
	{CategoryRoad, []string{"pothole", "road", "footpath", "pavement", "speed breaker"}},
	{CategoryWater, []string{"water", "leak", "pipeline", "drainage", "sewer"}},
	{CategorySanitation, []string{"garbage", "trash", "waste", "dump", "litter"}},
	{CategoryElectricity, []string{"streetlight", "street light", "power", "electric", "wire", "transformer"}},
}

// Label picks the first category whose keywords match the description.
func (KeywordLabeler) Label(description string, _ []models.ReportUpload) string {
	text := strings.ToLower(description)
	for _, ck := range categoryKeywords {
		for _, w := range ck.words {
			if strings.Contains(text, w) {
				return ck.category
			}
		}
	}
	return CategoryOther
}

// allUntrusted reports whether every upload carries a fake or spam flag.
// A report with no uploads at all is still trusted.
func allUntrusted(uploads []models.ReportUpload) bool {
	if len(uploads) == 0 {
		return false
	}
	for _, u := range uploads {
		if !u.IsFake && !u.IsSpam {
			return false
		}
	}
	return true
}

// Classifier links unclassified reports to existing issues or mints new
// ones. This is the only component that creates issues.
type Classifier struct {
	db          *pgxpool.Pool
	labeler     Labeler
	logger      *zap.SugaredLogger
	batchSize   int
	mergeRadius float64 // meters
}

// NewClassifier creates a classifier with the given batch size and merge
// radius in meters.
func NewClassifier(db *pgxpool.Pool, labeler Labeler, batchSize int, mergeRadius float64, logger *zap.SugaredLogger) *Classifier {
	return &Classifier{
		db:          db,
		labeler:     labeler,
		logger:      logger,
		batchSize:   batchSize,
		mergeRadius: mergeRadius,
	}
}

type candidateReport struct {
	id          uuid.UUID
	latitude    float64
	longitude   float64
	description string
}

// unclassifiedBatchQuery selects the oldest unclassified reports. Reports
// whose every upload is flagged fake or spam never classify, so they are
// excluded here; otherwise they would fill the oldest-first window on every
// run and starve younger reports. Reports with no uploads stay eligible.
const unclassifiedBatchQuery = `
	SELECT r.id, r.latitude, r.longitude, COALESCE(r.description, '')
	FROM reports r
	WHERE r.is_classified = false
	  AND (NOT EXISTS (SELECT 1 FROM report_uploads u WHERE u.report_id = r.id)
	       OR EXISTS (SELECT 1 FROM report_uploads u
	                  WHERE u.report_id = r.id AND u.is_fake = false AND u.is_spam = false))
	ORDER BY r.created_at ASC
	LIMIT $1`

// nearestIssueQuery finds the closest open issue within the merge radius.
// Ordering compares geography on both sides; the bare geometry <-> operator
// ranks by planar degrees, which east-west shrink away from the equator.
const nearestIssueQuery = `
	SELECT id
	FROM issues
	WHERE department = $1 AND category = $2
	  AND ST_DWithin(location::geography, ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography, $5)
	ORDER BY location::geography <-> ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography
	LIMIT 1`

// Run processes one batch of unclassified reports, oldest first, and returns
// how many were linked. Each report commits independently so one bad row
// cannot poison the batch. Re-running over already-classified reports is a
// no-op: the batch predicate excludes them and the linking update re-checks
// is_classified.
func (c *Classifier) Run(ctx context.Context) (int, error) {
	candidates, err := c.fetchUnclassified(ctx)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	uploadsByReport, err := c.fetchUploads(ctx, candidates)
	if err != nil {
		return 0, err
	}

	classified := 0
	for _, report := range candidates {
		// The batch query already excludes fully flagged reports; re-check
		// here since flags may flip between the two reads.
		uploads := uploadsByReport[report.id]
		if allUntrusted(uploads) {
			c.logger.Debugw("Skipping fully flagged report", "report_id", report.id)
			continue
		}

		category := c.labeler.Label(report.description, uploads)
		department := DepartmentFor(category)

		if err := c.classifyOne(ctx, report, category, department); err != nil {
			c.logger.Errorw("Failed to classify report",
				"report_id", report.id,
				"error", err,
			)
			continue
		}
		classified++
	}

	c.logger.Infow("Classification batch finished",
		"candidates", len(candidates),
		"classified", classified,
	)
	return classified, nil
}

// classifyOne links one report inside its own transaction. An advisory
// transaction lock on (department, category) serializes concurrent merge
// decisions so two proximate reports cannot mint duplicate issues.
func (c *Classifier) classifyOne(ctx context.Context, report candidateReport, category, department string) error {
	tx, err := c.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1)::bigint)`,
		department+"/"+category,
	); err != nil {
		return err
	}

	var issueID uuid.UUID
	err = tx.QueryRow(ctx, nearestIssueQuery,
		department, category, report.longitude, report.latitude, c.mergeRadius,
	).Scan(&issueID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// No proximate issue: mint one with the report's geometry.
		err = tx.QueryRow(ctx,
			`INSERT INTO issues (latitude, longitude, location, category, department, status)
			 VALUES ($1, $2, ST_SetSRID(ST_MakePoint($2, $1), 4326), $3, $4, $5)
			 RETURNING id`,
			report.latitude, report.longitude, category, department, models.StatusSubmitted,
		).Scan(&issueID)
		if err != nil {
			return err
		}
		c.logger.Infow("Issue created",
			"issue_id", issueID,
			"category", category,
			"department", department,
		)
	case err != nil:
		return err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE reports
		 SET issue_id = $1, is_classified = true, updated_at = now()
		 WHERE id = $2 AND is_classified = false`,
		issueID, report.id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Raced with another run; nothing to commit.
		return nil
	}

	return tx.Commit(ctx)
}

func (c *Classifier) fetchUnclassified(ctx context.Context) ([]candidateReport, error) {
	rows, err := c.db.Query(ctx, unclassifiedBatchQuery, c.batchSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []candidateReport
	for rows.Next() {
		var r candidateReport
		if err := rows.Scan(&r.id, &r.latitude, &r.longitude, &r.description); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (c *Classifier) fetchUploads(ctx context.Context, reports []candidateReport) (map[uuid.UUID][]models.ReportUpload, error) {
	ids := make([]uuid.UUID, len(reports))
	for i, r := range reports {
		ids[i] = r.id
	}

	rows, err := c.db.Query(ctx,
		`SELECT id, report_id, filename, embedding, is_fake, is_spam, uploaded_at
		 FROM report_uploads
		 WHERE report_id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byReport := map[uuid.UUID][]models.ReportUpload{}
	for rows.Next() {
		var u models.ReportUpload
		if err := rows.Scan(&u.ID, &u.ReportID, &u.URL, &u.Embedding, &u.IsFake, &u.IsSpam, &u.UploadedAt); err != nil {
			return nil, err
		}
		byReport[u.ReportID] = append(byReport[u.ReportID], u)
	}
	return byReport, rows.Err()
}
