package handlers

import (
	"net/http"
	"strconv"

	"github.com/civicpulse/issue-server/internal/auth"
	"github.com/civicpulse/issue-server/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxMultipartMemory bounds in-memory multipart buffering; larger files
// spill to disk.
const maxMultipartMemory = 32 << 20

// ReportHandler handles citizen report endpoints
type ReportHandler struct {
	svc    *services.ReportService
	logger *zap.SugaredLogger
}

// NewReportHandler creates a new report handler
func NewReportHandler(svc *services.ReportService, logger *zap.SugaredLogger) *ReportHandler {
	return &ReportHandler{svc: svc, logger: logger}
}

// Submit handles POST /reports/ — multipart form with latitude, longitude,
// description and up to 5 files under the "files" field.
func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization required")
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	lat, err := strconv.ParseFloat(r.FormValue("latitude"), 64)
	if err != nil || lat < -90 || lat > 90 {
		respondError(w, http.StatusBadRequest, "latitude must be a number between -90 and 90")
		return
	}
	lon, err := strconv.ParseFloat(r.FormValue("longitude"), 64)
	if err != nil || lon < -180 || lon > 180 {
		respondError(w, http.StatusBadRequest, "longitude must be a number between -180 and 180")
		return
	}
	description := r.FormValue("description")

	headers := r.MultipartForm.File["files"]
	if len(headers) > services.MaxEvidenceFiles {
		respondError(w, http.StatusBadRequest, "At most 5 files per report")
		return
	}

	files := make([]services.EvidenceFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			respondError(w, http.StatusBadRequest, "Unreadable file in upload")
			return
		}
		defer f.Close()
		files = append(files, services.EvidenceFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Content:     f,
		})
	}

	report, uploads, err := h.svc.Submit(r.Context(), principal.ID, lat, lon, description, files)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"report":  report,
		"uploads": uploads,
	})
}

// MyReports handles GET /reports/my-reports
func (h *ReportHandler) MyReports(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization required")
		return
	}

	reports, err := h.svc.MyReports(r.Context(), principal.ID)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"reports": reports})
}

// Get handles GET /reports/{id} — owner only; someone else's report is a 404.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization required")
		return
	}

	reportID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid report id")
		return
	}

	report, err := h.svc.Get(r.Context(), principal.ID, reportID)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"report": report})
}
