package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/civicpulse/issue-server/internal/auth"
	"github.com/civicpulse/issue-server/internal/models"
	"github.com/civicpulse/issue-server/internal/services"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IssueHandler handles authority-facing issue endpoints
type IssueHandler struct {
	svc             *services.IssueService
	logger          *zap.SugaredLogger
	defaultRadiusKm float64
	defaultPageSize int
}

// NewIssueHandler creates a new issue handler
func NewIssueHandler(svc *services.IssueService, defaultRadiusKm float64, defaultPageSize int, logger *zap.SugaredLogger) *IssueHandler {
	return &IssueHandler{
		svc:             svc,
		logger:          logger,
		defaultRadiusKm: defaultRadiusKm,
		defaultPageSize: defaultPageSize,
	}
}

// Nearby handles GET /issues/nearby?radius&limit&offset (role=authority)
func (h *IssueHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization required")
		return
	}

	radiusKm := h.defaultRadiusKm
	if v := r.URL.Query().Get("radius"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			respondError(w, http.StatusBadRequest, "radius must be a positive number of kilometers")
			return
		}
		radiusKm = f
	}

	limit := h.defaultPageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > 200 {
		limit = 200
	}

	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		offset = n
	}

	page, err := h.svc.Nearby(r.Context(), principal.ID, radiusKm, limit, offset)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, page)
}

// Department handles GET /issues/department (role=higher)
func (h *IssueHandler) Department(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization required")
		return
	}

	issues, err := h.svc.DepartmentIssues(r.Context(), principal.ID)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"issues": issues})
}

// SetStatus handles PUT /issues/status (role=higher|authority)
func (h *IssueHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IssueID string `json:"issueId"`
		Status  string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.IssueID == "" || req.Status == "" {
		respondError(w, http.StatusBadRequest, "issueId and status are required")
		return
	}
	if !models.ValidStatus(req.Status) {
		respondError(w, http.StatusBadRequest, "Status must be one of: submitted, ongoing, resolved, rejected")
		return
	}

	issueID, err := uuid.Parse(req.IssueID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid issue id")
		return
	}

	issue, err := h.svc.SetStatus(r.Context(), issueID, req.Status)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Issue status updated successfully",
		"issue":   issue,
	})
}
