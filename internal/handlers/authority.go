package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/civicpulse/issue-server/internal/auth"
	"github.com/civicpulse/issue-server/internal/models"
	"github.com/civicpulse/issue-server/internal/services"
	"go.uber.org/zap"
)

// AuthorityHandler handles authority provisioning, login and profile
// endpoints.
type AuthorityHandler struct {
	svc    *services.AuthorityService
	logger *zap.SugaredLogger
}

// NewAuthorityHandler creates a new authority handler
func NewAuthorityHandler(svc *services.AuthorityService, logger *zap.SugaredLogger) *AuthorityHandler {
	return &AuthorityHandler{svc: svc, logger: logger}
}

// RegisterLower handles POST /authority/register-lower (role=higher).
// The new field authority joins the caller's department.
func (h *AuthorityHandler) RegisterLower(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization required")
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		respondError(w, http.StatusBadRequest, "Email is required")
		return
	}
	if principal.Department == "" {
		respondError(w, http.StatusBadRequest, "Department missing from token")
		return
	}

	authority, tempPassword, err := h.svc.RegisterLower(r.Context(), principal.Department, req.Email)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":      "Lower authority registered successfully",
		"authority":    authority,
		"tempPassword": tempPassword,
	})
}

// Login handles POST /authority/login for both tiers.
func (h *AuthorityHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	pair, identity, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Login successful",
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"user":         identity,
	})
}

// UpdateProfile handles PUT /authority/update-profile (role=authority).
func (h *AuthorityHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authorization required")
		return
	}

	var req models.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Latitude != nil && (*req.Latitude < -90 || *req.Latitude > 90) {
		respondError(w, http.StatusBadRequest, "latitude must be between -90 and 90")
		return
	}
	if req.Longitude != nil && (*req.Longitude < -180 || *req.Longitude > 180) {
		respondError(w, http.StatusBadRequest, "longitude must be between -180 and 180")
		return
	}

	authority, err := h.svc.UpdateProfile(r.Context(), principal.ID, &req)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Profile updated successfully",
		"authority": authority,
	})
}
