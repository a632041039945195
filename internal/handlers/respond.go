// Package handlers contains HTTP request handlers for the issue-reporting
// API. Handlers parse requests, call services, and return JSON responses.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/civicpulse/issue-server/internal/apperr"
	"go.uber.org/zap"
)

// Helper: respond with JSON
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Helper: respond with error
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondAppError maps a service error onto the wire. Dependency failures
// are logged with their cause; the client only ever sees the safe message.
func respondAppError(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		logger.Errorw("Request failed", "error", err)
	}
	respondError(w, status, apperr.ClientMessage(err))
}
