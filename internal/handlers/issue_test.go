package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// Status updates that fail validation must be rejected before any service
// or database call; a nil service proves the handler never got that far.
func TestSetStatusValidation(t *testing.T) {
	h := NewIssueHandler(nil, 10, 50, zap.NewNop().Sugar())

	cases := []struct {
		name string
		body string
	}{
		{"invalid status value", `{"issueId":"7b9d3c36-1df5-4a8e-9b1a-0f2c5d4e6a7b","status":"done"}`},
		{"missing status", `{"issueId":"7b9d3c36-1df5-4a8e-9b1a-0f2c5d4e6a7b"}`},
		{"missing issueId", `{"status":"resolved"}`},
		{"malformed issueId", `{"issueId":"not-a-uuid","status":"resolved"}`},
		{"malformed body", `{`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/issues/status", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			h.SetStatus(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestNearbyRequiresPrincipal(t *testing.T) {
	h := NewIssueHandler(nil, 10, 50, zap.NewNop().Sugar())

	req := httptest.NewRequest(http.MethodGet, "/issues/nearby", nil)
	rec := httptest.NewRecorder()
	h.Nearby(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without principal, got %d", rec.Code)
	}
}

func TestNearbyQueryValidation(t *testing.T) {
	h := NewIssueHandler(nil, 10, 50, zap.NewNop().Sugar())

	cases := []struct {
		name  string
		query string
	}{
		{"negative radius", "?radius=-3"},
		{"non-numeric radius", "?radius=far"},
		{"zero limit", "?limit=0"},
		{"negative offset", "?offset=-1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := withTestPrincipal(httptest.NewRequest(http.MethodGet, "/issues/nearby"+tc.query, nil))
			rec := httptest.NewRecorder()
			h.Nearby(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}
