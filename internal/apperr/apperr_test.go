package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("bad field"), http.StatusBadRequest},
		{Auth("no token"), http.StatusUnauthorized},
		{Forbidden("wrong role"), http.StatusForbidden},
		{NotFound("gone"), http.StatusNotFound},
		{Conflict("duplicate"), http.StatusConflict},
		{Dependency("db down", errors.New("conn refused")), http.StatusInternalServerError},
		{errors.New("plain error"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := Status(tc.err); got != tc.want {
			t.Errorf("Status(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestWrappedErrorsKeepTheirKind(t *testing.T) {
	inner := NotFound("Report not found")
	wrapped := fmt.Errorf("fetching report: %w", inner)

	if got := Status(wrapped); got != http.StatusNotFound {
		t.Errorf("Status(wrapped) = %d, want 404", got)
	}
	if got := ClientMessage(wrapped); got != "Report not found" {
		t.Errorf("ClientMessage(wrapped) = %q", got)
	}
}

func TestDependencyHidesNothingFromLogsButKeepsMessageSafe(t *testing.T) {
	cause := errors.New("pq: connection reset")
	err := Dependency("Failed to create report", cause)

	if !errors.Is(err, cause) {
		t.Error("cause not reachable via errors.Is")
	}
	if ClientMessage(err) != "Failed to create report" {
		t.Errorf("ClientMessage = %q", ClientMessage(err))
	}
}

func TestPlainErrorGetsGenericMessage(t *testing.T) {
	if got := ClientMessage(errors.New("secret detail")); got != "Internal server error" {
		t.Errorf("ClientMessage = %q, want generic", got)
	}
}
