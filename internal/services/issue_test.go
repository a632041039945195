package services

import (
	"strings"
	"testing"

	"github.com/civicpulse/issue-server/internal/models"
)

// Nearest-first ordering must compare geography on both operands. At
// latitude 50 an issue 5 km east is 0.070 degrees away while one 6 km north
// is 0.054 degrees away; a planar geometry KNN would rank the farther issue
// first and contradict the reported distance_meters.
func TestProximityOrderingComparesGeography(t *testing.T) {
	queries := map[string]string{
		"nearby page":     nearbyIssuesQuery,
		"merge candidate": nearestIssueQuery,
	}
	for name, q := range queries {
		if strings.Contains(q, "ORDER BY location <->") {
			t.Errorf("%s query orders by planar geometry", name)
		}
		if !strings.Contains(q, "ORDER BY location::geography <->") {
			t.Errorf("%s query does not order by geography distance", name)
		}
	}
}

// hasMore must equal (offset + returned) < total for every page shape.
func TestHasMore(t *testing.T) {
	cases := []struct {
		name     string
		offset   int
		returned int
		total    int
		want     bool
	}{
		{"empty result set", 0, 0, 0, false},
		{"first page of many", 0, 50, 120, true},
		{"middle page", 50, 50, 120, true},
		{"exact last page", 100, 20, 120, false},
		{"short last page", 100, 5, 105, false},
		{"offset past end", 200, 0, 120, false},
		{"single page fits", 0, 7, 7, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := hasMore(tc.offset, tc.returned, tc.total); got != tc.want {
				t.Errorf("hasMore(%d, %d, %d) = %v, want %v", tc.offset, tc.returned, tc.total, got, tc.want)
			}
		})
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{
		models.StatusSubmitted, models.StatusOngoing, models.StatusResolved, models.StatusRejected,
	} {
		if !models.ValidStatus(s) {
			t.Errorf("ValidStatus(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"done", "Resolved", "", "closed"} {
		if models.ValidStatus(s) {
			t.Errorf("ValidStatus(%q) = true, want false", s)
		}
	}
}
