package services

import (
	"strings"
	"testing"

	"github.com/civicpulse/issue-server/internal/models"
)

// The oldest-first batch must not admit reports that can never classify:
// a backlog of fully flagged reports would otherwise occupy the whole
// window on every run and starve everything younger. Reports with no
// uploads remain eligible.
func TestBatchWindowExcludesFullyFlaggedReports(t *testing.T) {
	q := unclassifiedBatchQuery
	if !strings.Contains(q, "NOT EXISTS (SELECT 1 FROM report_uploads u WHERE u.report_id = r.id)") {
		t.Error("batch query drops upload-free reports from the window")
	}
	if !strings.Contains(q, "u.is_fake = false AND u.is_spam = false") {
		t.Error("batch query does not require a clean upload when uploads exist")
	}
	if !strings.Contains(q, "ORDER BY r.created_at ASC") {
		t.Error("batch query lost oldest-first ordering")
	}
}

func TestKeywordLabeler(t *testing.T) {
	cases := []struct {
		description string
		want        string
	}{
		{"Huge pothole near the market", CategoryRoad},
		{"Water pipeline leaking for two days", CategoryWater},
		{"garbage piling up on the corner", CategorySanitation},
		{"Streetlight flickering all night", CategoryElectricity},
		{"STREET LIGHT broken", CategoryElectricity},
		{"loud construction noise", CategoryOther},
		{"", CategoryOther},
	}

	var labeler KeywordLabeler
	for _, tc := range cases {
		if got := labeler.Label(tc.description, nil); got != tc.want {
			t.Errorf("Label(%q) = %q, want %q", tc.description, got, tc.want)
		}
	}
}

func TestDepartmentFor(t *testing.T) {
	cases := []struct {
		category string
		want     string
	}{
		{CategoryRoad, "Public Works"},
		{CategoryWater, "Water Supply"},
		{CategorySanitation, "Sanitation"},
		{CategoryElectricity, "Electricity"},
		{CategoryOther, "General Administration"},
		{"SomethingUnknown", "General Administration"},
	}

	for _, tc := range cases {
		if got := DepartmentFor(tc.category); got != tc.want {
			t.Errorf("DepartmentFor(%q) = %q, want %q", tc.category, got, tc.want)
		}
	}
}

func TestAllUntrusted(t *testing.T) {
	fake := models.ReportUpload{IsFake: true}
	spam := models.ReportUpload{IsSpam: true}
	clean := models.ReportUpload{}

	cases := []struct {
		name    string
		uploads []models.ReportUpload
		want    bool
	}{
		{"no uploads", nil, false},
		{"all clean", []models.ReportUpload{clean, clean}, false},
		{"one clean among flagged", []models.ReportUpload{fake, clean, spam}, false},
		{"all fake", []models.ReportUpload{fake, fake}, true},
		{"all spam", []models.ReportUpload{spam}, true},
		{"mixed flags only", []models.ReportUpload{fake, spam}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := allUntrusted(tc.uploads); got != tc.want {
				t.Errorf("allUntrusted = %v, want %v", got, tc.want)
			}
		})
	}
}
