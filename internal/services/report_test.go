package services

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// recordingStore counts Put calls without talking to any backend.
type recordingStore struct {
	puts int
}

func (s *recordingStore) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	s.puts++
	return "https://cdn.example.com/" + key, nil
}

func TestUploadKeyFormat(t *testing.T) {
	reportID := uuid.MustParse("7b9d3c36-1df5-4a8e-9b1a-0f2c5d4e6a7b")
	at := time.UnixMilli(1700000000000)

	got := UploadKey(reportID, at, "pothole.jpg")
	want := "7b9d3c36-1df5-4a8e-9b1a-0f2c5d4e6a7b/1700000000000-pothole.jpg"
	if got != want {
		t.Errorf("UploadKey = %q, want %q", got, want)
	}
}

// emptyRows is a pgx.Rows over zero rows.
type emptyRows struct{}

func (emptyRows) Close()                                       {}
func (emptyRows) Err() error                                   { return nil }
func (emptyRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (emptyRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (emptyRows) Next() bool                                   { return false }
func (emptyRows) Scan(dest ...any) error                       { return nil }
func (emptyRows) Values() ([]any, error)                       { return nil, nil }
func (emptyRows) RawValues() [][]byte                          { return nil }
func (emptyRows) Conn() *pgx.Conn                              { return nil }

// A citizen with no reports must receive "reports": [], never null.
func TestEmptyReportListSerializesAsArray(t *testing.T) {
	reports, err := scanReportRows(emptyRows{})
	if err != nil {
		t.Fatalf("scanReportRows: %v", err)
	}
	if reports == nil {
		t.Fatal("expected a non-nil slice for an empty result")
	}

	body, err := json.Marshal(map[string]any{"reports": reports})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got := string(body); got != `{"reports":[]}` {
		t.Errorf("body = %s, want {\"reports\":[]}", got)
	}
}

// Submitting more than the file cap must fail validation before any
// object-store write or transaction is attempted.
func TestSubmitRejectsTooManyFiles(t *testing.T) {
	store := &recordingStore{}
	svc := NewReportService(nil, store, zap.NewNop().Sugar())

	files := make([]EvidenceFile, MaxEvidenceFiles+1)
	for i := range files {
		files[i] = EvidenceFile{Name: "f.jpg", ContentType: "image/jpeg", Content: strings.NewReader("x")}
	}

	_, _, err := svc.Submit(context.Background(), uuid.New(), 12.9, 77.6, "pothole", files)
	if err == nil {
		t.Fatal("expected validation error for 6 files")
	}
	if store.puts != 0 {
		t.Errorf("object store touched %d times before validation failure", store.puts)
	}
}
