package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/civicpulse/issue-server/internal/auth"
	"github.com/civicpulse/issue-server/internal/middleware"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// callWithAuth wraps an inner handler that records the principal it sees in
// the provided middleware chain, optionally setting an Authorization header,
// and returns the recorded response plus the principal the handler observed.
func callWithAuth(t *testing.T, mw func(http.Handler) http.Handler, header string) (*httptest.ResponseRecorder, *auth.Principal) {
	t.Helper()

	var seen *auth.Principal
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := auth.PrincipalFrom(r.Context()); ok {
			seen = &p
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	mw(inner).ServeHTTP(rec, req)
	return rec, seen
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	tokens := auth.NewTokenService("a-secret", "r-secret")
	rec, _ := callWithAuth(t, middleware.RequireAuth(tokens), "")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAuth_MalformedHeader(t *testing.T) {
	tokens := auth.NewTokenService("a-secret", "r-secret")
	rec, _ := callWithAuth(t, middleware.RequireAuth(tokens), "Token abc123")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	tokens := auth.NewTokenService("a-secret", "r-secret")
	rec, _ := callWithAuth(t, middleware.RequireAuth(tokens), "Bearer not-a-jwt")

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestRequireAuth_RefreshTokenRejected(t *testing.T) {
	tokens := auth.NewTokenService("a-secret", "r-secret")
	refresh, err := tokens.MintRefresh(auth.Principal{ID: uuid.New(), Role: auth.RoleCitizen})
	if err != nil {
		t.Fatalf("MintRefresh: %v", err)
	}

	rec, _ := callWithAuth(t, middleware.RequireAuth(tokens), "Bearer "+refresh)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for refresh token on access route, got %d", rec.Code)
	}
}

func TestRequireAuth_ValidToken(t *testing.T) {
	tokens := auth.NewTokenService("a-secret", "r-secret")
	want := auth.Principal{ID: uuid.New(), Role: auth.RoleHigher, Email: "head@city.gov", Department: "Sanitation"}
	access, err := tokens.MintAccess(want)
	if err != nil {
		t.Fatalf("MintAccess: %v", err)
	}

	rec, seen := callWithAuth(t, middleware.RequireAuth(tokens), "Bearer "+access)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen == nil {
		t.Fatal("handler saw no principal")
	}
	if *seen != want {
		t.Errorf("principal mismatch: got %+v, want %+v", *seen, want)
	}
}

func TestRequireRole(t *testing.T) {
	tokens := auth.NewTokenService("a-secret", "r-secret")

	cases := []struct {
		name    string
		role    auth.Role
		allowed []auth.Role
		want    int
	}{
		{"exact match", auth.RoleAuthority, []auth.Role{auth.RoleAuthority}, http.StatusOK},
		{"one of several", auth.RoleHigher, []auth.Role{auth.RoleHigher, auth.RoleAuthority}, http.StatusOK},
		{"wrong role", auth.RoleCitizen, []auth.Role{auth.RoleHigher}, http.StatusForbidden},
		{"citizen on authority route", auth.RoleCitizen, []auth.Role{auth.RoleAuthority, auth.RoleHigher}, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			access, err := tokens.MintAccess(auth.Principal{ID: uuid.New(), Role: tc.role})
			if err != nil {
				t.Fatalf("MintAccess: %v", err)
			}

			chain := func(next http.Handler) http.Handler {
				return middleware.RequireAuth(tokens)(middleware.RequireRole(tc.allowed...)(next))
			}
			rec, _ := callWithAuth(t, chain, "Bearer "+access)
			if rec.Code != tc.want {
				t.Errorf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestRequireRole_WithoutPrincipal(t *testing.T) {
	rec, _ := callWithAuth(t, middleware.RequireRole(auth.RoleHigher), "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 when no principal is attached, got %d", rec.Code)
	}
}

func TestRateLimit_NilClientFailsOpen(t *testing.T) {
	rec, _ := callWithAuth(t, middleware.RateLimit(nil, 1), "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with no redis client, got %d", rec.Code)
	}
}

// A limiter that cannot reach Redis must let traffic through, including the
// expiry bookkeeping step, rather than surface 429s or 500s.
func TestRateLimit_UnreachableRedisFailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	limit := middleware.RateLimit(rdb, 1)
	for i := 0; i < 3; i++ {
		rec, _ := callWithAuth(t, limit, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200 with unreachable redis, got %d", i+1, rec.Code)
		}
	}
}
