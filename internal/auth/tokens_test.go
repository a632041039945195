package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("access-secret", "refresh-secret")

	want := Principal{
		ID:         uuid.New(),
		Role:       RoleAuthority,
		Email:      "field@city.gov",
		Department: "Public Works",
	}

	token, err := svc.MintAccess(want)
	if err != nil {
		t.Fatalf("MintAccess: %v", err)
	}

	got, err := svc.VerifyAccess(token)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if got != want {
		t.Errorf("principal mismatch: got %+v, want %+v", got, want)
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("access-secret", "refresh-secret")

	want := Principal{ID: uuid.New(), Role: RoleCitizen, Email: "me@example.com"}

	token, err := svc.MintRefresh(want)
	if err != nil {
		t.Fatalf("MintRefresh: %v", err)
	}
	got, err := svc.VerifyRefresh(token)
	if err != nil {
		t.Fatalf("VerifyRefresh: %v", err)
	}
	if got != want {
		t.Errorf("principal mismatch: got %+v, want %+v", got, want)
	}
}

// The two token types are signed with distinct secrets: a refresh token must
// never pass access verification, and vice versa.
func TestSecretSeparation(t *testing.T) {
	svc := NewTokenService("access-secret", "refresh-secret")
	p := Principal{ID: uuid.New(), Role: RoleCitizen}

	refresh, err := svc.MintRefresh(p)
	if err != nil {
		t.Fatalf("MintRefresh: %v", err)
	}
	if _, err := svc.VerifyAccess(refresh); err == nil {
		t.Error("refresh token accepted as access token")
	}

	access, err := svc.MintAccess(p)
	if err != nil {
		t.Fatalf("MintAccess: %v", err)
	}
	if _, err := svc.VerifyRefresh(access); err == nil {
		t.Error("access token accepted as refresh token")
	}
}

func TestWrongSecretRejected(t *testing.T) {
	minter := NewTokenService("secret-a", "secret-a")
	verifier := NewTokenService("secret-b", "secret-b")

	token, err := minter.MintAccess(Principal{ID: uuid.New(), Role: RoleHigher, Department: "Sanitation"})
	if err != nil {
		t.Fatalf("MintAccess: %v", err)
	}
	if _, err := verifier.VerifyAccess(token); err == nil {
		t.Error("token signed with a different secret was accepted")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	svc := NewTokenService("access-secret", "refresh-secret")

	past := time.Now().Add(-time.Hour)
	svc.now = func() time.Time { return past }
	token, err := svc.MintAccess(Principal{ID: uuid.New(), Role: RoleCitizen})
	if err != nil {
		t.Fatalf("MintAccess: %v", err)
	}

	svc.now = time.Now
	if _, err := svc.VerifyAccess(token); err == nil {
		t.Error("expired token was accepted")
	}
}

func TestUnknownRoleRejected(t *testing.T) {
	svc := NewTokenService("access-secret", "refresh-secret")

	token, err := svc.mint(Principal{ID: uuid.New(), Role: Role("superadmin")}, svc.accessSecret, time.Minute)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := svc.VerifyAccess(token); err == nil {
		t.Error("token with unknown role was accepted")
	}
}

func TestPrincipalContextRoundTrip(t *testing.T) {
	p := Principal{ID: uuid.New(), Role: RoleAuthority, Department: "Water Supply"}

	ctx := WithPrincipal(context.Background(), p)
	got, ok := PrincipalFrom(ctx)
	if !ok {
		t.Fatal("principal missing from context")
	}
	if got != p {
		t.Errorf("got %+v, want %+v", got, p)
	}

	if _, ok := PrincipalFrom(context.Background()); ok {
		t.Error("empty context should not carry a principal")
	}
}
