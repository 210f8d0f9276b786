package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/vowsuite/vowsuite-api/internal/model"
)

func testUser() model.User {
	bid := uint64(7)
	return model.User{
		ID:         42,
		Email:      "planner@rosewood.com",
		Role:       model.RoleAdmin,
		BusinessID: &bid,
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("secret", testUser(), 15)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	if tok.Token == "" {
		t.Fatal("expected a signed token")
	}
	if remaining := time.Until(tok.Exp); remaining < 14*time.Minute || remaining > 15*time.Minute {
		t.Fatalf("unexpected expiry window: %v", remaining)
	}

	claims, err := ParseAccessToken("secret", tok.Token)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.Subject != "42" || claims.Email != "planner@rosewood.com" || claims.Role != model.RoleAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.BusinessID == nil || *claims.BusinessID != 7 {
		t.Fatalf("business id claim lost: %+v", claims.BusinessID)
	}

	uid, err := SubjectID(claims.Subject)
	if err != nil || uid != 42 {
		t.Fatalf("SubjectID: %v %d", err, uid)
	}
}

func TestAccessTokenWrongSecret(t *testing.T) {
	tok, err := NewAccessToken("secret", testUser(), 15)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	if _, err := ParseAccessToken("other-secret", tok.Token); err == nil {
		t.Fatal("expected verification failure with the wrong secret")
	}
}

func TestRefreshTokenCarriesRecordID(t *testing.T) {
	ref, err := NewRefreshToken("refresh-secret", 42, "rec-123", 7)
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}

	claims, err := ParseRefreshToken("refresh-secret", ref.Raw)
	if err != nil {
		t.Fatalf("ParseRefreshToken: %v", err)
	}
	if claims.TokenID != "rec-123" || claims.Subject != "42" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if remaining := time.Until(ref.Exp); remaining < 7*24*time.Hour-time.Minute {
		t.Fatalf("unexpected expiry window: %v", remaining)
	}
}

func TestRefreshAndAccessSecretsAreNotInterchangeable(t *testing.T) {
	ref, err := NewRefreshToken("refresh-secret", 42, "rec-123", 7)
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	if _, err := ParseRefreshToken("access-secret", ref.Raw); err == nil {
		t.Fatal("refresh token must not verify under a different secret")
	}
}

func TestHashRefreshRaw(t *testing.T) {
	h1 := HashRefreshRaw("some-token")
	h2 := HashRefreshRaw("some-token")
	if h1 != h2 {
		t.Fatal("hash must be deterministic")
	}
	if len(h1) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(h1))
	}
	if HashRefreshRaw("some-other-token") == h1 {
		t.Fatal("distinct inputs must hash differently")
	}
	if strings.Contains(h1, "some-token") {
		t.Fatal("hash must not leak the input")
	}
}
