package auth

import (
	"strings"
	"testing"
	"time"
)

func testUser() *User {
	return &User{ID: 42, Username: "alice", Role: RoleUser}
}

func TestTokenIssueAndVerify(t *testing.T) {
	mgr, err := NewTokenManager("test-secret", "casetrack", time.Minute)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}

	token, expiresAt, err := mgr.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expected future expiration, got %v", expiresAt)
	}

	claims, err := mgr.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	id, err := claims.UserID()
	if err != nil || id != 42 {
		t.Fatalf("unexpected subject: %v %v", id, err)
	}
	if claims.Username != "alice" || claims.Role != "user" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Issuer != "casetrack" {
		t.Fatalf("unexpected issuer: %s", claims.Issuer)
	}
}

func TestTokenDefaultTTL(t *testing.T) {
	mgr, err := NewTokenManager("test-secret", "casetrack", 0)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	if mgr.TTL() != 6000*time.Second {
		t.Fatalf("expected 6000s default TTL, got %v", mgr.TTL())
	}
}

func TestTokenExpiryBoundary(t *testing.T) {
	mgr, err := NewTokenManager("test-secret", "casetrack", time.Minute)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	issued := time.Now().Add(-time.Minute)
	mgr.now = func() time.Time { return issued }

	token, expiresAt, err := mgr.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Freeze verification exactly at the expiry instant: already invalid.
	mgr.now = func() time.Time { return expiresAt }
	if _, err := mgr.Verify(token); err == nil {
		t.Fatalf("expected token invalid exactly at expiry")
	}

	mgr.now = func() time.Time { return expiresAt.Add(-time.Second) }
	if _, err := mgr.Verify(token); err != nil {
		t.Fatalf("expected token valid just before expiry: %v", err)
	}
}

func TestTokenRejectsTamperingAndWrongSecret(t *testing.T) {
	mgr, _ := NewTokenManager("test-secret", "casetrack", time.Minute)
	token, _, err := mgr.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	other, _ := NewTokenManager("other-secret", "casetrack", time.Minute)
	if _, err := other.Verify(token); err == nil {
		t.Fatalf("expected verification failure with wrong secret")
	}

	parts := strings.Split(token, ".")
	forged := parts[0] + "." + parts[1] + ".AAAA"
	if _, err := mgr.Verify(forged); err == nil {
		t.Fatalf("expected verification failure for forged signature")
	}

	if _, err := mgr.Verify("not-a-token"); err == nil {
		t.Fatalf("expected verification failure for malformed token")
	}
	if _, err := mgr.Verify(""); err == nil {
		t.Fatalf("expected verification failure for empty token")
	}
}

func TestTokenRejectsWrongIssuer(t *testing.T) {
	minted, _ := NewTokenManager("test-secret", "someone-else", time.Minute)
	token, _, err := minted.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	mgr, _ := NewTokenManager("test-secret", "casetrack", time.Minute)
	if _, err := mgr.Verify(token); err == nil {
		t.Fatalf("expected issuer mismatch to fail verification")
	}
}
