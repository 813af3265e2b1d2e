package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndParse_RoundTrip(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	raw, claims, err := iss.Issue(42)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	got, err := iss.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	uid, err := got.UserID()
	if err != nil || uid != 42 {
		t.Fatalf("UserID = %d, %v", uid, err)
	}
	if got.ID != claims.ID || got.ID == "" {
		t.Fatalf("jti mismatch: %q vs %q", got.ID, claims.ID)
	}
}

func TestParse_Rejects(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	raw, _, _ := iss.Issue(1)

	if _, err := NewIssuer("other", time.Hour).Parse(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong secret: want ErrInvalidToken, got %v", err)
	}
	if _, err := iss.Parse("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage: want ErrInvalidToken, got %v", err)
	}

	expired := NewIssuer("secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, _, _ := expired.Issue(1)
	if _, err := iss.Parse(old); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired: want ErrInvalidToken, got %v", err)
	}
}

func TestClaims_UserID_Invalid(t *testing.T) {
	c := &Claims{}
	c.Subject = "abc"
	if _, err := c.UserID(); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
	c.Subject = "0"
	if _, err := c.UserID(); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("zero subject: want ErrInvalidToken, got %v", err)
	}
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("hunter2", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "hunter2" {
		t.Fatalf("hash must not equal plain text")
	}
	if !CheckPassword(hash, "hunter2") {
		t.Fatalf("correct password rejected")
	}
	if CheckPassword(hash, "hunter3") {
		t.Fatalf("wrong password accepted")
	}
	if CheckPassword("not-a-hash", "x") {
		t.Fatalf("invalid hash accepted")
	}
}
