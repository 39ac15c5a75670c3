package auth

import (
	"testing"
	"time"

	"github.com/bugtrackerpro/service-core/internal/apperror"
)

func TestTokenManager_IssueAndVerify(t *testing.T) {
	t.Parallel()

	m := NewTokenManager(Config{Secret: []byte("super-secret"), TTL: time.Hour})

	tok, err := m.Issue("user-123")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	userID, err := m.Verify(tok)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if userID != "user-123" {
		t.Fatalf("userID mismatch: got %q want %q", userID, "user-123")
	}
}

func TestTokenManager_Expired(t *testing.T) {
	t.Parallel()

	m := NewTokenManager(Config{Secret: []byte("secret"), TTL: -1 * time.Second})

	tok, err := m.Issue("u1")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = m.Verify(tok)
	if err == nil {
		t.Fatalf("expected error for expired token, got nil")
	}
	if !apperror.IsKind(err, apperror.KindAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestTokenManager_WrongSecret(t *testing.T) {
	t.Parallel()

	issuer := NewTokenManager(Config{Secret: []byte("right-secret"), TTL: time.Hour})
	verifier := NewTokenManager(Config{Secret: []byte("wrong-secret"), TTL: time.Hour})

	tok, err := issuer.Issue("u2")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if _, err := verifier.Verify(tok); err == nil {
		t.Fatalf("expected error for invalid signature, got nil")
	}
}

func TestTokenManager_MalformedString(t *testing.T) {
	t.Parallel()

	m := NewTokenManager(Config{Secret: []byte("k"), TTL: time.Hour})

	for _, bad := range []string{"", "not.a.jwt", "a.b", "garbage"} {
		if _, err := m.Verify(bad); err == nil {
			t.Fatalf("expected error for malformed token %q, got nil", bad)
		}
	}
}
