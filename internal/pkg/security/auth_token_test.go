package security

import (
	"strings"
	"testing"
	"time"
)

func TestAuthTokenRoundTrip(t *testing.T) {
	t.Parallel()

	token, err := GenerateAuthToken(42, "jane@biotech.example", "user", time.Hour, "test-secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := VerifyAuthToken(token, "test-secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.UserID != 42 {
		t.Fatalf("expected user id 42, got %d", claims.UserID)
	}
	if claims.Email != "jane@biotech.example" {
		t.Fatalf("unexpected email %q", claims.Email)
	}
	if claims.Role != "user" {
		t.Fatalf("unexpected role %q", claims.Role)
	}
}

func TestAuthTokenWrongSecret(t *testing.T) {
	t.Parallel()

	token, err := GenerateAuthToken(1, "a@b.example", "user", time.Hour, "secret-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := VerifyAuthToken(token, "secret-b"); err == nil {
		t.Fatalf("expected verification to fail with wrong secret")
	}
}

func TestAuthTokenTampered(t *testing.T) {
	t.Parallel()

	token, err := GenerateAuthToken(1, "a@b.example", "user", time.Hour, "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parts := strings.SplitN(token, ".", 2)
	tampered := parts[0] + "x." + parts[1]
	if _, err := VerifyAuthToken(tampered, "secret"); err == nil {
		t.Fatalf("expected verification to fail for tampered payload")
	}
}

func TestAuthTokenExpired(t *testing.T) {
	t.Parallel()

	token, err := GenerateAuthToken(1, "a@b.example", "user", -time.Minute, "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := VerifyAuthToken(token, "secret"); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestAuthTokenRequiresSecret(t *testing.T) {
	t.Parallel()

	if _, err := GenerateAuthToken(1, "a@b.example", "user", time.Hour, ""); err == nil {
		t.Fatalf("expected error for empty secret")
	}
	if _, err := VerifyAuthToken("abc.def", ""); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestAuthTokenMalformed(t *testing.T) {
	t.Parallel()

	for _, token := range []string{"", "no-dot", "!!!.???"} {
		if _, err := VerifyAuthToken(token, "secret"); err == nil {
			t.Fatalf("expected error for malformed token %q", token)
		}
	}
}
