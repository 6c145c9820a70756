package auth

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "test-secret-at-least-32-characters-long"

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateAccessToken("admin", "admin", testSecret, 15)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Subject != "admin" {
		t.Errorf("subject = %q, want %q", claims.Subject, "admin")
	}
	if claims.Role != "admin" {
		t.Errorf("role = %q, want %q", claims.Role, "admin")
	}
	if claims.ID == "" {
		t.Error("expected a token ID")
	}
	if claims.ExpiresAt == nil || time.Until(claims.ExpiresAt.Time) > 15*time.Minute {
		t.Error("expiry not within configured TTL")
	}
}

func TestGenerateAccessTokenDefaultTTL(t *testing.T) {
	token, err := GenerateAccessToken("admin", "admin", testSecret, 0)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining < 14*time.Minute || remaining > 15*time.Minute {
		t.Errorf("expiry %v outside default 15-minute window", remaining)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := GenerateAccessToken("admin", "admin", testSecret, 15)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	if _, err := ParseToken(token, "a-different-secret-also-32-chars-long"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("ParseToken with wrong secret = %v, want ErrTokenInvalid", err)
	}
}

func TestParseTokenGarbage(t *testing.T) {
	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := ParseToken(token, testSecret); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("ParseToken(%q) = %v, want ErrTokenInvalid", token, err)
		}
	}
}
