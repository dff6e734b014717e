package sync

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestDeviceTokenSource(t *testing.T) {
	source := NewDeviceTokenSource("device-1", "shared-secret")

	token, err := source.Token()
	if err != nil {
		t.Fatalf("Token() failed: %v", err)
	}
	if token.TokenType != "Bearer" {
		t.Errorf("token type = %q, want Bearer", token.TokenType)
	}

	parsed, err := jwt.ParseWithClaims(token.AccessToken, &jwt.RegisteredClaims{}, func(*jwt.Token) (interface{}, error) {
		return []byte("shared-secret"), nil
	})
	if err != nil {
		t.Fatalf("failed to parse minted token: %v", err)
	}
	claims := parsed.Claims.(*jwt.RegisteredClaims)
	if claims.Subject != "device-1" {
		t.Errorf("subject = %q, want device-1", claims.Subject)
	}
	if claims.ExpiresAt == nil || time.Until(claims.ExpiresAt.Time) <= 0 {
		t.Error("token should carry a future expiry")
	}

	// A fresh token is served from cache.
	again, err := source.Token()
	if err != nil {
		t.Fatalf("second Token() failed: %v", err)
	}
	if again.AccessToken != token.AccessToken {
		t.Error("unexpired token should be reused")
	}
}
