package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	token := makeToken(t, exp)

	got, err := TokenExpiry(token)
	if err != nil {
		t.Fatalf("TokenExpiry: %v", err)
	}
	if !got.Equal(exp) {
		t.Errorf("expiry = %v, want %v", got, exp)
	}
}

func TestTokenExpiryMalformed(t *testing.T) {
	for _, tok := range []string{"", "not.a.jwt", "garbage"} {
		if _, err := TokenExpiry(tok); err == nil {
			t.Errorf("TokenExpiry(%q) should fail", tok)
		}
	}
}

func TestTokenExpiryMissingExp(t *testing.T) {
	// Valid JWT, but no exp claim.
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256,
		jwt.RegisteredClaims{Subject: "a@x.com"}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := TokenExpiry(token); err == nil {
		t.Error("TokenExpiry should fail for a token without exp")
	}
}
