package auth

import (
	"errors"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestVerify_RoundTrip(t *testing.T) {
	tok, err := Issue(secret, "storefront", "buyer-1", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	c, err := NewVerifier(secret, "storefront").Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if c.Subject != "buyer-1" {
		t.Fatalf("expected sub buyer-1, got %q", c.Subject)
	}
}

func TestVerify_Rejects(t *testing.T) {
	v := NewVerifier(secret, "")

	expired, _ := Issue(secret, "", "buyer-1", -time.Minute)
	wrongKey, _ := Issue("another-secret-another-secret!!", "", "buyer-1", time.Hour)
	noSub, _ := Issue(secret, "", "", time.Hour)
	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "buyer-1"}).SignedString([]byte(secret))
	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "buyer-1", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))

	cases := map[string]string{
		"expired":   expired,
		"wrong key": wrongKey,
		"no sub":    noSub,
		"no exp":    noExp,
		"hs512":     hs512,
		"garbage":   "not.a.jwt",
	}
	for name, tok := range cases {
		if _, err := v.Verify(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}

	if _, err := v.Verify("  "); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("blank: expected ErrMissingToken, got %v", err)
	}
}

func TestVerify_IssuerMismatch(t *testing.T) {
	tok, _ := Issue(secret, "someone-else", "buyer-1", time.Hour)
	if _, err := NewVerifier(secret, "storefront").Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected issuer mismatch to fail, got %v", err)
	}
}

func TestFromHeader(t *testing.T) {
	if tok, err := FromHeader("Bearer abc"); err != nil || tok != "abc" {
		t.Fatalf("got %q %v", tok, err)
	}
	if tok, err := FromHeader("bearer   abc  "); err != nil || tok != "abc" {
		t.Fatalf("case-insensitive prefix: got %q %v", tok, err)
	}
	for _, h := range []string{"", "Bearer", "Bearer   ", "Basic abc", "abc"} {
		if _, err := FromHeader(h); !errors.Is(err, ErrMissingToken) {
			t.Fatalf("%q: expected ErrMissingToken, got %v", h, err)
		}
	}
}
