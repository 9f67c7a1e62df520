package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "socialfeed_test_jwt_secret_key_1234567890"

func TestTokenRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, 0)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	token, err := issuer.Generate(42, "alice@x.com")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	claims, err := issuer.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "alice@x.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != DefaultTokenTTL {
		t.Fatalf("expected 24h validity, got %s", got)
	}
}

func TestTokenExpires(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	issued := time.Now().Add(-2 * time.Hour)
	issuer.now = func() time.Time { return issued }

	token, err := issuer.Generate(1, "a@x.com")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	issuer.now = time.Now
	if _, err := issuer.Validate(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestTokenRejectsForeignSecret(t *testing.T) {
	issuer, _ := NewTokenIssuer(testSecret, 0)
	other, _ := NewTokenIssuer("another_secret_that_is_long_enough_123", 0)

	token, err := other.Generate(5, "b@x.com")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := issuer.Validate(token); err == nil {
		t.Fatalf("expected signature mismatch")
	}
}

func TestTokenRejectsUnexpectedAlgorithm(t *testing.T) {
	issuer, _ := NewTokenIssuer(testSecret, 0)

	claims := Claims{UserID: 3, RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    jwtIssuer,
		Subject:   "3",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	if _, err := issuer.Validate(token); err == nil {
		t.Fatalf("expected HS512 token to be rejected")
	}
}

func TestGenerateRejectsInvalidUser(t *testing.T) {
	issuer, _ := NewTokenIssuer(testSecret, 0)
	if _, err := issuer.Generate(0, "x@x.com"); err == nil {
		t.Fatalf("expected error for user id 0")
	}
	if _, err := NewTokenIssuer("  ", 0); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestPasswordHash(t *testing.T) {
	hashed, err := HashPassword("secret1")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hashed == "secret1" {
		t.Fatalf("password stored in clear")
	}
	if !CheckPasswordHash("secret1", hashed) {
		t.Fatalf("expected password to match")
	}
	if CheckPasswordHash("secret2", hashed) {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestTokenRejectsForeignIssuerAndSubjectMismatch(t *testing.T) {
	issuer, _ := NewTokenIssuer(testSecret, 0)
	expires := jwt.NewNumericDate(time.Now().Add(time.Hour))

	cases := map[string]Claims{
		"foreign issuer":   {UserID: 3, RegisteredClaims: jwt.RegisteredClaims{Issuer: "other-api", Subject: "3", ExpiresAt: expires}},
		"subject mismatch": {UserID: 3, RegisteredClaims: jwt.RegisteredClaims{Issuer: jwtIssuer, Subject: "4", ExpiresAt: expires}},
		"no expiry":        {UserID: 3, RegisteredClaims: jwt.RegisteredClaims{Issuer: jwtIssuer, Subject: "3"}},
	}
	for name, claims := range cases {
		t.Run(name, func(t *testing.T) {
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
			if err != nil {
				t.Fatalf("SignedString: %v", err)
			}
			if _, err := issuer.Validate(token); err == nil {
				t.Fatalf("expected token to be rejected")
			}
		})
	}
}
