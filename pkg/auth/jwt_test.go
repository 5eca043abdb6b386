package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tenDays = 10 * 24 * time.Hour

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewTokenService("secret", tenDays).WithClock(fixedClock(issuedAt))

	emails := []string{"a@x.com", "chef@bistro.example", "UPPER@Example.com"}
	for _, email := range emails {
		t.Run(email, func(t *testing.T) {
			token, err := svc.Issue(Subject{Email: email})
			if err != nil {
				t.Fatalf("Issue() error = %v", err)
			}

			for _, at := range []time.Time{issuedAt, issuedAt.Add(24 * time.Hour), issuedAt.Add(tenDays - time.Second)} {
				claims, err := svc.WithClock(fixedClock(at)).Verify(token)
				if err != nil {
					t.Fatalf("Verify() at %v error = %v", at, err)
				}
				if claims.Email != email {
					t.Errorf("Email = %q, want %q", claims.Email, email)
				}
			}
		})
	}
}

func TestVerify_ExpiredAtBoundary(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewTokenService("secret", tenDays).WithClock(fixedClock(issuedAt))

	token, err := svc.Issue(Subject{Email: "a@x.com"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	for _, at := range []time.Time{issuedAt.Add(tenDays), issuedAt.Add(tenDays + time.Hour)} {
		_, err := svc.WithClock(fixedClock(at)).Verify(token)
		if !errors.Is(err, ErrExpired) {
			t.Errorf("Verify() at %v error = %v, want ErrExpired", at, err)
		}
		if errors.Is(err, ErrInvalidToken) {
			t.Errorf("expired token must not be reported as invalid")
		}
	}
}

func TestVerify_FractionalIssueTimeLastsFullTTL(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 900_000_000, time.UTC)
	svc := NewTokenService("secret", tenDays).WithClock(fixedClock(issuedAt))

	token, err := svc.Issue(Subject{Email: "a@x.com"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	almost := issuedAt.Add(tenDays - 500*time.Millisecond)
	if _, err := svc.WithClock(fixedClock(almost)).Verify(token); err != nil {
		t.Errorf("Verify() before ttl elapsed error = %v", err)
	}

	after := issuedAt.Add(tenDays + time.Second)
	if _, err := svc.WithClock(fixedClock(after)).Verify(token); !errors.Is(err, ErrExpired) {
		t.Errorf("Verify() after ttl error = %v, want ErrExpired", err)
	}
}

func TestVerify_InvalidTokens(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewTokenService("secret", tenDays).WithClock(fixedClock(now))

	otherSecret, err := NewTokenService("other-secret", tenDays).WithClock(fixedClock(now)).Issue(Subject{Email: "a@x.com"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	good, err := svc.Issue(Subject{Email: "a@x.com"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	parts := strings.Split(good, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	noAudience := signRaw(t, jwt.SigningMethodHS256, "secret", jwt.MapClaims{
		"email": "a@x.com",
		"exp":   now.Add(time.Hour).Unix(),
	})
	noExpiry := signRaw(t, jwt.SigningMethodHS256, "secret", jwt.MapClaims{
		"email": "a@x.com",
		"aud":   audience,
	})
	hs512 := signRaw(t, jwt.SigningMethodHS512, "secret", jwt.MapClaims{
		"email": "a@x.com",
		"aud":   audience,
		"exp":   now.Add(time.Hour).Unix(),
	})

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"wrong secret", otherSecret},
		{"tampered payload", tampered},
		{"missing audience", noAudience},
		{"missing expiry", noExpiry},
		{"unexpected algorithm", hs512},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := svc.Verify(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("Verify() error = %v, want ErrInvalidToken", err)
			}
			if claims != nil {
				t.Errorf("claims = %+v, want nil", claims)
			}
		})
	}
}

func signRaw(t *testing.T, method jwt.SigningMethod, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}
