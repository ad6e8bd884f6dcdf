package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/polieventos/ticketing/internal/domain"
)

func TestVerifier_RoundTrip(t *testing.T) {
	t.Parallel()

	signer := NewSigner("secret", time.Hour)
	want := domain.Principal{UserID: "u1", Role: domain.RoleOrganizer, SubscriptionActive: true, Email: "o@example.com", Name: "Olga"}

	token, err := signer.Sign(want)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	got, err := NewVerifier("secret").Verify(token)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestVerifier_Rejects(t *testing.T) {
	t.Parallel()

	valid := domain.Principal{UserID: "u1", Role: domain.RoleBuyer}

	expiredSigner := NewSigner("secret", time.Hour)
	expiredSigner.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _ := expiredSigner.Sign(valid)

	wrongKey, _ := NewSigner("other", time.Hour).Sign(valid)
	badRole, _ := NewSigner("secret", time.Hour).Sign(domain.Principal{UserID: "u1", Role: "VENDEDOR"})
	noSubject, _ := NewSigner("secret", time.Hour).Sign(domain.Principal{Role: domain.RoleBuyer})

	noneAlg, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Role:             string(domain.RoleAdmin),
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:             string(domain.RoleBuyer),
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
	}).SignedString([]byte("secret"))

	cases := map[string]string{
		"expired":    expired,
		"wrong key":  wrongKey,
		"bad role":   badRole,
		"no subject": noSubject,
		"alg none":   noneAlg,
		"no expiry":  noExpiry,
		"garbage":    "not.a.token",
		"empty":      "",
	}
	v := NewVerifier("secret")
	for name, token := range cases {
		if _, err := v.Verify(token); err != ErrInvalidToken {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestPrincipalContext(t *testing.T) {
	t.Parallel()

	if _, ok := PrincipalFrom(context.Background()); ok {
		t.Fatalf("expected no principal on empty context")
	}
	p := domain.Principal{UserID: "u1", Role: domain.RoleAdmin}
	got, ok := PrincipalFrom(WithPrincipal(context.Background(), p))
	if !ok || got != p {
		t.Fatalf("expected %+v, got %+v", p, got)
	}
}

type mapHashStore map[string]string

func (m mapHashStore) PasswordHash(_ context.Context, userID string) (string, error) {
	h, ok := m[userID]
	if !ok {
		return "", domain.ErrInvalidPassword
	}
	return h, nil
}

func TestBcryptVerifier(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("secreto"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	v := NewBcryptVerifier(mapHashStore{"u1": string(hash)})

	if err := v.VerifyPassword(context.Background(), "u1", "secreto"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := v.VerifyPassword(context.Background(), "u1", "wrong"); err != domain.ErrInvalidPassword {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
	if err := v.VerifyPassword(context.Background(), "ghost", "secreto"); err != domain.ErrInvalidPassword {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}
