package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/polieventos/ticketing/internal/domain"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the identity provider's credential payload.
type Claims struct {
	Role               string `json:"role"`
	SubscriptionActive bool   `json:"subscription_active"`
	Email              string `json:"email,omitempty"`
	Name               string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 bearer tokens and turns them into principals.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify validates signature and expiry. The claims are then trusted
// verbatim.
func (v *Verifier) Verify(token string) (domain.Principal, error) {
	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return domain.Principal{}, ErrInvalidToken
	}

	role := domain.Role(claims.Role)
	if claims.Subject == "" || !role.Valid() {
		return domain.Principal{}, ErrInvalidToken
	}
	return domain.Principal{
		UserID:             claims.Subject,
		Role:               role,
		SubscriptionActive: claims.SubscriptionActive,
		Email:              claims.Email,
		Name:               claims.Name,
	}, nil
}

// Signer issues tokens with the same secret. The identity provider owns
// issuance in production; the signer serves tests and local tooling.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *Signer) Sign(p domain.Principal) (string, error) {
	now := s.now()
	claims := Claims{
		Role:               string(p.Role),
		SubscriptionActive: p.SubscriptionActive,
		Email:              p.Email,
		Name:               p.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
