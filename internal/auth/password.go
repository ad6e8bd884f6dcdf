package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/polieventos/ticketing/internal/domain"
)

// HashStore looks up a user's stored bcrypt hash.
type HashStore interface {
	PasswordHash(ctx context.Context, userID string) (string, error)
}

// BcryptVerifier confirms passwords against the identity provider's hashes.
type BcryptVerifier struct {
	store HashStore
}

func NewBcryptVerifier(store HashStore) *BcryptVerifier {
	return &BcryptVerifier{store: store}
}

func (v *BcryptVerifier) VerifyPassword(ctx context.Context, userID, password string) error {
	hash, err := v.store.PasswordHash(ctx, userID)
	if err != nil {
		return err
	}
	err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return domain.ErrInvalidPassword
	}
	if err != nil {
		return fmt.Errorf("compare password: %w", err)
	}
	return nil
}
