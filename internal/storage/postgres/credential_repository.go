package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polieventos/ticketing/internal/domain"
)

// CredentialRepository reads password hashes from the identity provider's
// users table. It never writes.
type CredentialRepository struct {
	db
}

func NewCredentialRepository(pool *pgxpool.Pool) *CredentialRepository {
	return &CredentialRepository{db: db{pool: pool}}
}

// PasswordHash returns the stored bcrypt hash for userID. An unknown user
// yields domain.ErrInvalidPassword so callers cannot discover which accounts exist.
func (r *CredentialRepository) PasswordHash(ctx context.Context, userID string) (string, error) {
	var hash string
	err := r.queryRow(ctx, `SELECT password_hash FROM users WHERE id = $1`, userID).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return "", domain.ErrInvalidPassword
		}
		return "", fmt.Errorf("get password hash: %w", err)
	}
	return hash, nil
}
