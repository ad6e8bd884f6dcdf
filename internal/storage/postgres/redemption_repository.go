package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polieventos/ticketing/internal/domain"
)

// RedemptionRepository is the only writer of ticket state.
type RedemptionRepository struct {
	db
	TicketRegistry
}

func NewRedemptionRepository(pool *pgxpool.Pool, lockTimeout time.Duration) *RedemptionRepository {
	return &RedemptionRepository{
		db:             db{pool: pool, lockTimeout: lockTimeout},
		TicketRegistry: TicketRegistry{db: db{pool: pool}},
	}
}

func (r *RedemptionRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.withTx(ctx, fn)
}

// GetTicketForUpdate resolves a code and locks its ticket row so concurrent
// redeemers of the same code serialize.
func (r *RedemptionRepository) GetTicketForUpdate(ctx context.Context, code string) (domain.TicketContext, error) {
	return r.ticketContext(ctx, ticketContextQuery+` FOR UPDATE OF t`, code)
}

func (r *RedemptionRepository) MarkTicketUsed(ctx context.Context, ticketID string, at time.Time) error {
	const stmt = `
UPDATE tickets
SET state = 'USED', redeemed_at = $2
WHERE id = $1 AND state = 'VALID'`

	tag, err := r.exec(ctx, stmt, ticketID, at)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("mark ticket used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}
