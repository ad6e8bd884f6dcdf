package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polieventos/ticketing/internal/domain"
)

// TicketRegistry stores minted tickets and resolves redemption codes.
type TicketRegistry struct {
	db
}

func NewTicketRegistry(pool *pgxpool.Pool) *TicketRegistry {
	return &TicketRegistry{db: db{pool: pool}}
}

// InsertTicket stores a ticket unless its redemption code is already taken,
// in which case it reports false so the caller can draw a new code.
func (r *TicketRegistry) InsertTicket(ctx context.Context, t domain.Ticket) (bool, error) {
	const stmt = `
INSERT INTO tickets (id, purchase_id, redemption_code, state, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (redemption_code) DO NOTHING`

	tag, err := r.exec(ctx, stmt, t.ID, t.PurchaseID, t.RedemptionCode, t.State, t.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return false, domain.ErrPurchaseNotFound
		}
		return false, fmt.Errorf("insert ticket: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *TicketRegistry) ListByPurchase(ctx context.Context, purchaseID string) ([]domain.Ticket, error) {
	const query = `
SELECT id, purchase_id, redemption_code, state, redeemed_at, created_at
FROM tickets
WHERE purchase_id = $1
ORDER BY created_at ASC, redemption_code ASC`

	rows, err := r.query(ctx, query, purchaseID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		if err := rows.Scan(&t.ID, &t.PurchaseID, &t.RedemptionCode, &t.State, &t.RedeemedAt, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("iterate tickets: %w", err)
	}
	return tickets, nil
}

const ticketContextQuery = `
SELECT t.id, t.purchase_id, t.redemption_code, t.state, t.redeemed_at, t.created_at,
       p.buyer_id, z.id, z.name, e.id, e.name, e.venue, e.starts_at, e.creator_id
FROM tickets t
JOIN purchases p ON p.id = t.purchase_id
JOIN zones z ON z.id = p.zone_id
JOIN events e ON e.id = z.event_id
WHERE t.redemption_code = $1`

// FindByCode resolves a redemption code to its ticket and event context
// without locking.
func (r *TicketRegistry) FindByCode(ctx context.Context, code string) (domain.TicketContext, error) {
	return r.ticketContext(ctx, ticketContextQuery, code)
}

func (r *TicketRegistry) ticketContext(ctx context.Context, query, code string) (domain.TicketContext, error) {
	var tc domain.TicketContext
	err := r.queryRow(ctx, query, code).Scan(
		&tc.Ticket.ID,
		&tc.Ticket.PurchaseID,
		&tc.Ticket.RedemptionCode,
		&tc.Ticket.State,
		&tc.Ticket.RedeemedAt,
		&tc.Ticket.CreatedAt,
		&tc.BuyerID,
		&tc.ZoneID,
		&tc.ZoneName,
		&tc.EventID,
		&tc.EventName,
		&tc.EventVenue,
		&tc.EventStartsAt,
		&tc.CreatorID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TicketContext{}, domain.ErrTicketNotFound
		}
		return domain.TicketContext{}, fmt.Errorf("find ticket: %w", err)
	}
	return tc, nil
}
