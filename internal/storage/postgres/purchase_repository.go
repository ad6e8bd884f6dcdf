package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polieventos/ticketing/internal/domain"
)

// PurchaseRepository backs the purchase coordinator: the locked zone read,
// the units_sold increment, purchase rows and, through the embedded
// registry, ticket rows.
type PurchaseRepository struct {
	db
	TicketRegistry
}

// NewPurchaseRepository returns a repository whose transactions give up
// waiting for a zone lock after lockTimeout.
func NewPurchaseRepository(pool *pgxpool.Pool, lockTimeout time.Duration) *PurchaseRepository {
	return &PurchaseRepository{
		db:             db{pool: pool, lockTimeout: lockTimeout},
		TicketRegistry: TicketRegistry{db: db{pool: pool}},
	}
}

func (r *PurchaseRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.withTx(ctx, fn)
}

// GetZoneForUpdate locks the zone row until the surrounding transaction
// ends. The event row is read but not locked.
func (r *PurchaseRepository) GetZoneForUpdate(ctx context.Context, zoneID string) (domain.Zone, domain.Event, error) {
	const query = `
SELECT ` + zoneColumns + `, ` + eventColumns + `
FROM zones z
JOIN events e ON e.id = z.event_id
WHERE z.id = $1
FOR UPDATE OF z`

	var (
		z domain.Zone
		e domain.Event
	)
	dest := append(zoneDest(&z), eventDest(&e)...)
	if err := r.queryRow(ctx, query, zoneID).Scan(dest...); err != nil {
		if isInvalidUUID(err) {
			return domain.Zone{}, domain.Event{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Zone{}, domain.Event{}, domain.ErrZoneNotFound
		}
		return domain.Zone{}, domain.Event{}, fmt.Errorf("get zone for update: %w", err)
	}
	return z, e, nil
}

// IncrementUnitsSold adds quantity to units_sold. The guard in the WHERE
// clause and the table CHECK reject an increment past capacity.
func (r *PurchaseRepository) IncrementUnitsSold(ctx context.Context, zoneID string, quantity int) error {
	const stmt = `
UPDATE zones
SET units_sold = units_sold + $2
WHERE id = $1 AND units_sold + $2 <= capacity_total`

	tag, err := r.exec(ctx, stmt, zoneID, quantity)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("increment units sold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientInventory
	}
	return nil
}

func (r *PurchaseRepository) CreatePurchase(ctx context.Context, p domain.Purchase) error {
	const stmt = `
INSERT INTO purchases (id, buyer_id, zone_id, quantity, total_amount, purchased_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.exec(ctx, stmt, p.ID, p.BuyerID, p.ZoneID, p.Quantity, p.TotalAmount, p.PurchasedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrZoneNotFound
		}
		return fmt.Errorf("create purchase: %w", err)
	}
	return nil
}

const purchaseDetailQuery = `
SELECT p.id, p.buyer_id, p.zone_id, p.quantity, p.total_amount, p.purchased_at,
       z.name, z.unit_price, e.id, e.name, e.venue, e.starts_at
FROM purchases p
JOIN zones z ON z.id = p.zone_id
JOIN events e ON e.id = z.event_id`

func scanPurchaseDetail(row rowScanner) (domain.PurchaseDetail, error) {
	var d domain.PurchaseDetail
	err := row.Scan(
		&d.Purchase.ID,
		&d.Purchase.BuyerID,
		&d.Purchase.ZoneID,
		&d.Purchase.Quantity,
		&d.Purchase.TotalAmount,
		&d.Purchase.PurchasedAt,
		&d.ZoneName,
		&d.UnitPrice,
		&d.EventID,
		&d.EventName,
		&d.EventVenue,
		&d.EventStartsAt,
	)
	return d, err
}

func (r *PurchaseRepository) GetPurchase(ctx context.Context, purchaseID string) (domain.PurchaseDetail, error) {
	d, err := scanPurchaseDetail(r.queryRow(ctx, purchaseDetailQuery+` WHERE p.id = $1`, purchaseID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.PurchaseDetail{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PurchaseDetail{}, domain.ErrPurchaseNotFound
		}
		return domain.PurchaseDetail{}, fmt.Errorf("get purchase: %w", err)
	}
	return d, nil
}

// ListPurchasesByBuyer returns the buyer's purchases newest first, without
// tickets.
func (r *PurchaseRepository) ListPurchasesByBuyer(ctx context.Context, buyerID string) ([]domain.PurchaseDetail, error) {
	rows, err := r.query(ctx, purchaseDetailQuery+` WHERE p.buyer_id = $1 ORDER BY p.purchased_at DESC, p.id`, buyerID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	var out []domain.PurchaseDetail
	for rows.Next() {
		d, err := scanPurchaseDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("iterate purchases: %w", err)
	}
	return out, nil
}
