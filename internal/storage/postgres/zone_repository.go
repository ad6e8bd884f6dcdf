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

// ZoneRepository stores events and zones. It never touches units_sold.
type ZoneRepository struct {
	db
}

func NewZoneRepository(pool *pgxpool.Pool, lockTimeout time.Duration) *ZoneRepository {
	return &ZoneRepository{db: db{pool: pool, lockTimeout: lockTimeout}}
}

func (r *ZoneRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.withTx(ctx, fn)
}

func (r *ZoneRepository) CreateEvent(ctx context.Context, e domain.Event) error {
	const stmt = `
INSERT INTO events (id, creator_id, name, venue, description, starts_at, latitude, longitude, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.exec(ctx, stmt, e.ID, e.CreatorID, e.Name, e.Venue, e.Description, e.StartsAt, e.Latitude, e.Longitude, e.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (r *ZoneRepository) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	return r.getEvent(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.id = $1`, eventID)
}

func (r *ZoneRepository) GetEventForUpdate(ctx context.Context, eventID string) (domain.Event, error) {
	return r.getEvent(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.id = $1 FOR UPDATE`, eventID)
}

func (r *ZoneRepository) getEvent(ctx context.Context, query, eventID string) (domain.Event, error) {
	e, err := scanEvent(r.queryRow(ctx, query, eventID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Event{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Event{}, domain.ErrEventNotFound
		}
		return domain.Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (r *ZoneRepository) UpdateEvent(ctx context.Context, e domain.Event) error {
	const stmt = `
UPDATE events
SET name = $2, venue = $3, description = $4, starts_at = $5, latitude = $6, longitude = $7
WHERE id = $1`

	tag, err := r.exec(ctx, stmt, e.ID, e.Name, e.Venue, e.Description, e.StartsAt, e.Latitude, e.Longitude)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

// DeleteEvent removes the event; zones, purchases and tickets go with it
// through ON DELETE CASCADE.
func (r *ZoneRepository) DeleteEvent(ctx context.Context, eventID string) error {
	tag, err := r.exec(ctx, `DELETE FROM events WHERE id = $1`, eventID)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return mapBusy(fmt.Errorf("delete event: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (r *ZoneRepository) CreateZone(ctx context.Context, z domain.Zone) error {
	const stmt = `
INSERT INTO zones (id, event_id, name, unit_price, capacity_total, units_sold, is_active, created_at)
VALUES ($1, $2, $3, $4, $5, 0, $6, $7)`

	_, err := r.exec(ctx, stmt, z.ID, z.EventID, z.Name, z.UnitPrice, z.CapacityTotal, z.IsActive, z.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isUniqueViolation(err) {
			return domain.ErrZoneAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return domain.ErrEventNotFound
		}
		return fmt.Errorf("create zone: %w", err)
	}
	return nil
}

// UpdateZone writes the mutable zone fields: name and is_active.
func (r *ZoneRepository) UpdateZone(ctx context.Context, z domain.Zone) error {
	const stmt = `UPDATE zones SET name = $2, is_active = $3 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, z.ID, z.Name, z.IsActive)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isUniqueViolation(err) {
			return domain.ErrZoneAlreadyExists
		}
		return fmt.Errorf("update zone: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrZoneNotFound
	}
	return nil
}

func (r *ZoneRepository) GetZone(ctx context.Context, zoneID string) (domain.Zone, error) {
	z, err := scanZone(r.queryRow(ctx, `SELECT `+zoneColumns+` FROM zones z WHERE z.id = $1`, zoneID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Zone{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Zone{}, domain.ErrZoneNotFound
		}
		return domain.Zone{}, fmt.Errorf("get zone: %w", err)
	}
	return z, nil
}

func (r *ZoneRepository) ListZonesByEvent(ctx context.Context, eventID string) ([]domain.Zone, error) {
	var exists bool
	if err := r.queryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, eventID).Scan(&exists); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("check event: %w", err)
	}
	if !exists {
		return nil, domain.ErrEventNotFound
	}

	rows, err := r.query(ctx, `SELECT `+zoneColumns+` FROM zones z WHERE z.event_id = $1 ORDER BY z.created_at ASC, z.name ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}
	defer rows.Close()

	zones := make([]domain.Zone, 0)
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, fmt.Errorf("scan zone: %w", err)
		}
		zones = append(zones, z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate zones: %w", err)
	}
	return zones, nil
}

// ListEventSummaries aggregates capacity, sales and revenue per event.
// An empty creatorID lists every event.
func (r *ZoneRepository) ListEventSummaries(ctx context.Context, creatorID string) ([]domain.EventSummary, error) {
	const query = `
SELECT ` + eventColumns + `,
       COUNT(z.id)::int,
       COALESCE(SUM(z.capacity_total), 0)::int,
       COALESCE(SUM(z.units_sold), 0)::int,
       COALESCE(SUM(z.units_sold::bigint * z.unit_price), 0)::bigint
FROM events e
LEFT JOIN zones z ON z.event_id = e.id
WHERE $1::uuid IS NULL OR e.creator_id = $1::uuid
GROUP BY e.id
ORDER BY e.starts_at ASC, e.id`

	var creator any
	if creatorID != "" {
		creator = creatorID
	}

	rows, err := r.query(ctx, query, creator)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list event summaries: %w", err)
	}
	defer rows.Close()

	summaries := make([]domain.EventSummary, 0)
	for rows.Next() {
		var s domain.EventSummary
		dest := append(eventDest(&s.Event), &s.ZoneCount, &s.CapacityTotal, &s.UnitsSold, &s.Revenue)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan event summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("iterate event summaries: %w", err)
	}
	return summaries, nil
}
