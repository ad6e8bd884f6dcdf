package postgres

import "github.com/polieventos/ticketing/internal/domain"

type rowScanner interface {
	Scan(dest ...any) error
}

const zoneColumns = `z.id, z.event_id, z.name, z.unit_price, z.capacity_total, z.units_sold, z.is_active, z.created_at`

const eventColumns = `e.id, e.creator_id, e.name, e.venue, e.description, e.starts_at, e.latitude, e.longitude, e.created_at`

func zoneDest(z *domain.Zone) []any {
	return []any{&z.ID, &z.EventID, &z.Name, &z.UnitPrice, &z.CapacityTotal, &z.UnitsSold, &z.IsActive, &z.CreatedAt}
}

func eventDest(e *domain.Event) []any {
	return []any{&e.ID, &e.CreatorID, &e.Name, &e.Venue, &e.Description, &e.StartsAt, &e.Latitude, &e.Longitude, &e.CreatedAt}
}

func scanZone(row rowScanner) (domain.Zone, error) {
	var z domain.Zone
	err := row.Scan(zoneDest(&z)...)
	return z, err
}

func scanEvent(row rowScanner) (domain.Event, error) {
	var e domain.Event
	err := row.Scan(eventDest(&e)...)
	return e, err
}
