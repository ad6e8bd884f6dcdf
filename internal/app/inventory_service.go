package app

import (
	"context"

	"github.com/polieventos/ticketing/internal/domain"
)

type InventoryRepository interface {
	GetZone(ctx context.Context, zoneID string) (domain.Zone, error)
	ListZonesByEvent(ctx context.Context, eventID string) ([]domain.Zone, error)
}

// InventoryService answers availability questions from unlocked reads. Its
// answers are informational; purchases re-check under the zone lock.
type InventoryService struct {
	repo InventoryRepository
}

func NewInventoryService(repo InventoryRepository) *InventoryService {
	return &InventoryService{repo: repo}
}

func (s *InventoryService) Availability(ctx context.Context, zoneID string) (domain.ZoneAvailability, error) {
	if zoneID == "" {
		return domain.ZoneAvailability{}, domain.ErrInvalidID
	}
	zone, err := s.repo.GetZone(ctx, zoneID)
	if err != nil {
		return domain.ZoneAvailability{}, err
	}
	return domain.ZoneAvailability{Zone: zone, Available: zone.Available()}, nil
}

// ListEventZones returns an event's zones with remaining availability.
// Deactivated zones are hidden unless includeInactive is set.
func (s *InventoryService) ListEventZones(ctx context.Context, eventID string, includeInactive bool) ([]domain.ZoneAvailability, error) {
	if eventID == "" {
		return nil, domain.ErrInvalidID
	}
	zones, err := s.repo.ListZonesByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ZoneAvailability, 0, len(zones))
	for _, z := range zones {
		if !z.IsActive && !includeInactive {
			continue
		}
		out = append(out, domain.ZoneAvailability{Zone: z, Available: z.Available()})
	}
	return out, nil
}
