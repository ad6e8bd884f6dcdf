package app

import (
	"context"
	"strings"
	"time"

	"github.com/polieventos/ticketing/internal/clock"
	"github.com/polieventos/ticketing/internal/domain"
)

type ZoneRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateEvent(ctx context.Context, event domain.Event) error
	GetEvent(ctx context.Context, eventID string) (domain.Event, error)
	GetEventForUpdate(ctx context.Context, eventID string) (domain.Event, error)
	UpdateEvent(ctx context.Context, event domain.Event) error
	DeleteEvent(ctx context.Context, eventID string) error
	CreateZone(ctx context.Context, zone domain.Zone) error
	UpdateZone(ctx context.Context, zone domain.Zone) error
	ListZonesByEvent(ctx context.Context, eventID string) ([]domain.Zone, error)
	ListEventSummaries(ctx context.Context, creatorID string) ([]domain.EventSummary, error)
}

// PasswordVerifier confirms a caller's password before destructive actions.
type PasswordVerifier interface {
	VerifyPassword(ctx context.Context, userID, password string) error
}

// ZoneService manages events and their zones on behalf of organizers.
type ZoneService struct {
	repo      ZoneRepository
	passwords PasswordVerifier
	clock     clock.Clock
}

func NewZoneService(repo ZoneRepository, passwords PasswordVerifier, clk clock.Clock) *ZoneService {
	return &ZoneService{
		repo:      repo,
		passwords: passwords,
		clock:     clk,
	}
}

type ZoneSpec struct {
	Name          string
	UnitPrice     int64
	CapacityTotal int
}

type CreateEventInput struct {
	Creator     domain.Principal
	Name        string
	Venue       string
	Description string
	StartsAt    *time.Time
	Latitude    *float64
	Longitude   *float64
	Zones       []ZoneSpec
}

type EventWithZones struct {
	Event domain.Event
	Zones []domain.Zone
}

// CreateEvent inserts an event and all of its zones in one transaction.
func (s *ZoneService) CreateEvent(ctx context.Context, in CreateEventInput) (EventWithZones, error) {
	if in.Creator.UserID == "" {
		return EventWithZones{}, domain.ErrForbidden
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return EventWithZones{}, domain.ErrEventNameRequired
	}
	if len(in.Zones) == 0 {
		return EventWithZones{}, domain.ErrZonesRequired
	}
	for _, spec := range in.Zones {
		if err := validateZoneSpec(spec); err != nil {
			return EventWithZones{}, err
		}
	}

	now := s.clock.Now()
	startsAt := now
	if in.StartsAt != nil {
		startsAt = in.StartsAt.UTC()
	}

	event := domain.Event{
		ID:          newID(),
		CreatorID:   in.Creator.UserID,
		Name:        name,
		Venue:       strings.TrimSpace(in.Venue),
		Description: in.Description,
		StartsAt:    startsAt,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		CreatedAt:   now,
	}

	zones := make([]domain.Zone, 0, len(in.Zones))
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.CreateEvent(txCtx, event); err != nil {
			return err
		}
		for _, spec := range in.Zones {
			zone := newZone(event.ID, spec, now)
			if err := s.repo.CreateZone(txCtx, zone); err != nil {
				return err
			}
			zones = append(zones, zone)
		}
		return nil
	})
	if err != nil {
		return EventWithZones{}, err
	}
	return EventWithZones{Event: event, Zones: zones}, nil
}

// EventPatch carries optional changes to an event's non-sales fields.
type EventPatch struct {
	Name        *string
	Venue       *string
	Description *string
	StartsAt    *time.Time
	Latitude    *float64
	Longitude   *float64
}

// ZoneEdit updates an existing zone when ID is set and adds a new zone
// otherwise. CapacityTotal and UnitPrice are only accepted for new zones, or
// for existing zones when they equal the stored values.
type ZoneEdit struct {
	ID            string
	Name          *string
	IsActive      *bool
	UnitPrice     *int64
	CapacityTotal *int
}

type UpdateZonesInput struct {
	EventID string
	Caller  domain.Principal
	Event   *EventPatch
	Zones   []ZoneEdit
}

func (s *ZoneService) UpdateZones(ctx context.Context, in UpdateZonesInput) (EventWithZones, error) {
	if in.EventID == "" {
		return EventWithZones{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var result EventWithZones

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		event, err := s.repo.GetEventForUpdate(txCtx, in.EventID)
		if err != nil {
			return err
		}
		if !in.Caller.CanManage(event.CreatorID) {
			return domain.ErrForbidden
		}

		if in.Event != nil {
			if err := applyEventPatch(&event, *in.Event); err != nil {
				return err
			}
			if err := s.repo.UpdateEvent(txCtx, event); err != nil {
				return err
			}
		}

		existing, err := s.repo.ListZonesByEvent(txCtx, event.ID)
		if err != nil {
			return err
		}
		byID := make(map[string]domain.Zone, len(existing))
		for _, z := range existing {
			byID[z.ID] = z
		}

		for _, edit := range in.Zones {
			if edit.ID == "" {
				spec, err := specFromEdit(edit)
				if err != nil {
					return err
				}
				zone := newZone(event.ID, spec, now)
				if edit.IsActive != nil {
					zone.IsActive = *edit.IsActive
				}
				if err := s.repo.CreateZone(txCtx, zone); err != nil {
					return err
				}
				continue
			}

			zone, ok := byID[edit.ID]
			if !ok {
				return domain.ErrZoneNotFound
			}
			if edit.CapacityTotal != nil && *edit.CapacityTotal != zone.CapacityTotal {
				return domain.ErrZoneFieldImmutable
			}
			if edit.UnitPrice != nil && *edit.UnitPrice != zone.UnitPrice {
				return domain.ErrZoneFieldImmutable
			}
			if edit.Name != nil {
				name := strings.TrimSpace(*edit.Name)
				if name == "" {
					return domain.ErrZoneNameRequired
				}
				zone.Name = name
			}
			if edit.IsActive != nil {
				zone.IsActive = *edit.IsActive
			}
			if err := s.repo.UpdateZone(txCtx, zone); err != nil {
				return err
			}
		}

		zones, err := s.repo.ListZonesByEvent(txCtx, event.ID)
		if err != nil {
			return err
		}
		result = EventWithZones{Event: event, Zones: zones}
		return nil
	})
	if err != nil {
		return EventWithZones{}, err
	}
	return result, nil
}

type DeleteEventInput struct {
	EventID  string
	Caller   domain.Principal
	Password string
}

// DeleteEvent removes an event together with its zones, purchases and
// tickets. The caller must manage the event and re-enter their password.
func (s *ZoneService) DeleteEvent(ctx context.Context, in DeleteEventInput) error {
	if in.EventID == "" {
		return domain.ErrInvalidID
	}
	event, err := s.repo.GetEvent(ctx, in.EventID)
	if err != nil {
		return err
	}
	if !in.Caller.CanManage(event.CreatorID) {
		return domain.ErrForbidden
	}
	if in.Password == "" {
		return domain.ErrPasswordRequired
	}
	if err := s.passwords.VerifyPassword(ctx, in.Caller.UserID, in.Password); err != nil {
		return err
	}
	return s.repo.DeleteEvent(ctx, event.ID)
}

// ListManagedEvents returns sales summaries for the caller's events, or for
// every event when the caller is an admin.
func (s *ZoneService) ListManagedEvents(ctx context.Context, caller domain.Principal) ([]domain.EventSummary, error) {
	if caller.UserID == "" {
		return nil, domain.ErrForbidden
	}
	creatorID := caller.UserID
	if caller.IsAdmin() {
		creatorID = ""
	}
	return s.repo.ListEventSummaries(ctx, creatorID)
}

func validateZoneSpec(spec ZoneSpec) error {
	if strings.TrimSpace(spec.Name) == "" {
		return domain.ErrZoneNameRequired
	}
	if spec.CapacityTotal <= 0 {
		return domain.ErrInvalidCapacity
	}
	if spec.UnitPrice < 0 {
		return domain.ErrInvalidPrice
	}
	return nil
}

func specFromEdit(edit ZoneEdit) (ZoneSpec, error) {
	spec := ZoneSpec{}
	if edit.Name != nil {
		spec.Name = *edit.Name
	}
	if edit.CapacityTotal == nil {
		return ZoneSpec{}, domain.ErrInvalidCapacity
	}
	spec.CapacityTotal = *edit.CapacityTotal
	if edit.UnitPrice == nil {
		return ZoneSpec{}, domain.ErrInvalidPrice
	}
	spec.UnitPrice = *edit.UnitPrice
	if err := validateZoneSpec(spec); err != nil {
		return ZoneSpec{}, err
	}
	return spec, nil
}

func newZone(eventID string, spec ZoneSpec, now time.Time) domain.Zone {
	return domain.Zone{
		ID:            newID(),
		EventID:       eventID,
		Name:          strings.TrimSpace(spec.Name),
		UnitPrice:     spec.UnitPrice,
		CapacityTotal: spec.CapacityTotal,
		UnitsSold:     0,
		IsActive:      true,
		CreatedAt:     now,
	}
}

func applyEventPatch(event *domain.Event, patch EventPatch) error {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return domain.ErrEventNameRequired
		}
		event.Name = name
	}
	if patch.Venue != nil {
		event.Venue = strings.TrimSpace(*patch.Venue)
	}
	if patch.Description != nil {
		event.Description = *patch.Description
	}
	if patch.StartsAt != nil {
		event.StartsAt = patch.StartsAt.UTC()
	}
	if patch.Latitude != nil {
		lat := *patch.Latitude
		event.Latitude = &lat
	}
	if patch.Longitude != nil {
		lng := *patch.Longitude
		event.Longitude = &lng
	}
	return nil
}
