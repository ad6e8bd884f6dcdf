package http

import (
	"context"
	"time"

	"github.com/polieventos/ticketing/internal/app"
	"github.com/polieventos/ticketing/internal/domain"
)

type fakePurchaser struct {
	lastInput   app.PurchaseInput
	hadDeadline bool
	result      app.PurchaseResult
	err         error

	resendID  string
	resendBy  domain.Principal
	resendErr error

	details []domain.PurchaseDetail
	listFor string
}

func (f *fakePurchaser) Purchase(ctx context.Context, in app.PurchaseInput) (app.PurchaseResult, error) {
	f.lastInput = in
	_, f.hadDeadline = ctx.Deadline()
	return f.result, f.err
}

func (f *fakePurchaser) ResendNotification(_ context.Context, purchaseID string, requester domain.Principal) (app.ResendResult, error) {
	f.resendID = purchaseID
	f.resendBy = requester
	if f.resendErr != nil {
		return app.ResendResult{}, f.resendErr
	}
	return app.ResendResult{Delivered: true}, nil
}

func (f *fakePurchaser) ListPurchases(_ context.Context, buyerID string) ([]domain.PurchaseDetail, error) {
	f.listFor = buyerID
	return f.details, nil
}

type fakeRedeemer struct {
	verdict  domain.Verdict
	inspect  domain.TicketContext
	err      error
	lastCode string
	lastBy   domain.Principal
}

func (f *fakeRedeemer) Redeem(_ context.Context, code string, requester domain.Principal) (domain.Verdict, error) {
	f.lastCode = code
	f.lastBy = requester
	return f.verdict, f.err
}

func (f *fakeRedeemer) Inspect(_ context.Context, code string, requester domain.Principal) (domain.TicketContext, error) {
	f.lastCode = code
	f.lastBy = requester
	return f.inspect, f.err
}

type fakeZoneManager struct {
	created   app.CreateEventInput
	updated   app.UpdateZonesInput
	deleted   app.DeleteEventInput
	listedFor domain.Principal
	summaries []domain.EventSummary
	err       error
}

func (f *fakeZoneManager) CreateEvent(_ context.Context, in app.CreateEventInput) (app.EventWithZones, error) {
	f.created = in
	if f.err != nil {
		return app.EventWithZones{}, f.err
	}
	out := app.EventWithZones{Event: domain.Event{ID: "ev-1", CreatorID: in.Creator.UserID, Name: in.Name}}
	for i, spec := range in.Zones {
		out.Zones = append(out.Zones, domain.Zone{
			ID:            "zone-" + string(rune('a'+i)),
			EventID:       "ev-1",
			Name:          spec.Name,
			UnitPrice:     spec.UnitPrice,
			CapacityTotal: spec.CapacityTotal,
			IsActive:      true,
		})
	}
	return out, nil
}

func (f *fakeZoneManager) UpdateZones(_ context.Context, in app.UpdateZonesInput) (app.EventWithZones, error) {
	f.updated = in
	if f.err != nil {
		return app.EventWithZones{}, f.err
	}
	return app.EventWithZones{Event: domain.Event{ID: in.EventID}}, nil
}

func (f *fakeZoneManager) DeleteEvent(_ context.Context, in app.DeleteEventInput) error {
	f.deleted = in
	return f.err
}

func (f *fakeZoneManager) ListManagedEvents(_ context.Context, caller domain.Principal) ([]domain.EventSummary, error) {
	f.listedFor = caller
	return f.summaries, f.err
}

type fakeInventory struct {
	zones           map[string]domain.Zone
	includeInactive bool
}

func (f *fakeInventory) Availability(_ context.Context, zoneID string) (domain.ZoneAvailability, error) {
	z, ok := f.zones[zoneID]
	if !ok {
		return domain.ZoneAvailability{}, domain.ErrZoneNotFound
	}
	return domain.ZoneAvailability{Zone: z, Available: z.Available()}, nil
}

func (f *fakeInventory) ListEventZones(_ context.Context, eventID string, includeInactive bool) ([]domain.ZoneAvailability, error) {
	f.includeInactive = includeInactive
	var out []domain.ZoneAvailability
	found := false
	for _, z := range f.zones {
		if z.EventID != eventID {
			continue
		}
		found = true
		if !z.IsActive && !includeInactive {
			continue
		}
		out = append(out, domain.ZoneAvailability{Zone: z, Available: z.Available()})
	}
	if !found {
		return nil, domain.ErrEventNotFound
	}
	return out, nil
}

var fixedTime = time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)

var testTokens = staticVerifier{
	"buyer":     {UserID: "buyer-1", Role: domain.RoleBuyer},
	"organizer": {UserID: "org-1", Role: domain.RoleOrganizer, SubscriptionActive: true},
	"lapsed":    {UserID: "org-2", Role: domain.RoleOrganizer},
	"admin":     {UserID: "admin-1", Role: domain.RoleAdmin},
}
