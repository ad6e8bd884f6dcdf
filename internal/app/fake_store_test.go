package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/polieventos/ticketing/internal/domain"
	"github.com/polieventos/ticketing/internal/notify"
)

type txKey struct{}

// fakeStore is an in-memory stand-in for Postgres. WithTx serializes
// transactions behind one mutex and restores a snapshot when fn fails.
type fakeStore struct {
	mu        sync.Mutex
	events    map[string]domain.Event
	zones     map[string]domain.Zone
	purchases map[string]domain.Purchase
	tickets   map[string]domain.Ticket

	// failTicketInsert fails the n-th ticket insert (1-based) when set.
	failTicketInsert int
	// collisions makes the next n ticket inserts report a code conflict.
	collisions int
	inserts    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:    make(map[string]domain.Event),
		zones:     make(map[string]domain.Zone),
		purchases: make(map[string]domain.Purchase),
		tickets:   make(map[string]domain.Ticket),
	}
}

func (f *fakeStore) addEvent(id, creatorID string) domain.Event {
	e := domain.Event{ID: id, CreatorID: creatorID, Name: "Concierto " + id, Venue: "Coliseo", StartsAt: time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)}
	f.events[id] = e
	return e
}

func (f *fakeStore) addZone(id, eventID string, capacity, sold int, price int64) domain.Zone {
	z := domain.Zone{ID: id, EventID: eventID, Name: "Zona " + id, UnitPrice: price, CapacityTotal: capacity, UnitsSold: sold, IsActive: true}
	f.zones[id] = z
	return z
}

func (f *fakeStore) lock(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		return func() {}
	}
	f.mu.Lock()
	return f.mu.Unlock
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	events := cloneMap(f.events)
	zones := cloneMap(f.zones)
	purchases := cloneMap(f.purchases)
	tickets := cloneMap(f.tickets)

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		f.events, f.zones, f.purchases, f.tickets = events, zones, purchases, tickets
		return err
	}
	return nil
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (f *fakeStore) GetZoneForUpdate(ctx context.Context, zoneID string) (domain.Zone, domain.Event, error) {
	defer f.lock(ctx)()
	z, ok := f.zones[zoneID]
	if !ok {
		return domain.Zone{}, domain.Event{}, domain.ErrZoneNotFound
	}
	return z, f.events[z.EventID], nil
}

func (f *fakeStore) GetZone(ctx context.Context, zoneID string) (domain.Zone, error) {
	defer f.lock(ctx)()
	z, ok := f.zones[zoneID]
	if !ok {
		return domain.Zone{}, domain.ErrZoneNotFound
	}
	return z, nil
}

func (f *fakeStore) IncrementUnitsSold(ctx context.Context, zoneID string, quantity int) error {
	defer f.lock(ctx)()
	z, ok := f.zones[zoneID]
	if !ok {
		return domain.ErrZoneNotFound
	}
	if z.UnitsSold+quantity > z.CapacityTotal {
		return errors.New("units_sold check constraint")
	}
	z.UnitsSold += quantity
	f.zones[zoneID] = z
	return nil
}

func (f *fakeStore) CreatePurchase(ctx context.Context, p domain.Purchase) error {
	defer f.lock(ctx)()
	f.purchases[p.ID] = p
	return nil
}

func (f *fakeStore) InsertTicket(ctx context.Context, t domain.Ticket) (bool, error) {
	defer f.lock(ctx)()
	f.inserts++
	if f.failTicketInsert > 0 && f.inserts == f.failTicketInsert {
		return false, errors.New("insert ticket: connection reset")
	}
	if f.collisions > 0 {
		f.collisions--
		return false, nil
	}
	for _, existing := range f.tickets {
		if existing.RedemptionCode == t.RedemptionCode {
			return false, nil
		}
	}
	f.tickets[t.ID] = t
	return true, nil
}

func (f *fakeStore) GetPurchase(ctx context.Context, purchaseID string) (domain.PurchaseDetail, error) {
	defer f.lock(ctx)()
	p, ok := f.purchases[purchaseID]
	if !ok {
		return domain.PurchaseDetail{}, domain.ErrPurchaseNotFound
	}
	return f.detail(p), nil
}

func (f *fakeStore) detail(p domain.Purchase) domain.PurchaseDetail {
	z := f.zones[p.ZoneID]
	e := f.events[z.EventID]
	return domain.PurchaseDetail{
		Purchase:      p,
		ZoneName:      z.Name,
		UnitPrice:     z.UnitPrice,
		EventID:       e.ID,
		EventName:     e.Name,
		EventVenue:    e.Venue,
		EventStartsAt: e.StartsAt,
	}
}

func (f *fakeStore) ListPurchasesByBuyer(ctx context.Context, buyerID string) ([]domain.PurchaseDetail, error) {
	defer f.lock(ctx)()
	var out []domain.PurchaseDetail
	for _, p := range f.purchases {
		if p.BuyerID == buyerID {
			out = append(out, f.detail(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Purchase.ID < out[j].Purchase.ID })
	return out, nil
}

func (f *fakeStore) ListByPurchase(ctx context.Context, purchaseID string) ([]domain.Ticket, error) {
	defer f.lock(ctx)()
	var out []domain.Ticket
	for _, t := range f.tickets {
		if t.PurchaseID == purchaseID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RedemptionCode < out[j].RedemptionCode })
	return out, nil
}

func (f *fakeStore) ticketContext(code string) (domain.TicketContext, error) {
	for _, t := range f.tickets {
		if t.RedemptionCode != code {
			continue
		}
		p := f.purchases[t.PurchaseID]
		z := f.zones[p.ZoneID]
		e := f.events[z.EventID]
		return domain.TicketContext{
			Ticket:        t,
			BuyerID:       p.BuyerID,
			ZoneID:        z.ID,
			ZoneName:      z.Name,
			EventID:       e.ID,
			EventName:     e.Name,
			EventVenue:    e.Venue,
			EventStartsAt: e.StartsAt,
			CreatorID:     e.CreatorID,
		}, nil
	}
	return domain.TicketContext{}, domain.ErrTicketNotFound
}

func (f *fakeStore) GetTicketForUpdate(ctx context.Context, code string) (domain.TicketContext, error) {
	defer f.lock(ctx)()
	return f.ticketContext(code)
}

func (f *fakeStore) FindByCode(ctx context.Context, code string) (domain.TicketContext, error) {
	defer f.lock(ctx)()
	return f.ticketContext(code)
}

func (f *fakeStore) MarkTicketUsed(ctx context.Context, ticketID string, at time.Time) error {
	defer f.lock(ctx)()
	t, ok := f.tickets[ticketID]
	if !ok || t.State != domain.TicketStateValid {
		return domain.ErrInvalidTransition
	}
	t.State = domain.TicketStateUsed
	t.RedeemedAt = &at
	f.tickets[ticketID] = t
	return nil
}

func (f *fakeStore) CreateEvent(ctx context.Context, e domain.Event) error {
	defer f.lock(ctx)()
	f.events[e.ID] = e
	return nil
}

func (f *fakeStore) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	defer f.lock(ctx)()
	e, ok := f.events[eventID]
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return e, nil
}

func (f *fakeStore) GetEventForUpdate(ctx context.Context, eventID string) (domain.Event, error) {
	return f.GetEvent(ctx, eventID)
}

func (f *fakeStore) UpdateEvent(ctx context.Context, e domain.Event) error {
	defer f.lock(ctx)()
	if _, ok := f.events[e.ID]; !ok {
		return domain.ErrEventNotFound
	}
	f.events[e.ID] = e
	return nil
}

// DeleteEvent mirrors the ON DELETE CASCADE chain.
func (f *fakeStore) DeleteEvent(ctx context.Context, eventID string) error {
	defer f.lock(ctx)()
	if _, ok := f.events[eventID]; !ok {
		return domain.ErrEventNotFound
	}
	delete(f.events, eventID)
	for zid, z := range f.zones {
		if z.EventID != eventID {
			continue
		}
		delete(f.zones, zid)
		for pid, p := range f.purchases {
			if p.ZoneID != zid {
				continue
			}
			delete(f.purchases, pid)
			for tid, t := range f.tickets {
				if t.PurchaseID == pid {
					delete(f.tickets, tid)
				}
			}
		}
	}
	return nil
}

func (f *fakeStore) CreateZone(ctx context.Context, z domain.Zone) error {
	defer f.lock(ctx)()
	for _, existing := range f.zones {
		if existing.EventID == z.EventID && existing.Name == z.Name {
			return domain.ErrZoneAlreadyExists
		}
	}
	f.zones[z.ID] = z
	return nil
}

func (f *fakeStore) UpdateZone(ctx context.Context, z domain.Zone) error {
	defer f.lock(ctx)()
	if _, ok := f.zones[z.ID]; !ok {
		return domain.ErrZoneNotFound
	}
	f.zones[z.ID] = z
	return nil
}

func (f *fakeStore) ListZonesByEvent(ctx context.Context, eventID string) ([]domain.Zone, error) {
	defer f.lock(ctx)()
	if _, ok := f.events[eventID]; !ok {
		return nil, domain.ErrEventNotFound
	}
	var out []domain.Zone
	for _, z := range f.zones {
		if z.EventID == eventID {
			out = append(out, z)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) ListEventSummaries(ctx context.Context, creatorID string) ([]domain.EventSummary, error) {
	defer f.lock(ctx)()
	var out []domain.EventSummary
	for _, e := range f.events {
		if creatorID != "" && e.CreatorID != creatorID {
			continue
		}
		s := domain.EventSummary{Event: e}
		for _, z := range f.zones {
			if z.EventID != e.ID {
				continue
			}
			s.ZoneCount++
			s.CapacityTotal += z.CapacityTotal
			s.UnitsSold += z.UnitsSold
			s.Revenue += int64(z.UnitsSold) * z.UnitPrice
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Event.ID < out[j].Event.ID })
	return out, nil
}

type fakeNotifier struct {
	mu         sync.Mutex
	refuse     bool
	deliverErr error
	queued     []notify.Notification
	delivered  []notify.Notification
}

func (n *fakeNotifier) Enqueue(msg notify.Notification) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.refuse {
		return false
	}
	n.queued = append(n.queued, msg)
	return true
}

func (n *fakeNotifier) Deliver(_ context.Context, msg notify.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.deliverErr != nil {
		return n.deliverErr
	}
	n.delivered = append(n.delivered, msg)
	return nil
}
