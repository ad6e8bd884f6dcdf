package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/polieventos/ticketing/internal/clock"
	"github.com/polieventos/ticketing/internal/domain"
	"github.com/polieventos/ticketing/internal/notify"
)

type PurchaseRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetZoneForUpdate(ctx context.Context, zoneID string) (domain.Zone, domain.Event, error)
	IncrementUnitsSold(ctx context.Context, zoneID string, quantity int) error
	CreatePurchase(ctx context.Context, purchase domain.Purchase) error
	InsertTicket(ctx context.Context, ticket domain.Ticket) (bool, error)
	GetPurchase(ctx context.Context, purchaseID string) (domain.PurchaseDetail, error)
	ListPurchasesByBuyer(ctx context.Context, buyerID string) ([]domain.PurchaseDetail, error)
	ListByPurchase(ctx context.Context, purchaseID string) ([]domain.Ticket, error)
}

// Notifier hands minted tickets to the delivery pipeline.
type Notifier interface {
	Enqueue(n notify.Notification) bool
	Deliver(ctx context.Context, n notify.Notification) error
}

type PurchaseService struct {
	repo        PurchaseRepository
	notifier    Notifier
	clock       clock.Clock
	logger      *slog.Logger
	maxQuantity int
}

const defaultMaxQuantity = 20

type PurchaseServiceOption func(*PurchaseService)

// WithMaxQuantity caps the number of tickets a single purchase may mint.
func WithMaxQuantity(n int) PurchaseServiceOption {
	return func(s *PurchaseService) {
		if n > 0 {
			s.maxQuantity = n
		}
	}
}

// WithPurchaseLogger sets the logger used for post-commit delivery problems.
func WithPurchaseLogger(logger *slog.Logger) PurchaseServiceOption {
	return func(s *PurchaseService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewPurchaseService(repo PurchaseRepository, notifier Notifier, clk clock.Clock, opts ...PurchaseServiceOption) *PurchaseService {
	svc := &PurchaseService{
		repo:        repo,
		notifier:    notifier,
		clock:       clk,
		logger:      slog.Default(),
		maxQuantity: defaultMaxQuantity,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type PurchaseInput struct {
	Buyer    domain.Principal
	ZoneID   string
	Quantity int
}

type PurchaseResult struct {
	Purchase        domain.Purchase
	RedemptionCodes []string
	// DeliveryQueued is false when the sale committed but the tickets could
	// not be handed to the dispatcher; delivery may be delayed.
	DeliveryQueued bool
}

// Purchase sells Quantity units of a zone and mints one ticket per unit. The
// inventory check, the decrement, the purchase row and every ticket commit
// together or not at all.
func (s *PurchaseService) Purchase(ctx context.Context, in PurchaseInput) (PurchaseResult, error) {
	if in.Quantity < 1 || in.Quantity > s.maxQuantity {
		return PurchaseResult{}, domain.ErrInvalidQuantity
	}
	if in.Buyer.UserID == "" {
		return PurchaseResult{}, domain.ErrForbidden
	}
	if in.ZoneID == "" {
		return PurchaseResult{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var (
		purchase domain.Purchase
		codes    []string
		zone     domain.Zone
		event    domain.Event
	)

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		zone, event, err = s.repo.GetZoneForUpdate(txCtx, in.ZoneID)
		if err != nil {
			return err
		}
		if !zone.IsActive {
			return domain.ErrZoneNotFound
		}

		available := zone.Available()
		if available < in.Quantity {
			return &domain.InsufficientInventoryError{Requested: in.Quantity, Available: available}
		}

		if err := s.repo.IncrementUnitsSold(txCtx, zone.ID, in.Quantity); err != nil {
			return err
		}

		purchase = domain.Purchase{
			ID:          newID(),
			BuyerID:     in.Buyer.UserID,
			ZoneID:      zone.ID,
			Quantity:    in.Quantity,
			TotalAmount: zone.UnitPrice * int64(in.Quantity),
			PurchasedAt: now,
		}
		if err := s.repo.CreatePurchase(txCtx, purchase); err != nil {
			return err
		}

		codes = make([]string, 0, in.Quantity)
		for i := 0; i < in.Quantity; i++ {
			code, err := s.mintTicket(txCtx, purchase.ID, now)
			if err != nil {
				return err
			}
			codes = append(codes, code)
		}
		return nil
	})
	if err != nil {
		return PurchaseResult{}, err
	}

	queued := s.notifier.Enqueue(notification(codes, purchase, zone.Name, zone.UnitPrice, event.Name, event.Venue, event.StartsAt, in.Buyer))
	if !queued {
		s.logger.Warn("purchase committed but ticket delivery was not queued",
			"purchase_id", purchase.ID,
			"zone_id", zone.ID,
			"tickets", len(codes),
		)
	}

	return PurchaseResult{
		Purchase:        purchase,
		RedemptionCodes: codes,
		DeliveryQueued:  queued,
	}, nil
}

func (s *PurchaseService) mintTicket(ctx context.Context, purchaseID string, now time.Time) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		ticket := domain.Ticket{
			ID:             newID(),
			PurchaseID:     purchaseID,
			RedemptionCode: newRedemptionCode(),
			State:          domain.TicketStateValid,
			CreatedAt:      now,
		}
		inserted, err := s.repo.InsertTicket(ctx, ticket)
		if err != nil {
			return "", err
		}
		if inserted {
			return ticket.RedemptionCode, nil
		}
	}
	return "", fmt.Errorf("mint ticket for purchase %s: no unique code after %d attempts", purchaseID, maxCodeAttempts)
}

type ResendResult struct {
	Delivered bool
}

// ResendNotification re-delivers the tickets already minted for a purchase.
// It never mints or mutates anything.
func (s *PurchaseService) ResendNotification(ctx context.Context, purchaseID string, requester domain.Principal) (ResendResult, error) {
	if purchaseID == "" {
		return ResendResult{}, domain.ErrInvalidID
	}

	detail, err := s.repo.GetPurchase(ctx, purchaseID)
	if err != nil {
		return ResendResult{}, err
	}
	if requester.UserID == "" || detail.Purchase.BuyerID != requester.UserID {
		return ResendResult{}, domain.ErrForbidden
	}

	tickets, err := s.repo.ListByPurchase(ctx, purchaseID)
	if err != nil {
		return ResendResult{}, err
	}
	if len(tickets) == 0 {
		return ResendResult{}, domain.ErrNoTicketsMinted
	}

	codes := make([]string, 0, len(tickets))
	for _, t := range tickets {
		codes = append(codes, t.RedemptionCode)
	}

	n := notification(codes, detail.Purchase, detail.ZoneName, detail.UnitPrice, detail.EventName, detail.EventVenue, detail.EventStartsAt, requester)
	if err := s.notifier.Deliver(ctx, n); err != nil {
		s.logger.Error("ticket re-delivery failed", "purchase_id", purchaseID, "err", err)
		return ResendResult{Delivered: false}, nil
	}
	return ResendResult{Delivered: true}, nil
}

// ListPurchases returns the buyer's purchases with their tickets, newest first.
func (s *PurchaseService) ListPurchases(ctx context.Context, buyerID string) ([]domain.PurchaseDetail, error) {
	if buyerID == "" {
		return nil, domain.ErrForbidden
	}
	details, err := s.repo.ListPurchasesByBuyer(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	for i := range details {
		tickets, err := s.repo.ListByPurchase(ctx, details[i].Purchase.ID)
		if err != nil {
			return nil, err
		}
		details[i].Tickets = tickets
	}
	return details, nil
}

func notification(codes []string, p domain.Purchase, zoneName string, unitPrice int64, eventName, venue string, startsAt time.Time, buyer domain.Principal) notify.Notification {
	return notify.Notification{
		Codes: codes,
		Event: notify.EventInfo{Name: eventName, StartsAt: startsAt, Venue: venue},
		Buyer: notify.BuyerInfo{Name: buyer.Name, Email: buyer.Email},
		Zone:  notify.ZoneInfo{Name: zoneName, UnitPrice: unitPrice},
		Purchase: notify.PurchaseInfo{
			ID:       p.ID,
			Total:    p.TotalAmount,
			Quantity: p.Quantity,
		},
	}
}
