package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/polieventos/ticketing/internal/clock"
	"github.com/polieventos/ticketing/internal/domain"
)

type RedemptionRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetTicketForUpdate(ctx context.Context, code string) (domain.TicketContext, error)
	MarkTicketUsed(ctx context.Context, ticketID string, at time.Time) error
	FindByCode(ctx context.Context, code string) (domain.TicketContext, error)
}

// RedemptionService validates tickets at the door. It is the only writer of
// ticket state.
type RedemptionService struct {
	repo   RedemptionRepository
	clock  clock.Clock
	logger *slog.Logger
}

func NewRedemptionService(repo RedemptionRepository, clk clock.Clock, logger *slog.Logger) *RedemptionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedemptionService{
		repo:   repo,
		clock:  clk,
		logger: logger,
	}
}

// Redeem consumes the ticket identified by code if the requester manages its
// event. Business outcomes are reported in the verdict; only storage failures
// are returned as errors.
func (s *RedemptionService) Redeem(ctx context.Context, code string, requester domain.Principal) (domain.Verdict, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.Verdict{Reason: domain.ReasonInvalidCode}, nil
	}

	var verdict domain.Verdict
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		tc, err := s.repo.GetTicketForUpdate(txCtx, code)
		if errors.Is(err, domain.ErrTicketNotFound) {
			verdict = domain.Verdict{Reason: domain.ReasonInvalidCode}
			return nil
		}
		if err != nil {
			return err
		}

		if !requester.CanManage(tc.CreatorID) {
			verdict = domain.Verdict{Reason: domain.ReasonForbidden}
			return nil
		}

		if tc.Ticket.State == domain.TicketStateUsed {
			verdict = domain.Verdict{Reason: domain.ReasonAlreadyUsed, Ticket: &tc}
			return nil
		}
		if !tc.Ticket.State.CanTransition(domain.TicketStateUsed) {
			return domain.ErrInvalidTransition
		}

		now := s.clock.Now()
		if err := s.repo.MarkTicketUsed(txCtx, tc.Ticket.ID, now); err != nil {
			return err
		}
		tc.Ticket.State = domain.TicketStateUsed
		tc.Ticket.RedeemedAt = &now
		verdict = domain.Verdict{Granted: true, Reason: domain.ReasonGranted, Ticket: &tc}
		return nil
	})
	if err != nil {
		return domain.Verdict{}, err
	}

	s.logger.Info("ticket redemption",
		"granted", verdict.Granted,
		"reason", string(verdict.Reason),
		"requester_id", requester.UserID,
	)
	return verdict, nil
}

// Inspect returns a ticket's current state without consuming it. The buyer
// and the event's managers may look; everyone else gets ErrTicketNotFound,
// the same answer as for an unknown code.
func (s *RedemptionService) Inspect(ctx context.Context, code string, requester domain.Principal) (domain.TicketContext, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.TicketContext{}, domain.ErrInvalidCode
	}

	tc, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return domain.TicketContext{}, err
	}
	if requester.UserID == "" || (tc.BuyerID != requester.UserID && !requester.CanManage(tc.CreatorID)) {
		return domain.TicketContext{}, domain.ErrTicketNotFound
	}
	return tc, nil
}
