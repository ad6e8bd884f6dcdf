package domain

import "time"

type TicketState string

const (
	TicketStateValid TicketState = "VALID"
	TicketStateUsed  TicketState = "USED"
)

// CanTransition reports whether a ticket may move from one state to another.
// The only transition is VALID -> USED.
func (s TicketState) CanTransition(to TicketState) bool {
	return s == TicketStateValid && to == TicketStateUsed
}

// Ticket is one admit-one unit.
type Ticket struct {
	ID             string
	PurchaseID     string
	RedemptionCode string
	State          TicketState
	RedeemedAt     *time.Time
	CreatedAt      time.Time
}

// TicketContext is a ticket joined through purchase and zone to its event.
type TicketContext struct {
	Ticket        Ticket
	BuyerID       string
	ZoneID        string
	ZoneName      string
	EventID       string
	EventName     string
	EventVenue    string
	EventStartsAt time.Time
	CreatorID     string
}

type RedemptionReason string

const (
	ReasonGranted     RedemptionReason = "GRANTED"
	ReasonAlreadyUsed RedemptionReason = "ALREADY_USED"
	ReasonForbidden   RedemptionReason = "FORBIDDEN"
	ReasonInvalidCode RedemptionReason = "INVALID_CODE"
)

// Verdict is the outcome of presenting a code at the door. Ticket is only
// set when the requester is allowed to see it.
type Verdict struct {
	Granted bool
	Reason  RedemptionReason
	Ticket  *TicketContext
}
