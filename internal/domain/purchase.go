package domain

import "time"

// Purchase is one buyer transaction for Quantity units of a single zone.
// It owns exactly Quantity tickets.
type Purchase struct {
	ID          string
	BuyerID     string
	ZoneID      string
	Quantity    int
	TotalAmount int64
	PurchasedAt time.Time
}

// PurchaseDetail is a purchase with the context a buyer needs to see it.
type PurchaseDetail struct {
	Purchase      Purchase
	ZoneName      string
	UnitPrice     int64
	EventID       string
	EventName     string
	EventVenue    string
	EventStartsAt time.Time
	Tickets       []Ticket
}
