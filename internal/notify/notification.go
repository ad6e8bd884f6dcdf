// Package notify renders purchased tickets into a document and delivers them
// to the buyer out-of-band. Delivery is best-effort: nothing here can undo a
// committed purchase.
package notify

import (
	"fmt"
	"time"
)

// Notification is everything needed to deliver one purchase's tickets.
type Notification struct {
	Codes    []string
	Event    EventInfo
	Buyer    BuyerInfo
	Zone     ZoneInfo
	Purchase PurchaseInfo
}

type EventInfo struct {
	Name     string
	StartsAt time.Time
	Venue    string
}

type BuyerInfo struct {
	Name  string
	Email string
}

type ZoneInfo struct {
	Name      string
	UnitPrice int64
}

type PurchaseInfo struct {
	ID       string
	Total    int64
	Quantity int
}

func (n Notification) validate() error {
	if len(n.Codes) == 0 {
		return fmt.Errorf("notification for purchase %s has no codes", n.Purchase.ID)
	}
	if n.Buyer.Email == "" {
		return fmt.Errorf("notification for purchase %s has no recipient", n.Purchase.ID)
	}
	return nil
}

// formatAmount renders minor currency units as a decimal string.
func formatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}
