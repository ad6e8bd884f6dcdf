package domain

import (
	"errors"
	"fmt"
)

var (
	ErrZoneNotFound          = errors.New("zone not found")
	ErrEventNotFound         = errors.New("event not found")
	ErrPurchaseNotFound      = errors.New("purchase not found")
	ErrTicketNotFound        = errors.New("ticket not found")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrInvalidQuantity       = errors.New("invalid quantity")
	ErrForbidden             = errors.New("forbidden")
	ErrBusy                  = errors.New("zone busy, retry later")
	ErrNoTicketsMinted       = errors.New("purchase has no minted tickets")
	ErrInvalidID             = errors.New("invalid id")
	ErrInvalidCode           = errors.New("invalid redemption code")
	ErrEventNameRequired     = errors.New("event name required")
	ErrZonesRequired         = errors.New("at least one zone required")
	ErrZoneNameRequired      = errors.New("zone name required")
	ErrInvalidCapacity       = errors.New("invalid capacity")
	ErrInvalidPrice          = errors.New("invalid unit price")
	ErrZoneFieldImmutable    = errors.New("capacity and unit price of an existing zone cannot change")
	ErrZoneAlreadyExists     = errors.New("zone already exists")
	ErrPasswordRequired      = errors.New("password confirmation required")
	ErrInvalidPassword       = errors.New("invalid password")
	ErrInvalidTransition     = errors.New("invalid ticket state transition")
)

// InsufficientInventoryError carries the remaining count observed under the
// zone lock. It matches ErrInsufficientInventory with errors.Is.
type InsufficientInventoryError struct {
	Requested int
	Available int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory: requested %d, available %d", e.Requested, e.Available)
}

func (e *InsufficientInventoryError) Is(target error) bool {
	return target == ErrInsufficientInventory
}
