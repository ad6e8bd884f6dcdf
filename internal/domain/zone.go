package domain

import "time"

// Zone represents a priced capacity pool within an event (no seat-level selection).
// UnitPrice is expressed in minor currency units.
type Zone struct {
	ID            string
	EventID       string
	Name          string
	UnitPrice     int64
	CapacityTotal int
	UnitsSold     int
	IsActive      bool
	CreatedAt     time.Time
}

// Available returns the units left to sell.
func (z Zone) Available() int {
	return z.CapacityTotal - z.UnitsSold
}

// ZoneAvailability is a point-in-time, unlocked view of a zone's inventory.
type ZoneAvailability struct {
	Zone      Zone
	Available int
}
