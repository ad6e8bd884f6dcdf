package domain

import "time"

// Event represents a ticketed event. CreatorID is the sole authorization
// anchor for managing its zones and validating its tickets.
type Event struct {
	ID          string
	CreatorID   string
	Name        string
	Venue       string
	Description string
	StartsAt    time.Time
	Latitude    *float64
	Longitude   *float64
	CreatedAt   time.Time
}

// EventSummary aggregates sales figures for an organizer's dashboard.
type EventSummary struct {
	Event         Event
	ZoneCount     int
	CapacityTotal int
	UnitsSold     int
	Revenue       int64
}
