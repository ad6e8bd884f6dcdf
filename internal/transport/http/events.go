package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/polieventos/ticketing/internal/app"
	"github.com/polieventos/ticketing/internal/domain"
)

// ZoneManager is the minimal interface the organizer endpoints need.
type ZoneManager interface {
	CreateEvent(ctx context.Context, in app.CreateEventInput) (app.EventWithZones, error)
	UpdateZones(ctx context.Context, in app.UpdateZonesInput) (app.EventWithZones, error)
	DeleteEvent(ctx context.Context, in app.DeleteEventInput) error
	ListManagedEvents(ctx context.Context, caller domain.Principal) ([]domain.EventSummary, error)
}

// InventoryReader is the minimal interface the public availability
// endpoints need.
type InventoryReader interface {
	Availability(ctx context.Context, zoneID string) (domain.ZoneAvailability, error)
	ListEventZones(ctx context.Context, eventID string, includeInactive bool) ([]domain.ZoneAvailability, error)
}

type zoneSpecRequest struct {
	Name          string `json:"name"`
	UnitPrice     int64  `json:"unit_price"`
	CapacityTotal int    `json:"capacity_total"`
}

type createEventRequest struct {
	Name        string            `json:"name"`
	Venue       string            `json:"venue,omitempty"`
	Description string            `json:"description,omitempty"`
	StartsAt    string            `json:"starts_at,omitempty"`
	Latitude    *float64          `json:"latitude,omitempty"`
	Longitude   *float64          `json:"longitude,omitempty"`
	Zones       []zoneSpecRequest `json:"zones"`
}

type eventPatchRequest struct {
	Name        *string  `json:"name,omitempty"`
	Venue       *string  `json:"venue,omitempty"`
	Description *string  `json:"description,omitempty"`
	StartsAt    *string  `json:"starts_at,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

type zoneEditRequest struct {
	ID            string  `json:"id,omitempty"`
	Name          *string `json:"name,omitempty"`
	IsActive      *bool   `json:"is_active,omitempty"`
	UnitPrice     *int64  `json:"unit_price,omitempty"`
	CapacityTotal *int    `json:"capacity_total,omitempty"`
}

type updateZonesRequest struct {
	Event *eventPatchRequest `json:"event,omitempty"`
	Zones []zoneEditRequest  `json:"zones"`
}

type deleteEventRequest struct {
	Password string `json:"password"`
}

type zoneResponse struct {
	ID            string `json:"id"`
	EventID       string `json:"event_id"`
	Name          string `json:"name"`
	UnitPrice     int64  `json:"unit_price"`
	CapacityTotal int    `json:"capacity_total"`
	UnitsSold     int    `json:"units_sold"`
	Available     int    `json:"available"`
	IsActive      bool   `json:"is_active"`
}

type eventResponse struct {
	ID          string         `json:"id"`
	CreatorID   string         `json:"creator_id"`
	Name        string         `json:"name"`
	Venue       string         `json:"venue"`
	Description string         `json:"description"`
	StartsAt    time.Time      `json:"starts_at"`
	Latitude    *float64       `json:"latitude,omitempty"`
	Longitude   *float64       `json:"longitude,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	Zones       []zoneResponse `json:"zones"`
}

type eventSummaryResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Venue         string    `json:"venue"`
	StartsAt      time.Time `json:"starts_at"`
	ZoneCount     int       `json:"zone_count"`
	CapacityTotal int       `json:"capacity_total"`
	UnitsSold     int       `json:"units_sold"`
	Revenue       int64     `json:"revenue"`
}

func newZoneResponse(z domain.Zone) zoneResponse {
	return zoneResponse{
		ID:            z.ID,
		EventID:       z.EventID,
		Name:          z.Name,
		UnitPrice:     z.UnitPrice,
		CapacityTotal: z.CapacityTotal,
		UnitsSold:     z.UnitsSold,
		Available:     z.Available(),
		IsActive:      z.IsActive,
	}
}

func newEventResponse(ez app.EventWithZones) eventResponse {
	zones := make([]zoneResponse, 0, len(ez.Zones))
	for _, z := range ez.Zones {
		zones = append(zones, newZoneResponse(z))
	}
	e := ez.Event
	return eventResponse{
		ID:          e.ID,
		CreatorID:   e.CreatorID,
		Name:        e.Name,
		Venue:       e.Venue,
		Description: e.Description,
		StartsAt:    e.StartsAt,
		Latitude:    e.Latitude,
		Longitude:   e.Longitude,
		CreatedAt:   e.CreatedAt,
		Zones:       zones,
	}
}

func parseStartsAt(raw string) (*time.Time, bool) {
	if raw == "" {
		return nil, true
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, false
	}
	return &parsed, true
}

// HandleCreateEvent returns the POST /events handler.
func HandleCreateEvent(svc ZoneManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createEventRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		startsAt, ok := parseStartsAt(req.StartsAt)
		if !ok {
			writeError(w, http.StatusBadRequest, codeInvalidStartsAt, "invalid starts_at format")
			return
		}

		specs := make([]app.ZoneSpec, 0, len(req.Zones))
		for _, z := range req.Zones {
			specs = append(specs, app.ZoneSpec{Name: z.Name, UnitPrice: z.UnitPrice, CapacityTotal: z.CapacityTotal})
		}

		res, err := svc.CreateEvent(r.Context(), app.CreateEventInput{
			Creator:     principal(r),
			Name:        req.Name,
			Venue:       req.Venue,
			Description: req.Description,
			StartsAt:    startsAt,
			Latitude:    req.Latitude,
			Longitude:   req.Longitude,
			Zones:       specs,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, newEventResponse(res))
	}
}

// HandleListEventZones returns the public GET /events/{id}/zones handler.
// Only active zones are listed.
func HandleListEventZones(svc InventoryReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, sub, ok := parseEventPath(r.URL.Path)
		if !ok || sub != "zones" {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		zones, err := svc.ListEventZones(r.Context(), eventID, false)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		resp := make([]zoneResponse, 0, len(zones))
		for _, z := range zones {
			resp = append(resp, newZoneResponse(z.Zone))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleUpdateZones returns the PATCH /events/{id}/zones handler.
func HandleUpdateZones(svc ZoneManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, sub, ok := parseEventPath(r.URL.Path)
		if !ok || sub != "zones" {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		var req updateZonesRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		in := app.UpdateZonesInput{EventID: eventID, Caller: principal(r)}
		if req.Event != nil {
			patch := &app.EventPatch{
				Name:        req.Event.Name,
				Venue:       req.Event.Venue,
				Description: req.Event.Description,
				Latitude:    req.Event.Latitude,
				Longitude:   req.Event.Longitude,
			}
			if req.Event.StartsAt != nil {
				startsAt, ok := parseStartsAt(*req.Event.StartsAt)
				if !ok || startsAt == nil {
					writeError(w, http.StatusBadRequest, codeInvalidStartsAt, "invalid starts_at format")
					return
				}
				patch.StartsAt = startsAt
			}
			in.Event = patch
		}
		for _, z := range req.Zones {
			in.Zones = append(in.Zones, app.ZoneEdit{
				ID:            z.ID,
				Name:          z.Name,
				IsActive:      z.IsActive,
				UnitPrice:     z.UnitPrice,
				CapacityTotal: z.CapacityTotal,
			})
		}

		res, err := svc.UpdateZones(r.Context(), in)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newEventResponse(res))
	}
}

// HandleDeleteEvent returns the DELETE /events/{id} handler. The caller
// confirms with their password in the body.
func HandleDeleteEvent(svc ZoneManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, sub, ok := parseEventPath(r.URL.Path)
		if !ok || sub != "" {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		var req deleteEventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		err := svc.DeleteEvent(r.Context(), app.DeleteEventInput{
			EventID:  eventID,
			Caller:   principal(r),
			Password: req.Password,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleOrganizerEvents returns the GET /organizer/events dashboard handler.
func HandleOrganizerEvents(svc ZoneManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		summaries, err := svc.ListManagedEvents(r.Context(), principal(r))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		resp := make([]eventSummaryResponse, 0, len(summaries))
		for _, s := range summaries {
			resp = append(resp, eventSummaryResponse{
				ID:            s.Event.ID,
				Name:          s.Event.Name,
				Venue:         s.Event.Venue,
				StartsAt:      s.Event.StartsAt,
				ZoneCount:     s.ZoneCount,
				CapacityTotal: s.CapacityTotal,
				UnitsSold:     s.UnitsSold,
				Revenue:       s.Revenue,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// parseEventPath splits /events/{id} and /events/{id}/{sub}.
func parseEventPath(path string) (eventID, sub string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || len(parts) > 3 || parts[0] != "events" || parts[1] == "" {
		return "", "", false
	}
	if len(parts) == 3 {
		if parts[2] == "" {
			return "", "", false
		}
		return parts[1], parts[2], true
	}
	return parts[1], "", true
}
