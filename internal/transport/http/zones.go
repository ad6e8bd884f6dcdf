package http

import (
	"net/http"
	"strings"
)

type availabilityResponse struct {
	ZoneID        string `json:"zone_id"`
	EventID       string `json:"event_id"`
	CapacityTotal int    `json:"capacity_total"`
	UnitsSold     int    `json:"units_sold"`
	Available     int    `json:"available"`
	IsActive      bool   `json:"is_active"`
}

// HandleZoneAvailability returns the GET /zones/{id}/availability handler.
// The figure is a snapshot; a purchase may still fail afterwards.
func HandleZoneAvailability(svc InventoryReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		zoneID, ok := parseAvailabilityPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		a, err := svc.Availability(r.Context(), zoneID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, availabilityResponse{
			ZoneID:        a.Zone.ID,
			EventID:       a.Zone.EventID,
			CapacityTotal: a.Zone.CapacityTotal,
			UnitsSold:     a.Zone.UnitsSold,
			Available:     a.Available,
			IsActive:      a.Zone.IsActive,
		})
	}
}

func parseAvailabilityPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "zones" || parts[2] != "availability" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
