package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/polieventos/ticketing/internal/domain"
)

const (
	codeMethodNotAllowed      = "method_not_allowed"
	codeNotFound              = "not_found"
	codeUnauthorized          = "unauthorized"
	codeInvalidRequestBody    = "invalid_request_body"
	codeInvalidStartsAt       = "invalid_starts_at"
	codeInvalidID             = "invalid_id"
	codeInvalidCode           = "invalid_code"
	codeEventNameRequired     = "event_name_required"
	codeZonesRequired         = "zones_required"
	codeZoneNameRequired      = "zone_name_required"
	codeInvalidQuantity       = "invalid_quantity"
	codeInvalidCapacity       = "invalid_capacity"
	codeInvalidPrice          = "invalid_price"
	codeInsufficientInventory = "insufficient_inventory"
	codeZoneNotFound          = "zone_not_found"
	codeEventNotFound         = "event_not_found"
	codePurchaseNotFound      = "purchase_not_found"
	codeTicketNotFound        = "ticket_not_found"
	codeZoneAlreadyExists     = "zone_already_exists"
	codeZoneFieldImmutable    = "zone_field_immutable"
	codeNoTicketsMinted       = "no_tickets_minted"
	codePasswordRequired      = "password_required"
	codeInvalidPassword       = "invalid_password"
	codeForbidden             = "forbidden"
	codeBusy                  = "busy"
	codeInternalError         = "internal_error"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Available *int   `json:"available,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorBody(w, status, errorResponse{Error: msg, Code: code})
}

func writeErrorBody(w http.ResponseWriter, status int, body errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(body)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var errorStatuses = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrInvalidQuantity, http.StatusBadRequest, codeInvalidQuantity},
	{domain.ErrInvalidID, http.StatusBadRequest, codeInvalidID},
	{domain.ErrInvalidCode, http.StatusBadRequest, codeInvalidCode},
	{domain.ErrEventNameRequired, http.StatusBadRequest, codeEventNameRequired},
	{domain.ErrZonesRequired, http.StatusBadRequest, codeZonesRequired},
	{domain.ErrZoneNameRequired, http.StatusBadRequest, codeZoneNameRequired},
	{domain.ErrInvalidCapacity, http.StatusBadRequest, codeInvalidCapacity},
	{domain.ErrInvalidPrice, http.StatusBadRequest, codeInvalidPrice},
	{domain.ErrPasswordRequired, http.StatusBadRequest, codePasswordRequired},
	{domain.ErrInvalidPassword, http.StatusUnauthorized, codeInvalidPassword},
	{domain.ErrForbidden, http.StatusForbidden, codeForbidden},
	{domain.ErrZoneNotFound, http.StatusNotFound, codeZoneNotFound},
	{domain.ErrEventNotFound, http.StatusNotFound, codeEventNotFound},
	{domain.ErrPurchaseNotFound, http.StatusNotFound, codePurchaseNotFound},
	{domain.ErrTicketNotFound, http.StatusNotFound, codeTicketNotFound},
	{domain.ErrInsufficientInventory, http.StatusConflict, codeInsufficientInventory},
	{domain.ErrZoneAlreadyExists, http.StatusConflict, codeZoneAlreadyExists},
	{domain.ErrZoneFieldImmutable, http.StatusConflict, codeZoneFieldImmutable},
	{domain.ErrNoTicketsMinted, http.StatusConflict, codeNoTicketsMinted},
}

// writeServiceError maps a service error onto the JSON error envelope.
// Unknown errors are logged with the request id and reported as a bare 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var insufficient *domain.InsufficientInventoryError
	if errors.As(err, &insufficient) {
		available := insufficient.Available
		writeErrorBody(w, http.StatusConflict, errorResponse{
			Error:     domain.ErrInsufficientInventory.Error(),
			Code:      codeInsufficientInventory,
			Available: &available,
		})
		return
	}
	if errors.Is(err, domain.ErrBusy) {
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, codeBusy, err.Error())
		return
	}
	for _, m := range errorStatuses {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.code, m.err.Error())
			return
		}
	}

	LoggerFrom(r.Context()).Error("request failed", "err", err)
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
