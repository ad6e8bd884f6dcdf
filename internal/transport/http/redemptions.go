package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/polieventos/ticketing/internal/domain"
)

// Redeemer is the minimal interface the door endpoints need.
type Redeemer interface {
	Redeem(ctx context.Context, code string, requester domain.Principal) (domain.Verdict, error)
	Inspect(ctx context.Context, code string, requester domain.Principal) (domain.TicketContext, error)
}

type redeemRequest struct {
	Code string `json:"code"`
}

type ticketResponse struct {
	Code          string     `json:"code"`
	State         string     `json:"state"`
	RedeemedAt    *time.Time `json:"redeemed_at,omitempty"`
	PurchaseID    string     `json:"purchase_id"`
	ZoneID        string     `json:"zone_id"`
	ZoneName      string     `json:"zone_name"`
	EventID       string     `json:"event_id"`
	EventName     string     `json:"event_name"`
	EventVenue    string     `json:"event_venue"`
	EventStartsAt time.Time  `json:"event_starts_at"`
}

type verdictResponse struct {
	Granted bool            `json:"granted"`
	Reason  string          `json:"reason"`
	Code    string          `json:"code,omitempty"`
	Ticket  *ticketResponse `json:"ticket,omitempty"`
}

func newTicketResponse(tc domain.TicketContext) ticketResponse {
	return ticketResponse{
		Code:          tc.Ticket.RedemptionCode,
		State:         string(tc.Ticket.State),
		RedeemedAt:    tc.Ticket.RedeemedAt,
		PurchaseID:    tc.Ticket.PurchaseID,
		ZoneID:        tc.ZoneID,
		ZoneName:      tc.ZoneName,
		EventID:       tc.EventID,
		EventName:     tc.EventName,
		EventVenue:    tc.EventVenue,
		EventStartsAt: tc.EventStartsAt,
	}
}

// HandleRedeem returns the POST /redemptions handler. Every business outcome
// is reported as a verdict; FORBIDDEN maps to 403 and INVALID_CODE to 400.
func HandleRedeem(svc Redeemer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req redeemRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		v, err := svc.Redeem(r.Context(), req.Code, principal(r))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		resp := verdictResponse{Granted: v.Granted, Reason: string(v.Reason)}
		if v.Ticket != nil {
			t := newTicketResponse(*v.Ticket)
			resp.Ticket = &t
		}

		status := http.StatusOK
		switch v.Reason {
		case domain.ReasonForbidden:
			status = http.StatusForbidden
			resp.Code = codeForbidden
		case domain.ReasonInvalidCode:
			status = http.StatusBadRequest
			resp.Code = codeInvalidCode
		}
		writeJSON(w, status, resp)
	}
}

// HandleTicket returns the GET /tickets/{code} handler.
func HandleTicket(svc Redeemer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, ok := parseTicketPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		tc, err := svc.Inspect(r.Context(), code, principal(r))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newTicketResponse(tc))
	}
}

func parseTicketPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] != "tickets" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
