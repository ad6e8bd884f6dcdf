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

// Purchaser is the minimal interface the purchase endpoints need.
type Purchaser interface {
	Purchase(ctx context.Context, in app.PurchaseInput) (app.PurchaseResult, error)
	ResendNotification(ctx context.Context, purchaseID string, requester domain.Principal) (app.ResendResult, error)
	ListPurchases(ctx context.Context, buyerID string) ([]domain.PurchaseDetail, error)
}

type createPurchaseRequest struct {
	ZoneID   string `json:"zone_id"`
	Quantity int    `json:"quantity"`
}

type purchaseResponse struct {
	PurchaseID      string    `json:"purchase_id"`
	ZoneID          string    `json:"zone_id"`
	Quantity        int       `json:"quantity"`
	TotalAmount     int64     `json:"total_amount"`
	PurchasedAt     time.Time `json:"purchased_at"`
	RedemptionCodes []string  `json:"redemption_codes"`
	DeliveryQueued  bool      `json:"delivery_queued"`
}

// HandleCreatePurchase returns the POST /purchases handler. Each purchase
// runs under timeout so a caller stuck behind a busy zone gets a 503
// instead of waiting indefinitely.
func HandleCreatePurchase(svc Purchaser, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createPurchaseRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if strings.TrimSpace(req.ZoneID) == "" {
			writeError(w, http.StatusBadRequest, codeInvalidID, "zone_id is required")
			return
		}

		ctx := r.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		res, err := svc.Purchase(ctx, app.PurchaseInput{
			Buyer:    principal(r),
			ZoneID:   strings.TrimSpace(req.ZoneID),
			Quantity: req.Quantity,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, purchaseResponse{
			PurchaseID:      res.Purchase.ID,
			ZoneID:          res.Purchase.ZoneID,
			Quantity:        res.Purchase.Quantity,
			TotalAmount:     res.Purchase.TotalAmount,
			PurchasedAt:     res.Purchase.PurchasedAt,
			RedemptionCodes: res.RedemptionCodes,
			DeliveryQueued:  res.DeliveryQueued,
		})
	}
}

type resendResponse struct {
	Delivered bool `json:"delivered"`
}

// HandleResend returns the POST /purchases/{id}/resend handler.
func HandleResend(svc Purchaser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		purchaseID, ok := parseResendPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		res, err := svc.ResendNotification(r.Context(), purchaseID, principal(r))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resendResponse{Delivered: res.Delivered})
	}
}

func parseResendPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "purchases" || parts[2] != "resend" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

type ticketSummary struct {
	Code       string     `json:"code"`
	State      string     `json:"state"`
	RedeemedAt *time.Time `json:"redeemed_at,omitempty"`
}

type purchaseDetailResponse struct {
	PurchaseID    string          `json:"purchase_id"`
	Quantity      int             `json:"quantity"`
	TotalAmount   int64           `json:"total_amount"`
	PurchasedAt   time.Time       `json:"purchased_at"`
	ZoneID        string          `json:"zone_id"`
	ZoneName      string          `json:"zone_name"`
	UnitPrice     int64           `json:"unit_price"`
	EventID       string          `json:"event_id"`
	EventName     string          `json:"event_name"`
	EventVenue    string          `json:"event_venue"`
	EventStartsAt time.Time       `json:"event_starts_at"`
	Tickets       []ticketSummary `json:"tickets"`
}

// HandleMyPurchases returns the GET /me/purchases handler.
func HandleMyPurchases(svc Purchaser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		details, err := svc.ListPurchases(r.Context(), principal(r).UserID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		resp := make([]purchaseDetailResponse, 0, len(details))
		for _, d := range details {
			tickets := make([]ticketSummary, 0, len(d.Tickets))
			for _, t := range d.Tickets {
				tickets = append(tickets, ticketSummary{Code: t.RedemptionCode, State: string(t.State), RedeemedAt: t.RedeemedAt})
			}
			resp = append(resp, purchaseDetailResponse{
				PurchaseID:    d.Purchase.ID,
				Quantity:      d.Purchase.Quantity,
				TotalAmount:   d.Purchase.TotalAmount,
				PurchasedAt:   d.Purchase.PurchasedAt,
				ZoneID:        d.Purchase.ZoneID,
				ZoneName:      d.ZoneName,
				UnitPrice:     d.UnitPrice,
				EventID:       d.EventID,
				EventName:     d.EventName,
				EventVenue:    d.EventVenue,
				EventStartsAt: d.EventStartsAt,
				Tickets:       tickets,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
