package http

import (
	"log/slog"
	"net/http"
	"time"
)

// RouterConfig wires services into the public HTTP surface.
type RouterConfig struct {
	Purchases       Purchaser
	Redemptions     Redeemer
	Zones           ZoneManager
	Inventory       InventoryReader
	Verifier        TokenVerifier
	DB              Pinger
	PurchaseTimeout time.Duration
	CORSOrigins     []string
	Logger          *slog.Logger
}

// NewRouter builds the API handler with CORS and request logging applied.
func NewRouter(cfg RouterConfig) http.Handler {
	authed := func(h http.Handler) http.Handler {
		return Authenticate(cfg.Verifier, h)
	}
	organizer := func(h http.Handler) http.Handler {
		return Authenticate(cfg.Verifier, RequireOrganizer(h))
	}

	mux := http.NewServeMux()
	mux.Handle("/health", HealthHandler(cfg.DB))

	mux.Handle("/purchases", authed(HandleCreatePurchase(cfg.Purchases, cfg.PurchaseTimeout)))
	mux.Handle("/purchases/", authed(HandleResend(cfg.Purchases)))
	mux.Handle("/me/purchases", authed(HandleMyPurchases(cfg.Purchases)))

	mux.Handle("/redemptions", authed(HandleRedeem(cfg.Redemptions)))
	mux.Handle("/tickets/", authed(HandleTicket(cfg.Redemptions)))

	mux.Handle("/events", organizer(HandleCreateEvent(cfg.Zones)))
	mux.Handle("/events/", methods{
		http.MethodGet:    HandleListEventZones(cfg.Inventory),
		http.MethodPatch:  organizer(HandleUpdateZones(cfg.Zones)),
		http.MethodDelete: organizer(HandleDeleteEvent(cfg.Zones)),
	})
	mux.Handle("/organizer/events", organizer(HandleOrganizerEvents(cfg.Zones)))
	mux.Handle("/zones/", HandleZoneAvailability(cfg.Inventory))

	mux.Handle("/", NotFoundHandler())

	return RequestLogger(CORS(cfg.CORSOrigins, mux), cfg.Logger)
}
