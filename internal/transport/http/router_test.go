package http

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestRouter() (http.Handler, *fakePurchaser, *fakeZoneManager) {
	purchases := &fakePurchaser{}
	zones := &fakeZoneManager{}
	h := NewRouter(RouterConfig{
		Purchases:   purchases,
		Redemptions: &fakeRedeemer{},
		Zones:       zones,
		Inventory:   newFakeInventory(),
		Verifier:    testTokens,
		DB:          pingFunc(func(context.Context) error { return nil }),
		CORSOrigins: []string{"http://localhost:3000"},
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return h, purchases, zones
}

func TestRouter_Access(t *testing.T) {
	t.Parallel()

	h, _, _ := newTestRouter()
	tests := []struct {
		name           string
		method         string
		path           string
		token          string
		body           string
		expectedStatus int
	}{
		{"health is public", http.MethodGet, "/health", "", "", http.StatusOK},
		{"availability is public", http.MethodGet, "/zones/z-1/availability", "", "", http.StatusOK},
		{"event zones are public", http.MethodGet, "/events/ev-1/zones", "", "", http.StatusOK},
		{"purchase needs token", http.MethodPost, "/purchases", "", `{"zone_id":"z-1","quantity":1}`, http.StatusUnauthorized},
		{"buyer can purchase", http.MethodPost, "/purchases", "buyer", `{"zone_id":"z-1","quantity":1}`, http.StatusCreated},
		{"my purchases needs token", http.MethodGet, "/me/purchases", "", "", http.StatusUnauthorized},
		{"buyer cannot create events", http.MethodPost, "/events", "buyer", `{}`, http.StatusForbidden},
		{"lapsed organizer cannot create", http.MethodPost, "/events", "lapsed", `{}`, http.StatusForbidden},
		{"organizer creates event", http.MethodPost, "/events", "organizer", `{"name":"x","zones":[{"name":"a","unit_price":1,"capacity_total":1}]}`, http.StatusCreated},
		{"patch needs organizer", http.MethodPatch, "/events/ev-1/zones", "buyer", `{"zones":[]}`, http.StatusForbidden},
		{"admin patches", http.MethodPatch, "/events/ev-1/zones", "admin", `{"zones":[]}`, http.StatusOK},
		{"delete without token", http.MethodDelete, "/events/ev-1", "", `{"password":"x"}`, http.StatusUnauthorized},
		{"put not allowed", http.MethodPut, "/events/ev-1", "organizer", "", http.StatusMethodNotAllowed},
		{"dashboard for organizer", http.MethodGet, "/organizer/events", "organizer", "", http.StatusOK},
		{"unknown route", http.MethodGet, "/nope", "", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
		if tt.token != "" {
			req.Header.Set("Authorization", "Bearer "+tt.token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != tt.expectedStatus {
			t.Fatalf("%s: expected status %d, got %d: %s", tt.name, tt.expectedStatus, rec.Code, rec.Body.String())
		}
		if rec.Header().Get(requestIDHeader) == "" {
			t.Fatalf("%s: expected request id header", tt.name)
		}
	}
}

func TestRouter_PassesPurchaseTimeout(t *testing.T) {
	t.Parallel()

	purchases := &fakePurchaser{}
	h := NewRouter(RouterConfig{
		Purchases:       purchases,
		Redemptions:     &fakeRedeemer{},
		Zones:           &fakeZoneManager{},
		Inventory:       newFakeInventory(),
		Verifier:        testTokens,
		DB:              pingFunc(func(context.Context) error { return nil }),
		PurchaseTimeout: 0,
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	req := httptest.NewRequest(http.MethodPost, "/purchases", bytes.NewBufferString(`{"zone_id":"z-1","quantity":1}`))
	req.Header.Set("Authorization", "Bearer buyer")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}
	if purchases.hadDeadline {
		t.Fatalf("expected no deadline when timeout is zero")
	}
	if purchases.lastInput.Buyer.UserID != "buyer-1" {
		t.Fatalf("expected principal from token, got %+v", purchases.lastInput.Buyer)
	}
}
