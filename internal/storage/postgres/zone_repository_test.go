package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/polieventos/ticketing/internal/app"
	"github.com/polieventos/ticketing/internal/clock"
	"github.com/polieventos/ticketing/internal/domain"
	"github.com/polieventos/ticketing/internal/testutil"
)

func TestZoneRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	repo := NewZoneRepository(pool, time.Second)

	t.Run("create event with zones and list them", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		svc := app.NewZoneService(repo, nil, clock.NewSystem())
		creator := domain.Principal{UserID: testutil.NewUserID(), Role: domain.RoleOrganizer, SubscriptionActive: true}
		lat := 4.6

		res, err := svc.CreateEvent(ctx, app.CreateEventInput{
			Creator:  creator,
			Name:     "Festival",
			Venue:    "Parque",
			Latitude: &lat,
			Zones: []app.ZoneSpec{
				{Name: "General", UnitPrice: 1000, CapacityTotal: 100},
				{Name: "VIP", UnitPrice: 5000, CapacityTotal: 20},
			},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		event, err := repo.GetEvent(ctx, res.Event.ID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if event.CreatorID != creator.UserID || event.Latitude == nil || *event.Latitude != lat || event.Longitude != nil {
			t.Fatalf("unexpected event: %+v", event)
		}

		zones, err := repo.ListZonesByEvent(ctx, res.Event.ID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(zones) != 2 {
			t.Fatalf("expected 2 zones, got %d", len(zones))
		}

		if _, err := repo.ListZonesByEvent(ctx, "00000000-0000-0000-0000-000000000001"); err != domain.ErrEventNotFound {
			t.Fatalf("expected ErrEventNotFound, got %v", err)
		}
		if _, err := repo.GetEvent(ctx, "not-a-uuid"); err != domain.ErrInvalidID {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
	})

	t.Run("duplicate zone name", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		eventID := testutil.InsertEvent(t, ctx, pool, testutil.NewUserID())
		testutil.InsertZone(t, ctx, pool, eventID, "General", 10, 100)

		err := repo.CreateZone(ctx, domain.Zone{
			ID:            testutil.NewUserID(),
			EventID:       eventID,
			Name:          "General",
			CapacityTotal: 5,
			IsActive:      true,
			CreatedAt:     time.Now().UTC(),
		})
		if err != domain.ErrZoneAlreadyExists {
			t.Fatalf("expected ErrZoneAlreadyExists, got %v", err)
		}
	})

	t.Run("UpdateZone leaves sales fields alone", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		eventID := testutil.InsertEvent(t, ctx, pool, testutil.NewUserID())
		zoneID := testutil.InsertZone(t, ctx, pool, eventID, "General", 10, 100)
		if _, err := pool.Exec(ctx, `UPDATE zones SET units_sold = 4 WHERE id = $1`, zoneID); err != nil {
			t.Fatalf("seed units_sold: %v", err)
		}

		zone, err := repo.GetZone(ctx, zoneID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		zone.Name = "Platea"
		zone.IsActive = false
		zone.UnitsSold = 0
		zone.CapacityTotal = 99
		if err := repo.UpdateZone(ctx, zone); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		got, _ := repo.GetZone(ctx, zoneID)
		if got.Name != "Platea" || got.IsActive || got.UnitsSold != 4 || got.CapacityTotal != 10 {
			t.Fatalf("unexpected zone after update: %+v", got)
		}
	})

	t.Run("DeleteEvent cascades", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		eventID := testutil.InsertEvent(t, ctx, pool, testutil.NewUserID())
		zoneID := testutil.InsertZone(t, ctx, pool, eventID, "General", 10, 100)
		purchaseID := testutil.InsertPurchase(t, ctx, pool, testutil.NewUserID(), zoneID, 1)
		testutil.InsertTicket(t, ctx, pool, purchaseID, "code-cascade")

		if err := repo.DeleteEvent(ctx, eventID); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		var remaining int
		if err := pool.QueryRow(ctx, `SELECT (SELECT COUNT(*) FROM zones) + (SELECT COUNT(*) FROM purchases) + (SELECT COUNT(*) FROM tickets)`).Scan(&remaining); err != nil {
			t.Fatalf("count: %v", err)
		}
		if remaining != 0 {
			t.Fatalf("expected cascade to remove everything, %d rows left", remaining)
		}
		if err := repo.DeleteEvent(ctx, eventID); err != domain.ErrEventNotFound {
			t.Fatalf("expected ErrEventNotFound, got %v", err)
		}
	})

	t.Run("ListEventSummaries filters by creator", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		mine := testutil.NewUserID()
		eventID := testutil.InsertEvent(t, ctx, pool, mine)
		zoneID := testutil.InsertZone(t, ctx, pool, eventID, "General", 10, 250)
		testutil.InsertZone(t, ctx, pool, eventID, "VIP", 5, 1000)
		testutil.InsertEvent(t, ctx, pool, testutil.NewUserID())
		if _, err := pool.Exec(ctx, `UPDATE zones SET units_sold = 4 WHERE id = $1`, zoneID); err != nil {
			t.Fatalf("seed units_sold: %v", err)
		}

		summaries, err := repo.ListEventSummaries(ctx, mine)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(summaries) != 1 {
			t.Fatalf("expected 1 summary, got %d", len(summaries))
		}
		s := summaries[0]
		if s.ZoneCount != 2 || s.CapacityTotal != 15 || s.UnitsSold != 4 || s.Revenue != 1000 {
			t.Fatalf("unexpected summary: %+v", s)
		}

		all, err := repo.ListEventSummaries(ctx, "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("expected 2 summaries, got %d", len(all))
		}
	})
}

func TestCredentialRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)
	repo := NewCredentialRepository(pool)

	userID := testutil.InsertUser(t, ctx, pool, "org@example.com", "secreto")

	hash, err := repo.PasswordHash(ctx, userID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if hash == "" || hash == "secreto" {
		t.Fatalf("expected a bcrypt hash, got %q", hash)
	}

	if _, err := repo.PasswordHash(ctx, testutil.NewUserID()); err != domain.ErrInvalidPassword {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}
