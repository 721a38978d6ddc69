package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) *LocationCache {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewLocationCache(client)
}

func TestLocationCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := cache.SetRiderLocation(ctx, "ABC123", 1, 48.1, 11.5, ts); err != nil {
		t.Fatalf("SetRiderLocation: %v", err)
	}
	if err := cache.SetRiderLocation(ctx, "ABC123", 2, 48.2, 11.6, ts); err != nil {
		t.Fatalf("SetRiderLocation: %v", err)
	}

	locations, err := cache.GetRideLocations(ctx, "ABC123")
	if err != nil {
		t.Fatalf("GetRideLocations: %v", err)
	}
	if len(locations) != 2 {
		t.Fatalf("expected 2 locations, got %d", len(locations))
	}

	byUser := make(map[uint]RiderLocation)
	for _, loc := range locations {
		byUser[loc.UserID] = loc
	}
	if loc := byUser[1]; loc.Latitude != 48.1 || loc.Longitude != 11.5 || !loc.LocationTimestamp.Equal(ts) {
		t.Fatalf("unexpected location for user 1: %+v", loc)
	}
}

func TestLocationCacheOverwritesLatestFix(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	cache.SetRiderLocation(ctx, "ABC123", 1, 48.1, 11.5, time.Now())
	if err := cache.SetRiderLocation(ctx, "ABC123", 1, 48.9, 11.9, time.Now()); err != nil {
		t.Fatalf("SetRiderLocation: %v", err)
	}

	locations, err := cache.GetRideLocations(ctx, "ABC123")
	if err != nil {
		t.Fatalf("GetRideLocations: %v", err)
	}
	if len(locations) != 1 {
		t.Fatalf("expected single entry per rider, got %d", len(locations))
	}
	if locations[0].Latitude != 48.9 {
		t.Fatalf("expected latest fix, got %+v", locations[0])
	}
}

func TestLocationCacheScopedPerRide(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	cache.SetRiderLocation(ctx, "AAAAAA", 1, 48.1, 11.5, time.Now())
	cache.SetRiderLocation(ctx, "BBBBBB", 2, 50.0, 8.0, time.Now())

	locations, err := cache.GetRideLocations(ctx, "AAAAAA")
	if err != nil {
		t.Fatalf("GetRideLocations: %v", err)
	}
	if len(locations) != 1 || locations[0].UserID != 1 {
		t.Fatalf("unexpected locations: %+v", locations)
	}
}

func TestClearRideLocations(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	cache.SetRiderLocation(ctx, "ABC123", 1, 48.1, 11.5, time.Now())
	if err := cache.ClearRideLocations(ctx, "ABC123"); err != nil {
		t.Fatalf("ClearRideLocations: %v", err)
	}

	locations, err := cache.GetRideLocations(ctx, "ABC123")
	if err != nil {
		t.Fatalf("GetRideLocations: %v", err)
	}
	if len(locations) != 0 {
		t.Fatalf("expected no locations after clear, got %d", len(locations))
	}
}

func TestPublishLocationUpdate(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()
	cache := NewLocationCache(client)

	ctx := context.Background()
	sub := client.Subscribe(ctx, rideUpdatesChannel("ABC123"))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := cache.PublishLocationUpdate(ctx, "ABC123", 1, 48.1, 11.5, time.Now().UTC()); err != nil {
		t.Fatalf("PublishLocationUpdate: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		if msg.Payload == "" {
			t.Fatal("expected payload")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for published update")
	}
}
