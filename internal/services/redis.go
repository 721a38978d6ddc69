package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// LocationCache keeps the latest fix per rider in a per-ride redis hash and
// publishes every persisted fix on a per-ride pub/sub channel so other
// processes can follow along.
type LocationCache struct {
	client *redis.Client
}

// RiderLocation is the cached shape of one rider's latest fix.
type RiderLocation struct {
	UserID            uint      `json:"user_id"`
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	LocationTimestamp time.Time `json:"location_timestamp"`
}

// InitRedis connects to REDIS_URL and returns a location cache backed by it.
func InitRedis() (*LocationCache, error) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://redis:6379" // Default Redis address for Docker
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	client := redis.NewClient(opt)

	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return NewLocationCache(client), nil
}

// NewLocationCache wraps an existing redis client.
func NewLocationCache(client *redis.Client) *LocationCache {
	return &LocationCache{client: client}
}

func rideLocationsKey(rideCode string) string {
	return "ride:locations:" + rideCode
}

func rideUpdatesChannel(rideCode string) string {
	return "ride:location:updates:" + rideCode
}

// SetRiderLocation stores the rider's latest fix in the ride's hash.
func (l *LocationCache) SetRiderLocation(ctx context.Context, rideCode string, userID uint, lat, lon float64, ts time.Time) error {
	data, err := json.Marshal(RiderLocation{
		UserID:            userID,
		Latitude:          lat,
		Longitude:         lon,
		LocationTimestamp: ts,
	})
	if err != nil {
		return err
	}

	key := rideLocationsKey(rideCode)
	field := strconv.FormatUint(uint64(userID), 10)
	if err := l.client.HSet(ctx, key, field, data).Err(); err != nil {
		return err
	}
	return l.client.Expire(ctx, key, 24*time.Hour).Err()
}

// GetRideLocations returns all cached fixes for a ride.
func (l *LocationCache) GetRideLocations(ctx context.Context, rideCode string) ([]RiderLocation, error) {
	entries, err := l.client.HGetAll(ctx, rideLocationsKey(rideCode)).Result()
	if err != nil {
		return nil, err
	}

	locations := make([]RiderLocation, 0, len(entries))
	for _, raw := range entries {
		var loc RiderLocation
		if err := json.Unmarshal([]byte(raw), &loc); err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	return locations, nil
}

// PublishLocationUpdate publishes a persisted fix to the ride's channel.
func (l *LocationCache) PublishLocationUpdate(ctx context.Context, rideCode string, userID uint, lat, lon float64, ts time.Time) error {
	data, err := json.Marshal(RiderLocation{
		UserID:            userID,
		Latitude:          lat,
		Longitude:         lon,
		LocationTimestamp: ts,
	})
	if err != nil {
		return err
	}
	return l.client.Publish(ctx, rideUpdatesChannel(rideCode), data).Err()
}

// ClearRideLocations drops the cached fixes for a ride, used when a ride is
// deleted.
func (l *LocationCache) ClearRideLocations(ctx context.Context, rideCode string) error {
	return l.client.Del(ctx, rideLocationsKey(rideCode)).Err()
}
