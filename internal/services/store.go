package services

import (
	"context"
	"errors"
	"time"

	"github.com/ridetrack/ridetrack-backend/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrRideNotFound means the ride code did not resolve to a ride.
	ErrRideNotFound = errors.New("ride not found")
	// ErrNotAParticipant means the reporting user has no participation row
	// for the ride, so there is nothing to persist the fix onto.
	ErrNotAParticipant = errors.New("user is not a participant of this ride")
)

// RideDirectory resolves join codes to ride identities.
type RideDirectory interface {
	RideIDByCode(ctx context.Context, code string) (uint, error)
}

// ParticipationStore persists the latest known fix for a (user, ride) pair.
type ParticipationStore interface {
	UpdateLocation(ctx context.Context, userID, rideID uint, lat, lon float64, ts time.Time) error
}

// GormStore backs RideDirectory and ParticipationStore with the relational
// schema.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) RideIDByCode(ctx context.Context, code string) (uint, error) {
	var ride models.Ride
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&ride).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrRideNotFound
	}
	if err != nil {
		return 0, err
	}
	return ride.ID, nil
}

func (s *GormStore) UpdateLocation(ctx context.Context, userID, rideID uint, lat, lon float64, ts time.Time) error {
	var participation models.Participation
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND ride_id = ?", userID, rideID).
		First(&participation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotAParticipant
	}
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Model(&participation).Updates(map[string]interface{}{
		"latitude":           lat,
		"longitude":          lon,
		"location_timestamp": ts,
	}).Error
}
