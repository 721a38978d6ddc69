package models

import (
	"time"

	"gorm.io/gorm"
)

// Participation links a user to a ride and carries their last known GPS
// fix. The (user_id, ride_id) pair is unique: a user joins a ride at most
// once, a second join is a conflict surfaced as "already joined".
type Participation struct {
	gorm.Model
	UserID            uint       `json:"userId" gorm:"not null;uniqueIndex:uix_user_ride"`
	RideID            uint       `json:"rideId" gorm:"not null;uniqueIndex:uix_user_ride"`
	Latitude          *float64   `json:"latitude,omitempty"`
	Longitude         *float64   `json:"longitude,omitempty"`
	LocationTimestamp *time.Time `json:"locationTimestamp,omitempty"`
	JoinedAt          time.Time  `json:"joinedAt" gorm:"not null"`
	User              *User      `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Ride              *Ride      `json:"ride,omitempty" gorm:"foreignKey:RideID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name
func (Participation) TableName() string {
	return "participations"
}

func (p *Participation) BeforeCreate(tx *gorm.DB) error {
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now().UTC()
	}
	return nil
}
