package models

import (
	"time"

	"gorm.io/gorm"
)

// Ride is a trackable group event. The Code is the human-shareable join
// token printed on invites; it stays unique across active and past rides.
type Ride struct {
	gorm.Model
	Code            string    `json:"code" gorm:"column:code;uniqueIndex;not null;size:6"`
	Title           string    `json:"title" gorm:"not null"`
	Description     string    `json:"description,omitempty"`
	StartTime       time.Time `json:"startTime" gorm:"not null"`
	CreatedByUserID uint      `json:"createdByUserId" gorm:"not null;index"`
	IsActive        bool      `json:"isActive" gorm:"not null;default:true"`
	CreatedBy       *User     `json:"createdBy,omitempty" gorm:"foreignKey:CreatedByUserID"`
}

// TableName specifies the table name
func (Ride) TableName() string {
	return "rides"
}
