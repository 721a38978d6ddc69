package models

import (
	"gorm.io/gorm"
)

// Route is a reusable GPX track a ride can be planned around. The raw GPX
// document is kept inline; DistanceMeters is computed server-side on write.
type Route struct {
	gorm.Model
	Title           string  `json:"title" gorm:"not null"`
	Description     string  `json:"description,omitempty"`
	GPXData         string  `json:"gpxData" gorm:"column:gpx_data;type:text;not null"`
	DistanceMeters  float64 `json:"distanceMeters" gorm:"not null;default:0"`
	CreatedByUserID uint    `json:"createdByUserId" gorm:"not null;index"`
	CreatedBy       *User   `json:"createdBy,omitempty" gorm:"foreignKey:CreatedByUserID"`
}

// TableName specifies the table name
func (Route) TableName() string {
	return "routes"
}
