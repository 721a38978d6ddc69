package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ridetrack/ridetrack-backend/internal/models"
	"gorm.io/gorm"
)

// GetParticipations lists all participations
func GetParticipations(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var participations []models.Participation
		if err := db.Find(&participations).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch participations"})
			return
		}

		c.JSON(200, participations)
	}
}

// GetParticipation returns a participation by id
func GetParticipation(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var participation models.Participation
		if err := db.First(&participation, c.Param("id")).Error; err != nil {
			c.JSON(404, gin.H{"error": "Participation not found"})
			return
		}

		c.JSON(200, participation)
	}
}

// CreateParticipation joins the authenticated user to a ride by code. The
// (user, ride) unique index makes a double join a 409 instead of a second
// row, even when two requests race.
func CreateParticipation(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var input struct {
			RideCode string `json:"ride_code" binding:"required"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var ride models.Ride
		if err := db.Where("code = ?", input.RideCode).First(&ride).Error; err != nil {
			c.JSON(404, gin.H{"error": "Ride not found"})
			return
		}

		participation := models.Participation{
			UserID: userId,
			RideID: ride.ID,
		}

		if err := db.Create(&participation).Error; err != nil {
			if isUniqueViolation(err) {
				c.JSON(409, gin.H{"error": "User has already joined this ride"})
				return
			}
			c.JSON(500, gin.H{"error": "Failed to join ride"})
			return
		}

		c.JSON(201, participation)
	}
}

// UpdateParticipation stores a new fix on the caller's own participation.
// This is the request/response twin of the WebSocket pipeline and applies
// the same coordinate validation.
func UpdateParticipation(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var participation models.Participation
		if err := db.First(&participation, c.Param("id")).Error; err != nil {
			c.JSON(404, gin.H{"error": "Participation not found"})
			return
		}

		if participation.UserID != userId {
			c.JSON(403, gin.H{"error": "Not allowed to update this participation. It belongs to another user"})
			return
		}

		var input struct {
			Latitude          *float64   `json:"latitude" binding:"required"`
			Longitude         *float64   `json:"longitude" binding:"required"`
			LocationTimestamp *time.Time `json:"location_timestamp" binding:"required"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if *input.Latitude < -90 || *input.Latitude > 90 {
			c.JSON(400, gin.H{"error": "Latitude must be between -90 and 90"})
			return
		}
		if *input.Longitude < -180 || *input.Longitude > 180 {
			c.JSON(400, gin.H{"error": "Longitude must be between -180 and 180"})
			return
		}

		ts := input.LocationTimestamp.UTC()
		if err := db.Model(&participation).Updates(map[string]interface{}{
			"latitude":           *input.Latitude,
			"longitude":          *input.Longitude,
			"location_timestamp": ts,
		}).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to update participation"})
			return
		}

		c.JSON(200, participation)
	}
}

// DeleteParticipation removes the caller's own participation
func DeleteParticipation(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var participation models.Participation
		if err := db.First(&participation, c.Param("id")).Error; err != nil {
			c.JSON(404, gin.H{"error": "Participation not found"})
			return
		}

		if participation.UserID != userId {
			c.JSON(403, gin.H{"error": "Not allowed to delete this participation. It belongs to another user"})
			return
		}

		if err := db.Delete(&participation).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to delete participation"})
			return
		}

		c.Status(204)
	}
}

// isUniqueViolation matches the duplicate-key errors postgres and sqlite
// report for the uix_user_ride index.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "uix_user_ride") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
