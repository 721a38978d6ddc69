package handlers

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ridetrack/ridetrack-backend/internal/models"
	"github.com/ridetrack/ridetrack-backend/internal/services"
	"github.com/ridetrack/ridetrack-backend/pkg/utils"
	"gorm.io/gorm"
)

// CreateRide creates a ride with a fresh join code and auto-joins the
// creator. Code generation and both inserts run in one transaction so a
// ride never exists without its owner's participation.
func CreateRide(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var input struct {
			Title       string    `json:"title" binding:"required"`
			Description string    `json:"description"`
			StartTime   time.Time `json:"startTime" binding:"required"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var ride models.Ride
		err := db.Transaction(func(tx *gorm.DB) error {
			code, err := utils.GenerateUniqueCode(tx)
			if err != nil {
				return err
			}

			ride = models.Ride{
				Code:            code,
				Title:           input.Title,
				Description:     input.Description,
				StartTime:       input.StartTime,
				CreatedByUserID: userId,
				IsActive:        true,
			}
			if err := tx.Create(&ride).Error; err != nil {
				return err
			}

			participation := models.Participation{
				UserID: userId,
				RideID: ride.ID,
			}
			return tx.Create(&participation).Error
		})
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to create ride"})
			return
		}

		c.JSON(201, ride)
	}
}

// GetAllRides lists every ride
func GetAllRides(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rides []models.Ride
		if err := db.Order("start_time ASC").Find(&rides).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch rides"})
			return
		}

		c.JSON(200, rides)
	}
}

// GetOwnedRides lists rides created by the authenticated user
func GetOwnedRides(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var rides []models.Ride
		if err := db.Where("created_by_user_id = ?", userId).
			Order("start_time ASC").
			Find(&rides).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch owned rides"})
			return
		}

		c.JSON(200, rides)
	}
}

// GetJoinedRides lists rides the authenticated user participates in
func GetJoinedRides(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var rides []models.Ride
		if err := db.
			Joins("JOIN participations ON participations.ride_id = rides.id AND participations.deleted_at IS NULL").
			Where("participations.user_id = ?", userId).
			Order("rides.start_time ASC").
			Find(&rides).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch joined rides"})
			return
		}

		c.JSON(200, rides)
	}
}

// GetAvailableRides lists rides the authenticated user has not joined yet
func GetAvailableRides(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var rides []models.Ride
		if err := db.
			Where("id NOT IN (?)", db.Model(&models.Participation{}).
				Select("ride_id").
				Where("user_id = ?", userId)).
			Order("start_time ASC").
			Find(&rides).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch available rides"})
			return
		}

		c.JSON(200, rides)
	}
}

// GetRide returns a single ride by id
func GetRide(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var ride models.Ride
		if err := db.First(&ride, c.Param("id")).Error; err != nil {
			c.JSON(404, gin.H{"error": "Ride not found"})
			return
		}

		c.JSON(200, ride)
	}
}

// GetRideParticipants lists a ride's participants with their last known fixes
func GetRideParticipants(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var ride models.Ride
		if err := db.First(&ride, c.Param("id")).Error; err != nil {
			c.JSON(404, gin.H{"error": "Ride not found"})
			return
		}

		var participations []models.Participation
		if err := db.Preload("User").
			Where("ride_id = ?", ride.ID).
			Find(&participations).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch participants"})
			return
		}

		participants := make([]gin.H, 0, len(participations))
		for _, p := range participations {
			username := ""
			if p.User != nil {
				username = p.User.Username
			}
			participants = append(participants, gin.H{
				"id":                p.ID,
				"userId":            p.UserID,
				"username":          username,
				"joinedAt":          p.JoinedAt,
				"latitude":          p.Latitude,
				"longitude":         p.Longitude,
				"locationTimestamp": p.LocationTimestamp,
			})
		}

		c.JSON(200, participants)
	}
}

// GetRideLocations returns the live fixes cached in redis for a ride,
// falling back to the stored participation rows when redis is not configured
func GetRideLocations(db *gorm.DB, cache *services.LocationCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var ride models.Ride
		if err := db.First(&ride, c.Param("id")).Error; err != nil {
			c.JSON(404, gin.H{"error": "Ride not found"})
			return
		}

		if cache == nil {
			var participations []models.Participation
			if err := db.Where("ride_id = ?", ride.ID).Find(&participations).Error; err != nil {
				c.JSON(500, gin.H{"error": "Failed to fetch locations"})
				return
			}

			locations := make([]services.RiderLocation, 0, len(participations))
			for _, p := range participations {
				if p.Latitude == nil || p.Longitude == nil {
					continue
				}
				loc := services.RiderLocation{
					UserID:    p.UserID,
					Latitude:  *p.Latitude,
					Longitude: *p.Longitude,
				}
				if p.LocationTimestamp != nil {
					loc.LocationTimestamp = *p.LocationTimestamp
				}
				locations = append(locations, loc)
			}

			c.JSON(200, locations)
			return
		}

		locations, err := cache.GetRideLocations(c.Request.Context(), ride.Code)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch live locations"})
			return
		}

		c.JSON(200, locations)
	}
}

// UpdateRide mutates a ride; only its creator may do so
func UpdateRide(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var ride models.Ride
		if err := db.First(&ride, c.Param("id")).Error; err != nil {
			c.JSON(404, gin.H{"error": "Ride not found"})
			return
		}

		if ride.CreatedByUserID != userId {
			c.JSON(403, gin.H{"error": "Not authorized to update this ride"})
			return
		}

		var input struct {
			Title       *string    `json:"title"`
			Description *string    `json:"description"`
			StartTime   *time.Time `json:"startTime"`
			IsActive    *bool      `json:"isActive"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if input.Title != nil {
			ride.Title = *input.Title
		}
		if input.Description != nil {
			ride.Description = *input.Description
		}
		if input.StartTime != nil {
			ride.StartTime = *input.StartTime
		}
		if input.IsActive != nil {
			ride.IsActive = *input.IsActive
		}

		if err := db.Save(&ride).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to update ride"})
			return
		}

		c.JSON(200, ride)
	}
}

// DeleteRide removes a ride and its participations; only the creator may
// do so. Live room subscribers are not evicted, their subscriptions simply
// stop producing updates.
func DeleteRide(db *gorm.DB, cache *services.LocationCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var ride models.Ride
		if err := db.First(&ride, c.Param("id")).Error; err != nil {
			c.JSON(404, gin.H{"error": "Ride not found"})
			return
		}

		if ride.CreatedByUserID != userId {
			c.JSON(403, gin.H{"error": "Not authorized to delete this ride"})
			return
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("ride_id = ?", ride.ID).Delete(&models.Participation{}).Error; err != nil {
				return err
			}
			return tx.Delete(&ride).Error
		})
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to delete ride"})
			return
		}

		if cache != nil {
			if err := cache.ClearRideLocations(context.Background(), ride.Code); err != nil {
				log.Printf("Failed to clear cached locations for ride %s: %v", ride.Code, err)
			}
		}

		c.Status(204)
	}
}
