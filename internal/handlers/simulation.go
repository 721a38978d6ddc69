package handlers

import (
	"log"
	"math/rand"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ridetrack/ridetrack-backend/internal/models"
	"github.com/ridetrack/ridetrack-backend/internal/services"
	"gorm.io/gorm"
)

// Starting point for simulated riders with no stored fix (Munich).
const (
	simBaseLat = 48.1351
	simBaseLon = 11.5820
)

type simMover struct {
	userID uint
	lat    float64
	lon    float64
	dLat   float64
	dLon   float64
}

// AnimateParticipants walks every participant of a ride along a random
// drift for sixty seconds, feeding each step through the pipeline's public
// entry point. Pure load/demo tooling: it is just another client of
// ReportLocation.
func AnimateParticipants(db *gorm.DB, pipeline *services.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			RideID uint `json:"ride_id" binding:"required"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var ride models.Ride
		if err := db.First(&ride, input.RideID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Ride not found"})
			return
		}

		var participations []models.Participation
		if err := db.Where("ride_id = ?", ride.ID).Find(&participations).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch participants"})
			return
		}

		movers := make([]simMover, 0, len(participations))
		for _, p := range participations {
			lat, lon := simBaseLat+rand.Float64()*0.02-0.01, simBaseLon+rand.Float64()*0.02-0.01
			if p.Latitude != nil && p.Longitude != nil {
				lat, lon = *p.Latitude, *p.Longitude
			}
			movers = append(movers, simMover{
				userID: p.UserID,
				lat:    lat,
				lon:    lon,
				dLat:   rand.Float64()*0.0004 - 0.0002,
				dLon:   rand.Float64()*0.0004 - 0.0002,
			})
		}

		go animate(pipeline, ride.Code, movers)

		c.JSON(202, gin.H{
			"message":      "Animation started",
			"participants": len(movers),
		})
	}
}

func animate(pipeline *services.Pipeline, rideCode string, movers []simMover) {
	log.Printf("Animating %d participants for ride %s", len(movers), rideCode)

	for tick := 0; tick < 60; tick++ {
		for i := range movers {
			m := &movers[i]
			m.lat += m.dLat + rand.Float64()*0.0001 - 0.00005
			m.lon += m.dLon + rand.Float64()*0.0001 - 0.00005

			// Bounce back toward the base area
			if m.lat-simBaseLat > 0.05 || simBaseLat-m.lat > 0.05 {
				m.dLat = -m.dLat
			}
			if m.lon-simBaseLon > 0.05 || simBaseLon-m.lon > 0.05 {
				m.dLon = -m.dLon
			}

			lat, lon := m.lat, m.lon
			now := time.Now().UTC()
			pipeline.ReportLocation(nil, services.LocationReport{
				RideCode:          rideCode,
				UserID:            m.userID,
				Latitude:          &lat,
				Longitude:         &lon,
				LocationTimestamp: &now,
			})
		}
		time.Sleep(time.Second)
	}
}
