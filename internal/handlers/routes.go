package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/ridetrack/ridetrack-backend/internal/models"
	"github.com/ridetrack/ridetrack-backend/pkg/utils"
	"gorm.io/gorm"
)

// GetRoutes lists all GPX routes
func GetRoutes(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var routes []models.Route
		if err := db.Find(&routes).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch routes"})
			return
		}

		c.JSON(200, routes)
	}
}

// GetOwnedRoutes lists routes created by the authenticated user
func GetOwnedRoutes(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var routes []models.Route
		if err := db.Where("created_by_user_id = ?", userId).Find(&routes).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch routes"})
			return
		}

		c.JSON(200, routes)
	}
}

// GetRoute returns a route by id
func GetRoute(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var route models.Route
		if err := db.First(&route, c.Param("id")).Error; err != nil {
			c.JSON(404, gin.H{"error": "Route not found"})
			return
		}

		c.JSON(200, route)
	}
}

// CreateRoute stores a GPX route; the total distance is computed server-side
func CreateRoute(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var input struct {
			Title       string `json:"title" binding:"required"`
			Description string `json:"description"`
			GPXData     string `json:"gpxData" binding:"required"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		distance, err := utils.GPXDistance(input.GPXData)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid GPX data"})
			return
		}

		route := models.Route{
			Title:           input.Title,
			Description:     input.Description,
			GPXData:         input.GPXData,
			DistanceMeters:  distance,
			CreatedByUserID: userId,
		}

		if err := db.Create(&route).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to create route"})
			return
		}

		c.JSON(201, route)
	}
}

// UpdateRoute mutates a route; only its creator may do so
func UpdateRoute(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var route models.Route
		if err := db.First(&route, c.Param("id")).Error; err != nil {
			c.JSON(404, gin.H{"error": "Route not found"})
			return
		}

		if route.CreatedByUserID != userId {
			c.JSON(403, gin.H{"error": "Not authorized to update this route"})
			return
		}

		var input struct {
			Title       *string `json:"title"`
			Description *string `json:"description"`
			GPXData     *string `json:"gpxData"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if input.Title != nil {
			route.Title = *input.Title
		}
		if input.Description != nil {
			route.Description = *input.Description
		}
		if input.GPXData != nil {
			distance, err := utils.GPXDistance(*input.GPXData)
			if err != nil {
				c.JSON(400, gin.H{"error": "Invalid GPX data"})
				return
			}
			route.GPXData = *input.GPXData
			route.DistanceMeters = distance
		}

		if err := db.Save(&route).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to update route"})
			return
		}

		c.JSON(200, route)
	}
}

// DeleteRoute removes a route; only its creator may do so
func DeleteRoute(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var route models.Route
		if err := db.First(&route, c.Param("id")).Error; err != nil {
			c.JSON(404, gin.H{"error": "Route not found"})
			return
		}

		if route.CreatedByUserID != userId {
			c.JSON(403, gin.H{"error": "Not authorized to delete this route"})
			return
		}

		if err := db.Delete(&route).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to delete route"})
			return
		}

		c.Status(204)
	}
}
