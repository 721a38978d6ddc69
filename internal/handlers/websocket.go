package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/ridetrack/ridetrack-backend/internal/services"
)

// WebSocketHandler handles WebSocket connections
func WebSocketHandler(hub *services.Hub, pipeline *services.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		services.HandleWebSocket(hub, pipeline, c.Writer, c.Request, userID)
	}
}
