package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ridetrack/ridetrack-backend/internal/database"
	"github.com/ridetrack/ridetrack-backend/internal/handlers"
	"github.com/ridetrack/ridetrack-backend/internal/middleware"
	"github.com/ridetrack/ridetrack-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	db, err := database.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Get underlying SQL DB instance and configure the connection pool
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Redis is optional; without it live-location reads fall back to the
	// participations table and pub/sub fan-out is skipped.
	cache, err := services.InitRedis()
	if err != nil {
		log.Printf("Redis unavailable, running without location cache: %v", err)
		cache = nil
	}

	store := services.NewGormStore(db)

	hub := services.NewHub(store)
	go hub.Run()

	pipeline := services.NewPipeline(hub, store, store, cache)
	defer pipeline.Close()

	r := gin.Default()

	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(config))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Register(db))
			auth.POST("/login", handlers.Login(db))
		}

		// WebSocket connection
		api.GET("/ws", middleware.AuthMiddleware(), handlers.WebSocketHandler(hub, pipeline))

		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			users := protected.Group("/users")
			{
				users.GET("", handlers.GetUsers(db))
				users.GET("/profile", handlers.GetProfile(db))
				users.GET("/:id", handlers.GetUser(db))
			}

			rides := protected.Group("/rides")
			{
				rides.POST("", handlers.CreateRide(db))
				rides.GET("", handlers.GetAllRides(db))
				rides.GET("/owned", handlers.GetOwnedRides(db))
				rides.GET("/joined", handlers.GetJoinedRides(db))
				rides.GET("/available", handlers.GetAvailableRides(db))
				rides.GET("/:id", handlers.GetRide(db))
				rides.GET("/:id/participants", handlers.GetRideParticipants(db))
				rides.GET("/:id/locations", handlers.GetRideLocations(db, cache))
				rides.PUT("/:id", handlers.UpdateRide(db))
				rides.DELETE("/:id", handlers.DeleteRide(db, cache))
			}

			participations := protected.Group("/participations")
			{
				participations.GET("", handlers.GetParticipations(db))
				participations.GET("/:id", handlers.GetParticipation(db))
				participations.POST("", handlers.CreateParticipation(db))
				participations.PUT("/:id", handlers.UpdateParticipation(db))
				participations.DELETE("/:id", handlers.DeleteParticipation(db))
			}

			routes := protected.Group("/routes")
			{
				routes.GET("", handlers.GetRoutes(db))
				routes.GET("/owned", handlers.GetOwnedRoutes(db))
				routes.GET("/:id", handlers.GetRoute(db))
				routes.POST("", handlers.CreateRoute(db))
				routes.PUT("/:id", handlers.UpdateRoute(db))
				routes.DELETE("/:id", handlers.DeleteRoute(db))
			}

			simulation := protected.Group("/simulation")
			{
				simulation.POST("/animate", handlers.AnimateParticipants(db, pipeline))
			}
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
