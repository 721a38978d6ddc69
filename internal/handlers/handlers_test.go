package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/ridetrack/ridetrack-backend/internal/database"
	"github.com/ridetrack/ridetrack-backend/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{Username: username, Password: "secret123"}
	require.NoError(t, user.HashPassword())
	require.NoError(t, db.Create(&user).Error)
	return user
}

// testRouter mounts the authenticated API surface with the given user
// injected, standing in for the JWT middleware.
func testRouter(db *gorm.DB, userID uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("userId", userID) })

	r.POST("/rides", CreateRide(db))
	r.GET("/rides", GetAllRides(db))
	r.GET("/rides/owned", GetOwnedRides(db))
	r.GET("/rides/joined", GetJoinedRides(db))
	r.GET("/rides/available", GetAvailableRides(db))
	r.GET("/rides/:id", GetRide(db))
	r.GET("/rides/:id/participants", GetRideParticipants(db))
	r.GET("/rides/:id/locations", GetRideLocations(db, nil))
	r.PUT("/rides/:id", UpdateRide(db))
	r.DELETE("/rides/:id", DeleteRide(db, nil))

	r.GET("/participations", GetParticipations(db))
	r.GET("/participations/:id", GetParticipation(db))
	r.POST("/participations", CreateParticipation(db))
	r.PUT("/participations/:id", UpdateParticipation(db))
	r.DELETE("/participations/:id", DeleteParticipation(db))

	r.GET("/routes", GetRoutes(db))
	r.POST("/routes", CreateRoute(db))
	r.PUT("/routes/:id", UpdateRoute(db))
	r.DELETE("/routes/:id", DeleteRoute(db))

	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}
