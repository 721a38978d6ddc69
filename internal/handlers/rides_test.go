package handlers

import (
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ridetrack/ridetrack-backend/internal/models"
	"github.com/stretchr/testify/require"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func TestCreateRideGeneratesCodeAndAutoJoins(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "owner")
	r := testRouter(db, owner.ID)

	w := doJSON(t, r, "POST", "/rides", gin.H{
		"title":     "Sunday loop",
		"startTime": time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, 201, w.Code)

	var ride models.Ride
	decodeBody(t, w, &ride)
	require.Regexp(t, codePattern, ride.Code)
	require.True(t, ride.IsActive)
	require.Equal(t, owner.ID, ride.CreatedByUserID)

	// The creator is a participant from the start.
	var participation models.Participation
	require.NoError(t, db.Where("user_id = ? AND ride_id = ?", owner.ID, ride.ID).First(&participation).Error)
}

func TestCreateRideCodesAreUnique(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "owner")
	r := testRouter(db, owner.ID)

	codes := make(map[string]bool)
	for i := 0; i < 20; i++ {
		w := doJSON(t, r, "POST", "/rides", gin.H{
			"title":     fmt.Sprintf("Ride %d", i),
			"startTime": time.Now().Add(time.Hour).Format(time.RFC3339),
		})
		require.Equal(t, 201, w.Code)
		var ride models.Ride
		decodeBody(t, w, &ride)
		codes[ride.Code] = true
	}
	require.Len(t, codes, 20)
}

func TestRideListsByRelation(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "owner")
	other := createTestUser(t, db, "other")

	ownerRouter := testRouter(db, owner.ID)
	w := doJSON(t, ownerRouter, "POST", "/rides", gin.H{
		"title":     "Owner ride",
		"startTime": time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, 201, w.Code)
	var ride models.Ride
	decodeBody(t, w, &ride)

	// Owner sees it under owned and joined, not under available.
	var rides []models.Ride
	w = doJSON(t, ownerRouter, "GET", "/rides/owned", nil)
	require.Equal(t, 200, w.Code)
	decodeBody(t, w, &rides)
	require.Len(t, rides, 1)

	w = doJSON(t, ownerRouter, "GET", "/rides/joined", nil)
	require.Equal(t, 200, w.Code)
	decodeBody(t, w, &rides)
	require.Len(t, rides, 1)

	w = doJSON(t, ownerRouter, "GET", "/rides/available", nil)
	require.Equal(t, 200, w.Code)
	decodeBody(t, w, &rides)
	require.Empty(t, rides)

	// The other user sees it as available only.
	otherRouter := testRouter(db, other.ID)
	w = doJSON(t, otherRouter, "GET", "/rides/available", nil)
	require.Equal(t, 200, w.Code)
	decodeBody(t, w, &rides)
	require.Len(t, rides, 1)

	w = doJSON(t, otherRouter, "GET", "/rides/joined", nil)
	require.Equal(t, 200, w.Code)
	decodeBody(t, w, &rides)
	require.Empty(t, rides)
}

func TestUpdateRideOwnerOnly(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "owner")
	other := createTestUser(t, db, "other")

	w := doJSON(t, testRouter(db, owner.ID), "POST", "/rides", gin.H{
		"title":     "Original title",
		"startTime": time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, 201, w.Code)
	var ride models.Ride
	decodeBody(t, w, &ride)

	path := fmt.Sprintf("/rides/%d", ride.ID)

	w = doJSON(t, testRouter(db, other.ID), "PUT", path, gin.H{"title": "Hijacked"})
	require.Equal(t, 403, w.Code)

	w = doJSON(t, testRouter(db, owner.ID), "PUT", path, gin.H{"title": "Renamed", "isActive": false})
	require.Equal(t, 200, w.Code)
	var updated models.Ride
	decodeBody(t, w, &updated)
	require.Equal(t, "Renamed", updated.Title)
	require.False(t, updated.IsActive)
}

func TestDeleteRideCascadesParticipations(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "owner")
	other := createTestUser(t, db, "other")

	w := doJSON(t, testRouter(db, owner.ID), "POST", "/rides", gin.H{
		"title":     "Doomed ride",
		"startTime": time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, 201, w.Code)
	var ride models.Ride
	decodeBody(t, w, &ride)

	w = doJSON(t, testRouter(db, other.ID), "POST", "/participations", gin.H{"ride_code": ride.Code})
	require.Equal(t, 201, w.Code)

	path := fmt.Sprintf("/rides/%d", ride.ID)

	w = doJSON(t, testRouter(db, other.ID), "DELETE", path, nil)
	require.Equal(t, 403, w.Code)

	w = doJSON(t, testRouter(db, owner.ID), "DELETE", path, nil)
	require.Equal(t, 204, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.Participation{}).Where("ride_id = ?", ride.ID).Count(&count).Error)
	require.Zero(t, count)
}

func TestGetRideLocationsFallsBackToStoredFixes(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "owner")
	r := testRouter(db, owner.ID)

	w := doJSON(t, r, "POST", "/rides", gin.H{
		"title":     "Tracked ride",
		"startTime": time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, 201, w.Code)
	var ride models.Ride
	decodeBody(t, w, &ride)

	locationsPath := fmt.Sprintf("/rides/%d/locations", ride.ID)

	// No fixes reported yet.
	w = doJSON(t, r, "GET", locationsPath, nil)
	require.Equal(t, 200, w.Code)
	var locations []map[string]interface{}
	decodeBody(t, w, &locations)
	require.Empty(t, locations)

	// Store a fix on the owner's participation; without redis the
	// endpoint serves it from the participations table.
	var participation models.Participation
	require.NoError(t, db.Where("user_id = ? AND ride_id = ?", owner.ID, ride.ID).First(&participation).Error)
	w = doJSON(t, r, "PUT", fmt.Sprintf("/participations/%d", participation.ID), gin.H{
		"latitude":           48.1,
		"longitude":          11.5,
		"location_timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	require.Equal(t, 200, w.Code)

	w = doJSON(t, r, "GET", locationsPath, nil)
	require.Equal(t, 200, w.Code)
	decodeBody(t, w, &locations)
	require.Len(t, locations, 1)
	require.Equal(t, float64(owner.ID), locations[0]["user_id"])
	require.Equal(t, 48.1, locations[0]["latitude"])
	require.Equal(t, 11.5, locations[0]["longitude"])
}

func TestGetRideParticipants(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "owner")

	w := doJSON(t, testRouter(db, owner.ID), "POST", "/rides", gin.H{
		"title":     "Group ride",
		"startTime": time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, 201, w.Code)
	var ride models.Ride
	decodeBody(t, w, &ride)

	w = doJSON(t, testRouter(db, owner.ID), "GET", fmt.Sprintf("/rides/%d/participants", ride.ID), nil)
	require.Equal(t, 200, w.Code)

	var participants []map[string]interface{}
	decodeBody(t, w, &participants)
	require.Len(t, participants, 1)
	require.Equal(t, "owner", participants[0]["username"])
}
