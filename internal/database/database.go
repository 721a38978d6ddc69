package database

import (
	"fmt"
	"os"

	"github.com/ridetrack/ridetrack-backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func InitDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

// RunMigrations creates the schema and the constraints the live pipeline
// relies on: the unique ride code and the one-participation-per-user-per-ride
// index that makes a duplicate join a conflict instead of a second row.
func RunMigrations(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Ride{},
		&models.Participation{},
		&models.Route{},
	)
	if err != nil {
		return err
	}

	// Participations go away with their ride. AutoMigrate does not retrofit
	// the cascade onto an existing foreign key, so enforce it by hand on
	// postgres deployments.
	if db.Dialector.Name() == "postgres" {
		db.Exec(`ALTER TABLE participations DROP CONSTRAINT IF EXISTS fk_participations_ride`)
		if err := db.Exec(`ALTER TABLE participations
			ADD CONSTRAINT fk_participations_ride
			FOREIGN KEY (ride_id) REFERENCES rides(id) ON DELETE CASCADE`).Error; err != nil {
			return err
		}
	}

	return nil
}
