package dbhelper

import (
	"fmt"
	"os"
	"time"

	"stylistapi/models"
	"stylistapi/services"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func SetupDB() *gorm.DB {
	db, err := gorm.Open(postgres.Open(
		fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s",
			services.GetEnv("DB_USERNAME", ""),
			services.GetEnv("DB_PASSWORD", ""),
			services.GetEnv("DB_HOST", ""),
			services.GetEnv("DB_PORT", ""),
			services.GetEnv("DB_NAME", ""),
		),
	), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to get database handle")
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(300)
	sqlDB.SetConnMaxLifetime(time.Minute * 5)

	Migrate(db, &models.UserAccount{})
	Migrate(db, &models.UserPushToken{})
	Migrate(db, &models.Clothing{})
	Migrate(db, &models.StyleProfile{})
	Migrate(db, &models.OutfitFeedback{})
	Migrate(db, &models.SavedOutfit{})

	return db
}

func SetupTestDB() *gorm.DB {
	os.Setenv("DB_USERNAME", services.GetEnv("TEST_DB_USERNAME", "stylist"))
	os.Setenv("DB_PASSWORD", services.GetEnv("TEST_DB_PASSWORD", "stylist"))
	os.Setenv("DB_HOST", services.GetEnv("TEST_DB_HOST", "localhost"))
	os.Setenv("DB_NAME", services.GetEnv("TEST_DB_NAME", "stylist"))
	os.Setenv("DB_PORT", services.GetEnv("TEST_DB_PORT", "5432"))
	if os.Getenv("JWT_SECRET") == "" {
		os.Setenv("JWT_SECRET", "test-secret")
	}
	return SetupDB()
}
