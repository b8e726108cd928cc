package dbhelper

import (
	"os"
	"testing"

	"stylistapi/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// TestDBEnv gates the tests that need a running postgres.
const TestDBEnv = "STYLIST_TEST_DB"

func SetupCleaner(db *gorm.DB) func() {
	return func() {
		db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.SavedOutfit{})
		db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.OutfitFeedback{})
		db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.StyleProfile{})
		db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Clothing{})
		db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.UserPushToken{})
		db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.UserAccount{})
	}
}

// RequireTestDB skips t unless STYLIST_TEST_DB=1, then connects and
// returns the database with a cleaner registered on t.
func RequireTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	if os.Getenv(TestDBEnv) != "1" {
		t.Skipf("set %s=1 to run database tests", TestDBEnv)
	}
	db := SetupTestDB()
	cleaner := SetupCleaner(db)
	cleaner()
	t.Cleanup(cleaner)
	return db
}

func Migrate(db *gorm.DB, model interface{}) {
	err := db.AutoMigrate(model)
	if err != nil {
		log.Fatal().Err(err).Msgf("error while migrating %T", model)
	}
}
