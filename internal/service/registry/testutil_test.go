package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newRoomService(t *testing.T) (*RoomService, *gorm.DB) {
	db := setupTestDB(t)
	return NewRoomService(repository.NewRoomRepository(db)), db
}

func newPartyService(t *testing.T) (*PartyService, *gorm.DB) {
	db := setupTestDB(t)
	return NewPartyService(repository.NewClientRepository(db), repository.NewCompanyRepository(db)), db
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }
