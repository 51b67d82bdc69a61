package repository

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/hotel-pms-backend/internal/models"
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

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(s string) *string {
	return &s
}

func seedRoom(t *testing.T, db *gorm.DB, number string) *models.Room {
	room := &models.Room{Number: number, Type: "double", MinCapacity: 1, MaxCapacity: 2, OfficialPrice: money("100")}
	require.NoError(t, db.Create(room).Error)
	return room
}

func seedReservation(t *testing.T, db *gorm.DB, room *string, entry, exit, status string) *models.Reservation {
	r := &models.Reservation{
		GuestFirstName: "Ana",
		GuestLastName:  "García",
		EntryDate:      day(entry),
		ExitDate:       day(exit),
		RoomNumber:     room,
		Status:         status,
	}
	require.NoError(t, db.Create(r).Error)
	return r
}
