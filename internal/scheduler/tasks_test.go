package scheduler

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/hotel-pms-backend/internal/common/cache"
	"github.com/dumeirei/hotel-pms-backend/internal/common/config"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
	reportService "github.com/dumeirei/hotel-pms-backend/internal/service/report"
)

func setupTaskHandler(t *testing.T) (*TaskHandler, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.All()...))

	reservationRepo := repository.NewReservationRepository(db)
	reports := reportService.NewReportService(
		reservationRepo,
		repository.NewRoomRepository(db),
		repository.NewInvoiceRepository(db),
		cache.New(nil, cache.KeyPrefixReport),
		time.Minute,
		nil,
		nil,
	)

	h := NewTaskHandler(reports, reservationRepo)
	h.now = func() time.Time { return time.Date(2025, 6, 10, 7, 0, 0, 0, time.UTC) }
	return h, db
}

func seedStay(t *testing.T, db *gorm.DB, room, entry, exit, status string) *models.Reservation {
	require.NoError(t, db.Create(&models.Room{Number: room, Type: "double", OfficialPrice: decimal.NewFromInt(90)}).Error)
	entryDate, err := time.Parse("2006-01-02", entry)
	require.NoError(t, err)
	exitDate, err := time.Parse("2006-01-02", exit)
	require.NoError(t, err)

	r := &models.Reservation{
		GuestFirstName: "Ane",
		GuestLastName:  "Etxeberria",
		EntryDate:      entryDate,
		ExitDate:       exitDate,
		RoomNumber:     &room,
		Status:         status,
	}
	require.NoError(t, db.Create(r).Error)
	return r
}

func TestTaskHandler_BuildDailySummary(t *testing.T) {
	h, db := setupTaskHandler(t)
	seedStay(t, db, "101", "2025-06-10", "2025-06-12", models.ReservationStatusConfirmed)
	seedStay(t, db, "102", "2025-06-08", "2025-06-10", models.ReservationStatusCheckedIn)
	overdue := seedStay(t, db, "103", "2025-06-05", "2025-06-09", models.ReservationStatusCheckedIn)
	seedStay(t, db, "104", "2025-06-01", "2025-06-03", models.ReservationStatusCheckedOut)

	summary, err := h.BuildDailySummary(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "2025-06-10", summary.Date)
	assert.Equal(t, 1, summary.Arrivals)
	assert.Equal(t, 1, summary.Departures)
	assert.Equal(t, 1, summary.OccupiedRooms)
	assert.Equal(t, "25.00", summary.Occupancy)
	assert.Equal(t, []int64{overdue.ID}, summary.OverdueCheckouts)

	assert.NoError(t, h.LogDailySummary(t.Context()))
}

func TestRegisterTasks(t *testing.T) {
	h, _ := setupTaskHandler(t)
	s, err := NewScheduler("UTC")
	require.NoError(t, err)

	cfg := &config.SchedulerConfig{ReportWarmupSpec: "5 0 * * *", DailySummarySpec: "0 7 * * *"}
	require.NoError(t, RegisterTasks(s, h, cfg))

	assert.NoError(t, s.RunNow(TaskReportWarmup))
	assert.NoError(t, s.RunNow(TaskDailySummary))

	bad, err := NewScheduler("UTC")
	require.NoError(t, err)
	assert.Error(t, RegisterTasks(bad, h, &config.SchedulerConfig{ReportWarmupSpec: "bogus"}))
}
