package reservation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/hotel-pms-backend/internal/common/metrics"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
	"github.com/dumeirei/hotel-pms-backend/internal/service/events"
)

const actor = "recepcion"

type testEnv struct {
	db           *gorm.DB
	reservations *ReservationService
	lines        *LineService
	history      *HistoryService
	publisher    *events.MemoryPublisher
}

func setupTestEnv(t *testing.T) *testEnv {
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
	lineRepo := repository.NewLineRepository(db)
	historyRepo := repository.NewHistoryRepository(db)

	history := NewHistoryService(db, historyRepo, reservationRepo)
	detailRepo := repository.NewInvoiceDetailRepository(db)
	lines := NewLineService(db, reservationRepo, lineRepo, detailRepo, history)
	publisher := events.NewMemoryPublisher()
	svc := NewReservationService(
		db,
		reservationRepo,
		repository.NewRoomRepository(db),
		lineRepo,
		detailRepo,
		repository.NewClientRepository(db),
		repository.NewCompanyRepository(db),
		lines,
		history,
		publisher,
		metrics.New("reservation_test"),
	)
	svc.now = func() time.Time { return time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC) }

	for _, number := range []string{"101", "102"} {
		require.NoError(t, db.Create(&models.Room{
			Number: number, Type: "double", MinCapacity: 1, MaxCapacity: 2, OfficialPrice: decimal.NewFromInt(100),
		}).Error)
	}

	return &testEnv{db: db, reservations: svc, lines: lines, history: history, publisher: publisher}
}

func strPtr(s string) *string { return &s }

func line(date string, price int64, rooms int) LineInput {
	return LineInput{
		Date:      date,
		RoomType:  "double",
		Regimen:   models.RegimenBedBreakfast,
		RoomCount: rooms,
		Adults:    2,
		Price:     decimal.NewFromInt(price),
	}
}

func createRequest(room *string, entry, exit string, lines ...LineInput) *CreateReservationRequest {
	return &CreateReservationRequest{
		GuestFirstName: "Lucía",
		GuestLastName:  "Fernández",
		EntryDate:      entry,
		ExitDate:       exit,
		RoomNumber:     room,
		Lines:          lines,
	}
}

func (e *testEnv) create(t *testing.T, room *string, entry, exit string, lines ...LineInput) *models.Reservation {
	r, err := e.reservations.Create(t.Context(), createRequest(room, entry, exit, lines...), actor)
	require.NoError(t, err)
	return r
}

func (e *testEnv) reload(t *testing.T, id int64) *models.Reservation {
	var r models.Reservation
	require.NoError(t, e.db.First(&r, id).Error)
	return &r
}

func (e *testEnv) historyCount(t *testing.T, id int64) int64 {
	var n int64
	require.NoError(t, e.db.Model(&models.HistoryEntry{}).Where("reservation_id = ?", id).Count(&n).Error)
	return n
}
