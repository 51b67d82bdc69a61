package billing

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
	"github.com/dumeirei/hotel-pms-backend/internal/service/reservation"
)

const (
	actor    = "caja"
	issuerID = int64(1)
)

type testEnv struct {
	db           *gorm.DB
	charges      *ChargeService
	invoices     *InvoiceService
	reservations *reservation.ReservationService
	lines        *reservation.LineService
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
	detailRepo := repository.NewInvoiceDetailRepository(db)
	history := reservation.NewHistoryService(db, repository.NewHistoryRepository(db), reservationRepo)
	lines := reservation.NewLineService(db, reservationRepo, lineRepo, detailRepo, history)
	m := metrics.New("billing_test")
	publisher := events.NewMemoryPublisher()

	reservations := reservation.NewReservationService(db, reservationRepo, repository.NewRoomRepository(db), lineRepo, detailRepo,
		repository.NewClientRepository(db), repository.NewCompanyRepository(db), lines, history, publisher, m)

	invoices := NewInvoiceService(db, repository.NewInvoiceRepository(db), detailRepo, reservationRepo, history, publisher, m)
	invoices.now = func() time.Time { return time.Date(2025, 8, 2, 11, 15, 0, 0, time.UTC) }

	return &testEnv{
		db:           db,
		charges:      NewChargeService(db, detailRepo, reservationRepo, lineRepo, history, m),
		invoices:     invoices,
		reservations: reservations,
		lines:        lines,
		publisher:    publisher,
	}
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

// seedReservation 直接写入预订与明细，绕过入住日期校验
func (e *testEnv) seedReservation(t *testing.T, room string, entry, exit string, lines ...models.ReservationLine) *models.Reservation {
	r := &models.Reservation{
		GuestFirstName: "Jon",
		GuestLastName:  "Arrieta",
		EntryDate:      day(entry),
		ExitDate:       day(exit),
		Status:         models.ReservationStatusConfirmed,
	}
	if room != "" {
		require.NoError(t, e.db.FirstOrCreate(&models.Room{Number: room, Type: "double", OfficialPrice: decimal.NewFromInt(100)}).Error)
		r.RoomNumber = &room
	}
	require.NoError(t, e.db.Omit("Lines").Create(r).Error)
	for i := range lines {
		lines[i].ReservationID = r.ID
		lines[i].Active = true
		require.NoError(t, e.db.Create(&lines[i]).Error)
		r.TotalPrice = r.TotalPrice.Add(lines[i].Amount())
	}
	require.NoError(t, e.db.Model(r).Update("total_price", r.TotalPrice).Error)
	return r
}

func (e *testEnv) addCharge(t *testing.T, reservationID int64, concept, price string) *models.InvoiceDetail {
	d, err := e.charges.CreateCharge(t.Context(), &CreateChargeRequest{
		ReservationID: reservationID,
		Concept:       concept,
		Quantity:      1,
		UnitPrice:     decimal.RequireFromString(price),
	}, actor)
	require.NoError(t, err)
	return d
}

func (e *testEnv) detail(t *testing.T, id int64) *models.InvoiceDetail {
	var d models.InvoiceDetail
	require.NoError(t, e.db.First(&d, id).Error)
	return &d
}

func lodging(date string, price int64) models.ReservationLine {
	return models.ReservationLine{
		Date:      day(date),
		RoomType:  "double",
		Regimen:   models.RegimenHalfBoard,
		RoomCount: 1,
		Adults:    2,
		Price:     decimal.NewFromInt(price),
	}
}
