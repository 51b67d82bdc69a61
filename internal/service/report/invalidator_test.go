package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/hotel-pms-backend/internal/common/metrics"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
	"github.com/dumeirei/hotel-pms-backend/internal/service/events"
	"github.com/dumeirei/hotel-pms-backend/internal/service/reservation"
)

func TestInvalidatingPublisher(t *testing.T) {
	env := setupTestEnv(t, true)
	ctx := t.Context()
	db := env.db

	reservationRepo := repository.NewReservationRepository(db)
	lineRepo := repository.NewLineRepository(db)
	detailRepo := repository.NewInvoiceDetailRepository(db)
	history := reservation.NewHistoryService(db, repository.NewHistoryRepository(db), reservationRepo)
	lines := reservation.NewLineService(db, reservationRepo, lineRepo, detailRepo, history)
	inner := events.NewMemoryPublisher()
	reservations := reservation.NewReservationService(db, reservationRepo, repository.NewRoomRepository(db), lineRepo, detailRepo,
		repository.NewClientRepository(db), repository.NewCompanyRepository(db), lines, history,
		NewInvalidatingPublisher(inner, env.reports), metrics.New("report_invalidation_test"))

	night := utils.DateOnly(time.Now()).AddDate(0, 0, 2)
	key := "report:occupancy:" + utils.FormatDate(night)

	before, err := env.reports.Occupancy(ctx, night)
	require.NoError(t, err)
	assert.Equal(t, 0, before.OccupiedRooms)
	require.True(t, env.mr.Exists(key))

	room := "101"
	created, err := reservations.Create(ctx, &reservation.CreateReservationRequest{
		GuestFirstName: "Ane",
		GuestLastName:  "Etxeberria",
		EntryDate:      utils.FormatDate(night),
		ExitDate:       utils.FormatDate(night.AddDate(0, 0, 1)),
		RoomNumber:     &room,
		Lines: []reservation.LineInput{{
			Date:     utils.FormatDate(night),
			RoomType: "double",
			Regimen:  models.RegimenRoomOnly,
			Price:    decimal.NewFromInt(90),
		}},
	}, "recepcion")
	require.NoError(t, err)

	t.Run("新建预订后重新计算", func(t *testing.T) {
		assert.False(t, env.mr.Exists(key))
		after, err := env.reports.Occupancy(ctx, night)
		require.NoError(t, err)
		assert.Equal(t, 1, after.OccupiedRooms)
	})

	t.Run("修改预订后清除缓存", func(t *testing.T) {
		require.True(t, env.mr.Exists(key))
		notes := "late arrival"
		_, err := reservations.Modify(ctx, created.ID, &reservation.ModifyReservationRequest{Notes: &notes}, "recepcion")
		require.NoError(t, err)
		assert.False(t, env.mr.Exists(key))
	})

	t.Run("取消预订后重新计算", func(t *testing.T) {
		_, err := env.reports.Occupancy(ctx, night)
		require.NoError(t, err)

		_, err = reservations.ChangeStatus(ctx, created.ID, models.ReservationStatusCancelled, "recepcion")
		require.NoError(t, err)

		after, err := env.reports.Occupancy(ctx, night)
		require.NoError(t, err)
		assert.Equal(t, 0, after.OccupiedRooms)
	})

	assert.Equal(t, []string{events.ReservationCreated, events.ReservationModified, events.ReservationStatusChanged}, inner.Types())
}

func TestInvalidatingPublisher_WithoutRedis(t *testing.T) {
	env := setupTestEnv(t, false)
	inner := events.NewMemoryPublisher()
	p := NewInvalidatingPublisher(inner, env.reports)

	require.NoError(t, p.Publish(t.Context(), events.InvoiceCreated, map[string]int{"invoice_id": 1}))
	assert.Equal(t, []string{events.InvoiceCreated}, inner.Types())
	assert.NoError(t, p.Close())
}
