package reservation

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/service/events"
)

func TestCreate_TotalFromLines(t *testing.T) {
	env := setupTestEnv(t)

	r := env.create(t, nil, "2025-06-10", "2025-06-12",
		line("2025-06-10", 100, 1),
		line("2025-06-11", 100, 1),
	)

	assert.Equal(t, "200.00", r.TotalPrice.StringFixed(2))
	assert.Equal(t, models.ReservationStatusConfirmed, r.Status)
	assert.Len(t, r.Lines, 2)
	assert.Equal(t, "200.00", env.reload(t, r.ID).TotalPrice.StringFixed(2))

	// 创建记录 + 每条明细一条
	assert.Equal(t, int64(3), env.historyCount(t, r.ID))
	assert.Equal(t, []string{events.ReservationCreated}, env.publisher.Types())
}

func TestCreate_Validation(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name string
		req  *CreateReservationRequest
		want *errors.AppError
	}{
		{"离店日等于入住日", createRequest(nil, "2025-06-10", "2025-06-10", line("2025-06-10", 100, 1)), errors.ErrReservationInvalid},
		{"离店日早于入住日", createRequest(nil, "2025-06-10", "2025-06-08", line("2025-06-10", 100, 1)), errors.ErrReservationInvalid},
		{"入住日已过", createRequest(nil, "2024-12-31", "2025-01-02", line("2024-12-31", 100, 1)), errors.ErrReservationInvalid},
		{"没有明细", createRequest(nil, "2025-06-10", "2025-06-12"), errors.ErrReservationInvalid},
		{"日期格式错误", createRequest(nil, "10/06/2025", "2025-06-12", line("2025-06-10", 100, 1)), errors.ErrReservationInvalid},
		{"明细日期越界", createRequest(nil, "2025-06-10", "2025-06-12", line("2025-06-12", 100, 1)), errors.ErrLineOutOfRange},
		{"房间不存在", createRequest(strPtr("999"), "2025-06-10", "2025-06-12", line("2025-06-10", 100, 1)), errors.ErrRoomNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.reservations.Create(t.Context(), tt.req, actor)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, strings.HasPrefix(errors.GetAppError(err).Message, "Error creating reservation: "))
		})
	}

	var count int64
	require.NoError(t, env.db.Model(&models.Reservation{}).Count(&count).Error)
	assert.Zero(t, count, "失败的创建不应留下数据")
}

func TestCreate_LineOutOfRangeNamesDate(t *testing.T) {
	env := setupTestEnv(t)

	_, err := env.reservations.Create(t.Context(),
		createRequest(nil, "2025-06-10", "2025-06-12", line("2025-06-10", 100, 1), line("2025-06-14", 100, 1)), actor)
	require.Error(t, err)
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))
	assert.Contains(t, err.Error(), "2025-06-14")
}

func TestCreate_OverlapRejected(t *testing.T) {
	env := setupTestEnv(t)

	env.create(t, strPtr("101"), "2025-07-01", "2025-07-05", line("2025-07-01", 90, 1))

	_, err := env.reservations.Create(t.Context(),
		createRequest(strPtr("101"), "2025-07-03", "2025-07-04", line("2025-07-03", 90, 1)), actor)
	require.Error(t, err)
	assert.Equal(t, errors.KindConflict, errors.KindOf(err))
	assert.Contains(t, err.Error(), "101")

	t.Run("相邻入住不冲突", func(t *testing.T) {
		_, err := env.reservations.Create(t.Context(),
			createRequest(strPtr("101"), "2025-07-05", "2025-07-07", line("2025-07-05", 90, 1)), actor)
		assert.NoError(t, err)
	})

	t.Run("其他房间不冲突", func(t *testing.T) {
		_, err := env.reservations.Create(t.Context(),
			createRequest(strPtr("102"), "2025-07-03", "2025-07-04", line("2025-07-03", 90, 1)), actor)
		assert.NoError(t, err)
	})
}

func TestCheckAvailability(t *testing.T) {
	env := setupTestEnv(t)
	ctx := t.Context()

	r := env.create(t, strPtr("101"), "2025-07-01", "2025-07-05", line("2025-07-01", 90, 1))
	d := func(s string) time.Time {
		v, _ := time.Parse("2006-01-02", s)
		return v
	}

	assert.ErrorIs(t, env.reservations.CheckAvailability(ctx, "101", d("2025-07-04"), d("2025-07-06"), 0), errors.ErrRoomNotAvailable)
	assert.NoError(t, env.reservations.CheckAvailability(ctx, "101", d("2025-07-04"), d("2025-07-06"), r.ID))
	assert.NoError(t, env.reservations.CheckAvailability(ctx, "102", d("2025-07-01"), d("2025-07-05"), 0))
	assert.ErrorIs(t, env.reservations.CheckAvailability(ctx, "999", d("2025-07-01"), d("2025-07-05"), 0), errors.ErrRoomNotFound)
	assert.ErrorIs(t, env.reservations.CheckAvailability(ctx, "101", d("2025-07-05"), d("2025-07-05"), 0), errors.ErrReservationInvalid)

	t.Run("取消的预订不占用房间", func(t *testing.T) {
		_, err := env.reservations.ChangeStatus(ctx, r.ID, models.ReservationStatusCancelled, actor)
		require.NoError(t, err)
		assert.NoError(t, env.reservations.CheckAvailability(ctx, "101", d("2025-07-02"), d("2025-07-03"), 0))
	})
}

func TestModify_ShrinkRemovesOutOfRangeLines(t *testing.T) {
	env := setupTestEnv(t)
	ctx := t.Context()

	r := env.create(t, nil, "2025-06-10", "2025-06-13",
		line("2025-06-10", 100, 1),
		line("2025-06-11", 100, 1),
		line("2025-06-12", 100, 1),
	)
	require.Equal(t, int64(4), env.historyCount(t, r.ID))

	updated, err := env.reservations.Modify(ctx, r.ID, &ModifyReservationRequest{ExitDate: strPtr("2025-06-11")}, actor)
	require.NoError(t, err)

	assert.Equal(t, "100.00", updated.TotalPrice.StringFixed(2))
	require.Len(t, updated.Lines, 1)
	assert.Equal(t, "2025-06-10", updated.Lines[0].Date.Format("2006-01-02"))

	// 每条删除的明细一条 + 一条汇总
	assert.Equal(t, int64(4+2+1), env.historyCount(t, r.ID))

	entries, err := env.history.ListByReservation(ctx, r.ID)
	require.NoError(t, err)
	latest := entries[0]
	assert.Equal(t, models.HistoryActionModified, latest.Action)
	assert.Contains(t, latest.Details, "Field 'exit_date' changed from '2025-06-13' to '2025-06-11'")
	assert.Contains(t, latest.Details, "2 line(s) deactivated")
	assert.Contains(t, string(latest.Changes), `"field":"exit_date"`)

	removals := 0
	for _, e := range entries {
		if strings.HasPrefix(e.Details, "Modified — line deactivated (out of range): double (") {
			removals++
		}
	}
	assert.Equal(t, 2, removals)
}

func TestModify_Rules(t *testing.T) {
	env := setupTestEnv(t)
	ctx := t.Context()

	r := env.create(t, strPtr("101"), "2025-06-10", "2025-06-12", line("2025-06-10", 100, 1))
	env.create(t, strPtr("102"), "2025-06-11", "2025-06-15", line("2025-06-11", 100, 1))

	t.Run("禁止直接修改状态", func(t *testing.T) {
		_, err := env.reservations.Modify(ctx, r.ID, &ModifyReservationRequest{Status: strPtr("cancelled")}, actor)
		assert.ErrorIs(t, err, errors.ErrStatusFieldForbidden)
		assert.Equal(t, errors.KindValidation, errors.KindOf(err))
	})

	t.Run("日期区间非法", func(t *testing.T) {
		_, err := env.reservations.Modify(ctx, r.ID, &ModifyReservationRequest{ExitDate: strPtr("2025-06-10")}, actor)
		assert.ErrorIs(t, err, errors.ErrReservationInvalid)
	})

	t.Run("换房冲突", func(t *testing.T) {
		_, err := env.reservations.Modify(ctx, r.ID, &ModifyReservationRequest{RoomNumber: strPtr("102")}, actor)
		assert.Equal(t, errors.KindConflict, errors.KindOf(err))
		assert.Equal(t, "101", *env.reload(t, r.ID).RoomNumber)
	})

	t.Run("延长入住与其他预订冲突", func(t *testing.T) {
		other := env.create(t, strPtr("101"), "2025-06-20", "2025-06-22", line("2025-06-20", 100, 1))
		_, err := env.reservations.Modify(ctx, r.ID, &ModifyReservationRequest{ExitDate: strPtr("2025-06-21")}, actor)
		assert.ErrorIs(t, err, errors.ErrRoomNotAvailable)
		_, err = env.reservations.ChangeStatus(ctx, other.ID, models.ReservationStatusCancelled, actor)
		require.NoError(t, err)
	})

	t.Run("没有实际变化", func(t *testing.T) {
		_, err := env.reservations.Modify(ctx, r.ID, &ModifyReservationRequest{GuestLastName: strPtr("Fernández")}, actor)
		require.NoError(t, err)
		entries, err := env.history.ListByReservation(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, "Modification performed with no significant changes", entries[0].Details)
	})

	t.Run("取消排房", func(t *testing.T) {
		updated, err := env.reservations.Modify(ctx, r.ID, &ModifyReservationRequest{RoomNumber: strPtr("")}, actor)
		require.NoError(t, err)
		assert.Nil(t, updated.RoomNumber)
	})

	t.Run("预订不存在", func(t *testing.T) {
		_, err := env.reservations.Modify(ctx, 9999, &ModifyReservationRequest{Notes: strPtr("x")}, actor)
		assert.ErrorIs(t, err, errors.ErrReservationNotFound)
	})
}

func TestChangeStatus_Transitions(t *testing.T) {
	env := setupTestEnv(t)
	ctx := t.Context()

	t.Run("非法状态值", func(t *testing.T) {
		r := env.create(t, nil, "2025-06-10", "2025-06-11", line("2025-06-10", 100, 1))
		_, err := env.reservations.ChangeStatus(ctx, r.ID, "archived", actor)
		assert.ErrorIs(t, err, errors.ErrInvalidStatus)
	})

	t.Run("入住需要房间", func(t *testing.T) {
		r := env.create(t, nil, "2025-06-10", "2025-06-11", line("2025-06-10", 100, 1))
		_, err := env.reservations.ChangeStatus(ctx, r.ID, models.ReservationStatusCheckedIn, actor)
		assert.ErrorIs(t, err, errors.ErrRoomRequired)
		assert.Equal(t, errors.KindState, errors.KindOf(err))
	})

	t.Run("完整流程", func(t *testing.T) {
		r := env.create(t, strPtr("101"), "2025-08-01", "2025-08-02", line("2025-08-01", 120, 1))

		got, err := env.reservations.ChangeStatus(ctx, r.ID, models.ReservationStatusCheckedIn, actor)
		require.NoError(t, err)
		assert.Equal(t, models.ReservationStatusCheckedIn, got.Status)

		active, err := env.reservations.GetActiveByRoom(ctx, "101")
		require.NoError(t, err)
		assert.Equal(t, r.ID, active.ID)

		_, err = env.reservations.ChangeStatus(ctx, r.ID, models.ReservationStatusCheckedOut, actor)
		assert.ErrorIs(t, err, errors.ErrUnbilledLines)

		l := r.Lines[0]
		require.NoError(t, env.db.Create(&models.InvoiceDetail{
			ReservationID:     r.ID,
			Kind:              models.DetailKindLodging,
			ReservationLineID: &l.ID,
			ServiceDate:       &l.Date,
			Concept:           models.LodgingConcept(&l),
			Quantity:          l.RoomCount,
			UnitPrice:         l.Price,
			Total:             l.Amount(),
			Active:            true,
		}).Error)

		got, err = env.reservations.ChangeStatus(ctx, r.ID, models.ReservationStatusCheckedOut, actor)
		require.NoError(t, err)
		assert.Equal(t, models.ReservationStatusCheckedOut, got.Status)

		_, err = env.reservations.ChangeStatus(ctx, r.ID, models.ReservationStatusConfirmed, actor)
		assert.ErrorIs(t, err, errors.ErrInvalidTransition)

		entries, err := env.history.ListByReservation(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, models.HistoryActionCheckedOut, entries[0].Action)
		assert.Equal(t, `Reservation changed to status "checked_out".`, entries[0].Details)
	})

	t.Run("重新确认已取消的预订需要房间可用", func(t *testing.T) {
		a := env.create(t, strPtr("102"), "2025-09-01", "2025-09-03", line("2025-09-01", 100, 1))
		_, err := env.reservations.ChangeStatus(ctx, a.ID, models.ReservationStatusCancelled, actor)
		require.NoError(t, err)

		env.create(t, strPtr("102"), "2025-09-02", "2025-09-04", line("2025-09-02", 100, 1))

		_, err = env.reservations.ChangeStatus(ctx, a.ID, models.ReservationStatusConfirmed, actor)
		assert.ErrorIs(t, err, errors.ErrRoomNotAvailable)
		assert.Equal(t, models.ReservationStatusCancelled, env.reload(t, a.ID).Status)
	})

	t.Run("相同状态不允许", func(t *testing.T) {
		r := env.create(t, nil, "2025-06-10", "2025-06-11", line("2025-06-10", 100, 1))
		_, err := env.reservations.ChangeStatus(ctx, r.ID, models.ReservationStatusConfirmed, actor)
		assert.ErrorIs(t, err, errors.ErrInvalidTransition)
	})
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{models.ReservationStatusConfirmed, models.ReservationStatusCancelled, true},
		{models.ReservationStatusConfirmed, models.ReservationStatusCheckedIn, true},
		{models.ReservationStatusConfirmed, models.ReservationStatusCheckedOut, false},
		{models.ReservationStatusCancelled, models.ReservationStatusConfirmed, true},
		{models.ReservationStatusCancelled, models.ReservationStatusCheckedIn, false},
		{models.ReservationStatusCheckedIn, models.ReservationStatusConfirmed, true},
		{models.ReservationStatusCheckedIn, models.ReservationStatusCheckedOut, true},
		{models.ReservationStatusCheckedIn, models.ReservationStatusCancelled, false},
		{models.ReservationStatusCheckedOut, models.ReservationStatusConfirmed, false},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestHasUnbilledLines(t *testing.T) {
	env := setupTestEnv(t)
	ctx := t.Context()

	r := env.create(t, strPtr("101"), "2025-08-01", "2025-08-02", line("2025-08-01", 100, 1))

	pending, err := env.reservations.HasUnbilledLines(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, pending)

	t.Run("价格不一致的住宿明细不算匹配", func(t *testing.T) {
		l := r.Lines[0]
		require.NoError(t, env.db.Create(&models.InvoiceDetail{
			ReservationID: r.ID, Kind: models.DetailKindLodging, ReservationLineID: &l.ID, ServiceDate: &l.Date,
			Concept: models.LodgingConcept(&l), Quantity: 1, UnitPrice: decimal.NewFromInt(80), Total: decimal.NewFromInt(80), Active: true,
		}).Error)

		pending, err := env.reservations.HasUnbilledLines(ctx, r.ID)
		require.NoError(t, err)
		assert.True(t, pending)
	})

	t.Run("预订不存在", func(t *testing.T) {
		_, err := env.reservations.HasUnbilledLines(ctx, 4242)
		assert.ErrorIs(t, err, errors.ErrReservationNotFound)
	})
}

func TestQueries(t *testing.T) {
	env := setupTestEnv(t)
	ctx := t.Context()

	company := &models.Company{Name: "Viajes Sol"}
	require.NoError(t, env.db.Create(company).Error)

	req := createRequest(strPtr("101"), "2025-06-10", "2025-06-12", line("2025-06-10", 100, 1))
	req.CompanyID = &company.ID
	a, err := env.reservations.Create(ctx, req, actor)
	require.NoError(t, err)
	env.create(t, nil, "2025-06-11", "2025-06-12", line("2025-06-11", 100, 1))

	got, err := env.reservations.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Company)
	assert.Equal(t, "Viajes Sol", got.Company.Name)

	_, err = env.reservations.GetByID(ctx, 777)
	assert.ErrorIs(t, err, errors.ErrReservationNotFound)
	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))

	list, err := env.reservations.ListByEntryDate(ctx, time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = env.reservations.ListBySurname(ctx, "fern")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = env.reservations.ListBySurname(ctx, " ")
	assert.ErrorIs(t, err, errors.ErrInvalidParams)

	list, err = env.reservations.ListByCompany(ctx, "sol")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = env.reservations.ListAssignedBetween(ctx, time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC), time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = env.reservations.GetActiveByRoom(ctx, "101")
	assert.ErrorIs(t, err, errors.ErrReservationNotFound)
}

func TestCreate_UnknownParty(t *testing.T) {
	env := setupTestEnv(t)

	req := createRequest(nil, "2025-06-10", "2025-06-12", line("2025-06-10", 100, 1))
	missing := int64(55)
	req.ClientID = &missing

	_, err := env.reservations.Create(t.Context(), req, actor)
	assert.ErrorIs(t, err, errors.ErrClientNotFound)
}
