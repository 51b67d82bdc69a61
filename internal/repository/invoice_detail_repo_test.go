package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/hotel-pms-backend/internal/models"
)

func seedDetail(t *testing.T, repo *InvoiceDetailRepository, reservationID int64, total string) *models.InvoiceDetail {
	d := &models.InvoiceDetail{
		ReservationID: reservationID,
		Kind:          models.DetailKindExtra,
		Concept:       "Minibar",
		Quantity:      1,
		UnitPrice:     money(total),
		Total:         money(total),
		Active:        true,
	}
	require.NoError(t, repo.Create(context.Background(), d))
	return d
}

func TestInvoiceDetailRepository_Claim(t *testing.T) {
	db := setupTestDB(t)
	repo := NewInvoiceDetailRepository(db)
	ctx := context.Background()

	res := seedReservation(t, db, nil, "2025-06-10", "2025-06-12", models.ReservationStatusConfirmed)
	d1 := seedDetail(t, repo, res.ID, "45.50")
	d2 := seedDetail(t, repo, res.ID, "30.00")

	invoice := &models.Invoice{GuestName: "Ana García", ReservationID: res.ID, IssuedBy: 1, IssuedAt: day("2025-06-12"),
		Total: money("75.50"), PaymentMethod: models.PaymentMethodCash, Status: models.InvoiceStatusPaid}
	require.NoError(t, NewInvoiceRepository(db).Create(ctx, invoice))

	claimable, err := repo.ListClaimable(ctx, res.ID, []int64{d1.ID, d2.ID})
	require.NoError(t, err)
	assert.Len(t, claimable, 2)

	n, err := repo.Claim(ctx, invoice.ID, res.ID, []int64{d1.ID, d2.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// 第二次认领不会再命中
	n, err = repo.Claim(ctx, invoice.ID+1, res.ID, []int64{d1.ID, d2.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	pending, err := repo.ListPendingByReservation(ctx, res.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	linked, err := repo.ListActiveByInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Len(t, linked, 2)
}

func TestInvoiceDetailRepository_ClaimOtherReservation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewInvoiceDetailRepository(db)
	ctx := context.Background()

	a := seedReservation(t, db, nil, "2025-06-10", "2025-06-12", models.ReservationStatusConfirmed)
	b := seedReservation(t, db, nil, "2025-06-10", "2025-06-12", models.ReservationStatusConfirmed)
	d := seedDetail(t, repo, a.ID, "10")

	claimable, err := repo.ListClaimable(ctx, b.ID, []int64{d.ID})
	require.NoError(t, err)
	assert.Empty(t, claimable)
}

func TestInvoiceDetailRepository_LodgingAndPending(t *testing.T) {
	db := setupTestDB(t)
	repo := NewInvoiceDetailRepository(db)
	ctx := context.Background()

	res := seedReservation(t, db, nil, "2025-08-01", "2025-08-02", models.ReservationStatusConfirmed)
	extra := seedDetail(t, repo, res.ID, "5")
	lodging := &models.InvoiceDetail{ReservationID: res.ID, Kind: models.DetailKindLodging, Concept: "Lodging - double (room_only)",
		Quantity: 1, UnitPrice: money("100"), Total: money("100"), Active: true}
	require.NoError(t, repo.CreateBatch(ctx, []*models.InvoiceDetail{lodging}))

	list, err := repo.ListActiveLodgingByReservation(ctx, res.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, lodging.ID, list[0].ID)

	extra.Active = false
	require.NoError(t, repo.Update(ctx, extra))
	pending, err := repo.ListPendingByReservation(ctx, res.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}
