package billing

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/service/events"
)

func TestCreateInvoice_Total(t *testing.T) {
	env := setupTestEnv(t)
	ctx := t.Context()

	r := env.seedReservation(t, "101", "2025-08-01", "2025-08-02")
	a := env.addCharge(t, r.ID, "Minibar", "45.50")
	b := env.addCharge(t, r.ID, "Parking", "30.00")

	invoice, err := env.invoices.CreateInvoice(ctx, &CreateInvoiceRequest{
		ReservationID: r.ID,
		PaymentMethod: models.PaymentMethodCard,
		DetailIDs:     []int64{a.ID, b.ID},
	}, issuerID, actor)
	require.NoError(t, err)

	assert.Equal(t, "75.50", invoice.Total.StringFixed(2))
	assert.Equal(t, models.InvoiceStatusPaid, invoice.Status)
	assert.Equal(t, "Jon Arrieta", invoice.GuestName)
	assert.Equal(t, issuerID, invoice.IssuedBy)
	assert.Len(t, invoice.Details, 2)

	for _, id := range []int64{a.ID, b.ID} {
		d := env.detail(t, id)
		require.NotNil(t, d.InvoiceID)
		assert.Equal(t, invoice.ID, *d.InvoiceID)
	}

	pending, err := env.charges.ListPending(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Contains(t, env.publisher.Types(), events.InvoiceCreated)
}

func TestCreateInvoice_Validation(t *testing.T) {
	env := setupTestEnv(t)
	ctx := t.Context()

	r := env.seedReservation(t, "", "2025-08-01", "2025-08-02")
	other := env.seedReservation(t, "", "2025-08-01", "2025-08-02")
	charge := env.addCharge(t, r.ID, "Laundry", "12")
	free := env.addCharge(t, r.ID, "Welcome drink", "0")
	foreign := env.addCharge(t, other.ID, "Spa", "60")

	tests := []struct {
		name   string
		req    *CreateInvoiceRequest
		issuer int64
		want   *errors.AppError
	}{
		{"没有明细", &CreateInvoiceRequest{ReservationID: r.ID, PaymentMethod: "cash"}, issuerID, errors.ErrInvoiceInvalid},
		{"支付方式非法", &CreateInvoiceRequest{ReservationID: r.ID, PaymentMethod: "bitcoin", DetailIDs: []int64{charge.ID}}, issuerID, errors.ErrInvalidPaymentMethod},
		{"缺少开票人", &CreateInvoiceRequest{ReservationID: r.ID, PaymentMethod: "cash", DetailIDs: []int64{charge.ID}}, 0, errors.ErrInvoiceInvalid},
		{"预订不存在", &CreateInvoiceRequest{ReservationID: 999, PaymentMethod: "cash", DetailIDs: []int64{charge.ID}}, issuerID, errors.ErrReservationNotFound},
		{"明细不存在", &CreateInvoiceRequest{ReservationID: r.ID, PaymentMethod: "cash", DetailIDs: []int64{charge.ID, 9999}}, issuerID, errors.ErrChargesUnavailable},
		{"明细属于其他预订", &CreateInvoiceRequest{ReservationID: r.ID, PaymentMethod: "cash", DetailIDs: []int64{foreign.ID}}, issuerID, errors.ErrChargesUnavailable},
		{"金额为零", &CreateInvoiceRequest{ReservationID: r.ID, PaymentMethod: "cash", DetailIDs: []int64{free.ID}}, issuerID, errors.ErrInvoiceTotalInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.invoices.CreateInvoice(ctx, tt.req, tt.issuer, actor)
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "Error creating invoice: ")
		})
	}

	var count int64
	require.NoError(t, env.db.Model(&models.Invoice{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Nil(t, env.detail(t, charge.ID).InvoiceID)
}

func TestCreateInvoice_DuplicateIDsCountOnce(t *testing.T) {
	env := setupTestEnv(t)

	r := env.seedReservation(t, "", "2025-08-01", "2025-08-02")
	a := env.addCharge(t, r.ID, "Minibar", "10")

	invoice, err := env.invoices.CreateInvoice(t.Context(), &CreateInvoiceRequest{
		ReservationID: r.ID, PaymentMethod: models.PaymentMethodCash, DetailIDs: []int64{a.ID, a.ID},
	}, issuerID, actor)
	require.NoError(t, err)
	assert.Equal(t, "10.00", invoice.Total.StringFixed(2))
}

func TestCreateInvoice_NoDoubleClaim(t *testing.T) {
	env := setupTestEnv(t)
	ctx := t.Context()

	r := env.seedReservation(t, "", "2025-08-01", "2025-08-02")
	a := env.addCharge(t, r.ID, "Minibar", "20")
	b := env.addCharge(t, r.ID, "Dinner", "35")

	first, err := env.invoices.CreateInvoice(ctx, &CreateInvoiceRequest{
		ReservationID: r.ID, PaymentMethod: models.PaymentMethodCash, DetailIDs: []int64{a.ID},
	}, issuerID, actor)
	require.NoError(t, err)

	_, err = env.invoices.CreateInvoice(ctx, &CreateInvoiceRequest{
		ReservationID: r.ID, PaymentMethod: models.PaymentMethodCash, DetailIDs: []int64{a.ID, b.ID},
	}, issuerID, actor)
	assert.ErrorIs(t, err, errors.ErrChargesUnavailable)
	assert.Equal(t, errors.KindConflict, errors.KindOf(err))

	assert.Equal(t, first.ID, *env.detail(t, a.ID).InvoiceID)
	assert.Nil(t, env.detail(t, b.ID).InvoiceID, "失败的开票不应认领任何明细")
}

func TestCreateInvoice_ConcurrentClaims(t *testing.T) {
	env := setupTestEnv(t)
	ctx := t.Context()

	r := env.seedReservation(t, "", "2025-08-01", "2025-08-02")
	a := env.addCharge(t, r.ID, "Minibar", "20")
	b := env.addCharge(t, r.ID, "Dinner", "35")

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.invoices.CreateInvoice(ctx, &CreateInvoiceRequest{
				ReservationID: r.ID, PaymentMethod: models.PaymentMethodCard, DetailIDs: []int64{a.ID, b.ID},
			}, issuerID, actor)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if errors.KindOf(err) == errors.KindConflict {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)

	var invoices int64
	require.NoError(t, env.db.Model(&models.Invoice{}).Count(&invoices).Error)
	assert.Equal(t, int64(1), invoices)
}

func TestVoidInvoice_Cascade(t *testing.T) {
	env := setupTestEnv(t)
	ctx := t.Context()

	r := env.seedReservation(t, "", "2025-08-01", "2025-08-02")
	ids := []int64{
		env.addCharge(t, r.ID, "Minibar", "10").ID,
		env.addCharge(t, r.ID, "Parking", "15").ID,
		env.addCharge(t, r.ID, "Laundry", "7.25").ID,
	}
	invoice, err := env.invoices.CreateInvoice(ctx, &CreateInvoiceRequest{
		ReservationID: r.ID, PaymentMethod: models.PaymentMethodTransfer, DetailIDs: ids,
	}, issuerID, actor)
	require.NoError(t, err)

	voided, err := env.invoices.VoidInvoice(ctx, invoice.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusCancelled, voided.Status)

	for _, id := range ids {
		d := env.detail(t, id)
		assert.False(t, d.Active)
		assert.True(t, d.Total.IsNegative())
		assert.True(t, d.UnitPrice.IsNegative())
		assert.Contains(t, d.Concept, models.VoidSuffix)
		assert.Equal(t, invoice.ID, *d.InvoiceID)
	}

	var rows int64
	require.NoError(t, env.db.Model(&models.InvoiceDetail{}).Where("reservation_id = ?", r.ID).Count(&rows).Error)
	assert.Equal(t, int64(3), rows, "作废不删除明细")

	_, err = env.invoices.VoidInvoice(ctx, invoice.ID, actor)
	assert.ErrorIs(t, err, errors.ErrInvoiceAlreadyVoided)
	assert.Equal(t, errors.KindState, errors.KindOf(err))

	_, err = env.invoices.VoidInvoice(ctx, 4040, actor)
	assert.ErrorIs(t, err, errors.ErrInvoiceNotFound)
	assert.Equal(t, []string{events.InvoiceCreated, events.InvoiceVoided}, env.publisher.Types())
}

func TestSearch(t *testing.T) {
	env := setupTestEnv(t)
	ctx := t.Context()

	r := env.seedReservation(t, "", "2025-08-01", "2025-08-02")
	a := env.addCharge(t, r.ID, "Minibar", "10")
	b := env.addCharge(t, r.ID, "Parking", "15")

	first, err := env.invoices.CreateInvoice(ctx, &CreateInvoiceRequest{
		ReservationID: r.ID, PaymentMethod: models.PaymentMethodCash, DetailIDs: []int64{a.ID},
	}, issuerID, actor)
	require.NoError(t, err)

	env.invoices.now = func() time.Time { return day("2025-08-03").Add(23*time.Hour + 59*time.Minute) }
	second, err := env.invoices.CreateInvoice(ctx, &CreateInvoiceRequest{
		ReservationID: r.ID, PaymentMethod: models.PaymentMethodCash, DetailIDs: []int64{b.ID},
	}, issuerID, actor)
	require.NoError(t, err)

	t.Run("按日期", func(t *testing.T) {
		date := day("2025-08-03")
		list, err := env.invoices.Search(ctx, &SearchInvoicesRequest{Date: &date})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, second.ID, list[0].ID)
		assert.Len(t, list[0].Details, 1)
	})

	t.Run("按预订，按开票时间升序", func(t *testing.T) {
		list, err := env.invoices.Search(ctx, &SearchInvoicesRequest{ReservationID: &r.ID})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, first.ID, list[0].ID)
	})

	t.Run("按发票号", func(t *testing.T) {
		list, err := env.invoices.Search(ctx, &SearchInvoicesRequest{InvoiceID: &first.ID})
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("获取不存在的发票", func(t *testing.T) {
		_, err := env.invoices.GetByID(ctx, 777)
		assert.ErrorIs(t, err, errors.ErrInvoiceNotFound)
	})
}

func TestInvoiceQRCode(t *testing.T) {
	env := setupTestEnv(t)
	ctx := t.Context()

	r := env.seedReservation(t, "", "2025-08-01", "2025-08-02")
	a := env.addCharge(t, r.ID, "Minibar", "10")
	invoice, err := env.invoices.CreateInvoice(ctx, &CreateInvoiceRequest{
		ReservationID: r.ID, PaymentMethod: models.PaymentMethodCash, DetailIDs: []int64{a.ID},
	}, issuerID, actor)
	require.NoError(t, err)

	png, err := env.invoices.InvoiceQRCode(ctx, invoice.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	assert.Equal(t, "INV-1|1|10.00|2025-08-02T11:15:00Z", InvoiceReference(invoice))

	url, err := env.invoices.InvoiceQRCodeDataURL(ctx, invoice.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))

	_, err = env.invoices.InvoiceQRCode(ctx, 99)
	assert.ErrorIs(t, err, errors.ErrInvoiceNotFound)
}
