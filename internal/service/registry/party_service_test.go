package registry

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
)

func TestPartyService_Clients(t *testing.T) {
	svc, db := newPartyService(t)
	ctx := t.Context()

	client, err := svc.CreateClient(ctx, &ClientRequest{
		FirstName:  "Ane",
		LastName:   "Etxeberria",
		DocumentID: strPtr(" 12345678Z "),
		Email:      strPtr(""),
	})
	require.NoError(t, err)
	assert.Equal(t, "12345678Z", *client.DocumentID)
	assert.Nil(t, client.Email)

	t.Run("证件号重复", func(t *testing.T) {
		_, err := svc.CreateClient(ctx, &ClientRequest{FirstName: "Jon", LastName: "Arrieta", DocumentID: strPtr("12345678Z")})
		assert.ErrorIs(t, err, errors.ErrClientExists)
	})

	t.Run("更新时保留自身证件号", func(t *testing.T) {
		updated, err := svc.UpdateClient(ctx, client.ID, &ClientRequest{
			FirstName:  "Ane",
			LastName:   "Etxeberria Goñi",
			DocumentID: strPtr("12345678Z"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Etxeberria Goñi", updated.LastName)
	})

	t.Run("缺少姓名", func(t *testing.T) {
		_, err := svc.CreateClient(ctx, &ClientRequest{FirstName: " "})
		assert.ErrorIs(t, err, errors.ErrPartyInvalid)
	})

	t.Run("关键字查询", func(t *testing.T) {
		clients, total, err := svc.ListClients(ctx, &ListPartiesRequest{Keyword: "Goñi"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, client.ID, clients[0].ID)
	})

	t.Run("被发票引用时不可删除", func(t *testing.T) {
		require.NoError(t, db.Create(&models.Invoice{
			GuestName:     "Ane Etxeberria",
			ClientID:      &client.ID,
			ReservationID: 1,
			IssuedBy:      1,
			IssuedAt:      time.Now().UTC(),
			Total:         decimal.NewFromInt(10),
			PaymentMethod: models.PaymentMethodCash,
			Status:        models.InvoiceStatusPaid,
		}).Error)
		assert.ErrorIs(t, svc.DeleteClient(ctx, client.ID), errors.ErrClientInUse)
	})

	t.Run("删除未引用客户", func(t *testing.T) {
		other, err := svc.CreateClient(ctx, &ClientRequest{FirstName: "Jon", LastName: "Arrieta"})
		require.NoError(t, err)
		require.NoError(t, svc.DeleteClient(ctx, other.ID))
		_, err = svc.GetClient(ctx, other.ID)
		assert.ErrorIs(t, err, errors.ErrClientNotFound)
	})
}

func TestPartyService_Companies(t *testing.T) {
	svc, db := newPartyService(t)
	ctx := t.Context()

	company, err := svc.CreateCompany(ctx, &CompanyRequest{Name: "Acme Travel", TaxID: strPtr("B12345678")})
	require.NoError(t, err)

	_, err = svc.CreateCompany(ctx, &CompanyRequest{Name: "Other", TaxID: strPtr("B12345678")})
	assert.ErrorIs(t, err, errors.ErrCompanyExists)

	_, err = svc.CreateCompany(ctx, &CompanyRequest{Name: ""})
	assert.ErrorIs(t, err, errors.ErrPartyInvalid)

	updated, err := svc.UpdateCompany(ctx, company.ID, &CompanyRequest{Name: "Acme Travel SL", TaxID: strPtr("B12345678"), Phone: strPtr("943000000")})
	require.NoError(t, err)
	assert.Equal(t, "943000000", *updated.Phone)

	companies, total, err := svc.ListCompanies(ctx, &ListPartiesRequest{Keyword: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Acme Travel SL", companies[0].Name)

	require.NoError(t, db.Create(&models.Reservation{
		GuestFirstName: "Ane",
		GuestLastName:  "Etxeberria",
		CompanyID:      &company.ID,
		EntryDate:      time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		ExitDate:       time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		Status:         models.ReservationStatusConfirmed,
	}).Error)
	assert.ErrorIs(t, svc.DeleteCompany(ctx, company.ID), errors.ErrCompanyInUse)

	assert.ErrorIs(t, svc.DeleteCompany(ctx, 999), errors.ErrCompanyNotFound)
	_, err = svc.GetCompany(ctx, 999)
	assert.ErrorIs(t, err, errors.ErrCompanyNotFound)
}
