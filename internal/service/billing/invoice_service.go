package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
	"github.com/dumeirei/hotel-pms-backend/internal/common/metrics"
	"github.com/dumeirei/hotel-pms-backend/internal/common/qrcode"
	"github.com/dumeirei/hotel-pms-backend/internal/common/tracing"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
	"github.com/dumeirei/hotel-pms-backend/internal/service/events"
	"github.com/dumeirei/hotel-pms-backend/internal/service/reservation"
)

// InvoiceService 发票服务
// 开票即视为收款，认领明细使用条件更新防止重复开票
type InvoiceService struct {
	db              *gorm.DB
	invoiceRepo     *repository.InvoiceRepository
	detailRepo      *repository.InvoiceDetailRepository
	reservationRepo *repository.ReservationRepository
	history         *reservation.HistoryService
	publisher       events.Publisher
	metrics         *metrics.Metrics
	qr              *qrcode.Generator
	now             func() time.Time
}

// NewInvoiceService 创建发票服务
func NewInvoiceService(
	db *gorm.DB,
	invoiceRepo *repository.InvoiceRepository,
	detailRepo *repository.InvoiceDetailRepository,
	reservationRepo *repository.ReservationRepository,
	history *reservation.HistoryService,
	publisher events.Publisher,
	m *metrics.Metrics,
) *InvoiceService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &InvoiceService{
		db:              db,
		invoiceRepo:     invoiceRepo,
		detailRepo:      detailRepo,
		reservationRepo: reservationRepo,
		history:         history,
		publisher:       publisher,
		metrics:         m,
		qr:              qrcode.NewGenerator(qrcode.WithSize(256), qrcode.WithRecoveryLevel(qrcode.Medium)),
		now:             time.Now,
	}
}

// CreateInvoiceRequest 开票请求
type CreateInvoiceRequest struct {
	ReservationID int64   `json:"reservation_id" binding:"required"`
	ClientID      *int64  `json:"client_id"`
	CompanyID     *int64  `json:"company_id"`
	PaymentMethod string  `json:"payment_method" binding:"required"`
	DetailIDs     []int64 `json:"detail_ids" binding:"required"`
}

// SearchInvoicesRequest 发票查询条件
type SearchInvoicesRequest struct {
	InvoiceID     *int64
	ReservationID *int64
	Date          *time.Time
	Status        string
}

// CreateInvoice 开具发票
func (s *InvoiceService) CreateInvoice(ctx context.Context, req *CreateInvoiceRequest, issuerID int64, actor string) (*models.Invoice, error) {
	const op = "Error creating invoice"

	ids := utils.Unique(req.DetailIDs)
	switch {
	case len(ids) == 0:
		return nil, errors.Prefix(op, errors.ErrInvoiceInvalid.WithMessage("at least one charge is required"))
	case !models.IsValidPaymentMethod(req.PaymentMethod):
		return nil, errors.Prefix(op, errors.ErrInvalidPaymentMethod.WithMessagef("invalid payment method %q", req.PaymentMethod))
	case issuerID <= 0:
		return nil, errors.Prefix(op, errors.ErrInvoiceInvalid.WithMessage("issuing user is required"))
	}

	invoice := &models.Invoice{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res, err := s.reservationRepo.WithTx(tx).GetForUpdate(ctx, req.ReservationID)
		if err != nil {
			return dbError(err, errors.ErrReservationNotFound)
		}

		details, err := s.detailRepo.WithTx(tx).ListClaimable(ctx, res.ID, ids)
		if err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		if len(details) != len(ids) {
			return errors.ErrChargesUnavailable
		}

		totals := make([]decimal.Decimal, 0, len(details))
		for _, d := range details {
			totals = append(totals, d.Total)
		}
		total := utils.SumMoney(totals...)
		if !total.IsPositive() {
			return errors.ErrInvoiceTotalInvalid.WithMessagef("invoice total must be positive, got %s", total.StringFixed(2))
		}

		invoice = &models.Invoice{
			GuestName:     res.GuestName(),
			ClientID:      res.ClientID,
			CompanyID:     res.CompanyID,
			ReservationID: res.ID,
			IssuedBy:      issuerID,
			IssuedAt:      s.now().UTC(),
			Total:         total,
			PaymentMethod: req.PaymentMethod,
			Status:        models.InvoiceStatusPaid,
		}
		if req.ClientID != nil {
			invoice.ClientID = req.ClientID
		}
		if req.CompanyID != nil {
			invoice.CompanyID = req.CompanyID
		}
		if err := s.invoiceRepo.WithTx(tx).Create(ctx, invoice); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}

		claimed, err := s.detailRepo.WithTx(tx).Claim(ctx, invoice.ID, res.ID, ids)
		if err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		if claimed != int64(len(ids)) {
			return errors.ErrChargesUnavailable
		}

		return s.history.Record(ctx, tx, res.ID, actor, models.HistoryActionModified,
			fmt.Sprintf("Invoice %d issued: %s paid by %s, %d charge(s).", invoice.ID, total.StringFixed(2), req.PaymentMethod, len(ids)), nil)
	})
	if err != nil {
		return nil, errors.Prefix(op, err)
	}

	created, err := s.invoiceRepo.GetByID(ctx, invoice.ID)
	if err != nil {
		return nil, errors.Prefix(op, errors.ErrDatabaseError.WithError(err))
	}

	s.metrics.RecordInvoice(created.PaymentMethod, created.Status, created.Total.InexactFloat64())
	tracing.AddEvent(ctx, "invoice.created", tracing.WithInvoiceID(created.ID), tracing.WithReservationID(created.ReservationID))
	s.publish(ctx, events.InvoiceCreated, created)
	logger.Info("invoice created",
		logger.InvoiceID(created.ID),
		logger.ReservationID(created.ReservationID),
		logger.String("total", created.Total.StringFixed(2)),
		logger.Actor(actor),
	)
	return created, nil
}

// VoidInvoice 作废发票，关联的有效明细在同一事务内全部作废
func (s *InvoiceService) VoidInvoice(ctx context.Context, id int64, actor string) (*models.Invoice, error) {
	tracing.SetAttributes(ctx, tracing.WithInvoiceID(id), tracing.WithOperation("void_invoice"))
	voided := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.invoiceRepo.WithTx(tx).GetForUpdate(ctx, id)
		if err != nil {
			return dbError(err, errors.ErrInvoiceNotFound)
		}
		if invoice.Status == models.InvoiceStatusCancelled {
			return errors.ErrInvoiceAlreadyVoided.WithMessagef("invoice %d is already cancelled", id)
		}

		details, err := s.detailRepo.WithTx(tx).ListActiveByInvoice(ctx, id)
		if err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		for _, d := range details {
			if err := voidDetail(ctx, s.detailRepo.WithTx(tx), d); err != nil {
				return err
			}
		}
		voided = len(details)

		if err := s.invoiceRepo.WithTx(tx).UpdateStatus(ctx, id, models.InvoiceStatusCancelled); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		return s.history.Record(ctx, tx, invoice.ReservationID, actor, models.HistoryActionModified,
			fmt.Sprintf("Invoice %d voided, %d charge(s) voided.", id, voided), nil)
	})
	if err != nil {
		return nil, errors.Prefix("Error voiding invoice", err)
	}

	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Prefix("Error voiding invoice", errors.ErrDatabaseError.WithError(err))
	}

	s.metrics.RecordChargesVoided(voided)
	s.metrics.RecordInvoice(invoice.PaymentMethod, invoice.Status, 0)
	s.publish(ctx, events.InvoiceVoided, invoice)
	logger.Info("invoice voided", logger.InvoiceID(id), logger.Int("charges", voided), logger.Actor(actor))
	return invoice, nil
}

// GetByID 获取发票（含明细）
func (s *InvoiceService) GetByID(ctx context.Context, id int64) (*models.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Prefix("Error fetching invoice", dbError(err, errors.ErrInvoiceNotFound))
	}
	return invoice, nil
}

// Search 查询发票
// 指定日期时扩展为当天整日
func (s *InvoiceService) Search(ctx context.Context, req *SearchInvoicesRequest) ([]*models.Invoice, error) {
	filter := &repository.InvoiceFilter{}
	if req != nil {
		filter.InvoiceID = req.InvoiceID
		filter.ReservationID = req.ReservationID
		filter.Status = req.Status
		if req.Date != nil {
			from := utils.DateOnly(*req.Date)
			before := from.AddDate(0, 0, 1)
			filter.IssuedFrom, filter.IssuedBefore = &from, &before
		}
	}

	invoices, err := s.invoiceRepo.Search(ctx, filter)
	if err != nil {
		return nil, errors.Prefix("Error searching invoices", errors.ErrDatabaseError.WithError(err))
	}
	return invoices, nil
}

// InvoiceQRCode 生成发票二维码 PNG
func (s *InvoiceService) InvoiceQRCode(ctx context.Context, id int64) ([]byte, error) {
	invoice, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	png, err := s.qr.GeneratePNG(InvoiceReference(invoice))
	if err != nil {
		return nil, errors.Prefix("Error generating invoice QR code", errors.ErrInternalError.WithError(err))
	}
	return png, nil
}

// InvoiceQRCodeDataURL 生成可内嵌到打印模板的二维码 Data URL
func (s *InvoiceService) InvoiceQRCodeDataURL(ctx context.Context, id int64) (string, error) {
	invoice, err := s.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	url, err := s.qr.GenerateDataURL(InvoiceReference(invoice))
	if err != nil {
		return "", errors.Prefix("Error generating invoice QR code", errors.ErrInternalError.WithError(err))
	}
	return url, nil
}

// InvoiceReference 打印小票上的发票引用
func InvoiceReference(inv *models.Invoice) string {
	return fmt.Sprintf("INV-%d|%d|%s|%s", inv.ID, inv.ReservationID, inv.Total.StringFixed(2), inv.IssuedAt.UTC().Format(time.RFC3339))
}

func (s *InvoiceService) publish(ctx context.Context, routingKey string, inv *models.Invoice) {
	ids := make([]int64, 0, len(inv.Details))
	for _, d := range inv.Details {
		ids = append(ids, d.ID)
	}
	evt := &events.InvoiceEvent{
		InvoiceID:     inv.ID,
		ReservationID: inv.ReservationID,
		GuestName:     inv.GuestName,
		Total:         inv.Total,
		PaymentMethod: inv.PaymentMethod,
		Status:        inv.Status,
		DetailIDs:     ids,
		IssuedAt:      inv.IssuedAt,
	}
	if err := s.publisher.Publish(ctx, routingKey, evt); err != nil {
		logger.Warn("failed to publish invoice event", logger.InvoiceID(inv.ID), logger.Err(err))
	}
}
