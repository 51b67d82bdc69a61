// Package billing 提供费用明细与发票服务
package billing

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
	"github.com/dumeirei/hotel-pms-backend/internal/common/metrics"
	"github.com/dumeirei/hotel-pms-backend/internal/common/tracing"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
	"github.com/dumeirei/hotel-pms-backend/internal/service/reservation"
)

// ChargeService 费用明细服务
// 明细从不删除，作废时保留负数记录
type ChargeService struct {
	db              *gorm.DB
	detailRepo      *repository.InvoiceDetailRepository
	reservationRepo *repository.ReservationRepository
	lineRepo        *repository.LineRepository
	history         *reservation.HistoryService
	metrics         *metrics.Metrics
}

// NewChargeService 创建费用明细服务
func NewChargeService(
	db *gorm.DB,
	detailRepo *repository.InvoiceDetailRepository,
	reservationRepo *repository.ReservationRepository,
	lineRepo *repository.LineRepository,
	history *reservation.HistoryService,
	m *metrics.Metrics,
) *ChargeService {
	return &ChargeService{
		db:              db,
		detailRepo:      detailRepo,
		reservationRepo: reservationRepo,
		lineRepo:        lineRepo,
		history:         history,
		metrics:         m,
	}
}

// CreateChargeRequest 新增费用请求
type CreateChargeRequest struct {
	ReservationID int64           `json:"-"`
	Concept       string          `json:"concept" binding:"required"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	RoomNumber    *string         `json:"room_number"`
	ClientID      *int64          `json:"client_id"`
}

// CreateCharge 新增额外费用（迷你吧、停车等）
func (s *ChargeService) CreateCharge(ctx context.Context, req *CreateChargeRequest, actor string) (*models.InvoiceDetail, error) {
	const op = "Error creating charge"

	concept := strings.TrimSpace(req.Concept)
	switch {
	case concept == "":
		return nil, errors.Prefix(op, errors.ErrChargeInvalid.WithMessage("concept is required"))
	case req.Quantity <= 0:
		return nil, errors.Prefix(op, errors.ErrChargeInvalid.WithMessage("quantity must be greater than zero"))
	case req.UnitPrice.IsNegative():
		return nil, errors.Prefix(op, errors.ErrChargeInvalid.WithMessage("unit price cannot be negative"))
	}

	var detail *models.InvoiceDetail
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res, err := s.reservationRepo.WithTx(tx).GetForUpdate(ctx, req.ReservationID)
		if err != nil {
			return dbError(err, errors.ErrReservationNotFound)
		}

		unitPrice := utils.RoundMoney(req.UnitPrice)
		detail = &models.InvoiceDetail{
			ReservationID: res.ID,
			RoomNumber:    res.RoomNumber,
			ClientID:      res.ClientID,
			Kind:          models.DetailKindExtra,
			Concept:       concept,
			Quantity:      req.Quantity,
			UnitPrice:     unitPrice,
			Total:         utils.LineAmount(req.Quantity, unitPrice),
			Active:        true,
		}
		if req.RoomNumber != nil {
			detail.RoomNumber = req.RoomNumber
		}
		if req.ClientID != nil {
			detail.ClientID = req.ClientID
		}

		if err := s.detailRepo.WithTx(tx).Create(ctx, detail); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		return s.history.Record(ctx, tx, res.ID, actor, models.HistoryActionModified,
			fmt.Sprintf("Charge added: %s x%d at %s", detail.Concept, detail.Quantity, detail.UnitPrice.StringFixed(2)), nil)
	})
	if err != nil {
		return nil, errors.Prefix(op, err)
	}
	return detail, nil
}

// AdvanceLodgingCharges 为尚未生成住宿费用的有效明细生成住宿费用
// 退房前调用，生成后 HasUnbilledLines 返回 false
func (s *ChargeService) AdvanceLodgingCharges(ctx context.Context, reservationID int64, actor string) ([]*models.InvoiceDetail, error) {
	tracing.SetAttributes(ctx, tracing.WithReservationID(reservationID), tracing.WithOperation("advance_lodging"))
	created := make([]*models.InvoiceDetail, 0)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res, err := s.reservationRepo.WithTx(tx).GetForUpdate(ctx, reservationID)
		if err != nil {
			return dbError(err, errors.ErrReservationNotFound)
		}

		lines, err := s.lineRepo.WithTx(tx).ListActiveByReservation(ctx, reservationID)
		if err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		existing, err := s.detailRepo.WithTx(tx).ListActiveLodgingByReservation(ctx, reservationID)
		if err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}

		for _, line := range lines {
			if hasMatch(existing, line) {
				continue
			}
			lineID, date := line.ID, line.Date
			created = append(created, &models.InvoiceDetail{
				ReservationID:     res.ID,
				RoomNumber:        res.RoomNumber,
				ClientID:          res.ClientID,
				Kind:              models.DetailKindLodging,
				ReservationLineID: &lineID,
				ServiceDate:       &date,
				Concept:           models.LodgingConcept(line),
				Quantity:          line.RoomCount,
				UnitPrice:         line.Price,
				Total:             line.Amount(),
				Active:            true,
			})
		}
		if len(created) == 0 {
			return nil
		}

		if err := s.detailRepo.WithTx(tx).CreateBatch(ctx, created); err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		return s.history.Record(ctx, tx, res.ID, actor, models.HistoryActionModified,
			fmt.Sprintf("Lodging charges advanced: %d charge(s).", len(created)), nil)
	})
	if err != nil {
		return nil, errors.Prefix("Error advancing lodging charges", err)
	}

	logger.Info("lodging charges advanced",
		logger.ReservationID(reservationID),
		logger.Int("count", len(created)),
		logger.Actor(actor),
	)
	return created, nil
}

// ListPending 预订下尚未开票的有效明细
func (s *ChargeService) ListPending(ctx context.Context, reservationID int64) ([]*models.InvoiceDetail, error) {
	const op = "Error fetching pending charges"

	if _, err := s.reservationRepo.GetByID(ctx, reservationID); err != nil {
		return nil, errors.Prefix(op, dbError(err, errors.ErrReservationNotFound))
	}
	details, err := s.detailRepo.ListPendingByReservation(ctx, reservationID)
	if err != nil {
		return nil, errors.Prefix(op, errors.ErrDatabaseError.WithError(err))
	}
	return details, nil
}

// VoidDetail 作废明细
func (s *ChargeService) VoidDetail(ctx context.Context, id int64, actor string) (*models.InvoiceDetail, error) {
	var detail *models.InvoiceDetail
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		detail, err = s.detailRepo.WithTx(tx).GetForUpdate(ctx, id)
		if err != nil {
			return dbError(err, errors.ErrChargeNotFound)
		}
		if !detail.Active {
			return errors.ErrChargeAlreadyVoided.WithMessagef("charge %d is already voided", id)
		}
		if err := voidDetail(ctx, s.detailRepo.WithTx(tx), detail); err != nil {
			return err
		}
		return s.history.Record(ctx, tx, detail.ReservationID, actor, models.HistoryActionModified,
			"Charge voided: "+detail.Concept, nil)
	})
	if err != nil {
		return nil, errors.Prefix("Error voiding charge", err)
	}

	s.metrics.RecordChargesVoided(1)
	logger.Info("charge voided", logger.Int64("detail_id", id), logger.Actor(actor))
	return detail, nil
}

// voidDetail 作废并保存明细
func voidDetail(ctx context.Context, repo *repository.InvoiceDetailRepository, d *models.InvoiceDetail) error {
	d.Void()
	if err := repo.Update(ctx, d); err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	return nil
}

func hasMatch(details []*models.InvoiceDetail, line *models.ReservationLine) bool {
	for _, d := range details {
		if d.MatchesLine(line) {
			return true
		}
	}
	return false
}

func dbError(err error, notFound *errors.AppError) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return errors.ErrDatabaseError.WithError(err)
}
