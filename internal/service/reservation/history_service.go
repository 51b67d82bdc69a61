// Package reservation 提供预订生命周期、预订明细与预订历史服务
package reservation

import (
	"context"
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
)

// HistoryService 预订历史服务，只追加不修改
type HistoryService struct {
	db              *gorm.DB
	historyRepo     *repository.HistoryRepository
	reservationRepo *repository.ReservationRepository
}

// NewHistoryService 创建预订历史服务
func NewHistoryService(
	db *gorm.DB,
	historyRepo *repository.HistoryRepository,
	reservationRepo *repository.ReservationRepository,
) *HistoryService {
	return &HistoryService{
		db:              db,
		historyRepo:     historyRepo,
		reservationRepo: reservationRepo,
	}
}

// Record 追加一条历史记录
// tx 为空时使用服务自身的连接
func (s *HistoryService) Record(ctx context.Context, tx *gorm.DB, reservationID int64, actor, action, details string, changes []models.FieldChange) error {
	if tx == nil {
		tx = s.db
	}

	entry := &models.HistoryEntry{
		ReservationID: reservationID,
		Actor:         actor,
		Action:        action,
		Details:       details,
	}
	if len(changes) > 0 {
		raw, err := json.Marshal(changes)
		if err != nil {
			return errors.ErrInternalError.WithError(err)
		}
		entry.Changes = datatypes.JSON(raw)
	}

	if err := s.historyRepo.WithTx(tx).Create(ctx, entry); err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	return nil
}

// ListByReservation 获取预订历史，最新在前
func (s *HistoryService) ListByReservation(ctx context.Context, reservationID int64) ([]*models.HistoryEntry, error) {
	const op = "Error fetching reservation history"

	if _, err := s.reservationRepo.GetByID(ctx, reservationID); err != nil {
		return nil, errors.Prefix(op, dbError(err, errors.ErrReservationNotFound))
	}

	entries, err := s.historyRepo.ListByReservation(ctx, reservationID)
	if err != nil {
		return nil, errors.Prefix(op, errors.ErrDatabaseError.WithError(err))
	}
	return entries, nil
}
