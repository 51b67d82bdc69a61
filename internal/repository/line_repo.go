package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-pms-backend/internal/models"
)

// LineRepository 预订明细仓储
type LineRepository struct {
	db *gorm.DB
}

// NewLineRepository 创建预订明细仓储
func NewLineRepository(db *gorm.DB) *LineRepository {
	return &LineRepository{db: db}
}

// WithTx 绑定事务
func (r *LineRepository) WithTx(tx *gorm.DB) *LineRepository {
	return &LineRepository{db: tx}
}

// Create 创建明细
func (r *LineRepository) Create(ctx context.Context, line *models.ReservationLine) error {
	return r.db.WithContext(ctx).Create(line).Error
}

// GetByID 根据 ID 获取明细
func (r *LineRepository) GetByID(ctx context.Context, id int64) (*models.ReservationLine, error) {
	var line models.ReservationLine
	if err := r.db.WithContext(ctx).First(&line, id).Error; err != nil {
		return nil, err
	}
	return &line, nil
}

// Update 更新明细
func (r *LineRepository) Update(ctx context.Context, line *models.ReservationLine) error {
	return r.db.WithContext(ctx).Save(line).Error
}

// Delete 物理删除明细
func (r *LineRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.ReservationLine{}, id).Error
}

// ListByReservation 获取预订的全部明细
func (r *LineRepository) ListByReservation(ctx context.Context, reservationID int64) ([]*models.ReservationLine, error) {
	var lines []*models.ReservationLine
	err := r.db.WithContext(ctx).
		Where("reservation_id = ?", reservationID).
		Order("date ASC, id ASC").
		Find(&lines).Error
	return lines, err
}

// ListActiveByReservation 获取预订的有效明细
func (r *LineRepository) ListActiveByReservation(ctx context.Context, reservationID int64) ([]*models.ReservationLine, error) {
	var lines []*models.ReservationLine
	err := r.db.WithContext(ctx).
		Where("reservation_id = ? AND active = ?", reservationID, true).
		Order("date ASC, id ASC").
		Find(&lines).Error
	return lines, err
}
