package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-pms-backend/internal/models"
)

// HistoryRepository 预订历史仓储
// 只提供追加与查询
type HistoryRepository struct {
	db *gorm.DB
}

// NewHistoryRepository 创建预订历史仓储
func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// WithTx 绑定事务
func (r *HistoryRepository) WithTx(tx *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: tx}
}

// Create 追加历史记录
func (r *HistoryRepository) Create(ctx context.Context, entry *models.HistoryEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByReservation 获取预订历史，最新在前
func (r *HistoryRepository) ListByReservation(ctx context.Context, reservationID int64) ([]*models.HistoryEntry, error) {
	var entries []*models.HistoryEntry
	err := r.db.WithContext(ctx).
		Where("reservation_id = ?", reservationID).
		Order("created_at DESC, id DESC").
		Find(&entries).Error
	return entries, err
}
