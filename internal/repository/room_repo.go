// Package repository 提供数据访问层
package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dumeirei/hotel-pms-backend/internal/models"
)

// RoomRepository 房间仓储
type RoomRepository struct {
	db *gorm.DB
}

// NewRoomRepository 创建房间仓储
func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// WithTx 绑定事务
func (r *RoomRepository) WithTx(tx *gorm.DB) *RoomRepository {
	return &RoomRepository{db: tx}
}

// Create 创建房间
func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

// GetByNumber 根据房号获取房间
func (r *RoomRepository) GetByNumber(ctx context.Context, number string) (*models.Room, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).Where("number = ?", number).First(&room).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

// GetForUpdate 获取房间并加行锁，用于串行化同一房间的排房写操作
func (r *RoomRepository) GetForUpdate(ctx context.Context, number string) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("number = ?", number).
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// Update 更新房间
func (r *RoomRepository) Update(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).Save(room).Error
}

// Delete 删除房间
func (r *RoomRepository) Delete(ctx context.Context, number string) error {
	return r.db.WithContext(ctx).Where("number = ?", number).Delete(&models.Room{}).Error
}

// List 获取房间列表
func (r *RoomRepository) List(ctx context.Context, offset, limit int, roomType string) ([]*models.Room, int64, error) {
	var rooms []*models.Room
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Room{})
	if roomType != "" {
		query = query.Where("type = ?", roomType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("number ASC").Offset(offset).Limit(limit).Find(&rooms).Error; err != nil {
		return nil, 0, err
	}
	return rooms, total, nil
}

// Count 房间总数
func (r *RoomRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Room{}).Count(&total).Error
	return total, err
}

// CountReservations 统计引用该房间的预订数
func (r *RoomRepository) CountReservations(ctx context.Context, number string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Reservation{}).Where("room_number = ?", number).Count(&total).Error
	return total, err
}
