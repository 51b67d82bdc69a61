package repository

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dumeirei/hotel-pms-backend/internal/models"
)

// ReservationRepository 预订仓储
type ReservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository 创建预订仓储
func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// WithTx 绑定事务
func (r *ReservationRepository) WithTx(tx *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: tx}
}

// Create 创建预订
func (r *ReservationRepository) Create(ctx context.Context, reservation *models.Reservation) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(reservation).Error
}

// GetByID 根据 ID 获取预订
func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*models.Reservation, error) {
	var reservation models.Reservation
	if err := r.db.WithContext(ctx).First(&reservation, id).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

// GetForUpdate 获取预订并加行锁
func (r *ReservationRepository) GetForUpdate(ctx context.Context, id int64) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&reservation, id).Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// GetByIDWithDetails 根据 ID 获取预订（包含客户、公司、明细）
func (r *ReservationRepository) GetByIDWithDetails(ctx context.Context, id int64) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Company").
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("date ASC, id ASC")
		}).
		First(&reservation, id).Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// Update 更新预订（不含关联）
func (r *ReservationRepository) Update(ctx context.Context, reservation *models.Reservation) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(reservation).Error
}

// UpdateTotal 更新总价
func (r *ReservationRepository) UpdateTotal(ctx context.Context, id int64, total decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&models.Reservation{}).Where("id = ?", id).Update("total_price", total).Error
}

// UpdateStatus 更新状态
func (r *ReservationRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	return r.db.WithContext(ctx).Model(&models.Reservation{}).Where("id = ?", id).Update("status", status).Error
}

// FindOverlapping 查找同一房间上日期重叠且未取消的预订
// 重叠条件: existing.entry < exit AND existing.exit > entry
func (r *ReservationRepository) FindOverlapping(ctx context.Context, roomNumber string, entry, exit time.Time, excludeID int64) ([]*models.Reservation, error) {
	var reservations []*models.Reservation
	query := r.db.WithContext(ctx).
		Where("room_number = ?", roomNumber).
		Where("status <> ?", models.ReservationStatusCancelled).
		Where("entry_date < ? AND exit_date > ?", exit, entry)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Order("entry_date ASC").Find(&reservations).Error
	return reservations, err
}

// ListByEntryDate 按入住日期查询
func (r *ReservationRepository) ListByEntryDate(ctx context.Context, date time.Time) ([]*models.Reservation, error) {
	var reservations []*models.Reservation
	err := r.db.WithContext(ctx).
		Preload("Company").
		Where("entry_date = ?", date).
		Order("id ASC").
		Find(&reservations).Error
	return reservations, err
}

// ListByExitDate 按离店日期查询
func (r *ReservationRepository) ListByExitDate(ctx context.Context, date time.Time) ([]*models.Reservation, error) {
	var reservations []*models.Reservation
	err := r.db.WithContext(ctx).
		Where("exit_date = ?", date).
		Where("status <> ?", models.ReservationStatusCancelled).
		Order("id ASC").
		Find(&reservations).Error
	return reservations, err
}

// ListBySurnamePrefix 按客人姓氏前缀查询（不区分大小写）
func (r *ReservationRepository) ListBySurnamePrefix(ctx context.Context, prefix string) ([]*models.Reservation, error) {
	var reservations []*models.Reservation
	err := r.db.WithContext(ctx).
		Where("LOWER(guest_last_name) LIKE ?", strings.ToLower(prefix)+"%").
		Order("entry_date DESC, id DESC").
		Find(&reservations).Error
	return reservations, err
}

// ListByCompanyName 按公司名称子串查询（不区分大小写）
func (r *ReservationRepository) ListByCompanyName(ctx context.Context, name string) ([]*models.Reservation, error) {
	var reservations []*models.Reservation
	err := r.db.WithContext(ctx).
		Preload("Company").
		Joins("JOIN companies ON companies.id = reservations.company_id").
		Where("LOWER(companies.name) LIKE ?", "%"+strings.ToLower(name)+"%").
		Order("reservations.entry_date DESC, reservations.id DESC").
		Find(&reservations).Error
	return reservations, err
}

// GetActiveByRoom 获取房间当前在住的预订
func (r *ReservationRepository) GetActiveByRoom(ctx context.Context, roomNumber string) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.db.WithContext(ctx).
		Where("room_number = ?", roomNumber).
		Where("status = ?", models.ReservationStatusCheckedIn).
		Order("entry_date DESC").
		First(&reservation).Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// ListAssignedBetween 已排房且与 [from, to) 重叠的有效预订
func (r *ReservationRepository) ListAssignedBetween(ctx context.Context, from, to time.Time) ([]*models.Reservation, error) {
	var reservations []*models.Reservation
	err := r.db.WithContext(ctx).
		Where("room_number IS NOT NULL").
		Where("status IN ?", []string{models.ReservationStatusConfirmed, models.ReservationStatusCheckedIn}).
		Where("entry_date < ? AND exit_date > ?", to, from).
		Order("room_number ASC, entry_date ASC").
		Find(&reservations).Error
	return reservations, err
}

// ListCovering 覆盖某晚且未取消的已排房预订
func (r *ReservationRepository) ListCovering(ctx context.Context, night time.Time) ([]*models.Reservation, error) {
	var reservations []*models.Reservation
	err := r.db.WithContext(ctx).
		Where("room_number IS NOT NULL").
		Where("status <> ?", models.ReservationStatusCancelled).
		Where("entry_date <= ? AND exit_date > ?", night, night).
		Find(&reservations).Error
	return reservations, err
}

// ListOverdueCheckouts 离店日期已过仍在住的预订
func (r *ReservationRepository) ListOverdueCheckouts(ctx context.Context, today time.Time) ([]*models.Reservation, error) {
	var reservations []*models.Reservation
	err := r.db.WithContext(ctx).
		Where("status = ?", models.ReservationStatusCheckedIn).
		Where("exit_date < ?", today).
		Order("exit_date ASC, id ASC").
		Find(&reservations).Error
	return reservations, err
}
