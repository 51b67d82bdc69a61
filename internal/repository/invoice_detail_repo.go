package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dumeirei/hotel-pms-backend/internal/models"
)

// InvoiceDetailRepository 账单明细仓储
type InvoiceDetailRepository struct {
	db *gorm.DB
}

// NewInvoiceDetailRepository 创建账单明细仓储
func NewInvoiceDetailRepository(db *gorm.DB) *InvoiceDetailRepository {
	return &InvoiceDetailRepository{db: db}
}

// WithTx 绑定事务
func (r *InvoiceDetailRepository) WithTx(tx *gorm.DB) *InvoiceDetailRepository {
	return &InvoiceDetailRepository{db: tx}
}

// Create 创建明细
func (r *InvoiceDetailRepository) Create(ctx context.Context, detail *models.InvoiceDetail) error {
	return r.db.WithContext(ctx).Create(detail).Error
}

// CreateBatch 批量创建明细
func (r *InvoiceDetailRepository) CreateBatch(ctx context.Context, details []*models.InvoiceDetail) error {
	if len(details) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&details).Error
}

// GetForUpdate 获取明细并加行锁
func (r *InvoiceDetailRepository) GetForUpdate(ctx context.Context, id int64) (*models.InvoiceDetail, error) {
	var detail models.InvoiceDetail
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&detail, id).Error
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// GetByID 根据 ID 获取明细
func (r *InvoiceDetailRepository) GetByID(ctx context.Context, id int64) (*models.InvoiceDetail, error) {
	var detail models.InvoiceDetail
	if err := r.db.WithContext(ctx).First(&detail, id).Error; err != nil {
		return nil, err
	}
	return &detail, nil
}

// Update 更新明细
func (r *InvoiceDetailRepository) Update(ctx context.Context, detail *models.InvoiceDetail) error {
	return r.db.WithContext(ctx).Save(detail).Error
}

// ListClaimable 加锁读取可开票的明细：属于该预订、未开票、有效
func (r *InvoiceDetailRepository) ListClaimable(ctx context.Context, reservationID int64, ids []int64) ([]*models.InvoiceDetail, error) {
	var details []*models.InvoiceDetail
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Where("reservation_id = ?", reservationID).
		Where("invoice_id IS NULL AND active = ?", true).
		Order("id ASC").
		Find(&details).Error
	return details, err
}

// Claim 条件更新，将仍未开票的明细归属到发票，返回实际更新行数
func (r *InvoiceDetailRepository) Claim(ctx context.Context, invoiceID, reservationID int64, ids []int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.InvoiceDetail{}).
		Where("id IN ?", ids).
		Where("reservation_id = ?", reservationID).
		Where("invoice_id IS NULL AND active = ?", true).
		Update("invoice_id", invoiceID)
	return result.RowsAffected, result.Error
}

// ListPendingByReservation 预订下未开票的有效明细
func (r *InvoiceDetailRepository) ListPendingByReservation(ctx context.Context, reservationID int64) ([]*models.InvoiceDetail, error) {
	var details []*models.InvoiceDetail
	err := r.db.WithContext(ctx).
		Where("reservation_id = ?", reservationID).
		Where("invoice_id IS NULL AND active = ?", true).
		Order("id ASC").
		Find(&details).Error
	return details, err
}

// ListActiveByInvoice 加锁读取发票下的有效明细
func (r *InvoiceDetailRepository) ListActiveByInvoice(ctx context.Context, invoiceID int64) ([]*models.InvoiceDetail, error) {
	var details []*models.InvoiceDetail
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("invoice_id = ? AND active = ?", invoiceID, true).
		Order("id ASC").
		Find(&details).Error
	return details, err
}

// ListPendingLodgingByLine 加锁读取预订明细对应的待结算住宿费用
func (r *InvoiceDetailRepository) ListPendingLodgingByLine(ctx context.Context, lineID int64) ([]*models.InvoiceDetail, error) {
	var details []*models.InvoiceDetail
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("reservation_line_id = ? AND kind = ?", lineID, models.DetailKindLodging).
		Where("invoice_id IS NULL AND active = ?", true).
		Order("id ASC").
		Find(&details).Error
	return details, err
}

// ListActiveLodgingByReservation 预订下有效的住宿类明细（含已开票）
func (r *InvoiceDetailRepository) ListActiveLodgingByReservation(ctx context.Context, reservationID int64) ([]*models.InvoiceDetail, error) {
	var details []*models.InvoiceDetail
	err := r.db.WithContext(ctx).
		Where("reservation_id = ?", reservationID).
		Where("kind = ? AND active = ?", models.DetailKindLodging, true).
		Order("id ASC").
		Find(&details).Error
	return details, err
}
