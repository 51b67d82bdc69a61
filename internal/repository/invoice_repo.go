package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dumeirei/hotel-pms-backend/internal/models"
)

// InvoiceRepository 发票仓储
type InvoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository 创建发票仓储
func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// WithTx 绑定事务
func (r *InvoiceRepository) WithTx(tx *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: tx}
}

// Create 创建发票
func (r *InvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(invoice).Error
}

// GetByID 根据 ID 获取发票（包含明细、客户、公司）
func (r *InvoiceRepository) GetByID(ctx context.Context, id int64) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Details", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("Client").
		Preload("Company").
		First(&invoice, id).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// GetForUpdate 获取发票并加行锁
func (r *InvoiceRepository) GetForUpdate(ctx context.Context, id int64) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&invoice, id).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// UpdateStatus 更新发票状态
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	return r.db.WithContext(ctx).Model(&models.Invoice{}).Where("id = ?", id).Update("status", status).Error
}

// InvoiceFilter 发票查询条件
type InvoiceFilter struct {
	InvoiceID     *int64
	ReservationID *int64
	IssuedFrom    *time.Time
	IssuedBefore  *time.Time
	Status        string
}

// Search 查询发票，按开具时间升序
func (r *InvoiceRepository) Search(ctx context.Context, filter *InvoiceFilter) ([]*models.Invoice, error) {
	var invoices []*models.Invoice

	query := r.db.WithContext(ctx).Model(&models.Invoice{})
	if filter != nil {
		if filter.InvoiceID != nil {
			query = query.Where("id = ?", *filter.InvoiceID)
		}
		if filter.ReservationID != nil {
			query = query.Where("reservation_id = ?", *filter.ReservationID)
		}
		if filter.IssuedFrom != nil {
			query = query.Where("issued_at >= ?", *filter.IssuedFrom)
		}
		if filter.IssuedBefore != nil {
			query = query.Where("issued_at < ?", *filter.IssuedBefore)
		}
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
	}

	err := query.
		Preload("Details", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("Client").
		Order("issued_at ASC, id ASC").
		Find(&invoices).Error
	return invoices, err
}

// ListPaidBetween 开具时间在 [from, before) 内的已付发票
func (r *InvoiceRepository) ListPaidBetween(ctx context.Context, from, before time.Time) ([]*models.Invoice, error) {
	var invoices []*models.Invoice
	err := r.db.WithContext(ctx).
		Where("status = ?", models.InvoiceStatusPaid).
		Where("issued_at >= ? AND issued_at < ?", from, before).
		Order("issued_at ASC").
		Find(&invoices).Error
	return invoices, err
}
