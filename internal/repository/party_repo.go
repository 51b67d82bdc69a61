package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/hotel-pms-backend/internal/models"
)

// ClientRepository 客户仓储
type ClientRepository struct {
	db *gorm.DB
}

// NewClientRepository 创建客户仓储
func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// Create 创建客户
func (r *ClientRepository) Create(ctx context.Context, client *models.Client) error {
	return r.db.WithContext(ctx).Create(client).Error
}

// GetByID 根据 ID 获取客户
func (r *ClientRepository) GetByID(ctx context.Context, id int64) (*models.Client, error) {
	var client models.Client
	if err := r.db.WithContext(ctx).First(&client, id).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

// Update 更新客户
func (r *ClientRepository) Update(ctx context.Context, client *models.Client) error {
	return r.db.WithContext(ctx).Save(client).Error
}

// Delete 删除客户
func (r *ClientRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.Client{}, id).Error
}

// List 获取客户列表，keyword 匹配姓、名或证件号
func (r *ClientRepository) List(ctx context.Context, offset, limit int, keyword string) ([]*models.Client, int64, error) {
	var clients []*models.Client
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Client{})
	if keyword != "" {
		like := "%" + keyword + "%"
		query = query.Where("first_name LIKE ? OR last_name LIKE ? OR document_id LIKE ?", like, like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("last_name ASC, first_name ASC").Offset(offset).Limit(limit).Find(&clients).Error; err != nil {
		return nil, 0, err
	}
	return clients, total, nil
}

// CountReferences 统计引用该客户的预订与发票数
func (r *ClientRepository) CountReferences(ctx context.Context, id int64) (int64, error) {
	var reservations, invoices int64
	if err := r.db.WithContext(ctx).Model(&models.Reservation{}).Where("client_id = ?", id).Count(&reservations).Error; err != nil {
		return 0, err
	}
	if err := r.db.WithContext(ctx).Model(&models.Invoice{}).Where("client_id = ?", id).Count(&invoices).Error; err != nil {
		return 0, err
	}
	return reservations + invoices, nil
}

// CompanyRepository 公司仓储
type CompanyRepository struct {
	db *gorm.DB
}

// NewCompanyRepository 创建公司仓储
func NewCompanyRepository(db *gorm.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// Create 创建公司
func (r *CompanyRepository) Create(ctx context.Context, company *models.Company) error {
	return r.db.WithContext(ctx).Create(company).Error
}

// GetByID 根据 ID 获取公司
func (r *CompanyRepository) GetByID(ctx context.Context, id int64) (*models.Company, error) {
	var company models.Company
	if err := r.db.WithContext(ctx).First(&company, id).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

// Update 更新公司
func (r *CompanyRepository) Update(ctx context.Context, company *models.Company) error {
	return r.db.WithContext(ctx).Save(company).Error
}

// Delete 删除公司
func (r *CompanyRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.Company{}, id).Error
}

// List 获取公司列表
func (r *CompanyRepository) List(ctx context.Context, offset, limit int, keyword string) ([]*models.Company, int64, error) {
	var companies []*models.Company
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Company{})
	if keyword != "" {
		like := "%" + keyword + "%"
		query = query.Where("name LIKE ? OR tax_id LIKE ?", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("name ASC").Offset(offset).Limit(limit).Find(&companies).Error; err != nil {
		return nil, 0, err
	}
	return companies, total, nil
}

// CountReferences 统计引用该公司的预订与发票数
func (r *CompanyRepository) CountReferences(ctx context.Context, id int64) (int64, error) {
	var reservations, invoices int64
	if err := r.db.WithContext(ctx).Model(&models.Reservation{}).Where("company_id = ?", id).Count(&reservations).Error; err != nil {
		return 0, err
	}
	if err := r.db.WithContext(ctx).Model(&models.Invoice{}).Where("company_id = ?", id).Count(&invoices).Error; err != nil {
		return 0, err
	}
	return reservations + invoices, nil
}

// ExistsByDocument 证件号是否已被其他客户使用
func (r *ClientRepository) ExistsByDocument(ctx context.Context, documentID string, excludeID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Client{}).
		Where("document_id = ? AND id <> ?", documentID, excludeID).
		Count(&count).Error
	return count > 0, err
}

// ExistsByTaxID 税号是否已被其他公司使用
func (r *CompanyRepository) ExistsByTaxID(ctx context.Context, taxID string, excludeID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Company{}).
		Where("tax_id = ? AND id <> ?", taxID, excludeID).
		Count(&count).Error
	return count > 0, err
}
