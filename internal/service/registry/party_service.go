package registry

import (
	"context"
	"strings"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/models"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
)

// PartyService 客户与公司登记服务
type PartyService struct {
	clientRepo  *repository.ClientRepository
	companyRepo *repository.CompanyRepository
}

// NewPartyService 创建客户与公司登记服务
func NewPartyService(clientRepo *repository.ClientRepository, companyRepo *repository.CompanyRepository) *PartyService {
	return &PartyService{
		clientRepo:  clientRepo,
		companyRepo: companyRepo,
	}
}

// ClientRequest 客户创建/更新请求
type ClientRequest struct {
	FirstName   string  `json:"first_name" binding:"required"`
	LastName    string  `json:"last_name" binding:"required"`
	DocumentID  *string `json:"document_id"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	Nationality *string `json:"nationality"`
	Notes       *string `json:"notes"`
}

// CompanyRequest 公司创建/更新请求
type CompanyRequest struct {
	Name    string  `json:"name" binding:"required"`
	TaxID   *string `json:"tax_id"`
	Address *string `json:"address"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
}

// ListPartiesRequest 列表请求
type ListPartiesRequest struct {
	utils.Pagination
	Keyword string `form:"keyword" json:"keyword"`
}

// CreateClient 创建客户
func (s *PartyService) CreateClient(ctx context.Context, req *ClientRequest) (*models.Client, error) {
	const op = "Error creating client"

	client := &models.Client{}
	if err := s.applyClient(ctx, client, req); err != nil {
		return nil, errors.Prefix(op, err)
	}
	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, errors.Prefix(op, errors.ErrDatabaseError.WithError(err))
	}
	return client, nil
}

// GetClient 获取客户
func (s *PartyService) GetClient(ctx context.Context, id int64) (*models.Client, error) {
	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Prefix("Error fetching client", dbError(err, errors.ErrClientNotFound))
	}
	return client, nil
}

// UpdateClient 整体更新客户
func (s *PartyService) UpdateClient(ctx context.Context, id int64, req *ClientRequest) (*models.Client, error) {
	const op = "Error updating client"

	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Prefix(op, dbError(err, errors.ErrClientNotFound))
	}
	if err := s.applyClient(ctx, client, req); err != nil {
		return nil, errors.Prefix(op, err)
	}
	if err := s.clientRepo.Update(ctx, client); err != nil {
		return nil, errors.Prefix(op, errors.ErrDatabaseError.WithError(err))
	}
	return client, nil
}

// DeleteClient 删除客户，被预订或发票引用时拒绝
func (s *PartyService) DeleteClient(ctx context.Context, id int64) error {
	const op = "Error deleting client"

	if _, err := s.clientRepo.GetByID(ctx, id); err != nil {
		return errors.Prefix(op, dbError(err, errors.ErrClientNotFound))
	}
	refs, err := s.clientRepo.CountReferences(ctx, id)
	if err != nil {
		return errors.Prefix(op, errors.ErrDatabaseError.WithError(err))
	}
	if refs > 0 {
		return errors.Prefix(op, errors.ErrClientInUse)
	}
	if err := s.clientRepo.Delete(ctx, id); err != nil {
		return errors.Prefix(op, errors.ErrDatabaseError.WithError(err))
	}
	return nil
}

// ListClients 客户列表
func (s *PartyService) ListClients(ctx context.Context, req *ListPartiesRequest) ([]*models.Client, int64, error) {
	req.Normalize()
	clients, total, err := s.clientRepo.List(ctx, req.GetOffset(), req.GetLimit(), strings.TrimSpace(req.Keyword))
	if err != nil {
		return nil, 0, errors.Prefix("Error listing clients", errors.ErrDatabaseError.WithError(err))
	}
	return clients, total, nil
}

// CreateCompany 创建公司
func (s *PartyService) CreateCompany(ctx context.Context, req *CompanyRequest) (*models.Company, error) {
	const op = "Error creating company"

	company := &models.Company{}
	if err := s.applyCompany(ctx, company, req); err != nil {
		return nil, errors.Prefix(op, err)
	}
	if err := s.companyRepo.Create(ctx, company); err != nil {
		return nil, errors.Prefix(op, errors.ErrDatabaseError.WithError(err))
	}
	return company, nil
}

// GetCompany 获取公司
func (s *PartyService) GetCompany(ctx context.Context, id int64) (*models.Company, error) {
	company, err := s.companyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Prefix("Error fetching company", dbError(err, errors.ErrCompanyNotFound))
	}
	return company, nil
}

// UpdateCompany 整体更新公司
func (s *PartyService) UpdateCompany(ctx context.Context, id int64, req *CompanyRequest) (*models.Company, error) {
	const op = "Error updating company"

	company, err := s.companyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Prefix(op, dbError(err, errors.ErrCompanyNotFound))
	}
	if err := s.applyCompany(ctx, company, req); err != nil {
		return nil, errors.Prefix(op, err)
	}
	if err := s.companyRepo.Update(ctx, company); err != nil {
		return nil, errors.Prefix(op, errors.ErrDatabaseError.WithError(err))
	}
	return company, nil
}

// DeleteCompany 删除公司，被预订或发票引用时拒绝
func (s *PartyService) DeleteCompany(ctx context.Context, id int64) error {
	const op = "Error deleting company"

	if _, err := s.companyRepo.GetByID(ctx, id); err != nil {
		return errors.Prefix(op, dbError(err, errors.ErrCompanyNotFound))
	}
	refs, err := s.companyRepo.CountReferences(ctx, id)
	if err != nil {
		return errors.Prefix(op, errors.ErrDatabaseError.WithError(err))
	}
	if refs > 0 {
		return errors.Prefix(op, errors.ErrCompanyInUse)
	}
	if err := s.companyRepo.Delete(ctx, id); err != nil {
		return errors.Prefix(op, errors.ErrDatabaseError.WithError(err))
	}
	return nil
}

// ListCompanies 公司列表
func (s *PartyService) ListCompanies(ctx context.Context, req *ListPartiesRequest) ([]*models.Company, int64, error) {
	req.Normalize()
	companies, total, err := s.companyRepo.List(ctx, req.GetOffset(), req.GetLimit(), strings.TrimSpace(req.Keyword))
	if err != nil {
		return nil, 0, errors.Prefix("Error listing companies", errors.ErrDatabaseError.WithError(err))
	}
	return companies, total, nil
}

func (s *PartyService) applyClient(ctx context.Context, client *models.Client, req *ClientRequest) error {
	firstName, lastName := strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName)
	if firstName == "" || lastName == "" {
		return errors.ErrPartyInvalid.WithMessage("first name and last name are required")
	}

	documentID := trimmed(req.DocumentID)
	if documentID != nil {
		taken, err := s.clientRepo.ExistsByDocument(ctx, *documentID, client.ID)
		if err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		if taken {
			return errors.ErrClientExists.WithMessagef("document %s already registered", *documentID)
		}
	}

	client.FirstName = firstName
	client.LastName = lastName
	client.DocumentID = documentID
	client.Email = trimmed(req.Email)
	client.Phone = trimmed(req.Phone)
	client.Nationality = trimmed(req.Nationality)
	client.Notes = req.Notes
	return nil
}

func (s *PartyService) applyCompany(ctx context.Context, company *models.Company, req *CompanyRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return errors.ErrPartyInvalid.WithMessage("company name is required")
	}

	taxID := trimmed(req.TaxID)
	if taxID != nil {
		taken, err := s.companyRepo.ExistsByTaxID(ctx, *taxID, company.ID)
		if err != nil {
			return errors.ErrDatabaseError.WithError(err)
		}
		if taken {
			return errors.ErrCompanyExists.WithMessagef("tax id %s already registered", *taxID)
		}
	}

	company.Name = name
	company.TaxID = taxID
	company.Address = trimmed(req.Address)
	company.Email = trimmed(req.Email)
	company.Phone = trimmed(req.Phone)
	return nil
}

// trimmed 去除首尾空白，空串视为未填写
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
