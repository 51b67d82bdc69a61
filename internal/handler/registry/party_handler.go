package registry

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-pms-backend/internal/common/handler"
	registryService "github.com/dumeirei/hotel-pms-backend/internal/service/registry"
)

// ListClients 客户列表
// @Summary 客户列表
// @Tags 客户
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param keyword query string false "姓名或证件号"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/clients [get]
func (h *Handler) ListClients(c *gin.Context) {
	req := registryService.ListPartiesRequest{Pagination: handler.BindPagination(c), Keyword: c.Query("keyword")}

	clients, total, err := h.parties.ListClients(c.Request.Context(), &req)
	handler.MustSucceedPage(c, err, clients, total, req.Page, req.PageSize)
}

// GetClient 客户详情
// @Summary 客户详情
// @Tags 客户
// @Produce json
// @Security BearerAuth
// @Param id path int true "客户ID"
// @Success 200 {object} response.Response{data=models.Client}
// @Router /api/v1/clients/{id} [get]
func (h *Handler) GetClient(c *gin.Context) {
	id, ok := handler.ParseID(c, "client")
	if !ok {
		return
	}

	client, err := h.parties.GetClient(c.Request.Context(), id)
	handler.MustSucceed(c, err, client)
}

// CreateClient 创建客户
// @Summary 创建客户
// @Tags 客户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body registryService.ClientRequest true "客户信息"
// @Success 201 {object} response.Response{data=models.Client}
// @Router /api/v1/clients [post]
func (h *Handler) CreateClient(c *gin.Context) {
	var req registryService.ClientRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	client, err := h.parties.CreateClient(c.Request.Context(), &req)
	handler.MustCreate(c, err, client)
}

// UpdateClient 更新客户
// @Summary 更新客户
// @Tags 客户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "客户ID"
// @Param request body registryService.ClientRequest true "客户信息"
// @Success 200 {object} response.Response{data=models.Client}
// @Router /api/v1/clients/{id} [put]
func (h *Handler) UpdateClient(c *gin.Context) {
	id, ok := handler.ParseID(c, "client")
	if !ok {
		return
	}
	var req registryService.ClientRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	client, err := h.parties.UpdateClient(c.Request.Context(), id, &req)
	handler.MustSucceed(c, err, client)
}

// DeleteClient 删除客户
// @Summary 删除客户
// @Tags 客户
// @Produce json
// @Security BearerAuth
// @Param id path int true "客户ID"
// @Success 200 {object} response.Response
// @Router /api/v1/clients/{id} [delete]
func (h *Handler) DeleteClient(c *gin.Context) {
	id, ok := handler.ParseID(c, "client")
	if !ok {
		return
	}

	err := h.parties.DeleteClient(c.Request.Context(), id)
	handler.MustSucceed(c, err, nil)
}

// ListCompanies 公司列表
// @Summary 公司列表
// @Tags 公司
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param keyword query string false "名称或税号"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/companies [get]
func (h *Handler) ListCompanies(c *gin.Context) {
	req := registryService.ListPartiesRequest{Pagination: handler.BindPagination(c), Keyword: c.Query("keyword")}

	companies, total, err := h.parties.ListCompanies(c.Request.Context(), &req)
	handler.MustSucceedPage(c, err, companies, total, req.Page, req.PageSize)
}

// GetCompany 公司详情
// @Summary 公司详情
// @Tags 公司
// @Produce json
// @Security BearerAuth
// @Param id path int true "公司ID"
// @Success 200 {object} response.Response{data=models.Company}
// @Router /api/v1/companies/{id} [get]
func (h *Handler) GetCompany(c *gin.Context) {
	id, ok := handler.ParseID(c, "company")
	if !ok {
		return
	}

	company, err := h.parties.GetCompany(c.Request.Context(), id)
	handler.MustSucceed(c, err, company)
}

// CreateCompany 创建公司
// @Summary 创建公司
// @Tags 公司
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body registryService.CompanyRequest true "公司信息"
// @Success 201 {object} response.Response{data=models.Company}
// @Router /api/v1/companies [post]
func (h *Handler) CreateCompany(c *gin.Context) {
	var req registryService.CompanyRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	company, err := h.parties.CreateCompany(c.Request.Context(), &req)
	handler.MustCreate(c, err, company)
}

// UpdateCompany 更新公司
// @Summary 更新公司
// @Tags 公司
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "公司ID"
// @Param request body registryService.CompanyRequest true "公司信息"
// @Success 200 {object} response.Response{data=models.Company}
// @Router /api/v1/companies/{id} [put]
func (h *Handler) UpdateCompany(c *gin.Context) {
	id, ok := handler.ParseID(c, "company")
	if !ok {
		return
	}
	var req registryService.CompanyRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	company, err := h.parties.UpdateCompany(c.Request.Context(), id, &req)
	handler.MustSucceed(c, err, company)
}

// DeleteCompany 删除公司
// @Summary 删除公司
// @Tags 公司
// @Produce json
// @Security BearerAuth
// @Param id path int true "公司ID"
// @Success 200 {object} response.Response
// @Router /api/v1/companies/{id} [delete]
func (h *Handler) DeleteCompany(c *gin.Context) {
	id, ok := handler.ParseID(c, "company")
	if !ok {
		return
	}

	err := h.parties.DeleteCompany(c.Request.Context(), id)
	handler.MustSucceed(c, err, nil)
}
