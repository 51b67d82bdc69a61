// Package billing 提供费用明细与发票的 HTTP Handler
package billing

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-pms-backend/internal/common/handler"
	billingService "github.com/dumeirei/hotel-pms-backend/internal/service/billing"
)

// Handler 账务处理器
type Handler struct {
	charges  *billingService.ChargeService
	invoices *billingService.InvoiceService
}

// NewHandler 创建账务处理器
func NewHandler(charges *billingService.ChargeService, invoices *billingService.InvoiceService) *Handler {
	return &Handler{
		charges:  charges,
		invoices: invoices,
	}
}

// ListPending 待开票费用
// @Summary 待开票费用
// @Tags 账务
// @Produce json
// @Security BearerAuth
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response{data=[]models.InvoiceDetail}
// @Router /api/v1/reservations/{id}/charges [get]
func (h *Handler) ListPending(c *gin.Context) {
	id, ok := handler.ParseID(c, "reservation")
	if !ok {
		return
	}

	details, err := h.charges.ListPending(c.Request.Context(), id)
	handler.MustSucceed(c, err, details)
}

// CreateCharge 新增额外费用
// @Summary 新增额外费用
// @Tags 账务
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "预订ID"
// @Param request body billingService.CreateChargeRequest true "费用"
// @Success 201 {object} response.Response{data=models.InvoiceDetail}
// @Router /api/v1/reservations/{id}/charges [post]
func (h *Handler) CreateCharge(c *gin.Context) {
	actor, ok := handler.RequireActor(c)
	if !ok {
		return
	}
	id, ok := handler.ParseID(c, "reservation")
	if !ok {
		return
	}
	var req billingService.CreateChargeRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	req.ReservationID = id

	detail, err := h.charges.CreateCharge(c.Request.Context(), &req, actor.Username)
	handler.MustCreate(c, err, detail)
}

// AdvanceLodging 生成住宿费用明细
// @Summary 生成住宿费用明细
// @Description 为尚无对应费用的有效预订明细生成住宿费用
// @Tags 账务
// @Produce json
// @Security BearerAuth
// @Param id path int true "预订ID"
// @Success 201 {object} response.Response{data=[]models.InvoiceDetail}
// @Router /api/v1/reservations/{id}/charges/lodging [post]
func (h *Handler) AdvanceLodging(c *gin.Context) {
	actor, ok := handler.RequireActor(c)
	if !ok {
		return
	}
	id, ok := handler.ParseID(c, "reservation")
	if !ok {
		return
	}

	details, err := h.charges.AdvanceLodgingCharges(c.Request.Context(), id, actor.Username)
	handler.MustCreate(c, err, details)
}

// VoidCharge 作废费用明细
// @Summary 作废费用明细
// @Tags 账务
// @Produce json
// @Security BearerAuth
// @Param id path int true "明细ID"
// @Success 200 {object} response.Response{data=models.InvoiceDetail}
// @Router /api/v1/charges/{id}/void [post]
func (h *Handler) VoidCharge(c *gin.Context) {
	actor, ok := handler.RequireActor(c)
	if !ok {
		return
	}
	id, ok := handler.ParseID(c, "charge")
	if !ok {
		return
	}

	detail, err := h.charges.VoidDetail(c.Request.Context(), id, actor.Username)
	handler.MustSucceed(c, err, detail)
}
