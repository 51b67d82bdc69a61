package billing

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-pms-backend/internal/common/handler"
	billingService "github.com/dumeirei/hotel-pms-backend/internal/service/billing"
)

// CreateInvoice 开具发票
// @Summary 开具发票
// @Tags 发票
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body billingService.CreateInvoiceRequest true "发票信息"
// @Success 201 {object} response.Response{data=models.Invoice}
// @Failure 409 {object} response.Response
// @Router /api/v1/invoices [post]
func (h *Handler) CreateInvoice(c *gin.Context) {
	actor, ok := handler.RequireActor(c)
	if !ok {
		return
	}
	var req billingService.CreateInvoiceRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	invoice, err := h.invoices.CreateInvoice(c.Request.Context(), &req, actor.UserID, actor.Username)
	handler.MustCreate(c, err, invoice)
}

// GetInvoice 发票详情
// @Summary 发票详情
// @Tags 发票
// @Produce json
// @Security BearerAuth
// @Param id path int true "发票ID"
// @Success 200 {object} response.Response{data=models.Invoice}
// @Router /api/v1/invoices/{id} [get]
func (h *Handler) GetInvoice(c *gin.Context) {
	id, ok := handler.ParseID(c, "invoice")
	if !ok {
		return
	}

	invoice, err := h.invoices.GetByID(c.Request.Context(), id)
	handler.MustSucceed(c, err, invoice)
}

// SearchInvoices 查询发票
// @Summary 查询发票
// @Tags 发票
// @Produce json
// @Security BearerAuth
// @Param invoice_id query int false "发票ID"
// @Param reservation_id query int false "预订ID"
// @Param date query string false "开具日期 YYYY-MM-DD"
// @Param status query string false "状态"
// @Success 200 {object} response.Response{data=[]models.Invoice}
// @Router /api/v1/invoices [get]
func (h *Handler) SearchInvoices(c *gin.Context) {
	invoiceID, ok := handler.ParseQueryID(c, "invoice_id", "invoice")
	if !ok {
		return
	}
	reservationID, ok := handler.ParseQueryID(c, "reservation_id", "reservation")
	if !ok {
		return
	}
	date, ok := handler.ParseQueryDate(c, "date")
	if !ok {
		return
	}

	invoices, err := h.invoices.Search(c.Request.Context(), &billingService.SearchInvoicesRequest{
		InvoiceID:     invoiceID,
		ReservationID: reservationID,
		Date:          date,
		Status:        c.Query("status"),
	})
	handler.MustSucceed(c, err, invoices)
}

// InvoiceQRCode 发票二维码，format=dataurl 时返回 JSON
// @Summary 发票二维码
// @Tags 发票
// @Produce png
// @Produce json
// @Security BearerAuth
// @Param id path int true "发票ID"
// @Param format query string false "png 或 dataurl"
// @Success 200 {file} binary
// @Router /api/v1/invoices/{id}/qrcode [get]
func (h *Handler) InvoiceQRCode(c *gin.Context) {
	id, ok := handler.ParseID(c, "invoice")
	if !ok {
		return
	}

	if c.Query("format") == "dataurl" {
		url, err := h.invoices.InvoiceQRCodeDataURL(c.Request.Context(), id)
		handler.MustSucceed(c, err, gin.H{"invoice_id": id, "data_url": url})
		return
	}

	png, err := h.invoices.InvoiceQRCode(c.Request.Context(), id)
	if handler.HandleError(c, err) {
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// VoidInvoice 作废发票，明细一并作废
// @Summary 作废发票
// @Tags 发票
// @Produce json
// @Security BearerAuth
// @Param id path int true "发票ID"
// @Success 200 {object} response.Response{data=models.Invoice}
// @Router /api/v1/invoices/{id}/void [post]
func (h *Handler) VoidInvoice(c *gin.Context) {
	actor, ok := handler.RequireActor(c)
	if !ok {
		return
	}
	id, ok := handler.ParseID(c, "invoice")
	if !ok {
		return
	}

	invoice, err := h.invoices.VoidInvoice(c.Request.Context(), id, actor.Username)
	handler.MustSucceed(c, err, invoice)
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	charges := r.Group("/reservations/:id/charges")
	{
		charges.GET("", h.ListPending)
		charges.POST("", h.CreateCharge)
		charges.POST("/lodging", h.AdvanceLodging)
	}
	r.POST("/charges/:id/void", h.VoidCharge)

	invoices := r.Group("/invoices")
	{
		invoices.POST("", h.CreateInvoice)
		invoices.GET("", h.SearchInvoices)
		invoices.GET("/:id", h.GetInvoice)
		invoices.GET("/:id/qrcode", h.InvoiceQRCode)
		invoices.POST("/:id/void", h.VoidInvoice)
	}
}
