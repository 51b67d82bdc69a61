// Package report 提供报表 HTTP Handler
package report

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-pms-backend/internal/common/handler"
	reportService "github.com/dumeirei/hotel-pms-backend/internal/service/report"
)

// Handler 报表处理器
type Handler struct {
	reports *reportService.ReportService
}

// NewHandler 创建报表处理器
func NewHandler(reports *reportService.ReportService) *Handler {
	return &Handler{reports: reports}
}

// Occupancy 某晚入住率
// @Summary 入住率
// @Tags 报表
// @Produce json
// @Security BearerAuth
// @Param date query string true "日期 YYYY-MM-DD"
// @Success 200 {object} response.Response{data=reportService.OccupancyPoint}
// @Router /api/v1/reports/occupancy [get]
func (h *Handler) Occupancy(c *gin.Context) {
	date, ok := handler.ParseRequiredQueryDate(c, "date")
	if !ok {
		return
	}

	point, err := h.reports.Occupancy(c.Request.Context(), date)
	handler.MustSucceed(c, err, point)
}

// OccupancySeries 区间入住率
// @Summary 区间入住率
// @Tags 报表
// @Produce json
// @Security BearerAuth
// @Param from query string true "开始日期"
// @Param to query string true "结束日期（含）"
// @Success 200 {object} response.Response{data=[]reportService.OccupancyPoint}
// @Router /api/v1/reports/occupancy/series [get]
func (h *Handler) OccupancySeries(c *gin.Context) {
	from, to, ok := handler.ParseRequiredQueryDateRange(c)
	if !ok {
		return
	}

	series, err := h.reports.OccupancySeries(c.Request.Context(), from, to)
	handler.MustSucceed(c, err, series)
}

// RevenueDaily 每日营收
// @Summary 每日营收
// @Tags 报表
// @Produce json
// @Security BearerAuth
// @Param from query string true "开始日期"
// @Param to query string true "结束日期（含）"
// @Success 200 {object} response.Response{data=[]reportService.RevenuePoint}
// @Router /api/v1/reports/revenue/daily [get]
func (h *Handler) RevenueDaily(c *gin.Context) {
	from, to, ok := handler.ParseRequiredQueryDateRange(c)
	if !ok {
		return
	}

	points, err := h.reports.RevenueByDate(c.Request.Context(), from, to)
	handler.MustSucceed(c, err, points)
}

// RevenueByPaymentMethod 按支付方式营收
// @Summary 按支付方式营收
// @Tags 报表
// @Produce json
// @Security BearerAuth
// @Param from query string true "开始日期"
// @Param to query string true "结束日期（含）"
// @Success 200 {object} response.Response{data=[]reportService.PaymentMethodRevenue}
// @Router /api/v1/reports/revenue/payment-methods [get]
func (h *Handler) RevenueByPaymentMethod(c *gin.Context) {
	from, to, ok := handler.ParseRequiredQueryDateRange(c)
	if !ok {
		return
	}

	result, err := h.reports.RevenueByPaymentMethod(c.Request.Context(), from, to)
	handler.MustSucceed(c, err, result)
}

// Movements 当天进离店
// @Summary 进离店
// @Tags 报表
// @Produce json
// @Security BearerAuth
// @Param date query string true "日期 YYYY-MM-DD"
// @Success 200 {object} response.Response{data=reportService.Movements}
// @Router /api/v1/reports/movements [get]
func (h *Handler) Movements(c *gin.Context) {
	date, ok := handler.ParseRequiredQueryDate(c, "date")
	if !ok {
		return
	}

	m, err := h.reports.Movements(c.Request.Context(), date)
	handler.MustSucceed(c, err, m)
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	reports := r.Group("/reports")
	{
		reports.GET("/occupancy", h.Occupancy)
		reports.GET("/occupancy/series", h.OccupancySeries)
		reports.GET("/revenue/daily", h.RevenueDaily)
		reports.GET("/revenue/payment-methods", h.RevenueByPaymentMethod)
		reports.GET("/movements", h.Movements)
	}
}
