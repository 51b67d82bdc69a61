// Package reservation 提供预订、明细与历史记录的 HTTP Handler
package reservation

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-pms-backend/internal/common/handler"
	"github.com/dumeirei/hotel-pms-backend/internal/common/response"
	reservationService "github.com/dumeirei/hotel-pms-backend/internal/service/reservation"
)

// Handler 预订处理器
type Handler struct {
	reservations *reservationService.ReservationService
	lines        *reservationService.LineService
	history      *reservationService.HistoryService
}

// NewHandler 创建预订处理器
func NewHandler(
	reservations *reservationService.ReservationService,
	lines *reservationService.LineService,
	history *reservationService.HistoryService,
) *Handler {
	return &Handler{
		reservations: reservations,
		lines:        lines,
		history:      history,
	}
}

// Create 创建预订
// @Summary 创建预订
// @Tags 预订
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reservationService.CreateReservationRequest true "预订信息"
// @Success 201 {object} response.Response{data=models.Reservation}
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/reservations [post]
func (h *Handler) Create(c *gin.Context) {
	actor, ok := handler.RequireActor(c)
	if !ok {
		return
	}
	var req reservationService.CreateReservationRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	reservation, err := h.reservations.Create(c.Request.Context(), &req, actor.Username)
	handler.MustCreate(c, err, reservation)
}

// Get 获取预订详情（含明细）
// @Summary 获取预订详情
// @Tags 预订
// @Produce json
// @Security BearerAuth
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response{data=models.Reservation}
// @Failure 404 {object} response.Response
// @Router /api/v1/reservations/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, ok := handler.ParseID(c, "reservation")
	if !ok {
		return
	}

	reservation, err := h.reservations.GetByID(c.Request.Context(), id)
	handler.MustSucceed(c, err, reservation)
}

// List 按条件查询预订，每次只接受一种条件
// @Summary 查询预订
// @Tags 预订
// @Produce json
// @Security BearerAuth
// @Param entry_date query string false "入住日期 YYYY-MM-DD"
// @Param surname query string false "姓氏前缀"
// @Param company query string false "公司名称"
// @Param room query string false "房号（当前在住）"
// @Param from query string false "排房区间开始"
// @Param to query string false "排房区间结束"
// @Success 200 {object} response.Response{data=[]models.Reservation}
// @Router /api/v1/reservations [get]
func (h *Handler) List(c *gin.Context) {
	ctx := c.Request.Context()

	switch {
	case c.Query("entry_date") != "":
		date, ok := handler.ParseRequiredQueryDate(c, "entry_date")
		if !ok {
			return
		}
		list, err := h.reservations.ListByEntryDate(ctx, date)
		handler.MustSucceed(c, err, list)

	case c.Query("surname") != "":
		list, err := h.reservations.ListBySurname(ctx, c.Query("surname"))
		handler.MustSucceed(c, err, list)

	case c.Query("company") != "":
		list, err := h.reservations.ListByCompany(ctx, c.Query("company"))
		handler.MustSucceed(c, err, list)

	case c.Query("room") != "":
		reservation, err := h.reservations.GetActiveByRoom(ctx, c.Query("room"))
		handler.MustSucceed(c, err, reservation)

	case c.Query("from") != "" || c.Query("to") != "":
		from, to, ok := handler.ParseRequiredQueryDateRange(c)
		if !ok {
			return
		}
		list, err := h.reservations.ListAssignedBetween(ctx, from, to)
		handler.MustSucceed(c, err, list)

	default:
		response.BadRequest(c, "one of entry_date, surname, company, room or from/to is required")
	}
}

// Modify 修改预订
// @Summary 修改预订
// @Description 状态不能通过此接口修改；缩短日期会移除超出范围的明细
// @Tags 预订
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "预订ID"
// @Param request body reservationService.ModifyReservationRequest true "修改内容"
// @Success 200 {object} response.Response{data=models.Reservation}
// @Router /api/v1/reservations/{id} [put]
func (h *Handler) Modify(c *gin.Context) {
	actor, ok := handler.RequireActor(c)
	if !ok {
		return
	}
	id, ok := handler.ParseID(c, "reservation")
	if !ok {
		return
	}
	var req reservationService.ModifyReservationRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	reservation, err := h.reservations.Modify(c.Request.Context(), id, &req, actor.Username)
	handler.MustSucceed(c, err, reservation)
}

// ChangeStatus 变更预订状态
// @Summary 变更预订状态
// @Tags 预订
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "预订ID"
// @Param request body reservationService.ChangeStatusRequest true "目标状态"
// @Success 200 {object} response.Response{data=models.Reservation}
// @Failure 422 {object} response.Response
// @Router /api/v1/reservations/{id}/status [put]
func (h *Handler) ChangeStatus(c *gin.Context) {
	actor, ok := handler.RequireActor(c)
	if !ok {
		return
	}
	id, ok := handler.ParseID(c, "reservation")
	if !ok {
		return
	}
	var req reservationService.ChangeStatusRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	reservation, err := h.reservations.ChangeStatus(c.Request.Context(), id, req.Status, actor.Username)
	handler.MustSucceed(c, err, reservation)
}

// Unbilled 是否存在未开票的住宿明细
// @Summary 未开票检查
// @Tags 预订
// @Produce json
// @Security BearerAuth
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response
// @Router /api/v1/reservations/{id}/unbilled [get]
func (h *Handler) Unbilled(c *gin.Context) {
	id, ok := handler.ParseID(c, "reservation")
	if !ok {
		return
	}

	pending, err := h.reservations.HasUnbilledLines(c.Request.Context(), id)
	handler.MustSucceed(c, err, gin.H{"reservation_id": id, "pending": pending})
}

// History 预订历史记录
// @Summary 预订历史记录
// @Tags 预订
// @Produce json
// @Security BearerAuth
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response{data=[]models.HistoryEntry}
// @Router /api/v1/reservations/{id}/history [get]
func (h *Handler) History(c *gin.Context) {
	id, ok := handler.ParseID(c, "reservation")
	if !ok {
		return
	}

	entries, err := h.history.ListByReservation(c.Request.Context(), id)
	handler.MustSucceed(c, err, entries)
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	reservations := r.Group("/reservations")
	{
		reservations.POST("", h.Create)
		reservations.GET("", h.List)
		reservations.GET("/:id", h.Get)
		reservations.PUT("/:id", h.Modify)
		reservations.PUT("/:id/status", h.ChangeStatus)
		reservations.GET("/:id/unbilled", h.Unbilled)
		reservations.GET("/:id/history", h.History)

		// 明细
		reservations.GET("/:id/lines", h.ListLines)
		reservations.POST("/:id/lines", h.CreateLine)
	}

	lines := r.Group("/lines")
	{
		lines.PUT("/:id", h.ModifyLine)
		lines.DELETE("/:id", h.DeleteLine)
	}
}
