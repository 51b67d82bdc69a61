package reservation

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-pms-backend/internal/common/handler"
	reservationService "github.com/dumeirei/hotel-pms-backend/internal/service/reservation"
)

// ListLines 预订明细列表
// @Summary 预订明细列表
// @Tags 预订明细
// @Produce json
// @Security BearerAuth
// @Param id path int true "预订ID"
// @Success 200 {object} response.Response{data=[]models.ReservationLine}
// @Failure 404 {object} response.Response
// @Router /api/v1/reservations/{id}/lines [get]
func (h *Handler) ListLines(c *gin.Context) {
	id, ok := handler.ParseID(c, "reservation")
	if !ok {
		return
	}

	lines, err := h.lines.ListByReservation(c.Request.Context(), id)
	handler.MustSucceed(c, err, lines)
}

// CreateLine 新增预订明细
// @Summary 新增预订明细
// @Tags 预订明细
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "预订ID"
// @Param request body reservationService.LineInput true "明细"
// @Success 201 {object} response.Response{data=models.ReservationLine}
// @Router /api/v1/reservations/{id}/lines [post]
func (h *Handler) CreateLine(c *gin.Context) {
	actor, ok := handler.RequireActor(c)
	if !ok {
		return
	}
	id, ok := handler.ParseID(c, "reservation")
	if !ok {
		return
	}
	var input reservationService.LineInput
	if !handler.BindJSON(c, &input) {
		return
	}

	line, err := h.lines.Create(c.Request.Context(), &reservationService.CreateLineRequest{
		ReservationID: id,
		LineInput:     input,
	}, actor.Username)
	handler.MustCreate(c, err, line)
}

// ModifyLine 修改预订明细
// @Summary 修改预订明细
// @Tags 预订明细
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "明细ID"
// @Param request body reservationService.ModifyLineRequest true "修改内容"
// @Success 200 {object} response.Response{data=models.ReservationLine}
// @Router /api/v1/lines/{id} [put]
func (h *Handler) ModifyLine(c *gin.Context) {
	actor, ok := handler.RequireActor(c)
	if !ok {
		return
	}
	id, ok := handler.ParseID(c, "line")
	if !ok {
		return
	}
	var req reservationService.ModifyLineRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	line, err := h.lines.Modify(c.Request.Context(), id, &req, actor.Username)
	handler.MustSucceed(c, err, line)
}

// DeleteLine 删除预订明细
// @Summary 删除预订明细
// @Tags 预订明细
// @Produce json
// @Security BearerAuth
// @Param id path int true "明细ID"
// @Success 200 {object} response.Response
// @Router /api/v1/lines/{id} [delete]
func (h *Handler) DeleteLine(c *gin.Context) {
	actor, ok := handler.RequireActor(c)
	if !ok {
		return
	}
	id, ok := handler.ParseID(c, "line")
	if !ok {
		return
	}

	err := h.lines.Delete(c.Request.Context(), id, actor.Username)
	handler.MustSucceed(c, err, nil)
}
