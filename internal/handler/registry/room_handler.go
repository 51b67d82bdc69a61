// Package registry 提供房间、客户与公司登记的 HTTP Handler
package registry

import (
	stderrors "errors"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/common/handler"
	"github.com/dumeirei/hotel-pms-backend/internal/common/response"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	registryService "github.com/dumeirei/hotel-pms-backend/internal/service/registry"
	reservationService "github.com/dumeirei/hotel-pms-backend/internal/service/reservation"
)

// Handler 登记处理器
type Handler struct {
	rooms        *registryService.RoomService
	parties      *registryService.PartyService
	reservations *reservationService.ReservationService
}

// NewHandler 创建登记处理器
func NewHandler(
	rooms *registryService.RoomService,
	parties *registryService.PartyService,
	reservations *reservationService.ReservationService,
) *Handler {
	return &Handler{
		rooms:        rooms,
		parties:      parties,
		reservations: reservations,
	}
}

// ListRooms 房间列表
// @Summary 房间列表
// @Tags 房间
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param type query string false "房型"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/rooms [get]
func (h *Handler) ListRooms(c *gin.Context) {
	req := registryService.ListRoomsRequest{
		Pagination: handler.BindPagination(c),
		Type:       c.Query("type"),
	}

	rooms, total, err := h.rooms.ListRooms(c.Request.Context(), &req)
	handler.MustSucceedPage(c, err, rooms, total, req.Page, req.PageSize)
}

// GetRoom 房间详情
// @Summary 房间详情
// @Tags 房间
// @Produce json
// @Security BearerAuth
// @Param number path string true "房号"
// @Success 200 {object} response.Response{data=models.Room}
// @Router /api/v1/rooms/{number} [get]
func (h *Handler) GetRoom(c *gin.Context) {
	room, err := h.rooms.GetRoom(c.Request.Context(), c.Param("number"))
	handler.MustSucceed(c, err, room)
}

// CreateRoom 创建房间
// @Summary 创建房间
// @Tags 房间
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body registryService.CreateRoomRequest true "房间信息"
// @Success 201 {object} response.Response{data=models.Room}
// @Router /api/v1/rooms [post]
func (h *Handler) CreateRoom(c *gin.Context) {
	var req registryService.CreateRoomRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	room, err := h.rooms.CreateRoom(c.Request.Context(), &req)
	handler.MustCreate(c, err, room)
}

// UpdateRoom 更新房间
// @Summary 更新房间
// @Tags 房间
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param number path string true "房号"
// @Param request body registryService.UpdateRoomRequest true "更新内容"
// @Success 200 {object} response.Response{data=models.Room}
// @Router /api/v1/rooms/{number} [put]
func (h *Handler) UpdateRoom(c *gin.Context) {
	var req registryService.UpdateRoomRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	room, err := h.rooms.UpdateRoom(c.Request.Context(), c.Param("number"), &req)
	handler.MustSucceed(c, err, room)
}

// DeleteRoom 删除房间
// @Summary 删除房间
// @Tags 房间
// @Produce json
// @Security BearerAuth
// @Param number path string true "房号"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/rooms/{number} [delete]
func (h *Handler) DeleteRoom(c *gin.Context) {
	err := h.rooms.DeleteRoom(c.Request.Context(), c.Param("number"))
	handler.MustSucceed(c, err, nil)
}

// RoomAvailability 房间可用性
// @Summary 房间可用性
// @Tags 房间
// @Produce json
// @Security BearerAuth
// @Param number path string true "房号"
// @Param entry_date query string true "入住日期"
// @Param exit_date query string true "离店日期"
// @Param exclude_id query int false "排除的预订ID"
// @Success 200 {object} response.Response
// @Router /api/v1/rooms/{number}/availability [get]
func (h *Handler) RoomAvailability(c *gin.Context) {
	number := c.Param("number")
	entry, ok := handler.ParseRequiredQueryDate(c, "entry_date")
	if !ok {
		return
	}
	exit, ok := handler.ParseRequiredQueryDate(c, "exit_date")
	if !ok {
		return
	}
	if !exit.After(entry) {
		response.BadRequest(c, "exit_date must be after entry_date")
		return
	}
	excludeID, ok := handler.ParseQueryID(c, "exclude_id", "reservation")
	if !ok {
		return
	}

	err := h.reservations.CheckAvailability(c.Request.Context(), number, entry, exit, utils.SafeInt64(excludeID))
	available := err == nil
	if err != nil && !isUnavailable(err) {
		handler.HandleError(c, err)
		return
	}

	data := gin.H{
		"room_number": number,
		"entry_date":  utils.FormatDate(entry),
		"exit_date":   utils.FormatDate(exit),
		"available":   available,
	}
	if !available {
		data["reason"] = err.Error()
	}
	response.Success(c, data)
}

func isUnavailable(err error) bool {
	return stderrors.Is(err, errors.ErrRoomNotAvailable)
}

// RegisterRoutes 注册前台可用的路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	rooms := r.Group("/rooms")
	{
		rooms.GET("", h.ListRooms)
		rooms.GET("/:number", h.GetRoom)
		rooms.GET("/:number/availability", h.RoomAvailability)
	}

	clients := r.Group("/clients")
	{
		clients.GET("", h.ListClients)
		clients.GET("/:id", h.GetClient)
		clients.POST("", h.CreateClient)
		clients.PUT("/:id", h.UpdateClient)
		clients.DELETE("/:id", h.DeleteClient)
	}

	companies := r.Group("/companies")
	{
		companies.GET("", h.ListCompanies)
		companies.GET("/:id", h.GetCompany)
		companies.POST("", h.CreateCompany)
		companies.PUT("/:id", h.UpdateCompany)
		companies.DELETE("/:id", h.DeleteCompany)
	}
}

// RegisterAdminRoutes 注册房间维护路由（仅管理员）
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	rooms := r.Group("/rooms")
	{
		rooms.POST("", h.CreateRoom)
		rooms.PUT("/:number", h.UpdateRoom)
		rooms.DELETE("/:number", h.DeleteRoom)
	}
}
