// Package auth 提供登录与用户管理 HTTP Handler
package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-pms-backend/internal/common/handler"
	authService "github.com/dumeirei/hotel-pms-backend/internal/service/auth"
)

// Handler 认证处理器
type Handler struct {
	auth *authService.AuthService
}

// NewHandler 创建认证处理器
func NewHandler(auth *authService.AuthService) *Handler {
	return &Handler{auth: auth}
}

// Login 登录
// @Summary 登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body authService.LoginRequest true "用户名与密码"
// @Success 200 {object} response.Response{data=authService.LoginResponse}
// @Failure 401 {object} response.Response
// @Router /api/v1/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req authService.LoginRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), &req)
	handler.MustSucceed(c, err, resp)
}

// Me 当前登录用户
// @Summary 当前用户
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=authService.UserInfo}
// @Router /api/v1/auth/me [get]
func (h *Handler) Me(c *gin.Context) {
	actor, ok := handler.RequireActor(c)
	if !ok {
		return
	}

	user, err := h.auth.GetUser(c.Request.Context(), actor.UserID)
	handler.MustSucceed(c, err, user)
}

// ListUsers 用户列表
// @Summary 用户列表
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	p := handler.BindPagination(c)

	users, total, err := h.auth.ListUsers(c.Request.Context(), &p)
	handler.MustSucceedPage(c, err, users, total, p.Page, p.PageSize)
}

// CreateUser 创建用户
// @Summary 创建用户
// @Tags 用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body authService.CreateUserRequest true "用户信息"
// @Success 201 {object} response.Response{data=authService.UserInfo}
// @Router /api/v1/users [post]
func (h *Handler) CreateUser(c *gin.Context) {
	var req authService.CreateUserRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	user, err := h.auth.CreateUser(c.Request.Context(), &req)
	handler.MustCreate(c, err, user)
}

// UpdateUser 更新用户
// @Summary 更新用户
// @Tags 用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Param request body authService.UpdateUserRequest true "更新内容"
// @Success 200 {object} response.Response{data=authService.UserInfo}
// @Router /api/v1/users/{id} [put]
func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := handler.ParseID(c, "user")
	if !ok {
		return
	}
	var req authService.UpdateUserRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	user, err := h.auth.UpdateUser(c.Request.Context(), id, &req)
	handler.MustSucceed(c, err, user)
}

// RegisterRoutes 注册公开路由
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, loginMiddleware ...gin.HandlerFunc) {
	auth := r.Group("/auth")
	{
		auth.POST("/login", append(loginMiddleware, h.Login)...)
	}
}

// RegisterProtectedRoutes 注册需要认证的路由
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.GET("/auth/me", h.Me)
}

// RegisterAdminRoutes 注册用户管理路由（仅管理员）
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	{
		users.GET("", h.ListUsers)
		users.POST("", h.CreateUser)
		users.PUT("/:id", h.UpdateUser)
	}
}
