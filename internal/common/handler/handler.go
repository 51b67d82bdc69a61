// Package handler 提供 API Handler 的通用辅助函数
// 统一错误处理、操作人获取、参数解析
package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/hotel-pms-backend/internal/common/errors"
	"github.com/dumeirei/hotel-pms-backend/internal/common/logger"
	"github.com/dumeirei/hotel-pms-backend/internal/common/response"
	"github.com/dumeirei/hotel-pms-backend/internal/common/utils"
	"github.com/dumeirei/hotel-pms-backend/internal/middleware"
)

// Actor 当前操作人
type Actor struct {
	UserID   int64
	Username string
}

// HandleError 处理错误并发送适当的响应
// 返回 true 表示已写入错误响应，调用方应该 return
//
// 使用示例:
//
//	result, err := service.DoSomething(ctx)
//	if handler.HandleError(c, err) {
//	    return
//	}
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	_ = c.Error(err)

	appErr := errors.GetAppError(err)
	if appErr.Kind == errors.KindInternal {
		logger.Error("request failed",
			logger.String("path", c.FullPath()),
			logger.RequestID(middleware.GetRequestID(c)),
			logger.Err(err),
		)
	}
	response.Error(c, appErr.HTTPStatus(), appErr.Code, appErr.Message)
	return true
}

// MustSucceed 有错误则返回错误响应，否则返回成功响应
func MustSucceed(c *gin.Context, err error, data interface{}) {
	if HandleError(c, err) {
		return
	}
	response.Success(c, data)
}

// MustCreate 有错误则返回错误响应，否则返回 201
func MustCreate(c *gin.Context, err error, data interface{}) {
	if HandleError(c, err) {
		return
	}
	response.Created(c, data)
}

// MustSucceedPage 分页响应版本
func MustSucceedPage(c *gin.Context, err error, list interface{}, total int64, page, pageSize int) {
	if HandleError(c, err) {
		return
	}
	response.SuccessPage(c, list, total, page, pageSize)
}

// RequireActor 获取当前操作人，未登录则返回 401
func RequireActor(c *gin.Context) (Actor, bool) {
	userID := middleware.GetUserID(c)
	username := middleware.GetUsername(c)
	if userID == 0 || username == "" {
		response.Unauthorized(c, "authentication required")
		return Actor{}, false
	}
	return Actor{UserID: userID, Username: username}, true
}

// BindJSON 绑定请求体，失败时返回 400
func BindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// ParseID 解析路径参数 "id" 为 int64
func ParseID(c *gin.Context, resourceName string) (int64, bool) {
	return ParseParamID(c, "id", resourceName)
}

// ParseParamID 解析指定路径参数为 int64
func ParseParamID(c *gin.Context, paramName, resourceName string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(paramName), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid "+resourceName+" id")
		return 0, false
	}
	return id, true
}

// ParseQueryID 解析查询参数中的可选 ID
// 参数为空返回 (nil, true)
func ParseQueryID(c *gin.Context, paramName, resourceName string) (*int64, bool) {
	s := c.Query(paramName)
	if s == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid "+resourceName+" id")
		return nil, false
	}
	return &id, true
}

// ParseQueryDate 从查询参数解析可选日期
func ParseQueryDate(c *gin.Context, paramName string) (*time.Time, bool) {
	s := c.Query(paramName)
	if s == "" {
		return nil, true
	}
	t, err := utils.ParseDate(s)
	if err != nil {
		response.BadRequest(c, paramName+": "+err.Error())
		return nil, false
	}
	return &t, true
}

// ParseRequiredQueryDate 从查询参数解析必填日期
func ParseRequiredQueryDate(c *gin.Context, paramName string) (time.Time, bool) {
	if c.Query(paramName) == "" {
		response.BadRequest(c, paramName+" is required")
		return time.Time{}, false
	}
	t, ok := ParseQueryDate(c, paramName)
	if !ok {
		return time.Time{}, false
	}
	return *t, true
}

// ParseRequiredQueryDateRange 解析必填的 from/to 日期范围
func ParseRequiredQueryDateRange(c *gin.Context) (time.Time, time.Time, bool) {
	from, ok := ParseRequiredQueryDate(c, "from")
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	to, ok := ParseRequiredQueryDate(c, "to")
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	if to.Before(from) {
		response.BadRequest(c, "to must not be before from")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

// BindPagination 从查询参数绑定并规范化分页参数
func BindPagination(c *gin.Context) utils.Pagination {
	var p utils.Pagination
	p.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	p.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	p.Normalize()
	return p
}
