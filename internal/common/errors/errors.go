// Package errors 定义业务错误码和错误处理
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind 错误类别
type Kind string

// 错误类别
const (
	KindNotFound     Kind = "not_found"
	KindValidation   Kind = "validation_failed"
	KindConflict     Kind = "conflict_failed"
	KindState        Kind = "state_failed"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindRateLimited  Kind = "rate_limited"
	KindInternal     Kind = "internal"
)

// AppError 应用错误
type AppError struct {
	Code    int    `json:"code"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 同一错误码视为同一错误
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New 创建新的应用错误
func New(code int, kind Kind, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(code int, kind Kind, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// WithMessage 修改错误消息
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{
		Code:    e.Code,
		Kind:    e.Kind,
		Message: message,
		Err:     e.Err,
	}
}

// WithMessagef 格式化错误消息
func (e *AppError) WithMessagef(format string, args ...interface{}) *AppError {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// WithError 添加原始错误
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Kind:    e.Kind,
		Message: e.Message,
		Err:     err,
	}
}

// HTTPStatus 返回错误类别对应的 HTTP 状态码
func (e *AppError) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindState:
		return http.StatusUnprocessableEntity
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// 通用错误码 (1000-1999)
var (
	ErrUnknown         = New(1000, KindInternal, "unknown error")
	ErrInvalidParams   = New(1001, KindValidation, "invalid parameters")
	ErrNotFound        = New(1002, KindNotFound, "resource not found")
	ErrAlreadyExists   = New(1003, KindConflict, "resource already exists")
	ErrDatabaseError   = New(1004, KindInternal, "database error")
	ErrCacheError      = New(1005, KindInternal, "cache error")
	ErrInternalError   = New(1006, KindInternal, "internal error")
	ErrRateLimitExceed = New(1008, KindRateLimited, "too many requests")
)

// 认证错误码 (2000-2999)
var (
	ErrUnauthorized     = New(2000, KindUnauthorized, "login required")
	ErrTokenExpired     = New(2001, KindUnauthorized, "token expired")
	ErrTokenInvalid     = New(2002, KindUnauthorized, "invalid token")
	ErrPermissionDenied = New(2004, KindForbidden, "permission denied")
	ErrAccountDisabled  = New(2005, KindForbidden, "account disabled")
	ErrPasswordError    = New(2007, KindUnauthorized, "invalid username or password")
)

// 用户与登记错误码 (3000-3999)
var (
	ErrUserNotFound    = New(3000, KindNotFound, "user not found")
	ErrUserExists      = New(3001, KindConflict, "username already taken")
	ErrRoomNotFound    = New(3100, KindNotFound, "room not found")
	ErrRoomExists      = New(3101, KindConflict, "room already exists")
	ErrRoomInUse       = New(3102, KindConflict, "room is referenced by reservations")
	ErrRoomInvalid     = New(3103, KindValidation, "invalid room data")
	ErrClientNotFound  = New(3200, KindNotFound, "client not found")
	ErrClientExists    = New(3201, KindConflict, "client document already registered")
	ErrClientInUse     = New(3202, KindConflict, "client is referenced by reservations or invoices")
	ErrCompanyNotFound = New(3300, KindNotFound, "company not found")
	ErrCompanyExists   = New(3301, KindConflict, "company tax id already registered")
	ErrCompanyInUse    = New(3302, KindConflict, "company is referenced by reservations or invoices")
	ErrPartyInvalid    = New(3400, KindValidation, "invalid client or company data")
)

// 预订错误码 (4000-4999)
var (
	ErrReservationNotFound  = New(4000, KindNotFound, "reservation not found")
	ErrReservationInvalid   = New(4001, KindValidation, "invalid reservation data")
	ErrRoomNotAvailable     = New(4002, KindConflict, "room not available")
	ErrInvalidTransition    = New(4003, KindState, "status transition not allowed")
	ErrRoomRequired         = New(4004, KindState, "a room must be assigned")
	ErrUnbilledLines        = New(4005, KindState, "reservation has unbilled lodging lines")
	ErrLineNotFound         = New(4100, KindNotFound, "reservation line not found")
	ErrLineInvalid          = New(4101, KindValidation, "invalid reservation line")
	ErrLineOutOfRange       = New(4102, KindValidation, "line date outside reservation range")
	ErrNoLinesFound         = New(4103, KindNotFound, "no lines found for reservation")
	ErrStatusFieldForbidden = New(4200, KindValidation, "status cannot be changed through modify")
	ErrInvalidStatus        = New(4201, KindValidation, "invalid reservation status")
)

// 账单错误码 (5000-5999)
var (
	ErrInvoiceNotFound      = New(5000, KindNotFound, "invoice not found")
	ErrInvoiceInvalid       = New(5001, KindValidation, "invalid invoice data")
	ErrChargesUnavailable   = New(5002, KindConflict, "some charges already invoiced or do not exist")
	ErrInvoiceTotalInvalid  = New(5003, KindState, "invoice total must be positive")
	ErrInvoiceAlreadyVoided = New(5004, KindState, "invoice already cancelled")
	ErrChargeNotFound       = New(5100, KindNotFound, "charge not found")
	ErrChargeInvalid        = New(5101, KindValidation, "invalid charge data")
	ErrChargeAlreadyVoided  = New(5102, KindState, "charge already voided")
	ErrInvalidPaymentMethod = New(5200, KindValidation, "invalid payment method")
)

// Prefix 以操作名为前缀包装错误，保持原有错误类别
// 非 AppError 视为内部错误
func Prefix(operation string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.WithMessage(operation + ": " + appErr.Message)
	}
	return ErrInternalError.WithMessage(operation + ": " + err.Error()).WithError(err)
}

// IsAppError 判断是否为应用错误
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetAppError 获取应用错误
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return ErrUnknown.WithError(err)
}

// KindOf 获取错误类别
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return GetAppError(err).Kind
}
