// Package apperror 业务错误类型，handler 层据此决定 HTTP 状态码与响应码
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// 错误码
const (
	CodeInternal     = "INTERNAL_ERROR"
	CodeValidation   = "VALIDATION_ERROR"
	CodeInvalidInput = "INVALID_INPUT"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeDuplicate    = "DUPLICATE_ENTRY"
	CodeBusinessRule = "BUSINESS_RULE_VIOLATION"
	CodeExternal     = "EXTERNAL_SERVICE_ERROR"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"

	// 采购申请状态相关
	CodeAlreadyProcessed = "REQUEST_ALREADY_PROCESSED"
	CodeHasPurchases     = "REQUEST_HAS_PURCHASES"
	CodeInUse            = "RESOURCE_IN_USE"
)

// AppError 统一业务错误
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	HTTPStatus int            `json:"-"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail 追加上下文信息
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause 设置底层错误
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// NewValidation 参数校验失败 (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewFieldValidation 指定字段的校验失败 (400)
func NewFieldValidation(field, message string) *AppError {
	return NewValidation(message).WithDetail("field", field)
}

// NewUnauthorized 未登录或凭证无效 (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden 无权限 (403)
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewNotFound 资源不存在 (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewConflict 状态冲突 (409)
func NewConflict(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewDuplicate 唯一键冲突 (409)
func NewDuplicate(entity, field string, value any) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// NewBusinessRule 业务规则不满足 (422)
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewExternal 外部服务调用失败 (502)
func NewExternal(service string, err error) *AppError {
	return &AppError{
		Code:       CodeExternal,
		Message:    fmt.Sprintf("%s lookup failed", service),
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"service": service},
		Err:        err,
	}
}

// NewUnavailable 依赖组件未配置 (503)
func NewUnavailable(message string) *AppError {
	return &AppError{
		Code:       CodeUnavailable,
		Message:    message,
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// NewInternal 内部错误，不向客户端暴露细节 (500)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// AsAppError 从错误链中提取 AppError
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus 错误对应的 HTTP 状态码，非 AppError 视为 500
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

func hasCode(err error, code string) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

func IsNotFound(err error) bool   { return hasCode(err, CodeNotFound) }
func IsForbidden(err error) bool  { return hasCode(err, CodeForbidden) }
func IsDuplicate(err error) bool  { return hasCode(err, CodeDuplicate) }
func IsValidation(err error) bool { return hasCode(err, CodeValidation) }

// IsConflict 任意 409 类错误
func IsConflict(err error) bool {
	return GetHTTPStatus(err) == http.StatusConflict
}
