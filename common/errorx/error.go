package errorx

import (
	"fmt"

	"github.com/pkg/errors"
)

// BizError 业务错误，实现 error 接口
type BizError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error 实现 error 接口
func (e *BizError) Error() string {
	return fmt.Sprintf("BizError: code=%d, message=%s", e.Code, e.Message)
}

// GetCode 获取错误码
func (e *BizError) GetCode() int {
	return e.Code
}

// GetMessage 获取错误消息
func (e *BizError) GetMessage() string {
	return e.Message
}

// New 创建业务错误（使用默认消息）
func New(code int) *BizError {
	return &BizError{
		Code:    code,
		Message: GetMessage(code),
	}
}

// NewWithMessage 创建业务错误（自定义消息）
func NewWithMessage(code int, message string) *BizError {
	return &BizError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误，添加上下文信息
func Wrap(code int, err error) *BizError {
	if err == nil {
		return New(code)
	}
	return &BizError{
		Code:    code,
		Message: fmt.Sprintf("%s: %v", GetMessage(code), err),
	}
}

// Is 判断是否为特定错误码
func Is(err error, code int) bool {
	if err == nil {
		return false
	}
	var bizErr *BizError
	if errors.As(err, &bizErr) {
		return bizErr.Code == code
	}
	return false
}

// FromError 从 error 转换为 BizError
// 非业务错误统一收敛为内部错误，不向外暴露细节
func FromError(err error) *BizError {
	if err == nil {
		return nil
	}

	// 支持 errors.Wrap 包装过的错误
	causeErr := errors.Cause(err)

	if bizErr, ok := causeErr.(*BizError); ok {
		return bizErr
	}

	return &BizError{
		Code:    CodeInternalError,
		Message: GetMessage(CodeInternalError),
	}
}

// ============ 常用错误快捷方法 ============

// ErrInternalError 内部错误
func ErrInternalError() *BizError {
	return New(CodeInternalError)
}

// ErrInvalidParams 参数错误
func ErrInvalidParams(msg string) *BizError {
	if msg == "" {
		return New(CodeInvalidParams)
	}
	return NewWithMessage(CodeInvalidParams, msg)
}

// ErrDBError 数据库错误
func ErrDBError(err error) *BizError {
	return Wrap(CodeDBError, err)
}

// ErrActivityNotFound 活动不存在
func ErrActivityNotFound() *BizError {
	return New(CodeActivityNotFound)
}

// ErrTransitionPersist 状态流转持久化失败
func ErrTransitionPersist(err error) *BizError {
	return Wrap(CodeTransitionPersist, err)
}

// ErrDeliveryFailed 通知渠道投递失败
func ErrDeliveryFailed(err error) *BizError {
	return Wrap(CodeDeliveryFailed, err)
}

// ErrRoomUnauthorized 无权加入活动房间
func ErrRoomUnauthorized() *BizError {
	return New(CodeRoomUnauthorized)
}

// ErrBroadcastUnauthorized 无权发送活动广播
func ErrBroadcastUnauthorized() *BizError {
	return New(CodeBroadcastUnauthorized)
}

// ErrAlertUnauthorized 无权发送紧急告警
func ErrAlertUnauthorized() *BizError {
	return New(CodeAlertUnauthorized)
}

// ErrAuthRequired 连接未认证
func ErrAuthRequired() *BizError {
	return New(CodeAuthRequired)
}
