package apierrors

import (
	"errors"
)

// Code 表示统一业务错误码。
type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeInvalidConfig   Code = "INVALID_CONFIG"
)

// Error 表示带统一错误码的业务错误。
type Error struct {
	Code    Code
	Message string
	cause   error
}

// New 创建一个新的业务错误。
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap 创建携带底层原因的业务错误，errors.Is 可穿透到 cause。
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Error 实现 error 接口。
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.cause != nil {
		return msg + ": " + e.cause.Error()
	}
	return msg
}

// Unwrap 返回底层原因。
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// FromError 尝试从通用 error 中解析业务错误。
func FromError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// HasCode 判断 err 链上是否存在指定错误码。
func HasCode(err error, code Code) bool {
	apiErr, ok := FromError(err)
	return ok && apiErr.Code == code
}
