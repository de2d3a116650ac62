package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误分类，决定返回给客户端的状态码
type Kind int

const (
	Internal Kind = iota
	InvalidInput
	MissingFile
	Unauthorized
	Forbidden
	NotFound
	RateLimited
	UploadFailed
	SearchFailed
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid_input"
	case MissingFile:
		return "missing_file"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case RateLimited:
		return "rate_limited"
	case UploadFailed:
		return "upload_failed"
	case SearchFailed:
		return "search_failed"
	default:
		return "internal"
	}
}

// Status 对应的 HTTP 状态码
func (k Kind) Status() int {
	switch k {
	case InvalidInput, MissingFile:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case RateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// FieldError 单个字段的校验错误
type FieldError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error 业务错误
type Error struct {
	Kind    Kind
	Message string       // 返回给客户端的文案
	Fields  []FieldError // 仅校验错误使用
	Err     error        // 底层错误，只写日志
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New 创建业务错误
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap 包装底层错误
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation 把所有字段错误合并为一个 InvalidInput
func Validation(fields []FieldError) *Error {
	return &Error{Kind: InvalidInput, Message: "Validation errors", Fields: fields}
}

func Invalid(message string) *Error { return New(InvalidInput, message) }

func NotFoundf(format string, args ...interface{}) *Error {
	return New(NotFound, fmt.Sprintf(format, args...))
}

// As 取出错误链上的 *Error
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf 未分类的错误视为 Internal
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return Internal
}

// Status 错误对应的 HTTP 状态码
func Status(err error) int {
	return KindOf(err).Status()
}

// Is 判断错误是否属于某一类
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}
