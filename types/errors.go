package types

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode int

const (
	CodeUnknown ErrorCode = iota
	CodeValidation
	CodeNotFound
	CodeConflict
	CodeStorage
	CodeConfig
	CodeNetwork
	CodeChainRejected
	CodeUnreconciled
	CodeUnauthorized
)

var codeNames = map[ErrorCode]string{
	CodeUnknown:       "unknown",
	CodeValidation:    "validation",
	CodeNotFound:      "not found",
	CodeConflict:      "conflict",
	CodeStorage:       "storage",
	CodeConfig:        "config",
	CodeNetwork:       "network",
	CodeChainRejected: "chain rejected",
	CodeUnreconciled:  "unreconciled",
	CodeUnauthorized:  "unauthorized",
}

func (c ErrorCode) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return codeNames[CodeUnknown]
}

// ParseErrorCode is the inverse of String; unknown names map to CodeUnknown.
func ParseErrorCode(s string) ErrorCode {
	for c, n := range codeNames {
		if n == s {
			return c
		}
	}
	return CodeUnknown
}

// HTTPStatus is the response status the API uses for errors of this code.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNetwork, CodeChainRejected:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a categorized error. Two errors match under errors.Is when their
// codes are equal, so the sentinels below can be used to test a category.
type Error struct {
	Code   ErrorCode
	Detail string
	Err    error
}

var (
	ErrValidation    = &Error{Code: CodeValidation}
	ErrNotFound      = &Error{Code: CodeNotFound}
	ErrConflict      = &Error{Code: CodeConflict}
	ErrStorage       = &Error{Code: CodeStorage}
	ErrConfig        = &Error{Code: CodeConfig}
	ErrNetwork       = &Error{Code: CodeNetwork}
	ErrChainRejected = &Error{Code: CodeChainRejected}
	ErrUnreconciled  = &Error{Code: CodeUnreconciled}
	ErrUnauthorized  = &Error{Code: CodeUnauthorized}
)

func (e *Error) Error() string {
	msg := e.Code.String() + " error"
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func NewError(code ErrorCode, err error, format string, args ...any) *Error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...), Err: err}
}

func Validationf(format string, args ...any) error {
	return NewError(CodeValidation, nil, format, args...)
}

func NotFoundf(format string, args ...any) error {
	return NewError(CodeNotFound, nil, format, args...)
}

func Conflictf(format string, args ...any) error {
	return NewError(CodeConflict, nil, format, args...)
}

func Configf(format string, args ...any) error {
	return NewError(CodeConfig, nil, format, args...)
}

// CodeOf returns the code of the first categorized error in err's chain.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}
