package errs

import (
	"errors"
	"strconv"
	"strings"
)

// Error codes used across the gateway. Connection-fatal codes close the
// socket after the diagnostic event; everything else is per-operation.
const (
	CodeAuthentication  = 1101
	CodeRoomNotFound    = 1201
	CodeMessageNotFound = 1202
	CodeNotAuthorized   = 1203
	CodeValidation      = 1301
	CodeRateLimited     = 1401
	CodeInternal        = 1500
)

var (
	ErrAuthentication  = NewCodeError(CodeAuthentication, "authentication failed")
	ErrRoomNotFound    = NewCodeError(CodeRoomNotFound, "Room not found")
	ErrMessageNotFound = NewCodeError(CodeMessageNotFound, "Message not found")
	ErrNotAuthorized   = NewCodeError(CodeNotAuthorized, "Not authorized to access this room")
	ErrValidation      = NewCodeError(CodeValidation, "invalid payload")
	ErrRateLimited     = NewCodeError(CodeRateLimited, "rate limit exceeded")
	ErrInternal        = NewCodeError(CodeInternal, "internal error")
)

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  msg,
	}
}

type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

// WithMsg returns a copy carrying a user-facing message, keeping the code
// so errors.Is against the sentinel still matches.
func (e *CodeError) WithMsg(msg string) *CodeError {
	return &CodeError{Code: e.Code, Msg: msg, Detail: e.Detail}
}

func (e *CodeError) WithDetail(detail string) *CodeError {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return &CodeError{
		Code:   e.Code,
		Msg:    e.Msg,
		Detail: d,
	}
}

func (e *CodeError) Is(err error) bool {
	var codeErr *CodeError
	if !errors.As(err, &codeErr) {
		return false
	}
	return e.Code == codeErr.Code
}

func (e *CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

// CodeOf extracts the CodeError from an error chain, or nil.
func CodeOf(err error) *CodeError {
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		return codeErr
	}
	return nil
}
