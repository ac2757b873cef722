// Package apperr はAPI全体のエラーモデル。
// 旧実装ではルートファイルごとにエラー処理が重複していたため、ここに一本化する。
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeUnavailable     Code = "UNAVAILABLE"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeForbidden       Code = "FORBIDDEN"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func ErrInvalid(msg string) *APIError      { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError     { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrConflict(msg string) *APIError     { return &APIError{Code: CodeConflict, Message: msg} }
func ErrUnavailable(msg string) *APIError  { return &APIError{Code: CodeUnavailable, Message: msg} }
func ErrInvalidState(msg string) *APIError { return &APIError{Code: CodeInvalidState, Message: msg} }
func ErrForbidden(msg string) *APIError    { return &APIError{Code: CodeForbidden, Message: msg} }
func ErrInternal(msg string) *APIError     { return &APIError{Code: CodeInternal, Message: msg} }

// ドメインエラーは4xx、ストア障害などそれ以外は一律500に落とす
func ToHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return http.StatusBadRequest
		case CodeNotFound:
			return http.StatusNotFound
		case CodeConflict, CodeUnavailable, CodeInvalidState:
			return http.StatusConflict
		case CodeForbidden:
			return http.StatusForbidden
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

// レスポンスボディは {"error":{"code","message"}} 形式で統一
type ErrorDTO struct {
	Error APIError `json:"error"`
}

func Body(err error) ErrorDTO {
	var api *APIError
	if errors.As(err, &api) {
		return ErrorDTO{Error: *api}
	}
	return ErrorDTO{Error: APIError{Code: CodeInternal, Message: "internal error"}}
}
