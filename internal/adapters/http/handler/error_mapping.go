package handler

import (
	"errors"
	"net/http"

	"github.com/ogurasousui/employee-management/internal/core/auth"
	"github.com/ogurasousui/employee-management/internal/core/employee"
)

const internalErrorMessage = "An internal server error occurred."

var (
	errMalformedBody = errors.New("request body is malformed")
	errBodyTooLarge  = errors.New("request body is too large")
)

func toHTTPStatus(err error) int {
	switch {
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errMalformedBody), employee.IsValidation(err):
		return http.StatusBadRequest
	case employee.IsConflict(err):
		return http.StatusConflict
	case employee.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, employee.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrTooManyAttempts):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// 500 系は内部情報を返さない
func publicMessage(err error, status int) string {
	if status >= http.StatusInternalServerError {
		return internalErrorMessage
	}
	return err.Error()
}
