// Package apperr defines the typed failures shared by every service layer.
// Each error carries an HTTP-equivalent status and a machine-readable code so
// the transport layer can render the standard error envelope without
// inspecting error strings.
package apperr

import (
	"errors"
	"net/http"
)

// Machine-readable error codes exposed in the error envelope.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeRoleForbidden     = "ROLE_FORBIDDEN"
	CodeEmailNotVerified  = "EMAIL_NOT_VERIFIED"
	CodeInvalidTransition = "INVALID_STATUS_TRANSITION"
	CodeNoActivePeriode   = "NO_ACTIVE_PERIODE"
	CodeServerError       = "SERVER_ERROR"
)

// Error is a typed application failure.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]string
}

func (e *Error) Error() string { return e.Message }

// Validation builds a 400 failure with a field-level detail map.
func Validation(fields map[string]string) *Error {
	return &Error{
		Status:  http.StatusBadRequest,
		Code:    CodeValidation,
		Message: "Validasi gagal",
		Details: fields,
	}
}

// ValidationMessage builds a 400 validation failure carrying only a message,
// for rejections that are not tied to a request field.
func ValidationMessage(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeValidation, Message: message}
}

// ValidationConflict builds a 409 duplicate failure keyed by field.
func ValidationConflict(field, message string) *Error {
	return &Error{
		Status:  http.StatusConflict,
		Code:    CodeValidation,
		Message: message,
		Details: map[string]string{field: message},
	}
}

// NotFound builds a 404 failure.
func NotFound(message string) *Error {
	return &Error{Status: http.StatusNotFound, Code: CodeNotFound, Message: message}
}

// Unauthorized builds a 401 failure.
func Unauthorized(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: message}
}

// RoleForbidden builds a 403 failure for insufficient role.
func RoleForbidden(message string) *Error {
	return &Error{Status: http.StatusForbidden, Code: CodeRoleForbidden, Message: message}
}

// EmailNotVerified builds a 403 failure for unverified accounts.
func EmailNotVerified() *Error {
	return &Error{Status: http.StatusForbidden, Code: CodeEmailNotVerified, Message: "Email belum terverifikasi"}
}

// InvalidTransition builds a 400 failure for workflow guard violations.
func InvalidTransition(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeInvalidTransition, Message: message}
}

// NoActivePeriode builds a 400 failure raised when period resolution found
// nothing to resolve or repair.
func NoActivePeriode() *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeNoActivePeriode, Message: "Tidak ada periode aktif"}
}

// From normalizes any error into an *Error. Unknown errors map to a generic
// 500 so internal detail never leaks into a response body.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{Status: http.StatusInternalServerError, Code: CodeServerError, Message: "Server Error"}
}
