package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal     ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidSystem    ErrorCode = "INVALID_SYSTEM"
	ErrCodeInvalidCVE       ErrorCode = "INVALID_CVE"
	ErrCodeInvalidRole      ErrorCode = "INVALID_ROLE"
	ErrCodeInvalidState     ErrorCode = "INVALID_STATE"
	ErrCodeMaxItemsLimit    ErrorCode = "MAX_ITEMS_LIMIT"

	ErrCodeAuthenticationFailed ErrorCode = "AUTHENTICATION_FAILED"
	ErrCodeAccessDenied         ErrorCode = "ACCESS_DENIED"
	ErrCodeExternalAuthFailed   ErrorCode = "EXTERNAL_AUTH_FAILED"
	ErrCodeTokenMalformed       ErrorCode = "TOKEN_MALFORMED"

	ErrCodeSystemExists        ErrorCode = "SYSTEM_ALREADY_EXISTS"
	ErrCodeSystemUserExists    ErrorCode = "SYSTEM_USER_ALREADY_EXISTS"
	ErrCodeVulnerabilityExists ErrorCode = "VULNERABILITY_ALREADY_EXISTS"
	ErrCodeVulnerabilityMissed ErrorCode = "VULNERABILITY_NOT_FOUND"

	ErrCodeCVEDoesNotExist ErrorCode = "CVE_DOES_NOT_EXIST"
	ErrCodeProviderStatus  ErrorCode = "PROVIDER_BAD_STATUS"
	ErrCodeExternalLookup  ErrorCode = "EXTERNAL_LOOKUP_FAILED"
)

type AppError struct {
	Type       ErrorType `json:"type"`
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCause copies the error so that sentinel values stay immutable.
func (e *AppError) WithCause(cause error) *AppError {
	copied := *e
	copied.Cause = cause
	return &copied
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewExternalError(message string, code ErrorCode, status int) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       code,
		Message:    message,
		StatusCode: status,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrAuthenticationFailed = NewUnauthorizedError("Authentication failed", ErrCodeAuthenticationFailed)
	ErrAccessDenied         = NewForbiddenError("Access denied", ErrCodeAccessDenied)
	ErrExternalAuthFailed   = NewExternalError("There was an error during external authentication", ErrCodeExternalAuthFailed, http.StatusServiceUnavailable)
	ErrMaxItemsLimit        = NewValidationError("Bulk operations are limited to 20 items", ErrCodeMaxItemsLimit)
	ErrTokenMalformed       = NewUnauthorizedError("Token is malformed", ErrCodeTokenMalformed)

	ErrSystemAlreadyExists        = NewConflictError("System name is already in use", ErrCodeSystemExists)
	ErrSystemUserAlreadyExists    = NewConflictError("User already belongs to the system", ErrCodeSystemUserExists)
	ErrVulnerabilityAlreadyExists = NewConflictError("Vulnerability was already reported for the system", ErrCodeVulnerabilityExists)
	ErrVulnerabilityNotFound      = NewNotFoundError("Vulnerability does not exist in the system", ErrCodeVulnerabilityMissed)

	ErrCVEDoesNotExist   = NewExternalError("CVE does not exist in the external catalog", ErrCodeCVEDoesNotExist, http.StatusBadRequest)
	ErrProviderBadStatus = NewExternalError("Vulnerability provider responded with a non-success status", ErrCodeProviderStatus, http.StatusBadGateway)
	ErrExternalLookup    = NewExternalError("Vulnerability lookup failed", ErrCodeExternalLookup, http.StatusBadGateway)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType `json:"type"`
		Code    ErrorCode `json:"code"`
		Message string    `json:"message"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
	})
}
