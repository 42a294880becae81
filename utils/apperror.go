package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType is the machine-readable error_type of the JSON envelope.
type ErrorType string

const (
	ErrValidation        ErrorType = "validation_error"
	ErrNotFound          ErrorType = "not_found"
	ErrConflict          ErrorType = "conflict"
	ErrSignatureInvalid  ErrorType = "signature_invalid"
	ErrGatewayBadRequest ErrorType = "gateway_bad_request"
	ErrGatewayService    ErrorType = "gateway_error"
	ErrForbidden         ErrorType = "forbidden"
	ErrUnauthorized      ErrorType = "unauthorized"
	ErrInternal          ErrorType = "internal_error"
)

// AppError is a domain error carrying the user-visible message and its category.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Status maps the error category onto an HTTP status code.
func (e *AppError) Status() int {
	switch e.Type {
	case ErrValidation, ErrSignatureInvalid:
		return http.StatusBadRequest
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	case ErrGatewayBadRequest, ErrGatewayService:
		return http.StatusBadGateway
	case ErrForbidden:
		return http.StatusForbidden
	case ErrUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func newAppError(t ErrorType, msg string, err error) *AppError {
	return &AppError{Type: t, Message: msg, Err: err}
}

func ValidationError(msg string) *AppError { return newAppError(ErrValidation, msg, nil) }
func NotFoundError(msg string) *AppError   { return newAppError(ErrNotFound, msg, nil) }
func ConflictError(msg string) *AppError   { return newAppError(ErrConflict, msg, nil) }
func ForbiddenError(msg string) *AppError  { return newAppError(ErrForbidden, msg, nil) }

func UnauthorizedError(msg string) *AppError { return newAppError(ErrUnauthorized, msg, nil) }

func SignatureInvalidError(msg string, err error) *AppError {
	return newAppError(ErrSignatureInvalid, msg, err)
}

func GatewayBadRequestError(msg string, err error) *AppError {
	return newAppError(ErrGatewayBadRequest, msg, err)
}

func GatewayServiceError(msg string, err error) *AppError {
	return newAppError(ErrGatewayService, msg, err)
}

func InternalError(msg string, err error) *AppError {
	return newAppError(ErrInternal, msg, err)
}

// AsAppError unwraps err into an AppError, treating anything else as internal.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return InternalError("An unexpected error occurred. Please try again later.", err)
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}
