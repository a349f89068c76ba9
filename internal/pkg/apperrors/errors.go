package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrAuthFailed          ErrorType = "AUTH_FAILED"
	ErrInvalidRequest      ErrorType = "INVALID_REQUEST"
	ErrNotFound            ErrorType = "NOT_FOUND"
	ErrConflict            ErrorType = "CONFLICT"
	ErrRateLimited         ErrorType = "RATE_LIMITED"
	ErrUpstream            ErrorType = "UPSTREAM_ERROR"
	ErrUpstreamUnreachable ErrorType = "UPSTREAM_UNREACHABLE"
	ErrInternal            ErrorType = "INTERNAL_ERROR"
)

// GenericMessage is what callers see for anything classified as internal.
const GenericMessage = "Internal server error"

// AppError is the standard error struct for the application
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"error"`
	HTTPStatus int       `json:"-"`
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

// WithStatus overrides the status derived from the type. Upstream errors use it to
// mirror the code the upstream returned.
func (e *AppError) WithStatus(status int) *AppError {
	e.HTTPStatus = status
	return e
}

// Public returns the form that is safe to render. Internal errors lose their message.
func (e *AppError) Public() *AppError {
	if e.Type != ErrInternal {
		return e
	}
	return &AppError{Type: ErrInternal, Message: GenericMessage, HTTPStatus: e.HTTPStatus}
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
	}
}

func NewInvalidRequest(msg string) *AppError {
	return New(ErrInvalidRequest, msg, nil)
}

func NewAuthFailed(msg string) *AppError {
	return New(ErrAuthFailed, msg, nil)
}

func NewNotFound(msg string) *AppError {
	return New(ErrNotFound, msg, nil)
}

func NewConflict(msg string) *AppError {
	return New(ErrConflict, msg, nil)
}

func NewInternal(cause error) *AppError {
	return New(ErrInternal, GenericMessage, cause)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(ErrInternal, GenericMessage, err)
}

func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrAuthFailed:
		return http.StatusUnauthorized
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	case ErrRateLimited:
		return http.StatusTooManyRequests
	case ErrUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
