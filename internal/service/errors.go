package service

import "errors"

type ErrorCode string

const (
	ErrorCodeValidation   ErrorCode = "validation"
	ErrorCodeUnauthorized ErrorCode = "unauthorized"
	ErrorCodeConflict     ErrorCode = "conflict"
	ErrorCodeNotFound     ErrorCode = "not_found"
	ErrorCodeInternal     ErrorCode = "internal"
)

// Error is a classified failure whose Message is safe to show to clients.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func NewError(code ErrorCode, message string) error {
	return &Error{Code: code, Message: message}
}

func NewValidationError(message string) error {
	return NewError(ErrorCodeValidation, message)
}

func NewUnauthorizedError(message string) error {
	return NewError(ErrorCodeUnauthorized, message)
}

func NewConflictError(message string) error {
	return NewError(ErrorCodeConflict, message)
}

func NewNotFoundError(message string) error {
	return NewError(ErrorCodeNotFound, message)
}

func AsError(err error) (*Error, bool) {
	var serviceErr *Error
	if errors.As(err, &serviceErr) {
		return serviceErr, true
	}
	return nil, false
}

// HasCode reports whether err is a classified error with the given code.
func HasCode(err error, code ErrorCode) bool {
	serviceErr, ok := AsError(err)
	return ok && serviceErr.Code == code
}
