package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrDuplicateCategory indicates that the owner already has a budget for the category.
var ErrDuplicateCategory = fmt.Errorf("budget for category already exists: %w", ErrDuplicate)

// ErrConflict indicates that a concurrent writer changed the resource between read and write.
var ErrConflict = errors.New("concurrent modification")

// ErrTransient is returned once conflict retries are exhausted. Callers may retry the whole request.
var ErrTransient = errors.New("temporary failure, try again")

// ErrRateUnavailable indicates that the rate table has no entry for a currency.
var ErrRateUnavailable = errors.New("exchange rate unavailable")

// ErrStoreUnavailable indicates that the backing store could not be reached.
var ErrStoreUnavailable = errors.New("store unavailable")

// AppError carries an HTTP-ish status code and a caller-safe message next to the underlying error.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewValidationError wraps ErrValidation with a specific message.
func NewValidationError(message string) error {
	return fmt.Errorf("%w: %s", ErrValidation, message)
}

// NewNotFoundError wraps ErrNotFound with the kind and id of the missing resource.
func NewNotFoundError(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}
