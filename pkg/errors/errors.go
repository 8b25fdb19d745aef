package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors for common cases.
var (
	ErrNotFound            = errors.New("resource not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrDuplicateProduct    = errors.New("duplicate product")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrMalformedSet        = errors.New("malformed identifier set")
	ErrStorageFailure      = errors.New("storage failure")
	ErrUploadFailed        = errors.New("upload failed")
	ErrPersistence         = errors.New("persistence failure")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInternal            = errors.New("internal error")
	ErrConflict            = errors.New("conflict")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// kindError lets a single AppError match more than one sentinel, e.g. an
// upload failure is also a storage failure.
type kindError struct {
	kinds []error
	cause error
}

func (k *kindError) Error() string {
	if k.cause != nil {
		return fmt.Sprintf("%v: %v", k.kinds[0], k.cause)
	}
	return k.kinds[0].Error()
}

func (k *kindError) Unwrap() []error {
	out := make([]error, 0, len(k.kinds)+1)
	out = append(out, k.kinds...)
	if k.cause != nil {
		out = append(out, k.cause)
	}
	return out
}

func kinds(cause error, sentinels ...error) error {
	return &kindError{kinds: sentinels, cause: cause}
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// NotFoundMsg creates a 404 error with a caller-supplied message.
func NotFoundMsg(message string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: message,
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// DuplicateProduct creates a 400 error for a payload naming the same product twice.
func DuplicateProduct(productID int64) *AppError {
	return &AppError{
		Code:    "DUPLICATE_PRODUCT",
		Message: fmt.Sprintf("product %d appears more than once", productID),
		Status:  http.StatusBadRequest,
		Err:     kinds(nil, ErrDuplicateProduct, ErrInvalidInput),
	}
}

// UnsupportedFileType creates a 400 error for a disallowed upload extension.
func UnsupportedFileType(filename string) *AppError {
	return &AppError{
		Code:    "UNSUPPORTED_FILE_TYPE",
		Message: fmt.Sprintf("file type of %q is not allowed", filename),
		Status:  http.StatusBadRequest,
		Err:     kinds(nil, ErrUnsupportedFileType, ErrInvalidInput),
	}
}

// MalformedSet reports a corrupt stored identifier set. It is a data
// integrity failure, not a user error.
func MalformedSet(raw string, cause error) *AppError {
	return &AppError{
		Code:    "MALFORMED_SET",
		Message: fmt.Sprintf("stored identifier set %q is corrupt", raw),
		Status:  http.StatusInternalServerError,
		Err:     kinds(cause, ErrMalformedSet),
	}
}

// StorageFailure creates a 502 error for object store I/O.
func StorageFailure(op string, cause error) *AppError {
	return &AppError{
		Code:    "STORAGE_FAILURE",
		Message: fmt.Sprintf("object storage %s failed", op),
		Status:  http.StatusBadGateway,
		Err:     kinds(cause, ErrStorageFailure),
	}
}

// UploadFailed creates a 502 error when writing a new object fails.
func UploadFailed(cause error) *AppError {
	return &AppError{
		Code:    "UPLOAD_FAILED",
		Message: "failed to store uploaded file",
		Status:  http.StatusBadGateway,
		Err:     kinds(cause, ErrUploadFailed, ErrStorageFailure),
	}
}

// Persistence creates a 500 error for a failed transactional write.
func Persistence(op string, cause error) *AppError {
	return &AppError{
		Code:    "PERSISTENCE_ERROR",
		Message: fmt.Sprintf("failed to %s", op),
		Status:  http.StatusInternalServerError,
		Err:     kinds(cause, ErrPersistence),
	}
}

// Conflict creates a 409 error.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     kinds(err, ErrInternal),
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// IsApp reports whether err already carries an AppError.
func IsApp(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrStorageFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
