package directory

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCategory groups directory failures independently of the backend.
type ErrorCategory string

const (
	ErrorCategoryNotFound   ErrorCategory = "not_found"
	ErrorCategoryConflict   ErrorCategory = "conflict"
	ErrorCategoryPermission ErrorCategory = "permission"
	ErrorCategoryThrottling ErrorCategory = "throttling"
	ErrorCategoryConnection ErrorCategory = "connection"
	ErrorCategoryValidation ErrorCategory = "validation"
	ErrorCategoryUnknown    ErrorCategory = "unknown"
)

// Error is a categorized directory failure.
type Error struct {
	Operation string        // Directory operation that failed
	Category  ErrorCategory // Backend-independent classification
	Code      string        // Backend error code, if any
	Resource  string        // Group or user involved
	Cause     error         // Underlying error
}

func (e *Error) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("%s failed (%s)", e.Operation, e.Code))
	} else {
		parts = append(parts, fmt.Sprintf("%s failed", e.Operation))
	}

	if e.Resource != "" {
		parts = append(parts, fmt.Sprintf("resource: %s", e.Resource))
	}

	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, " - ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError wraps cause with a category. It returns nil for a nil cause.
func NewError(operation string, category ErrorCategory, code, resource string, cause error) *Error {
	if cause == nil {
		return nil
	}
	if category == "" {
		category = ErrorCategoryUnknown
	}
	return &Error{
		Operation: operation,
		Category:  category,
		Code:      code,
		Resource:  resource,
		Cause:     cause,
	}
}

// Category returns the category of err, or ErrorCategoryUnknown.
func Category(err error) ErrorCategory {
	if err == nil {
		return ErrorCategoryUnknown
	}

	var dirErr *Error
	if errors.As(err, &dirErr) {
		return dirErr.Category
	}

	return ErrorCategoryUnknown
}

// IsNotFound reports whether err is a "no such resource" signal.
func IsNotFound(err error) bool {
	return Category(err) == ErrorCategoryNotFound
}

// IsConflict reports whether err means the resource already exists.
func IsConflict(err error) bool {
	return Category(err) == ErrorCategoryConflict
}
