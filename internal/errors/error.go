package errors

import (
	"errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryFetch      Category = "fetch"
	CategoryValidation Category = "validation"
	CategoryNavigation Category = "navigation"
	CategoryProtocol   Category = "protocol"
	CategoryConfig     Category = "config"
	CategoryCLI        Category = "cli"
)

// CatalogError is a structured error with a stable code and a hint.
type CatalogError struct {
	// Code is a unique error identifier (e.g., "C001").
	Code string

	// Category is the error type (fetch, validation, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *CatalogError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Wrapped)
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *CatalogError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is a CatalogError with the same code.
func (e *CatalogError) Is(target error) bool {
	t, ok := target.(*CatalogError)
	if !ok || t.Code == "" {
		return false
	}
	return t.Code == e.Code
}

// WithSuggestion adds a fix suggestion to the error.
func (e *CatalogError) WithSuggestion(s string) *CatalogError {
	e.Suggestion = s
	return e
}

// WithDetail replaces the registered explanation.
func (e *CatalogError) WithDetail(d string) *CatalogError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *CatalogError) Wrap(err error) *CatalogError {
	e.Wrapped = err
	return e
}

// LogAttrs returns key/value pairs suitable for slog.
func (e *CatalogError) LogAttrs() []any {
	attrs := []any{"code", e.Code, "category", string(e.Category)}
	if e.Detail != "" {
		attrs = append(attrs, "detail", e.Detail)
	}
	if e.Wrapped != nil {
		attrs = append(attrs, "error", e.Wrapped)
	}
	return attrs
}

// New creates a CatalogError from a registered error code.
func New(code string) *CatalogError {
	template, ok := registry[code]
	if !ok {
		return &CatalogError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &CatalogError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates a new CatalogError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *CatalogError {
	return &CatalogError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a CatalogError.
func FromError(err error, code string) *CatalogError {
	if err == nil {
		return nil
	}
	var ce *CatalogError
	if errors.As(err, &ce) {
		return ce
	}
	return New(code).Wrap(err)
}

// HasCode reports whether err, or anything it wraps, carries code.
func HasCode(err error, code string) bool {
	var ce *CatalogError
	for err != nil {
		if !errors.As(err, &ce) {
			return false
		}
		if ce.Code == code {
			return true
		}
		err = ce.Wrapped
	}
	return false
}
