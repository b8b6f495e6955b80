// Package errors provides structured error types for SignMaker.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the HTTP API
//   - Machine-readable error codes for programmatic handling
//   - Per-variant failure reporting in the image pipeline
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow the rendering pipeline's failure taxonomy:
//   - CONFIGURATION_ERROR: missing or malformed bounds/layout data (fatal at startup)
//   - ASSET_NOT_FOUND: a template or icon file cannot be resolved (fatal to one variant)
//   - RENDER_TIMEOUT, RENDER_ERROR: browser-side failures (fatal to one variant, retryable)
//   - INVALID_*: product data fails shape constraints before any render
//   - *_NOT_FOUND, CONFLICT: persistence lookups and uniqueness
//
// # Usage
//
//	err := errors.New(errors.ErrCodeAssetNotFound, "icon not found: %s", name)
//	if errors.Is(err, errors.ErrCodeAssetNotFound) {
//	    // Skip this variant, keep the batch going
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeRender, origErr, "rasterize %s", doc.Name)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Configuration errors
	ErrCodeConfiguration Code = "CONFIGURATION_ERROR"

	// Asset errors
	ErrCodeAssetNotFound Code = "ASSET_NOT_FOUND"

	// Rendering errors
	ErrCodeRenderTimeout Code = "RENDER_TIMEOUT"
	ErrCodeRender        Code = "RENDER_ERROR"

	// Input validation errors
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidImageType Code = "INVALID_IMAGE_TYPE"
	ErrCodeInvalidPath      Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodeProductNotFound Code = "PRODUCT_NOT_FOUND"
	ErrCodeJobNotFound     Code = "JOB_NOT_FOUND"

	// Persistence errors
	ErrCodeConflict Code = "CONFLICT"
	ErrCodeStorage  Code = "STORAGE_ERROR"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsValidation reports whether err is any of the input validation codes.
func IsValidation(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidImageType, ErrCodeInvalidPath:
		return true
	}
	return false
}

// IsNotFound reports whether err is any of the not-found codes.
func IsNotFound(err error) bool {
	switch GetCode(err) {
	case ErrCodeNotFound, ErrCodeProductNotFound, ErrCodeJobNotFound:
		return true
	}
	return false
}

// IsRetryable reports whether a caller may retry the failed operation
// unchanged. Only browser-side failures qualify; configuration and asset
// errors will fail the same way again.
func IsRetryable(err error) bool {
	switch GetCode(err) {
	case ErrCodeRenderTimeout, ErrCodeRender:
		return true
	}
	return false
}
