// Package errors provides the structured error taxonomy shared by every
// certsmith package.
//
// Errors carry a category (validation, io, network, render, encode, config,
// internal), a stable code for programmatic handling, optional file and
// context information, and a recoverable flag. Recoverable errors are the
// ones a user can fix and retry, such as a malformed record file; the
// export pipeline never retries on its own.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeRender     ErrorType = "render"
	ErrorTypeEncode     ErrorType = "encode"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// CertError is a structured error type with context.
type CertError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	FilePath    string
	Recoverable bool
}

// Error implements the error interface.
func (e *CertError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.FilePath != "" {
		parts = append(parts, e.FilePath+":")
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *CertError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison on type and code.
func (e *CertError) Is(target error) bool {
	var t *CertError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *CertError) WithContext(key string, value interface{}) *CertError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithFile scopes the error to a file.
func (e *CertError) WithFile(filePath string) *CertError {
	e.FilePath = filePath

	return e
}

// Error creation functions

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *CertError {
	return &CertError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *CertError {
	return &CertError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewNetworkError creates a network error. Network failures are recoverable
// because the user can simply re-run the command.
func NewNetworkError(code, message string, cause error) *CertError {
	return &CertError{
		Type:        ErrorTypeNetwork,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewRenderError creates a rasterization error.
func NewRenderError(code, message string, cause error) *CertError {
	return &CertError{
		Type:        ErrorTypeRender,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewEncodeError creates an encoding or archival error.
func NewEncodeError(code, message string, cause error) *CertError {
	return &CertError{
		Type:        ErrorTypeEncode,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *CertError {
	return &CertError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *CertError {
	return &CertError{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// Error recovery and handling utilities

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var ce *CertError
	if errors.As(err, &ce) {
		return ce.Recoverable
	}

	return false
}

// IsType checks whether err is a CertError of the given type.
func IsType(err error, errType ErrorType) bool {
	var ce *CertError
	if errors.As(err, &ce) {
		return ce.Type == errType
	}

	return false
}

// ErrorHandler provides centralized error reporting for command entry points.
type ErrorHandler struct {
	logger Logger
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs an error at a level matching its category.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var ce *CertError
	if !errors.As(err, &ce) {
		h.logger.Error(ctx, err, "Unhandled error occurred")
		return
	}

	switch {
	case ce.Recoverable:
		h.logger.Warn(ctx, err, "Recoverable error occurred",
			"type", ce.Type,
			"code", ce.Code,
			"file", ce.FilePath)
	default:
		h.logger.Error(ctx, err, "Error occurred",
			"type", ce.Type,
			"code", ce.Code,
			"file", ce.FilePath)
	}
}

// Common error codes.
const (
	ErrCodeInvalidTemplate   = "ERR_INVALID_TEMPLATE"
	ErrCodeInvalidField      = "ERR_INVALID_FIELD"
	ErrCodeEmptyRecords      = "ERR_EMPTY_RECORDS"
	ErrCodeMalformedRecords  = "ERR_MALFORMED_RECORDS"
	ErrCodeIndexOutOfRange   = "ERR_INDEX_OUT_OF_RANGE"
	ErrCodeUnsupportedFormat = "ERR_UNSUPPORTED_FORMAT"
	ErrCodeBackgroundLoad    = "ERR_BACKGROUND_LOAD"
	ErrCodeFontLoad          = "ERR_FONT_LOAD"
	ErrCodeRasterize         = "ERR_RASTERIZE"
	ErrCodeEncode            = "ERR_ENCODE"
	ErrCodeDeliver           = "ERR_DELIVER"
	ErrCodeBusy              = "ERR_BUSY"
	ErrCodeFileNotFound      = "ERR_FILE_NOT_FOUND"
	ErrCodeConfigInvalid     = "ERR_CONFIG_INVALID"
	ErrCodeInternalError     = "ERR_INTERNAL"
)

// ErrBusy is returned when an export is requested while another one runs.
var ErrBusy = &CertError{
	Type:        ErrorTypeValidation,
	Code:        ErrCodeBusy,
	Message:     "an export is already in progress",
	Recoverable: true,
}

// ValidationErrorCollection gathers per-field validation problems so a
// template can report all of them at once.
type ValidationErrorCollection struct {
	Problems []string
}

// Add records a problem for a named field.
func (vec *ValidationErrorCollection) Add(field, message string) {
	vec.Problems = append(vec.Problems, fmt.Sprintf("%s: %s", field, message))
}

// HasErrors returns true if there are any validation errors.
func (vec *ValidationErrorCollection) HasErrors() bool {
	return len(vec.Problems) > 0
}

// ToCertError converts the collection to a single validation error, or nil.
func (vec *ValidationErrorCollection) ToCertError(code string) *CertError {
	if !vec.HasErrors() {
		return nil
	}

	return &CertError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     strings.Join(vec.Problems, "; "),
		Recoverable: true,
	}
}
