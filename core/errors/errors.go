// Package errors provides the typed errors returned by the FDX walker,
// the Fountain formatter and the tooling built around them.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrSyntax indicates the input is not well-formed markup
	ErrSyntax = errors.New("syntax error")
	// ErrStructure indicates well-formed markup that is not a FinalDraft document
	ErrStructure = errors.New("structural error")
	// ErrConfiguration indicates the caller omitted required wiring
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsupported indicates an unsupported operation or format
	ErrUnsupported = errors.New("unsupported")
)

// SyntaxError reports that the underlying parse step rejected the input.
type SyntaxError struct {
	Line    int    // 1-based line of the failure, 0 when unknown
	Column  int    // 1-based column of the failure, 0 when unknown
	Message string // Human-readable error message
	Err     error  // Underlying parser error, if any
}

func (e *SyntaxError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "Could not parse the final draft document."
	}
	switch {
	case e.Line > 0 && e.Column > 0:
		return fmt.Sprintf("%s (line %d, column %d)", msg, e.Line, e.Column)
	case e.Line > 0:
		return fmt.Sprintf("%s (line %d)", msg, e.Line)
	}
	return msg
}

func (e *SyntaxError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrSyntax
}

// Is reports ErrSyntax for every SyntaxError, including ones that wrap a
// parser error.
func (e *SyntaxError) Is(target error) bool {
	return target == ErrSyntax
}

// StructuralError reports a well-formed document with the wrong shape.
type StructuralError struct {
	Expected string // Element name that was required
	Found    string // Element name that was present ("" when missing)
	Message  string // Human-readable error message
}

func (e *StructuralError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Found == "" {
		return fmt.Sprintf("Not FinalDraft document. Missing %s element.", e.Expected)
	}
	return fmt.Sprintf("Not FinalDraft document. Expected %s, found %s.", e.Expected, e.Found)
}

func (e *StructuralError) Unwrap() error {
	return ErrStructure
}

// ConfigurationError reports missing caller wiring, such as a nil sink.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field name that failed validation
	Value   string // Value that failed validation (may be redacted)
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// UnsupportedError represents an unsupported feature or format
type UnsupportedError struct {
	Feature string // Feature or format that is unsupported
	Reason  string // Why it's not supported
	Err     error  // Underlying error, if any
}

func (e *UnsupportedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported %s: %s", e.Feature, e.Reason)
	}
	return fmt.Sprintf("unsupported %s", e.Feature)
}

func (e *UnsupportedError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUnsupported
}

// Helper functions for creating common errors

// NewSyntax creates a SyntaxError wrapping the parser failure.
func NewSyntax(line, column int, err error) *SyntaxError {
	return &SyntaxError{
		Line:   line,
		Column: column,
		Err:    err,
	}
}

// NewStructural creates a StructuralError with the given message.
func NewStructural(expected, found, message string) *StructuralError {
	return &StructuralError{
		Expected: expected,
		Found:    found,
		Message:  message,
	}
}

// NewConfiguration creates a ConfigurationError
func NewConfiguration(message string) *ConfigurationError {
	return &ConfigurationError{Message: message}
}

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// NewUnsupported creates an UnsupportedError
func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{
		Feature: feature,
		Reason:  reason,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
