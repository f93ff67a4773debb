// Package apperror provides a structured way to handle application errors
// with specific codes, severity levels, and additional details. It also
// includes utilities for converting to and from Connect RPC errors.
package apperror

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"
)

// ErrorCode represents a specific application error code.
type ErrorCode string

const (
	// Validation
	CodeInvalidInput        ErrorCode = "INVALID_INPUT"
	CodeDimensionMismatch   ErrorCode = "DIMENSION_MISMATCH"
	CodeVariableRange       ErrorCode = "VARIABLE_COUNT_OUT_OF_RANGE"
	CodeTooManyConstraints  ErrorCode = "TOO_MANY_CONSTRAINTS"
	CodeInvalidRelation     ErrorCode = "INVALID_RELATION"
	CodeNonFiniteValue      ErrorCode = "NON_FINITE_VALUE"
	CodeUnknownConstraint   ErrorCode = "UNKNOWN_CONSTRAINT"
	CodeInvalidReportFormat ErrorCode = "INVALID_REPORT_FORMAT"

	// Solver outcomes
	CodeInfeasible          ErrorCode = "INFEASIBLE"
	CodeUnbounded           ErrorCode = "UNBOUNDED"
	CodeSolverFailure       ErrorCode = "SOLVER_FAILURE"
	CodeNumericalDegeneracy ErrorCode = "NUMERICAL_DEGENERACY"
	CodeIterationLimit      ErrorCode = "ITERATION_LIMIT"
	CodeTimeout             ErrorCode = "TIMEOUT"
	CodeCanceled            ErrorCode = "CANCELED"

	// General
	CodeInternal          ErrorCode = "INTERNAL_ERROR"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeInvalidArgument   ErrorCode = "INVALID_ARGUMENT"
	CodeNilInput          ErrorCode = "NIL_INPUT"
	CodeInvalidPagination ErrorCode = "INVALID_PAGINATION"
	CodeUnavailable       ErrorCode = "UNAVAILABLE"
	CodeUnimplemented     ErrorCode = "UNIMPLEMENTED"
	CodeRateLimited       ErrorCode = "RATE_LIMITED"
)

// Severity defines the criticality level of an error.
type Severity int

const (
	// SeverityWarning indicates a non-critical issue that can be ignored or automatically resolved.
	SeverityWarning Severity = iota
	// SeverityError indicates a standard error that requires attention.
	SeverityError
	// SeverityCritical indicates a severe error that might require immediate human intervention.
	SeverityCritical
)

// String returns the string representation of the Severity.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Error is a custom error type that includes an ErrorCode, message,
// an optional field, additional details, an underlying cause, and a severity level.
type Error struct {
	Code     ErrorCode      // Code is a unique identifier for the type of error.
	Message  string         // Message is a human-readable description of the error.
	Field    string         // Field indicates which input field caused the error, if applicable.
	Details  map[string]any // Details provides additional structured information about the error.
	Cause    error          // Cause is the underlying error that triggered this application error.
	Severity Severity       // Severity indicates the criticality level of the error.
}

// Error implements the error interface, returning a string representation of the error.
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error, allowing for error chain introspection.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ConnectCode maps the ErrorCode to an appropriate connect.Code.
func (e *Error) ConnectCode() connect.Code {
	switch e.Code {
	case CodeInvalidInput, CodeDimensionMismatch, CodeVariableRange,
		CodeTooManyConstraints, CodeInvalidRelation, CodeNonFiniteValue,
		CodeUnknownConstraint, CodeInvalidReportFormat, CodeInvalidArgument,
		CodeNilInput, CodeInvalidPagination:
		return connect.CodeInvalidArgument

	case CodeInfeasible, CodeUnbounded:
		return connect.CodeFailedPrecondition

	case CodeNotFound:
		return connect.CodeNotFound

	case CodeTimeout, CodeIterationLimit:
		return connect.CodeDeadlineExceeded

	case CodeCanceled:
		return connect.CodeCanceled

	case CodeNumericalDegeneracy, CodeSolverFailure:
		return connect.CodeAborted

	case CodeUnavailable:
		return connect.CodeUnavailable

	case CodeUnimplemented:
		return connect.CodeUnimplemented

	case CodeRateLimited:
		return connect.CodeResourceExhausted

	default:
		return connect.CodeInternal
	}
}

// New creates a new application error with the given code and message.
// The default severity is SeverityError.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Details:  make(map[string]any),
		Severity: SeverityError,
	}
}

// Newf is New with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// NewWithField creates a new application error with the given code, message, and field.
// The default severity is SeverityError.
func NewWithField(code ErrorCode, message, field string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Field:    field,
		Details:  make(map[string]any),
		Severity: SeverityError,
	}
}

// NewWarning creates a new application error with SeverityWarning.
func NewWarning(code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Details:  make(map[string]any),
		Severity: SeverityWarning,
	}
}

// NewCritical creates a new application error with SeverityCritical.
func NewCritical(code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Details:  make(map[string]any),
		Severity: SeverityCritical,
	}
}

// Wrap creates a new application error that wraps an existing error,
// providing additional context with a code and message.
// The default severity is SeverityError.
func Wrap(cause error, code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Cause:    cause,
		Details:  make(map[string]any),
		Severity: SeverityError,
	}
}

// WithDetails adds a key-value pair to the error's details map and returns the modified error.
func (e *Error) WithDetails(key string, value any) *Error {
	e.Details[key] = value
	return e
}

// WithField sets the field associated with the error and returns the modified error.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// WithSeverity sets the severity level of the error and returns the modified error.
func (e *Error) WithSeverity(s Severity) *Error {
	e.Severity = s
	return e
}

// Is checks if the given error is an application error with a matching ErrorCode.
// It uses errors.As to unwrap the error chain.
func Is(err error, code ErrorCode) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Code extracts the ErrorCode from an error. If the error is not an *Error,
// it returns CodeInternal. Context errors are mapped to CodeTimeout and CodeCanceled.
func Code(err error) ErrorCode {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, context.Canceled):
		return CodeCanceled
	}
	return CodeInternal
}

// ToConnect converts an application error or any other error into a *connect.Error.
// If the error is already a *connect.Error, it is returned as is.
// Otherwise, it's wrapped as an internal error.
func ToConnect(err error) error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		cerr := connect.NewError(appErr.ConnectCode(), errors.New(appErr.Message))
		cerr.Meta().Set("X-Error-Code", string(appErr.Code))
		if appErr.Field != "" {
			cerr.Meta().Set("X-Error-Field", appErr.Field)
		}
		return cerr
	}

	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return err
	}

	switch Code(err) {
	case CodeTimeout:
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case CodeCanceled:
		return connect.NewError(connect.CodeCanceled, err)
	}

	return connect.NewError(connect.CodeInternal, err)
}

// FromConnect converts a Connect error into an *Error.
// If the input error is nil, it returns nil. The original application code is
// restored from the X-Error-Code metadata when the server set it.
func FromConnect(err error) *Error {
	if err == nil {
		return nil
	}

	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		return New(CodeInternal, err.Error())
	}

	if code := connectErr.Meta().Get("X-Error-Code"); code != "" {
		appErr := New(ErrorCode(code), connectErr.Message())
		appErr.Field = connectErr.Meta().Get("X-Error-Field")
		return appErr
	}

	var code ErrorCode
	switch connectErr.Code() {
	case connect.CodeInvalidArgument:
		code = CodeInvalidArgument
	case connect.CodeNotFound:
		code = CodeNotFound
	case connect.CodeDeadlineExceeded:
		code = CodeTimeout
	case connect.CodeCanceled:
		code = CodeCanceled
	case connect.CodeUnavailable:
		code = CodeUnavailable
	case connect.CodeUnimplemented:
		code = CodeUnimplemented
	case connect.CodeResourceExhausted:
		code = CodeRateLimited
	default:
		code = CodeInternal
	}

	return New(code, connectErr.Message())
}

// IsWarning checks if the given error is an application error with SeverityWarning.
func IsWarning(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Severity == SeverityWarning
	}
	return false
}

// IsCritical checks if the given error is an application error with SeverityCritical.
func IsCritical(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Severity == SeverityCritical
	}
	return false
}

// Predefined errors for common scenarios.
var (
	ErrNilModel       = New(CodeNilInput, "model is nil")
	ErrNilAnalysis    = New(CodeNilInput, "analysis is nil")
	ErrInfeasible     = New(CodeInfeasible, "problem is infeasible")
	ErrUnbounded      = New(CodeUnbounded, "problem is unbounded")
	ErrTimeout        = New(CodeTimeout, "operation timed out")
	ErrIterationLimit = New(CodeIterationLimit, "iteration limit exceeded")
)

// ValidationErrors is a collection of application errors and warnings,
// typically used for aggregating results of multiple validation checks.
type ValidationErrors struct {
	Errors   []*Error // Errors contains all collected errors (SeverityError and SeverityCritical).
	Warnings []*Error // Warnings contains all collected warnings (SeverityWarning).
}

// NewValidationErrors creates and returns a new empty ValidationErrors collection.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors:   make([]*Error, 0),
		Warnings: make([]*Error, 0),
	}
}

// Add appends an *Error to the appropriate slice (Errors or Warnings)
// based on its Severity.
func (v *ValidationErrors) Add(err *Error) {
	if err.Severity == SeverityWarning {
		v.Warnings = append(v.Warnings, err)
	} else {
		v.Errors = append(v.Errors, err)
	}
}

// AddError creates and adds a new application error with SeverityError.
func (v *ValidationErrors) AddError(code ErrorCode, message string) {
	v.Errors = append(v.Errors, New(code, message))
}

// AddWarning creates and adds a new application error with SeverityWarning.
func (v *ValidationErrors) AddWarning(code ErrorCode, message string) {
	v.Warnings = append(v.Warnings, NewWarning(code, message))
}

// AddErrorWithField creates and adds a new application error with a specific field.
func (v *ValidationErrors) AddErrorWithField(code ErrorCode, message, field string) {
	v.Errors = append(v.Errors, NewWithField(code, message, field))
}

// HasErrors returns true if the collection contains any errors (non-warning severity).
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// HasWarnings returns true if the collection contains any warnings.
func (v *ValidationErrors) HasWarnings() bool {
	return len(v.Warnings) > 0
}

// IsValid returns true if the collection contains no errors (warnings do not affect validity).
func (v *ValidationErrors) IsValid() bool {
	return !v.HasErrors()
}

// Merge combines the current ValidationErrors collection with another one.
// All errors and warnings from the 'other' collection are appended to the current one.
func (v *ValidationErrors) Merge(other *ValidationErrors) {
	if other == nil {
		return
	}
	v.Errors = append(v.Errors, other.Errors...)
	v.Warnings = append(v.Warnings, other.Warnings...)
}

// First returns the first collected error, or nil when the collection is valid.
func (v *ValidationErrors) First() *Error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v.Errors[0]
}

// ErrorMessages returns a slice of string messages for all collected errors.
func (v *ValidationErrors) ErrorMessages() []string {
	messages := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		messages[i] = err.Error()
	}
	return messages
}

// WarningMessages returns a slice of string messages for all collected warnings.
func (v *ValidationErrors) WarningMessages() []string {
	messages := make([]string, len(v.Warnings))
	for i, warn := range v.Warnings {
		messages[i] = warn.Message
	}
	return messages
}
