package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// SymbolNotFound indicates the target location does not resolve to a definable entity
	SymbolNotFound ErrorCode = "SYMBOL_NOT_FOUND"
	// TargetInvalid indicates a malformed target location
	TargetInvalid ErrorCode = "TARGET_INVALID"
	// DanglingEdge indicates an edge whose endpoint is not present in the graph.
	// This is an internal invariant violation, never expected in normal operation.
	DanglingEdge ErrorCode = "DANGLING_EDGE"
	// ProviderTimeout indicates an external provider call exceeded its deadline
	ProviderTimeout ErrorCode = "PROVIDER_TIMEOUT"
	// SolverUnknown indicates the constraint solver could not decide a predicate
	SolverUnknown ErrorCode = "SOLVER_UNKNOWN"
	// SolverUnsupportedPredicate indicates a predicate outside the supported fragment
	SolverUnsupportedPredicate ErrorCode = "SOLVER_UNSUPPORTED_PREDICATE"
	// BudgetExhausted indicates the context budget ran out during closure computation.
	// This is a reported outcome, not a failure surfaced to callers.
	BudgetExhausted ErrorCode = "BUDGET_EXHAUSTED"
	// IndexMissing indicates the SCIP index was not found
	IndexMissing ErrorCode = "INDEX_MISSING"
	// InferenceUnavailable indicates the inference service is not configured or reachable
	InferenceUnavailable ErrorCode = "INFERENCE_UNAVAILABLE"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Command     string `json:"command,omitempty"`
	Safe        bool   `json:"safe,omitempty"`
	Description string `json:"description,omitempty"`
}

// SliceError represents a ctxslice error with a stable code and optional cause
type SliceError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error
}

// New creates a new SliceError
func New(code ErrorCode, message string, cause error) *SliceError {
	return &SliceError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: suggestedFixes[code],
	}
}

// Newf creates a new SliceError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *SliceError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *SliceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *SliceError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *SliceError) WithDetails(details interface{}) *SliceError {
	e.Details = details
	return e
}

// CodeOf returns the error code carried by err, or InternalError for foreign errors.
func CodeOf(err error) ErrorCode {
	var se *SliceError
	if errors.As(err, &se) {
		return se.Code
	}
	return InternalError
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// suggestedFixes maps error codes to suggested fix actions
var suggestedFixes = map[ErrorCode][]FixAction{
	IndexMissing: {
		{
			Command:     "ctxslice doctor",
			Safe:        true,
			Description: "Check provider configuration and index location",
		},
	},
	InferenceUnavailable: {
		{
			Command:     "export CTXSLICE_API_KEY=<key>",
			Safe:        true,
			Description: "Configure the inference service credentials",
		},
	},
	SymbolNotFound: {
		{
			Command:     "ctxslice index",
			Safe:        true,
			Description: "Rebuild the workspace symbol cache",
		},
	},
}
