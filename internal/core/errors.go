package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation ErrorCategory = "validation" // Invalid input, rejected before dispatch
	ErrCatExecution  ErrorCategory = "execution"  // Provider-level invocation failure
	ErrCatTimeout    ErrorCategory = "timeout"    // Deadline expired
	ErrCatRateLimit  ErrorCategory = "rate_limit" // Provider rate limited
	ErrCatConsensus  ErrorCategory = "consensus"  // Resolution failure
	ErrCatNotFound   ErrorCategory = "not_found"  // Resource not found
	ErrCatStorage    ErrorCategory = "storage"    // History/knowledge persistence failure
	ErrCatNetwork    ErrorCategory = "network"    // Network connectivity
	ErrCatInternal   ErrorCategory = "internal"   // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrInvalidRequest creates a validation error. Requests failing validation
// are rejected before any expert is invoked.
func ErrInvalidRequest(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrExpertTimeout creates the error recorded when one expert exceeds its
// deadline. Recoverable: the expert is excluded from weighting, the request
// continues.
func ErrExpertTimeout(expertID string) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      CodeExpertTimeout,
		Message:   fmt.Sprintf("expert %s exceeded its deadline", expertID),
		Retryable: true,
		Details: map[string]interface{}{
			"expert_id": expertID,
		},
	}
}

// ErrExpertInvocation creates the error recorded when a provider call fails
// for any reason other than a deadline. Recoverable: the expert is excluded,
// the request continues.
func ErrExpertInvocation(expertID string, cause error) *DomainError {
	return &DomainError{
		Category:  ErrCatExecution,
		Code:      CodeExpertInvocation,
		Message:   fmt.Sprintf("expert %s invocation failed", expertID),
		Retryable: true,
		Cause:     cause,
		Details: map[string]interface{}{
			"expert_id": expertID,
		},
	}
}

// ErrAllExpertsFailed creates the fatal error for a request with zero usable
// responses. Surfaced to the caller with no result body.
func ErrAllExpertsFailed(dispatched int) *DomainError {
	return &DomainError{
		Category:  ErrCatConsensus,
		Code:      CodeAllExpertsFailed,
		Message:   fmt.Sprintf("all %d dispatched experts failed", dispatched),
		Retryable: false,
		Details: map[string]interface{}{
			"dispatched": dispatched,
		},
	}
}

// ErrExecution creates an execution error.
func ErrExecution(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatExecution,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrRateLimit creates a rate limit error.
func ErrRateLimit(provider string) *DomainError {
	return &DomainError{
		Category:  ErrCatRateLimit,
		Code:      CodeRateLimited,
		Message:   fmt.Sprintf("provider %s is rate limited", provider),
		Retryable: true,
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      "NOT_FOUND",
		Message:   fmt.Sprintf("%s not found: %s", resource, id),
		Retryable: false,
	}
}

// ErrStorage creates a storage error.
func ErrStorage(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatStorage,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// IsAllExpertsFailed reports whether err is the total-failure error.
func IsAllExpertsFailed(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Code == CodeAllExpertsFailed
	}
	return false
}

// Predefined error codes
const (
	CodeExpertTimeout    = "EXPERT_TIMEOUT"
	CodeExpertInvocation = "EXPERT_INVOCATION_FAILED"
	CodeAllExpertsFailed = "ALL_EXPERTS_FAILED"
	CodeRateLimited      = "RATE_LIMITED"
	CodeUnknownExpert    = "UNKNOWN_EXPERT"
	CodeNoExperts        = "NO_EXPERTS"

	// Validation error codes
	CodeEmptyPrompt       = "EMPTY_PROMPT"
	CodePromptTooLong     = "PROMPT_TOO_LONG"
	CodeInvalidMode       = "INVALID_MODE"
	CodeInvalidThreshold  = "INVALID_THRESHOLD"
	CodeUnknownCapability = "UNKNOWN_CAPABILITY"
	CodeInvalidConfig     = "INVALID_CONFIG"

	// Storage error codes
	CodeHistoryWrite = "HISTORY_WRITE_FAILED"
	CodeHistoryRead  = "HISTORY_READ_FAILED"
)
