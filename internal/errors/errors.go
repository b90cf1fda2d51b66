// Package errors provides the categorized error taxonomy for the scanner.
// Per-record errors are absorbed at the classifier boundary and batch-level
// errors at the coordinator boundary; only configuration errors are expected
// to reach the top-level caller.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Category represents the category of an error
type Category string

const (
	// CategoryUnconfigured represents a missing required credential
	CategoryUnconfigured Category = "unconfigured"
	// CategoryRateLimited represents upstream throttling after retries were exhausted
	CategoryRateLimited Category = "rate_limited"
	// CategoryUpstream represents a network or server failure after retries were exhausted
	CategoryUpstream Category = "upstream_unavailable"
	// CategoryMalformedRecord represents a single record that failed normalization
	CategoryMalformedRecord Category = "malformed_record"
	// CategoryInvariant represents an internal invariant violation
	CategoryInvariant Category = "invariant_violation"
	// CategoryDatabase represents a database error
	CategoryDatabase Category = "database"
	// CategoryCache represents a cache error
	CategoryCache Category = "cache"
	// CategoryValidation represents a request validation error
	CategoryValidation Category = "validation"
	// CategoryNotFound represents a not found error
	CategoryNotFound Category = "not_found"
)

// CategorizedError is an error with a category and an HTTP status code
// for the stats API boundary.
type CategorizedError struct {
	Category   Category
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// NewUnconfiguredError creates an error for a missing required credential.
// Callers are expected to degrade to empty results rather than crash.
func NewUnconfiguredError(what string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryUnconfigured,
		StatusCode: http.StatusServiceUnavailable,
		Code:       "UNCONFIGURED",
		Message:    fmt.Sprintf("%s is not configured", what),
		Details: map[string]interface{}{
			"missing": what,
		},
	}
}

// NewRateLimitedError creates an error for exhausted rate-limit retries
func NewRateLimitedError(provider string, attempts int) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryRateLimited,
		StatusCode: http.StatusTooManyRequests,
		Code:       "RATE_LIMITED",
		Message:    fmt.Sprintf("rate limited by %s after %d attempts", provider, attempts),
		Details: map[string]interface{}{
			"provider": provider,
			"attempts": attempts,
		},
	}
}

// NewUpstreamError creates an error for an upstream failure after retries
func NewUpstreamError(provider string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryUpstream,
		StatusCode: http.StatusBadGateway,
		Code:       "UPSTREAM_UNAVAILABLE",
		Message:    fmt.Sprintf("upstream provider unavailable: %s", provider),
		Cause:      cause,
		Details: map[string]interface{}{
			"provider": provider,
		},
	}
}

// NewMalformedRecordError creates an error for a record that failed normalization.
// These are logged and dropped, never propagated past the classifier.
func NewMalformedRecordError(reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryMalformedRecord,
		StatusCode: http.StatusUnprocessableEntity,
		Code:       "MALFORMED_RECORD",
		Message:    fmt.Sprintf("record failed normalization: %s", reason),
	}
}

// NewInvariantError creates an error for an internal invariant violation.
// These should not occur in normal operation.
func NewInvariantError(invariant string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryInvariant,
		StatusCode: http.StatusInternalServerError,
		Code:       "INVARIANT_VIOLATION",
		Message:    invariant,
	}
}

// NewDatabaseError creates a database error
func NewDatabaseError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryDatabase,
		StatusCode: http.StatusInternalServerError,
		Code:       "DATABASE_ERROR",
		Message:    fmt.Sprintf("database error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewCacheError creates a cache error
func NewCacheError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryCache,
		StatusCode: http.StatusInternalServerError,
		Code:       "CACHE_ERROR",
		Message:    fmt.Sprintf("cache error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewInvalidParameterError creates a request validation error
func NewInvalidParameterError(param string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_PARAMETER",
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string, id string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found: %s", resource, id),
		Details: map[string]interface{}{
			"resource": resource,
			"id":       id,
		},
	}
}

// Categorize categorizes an existing error. Unrecognized errors default
// to the upstream category since everything this system calls is remote.
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr
	}

	return &CategorizedError{
		Category:   CategoryUpstream,
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    "unexpected error",
		Cause:      err,
	}
}

// IsCategory reports whether err belongs to the given category
func IsCategory(err error, c Category) bool {
	catErr := Categorize(err)
	return catErr != nil && catErr.Category == c
}

// IsUnconfigured reports whether err is a missing-credential condition
func IsUnconfigured(err error) bool {
	return IsCategory(err, CategoryUnconfigured)
}

// IsRetryable determines if an error should trigger a retry
func IsRetryable(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	switch catErr.Category {
	case CategoryRateLimited, CategoryUpstream, CategoryDatabase, CategoryCache:
		return true
	default:
		return false
	}
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}
