// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagora/engine

package durable

import (
	"strings"
)

// ErrorCategory classifies a durable-tier failure for retry decisions.
type ErrorCategory int

const (
	// ErrorCategoryUnknown is the zero value; treated as retryable.
	ErrorCategoryUnknown ErrorCategory = iota
	// ErrorCategoryRetryable indicates a transient failure (network
	// blip, connection reset, timeout) worth retrying.
	ErrorCategoryRetryable
	// ErrorCategoryPermanent indicates a failure that will not resolve
	// on retry (malformed payload, schema mismatch).
	ErrorCategoryPermanent
)

func (c ErrorCategory) String() string {
	switch c {
	case ErrorCategoryRetryable:
		return "retryable"
	case ErrorCategoryPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// RetryableError wraps a failure the caller should retry.
type RetryableError struct {
	Message string
	Cause   error
}

// NewRetryableError constructs a RetryableError.
func NewRetryableError(message string, cause error) *RetryableError {
	return &RetryableError{Message: message, Cause: cause}
}

func (e *RetryableError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RetryableError) Unwrap() error { return e.Cause }

// PermanentError wraps a failure that will not resolve on retry.
type PermanentError struct {
	Message string
	Cause   error
}

// NewPermanentError constructs a PermanentError.
func NewPermanentError(message string, cause error) *PermanentError {
	return &PermanentError{Message: message, Cause: cause}
}

func (e *PermanentError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *PermanentError) Unwrap() error { return e.Cause }

var permanentSubstrings = []string{
	"invalid", "malformed", "unmarshal", "schema", "constraint",
	"unauthorized", "forbidden", "not found",
}

var retryableSubstrings = []string{
	"timeout", "deadline exceeded", "connection refused", "connection reset",
	"broken pipe", "eof", "no route to host", "unavailable", "circuit breaker is open",
}

// categorizeErrorMessage classifies a plain-text error message when the
// error isn't already a *RetryableError or *PermanentError.
func categorizeErrorMessage(message string) ErrorCategory {
	lower := strings.ToLower(message)
	for _, s := range permanentSubstrings {
		if strings.Contains(lower, s) {
			return ErrorCategoryPermanent
		}
	}
	for _, s := range retryableSubstrings {
		if strings.Contains(lower, s) {
			return ErrorCategoryRetryable
		}
	}
	return ErrorCategoryUnknown
}

// IsRetryableError reports whether err should be retried.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	switch err.(type) {
	case *RetryableError:
		return true
	case *PermanentError:
		return false
	}
	cat := categorizeErrorMessage(err.Error())
	return cat != ErrorCategoryPermanent
}

// IsPermanentError reports whether err should not be retried.
func IsPermanentError(err error) bool {
	if err == nil {
		return false
	}
	switch err.(type) {
	case *PermanentError:
		return true
	case *RetryableError:
		return false
	}
	return categorizeErrorMessage(err.Error()) == ErrorCategoryPermanent
}
