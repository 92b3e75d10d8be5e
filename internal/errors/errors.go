// Package errors implements the service's typed error taxonomy: a single
// UnifiedError type carrying a stable wire code (E1000..E5000), plus
// constructors and accessor methods consumed by every other package.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType classifies a UnifiedError for dispatch and logging.
type ErrorType string

const (
	TypeValidation ErrorType = "VALIDATION"
	TypeNotFound   ErrorType = "NOT_FOUND"
	TypeConflict   ErrorType = "CONFLICT"
	TypeForbidden  ErrorType = "FORBIDDEN"
	TypeRateLimit  ErrorType = "RATE_LIMIT"
	TypeTimeout    ErrorType = "TIMEOUT"
	TypeDependency ErrorType = "DEPENDENCY_UNAVAILABLE"
	TypeInternal   ErrorType = "INTERNAL"
)

// Severity ranks a UnifiedError for alerting/logging.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Code is a stable wire identifier, stable across releases.
type Code string

const (
	CodeValidation       Code = "E1000"
	CodeInvalidAction    Code = "E1002"
	CodeNotFound         Code = "E1100"
	CodeUniqueConstraint Code = "E1200"
	CodePermissionDenied Code = "E1300"
	CodeRateLimited      Code = "E2000"
	CodeSizeLimit        Code = "E2100"
	CodeOperationTimeout Code = "E2200"
	CodeDependencyDown   Code = "E3000"
	CodeInternal         Code = "E5000"
)

// UnifiedError is the single error type used across the module boundary.
type UnifiedError struct {
	Type       ErrorType
	Code       Code
	Message    string
	Operation  string
	Resource   string
	Severity   Severity
	Retryable  bool
	RetryAfter time.Duration
	Context    map[string]any
	Cause      error
}

func (e *UnifiedError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Operation, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *UnifiedError) Unwrap() error { return e.Cause }

// HTTPStatusCode maps the error's code to a conventional HTTP status. The
// MCP tool surface does not speak HTTP, but cmd/memoryd's health endpoint
// and any future REST adapter both need one canonical mapping.
func (e *UnifiedError) HTTPStatusCode() int {
	switch e.Code {
	case CodeValidation, CodeInvalidAction, CodeSizeLimit:
		return 400
	case CodePermissionDenied:
		return 403
	case CodeNotFound:
		return 404
	case CodeUniqueConstraint:
		return 409
	case CodeRateLimited:
		return 429
	case CodeOperationTimeout:
		return 504
	case CodeDependencyDown:
		return 503
	default:
		return 500
	}
}

// IsRetryable reports whether the caller may retry the same operation.
func (e *UnifiedError) IsRetryable() bool { return e.Retryable }

// SeverityLevel returns the error's severity for logging/alerting.
func (e *UnifiedError) SeverityLevel() Severity { return e.Severity }

// WithContext attaches structured context and returns the same error for
// chaining at the call site.
func (e *UnifiedError) WithContext(kv map[string]any) *UnifiedError {
	if e.Context == nil {
		e.Context = make(map[string]any, len(kv))
	}
	for k, v := range kv {
		e.Context[k] = v
	}
	return e
}

func new_(t ErrorType, c Code, sev Severity, retryable bool, op, msg string) *UnifiedError {
	return &UnifiedError{Type: t, Code: c, Message: msg, Operation: op, Severity: sev, Retryable: retryable}
}

func NewValidation(op, msg string) *UnifiedError {
	return new_(TypeValidation, CodeValidation, SeverityLow, false, op, msg)
}

func NewInvalidAction(op, tool, action string, validActions []string) *UnifiedError {
	return new_(TypeValidation, CodeInvalidAction, SeverityLow, false, op,
		fmt.Sprintf("unknown action %q for tool %q", action, tool)).
		WithContext(map[string]any{"tool": tool, "action": action, "validActions": validActions})
}

// NewInvalidState reports an illegal state-machine transition or action
// attempted against an entity in a state that forbids it (episode
// transitions, terminal conversations, expired locks).
func NewInvalidState(op, msg string) *UnifiedError {
	return new_(TypeValidation, CodeInvalidAction, SeverityLow, false, op, msg)
}

func NewNotFound(op, resource string) *UnifiedError {
	e := new_(TypeNotFound, CodeNotFound, SeverityLow, false, op, resource+" not found")
	e.Resource = resource
	return e
}

func NewUniqueConstraint(op, resource string) *UnifiedError {
	e := new_(TypeConflict, CodeUniqueConstraint, SeverityLow, false, op, resource+" already exists")
	e.Resource = resource
	return e
}

func NewPermissionDenied(op, msg string) *UnifiedError {
	return new_(TypeForbidden, CodePermissionDenied, SeverityMedium, false, op, msg)
}

func NewRateLimited(op string, retryAfter time.Duration) *UnifiedError {
	e := new_(TypeRateLimit, CodeRateLimited, SeverityLow, true, op, "rate limit exceeded")
	e.RetryAfter = retryAfter
	return e.WithContext(map[string]any{"retryAfterMs": retryAfter.Milliseconds()})
}

func NewSizeLimitExceeded(op, field string, limit, actual int, unit string) *UnifiedError {
	e := new_(TypeValidation, CodeSizeLimit, SeverityLow, false, op,
		fmt.Sprintf("%s exceeds maximum %s of %d", field, unit, limit))
	return e.WithContext(map[string]any{"field": field, "limit": limit, "actual": actual, "unit": unit})
}

func NewOperationTimeout(op string) *UnifiedError {
	return new_(TypeTimeout, CodeOperationTimeout, SeverityMedium, true, op, "operation exceeded its deadline")
}

func NewDependencyUnavailable(op, dependency string) *UnifiedError {
	e := new_(TypeDependency, CodeDependencyDown, SeverityMedium, true, op, dependency+" is unavailable")
	return e.WithContext(map[string]any{"dependency": dependency})
}

// NewInternal wraps an unexpected error as InternalError. The caller is
// responsible for ensuring msg carries no secrets or filesystem paths
// before it reaches a client — see Sanitize.
func NewInternal(op, msg string, cause error) *UnifiedError {
	e := new_(TypeInternal, CodeInternal, SeverityCritical, false, op, msg)
	e.Cause = cause
	return e
}

// Wrap converts any error into a UnifiedError, passing UnifiedErrors through
// unchanged and classifying everything else as InternalError.
func Wrap(op string, err error) *UnifiedError {
	if err == nil {
		return nil
	}
	var ue *UnifiedError
	if errors.As(err, &ue) {
		return ue
	}
	return NewInternal(op, "unexpected error", err)
}

// As reports whether err (or anything it wraps) is a *UnifiedError and, if
// so, assigns it to target.
func As(err error, target **UnifiedError) bool {
	return errors.As(err, target)
}

// Is reports whether err carries the given stable code.
func Is(err error, code Code) bool {
	var ue *UnifiedError
	if !errors.As(err, &ue) {
		return false
	}
	return ue.Code == code
}
