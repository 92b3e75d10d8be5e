// Package errors re-exports the module's typed error taxonomy for callers
// outside the module boundary, mirroring the thin public/internal split the
// teacher repo already draws between pkg/errors and internal/errors.
package errors

import (
	"time"

	internal "github.com/agentmemory/memoryd/internal/errors"
)

type (
	UnifiedError = internal.UnifiedError
	ErrorType    = internal.ErrorType
	Code         = internal.Code
	Severity     = internal.Severity
)

const (
	TypeValidation = internal.TypeValidation
	TypeNotFound   = internal.TypeNotFound
	TypeConflict   = internal.TypeConflict
	TypeForbidden  = internal.TypeForbidden
	TypeRateLimit  = internal.TypeRateLimit
	TypeTimeout    = internal.TypeTimeout
	TypeDependency = internal.TypeDependency
	TypeInternal   = internal.TypeInternal
)

var (
	NewValidation            = internal.NewValidation
	NewInvalidAction         = internal.NewInvalidAction
	NewInvalidState          = internal.NewInvalidState
	NewNotFound              = internal.NewNotFound
	NewUniqueConstraint      = internal.NewUniqueConstraint
	NewPermissionDenied      = internal.NewPermissionDenied
	NewSizeLimitExceeded     = internal.NewSizeLimitExceeded
	NewOperationTimeout      = internal.NewOperationTimeout
	NewDependencyUnavailable = internal.NewDependencyUnavailable
	NewInternal              = internal.NewInternal
	Wrap                     = internal.Wrap
	As                       = internal.As
	Is                       = internal.Is
	Sanitize                 = internal.Sanitize
)

func NewRateLimited(op string, retryAfter time.Duration) *UnifiedError {
	return internal.NewRateLimited(op, retryAfter)
}
