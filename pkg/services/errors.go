// Package services implements the curator application services over the record store,
// the graph engine and the schema engine.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/curator/pkg/persistence"
	"github.com/go-playground/validator/v10"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (422 Unprocessable Entity).
	ErrInvalidRequest     = errors.New("invalid request")
	ErrSelfTransition     = errors.New("transition must connect two different states")
	ErrTransitionRejected = errors.New("transition rejected by workflow policy")
	ErrRevertToSelf       = errors.New("state cannot revert to itself")
	ErrRevertCycle        = errors.New("revert target would close a revert cycle")
	ErrRevertNotUpstream  = errors.New("revert target does not lead to the state through transitions")
	ErrInvalidSchema      = errors.New("invalid metadata schema")
	ErrMissingKeyField    = errors.New("metadata document is missing a key field")

	// Business Logic Conflicts (409 Conflict).
	ErrDuplicateStateName  = errors.New("workflow state name already in use")
	ErrDuplicateTransition = errors.New("transition already exists")
	ErrDuplicateMetric     = errors.New("workflow metric name already in use")
	ErrDuplicateRule       = errors.New("state already has a rule for this metric")
	ErrDuplicateStandard   = errors.New("metadata standard version already exists")
	ErrStateDeleted        = errors.New("workflow state is deleted")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 422.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrSelfTransition) ||
		errors.Is(err, ErrTransitionRejected) ||
		errors.Is(err, ErrRevertToSelf) ||
		errors.Is(err, ErrRevertCycle) ||
		errors.Is(err, ErrRevertNotUpstream) ||
		errors.Is(err, ErrInvalidSchema) ||
		errors.Is(err, ErrMissingKeyField)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrDuplicateStateName) ||
		errors.Is(err, ErrDuplicateTransition) ||
		errors.Is(err, ErrDuplicateMetric) ||
		errors.Is(err, ErrDuplicateRule) ||
		errors.Is(err, ErrDuplicateStandard) ||
		errors.Is(err, ErrStateDeleted)
}

// IsNotFound checks if an error reports a missing state, transition, metric, rule,
// standard or vocabulary.
func IsNotFound(err error) bool {
	return persistence.IsNotFound(err)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// newNotFoundError reports a referenced entity as missing while keeping the persistence sentinel.
func newNotFoundError(op, message string, err error) *ServiceError {
	return &ServiceError{Op: op, Code: "NOT_FOUND", Message: message, Err: err}
}

func newConflictError(op, code, message string, err error) *ServiceError {
	return &ServiceError{Op: op, Code: code, Message: message, Err: err}
}

// structError converts struct validation failures into a validation ServiceError.
func structError(op string, err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return NewValidationError(op, "INVALID_REQUEST", err.Error(), ErrInvalidRequest)
	}

	fields := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fields = append(fields, fmt.Sprintf("%s failed on '%s'", fieldErr.Namespace(), fieldErr.Tag()))
	}

	return NewValidationError(op, "INVALID_REQUEST", fmt.Sprintf("invalid fields: %v", fields), ErrInvalidRequest)
}
