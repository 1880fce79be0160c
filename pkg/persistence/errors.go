// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrStateNotFound indicates no state matched the given ID or name.
	ErrStateNotFound = errors.New("workflow state not found")

	// ErrStateAlreadyExists indicates a state with the same name already exists.
	ErrStateAlreadyExists = errors.New("workflow state already exists")

	// ErrTransitionNotFound indicates a transition was not found by the given identifier.
	ErrTransitionNotFound = errors.New("workflow transition not found")

	// ErrTransitionAlreadyExists indicates the (from, to) pair is already connected.
	ErrTransitionAlreadyExists = errors.New("workflow transition already exists")

	// ErrMetricNotFound indicates a metric was not found by the given identifier or name.
	ErrMetricNotFound = errors.New("workflow metric not found")

	// ErrMetricAlreadyExists indicates a metric with the same name already exists.
	ErrMetricAlreadyExists = errors.New("workflow metric already exists")

	// ErrRuleNotFound indicates a rule was not found by the given identifier.
	ErrRuleNotFound = errors.New("workflow rule not found")

	// ErrRuleAlreadyExists indicates the (state, metric) pair already has a rule.
	ErrRuleAlreadyExists = errors.New("workflow rule already exists")

	// ErrStandardNotFound indicates a metadata standard was not found.
	ErrStandardNotFound = errors.New("metadata standard not found")

	// ErrStandardAlreadyExists indicates the (name, version) pair is taken.
	ErrStandardAlreadyExists = errors.New("metadata standard already exists")

	// ErrVocabularyNotFound indicates the named vocabulary does not exist.
	ErrVocabularyNotFound = errors.New("vocabulary not found")
)

// EntityError wraps entity-related errors with additional context.
type EntityError struct {
	Op     string // Operation being performed (e.g., "GetState", "CreateTransition")
	Entity string // Entity kind (e.g., "state", "transition")
	Key    string // Identifier or name used for the lookup
	Err    error  // Underlying error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Entity, e.Key, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for entity errors.
func (e *EntityError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStateError creates a new state error with context.
func NewStateError(op, key string, err error) *EntityError {
	return &EntityError{Op: op, Entity: "state", Key: key, Err: err}
}

// NewTransitionError creates a new transition error with context.
func NewTransitionError(op, key string, err error) *EntityError {
	return &EntityError{Op: op, Entity: "transition", Key: key, Err: err}
}

// NewEntityError creates an error for any other entity kind.
func NewEntityError(op, entity, key string, err error) *EntityError {
	return &EntityError{Op: op, Entity: entity, Key: key, Err: err}
}

// IsStateNotFound checks if an error indicates a state was not found.
func IsStateNotFound(err error) bool {
	return errors.Is(err, ErrStateNotFound)
}

// IsTransitionNotFound checks if an error indicates a transition was not found.
func IsTransitionNotFound(err error) bool {
	return errors.Is(err, ErrTransitionNotFound)
}

// IsVocabularyNotFound checks if an error indicates a vocabulary was not found.
func IsVocabularyNotFound(err error) bool {
	return errors.Is(err, ErrVocabularyNotFound)
}

// IsNotFound checks if an error indicates any referenced entity is missing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStateNotFound) ||
		errors.Is(err, ErrTransitionNotFound) ||
		errors.Is(err, ErrMetricNotFound) ||
		errors.Is(err, ErrRuleNotFound) ||
		errors.Is(err, ErrStandardNotFound) ||
		errors.Is(err, ErrVocabularyNotFound)
}

// IsAlreadyExists checks if an error indicates a uniqueness violation.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrStateAlreadyExists) ||
		errors.Is(err, ErrTransitionAlreadyExists) ||
		errors.Is(err, ErrMetricAlreadyExists) ||
		errors.Is(err, ErrRuleAlreadyExists) ||
		errors.Is(err, ErrStandardAlreadyExists)
}
