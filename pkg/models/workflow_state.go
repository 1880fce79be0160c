// Package models defines the domain models for metadata record workflows and metadata standards.
package models

import "time"

// StateStatus represents the activation status of a workflow state.
type StateStatus string

const (
	StateStatusActive  StateStatus = "active"  // Selectable, may be targeted by transitions and reverts
	StateStatusDeleted StateStatus = "deleted" // Soft-deleted, kept for audit
)

// WorkflowState is a named node in the workflow graph.
type WorkflowState struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"                       validate:"required,min=2,max=64,statename"`
	Title             string         `json:"title"                      validate:"required"`
	Description       string         `json:"description"`
	Rules             map[string]any `json:"rules,omitempty"`
	RecordsArePrivate bool           `json:"records_are_private"`
	RevertTargetID    *string        `json:"revert_target_id,omitempty"`
	Status            StateStatus    `json:"status"                     validate:"required,oneof=active deleted"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         *time.Time     `json:"deleted_at,omitempty"`
}

// IsActive reports whether the state can take part in workflow traversal.
func (s *WorkflowState) IsActive() bool {
	return s != nil && s.Status == StateStatusActive
}

// HasRevertTarget reports whether the state falls back to another state.
func (s *WorkflowState) HasRevertTarget() bool {
	return s.RevertTargetID != nil && *s.RevertTargetID != ""
}
