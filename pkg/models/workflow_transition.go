package models

import "time"

// WorkflowTransition is a directed, immutable edge in the transition graph.
// A nil FromStateID is a wildcard: the target may be entered from any state.
type WorkflowTransition struct {
	ID          string    `json:"id"`
	FromStateID *string   `json:"from_state_id,omitempty"`
	ToStateID   string    `json:"to_state_id"             validate:"required"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsWildcard reports whether the transition applies from any state.
func (t *WorkflowTransition) IsWildcard() bool {
	return t.FromStateID == nil || *t.FromStateID == ""
}

// From returns the origin state ID, or an empty string for wildcard transitions.
func (t *WorkflowTransition) From() string {
	if t.IsWildcard() {
		return ""
	}

	return *t.FromStateID
}
