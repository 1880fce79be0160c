// Package testutil provides test data builders for workflow and metadata models.
package testutil

import (
	"github.com/dukex/curator/pkg/models"
)

// CreateTestState creates an active WorkflowState named name with defaults that can be overridden.
// The ID is left empty so repositories assign it, unless WithStateID is given.
func CreateTestState(name string, overrides ...func(*models.WorkflowState)) *models.WorkflowState {
	state := &models.WorkflowState{
		Name:   name,
		Title:  name,
		Status: models.StateStatusActive,
	}

	for _, override := range overrides {
		override(state)
	}

	return state
}

// WithStateID sets the state ID.
func WithStateID(id string) func(*models.WorkflowState) {
	return func(s *models.WorkflowState) {
		s.ID = id
	}
}

// WithTitle sets the state title.
func WithTitle(title string) func(*models.WorkflowState) {
	return func(s *models.WorkflowState) {
		s.Title = title
	}
}

// WithRules sets the opaque state rules.
func WithRules(rules map[string]any) func(*models.WorkflowState) {
	return func(s *models.WorkflowState) {
		s.Rules = rules
	}
}

// WithRevertTarget sets the state revert target.
func WithRevertTarget(stateID string) func(*models.WorkflowState) {
	return func(s *models.WorkflowState) {
		s.RevertTargetID = &stateID
	}
}

// WithDeleted marks the state as soft-deleted.
func WithDeleted() func(*models.WorkflowState) {
	return func(s *models.WorkflowState) {
		s.Status = models.StateStatusDeleted
	}
}

// CreateTestTransition creates a transition between two state IDs. An empty from
// creates a wildcard transition.
func CreateTestTransition(from, to string, overrides ...func(*models.WorkflowTransition)) *models.WorkflowTransition {
	transition := &models.WorkflowTransition{ToStateID: to}
	if from != "" {
		transition.FromStateID = &from
	}

	for _, override := range overrides {
		override(transition)
	}

	return transition
}

// WithTransitionID sets the transition ID.
func WithTransitionID(id string) func(*models.WorkflowTransition) {
	return func(t *models.WorkflowTransition) {
		t.ID = id
	}
}
