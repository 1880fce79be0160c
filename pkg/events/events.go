// Package events defines the audit events published when workflow configuration or
// metadata standards change.
package events

import (
	"time"

	"github.com/dukex/curator/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic receives every configuration change event.
const Topic = "curator.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Workflow state lifecycle.
	StateCreatedEvent EventType = "workflow.state.created"
	StateUpdatedEvent EventType = "workflow.state.updated"
	StateDeletedEvent EventType = "workflow.state.deleted"

	// Workflow transitions. Transitions are immutable, so there is no update event.
	TransitionCreatedEvent EventType = "workflow.transition.created"
	TransitionDeletedEvent EventType = "workflow.transition.deleted"

	// Metadata standards.
	StandardCreatedEvent EventType = "metadata.standard.created"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Metadata:  make(map[string]any),
	}
}

type StateCreated struct {
	BaseEvent

	State *models.WorkflowState `json:"state"`
}

func (e StateCreated) GetType() EventType {
	return StateCreatedEvent
}

// StateUpdated carries the state before and after the change.
type StateUpdated struct {
	BaseEvent

	Previous *models.WorkflowState `json:"previous"`
	State    *models.WorkflowState `json:"state"`
}

func (e StateUpdated) GetType() EventType {
	return StateUpdatedEvent
}

// StateDeleted lists the transitions removed with the state and the states whose
// revert target was cleared.
type StateDeleted struct {
	BaseEvent

	StateID              string   `json:"state_id"`
	StateName            string   `json:"state_name"`
	RemovedTransitions   []string `json:"removed_transitions,omitempty"`
	ClearedRevertTargets []string `json:"cleared_revert_targets,omitempty"`
}

func (e StateDeleted) GetType() EventType {
	return StateDeletedEvent
}

type TransitionCreated struct {
	BaseEvent

	Transition *models.WorkflowTransition `json:"transition"`
}

func (e TransitionCreated) GetType() EventType {
	return TransitionCreatedEvent
}

type TransitionDeleted struct {
	BaseEvent

	Transition *models.WorkflowTransition `json:"transition"`
}

func (e TransitionDeleted) GetType() EventType {
	return TransitionDeletedEvent
}

type StandardCreated struct {
	BaseEvent

	StandardID string `json:"standard_id"`
	Name       string `json:"name"`
	Version    string `json:"version"`
}

func (e StandardCreated) GetType() EventType {
	return StandardCreatedEvent
}

func NewStateCreated(state *models.WorkflowState) *StateCreated {
	return &StateCreated{BaseEvent: NewBaseEvent(StateCreatedEvent), State: state}
}

func NewStateUpdated(previous, state *models.WorkflowState) *StateUpdated {
	return &StateUpdated{BaseEvent: NewBaseEvent(StateUpdatedEvent), Previous: previous, State: state}
}

func NewStateDeleted(state *models.WorkflowState, removedTransitions, clearedRevertTargets []string) *StateDeleted {
	return &StateDeleted{
		BaseEvent:            NewBaseEvent(StateDeletedEvent),
		StateID:              state.ID,
		StateName:            state.Name,
		RemovedTransitions:   removedTransitions,
		ClearedRevertTargets: clearedRevertTargets,
	}
}

func NewTransitionCreated(transition *models.WorkflowTransition) *TransitionCreated {
	return &TransitionCreated{BaseEvent: NewBaseEvent(TransitionCreatedEvent), Transition: transition}
}

func NewTransitionDeleted(transition *models.WorkflowTransition) *TransitionDeleted {
	return &TransitionDeleted{BaseEvent: NewBaseEvent(TransitionDeletedEvent), Transition: transition}
}

func NewStandardCreated(standard *models.MetadataStandard) *StandardCreated {
	return &StandardCreated{
		BaseEvent:  NewBaseEvent(StandardCreatedEvent),
		StandardID: standard.ID,
		Name:       standard.Name,
		Version:    standard.Version,
	}
}

// New returns an empty event of the given type for decoding, or false for unknown types.
func New(eventType EventType) (any, bool) {
	switch eventType {
	case StateCreatedEvent:
		return &StateCreated{}, true
	case StateUpdatedEvent:
		return &StateUpdated{}, true
	case StateDeletedEvent:
		return &StateDeleted{}, true
	case TransitionCreatedEvent:
		return &TransitionCreated{}, true
	case TransitionDeletedEvent:
		return &TransitionDeleted{}, true
	case StandardCreatedEvent:
		return &StandardCreated{}, true
	default:
		return nil, false
	}
}

// Types lists every event type New can decode.
func Types() []EventType {
	return []EventType{
		StateCreatedEvent,
		StateUpdatedEvent,
		StateDeletedEvent,
		TransitionCreatedEvent,
		TransitionDeletedEvent,
		StandardCreatedEvent,
	}
}
