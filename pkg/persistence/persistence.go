// Package persistence provides the record store abstraction for workflow configuration,
// metadata standards and vocabularies.
package persistence

import (
	"context"

	"github.com/dukex/curator/pkg/models"
)

// Persistence is the record store. It exclusively owns every entity; callers hold
// copies only for the duration of a single operation.
type Persistence interface {
	StateRepository() StateRepository
	TransitionRepository() TransitionRepository
	MetricRepository() MetricRepository
	RuleRepository() RuleRepository
	StandardRepository() StandardRepository
	VocabularyRepository() VocabularyRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// StateFilter narrows ListStates. Zero values do not filter.
type StateFilter struct {
	Status         models.StateStatus
	RevertTargetID string
}

// StateRepository stores workflow states. Lookups accept either the state ID or its unique name.
type StateRepository interface {
	// GetState returns ErrStateNotFound when neither the ID nor the name match.
	GetState(ctx context.Context, idOrName string) (*models.WorkflowState, error)
	ListStates(ctx context.Context, filter StateFilter) ([]*models.WorkflowState, error)
	// CreateState returns ErrStateAlreadyExists when the name is taken.
	CreateState(ctx context.Context, state *models.WorkflowState) error
	UpdateState(ctx context.Context, state *models.WorkflowState) error
	// DeleteState flips the status to deleted; the row is retained.
	DeleteState(ctx context.Context, id string) error
}

// TransitionFilter narrows ListTransitions. Zero values do not filter.
type TransitionFilter struct {
	FromStateID  string // Transitions leaving this state
	ToStateID    string // Transitions entering this state
	StateID      string // Transitions touching this state on either end
	WildcardOnly bool   // Only transitions without an origin
}

// TransitionRepository stores transitions in creation order.
type TransitionRepository interface {
	GetTransition(ctx context.Context, id string) (*models.WorkflowTransition, error)
	ListTransitions(ctx context.Context, filter TransitionFilter) ([]*models.WorkflowTransition, error)
	// CreateTransition returns ErrTransitionAlreadyExists for a duplicate (from, to) pair.
	CreateTransition(ctx context.Context, transition *models.WorkflowTransition) error
	DeleteTransition(ctx context.Context, id string) error
}

// MetricRepository stores workflow metrics.
type MetricRepository interface {
	GetMetric(ctx context.Context, idOrName string) (*models.WorkflowMetric, error)
	ListMetrics(ctx context.Context) ([]*models.WorkflowMetric, error)
	CreateMetric(ctx context.Context, metric *models.WorkflowMetric) error
}

// RuleRepository stores workflow rules, unique per (state, metric).
type RuleRepository interface {
	GetRule(ctx context.Context, id string) (*models.WorkflowRule, error)
	ListRules(ctx context.Context, stateID string) ([]*models.WorkflowRule, error)
	CreateRule(ctx context.Context, rule *models.WorkflowRule) error
	DeleteRule(ctx context.Context, id string) error
}

// StandardRepository stores metadata standards and their attribute mappings.
type StandardRepository interface {
	GetStandard(ctx context.Context, name, version string) (*models.MetadataStandard, error)
	GetStandardByID(ctx context.Context, id string) (*models.MetadataStandard, error)
	ListStandards(ctx context.Context) ([]*models.MetadataStandard, error)
	CreateStandard(ctx context.Context, standard *models.MetadataStandard) error

	ListAttrMaps(ctx context.Context, standardID string) ([]*models.MetadataJSONAttrMap, error)
	// SaveAttrMap inserts or replaces the mapping for (standard, record attribute).
	SaveAttrMap(ctx context.Context, attrMap *models.MetadataJSONAttrMap) error
}

// VocabularyRepository provides controlled vocabularies.
type VocabularyRepository interface {
	// GetVocabulary returns ErrVocabularyNotFound for unknown names.
	GetVocabulary(ctx context.Context, name string) (*models.Vocabulary, error)
	SaveVocabulary(ctx context.Context, vocabulary *models.Vocabulary) error
}
