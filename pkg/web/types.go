// Package web provides HTTP request and response types for the curator API.
package web

import "github.com/dukex/curator/pkg/schema"

// CreateTransitionRequest represents the request body for creating a transition.
// An empty From creates a wildcard transition.
type CreateTransitionRequest struct {
	From string `json:"from,omitempty"`
	To   string `json:"to"             validate:"required"`
}

// CreateStandardRequest represents the request body for registering a metadata standard.
type CreateStandardRequest struct {
	Name     string         `json:"name"                validate:"required,min=2"`
	Version  string         `json:"version"             validate:"required"`
	Schema   map[string]any `json:"schema"              validate:"required"`
	Template map[string]any `json:"template,omitempty"`
	ParentID *string        `json:"parent_id,omitempty"`
}

// SaveAttrMapRequest represents the request body for mapping a JSON pointer to a record attribute.
type SaveAttrMapRequest struct {
	JSONPath   string `json:"json_path"   validate:"required,startswith=/"`
	RecordAttr string `json:"record_attr" validate:"required"`
	IsKey      bool   `json:"is_key"`
}

// SaveVocabularyRequest represents the request body for replacing a vocabulary's tags.
type SaveVocabularyRequest struct {
	Tags []string `json:"tags" validate:"required"`
}

// CreateMetricRequest represents the request body for creating a workflow metric.
type CreateMetricRequest struct {
	Name        string `json:"name"        validate:"required,min=2"`
	Title       string `json:"title"       validate:"required"`
	Description string `json:"description"`
	Evaluator   string `json:"evaluator"   validate:"required"`
}

// CreateRuleRequest represents the request body for binding a metric to a state.
type CreateRuleRequest struct {
	Metric string         `json:"metric" validate:"required"`
	Body   map[string]any `json:"body"`
}

// PathResponse reports whether one state reaches another.
type PathResponse struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Exists bool   `json:"exists"`
}

// ValidationResponse carries the outcome of validating a record.
type ValidationResponse struct {
	Valid  bool             `json:"valid"`
	Errors schema.ErrorTree `json:"errors"`
}
