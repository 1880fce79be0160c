package models

import "time"

// WorkflowMetric is a named evaluator reference consumed by workflow rules.
type WorkflowMetric struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"        validate:"required,min=2"`
	Title       string    `json:"title"       validate:"required"`
	Description string    `json:"description"`
	Evaluator   string    `json:"evaluator"   validate:"required"` // Locator of the evaluator implementation
	CreatedAt   time.Time `json:"created_at"`
}

// WorkflowRule binds a metric to a state. The body is opaque to the workflow core.
type WorkflowRule struct {
	ID        string         `json:"id"`
	StateID   string         `json:"state_id"  validate:"required"`
	MetricID  string         `json:"metric_id" validate:"required"`
	Body      map[string]any `json:"body"`
	CreatedAt time.Time      `json:"created_at"`
}
