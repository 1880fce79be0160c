package services

import (
	"context"
	"fmt"

	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/persistence"
	"github.com/go-playground/validator/v10"
)

// Rule manages workflow metrics and the rules binding them to states.
type Rule struct {
	persistence persistence.Persistence
	validate    *validator.Validate
	opts        options
}

// NewRule creates a rule service.
func NewRule(persistence persistence.Persistence, opts ...Option) *Rule {
	return &Rule{
		persistence: persistence,
		validate:    models.NewValidator(),
		opts:        newOptions("rule", opts),
	}
}

// CreateMetric stores a metric with a unique name.
func (r *Rule) CreateMetric(ctx context.Context, metric *models.WorkflowMetric) (*models.WorkflowMetric, error) {
	const op = "CreateMetric"

	if err := r.validate.Struct(metric); err != nil {
		return nil, structError(op, err)
	}

	metrics := r.persistence.MetricRepository()

	if _, err := metrics.GetMetric(ctx, metric.Name); err == nil {
		return nil, duplicateMetric(op, metric.Name)
	} else if !persistence.IsNotFound(err) {
		return nil, fmt.Errorf("failed to look up metric %s: %w", metric.Name, err)
	}

	if err := metrics.CreateMetric(ctx, metric); err != nil {
		if persistence.IsAlreadyExists(err) {
			return nil, duplicateMetric(op, metric.Name)
		}

		return nil, fmt.Errorf("failed to create metric: %w", err)
	}

	r.opts.logger.InfoContext(ctx, "Workflow metric created", "metric_id", metric.ID, "name", metric.Name)

	return metric, nil
}

// GetMetric retrieves a metric by ID or name.
func (r *Rule) GetMetric(ctx context.Context, idOrName string) (*models.WorkflowMetric, error) {
	return r.persistence.MetricRepository().GetMetric(ctx, idOrName)
}

// ListMetrics returns every metric.
func (r *Rule) ListMetrics(ctx context.Context) ([]*models.WorkflowMetric, error) {
	return r.persistence.MetricRepository().ListMetrics(ctx)
}

// CreateRule binds a metric to an active state. State and metric may be given by ID
// or name and are stored by ID.
func (r *Rule) CreateRule(ctx context.Context, rule *models.WorkflowRule) (*models.WorkflowRule, error) {
	const op = "CreateRule"

	if err := r.validate.Struct(rule); err != nil {
		return nil, structError(op, err)
	}

	state, err := r.persistence.StateRepository().GetState(ctx, rule.StateID)
	if err != nil {
		if persistence.IsNotFound(err) {
			return nil, newNotFoundError(op, fmt.Sprintf("state '%s' does not exist", rule.StateID), err)
		}

		return nil, fmt.Errorf("failed to get state: %w", err)
	}

	if !state.IsActive() {
		return nil, newConflictError(op, "STATE_DELETED", fmt.Sprintf("state '%s' is deleted", state.Name), ErrStateDeleted)
	}

	metric, err := r.persistence.MetricRepository().GetMetric(ctx, rule.MetricID)
	if err != nil {
		if persistence.IsNotFound(err) {
			return nil, newNotFoundError(op, fmt.Sprintf("metric '%s' does not exist", rule.MetricID), err)
		}

		return nil, fmt.Errorf("failed to get metric: %w", err)
	}

	rule.StateID = state.ID
	rule.MetricID = metric.ID

	rules := r.persistence.RuleRepository()

	existing, err := rules.ListRules(ctx, state.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	for _, candidate := range existing {
		if candidate.MetricID == metric.ID {
			return nil, duplicateRule(op, state.Name, metric.Name)
		}
	}

	if err := rules.CreateRule(ctx, rule); err != nil {
		if persistence.IsAlreadyExists(err) {
			return nil, duplicateRule(op, state.Name, metric.Name)
		}

		return nil, fmt.Errorf("failed to create rule: %w", err)
	}

	r.opts.logger.InfoContext(ctx, "Workflow rule created", "rule_id", rule.ID, "state_id", state.ID, "metric_id", metric.ID)

	return rule, nil
}

// ListRules returns the rules of one state, or of every state when stateIDOrName is empty.
func (r *Rule) ListRules(ctx context.Context, stateIDOrName string) ([]*models.WorkflowRule, error) {
	stateID := stateIDOrName

	if stateIDOrName != "" {
		state, err := r.persistence.StateRepository().GetState(ctx, stateIDOrName)
		if err != nil {
			return nil, err
		}

		stateID = state.ID
	}

	return r.persistence.RuleRepository().ListRules(ctx, stateID)
}

// DeleteRule removes a rule.
func (r *Rule) DeleteRule(ctx context.Context, id string) error {
	if err := r.persistence.RuleRepository().DeleteRule(ctx, id); err != nil {
		return err
	}

	r.opts.logger.InfoContext(ctx, "Workflow rule deleted", "rule_id", id)

	return nil
}

func duplicateMetric(op, name string) *ServiceError {
	return newConflictError(op, "DUPLICATE_METRIC", fmt.Sprintf("metric name '%s' is already in use", name), ErrDuplicateMetric)
}

func duplicateRule(op, state, metric string) *ServiceError {
	return newConflictError(op, "DUPLICATE_RULE",
		fmt.Sprintf("state '%s' already has a rule for metric '%s'", state, metric), ErrDuplicateRule)
}
