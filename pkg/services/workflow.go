package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukex/curator/pkg/events"
	"github.com/dukex/curator/pkg/graph"
	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/otelhelper"
	"github.com/dukex/curator/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
)

// Workflow manages workflow states and transitions. Every graph invariant is checked
// before the record store is written.
type Workflow struct {
	persistence persistence.Persistence
	graph       *graph.Engine
	validate    *validator.Validate
	opts        options
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence, opts ...Option) *Workflow {
	o := newOptions("workflow", opts)

	return &Workflow{
		persistence: persistence,
		graph: graph.NewEngine(
			persistence.StateRepository(),
			persistence.TransitionRepository(),
			graph.WithMaxDepth(o.maxDepth),
			graph.WithLogger(o.baseLogger),
			graph.WithTracer(o.tracer),
		),
		validate: models.NewValidator(),
		opts:     o,
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// CreateStateRequest describes a new workflow state.
type CreateStateRequest struct {
	Name              string         `json:"name"`
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	Rules             map[string]any `json:"rules,omitempty"`
	RecordsArePrivate bool           `json:"records_are_private"`
	RevertTarget      string         `json:"revert_target,omitempty"` // ID or name
}

// UpdateStateRequest changes the non-nil fields of a state. An empty RevertTarget
// clears the revert target.
type UpdateStateRequest struct {
	Name              *string        `json:"name,omitempty"`
	Title             *string        `json:"title,omitempty"`
	Description       *string        `json:"description,omitempty"`
	Rules             map[string]any `json:"rules,omitempty"`
	RecordsArePrivate *bool          `json:"records_are_private,omitempty"`
	RevertTarget      *string        `json:"revert_target,omitempty"`
}

// GetState retrieves a state by ID or name.
func (w *Workflow) GetState(ctx context.Context, idOrName string) (*models.WorkflowState, error) {
	return w.persistence.StateRepository().GetState(ctx, idOrName)
}

// ListStates returns states in creation order, optionally including deleted ones.
func (w *Workflow) ListStates(ctx context.Context, includeDeleted bool) ([]*models.WorkflowState, error) {
	filter := persistence.StateFilter{Status: models.StateStatusActive}
	if includeDeleted {
		filter.Status = ""
	}

	return w.persistence.StateRepository().ListStates(ctx, filter)
}

// CreateState validates and stores a new active state.
func (w *Workflow) CreateState(ctx context.Context, req CreateStateRequest) (*models.WorkflowState, error) {
	const op = "CreateState"

	state := &models.WorkflowState{
		Name:              strings.TrimSpace(req.Name),
		Title:             strings.TrimSpace(req.Title),
		Description:       req.Description,
		Rules:             req.Rules,
		RecordsArePrivate: req.RecordsArePrivate,
		Status:            models.StateStatusActive,
	}

	if err := w.validate.Struct(state); err != nil {
		return nil, structError(op, err)
	}

	if err := w.checkNameAvailable(ctx, op, state); err != nil {
		return nil, err
	}

	if req.RevertTarget != "" {
		target, err := w.checkRevertTarget(ctx, op, state, req.RevertTarget)
		if err != nil {
			return nil, err
		}

		state.RevertTargetID = &target.ID
	}

	if err := w.persistence.StateRepository().CreateState(ctx, state); err != nil {
		if persistence.IsAlreadyExists(err) {
			return nil, duplicateStateName(op, state.Name)
		}

		return nil, fmt.Errorf("failed to create state: %w", err)
	}

	w.opts.logger.InfoContext(ctx, "Workflow state created", "state_id", state.ID, "name", state.Name)
	w.opts.publish(ctx, state.ID, events.NewStateCreated(state))

	return state, nil
}

// UpdateState applies req to an active state.
func (w *Workflow) UpdateState(ctx context.Context, idOrName string, req UpdateStateRequest) (*models.WorkflowState, error) {
	const op = "UpdateState"

	ctx, span := otelhelper.StartSpan(ctx, w.opts.tracer, "services.UpdateState", attribute.String(otelhelper.StateIDKey, idOrName))
	defer span.End()

	state, err := w.updateState(ctx, op, idOrName, req)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	return state, nil
}

func (w *Workflow) updateState(ctx context.Context, op, idOrName string, req UpdateStateRequest) (*models.WorkflowState, error) {
	existing, err := w.persistence.StateRepository().GetState(ctx, idOrName)
	if err != nil {
		return nil, err
	}

	if !existing.IsActive() {
		return nil, newConflictError(op, "STATE_DELETED", fmt.Sprintf("state '%s' is deleted", existing.Name), ErrStateDeleted)
	}

	updated := *existing

	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}

	if req.Title != nil {
		updated.Title = strings.TrimSpace(*req.Title)
	}

	if req.Description != nil {
		updated.Description = *req.Description
	}

	if req.Rules != nil {
		updated.Rules = req.Rules
	}

	if req.RecordsArePrivate != nil {
		updated.RecordsArePrivate = *req.RecordsArePrivate
	}

	if err := w.validate.Struct(&updated); err != nil {
		return nil, structError(op, err)
	}

	if updated.Name != existing.Name {
		if err := w.checkNameAvailable(ctx, op, &updated); err != nil {
			return nil, err
		}
	}

	if req.RevertTarget != nil {
		if *req.RevertTarget == "" {
			updated.RevertTargetID = nil
		} else {
			target, err := w.checkRevertTarget(ctx, op, &updated, *req.RevertTarget)
			if err != nil {
				return nil, err
			}

			updated.RevertTargetID = &target.ID
		}
	}

	if err := w.persistence.StateRepository().UpdateState(ctx, &updated); err != nil {
		if persistence.IsAlreadyExists(err) {
			return nil, duplicateStateName(op, updated.Name)
		}

		return nil, fmt.Errorf("failed to update state: %w", err)
	}

	w.opts.logger.InfoContext(ctx, "Workflow state updated", "state_id", updated.ID, "name", updated.Name)
	w.opts.publish(ctx, updated.ID, events.NewStateUpdated(existing, &updated))

	return &updated, nil
}

// DeleteState soft-deletes a state, then removes the transitions touching it and
// clears revert targets pointing at it, so every revert target stays active. When
// detaching fails the state stays deleted; calling DeleteState again finishes the
// detach before reporting ErrStateDeleted.
func (w *Workflow) DeleteState(ctx context.Context, idOrName string) error {
	const op = "DeleteState"

	states := w.persistence.StateRepository()

	state, err := states.GetState(ctx, idOrName)
	if err != nil {
		return err
	}

	if !state.IsActive() {
		if _, _, err := w.detachState(ctx, state.ID); err != nil {
			return err
		}

		return newConflictError(op, "STATE_DELETED", fmt.Sprintf("state '%s' is already deleted", state.Name), ErrStateDeleted)
	}

	if err := states.DeleteState(ctx, state.ID); err != nil {
		return fmt.Errorf("failed to delete state: %w", err)
	}

	removed, cleared, err := w.detachState(ctx, state.ID)
	if err != nil {
		w.opts.logger.WarnContext(ctx, "Workflow state deleted but not detached", "state_id", state.ID, "error", err)

		return fmt.Errorf("state %s deleted with leftover references: %w", state.ID, err)
	}

	w.opts.logger.InfoContext(ctx, "Workflow state deleted",
		"state_id", state.ID,
		"removed_transitions", len(removed),
		"cleared_revert_targets", len(cleared),
	)
	w.opts.publish(ctx, state.ID, events.NewStateDeleted(state, removed, cleared))

	return nil
}

// detachState clears revert targets pointing at stateID and removes the transitions
// touching it. It returns the IDs of the cleared states and removed transitions.
func (w *Workflow) detachState(ctx context.Context, stateID string) (removed, cleared []string, err error) {
	states := w.persistence.StateRepository()

	dependents, err := states.ListStates(ctx, persistence.StateFilter{RevertTargetID: stateID})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list dependent states: %w", err)
	}

	cleared = make([]string, 0, len(dependents))

	for _, dependent := range dependents {
		dependent.RevertTargetID = nil

		if err := states.UpdateState(ctx, dependent); err != nil {
			return nil, nil, fmt.Errorf("failed to clear revert target of state %s: %w", dependent.ID, err)
		}

		cleared = append(cleared, dependent.ID)
	}

	transitions := w.persistence.TransitionRepository()

	touching, err := transitions.ListTransitions(ctx, persistence.TransitionFilter{StateID: stateID})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list transitions: %w", err)
	}

	removed = make([]string, 0, len(touching))

	for _, transition := range touching {
		if err := transitions.DeleteTransition(ctx, transition.ID); err != nil {
			return nil, nil, fmt.Errorf("failed to delete transition %s: %w", transition.ID, err)
		}

		removed = append(removed, transition.ID)
	}

	return removed, cleared, nil
}

// GetTransition retrieves a transition by ID.
func (w *Workflow) GetTransition(ctx context.Context, id string) (*models.WorkflowTransition, error) {
	return w.persistence.TransitionRepository().GetTransition(ctx, id)
}

// ListTransitions returns transitions in creation order.
func (w *Workflow) ListTransitions(ctx context.Context, filter persistence.TransitionFilter) ([]*models.WorkflowTransition, error) {
	return w.persistence.TransitionRepository().ListTransitions(ctx, filter)
}

// CreateTransition connects two active states. An empty from creates a wildcard
// transition into to. States may be given by ID or name.
func (w *Workflow) CreateTransition(ctx context.Context, from, to string) (*models.WorkflowTransition, error) {
	ctx, span := otelhelper.StartSpan(ctx, w.opts.tracer, "services.CreateTransition",
		attribute.String(otelhelper.StateFromKey, from),
		attribute.String(otelhelper.StateToKey, to),
	)
	defer span.End()

	transition, err := w.createTransition(ctx, from, to)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.TransitionIDKey, transition.ID))

	return transition, nil
}

func (w *Workflow) createTransition(ctx context.Context, from, to string) (*models.WorkflowTransition, error) {
	const op = "CreateTransition"

	if to == "" {
		return nil, NewValidationError(op, "INVALID_REQUEST", "target state is required", ErrInvalidRequest)
	}

	if from == to {
		return nil, NewValidationError(op, "SELF_TRANSITION", fmt.Sprintf("state '%s' cannot transition to itself", to), ErrSelfTransition)
	}

	target, err := w.activeState(ctx, op, to)
	if err != nil {
		return nil, err
	}

	transition := &models.WorkflowTransition{ToStateID: target.ID}

	var origin *models.WorkflowState

	if from != "" {
		origin, err = w.activeState(ctx, op, from)
		if err != nil {
			return nil, err
		}

		if origin.ID == target.ID {
			return nil, NewValidationError(op, "SELF_TRANSITION", fmt.Sprintf("state '%s' cannot transition to itself", to), ErrSelfTransition)
		}

		transition.FromStateID = &origin.ID
	}

	existing, err := w.persistence.TransitionRepository().ListTransitions(ctx, persistence.TransitionFilter{
		FromStateID:  transition.From(),
		ToStateID:    target.ID,
		WildcardOnly: transition.IsWildcard(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list transitions: %w", err)
	}

	if len(existing) > 0 {
		return nil, duplicateTransition(op, from, to)
	}

	if w.opts.transitionPolicy != nil {
		if err := w.opts.transitionPolicy(ctx, origin, target); err != nil {
			return nil, NewValidationError(op, "TRANSITION_REJECTED", err.Error(), fmt.Errorf("%w: %w", ErrTransitionRejected, err))
		}
	}

	if err := w.persistence.TransitionRepository().CreateTransition(ctx, transition); err != nil {
		if persistence.IsAlreadyExists(err) {
			return nil, duplicateTransition(op, from, to)
		}

		return nil, fmt.Errorf("failed to create transition: %w", err)
	}

	w.opts.logger.InfoContext(ctx, "Workflow transition created",
		"transition_id", transition.ID,
		"from_state_id", transition.From(),
		"to_state_id", transition.ToStateID,
	)
	w.opts.publish(ctx, transition.ID, events.NewTransitionCreated(transition))

	return transition, nil
}

// DeleteTransition removes a transition.
func (w *Workflow) DeleteTransition(ctx context.Context, id string) error {
	transitions := w.persistence.TransitionRepository()

	transition, err := transitions.GetTransition(ctx, id)
	if err != nil {
		return err
	}

	if err := transitions.DeleteTransition(ctx, transition.ID); err != nil {
		return fmt.Errorf("failed to delete transition: %w", err)
	}

	w.opts.logger.InfoContext(ctx, "Workflow transition deleted", "transition_id", transition.ID)
	w.opts.publish(ctx, transition.ID, events.NewTransitionDeleted(transition))

	return nil
}

// TransitionPathExists reports whether to is reachable from from through transitions.
func (w *Workflow) TransitionPathExists(ctx context.Context, from, to string) (bool, error) {
	return w.graph.TransitionPathExists(ctx, from, to)
}

// RevertPathExists reports whether to is reachable from from through active revert targets.
func (w *Workflow) RevertPathExists(ctx context.Context, from, to string) (bool, error) {
	return w.graph.RevertPathExists(ctx, from, to)
}

// OrderStates returns the active states in topological order of the transition graph.
func (w *Workflow) OrderStates(ctx context.Context) ([]*models.WorkflowState, error) {
	return w.graph.OrderStates(ctx)
}

func (w *Workflow) activeState(ctx context.Context, op, idOrName string) (*models.WorkflowState, error) {
	state, err := w.persistence.StateRepository().GetState(ctx, idOrName)
	if err != nil {
		if persistence.IsStateNotFound(err) {
			return nil, newNotFoundError(op, fmt.Sprintf("state '%s' does not exist", idOrName), err)
		}

		return nil, fmt.Errorf("failed to get state %s: %w", idOrName, err)
	}

	if !state.IsActive() {
		return nil, newNotFoundError(op, fmt.Sprintf("state '%s' is not active", idOrName), persistence.ErrStateNotFound)
	}

	return state, nil
}

func (w *Workflow) checkNameAvailable(ctx context.Context, op string, state *models.WorkflowState) error {
	existing, err := w.persistence.StateRepository().GetState(ctx, state.Name)
	if err != nil {
		if persistence.IsStateNotFound(err) {
			return nil
		}

		return fmt.Errorf("failed to look up state %s: %w", state.Name, err)
	}

	if existing.ID == state.ID {
		return nil
	}

	return duplicateStateName(op, state.Name)
}

// checkRevertTarget resolves ref and checks it may become the revert target of state.
// A state without an ID is being created and has no incoming edges yet.
func (w *Workflow) checkRevertTarget(ctx context.Context, op string, state *models.WorkflowState, ref string) (*models.WorkflowState, error) {
	target, err := w.persistence.StateRepository().GetState(ctx, ref)
	if err != nil {
		if persistence.IsStateNotFound(err) {
			return nil, newNotFoundError(op, fmt.Sprintf("revert target '%s' does not exist", ref), err)
		}

		return nil, fmt.Errorf("failed to get revert target %s: %w", ref, err)
	}

	if !target.IsActive() {
		return nil, newNotFoundError(op, fmt.Sprintf("revert target '%s' is not active", ref), persistence.ErrStateNotFound)
	}

	if state.ID != "" && target.ID == state.ID {
		return nil, NewValidationError(op, "REVERT_TO_SELF", fmt.Sprintf("state '%s' cannot revert to itself", state.Name), ErrRevertToSelf)
	}

	if state.ID != "" {
		cycle, err := w.graph.RevertPathExists(ctx, target.ID, state.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check revert path: %w", err)
		}

		if cycle {
			return nil, NewValidationError(op, "REVERT_CYCLE",
				fmt.Sprintf("state '%s' already reverts to '%s'", target.Name, state.Name), ErrRevertCycle)
		}
	}

	if w.opts.revertRequiresUpstream {
		upstream := false

		if state.ID != "" {
			upstream, err = w.graph.TransitionPathExists(ctx, target.ID, state.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to check transition path: %w", err)
			}
		}

		if !upstream {
			return nil, NewValidationError(op, "REVERT_NOT_UPSTREAM",
				fmt.Sprintf("state '%s' does not lead to '%s'", target.Name, state.Name), ErrRevertNotUpstream)
		}
	}

	return target, nil
}

func duplicateStateName(op, name string) *ServiceError {
	return newConflictError(op, "DUPLICATE_STATE_NAME", fmt.Sprintf("state name '%s' is already in use", name), ErrDuplicateStateName)
}

func duplicateTransition(op, from, to string) *ServiceError {
	if from == "" {
		from = "*"
	}

	return newConflictError(op, "DUPLICATE_TRANSITION", fmt.Sprintf("transition %s -> %s already exists", from, to), ErrDuplicateTransition)
}
