package file

import (
	"context"
	"time"

	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/persistence"
	"github.com/google/uuid"
)

// StateRepository handles workflow state file operations.
type StateRepository struct {
	fp *Persistence
}

func (r *StateRepository) load() ([]*models.WorkflowState, error) {
	states := []*models.WorkflowState{}

	return states, r.fp.readDocument(statesDocument, &states)
}

// GetState retrieves a state by ID or name.
func (r *StateRepository) GetState(_ context.Context, idOrName string) (*models.WorkflowState, error) {
	r.fp.mu.RLock()
	defer r.fp.mu.RUnlock()

	states, err := r.load()
	if err != nil {
		return nil, err
	}

	for _, state := range states {
		if state.ID == idOrName || state.Name == idOrName {
			return state, nil
		}
	}

	return nil, persistence.NewStateError("GetState", idOrName, persistence.ErrStateNotFound)
}

// ListStates returns states in creation order.
func (r *StateRepository) ListStates(_ context.Context, filter persistence.StateFilter) ([]*models.WorkflowState, error) {
	r.fp.mu.RLock()
	defer r.fp.mu.RUnlock()

	states, err := r.load()
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.WorkflowState, 0, len(states))

	for _, state := range states {
		if filter.Status != "" && state.Status != filter.Status {
			continue
		}

		if filter.RevertTargetID != "" && (!state.HasRevertTarget() || *state.RevertTargetID != filter.RevertTargetID) {
			continue
		}

		filtered = append(filtered, state)
	}

	return filtered, nil
}

// CreateState stores a new state, assigning an ID when none is set.
func (r *StateRepository) CreateState(_ context.Context, state *models.WorkflowState) error {
	r.fp.mu.Lock()
	defer r.fp.mu.Unlock()

	states, err := r.load()
	if err != nil {
		return err
	}

	for _, existing := range states {
		if existing.Name == state.Name || (state.ID != "" && existing.ID == state.ID) {
			return persistence.NewStateError("CreateState", state.Name, persistence.ErrStateAlreadyExists)
		}
	}

	if state.ID == "" {
		state.ID = uuid.NewString()
	}

	if state.Status == "" {
		state.Status = models.StateStatusActive
	}

	now := time.Now().UTC()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}

	state.UpdatedAt = now

	return r.fp.writeDocument(statesDocument, append(states, state))
}

// UpdateState replaces a stored state. CreatedAt is preserved.
func (r *StateRepository) UpdateState(_ context.Context, state *models.WorkflowState) error {
	r.fp.mu.Lock()
	defer r.fp.mu.Unlock()

	states, err := r.load()
	if err != nil {
		return err
	}

	index := -1

	for i, existing := range states {
		if existing.ID == state.ID {
			index = i

			continue
		}

		if existing.Name == state.Name {
			return persistence.NewStateError("UpdateState", state.Name, persistence.ErrStateAlreadyExists)
		}
	}

	if index < 0 {
		return persistence.NewStateError("UpdateState", state.ID, persistence.ErrStateNotFound)
	}

	state.CreatedAt = states[index].CreatedAt
	state.UpdatedAt = time.Now().UTC()
	states[index] = state

	return r.fp.writeDocument(statesDocument, states)
}

// DeleteState marks a state as deleted.
func (r *StateRepository) DeleteState(_ context.Context, id string) error {
	r.fp.mu.Lock()
	defer r.fp.mu.Unlock()

	states, err := r.load()
	if err != nil {
		return err
	}

	for _, state := range states {
		if state.ID != id {
			continue
		}

		now := time.Now().UTC()
		state.Status = models.StateStatusDeleted
		state.DeletedAt = &now
		state.UpdatedAt = now

		return r.fp.writeDocument(statesDocument, states)
	}

	return persistence.NewStateError("DeleteState", id, persistence.ErrStateNotFound)
}

// TransitionRepository handles workflow transition file operations.
type TransitionRepository struct {
	fp *Persistence
}

func (r *TransitionRepository) load() ([]*models.WorkflowTransition, error) {
	transitions := []*models.WorkflowTransition{}

	return transitions, r.fp.readDocument(transitionsDocument, &transitions)
}

// GetTransition retrieves a transition by ID.
func (r *TransitionRepository) GetTransition(_ context.Context, id string) (*models.WorkflowTransition, error) {
	r.fp.mu.RLock()
	defer r.fp.mu.RUnlock()

	transitions, err := r.load()
	if err != nil {
		return nil, err
	}

	for _, transition := range transitions {
		if transition.ID == id {
			return transition, nil
		}
	}

	return nil, persistence.NewTransitionError("GetTransition", id, persistence.ErrTransitionNotFound)
}

// ListTransitions returns transitions in creation order.
func (r *TransitionRepository) ListTransitions(_ context.Context, filter persistence.TransitionFilter) ([]*models.WorkflowTransition, error) {
	r.fp.mu.RLock()
	defer r.fp.mu.RUnlock()

	transitions, err := r.load()
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.WorkflowTransition, 0, len(transitions))

	for _, transition := range transitions {
		if matchesTransition(transition, filter) {
			filtered = append(filtered, transition)
		}
	}

	return filtered, nil
}

func matchesTransition(transition *models.WorkflowTransition, filter persistence.TransitionFilter) bool {
	switch {
	case filter.WildcardOnly && !transition.IsWildcard():
		return false
	case filter.FromStateID != "" && transition.From() != filter.FromStateID:
		return false
	case filter.ToStateID != "" && transition.ToStateID != filter.ToStateID:
		return false
	case filter.StateID != "" && transition.From() != filter.StateID && transition.ToStateID != filter.StateID:
		return false
	}

	return true
}

// CreateTransition stores a new transition. A (from, to) pair is stored at most once.
func (r *TransitionRepository) CreateTransition(_ context.Context, transition *models.WorkflowTransition) error {
	r.fp.mu.Lock()
	defer r.fp.mu.Unlock()

	transitions, err := r.load()
	if err != nil {
		return err
	}

	for _, existing := range transitions {
		if existing.From() == transition.From() && existing.ToStateID == transition.ToStateID {
			return persistence.NewTransitionError("CreateTransition", transition.From()+"->"+transition.ToStateID,
				persistence.ErrTransitionAlreadyExists)
		}
	}

	if transition.ID == "" {
		transition.ID = uuid.NewString()
	}

	if transition.CreatedAt.IsZero() {
		transition.CreatedAt = time.Now().UTC()
	}

	return r.fp.writeDocument(transitionsDocument, append(transitions, transition))
}

// DeleteTransition removes a transition.
func (r *TransitionRepository) DeleteTransition(_ context.Context, id string) error {
	r.fp.mu.Lock()
	defer r.fp.mu.Unlock()

	transitions, err := r.load()
	if err != nil {
		return err
	}

	for i, transition := range transitions {
		if transition.ID == id {
			return r.fp.writeDocument(transitionsDocument, append(transitions[:i], transitions[i+1:]...))
		}
	}

	return persistence.NewTransitionError("DeleteTransition", id, persistence.ErrTransitionNotFound)
}
