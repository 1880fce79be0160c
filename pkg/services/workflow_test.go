package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/curator/pkg/events"
	"github.com/dukex/curator/pkg/mocks"
	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/persistence"
	"github.com/dukex/curator/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

func newWorkflowService(t *testing.T, opts ...Option) *Workflow {
	t.Helper()

	return NewWorkflow(file.NewPersistence(t.TempDir()), opts...)
}

func createStates(t *testing.T, service *Workflow, names ...string) map[string]*models.WorkflowState {
	t.Helper()

	states := make(map[string]*models.WorkflowState, len(names))

	for _, name := range names {
		state, err := service.CreateState(t.Context(), CreateStateRequest{Name: name, Title: name})
		require.NoError(t, err)

		states[name] = state
	}

	return states
}

func connect(t *testing.T, service *Workflow, pairs ...[2]string) {
	t.Helper()

	for _, pair := range pairs {
		_, err := service.CreateTransition(t.Context(), pair[0], pair[1])
		require.NoError(t, err)
	}
}

func TestNewWorkflow(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	service := NewWorkflow(p)

	assert.NotNil(t, service)
	assert.Equal(t, p, service.persistence)
	assert.NotNil(t, service.graph)
}

func TestWorkflow_HealthCheck(t *testing.T) {
	message, ok := newWorkflowService(t).HealthCheck(t.Context())
	assert.True(t, ok)
	assert.Equal(t, "Persistence layer is healthy", message)

	p := &mocks.MockPersistence{}
	p.On("StateRepository").Return(&mocks.MockStateRepository{})
	p.On("TransitionRepository").Return(&mocks.MockTransitionRepository{})
	p.On("HealthCheck", mock.Anything).Return(errors.New("connection refused"))

	message, ok = NewWorkflow(p).HealthCheck(t.Context())
	assert.False(t, ok)
	assert.Contains(t, message, "connection refused")
}

func TestWorkflow_CreateState(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.AnythingOfType("*events.StateCreated")).Return(nil)

	service := newWorkflowService(t, WithEventPublisher(bus))

	state, err := service.CreateState(t.Context(), CreateStateRequest{
		Name:              "in_review",
		Title:             " In review ",
		RecordsArePrivate: true,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, state.ID)
	assert.Equal(t, "In review", state.Title)
	assert.Equal(t, models.StateStatusActive, state.Status)
	assert.True(t, state.RecordsArePrivate)
	assert.False(t, state.CreatedAt.IsZero())

	stored, err := service.GetState(t.Context(), "in_review")
	require.NoError(t, err)
	assert.Equal(t, state.ID, stored.ID)

	bus.AssertCalled(t, "Publish", mock.Anything, state.ID, mock.AnythingOfType("*events.StateCreated"))
}

func TestWorkflow_CreateState_Rejections(t *testing.T) {
	service := newWorkflowService(t)
	states := createStates(t, service, "draft", "archived")
	require.NoError(t, service.DeleteState(t.Context(), "archived"))

	tests := []struct {
		name  string
		req   CreateStateRequest
		check func(error) bool
	}{
		{"duplicate name", CreateStateRequest{Name: "draft", Title: "Draft"}, IsConflictError},
		{"deleted name is still taken", CreateStateRequest{Name: "archived", Title: "Archived"}, IsConflictError},
		{"invalid name", CreateStateRequest{Name: "In Review", Title: "In review"}, IsValidationError},
		{"missing title", CreateStateRequest{Name: "review"}, IsValidationError},
		{"unknown revert target", CreateStateRequest{Name: "review", Title: "Review", RevertTarget: "nowhere"}, IsNotFound},
		{"inactive revert target", CreateStateRequest{Name: "review", Title: "Review", RevertTarget: "archived"}, IsNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := service.CreateState(t.Context(), tt.req)
			require.Error(t, err)
			assert.Nil(t, state)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}

	all, err := service.ListStates(t.Context(), true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, states["draft"].ID, all[0].ID)
}

func TestWorkflow_CreateState_WithRevertTarget(t *testing.T) {
	service := newWorkflowService(t)
	states := createStates(t, service, "draft")

	review, err := service.CreateState(t.Context(), CreateStateRequest{Name: "review", Title: "Review", RevertTarget: "draft"})
	require.NoError(t, err)
	require.NotNil(t, review.RevertTargetID)
	assert.Equal(t, states["draft"].ID, *review.RevertTargetID)
}

func TestWorkflow_CreateTransition(t *testing.T) {
	service := newWorkflowService(t)
	states := createStates(t, service, "draft", "review", "archived")
	require.NoError(t, service.DeleteState(t.Context(), "archived"))

	transition, err := service.CreateTransition(t.Context(), "draft", states["review"].ID)
	require.NoError(t, err)
	assert.Equal(t, states["draft"].ID, transition.From())
	assert.Equal(t, states["review"].ID, transition.ToStateID)

	wildcard, err := service.CreateTransition(t.Context(), "", "draft")
	require.NoError(t, err)
	assert.True(t, wildcard.IsWildcard())

	tests := []struct {
		name     string
		from, to string
		target   error
	}{
		{"self loop by name", "draft", "draft", ErrSelfTransition},
		{"self loop by id and name", states["draft"].ID, "draft", ErrSelfTransition},
		{"duplicate", "draft", "review", ErrDuplicateTransition},
		{"duplicate by id", states["draft"].ID, states["review"].ID, ErrDuplicateTransition},
		{"duplicate wildcard", "", "draft", ErrDuplicateTransition},
		{"unknown target", "draft", "published", persistence.ErrStateNotFound},
		{"unknown origin", "published", "draft", persistence.ErrStateNotFound},
		{"deleted target", "draft", "archived", persistence.ErrStateNotFound},
		{"missing target", "draft", "", ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transition, err := service.CreateTransition(t.Context(), tt.from, tt.to)
			require.Error(t, err)
			assert.Nil(t, transition)
			assert.ErrorIs(t, err, tt.target)
		})
	}

	all, err := service.ListTransitions(t.Context(), persistence.TransitionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestWorkflow_CreateTransition_Policy(t *testing.T) {
	errFrozen := errors.New("published states are frozen")

	var origins []*models.WorkflowState

	service := newWorkflowService(t, WithTransitionPolicy(func(_ context.Context, from, to *models.WorkflowState) error {
		origins = append(origins, from)

		if to.Name == "published" {
			return errFrozen
		}

		return nil
	}))
	states := createStates(t, service, "draft", "published")

	_, err := service.CreateTransition(t.Context(), "", "draft")
	require.NoError(t, err)
	require.Len(t, origins, 1)
	assert.Nil(t, origins[0])

	_, err = service.CreateTransition(t.Context(), "draft", "published")
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.ErrorIs(t, err, ErrTransitionRejected)
	assert.ErrorIs(t, err, errFrozen)

	transitions, err := service.ListTransitions(t.Context(), persistence.TransitionFilter{ToStateID: states["published"].ID})
	require.NoError(t, err)
	assert.Empty(t, transitions)
}

func TestWorkflow_CreateTransition_PolicyNotConsultedForInvalidEdges(t *testing.T) {
	calls := 0
	service := newWorkflowService(t, WithTransitionPolicy(func(context.Context, *models.WorkflowState, *models.WorkflowState) error {
		calls++

		return nil
	}))
	createStates(t, service, "draft")

	_, err := service.CreateTransition(t.Context(), "draft", "draft")
	require.Error(t, err)

	_, err = service.CreateTransition(t.Context(), "draft", "missing")
	require.Error(t, err)

	assert.Zero(t, calls)
}

func TestWorkflow_UpdateState(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	service := newWorkflowService(t, WithEventPublisher(bus))
	states := createStates(t, service, "draft", "review")

	updated, err := service.UpdateState(t.Context(), "draft", UpdateStateRequest{
		Title:       strPtr("Drafting"),
		Description: strPtr("Work in progress"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Drafting", updated.Title)
	assert.Equal(t, "Work in progress", updated.Description)
	assert.Equal(t, "draft", updated.Name)

	_, err = service.UpdateState(t.Context(), "draft", UpdateStateRequest{Name: strPtr("review")})
	assert.ErrorIs(t, err, ErrDuplicateStateName)

	renamed, err := service.UpdateState(t.Context(), states["draft"].ID, UpdateStateRequest{Name: strPtr("drafting")})
	require.NoError(t, err)
	assert.Equal(t, "drafting", renamed.Name)

	_, err = service.UpdateState(t.Context(), "missing", UpdateStateRequest{Title: strPtr("Missing")})
	assert.True(t, IsNotFound(err))

	var updatedEvent *events.StateUpdated

	for _, call := range bus.Calls {
		if event, ok := call.Arguments.Get(2).(*events.StateUpdated); ok {
			updatedEvent = event

			break
		}
	}

	require.NotNil(t, updatedEvent)
	assert.Equal(t, "draft", updatedEvent.Previous.Title)
	assert.Equal(t, "Drafting", updatedEvent.State.Title)
}

func TestWorkflow_UpdateState_RevertTarget(t *testing.T) {
	service := newWorkflowService(t)
	states := createStates(t, service, "draft", "review", "published", "archived")
	require.NoError(t, service.DeleteState(t.Context(), "archived"))

	review, err := service.UpdateState(t.Context(), "review", UpdateStateRequest{RevertTarget: strPtr("draft")})
	require.NoError(t, err)
	assert.Equal(t, states["draft"].ID, *review.RevertTargetID)

	_, err = service.UpdateState(t.Context(), "published", UpdateStateRequest{RevertTarget: strPtr("review")})
	require.NoError(t, err)

	tests := []struct {
		name   string
		state  string
		target string
		check  func(error) bool
		sent   error
	}{
		{"self", "draft", "draft", IsValidationError, ErrRevertToSelf},
		{"direct cycle", "draft", "review", IsValidationError, ErrRevertCycle},
		{"transitive cycle", "draft", "published", IsValidationError, ErrRevertCycle},
		{"unknown target", "draft", "missing", IsNotFound, persistence.ErrStateNotFound},
		{"inactive target", "draft", "archived", IsNotFound, persistence.ErrStateNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.UpdateState(t.Context(), tt.state, UpdateStateRequest{RevertTarget: strPtr(tt.target)})
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
			assert.ErrorIs(t, err, tt.sent)
		})
	}

	cleared, err := service.UpdateState(t.Context(), "review", UpdateStateRequest{RevertTarget: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, cleared.RevertTargetID)

	// With review no longer reverting, draft may now revert to published.
	_, err = service.UpdateState(t.Context(), "draft", UpdateStateRequest{RevertTarget: strPtr("published")})
	require.NoError(t, err)
}

func TestWorkflow_RevertRequiresUpstream(t *testing.T) {
	service := newWorkflowService(t, WithRevertRequiresUpstream(true))
	createStates(t, service, "draft", "review", "published")
	connect(t, service, [2]string{"draft", "review"}, [2]string{"review", "published"})

	_, err := service.UpdateState(t.Context(), "published", UpdateStateRequest{RevertTarget: strPtr("draft")})
	require.NoError(t, err)

	_, err = service.UpdateState(t.Context(), "draft", UpdateStateRequest{RevertTarget: strPtr("review")})
	assert.ErrorIs(t, err, ErrRevertNotUpstream)

	_, err = service.CreateState(t.Context(), CreateStateRequest{Name: "rejected", Title: "Rejected", RevertTarget: "draft"})
	assert.ErrorIs(t, err, ErrRevertNotUpstream)
}

func TestWorkflow_DeleteState(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	service := newWorkflowService(t, WithEventPublisher(bus))
	states := createStates(t, service, "draft", "review", "published")
	connect(t, service,
		[2]string{"draft", "review"},
		[2]string{"review", "published"},
		[2]string{"", "review"},
	)

	_, err := service.UpdateState(t.Context(), "published", UpdateStateRequest{RevertTarget: strPtr("review")})
	require.NoError(t, err)

	require.NoError(t, service.DeleteState(t.Context(), "review"))

	deleted, err := service.GetState(t.Context(), states["review"].ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateStatusDeleted, deleted.Status)

	published, err := service.GetState(t.Context(), "published")
	require.NoError(t, err)
	assert.Nil(t, published.RevertTargetID)

	transitions, err := service.ListTransitions(t.Context(), persistence.TransitionFilter{})
	require.NoError(t, err)
	assert.Empty(t, transitions)

	active, err := service.ListStates(t.Context(), false)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	var deletedEvent *events.StateDeleted

	for _, call := range bus.Calls {
		if event, ok := call.Arguments.Get(2).(*events.StateDeleted); ok {
			deletedEvent = event
		}
	}

	require.NotNil(t, deletedEvent)
	assert.Equal(t, states["review"].ID, deletedEvent.StateID)
	assert.Len(t, deletedEvent.RemovedTransitions, 3)
	assert.Equal(t, []string{states["published"].ID}, deletedEvent.ClearedRevertTargets)

	assert.ErrorIs(t, service.DeleteState(t.Context(), "review"), ErrStateDeleted)
	assert.True(t, IsNotFound(service.DeleteState(t.Context(), "missing")))

	_, err = service.UpdateState(t.Context(), "review", UpdateStateRequest{Title: strPtr("Back")})
	assert.True(t, IsConflictError(err))
}

func TestWorkflow_DeleteState_DetachFailure(t *testing.T) {
	errDown := errors.New("database is down")
	review := &models.WorkflowState{ID: "review-id", Name: "review", Status: models.StateStatusActive}
	published := &models.WorkflowState{
		ID:             "published-id",
		Name:           "published",
		Status:         models.StateStatusActive,
		RevertTargetID: strPtr("review-id"),
	}
	dependents := persistence.StateFilter{RevertTargetID: "review-id"}
	touching := persistence.TransitionFilter{StateID: "review-id"}

	states := &mocks.MockStateRepository{}
	states.On("GetState", mock.Anything, "review").Return(review, nil).Once()
	states.On("DeleteState", mock.Anything, "review-id").Return(nil).Once()
	states.On("ListStates", mock.Anything, dependents).Return(nil, errDown).Once()

	transitions := &mocks.MockTransitionRepository{}

	p := &mocks.MockPersistence{}
	p.On("StateRepository").Return(states)
	p.On("TransitionRepository").Return(transitions)

	service := NewWorkflow(p)

	err := service.DeleteState(t.Context(), "review")
	require.ErrorIs(t, err, errDown)
	states.AssertCalled(t, "DeleteState", mock.Anything, "review-id")
	states.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything)

	deleted := *review
	deleted.Status = models.StateStatusDeleted

	states.On("GetState", mock.Anything, "review").Return(&deleted, nil).Once()
	states.On("ListStates", mock.Anything, dependents).Return([]*models.WorkflowState{published}, nil).Once()
	states.On("UpdateState", mock.Anything, published).Return(nil).Once()
	transitions.On("ListTransitions", mock.Anything, touching).
		Return([]*models.WorkflowTransition{{ID: "t1", ToStateID: "review-id"}}, nil).Once()
	transitions.On("DeleteTransition", mock.Anything, "t1").Return(nil).Once()

	assert.ErrorIs(t, service.DeleteState(t.Context(), "review"), ErrStateDeleted)
	assert.Nil(t, published.RevertTargetID)
	transitions.AssertCalled(t, "DeleteTransition", mock.Anything, "t1")
	states.AssertNumberOfCalls(t, "DeleteState", 1)
}

func TestWorkflow_DeleteTransition(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	service := newWorkflowService(t, WithEventPublisher(bus))
	createStates(t, service, "draft", "review")

	transition, err := service.CreateTransition(t.Context(), "draft", "review")
	require.NoError(t, err)

	require.NoError(t, service.DeleteTransition(t.Context(), transition.ID))
	bus.AssertCalled(t, "Publish", mock.Anything, transition.ID, mock.AnythingOfType("*events.TransitionDeleted"))

	assert.True(t, IsNotFound(service.DeleteTransition(t.Context(), transition.ID)))

	_, err = service.CreateTransition(t.Context(), "draft", "review")
	assert.NoError(t, err)
}

func TestWorkflow_GraphQueries(t *testing.T) {
	service := newWorkflowService(t, WithMaxTraversalDepth(16))
	createStates(t, service, "draft", "review", "published")
	connect(t, service, [2]string{"draft", "review"}, [2]string{"review", "published"})

	_, err := service.UpdateState(t.Context(), "review", UpdateStateRequest{RevertTarget: strPtr("draft")})
	require.NoError(t, err)

	reachable, err := service.TransitionPathExists(t.Context(), "draft", "published")
	require.NoError(t, err)
	assert.True(t, reachable)

	reachable, err = service.TransitionPathExists(t.Context(), "published", "draft")
	require.NoError(t, err)
	assert.False(t, reachable)

	reverts, err := service.RevertPathExists(t.Context(), "review", "draft")
	require.NoError(t, err)
	assert.True(t, reverts)

	ordered, err := service.OrderStates(t.Context())
	require.NoError(t, err)

	names := make([]string, 0, len(ordered))
	for _, state := range ordered {
		names = append(names, state.Name)
	}

	assert.Equal(t, []string{"draft", "review", "published"}, names)
	assert.Equal(t, 16, service.graph.MaxDepth())
}

func TestWorkflow_PublishFailureDoesNotFailMutation(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker unavailable"))

	service := newWorkflowService(t, WithEventPublisher(bus))

	state, err := service.CreateState(t.Context(), CreateStateRequest{Name: "draft", Title: "Draft"})
	require.NoError(t, err)
	assert.NotEmpty(t, state.ID)
	bus.AssertNumberOfCalls(t, "Publish", 1)
}

func TestWorkflow_StoreFailure(t *testing.T) {
	errDown := errors.New("database is down")

	states := &mocks.MockStateRepository{}
	states.On("GetState", mock.Anything, "draft").Return(nil, errDown)

	p := &mocks.MockPersistence{}
	p.On("StateRepository").Return(states)
	p.On("TransitionRepository").Return(&mocks.MockTransitionRepository{})

	service := NewWorkflow(p)

	_, err := service.CreateState(t.Context(), CreateStateRequest{Name: "draft", Title: "Draft"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errDown)
	assert.False(t, IsValidationError(err))
	assert.False(t, IsConflictError(err))

	states.AssertNotCalled(t, "CreateState", mock.Anything, mock.Anything)
}
