package file

import (
	"testing"
	"time"

	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/persistence"
	"github.com/dukex/curator/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

func createStates(t *testing.T, repo persistence.StateRepository, names ...string) []*models.WorkflowState {
	t.Helper()

	states := make([]*models.WorkflowState, 0, len(names))

	for _, name := range names {
		state := testutil.CreateTestState(name)
		require.NoError(t, repo.CreateState(t.Context(), state))

		states = append(states, state)
	}

	return states
}

func TestStateRepository_DualAddressing(t *testing.T) {
	repo := NewPersistence(t.TempDir()).StateRepository()
	states := createStates(t, repo, "submitted")

	byID, err := repo.GetState(t.Context(), states[0].ID)
	require.NoError(t, err)

	byName, err := repo.GetState(t.Context(), "submitted")
	require.NoError(t, err)

	assert.Equal(t, byID, byName)
	assert.NotEmpty(t, byID.ID)
	assert.False(t, byID.CreatedAt.IsZero())

	_, err = repo.GetState(t.Context(), "unknown")
	require.Error(t, err)
	assert.True(t, persistence.IsStateNotFound(err))
}

func TestStateRepository_UniqueName(t *testing.T) {
	repo := NewPersistence(t.TempDir()).StateRepository()
	createStates(t, repo, "draft")

	err := repo.CreateState(t.Context(), &models.WorkflowState{Name: "draft", Title: "Again"})
	require.Error(t, err)
	assert.ErrorIs(t, err, persistence.ErrStateAlreadyExists)
}

func TestStateRepository_Update(t *testing.T) {
	repo := NewPersistence(t.TempDir()).StateRepository()
	states := createStates(t, repo, "draft", "review")

	created := states[0].CreatedAt
	update := *states[0]
	update.Title = "Drafting"
	update.CreatedAt = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.UpdateState(t.Context(), &update))

	stored, err := repo.GetState(t.Context(), "draft")
	require.NoError(t, err)
	assert.Equal(t, "Drafting", stored.Title)
	assert.True(t, created.Equal(stored.CreatedAt))

	rename := *states[0]
	rename.Name = "review"

	err = repo.UpdateState(t.Context(), &rename)
	assert.ErrorIs(t, err, persistence.ErrStateAlreadyExists)

	err = repo.UpdateState(t.Context(), &models.WorkflowState{ID: "missing", Name: "missing"})
	assert.ErrorIs(t, err, persistence.ErrStateNotFound)
}

func TestStateRepository_SoftDelete(t *testing.T) {
	repo := NewPersistence(t.TempDir()).StateRepository()
	states := createStates(t, repo, "draft", "review")

	require.NoError(t, repo.DeleteState(t.Context(), states[0].ID))

	stored, err := repo.GetState(t.Context(), states[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateStatusDeleted, stored.Status)
	assert.NotNil(t, stored.DeletedAt)
	assert.False(t, stored.IsActive())

	active, err := repo.ListStates(t.Context(), persistence.StateFilter{Status: models.StateStatusActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "review", active[0].Name)

	all, err := repo.ListStates(t.Context(), persistence.StateFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.ErrorIs(t, repo.DeleteState(t.Context(), "missing"), persistence.ErrStateNotFound)
}

func TestStateRepository_FilterByRevertTarget(t *testing.T) {
	repo := NewPersistence(t.TempDir()).StateRepository()
	states := createStates(t, repo, "draft", "review", "published")

	states[1].RevertTargetID = strPtr(states[0].ID)
	require.NoError(t, repo.UpdateState(t.Context(), states[1]))

	found, err := repo.ListStates(t.Context(), persistence.StateFilter{RevertTargetID: states[0].ID})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "review", found[0].Name)
}

func TestTransitionRepository(t *testing.T) {
	fp := NewPersistence(t.TempDir())
	states := createStates(t, fp.StateRepository(), "draft", "review", "published")
	repo := fp.TransitionRepository()

	draft, review, published := states[0].ID, states[1].ID, states[2].ID

	first := testutil.CreateTestTransition(draft, review)
	second := testutil.CreateTestTransition(review, published)
	wildcard := testutil.CreateTestTransition("", draft)

	for _, transition := range []*models.WorkflowTransition{first, second, wildcard} {
		require.NoError(t, repo.CreateTransition(t.Context(), transition))
		assert.NotEmpty(t, transition.ID)
	}

	t.Run("duplicate pair", func(t *testing.T) {
		err := repo.CreateTransition(t.Context(), testutil.CreateTestTransition(draft, review))
		assert.ErrorIs(t, err, persistence.ErrTransitionAlreadyExists)

		err = repo.CreateTransition(t.Context(), testutil.CreateTestTransition("", draft))
		assert.ErrorIs(t, err, persistence.ErrTransitionAlreadyExists)
	})

	t.Run("creation order", func(t *testing.T) {
		all, err := repo.ListTransitions(t.Context(), persistence.TransitionFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{first.ID, second.ID, wildcard.ID}, []string{all[0].ID, all[1].ID, all[2].ID})
	})

	t.Run("filters", func(t *testing.T) {
		tests := []struct {
			name     string
			filter   persistence.TransitionFilter
			expected []string
		}{
			{"from", persistence.TransitionFilter{FromStateID: draft}, []string{first.ID}},
			{"to", persistence.TransitionFilter{ToStateID: draft}, []string{wildcard.ID}},
			{"either end", persistence.TransitionFilter{StateID: review}, []string{first.ID, second.ID}},
			{"wildcards", persistence.TransitionFilter{WildcardOnly: true}, []string{wildcard.ID}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				found, err := repo.ListTransitions(t.Context(), tt.filter)
				require.NoError(t, err)

				ids := make([]string, 0, len(found))
				for _, transition := range found {
					ids = append(ids, transition.ID)
				}

				assert.Equal(t, tt.expected, ids)
			})
		}
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteTransition(t.Context(), second.ID))

		_, err := repo.GetTransition(t.Context(), second.ID)
		assert.True(t, persistence.IsTransitionNotFound(err))

		assert.ErrorIs(t, repo.DeleteTransition(t.Context(), second.ID), persistence.ErrTransitionNotFound)
	})
}
