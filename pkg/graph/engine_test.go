package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/persistence"
	"github.com/dukex/curator/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	states      map[string]*models.WorkflowState
	order       []string
	transitions []*models.WorkflowTransition
	reads       int
	failWith    error
}

func newFakeStore(names ...string) *fakeStore {
	store := &fakeStore{states: map[string]*models.WorkflowState{}}
	for _, name := range names {
		store.addState(name)
	}

	return store
}

func (f *fakeStore) addState(name string) *models.WorkflowState {
	state := testutil.CreateTestState(name, testutil.WithStateID(name))
	f.states[name] = state
	f.order = append(f.order, name)

	return state
}

func (f *fakeStore) edge(from, to string) {
	transition := testutil.CreateTestTransition(from, to, testutil.WithTransitionID(from+"->"+to))
	f.transitions = append(f.transitions, transition)
}

func (f *fakeStore) revert(from, to string) {
	f.states[from].RevertTargetID = &to
}

func (f *fakeStore) deactivate(name string) {
	f.states[name].Status = models.StateStatusDeleted
}

func (f *fakeStore) GetState(_ context.Context, idOrName string) (*models.WorkflowState, error) {
	f.reads++

	if f.failWith != nil {
		return nil, f.failWith
	}

	state, ok := f.states[idOrName]
	if !ok {
		return nil, persistence.NewStateError("get", idOrName, persistence.ErrStateNotFound)
	}

	return state, nil
}

func (f *fakeStore) ListStates(_ context.Context, filter persistence.StateFilter) ([]*models.WorkflowState, error) {
	result := []*models.WorkflowState{}

	for _, id := range f.order {
		state := f.states[id]
		if filter.Status != "" && state.Status != filter.Status {
			continue
		}

		result = append(result, state)
	}

	return result, nil
}

func (f *fakeStore) ListTransitions(_ context.Context, filter persistence.TransitionFilter) ([]*models.WorkflowTransition, error) {
	f.reads++

	if f.failWith != nil {
		return nil, f.failWith
	}

	result := []*models.WorkflowTransition{}

	for _, transition := range f.transitions {
		if filter.WildcardOnly && !transition.IsWildcard() {
			continue
		}

		if filter.FromStateID != "" && transition.From() != filter.FromStateID {
			continue
		}

		result = append(result, transition)
	}

	return result, nil
}

func newEngine(store *fakeStore, opts ...Option) *Engine {
	return NewEngine(store, store, opts...)
}

func TestTransitionPathExists(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		states   []string
		edges    [][2]string
		from, to string
		expected bool
	}{
		{"direct edge", []string{"a", "b"}, [][2]string{{"a", "b"}}, "a", "b", true},
		{"two hops", []string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}}, "a", "c", true},
		{"wrong direction", []string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}}, "c", "a", false},
		{"cycle forward", []string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}}, "a", "c", true},
		{"cycle backward", []string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}}, "c", "a", true},
		{"self through cycle", []string{"a", "b"}, [][2]string{{"a", "b"}, {"b", "a"}}, "a", "a", true},
		{"self without cycle", []string{"a", "b"}, [][2]string{{"a", "b"}}, "a", "a", false},
		{"disconnected", []string{"a", "b", "c", "d"}, [][2]string{{"a", "b"}, {"c", "d"}}, "a", "d", false},
		{"cycle not reaching target", []string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "a"}}, "a", "c", false},
		{"wildcard entry", []string{"a", "b", "c"}, [][2]string{{"", "c"}}, "a", "c", true},
		{"through wildcard", []string{"a", "b", "c"}, [][2]string{{"", "b"}, {"b", "c"}}, "a", "c", true},
		{"unknown source", []string{"a"}, nil, "missing", "a", false},
		{"unknown target", []string{"a"}, nil, "a", "missing", false},
		{"empty source", []string{"a"}, nil, "", "a", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(tt.states...)
			for _, e := range tt.edges {
				store.edge(e[0], e[1])
			}

			exists, err := newEngine(store).TransitionPathExists(ctx, tt.from, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, exists)
		})
	}
}

func TestTransitionPathExists_DepthBound(t *testing.T) {
	store := newFakeStore("s0", "s1", "s2", "s3", "s4")
	for i := range 4 {
		store.edge(store.order[i], store.order[i+1])
	}

	engine := newEngine(store, WithMaxDepth(2))

	_, err := engine.TransitionPathExists(context.Background(), "s0", "s4")
	require.ErrorIs(t, err, ErrTraversalTooDeep)

	exists, err := newEngine(store).TransitionPathExists(context.Background(), "s0", "s4")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestTransitionPathExists_StoreFailure(t *testing.T) {
	store := newFakeStore("a", "b")
	store.failWith = errors.New("connection refused")

	_, err := newEngine(store).TransitionPathExists(context.Background(), "a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestTransitionPathExists_ReadsLazily(t *testing.T) {
	store := newFakeStore("a", "b", "c", "d", "e")
	store.edge("a", "b")
	store.edge("c", "d")
	store.edge("d", "e")

	_, err := newEngine(store).TransitionPathExists(context.Background(), "a", "e")
	require.NoError(t, err)

	// two state lookups, the wildcard listing, then adjacency for a and b only
	assert.Equal(t, 5, store.reads)
}

func TestRevertPathExists(t *testing.T) {
	ctx := context.Background()

	t.Run("direct target", func(t *testing.T) {
		store := newFakeStore("a", "b")
		store.revert("a", "b")

		exists, err := newEngine(store).RevertPathExists(ctx, "a", "b")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("chain", func(t *testing.T) {
		store := newFakeStore("a", "b", "c")
		store.revert("a", "b")
		store.revert("b", "c")

		exists, err := newEngine(store).RevertPathExists(ctx, "a", "c")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = newEngine(store).RevertPathExists(ctx, "c", "a")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("inactive hop breaks chain", func(t *testing.T) {
		store := newFakeStore("a", "b", "c")
		store.revert("a", "b")
		store.revert("b", "c")
		store.deactivate("b")

		exists, err := newEngine(store).RevertPathExists(ctx, "a", "b")
		require.NoError(t, err)
		assert.False(t, exists)

		exists, err = newEngine(store).RevertPathExists(ctx, "a", "c")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("inactive source", func(t *testing.T) {
		store := newFakeStore("a", "b")
		store.revert("a", "b")
		store.deactivate("a")

		exists, err := newEngine(store).RevertPathExists(ctx, "a", "b")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("same state", func(t *testing.T) {
		store := newFakeStore("a", "b")
		store.revert("a", "b")
		store.revert("b", "a")

		exists, err := newEngine(store).RevertPathExists(ctx, "a", "a")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("misconfigured loop terminates", func(t *testing.T) {
		store := newFakeStore("a", "b", "c")
		store.revert("a", "b")
		store.revert("b", "a")

		exists, err := newEngine(store).RevertPathExists(ctx, "a", "c")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("empty or absent endpoints", func(t *testing.T) {
		store := newFakeStore("a")

		for _, pair := range [][2]string{{"", "a"}, {"a", ""}, {"missing", "a"}, {"a", "missing"}} {
			exists, err := newEngine(store).RevertPathExists(ctx, pair[0], pair[1])
			require.NoError(t, err)
			assert.False(t, exists, "%v", pair)
		}
	})

	t.Run("dangling target", func(t *testing.T) {
		store := newFakeStore("a", "b")
		store.revert("a", "gone")

		exists, err := newEngine(store).RevertPathExists(ctx, "a", "b")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("depth bound", func(t *testing.T) {
		store := newFakeStore("a", "b", "c", "d")
		store.revert("a", "b")
		store.revert("b", "c")
		store.revert("c", "d")

		_, err := newEngine(store, WithMaxDepth(2)).RevertPathExists(ctx, "a", "d")
		require.ErrorIs(t, err, ErrTraversalTooDeep)
	})
}

func TestOrderStates(t *testing.T) {
	store := newFakeStore("review", "draft", "published", "archived", "orphan")
	store.edge("draft", "review")
	store.edge("review", "published")
	store.edge("published", "archived")
	store.edge("", "draft")
	store.deactivate("orphan")

	states, err := newEngine(store).OrderStates(context.Background())
	require.NoError(t, err)

	names := make([]string, 0, len(states))
	for _, state := range states {
		names = append(names, state.Name)
	}

	assert.Equal(t, []string{"draft", "review", "published", "archived"}, names)
}

func TestOrderStates_Cycle(t *testing.T) {
	store := newFakeStore("a", "b")
	store.edge("a", "b")
	store.edge("b", "a")

	_, err := newEngine(store).OrderStates(context.Background())
	require.Error(t, err)
	assert.True(t, IsCycle(err))
}
