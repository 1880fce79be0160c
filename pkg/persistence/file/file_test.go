package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPersistence(t *testing.T) {
	fp := NewPersistence("/tmp/test")
	assert.Equal(t, "/tmp/test", fp.root)

	fp = NewPersistence("file:///tmp/test")
	assert.Equal(t, "/tmp/test", fp.root)
}

func TestPersistence_Close(t *testing.T) {
	fp := NewPersistence("./test-data")
	assert.NoError(t, fp.Close(t.Context()))
}

func TestPersistence_HealthCheck(t *testing.T) {
	assert.NoError(t, NewPersistence(t.TempDir()).HealthCheck(t.Context()))

	err := NewPersistence(filepath.Join(t.TempDir(), "missing")).HealthCheck(t.Context())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPersistence_EmptyRoot(t *testing.T) {
	fp := NewPersistence(t.TempDir())

	states, err := fp.StateRepository().ListStates(t.Context(), persistence.StateFilter{})
	require.NoError(t, err)
	assert.Empty(t, states)

	transitions, err := fp.TransitionRepository().ListTransitions(t.Context(), persistence.TransitionFilter{})
	require.NoError(t, err)
	assert.Empty(t, transitions)
}

func TestPersistence_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	state := &models.WorkflowState{Name: "draft", Title: "Draft"}
	require.NoError(t, NewPersistence(dir).StateRepository().CreateState(t.Context(), state))

	assert.FileExists(t, filepath.Join(dir, statesDocument))

	reopened, err := NewPersistence(dir).StateRepository().GetState(t.Context(), "draft")
	require.NoError(t, err)
	assert.Equal(t, state.ID, reopened.ID)
	assert.Equal(t, models.StateStatusActive, reopened.Status)
}

func TestPersistence_CorruptDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, statesDocument), []byte("{not json"), 0600))

	_, err := NewPersistence(dir).StateRepository().GetState(t.Context(), "draft")
	require.Error(t, err)
	assert.False(t, persistence.IsStateNotFound(err))
}
