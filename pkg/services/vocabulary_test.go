package services

import (
	"errors"
	"testing"

	"github.com/dukex/curator/pkg/mocks"
	"github.com/dukex/curator/pkg/persistence"
	"github.com/dukex/curator/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestVocabulary_SaveAndGet(t *testing.T) {
	service := NewVocabulary(file.NewPersistence(t.TempDir()).VocabularyRepository())

	saved, err := service.SaveVocabulary(t.Context(), " licenses ", []string{"cc0", " cc-by ", "", "cc0"})
	require.NoError(t, err)
	assert.Equal(t, "licenses", saved.Name)
	assert.Equal(t, []string{"cc0", "cc-by"}, saved.Tags)

	stored, err := service.GetVocabulary(t.Context(), "licenses")
	require.NoError(t, err)
	assert.Equal(t, saved.Tags, stored.Tags)

	_, err = service.GetVocabulary(t.Context(), "subjects")
	assert.True(t, IsNotFound(err))
}

func TestVocabulary_EmptyVocabularyExists(t *testing.T) {
	service := NewVocabulary(file.NewPersistence(t.TempDir()).VocabularyRepository())

	_, err := service.SaveVocabulary(t.Context(), "pending", nil)
	require.NoError(t, err)

	stored, err := service.GetVocabulary(t.Context(), "pending")
	require.NoError(t, err)
	assert.Empty(t, stored.Tags)
}

func TestVocabulary_InvalidName(t *testing.T) {
	repository := &mocks.MockVocabularyRepository{}
	service := NewVocabulary(repository)

	for _, name := range []string{"", "  ", "../etc", `a\b`} {
		_, err := service.SaveVocabulary(t.Context(), name, []string{"x"})
		assert.True(t, IsValidationError(err), "name %q: %v", name, err)
	}

	repository.AssertNotCalled(t, "SaveVocabulary", mock.Anything, mock.Anything)
}

func TestVocabulary_StoreFailure(t *testing.T) {
	repository := &mocks.MockVocabularyRepository{}
	repository.On("SaveVocabulary", mock.Anything, mock.AnythingOfType("*models.Vocabulary")).Return(errors.New("read-only"))
	repository.On("GetVocabulary", mock.Anything, "licenses").
		Return(nil, persistence.NewEntityError("GetVocabulary", "vocabulary", "licenses", persistence.ErrVocabularyNotFound))

	service := NewVocabulary(repository)

	_, err := service.SaveVocabulary(t.Context(), "licenses", []string{"cc0"})
	require.Error(t, err)
	assert.False(t, IsValidationError(err))

	_, err = service.GetVocabulary(t.Context(), "licenses")
	assert.ErrorIs(t, err, persistence.ErrVocabularyNotFound)

	repository.AssertExpectations(t)
}

func TestUniqueTags(t *testing.T) {
	assert.Equal(t, []string{}, uniqueTags(nil))
	assert.Equal(t, []string{"b", "a"}, uniqueTags([]string{"b", "a", "b", " a"}))
}
