package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/persistence"
	"github.com/go-playground/validator/v10"
)

// Vocabulary manages controlled vocabularies.
type Vocabulary struct {
	repository persistence.VocabularyRepository
	validate   *validator.Validate
	opts       options
}

// NewVocabulary creates a vocabulary service over repository, which may be the
// record store or the Redis provider.
func NewVocabulary(repository persistence.VocabularyRepository, opts ...Option) *Vocabulary {
	return &Vocabulary{
		repository: repository,
		validate:   models.NewValidator(),
		opts:       newOptions("vocabulary", opts),
	}
}

// GetVocabulary returns the named vocabulary.
func (v *Vocabulary) GetVocabulary(ctx context.Context, name string) (*models.Vocabulary, error) {
	return v.repository.GetVocabulary(ctx, name)
}

// SaveVocabulary replaces the tags of the named vocabulary. Tags are trimmed, blank
// tags dropped and duplicates removed keeping the first occurrence.
func (v *Vocabulary) SaveVocabulary(ctx context.Context, name string, tags []string) (*models.Vocabulary, error) {
	const op = "SaveVocabulary"

	vocabulary := &models.Vocabulary{
		Name: strings.TrimSpace(name),
		Tags: uniqueTags(tags),
	}

	if err := v.validate.Struct(vocabulary); err != nil {
		return nil, structError(op, err)
	}

	if strings.ContainsAny(vocabulary.Name, `/\`) {
		return nil, NewValidationError(op, "INVALID_VOCABULARY_NAME",
			fmt.Sprintf("vocabulary name '%s' must not contain path separators", vocabulary.Name), ErrInvalidRequest)
	}

	if err := v.repository.SaveVocabulary(ctx, vocabulary); err != nil {
		return nil, fmt.Errorf("failed to save vocabulary: %w", err)
	}

	v.opts.logger.InfoContext(ctx, "Vocabulary saved", "vocabulary", vocabulary.Name, "tags", len(vocabulary.Tags))

	return vocabulary, nil
}

func uniqueTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	unique := make([]string, 0, len(tags))

	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}

		seen[tag] = true
		unique = append(unique, tag)
	}

	return unique
}
