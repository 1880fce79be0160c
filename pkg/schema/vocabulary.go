package schema

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/persistence"
)

// VocabularyKeyword is the wire name of the controlled vocabulary keyword.
const VocabularyKeyword = "vocabulary"

// VocabularyProvider resolves vocabularies by name. It must return an error matching
// persistence.ErrVocabularyNotFound for unknown names.
type VocabularyProvider interface {
	GetVocabulary(ctx context.Context, name string) (*models.Vocabulary, error)
}

type vocabularyKeyword struct {
	provider VocabularyProvider
}

// NewVocabularyKeyword creates the "vocabulary" keyword: string instances must be tags
// of the named vocabulary.
func NewVocabularyKeyword(provider VocabularyProvider) Keyword {
	return &vocabularyKeyword{provider: provider}
}

func (k *vocabularyKeyword) Name() string {
	return VocabularyKeyword
}

func (k *vocabularyKeyword) CheckArg(arg any) error {
	name, ok := arg.(string)
	if !ok || name == "" {
		return errors.New("vocabulary must be a non-empty string")
	}

	return nil
}

func (k *vocabularyKeyword) Evaluate(ctx context.Context, arg, instance any) ([]string, error) {
	value, ok := instance.(string)
	if !ok {
		return nil, nil
	}

	name, _ := arg.(string)

	vocabulary, err := k.lookup(ctx, name)
	if err != nil {
		if persistence.IsVocabularyNotFound(err) {
			return []string{fmt.Sprintf("Vocabulary '%s' does not exist", name)}, nil
		}

		return nil, fmt.Errorf("failed to load vocabulary %s: %w", name, err)
	}

	if !vocabulary.Contains(value) {
		return []string{fmt.Sprintf("'%s' is not a valid value of vocabulary '%s'", value, name)}, nil
	}

	return nil, nil
}

type vocabularyResult struct {
	vocabulary *models.Vocabulary
	err        error
}

type vocabularyCacheKey struct{}

// vocabularyCache memoizes lookups for the duration of one validation call.
type vocabularyCache struct {
	mu      sync.Mutex
	results map[string]vocabularyResult
}

func withVocabularyCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, vocabularyCacheKey{}, &vocabularyCache{results: map[string]vocabularyResult{}})
}

func (k *vocabularyKeyword) lookup(ctx context.Context, name string) (*models.Vocabulary, error) {
	cache, ok := ctx.Value(vocabularyCacheKey{}).(*vocabularyCache)
	if !ok {
		return k.provider.GetVocabulary(ctx, name)
	}

	cache.mu.Lock()
	defer cache.mu.Unlock()

	if result, found := cache.results[name]; found {
		return result.vocabulary, result.err
	}

	vocabulary, err := k.provider.GetVocabulary(ctx, name)
	if err == nil || persistence.IsVocabularyNotFound(err) {
		cache.results[name] = vocabularyResult{vocabulary: vocabulary, err: err}
	}

	return vocabulary, err
}
