package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/curator/pkg/persistence"
	"github.com/dukex/curator/pkg/persistence/redis"
)

// NewVocabularyProvider returns the vocabulary repository selected by vocabularyURL.
// "store" and the empty string use the record store; redis:// and rediss:// use Redis
// sets. The returned close function releases the provider's own connections.
func NewVocabularyProvider(
	ctx context.Context,
	vocabularyURL string,
	store persistence.Persistence,
) (persistence.VocabularyRepository, func() error, error) {
	switch {
	case vocabularyURL == "" || vocabularyURL == "store":
		if store == nil {
			return nil, nil, errors.New("the store vocabulary provider needs a record store")
		}

		return store.VocabularyRepository(), func() error { return nil }, nil
	case strings.HasPrefix(vocabularyURL, "redis://"), strings.HasPrefix(vocabularyURL, "rediss://"):
		repository, err := redis.Connect(ctx, vocabularyURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis vocabularies: %w", err)
		}

		return repository, repository.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported vocabulary provider: %s", vocabularyURL)
	}
}
