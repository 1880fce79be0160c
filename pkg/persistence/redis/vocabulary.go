// Package redis serves controlled vocabularies from Redis sets, for deployments where
// vocabularies are maintained outside the record store.
package redis

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/persistence"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "curator:vocabulary:"
	indexKey  = "curator:vocabularies"
)

var _ persistence.VocabularyRepository = (*VocabularyRepository)(nil)

// VocabularyRepository stores each vocabulary as a set of tags. An index set records
// which vocabularies exist, so an empty vocabulary is distinct from a missing one.
type VocabularyRepository struct {
	client redis.UniversalClient
}

// NewVocabularyRepository wraps an existing client.
func NewVocabularyRepository(client redis.UniversalClient) *VocabularyRepository {
	return &VocabularyRepository{client: client}
}

// Connect parses a redis:// URL and verifies the server answers.
func Connect(ctx context.Context, url string) (*VocabularyRepository, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewVocabularyRepository(client), nil
}

// GetVocabulary returns the tags of a vocabulary in sorted order.
func (r *VocabularyRepository) GetVocabulary(ctx context.Context, name string) (*models.Vocabulary, error) {
	var (
		exists  *redis.BoolCmd
		members *redis.StringSliceCmd
	)

	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		exists = pipe.SIsMember(ctx, indexKey, name)
		members = pipe.SMembers(ctx, keyPrefix+name)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary %s: %w", name, err)
	}

	if !exists.Val() {
		return nil, persistence.NewEntityError("GetVocabulary", "vocabulary", name, persistence.ErrVocabularyNotFound)
	}

	tags := members.Val()
	slices.Sort(tags)

	return &models.Vocabulary{Name: name, Tags: tags}, nil
}

// SaveVocabulary replaces the tags of a vocabulary atomically.
func (r *VocabularyRepository) SaveVocabulary(ctx context.Context, vocabulary *models.Vocabulary) error {
	key := keyPrefix + vocabulary.Name

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)

		if len(vocabulary.Tags) > 0 {
			members := make([]any, 0, len(vocabulary.Tags))
			for _, tag := range vocabulary.Tags {
				members = append(members, tag)
			}

			pipe.SAdd(ctx, key, members...)
		}

		pipe.SAdd(ctx, indexKey, vocabulary.Name)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save vocabulary %s: %w", vocabulary.Name, err)
	}

	return nil
}

// Close releases the client.
func (r *VocabularyRepository) Close() error {
	return r.client.Close()
}
