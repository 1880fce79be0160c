package redis_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/persistence"
	curatorredis "github.com/dukex/curator/pkg/persistence/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) (*curatorredis.VocabularyRepository, context.Context) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping Redis integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	t.Cleanup(cancel)

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	repo, err := curatorredis.Connect(ctx, fmt.Sprintf("redis://%s/0", endpoint))
	require.NoError(t, err)

	t.Cleanup(func() { _ = repo.Close() })

	return repo, ctx
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := curatorredis.Connect(t.Context(), "not a url")
	require.Error(t, err)
}

func TestVocabularyRepository(t *testing.T) {
	repo, ctx := setupRedis(t)

	_, err := repo.GetVocabulary(ctx, "licenses")
	assert.True(t, persistence.IsVocabularyNotFound(err))

	require.NoError(t, repo.SaveVocabulary(ctx, &models.Vocabulary{Name: "licenses", Tags: []string{"cc0", "cc-by", "cc0"}}))

	vocabulary, err := repo.GetVocabulary(ctx, "licenses")
	require.NoError(t, err)
	assert.Equal(t, []string{"cc-by", "cc0"}, vocabulary.Tags)

	require.NoError(t, repo.SaveVocabulary(ctx, &models.Vocabulary{Name: "licenses", Tags: []string{"mit"}}))

	vocabulary, err = repo.GetVocabulary(ctx, "licenses")
	require.NoError(t, err)
	assert.Equal(t, []string{"mit"}, vocabulary.Tags)

	require.NoError(t, repo.SaveVocabulary(ctx, &models.Vocabulary{Name: "empty"}))

	empty, err := repo.GetVocabulary(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, empty.Tags)
}
