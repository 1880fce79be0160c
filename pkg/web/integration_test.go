//go:build integration

package web_test

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/persistence/postgresql"
	"github.com/dukex/curator/pkg/services"
	"github.com/dukex/curator/pkg/web"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func setupTestDB(t *testing.T) string {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("test_curator"),
		tcpostgres.WithUsername("test_user"),
		tcpostgres.WithPassword("test_pass"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	dbURL, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	return dbURL
}

func setupIntegrationApp(t *testing.T, dbURL string) *fiber.App {
	t.Helper()

	persistence, err := postgresql.NewPersistence(context.Background(), slog.Default(), dbURL)
	require.NoError(t, err)

	t.Cleanup(func() { _ = persistence.Close(context.Background()) })

	handlers := web.NewAPIHandlers(
		services.NewWorkflow(persistence),
		services.NewStandard(persistence),
		services.NewVocabulary(persistence.VocabularyRepository()),
		services.NewRule(persistence),
		models.NewValidator(),
	)

	app := fiber.New()
	handlers.Register(app)

	return app
}

func TestWorkflow_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	app := setupIntegrationApp(t, setupTestDB(t))

	for _, name := range []string{"draft", "review", "published"} {
		status, body := doRequest(t, app, http.MethodPost, "/workflow/states",
			services.CreateStateRequest{Name: name, Title: name})
		require.Equal(t, http.StatusCreated, status, string(body))
	}

	status, body := doRequest(t, app, http.MethodPost, "/workflow/transitions", web.CreateTransitionRequest{From: "draft", To: "review"})
	require.Equal(t, http.StatusCreated, status, string(body))

	status, body = doRequest(t, app, http.MethodPost, "/workflow/transitions", web.CreateTransitionRequest{From: "review", To: "published"})
	require.Equal(t, http.StatusCreated, status, string(body))

	status, _ = doRequest(t, app, http.MethodPost, "/workflow/transitions", web.CreateTransitionRequest{From: "draft", To: "review"})
	assert.Equal(t, http.StatusConflict, status)

	revert := "draft"
	status, body = doRequest(t, app, http.MethodPatch, "/workflow/states/review", services.UpdateStateRequest{RevertTarget: &revert})
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = doRequest(t, app, http.MethodGet, "/workflow/paths?from=draft&to=published", nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decode[web.PathResponse](t, body).Exists)

	status, body = doRequest(t, app, http.MethodGet, "/workflow/revert-paths?from=review&to=draft", nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decode[web.PathResponse](t, body).Exists)

	status, _ = doRequest(t, app, http.MethodDelete, "/workflow/states/draft", nil)
	require.Equal(t, http.StatusNoContent, status)

	status, body = doRequest(t, app, http.MethodGet, "/workflow/states/review", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, decode[models.WorkflowState](t, body).RevertTargetID)

	status, body = doRequest(t, app, http.MethodGet, "/workflow/order", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.WorkflowState](t, body), 2)
}

func TestStandards_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	app := setupIntegrationApp(t, setupTestDB(t))

	status, body := doRequest(t, app, http.MethodPut, "/vocabularies/languages", web.SaveVocabularyRequest{Tags: []string{"en"}})
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = doRequest(t, app, http.MethodPost, "/standards", web.CreateStandardRequest{
		Name:    "datacite",
		Version: "4.4",
		Schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"language": map[string]any{"type": "string", "vocabulary": "languages"}},
		},
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	status, body = doRequest(t, app, http.MethodPost, "/standards/datacite/4.4/validate", map[string]any{"language": "pt"})
	require.Equal(t, http.StatusUnprocessableEntity, status, string(body))
	assert.Equal(t, []string{"'pt' is not a valid value of vocabulary 'languages'"},
		decode[web.ValidationResponse](t, body).Errors.Messages("language"))
}
