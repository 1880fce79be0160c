// Package main provides the curator API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/dukex/curator/pkg/models"
	"github.com/dukex/curator/pkg/persistence"
	"github.com/dukex/curator/pkg/services"
	"github.com/dukex/curator/pkg/web"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger       *slog.Logger
	persistence  persistence.Persistence
	vocabularies persistence.VocabularyRepository
	options      []services.Option
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	vocabularies persistence.VocabularyRepository,
	options ...services.Option,
) *API {
	return &API{
		logger:       logger,
		persistence:  persistence,
		vocabularies: vocabularies,
		options:      options,
	}
}

func (a *API) App() *fiber.App {
	standardOptions := append([]services.Option{services.WithVocabularyProvider(a.vocabularies)}, a.options...)

	handlers := web.NewAPIHandlers(
		services.NewWorkflow(a.persistence, a.options...),
		services.NewStandard(a.persistence, standardOptions...),
		services.NewVocabulary(a.vocabularies, a.options...),
		services.NewRule(a.persistence, a.options...),
		models.NewValidator(),
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Curator API")
	})

	handlers.Register(app)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	a.logger.Info("Curator API listening", "port", port)

	return app.Listen(":" + strconv.Itoa(port))
}
