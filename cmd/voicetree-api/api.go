// Package main provides the Voicetree API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"

	"github.com/voicetree/voicetree/pkg/cache"
	"github.com/voicetree/voicetree/pkg/eventbus"
	"github.com/voicetree/voicetree/pkg/persistence"
	"github.com/voicetree/voicetree/pkg/registry"
	"github.com/voicetree/voicetree/pkg/services"
	"github.com/voicetree/voicetree/pkg/validation"
	"github.com/voicetree/voicetree/pkg/web"
)

type API struct {
	logger       *slog.Logger
	persistence  persistence.Persistence
	registry     *registry.Registry
	eventBus     eventbus.EventBus
	versionCache cache.VersionCache
	tracer       trace.Tracer
	validate     *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
	versionCache cache.VersionCache,
	tracer trace.Tracer,
) *API {
	return &API{
		logger:       logger,
		persistence:  persistence,
		registry:     registry,
		eventBus:     eventBus,
		versionCache: versionCache,
		tracer:       tracer,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	graphValidator := validation.NewValidator(a.registry)

	flowService := services.NewFlow(a.persistence, a.eventBus, a.logger)
	versionService := services.NewVersion(a.persistence, a.eventBus, graphValidator, a.versionCache, a.logger)
	promotionService := services.NewPromotion(a.persistence, a.eventBus, graphValidator, a.versionCache, a.tracer, a.logger)

	handlers := web.NewAPIHandlers(flowService, versionService, promotionService, a.validate, a.registry, a.persistence)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Voicetree API")
	})

	f := app.Group("/flows")
	f.Get("/", handlers.GetFlows)
	f.Post("/", handlers.CreateFlow)
	f.Get("/:id", handlers.GetFlow)
	f.Patch("/:id", handlers.UpdateFlow)
	f.Delete("/:id", handlers.DeleteFlow)
	f.Get("/:id/versions", handlers.GetVersions)
	f.Post("/:id/versions", handlers.CreateDraft)
	f.Get("/:id/versions/live", handlers.GetLiveVersion)

	v := app.Group("/versions")
	v.Get("/:id", handlers.GetVersion)
	v.Put("/:id/graph", handlers.UpdateGraph)
	v.Post("/:id/promote", handlers.PromoteVersion)
	v.Post("/:id/archive", handlers.ArchiveVersion)

	app.Post("/validate", handlers.ValidateGraph)
	app.Get("/node-types", handlers.GetNodeTypes)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
