// Package main provides the masszap API server.
package main

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/betoarts/masszap/pkg/campaign"
	"github.com/betoarts/masszap/pkg/engine"
	"github.com/betoarts/masszap/pkg/eventbus"
	"github.com/betoarts/masszap/pkg/persistence"
	"github.com/betoarts/masszap/pkg/quota"
	"github.com/betoarts/masszap/pkg/registry"
	"github.com/betoarts/masszap/pkg/web"
	"github.com/betoarts/masszap/pkg/whatsapp"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/redis/go-redis/v9"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	quotaCache  redis.UniversalClient
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
	quotaCache redis.UniversalClient,
) *API {
	return &API{
		persistence: persistence,
		logger:      logger,
		registry:    registry,
		eventBus:    eventBus,
		quotaCache:  quotaCache,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	client := whatsapp.NewClient(30 * time.Second)
	eng := engine.New(a.persistence, a.registry, a.eventBus, client, a.logger)
	quotaService := quota.NewService(a.persistence.Accounts(), a.quotaCache, a.logger)
	campaignService := campaign.NewService(a.persistence, quotaService, client, a.eventBus, a.logger)

	handlers := web.NewAPIHandlers(eng, campaignService, a.persistence, a.registry, a.validate, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("MassZap API")
	})

	app.Post("/triggers/jobs", handlers.TriggerJobs)
	app.Post("/triggers/campaigns", handlers.TriggerCampaigns)

	f := app.Group("/flows")
	f.Post("/", handlers.CreateFlow)
	f.Get("/:id", handlers.GetFlow)
	f.Post("/:id/executions", handlers.StartExecution)

	app.Get("/executions/:id", handlers.GetExecution)
	app.Get("/campaigns/:id", handlers.GetCampaign)
	app.Get("/nodes", handlers.GetNodes)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
