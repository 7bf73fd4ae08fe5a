// Package main provides the CPI host server implementation.
package main

import (
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/stratovia/cpi/pkg/config"
	"github.com/stratovia/cpi/pkg/health"
	"github.com/stratovia/cpi/pkg/registry"
	"github.com/stratovia/cpi/pkg/runner"
	"github.com/stratovia/cpi/pkg/services"
	"github.com/stratovia/cpi/pkg/store"
	"github.com/stratovia/cpi/pkg/web"
)

type API struct {
	logger   *slog.Logger
	registry *registry.Registry
	runner   *runner.Runner
	store    store.Store
	overlay  *config.Overlay
	checker  *health.Checker
	validate *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	reg *registry.Registry,
	run *runner.Runner,
	st store.Store,
	overlay *config.Overlay,
	checker *health.Checker,
) *API {
	return &API{
		logger:   logger,
		registry: reg,
		runner:   run,
		store:    st,
		overlay:  overlay,
		checker:  checker,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	providerService := services.NewProviderService(a.registry, a.overlay, a.checker)
	invocationService := services.NewInvocationService(a.runner, a.store)

	handlers := web.NewAPIHandlers(providerService, invocationService, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("CPI host")
	})

	p := app.Group("/providers")
	p.Get("/", handlers.ListProviders)
	p.Get("/:name", handlers.GetProvider)
	p.Get("/:name/actions", handlers.ListActions)
	p.Get("/:name/actions/:action", handlers.GetAction)
	p.Post("/:name/actions/:action/execute", handlers.ExecuteAction)
	p.Post("/:name/actions/:action/lint", handlers.LintAction)
	p.Post("/:name/test", handlers.TestProvider)

	i := app.Group("/invocations")
	i.Get("/", handlers.ListInvocations)
	i.Get("/:id", handlers.GetInvocation)

	app.Get("/health", handlers.HealthCheck)

	return app
}
