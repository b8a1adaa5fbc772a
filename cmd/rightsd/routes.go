package main

import (
	"github.com/gofiber/fiber/v2"
	rightshttp "github.com/goliatone/go-rights/adapters/http"
	rightsrouter "github.com/goliatone/go-rights/adapters/router"
	"github.com/goliatone/go-router"
)

// SetupRoutes registers all application routes.
func (a *App) SetupRoutes(r router.Router[*fiber.App]) {
	gate := a.Auth.Middleware()

	// Static assets and home page
	r.Static("/public", "./cmd/rightsd/public")
	r.Get("/", a.renderHome())

	// Session endpoints stay outside the gate
	r.Post("/api/login", a.Login)
	r.Post("/api/logout", a.Logout)

	// Report API endpoints. The actor middleware stashes the header
	// actor in the request context for the shared controller.
	reportHandler := rightsrouter.NewHandler(rightsrouter.Config{
		Service:       a.Reports,
		Runner:        a.Runner,
		Store:         a.Store,
		ActorProvider: rightshttp.ContextActorProvider{},
		Logger:        a.Logger,
	})
	reportHandler.RegisterRoutes(gatedRouter{
		base: r,
		mw:   []router.MiddlewareFunc{gate, a.actorMiddleware()},
	})

	// Contract ingest and catalog
	r.Post("/api/contracts/upload", a.UploadContract, gate)
	r.Get("/api/contracts", a.ListContracts, gate)
	r.Get("/api/contracts/:id", a.GetContract, gate)
	r.Delete("/api/contracts/:id", a.DeleteContract, gate)
	r.Get("/api/grants", a.ListGrants, gate)
	r.Get("/api/conflicts", a.ListConflicts, gate)
	r.Get("/api/stories", a.ListStories, gate)
	r.Get("/api/ingests", a.IngestHistory, gate)
	r.Get("/api/ingests/:id", a.IngestStatus, gate)

	// Dashboard and report metadata
	r.Get("/api/dashboard", a.Dashboard, gate)
	r.Get("/api/datasets", a.ListDatasets, gate)
	r.Get("/api/ui", a.ReportUI, gate)

	// Scheduled delivery endpoint
	r.Post("/api/schedule/deliveries", a.RunScheduledDeliveries, gate)
}

// actorMiddleware stores the request actor in context so the report
// controller's ActorProvider can resolve it.
func (a *App) actorMiddleware() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			c.SetContext(rightshttp.WithActor(c.Context(), a.getActor(c)))
			return next(c)
		}
	}
}

// gatedRouter applies shared middleware to routes registered through the
// report handler, which does not take middleware itself.
type gatedRouter struct {
	base router.Router[*fiber.App]
	mw   []router.MiddlewareFunc
}

func (g gatedRouter) Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	return g.base.Get(path, handler, append(g.mw, mw...)...)
}

func (g gatedRouter) Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	return g.base.Post(path, handler, append(g.mw, mw...)...)
}

func (g gatedRouter) Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	return g.base.Delete(path, handler, append(g.mw, mw...)...)
}
