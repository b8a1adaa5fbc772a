package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/goliatone/go-rights/cmd/rightsd/config"
	"github.com/goliatone/go-router"
)

const viewsDir = "./cmd/rightsd/views"

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	app, err := NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to create app: %v", err)
	}
	defer app.Close()

	srv, err := buildServer()
	if err != nil {
		log.Fatalf("failed to build server: %v", err)
	}

	app.SetupRoutes(srv.Router())

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	go func() {
		log.Printf("Starting server on http://%s", addr)
		log.Printf("Report API: http://%s/admin/reports", addr)
		log.Printf("Dashboard: http://%s/", addr)
		if err := srv.Serve(addr); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func buildServer() (router.Server[*fiber.App], error) {
	viewCfg := router.NewSimpleViewConfig(viewsDir).
		WithExt(".html").
		WithReload(true).
		WithFunctions(templateFunctions())

	engine, err := router.InitializeViewEngine(viewCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize view engine: %w", err)
	}

	srv := router.NewFiberAdapter(fiberAppInitializer(engine))
	return srv, nil
}

func fiberAppInitializer(engine fiber.Views) func(*fiber.App) *fiber.App {
	return func(*fiber.App) *fiber.App {
		fiberApp := fiber.New(fiber.Config{
			AppName:           "GenAI Rights Dashboard",
			PassLocalsToViews: true,
			Views:             engine,
		})

		fiberApp.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
		}))
		fiberApp.Use(cors.New(cors.Config{
			AllowOrigins: "*",
			AllowMethods: "GET,POST,DELETE,OPTIONS",
			AllowHeaders: "Content-Type,Authorization,Idempotency-Key,X-Auth-User,X-Auth-Roles,X-Auth-Tenant,X-Auth-Workspace",
		}))

		return fiberApp
	}
}

func templateFunctions() map[string]any {
	return map[string]any{
		"to_json": func(data any) string {
			payload, err := json.Marshal(data)
			if err != nil {
				return ""
			}
			return string(payload)
		},
	}
}
