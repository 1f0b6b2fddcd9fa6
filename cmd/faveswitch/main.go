package main

import (
	"context"
	"log"
	"os"
	"time"

	"faveswitch/internal/backends"
	"faveswitch/internal/config"
	"faveswitch/internal/handlers/collections"
	"faveswitch/internal/handlers/gateway"
	"faveswitch/internal/handlers/health"
	"faveswitch/internal/handlers/layouts"
	"faveswitch/internal/handlers/servers"
	"faveswitch/internal/handlers/stats"
	"faveswitch/internal/handlers/version"
	"faveswitch/internal/logging"
	"faveswitch/internal/media"
	"faveswitch/internal/middleware"
	"faveswitch/internal/store"
	"faveswitch/internal/tasks"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/static"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	logging.SetDefault(logging.NewLogger(&logging.Config{
		Level:  parseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
		Output: os.Stdout,
	}))

	// ---- Storage ----
	st, err := store.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer st.Close()

	if err := store.MigrateUp("sqlite://" + cfg.SQLitePath); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// ---- Backend plumbing ----
	pool := media.NewTransportPool(cfg.PoolSize)
	resolver := &backends.Resolver{Store: st, Pool: pool}
	collector := &tasks.Collector{Store: st, Pool: pool}

	if cfg.StatsIntervalSec > 0 {
		go collector.RunPeriodic(context.Background(), time.Duration(cfg.StatsIntervalSec)*time.Second)
	}

	// ---- Fiber v3 App ----
	app := fiber.New(fiber.Config{
		EnableIPValidation: true,
		ProxyHeader:        fiber.HeaderXForwardedFor,
	})
	app.Use(recover.New())
	app.Use(logging.FiberMiddleware(logging.Default()))

	adminAuth := middleware.AdminAuth(cfg.AdminToken)

	// ---- Health ----
	app.Get("/health", health.Health(st))
	app.Get("/health/servers/:id", health.Server(resolver))

	// ---- Server registry ----
	app.Get("/api/servers", servers.List(st))
	app.Post("/api/servers", servers.Create(st), adminAuth)
	app.Get("/api/servers/:id", servers.Get(st))
	app.Put("/api/servers/:id", servers.Update(st), adminAuth)
	app.Delete("/api/servers/:id", servers.Delete(st), adminAuth)
	app.Post("/api/servers/:id/test", servers.Test(resolver))

	// ---- Normalized per-server surface ----
	app.Get("/api/servers/:id/info", gateway.Info(resolver))
	app.Get("/api/servers/:id/users", gateway.Users(resolver))
	app.Get("/api/servers/:id/libraries", gateway.Libraries(resolver))
	app.Get("/api/servers/:id/items", gateway.Items(resolver))
	app.Get("/api/servers/:id/favorites/:user", gateway.Favorites(resolver))
	app.Post("/api/servers/:id/favorites/:user/:item", gateway.AddFavorite(resolver))
	app.Delete("/api/servers/:id/favorites/:user/:item", gateway.RemoveFavorite(resolver))
	app.Get("/api/servers/:id/recent", gateway.Recent(resolver))
	app.Get("/api/servers/:id/image/:item", gateway.Image(resolver, cfg.ImgPrimaryMaxWidth))

	// ---- Audiobookshelf collections ----
	app.Get("/api/servers/:id/collections/:user", collections.List(resolver))
	app.Post("/api/servers/:id/collections/:user", collections.Create(resolver))
	app.Get("/api/servers/:id/collections/:user/:collection/items", collections.Items(resolver))
	app.Post("/api/servers/:id/collections/:user/:collection/items/:item", collections.AddItem(resolver))
	app.Delete("/api/servers/:id/collections/:user/:collection/items/:item", collections.RemoveItem(resolver))
	app.Post("/api/servers/:id/abs/favourites", collections.AddNamedFavourite(resolver))

	// ---- Emby/Jellyfin layouts ----
	app.Get("/api/servers/:id/layouts/users", layouts.Users(resolver))
	app.Get("/api/servers/:id/layouts/:user", layouts.Load(resolver))
	app.Post("/api/servers/:id/layouts/:user/apply", layouts.Apply(resolver))
	app.Get("/api/layout-templates", layouts.ListTemplates(st))
	app.Get("/api/layout-templates/:name", layouts.GetTemplate(st))
	app.Put("/api/layout-templates/:name", layouts.SaveTemplate(st), adminAuth)
	app.Delete("/api/layout-templates/:name", layouts.DeleteTemplate(st), adminAuth)

	// ---- Stats snapshots ----
	app.Post("/api/stats/refresh", stats.Refresh(collector), adminAuth)
	app.Get("/api/stats/latest", stats.Latest(st))
	app.Get("/api/stats/jobs", stats.Jobs(st))
	app.Get("/api/stats/jobs/:jobId", stats.Job(st))

	// ---- Version ----
	app.Get("/api/version", version.GetVersion())

	// ---- Static frontend ----
	if info, err := os.Stat(cfg.WebPath); err == nil && info.IsDir() {
		app.Use("/", static.New(cfg.WebPath))
	}

	logging.Info("listening", "addr", cfg.ListenAddr)
	if err := app.Listen(cfg.ListenAddr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func parseLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}
