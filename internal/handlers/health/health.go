package health

import (
	"context"
	"time"

	"faveswitch/internal/backends"
	"faveswitch/internal/media"
	"faveswitch/internal/store"

	"github.com/gofiber/fiber/v3"
)

type HealthStatus struct {
	OK        bool           `json:"ok"`
	Timestamp string         `json:"timestamp"`
	Database  DatabaseHealth `json:"database"`
	Servers   int            `json:"servers"`
}

type DatabaseHealth struct {
	OK             bool   `json:"ok"`
	Error          string `json:"error,omitempty"`
	ConnectionTime string `json:"connection_time"`
}

// Health reports gateway liveness: database reachability and how many
// connections are configured. Backend reachability is per-server via /test.
func Health(st *store.Store) fiber.Handler {
	return func(c fiber.Ctx) error {
		status := HealthStatus{
			OK:        true,
			Timestamp: time.Now().Format(time.RFC3339),
		}

		start := time.Now()
		err := st.DB().Ping()
		status.Database.ConnectionTime = time.Since(start).String()
		if err != nil {
			status.OK = false
			status.Database.Error = err.Error()
		} else {
			status.Database.OK = true
		}

		if servers, err := st.ListServers(); err == nil {
			status.Servers = len(servers)
		}

		code := fiber.StatusOK
		if !status.OK {
			code = fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(status)
	}
}

// Server probes one configured backend's identity endpoint.
func Server(resolver *backends.Resolver) fiber.Handler {
	return func(c fiber.Ctx) error {
		backend, rec, err := resolver.Backend(c.Params("id"))
		if err != nil {
			return c.Status(media.StatusCode(err)).JSON(fiber.Map{"error": err.Error()})
		}
		ctx, cancel := context.WithTimeout(context.Background(), media.ListTimeout)
		defer cancel()
		info, err := backend.GetServerInfo(ctx)
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"ok":    false,
				"id":    rec.ID,
				"error": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"ok": true, "id": rec.ID, "name": info.Name, "version": info.Version})
	}
}
