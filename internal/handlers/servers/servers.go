// Package servers exposes CRUD for configured backend connections.
package servers

import (
	"context"

	"faveswitch/internal/backends"
	"faveswitch/internal/media"
	"faveswitch/internal/store"

	"github.com/gofiber/fiber/v3"
)

// serverOut is the outward server shape. Credentials never round-trip; only
// their presence is reported.
type serverOut struct {
	ID             string           `json:"id"`
	Type           media.ServerType `json:"type"`
	Name           string           `json:"name"`
	BaseURL        string           `json:"base_url"`
	Enabled        bool             `json:"enabled"`
	HasCredentials bool             `json:"has_credentials"`
	CreatedAt      string           `json:"created_at"`
	UpdatedAt      string           `json:"updated_at"`
}

func toOut(rec store.ServerRecord) serverOut {
	return serverOut{
		ID:             rec.ID,
		Type:           rec.Type,
		Name:           rec.Name,
		BaseURL:        rec.BaseURL,
		Enabled:        rec.Enabled,
		HasCredentials: rec.HasCredentials(),
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
}

type serverIn struct {
	Type    media.ServerType `json:"type"`
	Name    string           `json:"name"`
	BaseURL string           `json:"base_url"`
	APIKey  string           `json:"api_key"`
	Token   string           `json:"token"`
	Enabled *bool            `json:"enabled"`
}

func (in serverIn) config() media.ServerConfig {
	enabled := true
	if in.Enabled != nil {
		enabled = *in.Enabled
	}
	return media.ServerConfig{
		Type:    in.Type,
		Name:    in.Name,
		BaseURL: in.BaseURL,
		APIKey:  in.APIKey,
		Token:   in.Token,
		Enabled: enabled,
	}
}

func respondError(c fiber.Ctx, err error) error {
	return c.Status(media.StatusCode(err)).JSON(fiber.Map{"error": err.Error()})
}

func List(st *store.Store) fiber.Handler {
	return func(c fiber.Ctx) error {
		recs, err := st.ListServers()
		if err != nil {
			return respondError(c, err)
		}
		out := make([]serverOut, 0, len(recs))
		for _, rec := range recs {
			out = append(out, toOut(rec))
		}
		return c.JSON(out)
	}
}

func Get(st *store.Store) fiber.Handler {
	return func(c fiber.Ctx) error {
		rec, err := st.GetServer(c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(toOut(rec))
	}
}

func Create(st *store.Store) fiber.Handler {
	return func(c fiber.Ctx) error {
		var in serverIn
		if err := c.Bind().Body(&in); err != nil {
			return respondError(c, media.Validationf("invalid request body: %v", err))
		}
		rec, err := st.CreateServer(in.config())
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(toOut(rec))
	}
}

func Update(st *store.Store) fiber.Handler {
	return func(c fiber.Ctx) error {
		var in serverIn
		if err := c.Bind().Body(&in); err != nil {
			return respondError(c, media.Validationf("invalid request body: %v", err))
		}
		rec, err := st.UpdateServer(c.Params("id"), in.config())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(toOut(rec))
	}
}

func Delete(st *store.Store) fiber.Handler {
	return func(c fiber.Ctx) error {
		if err := st.DeleteServer(c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// Test connects to the server and reports what it found, without persisting
// anything.
func Test(resolver *backends.Resolver) fiber.Handler {
	return func(c fiber.Ctx) error {
		backend, rec, err := resolver.Backend(c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), media.ListTimeout)
		defer cancel()
		info, err := backend.GetServerInfo(ctx)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"ok":      true,
			"id":      rec.ID,
			"type":    rec.Type,
			"name":    info.Name,
			"version": info.Version,
		})
	}
}
