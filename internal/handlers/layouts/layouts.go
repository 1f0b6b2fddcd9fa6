// Package layouts exposes the Emby/Jellyfin display preference engine: loading
// a user's layout documents, applying a template, and managing saved templates.
package layouts

import (
	"context"
	"encoding/json"

	"faveswitch/internal/backends"
	"faveswitch/internal/emby"
	"faveswitch/internal/media"
	"faveswitch/internal/store"

	"github.com/gofiber/fiber/v3"
)

func respondError(c fiber.Ctx, err error) error {
	return c.Status(media.StatusCode(err)).JSON(fiber.Map{"error": err.Error()})
}

// embyClient resolves the server and requires an Emby or Jellyfin one.
func embyClient(resolver *backends.Resolver, id string) (*emby.Client, error) {
	backend, rec, err := resolver.Backend(id)
	if err != nil {
		return nil, err
	}
	client, ok := backend.(*emby.Client)
	if !ok {
		return nil, media.Validationf("layouts are only supported for emby and jellyfin servers, not %s", rec.Type)
	}
	return client, nil
}

func withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), media.WideTimeout)
}

// Users lists the accounts layouts can be managed for.
func Users(resolver *backends.Resolver) fiber.Handler {
	return func(c fiber.Ctx) error {
		client, err := embyClient(resolver, c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		ctx, cancel := withTimeout()
		defer cancel()
		users, err := client.GetUsers(ctx)
		if err != nil {
			return respondError(c, err)
		}
		if users == nil {
			users = []media.User{}
		}
		return c.JSON(users)
	}
}

// Load returns every resolvable layout document for the user, listing ids the
// server turned out not to support separately.
func Load(resolver *backends.Resolver) fiber.Handler {
	return func(c fiber.Ctx) error {
		client, err := embyClient(resolver, c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		layoutClient := c.Query("client", emby.DefaultLayoutClient)
		deviceID := c.Query("device_id", emby.DefaultLayoutDeviceID)
		ctx, cancel := withTimeout()
		defer cancel()
		bundle, err := client.LoadAllLayouts(ctx, c.Params("user"), layoutClient, deviceID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(bundle)
	}
}

// Apply validates a layout template against the user's candidate preference
// ids and writes it key by key, reporting per-key failures.
func Apply(resolver *backends.Resolver) fiber.Handler {
	return func(c fiber.Ctx) error {
		client, err := embyClient(resolver, c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		var in struct {
			Layouts  map[string]json.RawMessage `json:"layouts"`
			Client   string                     `json:"client"`
			DeviceID string                     `json:"device_id"`
		}
		if err := c.Bind().Body(&in); err != nil {
			return respondError(c, media.Validationf("invalid request body: %v", err))
		}
		if in.Client == "" {
			in.Client = emby.DefaultLayoutClient
		}
		if in.DeviceID == "" {
			in.DeviceID = emby.DefaultLayoutDeviceID
		}
		ctx, cancel := withTimeout()
		defer cancel()
		report, err := client.ApplyLayoutTemplate(ctx, c.Params("user"), in.Layouts, in.Client, in.DeviceID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(report)
	}
}

// Templates below are gateway-side saved bundles, not tied to one server.

func ListTemplates(st *store.Store) fiber.Handler {
	return func(c fiber.Ctx) error {
		templates, err := st.ListLayoutTemplates()
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(templates)
	}
}

func GetTemplate(st *store.Store) fiber.Handler {
	return func(c fiber.Ctx) error {
		tpl, err := st.GetLayoutTemplate(c.Params("name"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(tpl)
	}
}

func SaveTemplate(st *store.Store) fiber.Handler {
	return func(c fiber.Ctx) error {
		var body map[string]json.RawMessage
		if err := c.Bind().Body(&body); err != nil {
			return respondError(c, media.Validationf("invalid request body: %v", err))
		}
		tpl, err := st.SaveLayoutTemplate(c.Params("name"), body)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(tpl)
	}
}

func DeleteTemplate(st *store.Store) fiber.Handler {
	return func(c fiber.Ctx) error {
		if err := st.DeleteLayoutTemplate(c.Params("name")); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
