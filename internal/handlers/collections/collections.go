// Package collections exposes Audiobookshelf collection management. Other
// backend kinds reject these routes with a validation error.
package collections

import (
	"context"

	"faveswitch/internal/abs"
	"faveswitch/internal/backends"
	"faveswitch/internal/media"

	"github.com/gofiber/fiber/v3"
)

func respondError(c fiber.Ctx, err error) error {
	return c.Status(media.StatusCode(err)).JSON(fiber.Map{"error": err.Error()})
}

// absClient resolves the server and requires it to be an Audiobookshelf one.
func absClient(resolver *backends.Resolver, id string) (*abs.Client, error) {
	backend, rec, err := resolver.Backend(id)
	if err != nil {
		return nil, err
	}
	client, ok := backend.(*abs.Client)
	if !ok {
		return nil, media.Validationf("collections are only supported for audiobookshelf servers, not %s", rec.Type)
	}
	return client, nil
}

func withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), media.WideTimeout)
}

func List(resolver *backends.Resolver) fiber.Handler {
	return func(c fiber.Ctx) error {
		client, err := absClient(resolver, c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		ctx, cancel := withTimeout()
		defer cancel()
		cols, err := client.ListCollections(ctx, c.Params("user"))
		if err != nil {
			return respondError(c, err)
		}
		if cols == nil {
			cols = []media.Collection{}
		}
		return c.JSON(cols)
	}
}

func Create(resolver *backends.Resolver) fiber.Handler {
	return func(c fiber.Ctx) error {
		client, err := absClient(resolver, c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		var in struct {
			Name        string   `json:"name"`
			Description string   `json:"description"`
			ItemIDs     []string `json:"item_ids"`
		}
		if err := c.Bind().Body(&in); err != nil {
			return respondError(c, media.Validationf("invalid request body: %v", err))
		}
		ctx, cancel := withTimeout()
		defer cancel()
		col, err := client.CreateCollection(ctx, c.Params("user"), in.Name, in.Description, in.ItemIDs)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(col)
	}
}

func Items(resolver *backends.Resolver) fiber.Handler {
	return func(c fiber.Ctx) error {
		client, err := absClient(resolver, c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		ctx, cancel := withTimeout()
		defer cancel()
		page, err := client.CollectionItems(ctx, c.Params("collection"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(page)
	}
}

func AddItem(resolver *backends.Resolver) fiber.Handler {
	return func(c fiber.Ctx) error {
		client, err := absClient(resolver, c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		ctx, cancel := withTimeout()
		defer cancel()
		added, err := client.AddToCollection(ctx, c.Params("collection"), c.Params("item"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"added": added})
	}
}

func RemoveItem(resolver *backends.Resolver) fiber.Handler {
	return func(c fiber.Ctx) error {
		client, err := absClient(resolver, c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		ctx, cancel := withTimeout()
		defer cancel()
		removed, err := client.RemoveFromCollection(ctx, c.Params("collection"), c.Params("item"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"removed": removed})
	}
}

// AddNamedFavourite adds an item to the per-user "Favourites – <name>"
// collection, creating it when absent.
func AddNamedFavourite(resolver *backends.Resolver) fiber.Handler {
	return func(c fiber.Ctx) error {
		client, err := absClient(resolver, c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		var in struct {
			UserName string `json:"user_name"`
			ItemID   string `json:"item_id"`
		}
		if err := c.Bind().Body(&in); err != nil {
			return respondError(c, media.Validationf("invalid request body: %v", err))
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*media.ToggleTimeout)
		defer cancel()
		col, added, err := client.AddNamedFavourite(ctx, in.UserName, in.ItemID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"added": added, "collection": col})
	}
}
