// Package gateway exposes the normalized per-server surface: info, users,
// libraries, items, favorites, recent additions and image proxying.
package gateway

import (
	"context"
	"strconv"
	"time"

	"faveswitch/internal/backends"
	"faveswitch/internal/media"

	"github.com/gofiber/fiber/v3"
)

func respondError(c fiber.Ctx, err error) error {
	return c.Status(media.StatusCode(err)).JSON(fiber.Map{"error": err.Error()})
}

func withTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}

func Info(resolver *backends.Resolver) fiber.Handler {
	return func(c fiber.Ctx) error {
		backend, _, err := resolver.Backend(c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		ctx, cancel := withTimeout(media.ListTimeout)
		defer cancel()
		info, err := backend.GetServerInfo(ctx)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(info)
	}
}

func Users(resolver *backends.Resolver) fiber.Handler {
	return func(c fiber.Ctx) error {
		backend, _, err := resolver.Backend(c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		ctx, cancel := withTimeout(media.ListTimeout)
		defer cancel()
		users, err := backend.GetUsers(ctx)
		if err != nil {
			return respondError(c, err)
		}
		if users == nil {
			users = []media.User{}
		}
		return c.JSON(users)
	}
}

func Libraries(resolver *backends.Resolver) fiber.Handler {
	return func(c fiber.Ctx) error {
		backend, _, err := resolver.Backend(c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		ctx, cancel := withTimeout(media.ListTimeout)
		defer cancel()
		libs, err := backend.GetLibraries(ctx)
		if err != nil {
			return respondError(c, err)
		}
		if libs == nil {
			libs = []media.Library{}
		}
		return c.JSON(libs)
	}
}

func Items(resolver *backends.Resolver) fiber.Handler {
	return func(c fiber.Ctx) error {
		backend, _, err := resolver.Backend(c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		limit, _ := strconv.Atoi(c.Query("limit"))
		q := media.ItemQuery{
			ParentID: c.Query("parent_id"),
			Search:   c.Query("search"),
			Limit:    limit,
		}
		ctx, cancel := withTimeout(media.WideTimeout)
		defer cancel()
		items, err := backend.GetItems(ctx, q)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(media.NewItemsPage(items))
	}
}

func Favorites(resolver *backends.Resolver) fiber.Handler {
	return func(c fiber.Ctx) error {
		backend, _, err := resolver.Backend(c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		ctx, cancel := withTimeout(media.WideTimeout)
		defer cancel()
		items, err := backend.GetFavorites(ctx, c.Params("user"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(media.NewItemsPage(items))
	}
}

// AddFavorite marks an item as a favorite. The response's "added" field is
// false when the item already was one.
func AddFavorite(resolver *backends.Resolver) fiber.Handler {
	return func(c fiber.Ctx) error {
		backend, _, err := resolver.Backend(c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		hints := media.FavoriteHints{
			UserName:  c.Query("user_name"),
			LibraryID: c.Query("library_id"),
		}
		ctx, cancel := withTimeout(media.ToggleTimeout)
		defer cancel()
		added, err := backend.AddFavorite(ctx, c.Params("user"), c.Params("item"), hints)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"added": added})
	}
}

// RemoveFavorite unmarks a favorite. Removing a non-favorite succeeds.
func RemoveFavorite(resolver *backends.Resolver) fiber.Handler {
	return func(c fiber.Ctx) error {
		backend, _, err := resolver.Backend(c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		ctx, cancel := withTimeout(media.ToggleTimeout)
		defer cancel()
		if err := backend.RemoveFavorite(ctx, c.Params("user"), c.Params("item")); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"removed": true})
	}
}

func Recent(resolver *backends.Resolver) fiber.Handler {
	return func(c fiber.Ctx) error {
		backend, _, err := resolver.Backend(c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		limit, _ := strconv.Atoi(c.Query("limit"))
		ctx, cancel := withTimeout(media.WideTimeout)
		defer cancel()
		items, err := backend.GetRecent(ctx, c.Query("parent_id"), limit)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(media.NewItemsPage(items))
	}
}

// Image proxies an item image from the backend, defaulting to the primary
// poster at the configured width.
func Image(resolver *backends.Resolver, defaultMaxWidth int) fiber.Handler {
	return func(c fiber.Ctx) error {
		backend, _, err := resolver.Backend(c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		kind := c.Query("type", "Primary")
		maxWidth, _ := strconv.Atoi(c.Query("maxWidth"))
		if maxWidth <= 0 {
			maxWidth = defaultMaxWidth
		}
		ctx, cancel := withTimeout(media.WideTimeout)
		defer cancel()
		body, contentType, err := backend.FetchImage(ctx, c.Params("item"), kind, maxWidth)
		if err != nil {
			return respondError(c, err)
		}
		if contentType == "" {
			contentType = "image/jpeg"
		}
		c.Set(fiber.HeaderContentType, contentType)
		c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
		return c.Send(body)
	}
}
