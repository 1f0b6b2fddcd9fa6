package media

import "context"

// MediaBackend is the unified contract every server adapter implements.
// All calls are single blocking HTTP round trips (or a small fixed sequence of
// them); failures surface as the error taxonomy in errors.go.
type MediaBackend interface {
	// GetServerInfo probes the server identity endpoint.
	GetServerInfo(ctx context.Context) (*SystemInfo, error)

	// GetUsers lists user accounts. Kinds without a multi-user concept return
	// a single synthetic user.
	GetUsers(ctx context.Context) ([]User, error)

	// GetLibraries lists top-level libraries.
	GetLibraries(ctx context.Context) ([]Library, error)

	// GetItems lists items, optionally scoped to a parent library and/or
	// filtered by a search term. Search results are substring matches on Name.
	GetItems(ctx context.Context, q ItemQuery) ([]Item, error)

	// GetFavorites lists the user's favorited items.
	GetFavorites(ctx context.Context, userID string) ([]Item, error)

	// AddFavorite marks an item as a favorite. Idempotent: returns false with
	// no error when the item is already a favorite.
	AddFavorite(ctx context.Context, userID, itemID string, hints FavoriteHints) (bool, error)

	// RemoveFavorite clears the favorite mark. Removing a non-favorite is not
	// an error.
	RemoveFavorite(ctx context.Context, userID, itemID string) error

	// GetRecent lists recently added items, optionally scoped to a library.
	GetRecent(ctx context.Context, parentID string, limit int) ([]Item, error)

	// FetchImage retrieves raw image bytes and their content type.
	FetchImage(ctx context.Context, itemID, kind string, maxWidth int) ([]byte, string, error)
}

// Default page sizes per backend kind. Audiobookshelf catalogs are fetched in
// bulk since its adapter paginates client-side.
const (
	DefaultLimit    = 50
	DefaultABSLimit = 3500
)
