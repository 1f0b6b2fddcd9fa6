package abs

import (
	"context"
	"net/http"
	"strings"

	"faveswitch/internal/logging"
	"faveswitch/internal/media"
)

// Collection management is exposed only for Audiobookshelf. The other backend
// kinds either have no collection concept or manage favorites natively.

func toCollection(col map[string]any) media.Collection {
	ids, _ := collectionItemIDs(col)
	userID := ""
	for _, key := range []string{"userId", "ownerId", "user"} {
		if v := getString(col, key); v != "" {
			userID = v
			break
		}
	}
	return media.Collection{
		ID:          collectionID(col),
		Name:        getString(col, "name"),
		Description: getString(col, "description"),
		ItemCount:   len(ids),
		UserID:      userID,
	}
}

// resolveMemberIDs extracts member ids from a collection payload, following
// up with the collection detail when the listing entry omits member arrays.
func (c *Client) resolveMemberIDs(ctx context.Context, col map[string]any) ([]string, string) {
	ids, key := collectionItemIDs(col)
	if len(ids) > 0 {
		return ids, key
	}
	id := collectionID(col)
	if id == "" {
		return ids, key
	}
	detail, err := c.fetchCollection(ctx, id)
	if err != nil {
		logging.Warn("collection detail fetch failed", "collection_id", id, "error", err)
		return ids, key
	}
	if detail == nil {
		return ids, key
	}
	return collectionItemIDs(detail)
}

// ListCollections returns collections visible to the user, soft-filtered so a
// server that does not record collection ownership still lists everything.
// Member counts come from the detail payload when the listing omits them.
func (c *Client) ListCollections(ctx context.Context, userID string) ([]media.Collection, error) {
	ctx, cancel := context.WithTimeout(ctx, media.ListTimeout)
	defer cancel()

	raw, err := c.listCollections(ctx)
	if err != nil {
		return nil, err
	}
	scoped := filterCollectionsByUser(raw, userID, false)
	if len(scoped) == 0 && userID != "" {
		fallback, err := c.userCollections(ctx, userID)
		if err != nil {
			logging.Warn("per-user collection listing failed", "user_id", userID, "error", err)
		} else {
			scoped = fallback
		}
	}
	out := make([]media.Collection, 0, len(scoped))
	for _, entry := range scoped {
		col := toCollection(entry)
		if col.ItemCount == 0 && col.ID != "" {
			ids, _ := c.resolveMemberIDs(ctx, entry)
			col.ItemCount = len(ids)
		}
		out = append(out, col)
	}
	return out, nil
}

// CreateCollection creates a collection with the given members. The library id
// is resolved from the first member item, then the first library.
func (c *Client) CreateCollection(ctx context.Context, userID, name, description string, itemIDs []string) (media.Collection, error) {
	ctx, cancel := context.WithTimeout(ctx, media.ListTimeout)
	defer cancel()

	if strings.TrimSpace(name) == "" {
		return media.Collection{}, media.Validationf("collection name is required")
	}
	seed := ""
	if len(itemIDs) > 0 {
		seed = itemIDs[0]
	}
	created, err := c.createCollection(ctx, name, description, userID, "", seed)
	if err != nil {
		return media.Collection{}, err
	}
	// Seed only carried the first item; write the full member list when there
	// is more than one.
	if len(itemIDs) > 1 {
		_, key := collectionItemIDs(created)
		if err := c.updateCollectionItems(ctx, collectionID(created), itemIDs, key); err != nil {
			return media.Collection{}, err
		}
	}
	col := toCollection(created)
	col.ItemCount = len(itemIDs)
	return col, nil
}

// CollectionItems returns the resolved member items of a collection. Ids that
// no longer resolve are skipped. Member resolution falls back to the
// collection detail and then to the dedicated items endpoint when the global
// listing omits the collection or its member arrays.
func (c *Client) CollectionItems(ctx context.Context, id string) (media.ItemsPage, error) {
	ctx, cancel := context.WithTimeout(ctx, media.WideTimeout)
	defer cancel()

	raw, err := c.listCollections(ctx)
	if err != nil {
		return media.ItemsPage{}, err
	}
	col := findCollectionByID(raw, id)
	if col == nil {
		detail, err := c.fetchCollection(ctx, id)
		if err != nil {
			return media.ItemsPage{}, err
		}
		if detail == nil {
			return media.ItemsPage{}, media.NotFound("collection " + id)
		}
		col = detail
	}
	ids, _ := c.resolveMemberIDs(ctx, col)
	if len(ids) == 0 {
		resolved, memberIDs := c.collectionItemsEndpoint(ctx, id)
		if len(resolved) > 0 {
			return media.NewItemsPage(resolved), nil
		}
		ids = memberIDs
	}
	items := c.fetchItems(ctx, ids)
	return media.NewItemsPage(items), nil
}

// AddToCollection adds an item to a collection, idempotently. Returns whether
// the membership changed.
func (c *Client) AddToCollection(ctx context.Context, id, itemID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, media.ToggleTimeout)
	defer cancel()

	raw, err := c.listCollections(ctx)
	if err != nil {
		return false, err
	}
	col := findCollectionByID(raw, id)
	if col == nil {
		return false, media.NotFound("collection " + id)
	}
	ids, key := collectionItemIDs(col)
	if contains(ids, itemID) {
		return false, nil
	}
	ids = append(ids, itemID)
	if err := c.updateCollectionItems(ctx, id, ids, key); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveFromCollection removes an item from a collection, idempotently.
func (c *Client) RemoveFromCollection(ctx context.Context, id, itemID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, media.ToggleTimeout)
	defer cancel()

	raw, err := c.listCollections(ctx)
	if err != nil {
		return false, err
	}
	col := findCollectionByID(raw, id)
	if col == nil {
		return false, media.NotFound("collection " + id)
	}
	ids, key := collectionItemIDs(col)
	if !contains(ids, itemID) {
		return false, nil
	}
	kept := make([]string, 0, len(ids)-1)
	for _, v := range ids {
		if v != itemID {
			kept = append(kept, v)
		}
	}
	if err := c.updateCollectionItems(ctx, id, kept, key); err != nil {
		return false, err
	}
	return true, nil
}

// namedFavouritesNames returns the accepted names for a per-user favourites
// collection, preferred spelling first. The en dash variant matches what the
// web UI creates, the plain hyphen variant what older clients created.
func namedFavouritesNames(userName string) []string {
	return []string{
		"Favourites – " + userName,
		"Favourites - " + userName,
	}
}

// AddNamedFavourite adds an item to the per-user "Favourites – <name>"
// collection, creating the collection when absent. Unlike the per-user
// favourites resolver this matches on the exact collection name, not a
// substring, so several users can keep separate lists on a shared server.
func (c *Client) AddNamedFavourite(ctx context.Context, userName, itemID string) (media.Collection, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, media.ListTimeout)
	defer cancel()

	if strings.TrimSpace(userName) == "" {
		return media.Collection{}, false, media.Validationf("user name is required")
	}
	if strings.TrimSpace(itemID) == "" {
		return media.Collection{}, false, media.Validationf("item id is required")
	}

	raw, err := c.listCollections(ctx)
	if err != nil {
		return media.Collection{}, false, err
	}
	names := namedFavouritesNames(userName)
	var target map[string]any
	for _, col := range raw {
		colName := strings.TrimSpace(getString(col, "name"))
		for _, want := range names {
			if strings.EqualFold(colName, want) {
				target = col
				break
			}
		}
		if target != nil {
			break
		}
	}

	if target == nil {
		created, err := c.createCollection(ctx, names[0], "", "", "", itemID)
		if err != nil {
			return media.Collection{}, false, err
		}
		col := toCollection(created)
		if col.ItemCount == 0 {
			col.ItemCount = 1
		}
		return col, true, nil
	}

	ids, key := collectionItemIDs(target)
	if contains(ids, itemID) {
		return toCollection(target), false, nil
	}
	ids = append(ids, itemID)
	if err := c.updateCollectionItems(ctx, collectionID(target), ids, key); err != nil {
		return media.Collection{}, false, err
	}
	col := toCollection(target)
	col.ItemCount = len(ids)
	logging.Info("added item to named favourites", "collection", col.Name, "item_id", itemID)
	return col, true, nil
}

// DeleteCollection removes a collection outright.
func (c *Client) DeleteCollection(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, media.ToggleTimeout)
	defer cancel()

	err := c.send(ctx, http.MethodDelete, "/api/collections/"+id, nil, nil)
	if media.IsUpstreamNotFound(err) {
		return nil
	}
	return err
}
