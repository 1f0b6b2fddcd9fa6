package abs

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"faveswitch/internal/logging"
	"faveswitch/internal/media"
)

type Client struct {
	cfg  media.ServerConfig
	http *http.Client
}

func New(cfg media.ServerConfig, pool *media.TransportPool) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: pool.Client(cfg)}
}

func (c *Client) header() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.cfg.Credential())
	h.Set("Accept", "application/json")
	return h
}

func (c *Client) get(ctx context.Context, path string, query url.Values, dst any) error {
	return media.DoJSON(ctx, c.http, media.Request{
		Method: http.MethodGet,
		URL:    c.cfg.BaseURL + path,
		Query:  query,
		Header: c.header(),
	}, dst)
}

func (c *Client) send(ctx context.Context, method, path string, body any, dst any) error {
	return media.DoJSON(ctx, c.http, media.Request{
		Method: method,
		URL:    c.cfg.BaseURL + path,
		Header: c.header(),
		Body:   body,
	}, dst)
}

func (c *Client) GetServerInfo(ctx context.Context) (*media.SystemInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, media.ListTimeout)
	defer cancel()

	var data any
	if err := c.get(ctx, "/api/status", nil, &data); err != nil {
		return nil, err
	}
	info := media.SystemInfo{Name: "Audiobookshelf", ServerType: media.ServerTypeAudiobookshelf}
	if m, ok := asMap(data); ok {
		if settings := getMap(m, "serverSettings"); settings != nil {
			if name := getString(settings, "name"); name != "" {
				info.Name = name
			}
		}
		info.Version = getString(m, "serverVersion")
		if info.Version == "" {
			info.Version = getString(m, "version")
		}
	}
	return &info, nil
}

func (c *Client) GetUsers(ctx context.Context) ([]media.User, error) {
	ctx, cancel := context.WithTimeout(ctx, media.ListTimeout)
	defer cancel()

	var data any
	if err := c.get(ctx, "/api/users", nil, &data); err != nil {
		return nil, err
	}
	raw := normalizeUsers(data)
	users := make([]media.User, 0, len(raw))
	for _, u := range raw {
		name := getString(u, "username")
		if name == "" {
			name = "Unknown"
		}
		users = append(users, media.User{ID: getString(u, "id"), Name: name})
	}
	return users, nil
}

func (c *Client) GetLibraries(ctx context.Context) ([]media.Library, error) {
	ctx, cancel := context.WithTimeout(ctx, media.ListTimeout)
	defer cancel()

	var data any
	if err := c.get(ctx, "/api/libraries", nil, &data); err != nil {
		return nil, err
	}
	raw := normalizeList(data, "libraries", "results", "items")
	libs := make([]media.Library, 0, len(raw))
	for _, l := range raw {
		libs = append(libs, media.Library{
			ID:             getString(l, "id"),
			Name:           getString(l, "name"),
			CollectionType: getString(l, "mediaType"),
		})
	}
	return libs, nil
}

func (c *Client) libraryItems(ctx context.Context, libraryID string, limit int) ([]map[string]any, error) {
	var data any
	err := c.get(ctx, "/api/libraries/"+libraryID+"/items", url.Values{
		"limit": {strconv.Itoa(limit)},
	}, &data)
	if err != nil {
		return nil, err
	}
	return normalizeItems(data), nil
}

func (c *Client) GetItems(ctx context.Context, q media.ItemQuery) ([]media.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, media.WideTimeout)
	defer cancel()

	limit := q.Limit
	if limit <= 0 {
		limit = media.DefaultABSLimit
	}

	if q.Search != "" {
		return c.search(ctx, q.Search, limit)
	}

	if q.ParentID != "" {
		raw, err := c.libraryItems(ctx, q.ParentID, limit)
		if err != nil {
			return nil, err
		}
		return itemsOf(raw, limit), nil
	}

	libs, err := c.GetLibraries(ctx)
	if err != nil {
		return nil, err
	}
	var all []map[string]any
	for _, lib := range libs {
		raw, err := c.libraryItems(ctx, lib.ID, limit)
		if err != nil {
			logging.Warn("library listing failed", "library_id", lib.ID, "error", err)
			continue
		}
		all = append(all, raw...)
		if len(all) >= limit {
			break
		}
	}
	return itemsOf(all, limit), nil
}

func (c *Client) search(ctx context.Context, term string, limit int) ([]media.Item, error) {
	libs, err := c.GetLibraries(ctx)
	if err != nil {
		return nil, err
	}
	var all []map[string]any
	for _, lib := range libs {
		var data any
		err := c.get(ctx, "/api/libraries/"+lib.ID+"/search", url.Values{"q": {term}}, &data)
		if err != nil {
			logging.Warn("library search failed", "library_id", lib.ID, "error", err)
			continue
		}
		all = append(all, mergeSearchResults(data)...)
		if len(all) >= limit {
			break
		}
	}
	return itemsOf(all, limit), nil
}

func itemsOf(raw []map[string]any, limit int) []media.Item {
	if len(raw) > limit {
		raw = raw[:limit]
	}
	items := make([]media.Item, 0, len(raw))
	for _, r := range raw {
		items = append(items, toItem(r))
	}
	return items
}

func (c *Client) itemDetail(ctx context.Context, itemID string) (map[string]any, error) {
	var data any
	if err := c.get(ctx, "/api/items/"+itemID, nil, &data); err != nil {
		return nil, err
	}
	m, ok := asMap(data)
	if !ok {
		return nil, media.Upstreamf("unexpected item payload for %s", itemID)
	}
	return m, nil
}

// fetchItems resolves item ids to canonical items, skipping ids that fail to
// load so one stale collection member cannot break the whole listing.
func (c *Client) fetchItems(ctx context.Context, ids []string) []media.Item {
	items := make([]media.Item, 0, len(ids))
	for _, id := range ids {
		detail, err := c.itemDetail(ctx, id)
		if err != nil {
			logging.Warn("skipping unresolvable item", "item_id", id, "error", err)
			continue
		}
		items = append(items, toItem(detail))
	}
	return items
}

func (c *Client) listCollections(ctx context.Context) ([]map[string]any, error) {
	var data any
	if err := c.get(ctx, "/api/collections", nil, &data); err != nil {
		return nil, err
	}
	return normalizeCollections(data), nil
}

// fetchCollection loads a single collection's detail payload. Returns nil
// without error when the collection does not exist.
func (c *Client) fetchCollection(ctx context.Context, id string) (map[string]any, error) {
	var data any
	err := c.get(ctx, "/api/collections/"+id, nil, &data)
	if media.IsUpstreamNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m, ok := asMap(data)
	if !ok {
		return nil, media.Upstreamf("unexpected collection payload for %s", id)
	}
	return m, nil
}

// userCollections lists collections through the per-user endpoint. Servers
// that scope collections per account hide them from the global listing.
func (c *Client) userCollections(ctx context.Context, userID string) ([]map[string]any, error) {
	var data any
	if err := c.get(ctx, "/api/users/"+userID+"/collections", nil, &data); err != nil {
		return nil, err
	}
	return normalizeCollections(data), nil
}

// collectionItemsEndpoint queries the dedicated member-listing endpoint,
// which returns either full item payloads or bare id stubs depending on the
// server version. Failures yield empty results so callers can fall through.
func (c *Client) collectionItemsEndpoint(ctx context.Context, id string) ([]media.Item, []string) {
	var data any
	if err := c.get(ctx, "/api/collections/"+id+"/items", nil, &data); err != nil {
		logging.Warn("collection items endpoint failed", "collection_id", id, "error", err)
		return nil, nil
	}
	raw := normalizeItems(data)
	if len(raw) == 0 {
		return nil, nil
	}
	if getMap(raw[0], "media") != nil {
		items := make([]media.Item, 0, len(raw))
		for _, entry := range raw {
			items = append(items, toItem(entry))
		}
		return items, nil
	}
	ids := make([]string, 0, len(raw))
	for _, entry := range raw {
		memberID := getString(entry, "id")
		if memberID == "" {
			memberID = getString(entry, "libraryItemId")
		}
		if memberID != "" {
			ids = append(ids, memberID)
		}
	}
	return nil, ids
}

// favouritesCollection resolves the favourites collection for a user: list
// collections, soft-filter by user, match by name substring. Returns nil when
// none exists and create is false. The bool reports whether the collection was
// created by this call.
func (c *Client) favouritesCollection(ctx context.Context, userID string, create bool, hints media.FavoriteHints, itemID string) (map[string]any, bool, error) {
	collections, err := c.listCollections(ctx)
	if err != nil {
		return nil, false, err
	}
	scoped := filterCollectionsByUser(collections, userID, false)
	if fav := findFavouritesCollection(scoped); fav != nil {
		return fav, false, nil
	}
	if !create {
		return nil, false, nil
	}

	name := "Favourites"
	if hints.UserName != "" {
		name = hints.UserName + "'s Favourites"
	}
	created, err := c.createCollection(ctx, name, "", userID, hints.LibraryID, itemID)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// createCollection creates a collection, resolving the library id from the
// hint, then the seed item's own library, then the first library on the
// server.
func (c *Client) createCollection(ctx context.Context, name, description, userID, libraryID, seedItemID string) (map[string]any, error) {
	if libraryID == "" && seedItemID != "" {
		if detail, err := c.itemDetail(ctx, seedItemID); err == nil {
			libraryID = itemLibraryID(detail)
		}
	}
	if libraryID == "" {
		libs, err := c.GetLibraries(ctx)
		if err != nil {
			return nil, err
		}
		if len(libs) > 0 {
			libraryID = libs[0].ID
		}
	}
	if libraryID == "" {
		return nil, media.Configurationf("audiobookshelf collection %q needs a library id and none could be resolved", name)
	}

	body := map[string]any{
		"name":      name,
		"libraryId": libraryID,
	}
	if description != "" {
		body["description"] = description
	}
	if seedItemID != "" {
		body["books"] = []string{seedItemID}
	}
	if userID != "" {
		body["userId"] = userID
	}

	var data any
	if err := c.send(ctx, http.MethodPost, "/api/collections", body, &data); err != nil {
		return nil, err
	}
	created, ok := asMap(data)
	if !ok {
		return nil, media.Upstreamf("unexpected create-collection payload for %q", name)
	}
	return created, nil
}

// updateCollectionItems writes a collection's member list back under the key
// it was read from.
func (c *Client) updateCollectionItems(ctx context.Context, id string, ids []string, key string) error {
	if key == "" {
		key = defaultItemIDsKey
	}
	body := map[string]any{key: ids}
	return c.send(ctx, http.MethodPatch, "/api/collections/"+id, body, nil)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (c *Client) GetFavorites(ctx context.Context, userID string) ([]media.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, media.WideTimeout)
	defer cancel()

	fav, _, err := c.favouritesCollection(ctx, userID, false, media.FavoriteHints{}, "")
	if err != nil {
		logging.Warn("favourites collection lookup failed, using tag scan", "error", err)
		return c.favoritesByTag(ctx)
	}
	if fav == nil {
		return []media.Item{}, nil
	}
	ids, _ := collectionItemIDs(fav)
	return c.fetchItems(ctx, ids), nil
}

// favoritesByTag scans all libraries for items carrying a Favorite tag.
func (c *Client) favoritesByTag(ctx context.Context) ([]media.Item, error) {
	libs, err := c.GetLibraries(ctx)
	if err != nil {
		return nil, err
	}
	var out []media.Item
	for _, lib := range libs {
		raw, err := c.libraryItems(ctx, lib.ID, media.DefaultABSLimit)
		if err != nil {
			logging.Warn("tag scan failed for library", "library_id", lib.ID, "error", err)
			continue
		}
		for _, r := range raw {
			item := toItem(r)
			for _, tag := range item.Tags {
				if strings.EqualFold(tag, "favorite") || strings.EqualFold(tag, "favourite") {
					out = append(out, item)
					break
				}
			}
		}
	}
	if out == nil {
		out = []media.Item{}
	}
	return out, nil
}

func (c *Client) AddFavorite(ctx context.Context, userID, itemID string, hints media.FavoriteHints) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, media.ToggleTimeout)
	defer cancel()

	added, err := c.addToFavouritesCollection(ctx, userID, itemID, hints)
	if err == nil {
		return added, nil
	}
	logging.Warn("collection add failed, falling back to tag", "item_id", itemID, "error", err)
	return c.setFavoriteTag(ctx, itemID, true)
}

func (c *Client) addToFavouritesCollection(ctx context.Context, userID, itemID string, hints media.FavoriteHints) (bool, error) {
	fav, created, err := c.favouritesCollection(ctx, userID, true, hints, itemID)
	if err != nil {
		return false, err
	}
	if created {
		// The create call already seeded the item.
		return true, nil
	}
	ids, key := collectionItemIDs(fav)
	if contains(ids, itemID) {
		return false, nil
	}
	ids = append(ids, itemID)
	if err := c.updateCollectionItems(ctx, collectionID(fav), ids, key); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) RemoveFavorite(ctx context.Context, userID, itemID string) error {
	ctx, cancel := context.WithTimeout(ctx, media.ToggleTimeout)
	defer cancel()

	err := c.removeFromFavouritesCollection(ctx, userID, itemID)
	if err == nil {
		return nil
	}
	logging.Warn("collection remove failed, falling back to tag", "item_id", itemID, "error", err)
	_, tagErr := c.setFavoriteTag(ctx, itemID, false)
	return tagErr
}

func (c *Client) removeFromFavouritesCollection(ctx context.Context, userID, itemID string) error {
	fav, _, err := c.favouritesCollection(ctx, userID, false, media.FavoriteHints{}, "")
	if err != nil {
		return err
	}
	if fav == nil {
		return nil
	}
	ids, key := collectionItemIDs(fav)
	if !contains(ids, itemID) {
		return nil
	}
	kept := make([]string, 0, len(ids)-1)
	for _, id := range ids {
		if id != itemID {
			kept = append(kept, id)
		}
	}
	return c.updateCollectionItems(ctx, collectionID(fav), kept, key)
}

// setFavoriteTag adds or removes the Favorite tag on an item's media payload.
// Returns whether the tag set actually changed.
func (c *Client) setFavoriteTag(ctx context.Context, itemID string, favorite bool) (bool, error) {
	detail, err := c.itemDetail(ctx, itemID)
	if err != nil {
		return false, err
	}
	var tags []string
	if m := getMap(detail, "media"); m != nil {
		if list, ok := getList(m, "tags"); ok {
			for _, t := range list {
				tags = append(tags, stringify(t))
			}
		}
	}

	changed := false
	if favorite {
		already := false
		for _, t := range tags {
			if strings.EqualFold(t, "favorite") || strings.EqualFold(t, "favourite") {
				already = true
				break
			}
		}
		if !already {
			tags = append(tags, "Favorite")
			changed = true
		}
	} else {
		kept := tags[:0]
		for _, t := range tags {
			if strings.EqualFold(t, "favorite") || strings.EqualFold(t, "favourite") {
				changed = true
				continue
			}
			kept = append(kept, t)
		}
		tags = kept
	}
	if !changed {
		return false, nil
	}
	if tags == nil {
		tags = []string{}
	}
	err = c.send(ctx, http.MethodPatch, "/api/items/"+itemID+"/media", map[string]any{"tags": tags}, nil)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) GetRecent(ctx context.Context, parentID string, limit int) ([]media.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, media.WideTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}
	libs, err := c.GetLibraries(ctx)
	if err != nil {
		return nil, err
	}
	var all []map[string]any
	for _, lib := range libs {
		if parentID != "" && lib.ID != parentID {
			continue
		}
		var data any
		err := c.get(ctx, "/api/libraries/"+lib.ID+"/items", url.Values{
			"limit": {strconv.Itoa(limit)},
			"sort":  {"addedAt"},
			"desc":  {"1"},
		}, &data)
		if err != nil {
			logging.Warn("recent items failed for library", "library_id", lib.ID, "error", err)
			continue
		}
		all = append(all, normalizeItems(data)...)
		if len(all) >= limit {
			break
		}
	}
	return itemsOf(all, limit), nil
}

func (c *Client) FetchImage(ctx context.Context, itemID, kind string, maxWidth int) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, media.WideTimeout)
	defer cancel()

	query := url.Values{}
	if maxWidth > 0 {
		query.Set("width", strconv.Itoa(maxWidth))
	}
	return media.DoRaw(ctx, c.http, media.Request{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s/api/items/%s/cover", c.cfg.BaseURL, itemID),
		Query:  query,
		Header: c.header(),
	})
}
