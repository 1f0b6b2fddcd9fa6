// Package abs implements the MediaBackend contract for Audiobookshelf.
// Audiobookshelf has no native favorite flag; favorites live in a resolved
// favourites collection, with an item-tag fallback when collection operations
// fail.
package abs

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"faveswitch/internal/media"
)

// Audiobookshelf payload shapes drift across versions, so generic JSON maps
// plus explicit, ordered key strategies are used instead of rigid structs.
// The ordering of each strategy list is a behavioral contract.

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asList(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}

// stringify renders scalar JSON values the way ids are compared: numbers
// without a trailing ".0", everything else via fmt.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func getString(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		return stringify(v)
	}
	return ""
}

func getMap(m map[string]any, key string) map[string]any {
	if inner, ok := asMap(m[key]); ok {
		return inner
	}
	return nil
}

func getList(m map[string]any, key string) ([]any, bool) {
	return asList(m[key])
}

func mapList(v any) []map[string]any {
	list, ok := asList(v)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, entry := range list {
		if m, ok := asMap(entry); ok {
			out = append(out, m)
		}
	}
	return out
}

// normalizeList unwraps a response that is either a bare list or a map with
// the list under one of the given keys, tried in order.
func normalizeList(data any, keys ...string) []map[string]any {
	if list := mapList(data); list != nil {
		return list
	}
	if m, ok := asMap(data); ok {
		for _, key := range keys {
			if _, ok := asList(m[key]); ok {
				return mapList(m[key])
			}
		}
	}
	return []map[string]any{}
}

func normalizeCollections(data any) []map[string]any {
	return normalizeList(data, "collections", "results", "items")
}

func normalizeUsers(data any) []map[string]any {
	return normalizeList(data, "users", "results", "items")
}

func normalizeItems(data any) []map[string]any {
	return normalizeList(data, "items", "results", "libraryItems")
}

// filterCollectionsByUser keeps collections whose user field matches userID.
// Soft by default: an empty filtered result falls back to the full list so
// filtering can never make a favourites collection disappear. Strict mode
// returns the filtered list regardless.
func filterCollectionsByUser(collections []map[string]any, userID string, strict bool) []map[string]any {
	if userID == "" {
		return collections
	}
	userKeys := []string{"userId", "ownerId", "user"}
	var filtered []map[string]any
	for _, col := range collections {
		for _, key := range userKeys {
			if v, ok := col[key]; ok && stringify(v) == userID {
				filtered = append(filtered, col)
				break
			}
		}
	}
	if len(filtered) > 0 || strict {
		return filtered
	}
	return collections
}

// findFavouritesCollection returns the first collection whose name contains
// "favorite" or "favourite", case-insensitive. First match wins.
func findFavouritesCollection(collections []map[string]any) map[string]any {
	for _, col := range collections {
		name := strings.ToLower(strings.TrimSpace(getString(col, "name")))
		if strings.Contains(name, "favorite") || strings.Contains(name, "favourite") {
			return col
		}
	}
	return nil
}

// collectionID extracts a collection id from the common field variants.
func collectionID(col map[string]any) string {
	if col == nil {
		return ""
	}
	for _, key := range []string{"id", "_id", "collectionId"} {
		if id := getString(col, key); id != "" {
			return id
		}
	}
	return ""
}

func findCollectionByID(collections []map[string]any, id string) map[string]any {
	for _, col := range collections {
		if collectionID(col) == id {
			return col
		}
	}
	return nil
}

// defaultItemIDsKey is the write-back key used when no extraction strategy
// matched the collection payload.
const defaultItemIDsKey = "libraryItemIds"

// collectionItemIDs extracts member item ids from a collection payload and
// returns the key to write the updated list back under. Strategies in order:
// a "books" array (entry id/libraryItemId, raw ids for non-objects), then the
// plain id lists "libraryItemIds" and "itemIds", then a generic "items" array.
func collectionItemIDs(col map[string]any) ([]string, string) {
	if col == nil {
		return []string{}, defaultItemIDsKey
	}

	if books, ok := getList(col, "books"); ok {
		ids := make([]string, 0, len(books))
		for _, book := range books {
			if m, isMap := asMap(book); isMap {
				id := getString(m, "id")
				if id == "" {
					id = getString(m, "libraryItemId")
				}
				if id != "" {
					ids = append(ids, id)
				}
				continue
			}
			ids = append(ids, stringify(book))
		}
		return ids, "books"
	}

	for _, key := range []string{"libraryItemIds", "itemIds"} {
		if list, ok := getList(col, key); ok {
			ids := make([]string, 0, len(list))
			for _, v := range list {
				ids = append(ids, stringify(v))
			}
			return ids, key
		}
	}

	if items, ok := getList(col, "items"); ok {
		ids := make([]string, 0, len(items))
		for _, entry := range items {
			if m, isMap := asMap(entry); isMap {
				id := getString(m, "id")
				if id == "" {
					id = getString(m, "libraryItemId")
				}
				if id != "" {
					ids = append(ids, id)
				}
			}
		}
		return ids, defaultItemIDsKey
	}

	return []string{}, defaultItemIDsKey
}

// progressKeys are the progress-object key variants, tried top-level first and
// then nested under "media".
var progressKeys = []string{"progress", "mediaProgress", "userMediaProgress"}

// itemPlayed reports whether an item is finished: any completion flag on the
// progress object, or a completion ratio of 1 or more.
func itemPlayed(item map[string]any) bool {
	var progress map[string]any
	for _, key := range progressKeys {
		if p := getMap(item, key); p != nil {
			progress = p
			break
		}
	}
	if progress == nil {
		if m := getMap(item, "media"); m != nil {
			for _, key := range progressKeys {
				if p := getMap(m, key); p != nil {
					progress = p
					break
				}
			}
		}
	}
	if progress == nil {
		return false
	}
	for _, key := range []string{"isFinished", "isComplete", "completed", "finished"} {
		if truthy(progress[key]) {
			return true
		}
	}
	if pct, ok := progress["percentComplete"].(float64); ok && pct >= 1 {
		return true
	}
	if ratio, ok := progress["progress"].(float64); ok && ratio >= 1 {
		return true
	}
	return false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return false
	}
}

// toItem maps an Audiobookshelf library item payload to the canonical shape.
// mediaType "book" becomes Audiobook, everything else Podcast.
func toItem(item map[string]any) media.Item {
	meta := map[string]any{}
	m := getMap(item, "media")
	if m != nil {
		if md := getMap(m, "metadata"); md != nil {
			meta = md
		}
	}

	name := getString(meta, "title")
	if name == "" {
		name = "Unknown"
	}
	itemType := "Podcast"
	if getString(item, "mediaType") == "book" {
		itemType = "Audiobook"
	}

	var year *int
	if v, ok := meta["publishedYear"]; ok {
		if parsed, err := strconv.Atoi(stringify(v)); err == nil {
			year = &parsed
		}
	}

	imageTags := map[string]string{}
	if m != nil && getString(m, "coverPath") != "" {
		imageTags["Primary"] = "cover"
	}

	var tags []string
	if m != nil {
		if list, ok := getList(m, "tags"); ok {
			for _, t := range list {
				tags = append(tags, stringify(t))
			}
		}
	}

	return media.Item{
		ID:             getString(item, "id"),
		Name:           name,
		Type:           itemType,
		ProductionYear: year,
		Overview:       getString(meta, "description"),
		ImageTags:      imageTags,
		Tags:           tags,
		UserData:       media.UserData{Played: itemPlayed(item)},
	}
}

// itemLibraryID extracts the owning library id from an item detail payload.
func itemLibraryID(detail map[string]any) string {
	if detail == nil {
		return ""
	}
	if id := getString(detail, "libraryId"); id != "" {
		return id
	}
	if lib := getMap(detail, "library"); lib != nil {
		if id := getString(lib, "id"); id != "" {
			return id
		}
	}
	if m := getMap(detail, "media"); m != nil {
		return getString(m, "libraryId")
	}
	return ""
}

// itemCollectionIDs extracts collection ids from an item detail payload.
func itemCollectionIDs(detail map[string]any) []string {
	if detail == nil {
		return []string{}
	}
	var candidates []any
	for _, key := range []string{"collections", "collectionIds", "collectionsIds"} {
		if list, ok := getList(detail, key); ok && len(list) > 0 {
			candidates = list
			break
		}
	}
	if candidates == nil {
		if m := getMap(detail, "media"); m != nil {
			if list, ok := getList(m, "collections"); ok {
				candidates = list
			}
		}
	}
	ids := make([]string, 0, len(candidates))
	for _, v := range candidates {
		if v != nil {
			ids = append(ids, stringify(v))
		}
	}
	return ids
}

// mergeSearchResults flattens a per-library search response. Hits may appear
// under any of the book/podcast/audiobook/libraryItems keys or as a bare list,
// and entries may wrap the item in a "libraryItem" object.
func mergeSearchResults(data any) []map[string]any {
	var entries []map[string]any
	if list := mapList(data); list != nil {
		entries = list
	} else if m, ok := asMap(data); ok {
		for _, key := range []string{"book", "podcast", "audiobook", "libraryItems"} {
			if list, ok := asList(m[key]); ok {
				entries = append(entries, mapList(list)...)
			}
		}
	}

	out := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		if wrapped := getMap(entry, "libraryItem"); wrapped != nil {
			out = append(out, wrapped)
			continue
		}
		out = append(out, entry)
	}
	return out
}
