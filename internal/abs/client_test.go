package abs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"faveswitch/internal/media"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := media.ServerConfig{
		ID:      "abs1",
		Type:    media.ServerTypeAudiobookshelf,
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Enabled: true,
	}
	return New(cfg, media.NewTransportPool(2)), srv
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestGetFavoritesFromCollection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/collections", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"results": []any{
			map[string]any{"id": "c1", "name": "Sci-Fi", "libraryItemIds": []string{"x"}},
			map[string]any{"id": "c2", "name": "Favourites", "userId": "u1", "libraryItemIds": []string{"li_1", "li_2"}},
		}})
	})
	mux.HandleFunc("/api/items/li_1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"id": "li_1", "mediaType": "book",
			"media": map[string]any{"metadata": map[string]any{"title": "Dune"}},
		})
	})
	mux.HandleFunc("/api/items/li_2", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})

	client, _ := newTestClient(t, mux)
	items, err := client.GetFavorites(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetFavorites failed: %v", err)
	}
	// li_2 no longer resolves and is skipped.
	if len(items) != 1 {
		t.Fatalf("Expected 1 favorite, got %d", len(items))
	}
	if items[0].Name != "Dune" {
		t.Errorf("Expected Dune, got %s", items[0].Name)
	}
}

func TestGetFavoritesNoCollection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/collections", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []any{map[string]any{"id": "c1", "name": "Sci-Fi"}})
	})

	client, _ := newTestClient(t, mux)
	items, err := client.GetFavorites(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetFavorites failed: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("Expected empty non-nil slice, got %v", items)
	}
}

func TestAddFavoriteCreatesCollection(t *testing.T) {
	var createdBody map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("/api/collections", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewDecoder(r.Body).Decode(&createdBody)
			writeJSON(w, map[string]any{
				"id": "c9", "name": createdBody["name"],
				"books": []any{map[string]any{"id": "li_1"}},
			})
			return
		}
		writeJSON(w, []any{})
	})
	mux.HandleFunc("/api/items/li_1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"id": "li_1", "libraryId": "lib7"})
	})

	client, _ := newTestClient(t, mux)
	added, err := client.AddFavorite(context.Background(), "u1", "li_1", media.FavoriteHints{UserName: "Alice"})
	if err != nil {
		t.Fatalf("AddFavorite failed: %v", err)
	}
	if !added {
		t.Error("Expected added=true for fresh collection")
	}
	if createdBody == nil {
		t.Fatal("Expected a collection create call")
	}
	if createdBody["name"] != "Alice's Favourites" {
		t.Errorf("Expected collection named after the user, got %v", createdBody["name"])
	}
	// Library resolved from the seed item detail.
	if createdBody["libraryId"] != "lib7" {
		t.Errorf("Expected libraryId lib7 from seed item, got %v", createdBody["libraryId"])
	}
	if createdBody["userId"] != "u1" {
		t.Errorf("Expected userId u1, got %v", createdBody["userId"])
	}
}

func TestAddFavoriteIdempotent(t *testing.T) {
	patched := false
	mux := http.NewServeMux()
	mux.HandleFunc("/api/collections", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []any{
			map[string]any{"id": "c1", "name": "Favourites", "libraryItemIds": []string{"li_1"}},
		})
	})
	mux.HandleFunc("/api/collections/c1", func(w http.ResponseWriter, r *http.Request) {
		patched = true
		writeJSON(w, map[string]any{})
	})

	client, _ := newTestClient(t, mux)
	added, err := client.AddFavorite(context.Background(), "u1", "li_1", media.FavoriteHints{})
	if err != nil {
		t.Fatalf("AddFavorite failed: %v", err)
	}
	if added {
		t.Error("Expected added=false for existing member")
	}
	if patched {
		t.Error("Expected no write for existing member")
	}
}

func TestAddFavoriteWritesBackUnderReadKey(t *testing.T) {
	var patchBody map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/api/collections", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []any{
			map[string]any{"id": "c1", "name": "Favourites", "itemIds": []string{"a"}},
		})
	})
	mux.HandleFunc("/api/collections/c1", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&patchBody)
		writeJSON(w, map[string]any{})
	})

	client, _ := newTestClient(t, mux)
	added, err := client.AddFavorite(context.Background(), "u1", "b", media.FavoriteHints{})
	if err != nil {
		t.Fatalf("AddFavorite failed: %v", err)
	}
	if !added {
		t.Error("Expected added=true")
	}
	ids, ok := patchBody["itemIds"].([]any)
	if !ok {
		t.Fatalf("Expected write under itemIds, got body %v", patchBody)
	}
	if len(ids) != 2 || ids[1] != "b" {
		t.Errorf("Expected [a b], got %v", ids)
	}
}

func TestAddFavoriteTagFallback(t *testing.T) {
	var tagBody map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/api/collections", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "collections disabled", http.StatusInternalServerError)
	})
	mux.HandleFunc("/api/items/li_1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"id":    "li_1",
			"media": map[string]any{"tags": []any{"signed"}},
		})
	})
	mux.HandleFunc("/api/items/li_1/media", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&tagBody)
		writeJSON(w, map[string]any{})
	})

	client, _ := newTestClient(t, mux)
	added, err := client.AddFavorite(context.Background(), "u1", "li_1", media.FavoriteHints{})
	if err != nil {
		t.Fatalf("Expected tag fallback to succeed, got %v", err)
	}
	if !added {
		t.Error("Expected added=true via tag fallback")
	}
	tags, ok := tagBody["tags"].([]any)
	if !ok || len(tags) != 2 || tags[1] != "Favorite" {
		t.Errorf("Expected Favorite tag appended, got %v", tagBody)
	}
}

func TestRemoveFavoriteAbsentIsNoop(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/collections", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []any{
			map[string]any{"id": "c1", "name": "Favourites", "libraryItemIds": []string{"other"}},
		})
	})

	client, _ := newTestClient(t, mux)
	if err := client.RemoveFavorite(context.Background(), "u1", "li_1"); err != nil {
		t.Fatalf("Expected no-op remove to succeed, got %v", err)
	}
}

func TestSearchMergesPerLibraryResults(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/libraries", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"libraries": []any{
			map[string]any{"id": "lib1", "name": "Books", "mediaType": "book"},
			map[string]any{"id": "lib2", "name": "Podcasts", "mediaType": "podcast"},
		}})
	})
	mux.HandleFunc("/api/libraries/lib1/search", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "dune" {
			t.Errorf("Expected q=dune, got %q", got)
		}
		writeJSON(w, map[string]any{"book": []any{
			map[string]any{"libraryItem": map[string]any{
				"id": "b1", "mediaType": "book",
				"media": map[string]any{"metadata": map[string]any{"title": "Dune"}},
			}},
		}})
	})
	mux.HandleFunc("/api/libraries/lib2/search", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	client, _ := newTestClient(t, mux)
	items, err := client.GetItems(context.Background(), media.ItemQuery{Search: "dune", Limit: 10})
	if err != nil {
		t.Fatalf("GetItems search failed: %v", err)
	}
	// lib2 failing is logged and skipped, lib1's hit survives.
	if len(items) != 1 || items[0].Name != "Dune" {
		t.Errorf("Expected single Dune hit, got %v", items)
	}
}

func TestGetServerInfo(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"serverVersion":  "2.12.0",
			"serverSettings": map[string]any{"name": "Shelf"},
		})
	})

	client, _ := newTestClient(t, mux)
	info, err := client.GetServerInfo(context.Background())
	if err != nil {
		t.Fatalf("GetServerInfo failed: %v", err)
	}
	if info.Name != "Shelf" || info.Version != "2.12.0" {
		t.Errorf("Unexpected info %+v", info)
	}
	if info.ServerType != media.ServerTypeAudiobookshelf {
		t.Errorf("Expected audiobookshelf type, got %s", info.ServerType)
	}
}

func TestAddNamedFavouriteExactMatch(t *testing.T) {
	var patchBody map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/api/collections", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []any{
			// Substring noise that must not match an exact-name lookup.
			map[string]any{"id": "c1", "name": "Kids Favourites", "libraryItemIds": []string{"z"}},
			map[string]any{"id": "c2", "name": "Favourites – Alice", "libraryItemIds": []string{"a"}},
		})
	})
	mux.HandleFunc("/api/collections/c2", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&patchBody)
		writeJSON(w, map[string]any{})
	})

	client, _ := newTestClient(t, mux)
	col, added, err := client.AddNamedFavourite(context.Background(), "Alice", "b")
	if err != nil {
		t.Fatalf("AddNamedFavourite failed: %v", err)
	}
	if !added {
		t.Error("Expected added=true")
	}
	if col.ID != "c2" {
		t.Errorf("Expected exact-name collection c2, got %s", col.ID)
	}
	if col.ItemCount != 2 {
		t.Errorf("Expected item count 2, got %d", col.ItemCount)
	}
	ids, _ := patchBody["libraryItemIds"].([]any)
	if len(ids) != 2 {
		t.Errorf("Expected 2 member ids written, got %v", patchBody)
	}
}

func TestAddNamedFavouriteValidation(t *testing.T) {
	client, _ := newTestClient(t, http.NewServeMux())
	if _, _, err := client.AddNamedFavourite(context.Background(), "", "li_1"); err == nil {
		t.Error("Expected validation error for empty user name")
	}
	if _, _, err := client.AddNamedFavourite(context.Background(), "Alice", " "); err == nil {
		t.Error("Expected validation error for empty item id")
	}
}

func TestGetServerInfoHonorsCallerDeadline(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		writeJSON(w, map[string]any{"serverVersion": "2.12.0"})
	})
	client, _ := newTestClient(t, mux)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := client.GetServerInfo(ctx); err == nil {
		t.Fatal("Expected a deadline error, got nil")
	}
}
