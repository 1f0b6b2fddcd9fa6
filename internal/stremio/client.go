// Package stremio implements the MediaBackend contract for Stremio's RPC-style
// API. Stremio has no favorite flag and no multi-user concept, so favorite
// writes report NotSupported and user listing returns a single synthetic user.
package stremio

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"faveswitch/internal/media"
)

// SyntheticUserID identifies the single account behind an auth key.
const SyntheticUserID = "self"

type Client struct {
	cfg  media.ServerConfig
	http *http.Client
}

func New(cfg media.ServerConfig, pool *media.TransportPool) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: pool.Client(cfg)}
}

type rpcEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// rpc posts a method call and unwraps the result/error envelope. The auth key
// rides in the body, which is why request logging must never include bodies.
func (c *Client) rpc(ctx context.Context, method string, params map[string]any, dst any) error {
	body := map[string]any{"authKey": c.cfg.Credential()}
	for k, v := range params {
		body[k] = v
	}
	var envelope rpcEnvelope
	err := media.DoJSON(ctx, c.http, media.Request{
		Method: http.MethodPost,
		URL:    c.cfg.BaseURL + "/api/" + method,
		Body:   body,
	}, &envelope)
	if err != nil {
		return err
	}
	if envelope.Error != nil {
		return media.Upstreamf("stremio %s: %s (code %d)", method, envelope.Error.Message, envelope.Error.Code)
	}
	if dst == nil || len(envelope.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, dst); err != nil {
		return media.Upstreamf("decode stremio %s result: %w", method, err)
	}
	return nil
}

type libraryItem struct {
	ID       string  `json:"_id"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Year     *int    `json:"year"`
	Overview string  `json:"description"`
	Poster   string  `json:"poster"`
	State    string  `json:"state"`
	Progress float64 `json:"progress"`
	MTime    string  `json:"_mtime"`
}

func (i libraryItem) played() bool {
	return i.State == "completed" || i.Progress > 0
}

func (i libraryItem) toItem() media.Item {
	name := i.Name
	if name == "" {
		name = "Unknown"
	}
	itemType := media.TitleCase(i.Type)
	if itemType == "" {
		itemType = "Other"
	}
	imageTags := map[string]string{}
	if i.Poster != "" {
		imageTags["Primary"] = "poster"
	}
	return media.Item{
		ID:             i.ID,
		Name:           name,
		Type:           itemType,
		ProductionYear: i.Year,
		Overview:       i.Overview,
		ImageTags:      imageTags,
		UserData:       media.UserData{Played: i.played()},
	}
}

// libraryItems fetches the account's full library through the datastore RPC.
func (c *Client) libraryItems(ctx context.Context) ([]libraryItem, error) {
	var items []libraryItem
	err := c.rpc(ctx, "datastoreGet", map[string]any{
		"collection": "libraryItem",
		"all":        true,
	}, &items)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) GetServerInfo(ctx context.Context) (*media.SystemInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, media.ListTimeout)
	defer cancel()

	var meta struct {
		Count int `json:"count"`
	}
	err := c.rpc(ctx, "datastoreMeta", map[string]any{"collection": "libraryItem"}, &meta)
	if err != nil {
		return nil, err
	}
	name := c.cfg.Name
	if name == "" {
		name = "Stremio"
	}
	return &media.SystemInfo{Name: name, ServerType: media.ServerTypeStremio}, nil
}

func (c *Client) GetUsers(ctx context.Context) ([]media.User, error) {
	return []media.User{{ID: SyntheticUserID, Name: "Stremio"}}, nil
}

func (c *Client) GetLibraries(ctx context.Context) ([]media.Library, error) {
	return []media.Library{{ID: "library", Name: "Library"}}, nil
}

func (c *Client) GetItems(ctx context.Context, q media.ItemQuery) ([]media.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, media.WideTimeout)
	defer cancel()

	limit := q.Limit
	if limit <= 0 {
		limit = media.DefaultLimit
	}
	raw, err := c.libraryItems(ctx)
	if err != nil {
		return nil, err
	}

	term := strings.ToLower(q.Search)
	items := make([]media.Item, 0, len(raw))
	for _, entry := range raw {
		if term != "" && !strings.Contains(strings.ToLower(entry.Name), term) {
			continue
		}
		items = append(items, entry.toItem())
		if len(items) >= limit {
			break
		}
	}
	return items, nil
}

// GetFavorites is always empty: reads succeed so aggregate views keep working,
// only writes are rejected.
func (c *Client) GetFavorites(ctx context.Context, userID string) ([]media.Item, error) {
	return []media.Item{}, nil
}

func (c *Client) AddFavorite(ctx context.Context, userID, itemID string, hints media.FavoriteHints) (bool, error) {
	return false, media.NotSupportedf("stremio does not support favorites")
}

func (c *Client) RemoveFavorite(ctx context.Context, userID, itemID string) error {
	return media.NotSupportedf("stremio does not support favorites")
}

func (c *Client) GetRecent(ctx context.Context, parentID string, limit int) ([]media.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, media.WideTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}
	raw, err := c.libraryItems(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(raw, func(i, j int) bool { return raw[i].MTime > raw[j].MTime })
	if len(raw) > limit {
		raw = raw[:limit]
	}
	items := make([]media.Item, 0, len(raw))
	for _, entry := range raw {
		items = append(items, entry.toItem())
	}
	return items, nil
}

// FetchImage proxies the item's poster URL, which lives on a third-party CDN
// rather than the Stremio API host.
func (c *Client) FetchImage(ctx context.Context, itemID, kind string, maxWidth int) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, media.WideTimeout)
	defer cancel()

	raw, err := c.libraryItems(ctx)
	if err != nil {
		return nil, "", err
	}
	for _, entry := range raw {
		if entry.ID == itemID && entry.Poster != "" {
			return media.DoRaw(ctx, c.http, media.Request{URL: entry.Poster})
		}
	}
	return nil, "", media.NotFound("image for item " + itemID)
}
