// Package emby implements the MediaBackend contract for Emby and Jellyfin
// servers. Both speak the same API surface; the adapter only reports the
// configured kind back in server info.
package emby

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"faveswitch/internal/media"
)

type Client struct {
	cfg  media.ServerConfig
	http *http.Client
}

// New builds an Emby/Jellyfin adapter backed by the shared transport pool.
func New(cfg media.ServerConfig, pool *media.TransportPool) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: pool.Client(cfg)}
}

func (c *Client) url(path string) string {
	return c.cfg.BaseURL + path
}

func (c *Client) header() http.Header {
	h := http.Header{}
	h.Set("X-Emby-Token", c.cfg.APIKey)
	return h
}

type embyItem struct {
	ID             string            `json:"Id"`
	Name           string            `json:"Name"`
	Type           string            `json:"Type"`
	ProductionYear *int              `json:"ProductionYear"`
	Overview       string            `json:"Overview"`
	ImageTags      map[string]string `json:"ImageTags"`
	UserData       struct {
		Played     bool `json:"Played"`
		IsFavorite bool `json:"IsFavorite"`
	} `json:"UserData"`
}

type embyItemsResp struct {
	Items []embyItem `json:"Items"`
	Total int        `json:"TotalRecordCount"`
}

func (it embyItem) toItem() media.Item {
	tags := it.ImageTags
	if tags == nil {
		tags = map[string]string{}
	}
	return media.Item{
		ID:             it.ID,
		Name:           it.Name,
		Type:           it.Type,
		ProductionYear: it.ProductionYear,
		Overview:       it.Overview,
		ImageTags:      tags,
		UserData:       media.UserData{Played: it.UserData.Played},
	}
}

func (c *Client) GetServerInfo(ctx context.Context) (*media.SystemInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, media.ListTimeout)
	defer cancel()

	var info struct {
		ServerName string `json:"ServerName"`
		Version    string `json:"Version"`
	}
	err := media.DoJSON(ctx, c.http, media.Request{URL: c.url("/System/Info"), Header: c.header()}, &info)
	if err != nil {
		return nil, err
	}
	name := info.ServerName
	if name == "" {
		name = media.TitleCase(string(c.cfg.Type))
	}
	return &media.SystemInfo{Name: name, Version: info.Version, ServerType: c.cfg.Type}, nil
}

func (c *Client) GetUsers(ctx context.Context) ([]media.User, error) {
	ctx, cancel := context.WithTimeout(ctx, media.ListTimeout)
	defer cancel()

	raw, _, err := media.DoRaw(ctx, c.http, media.Request{URL: c.url("/Users"), Header: c.header()})
	if err != nil {
		return nil, err
	}
	// Emby returns a bare array, some proxies wrap it in an Items envelope.
	users, err := decodeUsers(raw)
	if err != nil {
		return nil, media.Upstreamf("decode users from %s: %w", c.url("/Users"), err)
	}
	return users, nil
}

func (c *Client) GetLibraries(ctx context.Context) ([]media.Library, error) {
	ctx, cancel := context.WithTimeout(ctx, media.ListTimeout)
	defer cancel()

	raw, _, err := media.DoRaw(ctx, c.http, media.Request{URL: c.url("/Library/VirtualFolders"), Header: c.header()})
	if err != nil {
		return nil, err
	}
	folders, err := decodeVirtualFolders(raw)
	if err != nil {
		return nil, media.Upstreamf("decode virtual folders from %s: %w", c.url("/Library/VirtualFolders"), err)
	}
	return folders, nil
}

func (c *Client) GetItems(ctx context.Context, q media.ItemQuery) ([]media.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, media.WideTimeout)
	defer cancel()

	limit := q.Limit
	if limit <= 0 {
		limit = media.DefaultLimit
	}

	params := url.Values{}
	params.Set("Recursive", "true")
	params.Set("IncludeItemTypes", "Movie,Series,AudioBook")
	params.Set("StartIndex", "0")
	params.Set("SortBy", "SortName")
	params.Set("SortOrder", "Ascending")
	params.Set("Fields", "Overview,Path,MediaSources,UserData")
	if q.ParentID != "" {
		params.Set("ParentId", q.ParentID)
	}
	if q.Search != "" {
		// Upstream search is fuzzy word matching, so over-fetch and narrow to
		// substring matches on Name afterwards.
		params.Set("SearchTerm", q.Search)
		params.Set("Limit", strconv.Itoa(limit*3))
	} else {
		params.Set("Limit", strconv.Itoa(limit))
	}

	var resp embyItemsResp
	err := media.DoJSON(ctx, c.http, media.Request{URL: c.url("/Items"), Query: params, Header: c.header()}, &resp)
	if err != nil {
		return nil, err
	}

	items := make([]media.Item, 0, len(resp.Items))
	needle := strings.ToLower(q.Search)
	for _, it := range resp.Items {
		if q.Search != "" && !strings.Contains(strings.ToLower(it.Name), needle) {
			continue
		}
		items = append(items, it.toItem())
		if len(items) >= limit {
			break
		}
	}
	return items, nil
}

func (c *Client) GetFavorites(ctx context.Context, userID string) ([]media.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, media.ListTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("Filters", "IsFavorite")
	params.Set("Recursive", "true")
	params.Set("Fields", "Overview,Path,UserData")

	var resp embyItemsResp
	endpoint := c.url(fmt.Sprintf("/Users/%s/Items", url.PathEscape(userID)))
	if err := media.DoJSON(ctx, c.http, media.Request{URL: endpoint, Query: params, Header: c.header()}, &resp); err != nil {
		return nil, err
	}
	items := make([]media.Item, 0, len(resp.Items))
	for _, it := range resp.Items {
		items = append(items, it.toItem())
	}
	return items, nil
}

func (c *Client) AddFavorite(ctx context.Context, userID, itemID string, _ media.FavoriteHints) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, media.ToggleTimeout)
	defer cancel()

	already, err := c.isFavorite(ctx, userID, itemID)
	if err != nil {
		return false, err
	}
	if already {
		return false, nil
	}

	endpoint := c.url(fmt.Sprintf("/Users/%s/FavoriteItems/%s", url.PathEscape(userID), url.PathEscape(itemID)))
	if err := media.DoJSON(ctx, c.http, media.Request{Method: http.MethodPost, URL: endpoint, Header: c.header()}, nil); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) RemoveFavorite(ctx context.Context, userID, itemID string) error {
	ctx, cancel := context.WithTimeout(ctx, media.ToggleTimeout)
	defer cancel()

	endpoint := c.url(fmt.Sprintf("/Users/%s/FavoriteItems/%s", url.PathEscape(userID), url.PathEscape(itemID)))
	err := media.DoJSON(ctx, c.http, media.Request{Method: http.MethodDelete, URL: endpoint, Header: c.header()}, nil)
	if media.IsUpstreamNotFound(err) {
		// Removing a non-favorite is not an error.
		return nil
	}
	return err
}

func (c *Client) isFavorite(ctx context.Context, userID, itemID string) (bool, error) {
	var it embyItem
	endpoint := c.url(fmt.Sprintf("/Users/%s/Items/%s", url.PathEscape(userID), url.PathEscape(itemID)))
	err := media.DoJSON(ctx, c.http, media.Request{URL: endpoint, Header: c.header()}, &it)
	if media.IsUpstreamNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return it.UserData.IsFavorite, nil
}

func (c *Client) GetRecent(ctx context.Context, parentID string, limit int) ([]media.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, media.ListTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}
	params := url.Values{}
	params.Set("Limit", strconv.Itoa(limit))
	params.Set("Recursive", "true")
	params.Set("SortBy", "DateCreated")
	params.Set("SortOrder", "Descending")
	params.Set("Fields", "Overview,Path,UserData")
	if parentID != "" {
		params.Set("ParentId", parentID)
	}

	var resp embyItemsResp
	if err := media.DoJSON(ctx, c.http, media.Request{URL: c.url("/Items"), Query: params, Header: c.header()}, &resp); err != nil {
		return nil, err
	}
	items := make([]media.Item, 0, len(resp.Items))
	for _, it := range resp.Items {
		items = append(items, it.toItem())
	}
	return items, nil
}

func (c *Client) FetchImage(ctx context.Context, itemID, kind string, maxWidth int) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, media.WideTimeout)
	defer cancel()

	if kind == "" {
		kind = "Primary"
	}
	if maxWidth <= 0 {
		maxWidth = 300
	}
	params := url.Values{}
	params.Set("maxWidth", strconv.Itoa(maxWidth))
	params.Set("api_key", c.cfg.APIKey)
	endpoint := c.url(fmt.Sprintf("/Items/%s/Images/%s", url.PathEscape(itemID), url.PathEscape(kind)))
	return media.DoRaw(ctx, c.http, media.Request{URL: endpoint, Query: params})
}
