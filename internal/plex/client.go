// Package plex implements the MediaBackend contract for Plex Media Server.
// Plex has no native favorite flag; this adapter uses item ratings (10 to set,
// -1 to clear, anything rated 7+ reads as favorited).
package plex

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"faveswitch/internal/media"
)

const rateIdentifier = "com.plexapp.plugins.library"

// Item types excluded from canonical listings.
var disallowedTypes = map[string]bool{
	"episode": true,
	"program": true,
	"person":  true,
}

type Client struct {
	cfg  media.ServerConfig
	http *http.Client
}

// New builds a Plex adapter backed by the shared transport pool.
func New(cfg media.ServerConfig, pool *media.TransportPool) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: pool.Client(cfg)}
}

func (c *Client) url(path string) string {
	return c.cfg.BaseURL + path
}

func (c *Client) header() http.Header {
	h := http.Header{}
	h.Set("X-Plex-Token", c.cfg.Token)
	h.Set("Accept", "application/json")
	return h
}

// plexMeta covers the metadata attributes this gateway reads. JSON decoding is
// case-insensitive, so ViewCount also picks up the lowercase "viewcount"
// variant some Plex responses emit.
type plexMeta struct {
	RatingKey    string  `json:"ratingKey"`
	Title        string  `json:"title"`
	Type         string  `json:"type"`
	Year         *int    `json:"year"`
	Summary      string  `json:"summary"`
	Thumb        string  `json:"thumb"`
	ViewCount    float64 `json:"viewCount"`
	ViewedAt     int64   `json:"viewedAt"`
	LastViewedAt int64   `json:"lastViewedAt"`
	UserRating   float64 `json:"userRating"`
}

type plexContainer struct {
	MediaContainer struct {
		FriendlyName string     `json:"friendlyName"`
		Version      string     `json:"version"`
		Metadata     []plexMeta `json:"Metadata"`
		Account      []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"Account"`
		Directory []struct {
			Key   string `json:"key"`
			Title string `json:"title"`
			Type  string `json:"type"`
		} `json:"Directory"`
	} `json:"MediaContainer"`
}

// itemPlayed reports whether a Plex item has been watched: a positive view
// count or any last-viewed timestamp.
func itemPlayed(m plexMeta) bool {
	if m.ViewCount > 0 {
		return true
	}
	return m.ViewedAt != 0 || m.LastViewedAt != 0
}

func toItem(m plexMeta) media.Item {
	tags := map[string]string{}
	if m.Thumb != "" {
		tags["Primary"] = m.Thumb
	}
	name := m.Title
	if name == "" {
		name = "Unknown"
	}
	return media.Item{
		ID:             m.RatingKey,
		Name:           name,
		Type:           media.TitleCase(m.Type),
		ProductionYear: m.Year,
		Overview:       m.Summary,
		ImageTags:      tags,
		UserData:       media.UserData{Played: itemPlayed(m)},
	}
}

func (c *Client) GetServerInfo(ctx context.Context) (*media.SystemInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, media.ListTimeout)
	defer cancel()

	var container plexContainer
	if err := media.DoJSON(ctx, c.http, media.Request{URL: c.url("/"), Header: c.header()}, &container); err != nil {
		return nil, err
	}
	name := container.MediaContainer.FriendlyName
	if name == "" {
		name = "Plex Server"
	}
	return &media.SystemInfo{
		Name:       name,
		Version:    container.MediaContainer.Version,
		ServerType: media.ServerTypePlex,
	}, nil
}

func (c *Client) GetUsers(ctx context.Context) ([]media.User, error) {
	ctx, cancel := context.WithTimeout(ctx, media.ListTimeout)
	defer cancel()

	var container plexContainer
	if err := media.DoJSON(ctx, c.http, media.Request{URL: c.url("/accounts"), Header: c.header()}, &container); err != nil {
		return nil, err
	}
	users := make([]media.User, 0, len(container.MediaContainer.Account))
	for _, a := range container.MediaContainer.Account {
		name := a.Name
		if name == "" {
			name = "Unknown"
		}
		users = append(users, media.User{ID: strconv.Itoa(a.ID), Name: name})
	}
	if len(users) == 0 {
		// Standalone servers without managed accounts still have an owner.
		users = []media.User{{ID: "1", Name: "Owner"}}
	}
	return users, nil
}

func (c *Client) GetLibraries(ctx context.Context) ([]media.Library, error) {
	ctx, cancel := context.WithTimeout(ctx, media.ListTimeout)
	defer cancel()

	var container plexContainer
	if err := media.DoJSON(ctx, c.http, media.Request{URL: c.url("/library/sections"), Header: c.header()}, &container); err != nil {
		return nil, err
	}
	libs := make([]media.Library, 0, len(container.MediaContainer.Directory))
	for _, d := range container.MediaContainer.Directory {
		name := d.Title
		if name == "" {
			name = "Unknown"
		}
		libs = append(libs, media.Library{ID: d.Key, Name: name, CollectionType: d.Type})
	}
	return libs, nil
}

func (c *Client) GetItems(ctx context.Context, q media.ItemQuery) ([]media.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, media.WideTimeout)
	defer cancel()

	limit := q.Limit
	if limit <= 0 {
		limit = media.DefaultLimit
	}

	var (
		container plexContainer
		err       error
	)
	switch {
	case q.Search != "":
		params := url.Values{}
		params.Set("query", q.Search)
		// 1=movie, 2=show
		params.Set("type", "1,2")
		err = media.DoJSON(ctx, c.http, media.Request{URL: c.url("/search"), Query: params, Header: c.header()}, &container)
	case q.ParentID != "":
		endpoint := c.url(fmt.Sprintf("/library/sections/%s/all", url.PathEscape(q.ParentID)))
		err = media.DoJSON(ctx, c.http, media.Request{URL: endpoint, Header: c.header()}, &container)
	default:
		err = media.DoJSON(ctx, c.http, media.Request{URL: c.url("/library/recentlyAdded"), Header: c.header()}, &container)
	}
	if err != nil {
		return nil, err
	}

	items := make([]media.Item, 0, len(container.MediaContainer.Metadata))
	for _, m := range container.MediaContainer.Metadata {
		if disallowedTypes[strings.ToLower(m.Type)] {
			continue
		}
		items = append(items, toItem(m))
		if len(items) >= limit {
			break
		}
	}
	return items, nil
}

func (c *Client) GetFavorites(ctx context.Context, _ string) ([]media.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, media.ListTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("userRating>>", "7")
	var container plexContainer
	if err := media.DoJSON(ctx, c.http, media.Request{URL: c.url("/library/all"), Query: params, Header: c.header()}, &container); err != nil {
		return nil, err
	}
	items := make([]media.Item, 0, len(container.MediaContainer.Metadata))
	for _, m := range container.MediaContainer.Metadata {
		items = append(items, toItem(m))
	}
	return items, nil
}

func (c *Client) AddFavorite(ctx context.Context, _ string, itemID string, _ media.FavoriteHints) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, media.ToggleTimeout)
	defer cancel()

	already, err := c.isFavorited(ctx, itemID)
	if err != nil {
		return false, err
	}
	if already {
		return false, nil
	}
	if err := c.rate(ctx, itemID, "10"); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) RemoveFavorite(ctx context.Context, _ string, itemID string) error {
	ctx, cancel := context.WithTimeout(ctx, media.ToggleTimeout)
	defer cancel()
	return c.rate(ctx, itemID, "-1")
}

func (c *Client) rate(ctx context.Context, itemID, rating string) error {
	params := url.Values{}
	params.Set("key", itemID)
	params.Set("identifier", rateIdentifier)
	params.Set("rating", rating)
	return media.DoJSON(ctx, c.http, media.Request{
		Method: http.MethodPut,
		URL:    c.url("/:/rate"),
		Query:  params,
		Header: c.header(),
	}, nil)
}

func (c *Client) isFavorited(ctx context.Context, itemID string) (bool, error) {
	endpoint := c.url(fmt.Sprintf("/library/metadata/%s", url.PathEscape(itemID)))
	var container plexContainer
	err := media.DoJSON(ctx, c.http, media.Request{URL: endpoint, Header: c.header()}, &container)
	if media.IsUpstreamNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for _, m := range container.MediaContainer.Metadata {
		if m.UserRating >= 7 {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) GetRecent(ctx context.Context, parentID string, limit int) ([]media.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, media.ListTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}
	params := url.Values{}
	params.Set("X-Plex-Container-Size", strconv.Itoa(limit))

	endpoint := c.url("/library/recentlyAdded")
	if parentID != "" {
		endpoint = c.url(fmt.Sprintf("/library/sections/%s/recentlyAdded", url.PathEscape(parentID)))
	}
	var container plexContainer
	if err := media.DoJSON(ctx, c.http, media.Request{URL: endpoint, Query: params, Header: c.header()}, &container); err != nil {
		return nil, err
	}
	items := make([]media.Item, 0, len(container.MediaContainer.Metadata))
	for _, m := range container.MediaContainer.Metadata {
		items = append(items, toItem(m))
		if len(items) >= limit {
			break
		}
	}
	return items, nil
}

func (c *Client) FetchImage(ctx context.Context, itemID, _ string, maxWidth int) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, media.WideTimeout)
	defer cancel()

	if maxWidth <= 0 {
		maxWidth = 300
	}
	params := url.Values{}
	params.Set("width", strconv.Itoa(maxWidth))
	params.Set("X-Plex-Token", c.cfg.Token)
	endpoint := c.url(fmt.Sprintf("/library/metadata/%s/thumb", url.PathEscape(itemID)))
	return media.DoRaw(ctx, c.http, media.Request{URL: endpoint, Query: params, Header: c.header()})
}
