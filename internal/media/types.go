package media

// ServerType represents the type of media server
type ServerType string

const (
	ServerTypeEmby           ServerType = "emby"
	ServerTypeJellyfin       ServerType = "jellyfin"
	ServerTypePlex           ServerType = "plex"
	ServerTypeAudiobookshelf ServerType = "audiobookshelf"
	ServerTypeStremio        ServerType = "stremio"
)

// Valid reports whether t names a known server type.
func (t ServerType) Valid() bool {
	switch t {
	case ServerTypeEmby, ServerTypeJellyfin, ServerTypePlex, ServerTypeAudiobookshelf, ServerTypeStremio:
		return true
	}
	return false
}

// ServerConfig holds the connection details for one media server.
// APIKey is used by Emby/Jellyfin/Audiobookshelf, Token by Plex/Stremio.
type ServerConfig struct {
	ID      string     `json:"id"`
	Type    ServerType `json:"server_type"`
	Name    string     `json:"name"`
	BaseURL string     `json:"url"`
	APIKey  string     `json:"api_key,omitempty"`
	Token   string     `json:"token,omitempty"`
	Enabled bool       `json:"enabled"`
}

// Credential returns whichever secret the server kind authenticates with.
func (c ServerConfig) Credential() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	return c.Token
}

// SystemInfo is the normalized identity of an upstream server.
type SystemInfo struct {
	Name       string     `json:"ServerName"`
	Version    string     `json:"Version"`
	ServerType ServerType `json:"ServerType"`
}

// User is a media server user account.
type User struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

// Library is a top-level media library (virtual folder / section / ABS library).
type Library struct {
	ID             string `json:"ItemId"`
	Name           string `json:"Name"`
	CollectionType string `json:"CollectionType"`
}

// UserData carries per-user playback state on an item.
type UserData struct {
	Played bool `json:"Played"`
}

// Item is the canonical media item shape shared by every backend.
// Field names follow the Emby convention since that is the richest source shape.
type Item struct {
	ID             string            `json:"Id"`
	Name           string            `json:"Name"`
	Type           string            `json:"Type"`
	ProductionYear *int              `json:"ProductionYear,omitempty"`
	Overview       string            `json:"Overview"`
	ImageTags      map[string]string `json:"ImageTags"`
	Tags           []string          `json:"Tags,omitempty"`
	UserData       UserData          `json:"UserData"`
}

// ItemsPage is the canonical list envelope returned by item listing operations.
type ItemsPage struct {
	Items            []Item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
}

// NewItemsPage wraps items in the canonical envelope, normalizing nil to [].
func NewItemsPage(items []Item) ItemsPage {
	if items == nil {
		items = []Item{}
	}
	return ItemsPage{Items: items, TotalRecordCount: len(items)}
}

// Collection is a canonical media collection. Audiobookshelf collections are
// backend-global, so UserId is best-effort and may be empty.
type Collection struct {
	ID          string `json:"Id"`
	Name        string `json:"Name"`
	Description string `json:"Description"`
	ItemCount   int    `json:"ItemCount"`
	UserID      string `json:"UserId,omitempty"`
}

// ItemQuery narrows an item listing.
type ItemQuery struct {
	ParentID string
	Search   string
	Limit    int
}

// FavoriteHints carries optional context for favorite writes. Audiobookshelf
// uses them to name a newly created favourites collection and to resolve the
// library it should live in.
type FavoriteHints struct {
	UserName  string
	LibraryID string
}
