// Package backends constructs the adapter for a configured server kind.
package backends

import (
	"faveswitch/internal/abs"
	"faveswitch/internal/emby"
	"faveswitch/internal/media"
	"faveswitch/internal/plex"
	"faveswitch/internal/stremio"
)

// New returns the MediaBackend adapter for the server's kind. Emby and
// Jellyfin share one adapter since Jellyfin kept Emby's API surface.
func New(cfg media.ServerConfig, pool *media.TransportPool) (media.MediaBackend, error) {
	switch cfg.Type {
	case media.ServerTypeEmby, media.ServerTypeJellyfin:
		return emby.New(cfg, pool), nil
	case media.ServerTypePlex:
		return plex.New(cfg, pool), nil
	case media.ServerTypeAudiobookshelf:
		return abs.New(cfg, pool), nil
	case media.ServerTypeStremio:
		return stremio.New(cfg, pool), nil
	default:
		return nil, media.Validationf("unknown server kind %q", cfg.Type)
	}
}
