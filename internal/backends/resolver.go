package backends

import (
	"faveswitch/internal/media"
	"faveswitch/internal/store"
)

// Resolver turns a stored server id into a live adapter. Handlers hold one
// Resolver; transports are shared through the pool underneath.
type Resolver struct {
	Store *store.Store
	Pool  *media.TransportPool
}

func (r *Resolver) Backend(id string) (media.MediaBackend, store.ServerRecord, error) {
	rec, err := r.Store.GetServer(id)
	if err != nil {
		return nil, store.ServerRecord{}, err
	}
	if !rec.Enabled {
		return nil, store.ServerRecord{}, media.Validationf("server %s is disabled", id)
	}
	backend, err := New(rec.ServerConfig, r.Pool)
	if err != nil {
		return nil, store.ServerRecord{}, err
	}
	return backend, rec, nil
}
