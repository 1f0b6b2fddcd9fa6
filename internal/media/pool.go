package media

import (
	"net/http"
	"sync"
	"time"
)

// DefaultPoolSize bounds how many distinct server connections keep a pooled
// transport alive at once.
const DefaultPoolSize = 12

// TransportPool hands out one reusable *http.Client per
// (server type, base URL, credential) triple. Entries are created lazily and
// evicted least-recently-used beyond the size bound. Safe for concurrent use;
// clients carry no mutable state beyond connection reuse.
type TransportPool struct {
	mu      sync.Mutex
	max     int
	clients map[string]*pooledClient
}

type pooledClient struct {
	client   *http.Client
	lastUsed time.Time
}

// NewTransportPool creates a pool bounded at max entries. A non-positive max
// falls back to DefaultPoolSize.
func NewTransportPool(max int) *TransportPool {
	if max <= 0 {
		max = DefaultPoolSize
	}
	return &TransportPool{
		max:     max,
		clients: make(map[string]*pooledClient),
	}
}

// Key derives the pool key for a server connection.
func (p *TransportPool) Key(cfg ServerConfig) string {
	return string(cfg.Type) + "|" + cfg.BaseURL + "|" + cfg.Credential()
}

// Client returns the pooled HTTP client for the server, creating it on first
// use. Per-call deadlines come from request contexts; the client timeout is a
// backstop only.
func (p *TransportPool) Client(cfg ServerConfig) *http.Client {
	key := p.Key(cfg)

	p.mu.Lock()
	defer p.mu.Unlock()

	if entry, ok := p.clients[key]; ok {
		entry.lastUsed = time.Now()
		return entry.client
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 6,
			IdleConnTimeout:     30 * time.Second,
		},
	}

	if len(p.clients) >= p.max {
		p.evictOldestLocked()
	}
	p.clients[key] = &pooledClient{client: client, lastUsed: time.Now()}
	return client
}

// Len reports the number of live pooled clients.
func (p *TransportPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

func (p *TransportPool) evictOldestLocked() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for key, entry := range p.clients {
		if oldestKey == "" || entry.lastUsed.Before(oldest) {
			oldestKey = key
			oldest = entry.lastUsed
		}
	}
	if oldestKey != "" {
		if entry := p.clients[oldestKey]; entry != nil {
			if t, ok := entry.client.Transport.(*http.Transport); ok {
				t.CloseIdleConnections()
			}
		}
		delete(p.clients, oldestKey)
	}
}
