package store

import (
	"database/sql"
	"errors"

	"faveswitch/internal/media"

	"github.com/google/uuid"
)

// ServerRecord is a configured backend connection as persisted. Credentials
// stay server-side; the outward surface reports only HasCredentials.
type ServerRecord struct {
	media.ServerConfig
	CreatedAt string
	UpdatedAt string
}

func (r ServerRecord) HasCredentials() bool { return r.Credential() != "" }

const serverColumns = `id, type, name, base_url, api_key, token, enabled, created_at, updated_at`

func scanServer(row interface{ Scan(...any) error }) (ServerRecord, error) {
	var rec ServerRecord
	var enabled int
	err := row.Scan(&rec.ID, &rec.Type, &rec.Name, &rec.BaseURL, &rec.APIKey, &rec.Token, &enabled, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return ServerRecord{}, err
	}
	rec.Enabled = enabled != 0
	return rec, nil
}

func (s *Store) ListServers() ([]ServerRecord, error) {
	rows, err := s.db.Query(`SELECT ` + serverColumns + ` FROM servers ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ServerRecord{}
	for rows.Next() {
		rec, err := scanServer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListEnabledServers returns only connections the gateway should talk to.
func (s *Store) ListEnabledServers() ([]ServerRecord, error) {
	all, err := s.ListServers()
	if err != nil {
		return nil, err
	}
	enabled := all[:0]
	for _, rec := range all {
		if rec.Enabled {
			enabled = append(enabled, rec)
		}
	}
	return enabled, nil
}

func (s *Store) GetServer(id string) (ServerRecord, error) {
	row := s.db.QueryRow(`SELECT `+serverColumns+` FROM servers WHERE id = ?`, id)
	rec, err := scanServer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ServerRecord{}, media.NotFound("server " + id)
	}
	return rec, err
}

func (s *Store) CreateServer(cfg media.ServerConfig) (ServerRecord, error) {
	if !cfg.Type.Valid() {
		return ServerRecord{}, media.Validationf("unknown server kind %q", cfg.Type)
	}
	if cfg.BaseURL == "" {
		return ServerRecord{}, media.Validationf("base_url is required")
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	ts := now()
	_, err := execWithRetry(s.db,
		`INSERT INTO servers (`+serverColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cfg.ID, string(cfg.Type), cfg.Name, cfg.BaseURL, cfg.APIKey, cfg.Token, boolInt(cfg.Enabled), ts, ts)
	if err != nil {
		return ServerRecord{}, err
	}
	return ServerRecord{ServerConfig: cfg, CreatedAt: ts, UpdatedAt: ts}, nil
}

// UpdateServer overwrites a connection's mutable fields. Empty credentials in
// the update keep the stored ones so clients never need to echo secrets back.
func (s *Store) UpdateServer(id string, cfg media.ServerConfig) (ServerRecord, error) {
	existing, err := s.GetServer(id)
	if err != nil {
		return ServerRecord{}, err
	}
	if cfg.Type != "" && !cfg.Type.Valid() {
		return ServerRecord{}, media.Validationf("unknown server kind %q", cfg.Type)
	}
	if cfg.Type == "" {
		cfg.Type = existing.Type
	}
	if cfg.Name == "" {
		cfg.Name = existing.Name
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = existing.BaseURL
	}
	if cfg.APIKey == "" {
		cfg.APIKey = existing.APIKey
	}
	if cfg.Token == "" {
		cfg.Token = existing.Token
	}
	ts := now()
	_, err = execWithRetry(s.db,
		`UPDATE servers SET type = ?, name = ?, base_url = ?, api_key = ?, token = ?, enabled = ?, updated_at = ? WHERE id = ?`,
		string(cfg.Type), cfg.Name, cfg.BaseURL, cfg.APIKey, cfg.Token, boolInt(cfg.Enabled), ts, id)
	if err != nil {
		return ServerRecord{}, err
	}
	cfg.ID = id
	return ServerRecord{ServerConfig: cfg, CreatedAt: existing.CreatedAt, UpdatedAt: ts}, nil
}

func (s *Store) DeleteServer(id string) error {
	res, err := execWithRetry(s.db, `DELETE FROM servers WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return media.NotFound("server " + id)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
