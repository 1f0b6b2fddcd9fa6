package store

import (
	"database/sql"
	"encoding/json"
	"errors"

	"faveswitch/internal/media"
)

// LayoutTemplate is a saved bundle of display preference documents keyed by
// preference id, reusable across users and servers.
type LayoutTemplate struct {
	Name      string                     `json:"name"`
	Body      map[string]json.RawMessage `json:"body"`
	UpdatedAt string                     `json:"updated_at"`
}

func (s *Store) SaveLayoutTemplate(name string, body map[string]json.RawMessage) (LayoutTemplate, error) {
	if name == "" {
		return LayoutTemplate{}, media.Validationf("template name is required")
	}
	if len(body) == 0 {
		return LayoutTemplate{}, media.Validationf("template body is empty")
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return LayoutTemplate{}, err
	}
	ts := now()
	_, err = execWithRetry(s.db,
		`INSERT INTO layout_templates (name, body, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		name, string(encoded), ts)
	if err != nil {
		return LayoutTemplate{}, err
	}
	return LayoutTemplate{Name: name, Body: body, UpdatedAt: ts}, nil
}

func (s *Store) GetLayoutTemplate(name string) (LayoutTemplate, error) {
	row := s.db.QueryRow(`SELECT name, body, updated_at FROM layout_templates WHERE name = ?`, name)
	var tpl LayoutTemplate
	var body string
	err := row.Scan(&tpl.Name, &body, &tpl.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return LayoutTemplate{}, media.NotFound("layout template " + name)
	}
	if err != nil {
		return LayoutTemplate{}, err
	}
	if err := json.Unmarshal([]byte(body), &tpl.Body); err != nil {
		return LayoutTemplate{}, err
	}
	return tpl, nil
}

func (s *Store) ListLayoutTemplates() ([]LayoutTemplate, error) {
	rows, err := s.db.Query(`SELECT name, body, updated_at FROM layout_templates ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []LayoutTemplate{}
	for rows.Next() {
		var tpl LayoutTemplate
		var body string
		if err := rows.Scan(&tpl.Name, &body, &tpl.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(body), &tpl.Body); err != nil {
			return nil, err
		}
		out = append(out, tpl)
	}
	return out, rows.Err()
}

func (s *Store) DeleteLayoutTemplate(name string) error {
	res, err := execWithRetry(s.db, `DELETE FROM layout_templates WHERE name = ?`, name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return media.NotFound("layout template " + name)
	}
	return nil
}
