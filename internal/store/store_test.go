package store

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"faveswitch/internal/media"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	if err := MigrateUp("sqlite://" + path); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestServerCRUD(t *testing.T) {
	s := newTestStore(t)

	created, err := s.CreateServer(media.ServerConfig{
		Type:    media.ServerTypeEmby,
		Name:    "Living Room",
		BaseURL: "http://emby:8096",
		APIKey:  "secret",
		Enabled: true,
	})
	if err != nil {
		t.Fatalf("CreateServer failed: %v", err)
	}
	if created.ID == "" {
		t.Error("Expected a generated id")
	}
	if !created.HasCredentials() {
		t.Error("Expected HasCredentials true")
	}

	got, err := s.GetServer(created.ID)
	if err != nil {
		t.Fatalf("GetServer failed: %v", err)
	}
	if got.Name != "Living Room" || got.APIKey != "secret" || !got.Enabled {
		t.Errorf("Unexpected record %+v", got)
	}

	list, err := s.ListServers()
	if err != nil {
		t.Fatalf("ListServers failed: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("Expected 1 server, got %d", len(list))
	}

	if err := s.DeleteServer(created.ID); err != nil {
		t.Fatalf("DeleteServer failed: %v", err)
	}
	var notFound *media.NotFoundError
	if _, err := s.GetServer(created.ID); !errors.As(err, &notFound) {
		t.Errorf("Expected NotFoundError after delete, got %v", err)
	}
	if err := s.DeleteServer(created.ID); !errors.As(err, &notFound) {
		t.Errorf("Expected NotFoundError for double delete, got %v", err)
	}
}

func TestCreateServerValidation(t *testing.T) {
	s := newTestStore(t)
	var validation *media.ValidationError

	_, err := s.CreateServer(media.ServerConfig{Type: "kodi", BaseURL: "http://x"})
	if !errors.As(err, &validation) {
		t.Errorf("Expected validation error for unknown kind, got %v", err)
	}
	_, err = s.CreateServer(media.ServerConfig{Type: media.ServerTypePlex})
	if !errors.As(err, &validation) {
		t.Errorf("Expected validation error for missing base_url, got %v", err)
	}
}

func TestUpdateServerKeepsCredentials(t *testing.T) {
	s := newTestStore(t)
	created, err := s.CreateServer(media.ServerConfig{
		Type:    media.ServerTypeAudiobookshelf,
		Name:    "Shelf",
		BaseURL: "http://abs:13378",
		APIKey:  "secret",
		Enabled: true,
	})
	if err != nil {
		t.Fatalf("CreateServer failed: %v", err)
	}

	// An update without credentials must not wipe the stored ones.
	updated, err := s.UpdateServer(created.ID, media.ServerConfig{
		Name:    "Shelf Renamed",
		Enabled: true,
	})
	if err != nil {
		t.Fatalf("UpdateServer failed: %v", err)
	}
	if updated.APIKey != "secret" {
		t.Errorf("Expected stored credential kept, got %q", updated.APIKey)
	}
	if updated.Name != "Shelf Renamed" {
		t.Errorf("Expected renamed server, got %q", updated.Name)
	}
	if updated.Type != media.ServerTypeAudiobookshelf {
		t.Errorf("Expected type kept, got %q", updated.Type)
	}

	got, err := s.GetServer(created.ID)
	if err != nil {
		t.Fatalf("GetServer failed: %v", err)
	}
	if got.APIKey != "secret" || got.Name != "Shelf Renamed" {
		t.Errorf("Unexpected persisted record %+v", got)
	}
}

func TestListEnabledServers(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateServer(media.ServerConfig{Type: media.ServerTypeEmby, BaseURL: "http://a", Enabled: true}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateServer(media.ServerConfig{Type: media.ServerTypePlex, BaseURL: "http://b", Enabled: false}); err != nil {
		t.Fatal(err)
	}

	enabled, err := s.ListEnabledServers()
	if err != nil {
		t.Fatalf("ListEnabledServers failed: %v", err)
	}
	if len(enabled) != 1 {
		t.Fatalf("Expected 1 enabled server, got %d", len(enabled))
	}
	if enabled[0].BaseURL != "http://a" {
		t.Errorf("Expected enabled server a, got %s", enabled[0].BaseURL)
	}
}

func TestStatsJobLifecycle(t *testing.T) {
	s := newTestStore(t)

	job, err := s.CreateStatsJob("job-1")
	if err != nil {
		t.Fatalf("CreateStatsJob failed: %v", err)
	}
	if job.Status != JobPending {
		t.Errorf("Expected pending, got %s", job.Status)
	}

	if err := s.UpdateStatsJob("job-1", JobRunning, 50, "collecting"); err != nil {
		t.Fatalf("UpdateStatsJob failed: %v", err)
	}
	got, err := s.GetStatsJob("job-1")
	if err != nil {
		t.Fatalf("GetStatsJob failed: %v", err)
	}
	if got.Status != JobRunning || got.Progress != 50 || got.Message != "collecting" {
		t.Errorf("Unexpected job %+v", got)
	}
	if got.FinishedAt != nil {
		t.Error("Expected no finish timestamp while running")
	}

	snapshot := map[string]any{"servers": 2}
	if err := s.FinishStatsJob("job-1", JobCompleted, "", snapshot); err != nil {
		t.Fatalf("FinishStatsJob failed: %v", err)
	}
	got, err = s.GetStatsJob("job-1")
	if err != nil {
		t.Fatalf("GetStatsJob failed: %v", err)
	}
	if got.Status != JobCompleted || got.Progress != 100 {
		t.Errorf("Unexpected finished job %+v", got)
	}
	if got.FinishedAt == nil {
		t.Error("Expected finish timestamp")
	}
	var decoded map[string]any
	if err := json.Unmarshal(got.Snapshot, &decoded); err != nil {
		t.Fatalf("Snapshot not valid JSON: %v", err)
	}
	if decoded["servers"] != float64(2) {
		t.Errorf("Unexpected snapshot %v", decoded)
	}
}

func TestLatestAndListStatsJobs(t *testing.T) {
	s := newTestStore(t)

	var notFound *media.NotFoundError
	if _, err := s.LatestStatsJob(); !errors.As(err, &notFound) {
		t.Errorf("Expected NotFoundError with no jobs, got %v", err)
	}

	for _, id := range []string{"a", "b", "c"} {
		if _, err := s.CreateStatsJob(id); err != nil {
			t.Fatal(err)
		}
	}

	latest, err := s.LatestStatsJob()
	if err != nil {
		t.Fatalf("LatestStatsJob failed: %v", err)
	}
	// Same second timestamps fall back to id ordering.
	if latest.ID != "c" {
		t.Errorf("Expected latest job c, got %s", latest.ID)
	}

	jobs, err := s.ListStatsJobs(2)
	if err != nil {
		t.Fatalf("ListStatsJobs failed: %v", err)
	}
	if len(jobs) != 2 {
		t.Errorf("Expected 2 jobs, got %d", len(jobs))
	}
}

func TestLayoutTemplates(t *testing.T) {
	s := newTestStore(t)

	body := map[string]json.RawMessage{
		"usersettings": json.RawMessage(`{"CustomPrefs":{"homescreen":"[]"}}`),
	}
	tpl, err := s.SaveLayoutTemplate("default", body)
	if err != nil {
		t.Fatalf("SaveLayoutTemplate failed: %v", err)
	}
	if tpl.Name != "default" {
		t.Errorf("Unexpected template %+v", tpl)
	}

	// Upsert replaces the body.
	body2 := map[string]json.RawMessage{
		"usersettings": json.RawMessage(`{"CustomPrefs":{"homescreen":"[1]"}}`),
	}
	if _, err := s.SaveLayoutTemplate("default", body2); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	got, err := s.GetLayoutTemplate("default")
	if err != nil {
		t.Fatalf("GetLayoutTemplate failed: %v", err)
	}
	if string(got.Body["usersettings"]) != `{"CustomPrefs":{"homescreen":"[1]"}}` {
		t.Errorf("Expected upserted body, got %s", got.Body["usersettings"])
	}

	list, err := s.ListLayoutTemplates()
	if err != nil {
		t.Fatalf("ListLayoutTemplates failed: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("Expected 1 template, got %d", len(list))
	}

	if err := s.DeleteLayoutTemplate("default"); err != nil {
		t.Fatalf("DeleteLayoutTemplate failed: %v", err)
	}
	var notFound *media.NotFoundError
	if err := s.DeleteLayoutTemplate("default"); !errors.As(err, &notFound) {
		t.Errorf("Expected NotFoundError for double delete, got %v", err)
	}
}

func TestSaveLayoutTemplateValidation(t *testing.T) {
	s := newTestStore(t)
	var validation *media.ValidationError
	if _, err := s.SaveLayoutTemplate("", map[string]json.RawMessage{"a": json.RawMessage(`{}`)}); !errors.As(err, &validation) {
		t.Errorf("Expected validation error for empty name, got %v", err)
	}
	if _, err := s.SaveLayoutTemplate("x", nil); !errors.As(err, &validation) {
		t.Errorf("Expected validation error for empty body, got %v", err)
	}
}
