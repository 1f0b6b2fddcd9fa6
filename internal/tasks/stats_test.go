package tasks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"faveswitch/internal/media"
	"faveswitch/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.db")
	if err := store.MigrateUp("sqlite://" + path); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func fakeEmby(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/System/Info", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ServerName": "Den", "Version": "4.8"})
	})
	mux.HandleFunc("/Users", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{{"Id": "u1", "Name": "alice"}, {"Id": "u2", "Name": "bob"}})
	})
	mux.HandleFunc("/Library/VirtualFolders", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{{"ItemId": "lib1", "Name": "Movies"}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCollectServer(t *testing.T) {
	s := newTestStore(t)
	upstream := fakeEmby(t)

	rec, err := s.CreateServer(media.ServerConfig{
		Type:    media.ServerTypeEmby,
		Name:    "Den",
		BaseURL: upstream.URL,
		APIKey:  "k",
		Enabled: true,
	})
	if err != nil {
		t.Fatalf("CreateServer failed: %v", err)
	}

	collector := &Collector{Store: s, Pool: media.NewTransportPool(2)}
	snap := collector.collectServer(context.Background(), rec)

	if !snap.Reachable {
		t.Fatalf("Expected reachable server, got error %q", snap.Error)
	}
	if snap.Users != 2 || snap.Libraries != 1 {
		t.Errorf("Expected 2 users and 1 library, got %d and %d", snap.Users, snap.Libraries)
	}
	if snap.Version != "4.8" {
		t.Errorf("Expected version recorded, got %q", snap.Version)
	}
}

func TestCollectServerUnreachable(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.CreateServer(media.ServerConfig{
		Type:    media.ServerTypeEmby,
		Name:    "Gone",
		BaseURL: "http://127.0.0.1:1",
		APIKey:  "k",
		Enabled: true,
	})
	if err != nil {
		t.Fatalf("CreateServer failed: %v", err)
	}

	collector := &Collector{Store: s, Pool: media.NewTransportPool(2)}
	snap := collector.collectServer(context.Background(), rec)

	if snap.Reachable {
		t.Error("Expected unreachable server")
	}
	if snap.Error == "" {
		t.Error("Expected error recorded")
	}
	if snap.Name != "Gone" {
		t.Errorf("Expected configured name kept, got %q", snap.Name)
	}
}

func TestRunCompletesJob(t *testing.T) {
	s := newTestStore(t)
	upstream := fakeEmby(t)
	if _, err := s.CreateServer(media.ServerConfig{
		Type:    media.ServerTypeEmby,
		BaseURL: upstream.URL,
		APIKey:  "k",
		Enabled: true,
	}); err != nil {
		t.Fatalf("CreateServer failed: %v", err)
	}

	collector := &Collector{Store: s, Pool: media.NewTransportPool(2)}
	job, err := s.CreateStatsJob("job-run")
	if err != nil {
		t.Fatalf("CreateStatsJob failed: %v", err)
	}
	collector.run(job.ID)

	got, err := s.GetStatsJob(job.ID)
	if err != nil {
		t.Fatalf("GetStatsJob failed: %v", err)
	}
	if got.Status != store.JobCompleted {
		t.Fatalf("Expected completed job, got %s (%s)", got.Status, got.Message)
	}
	if got.Progress != 100 {
		t.Errorf("Expected progress 100, got %d", got.Progress)
	}
	var snapshot Snapshot
	if err := json.Unmarshal(got.Snapshot, &snapshot); err != nil {
		t.Fatalf("Snapshot not valid JSON: %v", err)
	}
	if len(snapshot.Servers) != 1 || !snapshot.Servers[0].Reachable {
		t.Errorf("Unexpected snapshot %+v", snapshot)
	}
}
