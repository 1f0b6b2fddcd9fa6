package media

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestDoJSONDecodesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "5" {
			t.Errorf("Expected limit=5 in query, got %s", r.URL.RawQuery)
		}
		if r.Header.Get("X-Emby-Token") != "tok" {
			t.Errorf("Expected token header, got %q", r.Header.Get("X-Emby-Token"))
		}
		json.NewEncoder(w).Encode(map[string]any{"Name": "srv"})
	}))
	defer srv.Close()

	header := http.Header{}
	header.Set("X-Emby-Token", "tok")
	var out struct {
		Name string `json:"Name"`
	}
	err := DoJSON(context.Background(), srv.Client(), Request{
		URL:    srv.URL + "/System/Info",
		Query:  url.Values{"limit": {"5"}},
		Header: header,
	}, &out)
	if err != nil {
		t.Fatalf("DoJSON failed: %v", err)
	}
	if out.Name != "srv" {
		t.Errorf("Expected decoded name, got %q", out.Name)
	}
}

func TestDoJSONNilDstAndEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := DoJSON(context.Background(), srv.Client(), Request{URL: srv.URL}, nil); err != nil {
		t.Errorf("Expected nil dst to skip decoding, got %v", err)
	}
	var out map[string]any
	if err := DoJSON(context.Background(), srv.Client(), Request{URL: srv.URL}, &out); err != nil {
		t.Errorf("Expected empty body to skip decoding, got %v", err)
	}
}

func TestDoJSONEncodesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected json content type, got %q", ct)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["name"] != "Favourites" {
			t.Errorf("Expected encoded body, got %v", body)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := DoJSON(context.Background(), srv.Client(), Request{
		Method: http.MethodPost,
		URL:    srv.URL,
		Body:   map[string]any{"name": "Favourites"},
	}, nil)
	if err != nil {
		t.Fatalf("DoJSON failed: %v", err)
	}
}

func TestNon2xxBecomesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such item", http.StatusNotFound)
	}))
	defer srv.Close()

	err := DoJSON(context.Background(), srv.Client(), Request{URL: srv.URL}, nil)
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("Expected UpstreamError, got %T", err)
	}
	if ue.Status != 404 {
		t.Errorf("Expected status 404, got %d", ue.Status)
	}
	if !IsUpstreamNotFound(err) {
		t.Error("Expected IsUpstreamNotFound to match")
	}
}

func TestErrorSnippetTruncated(t *testing.T) {
	long := strings.Repeat("x", 1000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, long, http.StatusBadGateway)
	}))
	defer srv.Close()

	err := DoJSON(context.Background(), srv.Client(), Request{URL: srv.URL}, nil)
	if err == nil {
		t.Fatal("Expected error")
	}
	if len(err.Error()) > 400 {
		t.Errorf("Expected truncated snippet, message length %d", len(err.Error()))
	}
	if !strings.Contains(err.Error(), "…") {
		t.Error("Expected truncation marker in message")
	}
}

func TestDoRawReturnsContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte{0x89, 'P', 'N', 'G'})
	}))
	defer srv.Close()

	raw, ct, err := DoRaw(context.Background(), srv.Client(), Request{URL: srv.URL})
	if err != nil {
		t.Fatalf("DoRaw failed: %v", err)
	}
	if ct != "image/png" {
		t.Errorf("Expected image/png, got %q", ct)
	}
	if len(raw) != 4 {
		t.Errorf("Expected 4 raw bytes, got %d", len(raw))
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"movie", "Movie"},
		{"MOVIE", "Movie"},
		{"tv show", "Tv Show"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := TitleCase(tt.in); got != tt.expected {
			t.Errorf("TitleCase(%q) = %q, expected %q", tt.in, got, tt.expected)
		}
	}
}
