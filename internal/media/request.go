package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"
)

// Per-call deadlines. Favorite toggles use the tight bound, listings the
// default one, image and bulk aggregation calls the wide one.
const (
	ToggleTimeout = 8 * time.Second
	ListTimeout   = 20 * time.Second
	WideTimeout   = 30 * time.Second
)

// Request describes one upstream backend call.
type Request struct {
	Method string
	URL    string // absolute, without query
	Query  url.Values
	Header http.Header
	Body   any // JSON-encoded when non-nil
}

// DoJSON performs the request and decodes a JSON response into dst (skipped
// when dst is nil or the body is empty). Any transport failure, non-2xx status
// or decode failure comes back as an *UpstreamError carrying a body snippet.
func DoJSON(ctx context.Context, client *http.Client, r Request, dst any) error {
	raw, _, err := doRaw(ctx, client, r)
	if err != nil {
		return err
	}
	if dst == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return Upstreamf("decode json from %s: %w; body: %q", r.URL, err, snippet(raw))
	}
	return nil
}

// DoRaw performs the request and returns the raw body plus content type.
func DoRaw(ctx context.Context, client *http.Client, r Request) ([]byte, string, error) {
	return doRaw(ctx, client, r)
}

func doRaw(ctx context.Context, client *http.Client, r Request) ([]byte, string, error) {
	target := r.URL
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	var body io.Reader
	if r.Body != nil {
		encoded, err := json.Marshal(r.Body)
		if err != nil {
			return nil, "", Upstreamf("encode body for %s: %w", r.URL, err)
		}
		body = bytes.NewReader(encoded)
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, "", Upstream(err)
	}
	for key, values := range r.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if r.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", Upstream(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", Upstreamf("read body from %s: %w", r.URL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &UpstreamError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("http %d from %s: %s", resp.StatusCode, r.URL, snippet(raw)),
		}
	}
	return raw, resp.Header.Get("Content-Type"), nil
}

func snippet(b []byte) string {
	s := string(b)
	if len(s) > 240 {
		s = s[:240] + "…"
	}
	return s
}

// TitleCase upper-cases the first letter of each space-separated word, the way
// backend type names get normalized (plex "movie" -> "Movie").
func TitleCase(s string) string {
	if s == "" {
		return ""
	}
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
