package emby

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"faveswitch/internal/logging"
	"faveswitch/internal/media"
)

// Display preference documents are scoped to (user, client, device). These are
// the defaults when a caller does not pin a client/device.
const (
	DefaultLayoutClient   = "Emby Web"
	DefaultLayoutDeviceID = "faveswitch"
)

// Fixed preference ids that exist on every Emby/Jellyfin install; per-library
// ids get appended from the server's virtual folders.
var defaultLayoutIDs = []string{"home", "landingcategories", "resume", "suggestions", "latest"}

// LayoutBundle is the result of loading every known display preference
// document for a user. Ids whose documents the server reports missing land in
// Unsupported instead of failing the load.
type LayoutBundle struct {
	Layouts     map[string]json.RawMessage `json:"layouts"`
	Unsupported []string                   `json:"unsupported"`
	Candidates  []string                   `json:"candidates"`
}

// ApplyFailure records one preference id that could not be written.
type ApplyFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// ApplyReport summarizes a template application: validation is all-or-nothing,
// application is per-key.
type ApplyReport struct {
	Applied []string       `json:"applied"`
	Errors  []ApplyFailure `json:"errors"`
	Total   int            `json:"total"`
}

func layoutParams(userID, client, deviceID string) url.Values {
	if client == "" {
		client = DefaultLayoutClient
	}
	if deviceID == "" {
		deviceID = DefaultLayoutDeviceID
	}
	params := url.Values{}
	params.Set("Client", client)
	params.Set("DeviceId", deviceID)
	params.Set("UserId", userID)
	return params
}

// CandidateLayoutIDs returns the order-preserving, de-duplicated union of the
// fixed default ids and the server's current virtual-library ids.
func (c *Client) CandidateLayoutIDs(ctx context.Context) []string {
	seen := make(map[string]bool)
	combined := make([]string, 0, len(defaultLayoutIDs))

	libraryIDs := []string{}
	if libs, err := c.GetLibraries(ctx); err == nil {
		for _, lib := range libs {
			if lib.ID != "" {
				libraryIDs = append(libraryIDs, lib.ID)
			}
		}
	}

	for _, id := range append(append([]string{}, defaultLayoutIDs...), libraryIDs...) {
		if seen[id] {
			continue
		}
		seen[id] = true
		combined = append(combined, id)
	}
	return combined
}

// GetDisplayPref fetches one display preference document.
func (c *Client) GetDisplayPref(ctx context.Context, userID, prefID, client, deviceID string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, media.ListTimeout)
	defer cancel()

	endpoint := c.url(fmt.Sprintf("/DisplayPreferences/%s", url.PathEscape(prefID)))
	raw, _, err := media.DoRaw(ctx, c.http, media.Request{
		URL:    endpoint,
		Query:  layoutParams(userID, client, deviceID),
		Header: c.header(),
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

// SetDisplayPref overwrites one display preference document. The body must be
// a JSON object; its value schema is opaque to this gateway.
func (c *Client) SetDisplayPref(ctx context.Context, userID, prefID string, body json.RawMessage, client, deviceID string) error {
	if !isJSONObject(body) {
		return media.Validationf("display preference body must be an object")
	}
	ctx, cancel := context.WithTimeout(ctx, media.ListTimeout)
	defer cancel()

	endpoint := c.url(fmt.Sprintf("/DisplayPreferences/%s", url.PathEscape(prefID)))
	return media.DoJSON(ctx, c.http, media.Request{
		Method: http.MethodPost,
		URL:    endpoint,
		Query:  layoutParams(userID, client, deviceID),
		Header: c.header(),
		Body:   body,
	}, nil)
}

// LoadAllLayouts fetches every candidate preference document for a user.
// A missing document is recorded as unsupported; any other failure aborts.
func (c *Client) LoadAllLayouts(ctx context.Context, userID, client, deviceID string) (*LayoutBundle, error) {
	bundle := &LayoutBundle{
		Layouts:     map[string]json.RawMessage{},
		Unsupported: []string{},
	}
	bundle.Candidates = c.CandidateLayoutIDs(ctx)

	for _, prefID := range bundle.Candidates {
		doc, err := c.GetDisplayPref(ctx, userID, prefID, client, deviceID)
		if err != nil {
			if media.IsUpstreamNotFound(err) {
				logging.Warn("display preference not found", "user_id", userID, "pref_id", prefID)
				bundle.Unsupported = append(bundle.Unsupported, prefID)
				continue
			}
			return nil, err
		}
		bundle.Layouts[prefID] = doc
	}
	return bundle, nil
}

// ApplyLayoutTemplate writes a layout template to the user's display
// preferences. Every template key must be a current candidate id or the whole
// call fails before anything is written; after that gate, keys apply
// independently and per-key failures are reported rather than aborting.
func (c *Client) ApplyLayoutTemplate(ctx context.Context, userID string, template map[string]json.RawMessage, client, deviceID string) (*ApplyReport, error) {
	if len(template) == 0 {
		return nil, media.Validationf("template must be an object mapping preference ids to payloads")
	}

	candidates := c.CandidateLayoutIDs(ctx)
	known := make(map[string]bool, len(candidates))
	for _, id := range candidates {
		known[id] = true
	}

	var unsupported []string
	for key := range template {
		if !known[key] {
			unsupported = append(unsupported, key)
		}
	}
	if len(unsupported) > 0 {
		sort.Strings(unsupported)
		return nil, media.Validationf("unsupported display preference IDs: %s", strings.Join(unsupported, ", "))
	}

	report := &ApplyReport{
		Applied: []string{},
		Errors:  []ApplyFailure{},
		Total:   len(template),
	}
	for prefID, payload := range template {
		if err := c.SetDisplayPref(ctx, userID, prefID, payload, client, deviceID); err != nil {
			report.Errors = append(report.Errors, ApplyFailure{ID: prefID, Error: err.Error()})
			continue
		}
		report.Applied = append(report.Applied, prefID)
	}
	sort.Strings(report.Applied)
	return report, nil
}

func isJSONObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
