package emby

import (
	"encoding/json"

	"faveswitch/internal/media"
)

func decodeUsers(raw []byte) ([]media.User, error) {
	var users []media.User
	if err := json.Unmarshal(raw, &users); err == nil {
		return users, nil
	}
	var wrapped struct {
		Items []media.User `json:"Items"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Items, nil
}

type virtualFolder struct {
	ItemID string `json:"ItemId"`
	// Unmarshal is case-insensitive, so this also catches lowercase "id".
	ID             string `json:"Id"`
	Name           string `json:"Name"`
	CollectionType string `json:"CollectionType"`
}

func (f virtualFolder) library() media.Library {
	id := f.ItemID
	if id == "" {
		id = f.ID
	}
	return media.Library{ID: id, Name: f.Name, CollectionType: f.CollectionType}
}

// decodeVirtualFolders accepts the bare array Emby normally returns as well as
// the wrapped envelopes some versions and proxies produce.
func decodeVirtualFolders(raw []byte) ([]media.Library, error) {
	var folders []virtualFolder
	if err := json.Unmarshal(raw, &folders); err == nil {
		return toLibraries(folders), nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	for _, key := range []string{"Items", "VirtualFolders", "items", "virtualFolders"} {
		inner, ok := wrapped[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(inner, &folders); err == nil {
			return toLibraries(folders), nil
		}
	}
	return []media.Library{}, nil
}

func toLibraries(folders []virtualFolder) []media.Library {
	out := make([]media.Library, 0, len(folders))
	for _, f := range folders {
		out = append(out, f.library())
	}
	return out
}
