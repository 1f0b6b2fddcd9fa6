package emby

import "testing"

func TestDecodeUsers(t *testing.T) {
	bare := []byte(`[{"Id":"u1","Name":"alice"},{"Id":"u2","Name":"bob"}]`)
	users, err := decodeUsers(bare)
	if err != nil {
		t.Fatalf("decodeUsers failed: %v", err)
	}
	if len(users) != 2 || users[0].ID != "u1" || users[1].Name != "bob" {
		t.Errorf("Unexpected users %v", users)
	}

	wrapped := []byte(`{"Items":[{"Id":"u1","Name":"alice"}],"TotalRecordCount":1}`)
	users, err = decodeUsers(wrapped)
	if err != nil {
		t.Fatalf("decodeUsers wrapped failed: %v", err)
	}
	if len(users) != 1 || users[0].ID != "u1" {
		t.Errorf("Unexpected wrapped users %v", users)
	}

	if _, err := decodeUsers([]byte(`"nonsense"`)); err == nil {
		t.Error("Expected error for non-user payload")
	}
}

func TestDecodeVirtualFolders(t *testing.T) {
	bare := []byte(`[{"ItemId":"lib1","Name":"Movies","CollectionType":"movies"}]`)
	libs, err := decodeVirtualFolders(bare)
	if err != nil {
		t.Fatalf("decodeVirtualFolders failed: %v", err)
	}
	if len(libs) != 1 || libs[0].ID != "lib1" || libs[0].CollectionType != "movies" {
		t.Errorf("Unexpected libraries %v", libs)
	}

	// Jellyfin-style lowercase id without ItemId.
	lower := []byte(`[{"id":"lib2","name":"Shows"}]`)
	libs, err = decodeVirtualFolders(lower)
	if err != nil {
		t.Fatalf("decodeVirtualFolders lowercase failed: %v", err)
	}
	if len(libs) != 1 || libs[0].ID != "lib2" || libs[0].Name != "Shows" {
		t.Errorf("Unexpected lowercase libraries %v", libs)
	}

	wrapped := []byte(`{"Items":[{"ItemId":"lib3","Name":"Music"}]}`)
	libs, err = decodeVirtualFolders(wrapped)
	if err != nil {
		t.Fatalf("decodeVirtualFolders wrapped failed: %v", err)
	}
	if len(libs) != 1 || libs[0].ID != "lib3" {
		t.Errorf("Unexpected wrapped libraries %v", libs)
	}

	// Unknown envelope decodes to an empty list rather than failing.
	libs, err = decodeVirtualFolders([]byte(`{"Stuff":true}`))
	if err != nil {
		t.Fatalf("decodeVirtualFolders unknown envelope failed: %v", err)
	}
	if len(libs) != 0 {
		t.Errorf("Expected empty list, got %v", libs)
	}
}
