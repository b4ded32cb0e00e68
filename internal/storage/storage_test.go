package storage

import (
	"bytes"
	"testing"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage failed: %v", err)
	}

	payload := []byte("bitstream bytes")
	if err := store.Write("session/chunk-00000.h264", payload); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	exists, err := store.Exists("session/chunk-00000.h264")
	if err != nil || !exists {
		t.Fatalf("Exists = %v, %v; want true, nil", exists, err)
	}

	got, err := store.Read("session/chunk-00000.h264")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Read returned %q, want %q", got, payload)
	}

	if err := store.Write("session/manifest.json", []byte("{}")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	files, err := store.List("session")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("List returned %d files, want 2: %v", len(files), files)
	}

	if err := store.Delete("session/chunk-00000.h264"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	exists, err = store.Exists("session/chunk-00000.h264")
	if err != nil || exists {
		t.Errorf("Exists after Delete = %v, %v; want false, nil", exists, err)
	}

	// Deleting a missing file is not an error.
	if err := store.Delete("session/chunk-00000.h264"); err != nil {
		t.Errorf("Delete of missing file = %v, want nil", err)
	}
}

func TestLocalStorageReadMissing(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage failed: %v", err)
	}
	if _, err := store.Read("nope/missing.h264"); err == nil {
		t.Error("Read of missing file did not fail")
	}
	if _, err := store.List("nope"); err == nil {
		t.Error("List of missing directory did not fail")
	}
}
