package core

import (
	"context"
	"path/filepath"
	"testing"

	"volunteercore/internal/infra/persistence/memory"
	"volunteercore/internal/infra/persistence/sqlite"
)

func TestOpenPersistentStoreMemory(t *testing.T) {
	store, err := OpenPersistentStore(context.Background(), StorageOptions{Driver: StorageMemory})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected *memory.Store, got %T", store)
	}
}

func TestOpenPersistentStoreDefaultsToSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.db")
	store, err := OpenPersistentStore(context.Background(), StorageOptions{SQLitePath: path})
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	s, ok := store.(*sqlite.Store)
	if !ok {
		t.Fatalf("expected *sqlite.Store, got %T", store)
	}
	if s.Path() != path {
		t.Fatalf("expected path %s, got %s", path, s.Path())
	}
}

func TestOpenPersistentStoreUnknownDriver(t *testing.T) {
	if _, err := OpenPersistentStore(context.Background(), StorageOptions{Driver: "mongo"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
