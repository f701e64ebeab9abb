package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"volunteercore/pkg/domain"
)

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := NewStore(path)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	return store
}

func TestSQLiteStorePersistAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")
	store := openStore(t, path)
	if err := store.UpsertRequester(ctx, domain.Requester{ID: "u1", Name: "Ada", Active: true}); err != nil {
		t.Fatalf("upsert requester: %v", err)
	}
	if err := store.UpsertProgram(ctx, domain.Program{ID: "p1", OrganizationID: "org1", Title: "Garden", Status: domain.ProgramStatusApproved}); err != nil {
		t.Fatalf("upsert program: %v", err)
	}
	created, err := store.Create(ctx, domain.NewApplication{RequesterID: "u1", ProgramID: "p1", Reason: "outdoors"}, time.Now().UTC())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.UpdateStatus(ctx, created.ID, domain.StatusPending, domain.StatusApproved, time.Now().UTC()); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded := openStore(t, path)
	t.Cleanup(func() { _ = reloaded.Close() })
	got, err := reloaded.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get after reload: %v", err)
	}
	if got.Status != domain.StatusApproved || got.ProgramTitle != "Garden" {
		t.Fatalf("unexpected reloaded application: %+v", got)
	}
	if reloaded.Path() != path {
		t.Fatalf("expected path %s, got %s", path, reloaded.Path())
	}
}

func TestSQLiteStoreRollsBackWhenPersistFails(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "state.db"))
	t.Cleanup(func() { _ = store.Close() })
	if err := store.UpsertRequester(ctx, domain.Requester{ID: "u1", Active: true}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := store.DB().Exec(`DROP TABLE state`); err != nil {
		t.Fatalf("drop table: %v", err)
	}
	_, err := store.Create(ctx, domain.NewApplication{RequesterID: "u1", ProgramID: "p1", Reason: "x"}, time.Now())
	if err == nil {
		t.Fatalf("expected persist failure")
	}
	all, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected in-memory rollback, got %+v", all)
	}
}

func TestSQLiteStoreDuplicateDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "state.db"))
	t.Cleanup(func() { _ = store.Close() })
	now := time.Now().UTC()
	if _, err := store.Create(ctx, domain.NewApplication{RequesterID: "u1", ProgramID: "p1", Reason: "a"}, now); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Create(ctx, domain.NewApplication{RequesterID: "u1", ProgramID: "p1", Reason: "b"}, now); !domain.IsDuplicate(err) {
		t.Fatalf("expected duplicate, got %v", err)
	}
}
