// Package sqlite provides a SQLite-backed store that snapshots the in-memory
// state after every successful write.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"volunteercore/internal/infra/persistence/memory"
	"volunteercore/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

const defaultPath = "volunteercore.db"

// Store persists the in-memory state to a single SQLite table as JSON blobs.
// Writes are serialized; a write whose snapshot fails to persist is undone in
// memory so the caller never observes a partial commit.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore constructs a snapshotting SQLite-backed persistent store.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{Store: memory.NewStore(), db: db, path: path}
	if err := s.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

var sqliteBuckets = []string{"requesters", "programs", "administrators", "applications"}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	snapshot := memory.Snapshot{}
	found := false
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		found = true
		var target any
		switch bucket {
		case "requesters":
			target = &snapshot.Requesters
		case "programs":
			target = &snapshot.Programs
		case "administrators":
			target = &snapshot.Administrators
		case "applications":
			target = &snapshot.Applications
		default:
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return fmt.Errorf("decode %s: %w", bucket, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	if found {
		s.ImportState(snapshot)
	}
	return nil
}

func (s *Store) persist(ctx context.Context) (retErr error) {
	snapshot := s.ExportState()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range sqliteBuckets {
		var data []byte
		switch bucket {
		case "requesters":
			data, err = json.Marshal(snapshot.Requesters)
		case "programs":
			data, err = json.Marshal(snapshot.Programs)
		case "administrators":
			data, err = json.Marshal(snapshot.Administrators)
		case "applications":
			data, err = json.Marshal(snapshot.Applications)
		}
		if err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	return tx.Commit()
}

// write applies fn to the in-memory state and snapshots it, restoring the
// previous state when the snapshot cannot be committed.
func (s *Store) write(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.ExportState()
	if err := fn(); err != nil {
		return err
	}
	if err := s.persist(ctx); err != nil {
		s.ImportState(prev)
		return fmt.Errorf("persist snapshot: %w", err)
	}
	return nil
}

// Create stores a new pending application.
func (s *Store) Create(ctx context.Context, in domain.NewApplication, now time.Time) (domain.ApplicationView, error) {
	var created domain.ApplicationView
	err := s.write(ctx, func() error {
		var err error
		created, err = s.Store.Create(ctx, in, now)
		return err
	})
	return created, err
}

// UpdateStatus applies a conditional status change and snapshots it.
func (s *Store) UpdateStatus(ctx context.Context, id string, expected, next domain.Status, now time.Time) (domain.ApplicationView, error) {
	var updated domain.ApplicationView
	err := s.write(ctx, func() error {
		var err error
		updated, err = s.Store.UpdateStatus(ctx, id, expected, next, now)
		return err
	})
	return updated, err
}

// UpsertRequester inserts or replaces a requester.
func (s *Store) UpsertRequester(ctx context.Context, r domain.Requester) error {
	return s.write(ctx, func() error { return s.Store.UpsertRequester(ctx, r) })
}

// UpsertProgram inserts or replaces a program.
func (s *Store) UpsertProgram(ctx context.Context, p domain.Program) error {
	return s.write(ctx, func() error { return s.Store.UpsertProgram(ctx, p) })
}

// UpsertAdministrator inserts or replaces an administrator.
func (s *Store) UpsertAdministrator(ctx context.Context, a domain.Administrator) error {
	return s.write(ctx, func() error { return s.Store.UpsertAdministrator(ctx, a) })
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
