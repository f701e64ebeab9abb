package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	fsStore, err := Open(context.Background(), Config{Driver: DriverFilesystem, FSRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("open fs: %v", err)
	}
	mem, err := Open(context.Background(), Config{Driver: DriverMemory})
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	return map[string]Store{
		"fs":     fsStore,
		"memory": mem,
		"s3":     NewMockS3ForTests(),
	}
}

func TestStoreContract(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			info, err := store.Put(ctx, "inbox/u1/0001.json", strings.NewReader(`{"title":"hi"}`), PutOptions{ContentType: "application/json"})
			if err != nil {
				t.Fatalf("put: %v", err)
			}
			if info.Key != "inbox/u1/0001.json" || info.Size != int64(len(`{"title":"hi"}`)) {
				t.Fatalf("unexpected info: %+v", info)
			}
			if _, err := store.Put(ctx, "inbox/u1/0001.json", strings.NewReader("again"), PutOptions{}); !errors.Is(err, ErrExists) {
				t.Fatalf("expected ErrExists, got %v", err)
			}
			if _, err := store.Put(ctx, "inbox/u1/0002.json", strings.NewReader("{}"), PutOptions{}); err != nil {
				t.Fatalf("put second: %v", err)
			}
			if _, err := store.Put(ctx, "inbox/u2/0001.json", strings.NewReader("{}"), PutOptions{}); err != nil {
				t.Fatalf("put other recipient: %v", err)
			}

			got, rc, err := store.Get(ctx, "inbox/u1/0001.json")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			body, _ := io.ReadAll(rc)
			_ = rc.Close()
			if string(body) != `{"title":"hi"}` {
				t.Fatalf("unexpected body %q (content must not be overwritten)", body)
			}
			if got.ContentType != "application/json" {
				t.Fatalf("expected content type preserved, got %q", got.ContentType)
			}

			list, err := store.List(ctx, "inbox/u1/")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(list) != 2 || list[0].Key != "inbox/u1/0001.json" || list[1].Key != "inbox/u1/0002.json" {
				t.Fatalf("unexpected listing: %+v", list)
			}

			existed, err := store.Delete(ctx, "inbox/u1/0002.json")
			if err != nil || !existed {
				t.Fatalf("delete: %v existed=%v", err, existed)
			}
			existed, err = store.Delete(ctx, "inbox/u1/0002.json")
			if err != nil || existed {
				t.Fatalf("second delete: %v existed=%v", err, existed)
			}
			if _, _, err := store.Get(ctx, "inbox/u1/0002.json"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Config{Driver: "gcs"}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestOpenS3RequiresBucket(t *testing.T) {
	if _, err := Open(context.Background(), Config{Driver: DriverS3}); err == nil {
		t.Fatalf("expected bucket error")
	}
}

func TestOpenDefaultsToFilesystem(t *testing.T) {
	store, err := Open(context.Background(), Config{FSRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Driver() != DriverFilesystem {
		t.Fatalf("expected fs driver, got %s", store.Driver())
	}
}
