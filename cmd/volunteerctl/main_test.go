package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fixtures = `
requesters:
  - id: u1
    name: Ada Lovelace
    email: ada@example.org
    active: true
programs:
  - id: p1
    organization_id: org1
    title: Food Bank
    status: approved
    starts_at: 2099-01-01T09:00:00Z
administrators:
  - id: admin-a
    organization_id: org1
    name: Admin A
`

// cliEnv points every invocation at the same sqlite file and filesystem inbox.
func cliEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("VOLUNTEERCORE_STORAGE_DRIVER", "sqlite")
	t.Setenv("VOLUNTEERCORE_SQLITE_PATH", filepath.Join(dir, "volunteer.db"))
	t.Setenv("VOLUNTEERCORE_NOTIFIER_DRIVER", "inbox")
	t.Setenv("VOLUNTEERCORE_BLOB_DRIVER", "fs")
	t.Setenv("VOLUNTEERCORE_BLOB_FS_ROOT", filepath.Join(dir, "blobs"))
	t.Setenv("VOLUNTEERCORE_LOG_LEVEL", "error")
	path := filepath.Join(dir, "fixtures.yaml")
	if err := os.WriteFile(path, []byte(fixtures), 0o600); err != nil {
		t.Fatalf("write fixtures: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--env-file", ""}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLifecycleThroughCLI(t *testing.T) {
	fixturePath := cliEnv(t)

	out, err := execute(t, "seed", fixturePath)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !strings.Contains(out, "Seeded 1 requesters, 1 programs, 1 administrators") {
		t.Fatalf("unexpected seed output %q", out)
	}

	out, err = execute(t, "-o", "json", "submit", "--requester", "u1", "--program", "p1", "--reason", "I cook")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	var submitted struct {
		Application struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"application"`
		Notifications struct {
			Delivered []string `json:"delivered"`
		} `json:"notifications"`
	}
	if err := json.Unmarshal([]byte(out), &submitted); err != nil {
		t.Fatalf("decode submit output %q: %v", out, err)
	}
	id := submitted.Application.ID
	if submitted.Application.Status != "pending" || len(submitted.Notifications.Delivered) != 1 {
		t.Fatalf("unexpected submit result %+v", submitted)
	}

	if _, err := execute(t, "submit", "--requester", "u1", "--program", "p1", "--reason", "again"); err == nil {
		t.Fatalf("duplicate submission should fail")
	}

	out, err = execute(t, "status", id, "approved")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "is approved") || !strings.Contains(out, "Notified 1 of 1") {
		t.Fatalf("unexpected status output %q", out)
	}

	if _, err := execute(t, "status", id, "pending"); err == nil || !strings.Contains(err.Error(), "from approved to pending") {
		t.Fatalf("expected illegal transition, got %v", err)
	}

	out, err = execute(t, "list", "--organization", "org1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, id) || !strings.Contains(out, "Food Bank") {
		t.Fatalf("list missing application: %q", out)
	}

	out, err = execute(t, "inbox", "u1")
	if err != nil {
		t.Fatalf("inbox: %v", err)
	}
	if !strings.Contains(out, id) {
		t.Fatalf("inbox missing approval notice: %q", out)
	}

	if _, err := execute(t, "withdraw", id); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	out, err = execute(t, "get", id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !strings.Contains(out, "cancelled") {
		t.Fatalf("expected cancelled status: %q", out)
	}
}

func TestCLIValidation(t *testing.T) {
	cliEnv(t)
	if _, err := execute(t, "-o", "xml", "list"); err == nil {
		t.Fatalf("expected output format error")
	}
	if _, err := execute(t, "list", "--organization", "o", "--program", "p"); err == nil {
		t.Fatalf("expected mutually exclusive flag error")
	}
	if _, err := execute(t, "submit", "--program", "p1"); err == nil {
		t.Fatalf("expected required flag error")
	}
	if _, err := execute(t, "seed", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected missing fixtures error")
	}
	out, err := execute(t, "list")
	if err != nil || !strings.Contains(out, "No applications found.") {
		t.Fatalf("expected empty listing, got %q %v", out, err)
	}
}

func TestInboxRequiresRetainingNotifier(t *testing.T) {
	cliEnv(t)
	t.Setenv("VOLUNTEERCORE_NOTIFIER_DRIVER", "log")
	if _, err := execute(t, "inbox", "u1"); err == nil || !strings.Contains(err.Error(), "does not retain") {
		t.Fatalf("expected unsupported inbox error, got %v", err)
	}
}
