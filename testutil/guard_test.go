package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func writePkg(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestScanImports(t *testing.T) {
	dir := writePkg(t, map[string]string{
		"a.go":      "package tmp\nimport (\n\"fmt\"\n\"volunteercore/internal/infra/blob/s3\"\n)\nvar _ = fmt.Sprint\n",
		"b.go":      "package tmp\nimport \"volunteercore/internal/core\"\n",
		"c.go":      "package tmp\nimport \"volunteercore/internal/infra/persistence/memory\"\n",
		"b_test.go": "package tmp\nimport \"volunteercore/internal/httpapi\"\n",
	})
	rule := Except(Forbid("infra is wired by factories", "/internal/infra/"), "/internal/infra/persistence/")
	viols, err := ScanImports(dir, rule, Forbid("no core", "/internal/core"))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 2 {
		t.Fatalf("expected 2 violations, got %v", viols)
	}
	if viols[0].File != "a.go" || viols[0].Reason != "infra is wired by factories" {
		t.Fatalf("unexpected first violation %v", viols[0])
	}
	if viols[1].File != "b.go" || viols[1].Import != "volunteercore/internal/core" {
		t.Fatalf("unexpected second violation %v", viols[1])
	}
}

func TestScanImportsErrors(t *testing.T) {
	if _, err := ScanImports(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("expected read error")
	}
	dir := writePkg(t, map[string]string{"bad.go": "package tmp\nimport (\n"})
	if _, err := ScanImports(dir); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestAssertImportsPasses(t *testing.T) {
	dir := writePkg(t, map[string]string{"ok.go": "package tmp\nimport \"strings\"\nvar _ = strings.ToLower\n"})
	AssertImports(t, dir, Forbid("internal", "/internal/"))
}
