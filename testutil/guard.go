// Package testutil holds layering checks shared by package tests.
package testutil

import (
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"
)

// ImportRule reports why an import path is not allowed, or "" when it is.
type ImportRule func(importPath string) string

// Forbid returns a rule rejecting imports that contain any of fragments.
func Forbid(reason string, fragments ...string) ImportRule {
	return func(importPath string) string {
		for _, f := range fragments {
			if strings.Contains(importPath, f) {
				return reason
			}
		}
		return ""
	}
}

// Except wraps rule so imports containing any of allowed fragments pass.
func Except(rule ImportRule, allowed ...string) ImportRule {
	return func(importPath string) string {
		for _, a := range allowed {
			if strings.Contains(importPath, a) {
				return ""
			}
		}
		return rule(importPath)
	}
}

// Violation is one offending import.
type Violation struct {
	File   string
	Import string
	Reason string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s imports %s: %s", v.File, v.Import, v.Reason)
}

// ScanImports parses the non-test Go files in dir and returns every import
// rejected by rules, sorted by file then import.
func ScanImports(dir string, rules ...ImportRule) ([]Violation, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var out []Violation
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range file.Imports {
			path, err := strconv.Unquote(imp.Path.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			for _, rule := range rules {
				if reason := rule(path); reason != "" {
					out = append(out, Violation{File: name, Import: path, Reason: reason})
					break
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Import < out[j].Import
	})
	return out, nil
}

// AssertImports fails t when any non-test file in dir breaks rules.
func AssertImports(t testing.TB, dir string, rules ...ImportRule) {
	t.Helper()
	viols, err := ScanImports(dir, rules...)
	if err != nil {
		t.Fatalf("scan imports in %s: %v", dir, err)
	}
	if len(viols) == 0 {
		return
	}
	lines := make([]string, len(viols))
	for i, v := range viols {
		lines[i] = v.String()
	}
	t.Fatalf("forbidden imports:\n%s", strings.Join(lines, "\n"))
}
