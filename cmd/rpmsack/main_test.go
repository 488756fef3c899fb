package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFixture(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "repo.json")
	const body = `[
		{"name": "libfoo", "evr": "1.0-1", "arch": "x86_64", "repo": "base"},
		{"name": "app", "evr": "1.0-1", "arch": "x86_64", "repo": "base", "requires": ["libfoo"]}
	]`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestListCommand(t *testing.T) {
	fixture := writeFixture(t, t.TempDir())
	var out, errb bytes.Buffer
	code := run([]string{"rpmsack", "-repo", fixture, "list"}, &out, &errb)
	if code != 0 {
		t.Fatalf("run() = %d, stderr: %s", code, errb.String())
	}
	if !strings.Contains(out.String(), "app-1.0-1.x86_64") {
		t.Errorf("list output = %q, expected app entry", out.String())
	}
}

func TestInstallCommandPullsDependency(t *testing.T) {
	fixture := writeFixture(t, t.TempDir())
	var out, errb bytes.Buffer
	code := run([]string{"rpmsack", "-repo", fixture, "install", "app"}, &out, &errb)
	if code != 0 {
		t.Fatalf("run() = %d, stderr: %s", code, errb.String())
	}
	if !strings.Contains(out.String(), "libfoo") {
		t.Errorf("install output = %q, expected libfoo to be pulled in", out.String())
	}
}

func TestUnknownCommand(t *testing.T) {
	var out, errb bytes.Buffer
	code := run([]string{"rpmsack", "bogus"}, &out, &errb)
	if code != 1 {
		t.Errorf("run() = %d, want 1 for an unknown command", code)
	}
}

func TestNoArgsPrintsUsage(t *testing.T) {
	var out, errb bytes.Buffer
	code := run([]string{"rpmsack"}, &out, &errb)
	if code != 1 {
		t.Errorf("run() = %d, want 1", code)
	}
	if !strings.Contains(errb.String(), "usage:") {
		t.Errorf("stderr = %q, expected usage text", errb.String())
	}
}
