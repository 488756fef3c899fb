package reason

import (
	"path/filepath"
	"testing"
)

func TestStoreSetGetRemove(t *testing.T) {
	s := New()
	s.Set("foo-1-1.x86_64", Entry{FromRepo: "base", InstalledBy: "rpmsack", Reason: "user"})

	e, ok := s.Get("foo-1-1.x86_64")
	if !ok || e.Reason != "user" {
		t.Fatalf("Get = %+v, %v, want Reason=user", e, ok)
	}

	s.Remove("foo-1-1.x86_64")
	if _, ok := s.Get("foo-1-1.x86_64"); ok {
		t.Fatalf("expected entry removed")
	}
}

func TestStoreRemoveAllString(t *testing.T) {
	s := New()
	s.Set("a-1-1.x86_64", Entry{Reason: "dep"})
	s.Set("b-1-1.x86_64", Entry{Reason: "dep"})
	s.Set("c-1-1.x86_64", Entry{Reason: "user"})

	s.RemoveAllString("reason", "dep")

	if _, ok := s.Get("a-1-1.x86_64"); ok {
		t.Errorf("expected a removed")
	}
	if _, ok := s.Get("b-1-1.x86_64"); ok {
		t.Errorf("expected b removed")
	}
	if _, ok := s.Get("c-1-1.x86_64"); !ok {
		t.Errorf("expected c to survive")
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(filepath.Join(dir, "yumdb.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := s.Get("anything"); ok {
		t.Fatalf("expected empty store")
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "yumdb.toml")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s.Set("foo-1-1.x86_64", Entry{FromRepo: "base", Reason: "user"})
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	e, ok := reloaded.Get("foo-1-1.x86_64")
	if !ok || e.FromRepo != "base" || e.Reason != "user" {
		t.Fatalf("reloaded entry = %+v, %v", e, ok)
	}
}
