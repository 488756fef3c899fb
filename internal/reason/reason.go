// Package reason implements the reason store (spec §4.5 "yumdb"): a
// per-NEVRA namespace of {from_repo, installed_by, reason, releasever}
// tuples the transaction driver writes at commit time and that a host's
// "why is this installed" reporting reads back (Goal.Reason reports the
// solver's decisions and does not read this store). Grounded,
// like internal/sack's Policy, in the teacher's go-toml-backed
// manifest.go: a flat, whole-file-rewritten config store rather than a
// real embedded key-value database, which spec §1 treats as an external
// collaborator the caller may swap in.
package reason

import (
	"os"
	"sync"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/rpmsack/rpmsack/internal/rpmerr"
)

// Entry is one NEVRA's yumdb record (spec §4.5).
type Entry struct {
	FromRepo    string `toml:"from_repo"`
	InstalledBy string `toml:"installed_by"`
	Reason      string `toml:"reason"`
	Releasever  string `toml:"releasever"`
}

// Store is an in-memory reason table, optionally backed by a TOML file on
// disk (spec's yumdb). Concurrent-safe since the transaction driver and a
// host's read path may call it from different goroutines despite spec §5
// otherwise serializing Sack operations.
type Store struct {
	mu      sync.RWMutex
	path    string
	entries map[string]Entry
}

// New returns an empty, unbacked Store.
func New() *Store { return &Store{entries: make(map[string]Entry)} }

// Load reads a Store from a TOML file, as produced by Save. A missing
// file yields an empty Store rather than an error, matching a fresh
// rootdir with no yumdb history yet.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Store{path: path, entries: make(map[string]Entry)}, nil
		}
		return nil, errors.Wrap(err, "reason: reading yumdb file")
	}
	var raw struct {
		Packages map[string]Entry `toml:"packages"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, rpmerr.New(rpmerr.FailedConfigParsing, "yumdb file %q: %v", path, err)
	}
	if raw.Packages == nil {
		raw.Packages = make(map[string]Entry)
	}
	return &Store{path: path, entries: raw.Packages}, nil
}

// Save persists the Store to its backing path, whole-file, the same
// load/mutate/rewrite cycle the teacher's manifest.go uses for Gopkg.toml
// (spec's yumdb has no append-only log; a rewrite is cheap at the scale of
// one system's installed-package count).
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.path == "" {
		return rpmerr.New(rpmerr.InternalError, "reason: Store has no backing path; construct via Load")
	}
	data, err := toml.Marshal(struct {
		Packages map[string]Entry `toml:"packages"`
	}{Packages: s.entries})
	if err != nil {
		return errors.Wrap(err, "reason: marshaling yumdb")
	}
	return os.WriteFile(s.path, data, 0o644)
}

// Get returns the NEVRA's entry, if any (spec's yumdb get()).
func (s *Store) Get(nevra string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[nevra]
	return e, ok
}

// Set stores or replaces the NEVRA's entry (spec's yumdb set()).
func (s *Store) Set(nevra string, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[nevra] = e
}

// Remove deletes the NEVRA's entry, if present (spec's yumdb remove()).
func (s *Store) Remove(nevra string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, nevra)
}

// RemoveAllString deletes every entry in namespace whose value equals
// match, e.g. RemoveAllString("reason", "dep") to clear every
// dependency-reason tag ahead of a recompute (spec's yumdb
// remove_all_string(key, value)).
func (s *Store) RemoveAllString(field, match string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for nevra, e := range s.entries {
		if fieldValue(e, field) == match {
			delete(s.entries, nevra)
		}
	}
}

func fieldValue(e Entry, field string) string {
	switch field {
	case "from_repo":
		return e.FromRepo
	case "installed_by":
		return e.InstalledBy
	case "reason":
		return e.Reason
	case "releasever":
		return e.Releasever
	default:
		return ""
	}
}
