package sack

import (
	"os"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/rpmsack/rpmsack/internal/rpmerr"
)

// Policy is the on-disk, TOML-encoded sack policy file: install-only
// names/limit, exclude name globs, and protected package names. This
// mirrors the teacher's manifest.go, which is also a go-toml-backed
// struct loaded once at startup and applied to solver parameters.
type Policy struct {
	InstallonlyNames []string `toml:"installonly_names"`
	InstallonlyLimit int      `toml:"installonly_limit"`
	ExcludeNames     []string `toml:"exclude_names"`
	ProtectedNames   []string `toml:"protected_names"`
}

// LoadPolicyFile reads and parses a Policy from a TOML file.
func LoadPolicyFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, rpmerr.New(rpmerr.FileNotFound, "policy file %q", path)
		}
		return nil, errors.Wrap(err, "sack: reading policy file")
	}
	var p Policy
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, rpmerr.New(rpmerr.FailedConfigParsing, "policy file %q: %v", path, err)
	}
	return &p, nil
}

// ApplyPolicy applies a loaded Policy's install-only settings to the Sack.
// Excludes/protected names are left for the caller to resolve into ids via
// a Query, since Policy only knows names, not solvable ids.
func (s *Sack) ApplyPolicy(p *Policy) {
	if len(p.InstallonlyNames) > 0 {
		s.SetInstallonly(p.InstallonlyNames)
	}
	if p.InstallonlyLimit > 0 {
		s.SetInstallonlyLimit(p.InstallonlyLimit)
	}
}

// WritePolicyFile serializes p as TOML to path, used by a host to persist
// edited policy (e.g. after a CLI `config set` operation).
func WritePolicyFile(path string, p *Policy) error {
	data, err := toml.Marshal(*p)
	if err != nil {
		return errors.Wrap(err, "sack: marshaling policy")
	}
	return os.WriteFile(path, data, 0o644)
}
