// Package subject implements the Subject/NEVRA parser (spec §4.3/C7):
// regex-based, lazy enumeration of the possible name-epoch:version-
// release.arch or reldep interpretations of a free-form user-typed token.
// Grounded in the teacher's deduce.go, which enumerates candidate import-
// path interpretations against an ordered list of regexes (ghRegex,
// gpinNewRegex, ...) and returns the first/all that validate — re-themed
// here from VCS import paths to NEVRA forms.
package subject

import (
	"regexp"
	"strings"

	"github.com/rpmsack/rpmsack/internal/reldep"
)

// Possibility is one candidate parse of a Subject token (spec §4.3).
type Possibility struct {
	// NEVRA fields, populated when IsReldep is false. Arch == "" means no
	// arch was recognised for this possibility.
	Name, Version, Release, Arch string
	Epoch                        *int64

	// Reldep form ("name [OP evr]"), populated when IsReldep is true.
	IsReldep bool
	Reldep   reldep.Reldep
}

// knownArches mirrors sack's recognisedArches; kept local and small since
// Subject parsing must work before any Sack exists.
var knownArches = map[string]bool{
	"x86_64": true, "i686": true, "aarch64": true, "ppc64le": true,
	"s390x": true, "armv7hl": true, "noarch": true, "src": true,
}

var reldepTokenRe = regexp.MustCompile(`^(\S+)\s*(>=|<=|=|>|<)\s*(\S+)$`)

// Parse enumerates, in order, the NEVRA/NEVR/NEV/NA/N possibilities for
// token, followed by a reldep-form possibility if the token looks like
// "name OP evr" (spec §4.3: "NEVRA forms ... with increasingly permissive
// release/arch absence" then "Reldep form").
//
// Ambiguous inputs yield multiple possibilities; the caller is expected to
// pick the first one that resolves to a package in the sack (spec §4.3:
// "the caller picks the first that exists in the sack").
func Parse(token string) []Possibility {
	var out []Possibility

	arch, rest, hasArch := splitTrailingArch(token)

	// NEVRA: name-[epoch:]version-release, with a recognised trailing
	// ".arch" split off first.
	if hasArch {
		if p, ok := splitNameVersionRelease(rest); ok {
			p.Arch = arch
			out = append(out, p)
		}
	}

	// NEVR: same dash split, but over the whole original token, so any
	// arch-looking suffix is absorbed into the release field instead of
	// being split out.
	if p, ok := splitNameVersionRelease(token); ok {
		out = append(out, p)
	}

	// NEV: name-[epoch:]version, no release field.
	if p, ok := splitNameVersion(token); ok {
		out = append(out, p)
	}

	// NA: name.arch.
	if hasArch && rest != "" {
		out = append(out, Possibility{Name: rest, Arch: arch})
	}

	// N: the whole token is a bare name.
	out = append(out, Possibility{Name: token})

	// Reldep form.
	if m := reldepTokenRe.FindStringSubmatch(token); m != nil {
		rd, err := reldep.Parse(token)
		if err == nil {
			out = append(out, Possibility{IsReldep: true, Reldep: rd})
		}
	}

	return dedupe(out)
}

func splitTrailingArch(s string) (arch, rest string, ok bool) {
	idx := strings.LastIndexByte(s, '.')
	if idx < 0 {
		return "", s, false
	}
	cand := s[idx+1:]
	if !knownArches[cand] {
		return "", s, false
	}
	return cand, s[:idx], true
}

// splitNameVersionRelease splits "name-[epoch:]version-release" by taking
// the last two '-'-delimited segments as version and release.
func splitNameVersionRelease(s string) (Possibility, bool) {
	idx := strings.LastIndexByte(s, '-')
	if idx < 0 {
		return Possibility{}, false
	}
	release := s[idx+1:]
	rest := s[:idx]

	idx2 := strings.LastIndexByte(rest, '-')
	if idx2 < 0 {
		return Possibility{}, false
	}
	verPart := rest[idx2+1:]
	name := rest[:idx2]
	if name == "" || verPart == "" || release == "" {
		return Possibility{}, false
	}

	epoch, version := splitEpoch(verPart)
	return Possibility{Name: name, Epoch: epoch, Version: version, Release: release}, true
}

// splitNameVersion splits "name-[epoch:]version" (no release).
func splitNameVersion(s string) (Possibility, bool) {
	idx := strings.LastIndexByte(s, '-')
	if idx < 0 {
		return Possibility{}, false
	}
	verPart := s[idx+1:]
	name := s[:idx]
	if name == "" || verPart == "" {
		return Possibility{}, false
	}
	epoch, version := splitEpoch(verPart)
	return Possibility{Name: name, Epoch: epoch, Version: version}, true
}

func splitEpoch(s string) (*int64, string) {
	if idx := strings.IndexByte(s, ':'); idx >= 0 {
		var n int64
		for _, r := range s[:idx] {
			if r < '0' || r > '9' {
				return nil, s
			}
			n = n*10 + int64(r-'0')
		}
		return &n, s[idx+1:]
	}
	return nil, s
}

func dedupe(in []Possibility) []Possibility {
	seen := make(map[Possibility]bool, len(in))
	out := make([]Possibility, 0, len(in))
	for _, p := range in {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
